// Package config loads the watchdog configuration.
//
// Sources, later ones winning:
//   - built-in defaults (80/80/90 % thresholds, "/" disk path, 10s interval,
//     09:00 daily report, recovery clearing on, text logs at info)
//   - an optional YAML file (Load path)
//   - environment variables, optionally seeded from a .env file by
//     LoadDotEnv: PUSH_NOTIFICATION_URL, CPU_THRESHOLD, MEMORY_THRESHOLD,
//     DISK_THRESHOLD, DISK_PARTITION_PATH, CHECK_INTERVAL_SECONDS,
//     DAILY_REPORT_TIME
//
// The webhook URL is read from the variable named by webhook.url_env
// (PUSH_NOTIFICATION_URL by default) before falling back to webhook.url.
//
// A loaded Config is never modified. Watch uses fsnotify to notice edits to
// the file and hands the re-validated result to a callback; the running
// process keeps the Config it started with.
package config
