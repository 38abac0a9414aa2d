package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable Load reads so the host environment cannot
// leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		DefaultWebhookURLEnv, EnvCPUThreshold, EnvMemoryThreshold, EnvDiskThreshold,
		EnvDiskPath, EnvCheckInterval, EnvReportTime, "HOOK_URL",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Valid(t *testing.T) {
	clearEnv(t)
	yaml := `
webhook:
  url: "https://hooks.example.com/abc"
  timeout: 3s
  max_per_minute: 20
monitor:
  host: web-01
  disk_path: /var
  check_interval: 30s
  daily_report_time: "18:45"
  clear_on_recovery: false
  thresholds:
    cpu: 70
    memory: 85.5
    disk: 95
log:
  level: debug
  format: json
metrics:
  listen_addr: ":9100"
`
	cfg := loadFromString(t, yaml)

	assert.Equal(t, "https://hooks.example.com/abc", cfg.Webhook.Endpoint())
	assert.Equal(t, 3*time.Second, cfg.Webhook.Timeout)
	assert.Equal(t, 20, cfg.Webhook.MaxPerMinute)
	assert.Equal(t, "web-01", cfg.Monitor.Host)
	assert.Equal(t, "/var", cfg.Monitor.DiskPath)
	assert.Equal(t, 30*time.Second, cfg.Monitor.CheckInterval)
	assert.Equal(t, TimeOfDay{Hour: 18, Minute: 45}, cfg.Monitor.DailyReportTime)
	assert.False(t, cfg.Monitor.ClearOnRecovery)
	assert.Equal(t, 70.0, cfg.Monitor.Thresholds.CPU)
	assert.Equal(t, 85.5, cfg.Monitor.Thresholds.Memory)
	assert.Equal(t, 95.0, cfg.Monitor.Thresholds.Disk)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, ":9100", cfg.Metrics.ListenAddr)
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg := loadFromString(t, `
webhook:
  url: "http://localhost:8080/hook"
`)

	assert.Equal(t, DefaultCheckInterval, cfg.Monitor.CheckInterval)
	assert.Equal(t, DefaultDiskPath, cfg.Monitor.DiskPath)
	assert.Equal(t, DefaultReportTime, cfg.Monitor.DailyReportTime.String())
	assert.True(t, cfg.Monitor.ClearOnRecovery)
	assert.Equal(t, 80.0, cfg.Monitor.Thresholds.CPU)
	assert.Equal(t, 80.0, cfg.Monitor.Thresholds.Memory)
	assert.Equal(t, 90.0, cfg.Monitor.Thresholds.Disk)
	assert.Equal(t, DefaultWebhookTimeout, cfg.Webhook.Timeout)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Empty(t, cfg.Metrics.ListenAddr)
}

func TestLoad_EnvOnly(t *testing.T) {
	clearEnv(t)
	t.Setenv(DefaultWebhookURLEnv, "https://push.example.com/notify")
	t.Setenv(EnvCPUThreshold, "65")
	t.Setenv(EnvMemoryThreshold, "70.5")
	t.Setenv(EnvDiskThreshold, "88")
	t.Setenv(EnvDiskPath, os.TempDir())
	t.Setenv(EnvCheckInterval, "15")
	t.Setenv(EnvReportTime, "07:05")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://push.example.com/notify", cfg.Webhook.Endpoint())
	assert.Equal(t, 65.0, cfg.Monitor.Thresholds.CPU)
	assert.Equal(t, 70.5, cfg.Monitor.Thresholds.Memory)
	assert.Equal(t, 88.0, cfg.Monitor.Thresholds.Disk)
	assert.Equal(t, os.TempDir(), cfg.Monitor.DiskPath)
	assert.Equal(t, 15*time.Second, cfg.Monitor.CheckInterval)
	assert.Equal(t, TimeOfDay{Hour: 7, Minute: 5}, cfg.Monitor.DailyReportTime)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvCPUThreshold, "50")
	t.Setenv("HOOK_URL", "https://from-env.example.com/")

	cfg := loadFromString(t, `
webhook:
  url: "https://from-file.example.com/"
  url_env: HOOK_URL
monitor:
  thresholds:
    cpu: 99
`)
	assert.Equal(t, 50.0, cfg.Monitor.Thresholds.CPU)
	assert.Equal(t, "https://from-env.example.com/", cfg.Webhook.Endpoint())
}

func TestLoad_MissingWebhookURL(t *testing.T) {
	clearEnv(t)
	_, err := loadStringErr(t, `
monitor:
  disk_path: /
`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "webhook url is required")
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		env  map[string]string
	}{
		{"relative url", `webhook: {url: "/hook"}`, nil},
		{"ftp url", `webhook: {url: "ftp://example.com/x"}`, nil},
		{"threshold over 100", "webhook: {url: \"http://h/\"}\nmonitor: {thresholds: {cpu: 120}}", nil},
		{"negative threshold", "webhook: {url: \"http://h/\"}\nmonitor: {thresholds: {disk: -5}}", nil},
		{"zero interval", "webhook: {url: \"http://h/\"}\nmonitor: {check_interval: 0s}", nil},
		{"bad report time", "webhook: {url: \"http://h/\"}\nmonitor: {daily_report_time: \"25:00\"}", nil},
		{"bad log level", "webhook: {url: \"http://h/\"}\nlog: {level: loud}", nil},
		{"bad log format", "webhook: {url: \"http://h/\"}\nlog: {format: xml}", nil},
		{"negative pacing", "webhook: {url: \"http://h/\", max_per_minute: -1}", nil},
		{"env threshold not a number", `webhook: {url: "http://h/"}`, map[string]string{EnvCPUThreshold: "high"}},
		{"env interval not a number", `webhook: {url: "http://h/"}`, map[string]string{EnvCheckInterval: "soon"}},
		{"env report time", `webhook: {url: "http://h/"}`, map[string]string{EnvReportTime: "noon"}},
		{"env threshold NaN", `webhook: {url: "http://h/"}`, map[string]string{EnvCPUThreshold: "NaN"}},
		{"yaml threshold NaN", "webhook: {url: \"http://h/\"}\nmonitor: {thresholds: {memory: .nan}}", nil},
		{"env interval zero", `webhook: {url: "http://h/"}`, map[string]string{EnvCheckInterval: "0"}},
		{"env interval Inf", `webhook: {url: "http://h/"}`, map[string]string{EnvCheckInterval: "Inf"}},
		{"env interval overflows", `webhook: {url: "http://h/"}`, map[string]string{EnvCheckInterval: "1e300"}},
		{"env interval NaN", `webhook: {url: "http://h/"}`, map[string]string{EnvCheckInterval: "NaN"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := loadStringErr(t, tc.yaml)
			assert.Error(t, err)
		})
	}
}

func TestLoad_UnreadableFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	content := "PUSH_NOTIFICATION_URL=https://dotenv.example.com/x\nCPU_THRESHOLD=42\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	// Variables already present are not overwritten; clearEnv set them to
	// empty, so unset the two under test first.
	require.NoError(t, os.Unsetenv(DefaultWebhookURLEnv))
	require.NoError(t, os.Unsetenv(EnvCPUThreshold))

	require.NoError(t, LoadDotEnv(path, true))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "https://dotenv.example.com/x", cfg.Webhook.Endpoint())
	assert.Equal(t, 42.0, cfg.Monitor.Thresholds.CPU)
}

func TestLoadDotEnv_Missing(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.env")
	assert.NoError(t, LoadDotEnv(missing, false))
	assert.Error(t, LoadDotEnv(missing, true))
	assert.NoError(t, LoadDotEnv("", true))
}

func TestLogConfig_SlogLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", LogConfig{Level: "debug"}.SlogLevel().String())
	assert.Equal(t, "WARN", LogConfig{Level: "WARNING"}.SlogLevel().String())
	assert.Equal(t, "ERROR", LogConfig{Level: "error"}.SlogLevel().String())
	assert.Equal(t, "INFO", LogConfig{}.SlogLevel().String())
}

func TestWatch_ReportsReload(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`webhook: {url: "http://a/"}`), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	type result struct {
		cfg *Config
		err error
	}
	got := make(chan result, 8)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, func(c *Config, err error) {
			select {
			case got <- result{c, err}:
			default:
			}
		})
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte(`webhook: {url: "http://b/"}`), 0o600))

	// A truncating write can surface as an empty, invalid file first; wait
	// for the event that sees the new content.
	deadline := time.After(3 * time.Second)
	for reloaded := false; !reloaded; {
		select {
		case r := <-got:
			reloaded = r.err == nil && r.cfg.Webhook.Endpoint() == "http://b/"
		case <-deadline:
			t.Fatal("no reload reported")
		}
	}

	cancel()
	assert.NoError(t, <-done)
}

// loadFromString writes yaml to a temp file and calls Load, failing on error.
func loadFromString(t *testing.T, content string) *Config {
	t.Helper()
	cfg, err := loadStringErr(t, content)
	require.NoError(t, err)
	return cfg
}

// loadStringErr writes yaml to a temp file and calls Load, returning any error.
func loadStringErr(t *testing.T, content string) (*Config, error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return Load(path)
}
