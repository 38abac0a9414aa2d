package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/obsidianstack/hostwatch/internal/alerts"
)

// Default values applied when fields are absent.
const (
	DefaultCheckInterval  = 10 * time.Second
	DefaultDiskPath       = "/"
	DefaultReportTime     = "09:00"
	DefaultWebhookURLEnv  = "PUSH_NOTIFICATION_URL"
	DefaultWebhookTimeout = 10 * time.Second
	DefaultEnvFile        = ".env"
)

// maxIntervalSeconds is the longest interval a time.Duration can hold.
const maxIntervalSeconds = float64(math.MaxInt64 / int64(time.Second))

// Environment variables that override file values.
const (
	EnvCPUThreshold    = "CPU_THRESHOLD"
	EnvMemoryThreshold = "MEMORY_THRESHOLD"
	EnvDiskThreshold   = "DISK_THRESHOLD"
	EnvDiskPath        = "DISK_PARTITION_PATH"
	EnvCheckInterval   = "CHECK_INTERVAL_SECONDS"
	EnvReportTime      = "DAILY_REPORT_TIME"
)

// Config is the full watchdog configuration. It is immutable once loaded.
type Config struct {
	Webhook WebhookConfig `yaml:"webhook"`
	Monitor MonitorConfig `yaml:"monitor"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// WebhookConfig describes the notification endpoint.
type WebhookConfig struct {
	// URL is the endpoint used when URLEnv is unset or empty.
	URL string `yaml:"url"`

	// URLEnv names the environment variable holding the endpoint. It takes
	// precedence over URL so secrets can stay out of the file.
	URLEnv string `yaml:"url_env"`

	// Timeout bounds each delivery.
	Timeout time.Duration `yaml:"timeout"`

	// MaxPerMinute paces deliveries; 0 disables pacing.
	MaxPerMinute int `yaml:"max_per_minute"`
}

// Endpoint returns the webhook URL, resolving URLEnv first.
func (w WebhookConfig) Endpoint() string {
	if w.URLEnv != "" {
		if v := os.Getenv(w.URLEnv); v != "" {
			return v
		}
	}
	return w.URL
}

// MonitorConfig holds the sampling and alerting settings.
type MonitorConfig struct {
	// Host overrides the host identifier shown in notifications.
	Host string `yaml:"host"`

	// DiskPath selects the filesystem whose usage is monitored.
	DiskPath string `yaml:"disk_path"`

	// CheckInterval is the pause between threshold checks.
	CheckInterval time.Duration `yaml:"check_interval"`

	// DailyReportTime is the local time-of-day of the summary report.
	DailyReportTime TimeOfDay `yaml:"daily_report_time"`

	// ClearOnRecovery re-arms a metric when it drops below its threshold.
	// When false a metric warns at most once between daily reports.
	ClearOnRecovery bool `yaml:"clear_on_recovery"`

	Thresholds alerts.Thresholds `yaml:"thresholds"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	// Level is one of: debug | info | warn | error.
	Level string `yaml:"level"`

	// Format is one of: text | json.
	Format string `yaml:"format"`
}

// SlogLevel maps Level onto slog. Unknown values map to info; validate
// rejects them before this is called.
func (l LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	// ListenAddr enables /metrics when non-empty, e.g. ":9100".
	ListenAddr string `yaml:"listen_addr"`
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty) and environment overrides, then validates it.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse yaml: %w", err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment.
// Variables already set are left untouched. A missing file is ignored
// unless required is true.
func LoadDotEnv(path string, required bool) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if !required && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: load env file %q: %w", path, err)
	}
	slog.Debug("config: loaded env file", "path", path)
	return nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	tod, _ := ParseTimeOfDay(DefaultReportTime)
	return &Config{
		Webhook: WebhookConfig{
			URLEnv:  DefaultWebhookURLEnv,
			Timeout: DefaultWebhookTimeout,
		},
		Monitor: MonitorConfig{
			DiskPath:        DefaultDiskPath,
			CheckInterval:   DefaultCheckInterval,
			DailyReportTime: tod,
			ClearOnRecovery: true,
			Thresholds:      alerts.DefaultThresholds(),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// applyEnv overlays the variables used by .env based deployments.
func applyEnv(cfg *Config) error {
	floats := []struct {
		env string
		dst *float64
	}{
		{EnvCPUThreshold, &cfg.Monitor.Thresholds.CPU},
		{EnvMemoryThreshold, &cfg.Monitor.Thresholds.Memory},
		{EnvDiskThreshold, &cfg.Monitor.Thresholds.Disk},
	}
	for _, f := range floats {
		v, ok := lookupEnv(f.env)
		if !ok {
			continue
		}
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s: %q is not a number", f.env, v)
		}
		*f.dst = n
	}

	if v, ok := lookupEnv(EnvDiskPath); ok {
		cfg.Monitor.DiskPath = v
	}

	if v, ok := lookupEnv(EnvCheckInterval); ok {
		secs, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s: %q is not a number", EnvCheckInterval, v)
		}
		if !(secs > 0 && secs <= maxIntervalSeconds) {
			return fmt.Errorf("%s: %q must be between 0 and %.0f seconds", EnvCheckInterval, v, maxIntervalSeconds)
		}
		cfg.Monitor.CheckInterval = time.Duration(secs * float64(time.Second))
	}

	if v, ok := lookupEnv(EnvReportTime); ok {
		tod, err := ParseTimeOfDay(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvReportTime, err)
		}
		cfg.Monitor.DailyReportTime = tod
	}
	return nil
}

func lookupEnv(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	endpoint := cfg.Webhook.Endpoint()
	if endpoint == "" {
		return fmt.Errorf("webhook url is required (set webhook.url or $%s)", cfg.Webhook.URLEnv)
	}
	u, err := url.Parse(endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("webhook url must be an absolute http(s) URL")
	}
	if cfg.Webhook.Timeout <= 0 {
		return fmt.Errorf("webhook.timeout must be positive")
	}
	if cfg.Webhook.MaxPerMinute < 0 {
		return fmt.Errorf("webhook.max_per_minute must not be negative")
	}
	if cfg.Monitor.DiskPath == "" {
		return fmt.Errorf("monitor.disk_path is required")
	}
	if cfg.Monitor.CheckInterval <= 0 {
		return fmt.Errorf("monitor.check_interval must be positive")
	}
	if err := cfg.Monitor.Thresholds.Validate(); err != nil {
		return fmt.Errorf("monitor.thresholds: %w", err)
	}
	switch strings.ToLower(cfg.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log.level: unknown level %q", cfg.Log.Level)
	}
	switch cfg.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format: unknown format %q", cfg.Log.Format)
	}
	return nil
}
