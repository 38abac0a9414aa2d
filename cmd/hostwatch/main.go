package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/obsidianstack/hostwatch/internal/alerts"
	"github.com/obsidianstack/hostwatch/internal/config"
	"github.com/obsidianstack/hostwatch/internal/metrics"
	"github.com/obsidianstack/hostwatch/internal/monitor"
	"github.com/obsidianstack/hostwatch/internal/notify"
	"github.com/obsidianstack/hostwatch/internal/resource"
)

type rootFlags struct {
	configPath string
	envFile    string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var flags rootFlags
	cmd := &cobra.Command{
		Use:          "hostwatch",
		Short:        "Watch host CPU, memory and disk usage and notify a webhook",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMonitor(cmd, &flags)
		},
	}

	fs := cmd.PersistentFlags()
	fs.StringVarP(&flags.configPath, "config", "c", "", "path to YAML config file (optional)")
	fs.StringVar(&flags.envFile, "env-file", config.DefaultEnvFile, "dotenv file loaded before reading the environment")

	cmd.AddCommand(runCmd(&flags), checkCmd(&flags), testWebhookCmd(&flags), statusCmd())
	return cmd
}

func runCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:          "run",
		Short:        "Run the watchdog in the foreground (default)",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMonitor(cmd, flags)
		},
	}
}

func checkCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:          "check",
		Short:        "Sample once, print usage and report thresholds crossed, without notifying",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := setup(cmd, flags)
			if err != nil {
				return err
			}
			sampler, err := resource.NewSampler(cmd.Context(), cfg.Monitor.DiskPath)
			if err != nil {
				return err
			}
			return runCheck(cmd.Context(), cmd.OutOrStdout(), sampler, cfg.Monitor.Thresholds)
		},
	}
}

func testWebhookCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:          "test-webhook",
		Short:        "Send one INFO notification to the configured webhook",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := setup(cmd, flags)
			if err != nil {
				return err
			}
			hook := newWebhook(cfg)
			return hook.Send(cmd.Context(), notify.Message{
				Level: notify.Info,
				Host:  hostName(cmd.Context(), cfg),
				Body:  "Test notification from hostwatch.",
			})
		},
	}
}

// setup loads the env file and config and installs the default logger.
func setup(cmd *cobra.Command, flags *rootFlags) (*config.Config, error) {
	required := cmd.Flags().Changed("env-file")
	if err := config.LoadDotEnv(flags.envFile, required); err != nil {
		return nil, err
	}
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(newLogger(cfg.Log, cmd.ErrOrStderr()))
	return cfg, nil
}

func runMonitor(cmd *cobra.Command, flags *rootFlags) error {
	cfg, err := setup(cmd, flags)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	host := hostName(ctx, cfg)
	hook := newWebhook(cfg)

	slog.Info("hostwatch starting",
		"config", flags.configPath,
		"host", host,
		"disk_path", cfg.Monitor.DiskPath,
	)

	sampler, err := resource.NewSampler(ctx, cfg.Monitor.DiskPath)
	if err != nil {
		slog.Error("cannot sample host", "err", err)
		_ = hook.Send(ctx, notify.Message{
			Level: notify.Warning,
			Host:  host,
			Body:  fmt.Sprintf("Monitoring could not start: %v", err),
		})
		return err
	}

	rec := metrics.New()
	if addr := cfg.Metrics.ListenAddr; addr != "" {
		go func() {
			if err := rec.Serve(ctx, addr); err != nil {
				slog.Error("metrics server stopped", "err", err)
			}
		}()
	}

	if flags.configPath != "" {
		go func() {
			err := config.Watch(ctx, flags.configPath, func(_ *config.Config, err error) {
				if err != nil {
					slog.Warn("config changed on disk but is invalid", "path", flags.configPath, "err", err)
					return
				}
				slog.Info("config changed on disk; restart hostwatch to apply it", "path", flags.configPath)
			})
			if err != nil {
				slog.Error("config watcher stopped", "err", err)
			}
		}()
	}

	loop := monitor.New(cfg.Monitor, host, sampler, hook, monitor.WithRecorder(rec))
	if err := loop.Run(ctx); err != nil {
		return err
	}
	slog.Info("hostwatch shutting down")
	return nil
}

// runCheck samples once and prints each metric with its threshold. It
// returns an error naming the metrics at or above their thresholds.
func runCheck(ctx context.Context, w io.Writer, s monitor.Sampler, thr alerts.Thresholds) error {
	sample, err := s.Sample(ctx)
	if err != nil {
		return err
	}
	_, fires := alerts.Tracker{}.Evaluate(sample, thr, alerts.State{})

	crossed := make(map[resource.Kind]bool, len(fires))
	for _, f := range fires {
		crossed[f.Kind] = true
	}
	for _, k := range resource.Kinds {
		printRow(w, k, sample.Value(k), thr.For(k), crossed[k])
	}

	if len(fires) > 0 {
		names := make([]error, 0, len(fires))
		for _, f := range fires {
			names = append(names, fmt.Errorf("%s at %.1f%% (threshold %.1f%%)", f.Kind, f.Value, f.Threshold))
		}
		return fmt.Errorf("thresholds crossed: %w", errors.Join(names...))
	}
	return nil
}

func statusCmd() *cobra.Command {
	var (
		url     string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:          "status",
		Short:        "Print the state reported by a running watchdog's /metrics endpoint",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client := &http.Client{Timeout: timeout}
			st, err := metrics.FetchStatus(cmd.Context(), client, url)
			if err != nil {
				return fmt.Errorf("status %s: %w", url, err)
			}
			printStatus(cmd.OutOrStdout(), st)
			return nil
		},
	}
	cmd.Flags().StringVar(&url, "url", "http://localhost:9100/metrics", "metrics endpoint of the running watchdog")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "scrape timeout")
	return cmd
}

func printStatus(w io.Writer, st metrics.Status) {
	for _, k := range resource.Kinds {
		m := st.Metric(k)
		printRow(w, k, m.Utilization, m.Threshold, m.AlertActive)
	}
	fmt.Fprintf(w, "checks %.0f  daily reports %.0f\n", st.Checks, st.DailyReports)
}

func printRow(w io.Writer, k resource.Kind, value, threshold float64, alert bool) {
	status := "ok"
	if alert {
		status = "ALERT"
	}
	fmt.Fprintf(w, "%-6s %6.1f%%  threshold %5.1f%%  %s\n", k, value, threshold, status)
}

func newWebhook(cfg *config.Config) *notify.Webhook {
	return notify.NewWebhook(cfg.Webhook.Endpoint(),
		notify.WithTimeout(cfg.Webhook.Timeout),
		notify.WithMaxPerMinute(cfg.Webhook.MaxPerMinute),
	)
}

func hostName(ctx context.Context, cfg *config.Config) string {
	if cfg.Monitor.Host != "" {
		return cfg.Monitor.Host
	}
	return resource.Hostname(ctx)
}

func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
