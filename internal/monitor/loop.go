package monitor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/obsidianstack/hostwatch/internal/alerts"
	"github.com/obsidianstack/hostwatch/internal/config"
	"github.com/obsidianstack/hostwatch/internal/metrics"
	"github.com/obsidianstack/hostwatch/internal/notify"
	"github.com/obsidianstack/hostwatch/internal/resource"
)

// Sampler reads the current utilization of the host.
type Sampler interface {
	Sample(ctx context.Context) (resource.Sample, error)
}

// Notifier delivers one notification.
type Notifier interface {
	Send(ctx context.Context, msg notify.Message) error
}

// Loop runs the threshold checks and daily reports for one host.
//
// Loop is not safe for concurrent use: Run owns the alert state for its
// whole lifetime.
type Loop struct {
	cfg      config.MonitorConfig
	host     string
	sampler  Sampler
	notifier Notifier
	tracker  alerts.Tracker
	rec      *metrics.Recorder

	out   io.Writer
	now   func() time.Time
	after func(time.Duration) <-chan time.Time

	state      alerts.State
	nextReport time.Time
}

// Option configures a Loop.
type Option func(*Loop)

// WithRecorder publishes samples, alert state and deliveries to rec.
func WithRecorder(rec *metrics.Recorder) Option {
	return func(l *Loop) { l.rec = rec }
}

// WithOutput redirects the per-check status lines (default os.Stdout).
func WithOutput(w io.Writer) Option {
	return func(l *Loop) { l.out = w }
}

// WithClock replaces the wall clock and the inter-check wait.
func WithClock(now func() time.Time, after func(time.Duration) <-chan time.Time) Option {
	return func(l *Loop) {
		l.now = now
		l.after = after
	}
}

// New returns a Loop that samples with s and notifies through n.
func New(cfg config.MonitorConfig, host string, s Sampler, n Notifier, opts ...Option) *Loop {
	l := &Loop{
		cfg:      cfg,
		host:     host,
		sampler:  s,
		notifier: n,
		tracker:  alerts.Tracker{KeepUntilReset: !cfg.ClearOnRecovery},
		out:      os.Stdout,
		now:      time.Now,
		after:    time.After,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// State returns the current alert state.
func (l *Loop) State() alerts.State { return l.state }

// Run sends the startup report, then checks thresholds every
// CheckInterval and sends the daily report when its time arrives. It
// returns nil once ctx is cancelled.
//
// A sampling failure during the startup report, or any panic in the loop
// body, stops the loop: one WARNING describing the failure is attempted and
// the error is returned.
func (l *Loop) Run(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("monitor: panic: %v", r)
		}
		if err != nil && ctx.Err() == nil {
			l.reportFailure(ctx, err)
		}
	}()

	l.rec.SetThresholds(l.cfg.Thresholds)
	slog.Info("monitor: starting",
		"host", l.host,
		"disk_path", l.cfg.DiskPath,
		"check_interval", l.cfg.CheckInterval,
		"daily_report_time", l.cfg.DailyReportTime.String(),
		"clear_on_recovery", l.cfg.ClearOnRecovery,
	)

	if err := l.dailyReport(ctx, true); err != nil {
		return err
	}
	l.nextReport = l.cfg.DailyReportTime.Next(l.now())

	for {
		if ctx.Err() != nil {
			break
		}
		if !l.now().Before(l.nextReport) {
			if err := l.dailyReport(ctx, false); err != nil {
				return err
			}
			l.nextReport = l.cfg.DailyReportTime.Next(l.now())
			slog.Debug("monitor: next daily report scheduled", "at", l.nextReport)
		}
		if ctx.Err() != nil {
			break
		}

		l.check(ctx)

		select {
		case <-ctx.Done():
		case <-l.after(l.cfg.CheckInterval):
		}
	}

	slog.Info("monitor: stopped")
	return nil
}

// dailyReport sends the INFO summary and clears every alert flag.
// A sampling failure is fatal only at startup.
func (l *Loop) dailyReport(ctx context.Context, startup bool) error {
	sample, err := l.sampler.Sample(ctx)
	if ctx.Err() != nil {
		return nil
	}
	l.rec.ObserveSample(sample, err)
	if err != nil {
		if startup {
			return fmt.Errorf("monitor: initial sample: %w", err)
		}
		slog.Warn("monitor: daily report uses degraded sample", "err", err)
	}

	l.deliver(ctx, notify.Message{
		Level: notify.Info,
		Host:  l.host,
		Body:  summaryBody(sample, l.cfg.DiskPath, startup),
	})

	l.state = l.tracker.ResetAll(l.state)
	l.rec.ObserveState(l.state)
	l.rec.ReportSent()
	slog.Info("monitor: daily report sent, alert state reset", "startup", startup)
	return nil
}

// check samples once, prints a status line and warns for every metric that
// has just crossed its threshold.
func (l *Loop) check(ctx context.Context) {
	sample, err := l.sampler.Sample(ctx)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		slog.Warn("monitor: sample degraded, continuing", "err", err)
	}
	l.rec.ObserveSample(sample, err)
	l.rec.CheckDone()

	fmt.Fprintf(l.out, "[%s] %s\n", l.now().Format("15:04:05"), sample)

	var fires []alerts.Fire
	l.state, fires = l.tracker.Evaluate(sample, l.cfg.Thresholds, l.state)
	l.rec.ObserveState(l.state)

	for _, f := range fires {
		if ctx.Err() != nil {
			return
		}
		slog.Warn("monitor: threshold crossed",
			"metric", f.Kind.String(),
			"value", f.Value,
			"threshold", f.Threshold,
		)
		l.deliver(ctx, notify.Message{
			Level: notify.Warning,
			Host:  l.host,
			Body:  warningBody(f, l.cfg.DiskPath),
		})
	}
}

// deliver sends msg. Delivery failures are logged by the notifier and
// counted here; they never stop the loop.
func (l *Loop) deliver(ctx context.Context, msg notify.Message) {
	err := l.notifier.Send(ctx, msg)
	l.rec.ObserveDelivery(msg.Level, err)
}

func (l *Loop) reportFailure(ctx context.Context, cause error) {
	slog.Error("monitor: stopping on unexpected error", "err", cause)
	msg := notify.Message{
		Level: notify.Warning,
		Host:  l.host,
		Body:  fmt.Sprintf("Monitoring stopped by an unexpected error: %v", cause),
	}
	defer func() {
		if r := recover(); r != nil {
			slog.Error("monitor: failure notification panicked", "panic", r)
		}
	}()
	l.deliver(ctx, msg)
}
