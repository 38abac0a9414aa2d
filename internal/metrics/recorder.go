package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/obsidianstack/hostwatch/internal/alerts"
	"github.com/obsidianstack/hostwatch/internal/notify"
	"github.com/obsidianstack/hostwatch/internal/resource"
)

const namespace = "hostwatch"

// Delivery outcomes used for the outcome label.
const (
	OutcomeDelivered = "delivered"
)

// Recorder holds the watchdog's Prometheus collectors on a private registry.
//
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	reg *prometheus.Registry

	utilization   *prometheus.GaugeVec
	threshold     *prometheus.GaugeVec
	alertActive   *prometheus.GaugeVec
	checks        prometheus.Counter
	sampleErrors  *prometheus.CounterVec
	notifications *prometheus.CounterVec
	dailyReports  prometheus.Counter
}

// New registers all collectors on a fresh registry.
func New() *Recorder {
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		utilization: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "utilization_percent",
			Help:      "Last sampled utilization per metric.",
		}, []string{"metric"}),
		threshold: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "threshold_percent",
			Help:      "Configured alert threshold per metric.",
		}, []string{"metric"}),
		alertActive: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "alert_active",
			Help:      "1 if a warning has been sent for the metric and not yet cleared.",
		}, []string{"metric"}),
		checks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checks_total",
			Help:      "Threshold checks performed.",
		}),
		sampleErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sample_errors_total",
			Help:      "Metric reads that failed.",
		}, []string{"metric"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notification attempts by level and outcome.",
		}, []string{"level", "outcome"}),
		dailyReports: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "daily_reports_total",
			Help:      "Summary reports sent, including the startup report.",
		}),
	}
	r.reg.MustRegister(
		r.utilization, r.threshold, r.alertActive,
		r.checks, r.sampleErrors, r.notifications, r.dailyReports,
	)
	return r
}

// SetThresholds publishes the configured limits.
func (r *Recorder) SetThresholds(t alerts.Thresholds) {
	if r == nil {
		return
	}
	for _, k := range resource.Kinds {
		r.threshold.WithLabelValues(k.String()).Set(t.For(k))
	}
}

// ObserveSample publishes a sample and counts any per-metric read failures
// found in err.
func (r *Recorder) ObserveSample(s resource.Sample, err error) {
	if r == nil {
		return
	}
	for _, k := range resource.Kinds {
		r.utilization.WithLabelValues(k.String()).Set(s.Value(k))
	}
	for _, k := range failedKinds(err) {
		r.sampleErrors.WithLabelValues(k.String()).Inc()
	}
}

// ObserveState publishes which alerts are latched.
func (r *Recorder) ObserveState(st alerts.State) {
	if r == nil {
		return
	}
	for _, k := range resource.Kinds {
		v := 0.0
		if st.Notified(k) {
			v = 1
		}
		r.alertActive.WithLabelValues(k.String()).Set(v)
	}
}

// CheckDone counts one threshold check.
func (r *Recorder) CheckDone() {
	if r == nil {
		return
	}
	r.checks.Inc()
}

// ReportSent counts one summary report.
func (r *Recorder) ReportSent() {
	if r == nil {
		return
	}
	r.dailyReports.Inc()
}

// ObserveDelivery counts a notification attempt.
func (r *Recorder) ObserveDelivery(level notify.Level, err error) {
	if r == nil {
		return
	}
	r.notifications.WithLabelValues(level.String(), outcome(err)).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (r *Recorder) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("metrics: shutdown failed", "err", err)
		}
	}()

	slog.Info("metrics: listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics: serve %s: %w", addr, err)
	}
	return nil
}

func outcome(err error) string {
	if err == nil {
		return OutcomeDelivered
	}
	var de *notify.DeliveryError
	if errors.As(err, &de) {
		return de.Kind.String()
	}
	return "error"
}

func failedKinds(err error) []resource.Kind {
	var out []resource.Kind
	var walk func(error)
	walk = func(e error) {
		switch e := e.(type) {
		case *resource.UnavailableError:
			out = append(out, e.Kind)
		case interface{ Unwrap() []error }:
			for _, inner := range e.Unwrap() {
				walk(inner)
			}
		}
	}
	if err != nil {
		walk(err)
	}
	return out
}
