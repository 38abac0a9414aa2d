package metrics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/obsidianstack/hostwatch/internal/resource"
)

// ErrNotHostwatch is returned by StatusFrom when the exposition carries no
// hostwatch utilization gauges.
var ErrNotHostwatch = errors.New("no hostwatch metrics in exposition")

// MetricStatus is the exported view of one monitored metric.
type MetricStatus struct {
	Utilization float64
	Threshold   float64
	AlertActive bool
}

// Status is what a running watchdog reports on /metrics.
type Status struct {
	Metrics      [resource.NumKinds]MetricStatus
	Checks       float64
	DailyReports float64
}

// Metric returns the status recorded for k.
func (s Status) Metric(k resource.Kind) MetricStatus {
	if k < 0 || int(k) >= resource.NumKinds {
		return MetricStatus{}
	}
	return s.Metrics[k]
}

// FetchStatus scrapes url and decodes the watchdog status from it.
func FetchStatus(ctx context.Context, client *http.Client, url string) (Status, error) {
	mfs, err := Fetch(ctx, client, url)
	if err != nil {
		return Status{}, err
	}
	return StatusFrom(mfs)
}

// Fetch performs a GET against url and parses the text exposition.
func Fetch(ctx context.Context, client *http.Client, url string) (map[string]*dto.MetricFamily, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", string(expfmt.NewFormat(expfmt.TypeTextPlain)))

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return Parse(resp.Body)
}

// Parse decodes Prometheus text exposition into metric families keyed by
// name. Any syntax error fails the whole parse.
func Parse(r io.Reader) (map[string]*dto.MetricFamily, error) {
	var parser expfmt.TextParser
	mfs, err := parser.TextToMetricFamilies(r)
	if err != nil {
		return nil, fmt.Errorf("parse prometheus text: %w", err)
	}
	return mfs, nil
}

// StatusFrom extracts the watchdog status from parsed metric families.
func StatusFrom(mfs map[string]*dto.MetricFamily) (Status, error) {
	util := mfs[namespace+"_utilization_percent"]
	if util == nil {
		return Status{}, ErrNotHostwatch
	}

	var st Status
	for _, k := range resource.Kinds {
		label := map[string]string{"metric": k.String()}
		v, ok := Value(util, label)
		if !ok {
			return Status{}, fmt.Errorf("%w: %s utilization missing", ErrNotHostwatch, k)
		}
		thr, _ := Value(mfs[namespace+"_threshold_percent"], label)
		active, _ := Value(mfs[namespace+"_alert_active"], label)
		st.Metrics[k] = MetricStatus{Utilization: v, Threshold: thr, AlertActive: active == 1}
	}
	st.Checks, _ = Value(mfs[namespace+"_checks_total"], nil)
	st.DailyReports, _ = Value(mfs[namespace+"_daily_reports_total"], nil)
	return st, nil
}

// Value returns the value of the sample in mf whose labels include all of
// want. ok is false if no sample matches.
func Value(mf *dto.MetricFamily, want map[string]string) (v float64, ok bool) {
	if mf == nil {
		return 0, false
	}
	for _, m := range mf.GetMetric() {
		if !hasLabels(m, want) {
			continue
		}
		switch {
		case m.Counter != nil:
			return m.Counter.GetValue(), true
		case m.Gauge != nil:
			return m.Gauge.GetValue(), true
		case m.Untyped != nil:
			return m.Untyped.GetValue(), true
		}
	}
	return 0, false
}

func hasLabels(m *dto.Metric, want map[string]string) bool {
	for name, val := range want {
		found := false
		for _, lp := range m.GetLabel() {
			if lp.GetName() == name && lp.GetValue() == val {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
