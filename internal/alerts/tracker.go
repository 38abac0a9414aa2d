package alerts

import (
	"fmt"

	"github.com/obsidianstack/hostwatch/internal/resource"
)

// Default thresholds, in percent.
const (
	DefaultCPUThreshold    = 80.0
	DefaultMemoryThreshold = 80.0
	DefaultDiskThreshold   = 90.0
)

// Thresholds holds the alerting limit for each metric, in percent.
type Thresholds struct {
	CPU    float64 `yaml:"cpu"`
	Memory float64 `yaml:"memory"`
	Disk   float64 `yaml:"disk"`
}

// DefaultThresholds returns the built-in limits.
func DefaultThresholds() Thresholds {
	return Thresholds{
		CPU:    DefaultCPUThreshold,
		Memory: DefaultMemoryThreshold,
		Disk:   DefaultDiskThreshold,
	}
}

// For returns the threshold configured for k.
func (t Thresholds) For(k resource.Kind) float64 {
	switch k {
	case resource.CPU:
		return t.CPU
	case resource.Memory:
		return t.Memory
	case resource.Disk:
		return t.Disk
	default:
		return 0
	}
}

// Validate reports the first threshold outside [0, 100]. NaN is rejected
// because no sample compares at-or-above it.
func (t Thresholds) Validate() error {
	for _, k := range resource.Kinds {
		if v := t.For(k); !(v >= 0 && v <= 100) {
			return fmt.Errorf("%s threshold %.2f out of range [0, 100]", k, v)
		}
	}
	return nil
}

// State records, per metric, whether a warning has been sent and not yet
// cleared. The zero value has every flag cleared.
type State struct {
	notified [resource.NumKinds]bool
}

// Notified reports whether k is currently latched.
func (s State) Notified(k resource.Kind) bool {
	if k < 0 || int(k) >= resource.NumKinds {
		return false
	}
	return s.notified[k]
}

// Active returns the latched kinds in evaluation order.
func (s State) Active() []resource.Kind {
	var out []resource.Kind
	for _, k := range resource.Kinds {
		if s.notified[k] {
			out = append(out, k)
		}
	}
	return out
}

// Fire describes a metric that has just crossed its threshold.
type Fire struct {
	Kind      resource.Kind
	Value     float64
	Threshold float64
}

// Tracker evaluates samples against thresholds.
type Tracker struct {
	// KeepUntilReset stops a sample below the threshold from clearing the
	// metric's flag. The flag is then only cleared by ResetAll, limiting each
	// metric to one warning per daily period. The zero value re-arms a metric
	// as soon as it recovers.
	KeepUntilReset bool
}

// Evaluate applies sample to state and returns the new state together with
// the metrics that fire now, in resource.Kinds order.
func (t Tracker) Evaluate(sample resource.Sample, thr Thresholds, state State) (State, []Fire) {
	var fires []Fire
	for _, k := range resource.Kinds {
		v, limit := sample.Value(k), thr.For(k)
		switch {
		case atOrAbove(v, limit) && !state.notified[k]:
			fires = append(fires, Fire{Kind: k, Value: v, Threshold: limit})
			state.notified[k] = true
		case !atOrAbove(v, limit) && !t.KeepUntilReset:
			state.notified[k] = false
		}
	}
	return state, fires
}

// ResetAll returns a State with every flag cleared.
func (Tracker) ResetAll(State) State {
	return State{}
}

func atOrAbove(v, threshold float64) bool {
	return v >= threshold
}
