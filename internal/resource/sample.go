package resource

import (
	"fmt"
	"time"
)

// Kind identifies one monitored metric.
type Kind int

const (
	CPU Kind = iota
	Memory
	Disk

	// NumKinds is the number of metric kinds. Arrays indexed by Kind use it
	// as their length so no kind can be missing.
	NumKinds = 3
)

// Kinds lists every metric kind in evaluation order.
var Kinds = [NumKinds]Kind{CPU, Memory, Disk}

func (k Kind) String() string {
	switch k {
	case CPU:
		return "cpu"
	case Memory:
		return "memory"
	case Disk:
		return "disk"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Label is the human-readable name used in notifications.
func (k Kind) Label() string {
	switch k {
	case CPU:
		return "CPU"
	case Memory:
		return "Memory"
	case Disk:
		return "Disk"
	default:
		return k.String()
	}
}

// Sample is a point-in-time reading of all metrics, in percent.
type Sample struct {
	CPU     float64
	Memory  float64
	Disk    float64
	TakenAt time.Time
}

// Value returns the percentage recorded for k.
func (s Sample) Value(k Kind) float64 {
	switch k {
	case CPU:
		return s.CPU
	case Memory:
		return s.Memory
	case Disk:
		return s.Disk
	default:
		return 0
	}
}

// With returns a copy of s with the value for k replaced by v.
func (s Sample) With(k Kind, v float64) Sample {
	switch k {
	case CPU:
		s.CPU = v
	case Memory:
		s.Memory = v
	case Disk:
		s.Disk = v
	}
	return s
}

// String formats the sample as a single status line fragment,
// e.g. "cpu=12.3% memory=45.6% disk=70.1%".
func (s Sample) String() string {
	return fmt.Sprintf("cpu=%.1f%% memory=%.1f%% disk=%.1f%%", s.CPU, s.Memory, s.Disk)
}

func clampPct(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}
