package resource

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
)

// DefaultCPUWindow is how long a CPU reading averages over.
const DefaultCPUWindow = time.Second

// ErrMetricUnavailable is matched by every sampling failure.
var ErrMetricUnavailable = errors.New("metric unavailable")

// UnavailableError reports which metric could not be read.
type UnavailableError struct {
	Kind Kind
	Path string // set for Disk
	Err  error
}

func (e *UnavailableError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s %q: %v", e.Kind, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *UnavailableError) Unwrap() []error {
	return []error{ErrMetricUnavailable, e.Err}
}

// readers is the set of host probes. Swapped out in tests.
type readers struct {
	cpu  func(ctx context.Context, window time.Duration) (float64, error)
	mem  func(ctx context.Context) (float64, error)
	disk func(ctx context.Context, path string) (float64, error)
}

var hostReaders = readers{
	cpu: func(ctx context.Context, window time.Duration) (float64, error) {
		pcts, err := cpu.PercentWithContext(ctx, window, false)
		if err != nil {
			return 0, err
		}
		if len(pcts) == 0 {
			return 0, errors.New("no cpu data")
		}
		return pcts[0], nil
	},
	mem: func(ctx context.Context) (float64, error) {
		vm, err := mem.VirtualMemoryWithContext(ctx)
		if err != nil {
			return 0, err
		}
		return vm.UsedPercent, nil
	},
	disk: func(ctx context.Context, path string) (float64, error) {
		usage, err := disk.UsageWithContext(ctx, path)
		if err != nil {
			return 0, err
		}
		return usage.UsedPercent, nil
	},
}

// Sampler reads CPU, memory and disk utilization for one host.
//
// Sampler is not safe for concurrent use; it remembers the last good value of
// each metric to fill gaps when a read fails.
type Sampler struct {
	diskPath  string
	cpuWindow time.Duration
	read      readers

	last    Sample
	hasLast [NumKinds]bool
}

// NewSampler returns a Sampler for the filesystem holding diskPath.
// It fails with ErrMetricUnavailable if diskPath does not exist or its
// filesystem cannot be queried.
func NewSampler(ctx context.Context, diskPath string) (*Sampler, error) {
	return newSampler(ctx, diskPath, hostReaders)
}

func newSampler(ctx context.Context, diskPath string, r readers) (*Sampler, error) {
	if _, err := os.Stat(diskPath); err != nil {
		return nil, &UnavailableError{Kind: Disk, Path: diskPath, Err: err}
	}
	if _, err := r.disk(ctx, diskPath); err != nil {
		return nil, &UnavailableError{Kind: Disk, Path: diskPath, Err: err}
	}
	return &Sampler{
		diskPath:  diskPath,
		cpuWindow: DefaultCPUWindow,
		read:      r,
	}, nil
}

// DiskPath returns the monitored path.
func (s *Sampler) DiskPath() string { return s.diskPath }

// Sample reads all three metrics. It blocks for the CPU window.
//
// If ctx is cancelled the context error is returned. Otherwise each metric
// that fails contributes an *UnavailableError to the joined error, and the
// returned Sample holds the previous good value for it (zero if none).
func (s *Sampler) Sample(ctx context.Context) (Sample, error) {
	out := s.last
	out.TakenAt = time.Now()

	var errs []error
	for _, k := range Kinds {
		v, err := s.readOne(ctx, k)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Sample{}, ctxErr
		}
		if err != nil {
			uerr := &UnavailableError{Kind: k, Err: err}
			if k == Disk {
				uerr.Path = s.diskPath
			}
			slog.Warn("resource: sample failed", "metric", k.String(), "reused_previous", s.hasLast[k], "err", err)
			errs = append(errs, uerr)
			continue
		}
		out = out.With(k, clampPct(v))
		s.hasLast[k] = true
	}

	s.last = out
	return out, errors.Join(errs...)
}

func (s *Sampler) readOne(ctx context.Context, k Kind) (float64, error) {
	switch k {
	case CPU:
		return s.read.cpu(ctx, s.cpuWindow)
	case Memory:
		return s.read.mem(ctx)
	case Disk:
		return s.read.disk(ctx, s.diskPath)
	default:
		return 0, fmt.Errorf("unknown metric %d", int(k))
	}
}

// Hostname identifies this host in notifications. It prefers the name
// reported by gopsutil and falls back to os.Hostname.
func Hostname(ctx context.Context) string {
	if info, err := host.InfoWithContext(ctx); err == nil && info.Hostname != "" {
		return info.Hostname
	}
	if name, err := os.Hostname(); err == nil && name != "" {
		return name
	}
	return "unknown"
}
