// Package resource samples host utilization.
//
// A Sample holds the CPU, memory and disk usage percentages observed at one
// instant. Kind enumerates the three metrics; Kinds lists them in the fixed
// order used everywhere else (evaluation, status lines, reports).
//
// Sampler reads the values through gopsutil:
//   - CPU: cpu.Percent over a one second window. The call blocks for the
//     window so that a momentary spike does not register as sustained load.
//   - Memory: mem.VirtualMemory UsedPercent.
//   - Disk: disk.Usage UsedPercent of the filesystem holding the configured path.
//
// A metric that cannot be read is reported as an *UnavailableError wrapping
// ErrMetricUnavailable. The Sample returned alongside it carries the last good
// value for that metric so callers may continue in a degraded mode.
package resource
