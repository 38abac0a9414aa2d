// Package alerts implements edge-triggered threshold tracking for host
// metrics.
//
// Tracker.Evaluate compares a resource.Sample against Thresholds and a State
// and returns the updated State plus a Fire for every metric that crossed
// from below its threshold to at-or-above it. A metric that stays above its
// threshold does not fire again until its flag is cleared, either by
// recovery (value drops below threshold, unless KeepUntilReset is set) or by
// ResetAll at the daily report.
//
// State is a plain value. Evaluate and ResetAll never mutate their input;
// the caller keeps the single live copy.
package alerts
