// Package metrics exposes the watchdog's current view of the host as
// Prometheus metrics.
//
// Only current values are kept: the last sample per metric, the configured
// thresholds, which alerts are latched, and counters for checks, sampling
// errors, deliveries and daily reports. There is no history.
//
// FetchStatus is the reading side: it scrapes a running watchdog's /metrics
// and decodes it into a Status for the status command.
package metrics
