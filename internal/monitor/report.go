package monitor

import (
	"fmt"
	"strings"

	"github.com/obsidianstack/hostwatch/internal/alerts"
	"github.com/obsidianstack/hostwatch/internal/resource"
)

// summaryBody renders the daily (or startup) report.
func summaryBody(s resource.Sample, diskPath string, startup bool) string {
	var b strings.Builder
	if startup {
		b.WriteString("Monitoring started. Current server status:\n")
	} else {
		b.WriteString("Daily server status summary:\n")
	}
	for _, k := range resource.Kinds {
		fmt.Fprintf(&b, "- %s: %.1f%%\n", metricName(k, diskPath), s.Value(k))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// warningBody renders a threshold crossing.
func warningBody(f alerts.Fire, diskPath string) string {
	return fmt.Sprintf("%s usage is %.1f%%, at or above the %.1f%% threshold.",
		metricName(f.Kind, diskPath), f.Value, f.Threshold)
}

func metricName(k resource.Kind, diskPath string) string {
	if k == resource.Disk && diskPath != "" {
		return fmt.Sprintf("Disk (%s)", diskPath)
	}
	return k.Label()
}
