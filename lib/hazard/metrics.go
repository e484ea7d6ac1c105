package hazard

import (
	"fmt"

	"github.com/VictoriaMetrics/metrics"
)

// --------------------------------------------------------------------------
// Prometheus metrics
// --------------------------------------------------------------------------

// Metric names exported per domain. Every series carries a domain="<name>" label.
const (
	metricRetired   = "hzrd_retired_total"
	metricReclaimed = "hzrd_reclaimed_total"
	metricPasses    = "hzrd_reclaim_passes_total"
	metricSkipped   = "hzrd_reclaim_skipped_total"
	metricPending   = "hzrd_pending"
	metricSlots     = "hzrd_slots"
)

// newMetricSet creates a metrics set whose gauges read from stats on every write
func newMetricSet(name string, stats func() Stats) *metrics.Set {
	set := metrics.NewSet()
	label := fmt.Sprintf("{domain=%q}", name)

	gauge := func(metric string, value func(Stats) float64) {
		set.NewGauge(metric+label, func() float64 { return value(stats()) })
	}

	gauge(metricRetired, func(s Stats) float64 { return float64(s.Retired) })
	gauge(metricReclaimed, func(s Stats) float64 { return float64(s.Reclaimed) })
	gauge(metricPasses, func(s Stats) float64 { return float64(s.Passes) })
	gauge(metricSkipped, func(s Stats) float64 { return float64(s.Skipped) })
	gauge(metricPending, func(s Stats) float64 { return float64(s.Pending) })
	gauge(metricSlots, func(s Stats) float64 { return float64(s.Slots) })

	return set
}
