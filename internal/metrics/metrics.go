// Package metrics defines Prometheus collectors for the monitoring daemon.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	CollectionCyclesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vigil_collection_cycles_total",
			Help: "Total completed data collection cycles",
		},
	)

	CollectionFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vigil_collection_failures_total",
			Help: "Total failed data collection attempts",
		},
	)

	CycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vigil_cycle_duration_seconds",
			Help:    "Data collection cycle duration in seconds",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)

	ActiveUsageSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "vigil_active_usage_sessions",
			Help: "Usage sessions currently active per the latest snapshot",
		},
	)

	ActivitySessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "vigil_activity_sessions",
			Help: "Consolidated activity sessions currently tracked",
		},
	)

	NotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vigil_notifications_total",
			Help: "Notifications sent by kind",
		},
		[]string{"kind"},
	)
)

// Register registers all collectors with the default registry.
func Register() {
	prometheus.MustRegister(
		CollectionCyclesTotal,
		CollectionFailuresTotal,
		CycleDuration,
		ActiveUsageSessions,
		ActivitySessions,
		NotificationsTotal,
	)
}
