// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_sent_total",
			Help: "Total number of notification emails accepted by the provider",
		},
		[]string{"provider"},
	)

	NotificationsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_failed_total",
			Help: "Total number of notifications that ended a pass unsent or unmarked",
		},
		[]string{"provider", "reason"},
	)

	SendRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_send_retries_total",
			Help: "Total number of send retries by failure kind",
		},
		[]string{"provider", "kind"},
	)

	PassDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "notification_dispatch_pass_duration_seconds",
			Help:    "Duration of one dispatch pass in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
	)

	PendingNotifications = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "notifications_pending",
			Help: "Pending notifications seen at the start of the last pass",
		},
	)

	SchedulerErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notification_scheduler_errors_total",
			Help: "Total number of failed or panicked dispatch passes",
		},
	)
)
