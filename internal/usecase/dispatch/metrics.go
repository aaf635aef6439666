package dispatch

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for dispatch monitoring
var (
	// dispatchResultTotal tracks dispatch outcomes per channel
	dispatchResultTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_result_total",
			Help: "Total number of dispatch calls by outcome",
		},
		[]string{"channel", "result"}, // result: sent|suppressed|skipped|failed
	)

	// dispatchSendDuration tracks provider send duration per channel
	dispatchSendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dispatch_send_duration_seconds",
			Help:    "Provider send duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30},
		},
		[]string{"channel"},
	)

	// dispatchDedupSkippedTotal tracks dedup guard hits per notification type
	dispatchDedupSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_dedup_skipped_total",
			Help: "Total number of dispatches skipped by the dedup guard",
		},
		[]string{"type"},
	)

	// dispatchStaleSubscriptionsTotal tracks push subscriptions deactivated
	// after the provider reported them gone
	dispatchStaleSubscriptionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dispatch_stale_push_subscriptions_total",
			Help: "Total number of push subscriptions deactivated as stale",
		},
	)

	// dispatchActiveSends tracks in-flight provider sends
	dispatchActiveSends = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dispatch_active_sends",
			Help: "Number of in-flight provider sends",
		},
	)
)

// RecordResult records a dispatch outcome for a channel.
func RecordResult(channel string, result ResultKind) {
	dispatchResultTotal.WithLabelValues(channel, string(result)).Inc()
}

// RecordSendDuration records how long a provider send took.
func RecordSendDuration(channel string, d time.Duration) {
	dispatchSendDuration.WithLabelValues(channel).Observe(d.Seconds())
}

// RecordDedupSkip records a dedup guard hit.
func RecordDedupSkip(notificationType string) {
	dispatchDedupSkippedTotal.WithLabelValues(notificationType).Inc()
}

// RecordStaleSubscription records a deactivated push subscription.
func RecordStaleSubscription() {
	dispatchStaleSubscriptionsTotal.Inc()
}

// IncrementActiveSends increments the in-flight send gauge.
func IncrementActiveSends() {
	dispatchActiveSends.Inc()
}

// DecrementActiveSends decrements the in-flight send gauge.
func DecrementActiveSends() {
	dispatchActiveSends.Dec()
}
