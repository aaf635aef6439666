package retryer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for retry scheduler monitoring
var (
	// retryRunsTotal tracks scheduler scan executions
	retryRunsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "retry_runs_total",
			Help: "Total number of retry scheduler runs",
		},
	)

	// retryAttemptsTotal tracks retry attempts by result
	retryAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retry_attempts_total",
			Help: "Total number of retry attempts by result",
		},
		[]string{"channel", "result"}, // result: sent|failed
	)

	// retryExhaustedTotal tracks records that used their whole retry budget
	retryExhaustedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retry_exhausted_total",
			Help: "Total number of notifications that exhausted their retries",
		},
		[]string{"channel"},
	)

	// retryBatchSize tracks how many eligible records each scan found
	retryBatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "retry_batch_size",
			Help:    "Number of eligible records found per scheduler run",
			Buckets: []float64{0, 1, 5, 10, 25, 50},
		},
	)
)

// RecordRun records one scheduler scan with its eligible-batch size.
func RecordRun(batchSize int) {
	retryRunsTotal.Inc()
	retryBatchSize.Observe(float64(batchSize))
}

// RecordAttempt records one retry attempt result.
func RecordAttempt(channel, result string) {
	retryAttemptsTotal.WithLabelValues(channel, result).Inc()
}

// RecordExhausted records a notification running out of retries.
func RecordExhausted(channel string) {
	retryExhaustedTotal.WithLabelValues(channel).Inc()
}
