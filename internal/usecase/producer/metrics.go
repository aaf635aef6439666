package producer

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for producer monitoring
var (
	// producerRunsTotal tracks producer executions by result
	producerRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "producer_runs_total",
			Help: "Total number of producer runs",
		},
		[]string{"producer", "status"}, // status: success|failure
	)

	// producerCandidatesTotal tracks candidates each producer emitted
	producerCandidatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "producer_candidates_total",
			Help: "Total number of candidate notifications produced",
		},
		[]string{"producer"},
	)

	// producerRunDuration tracks producer run duration
	producerRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "producer_run_duration_seconds",
			Help:    "Producer run duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300},
		},
		[]string{"producer"},
	)
)

// RecordRun records one producer execution.
func RecordRun(producer, status string, candidates int, d time.Duration) {
	producerRunsTotal.WithLabelValues(producer, status).Inc()
	producerCandidatesTotal.WithLabelValues(producer).Add(float64(candidates))
	producerRunDuration.WithLabelValues(producer).Observe(d.Seconds())
}
