package worker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"adhera-notify/internal/pkg/config"
)

// WorkerMetrics provides Prometheus metrics for the worker component.
// It embeds the standard ConfigMetrics for configuration monitoring and adds
// metrics for cron job execution tracking.
//
// Embedded metrics (from ConfigMetrics):
//   - worker_config_load_timestamp: Unix timestamp of last configuration load
//   - worker_config_validation_errors_total: Total validation errors by field
//   - worker_config_fallbacks_total: Total fallback operations by field
//   - worker_config_fallback_active: 1 if any fallback active, 0 otherwise
//
// Worker-specific metrics:
//   - worker_cron_job_runs_total: Total cron job runs by job and status
//   - worker_cron_job_duration_seconds: Duration histogram per job
//   - worker_notifications_dispatched_total: Notifications handed to the dispatcher
//   - worker_cron_job_last_success_timestamp: Unix timestamp of last success per job
type WorkerMetrics struct {
	*config.ConfigMetrics

	// CronJobRunsTotal counts cron job runs by job name and status
	// (success/failure).
	CronJobRunsTotal *prometheus.CounterVec

	// CronJobDurationSeconds measures job execution duration per job.
	CronJobDurationSeconds *prometheus.HistogramVec

	// NotificationsDispatchedTotal counts notifications the worker handed to
	// the dispatcher across producer runs and retry sweeps.
	NotificationsDispatchedTotal prometheus.Counter

	// CronJobLastSuccessTimestamp records the Unix timestamp of the last
	// successful run per job.
	CronJobLastSuccessTimestamp *prometheus.GaugeVec
}

// NewWorkerMetrics creates a WorkerMetrics instance with all metrics
// initialized. Registration happens automatically via promauto.
func NewWorkerMetrics() *WorkerMetrics {
	return &WorkerMetrics{
		ConfigMetrics: config.NewConfigMetrics("worker"),

		CronJobRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_cron_job_runs_total",
			Help: "Total number of cron job runs by job and status (success/failure)",
		}, []string{"job", "status"}),

		CronJobDurationSeconds: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "worker_cron_job_duration_seconds",
			Help:    "Duration of cron job execution in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 30, 60, 300}, // 100ms to 5m
		}, []string{"job"}),

		NotificationsDispatchedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "worker_notifications_dispatched_total",
			Help: "Total number of notifications handed to the dispatcher",
		}),

		CronJobLastSuccessTimestamp: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "worker_cron_job_last_success_timestamp",
			Help: "Unix timestamp of the last successful cron job run",
		}, []string{"job"}),
	}
}

// MustRegister is a no-op kept for the conventional initialization pattern;
// metrics are auto-registered via promauto when created in NewWorkerMetrics.
func (m *WorkerMetrics) MustRegister() {
	// No-op: metrics are auto-registered via promauto
}

// RecordJobRun increments the job run counter.
// Status should be either "success" or "failure".
func (m *WorkerMetrics) RecordJobRun(job, status string) {
	m.CronJobRunsTotal.WithLabelValues(job, status).Inc()
}

// RecordJobDuration observes the duration of a cron job execution in seconds.
func (m *WorkerMetrics) RecordJobDuration(job string, seconds float64) {
	m.CronJobDurationSeconds.WithLabelValues(job).Observe(seconds)
}

// RecordNotificationsDispatched adds the number of notifications handed to
// the dispatcher in one run.
func (m *WorkerMetrics) RecordNotificationsDispatched(count int) {
	m.NotificationsDispatchedTotal.Add(float64(count))
}

// RecordLastSuccess records the current time as the job's last successful
// completion.
func (m *WorkerMetrics) RecordLastSuccess(job string) {
	m.CronJobLastSuccessTimestamp.WithLabelValues(job).SetToCurrentTime()
}
