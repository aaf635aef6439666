package metrics

import (
	"time"
)

// UpdateNotificationCounts refreshes the per-status record gauges.
// Counts come from a periodic CountByStatus query, so statuses with zero
// records may be absent; explicitly reset known statuses before calling if
// stale values matter.
func UpdateNotificationCounts(counts map[string]int) {
	for status, count := range counts {
		NotificationsByStatus.WithLabelValues(status).Set(float64(count))
	}
}

// UpdateRecipientsTotal updates the active recipient gauge.
// This gauge should be updated periodically to reflect the current state.
func UpdateRecipientsTotal(count int) {
	RecipientsTotal.Set(float64(count))
}

// UpdateRetryBacklog updates the gauge of failed records awaiting retry.
func UpdateRetryBacklog(count int) {
	RetryBacklog.Set(float64(count))
}

// RecordProviderSend records the duration of one provider send call.
func RecordProviderSend(provider string, duration time.Duration) {
	ProviderSendDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordProviderError records a provider call failure.
// errorType should be a coarse class like "rate_limited", "client_error",
// "server_error" or "timeout" so cardinality stays bounded.
func RecordProviderError(provider, errorType string) {
	ProviderErrors.WithLabelValues(provider, errorType).Inc()
}

// RecordWebhookReceipt records one delivery receipt webhook.
// Result is "applied" when the receipt advanced a record, "ignored" when it
// was a duplicate or referenced an unknown message, "rejected" when
// authentication or parsing failed.
func RecordWebhookReceipt(provider, result string) {
	WebhookReceiptsTotal.WithLabelValues(provider, result).Inc()
}

// RecordDBQuery records the duration of a database query operation.
// Operation should describe the query type (e.g., "select_notifications",
// "insert_notification").
func RecordDBQuery(operation string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// UpdateDBConnectionStats updates database connection pool statistics.
func UpdateDBConnectionStats(active, idle int) {
	DBConnectionsActive.Set(float64(active))
	DBConnectionsIdle.Set(float64(idle))
}
