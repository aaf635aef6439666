// Package metrics provides Prometheus metrics registry and recording utilities.
//
// This package centralizes all application metrics including:
//   - HTTP request metrics (duration, count, size)
//   - Business metrics (notification pipeline state, provider calls, receipts)
//   - Database query metrics
//   - Application performance metrics
//
// All metrics are automatically registered with the Prometheus default registry
// and exposed via the /metrics endpoint.
//
// Example usage:
//
//	import "adhera-notify/internal/observability/metrics"
//
//	func sendToProvider(provider string) {
//	    start := time.Now()
//	    // ... call provider API ...
//
//	    metrics.RecordProviderSend(provider, time.Since(start))
//	}
package metrics
