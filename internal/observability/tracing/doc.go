// Package tracing provides OpenTelemetry tracing integration.
//
// Features:
//   - Automatic HTTP request tracing via Middleware
//   - W3C Trace Context propagation from incoming requests
//   - Trace ID exposure through the X-Trace-Id response header
//
// Example usage:
//
//	import "adhera-notify/internal/observability/tracing"
//
//	func processReceipt(ctx context.Context) {
//	    ctx, span := tracing.GetTracer().Start(ctx, "apply-receipt")
//	    defer span.End()
//	    // ... apply receipt ...
//	}
package tracing
