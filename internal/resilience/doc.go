// Package resilience provides reliability and fault tolerance patterns for the
// notification pipeline. It includes circuit breakers and retry logic used
// around provider sends and record-store access.
//
// The package supports:
//   - Circuit breakers for outbound provider calls (email, SMS/WhatsApp gateway, push)
//   - Retry logic with exponential backoff and jitter
//
// Usage Example:
//
//	cb := circuitbreaker.New(circuitbreaker.ProviderConfig("email"))
//	result, err := cb.Execute(func() (interface{}, error) {
//	    return callProvider()
//	})
//
//	err := retry.WithBackoff(ctx, retry.DBConfig(), func() error {
//	    return performOperation()
//	})
package resilience
