package sender

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/sony/gobreaker"
)

// Common provider error types shared by the HTTP-backed adapters.

// RateLimitError represents a 429 from a provider API.
type RateLimitError struct {
	RetryAfter time.Duration
	Message    string
}

func (e *RateLimitError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s (retry after %v)", e.Message, e.RetryAfter)
	}
	return fmt.Sprintf("rate limit exceeded (retry after %v)", e.RetryAfter)
}

// ClientError represents a non-429 4xx from a provider API.
// These are permanent for the attempted payload.
type ClientError struct {
	StatusCode int
	Message    string
}

func (e *ClientError) Error() string {
	return e.Message
}

// ServerError represents a 5xx from a provider API.
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	return e.Message
}

// classifyStatus turns a non-2xx provider response into a typed error.
func classifyStatus(provider string, statusCode int, body []byte, header http.Header) error {
	switch {
	case statusCode == http.StatusTooManyRequests:
		return &RateLimitError{
			Message:    fmt.Sprintf("%s rate limit exceeded", provider),
			RetryAfter: extractRetryAfter(header),
		}
	case statusCode >= 400 && statusCode < 500:
		return &ClientError{
			StatusCode: statusCode,
			Message:    fmt.Sprintf("%s client error (%d): %s", provider, statusCode, string(body)),
		}
	case statusCode >= 500:
		return &ServerError{
			StatusCode: statusCode,
			Message:    fmt.Sprintf("%s server error (%d): %s", provider, statusCode, string(body)),
		}
	default:
		return fmt.Errorf("%s unexpected status %d: %s", provider, statusCode, string(body))
	}
}

// extractRetryAfter reads the Retry-After header (delta-seconds form).
// Falls back to 5s when absent or unparsable.
func extractRetryAfter(header http.Header) time.Duration {
	const fallback = 5 * time.Second

	raw := header.Get("Retry-After")
	if raw == "" {
		return fallback
	}
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds <= 0 {
		return fallback
	}
	return time.Duration(seconds) * time.Second
}

// outcomeFromError maps a classified send error onto the three-way Outcome.
// Only non-429 4xx responses are permanent; everything else is transient and
// lands back on the retry scheduler.
func outcomeFromError(err error) Outcome {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return Reject(clientErr.Message)
	}

	var rateLimitErr *RateLimitError
	if errors.As(err, &rateLimitErr) {
		return Transient(rateLimitErr.Error())
	}

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return Transient("provider circuit open")
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return Transient("provider request timed out")
	}

	// Server errors, network errors, cancellation.
	return Transient(err.Error())
}
