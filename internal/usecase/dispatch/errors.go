package dispatch

import "errors"

// Sentinel errors for dispatch operations.
var (
	// ErrChannelNotConfigured indicates the requested channel has no enabled
	// sender. This is a deployment configuration error, surfaced to the
	// caller; no record is created.
	ErrChannelNotConfigured = errors.New("channel not configured")

	// ErrShuttingDown indicates the service is draining and no longer accepts
	// new dispatches.
	ErrShuttingDown = errors.New("dispatch service is shutting down")
)
