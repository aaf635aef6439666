package entity

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain layer operations.
var (
	// ErrNotFound indicates that a requested entity was not found
	ErrNotFound = errors.New("entity not found")

	// ErrInvalidInput indicates that the provided input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnknownChannel indicates a dispatch request named a channel the
	// engine is not configured for. This is a configuration error: fatal to
	// the call, no record is created.
	ErrUnknownChannel = errors.New("unknown channel")

	// ErrInvalidTransition indicates an attempt to move a record backwards
	// through the delivery state machine.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// ValidationError represents a validation error with detailed field information.
// It implements the error interface and provides context about which field failed validation.
type ValidationError struct {
	Field   string
	Message string
}

// Error returns a formatted error message for the validation error.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}
