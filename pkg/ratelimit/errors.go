package ratelimit

import "fmt"

// UnknownClassError is returned when a limit class is referenced that does
// not exist in the registry. This is a configuration error: in a correctly
// deployed system it is caught by startup validation and never occurs at
// request time.
type UnknownClassError struct {
	Class string // The unknown limit class name
}

// Error implements the error interface.
func (e *UnknownClassError) Error() string {
	return fmt.Sprintf("unknown limit class %q", e.Class)
}

// NewUnknownClassError creates a new UnknownClassError.
func NewUnknownClassError(class string) *UnknownClassError {
	return &UnknownClassError{Class: class}
}

// EventWriteError is returned when a rate limit event could not be recorded.
// It is non-fatal: event writes are best-effort and never affect the
// admission decision.
type EventWriteError struct {
	Identifier string // Identifier the event was for
	Cause      error  // Underlying error
}

// Error implements the error interface.
func (e *EventWriteError) Error() string {
	return fmt.Sprintf("event write error [identifier=%s]: %v", e.Identifier, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *EventWriteError) Unwrap() error {
	return e.Cause
}

// NewEventWriteError creates a new EventWriteError.
func NewEventWriteError(identifier string, cause error) *EventWriteError {
	return &EventWriteError{Identifier: identifier, Cause: cause}
}
