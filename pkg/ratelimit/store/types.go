package store

import (
	"context"
	"fmt"
	"time"
)

// CounterKey uniquely identifies one counter record.
type CounterKey struct {
	// Identifier is the resolved, namespaced caller identity.
	Identifier string

	// Endpoint is the protected endpoint path.
	Endpoint string

	// Class is the limit class name.
	Class string
}

// CounterState is the counter record state after an Increment.
type CounterState struct {
	// RequestCount is the number of requests counted in the current
	// window, including the one just recorded.
	RequestCount uint64

	// MaxRequests is the quota snapshot taken when the record was
	// created or its window last reset. Registry changes do not alter
	// it until the window resets.
	MaxRequests uint64

	// WindowStart is when the current window began.
	WindowStart time.Time
}

// Store is the interface for durable counter storage.
// Implementations must be safe for concurrent use from multiple goroutines
// and, for shared backends, from multiple processes.
type Store interface {
	// Increment performs the atomic upsert-and-increment for the given
	// key: if no record exists, one is created with count 1 and window
	// start now; if the record's window is still open, the count is
	// incremented in place; if now - windowStart >= window, the record
	// resets to count 1 and window start now, discarding the stale
	// count. The whole operation is a single indivisible
	// read-modify-write executed by the store.
	//
	// max is the quota snapshot applied on record creation or window
	// reset. Failures are reported as *UnavailableError.
	Increment(ctx context.Context, key CounterKey, max uint64, window time.Duration, now time.Time) (CounterState, error)

	// Cleanup purges counter records whose window started before
	// olderThan. Records past the longest configured window carry no
	// further meaning. Returns the number of records deleted.
	Cleanup(ctx context.Context, olderThan time.Time) (int, error)

	// Close releases any resources held by the store.
	Close() error
}

// UnavailableError reports that the backing store is unreachable, timed out,
// or otherwise failed. The engine converts it into a fail-open allow
// decision; it is never surfaced to the caller as an error.
type UnavailableError struct {
	Backend   string // Store backend type ("sqlite", "memory")
	Operation string // Operation that failed ("increment", "cleanup")
	Cause     error  // Underlying error
}

// Error implements the error interface.
func (e *UnavailableError) Error() string {
	return fmt.Sprintf("rate limit store unavailable [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *UnavailableError) Unwrap() error {
	return e.Cause
}

// NewUnavailableError creates a new UnavailableError.
func NewUnavailableError(backend, operation string, cause error) *UnavailableError {
	return &UnavailableError{
		Backend:   backend,
		Operation: operation,
		Cause:     cause,
	}
}
