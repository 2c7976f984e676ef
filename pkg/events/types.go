package events

import (
	"context"
	"io"
	"time"
)

// Action is the admission decision recorded on an event.
type Action string

const (
	// ActionAllowed records a request that was admitted.
	ActionAllowed Action = "allowed"

	// ActionBlocked records a request that was denied.
	ActionBlocked Action = "blocked"
)

// Event is one append-only record of an admission decision.
type Event struct {
	// ID is a UUID v4 assigned at record time.
	ID string `json:"id"`

	// Identifier is the resolved, namespaced caller identity.
	Identifier string `json:"identifier"`

	// Endpoint is the protected endpoint path.
	Endpoint string `json:"endpoint"`

	// LimitClass is the limit class the decision was made under.
	LimitClass string `json:"limit_class"`

	// Action is "allowed" or "blocked".
	Action Action `json:"action"`

	// RequestCount is the window counter value at decision time.
	RequestCount uint64 `json:"request_count"`

	// MaxRequests is the quota snapshot the decision was made against.
	MaxRequests uint64 `json:"max_requests"`

	// CreatedAt is when the decision was made.
	CreatedAt time.Time `json:"created_at"`
}

// Query defines filter parameters for querying admission events.
type Query struct {
	// Time range (inclusive)
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`

	// Filters
	Identifier string `json:"identifier,omitempty"`
	Endpoint   string `json:"endpoint,omitempty"`
	LimitClass string `json:"limit_class,omitempty"`
	Action     Action `json:"action,omitempty"`

	// Pagination
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// Storage defines the interface for event storage backends.
// Implementations must be thread-safe and support concurrent appends.
type Storage interface {
	// Append persists an admission event.
	Append(ctx context.Context, event *Event) error

	// Query retrieves events matching the query filters, newest first.
	// Returns an empty slice if no events match.
	Query(ctx context.Context, query *Query) ([]*Event, error)

	// Count returns the number of events matching the query filters.
	Count(ctx context.Context, query *Query) (int64, error)

	// Delete removes events matching the query filters and returns the
	// number removed. Used for retention policy enforcement only; the
	// engine never deletes events.
	Delete(ctx context.Context, query *Query) (int64, error)

	// Close releases any resources held by the storage backend.
	Close() error
}

// Exporter defines the interface for exporting events to various formats.
type Exporter interface {
	// Export writes events to the provided writer in the exporter's format.
	Export(ctx context.Context, events []*Event, w io.Writer) error
}
