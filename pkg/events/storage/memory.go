package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"bulwark-hq/ceres/pkg/events"
)

// MemoryStorage implements events.Storage using in-process storage.
// All events are lost when the process exits; intended for tests and
// offline environments.
//
// MemoryStorage is thread-safe and supports concurrent appends.
type MemoryStorage struct {
	mu     sync.RWMutex
	events []*events.Event
}

// NewMemoryStorage creates a new in-memory event log backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

// Append persists one admission event.
func (m *MemoryStorage) Append(ctx context.Context, event *events.Event) error {
	if event == nil {
		return events.NewStorageError("memory", "append", fmt.Errorf("event cannot be nil"))
	}
	if event.ID == "" {
		return events.NewStorageError("memory", "append", fmt.Errorf("event id cannot be empty"))
	}

	// Copy so later caller mutation cannot corrupt the log.
	stored := *event

	m.mu.Lock()
	m.events = append(m.events, &stored)
	m.mu.Unlock()

	return nil
}

// Query retrieves events matching the query filters, newest first.
func (m *MemoryStorage) Query(ctx context.Context, query *events.Query) ([]*events.Event, error) {
	m.mu.RLock()
	matched := m.match(query)
	m.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	offset := query.Offset
	if offset > len(matched) {
		offset = len(matched)
	}
	matched = matched[offset:]

	limit := 100
	if query.Limit > 0 {
		limit = query.Limit
	}
	if limit < len(matched) {
		matched = matched[:limit]
	}

	results := make([]*events.Event, len(matched))
	for i, e := range matched {
		copied := *e
		results[i] = &copied
	}
	return results, nil
}

// Count returns the number of events matching the query filters.
func (m *MemoryStorage) Count(ctx context.Context, query *events.Query) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return int64(len(m.match(query))), nil
}

// Delete removes events matching the query filters.
func (m *MemoryStorage) Delete(ctx context.Context, query *events.Query) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.events[:0]
	var deleted int64
	for _, e := range m.events {
		if matchesQuery(e, query) {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	m.events = kept

	return deleted, nil
}

// Close releases resources. No-op for MemoryStorage.
func (m *MemoryStorage) Close() error {
	return nil
}

// match returns the events matching query. Caller must hold at least a
// read lock.
func (m *MemoryStorage) match(query *events.Query) []*events.Event {
	var matched []*events.Event
	for _, e := range m.events {
		if matchesQuery(e, query) {
			matched = append(matched, e)
		}
	}
	return matched
}

// matchesQuery reports whether an event passes all query filters.
func matchesQuery(e *events.Event, q *events.Query) bool {
	if q == nil {
		return true
	}
	if q.StartTime != nil && e.CreatedAt.Before(*q.StartTime) {
		return false
	}
	if q.EndTime != nil && e.CreatedAt.After(*q.EndTime) {
		return false
	}
	if q.Identifier != "" && e.Identifier != q.Identifier {
		return false
	}
	if q.Endpoint != "" && e.Endpoint != q.Endpoint {
		return false
	}
	if q.LimitClass != "" && e.LimitClass != q.LimitClass {
		return false
	}
	if q.Action != "" && e.Action != q.Action {
		return false
	}
	return true
}
