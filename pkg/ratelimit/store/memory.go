package store

import (
	"context"
	"sync"
	"time"
)

// MemoryStore implements Store using in-process storage.
// It provides the same window semantics as the durable backends but no
// persistence and no cross-process sharing; it is intended for tests and
// offline environments where the subsystem runs in a single process.
//
// MemoryStore is thread-safe: the mutex serializes increments exactly the
// way the durable store's server-side upsert does.
type MemoryStore struct {
	mu       sync.Mutex
	counters map[CounterKey]*memoryCounter
}

// memoryCounter is one in-process counter record.
type memoryCounter struct {
	requestCount  uint64
	maxRequests   uint64
	windowStart   time.Time
	lastRequestAt time.Time
}

// NewMemoryStore creates a new in-process counter store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		counters: make(map[CounterKey]*memoryCounter),
	}
}

// Increment performs the atomic upsert-and-increment for the given key.
func (m *MemoryStore) Increment(ctx context.Context, key CounterKey, max uint64, window time.Duration, now time.Time) (CounterState, error) {
	if err := ctx.Err(); err != nil {
		return CounterState{}, NewUnavailableError("memory", "increment", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.counters[key]
	switch {
	case !ok:
		c = &memoryCounter{
			requestCount: 1,
			maxRequests:  max,
			windowStart:  now,
		}
		m.counters[key] = c
	case now.Sub(c.windowStart) >= window:
		// Fresh window: discard the stale count, re-snapshot the quota.
		c.requestCount = 1
		c.maxRequests = max
		c.windowStart = now
	default:
		c.requestCount++
	}
	c.lastRequestAt = now

	return CounterState{
		RequestCount: c.requestCount,
		MaxRequests:  c.maxRequests,
		WindowStart:  c.windowStart,
	}, nil
}

// Cleanup purges counter records whose window started before olderThan.
func (m *MemoryStore) Cleanup(ctx context.Context, olderThan time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	deleted := 0
	for key, c := range m.counters {
		if c.windowStart.Before(olderThan) {
			delete(m.counters, key)
			deleted++
		}
	}
	return deleted, nil
}

// Close releases any resources held by the store. No-op for MemoryStore.
func (m *MemoryStore) Close() error {
	return nil
}

// Len returns the number of counter records currently held.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.counters)
}
