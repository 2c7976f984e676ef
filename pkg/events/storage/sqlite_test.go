package storage

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"bulwark-hq/ceres/pkg/events"
)

func newTestSQLiteStorage(t *testing.T) *SQLiteStorage {
	t.Helper()

	config := DefaultSQLiteConfig()
	config.Path = filepath.Join(t.TempDir(), "events.db")

	s, err := NewSQLiteStorage(config)
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStorageAppendAndQuery(t *testing.T) {
	s := newTestSQLiteStorage(t)

	ctx := context.Background()
	now := time.Now()

	event := makeEvent("user:1", "/v1/orders", "api", events.ActionBlocked, now)
	event.RequestCount = 101
	event.MaxRequests = 100
	if err := s.Append(ctx, event); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	results, err := s.Query(ctx, &events.Query{})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 event, got %d", len(results))
	}

	got := results[0]
	if got.ID != event.ID {
		t.Errorf("expected id %q, got %q", event.ID, got.ID)
	}
	if got.Identifier != "user:1" || got.Endpoint != "/v1/orders" || got.LimitClass != "api" {
		t.Errorf("unexpected attribution: %+v", got)
	}
	if got.Action != events.ActionBlocked {
		t.Errorf("expected action blocked, got %q", got.Action)
	}
	if got.RequestCount != 101 || got.MaxRequests != 100 {
		t.Errorf("expected counts 101/100, got %d/%d", got.RequestCount, got.MaxRequests)
	}
}

func TestSQLiteStorageOrderingAndFilters(t *testing.T) {
	s := newTestSQLiteStorage(t)

	ctx := context.Background()
	base := time.Now()

	seed := []*events.Event{
		makeEvent("user:1", "/v1/orders", "api", events.ActionAllowed, base),
		makeEvent("user:1", "/v1/pay", "payment", events.ActionBlocked, base.Add(time.Second)),
		makeEvent("user:2", "/v1/orders", "api", events.ActionBlocked, base.Add(2*time.Second)),
	}
	for _, event := range seed {
		if err := s.Append(ctx, event); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	results, err := s.Query(ctx, &events.Query{})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 events, got %d", len(results))
	}
	if results[0].ID != seed[2].ID {
		t.Error("expected newest event first")
	}

	blocked, err := s.Query(ctx, &events.Query{Action: events.ActionBlocked})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(blocked) != 2 {
		t.Errorf("expected 2 blocked events, got %d", len(blocked))
	}

	count, err := s.Count(ctx, &events.Query{Identifier: "user:1"})
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 2 {
		t.Errorf("expected count 2, got %d", count)
	}
}

func TestSQLiteStorageTimeRange(t *testing.T) {
	s := newTestSQLiteStorage(t)

	ctx := context.Background()
	base := time.Now()

	for i := 0; i < 5; i++ {
		event := makeEvent("user:1", "/v1/orders", "api", events.ActionAllowed, base.Add(time.Duration(i)*time.Minute))
		if err := s.Append(ctx, event); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	start := base.Add(time.Minute)
	end := base.Add(3 * time.Minute)
	results, err := s.Query(ctx, &events.Query{StartTime: &start, EndTime: &end})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(results) != 3 {
		t.Errorf("expected 3 events in range, got %d", len(results))
	}
}

func TestSQLiteStorageDelete(t *testing.T) {
	s := newTestSQLiteStorage(t)

	ctx := context.Background()
	base := time.Now()

	for i := 0; i < 4; i++ {
		event := makeEvent("user:1", "/v1/orders", "api", events.ActionAllowed, base.Add(time.Duration(i)*time.Hour))
		if err := s.Append(ctx, event); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	cutoff := base.Add(90 * time.Minute)
	deleted, err := s.Delete(ctx, &events.Query{EndTime: &cutoff})
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if deleted != 2 {
		t.Errorf("expected 2 deleted, got %d", deleted)
	}

	remaining, err := s.Count(ctx, &events.Query{})
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if remaining != 2 {
		t.Errorf("expected 2 remaining, got %d", remaining)
	}
}

func TestSQLiteStoragePersistence(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "events.db")
	ctx := context.Background()

	config := DefaultSQLiteConfig()
	config.Path = dbPath

	s, err := NewSQLiteStorage(config)
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	event := makeEvent("user:1", "/v1/orders", "api", events.ActionAllowed, time.Now())
	if err := s.Append(ctx, event); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	s2, err := NewSQLiteStorage(config)
	if err != nil {
		t.Fatalf("failed to reopen storage: %v", err)
	}
	defer s2.Close()

	count, err := s2.Count(ctx, &events.Query{})
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 event after reopen, got %d", count)
	}
}

func TestSQLiteStorageConcurrentAppends(t *testing.T) {
	s := newTestSQLiteStorage(t)

	ctx := context.Background()
	now := time.Now()

	const workers = 10
	const perWorker = 10

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				event := makeEvent("user:1", "/v1/orders", "api", events.ActionAllowed, now)
				if err := s.Append(ctx, event); err != nil {
					t.Errorf("Append failed: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	count, err := s.Count(ctx, &events.Query{})
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != workers*perWorker {
		t.Errorf("expected %d events, got %d", workers*perWorker, count)
	}
}

func TestSQLiteStorageRejectsInvalidEvents(t *testing.T) {
	s := newTestSQLiteStorage(t)

	ctx := context.Background()
	if err := s.Append(ctx, nil); err == nil {
		t.Error("expected error for nil event")
	}
	if err := s.Append(ctx, &events.Event{CreatedAt: time.Now()}); err == nil {
		t.Error("expected error for event without id")
	}
}
