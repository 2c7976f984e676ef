package recorder

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"bulwark-hq/ceres/pkg/events"
	"bulwark-hq/ceres/pkg/events/storage"
)

// blockingStorage wraps MemoryStorage and holds every Append until released.
type blockingStorage struct {
	*storage.MemoryStorage
	release chan struct{}
	once    sync.Once
}

func newBlockingStorage() *blockingStorage {
	return &blockingStorage{
		MemoryStorage: storage.NewMemoryStorage(),
		release:       make(chan struct{}),
	}
}

func (b *blockingStorage) Append(ctx context.Context, event *events.Event) error {
	select {
	case <-b.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	return b.MemoryStorage.Append(ctx, event)
}

func (b *blockingStorage) unblock() {
	b.once.Do(func() { close(b.release) })
}

func waitForCount(t *testing.T, s events.Storage, want int64) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		count, err := s.Count(context.Background(), &events.Query{})
		if err != nil {
			t.Fatalf("Count failed: %v", err)
		}
		if count == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d events", want)
}

func TestRecorderWritesAsync(t *testing.T) {
	s := storage.NewMemoryStorage()
	r := NewRecorder(s, nil)
	defer r.Close()

	event := &events.Event{
		Identifier: "user:1",
		Endpoint:   "/v1/orders",
		LimitClass: "api",
		Action:     events.ActionAllowed,
	}
	if err := r.Record(context.Background(), event); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	if event.ID == "" {
		t.Error("Record must assign an id")
	}
	if event.CreatedAt.IsZero() {
		t.Error("Record must assign a timestamp")
	}

	waitForCount(t, s, 1)

	results, err := s.Query(context.Background(), &events.Query{})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if results[0].Identifier != "user:1" {
		t.Errorf("unexpected stored event: %+v", results[0])
	}
}

func TestRecorderKeepsExistingID(t *testing.T) {
	s := storage.NewMemoryStorage()
	r := NewRecorder(s, nil)
	defer r.Close()

	event := &events.Event{ID: "preset-id", Identifier: "user:1"}
	if err := r.Record(context.Background(), event); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if event.ID != "preset-id" {
		t.Errorf("existing id overwritten: %q", event.ID)
	}
}

func TestRecorderDisabled(t *testing.T) {
	s := storage.NewMemoryStorage()
	r := NewRecorder(s, &Config{Enabled: false})
	defer r.Close()

	if err := r.Record(context.Background(), &events.Event{Identifier: "user:1"}); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	time.Sleep(20 * time.Millisecond)
	count, err := s.Count(context.Background(), &events.Query{})
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 0 {
		t.Errorf("disabled recorder wrote %d events", count)
	}
}

func TestRecorderDropsWhenBufferFull(t *testing.T) {
	s := newBlockingStorage()
	defer s.unblock()

	r := NewRecorder(s, &Config{Enabled: true, Buffer: 1, WriteTimeout: time.Second})
	defer r.Close()

	// First record occupies the worker, second fills the buffer. Records
	// past that must drop without blocking.
	ctx := context.Background()
	var dropped bool
	for i := 0; i < 10; i++ {
		err := r.Record(ctx, &events.Event{Identifier: "user:1"})
		if err == nil {
			continue
		}
		var recErr *events.RecorderError
		if !errors.As(err, &recErr) {
			t.Fatalf("expected *RecorderError, got %T", err)
		}
		dropped = true
		break
	}
	if !dropped {
		t.Fatal("expected at least one dropped event with a full buffer")
	}
}

func TestRecorderCloseDrains(t *testing.T) {
	s := storage.NewMemoryStorage()
	r := NewRecorder(s, &Config{Enabled: true, Buffer: 100, WriteTimeout: time.Second})

	ctx := context.Background()
	for i := 0; i < 50; i++ {
		if err := r.Record(ctx, &events.Event{Identifier: "user:1"}); err != nil {
			t.Fatalf("Record %d failed: %v", i, err)
		}
	}

	if err := r.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	count, err := s.Count(ctx, &events.Query{})
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 50 {
		t.Errorf("expected 50 events after drain, got %d", count)
	}
}

func TestRecorderRecordAfterClose(t *testing.T) {
	s := storage.NewMemoryStorage()
	r := NewRecorder(s, nil)

	if err := r.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}

	err := r.Record(context.Background(), &events.Event{Identifier: "user:1"})
	if err == nil {
		t.Fatal("expected error recording after close")
	}
	var recErr *events.RecorderError
	if !errors.As(err, &recErr) {
		t.Fatalf("expected *RecorderError, got %T", err)
	}
}
