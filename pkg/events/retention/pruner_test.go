package retention

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"bulwark-hq/ceres/pkg/events"
	"bulwark-hq/ceres/pkg/events/storage"
)

func seedEvent(t *testing.T, s events.Storage, createdAt time.Time) {
	t.Helper()

	err := s.Append(context.Background(), &events.Event{
		ID:         uuid.New().String(),
		Identifier: "user:1",
		Endpoint:   "/v1/orders",
		LimitClass: "api",
		Action:     events.ActionAllowed,
		CreatedAt:  createdAt,
	})
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}
}

func TestPruneByAge(t *testing.T) {
	s := storage.NewMemoryStorage()
	defer s.Close()

	now := time.Now()
	seedEvent(t, s, now.AddDate(0, 0, -40))
	seedEvent(t, s, now.AddDate(0, 0, -35))
	seedEvent(t, s, now.AddDate(0, 0, -5))
	seedEvent(t, s, now)

	pruner := NewPruner(s, &Config{RetentionDays: 30})

	deleted, err := pruner.Prune(context.Background())
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if deleted != 2 {
		t.Errorf("expected 2 deleted, got %d", deleted)
	}

	count, err := s.Count(context.Background(), &events.Query{})
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 remaining, got %d", count)
	}
}

func TestPruneByCount(t *testing.T) {
	s := storage.NewMemoryStorage()
	defer s.Close()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 10; i++ {
		seedEvent(t, s, base.Add(time.Duration(i)*time.Minute))
	}

	pruner := NewPruner(s, &Config{RetentionDays: 0, MaxEvents: 4})

	deleted, err := pruner.Prune(context.Background())
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if deleted != 6 {
		t.Errorf("expected 6 deleted, got %d", deleted)
	}

	remaining, err := s.Query(context.Background(), &events.Query{})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(remaining) != 4 {
		t.Fatalf("expected 4 remaining, got %d", len(remaining))
	}

	// The survivors are the newest events.
	oldestKept := remaining[len(remaining)-1].CreatedAt
	if oldestKept.Before(base.Add(6 * time.Minute)) {
		t.Errorf("oldest kept event %v should be the seventh seeded event", oldestKept)
	}
}

func TestPruneNothingToDo(t *testing.T) {
	s := storage.NewMemoryStorage()
	defer s.Close()

	seedEvent(t, s, time.Now())

	pruner := NewPruner(s, &Config{RetentionDays: 30, MaxEvents: 100})

	deleted, err := pruner.Prune(context.Background())
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if deleted != 0 {
		t.Errorf("expected 0 deleted, got %d", deleted)
	}
}

func TestPruneDisabledPolicies(t *testing.T) {
	s := storage.NewMemoryStorage()
	defer s.Close()

	seedEvent(t, s, time.Now().AddDate(0, 0, -365))

	// Zero values disable both policies; the old event survives.
	pruner := NewPruner(s, &Config{RetentionDays: 0, MaxEvents: 0})

	deleted, err := pruner.Prune(context.Background())
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if deleted != 0 {
		t.Errorf("expected 0 deleted, got %d", deleted)
	}
}
