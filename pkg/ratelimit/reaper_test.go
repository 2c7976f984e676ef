package ratelimit

import (
	"context"
	"testing"
	"time"

	"bulwark-hq/ceres/pkg/ratelimit/store"
)

func TestReaperReap(t *testing.T) {
	st := store.NewMemoryStore()
	defer st.Close()

	registry, err := NewRegistry([]ClassConfig{
		{Name: "api", MaxRequests: 10, Window: time.Minute},
	})
	if err != nil {
		t.Fatalf("failed to build registry: %v", err)
	}

	ctx := context.Background()
	now := time.Now()

	// Horizon is window plus grace period; one counter sits well past it.
	stale := store.CounterKey{Identifier: "user:1", Endpoint: "/old", Class: "api"}
	live := store.CounterKey{Identifier: "user:1", Endpoint: "/live", Class: "api"}

	if _, err := st.Increment(ctx, stale, 10, time.Minute, now.Add(-time.Hour)); err != nil {
		t.Fatalf("Increment failed: %v", err)
	}
	if _, err := st.Increment(ctx, live, 10, time.Minute, now); err != nil {
		t.Fatalf("Increment failed: %v", err)
	}

	reaper := NewReaper(st, registry, nil, ReaperConfig{
		Schedule:    "*/10 * * * *",
		GracePeriod: 5 * time.Minute,
	})

	deleted, err := reaper.Reap(ctx)
	if err != nil {
		t.Fatalf("Reap failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("expected 1 deleted, got %d", deleted)
	}
	if st.Len() != 1 {
		t.Errorf("expected 1 counter remaining, got %d", st.Len())
	}
}

func TestReaperStartStop(t *testing.T) {
	st := store.NewMemoryStore()
	defer st.Close()

	registry, err := NewRegistry(DefaultClasses())
	if err != nil {
		t.Fatalf("failed to build registry: %v", err)
	}

	reaper := NewReaper(st, registry, nil, ReaperConfig{Schedule: "*/10 * * * *"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := reaper.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !reaper.IsRunning() {
		t.Error("expected reaper to be running")
	}

	reaper.Stop()
	if reaper.IsRunning() {
		t.Error("expected reaper to be stopped")
	}
}

func TestReaperInvalidSchedule(t *testing.T) {
	st := store.NewMemoryStore()
	defer st.Close()

	registry, err := NewRegistry(DefaultClasses())
	if err != nil {
		t.Fatalf("failed to build registry: %v", err)
	}

	reaper := NewReaper(st, registry, nil, ReaperConfig{Schedule: "not a schedule"})
	if err := reaper.Start(context.Background()); err == nil {
		t.Fatal("expected error for invalid schedule")
	}
}

func TestReaperEmptyScheduleNoop(t *testing.T) {
	st := store.NewMemoryStore()
	defer st.Close()

	registry, err := NewRegistry(DefaultClasses())
	if err != nil {
		t.Fatalf("failed to build registry: %v", err)
	}

	reaper := NewReaper(st, registry, nil, ReaperConfig{})
	if err := reaper.Start(context.Background()); err != nil {
		t.Fatalf("Start with empty schedule should be a no-op: %v", err)
	}
	if reaper.IsRunning() {
		t.Error("reaper without a schedule must not run")
	}
}
