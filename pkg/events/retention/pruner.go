// Package retention enforces retention policies on the admission event log.
package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"bulwark-hq/ceres/pkg/events"
)

// Config contains configuration for the retention pruner.
type Config struct {
	// RetentionDays is the number of days to retain events.
	// 0 means keep events forever (no age-based pruning).
	RetentionDays int

	// PruneSchedule is a cron expression for scheduling pruning.
	// Example: "0 3 * * *" (daily at 3 AM)
	PruneSchedule string

	// MaxEvents is the maximum number of events to keep.
	// 0 means unlimited.
	MaxEvents int64
}

// DefaultConfig returns the default retention configuration.
func DefaultConfig() *Config {
	return &Config{
		RetentionDays: 30,
		PruneSchedule: "0 3 * * *",
		MaxEvents:     0,
	}
}

// Pruner enforces retention policies on the event log. Retention is an
// operational concern of the log's owner; the rate limit engine itself
// never deletes events.
type Pruner struct {
	storage   events.Storage
	config    *Config
	logger    *slog.Logger
	scheduler *Scheduler
}

// NewPruner creates a new retention pruner.
func NewPruner(storage events.Storage, config *Config) *Pruner {
	if config == nil {
		config = DefaultConfig()
	}

	pruner := &Pruner{
		storage: storage,
		config:  config,
		logger:  slog.Default().With("component", "events.retention"),
	}
	pruner.scheduler = NewScheduler(pruner)

	return pruner
}

// Prune deletes events older than the retention period or exceeding the
// max event count.
//
// Pruning happens in two phases:
//  1. Age-based: delete events older than RetentionDays
//  2. Count-based: if total events > MaxEvents, delete oldest
//
// Returns the total number of events deleted.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	var totalDeleted int64

	if p.config.RetentionDays > 0 {
		deleted, err := p.pruneByAge(ctx)
		if err != nil {
			return totalDeleted, fmt.Errorf("prune by age failed: %w", err)
		}
		totalDeleted += deleted
	}

	if p.config.MaxEvents > 0 {
		deleted, err := p.pruneByCount(ctx)
		if err != nil {
			return totalDeleted, fmt.Errorf("prune by count failed: %w", err)
		}
		totalDeleted += deleted
	}

	if totalDeleted > 0 {
		p.logger.Info("event pruning completed",
			"total_deleted", totalDeleted,
			"retention_days", p.config.RetentionDays,
			"max_events", p.config.MaxEvents,
		)
	} else {
		p.logger.Debug("no events pruned")
	}

	return totalDeleted, nil
}

// pruneByAge deletes events older than the retention period.
func (p *Pruner) pruneByAge(ctx context.Context) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -p.config.RetentionDays)

	deleted, err := p.storage.Delete(ctx, &events.Query{EndTime: &cutoff})
	if err != nil {
		return 0, events.NewRetentionError(p.config.RetentionDays, err)
	}

	return deleted, nil
}

// pruneByCount deletes the oldest events if the total exceeds MaxEvents.
func (p *Pruner) pruneByCount(ctx context.Context) (int64, error) {
	count, err := p.storage.Count(ctx, &events.Query{})
	if err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}

	if count <= p.config.MaxEvents {
		return 0, nil
	}

	toDelete := count - p.config.MaxEvents

	// Query is newest-first, so page to the oldest events to find the
	// deletion cutoff.
	oldest, err := p.storage.Query(ctx, &events.Query{
		Limit:  int(toDelete),
		Offset: int(p.config.MaxEvents),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to query oldest events: %w", err)
	}
	if len(oldest) == 0 {
		return 0, nil
	}

	// The first entry of the oldest page is the newest event to delete.
	cutoff := oldest[0].CreatedAt

	deleted, err := p.storage.Delete(ctx, &events.Query{EndTime: &cutoff})
	if err != nil {
		return 0, fmt.Errorf("delete failed: %w", err)
	}

	return deleted, nil
}

// Start starts the automatic pruning scheduler.
// Call this when starting the application.
func (p *Pruner) Start(ctx context.Context) error {
	return p.scheduler.Start(ctx)
}

// Stop stops the automatic pruning scheduler.
// Call this during graceful shutdown.
func (p *Pruner) Stop() {
	p.scheduler.Stop()
}

// NextPruning returns the time of the next scheduled pruning.
func (p *Pruner) NextPruning() *time.Time {
	return p.scheduler.NextRun()
}
