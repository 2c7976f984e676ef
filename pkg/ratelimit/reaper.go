package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"bulwark-hq/ceres/pkg/ratelimit/store"
)

// ReaperConfig configures the counter reaper.
type ReaperConfig struct {
	// Schedule is a cron expression for scheduling purge runs.
	// Example: "*/10 * * * *" (every 10 minutes).
	// If empty, the reaper does nothing.
	Schedule string

	// GracePeriod is added on top of the longest configured window when
	// computing the purge horizon, so a record is never purged while a
	// registry reload with a longer window is in flight.
	// Default: 5 minutes.
	GracePeriod time.Duration
}

// DefaultReaperConfig returns the default reaper configuration.
func DefaultReaperConfig() ReaperConfig {
	return ReaperConfig{
		Schedule:    "*/10 * * * *",
		GracePeriod: 5 * time.Minute,
	}
}

// Reaper purges counter records whose window started before now minus the
// longest configured window. Expired records carry no further meaning; the
// engine itself never deletes them.
type Reaper struct {
	store    store.Store
	registry *Registry
	metrics  *Metrics
	config   ReaperConfig
	cron     *cron.Cron
	mu       sync.Mutex
	logger   *slog.Logger
	running  bool
}

// NewReaper creates a new counter reaper. Metrics may be nil.
func NewReaper(st store.Store, registry *Registry, metrics *Metrics, config ReaperConfig) *Reaper {
	if config.GracePeriod <= 0 {
		config.GracePeriod = DefaultReaperConfig().GracePeriod
	}

	return &Reaper{
		store:    st,
		registry: registry,
		metrics:  metrics,
		config:   config,
		cron:     cron.New(),
		logger:   slog.Default().With("component", "ratelimit.reaper"),
	}
}

// Start begins scheduled purging based on the cron expression.
// If Schedule is empty, Start does nothing.
func (r *Reaper) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.config.Schedule == "" {
		r.logger.Info("reaper schedule not configured, skipping")
		return nil
	}

	if _, err := cron.ParseStandard(r.config.Schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", r.config.Schedule, err)
	}

	_, err := r.cron.AddFunc(r.config.Schedule, func() {
		r.runOnce(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule reaper: %w", err)
	}

	r.cron.Start()
	r.running = true

	r.logger.Info("counter reaper started",
		"schedule", r.config.Schedule,
		"grace_period", r.config.GracePeriod,
	)

	go func() {
		<-ctx.Done()
		r.Stop()
	}()

	return nil
}

// Reap runs one purge cycle immediately and returns the number of counter
// records deleted.
func (r *Reaper) Reap(ctx context.Context) (int, error) {
	horizon := r.registry.LongestWindow() + r.config.GracePeriod
	cutoff := time.Now().Add(-horizon)

	deleted, err := r.store.Cleanup(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("counter cleanup failed: %w", err)
	}

	if r.metrics != nil && deleted > 0 {
		r.metrics.RecordReapedCounters(deleted)
	}

	return deleted, nil
}

// runOnce executes one scheduled purge cycle.
func (r *Reaper) runOnce(ctx context.Context) {
	deleted, err := r.Reap(ctx)
	if err != nil {
		r.logger.Error("scheduled counter purge failed", "error", err)
		return
	}

	if deleted > 0 {
		r.logger.Info("scheduled counter purge completed", "deleted_count", deleted)
	} else {
		r.logger.Debug("scheduled counter purge completed, no records deleted")
	}
}

// Stop stops the reaper and waits for any running purge to complete.
func (r *Reaper) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cron != nil && r.running {
		ctx := r.cron.Stop()
		<-ctx.Done()
		r.running = false
		r.logger.Info("counter reaper stopped")
	}
}

// IsRunning returns true if the reaper is scheduled.
func (r *Reaper) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.running
}
