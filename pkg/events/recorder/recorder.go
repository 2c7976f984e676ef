// Package recorder provides the asynchronous writer feeding the admission
// event log.
package recorder

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"bulwark-hq/ceres/pkg/events"
)

// Config contains configuration for the event recorder.
type Config struct {
	// Enabled enables event recording.
	Enabled bool

	// Buffer is the size of the async write channel buffer.
	// Default: 1000
	Buffer int

	// WriteTimeout is the timeout for writing an event to storage.
	// Default: 5 seconds
	WriteTimeout time.Duration
}

// DefaultConfig returns the default recorder configuration.
func DefaultConfig() *Config {
	return &Config{
		Enabled:      true,
		Buffer:       1000,
		WriteTimeout: 5 * time.Second,
	}
}

// Recorder appends admission events to storage asynchronously so the
// admission decision never waits on an event write. When the buffer is full
// the event is dropped with a warning rather than blocking the caller.
type Recorder struct {
	storage   events.Storage
	config    *Config
	eventChan chan *events.Event
	wg        sync.WaitGroup
	done      chan struct{}
	closeOnce sync.Once
	logger    *slog.Logger
}

// NewRecorder creates a new event recorder with the provided storage backend
// and configuration.
func NewRecorder(storage events.Storage, config *Config) *Recorder {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Buffer <= 0 {
		config.Buffer = DefaultConfig().Buffer
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = DefaultConfig().WriteTimeout
	}

	r := &Recorder{
		storage:   storage,
		config:    config,
		eventChan: make(chan *events.Event, config.Buffer),
		done:      make(chan struct{}),
		logger:    slog.Default().With("component", "events.recorder"),
	}

	r.wg.Add(1)
	go r.worker()

	r.logger.Info("event recorder initialized",
		"buffer", config.Buffer,
		"write_timeout", config.WriteTimeout,
	)

	return r
}

// Record assigns the event an ID and enqueues it for async writing.
//
// Record returns immediately; it never blocks on storage. A full buffer or
// a recorder shutting down returns a *RecorderError for the dropped event,
// which callers treat as a warning, never a failure of the decision itself.
func (r *Recorder) Record(ctx context.Context, event *events.Event) error {
	if !r.config.Enabled {
		return nil
	}

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	select {
	case <-r.done:
		return events.NewRecorderError(event.ID, context.Canceled)
	default:
	}

	select {
	case r.eventChan <- event:
		return nil
	default:
		r.logger.Warn("event buffer full, dropping event",
			"event_id", event.ID,
			"identifier", event.Identifier,
			"buffer", r.config.Buffer,
		)
		return events.NewRecorderError(event.ID, context.DeadlineExceeded)
	}
}

// Close gracefully shuts down the recorder by draining the buffer and
// waiting for pending writes to complete.
func (r *Recorder) Close() error {
	r.closeOnce.Do(func() {
		r.logger.Info("shutting down event recorder")
		close(r.done)
		r.wg.Wait()
		r.logger.Info("event recorder shut down complete")
	})
	return nil
}

// worker drains the event channel and writes events to storage.
func (r *Recorder) worker() {
	defer r.wg.Done()

	for {
		select {
		case event := <-r.eventChan:
			r.writeEvent(event)

		case <-r.done:
			// Drain remaining events before exiting.
			for {
				select {
				case event := <-r.eventChan:
					r.writeEvent(event)
				default:
					return
				}
			}
		}
	}
}

// writeEvent writes a single event to storage with the configured timeout.
func (r *Recorder) writeEvent(event *events.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
	defer cancel()

	if err := r.storage.Append(ctx, event); err != nil {
		r.logger.Warn("failed to write admission event",
			"event_id", event.ID,
			"identifier", event.Identifier,
			"error", err,
		)
	}
}
