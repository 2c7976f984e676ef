package ratelimit

import (
	"context"
	"log/slog"
	"time"

	"bulwark-hq/ceres/pkg/events"
	"bulwark-hq/ceres/pkg/ratelimit/store"
)

// EventSink receives admission events from the engine. Implementations must
// not block: the engine treats recording as best-effort and any returned
// error only produces a warning.
type EventSink interface {
	Record(ctx context.Context, event *events.Event) error
}

// EngineConfig configures the rate limit engine.
type EngineConfig struct {
	// Enabled turns the subsystem on. When false, Check always allows
	// without touching the store. Used for test/offline environments.
	Enabled bool

	// StoreTimeout bounds the counter store round trip. Exceeding it is
	// treated identically to the store being unavailable and triggers
	// fail-open. Default: 500ms.
	StoreTimeout time.Duration
}

// DefaultEngineConfig returns the default engine configuration.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Enabled:      true,
		StoreTimeout: 500 * time.Millisecond,
	}
}

// Engine makes admission decisions: given an identifier, endpoint, and limit
// class it looks up the class quota, performs the store's atomic increment,
// interprets the result, and emits an event.
//
// Engine holds no per-key state and takes no locks around the store call;
// the store's atomic increment totally orders all increments to a key, so
// the engine is safe for any number of concurrent callers in this process
// and in other processes sharing the same store.
type Engine struct {
	registry *Registry
	store    store.Store
	sink     EventSink
	metrics  *Metrics
	logger   *slog.Logger
	config   EngineConfig
}

// NewEngine creates a new rate limit engine. The sink and metrics may be nil,
// in which case events and metrics are not emitted.
func NewEngine(registry *Registry, st store.Store, sink EventSink, metrics *Metrics, config EngineConfig) *Engine {
	if config.StoreTimeout <= 0 {
		config.StoreTimeout = DefaultEngineConfig().StoreTimeout
	}

	return &Engine{
		registry: registry,
		store:    st,
		sink:     sink,
		metrics:  metrics,
		logger:   slog.Default().With("component", "ratelimit.engine"),
		config:   config,
	}
}

// Check decides whether one request by identifier against endpoint under the
// given limit class may proceed.
//
// The only error Check returns is *UnknownClassError, which is a deployment
// bug (startup validation guarantees every mapped class exists). Store
// failures never surface as errors: the engine fails open, returning an
// allow decision with Degraded set, and reports the degradation through a
// distinct log signal and counter so operators can tell "nobody needs
// limiting" apart from "the store is down". This trade of a brief
// abuse-prevention gap for availability is deliberate.
func (e *Engine) Check(ctx context.Context, identifier, endpoint, class string) (Decision, error) {
	if !e.config.Enabled {
		return Decision{Allowed: true}, nil
	}

	cfg, err := e.registry.Get(class)
	if err != nil {
		return Decision{}, err
	}

	now := time.Now()
	key := store.CounterKey{
		Identifier: identifier,
		Endpoint:   endpoint,
		Class:      class,
	}

	storeCtx, cancel := context.WithTimeout(ctx, e.config.StoreTimeout)
	defer cancel()

	start := time.Now()
	state, storeErr := e.store.Increment(storeCtx, key, cfg.MaxRequests, cfg.Window, now)
	if e.metrics != nil {
		e.metrics.ObserveCheckDuration(time.Since(start).Seconds())
	}

	if storeErr != nil {
		return e.failOpen(cfg, class, endpoint, now, storeErr), nil
	}

	var remaining uint64
	if state.MaxRequests > state.RequestCount {
		remaining = state.MaxRequests - state.RequestCount
	}

	decision := Decision{
		Allowed:   state.RequestCount <= state.MaxRequests,
		Limit:     state.MaxRequests,
		Remaining: remaining,
		ResetAt:   state.WindowStart.Add(cfg.Window),
	}

	if e.metrics != nil {
		e.metrics.RecordCheck(class, decision.Allowed)
	}

	e.recordEvent(ctx, identifier, endpoint, class, decision, state, now)

	return decision, nil
}

// failOpen builds the allow decision for an unavailable store.
func (e *Engine) failOpen(cfg ClassConfig, class, endpoint string, now time.Time, cause error) Decision {
	if e.metrics != nil {
		e.metrics.RecordStoreError()
		e.metrics.RecordFailOpen(class)
	}

	// Distinct severity from normal admission logging so operators can
	// react to the degradation.
	e.logger.Error("counter store unavailable, failing open",
		"class", class,
		"endpoint", endpoint,
		"error", cause,
	)

	return Decision{
		Allowed:   true,
		Limit:     cfg.MaxRequests,
		Remaining: cfg.MaxRequests,
		ResetAt:   now.Add(cfg.Window),
		Degraded:  true,
	}
}

// recordEvent emits one admission event. Best-effort: a failed write is
// logged and counted but never affects the decision.
func (e *Engine) recordEvent(ctx context.Context, identifier, endpoint, class string, decision Decision, state store.CounterState, now time.Time) {
	if e.sink == nil {
		return
	}

	action := events.ActionAllowed
	if !decision.Allowed {
		action = events.ActionBlocked
	}

	event := &events.Event{
		Identifier:   identifier,
		Endpoint:     endpoint,
		LimitClass:   class,
		Action:       action,
		RequestCount: state.RequestCount,
		MaxRequests:  state.MaxRequests,
		CreatedAt:    now,
	}

	if err := e.sink.Record(ctx, event); err != nil {
		if e.metrics != nil {
			e.metrics.RecordEventDropped()
		}
		e.logger.Warn("failed to record admission event",
			"identifier", identifier,
			"class", class,
			"error", NewEventWriteError(identifier, err),
		)
	}
}
