package ratelimit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains Prometheus metrics for the rate limit engine.
type Metrics struct {
	// Admission checks
	checks  *prometheus.CounterVec
	blocked *prometheus.CounterVec

	// Store health
	storeErrors prometheus.Counter
	failOpen    *prometheus.CounterVec

	// Event log health
	eventsDropped prometheus.Counter

	// Reaper
	reapedCounters prometheus.Counter

	// Check latency
	checkDuration prometheus.Histogram
}

// NewMetrics creates a new Metrics instance registered with the given
// registerer. Pass prometheus.DefaultRegisterer in production and a fresh
// prometheus.NewRegistry() in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		checks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ceres_ratelimit_checks_total",
				Help: "Total number of admission checks performed",
			},
			[]string{"class", "result"},
		),

		blocked: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ceres_ratelimit_blocked_total",
				Help: "Total number of requests denied by the rate limiter",
			},
			[]string{"class"},
		),

		storeErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "ceres_ratelimit_store_errors_total",
				Help: "Total number of counter store failures",
			},
		),

		failOpen: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ceres_ratelimit_fail_open_total",
				Help: "Total number of requests allowed through because the counter store was unavailable",
			},
			[]string{"class"},
		),

		eventsDropped: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "ceres_ratelimit_events_dropped_total",
				Help: "Total number of admission events dropped before reaching the event log",
			},
		),

		reapedCounters: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "ceres_ratelimit_reaped_counters_total",
				Help: "Total number of expired counter records purged by the reaper",
			},
		),

		checkDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ceres_ratelimit_check_duration_seconds",
				Help:    "Duration of admission checks including the store round trip",
				Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14), // 100µs to ~1.6s
			},
		),
	}
}

// RecordCheck records an admission check outcome.
func (m *Metrics) RecordCheck(class string, allowed bool) {
	result := "allowed"
	if !allowed {
		result = "blocked"
		m.blocked.WithLabelValues(class).Inc()
	}
	m.checks.WithLabelValues(class, result).Inc()
}

// RecordStoreError records a counter store failure.
func (m *Metrics) RecordStoreError() {
	m.storeErrors.Inc()
}

// RecordFailOpen records a request allowed through by the fail-open path.
func (m *Metrics) RecordFailOpen(class string) {
	m.failOpen.WithLabelValues(class).Inc()
}

// RecordEventDropped records an admission event that never reached the log.
func (m *Metrics) RecordEventDropped() {
	m.eventsDropped.Inc()
}

// RecordReapedCounters records expired counter records purged by the reaper.
func (m *Metrics) RecordReapedCounters(count int) {
	m.reapedCounters.Add(float64(count))
}

// ObserveCheckDuration records the duration of an admission check in seconds.
func (m *Metrics) ObserveCheckDuration(seconds float64) {
	m.checkDuration.Observe(seconds)
}
