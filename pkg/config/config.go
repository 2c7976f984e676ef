package config

import (
	"time"

	"bulwark-hq/ceres/pkg/ratelimit"
)

// Config is the root configuration structure for Ceres. It contains all
// configuration sections for the HTTP server, the upstream target, the
// rate limit engine, the event log, and logging.
type Config struct {
	// Server contains HTTP server configuration including listen address,
	// timeouts, and the upstream target.
	Server ServerConfig `yaml:"server"`

	// RateLimit contains configuration for the rate limit engine: limit
	// classes, endpoint mapping, counter storage, and failure policy.
	RateLimit RateLimitConfig `yaml:"rate_limit"`

	// EventLog contains configuration for the append-only admission event
	// log including storage, the async recorder, and retention.
	EventLog EventLogConfig `yaml:"event_log"`

	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig contains configuration for the HTTP server.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Format: "host:port" (e.g., "127.0.0.1:8080").
	// Default: "127.0.0.1:8080"
	ListenAddress string `yaml:"listen_address"`

	// UpstreamURL is the base URL requests are proxied to after passing
	// the admission gate. Required when running the server.
	// Example: "http://127.0.0.1:9000"
	UpstreamURL string `yaml:"upstream_url"`

	// ReadTimeout is the maximum duration for reading the entire request,
	// including the body.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of
	// the response.
	// Default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the maximum amount of time to wait for the next
	// request when keep-alives are enabled.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for graceful
	// shutdown before in-flight requests are abandoned.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MetricsPath is the HTTP path for the Prometheus metrics endpoint.
	// Default: "/metrics"
	MetricsPath string `yaml:"metrics_path"`

	// HealthPath is the HTTP path for the health check endpoint.
	// Default: "/healthz"
	HealthPath string `yaml:"health_path"`
}

// RateLimitConfig contains configuration for the rate limit engine.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active. When false, every
	// request is admitted and no counters or events are written.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Strict controls how a request for an unknown limit class is
	// handled at request time: strict mode fails the request with a 500,
	// otherwise the gate fails open with an error log.
	// Default: false
	Strict bool `yaml:"strict"`

	// StoreTimeout is the per-check deadline for counter store
	// operations. Checks that exceed it fail open.
	// Default: 500ms
	StoreTimeout time.Duration `yaml:"store_timeout"`

	// Classes defines the limit classes. When empty, the built-in
	// default classes are used.
	Classes []ratelimit.ClassConfig `yaml:"classes"`

	// Endpoints maps request path prefixes to limit classes. The first
	// matching rule wins.
	Endpoints []ratelimit.ClassRule `yaml:"endpoints"`

	// DefaultClass is the limit class for paths no rule matches.
	// Default: "api"
	DefaultClass string `yaml:"default_class"`

	// Store configures the counter storage backend.
	Store StoreConfig `yaml:"store"`

	// Reaper configures cleanup of expired counter rows.
	Reaper ReaperConfig `yaml:"reaper"`

	// Watch enables automatic reload of limit classes when the
	// configuration file changes on disk.
	// Default: false
	Watch bool `yaml:"watch"`
}

// StoreConfig configures the counter storage backend.
type StoreConfig struct {
	// Backend specifies the storage backend to use.
	// Options: "sqlite", "memory"
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLite contains SQLite-specific configuration.
	SQLite SQLiteStoreConfig `yaml:"sqlite"`
}

// SQLiteStoreConfig contains SQLite counter store configuration.
type SQLiteStoreConfig struct {
	// Path is the file path for the SQLite database.
	// Default: "data/counters.db"
	Path string `yaml:"path"`

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`

	// CheckpointInterval is how often to checkpoint the WAL.
	// Default: 5m
	CheckpointInterval time.Duration `yaml:"checkpoint_interval"`
}

// ReaperConfig configures cleanup of expired counter rows.
type ReaperConfig struct {
	// Enabled controls whether the reaper runs.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Schedule is a cron expression for reap runs.
	// Default: "*/10 * * * *" (every 10 minutes)
	Schedule string `yaml:"schedule"`

	// GracePeriod is how long past its window a counter must be before
	// it is eligible for deletion.
	// Default: 5m
	GracePeriod time.Duration `yaml:"grace_period"`
}

// EventLogConfig contains configuration for the admission event log.
type EventLogConfig struct {
	// Enabled controls whether admission events are recorded.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Buffer is the size of the async write channel buffer. Events are
	// dropped rather than blocking the request path when it fills.
	// Default: 1000
	Buffer int `yaml:"buffer"`

	// WriteTimeout is the timeout for writing an event to storage.
	// Default: 5s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// Backend specifies the storage backend for events.
	// Options: "sqlite", "memory"
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLite contains SQLite-specific configuration.
	SQLite SQLiteEventConfig `yaml:"sqlite"`

	// Retention contains retention policy configuration.
	Retention RetentionConfig `yaml:"retention"`

	// Export contains export configuration.
	Export ExportConfig `yaml:"export"`
}

// SQLiteEventConfig contains SQLite event storage configuration.
type SQLiteEventConfig struct {
	// Path is the file path for the SQLite database.
	// Default: "data/events.db"
	Path string `yaml:"path"`

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// RetentionConfig contains retention policy configuration for events.
type RetentionConfig struct {
	// Days is the number of days to retain admission events. Events
	// older than this are eligible for deletion. 0 keeps events forever.
	// Default: 30
	Days int `yaml:"days"`

	// PruneSchedule is a cron expression for scheduling pruning.
	// Default: "0 3 * * *" (daily at 3 AM)
	PruneSchedule string `yaml:"prune_schedule"`

	// MaxEvents is the maximum number of events to keep. 0 means
	// unlimited.
	// Default: 0
	MaxEvents int64 `yaml:"max_events"`
}

// ExportConfig contains export configuration for events.
type ExportConfig struct {
	// JSONPretty enables pretty-printing for JSON exports.
	// Default: true
	JSONPretty bool `yaml:"json_pretty"`

	// CSVIncludeHeader includes a header row in CSV exports.
	// Default: true
	CSVIncludeHeader bool `yaml:"csv_include_header"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`
}
