package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8080"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMetricsPath     = "/metrics"
	DefaultHealthPath      = "/healthz"

	// Rate limit defaults
	DefaultRateLimitEnabled = true
	DefaultStrict           = false
	DefaultStoreTimeout     = 500 * time.Millisecond
	DefaultClass            = "api"
	DefaultStoreBackend     = "sqlite"
	DefaultCounterDBPath    = "data/counters.db"
	DefaultBusyTimeout      = 5 * time.Second
	DefaultCheckpointEvery  = 5 * time.Minute

	// Reaper defaults
	DefaultReaperEnabled     = true
	DefaultReaperSchedule    = "*/10 * * * *"
	DefaultReaperGracePeriod = 5 * time.Minute

	// Event log defaults
	DefaultEventLogEnabled      = true
	DefaultEventBuffer          = 1000
	DefaultEventWriteTimeout    = 5 * time.Second
	DefaultEventBackend         = "sqlite"
	DefaultEventDBPath          = "data/events.db"
	DefaultRetentionDays        = 30
	DefaultRetentionSchedule    = "0 3 * * *"
	DefaultRetentionMaxEvents   = int64(0)
	DefaultExportJSONPretty     = true
	DefaultExportCSVWithHeader  = true

	// Logging defaults
	DefaultLoggingLevel  = "info"
	DefaultLoggingFormat = "json"
)

// ApplyDefaults fills in default values for any configuration fields that
// are unset (zero values). It modifies the configuration in place.
//
// Boolean fields whose default is true cannot be distinguished from an
// explicit false in YAML, so they are handled by DefaultConfig instead:
// start from DefaultConfig and let the YAML decoder overwrite.
func ApplyDefaults(cfg *Config) {
	// Server
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.MetricsPath == "" {
		cfg.Server.MetricsPath = DefaultMetricsPath
	}
	if cfg.Server.HealthPath == "" {
		cfg.Server.HealthPath = DefaultHealthPath
	}

	// Rate limit
	if cfg.RateLimit.StoreTimeout == 0 {
		cfg.RateLimit.StoreTimeout = DefaultStoreTimeout
	}
	if cfg.RateLimit.DefaultClass == "" {
		cfg.RateLimit.DefaultClass = DefaultClass
	}
	if cfg.RateLimit.Store.Backend == "" {
		cfg.RateLimit.Store.Backend = DefaultStoreBackend
	}
	if cfg.RateLimit.Store.SQLite.Path == "" {
		cfg.RateLimit.Store.SQLite.Path = DefaultCounterDBPath
	}
	if cfg.RateLimit.Store.SQLite.BusyTimeout == 0 {
		cfg.RateLimit.Store.SQLite.BusyTimeout = DefaultBusyTimeout
	}
	if cfg.RateLimit.Store.SQLite.CheckpointInterval == 0 {
		cfg.RateLimit.Store.SQLite.CheckpointInterval = DefaultCheckpointEvery
	}
	if cfg.RateLimit.Reaper.Schedule == "" {
		cfg.RateLimit.Reaper.Schedule = DefaultReaperSchedule
	}
	if cfg.RateLimit.Reaper.GracePeriod == 0 {
		cfg.RateLimit.Reaper.GracePeriod = DefaultReaperGracePeriod
	}

	// Event log
	if cfg.EventLog.Buffer == 0 {
		cfg.EventLog.Buffer = DefaultEventBuffer
	}
	if cfg.EventLog.WriteTimeout == 0 {
		cfg.EventLog.WriteTimeout = DefaultEventWriteTimeout
	}
	if cfg.EventLog.Backend == "" {
		cfg.EventLog.Backend = DefaultEventBackend
	}
	if cfg.EventLog.SQLite.Path == "" {
		cfg.EventLog.SQLite.Path = DefaultEventDBPath
	}
	if cfg.EventLog.SQLite.BusyTimeout == 0 {
		cfg.EventLog.SQLite.BusyTimeout = DefaultBusyTimeout
	}
	if cfg.EventLog.Retention.PruneSchedule == "" {
		cfg.EventLog.Retention.PruneSchedule = DefaultRetentionSchedule
	}

	// Logging
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLoggingFormat
	}
}

// DefaultConfig returns a configuration with all default values applied,
// including defaults for boolean fields that ApplyDefaults cannot set.
func DefaultConfig() *Config {
	cfg := &Config{
		RateLimit: RateLimitConfig{
			Enabled: DefaultRateLimitEnabled,
			Reaper: ReaperConfig{
				Enabled: DefaultReaperEnabled,
			},
		},
		EventLog: EventLogConfig{
			Enabled: DefaultEventLogEnabled,
			Retention: RetentionConfig{
				Days: DefaultRetentionDays,
			},
			Export: ExportConfig{
				JSONPretty:       DefaultExportJSONPretty,
				CSVIncludeHeader: DefaultExportCSVWithHeader,
			},
		},
	}
	ApplyDefaults(cfg)
	return cfg
}
