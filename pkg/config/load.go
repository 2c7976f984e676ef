package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path.
// Decoding starts from DefaultConfig so that boolean fields defaulting to
// true survive a file that omits them; the file then overrides whatever it
// sets explicitly. The result is validated before being returned.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	// Fill zero values the file may have left behind.
	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention CERES_SECTION_FIELD (e.g., CERES_SERVER_LISTEN_ADDRESS).
// Environment variables always take precedence over file-based configuration.
//
// The loading sequence is:
// 1. Load YAML from file
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the
// configuration. Environment variables use the format CERES_SECTION_FIELD.
func applyEnvOverrides(cfg *Config) {
	// Server overrides
	if val := os.Getenv("CERES_SERVER_LISTEN_ADDRESS"); val != "" {
		cfg.Server.ListenAddress = val
	}
	if val := os.Getenv("CERES_SERVER_UPSTREAM_URL"); val != "" {
		cfg.Server.UpstreamURL = val
	}
	if val := os.Getenv("CERES_SERVER_READ_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.ReadTimeout = d
		}
	}
	if val := os.Getenv("CERES_SERVER_WRITE_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.WriteTimeout = d
		}
	}
	if val := os.Getenv("CERES_SERVER_SHUTDOWN_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.ShutdownTimeout = d
		}
	}

	// Rate limit overrides
	if val := os.Getenv("CERES_RATE_LIMIT_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.RateLimit.Enabled = b
		}
	}
	if val := os.Getenv("CERES_RATE_LIMIT_STRICT"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.RateLimit.Strict = b
		}
	}
	if val := os.Getenv("CERES_RATE_LIMIT_STORE_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.RateLimit.StoreTimeout = d
		}
	}
	if val := os.Getenv("CERES_RATE_LIMIT_DEFAULT_CLASS"); val != "" {
		cfg.RateLimit.DefaultClass = val
	}
	if val := os.Getenv("CERES_RATE_LIMIT_STORE_BACKEND"); val != "" {
		cfg.RateLimit.Store.Backend = val
	}
	if val := os.Getenv("CERES_RATE_LIMIT_SQLITE_PATH"); val != "" {
		cfg.RateLimit.Store.SQLite.Path = val
	}
	if val := os.Getenv("CERES_RATE_LIMIT_REAPER_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.RateLimit.Reaper.Enabled = b
		}
	}
	if val := os.Getenv("CERES_RATE_LIMIT_REAPER_SCHEDULE"); val != "" {
		cfg.RateLimit.Reaper.Schedule = val
	}
	if val := os.Getenv("CERES_RATE_LIMIT_WATCH"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.RateLimit.Watch = b
		}
	}

	// Event log overrides
	if val := os.Getenv("CERES_EVENT_LOG_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.EventLog.Enabled = b
		}
	}
	if val := os.Getenv("CERES_EVENT_LOG_BACKEND"); val != "" {
		cfg.EventLog.Backend = val
	}
	if val := os.Getenv("CERES_EVENT_LOG_SQLITE_PATH"); val != "" {
		cfg.EventLog.SQLite.Path = val
	}
	if val := os.Getenv("CERES_EVENT_LOG_BUFFER"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.EventLog.Buffer = i
		}
	}
	if val := os.Getenv("CERES_EVENT_LOG_RETENTION_DAYS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.EventLog.Retention.Days = i
		}
	}

	// Logging overrides
	if val := os.Getenv("CERES_LOGGING_LEVEL"); val != "" {
		cfg.Logging.Level = val
	}
	if val := os.Getenv("CERES_LOGGING_FORMAT"); val != "" {
		cfg.Logging.Format = val
	}
}
