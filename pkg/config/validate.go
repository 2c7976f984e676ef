package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/robfig/cron/v3"

	"bulwark-hq/ceres/pkg/ratelimit"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field
	// (e.g., "server.listen_address").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a
// configuration. It implements the error interface and provides access to
// all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. All validation errors are collected and
// returned together so a misconfigured deployment surfaces every problem in
// one pass.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateRateLimit(&cfg.RateLimit)...)
	errs = append(errs, validateEventLog(&cfg.EventLog)...)
	errs = append(errs, validateLogging(&cfg.Logging)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

// validateServer validates the HTTP server configuration.
func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: "listen address is required",
		})
	} else if _, _, err := net.SplitHostPort(cfg.ListenAddress); err != nil {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: fmt.Sprintf("invalid listen address: %v", err),
		})
	}

	if cfg.UpstreamURL != "" {
		u, err := url.Parse(cfg.UpstreamURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, FieldError{
				Field:   "server.upstream_url",
				Message: "upstream URL must be an absolute http(s) URL",
			})
		}
	}

	if cfg.ReadTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.read_timeout",
			Message: "read timeout must be non-negative",
		})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.write_timeout",
			Message: "write timeout must be non-negative",
		})
	}
	if cfg.ShutdownTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.shutdown_timeout",
			Message: "shutdown timeout must be non-negative",
		})
	}

	return errs
}

// validateRateLimit validates the rate limit engine configuration,
// including cross-references between endpoint rules, the default class,
// and the configured limit classes.
func validateRateLimit(cfg *RateLimitConfig) []FieldError {
	var errs []FieldError

	if cfg.StoreTimeout <= 0 {
		errs = append(errs, FieldError{
			Field:   "rate_limit.store_timeout",
			Message: "store timeout must be positive",
		})
	}

	switch cfg.Store.Backend {
	case "sqlite", "memory":
	default:
		errs = append(errs, FieldError{
			Field:   "rate_limit.store.backend",
			Message: fmt.Sprintf("unknown backend %q (must be \"sqlite\" or \"memory\")", cfg.Store.Backend),
		})
	}
	if cfg.Store.Backend == "sqlite" && cfg.Store.SQLite.Path == "" {
		errs = append(errs, FieldError{
			Field:   "rate_limit.store.sqlite.path",
			Message: "database path is required for the sqlite backend",
		})
	}

	// The effective class set is either the configured classes or the
	// built-in defaults when none are given.
	known := make(map[string]bool)
	if len(cfg.Classes) == 0 {
		for _, cc := range ratelimit.DefaultClasses() {
			known[cc.Name] = true
		}
	}
	for i, cc := range cfg.Classes {
		field := fmt.Sprintf("rate_limit.classes[%d]", i)
		if cc.Name == "" {
			errs = append(errs, FieldError{
				Field:   field + ".name",
				Message: "class name is required",
			})
			continue
		}
		if known[cc.Name] {
			errs = append(errs, FieldError{
				Field:   field + ".name",
				Message: fmt.Sprintf("duplicate class %q", cc.Name),
			})
		}
		known[cc.Name] = true
		if cc.MaxRequests == 0 {
			errs = append(errs, FieldError{
				Field:   field + ".max_requests",
				Message: "max requests must be positive",
			})
		}
		if cc.Window <= 0 {
			errs = append(errs, FieldError{
				Field:   field + ".window",
				Message: "window must be positive",
			})
		}
	}

	for i, rule := range cfg.Endpoints {
		field := fmt.Sprintf("rate_limit.endpoints[%d]", i)
		if rule.Prefix == "" {
			errs = append(errs, FieldError{
				Field:   field + ".prefix",
				Message: "path prefix is required",
			})
		}
		if !known[rule.Class] {
			errs = append(errs, FieldError{
				Field:   field + ".class",
				Message: fmt.Sprintf("references unknown class %q", rule.Class),
			})
		}
	}

	if cfg.DefaultClass != "" && !known[cfg.DefaultClass] {
		errs = append(errs, FieldError{
			Field:   "rate_limit.default_class",
			Message: fmt.Sprintf("references unknown class %q", cfg.DefaultClass),
		})
	}

	if cfg.Reaper.Enabled {
		if _, err := cron.ParseStandard(cfg.Reaper.Schedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "rate_limit.reaper.schedule",
				Message: fmt.Sprintf("invalid cron expression: %v", err),
			})
		}
	}
	if cfg.Reaper.GracePeriod < 0 {
		errs = append(errs, FieldError{
			Field:   "rate_limit.reaper.grace_period",
			Message: "grace period must be non-negative",
		})
	}

	return errs
}

// validateEventLog validates the event log configuration.
func validateEventLog(cfg *EventLogConfig) []FieldError {
	var errs []FieldError

	switch cfg.Backend {
	case "sqlite", "memory":
	default:
		errs = append(errs, FieldError{
			Field:   "event_log.backend",
			Message: fmt.Sprintf("unknown backend %q (must be \"sqlite\" or \"memory\")", cfg.Backend),
		})
	}
	if cfg.Backend == "sqlite" && cfg.SQLite.Path == "" {
		errs = append(errs, FieldError{
			Field:   "event_log.sqlite.path",
			Message: "database path is required for the sqlite backend",
		})
	}

	if cfg.Buffer <= 0 {
		errs = append(errs, FieldError{
			Field:   "event_log.buffer",
			Message: "buffer size must be positive",
		})
	}
	if cfg.WriteTimeout <= 0 {
		errs = append(errs, FieldError{
			Field:   "event_log.write_timeout",
			Message: "write timeout must be positive",
		})
	}

	if cfg.Retention.Days < 0 {
		errs = append(errs, FieldError{
			Field:   "event_log.retention.days",
			Message: "retention days must be non-negative",
		})
	}
	if cfg.Retention.MaxEvents < 0 {
		errs = append(errs, FieldError{
			Field:   "event_log.retention.max_events",
			Message: "max events must be non-negative",
		})
	}
	if cfg.Retention.Days > 0 || cfg.Retention.MaxEvents > 0 {
		if _, err := cron.ParseStandard(cfg.Retention.PruneSchedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "event_log.retention.prune_schedule",
				Message: fmt.Sprintf("invalid cron expression: %v", err),
			})
		}
	}

	return errs
}

// validateLogging validates the logging configuration.
func validateLogging(cfg *LoggingConfig) []FieldError {
	var errs []FieldError

	switch cfg.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, FieldError{
			Field:   "logging.level",
			Message: fmt.Sprintf("unknown level %q (must be debug, info, warn, or error)", cfg.Level),
		})
	}

	switch cfg.Format {
	case "json", "text":
	default:
		errs = append(errs, FieldError{
			Field:   "logging.format",
			Message: fmt.Sprintf("unknown format %q (must be json or text)", cfg.Format),
		})
	}

	return errs
}
