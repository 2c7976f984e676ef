package config

import (
	"errors"
	"strings"
	"testing"
	"time"

	"bulwark-hq/ceres/pkg/ratelimit"
)

func validConfig() *Config {
	return DefaultConfig()
}

func fieldErrors(t *testing.T, err error) []FieldError {
	t.Helper()

	if err == nil {
		t.Fatal("expected a validation error")
	}
	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	return verr.Errors
}

func hasFieldError(errs []FieldError, field string) bool {
	for _, e := range errs {
		if e.Field == field {
			return true
		}
	}
	return false
}

func TestValidateDefaultsPass(t *testing.T) {
	if err := Validate(validConfig()); err != nil {
		t.Fatalf("default configuration should validate: %v", err)
	}
}

func TestValidateServer(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{
			name:   "missing listen address",
			mutate: func(c *Config) { c.Server.ListenAddress = "" },
			field:  "server.listen_address",
		},
		{
			name:   "malformed listen address",
			mutate: func(c *Config) { c.Server.ListenAddress = "no-port" },
			field:  "server.listen_address",
		},
		{
			name:   "relative upstream url",
			mutate: func(c *Config) { c.Server.UpstreamURL = "/just/a/path" },
			field:  "server.upstream_url",
		},
		{
			name:   "negative read timeout",
			mutate: func(c *Config) { c.Server.ReadTimeout = -time.Second },
			field:  "server.read_timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			errs := fieldErrors(t, Validate(cfg))
			if !hasFieldError(errs, tt.field) {
				t.Errorf("expected error on %s, got %v", tt.field, errs)
			}
		})
	}
}

func TestValidateRateLimit(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{
			name:   "zero store timeout",
			mutate: func(c *Config) { c.RateLimit.StoreTimeout = 0 },
			field:  "rate_limit.store_timeout",
		},
		{
			name:   "unknown backend",
			mutate: func(c *Config) { c.RateLimit.Store.Backend = "redis" },
			field:  "rate_limit.store.backend",
		},
		{
			name:   "sqlite without path",
			mutate: func(c *Config) { c.RateLimit.Store.SQLite.Path = "" },
			field:  "rate_limit.store.sqlite.path",
		},
		{
			name: "class without name",
			mutate: func(c *Config) {
				c.RateLimit.Classes = []ratelimit.ClassConfig{{MaxRequests: 10, Window: time.Minute}}
				c.RateLimit.DefaultClass = ""
			},
			field: "rate_limit.classes[0].name",
		},
		{
			name: "class with zero quota",
			mutate: func(c *Config) {
				c.RateLimit.Classes = []ratelimit.ClassConfig{{Name: "api", Window: time.Minute}}
			},
			field: "rate_limit.classes[0].max_requests",
		},
		{
			name: "duplicate class",
			mutate: func(c *Config) {
				c.RateLimit.Classes = []ratelimit.ClassConfig{
					{Name: "api", MaxRequests: 10, Window: time.Minute},
					{Name: "api", MaxRequests: 20, Window: time.Minute},
				}
			},
			field: "rate_limit.classes[1].name",
		},
		{
			name: "rule references unknown class",
			mutate: func(c *Config) {
				c.RateLimit.Endpoints = []ratelimit.ClassRule{{Prefix: "/v1/x", Class: "ghost"}}
			},
			field: "rate_limit.endpoints[0].class",
		},
		{
			name:   "unknown default class",
			mutate: func(c *Config) { c.RateLimit.DefaultClass = "ghost" },
			field:  "rate_limit.default_class",
		},
		{
			name:   "bad reaper schedule",
			mutate: func(c *Config) { c.RateLimit.Reaper.Schedule = "every 10 minutes" },
			field:  "rate_limit.reaper.schedule",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			errs := fieldErrors(t, Validate(cfg))
			if !hasFieldError(errs, tt.field) {
				t.Errorf("expected error on %s, got %v", tt.field, errs)
			}
		})
	}
}

func TestValidateEventLog(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{
			name:   "unknown backend",
			mutate: func(c *Config) { c.EventLog.Backend = "kafka" },
			field:  "event_log.backend",
		},
		{
			name:   "sqlite without path",
			mutate: func(c *Config) { c.EventLog.SQLite.Path = "" },
			field:  "event_log.sqlite.path",
		},
		{
			name:   "zero buffer",
			mutate: func(c *Config) { c.EventLog.Buffer = -1 },
			field:  "event_log.buffer",
		},
		{
			name:   "negative retention",
			mutate: func(c *Config) { c.EventLog.Retention.Days = -1 },
			field:  "event_log.retention.days",
		},
		{
			name: "bad prune schedule",
			mutate: func(c *Config) {
				c.EventLog.Retention.Days = 30
				c.EventLog.Retention.PruneSchedule = "sometimes"
			},
			field: "event_log.retention.prune_schedule",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			errs := fieldErrors(t, Validate(cfg))
			if !hasFieldError(errs, tt.field) {
				t.Errorf("expected error on %s, got %v", tt.field, errs)
			}
		})
	}
}

func TestValidateLogging(t *testing.T) {
	cfg := validConfig()
	cfg.Logging.Level = "verbose"
	cfg.Logging.Format = "xml"

	errs := fieldErrors(t, Validate(cfg))
	if !hasFieldError(errs, "logging.level") {
		t.Error("expected error on logging.level")
	}
	if !hasFieldError(errs, "logging.format") {
		t.Error("expected error on logging.format")
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Server.ListenAddress = ""
	cfg.RateLimit.StoreTimeout = 0
	cfg.Logging.Level = "verbose"

	errs := fieldErrors(t, Validate(cfg))
	if len(errs) < 3 {
		t.Errorf("expected at least 3 collected errors, got %d: %v", len(errs), errs)
	}
}

func TestValidationErrorMessage(t *testing.T) {
	err := ValidationError{Errors: []FieldError{
		{Field: "server.listen_address", Message: "listen address is required"},
	}}
	if !strings.Contains(err.Error(), "server.listen_address") {
		t.Errorf("error message missing field name: %q", err.Error())
	}

	multi := ValidationError{Errors: []FieldError{
		{Field: "a", Message: "x"},
		{Field: "b", Message: "y"},
	}}
	if !strings.Contains(multi.Error(), "2 errors") {
		t.Errorf("expected error count in message: %q", multi.Error())
	}
}
