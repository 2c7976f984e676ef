package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfigFile(t, `
server:
  listen_address: "0.0.0.0:9090"
  upstream_url: "http://127.0.0.1:3000"
rate_limit:
  strict: true
  store_timeout: 250ms
  classes:
    - name: api
      max_requests: 50
      window: 1m
    - name: ai
      max_requests: 2
      window: 1h
  endpoints:
    - prefix: /v1/ai/
      class: ai
  default_class: api
logging:
  level: debug
  format: text
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Server.ListenAddress != "0.0.0.0:9090" {
		t.Errorf("expected listen address from file, got %q", cfg.Server.ListenAddress)
	}
	if cfg.Server.UpstreamURL != "http://127.0.0.1:3000" {
		t.Errorf("expected upstream url from file, got %q", cfg.Server.UpstreamURL)
	}
	if !cfg.RateLimit.Strict {
		t.Error("expected strict mode enabled")
	}
	if cfg.RateLimit.StoreTimeout != 250*time.Millisecond {
		t.Errorf("expected store timeout 250ms, got %v", cfg.RateLimit.StoreTimeout)
	}
	if len(cfg.RateLimit.Classes) != 2 {
		t.Fatalf("expected 2 classes, got %d", len(cfg.RateLimit.Classes))
	}
	if cfg.RateLimit.Classes[1].MaxRequests != 2 || cfg.RateLimit.Classes[1].Window != time.Hour {
		t.Errorf("unexpected ai class: %+v", cfg.RateLimit.Classes[1])
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "text" {
		t.Errorf("unexpected logging config: %+v", cfg.Logging)
	}
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	path := writeConfigFile(t, `
server:
  upstream_url: "http://127.0.0.1:3000"
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Server.ListenAddress != DefaultListenAddress {
		t.Errorf("expected default listen address, got %q", cfg.Server.ListenAddress)
	}
	if cfg.RateLimit.StoreTimeout != DefaultStoreTimeout {
		t.Errorf("expected default store timeout, got %v", cfg.RateLimit.StoreTimeout)
	}
	if cfg.RateLimit.DefaultClass != DefaultClass {
		t.Errorf("expected default class, got %q", cfg.RateLimit.DefaultClass)
	}
	if !cfg.RateLimit.Enabled {
		t.Error("rate limiting defaults to enabled")
	}
	if !cfg.EventLog.Enabled {
		t.Error("event log defaults to enabled")
	}
	if cfg.EventLog.Retention.Days != DefaultRetentionDays {
		t.Errorf("expected default retention days, got %d", cfg.EventLog.Retention.Days)
	}
}

func TestLoadConfigExplicitFalseSurvives(t *testing.T) {
	path := writeConfigFile(t, `
server:
  upstream_url: "http://127.0.0.1:3000"
rate_limit:
  enabled: false
event_log:
  enabled: false
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.RateLimit.Enabled {
		t.Error("explicit enabled: false was overridden")
	}
	if cfg.EventLog.Enabled {
		t.Error("explicit event log enabled: false was overridden")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	path := writeConfigFile(t, "server: [not a mapping")
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected error for invalid yaml")
	}
}

func TestLoadConfigValidationFailure(t *testing.T) {
	path := writeConfigFile(t, `
server:
  upstream_url: "http://127.0.0.1:3000"
rate_limit:
  classes:
    - name: api
      max_requests: 0
      window: 1m
`)

	_, err := LoadConfig(path)
	if err == nil {
		t.Fatal("expected validation error")
	}

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	path := writeConfigFile(t, `
server:
  listen_address: "127.0.0.1:8080"
  upstream_url: "http://127.0.0.1:3000"
rate_limit:
  store_timeout: 500ms
`)

	t.Setenv("CERES_SERVER_LISTEN_ADDRESS", "0.0.0.0:7070")
	t.Setenv("CERES_RATE_LIMIT_STORE_TIMEOUT", "2s")
	t.Setenv("CERES_RATE_LIMIT_STRICT", "true")
	t.Setenv("CERES_EVENT_LOG_ENABLED", "false")
	t.Setenv("CERES_LOGGING_LEVEL", "warn")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides failed: %v", err)
	}

	if cfg.Server.ListenAddress != "0.0.0.0:7070" {
		t.Errorf("env listen address not applied, got %q", cfg.Server.ListenAddress)
	}
	if cfg.RateLimit.StoreTimeout != 2*time.Second {
		t.Errorf("env store timeout not applied, got %v", cfg.RateLimit.StoreTimeout)
	}
	if !cfg.RateLimit.Strict {
		t.Error("env strict flag not applied")
	}
	if cfg.EventLog.Enabled {
		t.Error("env event log disable not applied")
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("env logging level not applied, got %q", cfg.Logging.Level)
	}
}

func TestEnvOverridesValidated(t *testing.T) {
	path := writeConfigFile(t, `
server:
  upstream_url: "http://127.0.0.1:3000"
`)

	t.Setenv("CERES_RATE_LIMIT_STORE_BACKEND", "postgres")

	if _, err := LoadConfigWithEnvOverrides(path); err == nil {
		t.Fatal("expected validation error for unsupported backend")
	}
}
