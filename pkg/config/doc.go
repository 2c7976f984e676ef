// Package config provides configuration management for Ceres.
//
// This package handles loading, validating, and managing configuration from
// YAML files with environment variable overrides. It provides a type-safe
// configuration system with validation and sensible defaults.
//
// # Configuration Loading
//
// Configuration can be loaded in two ways:
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("config.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("config.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention CERES_SECTION_FIELD.
// For example:
//
//   - CERES_SERVER_LISTEN_ADDRESS overrides server.listen_address
//   - CERES_RATE_LIMIT_STORE_BACKEND overrides rate_limit.store.backend
//   - CERES_LOGGING_LEVEL overrides logging.level
//
// Environment variables always take precedence over file-based configuration.
//
// # Configuration Precedence
//
// Configuration values are applied in the following order (later overrides
// earlier):
//
//  1. Default values (defined in defaults.go)
//  2. Values from YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Singleton Pattern
//
// For application-wide configuration access, use the singleton pattern:
//
//	// At application startup
//	if err := config.Initialize("config.yaml"); err != nil {
//	    log.Fatal(err)
//	}
//
//	// Anywhere in the application
//	cfg := config.GetConfig()
//	fmt.Println(cfg.Server.ListenAddress)
//
// For testing, prefer dependency injection with explicit Config instances
// rather than the global singleton.
//
// # Example Configuration
//
// Here is a minimal configuration file:
//
//	server:
//	  listen_address: "127.0.0.1:8080"
//	  upstream_url: "http://127.0.0.1:9000"
//
//	rate_limit:
//	  enabled: true
//	  store:
//	    backend: "sqlite"
//	    sqlite:
//	      path: "data/counters.db"
//
//	event_log:
//	  enabled: true
//	  sqlite:
//	    path: "data/events.db"
//
//	logging:
//	  level: "info"
//	  format: "json"
package config
