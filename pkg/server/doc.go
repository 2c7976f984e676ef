// Package server provides the HTTP admission server.
//
// This package ties together the admission gate, the reverse proxy to the
// upstream, and the operational endpoints, and provides server lifecycle
// management including start, shutdown, and health checks.
//
// # Architecture
//
// The server package is the top-level orchestrator that:
//   - Builds the reverse proxy to the configured upstream
//   - Chains middleware for cross-cutting concerns
//   - Serves health and metrics endpoints outside the admission gate
//   - Manages graceful shutdown
//   - Handles OS signals (SIGTERM, SIGINT)
//
// # Basic Usage
//
// Creating and starting a server:
//
//	import (
//	    "context"
//	    "bulwark-hq/ceres/pkg/config"
//	    "bulwark-hq/ceres/pkg/gate"
//	    "bulwark-hq/ceres/pkg/server"
//	)
//
//	cfg := config.GetConfig()
//	g := gate.New(engine, mapper, gate.Config{Strict: cfg.RateLimit.Strict})
//
//	srv := server.NewServer(&cfg.Server, g)
//	if err := srv.Start(context.Background()); err != nil {
//	    log.Fatal(err)
//	}
//
// # Routes
//
// The server exposes the following HTTP endpoints:
//
//   - GET /healthz - Liveness probe (always returns 200)
//   - GET /metrics - Prometheus metrics
//   - ANY /* - Admission gate, then reverse proxy to the upstream
//
// Health and metrics paths are configurable and are never rate limited.
//
// # Middleware Chain
//
// Requests pass through the following middleware (outermost to innermost):
//  1. Recovery: Recovers from panics and returns 500 error
//  2. RequestID: Generates unique request ID for tracing
//  3. Logging: Logs request/response details
//  4. Gate: Admission check, 429 rejection on limit breach
//
// # Thread Safety
//
// All server operations are thread-safe and can be called concurrently from
// multiple goroutines.
package server
