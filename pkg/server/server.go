// Package server provides the HTTP admission server. It fronts a single
// upstream with the rate limit gate and exposes health and metrics
// endpoints alongside the proxied traffic.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bulwark-hq/ceres/pkg/config"
	"bulwark-hq/ceres/pkg/gate"
)

// Server is the admission-controlled reverse proxy server.
type Server struct {
	config       *config.ServerConfig
	gate         *gate.Gate
	httpServer   *http.Server
	shutdownChan chan struct{}
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// NewServer creates a new admission server fronting the configured
// upstream.
func NewServer(cfg *config.ServerConfig, g *gate.Gate) *Server {
	return &Server{
		config:       cfg,
		gate:         g,
		shutdownChan: make(chan struct{}),
	}
}

// Start starts the HTTP server and blocks until shutdown.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	s.mu.Unlock()

	handler, err := s.setupRoutes()
	if err != nil {
		return err
	}

	s.httpServer = &http.Server{
		Addr:         s.config.ListenAddress,
		Handler:      handler,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	errChan := make(chan error, 1)
	go func() {
		slog.Info("starting admission server",
			"address", s.config.ListenAddress,
			"upstream", s.config.UpstreamURL,
		)

		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-ctx.Done():
		slog.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig.String())
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	case <-s.shutdownChan:
		slog.Info("shutdown requested")
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if !s.isRunning {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		slog.Info("initiating graceful shutdown", "timeout", s.config.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()

		if s.httpServer != nil {
			if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
				slog.Error("error during server shutdown", "error", err)
				shutdownErr = fmt.Errorf("server shutdown error: %w", err)
			}
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		slog.Info("admission server stopped")
	})

	return shutdownErr
}

// setupRoutes configures HTTP routes and the middleware chain.
//
// Health and metrics are served outside the admission gate so operational
// probes never consume rate limit quota.
func (s *Server) setupRoutes() (http.Handler, error) {
	proxy, err := s.buildProxy()
	if err != nil {
		return nil, err
	}

	// Admitted traffic: gate innermost around the proxy.
	admitted := s.gate.Middleware(proxy)

	mux := http.NewServeMux()
	mux.Handle(s.config.HealthPath, http.HandlerFunc(handleHealth))
	mux.Handle(s.config.MetricsPath, promhttp.Handler())
	mux.Handle("/", admitted)

	var handler http.Handler = mux
	handler = gate.LoggingMiddleware(handler)
	handler = gate.RequestIDMiddleware(handler)
	handler = gate.RecoveryMiddleware(handler)

	return handler, nil
}

// buildProxy constructs the reverse proxy to the configured upstream.
func (s *Server) buildProxy() (http.Handler, error) {
	if s.config.UpstreamURL == "" {
		return nil, fmt.Errorf("upstream URL is required")
	}

	target, err := url.Parse(s.config.UpstreamURL)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream URL %q: %w", s.config.UpstreamURL, err)
	}

	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		slog.Error("upstream request failed",
			"path", r.URL.Path,
			"upstream", target.Host,
			"error", err,
		)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":"upstream_unavailable"}`))
	}

	return proxy, nil
}

// handleHealth reports process liveness.
func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Handler returns the configured HTTP handler. Useful for tests that
// drive the server through httptest without binding a socket.
func (s *Server) Handler() (http.Handler, error) {
	return s.setupRoutes()
}
