package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"bulwark-hq/ceres/pkg/cli"
	"bulwark-hq/ceres/pkg/config"
	"bulwark-hq/ceres/pkg/events"
	"bulwark-hq/ceres/pkg/events/recorder"
	"bulwark-hq/ceres/pkg/events/retention"
	"bulwark-hq/ceres/pkg/events/storage"
	"bulwark-hq/ceres/pkg/gate"
	"bulwark-hq/ceres/pkg/ratelimit"
	"bulwark-hq/ceres/pkg/ratelimit/store"
	"bulwark-hq/ceres/pkg/server"
)

var runFlags struct {
	listenAddress string
	upstream      string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Ceres admission server",
	Long: `Start the Ceres admission server with the specified configuration.

The server listens on the configured address, runs every request through
the rate limit gate, and proxies admitted traffic to the upstream.

Examples:
  # Start with default config
  ceres run

  # Start with custom config
  ceres run --config /etc/ceres/config.yaml

  # Override listen address and upstream
  ceres run --listen 0.0.0.0:8080 --upstream http://127.0.0.1:9000

  # Validate config without starting server
  ceres run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVarP(&runFlags.upstream, "upstream", "u", "", "override upstream URL")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting server")
}

func runServer(cmd *cobra.Command, args []string) error {
	if err := config.Initialize(cfgFile); err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	cfg := config.GetConfig()

	// Apply flag overrides
	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.upstream != "" {
		cfg.Server.UpstreamURL = runFlags.upstream
	}
	if runFlags.logLevel != "" {
		cfg.Logging.Level = runFlags.logLevel
	}

	setupLogging(&cfg.Logging)

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	fmt.Printf("Ceres v%s\n", Version)
	fmt.Printf("Loading configuration from: %s\n", cfgFile)
	fmt.Println("✓ Configuration loaded")

	// Limit class registry and endpoint mapper
	registry, err := buildRegistry(cfg)
	if err != nil {
		return fmt.Errorf("failed to build class registry: %w", err)
	}
	mapper, err := ratelimit.NewClassMapper(cfg.RateLimit.Endpoints, cfg.RateLimit.DefaultClass)
	if err != nil {
		return fmt.Errorf("failed to build endpoint mapper: %w", err)
	}
	if err := mapper.Validate(registry); err != nil {
		return fmt.Errorf("endpoint mapping invalid: %w", err)
	}
	fmt.Printf("✓ Limit classes loaded (%d classes)\n", len(registry.Classes()))

	metrics := ratelimit.NewMetrics(prometheus.DefaultRegisterer)

	// Counter store
	counterStore, err := buildCounterStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize counter store: %w", err)
	}
	defer counterStore.Close()
	fmt.Printf("✓ Counter store initialized (%s)\n", cfg.RateLimit.Store.Backend)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Event log (if enabled)
	var sink ratelimit.EventSink
	if cfg.EventLog.Enabled {
		eventStorage, err := buildEventStorage(cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize event storage: %w", err)
		}
		defer eventStorage.Close()

		rec := recorder.NewRecorder(eventStorage, &recorder.Config{
			Enabled:      true,
			Buffer:       cfg.EventLog.Buffer,
			WriteTimeout: cfg.EventLog.WriteTimeout,
		})
		defer rec.Close()
		sink = rec

		if cfg.EventLog.Retention.Days > 0 || cfg.EventLog.Retention.MaxEvents > 0 {
			pruner := retention.NewPruner(eventStorage, &retention.Config{
				RetentionDays: cfg.EventLog.Retention.Days,
				PruneSchedule: cfg.EventLog.Retention.PruneSchedule,
				MaxEvents:     cfg.EventLog.Retention.MaxEvents,
			})
			if err := pruner.Start(ctx); err != nil {
				slog.Warn("failed to start retention scheduler", "error", err)
			} else {
				defer pruner.Stop()
				if next := pruner.NextPruning(); next != nil {
					slog.Debug("event retention scheduler started", "next_pruning", next)
				}
			}
		}

		fmt.Println("✓ Event log initialized")
	}

	// Rate limit engine
	engine := ratelimit.NewEngine(registry, counterStore, sink, metrics, ratelimit.EngineConfig{
		Enabled:      cfg.RateLimit.Enabled,
		StoreTimeout: cfg.RateLimit.StoreTimeout,
	})

	// Counter reaper
	if cfg.RateLimit.Reaper.Enabled {
		reaper := ratelimit.NewReaper(counterStore, registry, metrics, ratelimit.ReaperConfig{
			Schedule:    cfg.RateLimit.Reaper.Schedule,
			GracePeriod: cfg.RateLimit.Reaper.GracePeriod,
		})
		if err := reaper.Start(ctx); err != nil {
			slog.Warn("failed to start counter reaper", "error", err)
		} else {
			defer reaper.Stop()
		}
	}

	// Config watch: reload limit classes when the file changes.
	if cfg.RateLimit.Watch {
		watcher, err := ratelimit.NewWatcher(ratelimit.WatcherConfig{Path: cfgFile})
		if err != nil {
			slog.Warn("failed to create config watcher", "error", err)
		} else {
			go func() {
				err := watcher.Watch(ctx, func() error {
					newCfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
					if err != nil {
						return err
					}
					classes := newCfg.RateLimit.Classes
					if len(classes) == 0 {
						classes = ratelimit.DefaultClasses()
					}
					return registry.Reload(classes)
				})
				if err != nil {
					slog.Error("config watcher exited", "error", err)
				}
			}()
		}
	}

	// Admission gate and HTTP server
	g := gate.New(engine, mapper, gate.Config{Strict: cfg.RateLimit.Strict})
	srv := server.NewServer(&cfg.Server, g)

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Start(ctx); err != nil {
			errChan <- fmt.Errorf("server error: %w", err)
		}
		close(errChan)
	}()

	fmt.Println()
	fmt.Printf("✓ Server listening on %s\n", cfg.Server.ListenAddress)
	fmt.Printf("✓ Health endpoint: http://%s%s\n", cfg.Server.ListenAddress, cfg.Server.HealthPath)
	fmt.Printf("✓ Metrics endpoint: http://%s%s\n", cfg.Server.ListenAddress, cfg.Server.MetricsPath)
	fmt.Println("\nPress Ctrl+C to stop")

	sigChan := cli.WaitForShutdown()

	select {
	case err := <-errChan:
		if err != nil {
			return cli.NewCommandError("run", err)
		}
		return nil
	case sig := <-sigChan:
		fmt.Printf("\nReceived signal %s, shutting down gracefully...\n", sig)
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown failed", "error", err)
			return cli.NewCommandError("run", err)
		}

		fmt.Println("✓ Server stopped")
		return nil
	}
}

// setupLogging installs the process-wide default logger from config.
func setupLogging(cfg *config.LoggingConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.AddSource,
	}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}

// buildRegistry constructs the limit class registry from config, falling
// back to the built-in default classes when none are configured.
func buildRegistry(cfg *config.Config) (*ratelimit.Registry, error) {
	classes := cfg.RateLimit.Classes
	if len(classes) == 0 {
		classes = ratelimit.DefaultClasses()
	}
	return ratelimit.NewRegistry(classes)
}

// buildCounterStore constructs the counter store from config.
func buildCounterStore(cfg *config.Config) (store.Store, error) {
	switch cfg.RateLimit.Store.Backend {
	case "sqlite":
		return store.NewSQLiteStoreWithConfig(store.SQLiteConfig{
			DBPath:             cfg.RateLimit.Store.SQLite.Path,
			BusyTimeout:        cfg.RateLimit.Store.SQLite.BusyTimeout,
			CheckpointInterval: cfg.RateLimit.Store.SQLite.CheckpointInterval,
		})
	case "memory":
		return store.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported counter store backend: %s", cfg.RateLimit.Store.Backend)
	}
}

// buildEventStorage constructs the event log storage from config.
func buildEventStorage(cfg *config.Config) (events.Storage, error) {
	switch cfg.EventLog.Backend {
	case "sqlite":
		return storage.NewSQLiteStorage(&storage.SQLiteConfig{
			Path:        cfg.EventLog.SQLite.Path,
			BusyTimeout: cfg.EventLog.SQLite.BusyTimeout,
			WALMode:     true,
		})
	case "memory":
		return storage.NewMemoryStorage(), nil
	default:
		return nil, fmt.Errorf("unsupported event log backend: %s", cfg.EventLog.Backend)
	}
}
