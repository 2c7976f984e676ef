package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteStore implements Store using SQLite for persistence.
// Counter mutations go through a single conditional upsert executed
// server-side, so the read-modify-write is atomic even with concurrent
// writers sharing the database file.
//
// SQLiteStore uses a write-ahead log (WAL) for better concurrent
// performance and periodic checkpointing to balance write performance
// with durability.
type SQLiteStore struct {
	db                 *sql.DB
	dbPath             string
	checkpointInterval time.Duration
	done               chan struct{}
	closeOnce          sync.Once

	incrementStmt *sql.Stmt
	cleanupStmt   *sql.Stmt
}

// SQLiteConfig configures the SQLite counter store.
type SQLiteConfig struct {
	// DBPath is the path to the SQLite database file.
	DBPath string

	// CheckpointInterval is how often to checkpoint the WAL.
	// Default: 5 minutes
	CheckpointInterval time.Duration

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// NewSQLiteStore creates a new SQLite counter store with default settings.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	return NewSQLiteStoreWithConfig(SQLiteConfig{
		DBPath:             dbPath,
		CheckpointInterval: 5 * time.Minute,
		BusyTimeout:        5 * time.Second,
	})
}

// NewSQLiteStoreWithConfig creates a new SQLite counter store with custom
// configuration.
func NewSQLiteStoreWithConfig(cfg SQLiteConfig) (*SQLiteStore, error) {
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if cfg.CheckpointInterval == 0 {
		cfg.CheckpointInterval = 5 * time.Minute
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	// Open database with WAL mode and busy timeout
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d&_synchronous=NORMAL",
		cfg.DBPath, int(cfg.BusyTimeout.Milliseconds()))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &SQLiteStore{
		db:                 db,
		dbPath:             cfg.DBPath,
		checkpointInterval: cfg.CheckpointInterval,
		done:               make(chan struct{}),
	}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	if err := s.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	go s.checkpointLoop()

	return s, nil
}

// initSchema creates the counter table if it doesn't exist.
// Timestamps are stored as unix milliseconds.
func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS rate_limit_counters (
		identifier TEXT NOT NULL,
		endpoint TEXT NOT NULL,
		limit_class TEXT NOT NULL,
		request_count INTEGER NOT NULL,
		max_requests INTEGER NOT NULL,
		window_start INTEGER NOT NULL,
		last_request_at INTEGER NOT NULL,
		PRIMARY KEY (identifier, endpoint, limit_class)
	);

	CREATE INDEX IF NOT EXISTS idx_counters_window_start ON rate_limit_counters(window_start);
	`

	_, err := s.db.Exec(schema)
	return err
}

// prepareStatements prepares SQL statements for reuse.
func (s *SQLiteStore) prepareStatements() error {
	var err error

	// The whole increment is one conditional upsert evaluated inside
	// SQLite: a fresh row starts at count 1, an open window increments in
	// place, an elapsed window resets to count 1 with a new quota
	// snapshot. All right-hand expressions see the pre-update row, so the
	// reset condition is evaluated exactly once per statement.
	s.incrementStmt, err = s.db.Prepare(`
		INSERT INTO rate_limit_counters (
			identifier, endpoint, limit_class,
			request_count, max_requests, window_start, last_request_at
		) VALUES (?, ?, ?, 1, ?, ?, ?)
		ON CONFLICT (identifier, endpoint, limit_class) DO UPDATE SET
			request_count = CASE
				WHEN excluded.window_start - rate_limit_counters.window_start >= ?
				THEN 1
				ELSE rate_limit_counters.request_count + 1
			END,
			max_requests = CASE
				WHEN excluded.window_start - rate_limit_counters.window_start >= ?
				THEN excluded.max_requests
				ELSE rate_limit_counters.max_requests
			END,
			window_start = CASE
				WHEN excluded.window_start - rate_limit_counters.window_start >= ?
				THEN excluded.window_start
				ELSE rate_limit_counters.window_start
			END,
			last_request_at = excluded.last_request_at
		RETURNING request_count, max_requests, window_start
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare increment statement: %w", err)
	}

	s.cleanupStmt, err = s.db.Prepare(`
		DELETE FROM rate_limit_counters
		WHERE window_start < ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare cleanup statement: %w", err)
	}

	return nil
}

// Increment performs the atomic upsert-and-increment for the given key.
func (s *SQLiteStore) Increment(ctx context.Context, key CounterKey, max uint64, window time.Duration, now time.Time) (CounterState, error) {
	if key.Identifier == "" || key.Endpoint == "" || key.Class == "" {
		return CounterState{}, NewUnavailableError("sqlite", "increment",
			fmt.Errorf("counter key fields cannot be empty"))
	}

	nowMs := now.UnixMilli()
	windowMs := window.Milliseconds()

	var (
		count       uint64
		maxSnapshot uint64
		windowStart int64
	)

	err := s.incrementStmt.QueryRowContext(ctx,
		key.Identifier, key.Endpoint, key.Class,
		max, nowMs, nowMs,
		windowMs, windowMs, windowMs,
	).Scan(&count, &maxSnapshot, &windowStart)
	if err != nil {
		return CounterState{}, NewUnavailableError("sqlite", "increment", err)
	}

	return CounterState{
		RequestCount: count,
		MaxRequests:  maxSnapshot,
		WindowStart:  time.UnixMilli(windowStart),
	}, nil
}

// Cleanup purges counter records whose window started before olderThan.
func (s *SQLiteStore) Cleanup(ctx context.Context, olderThan time.Time) (int, error) {
	result, err := s.cleanupStmt.ExecContext(ctx, olderThan.UnixMilli())
	if err != nil {
		return 0, NewUnavailableError("sqlite", "cleanup", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, NewUnavailableError("sqlite", "cleanup", err)
	}

	return int(deleted), nil
}

// Close releases any resources held by the store.
// Close is idempotent and safe to call multiple times.
func (s *SQLiteStore) Close() error {
	var closeErr error

	s.closeOnce.Do(func() {
		close(s.done)

		if s.incrementStmt != nil {
			s.incrementStmt.Close()
		}
		if s.cleanupStmt != nil {
			s.cleanupStmt.Close()
		}

		if s.db != nil {
			// Run final checkpoint
			_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
			closeErr = s.db.Close()
		}
	})

	return closeErr
}

// checkpointLoop runs periodic WAL checkpoints.
func (s *SQLiteStore) checkpointLoop() {
	ticker := time.NewTicker(s.checkpointInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_, _ = s.db.Exec("PRAGMA wal_checkpoint(PASSIVE)")
		case <-s.done:
			return
		}
	}
}
