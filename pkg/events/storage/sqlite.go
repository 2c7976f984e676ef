package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"bulwark-hq/ceres/pkg/events"
)

// SQLiteConfig contains configuration for the SQLite event log backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections to the database.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// WALMode enables Write-Ahead Logging mode for better concurrency.
	// Default: true
	WALMode bool

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/events.db",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStorage implements events.Storage using SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStorage creates a new SQLite event log backend.
// It initializes the database schema and enables WAL mode if configured.
func NewSQLiteStorage(config *SQLiteConfig) (*SQLiteStorage, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}
	defaults := DefaultSQLiteConfig()
	if config.Path == "" {
		config.Path = defaults.Path
	}
	if config.MaxOpenConns <= 0 {
		config.MaxOpenConns = defaults.MaxOpenConns
	}
	if config.MaxIdleConns <= 0 {
		config.MaxIdleConns = defaults.MaxIdleConns
	}
	if config.BusyTimeout <= 0 {
		config.BusyTimeout = defaults.BusyTimeout
	}

	logger := slog.Default().With("component", "events.storage.sqlite")

	db, err := sql.Open("sqlite3", config.Path)
	if err != nil {
		return nil, events.NewStorageError("sqlite", "open", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)

	s := &SQLiteStorage{
		db:     db,
		config: config,
		logger: logger,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite event storage initialized",
		"path", config.Path,
		"wal_mode", config.WALMode,
	)

	return s, nil
}

// initialize sets up the database schema and enables WAL mode.
func (s *SQLiteStorage) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return events.NewStorageError("sqlite", "enable_wal", err)
		}
	}

	busyTimeoutMs := s.config.BusyTimeout.Milliseconds()
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", busyTimeoutMs)); err != nil {
		return events.NewStorageError("sqlite", "set_busy_timeout", err)
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return events.NewStorageError("sqlite", "create_schema", err)
	}

	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return events.NewStorageError("sqlite", "insert_schema_version", err)
	}

	var version int
	err := s.db.QueryRow(GetSchemaVersion).Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return events.NewStorageError("sqlite", "get_schema_version", err)
	}
	if version != SchemaVersion {
		return events.NewStorageError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	return nil
}

// Append persists one admission event.
func (s *SQLiteStorage) Append(ctx context.Context, event *events.Event) error {
	if event == nil {
		return events.NewStorageError("sqlite", "append", fmt.Errorf("event cannot be nil"))
	}
	if event.ID == "" {
		return events.NewStorageError("sqlite", "append", fmt.Errorf("event id cannot be empty"))
	}

	query := `
		INSERT INTO rate_limit_events (
			id, identifier, endpoint, limit_class, action,
			request_count, max_requests, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		event.ID, event.Identifier, event.Endpoint, event.LimitClass, string(event.Action),
		event.RequestCount, event.MaxRequests, event.CreatedAt,
	)
	if err != nil {
		return events.NewStorageError("sqlite", "append", err)
	}

	return nil
}

// Query retrieves events matching the query filters, newest first.
func (s *SQLiteStorage) Query(ctx context.Context, query *events.Query) ([]*events.Event, error) {
	whereClause, args := buildWhereClause(query)

	sqlQuery := `
		SELECT id, identifier, endpoint, limit_class, action,
		       request_count, max_requests, created_at
		FROM rate_limit_events
	`
	if whereClause != "" {
		sqlQuery += " WHERE " + whereClause
	}
	sqlQuery += " ORDER BY created_at DESC"

	limit := 100
	if query.Limit > 0 {
		limit = query.Limit
	}
	sqlQuery += fmt.Sprintf(" LIMIT %d", limit)

	if query.Offset > 0 {
		sqlQuery += fmt.Sprintf(" OFFSET %d", query.Offset)
	}

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, events.NewStorageError("sqlite", "query", err)
	}
	defer rows.Close()

	results := []*events.Event{}
	for rows.Next() {
		var (
			event  events.Event
			action string
		)
		err := rows.Scan(
			&event.ID, &event.Identifier, &event.Endpoint, &event.LimitClass, &action,
			&event.RequestCount, &event.MaxRequests, &event.CreatedAt,
		)
		if err != nil {
			return nil, events.NewStorageError("sqlite", "scan", err)
		}
		event.Action = events.Action(action)
		results = append(results, &event)
	}

	if err := rows.Err(); err != nil {
		return nil, events.NewStorageError("sqlite", "query", err)
	}

	return results, nil
}

// Count returns the number of events matching the query filters.
func (s *SQLiteStorage) Count(ctx context.Context, query *events.Query) (int64, error) {
	whereClause, args := buildWhereClause(query)

	sqlQuery := "SELECT COUNT(*) FROM rate_limit_events"
	if whereClause != "" {
		sqlQuery += " WHERE " + whereClause
	}

	var count int64
	if err := s.db.QueryRowContext(ctx, sqlQuery, args...).Scan(&count); err != nil {
		return 0, events.NewStorageError("sqlite", "count", err)
	}

	return count, nil
}

// Delete removes events matching the query filters.
// Returns the number of events deleted.
func (s *SQLiteStorage) Delete(ctx context.Context, query *events.Query) (int64, error) {
	whereClause, args := buildWhereClause(query)

	sqlQuery := "DELETE FROM rate_limit_events"
	if whereClause != "" {
		sqlQuery += " WHERE " + whereClause
	}

	result, err := s.db.ExecContext(ctx, sqlQuery, args...)
	if err != nil {
		return 0, events.NewStorageError("sqlite", "delete", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, events.NewStorageError("sqlite", "delete", err)
	}

	return count, nil
}

// Close releases resources held by the storage backend.
func (s *SQLiteStorage) Close() error {
	if err := s.db.Close(); err != nil {
		return events.NewStorageError("sqlite", "close", err)
	}

	s.logger.Info("SQLite event storage closed")
	return nil
}

// buildWhereClause builds a SQL WHERE clause from query filters.
// Returns the WHERE clause (without "WHERE" keyword) and the query arguments.
func buildWhereClause(query *events.Query) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if query.StartTime != nil {
		conditions = append(conditions, "created_at >= ?")
		args = append(args, *query.StartTime)
	}
	if query.EndTime != nil {
		conditions = append(conditions, "created_at <= ?")
		args = append(args, *query.EndTime)
	}

	if query.Identifier != "" {
		conditions = append(conditions, "identifier = ?")
		args = append(args, query.Identifier)
	}
	if query.Endpoint != "" {
		conditions = append(conditions, "endpoint = ?")
		args = append(args, query.Endpoint)
	}
	if query.LimitClass != "" {
		conditions = append(conditions, "limit_class = ?")
		args = append(args, query.LimitClass)
	}
	if query.Action != "" {
		conditions = append(conditions, "action = ?")
		args = append(args, string(query.Action))
	}

	return strings.Join(conditions, " AND "), args
}
