package storage

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema contains the SQL statements to create the event log schema.
const Schema = `
-- Admission events table (append-only)
CREATE TABLE IF NOT EXISTS rate_limit_events (
    id TEXT PRIMARY KEY,
    identifier TEXT NOT NULL,
    endpoint TEXT NOT NULL,
    limit_class TEXT NOT NULL,
    action TEXT NOT NULL,
    request_count INTEGER NOT NULL,
    max_requests INTEGER NOT NULL,
    created_at TIMESTAMP NOT NULL
);

-- Schema version table
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY
);

-- Query indexes
CREATE INDEX IF NOT EXISTS idx_events_created_at ON rate_limit_events(created_at);
CREATE INDEX IF NOT EXISTS idx_events_identifier ON rate_limit_events(identifier);
CREATE INDEX IF NOT EXISTS idx_events_limit_class ON rate_limit_events(limit_class);
CREATE INDEX IF NOT EXISTS idx_events_action ON rate_limit_events(action);
`

// InsertSchemaVersion records the schema version, ignoring duplicates.
const InsertSchemaVersion = `
INSERT OR IGNORE INTO schema_version (version) VALUES (?);
`

// GetSchemaVersion reads the recorded schema version.
const GetSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`
