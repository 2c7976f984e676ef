// Package store provides durable counter storage for the rate limit engine.
//
// The correctness-critical operation is Increment: a single atomic
// upsert-and-increment-with-window-reset executed server-side by the
// backing store. The store, not the caller, is the single source of
// serialization for a counter key; two requests arriving within
// microseconds of each other for the same key cannot both read the same
// stale count.
//
// Two backends are provided: SQLiteStore for durable shared storage and
// MemoryStore for tests and offline environments.
package store
