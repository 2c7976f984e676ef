// Package storage provides backends for the admission event log.
//
// SQLiteStorage is the durable backend; MemoryStorage serves tests and
// offline environments. Both implement events.Storage.
package storage
