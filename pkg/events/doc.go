// Package events defines the append-only admission event log.
//
// Every admission decision the rate limit engine makes produces one Event.
// Events are immutable once written; the engine never updates, deletes, or
// reads them back. External consumers (monitoring, anomaly detection) read
// the stream through the query surface; retention is enforced by the
// retention subpackage.
//
// Writes are best-effort: a failure to record an event must never block or
// fail the admission decision itself.
package events
