// Package ratelimit implements the admission-control engine for Ceres.
//
// The engine bounds how many requests an identity may make against an
// endpoint within a rolling fixed window, with the counter state held in a
// durable shared store so the limit holds across multiple stateless server
// processes.
//
// The package is organized around a small number of collaborators:
//
//   - Registry: static table mapping a limit class name (api, ai, payment,
//     admin, ...) to its quota and window.
//   - Store (subpackage store): durable counter storage exposing a single
//     atomic increment-with-window-reset operation.
//   - Engine: orchestrates registry lookup, the atomic store increment, the
//     allow/deny decision, and event emission.
//   - ClassMapper: declarative path-prefix table resolving an endpoint path
//     to its limit class.
//   - ResolveIdentifier: derives the namespaced counting identity
//     (user:, cred:, addr:) from request metadata.
//
// The engine fails open: if the backing store is unreachable or times out,
// requests are allowed through and the degradation is surfaced via a
// dedicated log signal and Prometheus counter rather than an outage.
package ratelimit
