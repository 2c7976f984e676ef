// Package gate provides the HTTP admission gate and its supporting
// middleware.
//
// The gate is the integration point invoked once per inbound request: it
// resolves the caller's identity, maps the request path to a limit class,
// asks the rate limit engine for a decision, and either forwards control or
// short-circuits with a structured 429 rejection. Rate limit metadata
// (X-RateLimit-Limit, X-RateLimit-Remaining, X-RateLimit-Reset) is attached
// to every response so well-behaved clients can self-throttle proactively.
package gate
