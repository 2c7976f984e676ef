package ratelimit

import (
	"time"
)

// ClassConfig defines the quota for a single limit class.
type ClassConfig struct {
	// Name is the limit class name (e.g. "api", "ai", "payment").
	Name string `yaml:"name"`

	// MaxRequests is the number of requests allowed per window. Must be > 0.
	MaxRequests uint64 `yaml:"max_requests"`

	// Window is the fixed window duration. Must be > 0.
	Window time.Duration `yaml:"window"`
}

// Decision is the outcome of a single admission check.
type Decision struct {
	// Allowed reports whether the request may proceed.
	Allowed bool

	// Limit is the maximum number of requests in the current window.
	// This is the snapshot stored on the counter record, not necessarily
	// the live registry value.
	Limit uint64

	// Remaining is the number of requests left in the current window.
	Remaining uint64

	// ResetAt is when the current window ends and the counter resets.
	ResetAt time.Time

	// Degraded is set when the decision was produced by the fail-open
	// path because the counter store was unavailable.
	Degraded bool
}

// RetryAfter returns the number of seconds until the window resets,
// floored at zero. Used for the Retry-After header on denials.
func (d Decision) RetryAfter(now time.Time) int64 {
	secs := int64(d.ResetAt.Sub(now).Seconds())
	if secs < 0 {
		return 0
	}
	return secs
}

// Identity carries the request metadata the resolver derives the counting
// identifier from. All fields are optional; resolution never fails.
type Identity struct {
	// UserID is the authenticated principal identifier, if any.
	UserID string

	// CredentialID is a machine or service credential identifier, if any.
	CredentialID string

	// ForwardedFor is the raw X-Forwarded-For header value, if present.
	ForwardedFor string

	// RemoteAddr is the direct connection address (host:port or host).
	RemoteAddr string
}
