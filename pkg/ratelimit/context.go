package ratelimit

import "context"

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// userIDKey stores the authenticated principal id.
	userIDKey contextKey = "ratelimit_user_id"

	// credentialIDKey stores the machine/service credential id.
	credentialIDKey contextKey = "ratelimit_credential_id"
)

// SetUserID returns a context carrying the authenticated principal id.
// The identity system calls this after validating the caller's credentials.
func SetUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext returns the authenticated principal id, or "".
func UserIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(userIDKey).(string); ok {
		return v
	}
	return ""
}

// SetCredentialID returns a context carrying a service credential id.
func SetCredentialID(ctx context.Context, credentialID string) context.Context {
	return context.WithValue(ctx, credentialIDKey, credentialID)
}

// CredentialIDFromContext returns the service credential id, or "".
func CredentialIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(credentialIDKey).(string); ok {
		return v
	}
	return ""
}
