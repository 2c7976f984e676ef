package ratelimit

import (
	"net"
	"net/http"
	"strings"
)

// Identifier namespace prefixes. The prefixes prevent collision between an
// address that happens to equal a user id.
const (
	// UserPrefix namespaces authenticated principal identifiers.
	UserPrefix = "user:"

	// CredentialPrefix namespaces machine/service credential identifiers.
	CredentialPrefix = "cred:"

	// AddressPrefix namespaces network-address fallback identifiers.
	AddressPrefix = "addr:"
)

// UnknownAddress is the fallback identifier when no address is available.
const UnknownAddress = AddressPrefix + "unknown"

// Headers the authenticating layer uses to hand identity to the gate.
const (
	// AuthenticatedUserHeader carries the authenticated principal id.
	AuthenticatedUserHeader = "X-Authenticated-User"

	// AuthenticatedCredentialHeader carries a service credential id.
	AuthenticatedCredentialHeader = "X-Authenticated-Credential"
)

// ResolveIdentifier derives the counting identifier from request metadata.
// It never fails: some identifier is always produced.
//
// Priority order (first match wins):
//  1. authenticated principal ("user:<id>")
//  2. machine/service credential ("cred:<id>")
//  3. network address ("addr:<ip>"), taking the first entry of a
//     forwarded-address chain if present, else the direct connection
//     address, else "addr:unknown"
//
// This ordering means an authenticated abusive user is throttled
// individually even if many such users share one network address, while
// unauthenticated traffic still falls back to address-based throttling.
func ResolveIdentifier(id Identity) string {
	if id.UserID != "" {
		return UserPrefix + id.UserID
	}
	if id.CredentialID != "" {
		return CredentialPrefix + id.CredentialID
	}

	if id.ForwardedFor != "" {
		// First entry of the chain is the original client.
		first := id.ForwardedFor
		if idx := strings.Index(first, ","); idx >= 0 {
			first = first[:idx]
		}
		first = strings.TrimSpace(first)
		if first != "" {
			return AddressPrefix + first
		}
	}

	if id.RemoteAddr != "" {
		host := id.RemoteAddr
		if h, _, err := net.SplitHostPort(host); err == nil {
			host = h
		}
		if host != "" {
			return AddressPrefix + host
		}
	}

	return UnknownAddress
}

// IdentityFromRequest extracts identity metadata from an HTTP request.
//
// The principal and credential ids are read from the request context (set
// by SetUserID / SetCredentialID) first, then from the trusted
// X-Authenticated-* headers set by the authenticating layer upstream of
// the gate. Token validation itself is out of scope here.
func IdentityFromRequest(r *http.Request) Identity {
	id := Identity{
		ForwardedFor: r.Header.Get("X-Forwarded-For"),
		RemoteAddr:   r.RemoteAddr,
	}

	if user := UserIDFromContext(r.Context()); user != "" {
		id.UserID = user
	} else {
		id.UserID = r.Header.Get(AuthenticatedUserHeader)
	}

	if cred := CredentialIDFromContext(r.Context()); cred != "" {
		id.CredentialID = cred
	} else {
		id.CredentialID = r.Header.Get(AuthenticatedCredentialHeader)
	}

	return id
}
