// core/cred.go
package core

import (
	"context"
	"net/http"
)

// CredentialScope says where a downstream credential came from.
type CredentialScope string

const (
	// ScopeStaticServiceKey is a process-wide secret loaded at startup.
	ScopeStaticServiceKey CredentialScope = "static"
	// ScopePerUserKey is fetched fresh per request from the profile store and
	// never cached, so revocation takes effect immediately.
	ScopePerUserKey CredentialScope = "per-user"
)

// DownstreamCredentials is the credential injected into the outbound request.
// The inbound Authorization header is always replaced before forwarding; the
// caller's own credential never reaches a backend.
type DownstreamCredentials struct {
	Scope       CredentialScope
	HeaderName  string
	HeaderValue string
	Extra       map[string]string
	// Subject is the caller identity the credential was issued for; used by
	// identity propagation and rate limiting on the per-user path.
	Subject string
}

// CredentialsProvider resolves the downstream credential for a classified
// request. Failures are *Error values carrying the exact rejection kind.
type CredentialsProvider interface {
	Issue(ctx context.Context, r *http.Request, cls Classification) (DownstreamCredentials, error)
}
