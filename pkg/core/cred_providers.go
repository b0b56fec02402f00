// pkg/core/cred_providers.go
package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/fhhd11/agent-gateway/pkg/config"
	"github.com/fhhd11/agent-gateway/pkg/middleware/auth"
	"github.com/fhhd11/agent-gateway/pkg/profile"
)

// StaticKeyProvider selects the process-wide service key for the classified
// backend. Configuration gaps surface as operator errors, never as caller auth
// failures.
type StaticKeyProvider struct {
	Cfg config.Config
	Log *zap.Logger
}

func (p StaticKeyProvider) Issue(_ context.Context, _ *http.Request, cls Classification) (DownstreamCredentials, error) {
	var key string
	switch cls.Service {
	case ServiceAgent:
		key = p.Cfg.Letta.APIKey
	case ServiceManagement:
		key = p.Cfg.Management.APIKey
	default:
		return DownstreamCredentials{}, E(UpstreamConfigError, "no static credential for service")
	}
	if key == "" {
		p.Log.Error("service key not configured", zap.String("service", string(cls.Service)))
		return DownstreamCredentials{}, E(UpstreamConfigError, "service credential not configured")
	}
	return DownstreamCredentials{
		Scope:       ScopeStaticServiceKey,
		HeaderName:  "Authorization",
		HeaderValue: "Bearer " + key,
	}, nil
}

// PerUserProvider implements the billing path: verify the agent secret, find
// the target user from the path, resolve that user's billing key, and enforce
// the model allow-list before anything is forwarded.
type PerUserProvider struct {
	Auth     *auth.Middleware
	Resolver *profile.Resolver
	Log      *zap.Logger
}

func (p PerUserProvider) Issue(ctx context.Context, r *http.Request, _ Classification) (DownstreamCredentials, error) {
	if !p.Auth.VerifyAgentSecret(r) {
		p.Log.Warn("invalid agent secret", zap.String("path", r.URL.Path))
		return DownstreamCredentials{}, E(CallerAuthError, "Invalid agent key")
	}

	userID := chi.URLParam(r, "userid")
	if userID == "" {
		return DownstreamCredentials{}, E(CallerInputError, "Missing userid parameter")
	}

	if !p.Resolver.Configured() {
		p.Log.Error("profile store not configured")
		return DownstreamCredentials{}, E(UpstreamConfigError, "billing lookup not configured")
	}

	prof, err := p.Resolver.Lookup(ctx, userID)
	switch {
	case errors.Is(err, profile.ErrNotFound):
		return DownstreamCredentials{}, E(PolicyViolation, "User has no LLM access")
	case err != nil:
		// Fail closed, but keep infra failures distinguishable from "no row".
		return DownstreamCredentials{}, E(UpstreamUnavailable, "billing lookup failed")
	}

	if err := p.checkModelAllowed(r, prof.AllowedModels); err != nil {
		return DownstreamCredentials{}, err
	}

	return DownstreamCredentials{
		Scope:       ScopePerUserKey,
		HeaderName:  "Authorization",
		HeaderValue: "Bearer " + prof.BillingKey,
		Subject:     userID,
	}, nil
}

// checkModelAllowed validates the request body's model field against the
// profile's allow-list. It runs before any network call to the backend; the
// body is restored for forwarding.
func (p PerUserProvider) checkModelAllowed(r *http.Request, allowed []string) error {
	if len(allowed) == 0 {
		return nil
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return E(CallerInputError, "unreadable request body")
	}
	r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))

	var payload struct {
		Model string `json:"model"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.Model == "" {
		return E(CallerInputError, "request body must declare a model")
	}
	for _, m := range allowed {
		if m == payload.Model {
			return nil
		}
	}
	p.Log.Warn("model not in allow-list", zap.String("model", payload.Model))
	return E(PolicyViolation, "model not allowed for this user")
}
