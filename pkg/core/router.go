// core/router.go
package core

import (
	"net/http"
	"strconv"

	chimd "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/fhhd11/agent-gateway/pkg/config"
	"github.com/fhhd11/agent-gateway/pkg/docs"
	"github.com/fhhd11/agent-gateway/pkg/middleware/auth"
	"github.com/fhhd11/agent-gateway/pkg/middleware/logger"
	hmetrics "github.com/fhhd11/agent-gateway/pkg/middleware/metrics"
	"github.com/fhhd11/agent-gateway/pkg/middleware/ratelimit"
	"github.com/fhhd11/agent-gateway/pkg/profile"
	httpx "github.com/fhhd11/agent-gateway/pkg/transport/httpx"
)

type BuildDeps struct {
	Cfg      config.Config
	Auth     *auth.Middleware
	LogMW    *logger.Middleware
	Metrics  http.Handler
	Limiter  *ratelimit.Limiter
	Resolver *profile.Resolver
	Proxy    *Proxy
	Router   httpx.Router
	Log      *zap.Logger
}

func BuildRouter(d BuildDeps) http.Handler {
	r := d.Router
	r.Use(chimd.RequestID, chimd.Recoverer, chimd.Heartbeat("/ping"))
	r.Use(allowPreflight)
	r.Use(d.Auth.Middleware())
	if d.LogMW != nil {
		r.Use(d.LogMW.Middleware())
	}
	r.Use(hmetrics.Collect())

	r.Handle(http.MethodGet, "/metrics", d.Metrics)

	health := NewHealthAggregator(d.Cfg, d.Log)
	r.Get("/health", health.Handler())

	r.Get("/", docs.InfoHandler())
	r.Get("/api.json", docs.OpenAPIHandler())
	r.Get("/docs", docs.PageHandler())

	gw := &gatewayHandler{d: d}
	r.HandleAll("/api/v1/letta/*", gw)
	r.HandleAll("/api/v1/agents/{userid}/messages", gw)
	r.HandleAll("/api/v1/agents/*", gw)

	return r.Mux()
}

// allowPreflight short-circuits CORS preflight before any auth or routing, so
// browsers can negotiate against every surface.
func allowPreflight(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", "*")
			h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
			h.Set("Access-Control-Max-Age", "86400")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// gatewayHandler runs the proxy pipeline: classify, guard, resolve credential,
// propagate identity, rate-limit, forward. Each stage can short-circuit with
// the envelope matching its failure kind; nothing is forwarded unless every
// stage passed.
type gatewayHandler struct {
	d BuildDeps
}

func (g *gatewayHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	d := g.d

	cls := Classify(r.Method, r.URL.Path)
	if cls.Service == ServiceNone {
		// The mounts above should make this unreachable; keep the invariant
		// anyway: unclassified requests are never credential-rewritten.
		http.NotFound(w, r)
		return
	}

	if cls.Service == ServiceAgent {
		if rej := CheckBoundary(r.Method, cls.SubPath); rej != nil {
			d.Log.Warn("boundary guard rejection",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
			)
			hmetrics.CountBoundaryRejection()
			hmetrics.CountService(string(cls.Service), strconv.Itoa(http.StatusForbidden))
			WriteErr(w, &Error{Kind: PolicyViolation, Message: rej.Reason, Hint: rej.Hint})
			return
		}
	}

	creds, err := g.issueCreds(r, cls)
	if err != nil {
		kind := UpstreamConfigError
		if ge, ok := err.(*Error); ok {
			kind = ge.Kind
		}
		d.Log.Warn("credential resolution failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("service", string(cls.Service)),
			zap.Error(err),
		)
		hmetrics.CountCredential(string(cls.Service), scopeFor(cls.Service), "denied")
		hmetrics.CountService(string(cls.Service), strconv.Itoa(kind.status()))
		WriteErr(w, err)
		return
	}
	hmetrics.CountCredential(string(cls.Service), string(creds.Scope), "issued")

	id := g.callerIdentity(r, creds)

	if d.Limiter != nil && !d.Limiter.Allow(id.Subject) {
		hmetrics.CountService(string(cls.Service), strconv.Itoa(http.StatusTooManyRequests))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"Too Many Requests","message":"rate limit exceeded"}`))
		return
	}

	target, err := TargetURL(d.Cfg, cls, r.URL)
	if err != nil {
		d.Log.Error("no target for classified request",
			zap.String("service", string(cls.Service)),
			zap.Error(err),
		)
		WriteErr(w, err)
		return
	}

	d.Log.Info("forwarding",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("service", string(cls.Service)),
		zap.String("credentialScope", string(creds.Scope)),
		zap.String("caller", id.Subject),
	)
	status := d.Proxy.Forward(w, r, target, func(h http.Header) {
		// Credential isolation: the caller's inbound Authorization never
		// reaches a backend.
		h.Set(creds.HeaderName, creds.HeaderValue)
		for k, v := range creds.Extra {
			h.Set(k, v)
		}
		if rid := chimd.GetReqID(r.Context()); rid != "" {
			h.Set("X-Request-Id", rid)
		}
		PropagateIdentity(h, id, d.Log)
	})
	hmetrics.CountService(string(cls.Service), strconv.Itoa(status))
}

// issueCreds picks the provider matching the credential scope the classified
// service requires.
func (g *gatewayHandler) issueCreds(r *http.Request, cls Classification) (DownstreamCredentials, error) {
	var p CredentialsProvider
	if cls.Service == ServiceBilling {
		p = PerUserProvider{Auth: g.d.Auth, Resolver: g.d.Resolver, Log: g.d.Log}
	} else {
		p = StaticKeyProvider{Cfg: g.d.Cfg, Log: g.d.Log}
	}
	return p.Issue(r.Context(), r, cls)
}

// callerIdentity derives the identity to propagate downstream. On the billing
// path the per-user provider authenticated the agent and named the end user;
// elsewhere the verified inbound token (if any) is the source of truth. A
// valid service secret marks internal machine traffic.
func (g *gatewayHandler) callerIdentity(r *http.Request, creds DownstreamCredentials) auth.Identity {
	if creds.Subject != "" {
		return auth.Identity{
			Subject: creds.Subject,
			Source:  "agent",
			Claims:  map[string]any{"userId": creds.Subject, "source": "agent"},
		}
	}
	if g.d.Auth.VerifyServiceSecret(r) {
		return auth.Identity{
			Subject: "internal-service",
			Source:  "service",
			Claims:  map[string]any{"type": "service", "authenticated": true},
		}
	}
	return auth.IdentityFromContext(r.Context())
}

func scopeFor(s Service) string {
	if s == ServiceBilling {
		return string(ScopePerUserKey)
	}
	return string(ScopeStaticServiceKey)
}
