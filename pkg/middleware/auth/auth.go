// middleware/auth/auth.go
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fhhd11/agent-gateway/pkg/config"
)

type contextKey struct{ name string }

var identityCtxKey = &contextKey{"identity"}

// Middleware verifies inbound caller tokens. Verification here only
// establishes identity; whether an unauthenticated request may proceed is
// decided per route.
type Middleware struct {
	jwtSecret     []byte
	issuer        string
	audience      string
	leeway        time.Duration
	agentSecret   string
	serviceSecret string
}

func ProvideAuthentication(cfg config.Config) *Middleware {
	leeway := 60 * time.Second
	if cfg.Auth.LeewaySeconds > 0 {
		leeway = time.Duration(cfg.Auth.LeewaySeconds) * time.Second
	}
	return &Middleware{
		jwtSecret:     []byte(cfg.Auth.JWTSecret),
		issuer:        cfg.Auth.Issuer,
		audience:      cfg.Auth.Audience,
		leeway:        leeway,
		agentSecret:   cfg.Auth.AgentSecret,
		serviceSecret: cfg.Auth.ServiceSecret,
	}
}

// Middleware attaches a verified Identity to the request context when a valid
// bearer JWT is present. Requests without a token, or with a token that is not
// a JWT (agent and service secrets look like opaque strings), continue
// unauthenticated; the billing path verifies those secrets itself.
func (m *Middleware) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok := bearerToken(r)
			if tok == "" || len(m.jwtSecret) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			id, err := m.verifyJWT(tok)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

func (m *Middleware) verifyJWT(raw string) (Identity, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(m.leeway),
	)

	claims := jwt.MapClaims{}
	tok, err := parser.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return m.jwtSecret, nil
	})
	if err != nil || !tok.Valid {
		return Identity{}, errors.New("invalid token")
	}

	if m.issuer != "" {
		if iss, _ := claims.GetIssuer(); iss != m.issuer {
			return Identity{}, errors.New("bad issuer")
		}
	}
	if m.audience != "" {
		aud, _ := claims.GetAudience()
		found := false
		for _, a := range aud {
			if a == m.audience {
				found = true
				break
			}
		}
		if !found {
			return Identity{}, errors.New("bad audience")
		}
	}

	sub, _ := claims.GetSubject()
	if sub == "" {
		return Identity{}, errors.New("missing subject")
	}

	extra := map[string]any{}
	for k, v := range claims {
		switch k {
		case "exp", "iat", "nbf", "iss", "aud", "sub":
		default:
			extra[k] = v
		}
	}
	return Identity{Subject: sub, Source: "jwt", Claims: extra}, nil
}

// VerifyAgentSecret compares the inbound bearer against the configured agent
// secret, byte for byte in constant time. An empty configured secret never
// matches: that is a deployment gap, not an open door.
func (m *Middleware) VerifyAgentSecret(r *http.Request) bool {
	return secretMatch(bearerToken(r), m.agentSecret)
}

// VerifyServiceSecret authenticates internal service-to-service callers.
func (m *Middleware) VerifyServiceSecret(r *http.Request) bool {
	return secretMatch(bearerToken(r), m.serviceSecret)
}

func secretMatch(presented, configured string) bool {
	if configured == "" || presented == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(configured)) == 1
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(h, "Bearer ")
}

// WithIdentity returns ctx carrying id. Exposed so the billing path can attach
// the agent-authenticated identity it derives itself.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey, id)
}
