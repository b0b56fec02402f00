package core

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/fhhd11/agent-gateway/pkg/middleware/auth"
)

func TestPropagateIdentity(t *testing.T) {
	h := http.Header{}
	PropagateIdentity(h, auth.Identity{
		Subject: "user-42",
		Source:  "jwt",
		Claims:  map[string]any{"org": "acme"},
	}, zap.NewNop())

	assert.Equal(t, "user-42", h.Get("X-User-ID"))
	assert.Equal(t, "agent-gateway", h.Get("X-Forwarded-By"))
	assert.JSONEq(t, `{"org":"acme"}`, h.Get("X-User-Data"))
}

func TestPropagateIdentity_AnonymousFallback(t *testing.T) {
	h := http.Header{}
	PropagateIdentity(h, auth.Identity{}, zap.NewNop())

	assert.Equal(t, "anonymous", h.Get("X-User-ID"))
	assert.Empty(t, h.Get("X-User-Data"))
}

// Claim serialization is decoration: when it fails the header is omitted and
// nothing else changes.
func TestPropagateIdentity_UnserializableClaimsNonFatal(t *testing.T) {
	h := http.Header{}
	PropagateIdentity(h, auth.Identity{
		Subject: "user-42",
		Claims:  map[string]any{"bad": make(chan int)},
	}, zap.NewNop())

	assert.Equal(t, "user-42", h.Get("X-User-ID"))
	assert.Empty(t, h.Get("X-User-Data"))
	assert.Equal(t, "agent-gateway", h.Get("X-Forwarded-By"))
}
