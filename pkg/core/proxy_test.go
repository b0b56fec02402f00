package core

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fhhd11/agent-gateway/pkg/config"
)

func TestTargetURL(t *testing.T) {
	cfg := config.Config{
		Letta:      config.Backend{BaseURL: "http://letta.internal:8283"},
		Management: config.Backend{BaseURL: "http://ams.internal:9000"},
		Billing:    config.Backend{BaseURL: "http://litellm.internal:4000"},
	}

	tests := []struct {
		name   string
		cls    Classification
		rawURL string
		want   string
	}{
		{
			"letta swaps prefix for /v1",
			Classification{Service: ServiceAgent, SubPath: "/agents/ag-1/messages"},
			"http://gw/api/v1/letta/agents/ag-1/messages",
			"http://letta.internal:8283/v1/agents/ag-1/messages",
		},
		{
			"letta preserves query",
			Classification{Service: ServiceAgent, SubPath: "/agents"},
			"http://gw/api/v1/letta/agents?limit=10&cursor=abc",
			"http://letta.internal:8283/v1/agents?limit=10&cursor=abc",
		},
		{
			"management keeps sub-path",
			Classification{Service: ServiceManagement, SubPath: "/create"},
			"http://gw/api/v1/agents/create",
			"http://ams.internal:9000/create",
		},
		{
			"billing collapses to completions",
			Classification{Service: ServiceBilling, SubPath: "/u1/messages"},
			"http://gw/api/v1/agents/u1/messages",
			"http://litellm.internal:4000/v1/chat/completions",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := url.Parse(tt.rawURL)
			require.NoError(t, err)
			got, err := TargetURL(cfg, tt.cls, u)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTargetURL_UnconfiguredBackend(t *testing.T) {
	u, _ := url.Parse("http://gw/api/v1/letta/agents")
	_, err := TargetURL(config.Config{}, Classification{Service: ServiceAgent, SubPath: "/agents"}, u)
	require.Error(t, err)
	ge, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, UpstreamConfigError, ge.Kind)
}

// A body forwarded with no credential rewrite byte-matches the backend's
// response body, and the provenance headers are present.
func TestForward_RoundTrip(t *testing.T) {
	const payload = `{"agents":[{"id":"ag-1"},{"id":"ag-2"}]}`
	var gotPath, gotQuery string
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Backend-Extra", "kept")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(payload))
	}))
	defer backend.Close()

	p := NewProxy(zap.NewNop())
	req := httptest.NewRequest(http.MethodGet, "http://gw/api/v1/letta/agents?limit=2", nil)
	rr := httptest.NewRecorder()

	status := p.Forward(rr, req, backend.URL+"/v1/agents?limit=2", nil)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, payload, rr.Body.String())
	assert.Equal(t, "/v1/agents", gotPath)
	assert.Equal(t, "limit=2", gotQuery)
	assert.Equal(t, "kept", rr.Header().Get("X-Backend-Extra"))
	assert.Equal(t, "agent-gateway", rr.Header().Get("X-Proxied-From"))
	assert.Equal(t, "200", rr.Header().Get("X-Upstream-Status"))
}

func TestForward_RelaysBackendStatus(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"detail":"bad agent state"}`))
	}))
	defer backend.Close()

	p := NewProxy(zap.NewNop())
	rr := httptest.NewRecorder()
	status := p.Forward(rr, httptest.NewRequest(http.MethodGet, "http://gw/x", nil), backend.URL, nil)

	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "422", rr.Header().Get("X-Upstream-Status"))
	assert.Equal(t, `{"detail":"bad agent state"}`, rr.Body.String())
}

func TestForward_RewriteReplacesAuthorization(t *testing.T) {
	var gotAuth string
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
	}))
	defer backend.Close()

	p := NewProxy(zap.NewNop())
	req := httptest.NewRequest(http.MethodPost, "http://gw/x", strings.NewReader(`{}`))
	req.Header.Set("Authorization", "Bearer caller-secret")
	rr := httptest.NewRecorder()

	p.Forward(rr, req, backend.URL, func(h http.Header) {
		h.Set("Authorization", "Bearer downstream-key")
	})

	assert.Equal(t, "Bearer downstream-key", gotAuth)
}

func TestForward_NetworkFailure(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	backend.Close()

	p := NewProxy(zap.NewNop())
	rr := httptest.NewRecorder()
	status := p.Forward(rr, httptest.NewRequest(http.MethodGet, "http://gw/x", nil), backend.URL, nil)

	assert.Equal(t, http.StatusBadGateway, status)
	assert.Equal(t, http.StatusBadGateway, rr.Code)
	body, _ := io.ReadAll(rr.Body)
	// Generic message only; no backend internals leak to the caller.
	assert.Contains(t, string(body), "Bad Gateway")
	assert.NotContains(t, string(body), backend.URL)
}

func TestForward_StripsHopByHopHeaders(t *testing.T) {
	var gotConnection string
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotConnection = r.Header.Get("Keep-Alive")
	}))
	defer backend.Close()

	p := NewProxy(zap.NewNop())
	req := httptest.NewRequest(http.MethodGet, "http://gw/x", nil)
	req.Header.Set("Keep-Alive", "timeout=5")
	rr := httptest.NewRecorder()
	p.Forward(rr, req, backend.URL, nil)

	assert.Empty(t, gotConnection)
}
