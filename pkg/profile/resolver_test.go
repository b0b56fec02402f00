package profile

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fhhd11/agent-gateway/pkg/config"
)

func newTestResolver(t *testing.T, storeURL string) *Resolver {
	t.Helper()
	return NewResolver(config.Config{
		ProfileStore: config.ProfileStore{
			BaseURL:        storeURL,
			ServiceRoleKey: "role-key",
		},
	}, zap.NewNop())
}

func TestLookup_Found(t *testing.T) {
	var gotAPIKey, gotAuth string
	store := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAPIKey = r.Header.Get("apikey")
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, "id=eq.user-1&select=id,litellm_key,allowed_models,monthly_limit", r.URL.RawQuery)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"user-1","litellm_key":"sk-billing-abc123","allowed_models":["gpt-4o"],"monthly_limit":25.5}]`))
	}))
	defer store.Close()

	r := newTestResolver(t, store.URL)
	prof, err := r.Lookup(context.Background(), "user-1")
	require.NoError(t, err)

	assert.Equal(t, "user-1", prof.UserID)
	assert.Equal(t, "sk-billing-abc123", prof.BillingKey)
	assert.Equal(t, []string{"gpt-4o"}, prof.AllowedModels)
	require.NotNil(t, prof.MonthlyLimit)
	assert.Equal(t, 25.5, *prof.MonthlyLimit)

	assert.Equal(t, "role-key", gotAPIKey)
	assert.Equal(t, "Bearer role-key", gotAuth)
}

func TestLookup_NoRow(t *testing.T) {
	store := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer store.Close()

	_, err := newTestResolver(t, store.URL).Lookup(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLookup_RowWithoutKey(t *testing.T) {
	store := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":"user-1","litellm_key":""}]`))
	}))
	defer store.Close()

	_, err := newTestResolver(t, store.URL).Lookup(context.Background(), "user-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

// Store-side failures must stay distinguishable from "no row": callers map
// them to different statuses.
func TestLookup_StoreErrorIsNotNotFound(t *testing.T) {
	store := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer store.Close()

	_, err := newTestResolver(t, store.URL).Lookup(context.Background(), "user-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestLookup_Unreachable(t *testing.T) {
	store := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	store.Close() // connection refused from here on

	_, err := newTestResolver(t, store.URL).Lookup(context.Background(), "user-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestLookup_MalformedBody(t *testing.T) {
	store := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"not":"an array`))
	}))
	defer store.Close()

	_, err := newTestResolver(t, store.URL).Lookup(context.Background(), "user-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestConfigured(t *testing.T) {
	assert.False(t, NewResolver(config.Config{}, zap.NewNop()).Configured())
	assert.True(t, newTestResolver(t, "http://store.local").Configured())
}
