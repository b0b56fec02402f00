// pkg/profile/resolver.go
package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/fhhd11/agent-gateway/pkg/config"
)

// Profile is one end user's billing record as owned by the external profile
// store. This gateway reads it fresh on every billing request and never caches
// it, so key revocation takes effect immediately.
type Profile struct {
	UserID        string
	BillingKey    string
	AllowedModels []string
	MonthlyLimit  *float64
}

// ErrNotFound means the store answered and no usable row exists: either the
// user is unknown or the row carries no billing key. Transport and decode
// failures are returned as ordinary errors and must not be collapsed into this.
var ErrNotFound = errors.New("profile: not found")

// Resolver performs the single read operation against the profile store's
// row-filtered REST endpoint. One synchronous attempt per call, no retries.
type Resolver struct {
	baseURL string
	roleKey string
	hc      *http.Client
	log     *zap.Logger
}

func NewResolver(cfg config.Config, log *zap.Logger) *Resolver {
	return &Resolver{
		baseURL: cfg.ProfileStore.BaseURL,
		roleKey: cfg.ProfileStore.ServiceRoleKey,
		hc:      &http.Client{Timeout: 8 * time.Second},
		log:     log,
	}
}

// Configured reports whether the store can be consulted at all.
func (r *Resolver) Configured() bool {
	return r.baseURL != "" && r.roleKey != ""
}

// storeRow mirrors the store's column names.
type storeRow struct {
	ID           string   `json:"id"`
	LitellmKey   string   `json:"litellm_key"`
	AllowedList  []string `json:"allowed_models"`
	MonthlyLimit *float64 `json:"monthly_limit"`
}

// Lookup fetches the profile for userID. The caller decides how each failure
// class maps to an HTTP status; Lookup only separates "no row" (ErrNotFound)
// from everything else.
func (r *Resolver) Lookup(ctx context.Context, userID string) (Profile, error) {
	target := fmt.Sprintf(
		"%s/rest/v1/user_profiles?id=eq.%s&select=id,litellm_key,allowed_models,monthly_limit",
		r.baseURL, url.QueryEscape(userID),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return Profile{}, err
	}
	req.Header.Set("apikey", r.roleKey)
	req.Header.Set("Authorization", "Bearer "+r.roleKey)
	req.Header.Set("Accept", "application/json")

	res, err := r.hc.Do(req)
	if err != nil {
		r.log.Error("profile store unreachable",
			zap.String("url", target),
			zap.Error(err),
		)
		return Profile{}, fmt.Errorf("profile: store request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		r.log.Error("profile store error",
			zap.String("url", target),
			zap.Int("status", res.StatusCode),
		)
		return Profile{}, fmt.Errorf("profile: store status %d", res.StatusCode)
	}

	var rows []storeRow
	if err := json.NewDecoder(res.Body).Decode(&rows); err != nil {
		r.log.Error("profile store decode failed",
			zap.String("url", target),
			zap.Error(err),
		)
		return Profile{}, fmt.Errorf("profile: decode: %w", err)
	}

	if len(rows) == 0 {
		r.log.Warn("profile not found", zap.String("userId", userID))
		return Profile{}, ErrNotFound
	}
	row := rows[0]
	if row.LitellmKey == "" {
		r.log.Warn("profile has no billing key", zap.String("userId", userID))
		return Profile{}, ErrNotFound
	}

	r.log.Info("profile resolved",
		zap.String("userId", userID),
		zap.String("billingKeyPrefix", keyPrefix(row.LitellmKey)),
	)
	return Profile{
		UserID:        userID,
		BillingKey:    row.LitellmKey,
		AllowedModels: row.AllowedList,
		MonthlyLimit:  row.MonthlyLimit,
	}, nil
}

// keyPrefix returns a short, non-reversible diagnostic prefix of a secret.
func keyPrefix(k string) string {
	if len(k) <= 10 {
		return "***"
	}
	return k[:10] + "..."
}
