// pkg/config/config.go
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Backend holds the origin and, where applicable, the static service key for
// one downstream service. An empty BaseURL means the backend is not configured;
// the health aggregator reports it as such instead of probing it.
type Backend struct {
	BaseURL string `toml:"base_url"`
	APIKey  string `toml:"api_key"`
}

// ProfileStore is the external user-profile collaborator. The service-role key
// grants row-filtered read access; this gateway never writes to the store.
type ProfileStore struct {
	BaseURL        string `toml:"base_url"`
	ServiceRoleKey string `toml:"service_role_key"`
}

// CallerAuth configures verification of inbound caller tokens.
type CallerAuth struct {
	JWTSecret     string `toml:"jwt_secret"`
	Issuer        string `toml:"issuer"`
	Audience      string `toml:"audience"`
	LeewaySeconds int    `toml:"leeway_seconds"`

	// AgentSecret authenticates machine callers on the billing-proxy path.
	// ServiceSecret authenticates internal service-to-service calls.
	AgentSecret   string `toml:"agent_secret"`
	ServiceSecret string `toml:"service_secret"`
}

// RateLimit is the per-caller token bucket applied after identity resolution.
type RateLimit struct {
	RPS   float64 `toml:"rps"`
	Burst int     `toml:"burst"`
}

// Config is the complete gateway configuration. It is constructed once at
// startup, validated, and passed read-only to every component; request-handling
// code never consults the environment directly.
type Config struct {
	Letta        Backend      `toml:"letta"`
	Management   Backend      `toml:"management"`
	Billing      Backend      `toml:"billing"`
	ProfileStore ProfileStore `toml:"profile_store"`
	Auth         CallerAuth   `toml:"auth"`
	RateLimit    RateLimit    `toml:"rate_limit"`
}

// Validate rejects configurations that could not serve any request at all.
// Per-backend keys are deliberately not required here: a missing key surfaces
// as a configuration error on the first request that needs it, so a gateway
// serving only the billing path can run without a Letta key.
func (c *Config) Validate() error {
	for _, b := range []struct {
		name string
		url  string
	}{
		{"letta", c.Letta.BaseURL},
		{"management", c.Management.BaseURL},
		{"billing", c.Billing.BaseURL},
		{"profile_store", c.ProfileStore.BaseURL},
	} {
		if b.url == "" {
			continue
		}
		u, err := url.Parse(b.url)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%s.base_url %q is not an absolute URL", b.name, b.url)
		}
	}
	if c.Letta.BaseURL == "" && c.Management.BaseURL == "" && c.Billing.BaseURL == "" {
		return errors.New("no backend configured")
	}
	if c.RateLimit.RPS < 0 || c.RateLimit.Burst < 0 {
		return errors.New("rate_limit values must be non-negative")
	}
	return nil
}

// normalize trims trailing slashes so URL joining stays predictable.
func (c *Config) normalize() {
	c.Letta.BaseURL = strings.TrimRight(c.Letta.BaseURL, "/")
	c.Management.BaseURL = strings.TrimRight(c.Management.BaseURL, "/")
	c.Billing.BaseURL = strings.TrimRight(c.Billing.BaseURL, "/")
	c.ProfileStore.BaseURL = strings.TrimRight(c.ProfileStore.BaseURL, "/")
}
