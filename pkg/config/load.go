// pkg/config/load.go
package config

import (
	"os"

	toml "github.com/pelletier/go-toml/v2"
)

// Load reads the gateway manifest, applies environment overrides, normalizes,
// and validates. A missing manifest file is not an error; a fully env-driven
// deployment carries no file at all.
func Load(path string) (Config, error) {
	var cfg Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err == nil {
			if err := toml.Unmarshal(b, &cfg); err != nil {
				return Config{}, err
			}
		} else if !os.IsNotExist(err) {
			return Config{}, err
		}
	}
	applyEnv(&cfg)
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv maps the deployment environment onto the config. Environment always
// wins over the manifest so secrets can be injected without touching the file.
func applyEnv(c *Config) {
	setIf(&c.Letta.BaseURL, "LETTA_BASE_URL")
	setIf(&c.Letta.APIKey, "LETTA_API_KEY")
	setIf(&c.Management.BaseURL, "AGENT_MANAGEMENT_URL")
	setIf(&c.Management.APIKey, "AGENT_MANAGEMENT_KEY")
	setIf(&c.Billing.BaseURL, "LITELLM_BASE_URL")
	setIf(&c.ProfileStore.BaseURL, "SUPABASE_URL")
	setIf(&c.ProfileStore.ServiceRoleKey, "SUPABASE_SERVICE_ROLE_KEY")
	setIf(&c.Auth.JWTSecret, "SUPABASE_JWT_SECRET")
	setIf(&c.Auth.Issuer, "JWT_ISSUER")
	setIf(&c.Auth.Audience, "JWT_AUDIENCE")
	setIf(&c.Auth.AgentSecret, "AGENT_SECRET_KEY")
	setIf(&c.Auth.ServiceSecret, "SERVICE_SECRET_KEY")
}

func setIf(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}
