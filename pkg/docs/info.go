// pkg/docs/info.go
package docs

import (
	"encoding/json"
	"net/http"
)

// InfoHandler serves the API catalog at the root path. Fixed output derived
// only from the request origin; no gateway state is consulted.
func InfoHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		base := origin(r)
		info := map[string]any{
			"name":        "AI Agent Platform API Gateway",
			"version":     "2.0.0",
			"description": "Unified API Gateway for AI agents with per-user LLM billing, Letta Server proxy, and Agent Management Service",
			"docs":        base + "/docs",
			"health":      base + "/health",
			"openapi":     base + "/api.json",
			"endpoints": map[string]any{
				"system": map[string]string{
					"health": base + "/health",
					"docs":   base + "/docs",
					"info":   base + "/",
				},
				"agents": map[string]string{
					"proxy":  base + "/api/v1/agents/{userid}/messages",
					"create": base + "/api/v1/agents/create",
					"status": base + "/api/v1/agents/status",
				},
				"letta": map[string]string{
					"agents":       base + "/api/v1/letta/agents",
					"agent_detail": base + "/api/v1/letta/agents/{agent_id}",
					"messages":     base + "/api/v1/letta/agents/{agent_id}/messages",
				},
			},
			"authentication": map[string]string{
				"user_jwt":     "Use a JWT token for user endpoints",
				"agent_secret": "Use the agent secret key for agent proxy endpoints",
				"service_key":  "Use the service secret key for internal service endpoints",
			},
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "public, max-age=300")
		_ = json.NewEncoder(w).Encode(info)
	}
}

func origin(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}
