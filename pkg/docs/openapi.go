// pkg/docs/openapi.go
package docs

import (
	"encoding/json"
	"net/http"
)

// OpenAPIHandler serves the OpenAPI document. The document is static apart
// from the servers entry, which reflects the request origin.
func OpenAPIHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		spec := map[string]any{
			"openapi": "3.0.3",
			"info": map[string]any{
				"title":       "AI Agent Platform API",
				"description": "Unified API for agent management and chat interactions",
				"version":     "3.1.0",
			},
			"servers": []map[string]string{
				{"url": origin(r), "description": "Current environment"},
			},
			"components": map[string]any{
				"securitySchemes": map[string]any{
					"BearerAuth": map[string]string{
						"type":         "http",
						"scheme":       "bearer",
						"bearerFormat": "Agent Secret Key",
					},
					"UserJWT": map[string]string{
						"type":         "http",
						"scheme":       "bearer",
						"bearerFormat": "JWT",
					},
				},
			},
			"paths": map[string]any{
				"/health": map[string]any{
					"get": map[string]any{
						"summary":   "Aggregated health of dependent services",
						"responses": map[string]any{"200": okResponse, "503": map[string]string{"description": "A configured dependency is down"}},
					},
				},
				"/api/v1/agents/{userid}/messages": map[string]any{
					"post": map[string]any{
						"summary":  "Send a message on behalf of a user (per-user billing)",
						"security": []map[string]any{{"BearerAuth": []string{}}},
						"parameters": []map[string]any{
							{"name": "userid", "in": "path", "required": true, "schema": map[string]string{"type": "string"}},
						},
						"responses": map[string]any{"200": okResponse, "401": errResponse, "403": errResponse},
					},
				},
				"/api/v1/letta/agents": map[string]any{
					"get": map[string]any{
						"summary":   "List agents on the Letta server",
						"security":  []map[string]any{{"UserJWT": []string{}}},
						"responses": map[string]any{"200": okResponse},
					},
				},
			},
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "public, max-age=300")
		_ = json.NewEncoder(w).Encode(spec)
	}
}

var (
	okResponse  = map[string]string{"description": "Success"}
	errResponse = map[string]string{"description": "Error envelope"}
)
