// pkg/core/guard.go
package core

import (
	"net/http"
	"strings"
)

// Rejection is a boundary-guard verdict: the operation must go through the
// management service, never the direct agent-server passthrough.
type Rejection struct {
	Reason string
	Hint   string
}

// denyRule matches a method against either an exact sub-path (plus anything
// below it) or a path shape with a fixed segment count.
type denyRule struct {
	method string
	path   string
	// depth, when non-zero, restricts the match to sub-paths with exactly this
	// many segments under the rule path. DELETE /agents/{id} is denied while
	// DELETE /agents/{id}/memory is not.
	depth int
	hint  string
}

var denyRules = []denyRule{
	{method: http.MethodPost, path: "/agents", hint: "use /api/v1/agents/create to create agents"},
	{method: http.MethodPost, path: "/agents/create", hint: "use /api/v1/agents/create to create agents"},
	{method: http.MethodDelete, path: "/agents", depth: 1, hint: "use the management service to delete agents"},
}

// CheckBoundary evaluates the fixed deny-list against a (method, sub-path)
// pair. The sub-path is the portion after the agent-server prefix. The check is
// local and side-effect free; it runs before any credential is resolved or any
// byte leaves the process. A nil return means the request may proceed.
func CheckBoundary(method, subPath string) *Rejection {
	p := normalizePath(subPath)
	for _, r := range denyRules {
		if r.method != method {
			continue
		}
		if r.depth > 0 {
			if segmentsUnder(p, r.path) == r.depth {
				return &Rejection{
					Reason: "agent lifecycle operations must go through the management service",
					Hint:   r.hint,
				}
			}
			continue
		}
		if p == r.path || strings.HasPrefix(p, r.path+"/") {
			return &Rejection{
				Reason: "agent creation must go through the management service",
				Hint:   r.hint,
			}
		}
	}
	return nil
}

// segmentsUnder counts path segments below base, or -1 when p is not under it.
func segmentsUnder(p, base string) int {
	if p == base {
		return 0
	}
	if !strings.HasPrefix(p, base+"/") {
		return -1
	}
	rest := strings.Trim(p[len(base)+1:], "/")
	if rest == "" {
		return 0
	}
	return strings.Count(rest, "/") + 1
}
