// pkg/core/classify.go
package core

import (
	"path"
	"strings"
)

// Service identifies the downstream a request is routed to.
type Service string

const (
	// ServiceAgent is the Letta agent server reached through the direct
	// passthrough prefix.
	ServiceAgent Service = "letta"
	// ServiceManagement is the agent-management service (AMS).
	ServiceManagement Service = "management"
	// ServiceBilling is the billing-proxied LLM backend; requests carry a
	// per-user credential resolved at request time.
	ServiceBilling Service = "billing"
	// ServiceNone marks paths this gateway does not rewrite (docs, preflight,
	// health). Such requests never receive downstream credentials.
	ServiceNone Service = "none"
)

const (
	lettaPrefix  = "/api/v1/letta"
	agentsPrefix = "/api/v1/agents"
)

// Classification is the result of routing a single request. Derived per
// request, never stored.
type Classification struct {
	Service Service
	// SubPath is the path with the service prefix stripped, e.g.
	// /api/v1/letta/agents/x -> /agents/x. Empty for ServiceNone.
	SubPath string
}

// classifyRule matches on a path prefix plus an optional substring. The table
// below is ordered most-specific-first; the first match wins, which makes
// legacy aliases plain extra rows instead of separate code paths.
type classifyRule struct {
	prefix   string
	contains string
	service  Service
}

var classifyRules = []classifyRule{
	// Messages under the agents prefix are the billing alias: they go to the
	// per-user LLM proxy, not to AMS, and must classify identically to any
	// future direct billing route.
	{prefix: agentsPrefix, contains: "/messages", service: ServiceBilling},
	{prefix: lettaPrefix, service: ServiceAgent},
	{prefix: agentsPrefix, service: ServiceManagement},
}

// Classify maps a normalized (method, path) pair onto exactly one service. It
// is a pure function: same input, same result, no side effects. Method is
// currently unused by the rule table but part of the contract so rules can
// become method-sensitive without changing call sites.
func Classify(method, rawPath string) Classification {
	p := normalizePath(rawPath)
	for _, r := range classifyRules {
		if !prefixMatch(p, r.prefix) {
			continue
		}
		if r.contains != "" && !strings.Contains(p, r.contains) {
			continue
		}
		return Classification{
			Service: r.service,
			SubPath: strings.TrimPrefix(p, r.prefix),
		}
	}
	return Classification{Service: ServiceNone}
}

// prefixMatch requires a segment boundary: /api/v1/lettab must not match the
// letta prefix.
func prefixMatch(p, prefix string) bool {
	if !strings.HasPrefix(p, prefix) {
		return false
	}
	return len(p) == len(prefix) || p[len(prefix)] == '/'
}

func normalizePath(p string) string {
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}
