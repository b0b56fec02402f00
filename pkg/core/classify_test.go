package core

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify_Partition(t *testing.T) {
	tests := []struct {
		name    string
		method  string
		path    string
		service Service
		subPath string
	}{
		{"letta root", http.MethodGet, "/api/v1/letta/agents", ServiceAgent, "/agents"},
		{"letta deep", http.MethodPost, "/api/v1/letta/agents/ag-1/memory/messages", ServiceAgent, "/agents/ag-1/memory/messages"},
		{"letta prefix only", http.MethodGet, "/api/v1/letta", ServiceAgent, ""},
		{"management create", http.MethodPost, "/api/v1/agents/create", ServiceManagement, "/create"},
		{"management status", http.MethodGet, "/api/v1/agents/status", ServiceManagement, "/status"},
		{"billing alias", http.MethodPost, "/api/v1/agents/user-42/messages", ServiceBilling, "/user-42/messages"},
		{"billing alias deep", http.MethodPost, "/api/v1/agents/user-42/messages/stream", ServiceBilling, "/user-42/messages/stream"},
		{"unrelated", http.MethodGet, "/health", ServiceNone, ""},
		{"root", http.MethodGet, "/", ServiceNone, ""},
		{"near miss", http.MethodGet, "/api/v1/lettab/agents", ServiceNone, ""},
		{"unnormalized", http.MethodGet, "/api/v1//letta/agents", ServiceAgent, "/agents"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cls := Classify(tt.method, tt.path)
			assert.Equal(t, tt.service, cls.Service)
			assert.Equal(t, tt.subPath, cls.SubPath)
		})
	}
}

// Management and agent-server prefixes never cross-classify: the rule table is
// a total, deterministic partition.
func TestClassify_PrefixesNeverCross(t *testing.T) {
	managementPaths := []string{
		"/api/v1/agents/create",
		"/api/v1/agents/status",
		"/api/v1/agents/ag-1",
		"/api/v1/agents/ag-1/manage",
	}
	for _, p := range managementPaths {
		assert.NotEqual(t, ServiceAgent, Classify(http.MethodGet, p).Service, p)
	}
	lettaPaths := []string{
		"/api/v1/letta/agents",
		"/api/v1/letta/agents/ag-1/messages",
	}
	for _, p := range lettaPaths {
		cls := Classify(http.MethodGet, p)
		assert.Equal(t, ServiceAgent, cls.Service, p)
	}
}

func TestClassify_Deterministic(t *testing.T) {
	first := Classify(http.MethodPost, "/api/v1/agents/u1/messages")
	for i := 0; i < 50; i++ {
		assert.Equal(t, first, Classify(http.MethodPost, "/api/v1/agents/u1/messages"))
	}
}
