// pkg/core/health.go
package core

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fhhd11/agent-gateway/pkg/config"
)

// ProbeStatus is one dependency's health verdict. NOT_CONFIGURED is distinct
// from ERROR: the former means nothing is expected of the dependency, the
// latter means it should be up and is not.
type ProbeStatus string

const (
	StatusOK            ProbeStatus = "ok"
	StatusError         ProbeStatus = "error"
	StatusNotConfigured ProbeStatus = "not_configured"
)

type healthReport struct {
	Status    string                 `json:"status"`
	Service   string                 `json:"service"`
	Timestamp string                 `json:"timestamp"`
	Checks    map[string]ProbeStatus `json:"checks"`
}

type probe struct {
	name string
	url  string
	// header, when set, is attached to the probe request (the profile store
	// requires its api key even on the root listing).
	headerName  string
	headerValue string
}

// HealthAggregator probes each dependent service and folds the results into
// one composite status.
type HealthAggregator struct {
	probes []probe
	hc     *http.Client
	log    *zap.Logger
}

func NewHealthAggregator(cfg config.Config, log *zap.Logger) *HealthAggregator {
	return &HealthAggregator{
		probes: []probe{
			{name: "letta", url: join(cfg.Letta.BaseURL, "/v1/health/")},
			{name: "management", url: join(cfg.Management.BaseURL, "/health")},
			{name: "litellm", url: join(cfg.Billing.BaseURL, "/health")},
			{
				name:        "supabase",
				url:         join(cfg.ProfileStore.BaseURL, "/rest/v1/"),
				headerName:  "apikey",
				headerValue: cfg.ProfileStore.ServiceRoleKey,
			},
		},
		hc:  &http.Client{Timeout: 5 * time.Second},
		log: log,
	}
}

func join(base, p string) string {
	if base == "" {
		return ""
	}
	return base + p
}

// Check probes all dependencies concurrently. Overall status is ok exactly
// when every configured dependency reports ok; unconfigured dependencies never
// degrade the composite.
func (h *HealthAggregator) Check(ctx context.Context) (overall bool, checks map[string]ProbeStatus) {
	checks = make(map[string]ProbeStatus, len(h.probes))
	results := make([]ProbeStatus, len(h.probes))

	g, ctx := errgroup.WithContext(ctx)
	for i, p := range h.probes {
		i, p := i, p
		g.Go(func() error {
			results[i] = h.probeOne(ctx, p)
			return nil
		})
	}
	_ = g.Wait()

	overall = true
	for i, p := range h.probes {
		checks[p.name] = results[i]
		if results[i] == StatusError {
			overall = false
		}
	}
	return overall, checks
}

// probeOne never panics or propagates; any failure downgrades to ERROR for
// that one component.
func (h *HealthAggregator) probeOne(ctx context.Context, p probe) ProbeStatus {
	if p.url == "" {
		return StatusNotConfigured
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return StatusError
	}
	if p.headerName != "" {
		req.Header.Set(p.headerName, p.headerValue)
	}
	res, err := h.hc.Do(req)
	if err != nil {
		h.log.Warn("health probe failed", zap.String("component", p.name), zap.Error(err))
		return StatusError
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode > 299 {
		h.log.Warn("health probe degraded",
			zap.String("component", p.name),
			zap.Int("status", res.StatusCode),
		)
		return StatusError
	}
	return StatusOK
}

// Handler serves the health endpoint: 200 when the composite is ok, 503 when
// any configured dependency is down.
func (h *HealthAggregator) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ok, checks := h.Check(r.Context())

		status := "ok"
		code := http.StatusOK
		if !ok {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(healthReport{
			Status:    status,
			Service:   gatewayName,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Checks:    checks,
		})
	}
}

// ComponentNames lists the probed components in stable order, for tests and
// the docs responder.
func (h *HealthAggregator) ComponentNames() []string {
	names := make([]string, 0, len(h.probes))
	for _, p := range h.probes {
		names = append(names, p.name)
	}
	sort.Strings(names)
	return names
}
