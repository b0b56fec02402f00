// middleware/metrics/metrics.go
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
)

var (
	responseTime = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gateway_response_time",
			Help:    "http response time.",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
		},
	)

	totalHttpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "gateway_http_requests_total", Help: "http requests by code and method"},
		[]string{"code", "method"},
	)

	requestsByService = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "gateway_requests_by_service_total", Help: "requests by classified downstream service"},
		[]string{"service", "code"},
	)

	credentialDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "gateway_credential_decisions_total", Help: "credential resolutions by service and outcome"},
		[]string{"service", "scope", "outcome"},
	)

	boundaryRejections = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "gateway_boundary_rejections_total", Help: "requests rejected by the boundary guard"},
	)
)

// CountCredential records one credential-selection decision.
func CountCredential(service, scope, outcome string) {
	credentialDecisions.WithLabelValues(service, scope, outcome).Inc()
}

// CountService records the classified service for a finished request.
func CountService(service, code string) {
	requestsByService.WithLabelValues(service, code).Inc()
}

// CountBoundaryRejection records one boundary-guard 403.
func CountBoundaryRejection() { boundaryRejections.Inc() }

func NewPromHttpHandler() http.Handler { return promhttp.Handler() }
func ProvideMetrics() http.Handler     { return NewPromHttpHandler() }

func init() {
	prometheus.MustRegister(
		responseTime,
		totalHttpRequests,
		requestsByService,
		credentialDecisions,
		boundaryRejections,
	)
}

var Module = fx.Options(
	fx.Provide(ProvideMetrics),
)
