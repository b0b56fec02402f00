// pkg/core/proxy.go
package core

import (
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/fhhd11/agent-gateway/pkg/config"
)

// hop-by-hop headers are owned by each connection and never forwarded.
var hopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// Proxy forwards classified, credential-rewritten requests to a backend and
// relays the response verbatim apart from two provenance headers. No retries,
// no response buffering.
type Proxy struct {
	hc  *http.Client
	log *zap.Logger
}

func NewProxy(log *zap.Logger) *Proxy {
	return &Proxy{
		// Header timeout bounds a hung backend without capping streamed
		// response bodies, which LLM backends hold open for minutes.
		hc: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:          32,
				IdleConnTimeout:       60 * time.Second,
				ResponseHeaderTimeout: 30 * time.Second,
			},
		},
		log: log,
	}
}

// TargetURL swaps the gateway-local prefix for the backend's own base path,
// preserving the query string.
func TargetURL(cfg config.Config, cls Classification, u *url.URL) (string, error) {
	var base string
	switch cls.Service {
	case ServiceAgent:
		if cfg.Letta.BaseURL == "" {
			return "", E(UpstreamConfigError, "agent server not configured")
		}
		// The agent server mounts its API under /v1.
		base = cfg.Letta.BaseURL + "/v1" + cls.SubPath
	case ServiceManagement:
		if cfg.Management.BaseURL == "" {
			return "", E(UpstreamConfigError, "management service not configured")
		}
		base = cfg.Management.BaseURL + cls.SubPath
	case ServiceBilling:
		if cfg.Billing.BaseURL == "" {
			return "", E(UpstreamConfigError, "billing backend not configured")
		}
		// Billing requests collapse onto the LLM backend's completion
		// endpoint regardless of which alias they arrived through.
		base = cfg.Billing.BaseURL + "/v1/chat/completions"
	default:
		return "", E(UpstreamConfigError, "unroutable request")
	}
	if u.RawQuery != "" {
		base += "?" + u.RawQuery
	}
	return base, nil
}

// Forward sends the request to target and relays the backend response. The
// rewrite callback runs on the outbound header set after the inbound headers
// have been copied; it is where credential injection and identity propagation
// land. The inbound context carries through, so a caller hanging up cancels
// the backend call.
func (p *Proxy) Forward(w http.ResponseWriter, r *http.Request, target string, rewrite func(http.Header)) int {
	out, err := http.NewRequestWithContext(r.Context(), r.Method, target, r.Body)
	if err != nil {
		p.log.Error("building upstream request failed", zap.String("target", target), zap.Error(err))
		WriteError(w, UpstreamConfigError, "Failed to proxy request")
		return http.StatusInternalServerError
	}
	out.Header = r.Header.Clone()
	for _, h := range hopHeaders {
		out.Header.Del(h)
	}
	if rewrite != nil {
		rewrite(out.Header)
	}

	res, err := p.hc.Do(out)
	if err != nil {
		p.log.Error("upstream request failed",
			zap.String("target", target),
			zap.String("method", r.Method),
			zap.Error(err),
		)
		WriteError(w, UpstreamUnavailable, "Failed to reach upstream service")
		return http.StatusBadGateway
	}
	defer res.Body.Close()

	dst := w.Header()
	for k, vv := range res.Header {
		for _, v := range vv {
			dst.Add(k, v)
		}
	}
	dst.Set("X-Proxied-From", gatewayName)
	dst.Set("X-Upstream-Status", strconv.Itoa(res.StatusCode))

	w.WriteHeader(res.StatusCode)
	p.relayBody(w, res.Body)
	return res.StatusCode
}

// relayBody streams the backend body to the caller, flushing as chunks arrive
// so server-sent token streams are not held back.
func (p *Proxy) relayBody(w http.ResponseWriter, body io.Reader) {
	flusher, _ := w.(http.Flusher)
	buf := make([]byte, 32*1024)
	for {
		n, err := body.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if err != nil {
			return
		}
	}
}
