// middleware/logger/middleware.go
package logger

import (
	"net/http"
	"time"

	chimd "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/fhhd11/agent-gateway/pkg/middleware/auth"
)

type Middleware struct{}

// package-level singleton for access logs
var httpAccessLogger = NewLog("http-access.log")

// Middleware records one access-log line per request: routing context plus the
// resolved caller, never request bodies (they may carry prompts and keys).
func (m *Middleware) Middleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimd.NewWrapResponseWriter(w, r.ProtoMajor)

			scheme := "http"
			if r.TLS != nil {
				scheme = "https"
			}

			start := time.Now()
			defer func() {
				id := auth.IdentityFromContext(r.Context())
				httpAccessLogger.Info("",
					zap.String("dateTime", start.UTC().Format(time.RFC1123)),
					zap.String("requestId", chimd.GetReqID(r.Context())),
					zap.String("httpScheme", scheme),
					zap.Bool("isAuthenticated", id.Subject != ""),
					zap.String("caller", id.Subject),
					zap.String("callerSource", id.Source),
					zap.String("httpProto", r.Proto),
					zap.String("httpMethod", r.Method),
					zap.String("remoteAddr", r.RemoteAddr),
					zap.String("uri", r.URL.Path),
					zap.Duration("lat", time.Since(start)),
					zap.Int("responseSize", ww.BytesWritten()),
					zap.Int("status", ww.Status()),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
