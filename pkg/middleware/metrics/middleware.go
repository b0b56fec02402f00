// middleware/metrics/middleware.go
package metrics

import (
	"net/http"
	"strconv"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// Collect produces the HTTP middleware that records the counters/histogram.
func Collect() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			startTime := time.Now()

			defer func() {
				// Skip self-scrape
				if r.URL.Path == "/metrics" {
					return
				}
				code := strconv.Itoa(ww.Status())
				totalHttpRequests.WithLabelValues(code, r.Method).Inc()
				responseTime.Observe(time.Since(startTime).Seconds())
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
