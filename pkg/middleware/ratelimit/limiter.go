// middleware/ratelimit/limiter.go
package ratelimit

import (
	"sync"

	"golang.org/x/time/rate"

	"github.com/fhhd11/agent-gateway/pkg/config"
)

// Limiter applies a token bucket per caller identity. The key is the subject
// the identity propagator attached to the context, so limits follow the end
// user even after the Authorization header has been rewritten to a shared
// service credential.
type Limiter struct {
	rps   rate.Limit
	burst int

	mu      sync.Mutex
	buckets map[string]*rate.Limiter
}

func New(cfg config.Config) *Limiter {
	return &Limiter{
		rps:     rate.Limit(cfg.RateLimit.RPS),
		burst:   cfg.RateLimit.Burst,
		buckets: make(map[string]*rate.Limiter),
	}
}

// Enabled is false when no limit is configured; the middleware then passes
// everything through.
func (l *Limiter) Enabled() bool { return l.rps > 0 && l.burst > 0 }

func (l *Limiter) bucket(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.buckets[key]
	if !ok {
		b = rate.NewLimiter(l.rps, l.burst)
		l.buckets[key] = b
	}
	return b
}

// Allow reports whether the caller identified by key may proceed. It is called
// after identity resolution so the bucket follows the end user, not the shared
// downstream credential. An unconfigured limiter admits everything.
func (l *Limiter) Allow(key string) bool {
	if !l.Enabled() {
		return true
	}
	if key == "" {
		key = "anonymous"
	}
	return l.bucket(key).Allow()
}
