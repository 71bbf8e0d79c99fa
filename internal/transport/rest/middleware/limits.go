package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RequestSizeLimiter limits the size of incoming request bodies
func RequestSizeLimiter(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

// idleLimiterTTL is how long a client's limiter is kept after its last request
const idleLimiterTTL = 10 * time.Minute

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter implements per-IP rate limiting. Limiters idle for longer than
// idleLimiterTTL are evicted.
type RateLimiter struct {
	limiters   map[string]*clientLimiter
	mu         sync.Mutex
	rate       rate.Limit
	burst      int
	trustProxy bool
	lastSweep  time.Time
	now        func() time.Time
}

// NewRateLimiter creates a new rate limiter allowing ratePerSec requests per
// second per client with the given burst. X-Forwarded-For is only used to
// identify clients when trustProxy is set.
func NewRateLimiter(ratePerSec float64, burst int, trustProxy bool) *RateLimiter {
	return &RateLimiter{
		limiters:   make(map[string]*clientLimiter),
		rate:       rate.Limit(ratePerSec),
		burst:      burst,
		trustProxy: trustProxy,
		now:        time.Now,
	}
}

func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastSweep) >= idleLimiterTTL {
		for k, cl := range rl.limiters {
			if now.Sub(cl.lastSeen) >= idleLimiterTTL {
				delete(rl.limiters, k)
			}
		}
		rl.lastSweep = now
	}

	cl, exists := rl.limiters[key]
	if !exists {
		cl = &clientLimiter{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[key] = cl
	}
	cl.lastSeen = now
	return cl.limiter
}

// Clients returns the number of clients currently tracked
func (rl *RateLimiter) Clients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}

// Middleware returns the rate limiting middleware
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.getLimiter(rl.clientKey(r)).Allow() {
			http.Error(w, `{"error":"rate limit exceeded"}`, http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientKey is the remote host, or the first X-Forwarded-For hop behind a trusted proxy
func (rl *RateLimiter) clientKey(r *http.Request) string {
	if rl.trustProxy {
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			first, _, _ := strings.Cut(fwd, ",")
			return strings.TrimSpace(first)
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
