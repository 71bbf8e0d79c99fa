package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func limitedRequest(rl *RateLimiter, remoteAddr, forwardedFor string) int {
	h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = remoteAddr
	if forwardedFor != "" {
		req.Header.Set("X-Forwarded-For", forwardedFor)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code
}

func TestRateLimiter_IgnoresForwardedForByDefault(t *testing.T) {
	rl := NewRateLimiter(0.001, 1, false)

	assert.Equal(t, http.StatusOK, limitedRequest(rl, "10.0.0.1:5000", "1.1.1.1"))
	// rotating the header does not buy a fresh limiter
	assert.Equal(t, http.StatusTooManyRequests, limitedRequest(rl, "10.0.0.1:5001", "2.2.2.2"))
	assert.Equal(t, 1, rl.Clients())
}

func TestRateLimiter_TrustedProxyUsesFirstHop(t *testing.T) {
	rl := NewRateLimiter(0.001, 1, true)

	assert.Equal(t, http.StatusOK, limitedRequest(rl, "10.0.0.1:5000", "1.1.1.1, 10.0.0.1"))
	assert.Equal(t, http.StatusOK, limitedRequest(rl, "10.0.0.1:5000", "2.2.2.2"))
	assert.Equal(t, http.StatusTooManyRequests, limitedRequest(rl, "10.0.0.1:5000", "1.1.1.1"))
}

func TestRateLimiter_EvictsIdleClients(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(10, 5, false)
	rl.now = func() time.Time { return now }

	for i := 0; i < 50; i++ {
		limitedRequest(rl, fmt.Sprintf("10.0.0.%d:4000", i), "")
	}
	assert.Equal(t, 50, rl.Clients())

	now = now.Add(idleLimiterTTL + time.Second)
	limitedRequest(rl, "192.168.1.1:4000", "")
	assert.Equal(t, 1, rl.Clients())
}
