package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func TestMiddlewareLimitsPerClient(t *testing.T) {
	l := New(rate.Limit(0.001), 2, time.Minute, nil)
	h := l.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	do := func(remote string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusNoContent, do("10.0.0.1:1000"))
	assert.Equal(t, http.StatusNoContent, do("10.0.0.1:1001"))
	assert.Equal(t, http.StatusTooManyRequests, do("10.0.0.1:1002"))
	assert.Equal(t, http.StatusNoContent, do("10.0.0.2:1000"))
}

func TestClientIPHonoursTrustedProxiesOnly(t *testing.T) {
	l := New(rate.Inf, 1, time.Minute, []string{"192.168.0.0/16", "10.1.1.1"})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 192.168.1.1")

	req.RemoteAddr = "192.168.1.1:5000"
	assert.Equal(t, "203.0.113.9", l.ClientIP(req))

	req.RemoteAddr = "10.1.1.1:5000"
	assert.Equal(t, "203.0.113.9", l.ClientIP(req))

	req.RemoteAddr = "198.51.100.7:5000"
	assert.Equal(t, "198.51.100.7", l.ClientIP(req))

	req.Header.Del("X-Forwarded-For")
	req.Header.Set("X-Real-IP", "203.0.113.10")
	req.RemoteAddr = "192.168.1.1:5000"
	assert.Equal(t, "203.0.113.10", l.ClientIP(req))
}

func TestSweepDropsIdleEntries(t *testing.T) {
	l := New(rate.Inf, 1, time.Minute, nil)
	l.Allow("10.0.0.1")
	l.sweep(time.Now().Add(2 * time.Minute))
	l.mu.Lock()
	defer l.mu.Unlock()
	assert.Empty(t, l.limiters)
}
