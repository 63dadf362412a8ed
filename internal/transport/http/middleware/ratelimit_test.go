package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func newTrustingLimiter(t *testing.T, cidrs ...string) *RateLimiter {
	t.Helper()
	rl := NewRateLimiter(rate.Limit(0.001), 1)
	t.Cleanup(rl.Stop)
	require.NoError(t, rl.TrustProxies(cidrs))
	return rl
}

func TestClientIP_UntrustedPeerIgnoresForwardingHeaders(t *testing.T) {
	rl := newTrustingLimiter(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.7:40000"
	req.Header.Set("X-Forwarded-For", "1.2.3.4, 5.6.7.8")
	req.Header.Set("X-Real-Ip", "9.10.11.12")
	assert.Equal(t, "203.0.113.7", rl.clientIP(req))
}

func TestClientIP_RemoteAddrWithoutPort(t *testing.T) {
	rl := newTrustingLimiter(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.1"
	assert.Equal(t, "192.168.1.1", rl.clientIP(req))
}

func TestClientIP_TrustedProxyUsesRightmostUntrustedHop(t *testing.T) {
	rl := newTrustingLimiter(t, "10.0.0.0/8")
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.5:443"
	req.Header.Set("X-Forwarded-For", "6.6.6.6, 1.2.3.4, 10.0.0.9")
	assert.Equal(t, "1.2.3.4", rl.clientIP(req))
}

func TestClientIP_TrustedProxyFallsBackToXRealIP(t *testing.T) {
	rl := newTrustingLimiter(t, "10.0.0.5")
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.5:443"
	req.Header.Set("X-Real-Ip", "9.10.11.12")
	assert.Equal(t, "9.10.11.12", rl.clientIP(req))
}

func TestTrustProxies_InvalidEntry(t *testing.T) {
	rl := NewRateLimiter(rate.Limit(1), 1)
	defer rl.Stop()
	assert.Error(t, rl.TrustProxies([]string{"not-an-ip"}))
	assert.Error(t, rl.TrustProxies([]string{"10.0.0.0/99"}))
}

func TestLimit_RotatingForwardedForStillLimited(t *testing.T) {
	rl := NewRateLimiter(rate.Limit(0.001), 10)
	defer rl.Stop()
	h := rl.Limit(http.HandlerFunc(okHandler))

	allowed := 0
	for i := 0; i < 100; i++ {
		req := httptest.NewRequest(http.MethodPost, "/auth/verify-otp", nil)
		req.RemoteAddr = "203.0.113.7:5555"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("198.51.100.%d", i))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code == http.StatusOK {
			allowed++
		} else {
			assert.Equal(t, http.StatusTooManyRequests, rr.Code)
		}
	}
	assert.Equal(t, 10, allowed)

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.Len(t, rl.limiters, 1)
}

func TestLimit_RejectsOverBurst(t *testing.T) {
	rl := NewRateLimiter(rate.Limit(0.001), 2)
	defer rl.Stop()
	h := rl.Limit(http.HandlerFunc(okHandler))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestLimit_SeparateBucketsPerIP(t *testing.T) {
	rl := NewRateLimiter(rate.Limit(0.001), 1)
	defer rl.Stop()
	h := rl.Limit(http.HandlerFunc(okHandler))

	for _, ip := range []string{"10.0.0.1:1", "10.0.0.2:1"} {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = ip
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)
	}
}
