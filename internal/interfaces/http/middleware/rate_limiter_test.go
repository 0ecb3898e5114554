package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_BlocksOverBurst(t *testing.T) {
	gin.SetMode(gin.TestMode)
	limiter := NewRateLimiter(0.001, 2)

	r := gin.New()
	r.Use(limiter.Middleware())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	get := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.RemoteAddr = ip + ":1234"
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec.Code
	}

	require.Equal(t, http.StatusNoContent, get("10.0.0.1"))
	require.Equal(t, http.StatusNoContent, get("10.0.0.1"))
	require.Equal(t, http.StatusTooManyRequests, get("10.0.0.1"))
	// separate bucket per client
	require.Equal(t, http.StatusNoContent, get("10.0.0.2"))
}

func TestRateLimiter_EvictsIdleClients(t *testing.T) {
	limiter := NewRateLimiter(1, 0)
	now := time.Unix(1_700_000_000, 0)
	limiter.now = func() time.Time { return now }

	first := limiter.get("a")
	limiter.get("b")
	require.Len(t, limiter.clients, 2)

	now = now.Add(limiterIdleTTL + time.Second)
	require.NotSame(t, first, limiter.get("a"))
	require.Len(t, limiter.clients, 1)
	require.Equal(t, 1, limiter.burst)
}

func TestRateLimiter_SweepsAtMostOncePerInterval(t *testing.T) {
	limiter := NewRateLimiter(1, 1)
	now := time.Unix(1_700_000_000, 0)
	limiter.now = func() time.Time { return now }

	limiter.get("a")
	require.Equal(t, now, limiter.lastSweep)

	// "a" is idle past its TTL, but the last sweep is too recent to rescan
	limiter.lastSweep = now.Add(limiterIdleTTL)
	now = now.Add(limiterIdleTTL + time.Second)
	limiter.get("b")
	require.Len(t, limiter.clients, 2)

	now = now.Add(limiterSweepInterval)
	limiter.get("b")
	require.Len(t, limiter.clients, 1)
	require.Contains(t, limiter.clients, "b")
}
