package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	redisv9 "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	redispkg "threelance.backend/pkg/redis"
)

func startMiniRedis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	srv, err := miniredis.Run()
	if err != nil {
		t.Skipf("skip: miniredis unavailable in this environment: %v", err)
	}
	cli := redisv9.NewClient(&redisv9.Options{Addr: srv.Addr()})
	redispkg.SetClient(cli)
	t.Cleanup(func() {
		_ = cli.Close()
		redispkg.SetClient(nil)
		srv.Close()
	})
	return srv
}

func newIdempotentRouter(operator uuid.UUID, status int, calls *int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set(OperatorIDKey, operator); c.Next() })
	r.Use(IdempotencyMiddleware())
	r.POST("/x", func(c *gin.Context) {
		*calls++
		c.JSON(status, gin.H{"call": *calls})
	})
	return r
}

func postWithKey(r *gin.Engine, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/x", nil)
	if key != "" {
		req.Header.Set(IdempotencyHeader, key)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestIdempotencyMiddleware_NoRedisPassthrough(t *testing.T) {
	redispkg.SetClient(nil)
	calls := 0
	r := newIdempotentRouter(uuid.New(), http.StatusCreated, &calls)

	require.Equal(t, http.StatusCreated, postWithKey(r, "k").Code)
	require.Equal(t, http.StatusCreated, postWithKey(r, "k").Code)
	require.Equal(t, 2, calls)
}

func TestIdempotencyMiddleware_NoHeaderPassthrough(t *testing.T) {
	startMiniRedis(t)
	calls := 0
	r := newIdempotentRouter(uuid.New(), http.StatusCreated, &calls)

	postWithKey(r, "")
	postWithKey(r, "")
	require.Equal(t, 2, calls)
}

func TestIdempotencyMiddleware_ReplaysStoredResponse(t *testing.T) {
	srv := startMiniRedis(t)
	operator := uuid.New()
	calls := 0
	r := newIdempotentRouter(operator, http.StatusCreated, &calls)

	first := postWithKey(r, "create-1")
	require.Equal(t, http.StatusCreated, first.Code)
	require.True(t, srv.Exists(idempotencyStorageKey(operator.String(), "create-1", nil)))

	second := postWithKey(r, "create-1")
	require.Equal(t, http.StatusCreated, second.Code)
	require.Equal(t, "true", second.Header().Get("X-Idempotency-Hit"))
	require.JSONEq(t, first.Body.String(), second.Body.String())
	require.Equal(t, 1, calls)

	// keys are per operator
	other := newIdempotentRouter(uuid.New(), http.StatusCreated, &calls)
	require.Empty(t, postWithKey(other, "create-1").Header().Get("X-Idempotency-Hit"))
	require.Equal(t, 2, calls)
}

func TestIdempotencyMiddleware_FailureReleasesKey(t *testing.T) {
	srv := startMiniRedis(t)
	operator := uuid.New()
	calls := 0
	r := newIdempotentRouter(operator, http.StatusBadRequest, &calls)

	require.Equal(t, http.StatusBadRequest, postWithKey(r, "k").Code)
	require.False(t, srv.Exists(idempotencyStorageKey(operator.String(), "k", nil)))
	require.Equal(t, http.StatusBadRequest, postWithKey(r, "k").Code)
	require.Equal(t, 2, calls)
}

func TestIdempotencyMiddleware_ProcessingConflict(t *testing.T) {
	srv := startMiniRedis(t)
	operator := uuid.New()
	require.NoError(t, srv.Set(idempotencyStorageKey(operator.String(), "busy", nil), processingMarker))

	calls := 0
	r := newIdempotentRouter(operator, http.StatusCreated, &calls)
	rec := postWithKey(r, "busy")
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Contains(t, rec.Body.String(), "IDEMPOTENCY_CONFLICT")
	require.Zero(t, calls)
}

func TestIdempotencyMiddleware_HookedFailures(t *testing.T) {
	startMiniRedis(t)
	origGet, origSetNX := redisGet, redisSetNX
	t.Cleanup(func() { redisGet, redisSetNX = origGet, origSetNX })

	calls := 0
	r := newIdempotentRouter(uuid.New(), http.StatusCreated, &calls)

	t.Run("lookup error runs handler", func(t *testing.T) {
		redisGet = func(context.Context, string) (string, error) { return "", errors.New("down") }
		require.Equal(t, http.StatusCreated, postWithKey(r, "a").Code)
	})

	t.Run("lost lock race", func(t *testing.T) {
		redisGet = origGet
		redisSetNX = func(context.Context, string, interface{}, time.Duration) (bool, error) { return false, nil }
		require.Equal(t, http.StatusConflict, postWithKey(r, "b").Code)
	})

	t.Run("legacy raw body replays as 200", func(t *testing.T) {
		redisGet = func(context.Context, string) (string, error) { return `{"ok":true}`, nil }
		rec := postWithKey(r, "c")
		require.Equal(t, http.StatusOK, rec.Code)
		require.JSONEq(t, `{"ok":true}`, rec.Body.String())
	})
}

func newAnonymousRouter(calls *int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(IdempotencyMiddleware())
	r.POST("/x", func(c *gin.Context) {
		*calls++
		raw, _ := io.ReadAll(c.Request.Body)
		c.JSON(http.StatusAccepted, gin.H{"call": *calls, "body": string(raw)})
	})
	return r
}

func postAnonymous(r *gin.Engine, remoteAddr, key, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(body))
	req.RemoteAddr = remoteAddr
	req.Header.Set(IdempotencyHeader, key)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestIdempotencyMiddleware_AnonymousScopedByClientAndBody(t *testing.T) {
	startMiniRedis(t)
	calls := 0
	r := newAnonymousRouter(&calls)

	first := postAnonymous(r, "10.0.0.1:5000", "same", `{"rawTransaction":"0xaa"}`)
	require.Equal(t, http.StatusAccepted, first.Code)
	require.Contains(t, first.Body.String(), "0xaa")

	// same key, different payload runs the handler and sees its own body
	second := postAnonymous(r, "10.0.0.1:5000", "same", `{"rawTransaction":"0xbb"}`)
	require.Equal(t, http.StatusAccepted, second.Code)
	require.Empty(t, second.Header().Get("X-Idempotency-Hit"))
	require.Contains(t, second.Body.String(), "0xbb")

	// same key and payload from another client is not a replay
	other := postAnonymous(r, "10.0.0.2:5000", "same", `{"rawTransaction":"0xaa"}`)
	require.Empty(t, other.Header().Get("X-Idempotency-Hit"))
	require.Equal(t, 3, calls)

	retry := postAnonymous(r, "10.0.0.1:5000", "same", `{"rawTransaction":"0xaa"}`)
	require.Equal(t, "true", retry.Header().Get("X-Idempotency-Hit"))
	require.JSONEq(t, first.Body.String(), retry.Body.String())
	require.Equal(t, 3, calls)
}
