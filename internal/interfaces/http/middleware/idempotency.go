package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	domainerrors "threelance.backend/internal/domain/errors"
	"threelance.backend/internal/interfaces/http/response"
	"threelance.backend/pkg/logger"
	"threelance.backend/pkg/redis"
)

const (
	IdempotencyHeader = "Idempotency-Key"
	// LockDuration is the time we hold the lock while processing
	LockDuration = 30 * time.Second
	// RetentionDuration is how long we keep the response
	RetentionDuration = 24 * time.Hour

	processingMarker = "processing"
)

var (
	redisGet   = redis.Get
	redisSet   = redis.Set
	redisSetNX = redis.SetNX
	redisDel   = redis.Del
)

type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w responseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

type storedResponse struct {
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body"`
}

// idempotencyStorageKey scopes key to the caller and the request body, so a
// reused key never replays a response produced for another payload.
func idempotencyStorageKey(scope, key string, body []byte) string {
	sum := sha256.Sum256(body)
	return fmt.Sprintf("idempotency:%s:%s:%s", scope, key, hex.EncodeToString(sum[:8]))
}

// idempotencyScope is the operator id, or the client IP for unauthenticated
// routes.
func idempotencyScope(c *gin.Context) string {
	if id, ok := GetOperatorID(c); ok {
		return id.String()
	}
	return "ip:" + c.ClientIP()
}

// IdempotencyMiddleware replays the stored 2xx response of a request seen
// with the same Idempotency-Key and body from the same caller. Without Redis
// the request runs unprotected.
func IdempotencyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyHeader)
		if key == "" || redis.GetClient() == nil {
			c.Next()
			return
		}

		var body []byte
		if c.Request.Body != nil {
			raw, err := io.ReadAll(c.Request.Body)
			if err != nil {
				response.Error(c, domainerrors.BadRequest("failed to read request body"))
				c.Abort()
				return
			}
			body = raw
			c.Request.Body = io.NopCloser(bytes.NewReader(raw))
		}
		storageKey := idempotencyStorageKey(idempotencyScope(c), key, body)
		ctx := c.Request.Context()

		val, err := redisGet(ctx, storageKey)
		switch {
		case err == nil && val == processingMarker:
			response.Error(c, domainerrors.NewAppError(http.StatusConflict, "IDEMPOTENCY_CONFLICT", "Request already in progress", domainerrors.ErrAlreadyExists))
			c.Abort()
			return
		case err == nil:
			var stored storedResponse
			if jsonErr := json.Unmarshal([]byte(val), &stored); jsonErr != nil || stored.Status == 0 {
				stored = storedResponse{Status: http.StatusOK, Body: json.RawMessage(val)}
			}
			c.Header("X-Idempotency-Hit", "true")
			c.Data(stored.Status, "application/json; charset=utf-8", stored.Body)
			c.Abort()
			return
		case !redis.IsNil(err):
			logger.Warn(ctx, "idempotency lookup failed", zap.Error(err))
			c.Next()
			return
		}

		locked, err := redisSetNX(ctx, storageKey, processingMarker, LockDuration)
		if err != nil || !locked {
			response.Error(c, domainerrors.NewAppError(http.StatusConflict, "IDEMPOTENCY_CONFLICT", "Request in progress", domainerrors.ErrAlreadyExists))
			c.Abort()
			return
		}

		w := &responseWriter{body: &bytes.Buffer{}, ResponseWriter: c.Writer}
		c.Writer = w

		c.Next()

		status := c.Writer.Status()
		if status >= 200 && status < 300 {
			payload, _ := json.Marshal(storedResponse{Status: status, Body: w.body.Bytes()})
			_ = redisSet(ctx, storageKey, string(payload), RetentionDuration)
		} else {
			// failures may be retried with the same key
			_ = redisDel(ctx, storageKey)
		}
	}
}
