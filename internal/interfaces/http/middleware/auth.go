package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	domainerrors "threelance.backend/internal/domain/errors"
	"threelance.backend/internal/interfaces/http/response"
	"threelance.backend/pkg/jwt"
	"threelance.backend/pkg/logger"
)

const (
	// AuthorizationHeader is the header key for authorization
	AuthorizationHeader = "Authorization"
	// BearerPrefix is the prefix for bearer tokens
	BearerPrefix = "Bearer "
	// OperatorIDKey is the gin context key of the authenticated operator
	OperatorIDKey = "operatorId"
	// OperatorNameKey holds the operator's display name
	OperatorNameKey = "operatorName"
	// ScopesKey holds the token scopes
	ScopesKey = "scopes"
)

// AuthMiddleware requires a valid operator bearer token.
func AuthMiddleware(jwtService *jwt.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader(AuthorizationHeader)
		if authHeader == "" {
			response.Error(c, domainerrors.Unauthorized("Authorization header is required"))
			c.Abort()
			return
		}
		if !strings.HasPrefix(authHeader, BearerPrefix) {
			response.Error(c, domainerrors.Unauthorized("Invalid authorization format. Use: Bearer <token>"))
			c.Abort()
			return
		}

		claims, err := jwtService.ValidateToken(strings.TrimPrefix(authHeader, BearerPrefix))
		if err != nil {
			logger.Warn(c.Request.Context(), "token rejected", zap.String("path", c.Request.URL.Path), zap.Error(err))
			msg := "Invalid token"
			if errors.Is(err, jwt.ErrExpiredToken) {
				msg = "Token has expired"
			}
			response.Error(c, domainerrors.Unauthorized(msg))
			c.Abort()
			return
		}

		c.Set(OperatorIDKey, claims.OperatorID)
		c.Set(OperatorNameKey, claims.Name)
		c.Set(ScopesKey, claims.Scopes)
		c.Next()
	}
}

// GetOperatorID gets the operator ID from context
func GetOperatorID(c *gin.Context) (uuid.UUID, bool) {
	v, exists := c.Get(OperatorIDKey)
	if !exists {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

// RequireScope rejects tokens lacking any of scopes.
func RequireScope(scopes ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		granted := c.GetStringSlice(ScopesKey)
		for _, want := range scopes {
			found := false
			for _, have := range granted {
				if have == want {
					found = true
					break
				}
			}
			if !found {
				response.Error(c, domainerrors.Forbidden("missing scope "+want))
				c.Abort()
				return
			}
		}
		c.Next()
	}
}
