package middleware

import (
	"net/http"
	"strings"

	"todo-summary/internal/auth"
	"todo-summary/pkg/logger"

	"github.com/gin-gonic/gin"
)

const identityKey = "identity"

// TokenVerifier checks a bearer token and returns its identity.
type TokenVerifier interface {
	Verify(token string) (auth.Identity, error)
}

// AuthMiddleware requires "Authorization: Bearer <token>". A missing or
// malformed header is 401; a token that fails verification for any reason is 403.
func AuthMiddleware(tokens TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		scheme, token, ok := strings.Cut(c.GetHeader("Authorization"), " ")
		token = strings.TrimSpace(token)
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			logger.Debug(ctx, "Missing or invalid Authorization header")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Authentication required"})
			return
		}
		id, err := tokens.Verify(token)
		if err != nil {
			logger.Debug(ctx, "Token verification failed", "error", err)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "Invalid or expired token"})
			return
		}
		c.Set(identityKey, id)
		c.Next()
	}
}

// Identity returns the caller attached by AuthMiddleware.
func Identity(c *gin.Context) (auth.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return auth.Identity{}, false
	}
	id, ok := v.(auth.Identity)
	return id, ok && id.ID > 0
}
