package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todo-summary/internal/auth"
	"todo-summary/pkg/logger"
)

const testSecret = "todo_summary_test_secret_0123456789abcdef"

func newProtectedRouter(t *testing.T, tokens *auth.TokenService) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/private", AuthMiddleware(tokens), func(c *gin.Context) {
		id, ok := Identity(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"id": id.ID, "username": id.Username})
	})
	return router
}

func TestAuthMiddleware(t *testing.T) {
	tokens, err := auth.NewTokenService(testSecret, time.Hour)
	require.NoError(t, err)
	valid, err := tokens.Issue(auth.Identity{ID: 7, Username: "alice"})
	require.NoError(t, err)

	past := time.Now().Add(-48 * time.Hour)
	stale, err := auth.NewTokenService(testSecret, time.Hour, auth.WithClock(func() time.Time { return past }))
	require.NoError(t, err)
	expired, err := stale.Issue(auth.Identity{ID: 7, Username: "alice"})
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + valid, http.StatusUnauthorized},
		{"bearer without token", "Bearer ", http.StatusUnauthorized},
		{"forged token", "Bearer " + valid + "x", http.StatusForbidden},
		{"expired token", "Bearer " + expired, http.StatusForbidden},
		{"valid token", "Bearer " + valid, http.StatusOK},
	}

	router := newProtectedRouter(t, tokens)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/private", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp := httptest.NewRecorder()
			router.ServeHTTP(resp, req)

			assert.Equal(t, tt.status, resp.Code)
			if tt.status == http.StatusOK {
				assert.JSONEq(t, `{"id":7,"username":"alice"}`, resp.Body.String())
			} else {
				assert.Contains(t, resp.Body.String(), `"message"`)
			}
		})
	}
}

func TestRequestIDPropagates(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	logger.SetDefault(logger.New(&buf))
	defer logger.SetDefault(logger.New(&bytes.Buffer{}))

	router := gin.New()
	router.Use(RequestID())
	router.GET("/ping", func(c *gin.Context) {
		logger.Info(c.Request.Context(), "inside handler")
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	assert.Equal(t, "abc-123", resp.Header().Get("X-Request-ID"))
	assert.Contains(t, buf.String(), `"request_id":"abc-123"`)
	assert.Contains(t, buf.String(), `"msg":"inside handler"`)

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/ping", nil).WithContext(context.Background()))
	assert.Len(t, resp.Header().Get("X-Request-ID"), 36)
}
