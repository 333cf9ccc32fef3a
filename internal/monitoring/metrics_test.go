package monitoring

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareCountsByRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New(nil)

	router := gin.New()
	router.Use(m.Middleware())
	router.GET("/api/todos/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	router.GET("/metrics", m.Handler())

	for i := 0; i < 2; i++ {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/todos/1", nil))
		require.Equal(t, http.StatusNotFound, resp.Code)
	}

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, resp.Code)

	body := resp.Body.String()
	assert.Contains(t, body, `todo_summary_http_requests_total{method="GET",route="/api/todos/:id",status="404"} 2`)
	assert.Contains(t, body, "todo_summary_http_request_duration_seconds")
}
