package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger is anything that can report whether a backing service answers.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) PingContext(ctx context.Context) error { return f(ctx) }

// PingFunc adapts a Ping(ctx) error method to Pinger.
func PingFunc(f func(ctx context.Context) error) Pinger {
	return pingFunc(f)
}

// Health serves liveness, readiness and the API index.
type Health struct {
	db    Pinger
	cache Pinger
}

// NewHealth returns the probe handlers. cache may be nil.
func NewHealth(db, cache Pinger) *Health {
	return &Health{db: db, cache: cache}
}

// Live returns 200 if the process is alive.
func (h *Health) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Server is running"})
}

// Ready returns 200 if DB and Redis are reachable. Used by K8s readiness probes.
func (h *Health) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if h.db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "database unavailable"})
		return
	}
	if err := h.db.PingContext(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "database ping failed"})
		return
	}
	if h.cache != nil {
		if err := h.cache.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "redis ping failed"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// Index describes the API.
func (h *Health) Index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Todo API Documentation",
		"version": "1.0.0",
		"endpoints": gin.H{
			"auth": gin.H{
				"register": "POST /api/auth/register - Register a new user",
				"login":    "POST /api/auth/login - Login user",
			},
			"users": gin.H{
				"me":     "GET /api/users/me - Get current user info (requires auth)",
				"update": "PATCH /api/users/me - Update username or email (requires auth)",
			},
			"todos": gin.H{
				"list":    "GET /api/todos - Get all todos (requires auth)",
				"create":  "POST /api/todos - Create new todo (requires auth)",
				"summary": "GET /api/todos/summary - Count total, completed and pending todos (requires auth)",
				"getOne":  "GET /api/todos/:id - Get specific todo (requires auth)",
				"update":  "PATCH /api/todos/:id - Update specific todo (requires auth)",
				"delete":  "DELETE /api/todos/:id - Delete specific todo (requires auth)",
			},
			"health": "GET /api/health - Liveness check",
		},
	})
}
