package routes

import (
	"database/sql"
	"net/http"
	"time"

	"todo-summary/internal/auth"
	"todo-summary/internal/cache"
	"todo-summary/internal/controller"
	"todo-summary/internal/middleware"
	"todo-summary/internal/monitoring"
	"todo-summary/internal/repository"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Options are the process-scoped resources the handlers share.
type Options struct {
	DB         *sql.DB
	Cache      *cache.Cache
	Events     controller.EventPublisher
	Tokens     *auth.TokenService
	Metrics    *monitoring.Metrics
	CORSOrigin string
}

// Router wires middleware, repositories and handlers onto a new engine.
func Router(opts Options) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	if opts.Metrics != nil {
		router.Use(opts.Metrics.Middleware())
	}
	if opts.CORSOrigin != "" {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     []string{opts.CORSOrigin},
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowHeaders:     []string{"Content-Type", "Authorization"},
			ExposeHeaders:    []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           5 * time.Minute,
		}))
	}

	users := repository.NewUsers(opts.DB)
	todos := repository.NewTodos(opts.DB)

	var dbPinger, cachePinger controller.Pinger
	if opts.DB != nil {
		dbPinger = opts.DB
	}
	if opts.Cache != nil {
		cachePinger = controller.PingFunc(opts.Cache.Ping)
	}
	health := controller.NewHealth(dbPinger, cachePinger)
	authH := controller.NewAuth(users, opts.Tokens)
	usersH := controller.NewUsers(users)
	todosH := controller.NewTodos(todos, opts.Cache, opts.Events)

	// Probes for load balancers and K8s
	router.GET("/ready", health.Ready)
	if opts.Metrics != nil {
		router.GET("/metrics", opts.Metrics.Handler())
	}

	api := router.Group("/api")
	api.GET("", health.Index)
	api.GET("/health", health.Live)

	// Public: no auth
	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", authH.Register)
		authGroup.POST("/login", authH.Login)
	}

	// Protected: bearer token required
	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(opts.Tokens))
	{
		protected.GET("/users/me", usersH.Me)
		protected.PATCH("/users/me", usersH.UpdateMe)

		protected.GET("/todos", todosH.List)
		protected.POST("/todos", todosH.Create)
		protected.GET("/todos/summary", todosH.Summary)
		protected.GET("/todos/:id", todosH.Get)
		protected.PATCH("/todos/:id", todosH.Update)
		protected.DELETE("/todos/:id", todosH.Delete)
	}

	return router
}
