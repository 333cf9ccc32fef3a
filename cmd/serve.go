package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"todo-summary/internal/auth"
	"todo-summary/internal/cache"
	"todo-summary/internal/config"
	"todo-summary/internal/controller"
	"todo-summary/internal/database"
	"todo-summary/internal/monitoring"
	"todo-summary/internal/queue"
	"todo-summary/internal/repository"
	"todo-summary/internal/routes"
	"todo-summary/internal/worker"
	"todo-summary/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 15 * time.Second

func serveCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Migrate the schema and serve the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL())
	if err != nil {
		return err
	}

	db, err := database.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := database.MigrateOrCreateSchema(ctx, db); err != nil {
		return err
	}

	// Redis is optional; without it every read goes to Postgres.
	var todoCache *cache.Cache
	if cfg.CacheEnabled() {
		client, err := cache.Connect(ctx, cfg)
		if err != nil {
			logger.Warn(ctx, "Cache disabled", "error", err)
		} else {
			defer client.Close()
			todoCache = cache.New(client, cfg.CacheTTLDuration())
		}
	}

	producer := queue.NewProducer(ctx, cfg)
	defer func() {
		if err := producer.Close(); err != nil {
			logger.Warn(context.Background(), "Kafka producer close failed", "error", err)
		}
	}()
	var events controller.EventPublisher
	if producer != nil {
		events = producer
	}

	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		worker.New(repository.NewTodos(db), todoCache).Run(ctx, cfg)
	}()

	gin.SetMode(gin.ReleaseMode)
	server := &http.Server{
		Addr: ":" + cfg.HTTPPort,
		Handler: routes.Router(routes.Options{
			DB:         db,
			Cache:      todoCache,
			Events:     events,
			Tokens:     tokens,
			Metrics:    monitoring.New(db),
			CORSOrigin: cfg.CORSOrigin,
		}),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info(ctx, "HTTP server listening", "port", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	logger.Info(context.Background(), "Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "Server shutdown error", "error", err)
	}
	<-workerDone
	logger.Info(shutdownCtx, "Server stopped")
	return nil
}
