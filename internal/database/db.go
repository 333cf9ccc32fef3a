package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"todo-summary/internal/config"
	"todo-summary/pkg/logger"

	_ "github.com/lib/pq"
)

const pingTimeout = 5 * time.Second

// Open builds the process-wide connection pool from cfg and checks it answers.
// The caller owns the returned handle and closes it on shutdown.
func Open(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.DBPoolSize)
	db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime())

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	logger.Info(ctx, "Database pool initialized", "max_open", cfg.DBPoolSize, "max_idle", cfg.DBMaxIdleConns)
	return db, nil
}
