package database

import (
	"context"
	"database/sql"
	"fmt"

	"todo-summary/pkg/logger"
)

var schema = []struct {
	name  string
	query string
}{
	{"users table", `
	CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		username VARCHAR(255) NOT NULL UNIQUE CHECK (username <> ''),
		email VARCHAR(255) NOT NULL UNIQUE CHECK (email <> ''),
		password VARCHAR(255) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`},
	{"todos table", `
	CREATE TABLE IF NOT EXISTS todos (
		id BIGSERIAL PRIMARY KEY,
		title TEXT NOT NULL CHECK (title <> ''),
		completed BOOLEAN NOT NULL DEFAULT FALSE,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`},
	{"todos owner index", `CREATE INDEX IF NOT EXISTS todos_user_created_idx ON todos(user_id, created_at DESC, id DESC)`},
}

// MigrateOrCreateSchema creates the users and todos tables if they are missing.
// It is safe to run on every start.
func MigrateOrCreateSchema(ctx context.Context, db *sql.DB) error {
	for _, step := range schema {
		if _, err := db.ExecContext(ctx, step.query); err != nil {
			return fmt.Errorf("ensure %s: %w", step.name, err)
		}
	}
	logger.Info(ctx, "Schema ensured", "steps", len(schema))
	return nil
}
