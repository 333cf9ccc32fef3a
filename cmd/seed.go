package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"todo-summary/internal/auth"
	"todo-summary/internal/database"
	"todo-summary/internal/repository"

	"github.com/spf13/cobra"
)

type seedOptions struct {
	username string
	email    string
	password string
	count    int
}

func seedCmd(load configLoader) *cobra.Command {
	opts := seedOptions{}
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create a demo user and bulk-load todos for it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.count < 0 {
				return errors.New("--count must not be negative")
			}
			cfg, err := load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			db, err := database.Open(ctx, cfg)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := database.MigrateOrCreateSchema(ctx, db); err != nil {
				return err
			}

			start := time.Now()
			userID, n, err := seed(ctx, db, opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d todos for %s (id %d) in %v\n",
				n, opts.username, userID, time.Since(start).Round(time.Millisecond))
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.username, "username", "demo", "Demo account username")
	cmd.Flags().StringVar(&opts.email, "email", "demo@example.com", "Demo account email")
	cmd.Flags().StringVar(&opts.password, "password", "demo-password", "Demo account password")
	cmd.Flags().IntVar(&opts.count, "count", 1000, "Number of todos to create")
	return cmd
}

// seed reuses the account when it already exists so the command can be rerun.
func seed(ctx context.Context, db *sql.DB, opts seedOptions) (int64, int, error) {
	users := repository.NewUsers(db)
	var userID int64
	existing, err := users.GetByUsername(ctx, opts.username)
	switch {
	case err == nil:
		userID = existing.ID
	case errors.Is(err, repository.ErrNotFound):
		hash, err := auth.HashPassword(opts.password)
		if err != nil {
			return 0, 0, err
		}
		if userID, err = users.Create(ctx, opts.username, opts.email, hash); err != nil {
			return 0, 0, fmt.Errorf("create demo user: %w", err)
		}
	default:
		return 0, 0, err
	}

	titles := make([]string, opts.count)
	for i := range titles {
		titles[i] = fmt.Sprintf("Todo %d", i+1)
	}
	n, err := repository.NewTodos(db).BulkCreate(ctx, userID, titles)
	if err != nil {
		return 0, 0, err
	}
	return userID, n, nil
}
