package main

import (
	"todo-summary/internal/database"
	"todo-summary/pkg/logger"

	"github.com/spf13/cobra"
)

func migrateCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create tables and indexes if they do not exist",
		RunE: func(cmd *cobra.Command, _ []string) error {
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
			logger.Info(ctx, "Schema up to date")
			return nil
		},
	}
}
