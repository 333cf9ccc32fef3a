package main

import (
	"errors"
	"fmt"

	"todo-summary/internal/auth"

	"github.com/spf13/cobra"
)

func tokenCmd(load configLoader) *cobra.Command {
	var (
		id       int64
		username string
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for a user (debugging)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if id <= 0 || username == "" {
				return errors.New("--id and --username are required")
			}
			cfg, err := load()
			if err != nil {
				return err
			}
			tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL())
			if err != nil {
				return err
			}
			token, err := tokens.Issue(auth.Identity{ID: id, Username: username})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "User id to embed")
	cmd.Flags().StringVar(&username, "username", "", "Username to embed")
	return cmd
}
