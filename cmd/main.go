// Command todo-summary runs the todo API and its operator tasks.
package main

import (
	"fmt"
	"os"

	"todo-summary/internal/config"
	"todo-summary/pkg/logger"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "todo-summary",
		Short:         "Personal todo API with per-user summaries",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file; environment variables override it")

	load := func() (*config.Config, error) {
		config.LoadEnvFile(".env")
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		logger.SetLevel(cfg.LogLevel)
		return cfg, nil
	}

	cmd.AddCommand(
		serveCmd(load),
		migrateCmd(load),
		seedCmd(load),
		tokenCmd(load),
	)
	return cmd
}

type configLoader func() (*config.Config, error)
