package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"fitcoach/backend/internal/config"
	"fitcoach/backend/internal/logging"
	"fitcoach/backend/internal/repository/backend"
)

var (
	configPath string

	cfg    config.Config
	logger *slog.Logger
	store  *backend.Store
)

var rootCmd = &cobra.Command{
	Use:   "fitctl",
	Short: "Administration tool for the fitcoach backend",
	Long: `fitctl runs maintenance tasks against the fitcoach database.

It reads the same config.yaml, .env and environment variables as the server.

EXAMPLES:

  fitctl seed --email athlete@example.com   # Create and enroll the sample program
  fitctl usage show                         # AI spend against the budget
  fitctl usage reset                        # Reopen the AI budget gate`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" {
			return nil
		}

		var err error
		cfg, err = config.LoadConfig(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		level, err := logging.ParseLevel(cfg.Log.Level)
		if err != nil {
			level = slog.LevelInfo
		}
		logger = logging.New(os.Stderr, level)

		store, err = backend.Open(cmd.Context(), cfg.Database, logger)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if store != nil {
			return store.Close()
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", ".", "directory holding config.yaml and .env")
	rootCmd.SetContext(context.Background())
}
