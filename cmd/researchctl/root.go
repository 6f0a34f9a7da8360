package main

import (
	"fmt"

	"ai-research-platform/internal/config"
	"ai-research-platform/internal/database"
	"ai-research-platform/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var version = "dev"

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "researchctl",
		Short: "Operate the research platform from the command line",
		Long: `researchctl manages the research database and runs research tasks
without the HTTP server.

Configuration is read from the same environment variables (and .env file)
as the server.`,
		Version:      version,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().Bool("debug", false, "Enable debug logging")

	cmd.AddCommand(newMigrateCommand())
	cmd.AddCommand(newRunCommand())
	cmd.AddCommand(newStatusCommand())

	return cmd
}

func execute() error {
	return newRootCommand().Execute()
}

// environment is the configuration and store shared by every subcommand
type environment struct {
	cfg    *config.Config
	logger *zap.Logger
	store  *database.SQLStore
}

func (e *environment) Close() {
	_ = e.store.Close()
	_ = e.logger.Sync()
}

func loadEnvironment(cmd *cobra.Command) (*environment, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		cfg.Log.Level = "debug"
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}

	store, err := database.OpenSQLStore(cmd.Context(), cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := store.Migrate(cmd.Context()); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	return &environment{cfg: cfg, logger: logger, store: store}, nil
}
