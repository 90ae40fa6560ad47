package main

import (
	"context"
	"fmt"
	"os"

	"kyri56xcaesar/opscrm/internal/config"
	"kyri56xcaesar/opscrm/internal/database"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "opscrm",
	Short: "Tasks, leave, teams and CRM backend",
	Long: `opscrm serves the operations/CRM REST API and offers a few
maintenance commands that talk to the same database.`,
	SilenceUsage: true,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", ".env", "Path to the .env configuration file")
}

func loadConfig() config.Config {
	return config.Load(configPath)
}

// connect opens the pool; the caller closes it.
func connect(ctx context.Context, cfg config.Config) (*pgxpool.Pool, error) {
	pool, err := database.Connect(ctx, cfg.DatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.DBAddress, err)
	}
	return pool, nil
}
