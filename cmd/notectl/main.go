package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hangpark123/zoomnote/internal/config"
	"github.com/hangpark123/zoomnote/internal/logging"
	"github.com/hangpark123/zoomnote/internal/store"
)

var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "notectl",
		Short:         "Operator tooling for the research notes service",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(serialCmd())
	rootCmd.AddCommand(syncUsersCmd())
	rootCmd.AddCommand(contextCmd())
	return rootCmd
}

// openStore connects using the same environment as the API server. Tests
// replace it with a mocked connection.
var openStore = func(ctx context.Context) (config.Config, *sql.DB, *store.PostgresStore, error) {
	cfg := config.Load()
	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return cfg, nil, nil, fmt.Errorf("connect database: %w", err)
	}
	return cfg, db, store.NewPostgresStore(db).WithSerialAttempts(cfg.SerialMaxAttempts), nil
}

func cliLogger(cfg config.Config) logging.Logger {
	return logging.New(os.Stderr, "text", cfg.LogLevel)
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			_, db, _, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := store.ApplyMigrations(ctx, db); err != nil {
				return fmt.Errorf("apply migrations: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}
