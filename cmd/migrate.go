package cmd

import (
	"context"
	"errors"
	"log/slog"

	"github.com/matrixise/coinledger/internal/config"
	"github.com/matrixise/coinledger/internal/logger"
	"github.com/matrixise/coinledger/internal/storage"
	"github.com/spf13/cobra"
)

var errNoDatabaseURL = errors.New("DATABASE_URL is required for snapshot migrations")

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the snapshot database schema",
	Long: `Apply, roll back or inspect the goose migrations that create the
portfolio_snapshots and holding_snapshots tables used by "coinledger run".`,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(
		migrateAction("up", "Apply all pending snapshot migrations", "Snapshot schema up to date", storage.RunMigrations),
		migrateAction("down", "Roll back the last snapshot migration", "Snapshot schema rolled back", storage.MigrateDown),
		migrateAction("status", "Print applied and pending snapshot migrations", "", storage.MigrateStatus),
	)
}

// migrateAction builds a sub-command that runs fn against DATABASE_URL and
// logs the resulting schema version when done is set.
func migrateAction(use, short, done string, fn func(ctx context.Context, dsn string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger.Setup(logLevel)

			dsn := config.DatabaseURL()
			if dsn == "" {
				return errNoDatabaseURL
			}

			ctx, cancel := signalContext()
			defer cancel()

			if err := fn(ctx, dsn); err != nil {
				slog.Error("Snapshot migration failed", "action", use, "error", err)
				return err
			}
			if done == "" {
				return nil
			}

			version, err := storage.SchemaVersion(ctx, dsn)
			if err != nil {
				return err
			}
			slog.Info(done, "version", version)
			return nil
		},
	}
}
