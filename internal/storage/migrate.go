package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// withGoose opens a temporary database/sql connection, which goose requires,
// and runs fn against the embedded migrations.
func withGoose(dsn string, fn func(db *sql.DB) error) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	return fn(db)
}

// RunMigrations applies all pending snapshot schema migrations
func RunMigrations(ctx context.Context, dsn string) error {
	return withGoose(dsn, func(db *sql.DB) error {
		if err := goose.UpContext(ctx, db, "migrations"); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		return nil
	})
}

// MigrateDown rolls back the last applied migration
func MigrateDown(ctx context.Context, dsn string) error {
	return withGoose(dsn, func(db *sql.DB) error {
		if err := goose.DownContext(ctx, db, "migrations"); err != nil {
			return fmt.Errorf("failed to rollback migration: %w", err)
		}
		return nil
	})
}

// MigrateStatus prints the status of all migrations
func MigrateStatus(ctx context.Context, dsn string) error {
	return withGoose(dsn, func(db *sql.DB) error {
		if err := goose.StatusContext(ctx, db, "migrations"); err != nil {
			return fmt.Errorf("failed to get migration status: %w", err)
		}
		return nil
	})
}

// SchemaVersion returns the latest applied migration version, 0 on an empty database
func SchemaVersion(ctx context.Context, dsn string) (int64, error) {
	var version int64
	err := withGoose(dsn, func(db *sql.DB) error {
		v, err := goose.GetDBVersionContext(ctx, db)
		if err != nil {
			return fmt.Errorf("failed to read schema version: %w", err)
		}
		version = v
		return nil
	})
	return version, err
}
