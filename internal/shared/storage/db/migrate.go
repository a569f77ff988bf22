package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// RunMigrations applies embedded SQL migrations. A nil database is a no-op.
func RunMigrations(ctx context.Context, database *sql.DB) error {
	if database == nil {
		return nil
	}
	goose.SetBaseFS(migrationFiles)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, database, "migrations"); err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

// MigrationStatus lists each embedded migration and whether it is applied.
func MigrationStatus(ctx context.Context, database *sql.DB) ([]string, error) {
	goose.SetBaseFS(migrationFiles)
	if err := goose.SetDialect("postgres"); err != nil {
		return nil, err
	}
	current, err := goose.GetDBVersionContext(ctx, database)
	if err != nil {
		return nil, fmt.Errorf("read db version: %w", err)
	}
	migrations, err := goose.CollectMigrations("migrations", 0, goose.MaxVersion)
	if err != nil {
		return nil, fmt.Errorf("collect migrations: %w", err)
	}
	out := make([]string, 0, len(migrations))
	for _, m := range migrations {
		state := "pending"
		if m.Version <= current {
			state = "applied"
		}
		out = append(out, fmt.Sprintf("%05d %s", m.Version, state))
	}
	return out, nil
}
