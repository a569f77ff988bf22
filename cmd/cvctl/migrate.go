package main

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"cvbuilder/internal/shared/storage/db"
)

func openDB(cmd *cobra.Command) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	return db.Connect(cmd.Context(), cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultMigrateOptions()))
}

func migrateCmd() *cobra.Command {
	var status bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			sqlDB, err := openDB(cmd)
			if err != nil {
				return err
			}
			defer sqlDB.Close()

			if status {
				lines, err := db.MigrationStatus(cmd.Context(), sqlDB)
				if err != nil {
					return err
				}
				for _, line := range lines {
					fmt.Fprintln(cmd.OutOrStdout(), line)
				}
				return nil
			}
			if err := db.RunMigrations(cmd.Context(), sqlDB); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
	cmd.Flags().BoolVar(&status, "status", false, "list migrations and whether they are applied")
	return cmd
}
