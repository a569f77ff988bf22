package main

// Run database migrations:
//   go run ./cmd/migrate
//   go run ./cmd/migrate -status

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"cvbuilder/internal/shared/config"
	"cvbuilder/internal/shared/storage/db"
)

func main() {
	status := flag.Bool("status", false, "print applied migrations instead of migrating")
	flag.Parse()

	cfg := config.Load()
	ctx := context.Background()

	opts := db.OptionsFromEnv(db.DefaultMigrateOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		log.Printf("failed to connect database: %v", err)
		os.Exit(1)
	}
	defer sqlDB.Close()

	if *status {
		lines, err := db.MigrationStatus(ctx, sqlDB)
		if err != nil {
			log.Printf("failed to read migration status: %v", err)
			os.Exit(1)
		}
		for _, line := range lines {
			fmt.Println(line)
		}
		return
	}

	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		log.Printf("failed to run migrations: %v", err)
		os.Exit(1)
	}
}
