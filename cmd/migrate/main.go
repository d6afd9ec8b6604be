package main

// Apply, roll back or inspect the wells/files/curves schema:
//   go run ./cmd/migrate [up|down|version]

import (
	"context"
	"fmt"
	"os"

	"lasdesk/internal/shared/config"
	"lasdesk/internal/shared/storage/db"
	"lasdesk/internal/shared/telemetry"
)

func main() {
	cfg := config.Load()
	telemetry.Configure(telemetry.Options{Output: os.Stdout, Level: cfg.LogLevel, JSON: true})
	ctx := context.Background()

	action := "up"
	if len(os.Args) > 1 {
		action = os.Args[1]
	}
	if action != "up" && action != "down" && action != "version" {
		fmt.Fprintf(os.Stderr, "usage: migrate [up|down|version], got %q\n", action)
		os.Exit(2)
	}
	if cfg.DatabaseURL == "" {
		telemetry.Error("migrate.no_database", map[string]any{"hint": "set DATABASE_URL"})
		os.Exit(1)
	}

	opts := db.OptionsFromEnv(db.DefaultMigrateOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		telemetry.Error("migrate.connect_failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	defer sqlDB.Close()

	switch action {
	case "down":
		err = db.RollbackMigration(ctx, sqlDB)
	case "version":
		var version int64
		version, err = db.MigrationVersion(ctx, sqlDB)
		if err == nil {
			telemetry.Info("migrate.version", map[string]any{"version": version})
		}
	default:
		err = db.RunMigrations(ctx, sqlDB)
	}
	if err != nil {
		telemetry.Error("migrate.failed", map[string]any{"action": action, "error": err.Error()})
		os.Exit(1)
	}
	telemetry.Info("migrate.done", map[string]any{"action": action})
}
