package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"thirdcoast.systems/gifmoments/internal/application"
	"thirdcoast.systems/gifmoments/internal/config"
	"thirdcoast.systems/gifmoments/internal/db"
	"thirdcoast.systems/gifmoments/internal/telemetry"
)

func main() {
	_ = godotenv.Load()

	startupCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	conf, err := config.LoadConfig(startupCtx)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(telemetry.NewLogger(os.Stderr, conf.LogFormat, conf.LogLevel))
	slog.Info("Starting database migrator")

	if conf.DatabaseDSN == "" {
		slog.Error("DATABASE_DSN is required for migrations")
		os.Exit(1)
	}

	pool, err := application.OpenDBPoolWithRetry(startupCtx, *conf)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	databaseConnection, err := db.NewDatabaseConnection(startupCtx, pool)
	if err != nil {
		slog.Error("failed to create database connection", "error", err)
		os.Exit(1)
	}
	defer databaseConnection.Close()

	if err := databaseConnection.Migrate(startupCtx); err != nil {
		slog.Error("failed to run PostgreSQL migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database migrations completed successfully")
}
