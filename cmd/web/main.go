package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"thirdcoast.systems/gifmoments/cmd/web/handlers/api/cookie_api"
	"thirdcoast.systems/gifmoments/cmd/web/internal/web"
	"thirdcoast.systems/gifmoments/internal/application"
	"thirdcoast.systems/gifmoments/internal/config"
	"thirdcoast.systems/gifmoments/internal/db"
	"thirdcoast.systems/gifmoments/internal/telemetry"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// A missing .env is normal in production.
	_ = godotenv.Load()

	conf, err := config.LoadConfig(ctx)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(telemetry.NewLogger(os.Stderr, conf.LogFormat, conf.LogLevel))
	shutdownTracing := telemetry.SetupTracing()
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			slog.Warn("tracer shutdown failed", "error", err)
		}
	}()

	slog.Info("Starting web service", "config", conf)

	var dbc *db.DatabaseConnection
	if conf.DatabaseDSN != "" {
		pool, err := application.OpenDBPoolWithRetry(ctx, *conf)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		dbc, err = db.NewDatabaseConnection(ctx, pool)
		if err != nil {
			slog.Error("failed to create database connection", "error", err)
			os.Exit(1)
		}
		defer dbc.Close()

		if err := dbc.Migrate(ctx); err != nil {
			slog.Error("failed to migrate database", "error", err)
			os.Exit(1)
		}
	}

	services, err := application.NewServices(ctx, *conf, dbc)
	if err != nil {
		slog.Error("failed to build services", "error", err)
		os.Exit(1)
	}
	defer services.Close()

	deps := web.Deps{
		Runner:         services.Coordinator,
		Artifacts:      services.Artifacts,
		Prober:         services.Prober,
		AdminTokenHash: conf.AdminTokenHash,
		UploadDir:      conf.WorkDir,
		MaxUploadBytes: conf.MaxUploadBytes,
	}
	if services.Cookies != nil {
		deps.Cookies = cookie_api.Jar(services.Cookies)
	}

	e, err := web.NewWebserver(ctx, deps)
	if err != nil {
		slog.Error("failed to create webserver", "error", err)
		os.Exit(1)
	}

	addr := ":" + strconv.Itoa(conf.WebServerPort)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = e.Shutdown(shutdownCtx)
	}()

	slog.Info("Listening", "addr", addr)
	if err := e.Start(addr); err != nil {
		if errors.Is(err, http.ErrServerClosed) || ctx.Err() != nil {
			return
		}
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
