package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"kemonocast/internal/config"
	"kemonocast/internal/database"
	"kemonocast/internal/kemono"
	"kemonocast/internal/rss"
	"kemonocast/internal/scheduler"
	"kemonocast/internal/server"
	"kemonocast/internal/syncer"
)

const shutdownTimeout = 10 * time.Second

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	start := time.Now()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := godotenv.Load(); err != nil {
		log.InfoContext(ctx, "No .env file, using process environment")
	}

	cfg := config.LoadConfig()

	db, err := database.New(ctx, cfg.DBPath, log)
	if err != nil {
		log.ErrorContext(ctx, "Failed to initialize db",
			"error", err,
			"dbPath", cfg.DBPath)

		return
	}
	defer func() {
		if err = db.Close(); err != nil {
			log.ErrorContext(ctx, "Failed to close db",
				"error", err,
				"dbPath", cfg.DBPath)
		}
	}()
	log.InfoContext(ctx, "DB is initialized",
		"dbPath", cfg.DBPath)

	client := kemono.New(cfg.APIBaseURL, cfg.SiteBaseURL, cfg.SessionCookie, log)
	sync := syncer.New(db, client, log)
	builder := rss.NewBuilder(client, client, log)

	if cfg.RefreshEnabled {
		sched := scheduler.New(ctx, db, sync, cfg.RefreshSpec, log)

		if err = sched.Start(); err != nil {
			log.ErrorContext(ctx, "Failed to start scheduler",
				"error", err,
				"spec", cfg.RefreshSpec)

			return
		}
		defer sched.Stop()
		log.InfoContext(ctx, "Scheduler is started",
			"spec", cfg.RefreshSpec)
	}

	srv := server.New(client, sync, builder, log)

	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		sig := <-c
		log.InfoContext(ctx, "Shutdown signal is received",
			"signal", sig.String(),
			"uptimeSeconds", time.Since(start).Seconds())
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.ErrorContext(ctx, "Failed to shut down server",
				"error", err)
		}
	}()

	log.InfoContext(ctx, "Server is starting",
		"port", cfg.Port,
		"apiBaseURL", cfg.APIBaseURL)

	if err = srv.Listen(cfg.Port); err != nil {
		log.ErrorContext(ctx, "Server stopped with error",
			"error", err,
			"port", cfg.Port)
	}
}
