// Worker purges expired sessions on SESSION_SWEEP_INTERVAL until SIGINT/SIGTERM.
// Run it when the API servers are started with SESSION_SWEEP_INTERVAL=0.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"markers-api/internal/config"
	"markers-api/internal/db"
	"markers-api/internal/logging"
	"markers-api/internal/session"
	sessionrepo "markers-api/internal/session/repository"
)

const defaultInterval = time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}
	logger := logging.SetDefault(cfg.ServiceName+"-worker", "", cfg.LogFormat, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store session.ExpiredDeleter
	switch cfg.SessionStore {
	case config.SessionStoreRedis:
		client, err := db.OpenRedis(ctx, cfg.RedisURL, db.DefaultOptions())
		if err != nil {
			logging.LogError(ctx, logger, "worker: redis", err)
			os.Exit(1)
		}
		defer client.Close()
		store = sessionrepo.NewRedisStore(client)
	default:
		pool, err := db.Open(ctx, cfg.DatabaseURL, db.DefaultOptions())
		if err != nil {
			logging.LogError(ctx, logger, "worker: db", err)
			os.Exit(1)
		}
		defer pool.Close()
		store = sessionrepo.NewPostgresStore(pool)
	}

	interval := cfg.SweepInterval()
	if interval <= 0 {
		interval = defaultInterval
	}
	logger.Info("worker: sweeping expired sessions", "interval", interval, "session_store", cfg.SessionStore)
	session.NewSweeper(store, interval, logger, nil).Run(ctx)
	logger.Info("worker: stopped")
}
