// migrate applies the embedded SQL migrations; run with go run ./cmd/migrate -direction up|down.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"

	"markers-api/internal/config"
	"markers-api/internal/db/migrate"
	"markers-api/internal/logging"
)

func main() {
	direction := flag.String("direction", "up", "Migration direction: up or down")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}
	logger := logging.SetDefault(cfg.ServiceName+"-migrate", "", cfg.LogFormat, cfg.LogLevel)
	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
		os.Exit(1)
	}

	if err := migrate.Run(cfg.DatabaseURL, *direction); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("migrate: already at target version", "direction", *direction)
			return
		}
		logging.LogError(context.Background(), logger, "migrate: failed", err, "direction", *direction)
		os.Exit(1)
	}
	logger.Info("migrate: done", "direction", *direction)
}
