// Command seed creates the schema and inserts the known providers into the
// providers table. It is safe to run repeatedly.
package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/joho/godotenv"

	"github.com/couchcryptid/power-outage-etl/internal/adapter/postgres"
	"github.com/couchcryptid/power-outage-etl/internal/config"
	"github.com/couchcryptid/power-outage-etl/internal/domain"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to read .env", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)

	if err := cfg.DB.Validate(); err != nil {
		logger.Error("invalid database config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.NewPool(ctx, cfg.DB.DSN())
	if err != nil {
		logger.Error("connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := postgres.EnsureSchema(ctx, pool, cfg.LoadMode != config.LoadModeCheckThenInsert); err != nil {
		logger.Error("ensure schema", "error", err)
		os.Exit(1) //nolint:gocritic // pool is closed by process exit
	}

	added, err := postgres.NewStore(pool, logger).SeedProviders(ctx, domain.Providers())
	if err != nil {
		logger.Error("seed providers", "error", err)
		os.Exit(1)
	}
	logger.Info("providers seeded", "added", added, "known", len(domain.Providers()))
}
