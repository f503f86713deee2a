// Command etl fetches UK power outages from every provider, normalizes them
// into the clean dataset and loads them into Postgres.
//
// Without SCHEDULE it performs one run and exits. With SCHEDULE set it runs
// on that cron schedule and serves health, metrics and run reports until
// SIGINT or SIGTERM.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/joho/godotenv"

	"github.com/couchcryptid/power-outage-etl/internal/adapter/csvfile"
	"github.com/couchcryptid/power-outage-etl/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/power-outage-etl/internal/adapter/kafka"
	"github.com/couchcryptid/power-outage-etl/internal/adapter/postgres"
	"github.com/couchcryptid/power-outage-etl/internal/adapter/providers"
	"github.com/couchcryptid/power-outage-etl/internal/adapter/redislock"
	"github.com/couchcryptid/power-outage-etl/internal/config"
	"github.com/couchcryptid/power-outage-etl/internal/domain"
	"github.com/couchcryptid/power-outage-etl/internal/observability"
	"github.com/couchcryptid/power-outage-etl/internal/pipeline"
	"github.com/couchcryptid/power-outage-etl/internal/scheduler"
)

func main() {
	stageFlag := flag.String("stage", "all", "stage to run: extract, normalize, load or all")
	once := flag.Bool("once", false, "run once and exit even when SCHEDULE is set")
	flag.Parse()

	os.Exit(run(*stageFlag, *once))
}

func run(stageFlag string, once bool) int {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to read .env", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}
	stage, err := pipeline.ParseStage(stageFlag)
	if err != nil {
		slog.Error("invalid stage", "error", err)
		return 1
	}
	scheduled := cfg.Schedule != "" && !once
	if scheduled && stage != pipeline.StageAll {
		slog.Error("scheduled mode always runs every stage", "stage", stage)
		return 1
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, err := build(ctx, cfg, stage, logger, metrics)
	if err != nil {
		logger.Error("startup failed", "error", err)
		return 1
	}
	defer svc.close(logger)

	if !scheduled {
		report, err := svc.pipeline.RunStage(ctx, stage)
		if err != nil {
			logger.Error("run failed", "error", err)
			if errors.Is(err, pipeline.ErrRunInProgress) {
				return 0
			}
			return 1
		}
		logger.Info("run finished", "run_id", report.RunID, "errors", len(report.Errors))
		return 0
	}

	return serve(ctx, cfg, svc.pipeline, logger)
}

// serve runs the scheduler and HTTP server until ctx is cancelled.
func serve(ctx context.Context, cfg *config.Config, p *pipeline.Pipeline, logger *slog.Logger) int {
	srv := httpadapter.NewServer(cfg.HTTPAddr, p, p, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	sched := scheduler.New(cfg.Schedule, p, logger)
	if err := sched.Start(ctx); err != nil {
		logger.Error("scheduler start failed", "error", err)
		return 1
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := sched.Stop(shutdownCtx); err != nil {
		logger.Error("scheduler shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
	return 0
}

// app holds the pipeline and the resources to release on exit.
type app struct {
	pipeline *pipeline.Pipeline
	closers  []namedCloser
}

type namedCloser struct {
	name  string
	close func() error
}

func (a *app) close(logger *slog.Logger) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.close(); err != nil {
			logger.Error(c.name+" close error", "error", err)
		}
	}
}

func (a *app) onClose(name string, fn func() error) {
	a.closers = append(a.closers, namedCloser{name: name, close: fn})
}

func build(ctx context.Context, cfg *config.Config, stage pipeline.Stage, logger *slog.Logger, metrics *observability.Metrics) (*app, error) {
	a := &app{}

	var renderer providers.Renderer
	if cfg.BrowserEnabled && stage.Includes(pipeline.StageExtract) {
		chrome := providers.NewChromeRenderer(cfg.BrowserTimeout, cfg.UserAgent, logger)
		a.onClose("browser", chrome.Close)
		renderer = chrome
	} else {
		logger.Info("browser rendering disabled, rendered providers will be skipped")
	}
	client := providers.NewClient(cfg.HTTPTimeout, cfg.UserAgent, logger)
	sources := buildSources(cfg, client, renderer, logger)

	var loader pipeline.RowLoader
	if stage.NeedsStore() {
		l, err := buildLoader(ctx, cfg, a, logger, metrics)
		if err != nil {
			a.close(logger)
			return nil, err
		}
		loader = l
	}

	var opts []pipeline.Option
	if cfg.RedisURL != "" {
		rdb, err := redislock.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			a.close(logger)
			return nil, err
		}
		a.onClose("redis", rdb.Close)
		opts = append(opts, pipeline.WithRunLock(redislock.New(rdb, cfg.LockKey, cfg.LockTTL)))
		logger.Info("redis run lock enabled", "key", cfg.LockKey, "ttl", cfg.LockTTL)
	}

	clean := csvfile.NewCleanDataset(cfg.CleanPath())
	a.pipeline = pipeline.New(sources, clean, loader, logger, metrics, opts...)
	return a, nil
}

func buildLoader(ctx context.Context, cfg *config.Config, a *app, logger *slog.Logger, metrics *observability.Metrics) (*pipeline.Loader, error) {
	if err := cfg.DB.Validate(); err != nil {
		return nil, err
	}
	pool, err := postgres.NewPool(ctx, cfg.DB.DSN())
	if err != nil {
		return nil, err
	}
	a.onClose("postgres", func() error {
		pool.Close()
		return nil
	})
	checkFirst := cfg.LoadMode == config.LoadModeCheckThenInsert
	if err := postgres.EnsureSchema(ctx, pool, !checkFirst); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	store := postgres.NewStore(pool, logger)
	opts := pipeline.LoaderOptions{CheckFirst: checkFirst}
	if cfg.ReconcileMode == config.ReconcileFillEnd {
		opts.Reconciler = pipeline.NewFillEndReconciler(store)
	}
	if len(cfg.KafkaBrokers) > 0 {
		pub := kafkaadapter.NewPublisher(cfg, logger)
		a.onClose("kafka publisher", pub.Close)
		opts.Publisher = pub
		logger.Info("publishing inserted outages", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	lookup := postgres.NewCachedProviders(store, cfg.ProviderCacheSize, metrics)
	return pipeline.NewLoader(lookup, store, opts, logger, metrics), nil
}

func buildSources(cfg *config.Config, client *providers.Client, renderer providers.Renderer, logger *slog.Logger) []pipeline.Source {
	urls := cfg.ProviderURLs
	raw := func(f interface{ Provider() domain.ProviderName }) string {
		return csvfile.RawPath(cfg.DataDir, f.Provider())
	}

	enwl := providers.NewElectricityNorthWest(renderer, urls.ElectricityNorthWest, logger)
	ng := providers.NewNationalGrid(client, urls.NationalGrid)
	npg := providers.NewNorthernPowergrid(renderer, urls.NorthernPowergrid)
	sp := providers.NewSPEnergyNetworks(client, urls.SPEnergyNetworks, logger)
	ssen := providers.NewSSEN(client, urls.SSEN)
	ukpn := providers.NewUKPowerNetworks(client, urls.UKPowerNetworks)

	return []pipeline.Source{
		pipeline.NewSource(enwl, raw(enwl)),
		pipeline.NewSource(ng, raw(ng)),
		pipeline.NewSource(npg, raw(npg)),
		pipeline.NewSource(sp, raw(sp)),
		pipeline.NewSource(ssen, raw(ssen)),
		pipeline.NewSource(ukpn, raw(ukpn)),
	}
}
