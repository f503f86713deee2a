package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/couchcryptid/power-outage-etl/internal/adapter/csvfile"
	"github.com/couchcryptid/power-outage-etl/internal/adapter/providers"
	"github.com/couchcryptid/power-outage-etl/internal/domain"
	"github.com/couchcryptid/power-outage-etl/internal/observability"
)

// ErrRunInProgress is returned when a run is requested while another holds
// the run lock.
var ErrRunInProgress = errors.New("pipeline run already in progress")

// CleanStore is the accumulated clean dataset.
type CleanStore interface {
	EnsureExists() error
	Append(outages []domain.NormalizedOutage) (int, error)
	ReadAll() ([]domain.NormalizedOutage, error)
}

// RowLoader writes clean rows to the relational store.
type RowLoader interface {
	Load(ctx context.Context, rows []domain.NormalizedOutage) (LoadResult, error)
}

// RunLock guards against overlapping runs across processes. TryLock must
// not wait; it returns an error when the lock is held elsewhere.
type RunLock interface {
	TryLock(ctx context.Context) (release func(context.Context) error, err error)
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithRunLock adds a cross-process lock taken around every run.
func WithRunLock(l RunLock) Option {
	return func(p *Pipeline) { p.runLock = l }
}

// Pipeline orchestrates extract, normalize and load over every provider.
type Pipeline struct {
	sources []Source
	clean   CleanStore
	loader  RowLoader
	runLock RunLock
	logger  *slog.Logger
	metrics *observability.Metrics

	mu         sync.Mutex
	ready      atomic.Bool
	lastReport atomic.Pointer[Report]
}

// New creates a Pipeline. loader may be nil when only the extract and
// normalize stages will run.
func New(sources []Source, clean CleanStore, loader RowLoader, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Pipeline {
	p := &Pipeline{
		sources: sources,
		clean:   clean,
		loader:  loader,
		logger:  logger,
		metrics: metrics,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CheckReadiness returns nil once a run has completed.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not completed a run yet")
	}
	return nil
}

// LastReport returns the report of the most recent completed run, or nil.
func (p *Pipeline) LastReport() *Report {
	return p.lastReport.Load()
}

// Run performs one full extract, normalize and load batch.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	return p.RunStage(ctx, StageAll)
}

// RunStage performs the given stage. Provider and row failures are recorded
// in the report and do not fail the run; the returned error is reserved for
// a skipped run, cancellation and failures that leave nothing to do.
func (p *Pipeline) RunStage(ctx context.Context, stage Stage) (*Report, error) {
	if stage.NeedsStore() && p.loader == nil {
		return nil, fmt.Errorf("stage %s needs a loader", stage)
	}
	if !p.mu.TryLock() {
		p.metrics.RunsTotal.WithLabelValues("skipped").Inc()
		return nil, ErrRunInProgress
	}
	defer p.mu.Unlock()

	if p.runLock != nil {
		release, err := p.runLock.TryLock(ctx)
		if err != nil {
			p.metrics.RunsTotal.WithLabelValues("skipped").Inc()
			return nil, fmt.Errorf("%w: %w", ErrRunInProgress, err)
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				p.logger.Warn("release run lock failed", "error", err)
			}
		}()
	}

	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	report := &Report{
		RunID:     uuid.NewString(),
		Stage:     stage,
		StartedAt: domain.Now(),
	}
	log := p.logger.With("run_id", report.RunID, "stage", stage)
	log.Info("pipeline run started")
	start := time.Now()

	err := p.runStages(ctx, stage, report, log)

	report.FinishedAt = domain.Now()
	p.metrics.RunDuration.Observe(time.Since(start).Seconds())
	p.metrics.LastRunTimestamp.Set(float64(report.FinishedAt.Unix()))
	if err != nil {
		p.metrics.RunsTotal.WithLabelValues("failed").Inc()
		log.Error("pipeline run failed", "error", err)
		return report, err
	}

	p.metrics.RunsTotal.WithLabelValues("completed").Inc()
	p.lastReport.Store(report)
	p.ready.Store(true)
	log.Info("pipeline run completed",
		"duration", report.Duration(),
		"errors", len(report.Errors),
	)
	return report, nil
}

func (p *Pipeline) runStages(ctx context.Context, stage Stage, report *Report, log *slog.Logger) error {
	steps := []struct {
		stage Stage
		run   func(context.Context, *Report, *slog.Logger) error
	}{
		{StageExtract, p.extract},
		{StageNormalize, p.normalize},
		{StageLoad, p.load},
	}
	for _, step := range steps {
		if !stage.Includes(step.stage) {
			continue
		}
		start := time.Now()
		err := step.run(ctx, report, log)
		p.metrics.StageDuration.WithLabelValues(string(step.stage)).Observe(time.Since(start).Seconds())
		if err != nil {
			return fmt.Errorf("%s: %w", step.stage, err)
		}
	}
	return nil
}

// extract fetches every provider in turn. A failing provider yields no new
// rows and the next one still runs.
func (p *Pipeline) extract(ctx context.Context, report *Report, log *slog.Logger) error {
	for _, src := range p.sources {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := string(src.Provider())
		pr := report.provider(name)

		fetched, appended, err := src.Extract(ctx)
		pr.Fetched, pr.RawAppended = fetched, appended
		p.metrics.RecordsFetched.WithLabelValues(name).Add(float64(fetched))
		p.metrics.RawAppended.WithLabelValues(name).Add(float64(appended))

		switch {
		case errors.Is(err, providers.ErrBrowserDisabled):
			pr.Skipped = "browser disabled"
			p.metrics.ProvidersSkipped.WithLabelValues(name, "browser_disabled").Inc()
			log.Warn("provider skipped, browser rendering disabled", "provider", name)
		case err != nil:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			pr.Error = err.Error()
			report.addError(StageExtract, "%s: %v", name, err)
			p.metrics.FetchErrors.WithLabelValues(name).Inc()
			log.Error("provider fetch failed", "provider", name, "error", err)
		default:
			log.Info("provider extracted", "provider", name, "fetched", fetched, "appended", appended)
		}
	}
	return nil
}

// normalize maps every provider's raw file onto the clean dataset. A
// provider with no raw data is skipped.
func (p *Pipeline) normalize(ctx context.Context, report *Report, log *slog.Logger) error {
	if err := p.clean.EnsureExists(); err != nil {
		return fmt.Errorf("prepare clean dataset: %w", err)
	}

	for _, src := range p.sources {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := string(src.Provider())
		pr := report.provider(name)

		rows, err := src.Normalize()
		if errors.Is(err, csvfile.ErrNoData) {
			if pr.Skipped == "" {
				pr.Skipped = "no raw data"
			}
			p.metrics.ProvidersSkipped.WithLabelValues(name, "no_data").Inc()
			log.Warn("provider skipped, no raw data", "provider", name)
			continue
		}
		if err != nil {
			pr.Error = err.Error()
			report.addError(StageNormalize, "%s: %v", name, err)
			log.Error("normalize provider failed", "provider", name, "error", err)
			continue
		}
		pr.Normalized = len(rows)

		appended, err := p.clean.Append(rows)
		if err != nil {
			pr.Error = err.Error()
			report.addError(StageNormalize, "%s: %v", name, err)
			log.Error("append clean rows failed", "provider", name, "error", err)
			continue
		}
		pr.CleanAppended = appended
		p.metrics.CleanAppended.WithLabelValues(name).Add(float64(appended))
		log.Info("provider normalized", "provider", name, "rows", len(rows), "appended", appended)
	}
	return nil
}

// load writes the whole clean dataset. Rows already stored are counted as
// duplicates.
func (p *Pipeline) load(ctx context.Context, report *Report, log *slog.Logger) error {
	rows, err := p.clean.ReadAll()
	if errors.Is(err, csvfile.ErrNoData) {
		report.Load = &LoadResult{}
		log.Info("clean dataset is empty, nothing to load")
		return nil
	}
	if err != nil {
		return fmt.Errorf("read clean dataset: %w", err)
	}

	res, err := p.loader.Load(ctx, rows)
	report.Load = &res
	if err != nil {
		return err
	}
	if res.Failed > 0 {
		report.addError(StageLoad, "%d of %d rows failed", res.Failed, len(rows))
	}
	log.Info("clean dataset loaded",
		"rows", len(rows),
		"inserted", res.Inserted,
		"duplicates", res.Duplicates,
		"failed", res.Failed,
		"reconciled", res.Reconciled,
		"unknown_provider", res.UnknownProvider,
	)
	return nil
}
