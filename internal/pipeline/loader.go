package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/couchcryptid/power-outage-etl/internal/domain"
	"github.com/couchcryptid/power-outage-etl/internal/observability"
)

// ProviderLookup resolves a provider name to its id.
type ProviderLookup interface {
	ProviderID(ctx context.Context, name domain.ProviderName) (id int64, found bool, err error)
}

// OutageStore persists outages. Each call is its own transaction.
type OutageStore interface {
	OutageExists(ctx context.Context, referenceID string) (bool, error)
	InsertOutage(ctx context.Context, o domain.StoredOutage) (int64, error)
	InsertOutageIfAbsent(ctx context.Context, o domain.StoredOutage) (id int64, inserted bool, err error)
}

// Reconciler is offered every row whose reference id is already stored.
// It reports whether it changed the stored outage.
type Reconciler interface {
	Reconcile(ctx context.Context, o domain.NormalizedOutage) (bool, error)
}

// Publisher announces newly inserted outages.
type Publisher interface {
	Publish(ctx context.Context, events []domain.OutageInserted) error
}

// LoadResult counts what happened to each clean row.
type LoadResult struct {
	Inserted        int `json:"inserted"`
	Duplicates      int `json:"duplicates"`
	Failed          int `json:"failed"`
	Reconciled      int `json:"reconciled"`
	UnknownProvider int `json:"unknown_provider"`
}

// LoaderOptions configures a Loader.
type LoaderOptions struct {
	// CheckFirst selects the two-statement exists-then-insert path for
	// stores without a unique index on reference_id.
	CheckFirst bool
	// Reconciler may be nil.
	Reconciler Reconciler
	// Publisher may be nil.
	Publisher Publisher
}

// Loader writes clean rows to the store one statement at a time. A row that
// fails is logged and counted; the rest still load.
type Loader struct {
	providers ProviderLookup
	outages   OutageStore
	opts      LoaderOptions
	logger    *slog.Logger
	metrics   *observability.Metrics
}

func NewLoader(providers ProviderLookup, outages OutageStore, opts LoaderOptions, logger *slog.Logger, metrics *observability.Metrics) *Loader {
	return &Loader{
		providers: providers,
		outages:   outages,
		opts:      opts,
		logger:    logger,
		metrics:   metrics,
	}
}

// Load processes rows in order. It stops early only when ctx is done.
func (l *Loader) Load(ctx context.Context, rows []domain.NormalizedOutage) (LoadResult, error) {
	var (
		res    LoadResult
		events []domain.OutageInserted
	)

	for _, o := range rows {
		if err := ctx.Err(); err != nil {
			l.publish(context.WithoutCancel(ctx), events)
			return res, err
		}

		stored, inserted, existed, ok := l.loadRow(ctx, o, &res)
		switch {
		case !ok:
			res.Failed++
			l.metrics.RowsLoaded.WithLabelValues("failed").Inc()
		case inserted:
			res.Inserted++
			l.metrics.RowsLoaded.WithLabelValues("inserted").Inc()
			events = append(events, domain.OutageInserted{
				Outage:       stored,
				ProviderName: o.ProviderName,
				InsertedAt:   domain.Now(),
			})
		case existed:
			res.Duplicates++
			l.metrics.RowsLoaded.WithLabelValues("duplicate").Inc()
			if l.reconcile(ctx, o) {
				res.Reconciled++
				l.metrics.RowsLoaded.WithLabelValues("reconciled").Inc()
			}
		}
	}

	l.publish(ctx, events)
	return res, nil
}

// loadRow returns the stored outage, whether it was inserted, whether it
// already existed, and false when the row failed.
func (l *Loader) loadRow(ctx context.Context, o domain.NormalizedOutage, res *LoadResult) (domain.StoredOutage, bool, bool, bool) {
	ref := strings.TrimSpace(o.ReferenceID)
	if err := o.Validate(); err != nil {
		l.logger.Warn("invalid clean row", "reference_id", ref, "error", err)
		return domain.StoredOutage{}, false, false, false
	}

	providerID, found, err := l.providers.ProviderID(ctx, o.ProviderName)
	if err != nil {
		l.logger.Error("provider lookup failed", "reference_id", ref, "provider", o.ProviderName, "error", err)
		return domain.StoredOutage{}, false, false, false
	}
	var pid *int64
	if found {
		pid = &providerID
	} else {
		l.logger.Warn("provider not found, loading without provider id",
			"reference_id", ref, "provider", o.ProviderName)
		res.UnknownProvider++
		l.metrics.UnknownProviders.Inc()
	}
	stored := domain.NewStoredOutage(o, pid)

	if l.opts.CheckFirst {
		exists, err := l.outages.OutageExists(ctx, ref)
		if err != nil {
			l.logger.Error("outage existence check failed", "reference_id", ref, "error", err)
			return stored, false, false, false
		}
		if exists {
			return stored, false, true, true
		}
		id, err := l.outages.InsertOutage(ctx, stored)
		if err != nil {
			l.logger.Error("insert outage failed", "reference_id", ref, "error", err)
			return stored, false, false, false
		}
		stored.OutageID = id
		return stored, true, false, true
	}

	id, inserted, err := l.outages.InsertOutageIfAbsent(ctx, stored)
	if err != nil {
		l.logger.Error("insert outage failed", "reference_id", ref, "error", err)
		return stored, false, false, false
	}
	if !inserted {
		return stored, false, true, true
	}
	stored.OutageID = id
	return stored, true, false, true
}

func (l *Loader) reconcile(ctx context.Context, o domain.NormalizedOutage) bool {
	if l.opts.Reconciler == nil {
		return false
	}
	changed, err := l.opts.Reconciler.Reconcile(ctx, o)
	if err != nil {
		l.logger.Error("reconcile outage failed", "reference_id", o.ReferenceID, "error", err)
		return false
	}
	return changed
}

func (l *Loader) publish(ctx context.Context, events []domain.OutageInserted) {
	if l.opts.Publisher == nil || len(events) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := l.opts.Publisher.Publish(ctx, events); err != nil {
		l.logger.Warn("publish inserted outages failed", "count", len(events), "error", err)
		l.metrics.PublishErrors.Inc()
	}
}

// EndFiller sets a missing outage end on a stored outage.
type EndFiller interface {
	FillMissingEnd(ctx context.Context, referenceID string, end time.Time) (bool, error)
}

// FillEndReconciler fills a stored outage's NULL end time once a later
// clean row carries one. It never overwrites a known end.
type FillEndReconciler struct {
	store EndFiller
}

func NewFillEndReconciler(store EndFiller) *FillEndReconciler {
	return &FillEndReconciler{store: store}
}

func (r *FillEndReconciler) Reconcile(ctx context.Context, o domain.NormalizedOutage) (bool, error) {
	if o.OutageEnd == nil {
		return false, nil
	}
	return r.store.FillMissingEnd(ctx, strings.TrimSpace(o.ReferenceID), *o.OutageEnd)
}
