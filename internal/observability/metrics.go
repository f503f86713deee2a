package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "outage_etl"

// Metrics holds the Prometheus counters, histograms, and gauges for the ETL pipeline.
type Metrics struct {
	PipelineRunning  prometheus.Gauge
	RunsTotal        *prometheus.CounterVec // labels: outcome={completed,failed,skipped}
	RunDuration      prometheus.Histogram
	StageDuration    *prometheus.HistogramVec // labels: stage={extract,normalize,load}
	LastRunTimestamp prometheus.Gauge

	// Extract and normalize, per provider.
	RecordsFetched   *prometheus.CounterVec // labels: provider
	RawAppended      *prometheus.CounterVec // labels: provider
	FetchErrors      *prometheus.CounterVec // labels: provider
	ProvidersSkipped *prometheus.CounterVec // labels: provider, reason
	CleanAppended    *prometheus.CounterVec // labels: provider

	// Load.
	RowsLoaded       *prometheus.CounterVec // labels: outcome={inserted,duplicate,failed,reconciled}
	UnknownProviders prometheus.Counter
	ProviderCache    *prometheus.CounterVec // labels: result={hit,miss}
	PublishErrors    prometheus.Counter
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics that are not registered anywhere, so
// tests can build as many as they need.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 while a pipeline run is in progress.",
		}),
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Pipeline runs by outcome.",
		}, []string{"outcome"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete extract-normalize-load run.",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of each pipeline stage.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
		}, []string{"stage"}),
		LastRunTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
		RecordsFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_fetched_total",
			Help:      "Raw records returned by provider fetchers.",
		}, []string{"provider"}),
		RawAppended: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "raw_appended_total",
			Help:      "New raw records appended to provider files.",
		}, []string{"provider"}),
		FetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_errors_total",
			Help:      "Provider fetch failures.",
		}, []string{"provider"}),
		ProvidersSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "providers_skipped_total",
			Help:      "Provider steps skipped, by reason.",
		}, []string{"provider", "reason"}),
		CleanAppended: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "clean_appended_total",
			Help:      "Normalized rows appended to the clean dataset.",
		}, []string{"provider"}),
		RowsLoaded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_loaded_total",
			Help:      "Clean rows processed by the loader, by outcome.",
		}, []string{"outcome"}),
		UnknownProviders: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unknown_providers_total",
			Help:      "Rows loaded without a provider id because the name was not found.",
		}),
		ProviderCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_cache_total",
			Help:      "Provider id cache lookups by result.",
		}, []string{"result"}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      "Failed outage event publications.",
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.PipelineRunning,
		m.RunsTotal,
		m.RunDuration,
		m.StageDuration,
		m.LastRunTimestamp,
		m.RecordsFetched,
		m.RawAppended,
		m.FetchErrors,
		m.ProvidersSkipped,
		m.CleanAppended,
		m.RowsLoaded,
		m.UnknownProviders,
		m.ProviderCache,
		m.PublishErrors,
	}
}
