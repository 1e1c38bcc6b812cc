package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "qartod_export"

// Metrics holds the Prometheus counters, histograms, and gauges for export runs.
// A batch run has no scrape endpoint, so collectors live on a dedicated
// registry that is flushed to a node-exporter textfile at the end of the run.
type Metrics struct {
	registry *prometheus.Registry

	Exports          *prometheus.CounterVec // labels: outcome={success,error}
	ExportDuration   prometheus.Histogram
	GenerateDuration prometheus.Histogram
	ArtifactsWritten *prometheus.CounterVec // labels: kind={annotations,gross_range,climatology,climatology_table}
	LastSuccess      prometheus.Gauge

	// Reference table metrics.
	ReferenceFetches       *prometheus.CounterVec   // labels: kind={gross_range,climatology}, outcome={found,not_found,error}
	ReferenceCache         *prometheus.CounterVec   // labels: kind, result={hit,miss}
	ReferenceFetchDuration *prometheus.HistogramVec // labels: kind
	ReferenceRows          *prometheus.CounterVec   // labels: kind

	// Sink metrics.
	SinkErrors *prometheus.CounterVec // labels: sink={kafka,postgres}
}

// NewMetrics creates all export metrics on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exports_total",
			Help:      "Reference designators exported, by outcome.",
		}, []string{"outcome"}),
		ExportDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "export_duration_seconds",
			Help:      "Duration of one complete export, engine run included.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}),
		GenerateDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generate_duration_seconds",
			Help:      "Duration of the external QC engine run.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}),
		ArtifactsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "artifacts_written_total",
			Help:      "Artifact files written, by kind.",
		}, []string{"kind"}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful export.",
		}),
		ReferenceFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reference_fetches_total",
			Help:      "qc-lookup table requests by kind and outcome.",
		}, []string{"kind", "outcome"}),
		ReferenceCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reference_cache_total",
			Help:      "qc-lookup document cache lookups by kind and result.",
		}, []string{"kind", "result"}),
		ReferenceFetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reference_fetch_duration_seconds",
			Help:      "qc-lookup request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"kind"}),
		ReferenceRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reference_rows_total",
			Help:      "Reference table rows loaded after filtering, by kind.",
		}, []string{"kind"}),
		SinkErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_errors_total",
			Help:      "Failures publishing or recording a completed export, by sink.",
		}, []string{"sink"}),
	}

	m.registry.MustRegister(
		m.Exports,
		m.ExportDuration,
		m.GenerateDuration,
		m.ArtifactsWritten,
		m.LastSuccess,
		m.ReferenceFetches,
		m.ReferenceCache,
		m.ReferenceFetchDuration,
		m.ReferenceRows,
		m.SinkErrors,
	)

	return m
}

// WriteTextfile writes the registry in text exposition format to path,
// atomically replacing any previous file.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
