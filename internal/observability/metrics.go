package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the atlas service.
type Metrics struct {
	Uploads        *prometheus.CounterVec // labels: kind={tabular,boundary,unknown}, outcome={accepted,rejected}
	RowsProcessed  prometheus.Counter
	RowErrors      prometheus.Counter
	DatasetsStored prometheus.Gauge

	IngestDuration *prometheus.HistogramVec // labels: kind={tabular,boundary}
	ExportDuration *prometheus.HistogramVec // labels: format={csv,plan}
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		Uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "species_atlas",
			Name:      "uploads_total",
			Help:      "Upload attempts by file kind and outcome.",
		}, []string{"kind", "outcome"}),
		RowsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "species_atlas",
			Name:      "rows_processed_total",
			Help:      "Total valid observation rows accepted into datasets.",
		}),
		RowErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "species_atlas",
			Name:      "row_errors_total",
			Help:      "Total rows skipped during tabular ingestion.",
		}),
		DatasetsStored: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "species_atlas",
			Name:      "datasets_stored",
			Help:      "Datasets currently held in memory across all sessions.",
		}),
		IngestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "species_atlas",
			Name:      "ingest_duration_seconds",
			Help:      "Duration of a complete upload parse-normalize-store cycle.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}, []string{"kind"}),
		ExportDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "species_atlas",
			Name:      "export_duration_seconds",
			Help:      "Duration of export generation by format.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5},
		}, []string{"format"}),
	}

	prometheus.MustRegister(
		m.Uploads,
		m.RowsProcessed,
		m.RowErrors,
		m.DatasetsStored,
		m.IngestDuration,
		m.ExportDuration,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		Uploads:        prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "species_atlas", Name: "uploads_total"}, []string{"kind", "outcome"}),
		RowsProcessed:  prometheus.NewCounter(prometheus.CounterOpts{Namespace: "species_atlas", Name: "rows_processed_total"}),
		RowErrors:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "species_atlas", Name: "row_errors_total"}),
		DatasetsStored: prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "species_atlas", Name: "datasets_stored"}),
		IngestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "species_atlas", Name: "ingest_duration_seconds"}, []string{"kind"}),
		ExportDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "species_atlas", Name: "export_duration_seconds"}, []string{"format"}),
	}
}
