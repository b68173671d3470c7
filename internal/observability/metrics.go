package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "simtanka"

// Metrics holds the Prometheus counters, histograms, and gauges for the service.
type Metrics struct {
	// Rainfall ingestion pipeline.
	MessagesConsumed        prometheus.Counter
	RecordsIngested         prometheus.Counter
	RecordsSkipped          prometheus.Counter
	TransformErrors         prometheus.Counter
	PipelineRunning         prometheus.Gauge
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram

	// Simulation and sizing.
	SimulationsRun     prometheus.Counter
	SimulationDuration prometheus.Histogram
	Sweeps             *prometheus.CounterVec   // labels: kind={performance,budget}, outcome={complete,cancelled,error}
	SweepDuration      *prometheus.HistogramVec // labels: kind
	ReportsPublished   *prometheus.CounterVec   // labels: outcome={success,error,skipped}
	UsableYears        prometheus.Gauge

	// Rainfall download.
	DownloadRequests    *prometheus.CounterVec // labels: outcome={success,error,empty}
	DownloadCache       *prometheus.CounterVec // labels: result={hit,miss}
	DownloadAPIDuration prometheus.Histogram
	DownloadEnabled     prometheus.Gauge
	ScheduledRuns       *prometheus.CounterVec // labels: job, outcome={success,error,skipped}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid "already
// registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		MessagesConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_consumed_total",
			Help:      "Total messages read from the rainfall topic.",
		}),
		RecordsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rainfall_records_ingested_total",
			Help:      "Daily rainfall records newly stored.",
		}),
		RecordsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rainfall_records_skipped_total",
			Help:      "Daily rainfall records skipped because the day was already stored.",
		}),
		TransformErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transform_errors_total",
			Help:      "Total rainfall messages that could not be parsed.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 when the ingestion pipeline is active, 0 when shut down.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Number of messages per batch extracted from Kafka.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete batch extract-transform-load cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		SimulationsRun: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "simulations_total",
			Help:      "Single tank reliability estimates computed.",
		}),
		SimulationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "simulation_duration_seconds",
			Help:      "Duration of one reliability estimate.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}),
		Sweeps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweeps_total",
			Help:      "Tank size sweeps by kind and outcome.",
		}, []string{"kind", "outcome"}),
		SweepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sweep_duration_seconds",
			Help:      "Duration of a tank size sweep.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5},
		}, []string{"kind"}),
		ReportsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sizing_reports_published_total",
			Help:      "Sizing reports written to the report topic by outcome.",
		}, []string{"outcome"}),
		UsableYears: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "usable_rainfall_years",
			Help:      "Complete years of daily rainfall available to the simulator.",
		}),
		DownloadRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "download_requests_total",
			Help:      "Visual Crossing month requests by outcome.",
		}, []string{"outcome"}),
		DownloadCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "download_cache_total",
			Help:      "Rainfall month cache lookups by result.",
		}, []string{"result"}),
		DownloadAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "download_api_duration_seconds",
			Help:      "Visual Crossing API request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		DownloadEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "download_enabled",
			Help:      "1 when rainfall download is configured, 0 otherwise.",
		}),
		ScheduledRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduled_runs_total",
			Help:      "Scheduled job runs by job and outcome.",
		}, []string{"job", "outcome"}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.MessagesConsumed,
		m.RecordsIngested,
		m.RecordsSkipped,
		m.TransformErrors,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.SimulationsRun,
		m.SimulationDuration,
		m.Sweeps,
		m.SweepDuration,
		m.ReportsPublished,
		m.UsableYears,
		m.DownloadRequests,
		m.DownloadCache,
		m.DownloadAPIDuration,
		m.DownloadEnabled,
		m.ScheduledRuns,
	}
}
