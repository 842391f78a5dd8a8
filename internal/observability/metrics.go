package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "disaster_ingest"

// Metrics holds the Prometheus counters, histograms, and gauges for the ingestion service.
type Metrics struct {
	RunsTotal       *prometheus.CounterVec // labels: outcome={completed,failed,cancelled,busy}
	RunDuration     prometheus.Histogram
	PipelineRunning prometheus.Gauge

	ItemsTotal     *prometheus.CounterVec // labels: status={created,updated,failed}
	ItemsSkipped   *prometheus.CounterVec // labels: reason={stale,no_content,no_coordinates}
	DetailTimeouts prometheus.Counter

	// Geocoding metrics.
	GeocodeRequests    *prometheus.CounterVec // labels: outcome={success,error,empty}
	GeocodeCache       *prometheus.CounterVec // labels: result={hit,miss}
	GeocodeAPIDuration prometheus.Histogram
	GeocodeEnabled     prometheus.Gauge

	// Model metrics.
	ModelCalls *prometheus.CounterVec // labels: kind={location,classify}, outcome={success,error}

	ArchivedImages  *prometheus.CounterVec // labels: outcome={success,error}
	PublishedEvents *prometheus.CounterVec // labels: outcome={success,error}
}

func newMetrics() *Metrics {
	return &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Ingestion runs by outcome.",
		}, []string{"outcome"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete ingestion run.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 while an ingestion run is in progress, 0 otherwise.",
		}),
		ItemsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_total",
			Help:      "Processed posts by result status.",
		}, []string{"status"}),
		ItemsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_skipped_total",
			Help:      "Posts skipped before persistence, by reason.",
		}, []string{"reason"}),
		DetailTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detail_timeouts_total",
			Help:      "Post detail fetches abandoned after the per-item timeout.",
		}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      "Geocoding API requests by outcome.",
		}, []string{"outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_cache_total",
			Help:      "Geocoding cache lookups by result.",
		}, []string{"result"}),
		GeocodeAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "geocode_api_duration_seconds",
			Help:      "Google Geocoding API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		GeocodeEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "geocode_enabled",
			Help:      "1 when geocoding is enabled, 0 otherwise.",
		}),
		ModelCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_calls_total",
			Help:      "Language model calls by kind and outcome.",
		}, []string{"kind", "outcome"}),
		ArchivedImages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archived_images_total",
			Help:      "Post images copied to object storage, by outcome.",
		}, []string{"outcome"}),
		PublishedEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "published_events_total",
			Help:      "Post events written to Kafka, by outcome.",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.RunsTotal,
		m.RunDuration,
		m.PipelineRunning,
		m.ItemsTotal,
		m.ItemsSkipped,
		m.DetailTimeouts,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeAPIDuration,
		m.GeocodeEnabled,
		m.ModelCalls,
		m.ArchivedImages,
		m.PublishedEvents,
	}
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}
