package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "vtec_browser"

// Metrics holds the Prometheus counters, histograms, and gauges for a browsing session.
type Metrics struct {
	Navigations   *prometheus.CounterVec // labels: shape={query,path,hash,none}
	URLMigrations prometheus.Counter
	Reloads       prometheus.Counter
	SessionReady  prometheus.Gauge

	// Orchestrator fetch metrics.
	FetchErrors   *prometheus.CounterVec   // labels: fetch
	StaleResults  *prometheus.CounterVec   // labels: fetch
	FetchDuration *prometheus.HistogramVec // labels: endpoint

	// Upstream response cache.
	Cache *prometheus.CounterVec // labels: result={hit,miss}

	ViewRecordsPublished prometheus.Counter
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.Navigations,
		m.URLMigrations,
		m.Reloads,
		m.SessionReady,
		m.FetchErrors,
		m.StaleResults,
		m.FetchDuration,
		m.Cache,
		m.ViewRecordsPublished,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		Navigations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "navigations_total",
			Help:      "URLs processed by the navigation controller, by decoded shape.",
		}, []string{"shape"}),
		URLMigrations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "url_migrations_total",
			Help:      "Legacy path or hash URLs rewritten to the query form.",
		}),
		Reloads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reloads_total",
			Help:      "Event reloads triggered by an identifier change.",
		}),
		SessionReady: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "session_ready",
			Help:      "1 once the session has loaded its first event.",
		}),
		FetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_errors_total",
			Help:      "Failed upstream fetches by orchestrator stage.",
		}, []string{"fetch"}),
		StaleResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_results_total",
			Help:      "Fetch results discarded because a newer reload started.",
		}, []string{"fetch"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_duration_seconds",
			Help:      "IEM service request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"endpoint"}),
		Cache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "response_cache_total",
			Help:      "Upstream response cache lookups by result.",
		}, []string{"result"}),
		ViewRecordsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "view_records_published_total",
			Help:      "View records written to the audit topic.",
		}),
	}
}
