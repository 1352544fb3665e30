package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the feed service.
type Metrics struct {
	FetchAttempts  *prometheus.CounterVec   // labels: flow
	FetchOutcomes  *prometheus.CounterVec   // labels: flow, outcome={delivered,failed,cancelled}
	FetchFailures  *prometheus.CounterVec   // labels: flow, kind
	FetchRejected  *prometheus.CounterVec   // labels: flow
	StaleDiscarded *prometheus.CounterVec   // labels: flow
	FetchDuration  *prometheus.HistogramVec // labels: flow
	FetchLoading   *prometheus.GaugeVec     // labels: flow

	// Report and publishing metrics.
	EventsDelivered prometheus.Counter
	EventsPublished prometheus.Counter
	PublishErrors   prometheus.Counter
	KafkaEnabled    prometheus.Gauge
}

// NewMetrics creates and registers all feed metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := NewUnregisteredMetrics()
	prometheus.MustRegister(
		m.FetchAttempts,
		m.FetchOutcomes,
		m.FetchFailures,
		m.FetchRejected,
		m.StaleDiscarded,
		m.FetchDuration,
		m.FetchLoading,
		m.EventsDelivered,
		m.EventsPublished,
		m.PublishErrors,
		m.KafkaEnabled,
	)
	return m
}

// NewUnregisteredMetrics creates the feed metrics without registering them,
// for one-shot commands that never serve /metrics.
func NewUnregisteredMetrics() *Metrics {
	return &Metrics{
		FetchAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quake_feed",
			Name:      "fetch_attempts_total",
			Help:      "Fetch attempts started, by flow.",
		}, []string{"flow"}),
		FetchOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quake_feed",
			Name:      "fetch_outcomes_total",
			Help:      "Terminal fetch attempt states, by flow and outcome.",
		}, []string{"flow", "outcome"}),
		FetchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quake_feed",
			Name:      "fetch_failures_total",
			Help:      "Failed fetch attempts by flow and failure kind.",
		}, []string{"flow", "kind"}),
		FetchRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quake_feed",
			Name:      "fetch_rejected_total",
			Help:      "Start requests rejected because a fetch was already in flight.",
		}, []string{"flow"}),
		StaleDiscarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quake_feed",
			Name:      "stale_results_discarded_total",
			Help:      "Worker results dropped at the handoff because the attempt was no longer current.",
		}, []string{"flow"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "quake_feed",
			Name:      "fetch_duration_seconds",
			Help:      "Duration from start to handoff of a fetch attempt.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
		}, []string{"flow"}),
		FetchLoading: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "quake_feed",
			Name:      "fetch_loading",
			Help:      "1 while a fetch attempt is in flight, 0 otherwise.",
		}, []string{"flow"}),
		EventsDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quake_feed",
			Name:      "events_delivered_total",
			Help:      "Event view models delivered to the report.",
		}),
		EventsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quake_feed",
			Name:      "events_published_total",
			Help:      "Event view models written to the sink topic.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quake_feed",
			Name:      "publish_errors_total",
			Help:      "Failed batch writes to the sink topic.",
		}),
		KafkaEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "quake_feed",
			Name:      "kafka_enabled",
			Help:      "1 when delivered events are published to Kafka, 0 otherwise.",
		}),
	}
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return NewUnregisteredMetrics()
}
