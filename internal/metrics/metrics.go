// Package metrics defines the Prometheus collectors for the service and
// exposes the scrape handler.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	QueriesTotal     *prometheus.CounterVec
	QueryLatency     prometheus.Histogram
	RetrievalLatency *prometheus.HistogramVec
	RerankLatency    prometheus.Histogram
	CandidatesPooled prometheus.Histogram

	ChunksIngestedTotal prometheus.Counter
	FilesIngestedTotal  *prometheus.CounterVec

	ToolCallsTotal *prometheus.CounterVec
}

// New creates and registers all collectors on a fresh registry, returned
// alongside so the scrape handler serves exactly these metrics. A private
// registry keeps tests from colliding on the global default.
func New() (*Metrics, *prometheus.Registry) {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "HTTP requests currently being processed.",
			},
		),
		QueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "queries_total",
				Help: "Answered questions by outcome (ok, invalid, timeout, error).",
			},
			[]string{"outcome"},
		),
		QueryLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "query_latency_seconds",
				Help:    "End-to-end question answering latency in seconds.",
				Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60},
			},
		),
		RetrievalLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "retrieval_latency_seconds",
				Help:    "Vector search latency per namespace in seconds.",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
			[]string{"namespace"},
		),
		RerankLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "rerank_latency_seconds",
				Help:    "Cross-encoder scoring latency in seconds.",
				Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
		),
		CandidatesPooled: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "retrieval_candidates_pooled",
				Help:    "Candidate pool size entering the re-ranker.",
				Buckets: []float64{0, 1, 5, 10, 20, 40, 80},
			},
		),
		ChunksIngestedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "chunks_ingested_total",
				Help: "Total chunks embedded and written to the store.",
			},
		),
		FilesIngestedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "files_ingested_total",
				Help: "Ingested files by status (ingested, skipped, failed).",
			},
			[]string{"status"},
		),
		ToolCallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tool_calls_total",
				Help: "Agent tool invocations by tool name.",
			},
			[]string{"tool"},
		),
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.QueriesTotal,
		m.QueryLatency,
		m.RetrievalLatency,
		m.RerankLatency,
		m.CandidatesPooled,
		m.ChunksIngestedTotal,
		m.FilesIngestedTotal,
		m.ToolCallsTotal,
	)
	return m, reg
}

// Handler returns the scrape handler for the registry New returned.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
