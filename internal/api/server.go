// Package api exposes the JSON HTTP surface: question answering, namespace
// management, ingestion, health probes, and the metrics scrape endpoint.
package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/finsight0/finsight/internal/metrics"
)

// ServerConfig contains configuration for creating the API server.
type ServerConfig struct {
	Logger     *slog.Logger
	Answerer   Answerer              // Required
	Catalog    Catalog               // Required
	Ingestor   Ingestor              // Optional: nil disables POST /api/v1/ingest
	DB         Pinger                // Optional: nil skips the DB ping in /ready
	Metrics    *metrics.Metrics      // Optional: nil disables instrumentation
	Registry   *prometheus.Registry  // Optional: nil disables GET /metrics
	DataDir    string                // Default directory for ingestion requests
	TrustProxy bool                  // Trust X-Real-IP/X-Forwarded-For headers
	RateBurst  int                   // Rate limiter burst size per IP (0 = default 60)
}

// Server is the JSON API HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates the API server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Answerer == nil {
		return nil, errors.New("answerer is required")
	}
	if cfg.Catalog == nil {
		return nil, errors.New("catalog is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	qh := &queryHandler{answerer: cfg.Answerer, metrics: cfg.Metrics, logger: logger}
	dh := &documentsHandler{
		catalog:  cfg.Catalog,
		ingestor: cfg.Ingestor,
		dataDir:  cfg.DataDir,
		metrics:  cfg.Metrics,
		logger:   logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/query", qh.answer)
	mux.HandleFunc("GET /api/v1/namespaces", dh.listNamespaces)
	mux.HandleFunc("DELETE /api/v1/namespaces/{name}", dh.deleteNamespace)
	mux.HandleFunc("POST /api/v1/ingest", dh.runIngest)

	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 60
	}
	rl := newRateLimiter(1.0, burst)

	// Middleware stack, outermost first:
	//   Recovery -> RequestID -> Logging -> Metrics -> RateLimit -> Routes
	// RequestID runs before Logging so request_id is available in log attributes.
	var handler http.Handler = mux
	handler = rateLimitMiddleware(rl, cfg.TrustProxy, logger)(handler)
	if cfg.Metrics != nil {
		handler = metricsMiddleware(cfg.Metrics)(handler)
	}
	handler = loggingMiddleware(logger)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(logger)(handler)

	// Probes and the scrape endpoint bypass the middleware stack.
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", health(logger))
	topMux.Handle("GET /ready", readiness(cfg.DB, logger))
	if cfg.Registry != nil {
		topMux.Handle("GET /metrics", metrics.Handler(cfg.Registry))
	}
	topMux.Handle("/", handler)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}
