// Package app assembles the application: database, Genkit, embedder,
// vector store, retrieval engine, tools, agent and ingestion pipeline.
package app

import (
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/finsight0/finsight/internal/agent"
	"github.com/finsight0/finsight/internal/config"
	"github.com/finsight0/finsight/internal/ingest"
	"github.com/finsight0/finsight/internal/metrics"
	"github.com/finsight0/finsight/internal/query"
	"github.com/finsight0/finsight/internal/retrieval"
	"github.com/finsight0/finsight/internal/store"
	"github.com/finsight0/finsight/internal/summarize"
	"github.com/finsight0/finsight/internal/tools"
)

// App is the application container. Fields are populated by Setup in
// dependency order; Close releases them in reverse.
type App struct {
	Config *config.Config

	Genkit   *genkit.Genkit
	Embedder ai.Embedder
	Pool     *pgxpool.Pool

	Store      *store.Store
	Retrieval  *retrieval.Engine
	Summarizer *summarize.Summarizer
	Kit        *tools.Kit
	ToolRefs   []ai.ToolRef
	Agent      *agent.Agent
	Query      *query.Service
	Ingest     *ingest.Pipeline

	Metrics  *metrics.Metrics
	Registry *prometheus.Registry

	logger      *slog.Logger
	otelCleanup func()
}

// Close shuts down the application resources. Safe to call on a partially
// initialized App.
func (a *App) Close() error {
	if a.logger != nil {
		a.logger.Info("shutting down application")
	}

	if a.Pool != nil {
		a.Pool.Close()
	}
	if a.otelCleanup != nil {
		a.otelCleanup()
	}
	return nil
}
