package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/firebase/genkit/go/plugins/ollama"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/finsight0/finsight/db"
	"github.com/finsight0/finsight/internal/agent"
	"github.com/finsight0/finsight/internal/chunker"
	"github.com/finsight0/finsight/internal/config"
	"github.com/finsight0/finsight/internal/ingest"
	"github.com/finsight0/finsight/internal/metrics"
	"github.com/finsight0/finsight/internal/observability"
	"github.com/finsight0/finsight/internal/query"
	"github.com/finsight0/finsight/internal/rerank"
	"github.com/finsight0/finsight/internal/retrieval"
	"github.com/finsight0/finsight/internal/search"
	"github.com/finsight0/finsight/internal/store"
	"github.com/finsight0/finsight/internal/summarize"
	"github.com/finsight0/finsight/internal/tokenizer"
	"github.com/finsight0/finsight/internal/tools"
)

// Setup creates and initializes the application. Call Close to release.
func Setup(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, retErr error) {
	if cfg == nil {
		return nil, config.ErrConfigNil
	}
	if logger == nil {
		logger = slog.Default()
	}

	a := &App{Config: cfg, logger: logger}

	// On error, release everything already initialized.
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	a.Metrics, a.Registry = metrics.New()

	// Tracing must be registered before Genkit initialization so its
	// TracerProvider picks up the span processor.
	if cfg.Otel.Enabled {
		a.otelCleanup = provideOtelShutdown(ctx, cfg, logger)
	}

	pool, err := provideDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Pool = pool

	g, embedder, err := provideGenkit(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Genkit = g
	a.Embedder = embedder

	a.Store = store.New(store.NewPostgresQuerier(pool), embedder, logger)

	scorer := rerank.NewClient(cfg.RerankerURL, cfg.RerankTimeout)
	a.Retrieval = retrieval.New(a.Store, scorer, retrieval.Config{
		PoolSize: cfg.RerankPool,
		TopK:     cfg.TopK,
		Timeout:  cfg.RetrieveTimeout,
		Metrics:  a.Metrics,
	}, logger)

	a.Summarizer = summarize.New(g, cfg.ModelName, logger)

	var web tools.WebSearcher
	if cfg.SearXNG.BaseURL != "" {
		web = search.New(search.Config{
			BaseURL:    cfg.SearXNG.BaseURL,
			MaxResults: cfg.SearXNG.MaxResults,
			RateLimit:  cfg.SearXNG.RateLimit,
		}, logger)
	}

	kit, err := tools.NewKit(a.Store, a.Retrieval, a.Summarizer, web, a.Metrics, logger)
	if err != nil {
		return nil, fmt.Errorf("creating tool kit: %w", err)
	}
	a.Kit = kit
	a.ToolRefs = kit.Register(g)

	a.Agent = agent.New(g, a.ToolRefs, cfg.ModelName, cfg.MaxTurns, logger)
	a.Query = query.New(a.Agent, cfg.AnswerTimeout, logger)

	codec, err := tokenizer.NewTiktoken(cfg.TokenizerModel)
	if err != nil {
		return nil, fmt.Errorf("creating tokenizer: %w", err)
	}
	a.Ingest = ingest.New(a.Store, codec, chunker.Config{
		Window:  cfg.ChunkSize,
		Overlap: cfg.ChunkOverlap,
	}, nil, logger)

	return a, nil
}

// provideOtelShutdown sets up OTLP tracing and returns a cleanup that
// flushes pending spans with a bounded timeout.
func provideOtelShutdown(ctx context.Context, cfg *config.Config, logger *slog.Logger) func() {
	shutdown, err := observability.Setup(ctx, observability.Config{
		CollectorHost: cfg.Otel.Endpoint,
		ServiceName:   cfg.Otel.ServiceName,
		Environment:   cfg.Otel.Environment,
	}, logger)
	if err != nil {
		logger.Warn("tracing setup failed", "error", err)
		return func() {}
	}

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Warn("shutting down tracer provider", "error", err)
		}
	}
}

// provideDBPool runs migrations and creates the PostgreSQL connection pool.
func provideDBPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, nil
}

// provideGenkit initializes Genkit with the configured provider and
// returns the embedder alongside.
func provideGenkit(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*genkit.Genkit, ai.Embedder, error) {
	switch cfg.Provider {
	case config.ProviderOllama:
		ollamaPlugin := &ollama.Ollama{ServerAddress: cfg.OllamaHost}
		g := genkit.Init(ctx, genkit.WithPlugins(ollamaPlugin))
		if g == nil {
			return nil, nil, errors.New("initializing genkit with ollama provider")
		}
		// Ollama requires explicit registration, no auto-discovery.
		ollamaPlugin.DefineModel(g, ollama.ModelDefinition{
			Name: cfg.ModelName,
			Type: "chat",
		}, nil)
		ollamaPlugin.DefineEmbedder(g, cfg.OllamaHost, cfg.EmbedderModel, nil)

		embedder := ollama.Embedder(g, cfg.OllamaHost)
		if embedder == nil {
			return nil, nil, fmt.Errorf("embedder %q not found for ollama provider", cfg.EmbedderModel)
		}
		logger.Info("initialized Genkit with ollama provider",
			"model", cfg.ModelName, "host", cfg.OllamaHost)
		return g, embedder, nil

	case config.ProviderGemini, "":
		g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
		if g == nil {
			return nil, nil, errors.New("initializing genkit with gemini provider")
		}

		embedder := googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
		if embedder == nil {
			return nil, nil, fmt.Errorf("embedder %q not found for gemini provider", cfg.EmbedderModel)
		}
		logger.Info("initialized Genkit with gemini provider", "model", cfg.ModelName)
		// Gemini embedders output 3072 dimensions by default; the pgvector
		// schema stores store.VectorDimension.
		return g, withOutputDimension(embedder, int32(cfg.EmbedderDimension)), nil

	default:
		return nil, nil, fmt.Errorf("%w: %q", config.ErrInvalidProvider, cfg.Provider)
	}
}
