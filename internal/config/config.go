// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.finsight/config.yaml or ./config.yaml)
//  3. Default values
//
// Main configuration categories:
//   - AI: provider, summarizer model, embedder model
//   - Chunking: token window size and overlap
//   - Retrieval: top-k, re-rank pool size, re-ranker endpoint
//   - Storage: PostgreSQL connection (see storage.go)
//   - Tools: SearXNG web search
//
// Validation runs at load time and fails fast: invalid chunking
// parameters, a missing re-ranker endpoint, or an embedder whose output
// dimension does not match the vector schema are configuration errors,
// never per-call errors.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrInvalidChunking indicates the chunk window/overlap pair is invalid.
	ErrInvalidChunking = errors.New("invalid chunking parameters")

	// ErrInvalidModelName indicates the model name is empty or malformed.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidProvider indicates the AI provider is not supported.
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrInvalidEmbedderDimension indicates the embedder produces vectors
	// incompatible with the pgvector schema.
	ErrInvalidEmbedderDimension = errors.New("incompatible embedder dimension")

	// ErrInvalidRetrieval indicates top-k / pool-size values are out of range.
	ErrInvalidRetrieval = errors.New("invalid retrieval parameters")

	// ErrMissingRerankerURL indicates no cross-encoder endpoint is configured.
	ErrMissingRerankerURL = errors.New("missing reranker URL")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is invalid.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")
)

// AI provider identifiers used in Config.Provider.
const (
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
)

const (
	// DefaultEmbedderModel is the default Gemini embedder model.
	// gemini-embedding-001 outputs 3072 dimensions by default but supports
	// truncation to 768 via OutputDimensionality; the pgvector schema uses
	// 768 (store.VectorDimension).
	DefaultEmbedderModel = "gemini-embedding-001"

	// DefaultChunkSize is the token window for chunking. 512 retrieves
	// better than 1024 for dense filings.
	DefaultChunkSize = 512

	// DefaultChunkOverlap is the token overlap between consecutive chunks.
	DefaultChunkOverlap = 64

	// DefaultTopK is the number of passages handed to the summarizer.
	DefaultTopK = 3

	// DefaultRerankPool is the per-namespace candidate count fetched for
	// re-ranking.
	DefaultRerankPool = 20
)

// Config stores application configuration.
type Config struct {
	// AI provider and model configuration
	Provider    string  `mapstructure:"provider"`    // "gemini" (default) or "ollama"
	ModelName   string  `mapstructure:"model_name"`  // summarizer/brain model
	Temperature float32 `mapstructure:"temperature"` // 0 = deterministic
	MaxTurns    int     `mapstructure:"max_turns"`   // agent tool-calling loop bound

	// Ollama configuration (only used when provider is "ollama")
	OllamaHost string `mapstructure:"ollama_host"`

	// Embedding configuration
	EmbedderModel     string `mapstructure:"embedder_model"`
	EmbedderDimension int    `mapstructure:"embedder_dimension"`

	// Chunking configuration
	TokenizerModel string `mapstructure:"tokenizer_model"` // tiktoken encoding lookup
	ChunkSize      int    `mapstructure:"chunk_size"`
	ChunkOverlap   int    `mapstructure:"chunk_overlap"`

	// Retrieval configuration
	TopK            int           `mapstructure:"top_k"`
	RerankPool      int           `mapstructure:"rerank_pool"`
	RerankerURL     string        `mapstructure:"reranker_url"` // cross-encoder scoring endpoint
	RetrieveTimeout time.Duration `mapstructure:"retrieve_timeout"`
	RerankTimeout   time.Duration `mapstructure:"rerank_timeout"`
	AnswerTimeout   time.Duration `mapstructure:"answer_timeout"`

	// Ingestion configuration
	DataDir string `mapstructure:"data_dir"` // registry + local state

	// Storage configuration (see storage.go)
	PostgresHost     string `mapstructure:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password"`
	PostgresDBName   string `mapstructure:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode"`

	// Web search tool configuration
	SearXNG SearXNGConfig `mapstructure:"searxng"`

	// Observability configuration
	Otel OtelConfig `mapstructure:"otel"`
}

// SearXNGConfig configures the web search tool.
type SearXNGConfig struct {
	BaseURL    string  `mapstructure:"base_url"`
	MaxResults int     `mapstructure:"max_results"`
	RateLimit  float64 `mapstructure:"rate_limit"` // requests per second
}

// OtelConfig configures optional OTLP trace export.
type OtelConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Endpoint    string `mapstructure:"endpoint"` // collector, host:port
	ServiceName string `mapstructure:"service_name"`
	Environment string `mapstructure:"environment"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".finsight")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	setDefaults(v, configDir)
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is not an error; defaults apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using defaults",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL overrides individual postgres_* settings.
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(v *viper.Viper, configDir string) {
	v.SetDefault("provider", ProviderGemini)
	v.SetDefault("model_name", "gemini-2.5-flash")
	v.SetDefault("temperature", 0.0)
	v.SetDefault("max_turns", 5)
	v.SetDefault("ollama_host", "http://localhost:11434")

	v.SetDefault("embedder_model", DefaultEmbedderModel)
	v.SetDefault("embedder_dimension", 768)

	v.SetDefault("tokenizer_model", "gpt-4")
	v.SetDefault("chunk_size", DefaultChunkSize)
	v.SetDefault("chunk_overlap", DefaultChunkOverlap)

	v.SetDefault("top_k", DefaultTopK)
	v.SetDefault("rerank_pool", DefaultRerankPool)
	v.SetDefault("reranker_url", "http://localhost:8787")
	v.SetDefault("retrieve_timeout", 10*time.Second)
	v.SetDefault("rerank_timeout", 30*time.Second)
	v.SetDefault("answer_timeout", 120*time.Second)

	v.SetDefault("data_dir", filepath.Join(configDir, "data"))

	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "finsight")
	v.SetDefault("postgres_password", "finsight_dev_password")
	v.SetDefault("postgres_db_name", "finsight")
	v.SetDefault("postgres_ssl_mode", "disable")

	v.SetDefault("searxng.base_url", "http://localhost:8888")
	v.SetDefault("searxng.max_results", 3)
	v.SetDefault("searxng.rate_limit", 1.0)

	v.SetDefault("otel.enabled", false)
	v.SetDefault("otel.endpoint", "localhost:4318")
	v.SetDefault("otel.service_name", "finsight")
}

// bindEnvVariables binds environment variables to configuration keys.
// FINSIGHT_ prefixed variables override file values.
func bindEnvVariables(v *viper.Viper) {
	v.SetEnvPrefix("FINSIGHT")
	v.AutomaticEnv()

	// Explicit bindings for nested keys (AutomaticEnv does not walk these).
	for _, key := range []string{
		"searxng.base_url", "searxng.max_results", "searxng.rate_limit",
		"otel.enabled", "otel.endpoint", "otel.service_name", "otel.environment",
	} {
		_ = v.BindEnv(key)
	}
}
