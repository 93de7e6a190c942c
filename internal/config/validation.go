package config

import (
	"fmt"
	"strings"
)

// VectorDimension is the dimensionality of the pgvector embedding column.
// The migration in db/migrations defines vector(768); an embedder that
// produces any other dimension is rejected at startup.
const VectorDimension = 768

// validSSLModes are the PostgreSQL SSL modes accepted by lib/pq and pgx.
var validSSLModes = map[string]bool{
	"disable":     true,
	"allow":       true,
	"prefer":      true,
	"require":     true,
	"verify-ca":   true,
	"verify-full": true,
}

// Validate checks the configuration for correctness.
// Invalid values are configuration errors and abort startup; nothing here
// is recovered silently.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	if c.Provider != ProviderGemini && c.Provider != ProviderOllama {
		return fmt.Errorf("%w: %q (must be %q or %q)",
			ErrInvalidProvider, c.Provider, ProviderGemini, ProviderOllama)
	}

	if strings.TrimSpace(c.ModelName) == "" {
		return fmt.Errorf("%w: model name is empty", ErrInvalidModelName)
	}
	if strings.TrimSpace(c.EmbedderModel) == "" {
		return fmt.Errorf("%w: embedder model is empty", ErrInvalidModelName)
	}

	// The embedding dimension must match the vector schema exactly; a
	// mismatch is fatal at startup, not a per-call error.
	if c.EmbedderDimension != VectorDimension {
		return fmt.Errorf("%w: embedder %q produces %d dimensions, schema requires %d",
			ErrInvalidEmbedderDimension, c.EmbedderModel, c.EmbedderDimension, VectorDimension)
	}

	if err := c.validateChunking(); err != nil {
		return err
	}
	if err := c.validateRetrieval(); err != nil {
		return err
	}
	return c.validatePostgres()
}

func (c *Config) validateChunking() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk_size %d must be positive", ErrInvalidChunking, c.ChunkSize)
	}
	if c.ChunkOverlap < 0 {
		return fmt.Errorf("%w: chunk_overlap %d must not be negative", ErrInvalidChunking, c.ChunkOverlap)
	}
	if c.ChunkSize <= c.ChunkOverlap {
		return fmt.Errorf("%w: chunk_size %d must be greater than chunk_overlap %d",
			ErrInvalidChunking, c.ChunkSize, c.ChunkOverlap)
	}
	if strings.TrimSpace(c.TokenizerModel) == "" {
		return fmt.Errorf("%w: tokenizer model is empty", ErrInvalidChunking)
	}
	return nil
}

func (c *Config) validateRetrieval() error {
	if c.TopK < 1 {
		return fmt.Errorf("%w: top_k %d must be at least 1", ErrInvalidRetrieval, c.TopK)
	}
	if c.RerankPool < c.TopK {
		return fmt.Errorf("%w: rerank_pool %d must be at least top_k %d",
			ErrInvalidRetrieval, c.RerankPool, c.TopK)
	}
	if strings.TrimSpace(c.RerankerURL) == "" {
		return ErrMissingRerankerURL
	}
	return nil
}

func (c *Config) validatePostgres() error {
	if strings.TrimSpace(c.PostgresHost) == "" {
		return fmt.Errorf("%w: host is empty", ErrInvalidPostgresHost)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: port %d out of range 1-65535", ErrInvalidPostgresPort, c.PostgresPort)
	}
	if strings.TrimSpace(c.PostgresDBName) == "" {
		return fmt.Errorf("%w: database name is empty", ErrInvalidPostgresDBName)
	}
	if !validSSLModes[c.PostgresSSLMode] {
		return fmt.Errorf("%w: %q", ErrInvalidPostgresSSLMode, c.PostgresSSLMode)
	}
	return nil
}
