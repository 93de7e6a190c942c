// Package store persists and searches document chunks in PostgreSQL with
// pgvector.
//
// Each chunk row carries a namespace column that partitions the table into
// independent document collections; vector search always runs within one
// namespace. The store owns embedding generation for both ingestion and
// queries, so callers hand it plain text.
//
// Store is safe for concurrent use by multiple goroutines.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/pgvector/pgvector-go"
)

// EmbedBatchSize is the maximum number of chunks embedded and written per
// round trip during ingestion.
const EmbedBatchSize = 50

// ErrEmptyEmbedding indicates the embedder returned no vector for a text.
var ErrEmptyEmbedding = errors.New("store: embedder returned empty embedding")

// Row is one chunk as persisted in the chunks table.
type Row struct {
	ID        string
	Namespace string
	Content   string
	Embedding pgvector.Vector
	Metadata  Metadata
}

// Metadata is the JSONB payload stored alongside each chunk. It carries
// everything needed to cite the chunk without re-reading the source file.
type Metadata struct {
	Source     string `json:"source"`
	Page       int    `json:"page"`
	ChunkIndex int    `json:"chunk_index"`
	TokenCount int    `json:"token_count"`
}

// Candidate is a search hit: a chunk plus its cosine similarity to the
// query, in [0, 1] where 1 is identical direction.
type Candidate struct {
	ID         string
	Namespace  string
	Source     string
	Page       int
	Text       string
	Similarity float64
}

// Querier defines the database operations the store needs. The pgx
// implementation lives in this package; tests substitute a mock.
type Querier interface {
	// UpsertChunks inserts or replaces chunk rows by primary key.
	UpsertChunks(ctx context.Context, rows []Row) error

	// SearchChunks returns the limit nearest chunks to the embedding
	// within a namespace, ordered by ascending cosine distance.
	SearchChunks(ctx context.Context, namespace string, embedding pgvector.Vector, limit int) ([]Candidate, error)

	// ListNamespaces returns the distinct namespaces present, sorted.
	ListNamespaces(ctx context.Context) ([]string, error)

	// DeleteNamespace removes every chunk in a namespace and reports the
	// number of rows deleted.
	DeleteNamespace(ctx context.Context, namespace string) (int64, error)
}

// Chunk is the store's ingestion input: an identified piece of text with
// citation metadata. The caller computes IDs so that re-ingesting the same
// document overwrites rather than duplicates.
type Chunk struct {
	ID         string
	Text       string
	Source     string
	Page       int
	Index      int
	TokenCount int
}

// Store manages chunk persistence and vector search.
type Store struct {
	queries  Querier
	embedder ai.Embedder
	logger   *slog.Logger
}

// New creates a Store. A nil logger falls back to slog.Default.
func New(queries Querier, embedder ai.Embedder, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{queries: queries, embedder: embedder, logger: logger}
}

// Upsert embeds and writes chunks into a namespace in batches of
// EmbedBatchSize. Chunk IDs are primary keys, so repeating an upsert with
// identical chunks is idempotent.
func (s *Store) Upsert(ctx context.Context, namespace string, chunks []Chunk) error {
	for start := 0; start < len(chunks); start += EmbedBatchSize {
		end := min(start+EmbedBatchSize, len(chunks))
		batch := chunks[start:end]

		vectors, err := s.embedBatch(ctx, batch)
		if err != nil {
			return fmt.Errorf("embedding batch at offset %d: %w", start, err)
		}

		rows := make([]Row, len(batch))
		for i, c := range batch {
			rows[i] = Row{
				ID:        c.ID,
				Namespace: namespace,
				Content:   c.Text,
				Embedding: vectors[i],
				Metadata: Metadata{
					Source:     c.Source,
					Page:       c.Page,
					ChunkIndex: c.Index,
					TokenCount: c.TokenCount,
				},
			}
		}

		if err := s.queries.UpsertChunks(ctx, rows); err != nil {
			return fmt.Errorf("upserting batch at offset %d: %w", start, err)
		}
		s.logger.Debug("upserted chunk batch",
			"namespace", namespace, "offset", start, "count", len(batch))
	}
	return nil
}

// Search embeds the query and returns the limit most similar chunks in the
// namespace, best first.
func (s *Store) Search(ctx context.Context, namespace, query string, limit int) ([]Candidate, error) {
	vectors, err := s.embedTexts(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	candidates, err := s.queries.SearchChunks(ctx, namespace, vectors[0], limit)
	if err != nil {
		return nil, fmt.Errorf("searching namespace %q: %w", namespace, err)
	}
	return candidates, nil
}

// Namespaces returns the distinct namespaces in the store, sorted. It
// implements the namespace directory consumed by query routing.
func (s *Store) Namespaces(ctx context.Context) ([]string, error) {
	names, err := s.queries.ListNamespaces(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing namespaces: %w", err)
	}
	return names, nil
}

// DeleteNamespace removes every chunk in a namespace.
func (s *Store) DeleteNamespace(ctx context.Context, namespace string) (int64, error) {
	n, err := s.queries.DeleteNamespace(ctx, namespace)
	if err != nil {
		return 0, fmt.Errorf("deleting namespace %q: %w", namespace, err)
	}
	s.logger.Info("deleted namespace", "namespace", namespace, "chunks", n)
	return n, nil
}

func (s *Store) embedBatch(ctx context.Context, chunks []Chunk) ([]pgvector.Vector, error) {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	return s.embedTexts(ctx, texts)
}

func (s *Store) embedTexts(ctx context.Context, texts []string) ([]pgvector.Vector, error) {
	docs := make([]*ai.Document, len(texts))
	for i, t := range texts {
		docs[i] = ai.DocumentFromText(t, nil)
	}

	resp, err := s.embedder.Embed(ctx, &ai.EmbedRequest{Input: docs})
	if err != nil {
		return nil, fmt.Errorf("embed request: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts",
			ErrEmptyEmbedding, len(resp.Embeddings), len(texts))
	}

	vectors := make([]pgvector.Vector, len(texts))
	for i, emb := range resp.Embeddings {
		if len(emb.Embedding) == 0 {
			return nil, fmt.Errorf("%w: index %d", ErrEmptyEmbedding, i)
		}
		vectors[i] = pgvector.NewVector(emb.Embedding)
	}
	return vectors, nil
}
