package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"
)

// DB is the subset of pgxpool.Pool the postgres querier uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// PostgresQuerier implements Querier against the chunks table.
type PostgresQuerier struct {
	db DB
}

var _ Querier = (*PostgresQuerier)(nil)

// NewPostgresQuerier creates a querier backed by a pgx pool or transaction.
func NewPostgresQuerier(db DB) *PostgresQuerier {
	return &PostgresQuerier{db: db}
}

const upsertChunkSQL = `
INSERT INTO chunks (id, namespace, content, embedding, metadata)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE SET
    namespace = EXCLUDED.namespace,
    content   = EXCLUDED.content,
    embedding = EXCLUDED.embedding,
    metadata  = EXCLUDED.metadata`

// UpsertChunks writes all rows in a single pgx batch round trip.
func (q *PostgresQuerier) UpsertChunks(ctx context.Context, rows []Row) error {
	if len(rows) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, row := range rows {
		metadata, err := json.Marshal(row.Metadata)
		if err != nil {
			return fmt.Errorf("marshaling metadata for %q: %w", row.ID, err)
		}
		batch.Queue(upsertChunkSQL, row.ID, row.Namespace, row.Content, row.Embedding, metadata)
	}

	results := q.db.SendBatch(ctx, batch)
	defer func() { _ = results.Close() }()

	for i := range rows {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("upserting chunk %q: %w", rows[i].ID, err)
		}
	}
	return nil
}

const searchChunksSQL = `
SELECT id, namespace, content, metadata, 1 - (embedding <=> $2) AS similarity
FROM chunks
WHERE namespace = $1
ORDER BY embedding <=> $2
LIMIT $3`

// SearchChunks runs a cosine nearest-neighbour query within one namespace.
// The <=> operator returns cosine distance; similarity is 1 - distance.
func (q *PostgresQuerier) SearchChunks(ctx context.Context, namespace string, embedding pgvector.Vector, limit int) ([]Candidate, error) {
	rows, err := q.db.Query(ctx, searchChunksSQL, namespace, embedding, limit)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer rows.Close()

	var candidates []Candidate
	for rows.Next() {
		var (
			c        Candidate
			rawMeta  []byte
			metadata Metadata
		)
		if err := rows.Scan(&c.ID, &c.Namespace, &c.Text, &rawMeta, &c.Similarity); err != nil {
			return nil, fmt.Errorf("scanning candidate: %w", err)
		}
		if err := json.Unmarshal(rawMeta, &metadata); err != nil {
			return nil, fmt.Errorf("parsing metadata for %q: %w", c.ID, err)
		}
		c.Source = metadata.Source
		c.Page = metadata.Page
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating candidates: %w", err)
	}
	return candidates, nil
}

const listNamespacesSQL = `
SELECT DISTINCT namespace FROM chunks ORDER BY namespace`

// ListNamespaces returns every namespace with at least one chunk.
func (q *PostgresQuerier) ListNamespaces(ctx context.Context) ([]string, error) {
	rows, err := q.db.Query(ctx, listNamespacesSQL)
	if err != nil {
		return nil, fmt.Errorf("listing namespaces: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning namespace: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating namespaces: %w", err)
	}
	return names, nil
}

// DeleteNamespace removes every chunk in a namespace.
func (q *PostgresQuerier) DeleteNamespace(ctx context.Context, namespace string) (int64, error) {
	tag, err := q.db.Exec(ctx, `DELETE FROM chunks WHERE namespace = $1`, namespace)
	if err != nil {
		return 0, fmt.Errorf("deleting namespace: %w", err)
	}
	return tag.RowsAffected(), nil
}
