package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finsight0/finsight/internal/testutil"
)

// TestStore_Postgres_Integration exercises the real chunks table: upsert,
// idempotent re-upsert, namespaced vector search and namespace listing.
func TestStore_Postgres_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	testDB, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	s := New(NewPostgresQuerier(testDB.Pool), &testutil.StubEmbedder{}, testutil.NopLogger())

	acme := []Chunk{
		{ID: "acme_namespace_10k_pdf_p1_c1", Text: "Acme revenue grew twelve percent in fiscal 2023.", Source: "10k.pdf", Page: 1, Index: 1, TokenCount: 9},
		{ID: "acme_namespace_10k_pdf_p2_c1", Text: "Operating expenses were driven by data center build-out.", Source: "10k.pdf", Page: 2, Index: 1, TokenCount: 9},
	}
	globex := []Chunk{
		{ID: "globex_namespace_10k_pdf_p1_c1", Text: "Globex reported flat revenue and a declining margin.", Source: "10k.pdf", Page: 1, Index: 1, TokenCount: 8},
	}

	require.NoError(t, s.Upsert(ctx, "acme_namespace", acme))
	require.NoError(t, s.Upsert(ctx, "globex_namespace", globex))

	// Re-ingesting the same chunks must not duplicate rows.
	require.NoError(t, s.Upsert(ctx, "acme_namespace", acme))

	var count int
	require.NoError(t, testDB.Pool.QueryRow(ctx, "SELECT COUNT(*) FROM chunks").Scan(&count))
	assert.Equal(t, 3, count, "re-upsert should overwrite, not duplicate")

	// Search is scoped to the namespace.
	results, err := s.Search(ctx, "acme_namespace", "Acme revenue grew twelve percent in fiscal 2023.", 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	for _, r := range results {
		assert.Equal(t, "acme_namespace", r.Namespace)
	}

	// The stub embedder maps identical text to identical vectors, so the
	// exact chunk comes back first with similarity ~1.
	assert.Equal(t, "acme_namespace_10k_pdf_p1_c1", results[0].ID)
	assert.InDelta(t, 1.0, results[0].Similarity, 1e-4)
	assert.Equal(t, "10k.pdf", results[0].Source)
	assert.Equal(t, 1, results[0].Page)

	names, err := s.Namespaces(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"acme_namespace", "globex_namespace"}, names)

	deleted, err := s.DeleteNamespace(ctx, "globex_namespace")
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	names, err = s.Namespaces(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"acme_namespace"}, names)
}
