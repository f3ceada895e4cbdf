package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// testDatabaseEnv names a disposable database. Its chunk tables are dropped.
const testDatabaseEnv = "SERCHA_RAG_TEST_DATABASE_URL"

func setupTestStore(t *testing.T, dims int) *Store {
	t.Helper()

	url := os.Getenv(testDatabaseEnv)
	if url == "" {
		t.Skipf("%s not set", testDatabaseEnv)
	}
	ctx := context.Background()

	conn, err := pgx.Connect(ctx, url)
	require.NoError(t, err)
	_, err = conn.Exec(ctx, "DROP TABLE IF EXISTS chunks, store_meta")
	require.NoError(t, err)
	require.NoError(t, conn.Close(ctx))

	store, err := NewStore(ctx, url, dims)
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, store.Close()) })
	return store
}

func rec(content, source string, vec ...float32) domain.EmbeddingRecord {
	return domain.EmbeddingRecord{
		Content:   content,
		Source:    source,
		Embedding: vec,
		Metadata:  domain.Metadata{domain.MetaSource: source},
	}
}

func TestNewStore_Validation(t *testing.T) {
	_, err := NewStore(context.Background(), "", 3)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = NewStore(context.Background(), "postgres://localhost/x", 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestStore_InsertAndSearch(t *testing.T) {
	store := setupTestStore(t, 3)
	ctx := context.Background()
	require.NoError(t, store.Ping(ctx))

	ids, err := store.InsertChunks(ctx, []domain.EmbeddingRecord{
		rec("Goroutines are lightweight threads", "go.md", 1, 0, 0),
		rec("Channels connect goroutines", "chan.md", 0.9, 0.1, 0),
		rec("Databases store rows", "db.md", 0, 0, 1),
	})
	require.NoError(t, err)
	require.Len(t, ids, 3)

	vhits, err := store.VectorSearch(ctx, []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, vhits, 2)
	assert.Equal(t, ids[0], vhits[0].ID)
	assert.InDelta(t, 1.0, vhits[0].Similarity, 1e-6)
	assert.Equal(t, "go.md", vhits[0].Metadata[domain.MetaSource])

	lhits, err := store.LexicalSearch(ctx, "what about databases", 10)
	require.NoError(t, err)
	require.Len(t, lhits, 1)
	assert.Equal(t, ids[2], lhits[0].ID)
	assert.Positive(t, lhits[0].Rank)

	lhits, err = store.LexicalSearch(ctx, "channels databases", 10)
	require.NoError(t, err)
	assert.Len(t, lhits, 2)
}

func TestStore_InsertAllOrNothing(t *testing.T) {
	store := setupTestStore(t, 2)
	ctx := context.Background()

	_, err := store.InsertChunks(ctx, []domain.EmbeddingRecord{rec("a", "x", 1, 0), rec("b", "x", 1)})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestStore_DimensionMismatchOnReopen(t *testing.T) {
	store := setupTestStore(t, 2)
	require.NoError(t, store.Close())

	_, err := NewStore(context.Background(), os.Getenv(testDatabaseEnv), 4)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestStore_DeleteAndReset(t *testing.T) {
	store := setupTestStore(t, 2)
	ctx := context.Background()

	_, err := store.InsertChunks(ctx, []domain.EmbeddingRecord{
		rec("alpha", "a", 1, 0), rec("alpha", "a", 1, 0), rec("alpha", "b", 1, 0),
	})
	require.NoError(t, err)

	n, err := store.DeleteSources(ctx, []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, store.Reset(ctx))
	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSortVectorHits_TiesBreakByID(t *testing.T) {
	hits := []driven.VectorHit{
		{ID: 9, Similarity: 0.5},
		{ID: 4, Similarity: 0.9},
		{ID: 7, Similarity: 0.5},
		{ID: 2, Similarity: 0.5},
	}

	sortVectorHits(hits)

	ids := make([]int64, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	assert.Equal(t, []int64{4, 2, 7, 9}, ids)
}
