package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T, dims int) *Store {
	t.Helper()

	store, err := NewStore(t.TempDir(), dims)
	require.NoError(t, err)
	require.NotNil(t, store)
	t.Cleanup(func() { assert.NoError(t, store.Close()) })

	return store
}

func record(content, source string, vec ...float32) domain.EmbeddingRecord {
	return domain.EmbeddingRecord{
		Content:   content,
		Embedding: vec,
		Source:    source,
		Metadata:  domain.Metadata{domain.MetaSource: source},
	}
}

// ==================== Store Creation Tests ====================

func TestNewStore_ErrorHandling(t *testing.T) {
	_, err := NewStore("/invalid\x00path", 3)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "creating data directory")

	_, err = NewStore(t.TempDir(), 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestNewStore_Success(t *testing.T) {
	dir := t.TempDir()

	store, err := NewStore(dir, 3)
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, filepath.Join(dir, DatabaseFile), store.Path())
	assert.FileExists(t, store.Path())
	assert.Equal(t, 3, store.Dimensions())
	assert.NoError(t, store.db.Ping())
}

func TestNewStore_MigrationsAreRecorded(t *testing.T) {
	store := setupTestStore(t, 3)

	var version int
	require.NoError(t, store.db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version))
	assert.Equal(t, 1, version)
}

func TestNewStore_ReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := NewStore(dir, 2)
	require.NoError(t, err)
	_, err = store.InsertChunks(ctx, []domain.EmbeddingRecord{record("kept", "a.md", 1, 0)})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := NewStore(dir, 2)
	require.NoError(t, err)
	defer reopened.Close()

	count, err := reopened.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestNewStore_DimensionMismatch(t *testing.T) {
	dir := t.TempDir()

	store, err := NewStore(dir, 768)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	_, err = NewStore(dir, 1536)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

// ==================== Insert Tests ====================

func TestInsertChunks(t *testing.T) {
	store := setupTestStore(t, 2)
	ctx := context.Background()

	ids, err := store.InsertChunks(ctx, []domain.EmbeddingRecord{
		record("first", "a.md", 1, 0),
		record("second", "a.md", 0, 1),
	})
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.Less(t, ids[0], ids[1])

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestInsertChunks_AllOrNothing(t *testing.T) {
	store := setupTestStore(t, 2)
	ctx := context.Background()

	_, err := store.InsertChunks(ctx, []domain.EmbeddingRecord{
		record("ok", "a.md", 1, 0),
		record("bad", "a.md", 1, 0, 0),
	})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestInsertChunks_CancelledContext(t *testing.T) {
	store := setupTestStore(t, 2)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.InsertChunks(ctx, []domain.EmbeddingRecord{record("x", "a.md", 1, 0)})
	assert.ErrorIs(t, err, domain.ErrStore)

	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestInsertChunks_Empty(t *testing.T) {
	store := setupTestStore(t, 2)

	ids, err := store.InsertChunks(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

// ==================== Vector Search Tests ====================

func TestVectorSearch(t *testing.T) {
	store := setupTestStore(t, 2)
	ctx := context.Background()

	ids, err := store.InsertChunks(ctx, []domain.EmbeddingRecord{
		record("east", "a.md", 1, 0),
		record("north", "a.md", 0, 1),
		record("northeast", "b.md", 1, 1),
	})
	require.NoError(t, err)

	hits, err := store.VectorSearch(ctx, []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)

	assert.Equal(t, ids[0], hits[0].ID)
	assert.InDelta(t, 1.0, hits[0].Similarity, 1e-6)
	assert.Equal(t, "east", hits[0].Content)
	assert.Equal(t, "a.md", hits[0].Metadata[domain.MetaSource])

	assert.Equal(t, ids[2], hits[1].ID)
	assert.InDelta(t, 0.7071, hits[1].Similarity, 1e-3)
	assert.Equal(t, "b.md", hits[1].Source)
}

func TestVectorSearch_TiesBreakByID(t *testing.T) {
	store := setupTestStore(t, 2)
	ctx := context.Background()

	ids, err := store.InsertChunks(ctx, []domain.EmbeddingRecord{
		record("a", "x", 1, 0),
		record("b", "x", 2, 0),
		record("c", "x", 3, 0),
	})
	require.NoError(t, err)

	hits, err := store.VectorSearch(ctx, []float32{1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, []int64{ids[0], ids[1], ids[2]}, []int64{hits[0].ID, hits[1].ID, hits[2].ID})
}

func TestVectorSearch_WrongDimensions(t *testing.T) {
	store := setupTestStore(t, 2)

	_, err := store.VectorSearch(context.Background(), []float32{1, 0, 0}, 5)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestVectorSearch_EmptyStore(t *testing.T) {
	store := setupTestStore(t, 2)

	hits, err := store.VectorSearch(context.Background(), []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

// ==================== Lexical Search Tests ====================

func TestLexicalSearch(t *testing.T) {
	store := setupTestStore(t, 2)
	ctx := context.Background()

	ids, err := store.InsertChunks(ctx, []domain.EmbeddingRecord{
		record("Goroutines are lightweight threads.", "go.md", 1, 0),
		record("Channels channels channels everywhere.", "chan.md", 1, 0),
		record("PostgreSQL stores rows.", "pg.md", 1, 0),
	})
	require.NoError(t, err)

	hits, err := store.LexicalSearch(ctx, "what are the channels", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, ids[1], hits[0].ID)
	assert.Positive(t, hits[0].Rank)
	assert.Equal(t, "chan.md", hits[0].Source)

	hits, err = store.LexicalSearch(ctx, "goroutines OR postgresql", 10)
	require.NoError(t, err)
	assert.Len(t, hits, 2, "any matching term is enough")
	for _, h := range hits {
		assert.Positive(t, h.Rank)
	}
}

func TestLexicalSearch_StopwordsOnly(t *testing.T) {
	store := setupTestStore(t, 2)
	ctx := context.Background()

	_, err := store.InsertChunks(ctx, []domain.EmbeddingRecord{record("the and of", "a.md", 1, 0)})
	require.NoError(t, err)

	hits, err := store.LexicalSearch(ctx, "the of", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestLexicalSearch_RespectsK(t *testing.T) {
	store := setupTestStore(t, 2)
	ctx := context.Background()

	var records []domain.EmbeddingRecord
	for range 6 {
		records = append(records, record("shared term", "a.md", 1, 0))
	}
	_, err := store.InsertChunks(ctx, records)
	require.NoError(t, err)

	hits, err := store.LexicalSearch(ctx, "term", 4)
	require.NoError(t, err)
	assert.Len(t, hits, 4)
	for i := 1; i < len(hits); i++ {
		assert.Less(t, hits[i-1].ID, hits[i].ID, "equal ranks order by id")
	}
}

func TestLexicalSearch_QuotesAreLiteral(t *testing.T) {
	store := setupTestStore(t, 2)
	ctx := context.Background()

	_, err := store.InsertChunks(ctx, []domain.EmbeddingRecord{record(`say "near" here`, "a.md", 1, 0)})
	require.NoError(t, err)

	hits, err := store.LexicalSearch(ctx, `NEAR("x y") AND *`, 10)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

// ==================== Maintenance Tests ====================

func TestDeleteSources(t *testing.T) {
	store := setupTestStore(t, 2)
	ctx := context.Background()

	_, err := store.InsertChunks(ctx, []domain.EmbeddingRecord{
		record("alpha one", "a.md", 1, 0),
		record("alpha two", "a.md", 1, 0),
		record("alpha three", "b.md", 1, 0),
	})
	require.NoError(t, err)

	n, err := store.DeleteSources(ctx, []string{"a.md", "missing.md"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	hits, err := store.LexicalSearch(ctx, "alpha", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1, "full-text index must follow deletes")
	assert.Equal(t, "b.md", hits[0].Source)
}

func TestReset(t *testing.T) {
	store := setupTestStore(t, 2)
	ctx := context.Background()

	_, err := store.InsertChunks(ctx, []domain.EmbeddingRecord{record("alpha", "a.md", 1, 0)})
	require.NoError(t, err)

	require.NoError(t, store.Reset(ctx))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	hits, err := store.LexicalSearch(ctx, "alpha", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
	assert.Equal(t, 2, store.Dimensions())
}

func TestFloat32Codec(t *testing.T) {
	in := []float32{0, 1.5, -2.25, 3.4e38}
	assert.Equal(t, in, bytesToFloat32Slice(float32SliceToBytes(in)))
	assert.Nil(t, float32SliceToBytes(nil))
	assert.Nil(t, bytesToFloat32Slice(nil))
}

func TestMetadataCodec(t *testing.T) {
	data, err := marshalMetadata(nil)
	require.NoError(t, err)
	assert.Equal(t, "{}", data)

	m, err := unmarshalMetadata(`{"chunk_index":"3"}`)
	require.NoError(t, err)
	assert.Equal(t, "3", m[domain.MetaChunkIndex])

	_, err = unmarshalMetadata("{")
	assert.ErrorIs(t, err, domain.ErrStore)
}
