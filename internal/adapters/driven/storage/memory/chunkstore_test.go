package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func rec(content, source string, vec ...float32) domain.EmbeddingRecord {
	return domain.EmbeddingRecord{Content: content, Source: source, Embedding: vec}
}

func TestNewChunkStore(t *testing.T) {
	store := NewChunkStore(3)
	require.NotNil(t, store)
	assert.Equal(t, 3, store.Dimensions())
	assert.NoError(t, store.Close())
}

func TestChunkStore_InsertAssignsIncreasingIDs(t *testing.T) {
	store := NewChunkStore(2)
	ctx := context.Background()

	ids, err := store.InsertChunks(ctx, []domain.EmbeddingRecord{rec("a", "x", 1, 0), rec("b", "x", 0, 1)})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, ids)

	require.NoError(t, store.Reset(ctx))
	ids, err = store.InsertChunks(ctx, []domain.EmbeddingRecord{rec("c", "x", 1, 1)})
	require.NoError(t, err)
	assert.Equal(t, []int64{3}, ids, "ids are not reused after reset")
}

func TestChunkStore_InsertAllOrNothing(t *testing.T) {
	store := NewChunkStore(2)
	ctx := context.Background()

	_, err := store.InsertChunks(ctx, []domain.EmbeddingRecord{rec("a", "x", 1, 0), rec("b", "x", 1)})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestChunkStore_InsertCopiesInput(t *testing.T) {
	store := NewChunkStore(2)
	ctx := context.Background()

	r := rec("a", "x", 1, 0)
	r.Metadata = domain.Metadata{"k": "v"}
	_, err := store.InsertChunks(ctx, []domain.EmbeddingRecord{r})
	require.NoError(t, err)

	r.Embedding[0] = -1
	r.Metadata["k"] = "changed"

	hits, err := store.VectorSearch(ctx, []float32{1, 0}, 1)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, hits[0].Similarity, 1e-9)
	assert.Equal(t, "v", hits[0].Metadata["k"])
}

func TestChunkStore_VectorSearch(t *testing.T) {
	store := NewChunkStore(2)
	ctx := context.Background()

	_, err := store.InsertChunks(ctx, []domain.EmbeddingRecord{
		rec("east", "a", 1, 0),
		rec("north", "a", 0, 1),
		rec("east again", "b", 2, 0),
		rec("west", "b", -1, 0),
	})
	require.NoError(t, err)

	hits, err := store.VectorSearch(ctx, []float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, int64(1), hits[0].ID)
	assert.Equal(t, int64(3), hits[1].ID, "ties break by id")
	assert.InDelta(t, 0.0, hits[2].Similarity, 1e-9)

	_, err = store.VectorSearch(ctx, []float32{1}, 3)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestChunkStore_LexicalSearch(t *testing.T) {
	store := NewChunkStore(1)
	ctx := context.Background()

	_, err := store.InsertChunks(ctx, []domain.EmbeddingRecord{
		rec("the quick brown fox", "a", 1),
		rec("fox fox fox", "b", 1),
		rec("lazy dog", "c", 1),
	})
	require.NoError(t, err)

	hits, err := store.LexicalSearch(ctx, "where is the fox", 10)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, int64(2), hits[0].ID)
	for _, h := range hits {
		assert.Positive(t, h.Rank)
	}

	hits, err = store.LexicalSearch(ctx, "the is", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)

	hits, err = store.LexicalSearch(ctx, "fox dog", 1)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestChunkStore_DeleteSources(t *testing.T) {
	store := NewChunkStore(1)
	ctx := context.Background()

	_, err := store.InsertChunks(ctx, []domain.EmbeddingRecord{
		rec("alpha", "a", 1), rec("alpha", "a", 1), rec("alpha", "b", 1),
	})
	require.NoError(t, err)

	n, err := store.DeleteSources(ctx, []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	hits, err := store.LexicalSearch(ctx, "alpha", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "b", hits[0].Source)
}

func TestChunkStore_Concurrency(t *testing.T) {
	store := NewChunkStore(1)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = store.InsertChunks(ctx, []domain.EmbeddingRecord{rec(fmt.Sprintf("doc %d", i), "s", 1)})
		}()
		go func() {
			defer wg.Done()
			_, _ = store.LexicalSearch(ctx, "doc", 5)
			_, _ = store.VectorSearch(ctx, []float32{1}, 5)
		}()
	}
	wg.Wait()

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 20, count)
}
