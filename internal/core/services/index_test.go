package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func TestIndexService_Stats(t *testing.T) {
	provider := newMockProvider(3)
	embedding := NewEmbeddingService(provider)
	store := &mockStore{dims: 3, records: make([]domain.EmbeddingRecord, 4)}
	svc := NewIndexService(store, embedding, &mockLLM{})

	_, err := embedding.EmbedQuery(context.Background(), "warm")
	require.NoError(t, err)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, stats.TotalChunks)
	assert.Equal(t, "mock-embed", stats.EmbeddingModel)
	assert.Equal(t, 3, stats.Dimensions)
	assert.Equal(t, "mock-llm", stats.LLMModel)
	assert.Equal(t, 1, stats.CachedVectors)
}

func TestIndexService_StatsWithoutLLM(t *testing.T) {
	svc := NewIndexService(&mockStore{dims: 3}, NewEmbeddingService(newMockProvider(3)), nil)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Empty(t, stats.LLMModel)
}

func TestIndexService_StatsError(t *testing.T) {
	svc := NewIndexService(&mockStore{dims: 3, countErr: errBoom}, NewEmbeddingService(newMockProvider(3)), nil)

	_, err := svc.Stats(context.Background())
	assert.ErrorIs(t, err, domain.ErrStore)
}

func TestIndexService_ResetClearsCache(t *testing.T) {
	embedding := NewEmbeddingService(newMockProvider(3))
	store := &mockStore{dims: 3, records: make([]domain.EmbeddingRecord, 2)}
	svc := NewIndexService(store, embedding, nil)

	_, err := embedding.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)

	require.NoError(t, svc.Reset(context.Background()))
	assert.Empty(t, store.records)
	assert.Equal(t, 0, embedding.Cache().Len())
}

func TestIndexService_ResetError(t *testing.T) {
	embedding := NewEmbeddingService(newMockProvider(3))
	_, err := embedding.EmbedBatch(context.Background(), []string{"a"})
	require.NoError(t, err)
	svc := NewIndexService(&mockStore{dims: 3, resetErr: errBoom}, embedding, nil)

	assert.ErrorIs(t, svc.Reset(context.Background()), domain.ErrStore)
	assert.Equal(t, 1, embedding.Cache().Len(), "cache must survive a failed reset")
}

func TestIndexService_Remove(t *testing.T) {
	store := &mockStore{dims: 3, records: []domain.EmbeddingRecord{
		{Source: "a.md"}, {Source: "a.md"}, {Source: "b.md"},
	}}
	svc := NewIndexService(store, NewEmbeddingService(newMockProvider(3)), nil)

	n, err := svc.Remove(context.Background(), []string{"a.md"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"a.md"}, store.deleted)
	require.Len(t, store.records, 1)
	assert.Equal(t, "b.md", store.records[0].Source)
}
