package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// Ensure IndexService implements the interface.
var _ driving.IndexService = (*IndexService)(nil)

// IndexAdmin is the part of the store used for statistics and reset.
type IndexAdmin interface {
	Count(ctx context.Context) (int, error)
	Reset(ctx context.Context) error
	DeleteSources(ctx context.Context, sources []string) (int, error)
	Dimensions() int
}

// IndexService reports on and clears the index.
type IndexService struct {
	store     IndexAdmin
	embedding *EmbeddingService
	llm       driven.LLMService
}

// NewIndexService creates an index service. llm may be nil.
func NewIndexService(store IndexAdmin, embedding *EmbeddingService, llm driven.LLMService) *IndexService {
	return &IndexService{store: store, embedding: embedding, llm: llm}
}

// Stats returns the chunk count and model information.
func (s *IndexService) Stats(ctx context.Context) (*domain.IndexStats, error) {
	count, err := s.store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count chunks: %w", storeError(err))
	}

	stats := &domain.IndexStats{
		TotalChunks:    count,
		EmbeddingModel: s.embedding.ModelName(),
		Dimensions:     s.store.Dimensions(),
		CachedVectors:  s.embedding.Cache().Len(),
	}
	if s.llm != nil {
		stats.LLMModel = s.llm.ModelName()
	}
	return stats, nil
}

// Reset deletes every chunk and clears the embedding cache.
func (s *IndexService) Reset(ctx context.Context) error {
	if err := s.store.Reset(ctx); err != nil {
		return fmt.Errorf("reset store: %w", storeError(err))
	}
	s.embedding.Cache().Clear()
	logger.Info("Index reset")
	return nil
}

// Remove deletes every chunk stored for the given sources.
func (s *IndexService) Remove(ctx context.Context, sources []string) (int, error) {
	n, err := s.store.DeleteSources(ctx, sources)
	if err != nil {
		return 0, fmt.Errorf("delete sources: %w", storeError(err))
	}
	logger.Debug("Removed %d chunks from %d sources", n, len(sources))
	return n, nil
}
