package services

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/logger"
	"github.com/custodia-labs/sercha-rag/internal/observability"
)

// Ensure RetrievalService implements the interface.
var _ driving.RetrievalService = (*RetrievalService)(nil)

// QueryEmbedder produces query-mode vectors. EmbeddingService implements it.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// RetrievalService fuses vector and lexical search into one ranking.
type RetrievalService struct {
	embedder QueryEmbedder
	vectors  driven.VectorSearcher
	lexical  driven.LexicalSearcher
}

// NewRetrievalService creates a retrieval service. All arguments are required.
func NewRetrievalService(
	embedder QueryEmbedder,
	vectors driven.VectorSearcher,
	lexical driven.LexicalSearcher,
) *RetrievalService {
	return &RetrievalService{
		embedder: embedder,
		vectors:  vectors,
		lexical:  lexical,
	}
}

// Retrieve embeds the query once, fetches 2*TopK candidates from each search
// concurrently and fuses them. A failure of either search fails the call;
// there is no single-signal fallback.
func (s *RetrievalService) Retrieve(
	ctx context.Context, query string, opts domain.RetrieveOptions,
) (_ []domain.RetrievalHit, err error) {
	logger.Section("Retrieval")

	if strings.TrimSpace(query) == "" {
		return nil, domain.ErrEmptyQuery
	}
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("retrieve: top_k %d, weight %.2f: %w", opts.TopK, opts.SemanticWeight, err)
	}

	ctx, span := observability.StartSpan(ctx, "retrieve",
		attribute.Int("rag.top_k", opts.TopK),
		attribute.Float64("rag.semantic_weight", opts.SemanticWeight),
	)
	defer func() { observability.End(span, err) }()

	// 1. EMBED QUERY (query mode)
	vector, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", providerError(err))
	}

	// 2. FETCH CANDIDATES (both searches in parallel)
	k := 2 * opts.TopK
	var (
		semantic []driven.VectorHit
		lexical  []driven.LexicalHit
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hits, err := s.vectors.VectorSearch(gctx, vector, k)
		if err != nil {
			return fmt.Errorf("vector search: %w", storeError(err))
		}
		semantic = hits
		return nil
	})
	g.Go(func() error {
		hits, err := s.lexical.LexicalSearch(gctx, query, k)
		if err != nil {
			return fmt.Errorf("lexical search: %w", storeError(err))
		}
		lexical = hits
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	logger.Debug("Candidates: %d vector, %d lexical (k=%d)", len(semantic), len(lexical), k)

	// 3. FUSE
	hits := Fuse(semantic, lexical, opts.SemanticWeight, opts.TopK)
	span.SetAttributes(attribute.Int("rag.hits", len(hits)))
	logger.Debug("Fused %d hits", len(hits))

	return hits, nil
}
