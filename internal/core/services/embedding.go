package services

import (
	"context"
	"fmt"
	"slices"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/logger"
	"github.com/custodia-labs/sercha-rag/internal/observability"
)

// Embedding batching defaults.
const (
	DefaultEmbeddingBatchSize   = 20
	DefaultEmbeddingConcurrency = 4
)

// EmbeddingService turns text into vectors through a provider, serving
// repeated texts from an EmbeddingCache and batching the rest.
type EmbeddingService struct {
	provider    driven.EmbeddingProvider
	cache       *EmbeddingCache
	batchSize   int
	concurrency int
}

// EmbeddingOption configures an EmbeddingService.
type EmbeddingOption func(*EmbeddingService)

// WithEmbeddingCache shares an existing cache instead of creating one.
func WithEmbeddingCache(cache *EmbeddingCache) EmbeddingOption {
	return func(s *EmbeddingService) {
		if cache != nil {
			s.cache = cache
		}
	}
}

// WithBatchSize caps the texts sent per provider call.
func WithBatchSize(n int) EmbeddingOption {
	return func(s *EmbeddingService) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithConcurrency caps the sub-batches in flight at once.
func WithConcurrency(n int) EmbeddingOption {
	return func(s *EmbeddingService) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// NewEmbeddingService creates a service over provider.
// The batch size never exceeds the provider's own limit.
func NewEmbeddingService(provider driven.EmbeddingProvider, opts ...EmbeddingOption) *EmbeddingService {
	s := &EmbeddingService{
		provider:    provider,
		batchSize:   DefaultEmbeddingBatchSize,
		concurrency: DefaultEmbeddingConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cache == nil {
		s.cache = NewEmbeddingCache()
	}
	if limit := provider.MaxBatchSize(); limit > 0 && s.batchSize > limit {
		s.batchSize = limit
	}
	return s
}

// EmbedBatch embeds texts for indexing and returns one vector per text in
// input order. Any provider failure fails the whole call.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return s.embed(ctx, texts, domain.EmbeddingModeDocument)
}

// EmbedQuery embeds a search query.
func (s *EmbeddingService) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vecs, err := s.embed(ctx, []string{text}, domain.EmbeddingModeQuery)
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// Cache returns the cache backing this service.
func (s *EmbeddingService) Cache() *EmbeddingCache {
	return s.cache
}

// ModelName returns the provider's model name.
func (s *EmbeddingService) ModelName() string {
	return s.provider.ModelName()
}

// Dimensions returns the provider's vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.provider.Dimensions()
}

func (s *EmbeddingService) embed(ctx context.Context, texts []string, mode domain.EmbeddingMode) (_ [][]float32, err error) {
	out := make([][]float32, len(texts))
	if len(texts) == 0 {
		return out, nil
	}

	// Serve cache hits; each distinct miss is sent once, at its first position.
	var missing []string
	positions := make(map[string][]int)
	for i, text := range texts {
		if vec, ok := s.cache.Get(mode, text); ok {
			out[i] = vec
			continue
		}
		if _, seen := positions[text]; !seen {
			missing = append(missing, text)
		}
		positions[text] = append(positions[text], i)
	}

	batches := partition(missing, s.batchSize)
	logger.Debug("Embedding %d texts (%s mode): %d cached, %d sent in %d sub-batches",
		len(texts), mode, len(texts)-countPositions(positions), len(missing), len(batches))
	if len(missing) == 0 {
		return out, nil
	}

	ctx, span := observability.StartSpan(ctx, "embed_"+mode.String(),
		attribute.Int("rag.texts", len(texts)),
		attribute.Int("rag.uncached", len(missing)),
		attribute.Int("rag.sub_batches", len(batches)),
	)
	defer func() { observability.End(span, err) }()

	results := make([][][]float32, len(batches))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, batch := range batches {
		g.Go(func() error {
			vecs, err := s.provider.Embed(gctx, batch, mode)
			if err != nil {
				return fmt.Errorf("embed sub-batch %d of %d: %w", i+1, len(batches), providerError(err))
			}
			if len(vecs) != len(batch) {
				return fmt.Errorf("%w: provider returned %d vectors for %d texts",
					domain.ErrProvider, len(vecs), len(batch))
			}
			for j, vec := range vecs {
				if len(vec) == 0 {
					return fmt.Errorf("%w: provider returned an empty vector", domain.ErrProvider)
				}
				vecs[j] = s.cache.Put(mode, batch[j], vec)
			}
			results[i] = vecs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, batch := range batches {
		for j, text := range batch {
			for n, pos := range positions[text] {
				if n == 0 {
					out[pos] = results[i][j]
				} else {
					out[pos] = slices.Clone(results[i][j])
				}
			}
		}
	}
	return out, nil
}

// partition splits texts into consecutive groups of at most size.
func partition(texts []string, size int) [][]string {
	if len(texts) == 0 {
		return nil
	}
	batches := make([][]string, 0, (len(texts)+size-1)/size)
	for start := 0; start < len(texts); start += size {
		end := min(start+size, len(texts))
		batches = append(batches, texts[start:end])
	}
	return batches
}

func countPositions(positions map[string][]int) int {
	n := 0
	for _, p := range positions {
		n += len(p)
	}
	return n
}
