// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// EmbeddingProvider generates vector embeddings from text.
// It is a thin transport to an external model; caching and batching live
// in the core EmbeddingService.
//
// Implementations may include:
//   - Gemini (text-embedding-004, task-typed)
//   - OpenAI (text-embedding-3-small, text-embedding-3-large)
//   - Ollama (nomic-embed-text, prefix-typed)
type EmbeddingProvider interface {
	// Embed returns one vector per text, in input order.
	// The mode selects document or query encoding on asymmetric models.
	Embed(ctx context.Context, texts []string, mode domain.EmbeddingMode) ([][]float32, error)

	// Dimensions returns the embedding vector size (e.g., 768, 1536).
	Dimensions() int

	// MaxBatchSize returns the most texts the provider accepts per call.
	// Zero means no provider limit.
	MaxBatchSize() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
