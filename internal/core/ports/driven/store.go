package driven

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// VectorHit is a stored chunk returned by similarity search.
type VectorHit struct {
	ID       int64
	Content  string
	Metadata domain.Metadata
	Source   string

	// Similarity is 1 - cosine distance.
	Similarity float64
}

// LexicalHit is a stored chunk returned by full-text search.
type LexicalHit struct {
	ID       int64
	Content  string
	Metadata domain.Metadata
	Source   string

	// Rank is the raw, unbounded relevance score. Always positive.
	Rank float64
}

// VectorSearcher finds the chunks nearest to a query vector.
type VectorSearcher interface {
	// VectorSearch returns at most k hits ordered by similarity descending,
	// ties broken by id ascending.
	VectorSearch(ctx context.Context, vector []float32, k int) ([]VectorHit, error)
}

// LexicalSearcher ranks chunks by term relevance to a query text.
type LexicalSearcher interface {
	// LexicalSearch returns at most k hits matching at least one
	// non-stopword query term, ordered by rank descending then id ascending.
	LexicalSearch(ctx context.Context, query string, k int) ([]LexicalHit, error)
}

// ChunkStore persists embedded chunks and serves both search signals.
type ChunkStore interface {
	VectorSearcher
	LexicalSearcher

	// InsertChunks persists all records or none of them and returns the
	// assigned ids in input order. A record whose embedding length differs
	// from Dimensions fails the whole batch with domain.ErrDimensionMismatch.
	InsertChunks(ctx context.Context, records []domain.EmbeddingRecord) ([]int64, error)

	// DeleteSources removes every chunk stored for the given sources in one
	// transaction and returns how many were deleted.
	DeleteSources(ctx context.Context, sources []string) (int, error)

	// Count returns the number of stored chunks.
	Count(ctx context.Context) (int, error)

	// Reset deletes every stored chunk.
	Reset(ctx context.Context) error

	// Dimensions returns the embedding length the store accepts.
	Dimensions() int

	// Close releases resources.
	Close() error
}
