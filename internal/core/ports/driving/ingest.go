package driving

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// IngestService adds documents to the index.
type IngestService interface {
	// IngestFiles normalises, chunks, embeds and persists files and
	// directories. Nothing is persisted unless every chunk is embedded.
	IngestFiles(ctx context.Context, paths []string, metadata domain.Metadata) (*domain.IngestResult, error)

	// Ingest chunks, embeds and persists already normalised documents.
	Ingest(ctx context.Context, docs []domain.Document) (*domain.IngestResult, error)
}

// IndexService reports on and clears the index.
type IndexService interface {
	// Stats returns chunk count and model information.
	Stats(ctx context.Context) (*domain.IndexStats, error)

	// Reset deletes every chunk and clears the embedding cache.
	Reset(ctx context.Context) error

	// Remove deletes every chunk stored for the given sources.
	Remove(ctx context.Context, sources []string) (int, error)
}
