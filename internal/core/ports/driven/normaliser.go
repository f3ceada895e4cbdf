package driven

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// Normaliser transforms raw file bytes into document text.
// Each normaliser handles specific MIME types (e.g., PDF, Markdown).
type Normaliser interface {
	// SupportedMIMETypes returns the MIME types this normaliser handles.
	SupportedMIMETypes() []string

	// Priority returns the selection priority (higher = preferred).
	// Format-specific normalisers should return 50-89.
	// Fallback normalisers should return 1-9.
	Priority() int

	// Normalise transforms a raw document into a document.
	Normalise(ctx context.Context, raw *domain.RawDocument) (*domain.Document, error)
}

// NormaliserRegistry selects the normaliser for a MIME type.
type NormaliserRegistry interface {
	// Get returns the highest priority normaliser for mimeType,
	// or domain.ErrUnsupportedType.
	Get(mimeType string) (Normaliser, error)

	// DetectMIMEType maps a file path to a supported MIME type, or "".
	DetectMIMEType(path string) string
}
