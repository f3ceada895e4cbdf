package domain

// EmbeddingMode selects the encoding a provider applies to a text.
// Corpus text and query text may be embedded asymmetrically.
type EmbeddingMode string

// Available embedding modes.
const (
	// EmbeddingModeDocument embeds text that is being indexed.
	EmbeddingModeDocument EmbeddingMode = "document"

	// EmbeddingModeQuery embeds text that is being searched for.
	EmbeddingModeQuery EmbeddingMode = "query"
)

// IsValid returns true if the mode is recognised.
func (m EmbeddingMode) IsValid() bool {
	return m == EmbeddingModeDocument || m == EmbeddingModeQuery
}

// String returns the string representation.
func (m EmbeddingMode) String() string {
	return string(m)
}

// EmbeddingRecord is a chunk in its persisted form.
type EmbeddingRecord struct {
	// ID is assigned by the store on insert. Zero before persistence.
	ID int64

	// Content is the chunk text.
	Content string

	// Embedding has exactly the dimension the store was created with.
	Embedding []float32

	// Metadata is serialised by the store.
	Metadata Metadata

	// Source is the originating file name or URI.
	Source string
}
