package domain

import (
	"maps"
	"strconv"
)

// Reserved metadata keys.
const (
	MetaChunkIndex = "chunk_index"
	MetaChunkCount = "chunk_count"
	MetaSource     = "source"
	MetaTitle      = "title"
	MetaMIMEType   = "mime_type"
	MetaDocumentID = "document_id"
)

// Metadata is order-irrelevant string provenance attached to documents and chunks.
type Metadata map[string]string

// Clone returns an independent copy. A nil receiver yields an empty map.
func (m Metadata) Clone() Metadata {
	out := make(Metadata, len(m)+2)
	maps.Copy(out, m)
	return out
}

// Int parses the value stored under key.
func (m Metadata) Int(key string) (int, bool) {
	v, ok := m[key]
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Document is normalised text awaiting chunking. It is not persisted.
type Document struct {
	// ID is a UUID assigned during normalisation.
	ID string

	// Source is the file name or URI the text came from.
	Source string

	// Title is a human-readable title, if one could be extracted.
	Title string

	// Content is the full text.
	Content string

	// Metadata is provenance copied onto every chunk.
	Metadata Metadata
}

// Chunk is a contiguous substring of one document's content.
// Chunks are immutable once the chunker returns them.
type Chunk struct {
	// Content is the chunk text.
	Content string

	// Source is copied from the parent document.
	Source string

	// Metadata holds the parent metadata plus chunk_index and chunk_count.
	Metadata Metadata

	// Start and End are byte offsets of Content within the parent text.
	Start int
	End   int
}

// Index returns the 0-based position of the chunk in its document.
func (c Chunk) Index() int {
	n, _ := c.Metadata.Int(MetaChunkIndex)
	return n
}

// Count returns the number of chunks produced from the parent document.
func (c Chunk) Count() int {
	n, _ := c.Metadata.Int(MetaChunkCount)
	return n
}
