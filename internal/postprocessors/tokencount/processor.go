// Package tokencount annotates chunks with their token length.
package tokencount

import (
	"context"
	"strconv"
	"unicode/utf8"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// MetaTokenCount is the metadata key written on every chunk.
const MetaTokenCount = "token_count"

var _ driven.PostProcessor = (*Processor)(nil)

// Processor records each chunk's token count in its metadata.
type Processor struct {
	tokenizer driven.Tokenizer
}

// New creates a processor. A nil tokenizer counts runes.
func New(tok driven.Tokenizer) *Processor {
	return &Processor{tokenizer: tok}
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "tokencount"
}

// Process sets token_count on each chunk. Chunks are copied, not mutated.
func (p *Processor) Process(_ context.Context, _ *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error) {
	out := make([]domain.Chunk, len(chunks))
	for i, c := range chunks {
		c.Metadata = c.Metadata.Clone()
		c.Metadata[MetaTokenCount] = strconv.Itoa(p.count(c.Content))
		out[i] = c
	}
	return out, nil
}

func (p *Processor) count(text string) int {
	if p.tokenizer == nil {
		return utf8.RuneCountInString(text)
	}
	return p.tokenizer.Count(text)
}
