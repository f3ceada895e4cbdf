// Package chunker provides a recursive, token-aware text chunking processor.
package chunker

import (
	"context"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure Processor implements the interface.
var _ driven.PostProcessor = (*Processor)(nil)

// DefaultChunkSize is the default number of tokens per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping tokens.
const DefaultChunkOverlap = 200

// DefaultSeparators are tried in order: paragraph, line, sentence, word.
// The empty separator is the hard character cut.
var DefaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// Processor splits document content into overlapping, token-bounded chunks.
// It implements the PostProcessor interface.
type Processor struct {
	chunkSize  int
	overlap    int
	separators []string
	tokenizer  driven.Tokenizer
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in tokens.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in tokens.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// WithSeparators replaces the separator priority list.
func WithSeparators(separators ...string) Option {
	return func(p *Processor) {
		if len(separators) > 0 {
			p.separators = separators
		}
	}
}

// New creates a new chunker processor measuring length with tok.
// A nil tokenizer counts runes.
func New(tok driven.Tokenizer, opts ...Option) *Processor {
	if tok == nil {
		tok = runeCounter{}
	}
	p := &Processor{
		chunkSize:  DefaultChunkSize,
		overlap:    DefaultChunkOverlap,
		separators: DefaultSeparators,
		tokenizer:  tok,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Ensure overlap doesn't exceed chunk size
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// Process splits the document content into chunks.
// Input chunks are ignored; this processor creates new chunks from document content.
func (p *Processor) Process(ctx context.Context, doc *domain.Document, _ []domain.Chunk) ([]domain.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.Chunk(doc), nil
}

// ChunkAll chunks every document in order.
func (p *Processor) ChunkAll(ctx context.Context, docs []domain.Document) ([]domain.Chunk, error) {
	var out []domain.Chunk
	for i := range docs {
		chunks, err := p.Process(ctx, &docs[i], nil)
		if err != nil {
			return nil, err
		}
		out = append(out, chunks...)
	}
	return out, nil
}

// Chunk splits one document. Empty or whitespace-only content yields no chunks.
// No chunk is whitespace only: blank splits are folded into a neighbour, and
// that folded whitespace is not counted against the chunk size.
func (p *Processor) Chunk(doc *domain.Document) []domain.Chunk {
	if doc == nil || strings.TrimSpace(doc.Content) == "" {
		return nil
	}

	s := &splitter{
		text:    doc.Content,
		size:    p.chunkSize,
		overlap: p.overlap,
		count:   p.tokenizer.Count,
	}
	spans := foldBlank(doc.Content, s.split(0, len(doc.Content), p.separators))

	chunks := make([]domain.Chunk, len(spans))
	for i, sp := range spans {
		meta := doc.Metadata.Clone()
		meta[domain.MetaSource] = doc.Source
		meta[domain.MetaChunkIndex] = strconv.Itoa(i)
		meta[domain.MetaChunkCount] = strconv.Itoa(len(spans))
		if doc.ID != "" {
			meta[domain.MetaDocumentID] = doc.ID
		}
		chunks[i] = domain.Chunk{
			Content:  doc.Content[sp.start:sp.end],
			Source:   doc.Source,
			Metadata: meta,
			Start:    sp.start,
			End:      sp.end,
		}
	}
	return chunks
}

// runeCounter treats every rune as one token.
type runeCounter struct{}

func (runeCounter) Count(text string) int { return utf8.RuneCountInString(text) }

func (runeCounter) Name() string { return "runes" }
