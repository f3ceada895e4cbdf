package postprocessors

import (
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/postprocessors/chunker"
	"github.com/custodia-labs/sercha-rag/internal/postprocessors/tokencount"
)

// RegisterDefaults registers all built-in processors with the registry.
// Call this during application initialisation to enable standard processors.
func RegisterDefaults(r *Registry) {
	r.Register("chunker", buildChunker)
	r.Register("tokencount", buildTokenCount)
}

// DefaultStages chunks with the configured sizes and annotates token counts.
func DefaultStages(cfg domain.ChunkingSettings) []Stage {
	return []Stage{
		{Name: "chunker", Config: map[string]any{"chunk_size": cfg.Size, "overlap": cfg.Overlap}},
		{Name: "tokencount"},
	}
}

// NewDefaultPipeline builds the standard chunking pipeline.
func NewDefaultPipeline(cfg domain.ChunkingSettings, tok driven.Tokenizer) (*Pipeline, error) {
	r := NewRegistry(tok)
	RegisterDefaults(r)
	return r.BuildPipeline(DefaultStages(cfg)...)
}

// buildChunker creates a chunker processor from generic config.
// Supported config keys:
//   - chunk_size (int): Tokens per chunk (default: 1000)
//   - overlap (int): Overlapping tokens between chunks (default: 200)
func buildChunker(cfg map[string]any, tok driven.Tokenizer) (driven.PostProcessor, error) {
	var opts []chunker.Option

	if cfg != nil {
		if size, ok := getIntFromConfig(cfg, "chunk_size"); ok {
			opts = append(opts, chunker.WithChunkSize(size))
		}
		if overlap, ok := getIntFromConfig(cfg, "overlap"); ok {
			opts = append(opts, chunker.WithOverlap(overlap))
		}
	}

	return chunker.New(tok, opts...), nil
}

func buildTokenCount(_ map[string]any, tok driven.Tokenizer) (driven.PostProcessor, error) {
	return tokencount.New(tok), nil
}

// getIntFromConfig safely extracts an int from generic config map.
// Handles int, int64, and float64 types that may come from TOML/JSON parsing.
func getIntFromConfig(cfg map[string]any, key string) (int, bool) {
	val, ok := cfg[key]
	if !ok {
		return 0, false
	}

	switch v := val.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
