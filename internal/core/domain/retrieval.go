package domain

// Retrieval defaults.
const (
	DefaultTopK           = 5
	DefaultSemanticWeight = 0.7
)

// HitSignal records which retrieval signals surfaced a hit.
type HitSignal string

// Signals produced by fusion.
const (
	// SignalSemantic means only vector search returned the chunk.
	SignalSemantic HitSignal = "semantic"

	// SignalLexical means only lexical search returned the chunk.
	SignalLexical HitSignal = "lexical"

	// SignalBoth means both searches returned the chunk.
	SignalBoth HitSignal = "both"
)

// RetrieveOptions configures a hybrid retrieval.
type RetrieveOptions struct {
	// TopK is the maximum number of hits returned.
	TopK int

	// SemanticWeight is w in final = semantic*w + lexical*(1-w). Must be in [0,1].
	SemanticWeight float64
}

// DefaultRetrieveOptions returns top 5 with a 0.7 semantic weight.
func DefaultRetrieveOptions() RetrieveOptions {
	return RetrieveOptions{TopK: DefaultTopK, SemanticWeight: DefaultSemanticWeight}
}

// Validate rejects option values retrieval cannot honour.
func (o RetrieveOptions) Validate() error {
	if o.TopK < 1 {
		return ErrInvalidInput
	}
	if o.SemanticWeight < 0 || o.SemanticWeight > 1 {
		return ErrInvalidInput
	}
	return nil
}

// RetrievalHit is one fused result of a hybrid query.
type RetrievalHit struct {
	ID       int64    `json:"id"`
	Content  string   `json:"content"`
	Metadata Metadata `json:"metadata"`
	Source   string   `json:"source"`

	// SemanticScore is the vector similarity, nil when vector search missed the chunk.
	SemanticScore *float64 `json:"semantic_score,omitempty"`

	// LexicalScore is the normalised lexical rank, nil when lexical search missed the chunk.
	LexicalScore *float64 `json:"lexical_score,omitempty"`

	FinalScore float64   `json:"final_score"`
	Signal     HitSignal `json:"signal"`
}

// IndexStats summarises the state of the index.
type IndexStats struct {
	TotalChunks    int    `json:"total_chunks"`
	EmbeddingModel string `json:"embedding_model"`
	Dimensions     int    `json:"dimensions"`
	LLMModel       string `json:"llm_model,omitempty"`
	CachedVectors  int    `json:"cached_vectors"`
}

// IngestResult describes one committed ingestion batch.
type IngestResult struct {
	BatchID   string   `json:"batch_id"`
	Documents int      `json:"documents"`
	Chunks    int      `json:"chunks"`
	IDs       []int64  `json:"ids"`
	Sources   []string `json:"sources"`
	Skipped   []string `json:"skipped,omitempty"`
}
