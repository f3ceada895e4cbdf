package domain

// AskRequest is a question to answer from the index.
type AskRequest struct {
	Query string

	// Optimize rewrites the query with the LLM before retrieval.
	Optimize bool

	Retrieve RetrieveOptions
}

// SourceRef cites one retrieved chunk used as answer context.
type SourceRef struct {
	Doc        int     `json:"doc"`
	Source     string  `json:"source"`
	ChunkIndex int     `json:"chunk_index"`
	Snippet    string  `json:"snippet"`
	Score      float64 `json:"score"`
}

// Answer is a generated response grounded in retrieved chunks.
type Answer struct {
	Query          string      `json:"query"`
	OptimizedQuery string      `json:"optimized_query,omitempty"`
	Text           string      `json:"answer"`
	Sources        []SourceRef `json:"sources"`
	TokensUsed     int         `json:"tokens_used"`
}

// RetrievalCase pairs the chunk ids a query returned with the ids judged relevant.
type RetrievalCase struct {
	Retrieved []string
	Relevant  []string
}

// RetrievalMetrics are mean precision and recall over cases, and their F1.
type RetrievalMetrics struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Cases     int     `json:"cases"`
}
