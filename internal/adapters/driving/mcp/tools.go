package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// RetrieveInput is the input schema for the retrieve tool.
type RetrieveInput struct {
	Query          string   `json:"query" jsonschema:"the question or keywords to find context for"`
	TopK           int      `json:"top_k,omitempty" jsonschema:"maximum number of chunks to return (default 5)"`
	SemanticWeight *float64 `json:"semantic_weight,omitempty" jsonschema:"weight of vector similarity between 0 and 1 (default 0.7)"`
}

// RetrieveOutput is the output schema for the retrieve tool.
type RetrieveOutput struct {
	Results []RetrieveResultOutput `json:"results"`
	Count   int                    `json:"count"`
}

// RetrieveResultOutput represents a single fused hit.
type RetrieveResultOutput struct {
	ID            int64             `json:"id"`
	Source        string            `json:"source"`
	ChunkIndex    int               `json:"chunk_index"`
	Content       string            `json:"content"`
	Score         float64           `json:"score"`
	SemanticScore *float64          `json:"semantic_score,omitempty"`
	LexicalScore  *float64          `json:"lexical_score,omitempty"`
	Signal        string            `json:"signal"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Query    string `json:"query" jsonschema:"the question to answer from indexed documents"`
	TopK     int    `json:"top_k,omitempty" jsonschema:"number of chunks used as context (default 5)"`
	Optimize bool   `json:"optimize,omitempty" jsonschema:"rewrite the question into a search query first"`
}

// StatsInput is the empty input schema for the stats tool.
type StatsInput struct{}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "retrieve",
		Description: "Retrieve the most relevant indexed chunks using hybrid vector and keyword search",
	}, s.handleRetrieve)

	if s.ports.Answer != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "ask",
			Description: "Answer a question from indexed documents, citing sources as [Doc N]",
		}, s.handleAsk)
	}

	if s.ports.Index != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "stats",
			Description: "Report chunk count and model information for the index",
		}, s.handleStats)
	}
}

func retrieveOptions(topK int, weight *float64) domain.RetrieveOptions {
	opts := domain.DefaultRetrieveOptions()
	if topK > 0 {
		opts.TopK = topK
	}
	if weight != nil {
		opts.SemanticWeight = *weight
	}
	return opts
}

// handleRetrieve handles the retrieve tool invocation.
func (s *Server) handleRetrieve(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RetrieveInput,
) (*mcp.CallToolResult, RetrieveOutput, error) {
	hits, err := s.ports.Retrieval.Retrieve(ctx, input.Query, retrieveOptions(input.TopK, input.SemanticWeight))
	if err != nil {
		return nil, RetrieveOutput{}, err
	}

	output := RetrieveOutput{
		Results: make([]RetrieveResultOutput, len(hits)),
		Count:   len(hits),
	}
	for i := range hits {
		index, _ := hits[i].Metadata.Int(domain.MetaChunkIndex)
		output.Results[i] = RetrieveResultOutput{
			ID:            hits[i].ID,
			Source:        hits[i].Source,
			ChunkIndex:    index,
			Content:       hits[i].Content,
			Score:         hits[i].FinalScore,
			SemanticScore: hits[i].SemanticScore,
			LexicalScore:  hits[i].LexicalScore,
			Signal:        string(hits[i].Signal),
			Metadata:      hits[i].Metadata,
		}
	}

	return nil, output, nil
}

// handleAsk handles the ask tool invocation.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, domain.Answer, error) {
	answer, err := s.ports.Answer.Ask(ctx, domain.AskRequest{
		Query:    input.Query,
		Optimize: input.Optimize,
		Retrieve: retrieveOptions(input.TopK, nil),
	})
	if err != nil {
		return nil, domain.Answer{}, err
	}
	return nil, *answer, nil
}

// handleStats handles the stats tool invocation.
func (s *Server) handleStats(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ StatsInput,
) (*mcp.CallToolResult, domain.IndexStats, error) {
	stats, err := s.ports.Index.Stats(ctx)
	if err != nil {
		return nil, domain.IndexStats{}, err
	}
	return nil, *stats, nil
}
