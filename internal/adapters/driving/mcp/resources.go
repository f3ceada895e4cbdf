package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for sercha-rag resources.
	uriScheme = "sercha-rag://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	if s.ports.Index != nil {
		s.server.AddResource(&mcp.Resource{
			URI:         uriScheme + "stats",
			Name:        "stats",
			Description: "Chunk count and model information for the index",
			MIMEType:    "application/json",
		}, s.handleStatsResource)
	}

	// Template for retrieved context.
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "context/{query}",
		Name:        "context",
		Description: "Top retrieved chunks for a URL-escaped query, as plain text",
		MIMEType:    "text/plain",
	}, s.handleContextResource)
}

// handleStatsResource returns the index statistics.
func (s *Server) handleStatsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	stats, err := s.ports.Index.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting stats: %w", err)
	}

	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling stats: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// handleContextResource returns retrieved chunks formatted as [Doc N] blocks.
func (s *Server) handleContextResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	query := extractQuery(req.Params.URI)
	if query == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	hits, err := s.ports.Retrieval.Retrieve(ctx, query, domain.DefaultRetrieveOptions())
	if err != nil {
		return nil, fmt.Errorf("retrieving context: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "text/plain",
			Text:     formatContext(hits),
		}},
	}, nil
}

// formatContext renders hits the way answer prompts present them.
func formatContext(hits []domain.RetrievalHit) string {
	var b strings.Builder
	for i := range hits {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "[Doc %d] (%s)\n%s\n", i+1, hits[i].Source, hits[i].Content)
	}
	return b.String()
}

// extractQuery extracts the query from a URI like sercha-rag://context/{query}.
func extractQuery(uri string) string {
	const prefix = uriScheme + "context/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	query, err := url.PathUnescape(strings.TrimPrefix(uri, prefix))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(query)
}
