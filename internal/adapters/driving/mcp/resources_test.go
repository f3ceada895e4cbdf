package mcp

import (
	"context"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func TestExtractQuery(t *testing.T) {
	tests := []struct {
		name     string
		uri      string
		expected string
	}{
		{"plain query", "sercha-rag://context/goroutines", "goroutines"},
		{"escaped query", "sercha-rag://context/how%20do%20channels%20work", "how do channels work"},
		{"invalid prefix", "file://context/goroutines", ""},
		{"bad escape", "sercha-rag://context/%zz", ""},
		{"blank query", "sercha-rag://context/%20", ""},
		{"empty URI", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractQuery(tt.uri))
		})
	}
}

// Helper to create a ReadResourceRequest with the given URI.
func makeReadResourceRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

func TestServer_handleStatsResource(t *testing.T) {
	ctx := context.Background()

	t.Run("returns stats as JSON", func(t *testing.T) {
		server, err := NewServer(&Ports{
			Retrieval: &mockRetrievalService{},
			Index:     &mockIndexService{stats: &domain.IndexStats{TotalChunks: 3, Dimensions: 768}},
		})
		require.NoError(t, err)

		result, err := server.handleStatsResource(ctx, makeReadResourceRequest("sercha-rag://stats"))
		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Equal(t, "application/json", result.Contents[0].MIMEType)
		assert.Contains(t, result.Contents[0].Text, `"total_chunks": 3`)
		assert.Contains(t, result.Contents[0].Text, `"dimensions": 768`)
	})

	t.Run("returns error on failure", func(t *testing.T) {
		server, err := NewServer(&Ports{
			Retrieval: &mockRetrievalService{},
			Index:     &mockIndexService{err: domain.ErrStore},
		})
		require.NoError(t, err)

		_, err = server.handleStatsResource(ctx, makeReadResourceRequest("sercha-rag://stats"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "getting stats")
	})
}

func TestServer_handleContextResource(t *testing.T) {
	ctx := context.Background()

	t.Run("formats hits as doc blocks", func(t *testing.T) {
		mockRetrieval := &mockRetrievalService{hits: []domain.RetrievalHit{
			{Content: "first", Source: "a.md"},
			{Content: "second", Source: "b.md"},
		}}
		server, err := NewServer(&Ports{Retrieval: mockRetrieval})
		require.NoError(t, err)

		result, err := server.handleContextResource(ctx, makeReadResourceRequest("sercha-rag://context/go%20channels"))
		require.NoError(t, err)

		assert.Equal(t, "go channels", mockRetrieval.query)
		assert.Equal(t, "[Doc 1] (a.md)\nfirst\n\n[Doc 2] (b.md)\nsecond\n", result.Contents[0].Text)
	})

	t.Run("invalid URI returns not found", func(t *testing.T) {
		server, err := NewServer(&Ports{Retrieval: &mockRetrievalService{}})
		require.NoError(t, err)

		_, err = server.handleContextResource(ctx, makeReadResourceRequest("sercha-rag://other"))
		require.Error(t, err)
	})

	t.Run("returns error on retrieval failure", func(t *testing.T) {
		server, err := NewServer(&Ports{Retrieval: &mockRetrievalService{err: domain.ErrProvider}})
		require.NoError(t, err)

		_, err = server.handleContextResource(ctx, makeReadResourceRequest("sercha-rag://context/q"))
		assert.ErrorIs(t, err, domain.ErrProvider)
	})
}
