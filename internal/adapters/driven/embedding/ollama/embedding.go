// Package ollama provides an embedding provider adapter using Ollama.
package ollama

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/httpapi"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure Provider implements the interface.
var _ driven.EmbeddingProvider = (*Provider)(nil)

// Default configuration values.
const (
	DefaultBaseURL      = "http://localhost:11434"
	DefaultModel        = "nomic-embed-text"
	DefaultTimeout      = 30 * time.Second
	DefaultDimensions   = 768 // nomic-embed-text default
	DefaultMaxBatchSize = 64
)

// Task prefixes nomic-embed-text was trained with.
const (
	DocumentPrefix = "search_document: "
	QueryPrefix    = "search_query: "
)

const providerName = "ollama"

// Config holds configuration for the Ollama embedding provider.
type Config struct {
	// BaseURL is the Ollama API base URL (default: http://localhost:11434).
	BaseURL string

	// Model is the embedding model to use (default: nomic-embed-text).
	Model string

	// Timeout is the request timeout (default: 30s).
	Timeout time.Duration

	// Dimensions is the embedding vector size (model-dependent).
	Dimensions int

	// DisablePrefixes sends texts without task prefixes, for models
	// that were not trained with them.
	DisablePrefixes bool
}

// Provider generates embeddings using Ollama's batch embed endpoint.
type Provider struct {
	client     *http.Client
	baseURL    string
	model      string
	dimensions int
	prefixes   bool
}

// embedRequest is the Ollama /api/embed request format.
type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// embedResponse is the Ollama /api/embed response format.
type embedResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
}

// New creates a new Ollama embedding provider.
func New(cfg Config) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = DefaultDimensions
	}

	return &Provider{
		client:     &http.Client{Timeout: cfg.Timeout},
		baseURL:    cfg.BaseURL,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		prefixes:   !cfg.DisablePrefixes,
	}
}

// Embed returns one vector per text in input order. Texts are prefixed with
// the task prefix for mode unless prefixes are disabled.
func (p *Provider) Embed(ctx context.Context, texts []string, mode domain.EmbeddingMode) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	input := texts
	if p.prefixes {
		prefix := DocumentPrefix
		if mode == domain.EmbeddingModeQuery {
			prefix = QueryPrefix
		}
		input = make([]string, len(texts))
		for i, t := range texts {
			input[i] = prefix + t
		}
	}

	var resp embedResponse
	if err := httpapi.PostJSON(ctx, p.client, providerName, p.baseURL+"/api/embed", nil,
		embedRequest{Model: p.model, Input: input}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: ollama: got %d embeddings for %d texts",
			domain.ErrProvider, len(resp.Embeddings), len(texts))
	}

	embeddings := make([][]float32, len(texts))
	for i, e := range resp.Embeddings {
		embeddings[i] = httpapi.ToFloat32(e)
	}
	return embeddings, nil
}

// Dimensions returns the embedding vector size.
func (p *Provider) Dimensions() int {
	return p.dimensions
}

// MaxBatchSize returns the most inputs sent per request.
func (p *Provider) MaxBatchSize() int {
	return DefaultMaxBatchSize
}

// ModelName returns the name of the embedding model being used.
func (p *Provider) ModelName() string {
	return p.model
}

// Ping validates the service is reachable by checking the /api/tags endpoint.
// This is a lightweight check that validates connectivity without running inference.
func (p *Provider) Ping(ctx context.Context) error {
	return httpapi.Get(ctx, p.client, providerName, p.baseURL+"/api/tags", nil)
}

// Close releases resources.
func (p *Provider) Close() error {
	// HTTP client doesn't need explicit cleanup
	return nil
}
