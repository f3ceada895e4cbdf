// Package gemini provides an embedding provider adapter using the Google
// Gemini API.
package gemini

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/httpapi"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure Provider implements the interface.
var _ driven.EmbeddingProvider = (*Provider)(nil)

// Default configuration values.
const (
	DefaultBaseURL      = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel        = "text-embedding-004"
	DefaultTimeout      = 60 * time.Second
	DefaultDimensions   = 768
	DefaultMaxBatchSize = 100
)

// Task types sent per embedding mode.
const (
	TaskRetrievalDocument = "RETRIEVAL_DOCUMENT"
	TaskRetrievalQuery    = "RETRIEVAL_QUERY"
)

const providerName = "gemini"

// Config holds configuration for the Gemini embedding provider.
type Config struct {
	// APIKey is the Gemini API key (required).
	APIKey string

	// BaseURL is the API base URL (default: v1beta endpoint).
	BaseURL string

	// Model is the embedding model to use (default: text-embedding-004).
	Model string

	// Timeout is the request timeout (default: 60s).
	Timeout time.Duration

	// Dimensions is the embedding vector size (default: 768).
	Dimensions int
}

// Provider generates embeddings with batchEmbedContents, setting the task
// type from the embedding mode.
type Provider struct {
	client     *http.Client
	baseURL    string
	apiKey     string
	model      string
	dimensions int
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
}

type embedContentRequest struct {
	Model                string  `json:"model"`
	Content              content `json:"content"`
	TaskType             string  `json:"taskType"`
	OutputDimensionality int     `json:"outputDimensionality,omitempty"`
}

type batchRequest struct {
	Requests []embedContentRequest `json:"requests"`
}

type batchResponse struct {
	Embeddings []struct {
		Values []float64 `json:"values"`
	} `json:"embeddings"`
}

// New creates a new Gemini embedding provider.
func New(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: gemini: API key is required", domain.ErrEmbeddingUnavailable)
	}
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
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      strings.TrimPrefix(cfg.Model, "models/"),
		dimensions: cfg.Dimensions,
	}, nil
}

// Embed returns one vector per text in input order.
func (p *Provider) Embed(ctx context.Context, texts []string, mode domain.EmbeddingMode) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	taskType := TaskRetrievalDocument
	if mode == domain.EmbeddingModeQuery {
		taskType = TaskRetrievalQuery
	}

	modelPath := "models/" + p.model
	req := batchRequest{Requests: make([]embedContentRequest, len(texts))}
	for i, t := range texts {
		req.Requests[i] = embedContentRequest{
			Model:    modelPath,
			Content:  content{Parts: []part{{Text: t}}},
			TaskType: taskType,
		}
		if p.dimensions != DefaultDimensions {
			req.Requests[i].OutputDimensionality = p.dimensions
		}
	}

	var resp batchResponse
	url := fmt.Sprintf("%s/%s:batchEmbedContents", p.baseURL, modelPath)
	if err := httpapi.PostJSON(ctx, p.client, providerName, url, p.headers(), req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: gemini: got %d embeddings for %d texts",
			domain.ErrProvider, len(resp.Embeddings), len(texts))
	}

	embeddings := make([][]float32, len(texts))
	for i, e := range resp.Embeddings {
		embeddings[i] = httpapi.ToFloat32(e.Values)
	}
	return embeddings, nil
}

// Dimensions returns the embedding vector size.
func (p *Provider) Dimensions() int {
	return p.dimensions
}

// MaxBatchSize returns the batchEmbedContents request limit.
func (p *Provider) MaxBatchSize() int {
	return DefaultMaxBatchSize
}

// ModelName returns the name of the embedding model being used.
func (p *Provider) ModelName() string {
	return p.model
}

// Ping fetches the model description, validating the key without inference.
func (p *Provider) Ping(ctx context.Context) error {
	return httpapi.Get(ctx, p.client, providerName, p.baseURL+"/models/"+p.model, p.headers())
}

// Close releases resources.
func (p *Provider) Close() error {
	return nil
}

func (p *Provider) headers() map[string]string {
	return map[string]string{"x-goog-api-key": p.apiKey}
}
