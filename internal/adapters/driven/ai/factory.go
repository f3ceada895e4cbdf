// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"context"
	"fmt"
	"time"

	geminiembed "github.com/custodia-labs/sercha-rag/internal/adapters/driven/embedding/gemini"
	ollamaembed "github.com/custodia-labs/sercha-rag/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/sercha-rag/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/embedding/ratelimit"
	anthropicllm "github.com/custodia-labs/sercha-rag/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/custodia-labs/sercha-rag/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/sercha-rag/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// InitResult holds the AI adapters built from settings.
type InitResult struct {
	Embedding driven.EmbeddingProvider
	LLM       driven.LLMService // nil when no LLM is configured.
	Warnings  []string          // Non-fatal issues, such as an unreachable LLM.
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() {
	if r.Embedding != nil {
		r.Embedding.Close()
	}
	if r.LLM != nil {
		r.LLM.Close()
	}
}

// Init builds the embedding provider and, if configured, the LLM. An
// embedding failure is fatal. An LLM failure is recorded as a warning and
// leaves LLM nil, so retrieval keeps working without answers.
func Init(ctx context.Context, settings *domain.Settings, validate bool) (*InitResult, error) {
	result := &InitResult{}

	embedding, err := CreateEmbeddingProvider(&settings.Embedding)
	if err != nil {
		return nil, err
	}
	if validate {
		if err := ping(ctx, embedding.Ping); err != nil {
			embedding.Close()
			return nil, fmt.Errorf("%w: service unreachable (%w). Run 'sercha-rag settings' to fix",
				domain.ErrEmbeddingUnavailable, err)
		}
	}
	result.Embedding = embedding

	llm, err := CreateLLMService(&settings.LLM)
	switch {
	case err != nil:
		result.warn(err.Error())
	case llm != nil && validate:
		if err := ping(ctx, llm.Ping); err != nil {
			llm.Close()
			result.warn(fmt.Sprintf("%s: service unreachable: %v", domain.ErrLLMUnavailable, err))
		} else {
			result.LLM = llm
		}
	default:
		result.LLM = llm
	}

	return result, nil
}

func (r *InitResult) warn(msg string) {
	logger.Warn("%s", msg)
	r.Warnings = append(r.Warnings, msg)
}

func ping(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return fn(ctx)
}

// CreateEmbeddingProvider creates the embedding provider named in settings.
// A non-zero RequestsPerMinute wraps it in a client-side rate limiter.
func CreateEmbeddingProvider(settings *domain.EmbeddingSettings) (driven.EmbeddingProvider, error) {
	if settings == nil {
		return nil, fmt.Errorf("%w: no embedding settings", domain.ErrEmbeddingUnavailable)
	}
	if !settings.Provider.SupportsEmbedding() {
		return nil, fmt.Errorf("%w: %s does not support embeddings, use gemini, openai or ollama",
			domain.ErrEmbeddingUnavailable, settings.Provider)
	}
	if !settings.IsConfigured() {
		return nil, fmt.Errorf("%w: %s requires an API key",
			domain.ErrEmbeddingUnavailable, settings.Provider)
	}

	var provider driven.EmbeddingProvider
	var err error
	switch settings.Provider {
	case domain.AIProviderGemini:
		provider, err = geminiembed.New(geminiembed.Config{
			APIKey:     settings.APIKey,
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: settings.Dimensions,
		})

	case domain.AIProviderOpenAI:
		provider, err = openaiembed.New(openaiembed.Config{
			APIKey:     settings.APIKey,
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: settings.Dimensions,
		})

	case domain.AIProviderOllama:
		provider = ollamaembed.New(ollamaembed.Config{
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: settings.Dimensions,
		})

	default:
		return nil, fmt.Errorf("%w: unsupported embedding provider: %s",
			domain.ErrEmbeddingUnavailable, settings.Provider)
	}
	if err != nil {
		return nil, err
	}

	if settings.RequestsPerMinute > 0 {
		provider = ratelimit.Wrap(provider, ratelimit.Config{
			RequestsPerSecond: float64(settings.RequestsPerMinute) / 60,
			BurstSize:         1,
		})
	}
	return provider, nil
}

// CreateLLMService creates the appropriate LLM service based on settings.
// Returns nil if no LLM provider is set.
func CreateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || settings.Provider == "" {
		return nil, nil
	}
	if !settings.IsConfigured() {
		return nil, fmt.Errorf("%w: %s is not configured", domain.ErrLLMUnavailable, settings.Provider)
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamallm.NewLLMService(ollamallm.LLMConfig{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		}), nil

	case domain.AIProviderOpenAI:
		return openaillm.NewLLMService(openaillm.LLMConfig{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	case domain.AIProviderOpenRouter:
		baseURL := settings.BaseURL
		if baseURL == "" {
			baseURL = openaillm.OpenRouterBaseURL
		}
		return openaillm.NewLLMService(openaillm.LLMConfig{
			APIKey:  settings.APIKey,
			BaseURL: baseURL,
			Model:   settings.Model,
			Name:    string(domain.AIProviderOpenRouter),
		})

	case domain.AIProviderAnthropic:
		return anthropicllm.NewLLMService(anthropicllm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	default:
		return nil, fmt.Errorf("%w: unsupported LLM provider: %s", domain.ErrLLMUnavailable, settings.Provider)
	}
}
