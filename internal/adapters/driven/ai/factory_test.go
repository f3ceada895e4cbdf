package ai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/embedding/ratelimit"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func TestInitResult_Close(t *testing.T) {
	t.Run("close with nil services", func(t *testing.T) {
		result := &InitResult{}
		// Should not panic
		result.Close()
	})
}

func TestCreateEmbeddingProvider(t *testing.T) {
	tests := []struct {
		name      string
		settings  *domain.EmbeddingSettings
		wantErr   bool
		wantModel string
	}{
		{
			name:     "nil settings",
			settings: nil,
			wantErr:  true,
		},
		{
			name: "gemini provider",
			settings: &domain.EmbeddingSettings{
				Provider: domain.AIProviderGemini, APIKey: "k", Model: "text-embedding-004", Dimensions: 768,
			},
			wantModel: "text-embedding-004",
		},
		{
			name: "gemini without key",
			settings: &domain.EmbeddingSettings{
				Provider: domain.AIProviderGemini, Dimensions: 768,
			},
			wantErr: true,
		},
		{
			name: "openai provider",
			settings: &domain.EmbeddingSettings{
				Provider: domain.AIProviderOpenAI, APIKey: "k", Model: "text-embedding-3-small",
			},
			wantModel: "text-embedding-3-small",
		},
		{
			name: "ollama provider",
			settings: &domain.EmbeddingSettings{
				Provider: domain.AIProviderOllama, Model: "nomic-embed-text",
			},
			wantModel: "nomic-embed-text",
		},
		{
			name: "anthropic has no embeddings",
			settings: &domain.EmbeddingSettings{
				Provider: domain.AIProviderAnthropic, APIKey: "k",
			},
			wantErr: true,
		},
		{
			name: "openrouter has no embeddings",
			settings: &domain.EmbeddingSettings{
				Provider: domain.AIProviderOpenRouter, APIKey: "k",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, err := CreateEmbeddingProvider(tt.settings)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
				assert.Nil(t, provider)
				return
			}
			require.NoError(t, err)
			defer provider.Close()
			assert.Equal(t, tt.wantModel, provider.ModelName())
		})
	}
}

func TestCreateEmbeddingProvider_RateLimited(t *testing.T) {
	provider, err := CreateEmbeddingProvider(&domain.EmbeddingSettings{
		Provider:          domain.AIProviderOllama,
		Dimensions:        768,
		RequestsPerMinute: 120,
	})
	require.NoError(t, err)

	_, ok := provider.(*ratelimit.Provider)
	assert.True(t, ok, "provider should be wrapped in a rate limiter")
	assert.Equal(t, 768, provider.Dimensions())
}

func TestCreateLLMService(t *testing.T) {
	tests := []struct {
		name      string
		settings  *domain.LLMSettings
		wantNil   bool
		wantErr   bool
		wantModel string
	}{
		{name: "nil settings returns nil", settings: nil, wantNil: true},
		{name: "no provider returns nil", settings: &domain.LLMSettings{}, wantNil: true},
		{
			name:      "ollama provider creates service",
			settings:  &domain.LLMSettings{Provider: domain.AIProviderOllama, Model: "llama3.2"},
			wantModel: "llama3.2",
		},
		{
			name:      "openai provider creates service",
			settings:  &domain.LLMSettings{Provider: domain.AIProviderOpenAI, APIKey: "k", Model: "gpt-4o-mini"},
			wantModel: "gpt-4o-mini",
		},
		{
			name: "openrouter provider creates service",
			settings: &domain.LLMSettings{
				Provider: domain.AIProviderOpenRouter, APIKey: "k", Model: "openai/gpt-4o-mini",
			},
			wantModel: "openai/gpt-4o-mini",
		},
		{
			name:      "anthropic provider creates service",
			settings:  &domain.LLMSettings{Provider: domain.AIProviderAnthropic, APIKey: "k"},
			wantModel: "claude-3-5-haiku-latest",
		},
		{
			name:     "missing key is an error",
			settings: &domain.LLMSettings{Provider: domain.AIProviderOpenRouter},
			wantErr:  true,
		},
		{
			name:     "gemini has no chat adapter",
			settings: &domain.LLMSettings{Provider: domain.AIProviderGemini, APIKey: "k"},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := CreateLLMService(tt.settings)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
				return
			}
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, svc)
				return
			}
			require.NotNil(t, svc)
			defer svc.Close()
			assert.Equal(t, tt.wantModel, svc.ModelName())
		})
	}
}

func TestInit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tags" {
			_, _ = w.Write([]byte(`{"models":[]}`))
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	settings := domain.DefaultSettings()
	settings.Embedding = domain.EmbeddingSettings{
		Provider: domain.AIProviderOllama, BaseURL: server.URL, Dimensions: 768, BatchSize: 20,
	}

	t.Run("no llm", func(t *testing.T) {
		s := settings
		s.LLM = domain.LLMSettings{}

		result, err := Init(context.Background(), &s, true)
		require.NoError(t, err)
		defer result.Close()
		assert.NotNil(t, result.Embedding)
		assert.Nil(t, result.LLM)
		assert.Empty(t, result.Warnings)
	})

	t.Run("unreachable llm is a warning", func(t *testing.T) {
		s := settings
		s.LLM = domain.LLMSettings{Provider: domain.AIProviderOpenAI, APIKey: "bad", BaseURL: server.URL}

		result, err := Init(context.Background(), &s, true)
		require.NoError(t, err)
		defer result.Close()
		assert.NotNil(t, result.Embedding)
		assert.Nil(t, result.LLM)
		require.Len(t, result.Warnings, 1)
		assert.Contains(t, result.Warnings[0], "unreachable")
	})

	t.Run("unconfigured llm is a warning", func(t *testing.T) {
		s := settings
		s.LLM = domain.LLMSettings{Provider: domain.AIProviderAnthropic}

		result, err := Init(context.Background(), &s, false)
		require.NoError(t, err)
		assert.Nil(t, result.LLM)
		assert.Len(t, result.Warnings, 1)
	})

	t.Run("unreachable embedding is fatal", func(t *testing.T) {
		s := settings
		s.Embedding.Provider = domain.AIProviderOpenAI
		s.Embedding.APIKey = "bad"
		s.LLM = domain.LLMSettings{}

		_, err := Init(context.Background(), &s, true)
		assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	})
}
