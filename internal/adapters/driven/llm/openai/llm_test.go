package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

func TestNewLLMService_RequiresAPIKey(t *testing.T) {
	_, err := NewLLMService(LLMConfig{Name: "openrouter"})
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
	assert.Contains(t, err.Error(), "openrouter")
}

func TestNewLLMService_Defaults(t *testing.T) {
	s, err := NewLLMService(LLMConfig{APIKey: "sk"})
	require.NoError(t, err)

	assert.Equal(t, DefaultLLMModel, s.ModelName())
	assert.Equal(t, DefaultBaseURL, s.baseURL)
	assert.Equal(t, "openai", s.name)
}

func TestComplete(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		_, _ = w.Write([]byte(`{
			"choices":[{"message":{"content":"Paris"},"finish_reason":"stop"}],
			"usage":{"prompt_tokens":12,"completion_tokens":1}
		}`))
	}))
	defer server.Close()

	s, err := NewLLMService(LLMConfig{APIKey: "sk", BaseURL: server.URL + "/", Model: "openai/gpt-4o-mini"})
	require.NoError(t, err)

	out, err := s.Complete(context.Background(), []driven.ChatMessage{
		{Role: "system", Content: "be brief"},
		{Role: "user", Content: "capital of France?"},
	}, driven.ChatOptions{MaxTokens: 100})
	require.NoError(t, err)

	assert.Equal(t, "Paris", out.Text)
	assert.Equal(t, 13, out.TotalTokens())
	assert.Equal(t, "openai/gpt-4o-mini", got["model"])
	assert.InDelta(t, 100, got["max_tokens"], 0)
	assert.Contains(t, got, "temperature", "zero temperature is sent explicitly")
	assert.Len(t, got["messages"], 2)
}

func TestComplete_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"rate limited", http.StatusTooManyRequests, `{}`, domain.ErrRateLimited},
		{"server error", http.StatusBadGateway, `{}`, domain.ErrProvider},
		{"error in ok body", http.StatusOK, `{"error":{"message":"upstream down"}}`, domain.ErrProvider},
		{"no choices", http.StatusOK, `{"choices":[]}`, domain.ErrProvider},
		{"bad json", http.StatusOK, `{`, domain.ErrProvider},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			s, err := NewLLMService(LLMConfig{APIKey: "sk", BaseURL: server.URL})
			require.NoError(t, err)

			_, err = s.Complete(context.Background(),
				[]driven.ChatMessage{{Role: "user", Content: "hi"}}, driven.ChatOptions{})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestPing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	s, err := NewLLMService(LLMConfig{APIKey: "sk", BaseURL: server.URL})
	require.NoError(t, err)
	assert.NoError(t, s.Ping(context.Background()))
	assert.NoError(t, s.Close())
}
