package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := New(Config{})
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestNew_Defaults(t *testing.T) {
	p, err := New(Config{APIKey: "key", Model: "models/text-embedding-004"})
	require.NoError(t, err)

	assert.Equal(t, "text-embedding-004", p.ModelName())
	assert.Equal(t, DefaultDimensions, p.Dimensions())
	assert.Equal(t, DefaultMaxBatchSize, p.MaxBatchSize())
}

func TestEmbed_TaskTypeByMode(t *testing.T) {
	var seen batchRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/text-embedding-004:batchEmbedContents", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("x-goog-api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&seen))

		resp := batchResponse{}
		for i := range seen.Requests {
			resp.Embeddings = append(resp.Embeddings, struct {
				Values []float64 `json:"values"`
			}{Values: []float64{float64(i), 0.5}})
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	p, err := New(Config{APIKey: "key", BaseURL: server.URL + "/"})
	require.NoError(t, err)

	vecs, err := p.Embed(context.Background(), []string{"a", "b"}, domain.EmbeddingModeDocument)
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{0, 0.5}, {1, 0.5}}, vecs)
	require.Len(t, seen.Requests, 2)
	assert.Equal(t, TaskRetrievalDocument, seen.Requests[0].TaskType)
	assert.Equal(t, "models/text-embedding-004", seen.Requests[0].Model)
	assert.Equal(t, "b", seen.Requests[1].Content.Parts[0].Text)
	assert.Zero(t, seen.Requests[0].OutputDimensionality)

	_, err = p.Embed(context.Background(), []string{"q"}, domain.EmbeddingModeQuery)
	require.NoError(t, err)
	assert.Equal(t, TaskRetrievalQuery, seen.Requests[0].TaskType)
}

func TestEmbed_ReducedDimensions(t *testing.T) {
	var seen batchRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&seen))
		_, _ = w.Write([]byte(`{"embeddings":[{"values":[1,2,3]}]}`))
	}))
	defer server.Close()

	p, err := New(Config{APIKey: "key", BaseURL: server.URL, Dimensions: 3})
	require.NoError(t, err)

	_, err = p.Embed(context.Background(), []string{"a"}, domain.EmbeddingModeDocument)
	require.NoError(t, err)
	assert.Equal(t, 3, seen.Requests[0].OutputDimensionality)
}

func TestEmbed_Errors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-goog-api-key") == "limited" {
			w.Header().Set("Retry-After", "7")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"embeddings":[]}`))
	}))
	defer server.Close()

	p, err := New(Config{APIKey: "limited", BaseURL: server.URL})
	require.NoError(t, err)
	_, err = p.Embed(context.Background(), []string{"a"}, domain.EmbeddingModeDocument)
	assert.ErrorIs(t, err, domain.ErrRateLimited)

	p, err = New(Config{APIKey: "key", BaseURL: server.URL})
	require.NoError(t, err)
	_, err = p.Embed(context.Background(), []string{"a"}, domain.EmbeddingModeDocument)
	assert.ErrorIs(t, err, domain.ErrProvider)
}

func TestPing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/text-embedding-004", r.URL.Path)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	p, err := New(Config{APIKey: "key", BaseURL: server.URL})
	require.NoError(t, err)
	assert.NoError(t, p.Ping(context.Background()))
	assert.NoError(t, p.Close())
}
