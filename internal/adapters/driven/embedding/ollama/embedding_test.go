package ollama

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

func newServer(t *testing.T, seen *embedRequest) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			_, _ = w.Write([]byte(`{"models":[]}`))
		case "/api/embed":
			var req embedRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			*seen = req
			resp := embedResponse{}
			for i := range req.Input {
				resp.Embeddings = append(resp.Embeddings, []float64{float64(i), 1})
			}
			_ = json.NewEncoder(w).Encode(resp)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestNew_Defaults(t *testing.T) {
	p := New(Config{})

	assert.Equal(t, DefaultModel, p.ModelName())
	assert.Equal(t, DefaultDimensions, p.Dimensions())
	assert.Equal(t, DefaultMaxBatchSize, p.MaxBatchSize())
	assert.NoError(t, p.Close())
}

func TestEmbed_PrefixesByMode(t *testing.T) {
	var seen embedRequest
	server := newServer(t, &seen)
	p := New(Config{BaseURL: server.URL, Dimensions: 2})

	vecs, err := p.Embed(context.Background(), []string{"alpha", "beta"}, domain.EmbeddingModeDocument)
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{0, 1}, {1, 1}}, vecs)
	assert.Equal(t, DefaultModel, seen.Model)
	assert.Equal(t, []string{"search_document: alpha", "search_document: beta"}, seen.Input)

	_, err = p.Embed(context.Background(), []string{"alpha"}, domain.EmbeddingModeQuery)
	require.NoError(t, err)
	assert.Equal(t, []string{"search_query: alpha"}, seen.Input)
}

func TestEmbed_DisablePrefixes(t *testing.T) {
	var seen embedRequest
	server := newServer(t, &seen)
	texts := []string{"alpha"}
	p := New(Config{BaseURL: server.URL, DisablePrefixes: true})

	_, err := p.Embed(context.Background(), texts, domain.EmbeddingModeQuery)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha"}, seen.Input)
	assert.Equal(t, []string{"alpha"}, texts, "input slice is not modified")
}

func TestEmbed_CountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"embeddings":[[1.0]]}`))
	}))
	defer server.Close()

	p := New(Config{BaseURL: server.URL})
	_, err := p.Embed(context.Background(), []string{"a", "b"}, domain.EmbeddingModeDocument)
	assert.ErrorIs(t, err, domain.ErrProvider)
}

func TestEmbed_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	p := New(Config{BaseURL: url})
	_, err := p.Embed(context.Background(), []string{"a"}, domain.EmbeddingModeDocument)
	assert.ErrorIs(t, err, domain.ErrProvider)
	assert.ErrorIs(t, p.Ping(context.Background()), domain.ErrProvider)
}

func TestPing(t *testing.T) {
	var seen embedRequest
	server := newServer(t, &seen)

	assert.NoError(t, New(Config{BaseURL: server.URL}).Ping(context.Background()))
}
