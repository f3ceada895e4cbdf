package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// --- Mock implementations ---

// mockEmbeddingProvider implements driven.EmbeddingProvider for testing.
// Vectors are derived from the text and mode so they are stable and distinct.
type mockEmbeddingProvider struct {
	mu       sync.Mutex
	calls    [][]string
	modes    []domain.EmbeddingMode
	dims     int
	maxBatch int
	failOn   string
	err      error
	short    bool
	inFlight atomic.Int32
	peak     atomic.Int32
}

func newMockProvider(dims int) *mockEmbeddingProvider {
	return &mockEmbeddingProvider{dims: dims}
}

func (m *mockEmbeddingProvider) Embed(_ context.Context, texts []string, mode domain.EmbeddingMode) ([][]float32, error) {
	n := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		peak := m.peak.Load()
		if n <= peak || m.peak.CompareAndSwap(peak, n) {
			break
		}
	}

	m.mu.Lock()
	m.calls = append(m.calls, append([]string(nil), texts...))
	m.modes = append(m.modes, mode)
	m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}
	for _, t := range texts {
		if m.failOn != "" && t == m.failOn {
			return nil, fmt.Errorf("%w: refused %q", domain.ErrProvider, t)
		}
	}
	if m.short {
		return make([][]float32, len(texts)-1), nil
	}

	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = fakeVector(t, mode, m.dims)
	}
	return out, nil
}

func (m *mockEmbeddingProvider) Dimensions() int         { return m.dims }
func (m *mockEmbeddingProvider) MaxBatchSize() int       { return m.maxBatch }
func (m *mockEmbeddingProvider) ModelName() string       { return "mock-embed" }
func (m *mockEmbeddingProvider) Ping(context.Context) error { return nil }
func (m *mockEmbeddingProvider) Close() error            { return nil }

func (m *mockEmbeddingProvider) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func (m *mockEmbeddingProvider) sentTexts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []string
	for _, c := range m.calls {
		all = append(all, c...)
	}
	return all
}

func fakeVector(text string, mode domain.EmbeddingMode, dims int) []float32 {
	vec := make([]float32, dims)
	for i := range vec {
		vec[i] = float32(len(text)+i) / 100
	}
	if mode == domain.EmbeddingModeQuery {
		vec[0] = -vec[0]
	}
	return vec
}

// mockStore implements driven.ChunkStore for testing.
type mockStore struct {
	mu         sync.Mutex
	dims       int
	records    []domain.EmbeddingRecord
	vectorHits []driven.VectorHit
	lexHits    []driven.LexicalHit
	vectorErr  error
	lexErr     error
	insertErr  error
	countErr   error
	resetErr   error
	vectorK    int
	lexK       int
	lexQuery   string
	resetCalls int
	deleted    []string
}

func (m *mockStore) InsertChunks(_ context.Context, records []domain.EmbeddingRecord) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return nil, m.insertErr
	}
	for _, r := range records {
		if len(r.Embedding) != m.dims {
			return nil, domain.ErrDimensionMismatch
		}
	}
	ids := make([]int64, len(records))
	for i, r := range records {
		r.ID = int64(len(m.records) + 1)
		ids[i] = r.ID
		m.records = append(m.records, r)
	}
	return ids, nil
}

func (m *mockStore) VectorSearch(_ context.Context, _ []float32, k int) ([]driven.VectorHit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vectorK = k
	if m.vectorErr != nil {
		return nil, m.vectorErr
	}
	if k < len(m.vectorHits) {
		return m.vectorHits[:k], nil
	}
	return m.vectorHits, nil
}

func (m *mockStore) LexicalSearch(_ context.Context, query string, k int) ([]driven.LexicalHit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lexK = k
	m.lexQuery = query
	if m.lexErr != nil {
		return nil, m.lexErr
	}
	if k < len(m.lexHits) {
		return m.lexHits[:k], nil
	}
	return m.lexHits, nil
}

func (m *mockStore) DeleteSources(_ context.Context, sources []string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	drop := make(map[string]bool, len(sources))
	for _, s := range sources {
		drop[s] = true
	}
	kept := m.records[:0]
	for _, r := range m.records {
		if !drop[r.Source] {
			kept = append(kept, r)
		}
	}
	n := len(m.records) - len(kept)
	m.records = kept
	m.deleted = append(m.deleted, sources...)
	return n, nil
}

func (m *mockStore) Count(context.Context) (int, error) {
	if m.countErr != nil {
		return 0, m.countErr
	}
	return len(m.records), nil
}

func (m *mockStore) Reset(context.Context) error {
	m.resetCalls++
	if m.resetErr != nil {
		return m.resetErr
	}
	m.records = nil
	return nil
}

func (m *mockStore) Dimensions() int { return m.dims }
func (m *mockStore) Close() error    { return nil }

// mockQueryEmbedder implements QueryEmbedder for testing.
type mockQueryEmbedder struct {
	calls int
	err   error
}

func (m *mockQueryEmbedder) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return []float32{1, 0, 0}, nil
}

// mockLLM implements driven.LLMService for testing.
type mockLLM struct {
	responses []string
	err       error
	calls     [][]driven.ChatMessage
	opts      []driven.ChatOptions
}

func (m *mockLLM) Complete(_ context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (*driven.Completion, error) {
	m.calls = append(m.calls, messages)
	m.opts = append(m.opts, opts)
	if m.err != nil {
		return nil, m.err
	}
	text := ""
	if len(m.responses) > 0 {
		text = m.responses[0]
		m.responses = m.responses[1:]
	}
	return &driven.Completion{Text: text, PromptTokens: 40, CompletionTokens: 2}, nil
}

func (m *mockLLM) ModelName() string             { return "mock-llm" }
func (m *mockLLM) Ping(context.Context) error    { return nil }
func (m *mockLLM) Close() error                  { return nil }

// mockRetriever implements driving.RetrievalService for testing.
type mockRetriever struct {
	hits    []domain.RetrievalHit
	err     error
	queries []string
}

func (m *mockRetriever) Retrieve(_ context.Context, query string, _ domain.RetrieveOptions) ([]domain.RetrievalHit, error) {
	m.queries = append(m.queries, query)
	if m.err != nil {
		return nil, m.err
	}
	return m.hits, nil
}

var errBoom = errors.New("boom")
