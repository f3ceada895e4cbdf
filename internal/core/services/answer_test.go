package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func sampleHits() []domain.RetrievalHit {
	return []domain.RetrievalHit{
		{ID: 3, Content: "Go has goroutines.", Source: "go.md", Metadata: domain.Metadata{domain.MetaChunkIndex: "1"}, FinalScore: 0.8},
		{ID: 9, Content: "Channels connect goroutines.", Source: "chan.md", FinalScore: 0.4},
	}
}

func TestAsk_GeneratesAnswer(t *testing.T) {
	retriever := &mockRetriever{hits: sampleHits()}
	llm := &mockLLM{responses: []string{"  Goroutines are cheap [Doc 1].  "}}
	svc := NewAnswerService(retriever, llm)

	answer, err := svc.Ask(context.Background(), domain.AskRequest{
		Query:    "what are goroutines",
		Retrieve: domain.DefaultRetrieveOptions(),
	})
	require.NoError(t, err)

	assert.Equal(t, "Goroutines are cheap [Doc 1].", answer.Text)
	assert.Equal(t, 42, answer.TokensUsed)
	assert.Empty(t, answer.OptimizedQuery)
	assert.Equal(t, []string{"what are goroutines"}, retriever.queries)

	require.Len(t, answer.Sources, 2)
	assert.Equal(t, 1, answer.Sources[0].Doc)
	assert.Equal(t, "go.md", answer.Sources[0].Source)
	assert.Equal(t, 1, answer.Sources[0].ChunkIndex)
	assert.Equal(t, 2, answer.Sources[1].Doc)

	require.Len(t, llm.calls, 1)
	prompt := llm.calls[0][1].Content
	assert.Contains(t, prompt, "[Doc 1]\nGo has goroutines.\n")
	assert.Contains(t, prompt, "[Doc 2]\nChannels connect goroutines.\n")
	assert.Contains(t, prompt, "Question: what are goroutines")
	assert.Equal(t, 500, llm.opts[0].MaxTokens)
	assert.InDelta(t, 0.1, llm.opts[0].Temperature, 1e-9)
}

func TestAsk_OptimizesQuery(t *testing.T) {
	retriever := &mockRetriever{hits: sampleHits()}
	llm := &mockLLM{responses: []string{"goroutines definition", "answer"}}
	svc := NewAnswerService(retriever, llm)

	answer, err := svc.Ask(context.Background(), domain.AskRequest{
		Query:    "umm what r goroutines??",
		Optimize: true,
		Retrieve: domain.DefaultRetrieveOptions(),
	})
	require.NoError(t, err)

	assert.Equal(t, "goroutines definition", answer.OptimizedQuery)
	assert.Equal(t, []string{"goroutines definition"}, retriever.queries)
	assert.Equal(t, 100, llm.opts[0].MaxTokens)
	assert.Zero(t, llm.opts[0].Temperature)
	assert.Contains(t, llm.calls[1][1].Content, "Question: umm what r goroutines??")
}

func TestQueryOptimizer_FallsBack(t *testing.T) {
	assert.Equal(t, "q", NewQueryOptimizer(nil).Optimize(context.Background(), "q"))
	assert.Equal(t, "q", NewQueryOptimizer(&mockLLM{err: errBoom}).Optimize(context.Background(), "q"))
	assert.Equal(t, "q", NewQueryOptimizer(&mockLLM{responses: []string{"   "}}).Optimize(context.Background(), "q"))
}

func TestAsk_NoHitsSkipsGeneration(t *testing.T) {
	llm := &mockLLM{}
	svc := NewAnswerService(&mockRetriever{}, llm)

	answer, err := svc.Ask(context.Background(), domain.AskRequest{Query: "q", Retrieve: domain.DefaultRetrieveOptions()})
	require.NoError(t, err)

	assert.Equal(t, NoContextAnswer, answer.Text)
	assert.Empty(t, answer.Sources)
	assert.Empty(t, llm.calls)
}

func TestAsk_EmptyQuery(t *testing.T) {
	retriever := &mockRetriever{}
	llm := &mockLLM{}
	svc := NewAnswerService(retriever, llm)

	_, err := svc.Ask(context.Background(), domain.AskRequest{Query: " "})
	assert.ErrorIs(t, err, domain.ErrEmptyQuery)
	assert.Empty(t, retriever.queries)
	assert.Empty(t, llm.calls)
}

func TestAsk_InvalidOptionsRejectedBeforeRewrite(t *testing.T) {
	tests := []struct {
		name string
		opts domain.RetrieveOptions
	}{
		{"zero top_k", domain.RetrieveOptions{TopK: 0, SemanticWeight: 0.7}},
		{"weight above one", domain.RetrieveOptions{TopK: 5, SemanticWeight: 1.5}},
		{"negative weight", domain.RetrieveOptions{TopK: 5, SemanticWeight: -0.1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			retriever := &mockRetriever{hits: sampleHits()}
			llm := &mockLLM{responses: []string{"rewritten"}}
			svc := NewAnswerService(retriever, llm)

			_, err := svc.Ask(context.Background(), domain.AskRequest{
				Query:    "what are goroutines",
				Optimize: true,
				Retrieve: tt.opts,
			})

			assert.ErrorIs(t, err, domain.ErrInvalidInput)
			assert.Empty(t, llm.calls)
			assert.Empty(t, retriever.queries)
		})
	}
}

func TestAsk_NoLLM(t *testing.T) {
	svc := NewAnswerService(&mockRetriever{}, nil)

	_, err := svc.Ask(context.Background(), domain.AskRequest{Query: "q"})
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
}

func TestAsk_Errors(t *testing.T) {
	svc := NewAnswerService(&mockRetriever{err: domain.ErrStore}, &mockLLM{})
	_, err := svc.Ask(context.Background(), domain.AskRequest{Query: "q", Retrieve: domain.DefaultRetrieveOptions()})
	assert.ErrorIs(t, err, domain.ErrStore)

	svc = NewAnswerService(&mockRetriever{hits: sampleHits()}, &mockLLM{err: errBoom})
	_, err = svc.Ask(context.Background(), domain.AskRequest{Query: "q", Retrieve: domain.DefaultRetrieveOptions()})
	assert.ErrorIs(t, err, domain.ErrProvider)
	assert.ErrorIs(t, err, errBoom)
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "short", Snippet("short", 10))
	assert.Equal(t, "abc...", Snippet("abcdef", 3))
	assert.Equal(t, "ééé...", Snippet("éééé", 3))

	long := strings.Repeat("x", 250)
	assert.Len(t, Snippet(long, snippetLength), snippetLength+3)
}

func TestFormatContext(t *testing.T) {
	got := FormatContext(sampleHits())
	assert.Equal(t, "[Doc 1]\nGo has goroutines.\n\n[Doc 2]\nChannels connect goroutines.\n", got)
	assert.Empty(t, FormatContext(nil))
}
