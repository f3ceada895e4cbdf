package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/logger"
	"github.com/custodia-labs/sercha-rag/internal/observability"
)

// Ensure AnswerService implements the interface.
var _ driving.AnswerService = (*AnswerService)(nil)

const optimizeSystemPrompt = `You are a helpful assistant that improves search queries.
Take the user's input or question and rephrase it as a better semantic search query.
Remove filler words, fix typos, and focus on keywords.
Output ONLY the optimized query. Do not explain.`

const answerSystemPrompt = `You are a helpful AI assistant. Answer questions based ONLY on the provided context.
If the context doesn't contain the answer, say "I don't have enough information to answer that."
Always cite your sources by referencing [Doc X] where X is the document number.`

// NoContextAnswer is returned without calling the LLM when retrieval finds nothing.
const NoContextAnswer = "I don't have enough information to answer that."

const snippetLength = 200

// QueryOptimizer rewrites questions into search queries with an LLM.
type QueryOptimizer struct {
	llm driven.LLMService
}

// NewQueryOptimizer creates an optimizer. A nil llm makes Optimize a no-op.
func NewQueryOptimizer(llm driven.LLMService) *QueryOptimizer {
	return &QueryOptimizer{llm: llm}
}

// Optimize returns the rewritten query, or query unchanged if the LLM is
// missing, fails or returns nothing. It never fails.
func (o *QueryOptimizer) Optimize(ctx context.Context, query string) string {
	if o.llm == nil {
		return query
	}

	completion, err := o.llm.Complete(ctx, []driven.ChatMessage{
		{Role: "system", Content: optimizeSystemPrompt},
		{Role: "user", Content: query},
	}, driven.ChatOptions{MaxTokens: 100, Temperature: 0})
	if err != nil {
		logger.Warn("Query optimization failed, using original query: %v", err)
		return query
	}

	rewritten := strings.TrimSpace(completion.Text)
	if rewritten == "" {
		logger.Warn("Query optimization returned nothing, using original query")
		return query
	}
	logger.Debug("Optimized query: %q -> %q", query, rewritten)
	return rewritten
}

// AnswerService answers questions from retrieved chunks.
type AnswerService struct {
	retriever driving.RetrievalService
	llm       driven.LLMService
	optimizer *QueryOptimizer
}

// NewAnswerService creates an answer service. llm may be nil, in which case
// Ask returns domain.ErrLLMUnavailable.
func NewAnswerService(retriever driving.RetrievalService, llm driven.LLMService) *AnswerService {
	return &AnswerService{
		retriever: retriever,
		llm:       llm,
		optimizer: NewQueryOptimizer(llm),
	}
}

// Ask optionally rewrites the query, retrieves context and generates an
// answer citing [Doc N]. Generation failures are provider errors.
func (s *AnswerService) Ask(ctx context.Context, req domain.AskRequest) (_ *domain.Answer, err error) {
	logger.Section("Answer")

	if strings.TrimSpace(req.Query) == "" {
		return nil, domain.ErrEmptyQuery
	}
	if s.llm == nil {
		return nil, domain.ErrLLMUnavailable
	}
	if err := req.Retrieve.Validate(); err != nil {
		return nil, fmt.Errorf("ask: top_k %d, weight %.2f: %w", req.Retrieve.TopK, req.Retrieve.SemanticWeight, err)
	}

	ctx, span := observability.StartSpan(ctx, "answer", attribute.Bool("rag.optimize", req.Optimize))
	defer func() { observability.End(span, err) }()

	answer := &domain.Answer{Query: req.Query}

	// 1. REWRITE (optional, never fatal)
	searchQuery := req.Query
	if req.Optimize {
		if rewritten := s.optimizer.Optimize(ctx, req.Query); rewritten != req.Query {
			answer.OptimizedQuery = rewritten
			searchQuery = rewritten
		}
	}

	// 2. RETRIEVE
	hits, err := s.retriever.Retrieve(ctx, searchQuery, req.Retrieve)
	if err != nil {
		return nil, err
	}
	answer.Sources = sourceRefs(hits)
	if len(hits) == 0 {
		answer.Text = NoContextAnswer
		return answer, nil
	}

	// 3. GENERATE
	prompt := fmt.Sprintf("Context:\n%s\nQuestion: %s\n\nAnswer:", FormatContext(hits), req.Query)
	completion, err := s.llm.Complete(ctx, []driven.ChatMessage{
		{Role: "system", Content: answerSystemPrompt},
		{Role: "user", Content: prompt},
	}, driven.ChatOptions{MaxTokens: 500, Temperature: 0.1})
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", providerError(err))
	}

	answer.Text = strings.TrimSpace(completion.Text)
	answer.TokensUsed = completion.TotalTokens()
	span.SetAttributes(attribute.Int("rag.tokens_used", answer.TokensUsed))
	return answer, nil
}

// FormatContext renders hits as numbered [Doc i] blocks.
func FormatContext(hits []domain.RetrievalHit) string {
	blocks := make([]string, len(hits))
	for i, h := range hits {
		blocks[i] = fmt.Sprintf("[Doc %d]\n%s\n", i+1, h.Content)
	}
	return strings.Join(blocks, "\n")
}

func sourceRefs(hits []domain.RetrievalHit) []domain.SourceRef {
	refs := make([]domain.SourceRef, len(hits))
	for i, h := range hits {
		idx, _ := h.Metadata.Int(domain.MetaChunkIndex)
		refs[i] = domain.SourceRef{
			Doc:        i + 1,
			Source:     h.Source,
			ChunkIndex: idx,
			Snippet:    Snippet(h.Content, snippetLength),
			Score:      h.FinalScore,
		}
	}
	return refs
}

// Snippet truncates text to n runes, appending "..." when cut.
func Snippet(text string, n int) string {
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	runes := []rune(text)
	return string(runes[:n]) + "..."
}
