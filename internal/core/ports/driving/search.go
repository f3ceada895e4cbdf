package driving

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// RetrievalService runs hybrid retrieval for external actors.
type RetrievalService interface {
	// Retrieve fuses vector and lexical results for query into at most opts.TopK hits.
	Retrieve(ctx context.Context, query string, opts domain.RetrieveOptions) ([]domain.RetrievalHit, error)
}

// AnswerService answers questions from retrieved context.
type AnswerService interface {
	// Ask retrieves context for req.Query and generates a cited answer.
	Ask(ctx context.Context, req domain.AskRequest) (*domain.Answer, error)
}
