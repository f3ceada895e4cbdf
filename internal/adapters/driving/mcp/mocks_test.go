package mcp

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// mockRetrievalService is a mock implementation of driving.RetrievalService.
type mockRetrievalService struct {
	hits  []domain.RetrievalHit
	err   error
	query string
	opts  domain.RetrieveOptions
}

func (m *mockRetrievalService) Retrieve(
	_ context.Context,
	query string,
	opts domain.RetrieveOptions,
) ([]domain.RetrievalHit, error) {
	m.query = query
	m.opts = opts
	return m.hits, m.err
}

// mockAnswerService is a mock implementation of driving.AnswerService.
type mockAnswerService struct {
	answer *domain.Answer
	err    error
	req    domain.AskRequest
}

func (m *mockAnswerService) Ask(_ context.Context, req domain.AskRequest) (*domain.Answer, error) {
	m.req = req
	return m.answer, m.err
}

// mockIndexService is a mock implementation of driving.IndexService.
type mockIndexService struct {
	stats *domain.IndexStats
	err   error
}

func (m *mockIndexService) Stats(_ context.Context) (*domain.IndexStats, error) {
	return m.stats, m.err
}

func (m *mockIndexService) Reset(_ context.Context) error {
	return m.err
}

func (m *mockIndexService) Remove(_ context.Context, sources []string) (int, error) {
	return len(sources), m.err
}

func ptr(f float64) *float64 { return &f }
