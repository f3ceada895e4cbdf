package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/httpapi"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// mockProvider fails with the queued errors before succeeding.
type mockProvider struct {
	mu    sync.Mutex
	errs  []error
	calls int
}

func (m *mockProvider) Embed(_ context.Context, texts []string, _ domain.EmbeddingMode) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		return nil, err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(i)}
	}
	return out, nil
}

func (m *mockProvider) Dimensions() int              { return 1 }
func (m *mockProvider) MaxBatchSize() int            { return 10 }
func (m *mockProvider) ModelName() string            { return "mock" }
func (m *mockProvider) Ping(_ context.Context) error { return nil }
func (m *mockProvider) Close() error                 { return nil }

func rateLimited(retryAfter time.Duration) error {
	return &httpapi.StatusError{Provider: "mock", StatusCode: 429, RetryAfter: retryAfter}
}

// instant replaces the backoff timer and records requested delays.
func instant(p *Provider) *[]time.Duration {
	var delays []time.Duration
	p.after = func(d time.Duration) <-chan time.Time {
		delays = append(delays, d)
		ch := make(chan time.Time, 1)
		ch <- time.Now()
		return ch
	}
	return &delays
}

func TestWrap_Defaults(t *testing.T) {
	p := Wrap(&mockProvider{}, Config{})

	assert.Equal(t, DefaultBackoff, p.backoff)
	assert.Equal(t, DefaultBurstSize, p.limiter.Burst())
	assert.Equal(t, "mock", p.ModelName(), "other methods pass through")
	assert.Equal(t, 10, p.MaxBatchSize())
}

func TestEmbed_PassesThrough(t *testing.T) {
	inner := &mockProvider{}
	p := Wrap(inner, Config{})

	vecs, err := p.Embed(context.Background(), []string{"a", "b"}, domain.EmbeddingModeDocument)
	require.NoError(t, err)
	assert.Len(t, vecs, 2)
	assert.Equal(t, 1, inner.calls)
}

func TestEmbed_RateLimitPausesNextCall(t *testing.T) {
	inner := &mockProvider{errs: []error{rateLimited(2 * time.Second), rateLimited(0)}}
	p := Wrap(inner, Config{Backoff: 5 * time.Second})
	delays := instant(p)
	ctx := context.Background()

	_, err := p.Embed(ctx, []string{"a"}, domain.EmbeddingModeDocument)
	assert.ErrorIs(t, err, domain.ErrRateLimited)
	assert.Equal(t, 1, inner.calls, "rate limited calls are not retried")
	assert.Empty(t, *delays)

	_, err = p.Embed(ctx, []string{"a"}, domain.EmbeddingModeDocument)
	assert.ErrorIs(t, err, domain.ErrRateLimited)

	vecs, err := p.Embed(ctx, []string{"a"}, domain.EmbeddingModeDocument)
	require.NoError(t, err)
	assert.Len(t, vecs, 1)
	assert.Equal(t, 3, inner.calls)

	require.Len(t, *delays, 2)
	assert.InDelta(t, (2 * time.Second).Seconds(), (*delays)[0].Seconds(), 0.5)
	assert.InDelta(t, (5 * time.Second).Seconds(), (*delays)[1].Seconds(), 0.5, "default backoff without Retry-After")
}

func TestEmbed_OtherErrorsSetNoBackoff(t *testing.T) {
	boom := errors.New("boom")
	inner := &mockProvider{errs: []error{boom}}
	p := Wrap(inner, Config{})

	_, err := p.Embed(context.Background(), []string{"a"}, domain.EmbeddingModeDocument)
	assert.ErrorIs(t, err, boom)
	assert.True(t, p.retryAt.IsZero())
}

func TestEmbed_CancelledDuringBackoff(t *testing.T) {
	inner := &mockProvider{errs: []error{rateLimited(time.Hour)}}
	p := Wrap(inner, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	p.after = func(time.Duration) <-chan time.Time {
		cancel()
		return make(chan time.Time)
	}

	_, err := p.Embed(ctx, []string{"a"}, domain.EmbeddingModeDocument)
	assert.ErrorIs(t, err, domain.ErrRateLimited)

	_, err = p.Embed(ctx, []string{"a"}, domain.EmbeddingModeDocument)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, inner.calls, "no call while backing off")
}
