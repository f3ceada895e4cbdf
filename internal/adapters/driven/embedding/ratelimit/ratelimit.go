// Package ratelimit wraps an embedding provider with a token bucket and
// pauses calls after the provider reports a rate limit.
package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/httpapi"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// Ensure Provider implements the interface.
var _ driven.EmbeddingProvider = (*Provider)(nil)

// Default limits. Hosted APIs allow far more, these keep bulk ingestion
// well clear of per-minute quotas.
const (
	DefaultRequestsPerSecond = 5.0
	DefaultBurstSize         = 10
	DefaultBackoff           = 10 * time.Second
)

// Config holds rate limiting configuration.
type Config struct {
	// RequestsPerSecond is the sustained rate limit.
	RequestsPerSecond float64
	// BurstSize is the maximum burst size.
	BurstSize int
	// Backoff is the pause used when the provider gave no Retry-After.
	Backoff time.Duration
}

// Provider decorates an EmbeddingProvider with client-side rate limiting.
type Provider struct {
	driven.EmbeddingProvider

	mu      sync.Mutex
	limiter *rate.Limiter
	retryAt time.Time
	backoff time.Duration

	// after is swapped in tests.
	after func(time.Duration) <-chan time.Time
}

// Wrap returns inner limited by cfg.
func Wrap(inner driven.EmbeddingProvider, cfg Config) *Provider {
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if cfg.BurstSize <= 0 {
		cfg.BurstSize = DefaultBurstSize
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = DefaultBackoff
	}

	return &Provider{
		EmbeddingProvider: inner,
		limiter:           rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.BurstSize),
		backoff:           cfg.Backoff,
		after:             time.After,
	}
}

// Embed waits for the limiter, then calls the wrapped provider. A
// rate-limited response sets a backoff that delays the next call. The error
// itself is returned unchanged, retries are left to the caller.
func (p *Provider) Embed(ctx context.Context, texts []string, mode domain.EmbeddingMode) ([][]float32, error) {
	if err := p.wait(ctx); err != nil {
		return nil, err
	}

	vectors, err := p.EmbeddingProvider.Embed(ctx, texts, mode)
	if err != nil && errors.Is(err, domain.ErrRateLimited) {
		delay := httpapi.RetryAfter(err)
		if delay <= 0 {
			delay = p.backoff
		}
		p.recordRateLimit(delay)
		logger.Warn("Embedding provider rate limited, pausing calls for %s", delay)
	}
	return vectors, err
}

// wait respects any backoff set by a rate-limited response, then the bucket.
func (p *Provider) wait(ctx context.Context) error {
	p.mu.Lock()
	retryAt := p.retryAt
	p.mu.Unlock()

	if d := time.Until(retryAt); d > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.after(d):
		}
	}

	return p.limiter.Wait(ctx)
}

func (p *Provider) recordRateLimit(delay time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if at := time.Now().Add(delay); at.After(p.retryAt) {
		p.retryAt = at
	}
}
