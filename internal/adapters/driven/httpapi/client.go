// Package httpapi holds the JSON-over-HTTP plumbing shared by the embedding
// and LLM adapters.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// maxErrorBody caps how much of an error response is kept.
const maxErrorBody = 2048

// StatusError is a non-2xx response from a provider API.
// It matches domain.ErrRateLimited for 429 and domain.ErrProvider otherwise.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string

	// RetryAfter is parsed from the Retry-After header, zero if absent.
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: API returned status %d: %s", e.Provider, e.StatusCode, e.Body)
}

// Unwrap maps the status code onto the domain error taxonomy.
func (e *StatusError) Unwrap() error {
	if e.StatusCode == http.StatusTooManyRequests {
		return domain.ErrRateLimited
	}
	return domain.ErrProvider
}

// RetryAfter returns the backoff a rate-limited err asked for, or zero.
func RetryAfter(err error) time.Duration {
	var se *StatusError
	if errors.As(err, &se) {
		return se.RetryAfter
	}
	return 0
}

// CheckResponse returns a *StatusError for non-2xx responses.
func CheckResponse(provider string, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	se := &StatusError{
		Provider:   provider,
		StatusCode: resp.StatusCode,
		Body:       string(bytes.TrimSpace(body)),
	}
	if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
		se.RetryAfter = time.Duration(secs) * time.Second
	}
	return se
}

// PostJSON sends in as a JSON body and decodes the response into out.
// Transport and decoding failures match domain.ErrProvider.
func PostJSON(
	ctx context.Context, client *http.Client, provider, url string, headers map[string]string, in, out any,
) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%s: marshal request: %w", provider, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: create request: %w", provider, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: send request: %w", domain.ErrProvider, provider, err)
	}
	defer resp.Body.Close()

	if err := CheckResponse(provider, resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %s: decode response: %w", domain.ErrProvider, provider, err)
	}
	return nil
}

// Get performs a GET and discards the body. Used for Ping.
func Get(ctx context.Context, client *http.Client, provider, url string, headers map[string]string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return fmt.Errorf("%s: failed to create ping request: %w", provider, err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: ping failed: %w", domain.ErrProvider, provider, err)
	}
	defer resp.Body.Close()

	if err := CheckResponse(provider, resp); err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// ToFloat32 narrows an API vector.
func ToFloat32(values []float64) []float32 {
	out := make([]float32, len(values))
	for i, v := range values {
		out[i] = float32(v)
	}
	return out
}
