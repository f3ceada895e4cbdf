package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// Callers match them with errors.Is; every layer wraps with context.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	// It is raised before any provider or store call is made.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmptyQuery indicates a query with no searchable text.
	ErrEmptyQuery = fmt.Errorf("%w: empty query", ErrInvalidInput)

	// ErrUnsupportedType indicates a document type no normaliser accepts.
	ErrUnsupportedType = fmt.Errorf("%w: unsupported document type", ErrInvalidInput)

	// ErrProvider indicates an embedding or generation provider call failed.
	ErrProvider = errors.New("provider error")

	// ErrRateLimited indicates the provider rejected the call with a rate limit.
	ErrRateLimited = fmt.Errorf("%w: rate limited", ErrProvider)

	// ErrStore indicates a persistence or search call failed.
	ErrStore = errors.New("store error")

	// ErrDimensionMismatch indicates an embedding whose length differs from
	// the dimension the store was created with.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	// Answer generation and query rewriting are disabled.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrInvalidSettings indicates configuration values that cannot be used.
	ErrInvalidSettings = errors.New("invalid settings")
)

// IsInputError reports whether err should be shown to the caller verbatim.
func IsInputError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}
