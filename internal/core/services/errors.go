package services

import (
	"errors"
	"fmt"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// providerError ensures err matches domain.ErrProvider.
// Deadlines and cancellation during a provider call count as provider failures.
func providerError(err error) error {
	if err == nil || errors.Is(err, domain.ErrProvider) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrProvider, err)
}

// storeError ensures err matches domain.ErrStore unless it is a consistency error.
func storeError(err error) error {
	if err == nil || errors.Is(err, domain.ErrStore) || errors.Is(err, domain.ErrDimensionMismatch) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrStore, err)
}
