package cli

import (
	"errors"
	"fmt"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// CLI errors.
var (
	// ErrServicesNotConfigured indicates the binary wired no service builder.
	ErrServicesNotConfigured = errors.New("services not configured")

	// ErrSettingsNotConfigured indicates the binary wired no settings store.
	ErrSettingsNotConfigured = errors.New("settings service not configured")

	// ErrAnswerUnavailable indicates ask was run without an answer service.
	ErrAnswerUnavailable = fmt.Errorf("%w: configure an LLM with 'sercha-rag settings llm'", domain.ErrLLMUnavailable)

	// ErrInvalidMetadata indicates a --meta value that is not key=value.
	ErrInvalidMetadata = fmt.Errorf("%w: metadata must be key=value", domain.ErrInvalidInput)
)
