package driven

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// SettingsStore loads and saves application settings.
type SettingsStore interface {
	// Load returns stored settings layered over domain.DefaultSettings.
	// A missing file is not an error.
	Load() (*domain.Settings, error)

	// Save persists settings.
	Save(settings *domain.Settings) error

	// Path returns the backing file location.
	Path() string
}

// AIConfigValidator checks provider settings by connecting to the provider.
type AIConfigValidator interface {
	// ValidateEmbedding pings the configured embedding provider.
	ValidateEmbedding(ctx context.Context, settings *domain.EmbeddingSettings) error

	// ValidateLLM pings the configured LLM provider.
	ValidateLLM(ctx context.Context, settings *domain.LLMSettings) error
}
