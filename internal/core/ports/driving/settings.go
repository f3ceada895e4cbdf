package driving

import "github.com/custodia-labs/sercha-rag/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get returns stored settings with environment overrides applied.
	Get() (*domain.Settings, error)

	// Save validates and persists settings.
	Save(settings *domain.Settings) error

	// SetAPIKey stores the key for the embedding or LLM provider.
	SetAPIKey(target string, key string) error

	// Path returns the configuration file location.
	Path() string
}
