package services

import (
	"fmt"
	"os"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Environment variables that override stored settings.
//
//nolint:gosec // G101: These are variable names, not actual credentials.
const (
	EnvGeminiAPIKey     = "GEMINI_API_KEY"
	EnvOpenAIAPIKey     = "OPENAI_API_KEY"
	EnvOpenRouterAPIKey = "OPENROUTER_API_KEY"
	EnvAnthropicAPIKey  = "ANTHROPIC_API_KEY"
	EnvDatabaseURL      = "DATABASE_URL"
	EnvEmbeddingModel   = "EMBEDDING_MODEL"
	EnvModelName        = "MODEL_NAME"
	EnvOTLPEndpoint     = "OTEL_EXPORTER_OTLP_ENDPOINT"
)

// API key targets for SetAPIKey.
const (
	TargetEmbedding = "embedding"
	TargetLLM       = "llm"
)

// SettingsService manages application settings.
type SettingsService struct {
	store     driven.SettingsStore
	lookupEnv func(string) (string, bool)
}

// NewSettingsService creates a new settings service reading the process environment.
func NewSettingsService(store driven.SettingsStore) *SettingsService {
	return &SettingsService{
		store:     store,
		lookupEnv: os.LookupEnv,
	}
}

// SetEnvLookup replaces the environment source. Used by tests.
func (s *SettingsService) SetEnvLookup(lookup func(string) (string, bool)) {
	s.lookupEnv = lookup
}

// Get returns stored settings with environment overrides applied.
func (s *SettingsService) Get() (*domain.Settings, error) {
	settings, err := s.store.Load()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	s.applyEnv(settings)
	return settings, nil
}

// Save validates and persists settings.
func (s *SettingsService) Save(settings *domain.Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	return s.store.Save(settings)
}

// SetAPIKey stores the key for the embedding or LLM provider.
// Environment overrides are not written back.
func (s *SettingsService) SetAPIKey(target, key string) error {
	settings, err := s.store.Load()
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	switch target {
	case TargetEmbedding:
		settings.Embedding.APIKey = key
	case TargetLLM:
		settings.LLM.APIKey = key
	default:
		return fmt.Errorf("%w: unknown key target %q", domain.ErrInvalidInput, target)
	}
	return s.store.Save(settings)
}

// Path returns the configuration file location.
func (s *SettingsService) Path() string {
	return s.store.Path()
}

func (s *SettingsService) applyEnv(settings *domain.Settings) {
	if key, ok := s.env(providerKeyVar(settings.Embedding.Provider)); ok {
		settings.Embedding.APIKey = key
	}
	if key, ok := s.env(providerKeyVar(settings.LLM.Provider)); ok {
		settings.LLM.APIKey = key
	}
	if v, ok := s.env(EnvEmbeddingModel); ok {
		settings.Embedding.Model = v
	}
	if v, ok := s.env(EnvModelName); ok {
		settings.LLM.Model = v
	}
	if v, ok := s.env(EnvDatabaseURL); ok {
		settings.Storage.DatabaseURL = v
	}
	if v, ok := s.env(EnvOTLPEndpoint); ok {
		settings.Tracing.Endpoint = v
	}
}

// env returns a non-empty environment value.
func (s *SettingsService) env(name string) (string, bool) {
	if name == "" {
		return "", false
	}
	v, ok := s.lookupEnv(name)
	return v, ok && v != ""
}

func providerKeyVar(p domain.AIProvider) string {
	switch p {
	case domain.AIProviderGemini:
		return EnvGeminiAPIKey
	case domain.AIProviderOpenAI:
		return EnvOpenAIAPIKey
	case domain.AIProviderOpenRouter:
		return EnvOpenRouterAPIKey
	case domain.AIProviderAnthropic:
		return EnvAnthropicAPIKey
	default:
		return ""
	}
}
