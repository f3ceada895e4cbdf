package domain

import "fmt"

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderGemini is the Google Generative Language API.
	AIProviderGemini AIProvider = "gemini"

	// AIProviderOpenRouter is the OpenAI-compatible OpenRouter gateway.
	AIProviderOpenRouter AIProvider = "openrouter"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderGemini, AIProviderOpenRouter, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// SupportsEmbedding returns true if the provider offers an embedding API.
func (p AIProvider) SupportsEmbedding() bool {
	return p == AIProviderOllama || p == AIProviderOpenAI || p == AIProviderGemini
}

// SupportsLLM returns true if the provider offers chat completions.
func (p AIProvider) SupportsLLM() bool {
	return p == AIProviderOllama || p == AIProviderOpenAI || p == AIProviderOpenRouter || p == AIProviderAnthropic
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p != AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderGemini:
		return "Google Gemini (cloud)"
	case AIProviderOpenRouter:
		return "OpenRouter (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	default:
		return unknownDescription
	}
}

// AllEmbeddingProviders returns the providers offering embeddings, in menu order.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{AIProviderGemini, AIProviderOllama, AIProviderOpenAI}
}

// AllLLMProviders returns the providers offering chat completions, in menu order.
func AllLLMProviders() []AIProvider {
	return []AIProvider{AIProviderOpenRouter, AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic}
}

// EmbeddingModel is a suggested model with the vector length it produces.
type EmbeddingModel struct {
	Name       string
	Dimensions int
}

// DefaultEmbeddingModels returns the suggested model per embedding provider.
func DefaultEmbeddingModels() map[AIProvider]EmbeddingModel {
	return map[AIProvider]EmbeddingModel{
		AIProviderGemini: {Name: "text-embedding-004", Dimensions: 768},
		AIProviderOllama: {Name: "nomic-embed-text", Dimensions: 768},
		AIProviderOpenAI: {Name: "text-embedding-3-small", Dimensions: 1536},
	}
}

// DefaultLLMModels returns the suggested model per LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOpenRouter: "openai/gpt-4o-mini",
		AIProviderOllama:     "llama3.2",
		AIProviderOpenAI:     "gpt-4o-mini",
		AIProviderAnthropic:  "claude-3-5-haiku-latest",
	}
}

// StorageBackend selects the chunk store implementation.
type StorageBackend string

// Available storage backends.
const (
	StorageSQLite   StorageBackend = "sqlite"
	StoragePostgres StorageBackend = "postgres"
	StorageMemory   StorageBackend = "memory"
)

// IsValid returns true if the backend is recognised.
func (b StorageBackend) IsValid() bool {
	return b == StorageSQLite || b == StoragePostgres || b == StorageMemory
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL overrides the provider endpoint.
	BaseURL string

	// APIKey is the API key for cloud providers.
	APIKey string

	// Dimensions is the vector length every stored embedding must have.
	Dimensions int

	// BatchSize caps the texts sent in one provider call.
	BatchSize int

	// Concurrency caps the sub-batches in flight at once.
	Concurrency int

	// RequestsPerMinute throttles provider calls. Zero disables throttling.
	RequestsPerMinute int
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.SupportsEmbedding() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL overrides the provider endpoint.
	BaseURL string

	// APIKey is the API key for cloud providers.
	APIKey string
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.SupportsLLM() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// ChunkingSettings holds chunker configuration. Sizes are in tokens.
type ChunkingSettings struct {
	Size     int
	Overlap  int
	Encoding string
}

// RetrievalSettings holds query defaults.
type RetrievalSettings struct {
	TopK           int
	SemanticWeight float64
	OptimizeQuery  bool
}

// StorageSettings selects and locates the chunk store.
type StorageSettings struct {
	Backend     StorageBackend
	DataDir     string
	DatabaseURL string
}

// TracingSettings configures OpenTelemetry export. An empty endpoint disables it.
type TracingSettings struct {
	Endpoint   string
	SampleRate float64
}

// Settings is the full application configuration.
type Settings struct {
	Embedding EmbeddingSettings
	LLM       LLMSettings
	Chunking  ChunkingSettings
	Retrieval RetrievalSettings
	Storage   StorageSettings
	Tracing   TracingSettings
}

// DefaultSettings returns settings for a Gemini-embedded, SQLite-backed index.
func DefaultSettings() Settings {
	return Settings{
		Embedding: EmbeddingSettings{
			Provider:    AIProviderGemini,
			Model:       "text-embedding-004",
			Dimensions:  768,
			BatchSize:   20,
			Concurrency: 4,
		},
		LLM: LLMSettings{
			Provider: AIProviderOpenRouter,
			Model:    "openai/gpt-4o-mini",
		},
		Chunking: ChunkingSettings{
			Size:     1000,
			Overlap:  200,
			Encoding: "gpt-4",
		},
		Retrieval: RetrievalSettings{
			TopK:           DefaultTopK,
			SemanticWeight: DefaultSemanticWeight,
		},
		Storage: StorageSettings{
			Backend: StorageSQLite,
		},
		Tracing: TracingSettings{
			SampleRate: 1.0,
		},
	}
}

// Validate reports the first setting that cannot be used.
func (s Settings) Validate() error {
	switch {
	case !s.Embedding.Provider.SupportsEmbedding():
		return fmt.Errorf("%w: embedding provider %q", ErrInvalidSettings, s.Embedding.Provider)
	case s.Embedding.Dimensions < 1:
		return fmt.Errorf("%w: embedding dimensions must be positive", ErrInvalidSettings)
	case s.Embedding.BatchSize < 1:
		return fmt.Errorf("%w: embedding batch size must be positive", ErrInvalidSettings)
	case s.LLM.Provider != "" && !s.LLM.Provider.SupportsLLM():
		return fmt.Errorf("%w: llm provider %q", ErrInvalidSettings, s.LLM.Provider)
	case s.Chunking.Size < 1:
		return fmt.Errorf("%w: chunk size must be positive", ErrInvalidSettings)
	case s.Chunking.Overlap < 0 || s.Chunking.Overlap >= s.Chunking.Size:
		return fmt.Errorf("%w: chunk overlap must be in [0, size)", ErrInvalidSettings)
	case s.Retrieval.TopK < 1:
		return fmt.Errorf("%w: top_k must be positive", ErrInvalidSettings)
	case s.Retrieval.SemanticWeight < 0 || s.Retrieval.SemanticWeight > 1:
		return fmt.Errorf("%w: semantic_weight must be in [0,1]", ErrInvalidSettings)
	case !s.Storage.Backend.IsValid():
		return fmt.Errorf("%w: storage backend %q", ErrInvalidSettings, s.Storage.Backend)
	case s.Storage.Backend == StoragePostgres && s.Storage.DatabaseURL == "":
		return fmt.Errorf("%w: postgres backend needs database_url", ErrInvalidSettings)
	}
	return nil
}
