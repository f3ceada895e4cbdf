package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// ConfigFile is the settings file name inside the config directory.
const ConfigFile = "config.toml"

// Ensure SettingsStore implements the interface.
var _ driven.SettingsStore = (*SettingsStore)(nil)

// SettingsStore is a file-based implementation of driven.SettingsStore using TOML.
// Keys missing from the file keep their domain.DefaultSettings values.
type SettingsStore struct {
	mu       sync.Mutex
	filePath string
}

// tomlSettings is the on-disk layout.
type tomlSettings struct {
	Embedding tomlEmbedding `toml:"embedding"`
	LLM       tomlLLM       `toml:"llm"`
	Chunking  tomlChunking  `toml:"chunking"`
	Retrieval tomlRetrieval `toml:"retrieval"`
	Storage   tomlStorage   `toml:"storage"`
	Tracing   tomlTracing   `toml:"tracing"`
}

type tomlEmbedding struct {
	Provider          string `toml:"provider"`
	Model             string `toml:"model"`
	BaseURL           string `toml:"base_url,omitempty"`
	APIKey            string `toml:"api_key,omitempty"`
	Dimensions        int    `toml:"dimensions"`
	BatchSize         int    `toml:"batch_size"`
	Concurrency       int    `toml:"concurrency"`
	RequestsPerMinute int    `toml:"requests_per_minute,omitempty"`
}

type tomlLLM struct {
	Provider string `toml:"provider"`
	Model    string `toml:"model"`
	BaseURL  string `toml:"base_url,omitempty"`
	APIKey   string `toml:"api_key,omitempty"`
}

type tomlChunking struct {
	Size     int    `toml:"size"`
	Overlap  int    `toml:"overlap"`
	Encoding string `toml:"encoding"`
}

type tomlRetrieval struct {
	TopK           int     `toml:"top_k"`
	SemanticWeight float64 `toml:"semantic_weight"`
	OptimizeQuery  bool    `toml:"optimize_query"`
}

type tomlStorage struct {
	Backend     string `toml:"backend"`
	DataDir     string `toml:"data_dir,omitempty"`
	DatabaseURL string `toml:"database_url,omitempty"`
}

type tomlTracing struct {
	Endpoint   string  `toml:"endpoint,omitempty"`
	SampleRate float64 `toml:"sample_rate"`
}

// NewSettingsStore creates a new TOML-based settings store.
// If configDir is empty, defaults to ~/.sercha-rag/config.toml.
func NewSettingsStore(configDir string) (*SettingsStore, error) {
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		configDir = filepath.Join(home, ".sercha-rag")
	}

	// Ensure directory exists
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	return &SettingsStore{filePath: filepath.Join(configDir, ConfigFile)}, nil
}

// Path returns the settings file location.
func (s *SettingsStore) Path() string {
	return s.filePath
}

// Load reads the settings file over the defaults. A missing file yields the defaults.
func (s *SettingsStore) Load() (*domain.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	defaults := domain.DefaultSettings()
	file := fromDomain(&defaults)

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// No config file yet - that's fine, use defaults
			return &defaults, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %w", domain.ErrInvalidSettings, s.filePath, err)
	}

	settings := file.toDomain()
	return &settings, nil
}

// Save writes settings to the TOML file with owner-only permissions,
// since it may hold API keys.
func (s *SettingsStore) Save(settings *domain.Settings) error {
	if settings == nil {
		return fmt.Errorf("%w: nil settings", domain.ErrInvalidSettings)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := toml.Marshal(fromDomain(settings))
	if err != nil {
		return err
	}

	// Write to a temp file and rename so a crash never leaves a torn config.
	tmp := s.filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, s.filePath)
}

func fromDomain(s *domain.Settings) tomlSettings {
	return tomlSettings{
		Embedding: tomlEmbedding{
			Provider:          string(s.Embedding.Provider),
			Model:             s.Embedding.Model,
			BaseURL:           s.Embedding.BaseURL,
			APIKey:            s.Embedding.APIKey,
			Dimensions:        s.Embedding.Dimensions,
			BatchSize:         s.Embedding.BatchSize,
			Concurrency:       s.Embedding.Concurrency,
			RequestsPerMinute: s.Embedding.RequestsPerMinute,
		},
		LLM: tomlLLM{
			Provider: string(s.LLM.Provider),
			Model:    s.LLM.Model,
			BaseURL:  s.LLM.BaseURL,
			APIKey:   s.LLM.APIKey,
		},
		Chunking: tomlChunking{
			Size:     s.Chunking.Size,
			Overlap:  s.Chunking.Overlap,
			Encoding: s.Chunking.Encoding,
		},
		Retrieval: tomlRetrieval{
			TopK:           s.Retrieval.TopK,
			SemanticWeight: s.Retrieval.SemanticWeight,
			OptimizeQuery:  s.Retrieval.OptimizeQuery,
		},
		Storage: tomlStorage{
			Backend:     string(s.Storage.Backend),
			DataDir:     s.Storage.DataDir,
			DatabaseURL: s.Storage.DatabaseURL,
		},
		Tracing: tomlTracing{
			Endpoint:   s.Tracing.Endpoint,
			SampleRate: s.Tracing.SampleRate,
		},
	}
}

func (f tomlSettings) toDomain() domain.Settings {
	return domain.Settings{
		Embedding: domain.EmbeddingSettings{
			Provider:          domain.AIProvider(f.Embedding.Provider),
			Model:             f.Embedding.Model,
			BaseURL:           f.Embedding.BaseURL,
			APIKey:            f.Embedding.APIKey,
			Dimensions:        f.Embedding.Dimensions,
			BatchSize:         f.Embedding.BatchSize,
			Concurrency:       f.Embedding.Concurrency,
			RequestsPerMinute: f.Embedding.RequestsPerMinute,
		},
		LLM: domain.LLMSettings{
			Provider: domain.AIProvider(f.LLM.Provider),
			Model:    f.LLM.Model,
			BaseURL:  f.LLM.BaseURL,
			APIKey:   f.LLM.APIKey,
		},
		Chunking: domain.ChunkingSettings{
			Size:     f.Chunking.Size,
			Overlap:  f.Chunking.Overlap,
			Encoding: f.Chunking.Encoding,
		},
		Retrieval: domain.RetrievalSettings{
			TopK:           f.Retrieval.TopK,
			SemanticWeight: f.Retrieval.SemanticWeight,
			OptimizeQuery:  f.Retrieval.OptimizeQuery,
		},
		Storage: domain.StorageSettings{
			Backend:     domain.StorageBackend(f.Storage.Backend),
			DataDir:     f.Storage.DataDir,
			DatabaseURL: f.Storage.DatabaseURL,
		},
		Tracing: domain.TracingSettings{
			Endpoint:   f.Tracing.Endpoint,
			SampleRate: f.Tracing.SampleRate,
		},
	}
}
