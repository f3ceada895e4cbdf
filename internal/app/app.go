// Package app assembles the services behind every driving adapter from
// settings: AI providers, tokenizer, chunking pipeline, chunk store and
// the core services.
package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/ai"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/postgres"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/tokenizer"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/services"
	"github.com/custodia-labs/sercha-rag/internal/logger"
	"github.com/custodia-labs/sercha-rag/internal/normalisers"
	"github.com/custodia-labs/sercha-rag/internal/observability"
	"github.com/custodia-labs/sercha-rag/internal/postprocessors"
)

// DataDirName is the store directory inside the config directory when
// storage.data_dir is not set.
const DataDirName = "data"

// Options controls Build.
type Options struct {
	// ConfigDir locates the default data directory.
	ConfigDir string

	// Version is reported in traces.
	Version string

	// SkipPing builds providers without checking they are reachable.
	SkipPing bool
}

// App holds the wired services. Close releases them in reverse order.
type App struct {
	Settings *domain.Settings

	Ingest    *services.IngestService
	Retrieval *services.RetrievalService
	Answer    *services.AnswerService
	Index     *services.IndexService
	Embedding *services.EmbeddingService
	Registry  driven.NormaliserRegistry
	Store     driven.ChunkStore

	// Warnings are non-fatal problems found while building, such as an
	// unreachable LLM.
	Warnings []string

	closers []func() error
}

// Build wires every service from settings. The embedding provider and the
// store are required; the LLM is optional.
func Build(ctx context.Context, settings *domain.Settings, opts Options) (_ *App, err error) {
	if settings == nil {
		return nil, fmt.Errorf("%w: settings are required", domain.ErrInvalidSettings)
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	a := &App{Settings: settings}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	tracing, err := observability.InitTracing(ctx, settings.Tracing, opts.Version)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() error { return tracing.Shutdown(context.Background()) })

	providers, err := ai.Init(ctx, settings, !opts.SkipPing)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() error { providers.Close(); return nil })
	a.Warnings = providers.Warnings

	dims := settings.Embedding.Dimensions
	if got := providers.Embedding.Dimensions(); got != dims {
		return nil, fmt.Errorf("%w: model %s produces %d dimensions, settings say %d",
			domain.ErrDimensionMismatch, providers.Embedding.ModelName(), got, dims)
	}

	tok, err := tokenizer.New(settings.Chunking.Encoding)
	if err != nil {
		return nil, err
	}
	pipeline, err := postprocessors.NewDefaultPipeline(settings.Chunking, tok)
	if err != nil {
		return nil, err
	}

	store, err := openStore(ctx, settings.Storage, dims, opts.ConfigDir)
	if err != nil {
		return nil, err
	}
	a.Store = store
	a.closers = append(a.closers, store.Close)

	a.Embedding = services.NewEmbeddingService(providers.Embedding,
		services.WithBatchSize(settings.Embedding.BatchSize),
		services.WithConcurrency(settings.Embedding.Concurrency),
	)
	a.Registry = normalisers.Default()
	a.Ingest = services.NewIngestService(a.Registry, pipeline, a.Embedding, store)
	a.Retrieval = services.NewRetrievalService(a.Embedding, store, store)
	a.Answer = services.NewAnswerService(a.Retrieval, providers.LLM)
	a.Index = services.NewIndexService(store, a.Embedding, providers.LLM)

	logger.Debug("Services ready: %s store, %s embeddings (%d dims)",
		settings.Storage.Backend, providers.Embedding.ModelName(), dims)
	return a, nil
}

// Close releases providers, store and tracing.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func openStore(ctx context.Context, cfg domain.StorageSettings, dims int, configDir string) (driven.ChunkStore, error) {
	switch cfg.Backend {
	case domain.StorageMemory:
		return memory.NewChunkStore(dims), nil
	case domain.StoragePostgres:
		return postgres.NewStore(ctx, cfg.DatabaseURL, dims)
	case domain.StorageSQLite, "":
		dir := cfg.DataDir
		if dir == "" {
			dir = filepath.Join(configDir, DataDirName)
		}
		return sqlite.NewStore(dir, dims)
	default:
		return nil, fmt.Errorf("%w: storage backend %q", domain.ErrInvalidSettings, cfg.Backend)
	}
}
