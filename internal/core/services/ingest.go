package services

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/logger"
	"github.com/custodia-labs/sercha-rag/internal/observability"
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// MetaBatchID records which ingestion batch stored a chunk.
const MetaBatchID = "batch_id"

// BatchEmbedder produces document-mode vectors. EmbeddingService implements it.
type BatchEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// ChunkWriter is the part of the store ingestion needs.
type ChunkWriter interface {
	InsertChunks(ctx context.Context, records []domain.EmbeddingRecord) ([]int64, error)
	Dimensions() int
}

// IngestService normalises, chunks, embeds and persists documents.
// A batch is persisted only when every one of its chunks has an embedding.
type IngestService struct {
	registry driven.NormaliserRegistry
	pipeline driven.PostProcessorPipeline
	embedder BatchEmbedder
	store    ChunkWriter
	readFile func(string) ([]byte, error)
}

// NewIngestService creates an ingestion service.
func NewIngestService(
	registry driven.NormaliserRegistry,
	pipeline driven.PostProcessorPipeline,
	embedder BatchEmbedder,
	store ChunkWriter,
) *IngestService {
	return &IngestService{
		registry: registry,
		pipeline: pipeline,
		embedder: embedder,
		store:    store,
		readFile: os.ReadFile,
	}
}

// IngestFiles ingests files and directories as one batch.
// A named file of unsupported type is an input error; unsupported files
// found while walking a directory are skipped.
func (s *IngestService) IngestFiles(
	ctx context.Context, paths []string, metadata domain.Metadata,
) (*domain.IngestResult, error) {
	logger.Section("Ingest")

	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no paths given", domain.ErrInvalidInput)
	}

	// 1. COLLECT (reject unsupported input before any provider call)
	files, skipped, err := s.collect(paths)
	if err != nil {
		return nil, err
	}

	// 2. NORMALISE
	docs := make([]domain.Document, 0, len(files))
	for _, f := range files {
		content, err := s.readFile(f.path)
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %w", domain.ErrInvalidInput, f.path, err)
		}
		normaliser, err := s.registry.Get(f.mimeType)
		if err != nil {
			return nil, fmt.Errorf("normalise %s: %w", f.path, err)
		}
		raw := &domain.RawDocument{
			URI:      f.path,
			MIMEType: f.mimeType,
			Content:  content,
			Metadata: metadata,
		}
		doc, err := normaliser.Normalise(ctx, raw)
		if err != nil {
			return nil, fmt.Errorf("normalise %s: %w", f.path, err)
		}
		docs = append(docs, *doc)
	}

	result, err := s.Ingest(ctx, docs)
	if err != nil {
		return nil, err
	}
	result.Skipped = skipped
	return result, nil
}

// Ingest chunks, embeds and persists documents as one batch.
func (s *IngestService) Ingest(ctx context.Context, docs []domain.Document) (_ *domain.IngestResult, err error) {
	ctx, span := observability.StartSpan(ctx, "ingest", attribute.Int("rag.documents", len(docs)))
	defer func() { observability.End(span, err) }()

	result := &domain.IngestResult{
		BatchID:   uuid.NewString(),
		Documents: len(docs),
	}

	// 3. CHUNK
	var chunks []domain.Chunk
	for i := range docs {
		docChunks, err := s.pipeline.Process(ctx, &docs[i])
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", docs[i].Source, err)
		}
		logger.Debug("%s: %d chunks", docs[i].Source, len(docChunks))
		chunks = append(chunks, docChunks...)
		result.Sources = append(result.Sources, docs[i].Source)
	}
	span.SetAttributes(attribute.Int("rag.chunks", len(chunks)))
	if len(chunks) == 0 {
		return result, nil
	}

	// 4. EMBED (all chunks before anything is written)
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed %d chunks: %w", len(chunks), providerError(err))
	}

	// 5. CHECK DIMENSIONS
	dim := s.store.Dimensions()
	records := make([]domain.EmbeddingRecord, len(chunks))
	for i, c := range chunks {
		if len(vectors[i]) != dim {
			return nil, fmt.Errorf("%w: chunk %d of %s has %d dimensions, store expects %d",
				domain.ErrDimensionMismatch, c.Index(), c.Source, len(vectors[i]), dim)
		}
		meta := c.Metadata.Clone()
		meta[MetaBatchID] = result.BatchID
		records[i] = domain.EmbeddingRecord{
			Content:   c.Content,
			Embedding: vectors[i],
			Metadata:  meta,
			Source:    c.Source,
		}
	}

	// 6. PERSIST (single transaction)
	ids, err := s.store.InsertChunks(ctx, records)
	if err != nil {
		return nil, fmt.Errorf("persist %d chunks: %w", len(records), storeError(err))
	}

	result.Chunks = len(ids)
	result.IDs = ids
	logger.Info("Ingested %d documents as %d chunks (batch %s)", len(docs), len(ids), result.BatchID)
	return result, nil
}

type sourceFile struct {
	path     string
	mimeType string
}

// collect expands directories to absolute file paths and resolves MIME types.
func (s *IngestService) collect(paths []string) ([]sourceFile, []string, error) {
	var files []sourceFile
	var skipped []string

	for _, path := range paths {
		// Sources are stored as absolute paths so removal and the watcher
		// address the same records.
		path, err := filepath.Abs(path)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
		}
		info, err := os.Stat(path)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
		}

		if !info.IsDir() {
			mimeType := s.registry.DetectMIMEType(path)
			if mimeType == "" {
				return nil, nil, fmt.Errorf("%s: %w", path, domain.ErrUnsupportedType)
			}
			files = append(files, sourceFile{path: path, mimeType: mimeType})
			continue
		}

		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if p != path && len(d.Name()) > 1 && d.Name()[0] == '.' {
					return filepath.SkipDir
				}
				return nil
			}
			mimeType := s.registry.DetectMIMEType(p)
			if mimeType == "" {
				logger.Warn("Skipping unsupported file: %s", p)
				skipped = append(skipped, p)
				return nil
			}
			files = append(files, sourceFile{path: p, mimeType: mimeType})
			return nil
		})
		if err != nil {
			return nil, nil, fmt.Errorf("%w: walk %s: %w", domain.ErrInvalidInput, path, err)
		}
	}

	if len(files) == 0 {
		return nil, skipped, fmt.Errorf("%w: no supported files found", domain.ErrInvalidInput)
	}
	return files, skipped, nil
}
