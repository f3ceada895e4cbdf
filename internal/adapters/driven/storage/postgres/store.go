package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/ranking"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

const metaDimensions = "dimensions"

// Ensure Store implements the interface.
var _ driven.ChunkStore = (*Store)(nil)

// Store is a PostgreSQL chunk store using pgvector.
type Store struct {
	pool *pgxpool.Pool
	dims int
}

// NewStore connects to databaseURL, installs the vector extension and
// creates the schema for vectors of length dims if needed.
func NewStore(ctx context.Context, databaseURL string, dims int) (*Store, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("%w: database url is required", domain.ErrInvalidInput)
	}
	if dims <= 0 {
		return nil, fmt.Errorf("%w: dimensions must be positive", domain.ErrInvalidInput)
	}

	// The vector type must exist before pooled connections register it.
	if err := ensureExtension(ctx, databaseURL); err != nil {
		return nil, err
	}

	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing database url: %w", domain.ErrInvalidInput, err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: connecting: %w", domain.ErrStore, err)
	}

	s := &Store{pool: pool, dims: dims}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	if err := s.checkDimensions(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Debug("Connected to PostgreSQL chunk store (%d dimensions)", dims)
	return s, nil
}

func ensureExtension(ctx context.Context, databaseURL string) error {
	conn, err := pgx.Connect(ctx, databaseURL)
	if err != nil {
		return fmt.Errorf("%w: connecting: %w", domain.ErrStore, err)
	}
	defer conn.Close(ctx)

	if _, err := conn.Exec(ctx, createExtension); err != nil {
		return fmt.Errorf("%w: creating vector extension: %w", domain.ErrStore, err)
	}
	return nil
}

func (s *Store) migrate(ctx context.Context) error {
	for _, stmt := range schema(s.dims) {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("%w: creating schema: %w", domain.ErrStore, err)
		}
	}
	return nil
}

func (s *Store) checkDimensions(ctx context.Context) error {
	var stored string
	err := s.pool.QueryRow(ctx, "SELECT value FROM store_meta WHERE key = $1", metaDimensions).Scan(&stored)
	if errors.Is(err, pgx.ErrNoRows) {
		_, err = s.pool.Exec(ctx,
			"INSERT INTO store_meta (key, value) VALUES ($1, $2) ON CONFLICT (key) DO NOTHING",
			metaDimensions, strconv.Itoa(s.dims))
		if err != nil {
			return fmt.Errorf("%w: recording dimensions: %w", domain.ErrStore, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: reading dimensions: %w", domain.ErrStore, err)
	}

	if n, _ := strconv.Atoi(stored); n != s.dims {
		return fmt.Errorf("%w: database holds %s-dimension vectors, configured model produces %d",
			domain.ErrDimensionMismatch, stored, s.dims)
	}
	return nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Dimensions returns the embedding length the store accepts.
func (s *Store) Dimensions() int {
	return s.dims
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("%w: ping: %w", domain.ErrStore, err)
	}
	return nil
}

// InsertChunks persists all records in one transaction.
func (s *Store) InsertChunks(ctx context.Context, records []domain.EmbeddingRecord) ([]int64, error) {
	for i, r := range records {
		if len(r.Embedding) != s.dims {
			return nil, fmt.Errorf("%w: record %d has %d dimensions, store expects %d",
				domain.ErrDimensionMismatch, i, len(r.Embedding), s.dims)
		}
	}
	if len(records) == 0 {
		return nil, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: beginning transaction: %w", domain.ErrStore, err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	ids := make([]int64, len(records))
	for i, r := range records {
		metadataJSON, err := json.Marshal(r.Metadata.Clone())
		if err != nil {
			return nil, fmt.Errorf("%w: marshalling metadata: %w", domain.ErrStore, err)
		}
		err = tx.QueryRow(ctx, `
			INSERT INTO chunks (content, embedding, metadata, source)
			VALUES ($1, $2, $3::jsonb, $4)
			RETURNING id
		`, r.Content, pgvector.NewVector(r.Embedding), string(metadataJSON), r.Source).Scan(&ids[i])
		if err != nil {
			return nil, fmt.Errorf("%w: saving chunk %d: %w", domain.ErrStore, i, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("%w: committing transaction: %w", domain.ErrStore, err)
	}
	return ids, nil
}

// VectorSearch returns the k chunks nearest to vector by cosine distance.
func (s *Store) VectorSearch(ctx context.Context, vector []float32, k int) ([]driven.VectorHit, error) {
	if len(vector) != s.dims {
		return nil, fmt.Errorf("%w: query has %d dimensions, store holds %d",
			domain.ErrDimensionMismatch, len(vector), s.dims)
	}
	if k <= 0 {
		return nil, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, content, metadata, source, 1 - (embedding <=> $1) AS similarity
		FROM chunks
		ORDER BY embedding <=> $1
		LIMIT $2
	`, pgvector.NewVector(vector), k)
	if err != nil {
		return nil, fmt.Errorf("%w: vector query: %w", domain.ErrStore, err)
	}
	defer rows.Close()

	var hits []driven.VectorHit //nolint:prealloc // size unknown from query
	for rows.Next() {
		var hit driven.VectorHit
		var metadataJSON []byte
		if err := rows.Scan(&hit.ID, &hit.Content, &metadataJSON, &hit.Source, &hit.Similarity); err != nil {
			return nil, fmt.Errorf("%w: scanning chunk: %w", domain.ErrStore, err)
		}
		if hit.Metadata, err = unmarshalMetadata(metadataJSON); err != nil {
			return nil, err
		}
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating chunks: %w", domain.ErrStore, err)
	}
	sortVectorHits(hits)
	return hits, nil
}

// sortVectorHits orders hits by similarity, then id. Ties are broken here
// because a secondary ORDER BY key keeps pgvector from using the HNSW index.
func sortVectorHits(hits []driven.VectorHit) {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		return hits[i].ID < hits[j].ID
	})
}

// LexicalSearch ranks chunks matching any non-stopword query term with ts_rank.
func (s *Store) LexicalSearch(ctx context.Context, query string, k int) ([]driven.LexicalHit, error) {
	terms := ranking.Terms(query)
	if len(terms) == 0 || k <= 0 {
		return nil, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT c.id, c.content, c.metadata, c.source, ts_rank(c.content_tsv, q) AS score
		FROM chunks c, to_tsquery('english', $1) q
		WHERE c.content_tsv @@ q
		ORDER BY score DESC, c.id ASC
		LIMIT $2
	`, ranking.TSQuery(terms), k)
	if err != nil {
		return nil, fmt.Errorf("%w: full-text query: %w", domain.ErrStore, err)
	}
	defer rows.Close()

	var hits []driven.LexicalHit //nolint:prealloc // size unknown from query
	for rows.Next() {
		var hit driven.LexicalHit
		var metadataJSON []byte
		var rank float32
		if err := rows.Scan(&hit.ID, &hit.Content, &metadataJSON, &hit.Source, &rank); err != nil {
			return nil, fmt.Errorf("%w: scanning chunk: %w", domain.ErrStore, err)
		}
		if rank <= 0 {
			continue
		}
		hit.Rank = float64(rank)
		if hit.Metadata, err = unmarshalMetadata(metadataJSON); err != nil {
			return nil, err
		}
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating chunks: %w", domain.ErrStore, err)
	}
	return hits, nil
}

// DeleteSources removes every chunk of the given sources.
func (s *Store) DeleteSources(ctx context.Context, sources []string) (int, error) {
	if len(sources) == 0 {
		return 0, nil
	}
	tag, err := s.pool.Exec(ctx, "DELETE FROM chunks WHERE source = ANY($1)", sources)
	if err != nil {
		return 0, fmt.Errorf("%w: deleting chunks: %w", domain.ErrStore, err)
	}
	return int(tag.RowsAffected()), nil
}

// Count returns the number of stored chunks.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM chunks").Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: counting chunks: %w", domain.ErrStore, err)
	}
	return n, nil
}

// Reset deletes every chunk. The recorded dimensions are kept.
func (s *Store) Reset(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, "TRUNCATE chunks"); err != nil {
		return fmt.Errorf("%w: truncating chunks: %w", domain.ErrStore, err)
	}
	return nil
}

func unmarshalMetadata(data []byte) (domain.Metadata, error) {
	m := domain.Metadata{}
	if len(data) == 0 {
		return m, nil
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: unmarshalling metadata: %w", domain.ErrStore, err)
	}
	return m, nil
}
