package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/ranking"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// DatabaseFile is the file name of the database inside the data directory.
const DatabaseFile = "chunks.db"

const metaDimensions = "dimensions"

// Ensure Store implements the interface.
var _ driven.ChunkStore = (*Store)(nil)

// Store is an SQLite-backed chunk store serving vector and lexical search.
type Store struct {
	db   *sql.DB
	path string
	dims int
}

// NewStore opens or creates the store in dataDir for embeddings of length
// dims. If dataDir is empty, defaults to ~/.sercha-rag/data.
// Opening an existing database created for another length fails with
// domain.ErrDimensionMismatch.
func NewStore(dataDir string, dims int) (*Store, error) {
	if dims <= 0 {
		return nil, fmt.Errorf("%w: dimensions must be positive", domain.ErrInvalidInput)
	}

	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".sercha-rag", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, DatabaseFile)

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
		dims: dims,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	if err := s.checkDimensions(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Dimensions returns the embedding length the store accepts.
func (s *Store) Dimensions() int {
	return s.dims
}

// migrate runs all pending migrations, each in its own transaction.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if err := s.applyMigration(version, string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		logger.Debug("Applied migration %s", name)
	}

	return nil
}

func (s *Store) applyMigration(version int, script string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(script); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
		return err
	}
	return tx.Commit()
}

// checkDimensions records the embedding length on first use and rejects a
// different length afterwards.
func (s *Store) checkDimensions() error {
	var stored string
	err := s.db.QueryRow("SELECT value FROM store_meta WHERE key = ?", metaDimensions).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		_, err = s.db.Exec("INSERT INTO store_meta (key, value) VALUES (?, ?)", metaDimensions, strconv.Itoa(s.dims))
		if err != nil {
			return fmt.Errorf("%w: recording dimensions: %w", domain.ErrStore, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: reading dimensions: %w", domain.ErrStore, err)
	}

	n, err := strconv.Atoi(stored)
	if err != nil {
		return fmt.Errorf("%w: corrupt dimensions value %q", domain.ErrStore, stored)
	}
	if n != s.dims {
		return fmt.Errorf("%w: database at %s holds %d-dimension vectors, configured model produces %d",
			domain.ErrDimensionMismatch, s.path, n, s.dims)
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

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: beginning transaction: %w", domain.ErrStore, err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (content, embedding, dimensions, metadata, source)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: preparing statement: %w", domain.ErrStore, err)
	}
	defer stmt.Close()

	ids := make([]int64, len(records))
	for i, r := range records {
		metadataJSON, err := marshalMetadata(r.Metadata)
		if err != nil {
			return nil, err
		}
		res, err := stmt.ExecContext(ctx, r.Content, float32SliceToBytes(r.Embedding), len(r.Embedding),
			metadataJSON, r.Source)
		if err != nil {
			return nil, fmt.Errorf("%w: saving chunk %d: %w", domain.ErrStore, i, err)
		}
		if ids[i], err = res.LastInsertId(); err != nil {
			return nil, fmt.Errorf("%w: reading chunk id: %w", domain.ErrStore, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: committing transaction: %w", domain.ErrStore, err)
	}
	return ids, nil
}

// VectorSearch scans every stored embedding and returns the k most similar.
func (s *Store) VectorSearch(ctx context.Context, vector []float32, k int) ([]driven.VectorHit, error) {
	if len(vector) != s.dims {
		return nil, fmt.Errorf("%w: query has %d dimensions, store holds %d",
			domain.ErrDimensionMismatch, len(vector), s.dims)
	}
	if k <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id, content, metadata, source, embedding FROM chunks`)
	if err != nil {
		return nil, fmt.Errorf("%w: querying chunks: %w", domain.ErrStore, err)
	}
	defer rows.Close()

	var hits []driven.VectorHit //nolint:prealloc // size unknown from query
	for rows.Next() {
		var hit driven.VectorHit
		var metadataJSON string
		var blob []byte
		if err := rows.Scan(&hit.ID, &hit.Content, &metadataJSON, &hit.Source, &blob); err != nil {
			return nil, fmt.Errorf("%w: scanning chunk: %w", domain.ErrStore, err)
		}
		if hit.Metadata, err = unmarshalMetadata(metadataJSON); err != nil {
			return nil, err
		}
		hit.Similarity = ranking.Cosine(vector, bytesToFloat32Slice(blob))
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating chunks: %w", domain.ErrStore, err)
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		return hits[i].ID < hits[j].ID
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// LexicalSearch ranks chunks matching any query term with FTS5 bm25.
// bm25() is negative with better matches lower, so the rank is its negation.
func (s *Store) LexicalSearch(ctx context.Context, query string, k int) ([]driven.LexicalHit, error) {
	terms := ranking.Terms(query)
	if len(terms) == 0 || k <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.content, c.metadata, c.source, -bm25(chunks_fts) AS score
		FROM chunks_fts
		JOIN chunks c ON c.id = chunks_fts.rowid
		WHERE chunks_fts MATCH ?
		ORDER BY score DESC, c.id ASC
		LIMIT ?
	`, ranking.FTSMatch(terms), k)
	if err != nil {
		return nil, fmt.Errorf("%w: full-text query: %w", domain.ErrStore, err)
	}
	defer rows.Close()

	var hits []driven.LexicalHit //nolint:prealloc // size unknown from query
	for rows.Next() {
		var hit driven.LexicalHit
		var metadataJSON string
		if err := rows.Scan(&hit.ID, &hit.Content, &metadataJSON, &hit.Source, &hit.Rank); err != nil {
			return nil, fmt.Errorf("%w: scanning chunk: %w", domain.ErrStore, err)
		}
		if hit.Rank <= 0 {
			continue
		}
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

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: beginning transaction: %w", domain.ErrStore, err)
	}
	defer tx.Rollback() //nolint:errcheck

	total := 0
	for _, source := range sources {
		res, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE source = ?", source)
		if err != nil {
			return 0, fmt.Errorf("%w: deleting chunks of %s: %w", domain.ErrStore, source, err)
		}
		n, _ := res.RowsAffected()
		total += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: committing transaction: %w", domain.ErrStore, err)
	}
	return total, nil
}

// Count returns the number of stored chunks.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: counting chunks: %w", domain.ErrStore, err)
	}
	return n, nil
}

// Reset deletes every chunk. The recorded dimensions are kept.
func (s *Store) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM chunks"); err != nil {
		return fmt.Errorf("%w: deleting chunks: %w", domain.ErrStore, err)
	}
	return nil
}

// ==================== Helper Functions ====================

// float32SliceToBytes converts []float32 to little-endian bytes.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}

func marshalMetadata(m domain.Metadata) (string, error) {
	if m == nil {
		return "{}", nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("%w: marshalling metadata: %w", domain.ErrStore, err)
	}
	return string(data), nil
}

func unmarshalMetadata(data string) (domain.Metadata, error) {
	m := domain.Metadata{}
	if data == "" {
		return m, nil
	}
	if err := json.Unmarshal([]byte(data), &m); err != nil {
		return nil, fmt.Errorf("%w: unmarshalling metadata: %w", domain.ErrStore, err)
	}
	return m, nil
}
