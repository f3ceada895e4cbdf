package postgres

import "fmt"

const createExtension = `CREATE EXTENSION IF NOT EXISTS vector`

// schema returns the DDL for a store of dims-length vectors.
func schema(dims int) []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS chunks (
			id BIGSERIAL PRIMARY KEY,
			content TEXT NOT NULL,
			embedding vector(%d) NOT NULL,
			metadata JSONB NOT NULL DEFAULT '{}',
			source TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			content_tsv tsvector GENERATED ALWAYS AS (to_tsvector('english', content)) STORED
		)`, dims),
		`CREATE INDEX IF NOT EXISTS chunks_embedding_idx ON chunks USING hnsw (embedding vector_cosine_ops)`,
		`CREATE INDEX IF NOT EXISTS chunks_tsv_idx ON chunks USING gin (content_tsv)`,
		`CREATE INDEX IF NOT EXISTS chunks_source_idx ON chunks (source)`,
		`CREATE TABLE IF NOT EXISTS store_meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
	}
}
