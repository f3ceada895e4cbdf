// Package sqlite provides the default chunk store, backed by a single SQLite
// database file.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. One database serves both search signals:
//
//   - Vector search: embeddings are stored as little-endian float32 blobs and
//     scanned exactly with cosine similarity
//   - Lexical search: an FTS5 table kept in sync with the chunks table by
//     triggers, ranked with bm25()
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Data Location
//
// By default, the database is stored at ~/.sercha-rag/data/chunks.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
