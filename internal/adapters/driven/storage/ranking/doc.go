// Package ranking holds the scoring helpers shared by the chunk stores:
// query term extraction, cosine similarity and an in-memory BM25 index.
//
// Each store uses the same term extraction so that a query matches the
// same chunks whether it runs against SQLite FTS5, PostgreSQL full-text
// search or the memory store.
package ranking
