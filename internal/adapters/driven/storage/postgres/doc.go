// Package postgres provides a chunk store on PostgreSQL with the pgvector
// extension.
//
// Vector search orders by the pgvector cosine distance operator (<=>) over an
// HNSW index; lexical search uses a generated tsvector column ranked with
// ts_rank. The embedding column is typed vector(N), so the database itself
// rejects vectors of the wrong length.
//
// The store creates the extension and its tables on first use. The role in
// the connection URL needs permission to run CREATE EXTENSION vector unless
// the extension is already installed.
package postgres
