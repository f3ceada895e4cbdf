package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/ranking"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure ChunkStore implements the interface.
var _ driven.ChunkStore = (*ChunkStore)(nil)

// ChunkStore is an in-memory implementation of driven.ChunkStore.
// Vector search is an exact cosine scan; lexical search is BM25.
type ChunkStore struct {
	mu     sync.RWMutex
	dims   int
	nextID int64
	chunks map[int64]domain.EmbeddingRecord
	index  *ranking.BM25Index
}

// NewChunkStore creates a new in-memory chunk store for vectors of length dims.
func NewChunkStore(dims int) *ChunkStore {
	return &ChunkStore{
		dims:   dims,
		nextID: 1,
		chunks: make(map[int64]domain.EmbeddingRecord),
		index:  ranking.NewBM25Index(),
	}
}

// InsertChunks stores all records or none of them.
func (s *ChunkStore) InsertChunks(_ context.Context, records []domain.EmbeddingRecord) ([]int64, error) {
	for i, r := range records {
		if len(r.Embedding) != s.dims {
			return nil, fmt.Errorf("%w: record %d has %d dimensions, store expects %d",
				domain.ErrDimensionMismatch, i, len(r.Embedding), s.dims)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]int64, len(records))
	for i, r := range records {
		r.ID = s.nextID
		s.nextID++
		r.Embedding = slices.Clone(r.Embedding)
		r.Metadata = r.Metadata.Clone()
		s.chunks[r.ID] = r
		s.index.Add(r.ID, r.Content)
		ids[i] = r.ID
	}
	return ids, nil
}

// VectorSearch returns the k chunks most similar to vector.
func (s *ChunkStore) VectorSearch(_ context.Context, vector []float32, k int) ([]driven.VectorHit, error) {
	if len(vector) != s.dims {
		return nil, fmt.Errorf("%w: query has %d dimensions, store holds %d",
			domain.ErrDimensionMismatch, len(vector), s.dims)
	}

	s.mu.RLock()
	hits := make([]driven.VectorHit, 0, len(s.chunks))
	for id, c := range s.chunks {
		hits = append(hits, driven.VectorHit{
			ID:         id,
			Content:    c.Content,
			Metadata:   c.Metadata.Clone(),
			Source:     c.Source,
			Similarity: ranking.Cosine(vector, c.Embedding),
		})
	}
	s.mu.RUnlock()

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		return hits[i].ID < hits[j].ID
	})
	return truncate(hits, k), nil
}

// LexicalSearch returns the k chunks with the highest BM25 score for the
// non-stopword terms of query.
func (s *ChunkStore) LexicalSearch(_ context.Context, query string, k int) ([]driven.LexicalHit, error) {
	terms := ranking.Terms(query)
	if len(terms) == 0 {
		return nil, nil
	}

	s.mu.RLock()
	scores := s.index.Score(terms)
	hits := make([]driven.LexicalHit, 0, len(scores))
	for id, score := range scores {
		c := s.chunks[id]
		hits = append(hits, driven.LexicalHit{
			ID:       id,
			Content:  c.Content,
			Metadata: c.Metadata.Clone(),
			Source:   c.Source,
			Rank:     score,
		})
	}
	s.mu.RUnlock()

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Rank != hits[j].Rank {
			return hits[i].Rank > hits[j].Rank
		}
		return hits[i].ID < hits[j].ID
	})
	return truncate(hits, k), nil
}

// DeleteSources removes every chunk of the given sources.
func (s *ChunkStore) DeleteSources(_ context.Context, sources []string) (int, error) {
	drop := make(map[string]struct{}, len(sources))
	for _, src := range sources {
		drop[src] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, c := range s.chunks {
		if _, ok := drop[c.Source]; ok {
			delete(s.chunks, id)
			s.index.Remove(id)
			n++
		}
	}
	return n, nil
}

// Count returns the number of stored chunks.
func (s *ChunkStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks), nil
}

// Reset deletes every chunk. Ids are not reused.
func (s *ChunkStore) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = make(map[int64]domain.EmbeddingRecord)
	s.index.Reset()
	return nil
}

// Dimensions returns the embedding length the store accepts.
func (s *ChunkStore) Dimensions() int {
	return s.dims
}

// Close is a no-op.
func (s *ChunkStore) Close() error {
	return nil
}

func truncate[T any](hits []T, k int) []T {
	if k <= 0 {
		return nil
	}
	if len(hits) > k {
		return hits[:k]
	}
	return hits
}
