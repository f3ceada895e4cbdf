package ranking

import (
	"math"
	"sync"
)

// BM25 parameters, matching the SQLite FTS5 defaults.
const (
	BM25K1 = 1.2
	BM25B  = 0.75
)

// BM25Index is an in-memory inverted index scored with Okapi BM25.
// It is safe for concurrent use.
type BM25Index struct {
	mu       sync.RWMutex
	postings map[string]map[int64]int
	lengths  map[int64]int
	total    int
}

// NewBM25Index creates an empty index.
func NewBM25Index() *BM25Index {
	return &BM25Index{
		postings: make(map[string]map[int64]int),
		lengths:  make(map[int64]int),
	}
}

// Add indexes text under id, replacing any previous text for id.
func (x *BM25Index) Add(id int64, text string) {
	x.mu.Lock()
	defer x.mu.Unlock()

	x.remove(id)
	tokens := Tokenize(text)
	x.lengths[id] = len(tokens)
	x.total += len(tokens)
	for _, tok := range tokens {
		docs, ok := x.postings[tok]
		if !ok {
			docs = make(map[int64]int)
			x.postings[tok] = docs
		}
		docs[id]++
	}
}

// Remove drops id from the index.
func (x *BM25Index) Remove(id int64) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.remove(id)
}

func (x *BM25Index) remove(id int64) {
	n, ok := x.lengths[id]
	if !ok {
		return
	}
	delete(x.lengths, id)
	x.total -= n
	for tok, docs := range x.postings {
		if _, ok := docs[id]; ok {
			delete(docs, id)
			if len(docs) == 0 {
				delete(x.postings, tok)
			}
		}
	}
}

// Reset empties the index.
func (x *BM25Index) Reset() {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.postings = make(map[string]map[int64]int)
	x.lengths = make(map[int64]int)
	x.total = 0
}

// Len returns the number of indexed documents.
func (x *BM25Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.lengths)
}

// Score returns the BM25 score of every document containing at least one
// of terms. Every returned score is positive.
func (x *BM25Index) Score(terms []string) map[int64]float64 {
	x.mu.RLock()
	defer x.mu.RUnlock()

	scores := make(map[int64]float64)
	n := len(x.lengths)
	if n == 0 {
		return scores
	}
	avg := float64(x.total) / float64(n)
	if avg == 0 {
		avg = 1
	}

	for _, term := range terms {
		docs := x.postings[term]
		if len(docs) == 0 {
			continue
		}
		df := float64(len(docs))
		// FTS5 floors idf at a small positive value so common terms still count.
		idf := max(math.Log((float64(n)-df+0.5)/(df+0.5)), 1e-6)
		for id, tf := range docs {
			f := float64(tf)
			norm := f * (BM25K1 + 1) / (f + BM25K1*(1-BM25B+BM25B*float64(x.lengths[id])/avg))
			scores[id] += idf * norm
		}
	}
	return scores
}
