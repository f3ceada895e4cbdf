package services

import (
	"sort"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// candidateKind tags which searches returned a chunk.
type candidateKind int

const (
	semanticOnly candidateKind = iota
	lexicalOnly
	bothSignals
)

// candidate is one chunk in the union of vector and lexical results.
// The score of a side that did not return the chunk is zero.
type candidate struct {
	kind     candidateKind
	id       int64
	content  string
	metadata domain.Metadata
	source   string
	semantic float64
	lexical  float64
}

// score is semantic*w + lexical*(1-w) with a missing side contributing zero.
func (c *candidate) score(w float64) float64 {
	switch c.kind {
	case semanticOnly:
		return c.semantic * w
	case lexicalOnly:
		return c.lexical * (1 - w)
	default:
		return c.semantic*w + c.lexical*(1-w)
	}
}

func (c *candidate) hit(w float64) domain.RetrievalHit {
	h := domain.RetrievalHit{
		ID:         c.id,
		Content:    c.content,
		Metadata:   c.metadata,
		Source:     c.source,
		FinalScore: c.score(w),
	}
	switch c.kind {
	case semanticOnly:
		h.Signal = domain.SignalSemantic
		h.SemanticScore = &c.semantic
	case lexicalOnly:
		h.Signal = domain.SignalLexical
		h.LexicalScore = &c.lexical
	default:
		h.Signal = domain.SignalBoth
		h.SemanticScore = &c.semantic
		h.LexicalScore = &c.lexical
	}
	return h
}

// NormalizeLexicalRank maps an unbounded lexical rank into [0,1] with
// min(1, 0.5 + raw/2).
//
// This is a heuristic: it ignores the corpus-wide rank distribution, and any
// matching chunk scores at least 0.5. Ranking order depends on it, so a
// replacement (min-max or reciprocal rank) must be a deliberate change.
func NormalizeLexicalRank(raw float64) float64 {
	return min(1, 0.5+raw/2)
}

// Fuse merges vector and lexical hits by chunk id into at most topK results
// ordered by fused score descending, then id ascending.
// Vector similarity is used as-is; lexical rank is normalised first.
func Fuse(semantic []driven.VectorHit, lexical []driven.LexicalHit, w float64, topK int) []domain.RetrievalHit {
	byID := make(map[int64]*candidate, len(semantic)+len(lexical))

	for _, h := range semantic {
		if _, dup := byID[h.ID]; dup {
			continue
		}
		byID[h.ID] = &candidate{
			kind:     semanticOnly,
			id:       h.ID,
			content:  h.Content,
			metadata: h.Metadata,
			source:   h.Source,
			semantic: h.Similarity,
		}
	}

	for _, h := range lexical {
		norm := NormalizeLexicalRank(h.Rank)
		c, ok := byID[h.ID]
		switch {
		case !ok:
			byID[h.ID] = &candidate{
				kind:     lexicalOnly,
				id:       h.ID,
				content:  h.Content,
				metadata: h.Metadata,
				source:   h.Source,
				lexical:  norm,
			}
		case c.kind == semanticOnly:
			c.kind = bothSignals
			c.lexical = norm
		}
	}

	hits := make([]domain.RetrievalHit, 0, len(byID))
	for _, c := range byID {
		hits = append(hits, c.hit(w))
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].FinalScore != hits[j].FinalScore {
			return hits[i].FinalScore > hits[j].FinalScore
		}
		return hits[i].ID < hits[j].ID
	})

	if topK >= 0 && len(hits) > topK {
		hits = hits[:topK]
	}
	return hits
}
