package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

func TestNormalizeLexicalRank(t *testing.T) {
	tests := []struct {
		raw  float64
		want float64
	}{
		{0, 0.5},
		{0.2, 0.6},
		{1, 1},
		{2, 1},
		{100, 1},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, NormalizeLexicalRank(tt.raw), 1e-9, "raw %v", tt.raw)
	}
}

func TestFuse_DisjointSignals(t *testing.T) {
	semantic := []driven.VectorHit{{ID: 1, Content: "one", Similarity: 0.9}}
	lexical := []driven.LexicalHit{{ID: 2, Content: "two", Rank: 2.0}}

	hits := Fuse(semantic, lexical, 0.7, 5)

	require.Len(t, hits, 2)
	assert.Equal(t, int64(1), hits[0].ID)
	assert.InDelta(t, 0.63, hits[0].FinalScore, 1e-9)
	assert.Equal(t, domain.SignalSemantic, hits[0].Signal)
	assert.Nil(t, hits[0].LexicalScore)

	assert.Equal(t, int64(2), hits[1].ID)
	assert.InDelta(t, 0.3, hits[1].FinalScore, 1e-9)
	assert.Equal(t, domain.SignalLexical, hits[1].Signal)
	assert.Nil(t, hits[1].SemanticScore)
	require.NotNil(t, hits[1].LexicalScore)
	assert.InDelta(t, 1.0, *hits[1].LexicalScore, 1e-9)
}

func TestFuse_Overlap(t *testing.T) {
	semantic := []driven.VectorHit{{ID: 7, Content: "seven", Similarity: 0.8}}
	lexical := []driven.LexicalHit{{ID: 7, Content: "seven", Rank: 0.2}}

	hits := Fuse(semantic, lexical, 0.7, 5)

	require.Len(t, hits, 1)
	assert.InDelta(t, 0.74, hits[0].FinalScore, 1e-9)
	assert.Equal(t, domain.SignalBoth, hits[0].Signal)
	require.NotNil(t, hits[0].SemanticScore)
	require.NotNil(t, hits[0].LexicalScore)
	assert.InDelta(t, 0.8, *hits[0].SemanticScore, 1e-9)
	assert.InDelta(t, 0.6, *hits[0].LexicalScore, 1e-9)
}

func TestFuse_TopKTruncation(t *testing.T) {
	var semantic []driven.VectorHit
	var lexical []driven.LexicalHit
	for i := int64(1); i <= 10; i++ {
		semantic = append(semantic, driven.VectorHit{ID: i, Similarity: float64(i) / 10})
		lexical = append(lexical, driven.LexicalHit{ID: i + 5, Rank: float64(i) / 20})
	}

	hits := Fuse(semantic, lexical, 0.5, 3)

	require.Len(t, hits, 3)
	for i := 1; i < len(hits); i++ {
		assert.GreaterOrEqual(t, hits[i-1].FinalScore, hits[i].FinalScore)
	}
}

func TestFuse_TiesBreakByID(t *testing.T) {
	semantic := []driven.VectorHit{
		{ID: 9, Similarity: 0.5},
		{ID: 3, Similarity: 0.5},
		{ID: 5, Similarity: 0.5},
	}

	hits := Fuse(semantic, nil, 1, 10)

	require.Len(t, hits, 3)
	assert.Equal(t, []int64{3, 5, 9}, idsOf(hits))
}

func TestFuse_WeightExtremes(t *testing.T) {
	semantic := []driven.VectorHit{{ID: 1, Similarity: 0.9}}
	lexical := []driven.LexicalHit{{ID: 2, Rank: 1}}

	semOnly := Fuse(semantic, lexical, 1, 5)
	require.Len(t, semOnly, 2)
	assert.Equal(t, int64(1), semOnly[0].ID)
	assert.Zero(t, semOnly[1].FinalScore)

	lexOnly := Fuse(semantic, lexical, 0, 5)
	require.Len(t, lexOnly, 2)
	assert.Equal(t, int64(2), lexOnly[0].ID)
	assert.InDelta(t, 1.0, lexOnly[0].FinalScore, 1e-9)
}

func TestFuse_Empty(t *testing.T) {
	assert.Empty(t, Fuse(nil, nil, 0.7, 5))
}

func TestFuse_DuplicateIDsKeepFirst(t *testing.T) {
	semantic := []driven.VectorHit{{ID: 1, Similarity: 0.9}, {ID: 1, Similarity: 0.1}}
	lexical := []driven.LexicalHit{{ID: 2, Rank: 1}, {ID: 2, Rank: 0}}

	hits := Fuse(semantic, lexical, 0.5, 5)

	require.Len(t, hits, 2)
	assert.InDelta(t, 0.5, hits[0].FinalScore, 1e-9)
	assert.InDelta(t, 0.45, hits[1].FinalScore, 1e-9)
}

func TestFuse_CarriesPayload(t *testing.T) {
	meta := domain.Metadata{domain.MetaChunkIndex: "2"}
	semantic := []driven.VectorHit{{ID: 4, Content: "text", Source: "a.md", Metadata: meta, Similarity: 0.5}}

	hits := Fuse(semantic, nil, 0.7, 5)

	require.Len(t, hits, 1)
	assert.Equal(t, "text", hits[0].Content)
	assert.Equal(t, "a.md", hits[0].Source)
	idx, ok := hits[0].Metadata.Int(domain.MetaChunkIndex)
	assert.True(t, ok)
	assert.Equal(t, 2, idx)
}

func idsOf(hits []domain.RetrievalHit) []int64 {
	ids := make([]int64, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	return ids
}
