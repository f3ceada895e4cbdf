package services

import (
	"strconv"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// EvaluateRetrieval computes mean precision and mean recall over cases and
// the F1 of those means. Ids are compared as sets; an empty retrieved or
// relevant set scores zero for the matching metric.
func EvaluateRetrieval(cases []domain.RetrievalCase) domain.RetrievalMetrics {
	m := domain.RetrievalMetrics{Cases: len(cases)}
	if len(cases) == 0 {
		return m
	}

	var sumP, sumR float64
	for _, c := range cases {
		retrieved := toSet(c.Retrieved)
		relevant := toSet(c.Relevant)

		hits := 0
		for id := range retrieved {
			if _, ok := relevant[id]; ok {
				hits++
			}
		}
		if len(retrieved) > 0 {
			sumP += float64(hits) / float64(len(retrieved))
		}
		if len(relevant) > 0 {
			sumR += float64(hits) / float64(len(relevant))
		}
	}

	m.Precision = sumP / float64(len(cases))
	m.Recall = sumR / float64(len(cases))
	if m.Precision+m.Recall > 0 {
		m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}
	return m
}

// HitIDs returns hit ids as strings, for building retrieval cases.
func HitIDs(hits []domain.RetrievalHit) []string {
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = strconv.FormatInt(h.ID, 10)
	}
	return ids
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
