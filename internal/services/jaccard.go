package services

import (
	"cmp"
	"slices"

	"github.com/enchung913/career-recommender/internal/domain/models"
	"github.com/samber/lo"
)

type idSet map[string]struct{}

func toSet(ids []string) idSet {
	return lo.SliceToMap(ids, func(id string) (string, struct{}) {
		return id, struct{}{}
	})
}

func (s idSet) contains(id string) bool {
	_, ok := s[id]
	return ok
}

// Jaccard is |a ∩ b| / |a ∪ b|, 0 when both sets are empty.
func Jaccard(a, b idSet) float64 {
	if len(a) > len(b) {
		a, b = b, a
	}

	intersection := 0
	for id := range a {
		if b.contains(id) {
			intersection++
		}
	}

	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// topEdges keeps edges scoring strictly above threshold and returns the k best.
// Equal scores keep their input order.
func topEdges(edges []models.Edge, threshold float64, k int) []models.Edge {
	kept := lo.Filter(edges, func(e models.Edge, _ int) bool {
		return e.Score > threshold
	})

	slices.SortStableFunc(kept, func(a, b models.Edge) int {
		return cmp.Compare(b.Score, a.Score)
	})

	if k > 0 && len(kept) > k {
		kept = kept[:k]
	}
	return kept
}
