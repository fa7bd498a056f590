package services

import (
	"testing"

	"github.com/enchung913/career-recommender/internal/domain/models"
	"github.com/stretchr/testify/assert"
)

func Test_Jaccard_Bounds(t *testing.T) {
	a := toSet([]string{"x", "y", "z"})
	b := toSet([]string{"y", "z", "w"})

	assert.InDelta(t, 0.5, Jaccard(a, b), 1e-9)
	assert.Equal(t, 1.0, Jaccard(a, a))
	assert.Equal(t, 0.0, Jaccard(a, idSet{}))
	assert.Equal(t, 0.0, Jaccard(idSet{}, idSet{}))
	assert.Equal(t, Jaccard(a, b), Jaccard(b, a))

	disjoint := toSet([]string{"q"})
	assert.Equal(t, 0.0, Jaccard(a, disjoint))
}

func Test_TopEdges_ThresholdIsStrict(t *testing.T) {
	edges := []models.Edge{
		{NeighborID: "a", Score: 0.1},
		{NeighborID: "b", Score: 0.11},
		{NeighborID: "c", Score: 0.05},
	}

	kept := topEdges(edges, 0.1, 10)
	assert.Equal(t, []models.Edge{{NeighborID: "b", Score: 0.11}}, kept)
}

func Test_TopEdges_KeepsTopKWithStableTies(t *testing.T) {
	edges := []models.Edge{
		{NeighborID: "a", Score: 0.3},
		{NeighborID: "b", Score: 0.9},
		{NeighborID: "c", Score: 0.3},
		{NeighborID: "d", Score: 0.3},
		{NeighborID: "e", Score: 0.2},
	}

	kept := topEdges(edges, 0, 3)
	assert.Equal(t, []string{"b", "a", "c"}, neighborIDs(kept))
}

func neighborIDs(edges []models.Edge) []string {
	ids := make([]string, len(edges))
	for i, e := range edges {
		ids[i] = e.NeighborID
	}
	return ids
}
