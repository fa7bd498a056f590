package models

// Edge is a cached similarity between a subject and one of its neighbors.
type Edge struct {
	SubjectID  string
	NeighborID string
	Score      float64
}

// Neighbor is a precomputed similarity partner read back from the cache.
type Neighbor struct {
	ID     string
	Weight float64
}
