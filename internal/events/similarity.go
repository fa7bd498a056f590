package events

import "time"

var SimilarityRefreshedTopic = "SimilarityRefreshedEvent"

type SimilarityRefreshed struct {
	RunID    string
	Matrix   string
	Subjects int
	Edges    int
	Failed   int
	Duration time.Duration
}
