package models

import "time"

type ComponentScores struct {
	Match      float64 `json:"match"`
	History    float64 `json:"history,omitempty"`
	Interest   float64 `json:"interest,omitempty"`
	Popularity float64 `json:"popularity,omitempty"`
	Similarity float64 `json:"similarity"`
}

// ScoredCandidate lives only for the duration of one ranking request.
type ScoredCandidate struct {
	ID         string
	Components ComponentScores
	Final      float64
}

type ResourceSummary struct {
	Title        string     `json:"title"`
	ResourceType string     `json:"resource_type"`
	Deadline     *time.Time `json:"deadline,omitempty"`
}

type StudentSummary struct {
	Name          string `json:"name"`
	StudentNumber string `json:"student_number"`
	DepartmentID  string `json:"department_id"`
}

// RankedCandidate is one row of a ranking response. Resource or Student is filled depending on direction.
type RankedCandidate struct {
	ID         string           `json:"id"`
	Score      float64          `json:"score"`
	Components ComponentScores  `json:"components"`
	Resource   *ResourceSummary `json:"resource,omitempty"`
	Student    *StudentSummary  `json:"student,omitempty"`
}
