package services

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/enchung913/career-recommender/internal/config"
	"github.com/enchung913/career-recommender/internal/domain/models"
	"github.com/enchung913/career-recommender/internal/entities"
	"github.com/enchung913/career-recommender/internal/kvstore"
	"github.com/enchung913/career-recommender/internal/logger"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

const (
	studentMatchWeight      = 0.4
	studentHistoryWeight    = 0.3
	studentSimilarityWeight = 0.3

	conditionMatchWeight = 0.7
	competitionWeight    = 0.3
	comfortableQuota     = 20
)

func (e *ScoringEngine) rankResourcesForStudent(ctx context.Context, studentID string) ([]models.RankedCandidate, error) {
	profile, err := e.students.Profile(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("load student profile: %w", err)
	}
	if profile == nil {
		return []models.RankedCandidate{}, nil
	}

	gpa, err := e.students.GPARecords(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("load gpa records: %w", err)
	}

	resources, err := e.catalog.OpenResources(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	resources = lo.Filter(resources, func(r entities.Resource, _ int) bool { return r.IsOpen() })
	if len(resources) == 0 {
		return []models.RankedCandidate{}, nil
	}

	facts := studentFacts(*profile, gpa)
	preferences := e.categoryPreferences(ctx, studentID)
	neighbors := e.loadNeighborhood(ctx, e.studentNeighborNamespace(), studentID, kvstore.UserResourceClicksKey)

	scored := make([]models.ScoredCandidate, 0, len(resources))
	for _, r := range resources {
		components := models.ComponentScores{
			Match:      resourceMatchScore(r, facts),
			History:    preferences[strings.ToLower(r.ResourceType)],
			Similarity: neighbors.vote(r.ResourceID),
		}
		scored = append(scored, models.ScoredCandidate{
			ID:         r.ResourceID,
			Components: components,
			Final: studentMatchWeight*components.Match +
				studentHistoryWeight*components.History +
				studentSimilarityWeight*components.Similarity,
		})
	}

	byID := lo.KeyBy(resources, func(r entities.Resource) string { return r.ResourceID })
	return lo.Map(rank(scored, e.cfg.ResourceLimit), func(c models.ScoredCandidate, _ int) models.RankedCandidate {
		r := byID[c.ID]
		return models.RankedCandidate{
			ID:         c.ID,
			Score:      c.Final,
			Components: c.Components,
			Resource: &models.ResourceSummary{
				Title:        r.Title,
				ResourceType: r.ResourceType,
				Deadline:     r.Deadline,
			},
		}
	}), nil
}

func (e *ScoringEngine) studentNeighborNamespace() string {
	if e.cfg.StudentNeighbors == config.NeighborsFromUserMatrix {
		return UserMatrix
	}
	return StudentMatrix
}

// categoryPreferences normalizes the student's category click counts so the top category is 1.
func (e *ScoringEngine) categoryPreferences(ctx context.Context, studentID string) map[string]float64 {
	members, err := e.store.TopNByScore(ctx, kvstore.UserCategoryClicksKey(studentID), 0)
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeRedis).
			Warnf("category preferences unavailable for %s: %v", studentID, err)
		return map[string]float64{}
	}
	return normalizeByMax(kvstore.ToMap(members))
}

// resourceMatchScore blends the best condition match with how much quota is open.
func resourceMatchScore(r entities.Resource, facts models.StudentFacts) float64 {
	match := 0.0
	if models.Eligible(toConditions(r.Conditions), facts) {
		match = 1
	}
	competition := math.Min(1, math.Max(0, float64(r.Quota))/comfortableQuota)
	return conditionMatchWeight*match + competitionWeight*competition
}

// normalizeByMax divides every value by the largest one. All values become 0 when the maximum is not positive.
func normalizeByMax(values map[string]float64) map[string]float64 {
	maxValue := 0.0
	for _, v := range values {
		maxValue = math.Max(maxValue, v)
	}

	normalized := make(map[string]float64, len(values))
	for k, v := range values {
		if maxValue <= 0 {
			normalized[k] = 0
			continue
		}
		normalized[k] = v / maxValue
	}
	return normalized
}
