package services

import (
	"context"
	"fmt"
	"math"

	"github.com/enchung913/career-recommender/internal/domain/models"
	"github.com/enchung913/career-recommender/internal/entities"
	"github.com/enchung913/career-recommender/internal/kvstore"
	"github.com/enchung913/career-recommender/internal/logger"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

const (
	supplierMatchWeight      = 0.3
	supplierInterestWeight   = 0.3
	supplierPopularityWeight = 0.2
	supplierSimilarityWeight = 0.2

	interestBase = 0.2
	interestStep = 0.1
	interestCap  = 0.5
)

type supplierFilter func(r entities.Resource, supplierID string) bool

func suppliedByCompany(r entities.Resource, supplierID string) bool {
	return lo.FromPtr(r.CompanySupplierID) == supplierID
}

func suppliedByDepartment(r entities.Resource, supplierID string) bool {
	return lo.FromPtr(r.DepartmentSupplierID) == supplierID
}

func (e *ScoringEngine) rankStudentsForSupplier(ctx context.Context, supplierID string, owns supplierFilter) ([]models.RankedCandidate, error) {
	catalog, err := e.catalog.OpenResources(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	resources := lo.Filter(catalog, func(r entities.Resource, _ int) bool {
		return r.IsOpen() && owns(r, supplierID)
	})
	if len(resources) == 0 {
		return []models.RankedCandidate{}, nil
	}

	profiles, err := e.students.Profiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("load student profiles: %w", err)
	}
	if len(profiles) == 0 {
		return []models.RankedCandidate{}, nil
	}

	gpa, err := e.students.AllGPARecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("load gpa records: %w", err)
	}

	studentIDs := lo.Map(profiles, func(p entities.StudentProfile, _ int) string { return p.UserID })
	resourceIDs := lo.Map(resources, func(r entities.Resource, _ int) string { return r.ResourceID })

	popularity := e.computeStudentPopularityScore(ctx, studentIDs)
	views := e.resourceViewCounts(ctx, resourceIDs)
	applied := e.applicationCounts(ctx, resourceIDs)
	neighbors := e.loadNeighborhood(ctx, CompanyMatrix, supplierID, kvstore.CompanyStudentClicksKey)

	scored := make([]models.ScoredCandidate, 0, len(profiles))
	for _, p := range profiles {
		components := models.ComponentScores{
			Match:      supplierMatchScore(resources, studentFacts(p, gpa[p.UserID])),
			Interest:   e.interestScore(views[p.UserID], applied[p.UserID]),
			Popularity: popularity[p.UserID],
			Similarity: neighbors.vote(p.UserID),
		}
		scored = append(scored, models.ScoredCandidate{
			ID:         p.UserID,
			Components: components,
			Final: supplierMatchWeight*components.Match +
				supplierInterestWeight*components.Interest +
				supplierPopularityWeight*components.Popularity +
				supplierSimilarityWeight*components.Similarity,
		})
	}

	top := rank(scored, e.cfg.StudentLimit)

	summaries, err := e.students.Summaries(ctx, lo.Map(top, func(c models.ScoredCandidate, _ int) string { return c.ID }))
	if err != nil {
		return nil, fmt.Errorf("load student summaries: %w", err)
	}

	return lo.Map(top, func(c models.ScoredCandidate, _ int) models.RankedCandidate {
		candidate := models.RankedCandidate{ID: c.ID, Score: c.Final, Components: c.Components}
		if summary, ok := summaries[c.ID]; ok {
			candidate.Student = &summary
		}
		return candidate
	}), nil
}

// supplierMatchScore is the share of resources for which the student satisfies at least one condition.
// Conditions restricted to another department are ignored, and a resource left with no applicable
// condition does not count. A resource without conditions counts as satisfied.
func supplierMatchScore(resources []entities.Resource, facts models.StudentFacts) float64 {
	considered, satisfied := 0, 0
	for _, r := range resources {
		conditions := toConditions(r.Conditions)
		if len(conditions) == 0 {
			considered++
			satisfied++
			continue
		}

		applicable := lo.Filter(conditions, func(c models.Condition, _ int) bool {
			return c.DepartmentMatches(facts)
		})
		if len(applicable) == 0 {
			continue
		}

		considered++
		if lo.SomeBy(applicable, func(c models.Condition) bool { return c.Matches(facts) }) {
			satisfied++
		}
	}

	if considered == 0 {
		return 0
	}
	return float64(satisfied) / float64(considered)
}

func (e *ScoringEngine) interestScore(viewedResources, applications int) float64 {
	score := 0.0
	if viewedResources > 0 {
		score = math.Min(interestCap, interestBase+interestStep*float64(viewedResources))
	}
	if applications > 0 {
		score += e.cfg.ApplicationBonus
	}
	return score
}

// computeStudentPopularityScore normalizes global view counts by the most viewed student.
// Everyone scores 0 when nobody has been viewed.
func (e *ScoringEngine) computeStudentPopularityScore(ctx context.Context, studentIDs []string) map[string]float64 {
	scores := make(map[string]float64, len(studentIDs))

	top, err := e.store.TopNByScore(ctx, kvstore.GlobalStudentViewsKey, 1)
	if err != nil || len(top) == 0 || top[0].Score <= 0 {
		if err != nil {
			log.WithField(logger.ErrorTypeField, logger.ErrorTypeRedis).Warnf("student views unavailable: %v", err)
		}
		for _, id := range studentIDs {
			scores[id] = 0
		}
		return scores
	}
	maxViews := top[0].Score

	lookups := lo.Map(studentIDs, func(id string, _ int) kvstore.KeyMember {
		return kvstore.KeyMember{Key: kvstore.GlobalStudentViewsKey, Member: id}
	})
	views, err := e.store.ScoreMany(ctx, lookups)
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeRedis).Warnf("student views unavailable: %v", err)
		views = make([]kvstore.ScoreResult, len(studentIDs))
	}

	for i, id := range studentIDs {
		if !views[i].Found {
			scores[id] = 0
			continue
		}
		scores[id] = views[i].Score / maxViews
	}
	return scores
}

// resourceViewCounts counts, per student, how many of the given resources they opened.
func (e *ScoringEngine) resourceViewCounts(ctx context.Context, resourceIDs []string) map[string]int {
	counts := make(map[string]int)

	keys := lo.Map(resourceIDs, func(id string, _ int) string { return kvstore.ResourceViewedByKey(id) })
	viewers, err := e.store.TopNByScoreMany(ctx, keys, 0)
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeRedis).Warnf("resource viewers unavailable: %v", err)
		return counts
	}

	for _, result := range viewers {
		if result.Err != nil {
			continue
		}
		for _, viewer := range result.Members {
			counts[viewer.ID]++
		}
	}
	return counts
}

func (e *ScoringEngine) applicationCounts(ctx context.Context, resourceIDs []string) map[string]int {
	if e.applications == nil {
		return map[string]int{}
	}
	counts, err := e.applications.CountByStudent(ctx, resourceIDs)
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Warnf("application counts unavailable: %v", err)
		return map[string]int{}
	}
	return counts
}
