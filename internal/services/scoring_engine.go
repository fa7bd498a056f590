package services

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/enchung913/career-recommender/internal/config"
	"github.com/enchung913/career-recommender/internal/domain/models"
	"github.com/enchung913/career-recommender/internal/entities"
	"github.com/enchung913/career-recommender/internal/kvstore"
	"github.com/enchung913/career-recommender/internal/logger"
	"github.com/enchung913/career-recommender/internal/metrics"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"
)

const similarityBreakerName = "similarity-cache"

type studentSource interface {
	Profile(ctx context.Context, userID string) (*entities.StudentProfile, error)
	Profiles(ctx context.Context) ([]entities.StudentProfile, error)
	GPARecords(ctx context.Context, userID string) ([]models.TermGPA, error)
	AllGPARecords(ctx context.Context) (map[string][]models.TermGPA, error)
	Summaries(ctx context.Context, userIDs []string) (map[string]models.StudentSummary, error)
}

type catalogSource interface {
	OpenResources(ctx context.Context) ([]entities.Resource, error)
}

type applicationSource interface {
	CountByStudent(ctx context.Context, resourceIDs []string) (map[string]int, error)
}

// ScoringEngine ranks resources for a student and students for a resource supplier.
type ScoringEngine struct {
	store        kvstore.Store
	students     studentSource
	catalog      catalogSource
	applications applicationSource
	cfg          config.ScoringConfig
	breaker      *gobreaker.CircuitBreaker[neighborhood]
}

func NewScoringEngine(store kvstore.Store, students studentSource, catalog catalogSource,
	applications applicationSource, cfg config.ScoringConfig) *ScoringEngine {

	metrics.CircuitBreakerState.WithLabelValues(similarityBreakerName).Set(0)

	breaker := gobreaker.NewCircuitBreaker[neighborhood](gobreaker.Settings{
		Name:        similarityBreakerName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warnf("circuit breaker %s: %s -> %s", name, from, to)
			metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
		},
	})

	return &ScoringEngine{
		store:        store,
		students:     students,
		catalog:      catalog,
		applications: applications,
		cfg:          cfg,
		breaker:      breaker,
	}
}

// RankCandidatesForSubject returns at most the configured number of candidates, best first.
// A subject without profile or resources gets an empty list.
func (e *ScoringEngine) RankCandidatesForSubject(ctx context.Context, subjectID string, role models.Role) ([]models.RankedCandidate, error) {
	var direction string
	var rank func() ([]models.RankedCandidate, error)

	switch role.(type) {
	case models.StudentRole:
		direction = "resources_for_student"
		rank = func() ([]models.RankedCandidate, error) { return e.rankResourcesForStudent(ctx, subjectID) }
	case models.CompanyRole:
		direction = "students_for_company"
		rank = func() ([]models.RankedCandidate, error) {
			return e.rankStudentsForSupplier(ctx, subjectID, suppliedByCompany)
		}
	case models.DepartmentRole:
		direction = "students_for_department"
		rank = func() ([]models.RankedCandidate, error) {
			return e.rankStudentsForSupplier(ctx, subjectID, suppliedByDepartment)
		}
	default:
		return nil, models.ErrUnsupportedRole
	}

	defer observeRanking(direction, time.Now())
	ranked, err := rank()
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeScoring).
			WithField("direction", direction).
			Errorf("failed to rank candidates for %s: %v", subjectID, err)
		return nil, err
	}
	return ranked, nil
}

func observeRanking(direction string, start time.Time) {
	metrics.RankingDuration.WithLabelValues(direction).Observe(time.Since(start).Seconds())
}

// neighborhood is a subject's similarity neighbors together with what each of them interacted with.
// Neighbors whose interactions could not be read are left out of interacted.
type neighborhood struct {
	neighbors  []models.Neighbor
	interacted map[string]idSet
}

// vote is the weighted share of neighbors that interacted with itemID, 0 without neighbors.
func (n neighborhood) vote(itemID string) float64 {
	var total, hit float64
	for _, neighbor := range n.neighbors {
		items, ok := n.interacted[neighbor.ID]
		if !ok {
			continue
		}
		total += neighbor.Weight
		if items.contains(itemID) {
			hit += neighbor.Weight
		}
	}
	if total <= 0 {
		return 0
	}
	return hit / total
}

// loadNeighborhood reads the cached neighbors of subjectID and their interaction sets.
// Any failure degrades to an empty neighborhood so the similarity component scores 0.
func (e *ScoringEngine) loadNeighborhood(ctx context.Context, namespace, subjectID string,
	interactions func(id string) string) neighborhood {

	result, err := e.breaker.Execute(func() (neighborhood, error) {
		members, err := e.store.TopNByScore(ctx, kvstore.SimilarKey(namespace, subjectID), 0)
		if err != nil {
			return neighborhood{}, err
		}
		n := neighborhood{
			neighbors: lo.Map(members, func(m kvstore.Member, _ int) models.Neighbor {
				return models.Neighbor{ID: m.ID, Weight: m.Score}
			}),
			interacted: make(map[string]idSet, len(members)),
		}
		if len(members) == 0 {
			return n, nil
		}

		keys := lo.Map(members, func(m kvstore.Member, _ int) string { return interactions(m.ID) })
		sets, err := e.store.TopNByScoreMany(ctx, keys, 0)
		if err != nil {
			return neighborhood{}, err
		}
		for i, set := range sets {
			if set.Err != nil {
				continue
			}
			n.interacted[members[i].ID] = toSet(kvstore.IDs(set.Members))
		}
		return n, nil
	})
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeRedis).
			Warnf("similarity unavailable for %s %s: %v", namespace, subjectID, err)
		return neighborhood{}
	}
	return result
}

// rank sorts by final score, best first, keeping input order on ties, and truncates to limit.
func rank(candidates []models.ScoredCandidate, limit int) []models.ScoredCandidate {
	slices.SortStableFunc(candidates, func(a, b models.ScoredCandidate) int {
		return cmp.Compare(b.Final, a.Final)
	})
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates
}

func toConditions(conditions []entities.ResourceCondition) []models.Condition {
	return lo.Map(conditions, func(c entities.ResourceCondition, _ int) models.Condition {
		return models.Condition{
			DepartmentID:  lo.FromPtr(c.DepartmentID),
			MinAverageGPA: c.AvgGPA,
			MinCurrentGPA: c.CurrentGPA,
			NeedStatus:    c.IsPoor,
		}
	})
}

func studentFacts(profile entities.StudentProfile, gpa []models.TermGPA) models.StudentFacts {
	return models.StudentFacts{
		DepartmentID: profile.DepartmentID,
		NeedStatus:   profile.IsPoor,
		GPA:          models.SummarizeGPA(gpa),
	}
}
