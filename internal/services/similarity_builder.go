package services

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/enchung913/career-recommender/internal/config"
	"github.com/enchung913/career-recommender/internal/domain/models"
	"github.com/enchung913/career-recommender/internal/events"
	"github.com/enchung913/career-recommender/internal/kvstore"
	"github.com/enchung913/career-recommender/internal/logger"
	"github.com/enchung913/career-recommender/internal/metrics"
	"github.com/google/uuid"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

const (
	StudentMatrix = "student"
	CompanyMatrix = "company"
	UserMatrix    = "user"
)

var (
	ErrRunInProgress = errors.New("similarity run already in progress")
	ErrUnknownMatrix = errors.New("unknown similarity matrix")
)

type matrixKind int

const (
	featureBased matrixKind = iota
	behaviorBased
)

// matrix describes one similarity universe. For behavior-based matrices the actor layout holds
// each subject's interaction set and the reverse layout holds, per target, who interacted and when.
type matrix struct {
	name      string
	kind      matrixKind
	threshold float64
	topK      int
	actors    kvstore.KeyLayout
	reverse   kvstore.KeyLayout
}

type featureSource interface {
	FeatureSets(ctx context.Context) (map[string][]string, error)
}

type RunReport struct {
	RunID    string        `json:"run_id"`
	Matrix   string        `json:"matrix"`
	Subjects int           `json:"subjects"`
	Skipped  int           `json:"skipped"`
	Failed   int           `json:"failed"`
	Edges    int           `json:"edges"`
	Duration time.Duration `json:"duration"`
}

type SimilarityBuilder struct {
	store    kvstore.Store
	features featureSource
	bus      EventBus.Bus
	cfg      config.SimilarityConfig
	matrices map[string]matrix
	locks    map[string]*sync.Mutex
	running  *semaphore.Weighted
	limiter  *rate.Limiter
}

func NewSimilarityBuilder(store kvstore.Store, features featureSource, bus EventBus.Bus,
	cfg config.SimilarityConfig) *SimilarityBuilder {

	matrices := map[string]matrix{
		StudentMatrix: {
			name:      StudentMatrix,
			kind:      featureBased,
			threshold: cfg.FeatureThreshold,
			topK:      cfg.FeatureTopK,
		},
		CompanyMatrix: {
			name:      CompanyMatrix,
			kind:      behaviorBased,
			threshold: cfg.BehaviorThreshold,
			topK:      cfg.BehaviorTopK,
			actors:    kvstore.CompanyStudentClicks,
			reverse:   kvstore.StudentViewedByCompany,
		},
	}
	if cfg.UserMatrixEnabled {
		matrices[UserMatrix] = matrix{
			name:      UserMatrix,
			kind:      behaviorBased,
			threshold: cfg.BehaviorThreshold,
			topK:      cfg.BehaviorTopK,
			actors:    kvstore.UserResourceClicks,
			reverse:   kvstore.ResourceViewedBy,
		}
	}

	limit := rate.Inf
	if cfg.StoreOpsPerSecond > 0 {
		limit = rate.Limit(cfg.StoreOpsPerSecond)
	}

	concurrent := cfg.MaxConcurrentMatrices
	if concurrent < 1 {
		concurrent = 1
	}

	return &SimilarityBuilder{
		store:    store,
		features: features,
		bus:      bus,
		cfg:      cfg,
		matrices: matrices,
		locks:    lo.MapValues(matrices, func(matrix, string) *sync.Mutex { return &sync.Mutex{} }),
		running:  semaphore.NewWeighted(concurrent),
		limiter:  rate.NewLimiter(limit, 1),
	}
}

// Matrices lists the enabled matrix names in a stable order.
func (b *SimilarityBuilder) Matrices() []string {
	names := lo.Keys(b.matrices)
	sort.Strings(names)
	return names
}

// BehaviorMatrices lists the enabled behavior-based matrix names.
func (b *SimilarityBuilder) BehaviorMatrices() []string {
	return lo.Filter(b.Matrices(), func(name string, _ int) bool {
		return b.matrices[name].kind == behaviorBased
	})
}

func (b *SimilarityBuilder) RunFeatureSimilarityBatch(ctx context.Context) (RunReport, error) {
	return b.Run(ctx, StudentMatrix)
}

func (b *SimilarityBuilder) RunBehaviorSimilarityBatch(ctx context.Context, name string) (RunReport, error) {
	m, ok := b.matrices[name]
	if !ok || m.kind != behaviorBased {
		return RunReport{}, fmt.Errorf("%w: %q is not a behavior matrix", ErrUnknownMatrix, name)
	}
	return b.Run(ctx, name)
}

// Run recomputes one matrix. Only one run per matrix may be active; a second caller gets ErrRunInProgress.
func (b *SimilarityBuilder) Run(ctx context.Context, name string) (RunReport, error) {
	m, ok := b.matrices[name]
	if !ok {
		return RunReport{}, fmt.Errorf("%w: %q", ErrUnknownMatrix, name)
	}

	lock := b.locks[name]
	if !lock.TryLock() {
		return RunReport{}, fmt.Errorf("%w: %s", ErrRunInProgress, name)
	}
	defer lock.Unlock()

	if err := b.running.Acquire(ctx, 1); err != nil {
		return RunReport{}, err
	}
	defer b.running.Release(1)

	runCtx, cancel := context.WithTimeout(ctx, b.cfg.RunTimeout)
	defer cancel()

	report := RunReport{RunID: uuid.NewString(), Matrix: name}
	entry := log.WithFields(log.Fields{"run_id": report.RunID, "matrix": name})
	entry.Info("similarity run started")

	start := time.Now()
	var err error
	switch m.kind {
	case featureBased:
		err = b.runFeatureBased(runCtx, m, &report, entry)
	case behaviorBased:
		err = b.runBehaviorBased(runCtx, m, &report, entry)
	}
	report.Duration = time.Since(start)
	metrics.SimilarityRunDuration.WithLabelValues(name).Observe(report.Duration.Seconds())

	if err != nil {
		entry.WithField(logger.ErrorTypeField, logger.ErrorTypeBatch).Errorf("similarity run aborted: %v", err)
		return report, err
	}

	entry.Infof("similarity run finished in %v: subjects %d, skipped %d, failed %d, edges %d",
		report.Duration, report.Subjects, report.Skipped, report.Failed, report.Edges)

	if b.bus != nil {
		b.bus.Publish(events.SimilarityRefreshedTopic, events.SimilarityRefreshed{
			RunID:    report.RunID,
			Matrix:   name,
			Subjects: report.Subjects,
			Edges:    report.Edges,
			Failed:   report.Failed,
			Duration: report.Duration,
		})
	}
	return report, nil
}

func (b *SimilarityBuilder) runFeatureBased(ctx context.Context, m matrix, report *RunReport, entry *log.Entry) error {
	features, err := b.features.FeatureSets(ctx)
	if err != nil {
		return fmt.Errorf("collect universe: %w", err)
	}

	universe := lo.Keys(features)
	sort.Strings(universe)
	sets := lo.MapValues(features, func(tokens []string, _ string) idSet { return toSet(tokens) })
	entry.Infof("universe collected: %d subjects", len(universe))

	return b.forEachSubject(ctx, m, universe, report, entry, func(ctx context.Context, subjectID string) ([]models.Edge, bool, error) {
		subject := sets[subjectID]
		if len(subject) == 0 {
			return nil, false, nil
		}

		var edges []models.Edge
		for _, otherID := range universe {
			if otherID == subjectID {
				continue
			}
			edges = append(edges, models.Edge{
				SubjectID:  subjectID,
				NeighborID: otherID,
				Score:      Jaccard(subject, sets[otherID]),
			})
		}
		return topEdges(edges, m.threshold, m.topK), true, nil
	})
}

func (b *SimilarityBuilder) runBehaviorBased(ctx context.Context, m matrix, report *RunReport, entry *log.Entry) error {
	if err := b.wait(ctx); err != nil {
		return err
	}
	keys, err := b.store.ScanKeysByPattern(ctx, m.actors.Pattern())
	if err != nil {
		return fmt.Errorf("collect universe: %w", err)
	}

	universe := lo.Uniq(lo.FilterMap(keys, func(key string, _ int) (string, bool) {
		return m.actors.ParseID(key)
	}))
	sort.Strings(universe)
	entry.Infof("universe collected: %d subjects", len(universe))

	return b.forEachSubject(ctx, m, universe, report, entry, func(ctx context.Context, subjectID string) ([]models.Edge, bool, error) {
		return b.behaviorNeighbors(ctx, m, subjectID)
	})
}

type neighborFunc func(ctx context.Context, subjectID string) (edges []models.Edge, hasSignal bool, err error)

// forEachSubject computes and persists neighbors for every subject on a bounded worker pool.
// Subject failures are counted and logged; only the run deadline aborts the run.
func (b *SimilarityBuilder) forEachSubject(ctx context.Context, m matrix, universe []string, report *RunReport,
	entry *log.Entry, compute neighborFunc) error {

	var processed, skipped, failed, edges atomic.Int64

	g := errgroup.Group{}
	g.SetLimit(b.cfg.Workers)

	for _, subjectID := range universe {
		if ctx.Err() != nil {
			break
		}

		g.Go(func() error {
			subjectCtx, cancel := context.WithTimeout(ctx, b.cfg.SubjectTimeout)
			defer cancel()

			neighbors, hasSignal, err := compute(subjectCtx, subjectID)
			if err == nil && !hasSignal {
				skipped.Add(1)
				return nil
			}
			if err == nil {
				err = b.persist(subjectCtx, m, subjectID, neighbors)
			}
			if err != nil {
				failed.Add(1)
				metrics.SimilaritySubjectFailures.WithLabelValues(m.name).Inc()
				entry.WithField(logger.ErrorTypeField, logger.ErrorTypeBatch).
					Errorf("failed to refresh neighbors of %s: %v", subjectID, err)
				return nil
			}

			processed.Add(1)
			edges.Add(int64(len(neighbors)))
			metrics.SimilarityEdgesWritten.WithLabelValues(m.name).Add(float64(len(neighbors)))
			return nil
		})
	}
	_ = g.Wait()

	report.Subjects = int(processed.Load())
	report.Skipped = int(skipped.Load())
	report.Failed = int(failed.Load())
	report.Edges = int(edges.Load())

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("run interrupted: %w", err)
	}
	return nil
}

// behaviorNeighbors compares the subject only with actors that interacted with one of its
// most recent targets.
func (b *SimilarityBuilder) behaviorNeighbors(ctx context.Context, m matrix, subjectID string) ([]models.Edge, bool, error) {
	if err := b.wait(ctx); err != nil {
		return nil, false, err
	}
	targets, err := b.store.TopNByScore(ctx, m.actors.Key(subjectID), 0)
	if err != nil {
		return nil, false, fmt.Errorf("read interaction set: %w", err)
	}
	if len(targets) == 0 {
		return nil, false, nil
	}

	recent, err := b.recentTargets(ctx, m, subjectID, kvstore.IDs(targets))
	if err != nil {
		return nil, true, err
	}

	candidates, err := b.candidates(ctx, m, subjectID, recent)
	if err != nil {
		return nil, true, err
	}
	if len(candidates) == 0 {
		return nil, true, nil
	}

	if err = b.wait(ctx); err != nil {
		return nil, true, err
	}
	candidateKeys := lo.Map(candidates, func(id string, _ int) string { return m.actors.Key(id) })
	sets, err := b.store.TopNByScoreMany(ctx, candidateKeys, 0)
	if err != nil {
		return nil, true, fmt.Errorf("read candidate sets: %w", err)
	}

	subject := toSet(kvstore.IDs(targets))
	edges := make([]models.Edge, 0, len(candidates))
	for i, candidateID := range candidates {
		if sets[i].Err != nil {
			return nil, true, fmt.Errorf("read candidate set of %s: %w", candidateID, sets[i].Err)
		}
		edges = append(edges, models.Edge{
			SubjectID:  subjectID,
			NeighborID: candidateID,
			Score:      Jaccard(subject, toSet(kvstore.IDs(sets[i].Members))),
		})
	}
	return topEdges(edges, m.threshold, m.topK), true, nil
}

// recentTargets orders targets by the subject's last interaction time, newest first, and keeps
// the configured window. The time comes from each target's reverse index; a missing entry counts as 0.
func (b *SimilarityBuilder) recentTargets(ctx context.Context, m matrix, subjectID string, targets []string) ([]string, error) {
	if len(targets) <= b.cfg.RecentWindow {
		return targets, nil
	}

	if err := b.wait(ctx); err != nil {
		return nil, err
	}
	lookups := lo.Map(targets, func(target string, _ int) kvstore.KeyMember {
		return kvstore.KeyMember{Key: m.reverse.Key(target), Member: subjectID}
	})
	seen, err := b.store.ScoreMany(ctx, lookups)
	if err != nil {
		return nil, fmt.Errorf("read interaction times: %w", err)
	}

	stamped := make([]kvstore.Member, len(targets))
	for i, target := range targets {
		if seen[i].Err != nil {
			return nil, fmt.Errorf("read interaction time of %s: %w", target, seen[i].Err)
		}
		stamped[i] = kvstore.Member{ID: target, Score: seen[i].Score}
	}

	slices.SortFunc(stamped, func(a, b kvstore.Member) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	return kvstore.IDs(stamped[:b.cfg.RecentWindow]), nil
}

// candidates returns, in discovery order, every other actor found in the reverse index of the given targets.
func (b *SimilarityBuilder) candidates(ctx context.Context, m matrix, subjectID string, targets []string) ([]string, error) {
	if err := b.wait(ctx); err != nil {
		return nil, err
	}
	reverseKeys := lo.Map(targets, func(target string, _ int) string { return m.reverse.Key(target) })
	viewers, err := b.store.TopNByScoreMany(ctx, reverseKeys, 0)
	if err != nil {
		return nil, fmt.Errorf("read reverse index: %w", err)
	}

	var found []string
	seen := idSet{subjectID: {}}
	for i, result := range viewers {
		if result.Err != nil {
			return nil, fmt.Errorf("read viewers of %s: %w", targets[i], result.Err)
		}
		for _, viewer := range result.Members {
			if seen.contains(viewer.ID) {
				continue
			}
			seen[viewer.ID] = struct{}{}
			found = append(found, viewer.ID)
		}
	}
	return found, nil
}

// persist replaces the subject's cached neighbor list in one transaction.
// An empty list still removes the stale key.
func (b *SimilarityBuilder) persist(ctx context.Context, m matrix, subjectID string, edges []models.Edge) error {
	if err := b.wait(ctx); err != nil {
		return err
	}

	key := kvstore.SimilarKey(m.name, subjectID)
	return b.store.Pipeline(ctx, func(pipe kvstore.Pipe) error {
		pipe.DeleteKey(key)
		if len(edges) == 0 {
			return nil
		}
		for _, e := range edges {
			pipe.SetWithScore(key, e.NeighborID, e.Score)
		}
		pipe.Expire(key, b.cfg.TTL)
		return nil
	})
}

func (b *SimilarityBuilder) wait(ctx context.Context) error {
	return b.limiter.Wait(ctx)
}
