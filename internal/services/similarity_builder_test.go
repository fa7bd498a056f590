package services

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/enchung913/career-recommender/internal/config"
	"github.com/enchung913/career-recommender/internal/events"
	"github.com/enchung913/career-recommender/internal/kvstore"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticFeatures struct {
	sets    map[string][]string
	err     error
	started chan struct{}
	release chan struct{}
}

func (f *staticFeatures) FeatureSets(ctx context.Context) (map[string][]string, error) {
	if f.started != nil {
		close(f.started)
		<-f.release
	}
	return f.sets, f.err
}

func testSimilarityConfig() config.SimilarityConfig {
	return config.DefaultRecommenderConfig().Similarity
}

func similar(t *testing.T, store kvstore.Store, namespace, id string) map[string]float64 {
	t.Helper()
	members, err := store.TopNByScore(context.Background(), kvstore.SimilarKey(namespace, id), 0)
	require.NoError(t, err)
	return kvstore.ToMap(members)
}

func Test_FeatureSimilarity_WritesNeighborsAboveThreshold(t *testing.T) {
	store, mr := newTestStore(t)
	features := &staticFeatures{sets: map[string][]string{
		"s1": {"dept:cs:major", "course:a", "course:b"},
		"s2": {"dept:cs:major", "course:a"},
		"s3": {"dept:ee:major", "course:z"},
	}}
	builder := NewSimilarityBuilder(store, features, nil, testSimilarityConfig())

	report, err := builder.RunFeatureSimilarityBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, report.Subjects)
	assert.Equal(t, 2, report.Edges)
	assert.NotEmpty(t, report.RunID)

	s1 := similar(t, store, StudentMatrix, "s1")
	assert.Len(t, s1, 1)
	assert.InDelta(t, 2.0/3.0, s1["s2"], 1e-9)
	assert.InDelta(t, 2.0/3.0, similar(t, store, StudentMatrix, "s2")["s1"], 1e-9)
	assert.Empty(t, similar(t, store, StudentMatrix, "s3"))

	ttl := mr.TTL(kvstore.SimilarKey(StudentMatrix, "s1"))
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, 90000*time.Second)
}

func Test_FeatureSimilarity_TopKAndIdempotentRerun(t *testing.T) {
	store, _ := newTestStore(t)
	sets := map[string][]string{"s0": {"t1", "t2", "t3", "t4"}}
	sets["a"] = []string{"t1", "t2", "t3"}
	sets["b"] = []string{"t1", "t2"}
	sets["c"] = []string{"t1"}
	sets["d"] = []string{"t1", "x"}

	cfg := testSimilarityConfig()
	cfg.FeatureTopK = 2
	builder := NewSimilarityBuilder(store, &staticFeatures{sets: sets}, nil, cfg)

	_, err := builder.Run(context.Background(), StudentMatrix)
	require.NoError(t, err)
	first := similar(t, store, StudentMatrix, "s0")
	assert.Equal(t, []string{"a", "b"}, sortedKeys(first))

	_, err = builder.Run(context.Background(), StudentMatrix)
	require.NoError(t, err)
	assert.Equal(t, first, similar(t, store, StudentMatrix, "s0"))
}

func Test_FeatureSimilarity_RemovesStaleNeighbors(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.SetWithScore(ctx, kvstore.SimilarKey(StudentMatrix, "s1"), "gone", 0.9))

	features := &staticFeatures{sets: map[string][]string{
		"s1": {"course:a"},
		"s2": {"course:b"},
	}}
	_, err := NewSimilarityBuilder(store, features, nil, testSimilarityConfig()).RunFeatureSimilarityBatch(ctx)
	require.NoError(t, err)

	assert.Empty(t, similar(t, store, StudentMatrix, "s1"))
}

func Test_FeatureSimilarity_UniverseFailureAbortsRun(t *testing.T) {
	store, _ := newTestStore(t)
	features := &staticFeatures{err: errors.New("db down")}

	_, err := NewSimilarityBuilder(store, features, nil, testSimilarityConfig()).RunFeatureSimilarityBatch(context.Background())
	assert.ErrorContains(t, err, "db down")
}

func Test_Run_RejectsConcurrentRunOfSameMatrix(t *testing.T) {
	store, _ := newTestStore(t)
	features := &staticFeatures{
		sets:    map[string][]string{"s1": {"a"}},
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	builder := NewSimilarityBuilder(store, features, nil, testSimilarityConfig())

	done := make(chan error, 1)
	go func() {
		_, err := builder.Run(context.Background(), StudentMatrix)
		done <- err
	}()

	<-features.started
	_, err := builder.Run(context.Background(), StudentMatrix)
	assert.ErrorIs(t, err, ErrRunInProgress)

	close(features.release)
	assert.NoError(t, <-done)
}

func Test_Run_UnknownMatrices(t *testing.T) {
	store, _ := newTestStore(t)
	cfg := testSimilarityConfig()
	cfg.UserMatrixEnabled = false
	builder := NewSimilarityBuilder(store, &staticFeatures{}, nil, cfg)

	_, err := builder.Run(context.Background(), "courses")
	assert.ErrorIs(t, err, ErrUnknownMatrix)

	_, err = builder.Run(context.Background(), UserMatrix)
	assert.ErrorIs(t, err, ErrUnknownMatrix)

	_, err = builder.RunBehaviorSimilarityBatch(context.Background(), StudentMatrix)
	assert.ErrorIs(t, err, ErrUnknownMatrix)

	assert.Equal(t, []string{CompanyMatrix, StudentMatrix}, builder.Matrices())
	assert.Equal(t, []string{CompanyMatrix}, builder.BehaviorMatrices())
}

func Test_CompanySimilarity_FromProfileViews(t *testing.T) {
	store, mr := newTestStore(t)
	recorder := NewEventRecorder(store, newFakeClock(time.UnixMilli(1000)))
	ctx := context.Background()

	for _, view := range [][2]string{
		{"c1", "s1"}, {"c1", "s2"}, {"c1", "s3"},
		{"c2", "s1"}, {"c2", "s2"},
		{"c3", "s9"},
	} {
		recorder.RecordProfileView(ctx, view[0], view[1])
	}

	bus := EventBus.New()
	refreshed := make(chan events.SimilarityRefreshed, 1)
	require.NoError(t, bus.Subscribe(events.SimilarityRefreshedTopic, func(e events.SimilarityRefreshed) { refreshed <- e }))

	report, err := NewSimilarityBuilder(store, nil, bus, testSimilarityConfig()).RunBehaviorSimilarityBatch(ctx, CompanyMatrix)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Subjects)

	c1 := similar(t, store, CompanyMatrix, "c1")
	assert.InDelta(t, 2.0/3.0, c1["c2"], 1e-9)
	assert.NotContains(t, c1, "c3")
	assert.Empty(t, similar(t, store, CompanyMatrix, "c3"))

	ttl := mr.TTL(kvstore.SimilarKey(CompanyMatrix, "c2"))
	assert.Greater(t, ttl, time.Duration(0))

	event := <-refreshed
	assert.Equal(t, report.RunID, event.RunID)
	assert.Equal(t, CompanyMatrix, event.Matrix)
}

func Test_BehaviorSimilarity_OnlyRecentTargetsProduceCandidates(t *testing.T) {
	store, _ := newTestStore(t)
	clock := newFakeClock(time.UnixMilli(1000))
	recorder := NewEventRecorder(store, clock)
	ctx := context.Background()

	// "old" shares only the oldest student with c1 and would pass the threshold if compared.
	recorder.RecordProfileView(ctx, "c1", "s1")
	recorder.RecordProfileView(ctx, "old", "s1")
	clock.Advance(time.Second)
	recorder.RecordProfileView(ctx, "c1", "s2")
	recorder.RecordProfileView(ctx, "recent", "s2")
	clock.Advance(time.Second)
	recorder.RecordProfileView(ctx, "c1", "s3")
	recorder.RecordProfileView(ctx, "recent", "s3")

	cfg := testSimilarityConfig()
	cfg.RecentWindow = 2
	_, err := NewSimilarityBuilder(store, nil, nil, cfg).RunBehaviorSimilarityBatch(ctx, CompanyMatrix)
	require.NoError(t, err)

	c1 := similar(t, store, CompanyMatrix, "c1")
	assert.InDelta(t, 2.0/3.0, c1["recent"], 1e-9)
	assert.NotContains(t, c1, "old")

	// without pruning the old viewer is a neighbor
	cfg.RecentWindow = 50
	_, err = NewSimilarityBuilder(store, nil, nil, cfg).RunBehaviorSimilarityBatch(ctx, CompanyMatrix)
	require.NoError(t, err)
	assert.InDelta(t, 1.0/3.0, similar(t, store, CompanyMatrix, "c1")["old"], 1e-9)
}

func Test_UserSimilarity_FromResourceClicks(t *testing.T) {
	store, _ := newTestStore(t)
	recorder := NewEventRecorder(store, newFakeClock(time.UnixMilli(1000)))
	ctx := context.Background()

	recorder.RecordResourceClick(ctx, "u1", "r1", "job")
	recorder.RecordResourceClick(ctx, "u1", "r2", "job")
	recorder.RecordResourceClick(ctx, "u2", "r1", "job")
	recorder.RecordResourceClick(ctx, "u2", "r2", "job")

	_, err := NewSimilarityBuilder(store, nil, nil, testSimilarityConfig()).RunBehaviorSimilarityBatch(ctx, UserMatrix)
	require.NoError(t, err)

	assert.Equal(t, map[string]float64{"u2": 1}, similar(t, store, UserMatrix, "u1"))
}

func Test_BehaviorSimilarity_StoreUnavailableAbortsRun(t *testing.T) {
	store, mr := newTestStore(t)
	mr.SetError("ERR store unavailable")

	_, err := NewSimilarityBuilder(store, nil, nil, testSimilarityConfig()).RunBehaviorSimilarityBatch(context.Background(), CompanyMatrix)
	assert.Error(t, err)
}

// failingStore fails reads of one interaction set inside batched reads, and rejects the
// transaction that would rewrite one neighbor key.
type failingStore struct {
	kvstore.Store
	failRead    string
	failPersist string
}

func (s *failingStore) TopNByScoreMany(ctx context.Context, keys []string, n int) ([]kvstore.MembersResult, error) {
	results, err := s.Store.TopNByScoreMany(ctx, keys, n)
	if err != nil {
		return nil, err
	}
	for i, key := range keys {
		if key == s.failRead {
			results[i] = kvstore.MembersResult{Err: errors.New("read timeout")}
		}
	}
	return results, nil
}

func (s *failingStore) Pipeline(ctx context.Context, fn func(pipe kvstore.Pipe) error) error {
	return s.Store.Pipeline(ctx, func(pipe kvstore.Pipe) error {
		spy := &keySpy{Pipe: pipe}
		if err := fn(spy); err != nil {
			return err
		}
		if lo.Contains(spy.keys, s.failPersist) {
			return errors.New("transaction rejected")
		}
		return nil
	})
}

type keySpy struct {
	kvstore.Pipe
	keys []string
}

func (p *keySpy) DeleteKey(key string) {
	p.keys = append(p.keys, key)
	p.Pipe.DeleteKey(key)
}

// seedCompanyViews builds two groups of companies, c1..c3 on s1,s2 and c4,c5 on s3, and runs the
// company matrix once.
func seedCompanyViews(t *testing.T, store kvstore.Store, clock *fakeClock) {
	t.Helper()
	ctx := context.Background()
	recorder := NewEventRecorder(store, clock)
	for _, view := range [][2]string{
		{"c1", "s1"}, {"c1", "s2"},
		{"c2", "s1"}, {"c2", "s2"},
		{"c3", "s1"}, {"c3", "s2"},
		{"c4", "s3"}, {"c5", "s3"},
	} {
		clock.Advance(time.Second)
		recorder.RecordProfileView(ctx, view[0], view[1])
	}

	report, err := NewSimilarityBuilder(store, nil, nil, testSimilarityConfig()).RunBehaviorSimilarityBatch(ctx, CompanyMatrix)
	require.NoError(t, err)
	require.Equal(t, 5, report.Subjects)
	require.Equal(t, map[string]float64{"c2": 1, "c3": 1}, similar(t, store, CompanyMatrix, "c1"))
	require.Equal(t, map[string]float64{"c5": 1}, similar(t, store, CompanyMatrix, "c4"))

	// c4 and c5 now overlap on one of two students
	clock.Advance(time.Second)
	recorder.RecordProfileView(ctx, "c5", "s4")
}

func Test_BehaviorSimilarity_CandidateReadFailureKeepsSubjectNeighbors(t *testing.T) {
	store, _ := newTestStore(t)
	seedCompanyViews(t, store, newFakeClock(time.UnixMilli(1000)))

	failing := &failingStore{Store: store, failRead: kvstore.CompanyStudentClicks.Key("c3")}
	report, err := NewSimilarityBuilder(failing, nil, nil, testSimilarityConfig()).
		RunBehaviorSimilarityBatch(context.Background(), CompanyMatrix)
	require.NoError(t, err)

	// c1 and c2 both compare against c3
	assert.Equal(t, 2, report.Failed)
	assert.Equal(t, 3, report.Subjects)

	assert.Equal(t, map[string]float64{"c2": 1, "c3": 1}, similar(t, store, CompanyMatrix, "c1"))
	assert.Equal(t, map[string]float64{"c1": 1, "c3": 1}, similar(t, store, CompanyMatrix, "c2"))
	assert.Equal(t, map[string]float64{"c1": 1, "c2": 1}, similar(t, store, CompanyMatrix, "c3"))
	assert.Equal(t, map[string]float64{"c5": 0.5}, similar(t, store, CompanyMatrix, "c4"))
	assert.Equal(t, map[string]float64{"c4": 0.5}, similar(t, store, CompanyMatrix, "c5"))
}

func Test_BehaviorSimilarity_PersistFailureKeepsSubjectNeighbors(t *testing.T) {
	store, _ := newTestStore(t)
	seedCompanyViews(t, store, newFakeClock(time.UnixMilli(1000)))

	failing := &failingStore{Store: store, failPersist: kvstore.SimilarKey(CompanyMatrix, "c4")}
	report, err := NewSimilarityBuilder(failing, nil, nil, testSimilarityConfig()).
		RunBehaviorSimilarityBatch(context.Background(), CompanyMatrix)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 4, report.Subjects)

	assert.Equal(t, map[string]float64{"c5": 1}, similar(t, store, CompanyMatrix, "c4"))
	assert.Equal(t, map[string]float64{"c4": 0.5}, similar(t, store, CompanyMatrix, "c5"))
	assert.Equal(t, map[string]float64{"c2": 1, "c3": 1}, similar(t, store, CompanyMatrix, "c1"))
}

func sortedKeys(m map[string]float64) []string {
	keys := lo.Keys(m)
	sort.Strings(keys)
	return keys
}
