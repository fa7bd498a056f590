package services

import (
	"context"
	"errors"
	"testing"

	"github.com/enchung913/career-recommender/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSimilarityRunner struct {
	mock.Mock
}

func (m *mockSimilarityRunner) Run(ctx context.Context, name string) (RunReport, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(RunReport), args.Error(1)
}

func (m *mockSimilarityRunner) Matrices() []string {
	return m.Called().Get(0).([]string)
}

type mockMaintenanceRunner struct {
	mock.Mock
}

func (m *mockMaintenanceRunner) Run(ctx context.Context) (MaintenanceReport, error) {
	args := m.Called(ctx)
	return args.Get(0).(MaintenanceReport), args.Error(1)
}

func testSchedulerConfig() config.SchedulerConfig {
	return config.SchedulerConfig{
		Timezone:           "UTC",
		FeatureSimilarity:  "0 1 * * *",
		BehaviorSimilarity: "15 1 * * *",
		Maintenance:        "35 0 * * *",
	}
}

func Test_NewScheduler_RegistersJobs(t *testing.T) {
	s, err := NewScheduler(context.Background(), testSchedulerConfig(), &mockSimilarityRunner{}, &mockMaintenanceRunner{})
	require.NoError(t, err)
	assert.Len(t, s.cron.Entries(), 3)
}

func Test_NewScheduler_InvalidConfig(t *testing.T) {
	cfg := testSchedulerConfig()
	cfg.Maintenance = "every night"
	_, err := NewScheduler(context.Background(), cfg, &mockSimilarityRunner{}, &mockMaintenanceRunner{})
	assert.Error(t, err)

	cfg = testSchedulerConfig()
	cfg.Timezone = "Mars/Olympus"
	_, err = NewScheduler(context.Background(), cfg, &mockSimilarityRunner{}, &mockMaintenanceRunner{})
	assert.Error(t, err)
}

func Test_FeatureSlot_SkipsDisabledUserMatrix(t *testing.T) {
	similarity := &mockSimilarityRunner{}
	similarity.On("Matrices").Return([]string{CompanyMatrix, StudentMatrix})
	similarity.On("Run", mock.Anything, StudentMatrix).Return(RunReport{}, nil).Once()

	s, err := NewScheduler(context.Background(), testSchedulerConfig(), similarity, &mockMaintenanceRunner{})
	require.NoError(t, err)

	s.refreshFeatureSlot()

	similarity.AssertExpectations(t)
	similarity.AssertNotCalled(t, "Run", mock.Anything, UserMatrix)
}

func Test_FeatureSlot_RunsUserMatrixAfterStudentMatrix(t *testing.T) {
	similarity := &mockSimilarityRunner{}
	var order []string
	similarity.On("Matrices").Return([]string{CompanyMatrix, StudentMatrix, UserMatrix})
	similarity.On("Run", mock.Anything, mock.AnythingOfType("string")).
		Run(func(args mock.Arguments) { order = append(order, args.String(1)) }).
		Return(RunReport{}, nil)

	s, err := NewScheduler(context.Background(), testSchedulerConfig(), similarity, &mockMaintenanceRunner{})
	require.NoError(t, err)

	s.refreshFeatureSlot()
	assert.Equal(t, []string{StudentMatrix, UserMatrix}, order)
}

func Test_Slots_ContinueAfterFailures(t *testing.T) {
	similarity := &mockSimilarityRunner{}
	similarity.On("Matrices").Return([]string{CompanyMatrix, StudentMatrix, UserMatrix})
	similarity.On("Run", mock.Anything, StudentMatrix).Return(RunReport{}, ErrRunInProgress).Once()
	similarity.On("Run", mock.Anything, UserMatrix).Return(RunReport{}, errors.New("redis down")).Once()
	similarity.On("Run", mock.Anything, CompanyMatrix).Return(RunReport{}, nil).Once()

	maintenance := &mockMaintenanceRunner{}
	maintenance.On("Run", mock.Anything).Return(MaintenanceReport{}, errors.New("db locked")).Once()

	s, err := NewScheduler(context.Background(), testSchedulerConfig(), similarity, maintenance)
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		s.refreshFeatureSlot()
		s.refreshBehaviorSlot()
		s.runMaintenance()
	})

	similarity.AssertExpectations(t)
	maintenance.AssertExpectations(t)
}

func Test_Scheduler_StartStop(t *testing.T) {
	s, err := NewScheduler(context.Background(), testSchedulerConfig(), &mockSimilarityRunner{}, &mockMaintenanceRunner{})
	require.NoError(t, err)

	s.Start()
	s.Stop()
}
