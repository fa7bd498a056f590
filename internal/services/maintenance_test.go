package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/enchung913/career-recommender/internal/entities"
	"github.com/enchung913/career-recommender/internal/events"
	"github.com/enchung913/career-recommender/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Maintenance_ExpiresApplicationsAndClosesResources(t *testing.T) {
	dbCtx := newTestDb(t)
	yesterday := time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC)
	tomorrow := time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC)

	require.NoError(t, dbCtx.DB.Create(&[]entities.Resource{
		{ResourceID: "past", Deadline: &yesterday, Status: entities.ResourceAvailable},
		{ResourceID: "future", Deadline: &tomorrow, Status: entities.ResourceAvailable},
		{ResourceID: "no-deadline", Status: entities.ResourceAvailable},
	}).Error)
	require.NoError(t, dbCtx.DB.Create(&[]entities.Application{
		{ApplicationID: "a1", ResourceID: "past", UserID: "s1", ReviewStatus: entities.ReviewSubmitted},
		{ApplicationID: "a2", ResourceID: "past", UserID: "s2", ReviewStatus: entities.ReviewApproved},
		{ApplicationID: "a3", ResourceID: "future", UserID: "s1", ReviewStatus: entities.ReviewSubmitted},
	}).Error)

	bus := EventBus.New()
	changed := make(chan events.CatalogChanged, 1)
	require.NoError(t, bus.Subscribe(events.CatalogChangedTopic, func(e events.CatalogChanged) { changed <- e }))

	clock := newFakeClock(time.Date(2025, 3, 10, 15, 30, 0, 0, time.UTC))
	maintenance := NewMaintenance(repositories.NewMaintenanceRepository(dbCtx.DB), clock, time.UTC, bus)

	report, err := maintenance.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), report.Today)
	assert.Equal(t, int64(1), report.ExpiredApplications)
	assert.Equal(t, int64(1), report.ClosedResources)

	var a1 entities.Application
	require.NoError(t, dbCtx.DB.First(&a1, "application_id = ?", "a1").Error)
	assert.Equal(t, entities.ReviewPending, a1.ReviewStatus)

	var past entities.Resource
	require.NoError(t, dbCtx.DB.First(&past, "resource_id = ?", "past").Error)
	assert.Equal(t, entities.ResourceClosed, past.Status)

	event := <-changed
	assert.Equal(t, int64(1), event.ClosedResources)

	// nothing left to do
	report, err = maintenance.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.ExpiredApplications)
	assert.Zero(t, report.ClosedResources)
	assert.Empty(t, changed)
}

type failingMaintenanceRepo struct {
	expired   int64
	expireErr error
	closeErr  error
}

func (r failingMaintenanceRepo) ExpireApplications(ctx context.Context, today time.Time) (int64, error) {
	return r.expired, r.expireErr
}

func (r failingMaintenanceRepo) CloseExpiredResources(ctx context.Context, today time.Time) (int64, error) {
	return 0, r.closeErr
}

func Test_Maintenance_StopsOnRepositoryError(t *testing.T) {
	maintenance := NewMaintenance(failingMaintenanceRepo{expireErr: errors.New("db locked")}, SystemClock(), time.UTC, nil)

	_, err := maintenance.Run(context.Background())
	assert.ErrorContains(t, err, "db locked")
}

func Test_Maintenance_PublishesExpiredApplicationsWhenCloseFails(t *testing.T) {
	bus := EventBus.New()
	var changed []events.CatalogChanged
	require.NoError(t, bus.Subscribe(events.CatalogChangedTopic, func(e events.CatalogChanged) { changed = append(changed, e) }))

	repo := failingMaintenanceRepo{expired: 2, closeErr: errors.New("db locked")}
	report, err := NewMaintenance(repo, SystemClock(), time.UTC, bus).Run(context.Background())
	assert.ErrorContains(t, err, "db locked")
	assert.Equal(t, int64(2), report.ExpiredApplications)

	require.Len(t, changed, 1)
	assert.Equal(t, int64(2), changed[0].ExpiredApplications)
	assert.Zero(t, changed[0].ClosedResources)
}
