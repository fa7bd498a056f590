package services

import (
	"context"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/enchung913/career-recommender/internal/events"
	"github.com/enchung913/career-recommender/internal/logger"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type maintenanceRepository interface {
	ExpireApplications(ctx context.Context, today time.Time) (int64, error)
	CloseExpiredResources(ctx context.Context, today time.Time) (int64, error)
}

type MaintenanceReport struct {
	Today               time.Time `json:"today"`
	ExpiredApplications int64     `json:"expired_applications"`
	ClosedResources     int64     `json:"closed_resources"`
}

// Maintenance runs the daily deadline housekeeping.
type Maintenance struct {
	repo     maintenanceRepository
	clock    Clock
	location *time.Location
	bus      EventBus.Bus
}

func NewMaintenance(repo maintenanceRepository, clock Clock, location *time.Location, bus EventBus.Bus) *Maintenance {
	if location == nil {
		location = time.Local
	}
	return &Maintenance{repo: repo, clock: clock, location: location, bus: bus}
}

// Run moves submitted applications of expired resources to pending and closes those resources.
func (m *Maintenance) Run(ctx context.Context) (MaintenanceReport, error) {
	report := MaintenanceReport{Today: startOfDay(m.clock.Now().In(m.location))}

	expired, err := m.repo.ExpireApplications(ctx, report.Today)
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Errorf("failed to expire applications: %v", err)
		return report, errors.Wrap(err, "maintenance")
	}
	report.ExpiredApplications = expired

	closed, err := m.repo.CloseExpiredResources(ctx, report.Today)
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Errorf("failed to close expired resources: %v", err)
		m.publishChanged(expired, 0)
		return report, errors.Wrap(err, "maintenance")
	}
	report.ClosedResources = closed

	log.Infof("maintenance done for %s: applications moved to pending %d, resources closed %d",
		report.Today.Format(time.DateOnly), expired, closed)

	m.publishChanged(expired, closed)
	return report, nil
}

// publishChanged tells catalog readers that applications or resources changed state.
func (m *Maintenance) publishChanged(expired, closed int64) {
	if m.bus == nil || (expired == 0 && closed == 0) {
		return
	}
	m.bus.Publish(events.CatalogChangedTopic, events.CatalogChanged{
		Reason:              "maintenance",
		ClosedResources:     closed,
		ExpiredApplications: expired,
		At:                  m.clock.Now(),
	})
}
