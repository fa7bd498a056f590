package services

import (
	"context"
	"errors"

	"github.com/enchung913/career-recommender/internal/config"
	"github.com/enchung913/career-recommender/internal/logger"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

type similarityRunner interface {
	Run(ctx context.Context, name string) (RunReport, error)
	Matrices() []string
}

type maintenanceRunner interface {
	Run(ctx context.Context) (MaintenanceReport, error)
}

// Scheduler triggers the nightly jobs. The feature slot refreshes the student matrix and the
// user matrix when enabled; the behavior slot refreshes the company matrix.
type Scheduler struct {
	ctx         context.Context
	cron        *cron.Cron
	similarity  similarityRunner
	maintenance maintenanceRunner
}

func NewScheduler(ctx context.Context, cfg config.SchedulerConfig, similarity similarityRunner,
	maintenance maintenanceRunner) (*Scheduler, error) {

	location, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	s := &Scheduler{
		ctx:         ctx,
		cron:        cron.New(cron.WithLocation(location)),
		similarity:  similarity,
		maintenance: maintenance,
	}

	jobs := []struct {
		spec string
		job  func()
	}{
		{cfg.FeatureSimilarity, s.refreshFeatureSlot},
		{cfg.BehaviorSimilarity, s.refreshBehaviorSlot},
		{cfg.Maintenance, s.runMaintenance},
	}
	for _, j := range jobs {
		if _, err = s.cron.AddFunc(j.spec, j.job); err != nil {
			return nil, err
		}
	}

	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	log.Infof("scheduler started with %d jobs", len(s.cron.Entries()))
}

// Stop prevents new runs and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) refreshFeatureSlot() {
	s.runMatrices(StudentMatrix, UserMatrix)
}

func (s *Scheduler) refreshBehaviorSlot() {
	s.runMatrices(CompanyMatrix)
}

func (s *Scheduler) runMatrices(names ...string) {
	enabled := toSet(s.similarity.Matrices())
	for _, name := range names {
		if !enabled.contains(name) {
			continue
		}
		if _, err := s.similarity.Run(s.ctx, name); err != nil {
			if errors.Is(err, ErrRunInProgress) {
				log.Warnf("scheduled %s similarity run skipped: %v", name, err)
				continue
			}
			log.WithField(logger.ErrorTypeField, logger.ErrorTypeBatch).
				Errorf("scheduled %s similarity run failed: %v", name, err)
		}
	}
}

func (s *Scheduler) runMaintenance() {
	if _, err := s.maintenance.Run(s.ctx); err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeBatch).Errorf("scheduled maintenance failed: %v", err)
	}
}
