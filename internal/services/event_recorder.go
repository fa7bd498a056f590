package services

import (
	"context"
	"strings"

	"github.com/enchung913/career-recommender/internal/kvstore"
	"github.com/enchung913/career-recommender/internal/logger"
	"github.com/enchung913/career-recommender/internal/metrics"
	log "github.com/sirupsen/logrus"
)

const (
	eventKindResourceClick = "resource_click"
	eventKindProfileView   = "profile_view"
)

// EventRecorder appends interaction events to the key-value event log.
// Recording is best effort: failures are logged and never returned.
type EventRecorder struct {
	store kvstore.Store
	clock Clock
}

func NewEventRecorder(store kvstore.Store, clock Clock) *EventRecorder {
	return &EventRecorder{store: store, clock: clock}
}

// RecordResourceClick logs that actorID opened resourceID. category may be empty.
func (r *EventRecorder) RecordResourceClick(ctx context.Context, actorID, resourceID, category string) {
	if actorID == "" || resourceID == "" {
		r.drop(eventKindResourceClick, "missing actor or resource id")
		return
	}

	now := float64(r.clock.Now().UnixMilli())
	category = strings.ToLower(strings.TrimSpace(category))

	err := r.store.Pipeline(ctx, func(pipe kvstore.Pipe) error {
		pipe.IncrementScore(kvstore.UserResourceClicksKey(actorID), resourceID, 1)
		pipe.SetWithScore(kvstore.ResourceViewedByKey(resourceID), actorID, now)
		if category != "" {
			pipe.IncrementScore(kvstore.UserCategoryClicksKey(actorID), category, 1)
		}
		pipe.IncrementScore(kvstore.GlobalResourceClicksKey, resourceID, 1)
		return nil
	})
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeIngestion).
			Errorf("failed to record click of %s on resource %s: %v", actorID, resourceID, err)
		metrics.EventsDropped.WithLabelValues(eventKindResourceClick).Inc()
		return
	}

	metrics.EventsRecorded.WithLabelValues(eventKindResourceClick).Inc()
}

// RecordProfileView logs that viewerID (a company or department account) opened the profile of studentID.
func (r *EventRecorder) RecordProfileView(ctx context.Context, viewerID, studentID string) {
	if viewerID == "" || studentID == "" {
		r.drop(eventKindProfileView, "missing viewer or student id")
		return
	}

	now := float64(r.clock.Now().UnixMilli())

	err := r.store.Pipeline(ctx, func(pipe kvstore.Pipe) error {
		pipe.IncrementScore(kvstore.CompanyStudentClicksKey(viewerID), studentID, 1)
		pipe.SetWithScore(kvstore.StudentViewedByCompanyKey(studentID), viewerID, now)
		pipe.IncrementScore(kvstore.GlobalStudentViewsKey, studentID, 1)
		return nil
	})
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeIngestion).
			Errorf("failed to record view of student %s by %s: %v", studentID, viewerID, err)
		metrics.EventsDropped.WithLabelValues(eventKindProfileView).Inc()
		return
	}

	metrics.EventsRecorded.WithLabelValues(eventKindProfileView).Inc()
}

func (r *EventRecorder) drop(kind, reason string) {
	log.Warnf("%s event dropped: %s", kind, reason)
	metrics.EventsDropped.WithLabelValues(kind).Inc()
}
