package ops

import (
	"context"
	"net/http"
	"time"

	"github.com/enchung913/career-recommender/internal/services"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

type similarityTrigger interface {
	Run(ctx context.Context, name string) (services.RunReport, error)
}

type maintenanceTrigger interface {
	Run(ctx context.Context) (services.MaintenanceReport, error)
}

type eventRecorder interface {
	RecordResourceClick(ctx context.Context, actorID, resourceID, category string)
	RecordProfileView(ctx context.Context, viewerID, studentID string)
}

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

type Handlers struct {
	Similarity  similarityTrigger
	Maintenance maintenanceTrigger
	Recorder    eventRecorder
	Checks      map[string]HealthCheck
}

// NewRouter wires the operational endpoints: metrics, health, event ingestion and manual batch triggers.
func NewRouter(h Handlers) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogger)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", h.health)

	r.Route("/events", func(r chi.Router) {
		r.Post("/resource-clicks", h.recordResourceClick)
		r.Post("/profile-views", h.recordProfileView)
	})

	r.Route("/ops", func(r chi.Router) {
		r.Post("/similarity/{matrix}", h.runSimilarity)
		r.Post("/maintenance", h.runMaintenance)
	})

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		log.WithFields(log.Fields{
			"request_id": chimiddleware.GetReqID(r.Context()),
			"status":     ww.Status(),
			"duration":   time.Since(start).String(),
		}).Debugf("%s %s", r.Method, r.URL.Path)
	})
}
