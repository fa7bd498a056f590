package ops

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/enchung913/career-recommender/internal/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"
)

const healthTimeout = 2 * time.Second

var validate = validator.New()

type resourceClickRequest struct {
	ActorID    string `json:"actor_id" validate:"required"`
	ResourceID string `json:"resource_id" validate:"required"`
	Category   string `json:"category"`
}

type profileViewRequest struct {
	ViewerID  string `json:"viewer_id" validate:"required"`
	StudentID string `json:"student_id" validate:"required"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h Handlers) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(h.Checks))
	for name, check := range h.Checks {
		if err := check(ctx); err != nil {
			status = http.StatusServiceUnavailable
			results[name] = err.Error()
			continue
		}
		results[name] = "ok"
	}
	writeJSON(w, status, results)
}

func (h Handlers) recordResourceClick(w http.ResponseWriter, r *http.Request) {
	var req resourceClickRequest
	if !decode(w, r, &req) {
		return
	}
	h.Recorder.RecordResourceClick(r.Context(), req.ActorID, req.ResourceID, req.Category)
	w.WriteHeader(http.StatusAccepted)
}

func (h Handlers) recordProfileView(w http.ResponseWriter, r *http.Request) {
	var req profileViewRequest
	if !decode(w, r, &req) {
		return
	}
	h.Recorder.RecordProfileView(r.Context(), req.ViewerID, req.StudentID)
	w.WriteHeader(http.StatusAccepted)
}

// runSimilarity runs the batch synchronously; the run outlives a dropped client connection.
func (h Handlers) runSimilarity(w http.ResponseWriter, r *http.Request) {
	matrix := chi.URLParam(r, "matrix")

	report, err := h.Similarity.Run(context.WithoutCancel(r.Context()), matrix)
	switch {
	case errors.Is(err, services.ErrUnknownMatrix):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, services.ErrRunInProgress):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
	default:
		writeJSON(w, http.StatusOK, report)
	}
}

func (h Handlers) runMaintenance(w http.ResponseWriter, r *http.Request) {
	report, err := h.Maintenance.Run(context.WithoutCancel(r.Context()))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed body"})
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Warnf("failed to encode response: %v", err)
	}
}
