// Package httpx provides HTTP handlers and utilities for the verify-api service.
package httpx

import (
	"errors"
	"net/http"

	"github.com/roadsideiq/verify-api/internal/data"
	"github.com/roadsideiq/verify-api/internal/domain/model"
	"github.com/roadsideiq/verify-api/internal/service"
)

// JobHandlers provides read-only HTTP handlers for queue introspection.
// Jobs are produced and consumed in-process; the HTTP surface only observes.
type JobHandlers struct {
	Svc *service.JobService
}

const (
	defaultRecentJobsLimit = 20
	maxRecentJobsLimit     = 200
)

// GetStatus handles GET /jobs/{id}.
func (h *JobHandlers) GetStatus(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	if jobID == "" {
		WriteError(
			w,
			ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("job id is required")},
		)
		return
	}

	status, err := h.Svc.GetStatus(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, data.ErrJobNotFound) {
			WriteError(
				w,
				ErrorParams{Code: http.StatusNotFound, ErrCode: "job_not_found", Err: errors.New("job not found")},
			)
		} else {
			WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "get_status_failed", Err: errors.New("failed to get job status")})
		}
		return
	}
	WriteJSON(w, http.StatusOK, status)
}

// Stats handles GET /jobs/stats/{type}.
func (h *JobHandlers) Stats(w http.ResponseWriter, r *http.Request) {
	jobType := model.JobType(r.PathValue("type"))
	if jobType == "" {
		WriteError(
			w,
			ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("job type is required")},
		)
		return
	}

	stats, err := h.Svc.Stats(r.Context(), jobType)
	if err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "stats_failed", Err: err})
		return
	}
	WriteJSON(w, http.StatusOK, stats)
}

// ListRecent handles GET /jobs/recent/{type}?limit=N.
func (h *JobHandlers) ListRecent(w http.ResponseWriter, r *http.Request) {
	jobType := model.JobType(r.PathValue("type"))
	if jobType == "" {
		WriteError(
			w,
			ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("job type is required")},
		)
		return
	}

	limit := parseIntQuery(r, "limit", defaultRecentJobsLimit)
	if limit < 1 {
		limit = 1
	}
	if limit > maxRecentJobsLimit {
		limit = maxRecentJobsLimit
	}

	jobs, err := h.Svc.ListRecentByType(r.Context(), jobType, limit)
	if err != nil {
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "list_failed", Err: errors.New("failed to list jobs")})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
}
