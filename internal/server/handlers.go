// internal/server/handlers.go
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/xkilldash9x/signupd/api/schemas"
	"github.com/xkilldash9x/signupd/internal/orchestrator"
)

// JobService is the orchestrator surface the HTTP layer needs. Satisfied by
// *orchestrator.Orchestrator; tests substitute their own.
type JobService interface {
	Submit(curp string) (schemas.Job, error)
	Get(jobID string) (schemas.Job, error)
	List() []schemas.JobSummary
	Resume(jobID string) (schemas.Job, error)
	CloseBrowser(jobID string) (bool, error)
}

// Handlers manages the HTTP request handling for the signup service.
type Handlers struct {
	log  *zap.Logger
	jobs JobService
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(logger *zap.Logger, jobs JobService) *Handlers {
	return &Handlers{
		log:  logger.Named("handlers"),
		jobs: jobs,
	}
}

// RegisterRoutes sets up the routing for the job API.
func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Get("/healthz", h.HandleHealthCheck)

	r.Route("/jobs", func(r chi.Router) {
		r.Post("/", h.HandleCreateJob)
		r.Get("/", h.HandleListJobs)
		r.Get("/{jobID}", h.HandleGetJob)
		r.Post("/{jobID}/resume", h.HandleResumeJob)
		r.Delete("/{jobID}/browser", h.HandleCloseBrowser)
	})
}

// HandleHealthCheck confirms the server is responsive.
func (h *Handlers) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// HandleCreateJob accepts a signup submission and enqueues it. The 202 goes
// out before any browser work starts; callers poll GET /jobs/{id}.
func (h *Handlers) HandleCreateJob(w http.ResponseWriter, r *http.Request) {
	var req schemas.CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	req.CURP = strings.TrimSpace(req.CURP)
	if req.CURP == "" {
		h.respondWithError(w, http.StatusBadRequest, "curp is required")
		return
	}

	job, err := h.jobs.Submit(req.CURP)
	if err != nil {
		if errors.Is(err, orchestrator.ErrQueueFull) {
			h.respondWithError(w, http.StatusServiceUnavailable, "job queue is full, retry later")
			return
		}
		h.log.Error("Failed to submit job.", zap.Error(err))
		h.respondWithError(w, http.StatusInternalServerError, "failed to submit job")
		return
	}

	h.log.Info("Job accepted.", zap.String("job_id", job.JobID), zap.String("email", job.Email))
	h.respondWithJSON(w, http.StatusAccepted, schemas.CreateJobResponse{
		JobID:  job.JobID,
		Status: job.Status,
		Email:  job.Email,
	})
}

// HandleListJobs returns compact summaries of every known job.
func (h *Handlers) HandleListJobs(w http.ResponseWriter, r *http.Request) {
	h.respondWithJSON(w, http.StatusOK, h.jobs.List())
}

// HandleGetJob returns the full job read-model, logs included.
func (h *Handlers) HandleGetJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job, err := h.jobs.Get(jobID)
	if err != nil {
		if errors.Is(err, orchestrator.ErrJobNotFound) {
			h.respondWithError(w, http.StatusNotFound, "job not found")
			return
		}
		h.log.Error("Failed to load job.", zap.String("job_id", jobID), zap.Error(err))
		h.respondWithError(w, http.StatusInternalServerError, "failed to load job")
		return
	}
	h.respondWithJSON(w, http.StatusOK, job)
}

// HandleResumeJob re-enters a suspended job after the human cleared the
// challenge. Only waiting_for_human jobs are resumable.
func (h *Handlers) HandleResumeJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job, err := h.jobs.Resume(jobID)
	if err != nil {
		switch {
		case errors.Is(err, orchestrator.ErrJobNotFound):
			h.respondWithError(w, http.StatusNotFound, "job not found")
		case errors.Is(err, orchestrator.ErrInvalidJobState):
			h.respondWithError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, orchestrator.ErrQueueFull):
			h.respondWithError(w, http.StatusServiceUnavailable, "job queue is full, retry later")
		default:
			h.log.Error("Failed to resume job.", zap.String("job_id", jobID), zap.Error(err))
			h.respondWithError(w, http.StatusInternalServerError, "failed to resume job")
		}
		return
	}

	h.log.Info("Resume accepted.", zap.String("job_id", jobID))
	h.respondWithJSON(w, http.StatusAccepted, schemas.ResumeJobResponse{
		JobID:  job.JobID,
		Status: job.Status,
	})
}

// HandleCloseBrowser force-closes a job's live browser session. Idempotent:
// closing an already-closed browser still answers 200.
func (h *Handlers) HandleCloseBrowser(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	released, err := h.jobs.CloseBrowser(jobID)
	if err != nil {
		if errors.Is(err, orchestrator.ErrJobNotFound) {
			h.respondWithError(w, http.StatusNotFound, "job not found")
			return
		}
		h.log.Error("Failed to close browser.", zap.String("job_id", jobID), zap.Error(err))
		h.respondWithError(w, http.StatusInternalServerError, "failed to close browser")
		return
	}

	message := "browser closed"
	if !released {
		message = "no live browser for job"
	}
	h.respondWithJSON(w, http.StatusOK, schemas.CloseBrowserResponse{
		JobID:   jobID,
		Message: message,
	})
}

func (h *Handlers) respondWithJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.log.Error("Failed to encode response body.", zap.Error(err))
	}
}

func (h *Handlers) respondWithError(w http.ResponseWriter, status int, message string) {
	h.respondWithJSON(w, status, schemas.ErrorResponse{Error: message})
}
