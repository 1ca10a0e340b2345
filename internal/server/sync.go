package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytsort/internal/models"
	"github.com/desertthunder/ytsort/internal/services"
	"github.com/desertthunder/ytsort/internal/shared"
)

// Engine is the subset of the sync engine exposed over HTTP.
type Engine interface {
	CreateJob(ctx context.Context, preview json.RawMessage) (*models.SyncJob, error)
	GetCurrentJob(ctx context.Context) (*models.SyncJob, error)
	Job(ctx context.Context, id string) (*models.SyncJob, error)
	History(ctx context.Context, limit int) ([]*models.SyncJob, error)
	ProcessBatch(ctx context.Context, cred services.Credential, batchSize int) (*models.SyncJob, error)
	PauseJob(ctx context.Context, jobID string, reason models.PauseReason) (*models.SyncJob, error)
	ResumeJob(ctx context.Context, jobID string) (*models.SyncJob, error)
}

// CredentialSource loads the credential used for a batch.
type CredentialSource func(ctx context.Context) (services.Credential, error)

// SyncHandler exposes job control as a small JSON API.
//
// Routes:
//
//	POST /api/sync/jobs          create a job (optional preview body)
//	GET  /api/sync/jobs          job history (?limit=N)
//	GET  /api/sync/jobs/{id}     one job
//	GET  /api/sync/current       active job, 204 when none
//	POST /api/sync/process       run one batch (?batch=N)
//	POST /api/sync/pause         pause the active job ({"reason": "..."})
//	POST /api/sync/resume        resume the active job
type SyncHandler struct {
	engine      Engine
	credentials CredentialSource
	batchSize   int
	logger      *log.Logger
	mux         *http.ServeMux
}

// NewSyncHandler creates the handler. batchSize is used when a request does not set one.
func NewSyncHandler(engine Engine, credentials CredentialSource, batchSize int, logger *log.Logger) *SyncHandler {
	h := &SyncHandler{
		engine:      engine,
		credentials: credentials,
		batchSize:   batchSize,
		logger:      logger,
		mux:         http.NewServeMux(),
	}

	h.mux.HandleFunc("POST /api/sync/jobs", h.createJob)
	h.mux.HandleFunc("GET /api/sync/jobs", h.history)
	h.mux.HandleFunc("GET /api/sync/jobs/{id}", h.job)
	h.mux.HandleFunc("GET /api/sync/current", h.current)
	h.mux.HandleFunc("POST /api/sync/process", h.process)
	h.mux.HandleFunc("POST /api/sync/pause", h.pause)
	h.mux.HandleFunc("POST /api/sync/resume", h.resume)
	return h
}

func (h *SyncHandler) Routes() []string {
	return []string{"/api/sync/"}
}

func (h *SyncHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

type errorResponse struct {
	Error string          `json:"error"`
	Job   *models.SyncJob `json:"job,omitempty"`
}

type pauseRequest struct {
	Reason string `json:"reason"`
}

func (h *SyncHandler) createJob(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		h.writeError(w, nil, err)
		return
	}
	preview, err := models.ParsePreview(body)
	if err != nil {
		h.writeError(w, nil, errors.Join(shared.ErrInvalidInput, err))
		return
	}

	job, err := h.engine.CreateJob(r.Context(), preview)
	if err != nil {
		h.writeError(w, nil, err)
		return
	}
	writeJSON(w, http.StatusCreated, job)
}

func (h *SyncHandler) history(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", 20)
	if err != nil {
		h.writeError(w, nil, err)
		return
	}

	jobs, err := h.engine.History(r.Context(), limit)
	if err != nil {
		h.writeError(w, nil, err)
		return
	}
	if jobs == nil {
		jobs = []*models.SyncJob{}
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (h *SyncHandler) job(w http.ResponseWriter, r *http.Request) {
	job, err := h.engine.Job(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, nil, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (h *SyncHandler) current(w http.ResponseWriter, r *http.Request) {
	job, err := h.engine.GetCurrentJob(r.Context())
	if err != nil {
		h.writeError(w, nil, err)
		return
	}
	if job == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (h *SyncHandler) process(w http.ResponseWriter, r *http.Request) {
	batch, err := intParam(r, "batch", h.batchSize)
	if err != nil {
		h.writeError(w, nil, err)
		return
	}

	cred, err := h.credentials(r.Context())
	if err != nil {
		h.writeError(w, nil, err)
		return
	}

	job, err := h.engine.ProcessBatch(r.Context(), cred, batch)
	if err != nil {
		h.writeError(w, job, err)
		return
	}
	if job == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (h *SyncHandler) pause(w http.ResponseWriter, r *http.Request) {
	req := pauseRequest{Reason: string(models.PauseUserPaused)}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			h.writeError(w, nil, errors.Join(shared.ErrInvalidInput, err))
			return
		}
	}

	reason, err := models.ParsePauseReason(req.Reason)
	if err != nil {
		h.writeError(w, nil, errors.Join(shared.ErrInvalidArgument, err))
		return
	}

	h.withCurrent(w, r, func(job *models.SyncJob) (*models.SyncJob, error) {
		return h.engine.PauseJob(r.Context(), job.ID, reason)
	})
}

func (h *SyncHandler) resume(w http.ResponseWriter, r *http.Request) {
	h.withCurrent(w, r, func(job *models.SyncJob) (*models.SyncJob, error) {
		return h.engine.ResumeJob(r.Context(), job.ID)
	})
}

// withCurrent applies fn to the active job, answering 404 when there is none.
func (h *SyncHandler) withCurrent(w http.ResponseWriter, r *http.Request, fn func(*models.SyncJob) (*models.SyncJob, error)) {
	current, err := h.engine.GetCurrentJob(r.Context())
	if err != nil {
		h.writeError(w, nil, err)
		return
	}
	if current == nil {
		h.writeError(w, nil, shared.ErrJobNotFound)
		return
	}

	job, err := fn(current)
	if err != nil {
		h.writeError(w, nil, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (h *SyncHandler) writeError(w http.ResponseWriter, job *models.SyncJob, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("sync request failed", "error", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), Job: job})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, shared.ErrJobConflict), errors.Is(err, shared.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, shared.ErrJobNotFound), errors.Is(err, shared.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrInvalidInput), errors.Is(err, shared.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrMissingCredentials), errors.Is(err, shared.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, shared.ErrQuotaExceeded):
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}

func intParam(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, errors.Join(shared.ErrInvalidArgument, errors.New(name+" must be a positive integer"))
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
