package tasks

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytsort/internal/models"
	"github.com/desertthunder/ytsort/internal/repositories"
	"github.com/desertthunder/ytsort/internal/services"
	"github.com/desertthunder/ytsort/internal/shared"
)

const (
	// DefaultBatchSize is the number of items a single ProcessBatch call handles.
	DefaultBatchSize = 10
	// DefaultPauseThreshold is the remaining quota below which API-bound stages pause.
	DefaultPauseThreshold = 1000
)

// Snapshotter captures the local library before anything remote is changed.
type Snapshotter interface {
	CreateSnapshot(ctx context.Context, trigger string) (*models.Snapshot, error)
}

// Engine drives a sync job through its stages one batch at a time.
//
// All mutating calls are serialised, so a pause requested while a batch runs
// takes effect once that batch has returned.
type Engine struct {
	mu          sync.Mutex
	deps        *stageDeps
	snapshotter Snapshotter
	threshold   int
	executors   map[models.Stage]Executor
}

// EngineOption configures an [Engine].
type EngineOption func(*Engine)

// WithPauseThreshold sets the remaining-quota floor for API-bound stages.
func WithPauseThreshold(units int) EngineOption {
	return func(e *Engine) { e.threshold = units }
}

// WithLogger sets the logger used for stage transitions and item failures.
func WithLogger(logger *log.Logger) EngineOption {
	return func(e *Engine) { e.deps.logger = logger }
}

// WithProgress sets the channel that receives per-item updates.
func WithProgress(progress chan<- ProgressUpdate) EngineOption {
	return func(e *Engine) { e.deps.progress = progress }
}

// WithClock overrides the time source used for error timestamps and anchors.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.deps.now = now }
}

// NewEngine wires the engine to the local store, the remote service and the quota gate.
func NewEngine(db *sql.DB, service services.PlaylistService, gate QuotaGate, snapshotter Snapshotter, opts ...EngineOption) *Engine {
	deps := &stageDeps{
		jobs:       repositories.NewSyncJobRepository(db),
		ops:        repositories.NewSyncOperationRepository(db),
		categories: repositories.NewCategoryRepository(db),
		playlists:  repositories.NewPlaylistRepository(db),
		service:    service,
		quota:      gate,
		logger:     log.NewWithOptions(os.Stderr, log.Options{Prefix: "sync"}),
		now:        time.Now,
	}

	e := &Engine{
		deps:        deps,
		snapshotter: snapshotter,
		threshold:   DefaultPauseThreshold,
	}
	for _, opt := range opts {
		opt(e)
	}

	e.executors = map[models.Stage]Executor{}
	for _, ex := range []Executor{
		&CreatePlaylists{stageDeps: deps},
		&AddVideos{stageDeps: deps},
		&DeletePlaylists{stageDeps: deps},
	} {
		e.executors[ex.Stage()] = ex
	}

	return e
}

// CreateJob starts a new pending job carrying preview, stored as given.
//
// Returns [shared.ErrJobConflict] while another job is active.
func (e *Engine) CreateJob(ctx context.Context, preview json.RawMessage) (*models.SyncJob, error) {
	preview, err := models.ParsePreview(preview)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	current, err := e.deps.jobs.GetCurrent()
	if err != nil {
		return nil, err
	}
	if current != nil {
		return nil, fmt.Errorf("%w: %s is %s", shared.ErrJobConflict, current.ID, current.Stage)
	}

	job := models.NewSyncJob(preview, e.deps.now().UTC())
	if err := e.deps.jobs.Create(job); err != nil {
		return nil, err
	}

	e.deps.logger.Info("sync job created", "job", job.ID, "sequence", job.Sequence)
	return e.deps.jobs.Get(job.ID)
}

// GetCurrentJob returns the active job, or nil when there is none.
func (e *Engine) GetCurrentJob(ctx context.Context) (*models.SyncJob, error) {
	return e.deps.jobs.GetCurrent()
}

// Job returns any job by ID.
func (e *Engine) Job(ctx context.Context, id string) (*models.SyncJob, error) {
	return e.deps.jobs.Get(id)
}

// History returns up to limit jobs, newest first.
func (e *Engine) History(ctx context.Context, limit int) ([]*models.SyncJob, error) {
	return e.deps.jobs.List(limit)
}

// Operations returns the per-video ledger of a job.
func (e *Engine) Operations(ctx context.Context, jobID string) ([]*models.SyncVideoOperation, error) {
	return e.deps.ops.ListByJob(jobID)
}

// ProcessBatch performs at most one batch of work on the current job.
//
// Returns nil when there is no current job. Paused jobs are returned unchanged.
// An unexpected error fails the job; the failed job is returned with the error.
// A cancelled context or a missing credential leaves the job where it was.
func (e *Engine) ProcessBatch(ctx context.Context, cred services.Credential, batchSize int) (*models.SyncJob, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	job, err := e.deps.jobs.GetCurrent()
	if err != nil || job == nil {
		return nil, err
	}
	if job.Stage == models.StagePaused {
		return job, nil
	}

	next, err := e.step(ctx, job, cred, batchSize)
	if err == nil {
		return next, nil
	}

	if ctx.Err() != nil || errors.Is(err, shared.ErrMissingCredentials) {
		reloaded, gerr := e.deps.jobs.Get(job.ID)
		if gerr != nil {
			return nil, errors.Join(err, gerr)
		}
		return reloaded, err
	}
	return e.fail(job, err)
}

func (e *Engine) step(ctx context.Context, job *models.SyncJob, cred services.Credential, batchSize int) (*models.SyncJob, error) {
	if job.Stage.IsAPIBound() {
		remaining, err := e.deps.quota.Remaining(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to read quota: %w", err)
		}
		if remaining < e.threshold {
			e.deps.logger.Warn("quota below threshold", "job", job.ID, "remaining", remaining, "threshold", e.threshold)
			return e.deps.pauseForQuota(job, shared.ErrQuotaExceeded)
		}
		if err := cred.Validate(); err != nil {
			return nil, err
		}
	}

	switch job.Stage {
	case models.StagePending:
		return e.deps.advance(job, models.StageBackup)
	case models.StageBackup:
		return e.backup(ctx, job)
	}

	executor, ok := e.executors[job.Stage]
	if !ok {
		return nil, fmt.Errorf("%w: no executor for stage %s", shared.ErrInvalidState, job.Stage)
	}
	return executor.Run(ctx, job, cred, batchSize)
}

// backup snapshots the library once per job and advances to create_playlists.
func (e *Engine) backup(ctx context.Context, job *models.SyncJob) (*models.SyncJob, error) {
	if job.BackupSnapshotID == nil {
		snapshot, err := e.snapshotter.CreateSnapshot(ctx, "pre-sync:"+job.ID)
		if err != nil {
			return nil, fmt.Errorf("backup failed: %w", err)
		}
		if err := e.deps.jobs.SetBackupSnapshot(job.ID, snapshot.ID); err != nil {
			return nil, err
		}
		e.deps.logger.Info("library snapshot taken", "job", job.ID, "snapshot", snapshot.ID, "location", snapshot.Location)
	}
	return e.deps.advance(job, models.StageCreatePlaylists)
}

// fail moves job to failed, recording cause as a job-level error.
func (e *Engine) fail(job *models.SyncJob, cause error) (*models.SyncJob, error) {
	e.deps.logger.Error("sync job failed", "job", job.ID, "stage", job.Stage, "error", cause)

	err := e.deps.jobs.Fail(job.ID, models.SyncError{
		Stage:      job.Stage,
		EntityType: models.EntityJob,
		EntityID:   job.ID,
		Message:    cause.Error(),
		Timestamp:  e.deps.now().UTC(),
	})
	if err != nil {
		return nil, errors.Join(cause, err)
	}

	failed, err := e.deps.jobs.Get(job.ID)
	if err != nil {
		return nil, errors.Join(cause, err)
	}
	return failed, cause
}

// PauseJob pauses an active job, remembering the stage to resume into.
func (e *Engine) PauseJob(ctx context.Context, jobID string, reason models.PauseReason) (*models.SyncJob, error) {
	if _, err := models.ParsePauseReason(string(reason)); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	job, err := e.deps.jobs.Get(jobID)
	if err != nil {
		return nil, err
	}
	if err := e.deps.jobs.Pause(jobID, reason); err != nil {
		return nil, err
	}

	e.deps.logger.Info("sync job paused", "job", jobID, "stage", job.Stage, "reason", reason)
	sendProgress(e.deps.progress, pausedUpdate(job, reason))
	return e.deps.jobs.Get(jobID)
}

// ResumeJob returns a paused job to the stage it was paused from.
//
// Resuming does not check quota; the next ProcessBatch does.
func (e *Engine) ResumeJob(ctx context.Context, jobID string) (*models.SyncJob, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.deps.jobs.Resume(jobID); err != nil {
		return nil, err
	}

	job, err := e.deps.jobs.Get(jobID)
	if err != nil {
		return nil, err
	}
	e.deps.logger.Info("sync job resumed", "job", jobID, "stage", job.Stage)
	return job, nil
}

// AdvanceStage moves an active job to next and resets its stage counters.
func (e *Engine) AdvanceStage(ctx context.Context, jobID string, next models.Stage) (*models.SyncJob, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	job, err := e.deps.jobs.Get(jobID)
	if err != nil {
		return nil, err
	}
	return e.deps.advance(job, next)
}

// RecordError appends an entry to a job's error log.
func (e *Engine) RecordError(ctx context.Context, jobID string, syncErr models.SyncError) error {
	if syncErr.Timestamp.IsZero() {
		syncErr.Timestamp = e.deps.now().UTC()
	}
	return e.deps.jobs.AppendError(jobID, syncErr)
}

// UpdateProgress sets the stage counters and adds quotaDelta to the job's quota usage.
func (e *Engine) UpdateProgress(ctx context.Context, jobID string, progress, total, quotaDelta int) error {
	return e.deps.jobs.UpdateProgress(jobID, progress, total, quotaDelta)
}
