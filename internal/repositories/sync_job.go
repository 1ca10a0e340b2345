package repositories

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/ytsort/internal/models"
	"github.com/desertthunder/ytsort/internal/shared"
)

const syncJobColumns = `
	id, sequence, stage, pause_reason, paused_from_stage,
	current_stage_progress, current_stage_total, stage_results, errors,
	quota_used_this_sync, backup_snapshot_id, preview,
	started_at, completed_at, last_resumed_at, updated_at`

// SyncJobRepository persists [models.SyncJob] records.
//
// Every state change is a single conditional UPDATE so that callers never
// overwrite a transition made by someone else.
type SyncJobRepository struct {
	db *sql.DB
}

// NewSyncJobRepository creates a new SyncJobRepository with the given database connection
func NewSyncJobRepository(db *sql.DB) *SyncJobRepository {
	return &SyncJobRepository{db: db}
}

// Create inserts job with a generated ID and sequence.
//
// Returns [shared.ErrJobConflict] when another job is still active.
func (r *SyncJobRepository) Create(job *models.SyncJob) error {
	if err := job.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "sync_jobs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	results, err := json.Marshal(job.StageResults)
	if err != nil {
		return fmt.Errorf("failed to encode stage results: %w", err)
	}

	errs := job.Errors
	if errs == nil {
		errs = []models.SyncError{}
	}
	errorLog, err := json.Marshal(errs)
	if err != nil {
		return fmt.Errorf("failed to encode errors: %w", err)
	}

	var preview any
	if len(job.Preview) > 0 {
		preview = string(job.Preview)
	}

	id := shared.GenerateID()
	query := `
		INSERT INTO sync_jobs (
			id, sequence, stage, current_stage_progress, current_stage_total,
			stage_results, errors, quota_used_this_sync, preview, started_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		id,
		sequence,
		job.Stage,
		job.CurrentStageProgress,
		job.CurrentStageTotal,
		string(results),
		string(errorLog),
		job.QuotaUsedThisSync,
		preview,
		job.StartedAt,
		job.UpdatedAt,
	)
	if err != nil {
		if shared.IsUniqueViolation(err) {
			return fmt.Errorf("%w: %v", shared.ErrJobConflict, err)
		}
		return fmt.Errorf("failed to insert sync job: %w", err)
	}

	job.ID = id
	job.Sequence = sequence
	return nil
}

// Get retrieves a job by ID.
func (r *SyncJobRepository) Get(id string) (*models.SyncJob, error) {
	query := `SELECT` + syncJobColumns + ` FROM sync_jobs WHERE id = ?`

	job, err := r.scan(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrJobNotFound, id)
	}
	return job, err
}

// GetCurrent returns the most recently started job when it is not terminal.
//
// Returns nil without error when there is no current job.
func (r *SyncJobRepository) GetCurrent() (*models.SyncJob, error) {
	query := `SELECT` + syncJobColumns + ` FROM sync_jobs ORDER BY sequence DESC LIMIT 1`

	job, err := r.scan(r.db.QueryRow(query))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if job.Stage.IsTerminal() {
		return nil, nil
	}
	return job, nil
}

// List returns up to limit jobs, newest first. A non-positive limit returns all jobs.
func (r *SyncJobRepository) List(limit int) ([]*models.SyncJob, error) {
	query := `SELECT` + syncJobColumns + ` FROM sync_jobs ORDER BY sequence DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.SyncJob
	for rows.Next() {
		job, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return jobs, nil
}

// SetStage moves a job from one processing stage to another without touching counters.
func (r *SyncJobRepository) SetStage(id string, from, to models.Stage) error {
	query := `UPDATE sync_jobs SET stage = ?, updated_at = ? WHERE id = ? AND stage = ?`

	result, err := r.db.Exec(query, to, time.Now().UTC(), id, from)
	if err != nil {
		return fmt.Errorf("failed to set stage: %w", err)
	}
	return requireRow(result, fmt.Errorf("%w: job %s is not in stage %s", shared.ErrInvalidState, id, from))
}

// Advance moves an active job to next and resets the stage counters.
//
// Advancing to completed also stamps completed_at.
func (r *SyncJobRepository) Advance(id string, next models.Stage) error {
	if !next.IsProcessing() && next != models.StageCompleted {
		return fmt.Errorf("%w: cannot advance to %s", shared.ErrInvalidArgument, next)
	}

	now := time.Now().UTC()
	var completedAt any
	if next == models.StageCompleted {
		completedAt = now
	}

	query := `
		UPDATE sync_jobs
		SET stage = ?, current_stage_progress = 0, current_stage_total = 0,
			completed_at = COALESCE(?, completed_at), updated_at = ?
		WHERE id = ? AND stage NOT IN ('completed', 'failed', 'paused')
	`

	result, err := r.db.Exec(query, next, completedAt, now, id)
	if err != nil {
		return fmt.Errorf("failed to advance stage: %w", err)
	}
	return requireRow(result, fmt.Errorf("%w: job %s is not active", shared.ErrInvalidState, id))
}

// Pause records the job's current stage and moves it to paused.
func (r *SyncJobRepository) Pause(id string, reason models.PauseReason) error {
	query := `
		UPDATE sync_jobs
		SET paused_from_stage = stage, stage = 'paused', pause_reason = ?, updated_at = ?
		WHERE id = ? AND stage IN ('pending', 'backup', 'create_playlists', 'add_videos', 'delete_playlists')
	`

	result, err := r.db.Exec(query, reason, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to pause job: %w", err)
	}
	return requireRow(result, fmt.Errorf("%w: job %s cannot be paused", shared.ErrInvalidState, id))
}

// Resume restores a paused job to the stage it was paused from.
func (r *SyncJobRepository) Resume(id string) error {
	now := time.Now().UTC()
	query := `
		UPDATE sync_jobs
		SET stage = paused_from_stage, pause_reason = NULL, paused_from_stage = NULL,
			last_resumed_at = ?, updated_at = ?
		WHERE id = ? AND stage = 'paused'
	`

	result, err := r.db.Exec(query, now, now, id)
	if err != nil {
		return fmt.Errorf("failed to resume job: %w", err)
	}
	return requireRow(result, fmt.Errorf("%w: job %s is not paused", shared.ErrInvalidState, id))
}

// Fail moves a non-terminal job to failed and appends cause to its error log.
func (r *SyncJobRepository) Fail(id string, cause models.SyncError) error {
	entry, err := json.Marshal(cause)
	if err != nil {
		return fmt.Errorf("failed to encode error: %w", err)
	}

	query := `
		UPDATE sync_jobs
		SET stage = 'failed', pause_reason = NULL, paused_from_stage = NULL,
			errors = json_insert(errors, '$[#]', json(?)), updated_at = ?
		WHERE id = ? AND stage NOT IN ('completed', 'failed')
	`

	result, err := r.db.Exec(query, string(entry), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to mark job failed: %w", err)
	}
	return requireRow(result, fmt.Errorf("%w: job %s is already terminal", shared.ErrInvalidState, id))
}

// AppendError adds an entry to the job's error log. Entries are never removed.
func (r *SyncJobRepository) AppendError(id string, syncErr models.SyncError) error {
	if !syncErr.Stage.Valid() {
		return fmt.Errorf("%w: unknown stage %q", shared.ErrInvalidArgument, syncErr.Stage)
	}

	entry, err := json.Marshal(syncErr)
	if err != nil {
		return fmt.Errorf("failed to encode error: %w", err)
	}

	query := `
		UPDATE sync_jobs
		SET errors = json_insert(errors, '$[#]', json(?)), updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.Exec(query, string(entry), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to append error: %w", err)
	}
	return requireRow(result, fmt.Errorf("%w: %s", shared.ErrJobNotFound, id))
}

// UpdateProgress sets the stage counters and atomically adds quotaDelta to the job's quota usage.
func (r *SyncJobRepository) UpdateProgress(id string, progress, total, quotaDelta int) error {
	if progress < 0 || total < 0 || quotaDelta < 0 {
		return fmt.Errorf("%w: progress counters must not be negative", shared.ErrInvalidArgument)
	}

	query := `
		UPDATE sync_jobs
		SET current_stage_progress = ?, current_stage_total = ?,
			quota_used_this_sync = quota_used_this_sync + ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.Exec(query, progress, total, quotaDelta, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update progress: %w", err)
	}
	return requireRow(result, fmt.Errorf("%w: %s", shared.ErrJobNotFound, id))
}

// SetStageResult overwrites the result snapshot of one API-bound stage.
func (r *SyncJobRepository) SetStageResult(id string, stage models.Stage, result models.StageResult) error {
	if !stage.IsAPIBound() {
		return fmt.Errorf("%w: stage %s does not record results", shared.ErrInvalidArgument, stage)
	}

	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode stage result: %w", err)
	}

	query := `
		UPDATE sync_jobs
		SET stage_results = json_set(stage_results, ?, json(?)), updated_at = ?
		WHERE id = ?
	`

	res, err := r.db.Exec(query, "$."+string(stage), string(data), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to set stage result: %w", err)
	}
	return requireRow(res, fmt.Errorf("%w: %s", shared.ErrJobNotFound, id))
}

// SetBackupSnapshot links the job to its pre-sync snapshot.
func (r *SyncJobRepository) SetBackupSnapshot(id, snapshotID string) error {
	query := `UPDATE sync_jobs SET backup_snapshot_id = ?, updated_at = ? WHERE id = ?`

	result, err := r.db.Exec(query, snapshotID, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to set backup snapshot: %w", err)
	}
	return requireRow(result, fmt.Errorf("%w: %s", shared.ErrJobNotFound, id))
}

// scan decodes one sync_jobs row, validating enum and JSON columns.
func (r *SyncJobRepository) scan(row rowScanner) (*models.SyncJob, error) {
	var (
		job             models.SyncJob
		stage           string
		pauseReason     sql.NullString
		pausedFromStage sql.NullString
		stageResults    string
		errorLog        string
		backupSnapshot  sql.NullString
		preview         sql.NullString
		completedAt     sql.NullTime
		lastResumedAt   sql.NullTime
	)

	err := row.Scan(
		&job.ID, &job.Sequence, &stage, &pauseReason, &pausedFromStage,
		&job.CurrentStageProgress, &job.CurrentStageTotal, &stageResults, &errorLog,
		&job.QuotaUsedThisSync, &backupSnapshot, &preview,
		&job.StartedAt, &completedAt, &lastResumedAt, &job.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan sync job: %w", err)
	}

	malformed := func(field string, err error) error {
		return fmt.Errorf("%w: sync job %s %s: %v", shared.ErrMalformedRecord, job.ID, field, err)
	}

	if job.Stage, err = models.ParseStage(stage); err != nil {
		return nil, malformed("stage", err)
	}

	if pauseReason.Valid {
		reason, err := models.ParsePauseReason(pauseReason.String)
		if err != nil {
			return nil, malformed("pause_reason", err)
		}
		job.PauseReason = &reason
	}

	if pausedFromStage.Valid {
		from, err := models.ParseStage(pausedFromStage.String)
		if err != nil {
			return nil, malformed("paused_from_stage", err)
		}
		job.PausedFromStage = &from
	}

	if job.StageResults, err = models.DecodeStageResults([]byte(stageResults)); err != nil {
		return nil, malformed("stage_results", err)
	}

	if job.Errors, err = models.DecodeSyncErrors([]byte(errorLog)); err != nil {
		return nil, malformed("errors", err)
	}

	if preview.Valid && preview.String != "" {
		if job.Preview, err = models.ParsePreview([]byte(preview.String)); err != nil {
			return nil, malformed("preview", err)
		}
	}

	job.BackupSnapshotID = stringPtr(backupSnapshot)
	job.CompletedAt = timePtr(completedAt)
	job.LastResumedAt = timePtr(lastResumedAt)

	if err := job.Validate(); err != nil {
		return nil, malformed("record", err)
	}

	return &job, nil
}
