package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/ytsort/internal/models"
	"github.com/desertthunder/ytsort/internal/shared"
)

// SyncOperationRepository persists the add-videos operation ledger.
//
// Status only moves out of pending; every Mark method is conditional on the row still being pending.
type SyncOperationRepository struct {
	db *sql.DB
}

// NewSyncOperationRepository creates a new SyncOperationRepository with the given database connection
func NewSyncOperationRepository(db *sql.DB) *SyncOperationRepository {
	return &SyncOperationRepository{db: db}
}

// Materialize creates one pending operation per (category, video) assignment of every
// non-protected category. Existing rows for the job are left untouched, so calling it
// twice is harmless. Returns the number of rows inserted.
func (r *SyncOperationRepository) Materialize(jobID string) (int, error) {
	query := `
		INSERT OR IGNORE INTO sync_video_operations (sync_job_id, category_id, video_id, external_video_id, status)
		SELECT ?, cv.category_id, cv.video_id, v.external_video_id, 'pending'
		FROM category_videos cv
		JOIN categories c ON c.id = cv.category_id
		JOIN videos v ON v.id = cv.video_id
		WHERE c.is_protected = 0
		ORDER BY c.name, c.id, cv.position, v.id
	`

	result, err := r.db.Exec(query, jobID)
	if err != nil {
		return 0, fmt.Errorf("failed to materialize operations: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return int(rows), nil
}

// ListPending returns up to limit pending operations for the job in ledger order.
func (r *SyncOperationRepository) ListPending(jobID string, limit int) ([]*models.SyncVideoOperation, error) {
	query := `
		SELECT id, sync_job_id, category_id, video_id, external_video_id, status, error_message, completed_at
		FROM sync_video_operations
		WHERE sync_job_id = ? AND status = 'pending'
		ORDER BY id ASC
		LIMIT ?
	`
	return r.query(query, jobID, limit)
}

// ListByJob returns every operation for the job in ledger order.
func (r *SyncOperationRepository) ListByJob(jobID string) ([]*models.SyncVideoOperation, error) {
	query := `
		SELECT id, sync_job_id, category_id, video_id, external_video_id, status, error_message, completed_at
		FROM sync_video_operations
		WHERE sync_job_id = ?
		ORDER BY id ASC
	`
	return r.query(query, jobID)
}

// MarkCompleted resolves a pending operation as completed.
func (r *SyncOperationRepository) MarkCompleted(id int64) error {
	return r.resolve(id, models.OperationCompleted, "")
}

// MarkFailed resolves a pending operation as failed with message.
func (r *SyncOperationRepository) MarkFailed(id int64, message string) error {
	return r.resolve(id, models.OperationFailed, message)
}

// MarkSkipped resolves a pending operation as skipped with reason.
func (r *SyncOperationRepository) MarkSkipped(id int64, reason string) error {
	return r.resolve(id, models.OperationSkipped, reason)
}

// CountByStatus aggregates the job's operations by status.
func (r *SyncOperationRepository) CountByStatus(jobID string) (models.StatusCounts, error) {
	var counts models.StatusCounts

	query := `
		SELECT status, COUNT(*)
		FROM sync_video_operations
		WHERE sync_job_id = ?
		GROUP BY status
	`

	rows, err := r.db.Query(query, jobID)
	if err != nil {
		return counts, fmt.Errorf("failed to count operations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return counts, fmt.Errorf("failed to scan operation count: %w", err)
		}

		switch models.OperationStatus(status) {
		case models.OperationPending:
			counts.Pending = n
		case models.OperationCompleted:
			counts.Completed = n
		case models.OperationFailed:
			counts.Failed = n
		case models.OperationSkipped:
			counts.Skipped = n
		default:
			return counts, fmt.Errorf("%w: operation status %q", shared.ErrMalformedRecord, status)
		}
	}

	if err := rows.Err(); err != nil {
		return counts, fmt.Errorf("row iteration error: %w", err)
	}

	return counts, nil
}

// CountResolved returns the number of non-pending operations and the job's total.
func (r *SyncOperationRepository) CountResolved(jobID string) (resolved, total int, err error) {
	query := `
		SELECT COALESCE(SUM(CASE WHEN status != 'pending' THEN 1 ELSE 0 END), 0), COUNT(*)
		FROM sync_video_operations
		WHERE sync_job_id = ?
	`

	if err := r.db.QueryRow(query, jobID).Scan(&resolved, &total); err != nil {
		return 0, 0, fmt.Errorf("failed to count resolved operations: %w", err)
	}
	return resolved, total, nil
}

func (r *SyncOperationRepository) resolve(id int64, status models.OperationStatus, message string) error {
	var errorMessage any
	if message != "" {
		errorMessage = message
	}

	query := `
		UPDATE sync_video_operations
		SET status = ?, error_message = ?, completed_at = ?
		WHERE id = ? AND status = 'pending'
	`

	result, err := r.db.Exec(query, status, errorMessage, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to mark operation %s: %w", status, err)
	}
	return requireRow(result, fmt.Errorf("%w: operation %d is not pending", shared.ErrInvalidState, id))
}

func (r *SyncOperationRepository) query(query string, args ...any) ([]*models.SyncVideoOperation, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query operations: %w", err)
	}
	defer rows.Close()

	var ops []*models.SyncVideoOperation
	for rows.Next() {
		var (
			op           models.SyncVideoOperation
			status       string
			errorMessage sql.NullString
			completedAt  sql.NullTime
		)

		err := rows.Scan(&op.ID, &op.SyncJobID, &op.CategoryID, &op.VideoID, &op.ExternalVideoID, &status, &errorMessage, &completedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan operation: %w", err)
		}

		if op.Status, err = models.ParseOperationStatus(status); err != nil {
			return nil, fmt.Errorf("%w: operation %d: %v", shared.ErrMalformedRecord, op.ID, err)
		}
		op.ErrorMessage = errorMessage.String
		op.CompletedAt = timePtr(completedAt)

		ops = append(ops, &op)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return ops, nil
}
