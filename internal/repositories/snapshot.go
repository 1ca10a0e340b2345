package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/ytsort/internal/models"
	"github.com/desertthunder/ytsort/internal/shared"
)

// SnapshotRepository indexes stored library snapshots.
type SnapshotRepository struct {
	db *sql.DB
}

// NewSnapshotRepository creates a new SnapshotRepository with the given database connection
func NewSnapshotRepository(db *sql.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Create records a stored snapshot. A missing ID is generated.
func (r *SnapshotRepository) Create(snapshot *models.Snapshot) error {
	if snapshot.ID == "" {
		snapshot.ID = shared.GenerateID()
	}
	if snapshot.Location == "" {
		return fmt.Errorf("validation failed: snapshot location is required")
	}
	if snapshot.CreatedAt.IsZero() {
		snapshot.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO snapshots (id, trigger_name, provider, location, category_count, video_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		snapshot.ID,
		snapshot.Trigger,
		snapshot.Provider,
		snapshot.Location,
		snapshot.CategoryCount,
		snapshot.VideoCount,
		snapshot.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}
	return nil
}

// Get retrieves a snapshot record by ID.
func (r *SnapshotRepository) Get(id string) (*models.Snapshot, error) {
	query := `
		SELECT id, trigger_name, provider, location, category_count, video_count, created_at
		FROM snapshots
		WHERE id = ?
	`

	var s models.Snapshot
	err := r.db.QueryRow(query, id).Scan(&s.ID, &s.Trigger, &s.Provider, &s.Location, &s.CategoryCount, &s.VideoCount, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: snapshot %s", shared.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan snapshot: %w", err)
	}
	return &s, nil
}

// List returns every snapshot, newest first.
func (r *SnapshotRepository) List() ([]*models.Snapshot, error) {
	query := `
		SELECT id, trigger_name, provider, location, category_count, video_count, created_at
		FROM snapshots
		ORDER BY created_at DESC, id
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []*models.Snapshot
	for rows.Next() {
		var s models.Snapshot
		if err := rows.Scan(&s.ID, &s.Trigger, &s.Provider, &s.Location, &s.CategoryCount, &s.VideoCount, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snapshots = append(snapshots, &s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return snapshots, nil
}
