package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/ytsort/internal/models"
	"github.com/desertthunder/ytsort/internal/shared"
)

// VideoRepository persists library videos.
type VideoRepository struct {
	db *sql.DB
}

// NewVideoRepository creates a new VideoRepository with the given database connection
func NewVideoRepository(db *sql.DB) *VideoRepository {
	return &VideoRepository{db: db}
}

// Create inserts a video. A missing ID is generated.
func (r *VideoRepository) Create(video *models.Video) error {
	if video.ID == "" {
		video.ID = shared.GenerateID()
	}
	if err := video.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if video.CreatedAt.IsZero() {
		video.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO videos (id, external_video_id, title, created_at) VALUES (?, ?, ?, ?)`

	if _, err := r.db.Exec(query, video.ID, video.ExternalVideoID, video.Title, video.CreatedAt); err != nil {
		return fmt.Errorf("failed to insert video: %w", err)
	}
	return nil
}

// Get retrieves a video by ID.
func (r *VideoRepository) Get(id string) (*models.Video, error) {
	query := `SELECT id, external_video_id, title, created_at FROM videos WHERE id = ?`

	var v models.Video
	err := r.db.QueryRow(query, id).Scan(&v.ID, &v.ExternalVideoID, &v.Title, &v.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: video %s", shared.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan video: %w", err)
	}
	return &v, nil
}

// List returns every video in insertion order.
func (r *VideoRepository) List() ([]*models.Video, error) {
	query := `SELECT id, external_video_id, title, created_at FROM videos ORDER BY created_at, id`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query videos: %w", err)
	}
	defer rows.Close()

	var videos []*models.Video
	for rows.Next() {
		var v models.Video
		if err := rows.Scan(&v.ID, &v.ExternalVideoID, &v.Title, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan video: %w", err)
		}
		videos = append(videos, &v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return videos, nil
}
