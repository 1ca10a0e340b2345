package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/ytsort/internal/models"
	"github.com/desertthunder/ytsort/internal/shared"
)

// CategoryRepository persists categories and their video assignments.
type CategoryRepository struct {
	db *sql.DB
}

// NewCategoryRepository creates a new CategoryRepository with the given database connection
func NewCategoryRepository(db *sql.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// Create inserts a category. A missing ID is generated.
func (r *CategoryRepository) Create(category *models.Category) error {
	if category.ID == "" {
		category.ID = shared.GenerateID()
	}
	if err := category.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now().UTC()
	if category.CreatedAt.IsZero() {
		category.CreatedAt = now
	}
	category.UpdatedAt = now

	query := `
		INSERT INTO categories (id, name, is_protected, external_playlist_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		category.ID,
		category.Name,
		category.IsProtected,
		nullString(category.ExternalPlaylistID),
		category.CreatedAt,
		category.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert category: %w", err)
	}

	return nil
}

// Get retrieves a category by ID.
func (r *CategoryRepository) Get(id string) (*models.Category, error) {
	query := `
		SELECT id, name, is_protected, external_playlist_id, created_at, updated_at
		FROM categories
		WHERE id = ?
	`

	category, err := r.scan(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: category %s", shared.ErrNotFound, id)
	}
	return category, err
}

// List returns every category ordered by name.
func (r *CategoryRepository) List() ([]*models.Category, error) {
	query := `
		SELECT id, name, is_protected, external_playlist_id, created_at, updated_at
		FROM categories
		ORDER BY name, id
	`
	return r.query(query)
}

// ListEligible returns up to limit non-protected categories that have no remote playlist yet,
// leaving out the IDs in exclude.
func (r *CategoryRepository) ListEligible(limit int, exclude []string) ([]*models.Category, error) {
	clause, args := excludeClause("id", exclude)

	query := `
		SELECT id, name, is_protected, external_playlist_id, created_at, updated_at
		FROM categories
		WHERE is_protected = 0 AND external_playlist_id IS NULL` + clause + `
		ORDER BY name, id
		LIMIT ?
	`
	return r.query(query, append(args, limit)...)
}

// CountUnprotected returns the number of non-protected categories and how many of them are anchored.
func (r *CategoryRepository) CountUnprotected() (total, anchored int, err error) {
	query := `
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN external_playlist_id IS NOT NULL THEN 1 ELSE 0 END), 0)
		FROM categories
		WHERE is_protected = 0
	`

	if err := r.db.QueryRow(query).Scan(&total, &anchored); err != nil {
		return 0, 0, fmt.Errorf("failed to count categories: %w", err)
	}
	return total, anchored, nil
}

// SetExternalPlaylistID anchors the category to its remote playlist.
func (r *CategoryRepository) SetExternalPlaylistID(id, externalPlaylistID string) error {
	if externalPlaylistID == "" {
		return fmt.Errorf("%w: external playlist id is required", shared.ErrInvalidArgument)
	}

	query := `UPDATE categories SET external_playlist_id = ?, updated_at = ? WHERE id = ?`

	result, err := r.db.Exec(query, externalPlaylistID, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to set external playlist id: %w", err)
	}
	return requireRow(result, fmt.Errorf("%w: category %s", shared.ErrNotFound, id))
}

// AssignVideo places a video in a category at position. Re-assigning updates the position.
func (r *CategoryRepository) AssignVideo(categoryID, videoID string, position int) error {
	query := `
		INSERT INTO category_videos (category_id, video_id, position)
		VALUES (?, ?, ?)
		ON CONFLICT (category_id, video_id) DO UPDATE SET position = excluded.position
	`

	if _, err := r.db.Exec(query, categoryID, videoID, position); err != nil {
		return fmt.Errorf("failed to assign video: %w", err)
	}
	return nil
}

// ListAssignments returns every category/video assignment.
func (r *CategoryRepository) ListAssignments() ([]models.VideoAssignment, error) {
	query := `
		SELECT category_id, video_id, position
		FROM category_videos
		ORDER BY category_id, position, video_id
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments: %w", err)
	}
	defer rows.Close()

	var assignments []models.VideoAssignment
	for rows.Next() {
		var a models.VideoAssignment
		if err := rows.Scan(&a.CategoryID, &a.VideoID, &a.Position); err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		assignments = append(assignments, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return assignments, nil
}

func (r *CategoryRepository) query(query string, args ...any) ([]*models.Category, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var categories []*models.Category
	for rows.Next() {
		category, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, category)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return categories, nil
}

func (r *CategoryRepository) scan(row rowScanner) (*models.Category, error) {
	var (
		c                  models.Category
		externalPlaylistID sql.NullString
	)

	err := row.Scan(&c.ID, &c.Name, &c.IsProtected, &externalPlaylistID, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan category: %w", err)
	}

	c.ExternalPlaylistID = stringPtr(externalPlaylistID)
	return &c, nil
}
