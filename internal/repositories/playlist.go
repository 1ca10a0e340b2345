package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/ytsort/internal/models"
	"github.com/desertthunder/ytsort/internal/shared"
)

// PlaylistRepository persists the superseded remote playlists the sync deletes.
type PlaylistRepository struct {
	db *sql.DB
}

// NewPlaylistRepository creates a new PlaylistRepository with the given database connection
func NewPlaylistRepository(db *sql.DB) *PlaylistRepository {
	return &PlaylistRepository{db: db}
}

// Create inserts a playlist. A missing ID is generated.
func (r *PlaylistRepository) Create(playlist *models.Playlist) error {
	if playlist.ID == "" {
		playlist.ID = shared.GenerateID()
	}
	if err := playlist.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if playlist.CreatedAt.IsZero() {
		playlist.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO playlists (id, external_playlist_id, name, deleted_from_remote_at, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	var deletedAt any
	if playlist.DeletedFromRemoteAt != nil {
		deletedAt = *playlist.DeletedFromRemoteAt
	}

	_, err := r.db.Exec(query, playlist.ID, playlist.ExternalPlaylistID, playlist.Name, deletedAt, playlist.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert playlist: %w", err)
	}
	return nil
}

// Get retrieves a playlist by ID.
func (r *PlaylistRepository) Get(id string) (*models.Playlist, error) {
	query := `
		SELECT id, external_playlist_id, name, deleted_from_remote_at, created_at
		FROM playlists
		WHERE id = ?
	`

	playlist, err := r.scan(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: playlist %s", shared.ErrNotFound, id)
	}
	return playlist, err
}

// List returns every playlist ordered by name.
func (r *PlaylistRepository) List() ([]*models.Playlist, error) {
	query := `
		SELECT id, external_playlist_id, name, deleted_from_remote_at, created_at
		FROM playlists
		ORDER BY name, id
	`
	return r.query(query)
}

// ListPendingDeletion returns up to limit playlists not yet deleted remotely,
// leaving out the IDs in exclude.
func (r *PlaylistRepository) ListPendingDeletion(limit int, exclude []string) ([]*models.Playlist, error) {
	clause, args := excludeClause("id", exclude)

	query := `
		SELECT id, external_playlist_id, name, deleted_from_remote_at, created_at
		FROM playlists
		WHERE deleted_from_remote_at IS NULL` + clause + `
		ORDER BY name, id
		LIMIT ?
	`
	return r.query(query, append(args, limit)...)
}

// Count returns the number of playlists and how many are already deleted remotely.
func (r *PlaylistRepository) Count() (total, deleted int, err error) {
	query := `
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN deleted_from_remote_at IS NOT NULL THEN 1 ELSE 0 END), 0)
		FROM playlists
	`

	if err := r.db.QueryRow(query).Scan(&total, &deleted); err != nil {
		return 0, 0, fmt.Errorf("failed to count playlists: %w", err)
	}
	return total, deleted, nil
}

// MarkDeletedFromRemote sets the deletion anchor. An existing anchor is kept.
func (r *PlaylistRepository) MarkDeletedFromRemote(id string, at time.Time) error {
	query := `
		UPDATE playlists
		SET deleted_from_remote_at = COALESCE(deleted_from_remote_at, ?)
		WHERE id = ?
	`

	result, err := r.db.Exec(query, at.UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to mark playlist deleted: %w", err)
	}
	return requireRow(result, fmt.Errorf("%w: playlist %s", shared.ErrNotFound, id))
}

func (r *PlaylistRepository) query(query string, args ...any) ([]*models.Playlist, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlists: %w", err)
	}
	defer rows.Close()

	var playlists []*models.Playlist
	for rows.Next() {
		playlist, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		playlists = append(playlists, playlist)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return playlists, nil
}

func (r *PlaylistRepository) scan(row rowScanner) (*models.Playlist, error) {
	var (
		p         models.Playlist
		deletedAt sql.NullTime
	)

	err := row.Scan(&p.ID, &p.ExternalPlaylistID, &p.Name, &deletedAt, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan playlist: %w", err)
	}

	p.DeletedFromRemoteAt = timePtr(deletedAt)
	return &p, nil
}
