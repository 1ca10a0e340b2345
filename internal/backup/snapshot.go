// Package backup takes point-in-time snapshots of the local library before a sync
// mutates anything remotely.
//
// A snapshot is one JSON document written through a [Provider] (local directory,
// S3 bucket or WebDAV share) and indexed in the snapshots table.
package backup

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytsort/internal/models"
	"github.com/desertthunder/ytsort/internal/repositories"
	"github.com/desertthunder/ytsort/internal/shared"
)

// Snapshotter writes and reads library snapshots.
type Snapshotter struct {
	categories *repositories.CategoryRepository
	videos     *repositories.VideoRepository
	playlists  *repositories.PlaylistRepository
	snapshots  *repositories.SnapshotRepository
	provider   Provider
	logger     *log.Logger
}

// NewSnapshotter creates a Snapshotter reading the library from db.
func NewSnapshotter(db *sql.DB, provider Provider, logger *log.Logger) *Snapshotter {
	if logger == nil {
		logger = log.Default()
	}

	return &Snapshotter{
		categories: repositories.NewCategoryRepository(db),
		videos:     repositories.NewVideoRepository(db),
		playlists:  repositories.NewPlaylistRepository(db),
		snapshots:  repositories.NewSnapshotRepository(db),
		provider:   provider,
		logger:     logger,
	}
}

// CreateSnapshot stores the current categories, videos, assignments and playlists.
func (s *Snapshotter) CreateSnapshot(ctx context.Context, trigger string) (*models.Snapshot, error) {
	doc, err := s.document(trigger)
	if err != nil {
		return nil, err
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}

	key := fmt.Sprintf("snapshot-%s-%s.json", doc.CreatedAt.Format("20060102T150405Z"), doc.ID)
	if err := s.provider.Upload(ctx, key, bytes.NewReader(data)); err != nil {
		return nil, err
	}

	snapshot := &models.Snapshot{
		ID:            doc.ID,
		Trigger:       trigger,
		Provider:      s.provider.Type(),
		Location:      key,
		CategoryCount: len(doc.Categories),
		VideoCount:    len(doc.Videos),
		CreatedAt:     doc.CreatedAt,
	}

	if err := s.snapshots.Create(snapshot); err != nil {
		return nil, err
	}

	s.logger.Info("snapshot stored", "snapshot", snapshot.ID, "provider", snapshot.Provider,
		"location", key, "categories", snapshot.CategoryCount, "videos", snapshot.VideoCount)

	return snapshot, nil
}

// Load reads a stored snapshot document back.
func (s *Snapshotter) Load(ctx context.Context, id string) (*models.SnapshotDocument, error) {
	record, err := s.snapshots.Get(id)
	if err != nil {
		return nil, err
	}

	if record.Provider != s.provider.Type() {
		return nil, fmt.Errorf("%w: snapshot %s is stored in %s, configured provider is %s",
			shared.ErrInvalidConfig, id, record.Provider, s.provider.Type())
	}

	body, err := s.provider.Download(ctx, record.Location)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var doc models.SnapshotDocument
	if err := json.NewDecoder(body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: snapshot %s: %v", shared.ErrMalformedRecord, id, err)
	}
	return &doc, nil
}

// List returns the snapshot index, newest first.
func (s *Snapshotter) List() ([]*models.Snapshot, error) {
	return s.snapshots.List()
}

func (s *Snapshotter) document(trigger string) (*models.SnapshotDocument, error) {
	categories, err := s.categories.List()
	if err != nil {
		return nil, err
	}
	videos, err := s.videos.List()
	if err != nil {
		return nil, err
	}
	assignments, err := s.categories.ListAssignments()
	if err != nil {
		return nil, err
	}
	playlists, err := s.playlists.List()
	if err != nil {
		return nil, err
	}

	doc := &models.SnapshotDocument{
		ID:          shared.GenerateID(),
		Trigger:     trigger,
		CreatedAt:   time.Now().UTC(),
		Categories:  make([]models.SnapshotCategory, 0, len(categories)),
		Videos:      make([]models.SnapshotVideo, 0, len(videos)),
		Assignments: assignments,
		Playlists:   make([]models.SnapshotPlaylist, 0, len(playlists)),
	}
	if doc.Assignments == nil {
		doc.Assignments = []models.VideoAssignment{}
	}

	for _, c := range categories {
		doc.Categories = append(doc.Categories, models.SnapshotCategory{
			ID: c.ID, Name: c.Name, IsProtected: c.IsProtected, ExternalPlaylistID: c.ExternalPlaylistID,
		})
	}
	for _, v := range videos {
		doc.Videos = append(doc.Videos, models.SnapshotVideo{ID: v.ID, ExternalVideoID: v.ExternalVideoID, Title: v.Title})
	}
	for _, p := range playlists {
		doc.Playlists = append(doc.Playlists, models.SnapshotPlaylist{
			ID: p.ID, ExternalPlaylistID: p.ExternalPlaylistID, Name: p.Name, DeletedFromRemoteAt: p.DeletedFromRemoteAt,
		})
	}

	return doc, nil
}
