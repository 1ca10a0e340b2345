package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/desertthunder/ytsort/internal/formatter"
	"github.com/desertthunder/ytsort/internal/models"
	"github.com/desertthunder/ytsort/internal/quota"
	"github.com/desertthunder/ytsort/internal/repositories"
	"github.com/desertthunder/ytsort/internal/shared"
	"github.com/urfave/cli/v3"
)

// libraryFile is the import format. It matches the body of a snapshot document,
// so `snapshot show` output can be imported back.
type libraryFile struct {
	Categories  []models.SnapshotCategory `json:"categories"`
	Videos      []models.SnapshotVideo    `json:"videos"`
	Assignments []models.VideoAssignment  `json:"assignments"`
	Playlists   []models.SnapshotPlaylist `json:"playlists"`
}

// importCounts reports inserted rows; rows already present are counted as skipped.
type importCounts struct {
	Categories  int `json:"categories"`
	Videos      int `json:"videos"`
	Assignments int `json:"assignments"`
	Playlists   int `json:"playlists"`
	Skipped     int `json:"skipped"`
}

// librarySummary is what `library show` prints.
type librarySummary struct {
	Categories        int             `json:"categories"`
	Protected         int             `json:"protected"`
	Provisioned       int             `json:"provisioned"`
	Videos            int             `json:"videos"`
	Assignments       int             `json:"assignments"`
	Playlists         int             `json:"playlists"`
	PlaylistsDeleted  int             `json:"playlists_deleted"`
	PendingEstimation *models.Preview `json:"pending"`
}

// LibraryImport loads categories, videos, assignments and superseded playlists from a JSON file.
func (r *Runner) LibraryImport(ctx context.Context, cmd *cli.Command) error {
	if err := r.configure(cmd); err != nil {
		return err
	}

	path := cmd.StringArg("file")
	if path == "" {
		return fmt.Errorf("%w: library file is required", shared.ErrMissingArgument)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read library file: %w", err)
	}

	var file libraryFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("%w: %s: %v", shared.ErrInvalidInput, path, err)
	}

	db, err := r.database()
	if err != nil {
		return err
	}

	r.logger.Info("importing library", "file", path,
		"categories", len(file.Categories), "videos", len(file.Videos), "playlists", len(file.Playlists))

	counts, err := importLibrary(db, &file)
	if err != nil {
		return err
	}

	r.writePlain("✓ Imported %s\n", path)
	r.writePlain("  Categories:  %d\n", counts.Categories)
	r.writePlain("  Videos:      %d\n", counts.Videos)
	r.writePlain("  Assignments: %d\n", counts.Assignments)
	r.writePlain("  Playlists:   %d\n", counts.Playlists)
	if counts.Skipped > 0 {
		r.writePlain("  Skipped %d rows already present\n", counts.Skipped)
	}
	return nil
}

// importLibrary inserts file into db. Videos and categories go first so assignments can reference them.
func importLibrary(db *sql.DB, file *libraryFile) (importCounts, error) {
	var counts importCounts

	categories := repositories.NewCategoryRepository(db)
	videos := repositories.NewVideoRepository(db)
	playlists := repositories.NewPlaylistRepository(db)

	insert := func(n *int, err error) error {
		switch {
		case err == nil:
			*n++
		case shared.IsUniqueViolation(err):
			counts.Skipped++
		default:
			return err
		}
		return nil
	}

	for _, c := range file.Categories {
		err := categories.Create(&models.Category{
			ID:                 c.ID,
			Name:               c.Name,
			IsProtected:        c.IsProtected,
			ExternalPlaylistID: c.ExternalPlaylistID,
		})
		if err := insert(&counts.Categories, err); err != nil {
			return counts, fmt.Errorf("category %q: %w", c.Name, err)
		}
	}

	for _, v := range file.Videos {
		err := videos.Create(&models.Video{ID: v.ID, ExternalVideoID: v.ExternalVideoID, Title: v.Title})
		if err := insert(&counts.Videos, err); err != nil {
			return counts, fmt.Errorf("video %q: %w", v.ExternalVideoID, err)
		}
	}

	for _, a := range file.Assignments {
		if err := categories.AssignVideo(a.CategoryID, a.VideoID, a.Position); err != nil {
			return counts, fmt.Errorf("assignment %s/%s: %w", a.CategoryID, a.VideoID, err)
		}
		counts.Assignments++
	}

	for _, p := range file.Playlists {
		err := playlists.Create(&models.Playlist{
			ID:                  p.ID,
			ExternalPlaylistID:  p.ExternalPlaylistID,
			Name:                p.Name,
			DeletedFromRemoteAt: p.DeletedFromRemoteAt,
		})
		if err := insert(&counts.Playlists, err); err != nil {
			return counts, fmt.Errorf("playlist %q: %w", p.ExternalPlaylistID, err)
		}
	}

	return counts, nil
}

// LibraryShow summarizes the local library and the work a sync would still do.
func (r *Runner) LibraryShow(ctx context.Context, cmd *cli.Command) error {
	if err := r.configure(cmd); err != nil {
		return err
	}

	db, err := r.database()
	if err != nil {
		return err
	}

	summary, err := summarizeLibrary(db, r.config.Sync)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(summary, true)
	}

	r.writePlainHeader("Library")
	r.writePlain("Categories:  %d (%d protected, %d provisioned)\n", summary.Categories, summary.Protected, summary.Provisioned)
	r.writePlain("Videos:      %d\n", summary.Videos)
	r.writePlain("Assignments: %d\n", summary.Assignments)
	r.writePlain("Playlists:   %d (%d deleted)\n\n", summary.Playlists, summary.PlaylistsDeleted)
	r.writePlain("Pending work:\n")
	return r.writePlain("%s", formatter.PreviewToText(summary.PendingEstimation))
}

func summarizeLibrary(db *sql.DB, cfg shared.SyncConfig) (*librarySummary, error) {
	categories := repositories.NewCategoryRepository(db)

	all, err := categories.List()
	if err != nil {
		return nil, err
	}
	videos, err := repositories.NewVideoRepository(db).List()
	if err != nil {
		return nil, err
	}
	assignments, err := categories.ListAssignments()
	if err != nil {
		return nil, err
	}
	playlistTotal, playlistsDeleted, err := repositories.NewPlaylistRepository(db).Count()
	if err != nil {
		return nil, err
	}

	summary := &librarySummary{
		Categories:       len(all),
		Videos:           len(videos),
		Assignments:      len(assignments),
		Playlists:        playlistTotal,
		PlaylistsDeleted: playlistsDeleted,
	}

	protected := make(map[string]bool, len(all))
	toCreate := 0
	for _, c := range all {
		protected[c.ID] = c.IsProtected
		switch {
		case c.IsProtected:
			summary.Protected++
		case c.Provisioned():
			summary.Provisioned++
		default:
			toCreate++
		}
	}

	toAdd := 0
	for _, a := range assignments {
		if !protected[a.CategoryID] {
			toAdd++
		}
	}

	summary.PendingEstimation = estimatePreview(toCreate, toAdd, playlistTotal-playlistsDeleted, cfg)
	return summary, nil
}

// estimatePreview prices a sync of the given counts against the configured daily budget.
func estimatePreview(categories, videos, playlists int, cfg shared.SyncConfig) *models.Preview {
	units := quota.Estimate(categories, videos, playlists)
	preview := &models.Preview{
		Categories:        categories,
		Videos:            videos,
		PlaylistsToDelete: playlists,
		EstimatedQuota:    units,
	}

	days := quota.EstimateDays(units, cfg.DailyQuotaLimit, cfg.QuotaPauseThreshold)
	if math.IsInf(days, 0) {
		preview.Notes = "quota_pause_threshold leaves no usable daily budget"
	} else {
		preview.EstimatedDays = days
	}
	return preview
}
