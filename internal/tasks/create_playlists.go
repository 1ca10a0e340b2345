package tasks

import (
	"context"
	"errors"

	"github.com/desertthunder/ytsort/internal/models"
	"github.com/desertthunder/ytsort/internal/quota"
	"github.com/desertthunder/ytsort/internal/services"
	"github.com/desertthunder/ytsort/internal/shared"
)

// CreatePlaylists creates a remote playlist for every non-protected category that lacks one.
//
// A category whose creation failed is not retried by the same job; its
// operations are materialised anyway and later skipped.
type CreatePlaylists struct {
	*stageDeps
}

func (e *CreatePlaylists) Stage() models.Stage { return models.StageCreatePlaylists }

func (e *CreatePlaylists) Run(ctx context.Context, job *models.SyncJob, cred services.Credential, batchSize int) (*models.SyncJob, error) {
	failed := failedIDs(job, models.EntityCategory)

	eligible, err := e.categories.ListEligible(batchSize, failed)
	if err != nil {
		return nil, err
	}

	total, anchored, err := e.categories.CountUnprotected()
	if err != nil {
		return nil, err
	}

	if len(eligible) == 0 {
		return e.finish(job, anchored, len(failed))
	}

	failedCount := len(failed)
	for _, category := range eligible {
		if err := ctx.Err(); err != nil {
			return e.interrupted(job, anchored, failedCount, err)
		}

		playlistID, err := e.service.CreatePlaylist(ctx, cred, category.Name)
		switch {
		case err == nil:
			if err := e.categories.SetExternalPlaylistID(category.ID, playlistID); err != nil {
				return nil, err
			}
			// The remote call already cost quota; record it even if ctx is cancelled.
			if err := e.quota.Spend(context.WithoutCancel(ctx), quota.CostCreatePlaylist); err != nil {
				return nil, err
			}

			anchored++
			if err := e.jobs.UpdateProgress(job.ID, anchored+failedCount, total, quota.CostCreatePlaylist); err != nil {
				return nil, err
			}

			e.logger.Info("playlist created", "job", job.ID, "category", category.Name, "playlist", playlistID)
			sendProgress(e.progress, playlistCreatedUpdate(job.ID, anchored+failedCount, total, category, playlistID))

		case errors.Is(err, shared.ErrQuotaExceeded):
			if err := e.setResult(job, anchored, failedCount); err != nil {
				return nil, err
			}
			return e.pauseForQuota(job, err)

		case ctx.Err() != nil:
			return e.interrupted(job, anchored, failedCount, ctx.Err())

		default:
			if err := e.recordItemError(job, models.EntityCategory, category.ID, err); err != nil {
				return nil, err
			}

			failed = append(failed, category.ID)
			failedCount++
			if err := e.jobs.UpdateProgress(job.ID, anchored+failedCount, total, 0); err != nil {
				return nil, err
			}
			sendProgress(e.progress, playlistFailedUpdate(job.ID, anchored+failedCount, total, category, err))
		}
	}

	remaining, err := e.categories.ListEligible(1, failed)
	if err != nil {
		return nil, err
	}
	if len(remaining) == 0 {
		return e.finish(job, anchored, failedCount)
	}

	if err := e.setResult(job, anchored, failedCount); err != nil {
		return nil, err
	}
	return e.jobs.Get(job.ID)
}

// finish records the final result, materialises the operation ledger and advances to add_videos.
func (e *CreatePlaylists) finish(job *models.SyncJob, anchored, failed int) (*models.SyncJob, error) {
	if err := e.setResult(job, anchored, failed); err != nil {
		return nil, err
	}

	n, err := e.ops.Materialize(job.ID)
	if err != nil {
		return nil, err
	}
	e.logger.Info("operations materialized", "job", job.ID, "operations", n)

	return e.advance(job, models.StageAddVideos)
}

// interrupted records the partial result before returning the cancellation.
func (e *CreatePlaylists) interrupted(job *models.SyncJob, anchored, failed int, cause error) (*models.SyncJob, error) {
	if err := e.setResult(job, anchored, failed); err != nil {
		return nil, errors.Join(cause, err)
	}
	return nil, cause
}

func (e *CreatePlaylists) setResult(job *models.SyncJob, succeeded, failed int) error {
	return e.jobs.SetStageResult(job.ID, models.StageCreatePlaylists, models.StageResult{
		Succeeded: succeeded,
		Failed:    failed,
	})
}
