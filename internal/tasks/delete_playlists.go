package tasks

import (
	"context"
	"errors"

	"github.com/desertthunder/ytsort/internal/models"
	"github.com/desertthunder/ytsort/internal/quota"
	"github.com/desertthunder/ytsort/internal/services"
	"github.com/desertthunder/ytsort/internal/shared"
)

// DeletePlaylists removes superseded playlists from the remote service.
//
// A playlist that is already gone remotely counts as deleted. A deletion that
// fails for another reason is recorded and not retried by the same job.
type DeletePlaylists struct {
	*stageDeps
}

func (e *DeletePlaylists) Stage() models.Stage { return models.StageDeletePlaylists }

func (e *DeletePlaylists) Run(ctx context.Context, job *models.SyncJob, cred services.Credential, batchSize int) (*models.SyncJob, error) {
	failed := failedIDs(job, models.EntityPlaylist)

	pending, err := e.playlists.ListPendingDeletion(batchSize, failed)
	if err != nil {
		return nil, err
	}

	total, deleted, err := e.playlists.Count()
	if err != nil {
		return nil, err
	}

	if len(pending) == 0 {
		return e.finish(job, deleted, len(failed))
	}

	failedCount := len(failed)
	for _, playlist := range pending {
		if err := ctx.Err(); err != nil {
			return e.interrupted(job, deleted, failedCount, err)
		}

		err := e.service.DeletePlaylist(ctx, cred, playlist.ExternalPlaylistID)
		switch {
		case err == nil, errors.Is(err, shared.ErrNotFound):
			if err := e.playlists.MarkDeletedFromRemote(playlist.ID, e.now()); err != nil {
				return nil, err
			}
			if err := e.quota.Spend(context.WithoutCancel(ctx), quota.CostDeletePlaylist); err != nil {
				return nil, err
			}

			deleted++
			if err := e.jobs.UpdateProgress(job.ID, deleted+failedCount, total, quota.CostDeletePlaylist); err != nil {
				return nil, err
			}

			e.logger.Info("playlist deleted", "job", job.ID, "playlist", playlist.ExternalPlaylistID)
			sendProgress(e.progress, playlistDeletedUpdate(job.ID, deleted+failedCount, total, playlist, nil))

		case errors.Is(err, shared.ErrQuotaExceeded):
			if err := e.setResult(job, deleted, failedCount); err != nil {
				return nil, err
			}
			return e.pauseForQuota(job, err)

		case ctx.Err() != nil:
			return e.interrupted(job, deleted, failedCount, ctx.Err())

		default:
			if err := e.recordItemError(job, models.EntityPlaylist, playlist.ID, err); err != nil {
				return nil, err
			}

			failed = append(failed, playlist.ID)
			failedCount++
			if err := e.jobs.UpdateProgress(job.ID, deleted+failedCount, total, 0); err != nil {
				return nil, err
			}
			sendProgress(e.progress, playlistDeletedUpdate(job.ID, deleted+failedCount, total, playlist, err))
		}
	}

	remaining, err := e.playlists.ListPendingDeletion(1, failed)
	if err != nil {
		return nil, err
	}
	if len(remaining) == 0 {
		return e.finish(job, deleted, failedCount)
	}

	if err := e.setResult(job, deleted, failedCount); err != nil {
		return nil, err
	}
	return e.jobs.Get(job.ID)
}

func (e *DeletePlaylists) finish(job *models.SyncJob, deleted, failed int) (*models.SyncJob, error) {
	if err := e.setResult(job, deleted, failed); err != nil {
		return nil, err
	}
	return e.advance(job, models.StageCompleted)
}

func (e *DeletePlaylists) interrupted(job *models.SyncJob, deleted, failed int, cause error) (*models.SyncJob, error) {
	if err := e.setResult(job, deleted, failed); err != nil {
		return nil, errors.Join(cause, err)
	}
	return nil, cause
}

func (e *DeletePlaylists) setResult(job *models.SyncJob, succeeded, failed int) error {
	return e.jobs.SetStageResult(job.ID, models.StageDeletePlaylists, models.StageResult{
		Succeeded: succeeded,
		Failed:    failed,
	})
}
