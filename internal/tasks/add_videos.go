package tasks

import (
	"context"
	"errors"

	"github.com/desertthunder/ytsort/internal/models"
	"github.com/desertthunder/ytsort/internal/quota"
	"github.com/desertthunder/ytsort/internal/services"
	"github.com/desertthunder/ytsort/internal/shared"
)

const reasonPlaylistNotCreated = "category playlist not created"

// AddVideos drains the job's pending operations, adding each video to its category's playlist.
//
// Only pending rows are ever touched; stage results are recomputed from the
// ledger after every batch so they always match it.
type AddVideos struct {
	*stageDeps
}

func (e *AddVideos) Stage() models.Stage { return models.StageAddVideos }

func (e *AddVideos) Run(ctx context.Context, job *models.SyncJob, cred services.Credential, batchSize int) (*models.SyncJob, error) {
	pending, err := e.ops.ListPending(job.ID, batchSize)
	if err != nil {
		return nil, err
	}

	if len(pending) == 0 {
		return e.finish(job)
	}

	anchors := make(map[string]*string)

	for _, op := range pending {
		if err := ctx.Err(); err != nil {
			return e.interrupted(job, err)
		}

		anchor, ok := anchors[op.CategoryID]
		if !ok {
			category, err := e.categories.Get(op.CategoryID)
			if err != nil {
				return nil, err
			}
			anchor = category.ExternalPlaylistID
			anchors[op.CategoryID] = anchor
		}

		status := models.OperationCompleted
		spent := 0

		if anchor == nil || *anchor == "" {
			status = models.OperationSkipped
			if err := e.ops.MarkSkipped(op.ID, reasonPlaylistNotCreated); err != nil {
				return nil, err
			}
		} else {
			err := e.service.AddVideoToPlaylist(ctx, cred, *anchor, op.ExternalVideoID)
			switch {
			case err == nil, errors.Is(err, shared.ErrConflict):
				if err := e.ops.MarkCompleted(op.ID); err != nil {
					return nil, err
				}
				if err := e.quota.Spend(context.WithoutCancel(ctx), quota.CostAddVideo); err != nil {
					return nil, err
				}
				spent = quota.CostAddVideo

			case errors.Is(err, shared.ErrQuotaExceeded):
				if err := e.refreshResult(job); err != nil {
					return nil, err
				}
				return e.pauseForQuota(job, err)

			case ctx.Err() != nil:
				return e.interrupted(job, ctx.Err())

			default:
				status = models.OperationFailed
				if err := e.ops.MarkFailed(op.ID, err.Error()); err != nil {
					return nil, err
				}
				if err := e.recordItemError(job, models.EntityVideo, op.VideoID, err); err != nil {
					return nil, err
				}
			}
		}

		resolved, total, err := e.ops.CountResolved(job.ID)
		if err != nil {
			return nil, err
		}
		if err := e.jobs.UpdateProgress(job.ID, resolved, total, spent); err != nil {
			return nil, err
		}

		sendProgress(e.progress, videoUpdate(job.ID, resolved, total, op, status))
	}

	remaining, err := e.ops.ListPending(job.ID, 1)
	if err != nil {
		return nil, err
	}
	if len(remaining) == 0 {
		return e.finish(job)
	}

	if err := e.refreshResult(job); err != nil {
		return nil, err
	}
	return e.jobs.Get(job.ID)
}

func (e *AddVideos) finish(job *models.SyncJob) (*models.SyncJob, error) {
	if err := e.refreshResult(job); err != nil {
		return nil, err
	}
	return e.advance(job, models.StageDeletePlaylists)
}

func (e *AddVideos) interrupted(job *models.SyncJob, cause error) (*models.SyncJob, error) {
	if err := e.refreshResult(job); err != nil {
		return nil, errors.Join(cause, err)
	}
	return nil, cause
}

// refreshResult recomputes the add_videos result from a full ledger aggregation.
func (e *AddVideos) refreshResult(job *models.SyncJob) error {
	counts, err := e.ops.CountByStatus(job.ID)
	if err != nil {
		return err
	}
	return e.jobs.SetStageResult(job.ID, models.StageAddVideos, counts.Result())
}
