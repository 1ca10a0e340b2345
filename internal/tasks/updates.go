package tasks

import (
	"fmt"

	"github.com/desertthunder/ytsort/internal/models"
)

// ProgressUpdate represents a progress event while a batch runs.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	JobID   string       // Job being processed
	Stage   models.Stage // Stage the update belongs to
	Step    int          // Items resolved in this stage so far
	Total   int          // Items in this stage
	Message string       // Human-readable message for display
	Data    any          // Optional item-specific data for advanced UIs
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func stageUpdate(job *models.SyncJob, next models.Stage) ProgressUpdate {
	return ProgressUpdate{
		JobID:   job.ID,
		Stage:   next,
		Message: fmt.Sprintf("Stage %s -> %s", job.Stage, next),
	}
}

func playlistCreatedUpdate(jobID string, step, total int, category *models.Category, playlistID string) ProgressUpdate {
	return ProgressUpdate{
		JobID:   jobID,
		Stage:   models.StageCreatePlaylists,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (ID: %s)", step, total, category.Name, playlistID),
		Data:    category,
	}
}

func playlistFailedUpdate(jobID string, step, total int, category *models.Category, err error) ProgressUpdate {
	return ProgressUpdate{
		JobID:   jobID,
		Stage:   models.StageCreatePlaylists,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, category.Name, err),
		Data:    category,
	}
}

func videoUpdate(jobID string, step, total int, op *models.SyncVideoOperation, status models.OperationStatus) ProgressUpdate {
	mark := "✓"
	switch status {
	case models.OperationFailed:
		mark = "✗"
	case models.OperationSkipped:
		mark = "-"
	}

	return ProgressUpdate{
		JobID:   jobID,
		Stage:   models.StageAddVideos,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s %s", step, total, mark, op.ExternalVideoID),
		Data:    op,
	}
}

func playlistDeletedUpdate(jobID string, step, total int, playlist *models.Playlist, err error) ProgressUpdate {
	msg := fmt.Sprintf("[%d/%d] ✓ deleted %s", step, total, playlist.Name)
	if err != nil {
		msg = fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, playlist.Name, err)
	}

	return ProgressUpdate{
		JobID:   jobID,
		Stage:   models.StageDeletePlaylists,
		Step:    step,
		Total:   total,
		Message: msg,
		Data:    playlist,
	}
}

func pausedUpdate(job *models.SyncJob, reason models.PauseReason) ProgressUpdate {
	return ProgressUpdate{
		JobID:   job.ID,
		Stage:   models.StagePaused,
		Message: fmt.Sprintf("Paused during %s: %s", job.Stage, reason),
	}
}
