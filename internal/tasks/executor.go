package tasks

import (
	"context"
	"sort"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytsort/internal/models"
	"github.com/desertthunder/ytsort/internal/repositories"
	"github.com/desertthunder/ytsort/internal/services"
)

// Executor processes one bounded batch of an API-bound stage.
//
// Run persists every item's outcome before moving to the next one, decides on its
// own whether the stage is finished, and returns the reloaded job.
type Executor interface {
	Stage() models.Stage
	Run(ctx context.Context, job *models.SyncJob, cred services.Credential, batchSize int) (*models.SyncJob, error)
}

// QuotaGate reports and records spending of the remote daily budget.
type QuotaGate interface {
	Remaining(ctx context.Context) (int, error)
	Spend(ctx context.Context, units int) error
}

// stageDeps are the collaborators shared by the executors.
type stageDeps struct {
	jobs       *repositories.SyncJobRepository
	ops        *repositories.SyncOperationRepository
	categories *repositories.CategoryRepository
	playlists  *repositories.PlaylistRepository
	service    services.PlaylistService
	quota      QuotaGate
	logger     *log.Logger
	progress   chan<- ProgressUpdate
	now        func() time.Time
}

// advance moves the job to next and returns it reloaded.
func (d *stageDeps) advance(job *models.SyncJob, next models.Stage) (*models.SyncJob, error) {
	if err := d.jobs.Advance(job.ID, next); err != nil {
		return nil, err
	}

	d.logger.Info("stage advanced", "job", job.ID, "from", job.Stage, "to", next)
	sendProgress(d.progress, stageUpdate(job, next))
	return d.jobs.Get(job.ID)
}

// pauseForQuota stops the batch because the remote budget is spent.
func (d *stageDeps) pauseForQuota(job *models.SyncJob, err error) (*models.SyncJob, error) {
	if perr := d.jobs.Pause(job.ID, models.PauseQuotaExhausted); perr != nil {
		return nil, perr
	}

	d.logger.Warn("quota exhausted, pausing", "job", job.ID, "stage", job.Stage, "error", err)
	sendProgress(d.progress, pausedUpdate(job, models.PauseQuotaExhausted))
	return d.jobs.Get(job.ID)
}

// recordItemError appends an item-level failure to the job's error log.
func (d *stageDeps) recordItemError(job *models.SyncJob, entityType, entityID string, cause error) error {
	d.logger.Warn("item failed", "job", job.ID, "stage", job.Stage, entityType, entityID, "error", cause)

	return d.jobs.AppendError(job.ID, models.SyncError{
		Stage:      job.Stage,
		EntityType: entityType,
		EntityID:   entityID,
		Message:    cause.Error(),
		Timestamp:  d.now().UTC(),
	})
}

// failedIDs returns, sorted, the entities that already failed in the job's current stage.
func failedIDs(job *models.SyncJob, entityType string) []string {
	set := job.ErrorsFor(job.Stage, entityType)
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
