package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/desertthunder/ytsort/internal/formatter"
	"github.com/desertthunder/ytsort/internal/models"
	"github.com/desertthunder/ytsort/internal/services"
	"github.com/desertthunder/ytsort/internal/shared"
	"github.com/desertthunder/ytsort/internal/tasks"
	"github.com/urfave/cli/v3"
)

// batchRunner is the part of the engine the run loop drives.
type batchRunner interface {
	ProcessBatch(ctx context.Context, cred services.Credential, batchSize int) (*models.SyncJob, error)
	PauseJob(ctx context.Context, jobID string, reason models.PauseReason) (*models.SyncJob, error)
}

func (r *Runner) batchSize(cmd *cli.Command) int {
	if n := cmd.Int("batch"); n > 0 {
		return n
	}
	return r.config.Sync.BatchSize
}

// SyncStart creates a job from the library's pending work, or from --preview.
func (r *Runner) SyncStart(ctx context.Context, cmd *cli.Command) error {
	if err := r.configure(cmd); err != nil {
		return err
	}

	engine, err := r.engine(ctx)
	if err != nil {
		return err
	}

	var preview json.RawMessage
	if path := cmd.String("preview"); path != "" {
		if preview, err = readPreview(path); err != nil {
			return err
		}
	} else {
		summary, err := summarizeLibrary(r.db, r.config.Sync)
		if err != nil {
			return err
		}
		if preview, err = summary.PendingEstimation.Encode(); err != nil {
			return err
		}
	}

	job, err := engine.CreateJob(ctx, preview)
	if errors.Is(err, shared.ErrJobConflict) {
		return fmt.Errorf("%w: finish, resume or inspect it with 'ytsort sync status'", err)
	}
	if err != nil {
		return err
	}

	r.writePlainHeader(fmt.Sprintf("Sync job #%d", job.Sequence))
	r.writePlain("%s", formatter.RawPreviewToText(preview))
	r.writePlainln("✓ Created job %s", job.ID)
	r.writePlain("Run 'ytsort sync run' to process it, or 'ytsort sync watch' to drive it interactively.\n")
	return nil
}

func readPreview(path string) (json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read preview: %w", err)
	}

	preview, err := models.ParsePreview(data)
	if err != nil {
		return nil, fmt.Errorf("%w: preview %s: %v", shared.ErrInvalidInput, path, err)
	}
	return preview, nil
}

// SyncStatus prints the active job, falling back to the most recent one.
func (r *Runner) SyncStatus(ctx context.Context, cmd *cli.Command) error {
	if err := r.configure(cmd); err != nil {
		return err
	}

	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	engine, err := r.engine(ctx)
	if err != nil {
		return err
	}

	job, err := latestJob(ctx, engine)
	if err != nil {
		return err
	}
	if job == nil {
		return r.writePlain("No sync jobs yet.\n")
	}

	return formatter.WriteJob(r.output, job, format)
}

func latestJob(ctx context.Context, engine *tasks.Engine) (*models.SyncJob, error) {
	job, err := engine.GetCurrentJob(ctx)
	if err != nil || job != nil {
		return job, err
	}

	jobs, err := engine.History(ctx, 1)
	if err != nil || len(jobs) == 0 {
		return nil, err
	}
	return jobs[0], nil
}

// SyncStep processes one batch of the active job.
func (r *Runner) SyncStep(ctx context.Context, cmd *cli.Command) error {
	if err := r.configure(cmd); err != nil {
		return err
	}

	cred, err := r.credential(ctx)
	if err != nil {
		return err
	}

	r.progress = make(chan tasks.ProgressUpdate, 256)
	engine, err := r.engine(ctx)
	if err != nil {
		return err
	}

	job, err := engine.ProcessBatch(ctx, cred, r.batchSize(cmd))
	r.drainProgress()
	if job == nil && err == nil {
		return r.writePlain("No active sync job. Start one with 'ytsort sync start'.\n")
	}
	if job != nil {
		if werr := formatter.WriteJob(r.output, job, formatter.FormatText); werr != nil {
			return werr
		}
	}
	return err
}

// SyncRun processes batches every sync.poll_interval until the job completes,
// fails or pauses. SIGINT and SIGTERM pause the job once the in-flight batch is done.
func (r *Runner) SyncRun(ctx context.Context, cmd *cli.Command) error {
	if err := r.configure(cmd); err != nil {
		return err
	}

	cred, err := r.credential(ctx)
	if err != nil {
		return err
	}

	r.progress = make(chan tasks.ProgressUpdate, 256)
	engine, err := r.engine(ctx)
	if err != nil {
		return err
	}

	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupts)

	start := time.Now()
	job, err := r.runLoop(ctx, engine, cred, r.batchSize(cmd), r.config.Sync.PollInterval.Duration, interrupts)
	if job == nil && err == nil {
		return r.writePlain("No active sync job. Start one with 'ytsort sync start'.\n")
	}

	if job != nil {
		r.writePlain("\n")
		if werr := formatter.WriteJob(r.output, job, formatter.FormatText); werr != nil {
			return werr
		}
		r.writePlain("Elapsed: %s\n", shared.FormatDuration(time.Since(start)))
		if job.Stage == models.StagePaused && job.PauseReason != nil && *job.PauseReason == models.PauseQuotaExhausted {
			r.writePlain("Quota is low; run 'ytsort sync resume' and 'ytsort sync run' after the daily reset.\n")
		}
	}
	return err
}

// runLoop drives engine until the job leaves the processing stages.
//
// A signal on interrupts is only observed between batches, so the batch in
// flight always completes before the job is paused.
func (r *Runner) runLoop(ctx context.Context, engine batchRunner, cred services.Credential, batchSize int, interval time.Duration, interrupts <-chan os.Signal) (*models.SyncJob, error) {
	if interval <= 0 {
		interval = time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var job *models.SyncJob
	pause := func() (*models.SyncJob, error) {
		if job == nil {
			return nil, nil
		}
		r.writePlain("\n→ Interrupted, pausing job #%d\n", job.Sequence)
		return engine.PauseJob(ctx, job.ID, models.PauseUserPaused)
	}

	for {
		select {
		case <-interrupts:
			return pause()
		case <-ctx.Done():
			return job, ctx.Err()
		default:
		}

		next, err := engine.ProcessBatch(ctx, cred, batchSize)
		r.drainProgress()
		if next != nil {
			job = next
		}
		if err != nil {
			return job, err
		}
		if next == nil || !next.Stage.IsProcessing() {
			return next, nil
		}

		r.writePlain("%-16s %d/%d\n", next.Stage, next.CurrentStageProgress, next.CurrentStageTotal)

		select {
		case <-interrupts:
			return pause()
		case <-ctx.Done():
			return job, ctx.Err()
		case <-ticker.C:
		}
	}
}

// drainProgress prints the updates buffered during the last batch.
func (r *Runner) drainProgress() {
	if r.progress == nil {
		return
	}
	for {
		select {
		case update := <-r.progress:
			r.logger.Debug("progress", "job", update.JobID, "stage", update.Stage, "step", update.Step, "total", update.Total)
			r.writePlain("  %s\n", update.Message)
		default:
			return
		}
	}
}

// SyncPause pauses the active job with --reason.
func (r *Runner) SyncPause(ctx context.Context, cmd *cli.Command) error {
	if err := r.configure(cmd); err != nil {
		return err
	}

	reason, err := models.ParsePauseReason(cmd.String("reason"))
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}

	engine, err := r.engine(ctx)
	if err != nil {
		return err
	}

	current, err := engine.GetCurrentJob(ctx)
	if err != nil {
		return err
	}
	if current == nil {
		return fmt.Errorf("%w: no active sync job", shared.ErrJobNotFound)
	}

	job, err := engine.PauseJob(ctx, current.ID, reason)
	if err != nil {
		return err
	}

	r.writePlain("✓ Paused job #%d during %s (%s)\n", job.Sequence, *job.PausedFromStage, reason)
	return nil
}

// SyncResume returns the paused job to the stage it was paused from.
func (r *Runner) SyncResume(ctx context.Context, cmd *cli.Command) error {
	if err := r.configure(cmd); err != nil {
		return err
	}

	engine, err := r.engine(ctx)
	if err != nil {
		return err
	}

	current, err := engine.GetCurrentJob(ctx)
	if err != nil {
		return err
	}
	if current == nil {
		return fmt.Errorf("%w: no active sync job", shared.ErrJobNotFound)
	}

	job, err := engine.ResumeJob(ctx, current.ID)
	if err != nil {
		return err
	}

	r.writePlain("✓ Resumed job #%d at %s\n", job.Sequence, job.Stage)
	return nil
}

// SyncHistory lists past jobs, newest first.
func (r *Runner) SyncHistory(ctx context.Context, cmd *cli.Command) error {
	if err := r.configure(cmd); err != nil {
		return err
	}

	engine, err := r.engine(ctx)
	if err != nil {
		return err
	}

	jobs, err := engine.History(ctx, cmd.Int("limit"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(jobs, true)
	}
	return r.writePlain("%s", formatter.HistoryToText(jobs))
}

// SyncReport writes README.md, errors.csv and operations.csv for a job.
//
// Without an id argument the active or most recent job is reported.
func (r *Runner) SyncReport(ctx context.Context, cmd *cli.Command) error {
	if err := r.configure(cmd); err != nil {
		return err
	}

	engine, err := r.engine(ctx)
	if err != nil {
		return err
	}

	var job *models.SyncJob
	if id := cmd.StringArg("id"); id != "" {
		job, err = engine.Job(ctx, id)
	} else {
		job, err = latestJob(ctx, engine)
	}
	if err != nil {
		return err
	}
	if job == nil {
		return fmt.Errorf("%w: no sync jobs yet", shared.ErrJobNotFound)
	}

	ops, err := engine.Operations(ctx, job.ID)
	if err != nil {
		return err
	}

	result, err := formatter.WriteReport(job, ops, cmd.String("dir"))
	if err != nil {
		return err
	}

	r.logger.Info("report written", "job", job.ID, "dir", result.Directory)
	r.writePlain("✓ Report for job #%d written to %s\n", job.Sequence, result.Directory)
	r.writePlain("  %s\n  %s\n  %s\n", result.Report, result.Errors, result.Operations)
	return nil
}
