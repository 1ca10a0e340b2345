package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/ytsort/internal/shared"
	"github.com/urfave/cli/v3"
)

// SnapshotList prints the snapshot index, newest first.
func (r *Runner) SnapshotList(ctx context.Context, cmd *cli.Command) error {
	if err := r.configure(cmd); err != nil {
		return err
	}

	snapshotter, err := r.snapshotter(ctx)
	if err != nil {
		return err
	}

	snapshots, err := snapshotter.List()
	if err != nil {
		return err
	}

	if len(snapshots) == 0 {
		return r.writePlain("No snapshots yet.\n")
	}

	r.writePlain("Found %d snapshots:\n\n", len(snapshots))
	for _, s := range snapshots {
		r.writePlain("%s  %s\n", s.CreatedAt.Local().Format(time.DateTime), s.ID)
		r.writePlain("   Trigger: %s\n", s.Trigger)
		r.writePlain("   Stored:  %s (%s)\n", s.Location, s.Provider)
		r.writePlain("   Library: %d categories, %d videos\n\n", s.CategoryCount, s.VideoCount)
	}
	return nil
}

// SnapshotCreate snapshots the library outside of a sync.
func (r *Runner) SnapshotCreate(ctx context.Context, cmd *cli.Command) error {
	if err := r.configure(cmd); err != nil {
		return err
	}

	snapshotter, err := r.snapshotter(ctx)
	if err != nil {
		return err
	}

	snapshot, err := snapshotter.CreateSnapshot(ctx, cmd.String("trigger"))
	if err != nil {
		return err
	}

	r.writePlain("✓ Snapshot %s written to %s\n", snapshot.ID, snapshot.Location)
	return nil
}

// SnapshotShow downloads a snapshot and prints its document as JSON.
func (r *Runner) SnapshotShow(ctx context.Context, cmd *cli.Command) error {
	if err := r.configure(cmd); err != nil {
		return err
	}

	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: snapshot id is required", shared.ErrMissingArgument)
	}

	snapshotter, err := r.snapshotter(ctx)
	if err != nil {
		return err
	}

	doc, err := snapshotter.Load(ctx, id)
	if err != nil {
		return err
	}
	return r.writeJSON(doc, true)
}

// QuotaStatus reports today's spend against the daily limit.
func (r *Runner) QuotaStatus(ctx context.Context, cmd *cli.Command) error {
	if err := r.configure(cmd); err != nil {
		return err
	}

	gate, err := r.quotaGate()
	if err != nil {
		return err
	}

	used, err := gate.Used(ctx)
	if err != nil {
		return err
	}
	remaining, err := gate.Remaining(ctx)
	if err != nil {
		return err
	}

	resetAt := gate.ResetAt()
	r.writePlain("Used:      %d / %d units (%.1f%%)\n", used, gate.Limit(), shared.Percent(used, gate.Limit()))
	r.writePlain("Remaining: %d units\n", remaining)
	r.writePlain("Pauses below: %d units\n", r.config.Sync.QuotaPauseThreshold)
	r.writePlain("Resets in: %s (%s)\n", shared.FormatDuration(time.Until(resetAt)), resetAt.Local().Format(time.DateTime))
	return nil
}
