package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/ytsort/internal/shared"
	"github.com/desertthunder/ytsort/internal/tasks"
	"github.com/desertthunder/ytsort/internal/ui"
	"github.com/urfave/cli/v3"
)

const tuiLogPath = "./tmp/ytsort-tui.log"

// SyncWatch launches the terminal UI that monitors and drives the active job.
func (r *Runner) SyncWatch(ctx context.Context, cmd *cli.Command) error {
	if err := r.configure(cmd); err != nil {
		return err
	}

	cred, err := r.credential(ctx)
	if err != nil {
		return err
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(tuiLogPath)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	shared.SetLogLevel(fileLogger, shared.ParseLogLevel(r.config.Log.Level))
	r.SetLogger(fileLogger)

	r.progress = make(chan tasks.ProgressUpdate, 256)
	engine, err := r.engine(ctx)
	if err != nil {
		return err
	}

	model := ui.NewModel(ctx, engine, cred, r.batchSize(cmd), r.config.Sync.PollInterval.Duration, r.progress)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
