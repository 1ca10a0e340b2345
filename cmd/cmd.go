// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   defaultConfigPath,
	}
}

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format (text, markdown, json)",
		Value:   "text",
	}
}

func batchFlag() cli.Flag {
	return &cli.IntFlag{
		Name:    "batch",
		Aliases: []string{"b"},
		Usage:   "Items processed per batch (defaults to sync.batch_size)",
	}
}

// setupCommand handles setup operations for configuration and the database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write a config.toml template",
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Action: r.SetupDatabase,
			},
		},
	}
}

// authCommand handles authentication operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage authentication",
		Commands: []*cli.Command{
			{
				Name:    "youtube",
				Aliases: []string{"yt"},
				Usage:   "Authorize playlist access with Google OAuth2",
				Action:  r.AuthYouTube,
			},
			{
				Name:   "status",
				Usage:  "Check the saved YouTube token",
				Action: r.AuthStatus,
			},
		},
	}
}

// libraryCommand manages the local categories, videos and superseded playlists.
func libraryCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "library",
		Aliases: []string{"lib"},
		Usage:   "Local library operations",
		Commands: []*cli.Command{
			{
				Name:  "import",
				Usage: "Import categories, videos, assignments and playlists from a JSON file",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "file"},
				},
				Action: r.LibraryImport,
			},
			{
				Name:  "show",
				Usage: "Summarize the local library",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.LibraryShow,
			},
		},
	}
}

// syncCommand drives the batch sync engine.
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Push the local library to YouTube in resumable batches",
		Commands: []*cli.Command{
			{
				Name:  "start",
				Usage: "Create a sync job",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "preview",
						Usage: "JSON file with a precomputed preview",
					},
				},
				Action: r.SyncStart,
			},
			{
				Name:   "status",
				Usage:  "Show the active job, or the latest one",
				Flags:  []cli.Flag{formatFlag()},
				Action: r.SyncStatus,
			},
			{
				Name:   "step",
				Usage:  "Process a single batch",
				Flags:  []cli.Flag{batchFlag()},
				Action: r.SyncStep,
			},
			{
				Name:   "run",
				Usage:  "Process batches until the job finishes or pauses (Ctrl+C pauses)",
				Flags:  []cli.Flag{batchFlag()},
				Action: r.SyncRun,
			},
			{
				Name:  "pause",
				Usage: "Pause the active job",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "reason",
						Usage: "Pause reason (user_paused, errors_collected)",
						Value: "user_paused",
					},
				},
				Action: r.SyncPause,
			},
			{
				Name:   "resume",
				Usage:  "Resume the paused job",
				Action: r.SyncResume,
			},
			{
				Name:    "watch",
				Aliases: []string{"ui"},
				Usage:   "Monitor and drive the active job in a TUI",
				Flags:   []cli.Flag{batchFlag()},
				Action:  r.SyncWatch,
			},
			{
				Name:  "history",
				Usage: "List past jobs",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of jobs to list",
						Value: 20,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.SyncHistory,
			},
			{
				Name:  "report",
				Usage: "Write a job summary with error and operation CSVs",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "dir",
						Aliases: []string{"o"},
						Usage:   "Output directory (default: job-<sequence>)",
					},
				},
				Action: r.SyncReport,
			},
		},
	}
}

// snapshotCommand inspects pre-sync backups.
func snapshotCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "snapshot",
		Usage: "Library snapshots taken before each sync",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List snapshots",
				Action: r.SnapshotList,
			},
			{
				Name:  "create",
				Usage: "Take a snapshot now",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "trigger",
						Usage: "Label stored with the snapshot",
						Value: "manual",
					},
				},
				Action: r.SnapshotCreate,
			},
			{
				Name:  "show",
				Usage: "Print a snapshot document",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Action: r.SnapshotShow,
			},
		},
	}
}

// quotaCommand reports the daily API budget.
func quotaCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "quota",
		Usage:  "Show today's YouTube quota usage",
		Action: r.QuotaStatus,
	}
}

// serveCommand starts the HTTP API.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the sync API and OAuth callback over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (default: server.host:server.port)",
			},
		},
		Action: r.Serve,
	}
}
