package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytsort/internal/models"
	"github.com/desertthunder/ytsort/internal/services"
	"github.com/desertthunder/ytsort/internal/shared"
	"github.com/desertthunder/ytsort/internal/tasks"
	tu "github.com/desertthunder/ytsort/internal/testing"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

const libraryJSON = `{
  "categories": [
    {"id": "c1", "name": "Jazz"},
    {"id": "c2", "name": "Rock"},
    {"id": "c3", "name": "Keep", "is_protected": true}
  ],
  "videos": [
    {"id": "v1", "external_video_id": "yt1", "title": "One"},
    {"id": "v2", "external_video_id": "yt2", "title": "Two"},
    {"id": "v3", "external_video_id": "yt3", "title": "Three"}
  ],
  "assignments": [
    {"category_id": "c1", "video_id": "v1", "position": 0},
    {"category_id": "c1", "video_id": "v2", "position": 1},
    {"category_id": "c2", "video_id": "v3", "position": 0},
    {"category_id": "c3", "video_id": "v1", "position": 0}
  ],
  "playlists": [
    {"id": "p1", "external_playlist_id": "PLold", "name": "Old Mix"}
  ]
}`

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func writeLibrary(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "library.json")
	if err := os.WriteFile(path, []byte(libraryJSON), 0o644); err != nil {
		t.Fatalf("failed to write library: %v", err)
	}
	return path
}

func decodeLibrary(t *testing.T) *libraryFile {
	t.Helper()

	var file libraryFile
	if err := json.Unmarshal([]byte(libraryJSON), &file); err != nil {
		t.Fatalf("failed to decode library: %v", err)
	}
	return &file
}

// newTestRunner returns a runner over an in-memory database with a saved, valid token.
func newTestRunner(t *testing.T) (*Runner, *tu.MockService, *bytes.Buffer) {
	t.Helper()

	dir := t.TempDir()
	config := shared.DefaultConfig()
	config.Credentials.YouTube.TokenPath = filepath.Join(dir, "token.json")
	config.Snapshot.Dir = filepath.Join(dir, "snapshots")
	config.Sync.BatchSize = 2
	config.Sync.PollInterval = shared.Duration{Duration: time.Millisecond}

	tok := &oauth2.Token{AccessToken: "test", RefreshToken: "refresh", Expiry: time.Now().Add(time.Hour)}
	if err := services.SaveToken(config.Credentials.YouTube.TokenPath, tok); err != nil {
		t.Fatalf("failed to save token: %v", err)
	}

	service := tu.NewMockService()
	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: defaultConfigPath,
		Service:    service,
		Logger:     log.New(io.Discard),
		Output:     output,
		DB:         setupTestDB(t),
	})
	return runner, service, output
}

func runApp(r *Runner, args ...string) error {
	app := &cli.Command{
		Name:     "ytsort",
		Flags:    []cli.Flag{configFlag()},
		Commands: r.register(),
	}
	return app.Run(context.Background(), append([]string{"ytsort"}, args...))
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}
			service := tu.NewMockService()
			db := setupTestDB(t)

			runner := NewRunner(RunnerOpts{
				Config:     config,
				Logger:     logger,
				Output:     output,
				HTTPClient: httpClient,
				Service:    service,
				DB:         db,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
			if runner.service != service {
				t.Error("expected service to be set")
			}
			if runner.db != db {
				t.Error("expected db to be set")
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{
				Config: nil,
			})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
		})

		t.Run("with nil logger uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{
				Logger: nil,
			})

			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{
				Output: nil,
			})

			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})

		t.Run("with nil httpClient uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{
				HTTPClient: nil,
			})

			if runner.httpClient != http.DefaultClient {
				t.Error("expected httpClient to default to http.DefaultClient")
			}
		})

		t.Run("with configPath sets field", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{
				ConfigPath: "/test/path/config.toml",
			})

			if runner.configPath != "/test/path/config.toml" {
				t.Errorf("expected configPath to be set, got %s", runner.configPath)
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			data := map[string]string{"key": "value"}
			err := runner.writeJSON(data, true)

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			data := map[string]string{"key": "value"}
			err := runner.writeJSON(data, false)

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			expected := `{"key":"value"}` + "\n"
			if result != expected {
				t.Errorf("expected %q, got %q", expected, result)
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			// channels cannot be marshaled to JSON
			data := make(chan int)
			err := runner.writeJSON(data, false)

			if err == nil {
				t.Fatal("expected error for non-serializable data")
			}
			if !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			failing := &tu.FWriter{}
			runner := NewRunner(RunnerOpts{Output: failing})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)

			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)

			if err == nil {
				t.Fatal("expected error writing newline")
			}
			if !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if result := output.String(); result != "hello world" {
				t.Errorf("expected 'hello world', got %q", result)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writePlain("test")

			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		names := make(map[string]bool)
		for i, cmd := range commands {
			if cmd == nil {
				t.Fatalf("command at index %d is nil", i)
			}
			names[cmd.Name] = true
		}

		for _, want := range []string{"setup", "auth", "library", "sync", "snapshot", "quota", "serve"} {
			if !names[want] {
				t.Errorf("expected %q command to be registered", want)
			}
		}
	})

	t.Run("configure", func(t *testing.T) {
		t.Run("loads a different config file", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "other.toml")
			if err := shared.CreateConfigFile(path); err != nil {
				t.Fatalf("failed to write config: %v", err)
			}

			runner := NewRunner(RunnerOpts{ConfigPath: defaultConfigPath, Logger: log.New(io.Discard)})
			original := runner.config

			cmd := &cli.Command{
				Name:   "test",
				Flags:  []cli.Flag{configFlag()},
				Action: func(ctx context.Context, cmd *cli.Command) error { return runner.configure(cmd) },
			}
			if err := cmd.Run(context.Background(), []string{"test", "--config", path}); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if runner.configPath != path {
				t.Errorf("expected configPath %s, got %s", path, runner.configPath)
			}
			if runner.config == original {
				t.Error("expected config to be replaced")
			}
		})

		t.Run("missing file", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{ConfigPath: defaultConfigPath, Logger: log.New(io.Discard)})

			cmd := &cli.Command{
				Name:   "test",
				Flags:  []cli.Flag{configFlag()},
				Action: func(ctx context.Context, cmd *cli.Command) error { return runner.configure(cmd) },
			}
			err := cmd.Run(context.Background(), []string{"test", "--config", filepath.Join(t.TempDir(), "nope.toml")})
			if err == nil {
				t.Fatal("expected error for missing config")
			}
		})
	})

	t.Run("credential", func(t *testing.T) {
		t.Run("missing token", func(t *testing.T) {
			runner, _, _ := newTestRunner(t)
			runner.config.Credentials.YouTube.TokenPath = filepath.Join(t.TempDir(), "missing.json")

			_, err := runner.credential(context.Background())
			if !errors.Is(err, shared.ErrNotAuthenticated) {
				t.Errorf("expected ErrNotAuthenticated, got %v", err)
			}
		})

		t.Run("valid token", func(t *testing.T) {
			runner, _, _ := newTestRunner(t)

			cred, err := runner.credential(context.Background())
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if cred.Token.AccessToken != "test" {
				t.Errorf("expected saved access token, got %q", cred.Token.AccessToken)
			}
		})

		t.Run("refresh failure", func(t *testing.T) {
			runner, _, _ := newTestRunner(t)
			runner.httpClient = &http.Client{Transport: tu.NewMockRoundTripper(nil, errors.New("connection refused"))}

			expired := &oauth2.Token{AccessToken: "old", RefreshToken: "refresh", Expiry: time.Now().Add(-time.Hour)}
			if err := services.SaveToken(runner.tokenPath(), expired); err != nil {
				t.Fatalf("failed to save token: %v", err)
			}

			_, err := runner.credential(context.Background())
			if !errors.Is(err, shared.ErrAuthFailed) {
				t.Errorf("expected ErrAuthFailed, got %v", err)
			}
		})

		t.Run("missing client", func(t *testing.T) {
			runner, _, _ := newTestRunner(t)
			runner.config.Credentials.YouTube.ClientID = ""

			_, err := runner.credential(context.Background())
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})
	})
}

func TestLibrary(t *testing.T) {
	t.Run("import", func(t *testing.T) {
		db := setupTestDB(t)

		counts, err := importLibrary(db, decodeLibrary(t))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		want := importCounts{Categories: 3, Videos: 3, Assignments: 4, Playlists: 1}
		if counts != want {
			t.Errorf("expected %+v, got %+v", want, counts)
		}
	})

	t.Run("import twice skips existing rows", func(t *testing.T) {
		db := setupTestDB(t)

		if _, err := importLibrary(db, decodeLibrary(t)); err != nil {
			t.Fatalf("first import failed: %v", err)
		}
		counts, err := importLibrary(db, decodeLibrary(t))
		if err != nil {
			t.Fatalf("second import failed: %v", err)
		}

		if counts.Skipped != 7 {
			t.Errorf("expected 7 skipped rows, got %d", counts.Skipped)
		}
		if counts.Categories != 0 || counts.Videos != 0 || counts.Playlists != 0 {
			t.Errorf("expected no new rows, got %+v", counts)
		}
	})

	t.Run("assignment to unknown video", func(t *testing.T) {
		db := setupTestDB(t)
		file := decodeLibrary(t)
		file.Assignments = append(file.Assignments, models.VideoAssignment{CategoryID: "c1", VideoID: "ghost"})

		if _, err := importLibrary(db, file); err == nil {
			t.Fatal("expected foreign key error")
		}
	})

	t.Run("summary", func(t *testing.T) {
		db := setupTestDB(t)
		if _, err := importLibrary(db, decodeLibrary(t)); err != nil {
			t.Fatalf("import failed: %v", err)
		}

		summary, err := summarizeLibrary(db, shared.DefaultConfig().Sync)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if summary.Categories != 3 || summary.Protected != 1 || summary.Provisioned != 0 {
			t.Errorf("unexpected category counts: %+v", summary)
		}
		if summary.Assignments != 4 || summary.Playlists != 1 {
			t.Errorf("unexpected counts: %+v", summary)
		}

		p := summary.PendingEstimation
		if p.Categories != 2 || p.Videos != 3 || p.PlaylistsToDelete != 1 {
			t.Errorf("expected 2/3/1 pending, got %+v", p)
		}
		if p.EstimatedQuota != 300 {
			t.Errorf("expected 300 units, got %d", p.EstimatedQuota)
		}
		if p.EstimatedDays != 0.1 {
			t.Errorf("expected 0.1 days, got %v", p.EstimatedDays)
		}
	})

	t.Run("estimate with no usable budget", func(t *testing.T) {
		cfg := shared.DefaultConfig().Sync
		cfg.QuotaPauseThreshold = cfg.DailyQuotaLimit

		p := estimatePreview(1, 1, 1, cfg)
		if p.EstimatedDays != 0 {
			t.Errorf("expected zero days, got %v", p.EstimatedDays)
		}
		if p.Notes == "" {
			t.Error("expected a note explaining the estimate")
		}
		if _, err := json.Marshal(p); err != nil {
			t.Errorf("expected preview to encode, got %v", err)
		}
	})
}

// interruptingEngine signals an interrupt while its first batch runs.
type interruptingEngine struct {
	job        *models.SyncJob
	interrupts chan os.Signal
	batches    int
	paused     []models.PauseReason
}

func (e *interruptingEngine) ProcessBatch(ctx context.Context, cred services.Credential, batchSize int) (*models.SyncJob, error) {
	e.batches++
	e.interrupts <- os.Interrupt
	return e.job, nil
}

func (e *interruptingEngine) PauseJob(ctx context.Context, jobID string, reason models.PauseReason) (*models.SyncJob, error) {
	e.paused = append(e.paused, reason)
	paused := *e.job
	paused.Stage = models.StagePaused
	paused.PauseReason = &reason
	return &paused, nil
}

func TestRunLoop(t *testing.T) {
	cred := services.NewCredential(&oauth2.Token{AccessToken: "test"})

	t.Run("runs to completion", func(t *testing.T) {
		runner, service, output := newTestRunner(t)
		if _, err := importLibrary(runner.db, decodeLibrary(t)); err != nil {
			t.Fatalf("import failed: %v", err)
		}

		runner.progress = make(chan tasks.ProgressUpdate, 256)
		engine, err := runner.engine(context.Background())
		if err != nil {
			t.Fatalf("failed to build engine: %v", err)
		}
		if _, err := engine.CreateJob(context.Background(), nil); err != nil {
			t.Fatalf("failed to create job: %v", err)
		}

		job, err := runner.runLoop(context.Background(), engine, cred, 2, time.Millisecond, make(chan os.Signal))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if job.Stage != models.StageCompleted {
			t.Fatalf("expected completed, got %s", job.Stage)
		}

		if n := len(service.Calls(tu.OpCreate)); n != 2 {
			t.Errorf("expected 2 creates, got %d", n)
		}
		if n := len(service.Calls(tu.OpAdd)); n != 3 {
			t.Errorf("expected 3 adds, got %d", n)
		}
		if n := len(service.Calls(tu.OpDelete)); n != 1 {
			t.Errorf("expected 1 delete, got %d", n)
		}
		if job.QuotaUsedThisSync != 300 {
			t.Errorf("expected 300 units used, got %d", job.QuotaUsedThisSync)
		}
		if !strings.Contains(output.String(), "Jazz") {
			t.Errorf("expected progress messages in output, got %s", output.String())
		}
	})

	t.Run("interrupt pauses after the batch", func(t *testing.T) {
		runner, _, _ := newTestRunner(t)
		interrupts := make(chan os.Signal, 1)
		engine := &interruptingEngine{
			job:        &models.SyncJob{ID: "job-1", Sequence: 1, Stage: models.StageAddVideos},
			interrupts: interrupts,
		}

		job, err := runner.runLoop(context.Background(), engine, cred, 2, time.Hour, interrupts)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if engine.batches != 1 {
			t.Errorf("expected the in-flight batch to finish, got %d batches", engine.batches)
		}
		if len(engine.paused) != 1 || engine.paused[0] != models.PauseUserPaused {
			t.Errorf("expected one user_paused pause, got %v", engine.paused)
		}
		if job.Stage != models.StagePaused {
			t.Errorf("expected paused job, got %s", job.Stage)
		}
	})

	t.Run("no active job", func(t *testing.T) {
		runner, _, _ := newTestRunner(t)
		engine, err := runner.engine(context.Background())
		if err != nil {
			t.Fatalf("failed to build engine: %v", err)
		}

		job, err := runner.runLoop(context.Background(), engine, cred, 2, time.Millisecond, make(chan os.Signal))
		if job != nil || err != nil {
			t.Errorf("expected nil job and error, got %v, %v", job, err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		runner, _, _ := newTestRunner(t)
		engine, err := runner.engine(context.Background())
		if err != nil {
			t.Fatalf("failed to build engine: %v", err)
		}

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err = runner.runLoop(ctx, engine, cred, 2, time.Millisecond, make(chan os.Signal))
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestCommands(t *testing.T) {
	t.Run("full sync", func(t *testing.T) {
		runner, service, output := newTestRunner(t)
		reportDir := filepath.Join(t.TempDir(), "report")

		if err := runApp(runner, "library", "import", writeLibrary(t)); err != nil {
			t.Fatalf("library import failed: %v", err)
		}
		if !strings.Contains(output.String(), "Categories:  3") {
			t.Errorf("expected import counts, got %s", output.String())
		}

		if err := runApp(runner, "sync", "start"); err != nil {
			t.Fatalf("sync start failed: %v", err)
		}
		if !strings.Contains(output.String(), "Estimated quota: 300 units") {
			t.Errorf("expected preview in output, got %s", output.String())
		}

		if err := runApp(runner, "sync", "start"); !errors.Is(err, shared.ErrJobConflict) {
			t.Errorf("expected ErrJobConflict for a second job, got %v", err)
		}

		if err := runApp(runner, "sync", "run"); err != nil {
			t.Fatalf("sync run failed: %v", err)
		}
		if n := len(service.Calls("")); n != 6 {
			t.Errorf("expected 6 remote calls, got %d", n)
		}

		output.Reset()
		if err := runApp(runner, "sync", "status", "--format", "json"); err != nil {
			t.Fatalf("sync status failed: %v", err)
		}
		var job models.SyncJob
		if err := json.Unmarshal(output.Bytes(), &job); err != nil {
			t.Fatalf("expected JSON status, got %v (%s)", err, output.String())
		}
		if job.Stage != models.StageCompleted {
			t.Errorf("expected completed job, got %s", job.Stage)
		}
		if job.BackupSnapshotID == nil {
			t.Error("expected a backup snapshot id")
		}

		output.Reset()
		if err := runApp(runner, "sync", "history"); err != nil {
			t.Fatalf("sync history failed: %v", err)
		}
		if !strings.Contains(output.String(), "#1") {
			t.Errorf("expected job in history, got %s", output.String())
		}

		if err := runApp(runner, "sync", "report", "--dir", reportDir); err != nil {
			t.Fatalf("sync report failed: %v", err)
		}
		tu.AssertFileExists(t, filepath.Join(reportDir, "README.md"))
		tu.AssertFileExists(t, filepath.Join(reportDir, "operations.csv"))

		output.Reset()
		if err := runApp(runner, "snapshot", "list"); err != nil {
			t.Fatalf("snapshot list failed: %v", err)
		}
		if !strings.Contains(output.String(), "pre-sync:"+job.ID) {
			t.Errorf("expected pre-sync snapshot, got %s", output.String())
		}

		output.Reset()
		if err := runApp(runner, "quota"); err != nil {
			t.Fatalf("quota failed: %v", err)
		}
		if !strings.Contains(output.String(), "Used:      300 / 10000") {
			t.Errorf("expected quota usage, got %s", output.String())
		}
	})

	t.Run("pause and resume", func(t *testing.T) {
		runner, _, output := newTestRunner(t)

		if err := runApp(runner, "sync", "pause"); !errors.Is(err, shared.ErrJobNotFound) {
			t.Errorf("expected ErrJobNotFound without a job, got %v", err)
		}

		if err := runApp(runner, "library", "import", writeLibrary(t)); err != nil {
			t.Fatalf("library import failed: %v", err)
		}
		if err := runApp(runner, "sync", "start"); err != nil {
			t.Fatalf("sync start failed: %v", err)
		}
		if err := runApp(runner, "sync", "step"); err != nil {
			t.Fatalf("sync step failed: %v", err)
		}

		if err := runApp(runner, "sync", "pause", "--reason", "bogus"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}

		output.Reset()
		if err := runApp(runner, "sync", "pause"); err != nil {
			t.Fatalf("sync pause failed: %v", err)
		}
		if !strings.Contains(output.String(), "during backup (user_paused)") {
			t.Errorf("expected pause confirmation, got %s", output.String())
		}

		output.Reset()
		if err := runApp(runner, "sync", "resume"); err != nil {
			t.Fatalf("sync resume failed: %v", err)
		}
		if !strings.Contains(output.String(), "at backup") {
			t.Errorf("expected resume confirmation, got %s", output.String())
		}
	})

	t.Run("status without jobs", func(t *testing.T) {
		runner, _, output := newTestRunner(t)

		if err := runApp(runner, "sync", "status"); err != nil {
			t.Fatalf("sync status failed: %v", err)
		}
		if !strings.Contains(output.String(), "No sync jobs yet.") {
			t.Errorf("expected empty status, got %s", output.String())
		}
	})

	t.Run("start with preview file", func(t *testing.T) {
		runner, _, output := newTestRunner(t)

		path := filepath.Join(t.TempDir(), "preview.json")
		preview := `{"categories": 7, "videos": 70, "playlists_to_delete": 2, "estimated_quota": 3950, "estimated_days": 0.5, "warnings": ["rate limited"]}`
		if err := os.WriteFile(path, []byte(preview), 0o644); err != nil {
			t.Fatalf("failed to write preview: %v", err)
		}

		if err := runApp(runner, "sync", "start", "--preview", path); err != nil {
			t.Fatalf("sync start failed: %v", err)
		}
		if !strings.Contains(output.String(), "Categories to create: 7") {
			t.Errorf("expected supplied preview, got %s", output.String())
		}

		output.Reset()
		if err := runApp(runner, "sync", "status", "--format", "json"); err != nil {
			t.Fatalf("sync status failed: %v", err)
		}
		if !strings.Contains(output.String(), `"rate limited"`) {
			t.Errorf("expected extra preview fields to be kept, got %s", output.String())
		}
	})

	t.Run("start rejects a preview that is not an object", func(t *testing.T) {
		runner, _, _ := newTestRunner(t)

		path := filepath.Join(t.TempDir(), "preview.json")
		if err := os.WriteFile(path, []byte(`[1, 2]`), 0o644); err != nil {
			t.Fatalf("failed to write preview: %v", err)
		}

		if err := runApp(runner, "sync", "start", "--preview", path); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("setup database", func(t *testing.T) {
		dir := t.TempDir()
		t.Chdir(dir)

		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Logger: log.New(io.Discard), Output: output})
		t.Cleanup(func() { runner.Close() })

		configPath := filepath.Join(dir, "config.toml")
		if err := runApp(runner, "setup", "database", "--config", configPath); err != nil {
			t.Fatalf("setup database failed: %v", err)
		}

		tu.AssertFileExists(t, configPath)
		tu.AssertFileExists(t, filepath.Join(dir, "ytsort.db"))
		if !strings.Contains(output.String(), "Database ready") {
			t.Errorf("expected confirmation, got %s", output.String())
		}
	})
}

func TestServerHandler(t *testing.T) {
	runner, _, _ := newTestRunner(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handler, err := runner.serverHandler(ctx)
	if err != nil {
		t.Fatalf("failed to build handler: %v", err)
	}
	srv := httptest.NewServer(handler)
	defer srv.Close()

	client := &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
	}

	t.Run("auth redirect", func(t *testing.T) {
		resp, err := client.Get(srv.URL + "/auth/youtube")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()

		if resp.StatusCode != http.StatusFound {
			t.Fatalf("expected 302, got %d", resp.StatusCode)
		}
		if loc := resp.Header.Get("Location"); !strings.Contains(loc, "accounts.google.com") {
			t.Errorf("expected Google consent URL, got %s", loc)
		}
	})

	t.Run("sync api", func(t *testing.T) {
		resp, err := client.Post(srv.URL+"/api/sync/jobs", "application/json", nil)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()

		if resp.StatusCode != http.StatusCreated {
			t.Errorf("expected 201, got %d", resp.StatusCode)
		}
	})
}
