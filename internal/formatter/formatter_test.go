package formatter

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/ytsort/internal/models"
	"github.com/desertthunder/ytsort/internal/shared"
	tu "github.com/desertthunder/ytsort/internal/testing"
)

func sampleJob() *models.SyncJob {
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	completed := started.Add(90 * time.Minute)
	snapshot := "snap-1"

	return &models.SyncJob{
		ID:                "job-123",
		Sequence:          7,
		Stage:             models.StageCompleted,
		QuotaUsedThisSync: 450,
		BackupSnapshotID:  &snapshot,
		StageResults: models.StageResults{
			CreatePlaylists: &models.StageResult{Succeeded: 3},
			AddVideos:       &models.StageResult{Succeeded: 4, Failed: 1},
			DeletePlaylists: &models.StageResult{Succeeded: 1},
		},
		Errors: []models.SyncError{
			{Stage: models.StageAddVideos, EntityType: models.EntityVideo, EntityID: "vid-9", Message: "video, unavailable", Timestamp: started.Add(time.Hour)},
		},
		Preview:     json.RawMessage(`{"categories":3,"videos":5,"playlists_to_delete":1,"estimated_quota":450,"estimated_days":0.4,"source":"planner"}`),
		StartedAt:   started,
		CompletedAt: &completed,
		UpdatedAt:   completed,
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"text", FormatText, false},
		{"Markdown", FormatMarkdown, false},
		{"md", FormatMarkdown, false},
		{"json", FormatJSON, false},
		{"yaml", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				if !errors.Is(err, shared.ErrInvalidArgument) {
					t.Errorf("expected ErrInvalidArgument, got %v", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
			}
		})
	}
}

func TestReports(t *testing.T) {
	t.Run("JobToText", func(t *testing.T) {
		output := string(JobToText(sampleJob()))

		for _, want := range []string{
			"Sync job #7 (job-123)",
			"Stage: completed",
			"Quota used: 450 units",
			"took 1h30m0s",
			"Snapshot: snap-1",
			"add_videos        4 succeeded, 1 failed, 0 skipped",
			"Errors: 1 (latest: video, unavailable)",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("text report missing %q, got:\n%s", want, output)
			}
		}
	})

	t.Run("JobToText paused", func(t *testing.T) {
		job := sampleJob()
		reason := models.PauseQuotaExhausted
		from := models.StageAddVideos
		job.Stage = models.StagePaused
		job.PauseReason = &reason
		job.PausedFromStage = &from
		job.CompletedAt = nil
		job.CurrentStageProgress = 2
		job.CurrentStageTotal = 8

		output := string(JobToText(job))
		if !strings.Contains(output, "paused (quota_exhausted, from add_videos)") {
			t.Errorf("expected pause details, got:\n%s", output)
		}
		if !strings.Contains(output, "Progress: 2/8 (25.0%)") {
			t.Errorf("expected progress line, got:\n%s", output)
		}
	})

	t.Run("JobToMarkdown", func(t *testing.T) {
		output := string(JobToMarkdown(sampleJob()))

		for _, want := range []string{
			"# Sync job #7",
			"**Snapshot**: `snap-1`",
			"## Preview",
			"- Estimated quota: 450 units (~0.4 days)",
			`"source": "planner"`,
			"| create_playlists | 3 | 0 | 0 |",
			"| add_videos | 4 | 1 | 0 |",
			"## Errors (1)",
			"1. [add_videos] video `vid-9`: video, unavailable",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("markdown report missing %q, got:\n%s", want, output)
			}
		}
	})

	t.Run("JobToMarkdown without results", func(t *testing.T) {
		output := string(JobToMarkdown(&models.SyncJob{ID: "job", Sequence: 1, Stage: models.StagePending}))
		if !strings.Contains(output, "| delete_playlists | - | - | - |") {
			t.Errorf("expected placeholder row, got:\n%s", output)
		}
		if strings.Contains(output, "## Errors") {
			t.Error("expected no errors section")
		}
	})

	t.Run("JobToJSON", func(t *testing.T) {
		data, err := JobToJSON(sampleJob())
		if err != nil {
			t.Fatalf("JobToJSON failed: %v", err)
		}

		var decoded map[string]any
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if decoded["stage"] != "completed" || decoded["backup_snapshot_id"] != "snap-1" {
			t.Errorf("unexpected JSON %s", data)
		}
		results, ok := decoded["stage_results"].(map[string]any)
		if !ok || results["add_videos"] == nil {
			t.Errorf("expected stage results keyed by stage, got %v", decoded["stage_results"])
		}
		if _, ok := decoded["pause_reason"]; ok {
			t.Error("expected pause_reason to be omitted")
		}
	})

	t.Run("HistoryToText", func(t *testing.T) {
		if got := string(HistoryToText(nil)); got != "No sync jobs yet.\n" {
			t.Errorf("unexpected empty history %q", got)
		}

		output := string(HistoryToText([]*models.SyncJob{sampleJob()}))
		if !strings.Contains(output, "#7") || !strings.Contains(output, "quota=450") || !strings.Contains(output, "errors=1") {
			t.Errorf("unexpected history line %q", output)
		}
	})

	t.Run("RawPreviewToText", func(t *testing.T) {
		output := string(RawPreviewToText(json.RawMessage(`{"categories":4,"estimated_quota":200,"extra":true}`)))
		if !strings.Contains(output, "Categories to create: 4") || !strings.Contains(output, "200 units") {
			t.Errorf("unexpected preview text:\n%s", output)
		}

		output = string(RawPreviewToText(json.RawMessage(`{"categories":"four"}`)))
		if output != "Preview: {\"categories\":\"four\"}\n" {
			t.Errorf("expected raw fallback, got %q", output)
		}

		if out := RawPreviewToText(nil); len(out) != 0 {
			t.Errorf("expected no output for an empty preview, got %q", out)
		}
	})

	t.Run("PreviewToText", func(t *testing.T) {
		output := string(PreviewToText(&models.Preview{Categories: 2, Videos: 40, EstimatedQuota: 2100, EstimatedDays: 1.2, Notes: "first run"}))
		for _, want := range []string{"Categories to create: 2", "Videos to add: 40", "2100 units (~1.2 days)", "Notes: first run"} {
			if !strings.Contains(output, want) {
				t.Errorf("preview missing %q, got:\n%s", want, output)
			}
		}
	})
}

func TestCSV(t *testing.T) {
	t.Run("ErrorsToCSV", func(t *testing.T) {
		data, err := ErrorsToCSV(sampleJob().Errors)
		if err != nil {
			t.Fatalf("ErrorsToCSV failed: %v", err)
		}

		output := string(data)
		if !strings.HasPrefix(output, "Stage,EntityType,EntityID,Message,Timestamp\n") {
			t.Errorf("CSV missing headers, got: %s", output)
		}
		if !strings.Contains(output, `add_videos,video,vid-9,"video, unavailable",2026-03-01T13:00:00Z`) {
			t.Errorf("CSV missing quoted record, got: %s", output)
		}
	})

	t.Run("OperationsToCSV", func(t *testing.T) {
		done := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)
		ops := []*models.SyncVideoOperation{
			{ID: 1, CategoryID: "cat", VideoID: "v1", ExternalVideoID: "abc", Status: models.OperationCompleted, CompletedAt: &done},
			{ID: 2, CategoryID: "cat", VideoID: "v2", ExternalVideoID: "def", Status: models.OperationPending},
		}

		data, err := OperationsToCSV(ops)
		if err != nil {
			t.Fatalf("OperationsToCSV failed: %v", err)
		}

		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		if len(lines) != 3 {
			t.Fatalf("expected 3 lines, got %d", len(lines))
		}
		if lines[1] != "1,cat,v1,abc,completed,,2026-03-01T12:30:00Z" {
			t.Errorf("unexpected row %q", lines[1])
		}
		if lines[2] != "2,cat,v2,def,pending,," {
			t.Errorf("unexpected row %q", lines[2])
		}
	})
}

func TestWriteJob(t *testing.T) {
	t.Run("formats", func(t *testing.T) {
		for _, format := range []Format{FormatText, FormatMarkdown, FormatJSON} {
			var buf bytes.Buffer
			if err := WriteJob(&buf, sampleJob(), format); err != nil {
				t.Errorf("WriteJob(%s) failed: %v", format, err)
			}
			if !strings.Contains(buf.String(), "job-123") {
				t.Errorf("WriteJob(%s) missing job ID", format)
			}
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		var buf bytes.Buffer
		if err := WriteJob(&buf, sampleJob(), Format("xml")); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("write failure", func(t *testing.T) {
		if err := WriteJob(&tu.FWriter{}, sampleJob(), FormatText); err == nil {
			t.Error("expected error from failing writer")
		}

		var buf bytes.Buffer
		w := tu.NewLimitedWriter(0, 0, &buf)
		if err := WriteJob(&w, sampleJob(), FormatJSON); err == nil {
			t.Error("expected error from exhausted writer")
		}
	})
}

func TestWriteReport(t *testing.T) {
	t.Run("writes all files", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "report")
		job := sampleJob()
		ops := []*models.SyncVideoOperation{{ID: 1, CategoryID: "cat", VideoID: "v1", ExternalVideoID: "abc", Status: models.OperationFailed, ErrorMessage: "gone"}}

		result, err := WriteReport(job, ops, dir)
		if err != nil {
			t.Fatalf("WriteReport failed: %v", err)
		}

		tu.AssertFileExists(t, result.Report)
		tu.AssertFileExists(t, result.Errors)
		tu.AssertFileExists(t, result.Operations)

		if content := tu.MustReadFile(t, result.Report); !strings.Contains(content, "# Sync job #7") {
			t.Errorf("unexpected report content:\n%s", content)
		}
		if content := tu.MustReadFile(t, result.Operations); !strings.Contains(content, "1,cat,v1,abc,failed,gone,") {
			t.Errorf("unexpected operations content:\n%s", content)
		}
	})

	t.Run("default directory", func(t *testing.T) {
		t.Chdir(t.TempDir())

		result, err := WriteReport(sampleJob(), nil, "")
		if err != nil {
			t.Fatalf("WriteReport failed: %v", err)
		}
		if result.Directory != "job-7" {
			t.Errorf("expected job-7, got %s", result.Directory)
		}
		tu.AssertFileExists(t, filepath.Join("job-7", "README.md"))
	})

	t.Run("unwritable directory", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "file")
		if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
			t.Fatalf("failed to create file: %v", err)
		}
		if _, err := WriteReport(sampleJob(), nil, filepath.Join(file, "nested")); err == nil {
			t.Error("expected error creating a directory under a file")
		}
	})
}
