// package formatter renders sync jobs, their errors and their operation ledger as text, Markdown, JSON and CSV
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/ytsort/internal/models"
	"github.com/desertthunder/ytsort/internal/shared"
)

// Format selects a job report layout.
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
)

// ParseFormat validates s. "md" is accepted for markdown.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatText, FormatMarkdown, FormatJSON:
		return f, nil
	case "md":
		return FormatMarkdown, nil
	}
	return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, s)
}

var reportStages = []models.Stage{models.StageCreatePlaylists, models.StageAddVideos, models.StageDeletePlaylists}

// WriteJob renders job in format to w.
func WriteJob(w io.Writer, job *models.SyncJob, format Format) error {
	var (
		data []byte
		err  error
	)

	switch format {
	case FormatText:
		data = JobToText(job)
	case FormatMarkdown:
		data = JobToMarkdown(job)
	case FormatJSON:
		data, err = JobToJSON(job)
	default:
		err = fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
	}
	if err != nil {
		return err
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// JobToText renders a compact plain text status report.
func JobToText(job *models.SyncJob) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Sync job #%d (%s)\n", job.Sequence, job.ID))
	buf.WriteString(fmt.Sprintf("Stage: %s\n", stageLine(job)))
	if job.CurrentStageTotal > 0 {
		buf.WriteString(fmt.Sprintf("Progress: %d/%d (%.1f%%)\n",
			job.CurrentStageProgress, job.CurrentStageTotal, shared.Percent(job.CurrentStageProgress, job.CurrentStageTotal)))
	}
	buf.WriteString(fmt.Sprintf("Quota used: %d units\n", job.QuotaUsedThisSync))
	buf.WriteString(fmt.Sprintf("Started: %s\n", job.StartedAt.Local().Format(time.DateTime)))
	if job.CompletedAt != nil {
		buf.WriteString(fmt.Sprintf("Completed: %s (took %s)\n",
			job.CompletedAt.Local().Format(time.DateTime), shared.FormatDuration(job.CompletedAt.Sub(job.StartedAt))))
	}
	if job.BackupSnapshotID != nil {
		buf.WriteString(fmt.Sprintf("Snapshot: %s\n", *job.BackupSnapshotID))
	}

	for _, stage := range reportStages {
		if r, ok := job.StageResults.Get(stage); ok {
			buf.WriteString(fmt.Sprintf("  %-17s %d succeeded, %d failed, %d skipped\n", stage, r.Succeeded, r.Failed, r.Skipped))
		}
	}

	if n := len(job.Errors); n > 0 {
		buf.WriteString(fmt.Sprintf("Errors: %d (latest: %s)\n", n, job.Errors[n-1].Message))
	}

	return buf.Bytes()
}

// JobToMarkdown renders a full report including the preview and every recorded error.
func JobToMarkdown(job *models.SyncJob) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# Sync job #%d\n\n", job.Sequence))
	buf.WriteString(fmt.Sprintf("**ID**: `%s`\n", job.ID))
	buf.WriteString(fmt.Sprintf("**Stage**: %s\n", stageLine(job)))
	buf.WriteString(fmt.Sprintf("**Quota used**: %d units\n", job.QuotaUsedThisSync))
	buf.WriteString(fmt.Sprintf("**Started**: %s\n", job.StartedAt.UTC().Format(time.RFC3339)))
	if job.CompletedAt != nil {
		buf.WriteString(fmt.Sprintf("**Completed**: %s\n", job.CompletedAt.UTC().Format(time.RFC3339)))
	}
	if job.BackupSnapshotID != nil {
		buf.WriteString(fmt.Sprintf("**Snapshot**: `%s`\n", *job.BackupSnapshotID))
	}

	if len(job.Preview) > 0 {
		buf.WriteString("\n## Preview\n\n")
		if p, err := models.DecodePreview(job.Preview); err == nil && p != nil {
			buf.WriteString(fmt.Sprintf("- Categories: %d\n", p.Categories))
			buf.WriteString(fmt.Sprintf("- Videos: %d\n", p.Videos))
			buf.WriteString(fmt.Sprintf("- Playlists to delete: %d\n", p.PlaylistsToDelete))
			buf.WriteString(fmt.Sprintf("- Estimated quota: %d units (~%.1f days)\n", p.EstimatedQuota, p.EstimatedDays))
			if p.Notes != "" {
				buf.WriteString(fmt.Sprintf("- Notes: %s\n", p.Notes))
			}
			buf.WriteString("\n")
		}
		buf.WriteString("```json\n")
		var indented bytes.Buffer
		if err := json.Indent(&indented, job.Preview, "", "  "); err != nil {
			buf.Write(job.Preview)
		} else {
			buf.Write(indented.Bytes())
		}
		buf.WriteString("\n```\n")
	}

	buf.WriteString("\n## Results\n\n")
	buf.WriteString("| Stage | Succeeded | Failed | Skipped |\n")
	buf.WriteString("|---|---|---|---|\n")
	for _, stage := range reportStages {
		r, ok := job.StageResults.Get(stage)
		if !ok {
			buf.WriteString(fmt.Sprintf("| %s | - | - | - |\n", stage))
			continue
		}
		buf.WriteString(fmt.Sprintf("| %s | %d | %d | %d |\n", stage, r.Succeeded, r.Failed, r.Skipped))
	}

	if len(job.Errors) > 0 {
		buf.WriteString(fmt.Sprintf("\n## Errors (%d)\n\n", len(job.Errors)))
		for i, e := range job.Errors {
			entity := e.EntityType
			if e.EntityID != "" {
				entity = fmt.Sprintf("%s `%s`", e.EntityType, e.EntityID)
			}
			buf.WriteString(fmt.Sprintf("%d. [%s] %s: %s\n", i+1, e.Stage, entity, e.Message))
		}
	}

	return buf.Bytes()
}

// JobToJSON renders job as indented JSON.
func JobToJSON(job *models.SyncJob) ([]byte, error) {
	data, err := json.MarshalIndent(job, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode job: %w", err)
	}
	return append(data, '\n'), nil
}

// HistoryToText renders one line per job, newest first as given.
func HistoryToText(jobs []*models.SyncJob) []byte {
	var buf bytes.Buffer
	if len(jobs) == 0 {
		buf.WriteString("No sync jobs yet.\n")
		return buf.Bytes()
	}

	for _, job := range jobs {
		buf.WriteString(fmt.Sprintf("#%-4d %-16s %-36s quota=%-6d errors=%-4d started=%s\n",
			job.Sequence, job.Stage, job.ID, job.QuotaUsedThisSync, len(job.Errors),
			job.StartedAt.Local().Format(time.DateTime)))
	}
	return buf.Bytes()
}

// PreviewToText renders the cost estimate shown before a job is created.
func PreviewToText(p *models.Preview) []byte {
	var buf bytes.Buffer
	buf.WriteString(fmt.Sprintf("Categories to create: %d\n", p.Categories))
	buf.WriteString(fmt.Sprintf("Videos to add: %d\n", p.Videos))
	buf.WriteString(fmt.Sprintf("Playlists to delete: %d\n", p.PlaylistsToDelete))
	buf.WriteString(fmt.Sprintf("Estimated quota: %d units (~%.1f days)\n", p.EstimatedQuota, p.EstimatedDays))
	if p.Notes != "" {
		buf.WriteString(fmt.Sprintf("Notes: %s\n", p.Notes))
	}
	return buf.Bytes()
}

// RawPreviewToText renders a preview payload, falling back to the raw JSON when
// it does not carry the estimate fields.
func RawPreviewToText(raw json.RawMessage) []byte {
	if len(raw) == 0 {
		return nil
	}
	p, err := models.DecodePreview(raw)
	if err != nil {
		return append(append([]byte("Preview: "), raw...), '\n')
	}
	return PreviewToText(p)
}

func stageLine(job *models.SyncJob) string {
	if job.Stage == models.StagePaused && job.PauseReason != nil && job.PausedFromStage != nil {
		return fmt.Sprintf("paused (%s, from %s)", *job.PauseReason, *job.PausedFromStage)
	}
	return job.Stage.String()
}

// ErrorsToCSV converts a job's error log to CSV with columns: Stage, EntityType, EntityID, Message, Timestamp
func ErrorsToCSV(errs []models.SyncError) ([]byte, error) {
	rows := make([][]string, 0, len(errs))
	for _, e := range errs {
		rows = append(rows, []string{string(e.Stage), e.EntityType, e.EntityID, e.Message, e.Timestamp.UTC().Format(time.RFC3339)})
	}
	return toCSV([]string{"Stage", "EntityType", "EntityID", "Message", "Timestamp"}, rows)
}

// OperationsToCSV converts the operation ledger to CSV with columns: ID, CategoryID, VideoID, ExternalVideoID, Status, Error, CompletedAt
func OperationsToCSV(ops []*models.SyncVideoOperation) ([]byte, error) {
	rows := make([][]string, 0, len(ops))
	for _, op := range ops {
		completed := ""
		if op.CompletedAt != nil {
			completed = op.CompletedAt.UTC().Format(time.RFC3339)
		}
		rows = append(rows, []string{
			strconv.FormatInt(op.ID, 10),
			op.CategoryID,
			op.VideoID,
			op.ExternalVideoID,
			string(op.Status),
			op.ErrorMessage,
			completed,
		})
	}
	return toCSV([]string{"ID", "CategoryID", "VideoID", "ExternalVideoID", "Status", "Error", "CompletedAt"}, rows)
}

func toCSV(headers []string, rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ReportResult contains the paths of files created by WriteReport
type ReportResult struct {
	Directory  string
	Report     string
	Errors     string
	Operations string
}

// WriteReport writes a Markdown report plus errors and operations CSVs for job.
//
// Directory name defaults to job-{sequence}. Creates {dir}/README.md, {dir}/errors.csv and {dir}/operations.csv.
func WriteReport(job *models.SyncJob, ops []*models.SyncVideoOperation, outputDir string) (*ReportResult, error) {
	if outputDir == "" {
		outputDir = fmt.Sprintf("job-%d", job.Sequence)
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &ReportResult{
		Directory:  outputDir,
		Report:     filepath.Join(outputDir, "README.md"),
		Errors:     filepath.Join(outputDir, "errors.csv"),
		Operations: filepath.Join(outputDir, "operations.csv"),
	}

	if err := os.WriteFile(result.Report, JobToMarkdown(job), 0644); err != nil {
		return nil, fmt.Errorf("failed to write report: %w", err)
	}

	errData, err := ErrorsToCSV(job.Errors)
	if err != nil {
		return nil, fmt.Errorf("failed to generate errors CSV: %w", err)
	}
	if err := os.WriteFile(result.Errors, errData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write errors file: %w", err)
	}

	opData, err := OperationsToCSV(ops)
	if err != nil {
		return nil, fmt.Errorf("failed to generate operations CSV: %w", err)
	}
	if err := os.WriteFile(result.Operations, opData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write operations file: %w", err)
	}

	return result, nil
}
