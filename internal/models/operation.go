package models

import "time"

// SyncVideoOperation is one (category, video) pair that must be reflected in a remote playlist.
//
// Status moves pending -> completed|failed|skipped and never back.
type SyncVideoOperation struct {
	ID              int64           `json:"id"`
	SyncJobID       string          `json:"sync_job_id"`
	CategoryID      string          `json:"category_id"`
	VideoID         string          `json:"video_id"`
	ExternalVideoID string          `json:"external_video_id"`
	Status          OperationStatus `json:"status"`
	ErrorMessage    string          `json:"error_message,omitempty"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"`
}

// StatusCounts aggregates a job's operations by status.
type StatusCounts struct {
	Pending   int
	Completed int
	Failed    int
	Skipped   int
}

// Total returns the number of operations counted.
func (c StatusCounts) Total() int {
	return c.Pending + c.Completed + c.Failed + c.Skipped
}

// Resolved returns the number of operations that are no longer pending.
func (c StatusCounts) Resolved() int {
	return c.Completed + c.Failed + c.Skipped
}

// Result converts the counts into the add-videos [StageResult].
func (c StatusCounts) Result() StageResult {
	return StageResult{Succeeded: c.Completed, Failed: c.Failed, Skipped: c.Skipped}
}
