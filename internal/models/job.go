package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// StageResult counts item outcomes for one API-bound stage.
type StageResult struct {
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// Total returns the number of items with an outcome.
func (r StageResult) Total() int {
	return r.Succeeded + r.Failed + r.Skipped
}

// StageResults holds the latest [StageResult] snapshot of each API-bound stage.
//
// A nil field means the stage has not reported yet.
type StageResults struct {
	CreatePlaylists *StageResult `json:"create_playlists,omitempty"`
	AddVideos       *StageResult `json:"add_videos,omitempty"`
	DeletePlaylists *StageResult `json:"delete_playlists,omitempty"`
}

// Get returns the result recorded for stage, if any.
func (r StageResults) Get(stage Stage) (StageResult, bool) {
	var p *StageResult
	switch stage {
	case StageCreatePlaylists:
		p = r.CreatePlaylists
	case StageAddVideos:
		p = r.AddVideos
	case StageDeletePlaylists:
		p = r.DeletePlaylists
	}
	if p == nil {
		return StageResult{}, false
	}
	return *p, true
}

// Set overwrites the snapshot for stage. Only API-bound stages carry results.
func (r *StageResults) Set(stage Stage, result StageResult) error {
	switch stage {
	case StageCreatePlaylists:
		r.CreatePlaylists = &result
	case StageAddVideos:
		r.AddVideos = &result
	case StageDeletePlaylists:
		r.DeletePlaylists = &result
	default:
		return fmt.Errorf("stage %s does not record results", stage)
	}
	return nil
}

// DecodeStageResults parses the stage_results column, rejecting unknown keys.
func DecodeStageResults(data []byte) (StageResults, error) {
	var results StageResults
	if len(data) == 0 {
		return results, nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return results, err
	}

	for key, value := range raw {
		stage := Stage(key)
		if !stage.IsAPIBound() {
			return results, fmt.Errorf("unexpected stage results key %q", key)
		}

		var result StageResult
		if err := json.Unmarshal(value, &result); err != nil {
			return results, fmt.Errorf("stage results for %s: %w", key, err)
		}
		if err := results.Set(stage, result); err != nil {
			return results, err
		}
	}

	return results, nil
}

// SyncError is one entry of a job's append-only error log.
type SyncError struct {
	Stage      Stage     `json:"stage"`
	EntityType string    `json:"entity_type"` // category, video, playlist, job
	EntityID   string    `json:"entity_id"`
	Message    string    `json:"message"`
	Timestamp  time.Time `json:"timestamp"`
}

// Entity types recorded in [SyncError.EntityType].
const (
	EntityCategory = "category"
	EntityVideo    = "video"
	EntityPlaylist = "playlist"
	EntityJob      = "job"
)

// DecodeSyncErrors parses the errors column and validates each entry's stage.
func DecodeSyncErrors(data []byte) ([]SyncError, error) {
	var errs []SyncError
	if len(data) == 0 {
		return errs, nil
	}
	if err := json.Unmarshal(data, &errs); err != nil {
		return nil, err
	}
	for i, e := range errs {
		if !e.Stage.Valid() {
			return nil, fmt.Errorf("error %d has unknown stage %q", i, e.Stage)
		}
	}
	return errs, nil
}

// Preview is the cost and time estimate produced by the built-in estimator.
//
// Jobs carry previews as raw JSON so payloads from other generators keep every
// field; DecodePreview reads back the fields this type knows.
type Preview struct {
	Categories        int     `json:"categories"`
	Videos            int     `json:"videos"`
	PlaylistsToDelete int     `json:"playlists_to_delete"`
	EstimatedQuota    int     `json:"estimated_quota"`
	EstimatedDays     float64 `json:"estimated_days"`
	Notes             string  `json:"notes,omitempty"`
}

// Encode returns p as a preview payload.
func (p *Preview) Encode() (json.RawMessage, error) {
	if p == nil {
		return nil, nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to encode preview: %w", err)
	}
	return data, nil
}

// ParsePreview checks that data is a JSON object and returns it unchanged.
func ParsePreview(data []byte) (json.RawMessage, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}
	if !json.Valid(data) {
		return nil, errors.New("preview is not valid JSON")
	}
	if data[0] != '{' {
		return nil, errors.New("preview must be a JSON object")
	}
	return json.RawMessage(data), nil
}

// DecodePreview reads the known estimate fields out of a preview payload.
func DecodePreview(raw json.RawMessage) (*Preview, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var p Preview
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// SyncJob is the durable record of one synchronisation attempt.
type SyncJob struct {
	ID                   string          `json:"id"`
	Sequence             int             `json:"sequence"`
	Stage                Stage           `json:"stage"`
	PauseReason          *PauseReason    `json:"pause_reason,omitempty"`
	PausedFromStage      *Stage          `json:"paused_from_stage,omitempty"`
	CurrentStageProgress int             `json:"current_stage_progress"`
	CurrentStageTotal    int             `json:"current_stage_total"`
	StageResults         StageResults    `json:"stage_results"`
	Errors               []SyncError     `json:"errors"`
	QuotaUsedThisSync    int             `json:"quota_used_this_sync"`
	BackupSnapshotID     *string         `json:"backup_snapshot_id,omitempty"`
	Preview              json.RawMessage `json:"preview,omitempty"`
	StartedAt            time.Time       `json:"started_at"`
	CompletedAt          *time.Time      `json:"completed_at,omitempty"`
	LastResumedAt        *time.Time      `json:"last_resumed_at,omitempty"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// NewSyncJob returns a pending job started at now.
func NewSyncJob(preview json.RawMessage, now time.Time) *SyncJob {
	return &SyncJob{
		Stage:     StagePending,
		Preview:   preview,
		StartedAt: now,
		UpdatedAt: now,
	}
}

// Validate checks the pause invariants and enum values.
func (j *SyncJob) Validate() error {
	if !j.Stage.Valid() {
		return fmt.Errorf("unknown stage %q", j.Stage)
	}

	paused := j.Stage == StagePaused
	if paused != (j.PauseReason != nil) {
		return fmt.Errorf("pause reason must be set only while paused")
	}
	if paused != (j.PausedFromStage != nil) {
		return fmt.Errorf("paused-from stage must be set only while paused")
	}
	if j.PausedFromStage != nil && !j.PausedFromStage.IsProcessing() {
		return fmt.Errorf("cannot pause from stage %q", *j.PausedFromStage)
	}
	if j.CurrentStageProgress < 0 || j.CurrentStageTotal < 0 {
		return fmt.Errorf("progress counters must not be negative")
	}

	return nil
}

// IsActive reports whether the job still counts against the single-active-job rule.
func (j *SyncJob) IsActive() bool {
	return !j.Stage.IsTerminal()
}

// ErrorsFor returns the entity IDs that already failed in stage for entityType.
func (j *SyncJob) ErrorsFor(stage Stage, entityType string) map[string]bool {
	ids := make(map[string]bool)
	for _, e := range j.Errors {
		if e.Stage == stage && e.EntityType == entityType && e.EntityID != "" {
			ids[e.EntityID] = true
		}
	}
	return ids
}
