package models

import "fmt"

// Stage is one phase of the sync pipeline.
type Stage string

const (
	StagePending         Stage = "pending"
	StageBackup          Stage = "backup"
	StageCreatePlaylists Stage = "create_playlists"
	StageAddVideos       Stage = "add_videos"
	StageDeletePlaylists Stage = "delete_playlists"
	StageCompleted       Stage = "completed"
	StagePaused          Stage = "paused"
	StageFailed          Stage = "failed"
)

// Stages lists every stage in pipeline order, followed by paused and failed.
var Stages = []Stage{
	StagePending, StageBackup, StageCreatePlaylists, StageAddVideos,
	StageDeletePlaylists, StageCompleted, StagePaused, StageFailed,
}

// ParseStage validates s against the closed set of stages.
func ParseStage(s string) (Stage, error) {
	st := Stage(s)
	if !st.Valid() {
		return "", fmt.Errorf("unknown stage %q", s)
	}
	return st, nil
}

func (s Stage) String() string { return string(s) }

// Valid reports whether s is one of the known stages.
func (s Stage) Valid() bool {
	for _, st := range Stages {
		if s == st {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the job can no longer make progress.
func (s Stage) IsTerminal() bool {
	return s == StageCompleted || s == StageFailed
}

// IsAPIBound reports whether processing the stage spends remote quota.
func (s Stage) IsAPIBound() bool {
	switch s {
	case StageCreatePlaylists, StageAddVideos, StageDeletePlaylists:
		return true
	}
	return false
}

// IsProcessing reports whether s is a real pipeline stage a paused job can return to.
func (s Stage) IsProcessing() bool {
	switch s {
	case StagePending, StageBackup, StageCreatePlaylists, StageAddVideos, StageDeletePlaylists:
		return true
	}
	return false
}

// Next returns the stage that follows s in the pipeline, or s itself when there is none.
func (s Stage) Next() Stage {
	switch s {
	case StagePending:
		return StageBackup
	case StageBackup:
		return StageCreatePlaylists
	case StageCreatePlaylists:
		return StageAddVideos
	case StageAddVideos:
		return StageDeletePlaylists
	case StageDeletePlaylists:
		return StageCompleted
	}
	return s
}

// PauseReason explains why a job is paused.
type PauseReason string

const (
	PauseQuotaExhausted  PauseReason = "quota_exhausted"
	PauseUserPaused      PauseReason = "user_paused"
	PauseErrorsCollected PauseReason = "errors_collected"
)

// ParsePauseReason validates s against the closed set of pause reasons.
func ParsePauseReason(s string) (PauseReason, error) {
	switch r := PauseReason(s); r {
	case PauseQuotaExhausted, PauseUserPaused, PauseErrorsCollected:
		return r, nil
	}
	return "", fmt.Errorf("unknown pause reason %q", s)
}

func (r PauseReason) String() string { return string(r) }

// OperationStatus is the lifecycle state of a [SyncVideoOperation].
type OperationStatus string

const (
	OperationPending   OperationStatus = "pending"
	OperationCompleted OperationStatus = "completed"
	OperationFailed    OperationStatus = "failed"
	OperationSkipped   OperationStatus = "skipped"
)

// ParseOperationStatus validates s against the closed set of operation statuses.
func ParseOperationStatus(s string) (OperationStatus, error) {
	switch st := OperationStatus(s); st {
	case OperationPending, OperationCompleted, OperationFailed, OperationSkipped:
		return st, nil
	}
	return "", fmt.Errorf("unknown operation status %q", s)
}

func (s OperationStatus) String() string { return string(s) }
