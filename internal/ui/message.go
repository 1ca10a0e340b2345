package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/ytsort/internal/models"
	"github.com/desertthunder/ytsort/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgJobLoaded MsgKind = iota
	MsgBatchDone
	MsgControlDone
	MsgProgress
	MsgTick
)

// jobResult carries a job returned by an engine call.
type jobResult struct {
	job *models.SyncJob
	err error
}

// jobLoadedMsg is the constructor for [MsgJobLoaded]
func jobLoadedMsg(job *models.SyncJob, err error) Msg {
	return Msg{kind: MsgJobLoaded, data: jobResult{job, err}}
}

// batchDoneMsg is the constructor for [MsgBatchDone]
func batchDoneMsg(job *models.SyncJob, err error) Msg {
	return Msg{kind: MsgBatchDone, data: jobResult{job, err}}
}

// controlDoneMsg is the constructor for [MsgControlDone], sent after a pause or resume.
func controlDoneMsg(job *models.SyncJob, err error) Msg {
	return Msg{kind: MsgControlDone, data: jobResult{job, err}}
}

// progressMsg is the constructor for [MsgProgress]
func progressMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgress, data: update}
}

// tickMsg is the constructor for [MsgTick]
func tickMsg() Msg {
	return Msg{kind: MsgTick}
}
