package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/ytsort/internal/models"
	"github.com/desertthunder/ytsort/internal/services"
	"github.com/desertthunder/ytsort/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	MonitorView ViewState = iota
	ErrorsView
)

// Engine is the part of the sync engine the monitor drives.
type Engine interface {
	GetCurrentJob(ctx context.Context) (*models.SyncJob, error)
	ProcessBatch(ctx context.Context, cred services.Credential, batchSize int) (*models.SyncJob, error)
	PauseJob(ctx context.Context, jobID string, reason models.PauseReason) (*models.SyncJob, error)
	ResumeJob(ctx context.Context, jobID string) (*models.SyncJob, error)
}

// Model is the sync monitor. While running it asks the engine for one batch per tick.
type Model struct {
	ctx       context.Context
	engine    Engine
	cred      services.Credential
	batchSize int
	interval  time.Duration
	updates   <-chan tasks.ProgressUpdate

	view    ViewState
	job     *models.SyncJob
	last    tasks.ProgressUpdate
	running bool
	busy    bool
	ticking bool
	err     error

	width    int
	height   int
	bar      progress.Model
	spinner  spinner.Model
	errList  list.Model
	help     help.Model
	keys     keyMap
	quitting bool
}

// NewModel creates a monitor. updates may be nil when the engine reports no per-item progress.
func NewModel(ctx context.Context, engine Engine, cred services.Credential, batchSize int, interval time.Duration, updates <-chan tasks.ProgressUpdate) *Model {
	errList := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	errList.Title = "Sync errors"
	errList.SetShowHelp(false)

	return &Model{
		ctx:       ctx,
		engine:    engine,
		cred:      cred,
		batchSize: batchSize,
		interval:  interval,
		updates:   updates,
		view:      MonitorView,
		running:   true,
		bar:       progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		spinner:   spinner.New(spinner.WithSpinner(spinner.Dot)),
		errList:   errList,
		help:      help.New(),
		keys:      newKeyMap(),
	}
}

// Init loads the current job and starts listening for progress.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.loadJob(), m.spinner.Tick, m.listen())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.errList.SetSize(msg.Width-4, msg.Height-6)
		m.bar.Width = min(max(msg.Width-20, 10), 60)
		return m, nil

	case tea.KeyMsg:
		if m.view == ErrorsView {
			return m.handleErrorKeys(msg)
		}
		return m.handleMonitorKeys(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		return m.handleMsg(msg)
	}

	return m, nil
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgJobLoaded:
		res := msg.data.(jobResult)
		m.setJob(res.job, res.err)
		return m, m.schedule()

	case MsgBatchDone:
		res := msg.data.(jobResult)
		m.busy = false
		m.setJob(res.job, res.err)
		if res.err != nil || m.job == nil || m.job.Stage == models.StagePaused || m.job.Stage.IsTerminal() {
			m.running = false
		}
		return m, m.schedule()

	case MsgControlDone:
		res := msg.data.(jobResult)
		m.busy = false
		m.setJob(res.job, res.err)
		return m, m.schedule()

	case MsgProgress:
		m.last = msg.data.(tasks.ProgressUpdate)
		return m, m.listen()

	case MsgTick:
		m.ticking = false
		if !m.running || m.busy || m.job == nil {
			return m, nil
		}
		m.busy = true
		return m, m.processBatch()
	}
	return m, nil
}

// setJob records the latest job state; err is kept for display.
func (m *Model) setJob(job *models.SyncJob, err error) {
	if job != nil {
		m.job = job
		m.errList.SetItems(errorItems(job.Errors))
	} else if err == nil {
		m.job = nil
	}
	m.err = err
}

func (m *Model) handleMonitorKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.run):
		m.running = !m.running
		return m, m.schedule()

	case key.Matches(msg, m.keys.step):
		if m.busy || m.job == nil {
			return m, nil
		}
		m.busy = true
		return m, m.processBatch()

	case key.Matches(msg, m.keys.pause):
		if m.job == nil || !m.job.IsActive() || m.job.Stage == models.StagePaused {
			return m, nil
		}
		m.running = false
		return m, m.control(func(ctx context.Context, id string) (*models.SyncJob, error) {
			return m.engine.PauseJob(ctx, id, models.PauseUserPaused)
		})

	case key.Matches(msg, m.keys.resume):
		if m.job == nil || m.job.Stage != models.StagePaused {
			return m, nil
		}
		m.running = true
		return m, m.control(m.engine.ResumeJob)

	case key.Matches(msg, m.keys.errors):
		m.view = ErrorsView
		return m, nil
	}
	return m, nil
}

func (m *Model) handleErrorKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.back):
		m.view = MonitorView
		return m, nil
	case msg.String() == "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.errList, cmd = m.errList.Update(msg)
	return m, cmd
}

func (m *Model) loadJob() tea.Cmd {
	return func() tea.Msg {
		job, err := m.engine.GetCurrentJob(m.ctx)
		return jobLoadedMsg(job, err)
	}
}

func (m *Model) processBatch() tea.Cmd {
	cred, batchSize := m.cred, m.batchSize
	return func() tea.Msg {
		job, err := m.engine.ProcessBatch(m.ctx, cred, batchSize)
		return batchDoneMsg(job, err)
	}
}

func (m *Model) control(fn func(context.Context, string) (*models.SyncJob, error)) tea.Cmd {
	id := m.job.ID
	return func() tea.Msg {
		job, err := fn(m.ctx, id)
		return controlDoneMsg(job, err)
	}
}

// schedule queues the next batch when the monitor is running. At most one tick is pending.
func (m *Model) schedule() tea.Cmd {
	if !m.running || m.busy || m.ticking || m.job == nil {
		return nil
	}
	m.ticking = true
	return tea.Tick(m.interval, func(time.Time) tea.Msg { return tickMsg() })
}

func (m *Model) listen() tea.Cmd {
	if m.updates == nil {
		return nil
	}
	updates := m.updates
	return func() tea.Msg {
		update, ok := <-updates
		if !ok {
			return nil
		}
		return progressMsg(update)
	}
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	if m.view == ErrorsView {
		return fmt.Sprintf("%s\n%s", m.errList.View(), m.help.ShortHelpView([]key.Binding{m.keys.back}))
	}
	return m.renderMonitor()
}

func (m *Model) renderMonitor() string {
	var b strings.Builder
	b.WriteString(styles.title.Render("ytsort sync"))
	b.WriteString("\n")

	if m.job == nil {
		b.WriteString(styles.help.Render("No active sync job. Start one with `ytsort sync start`."))
		b.WriteString("\n\n")
		b.WriteString(m.help.ShortHelpView([]key.Binding{m.keys.quit}))
		return b.String()
	}

	job := m.job
	state := styles.Stage(job.Stage)
	if job.Stage == models.StagePaused && job.PauseReason != nil && job.PausedFromStage != nil {
		state = fmt.Sprintf("%s (%s, from %s)", state, *job.PauseReason, *job.PausedFromStage)
	}

	activity := "held"
	if m.busy {
		activity = m.spinner.View() + " working"
	} else if m.running {
		activity = "running"
	}

	fmt.Fprintf(&b, "Job #%d  %s  %s\n", job.Sequence, state, styles.help.Render(activity))

	var pct float64
	if job.CurrentStageTotal > 0 {
		pct = float64(job.CurrentStageProgress) / float64(job.CurrentStageTotal)
	}
	fmt.Fprintf(&b, "%s  %d/%d\n", m.bar.ViewAs(pct), job.CurrentStageProgress, job.CurrentStageTotal)
	fmt.Fprintf(&b, "Quota used this sync: %d units\n\n", job.QuotaUsedThisSync)

	var results []string
	for _, stage := range []models.Stage{models.StageCreatePlaylists, models.StageAddVideos, models.StageDeletePlaylists} {
		r, ok := job.StageResults.Get(stage)
		if !ok {
			continue
		}
		results = append(results, fmt.Sprintf("%-17s %s %d  %s %d  %s %d",
			stage, styles.ok.Render("✓"), r.Succeeded, styles.err.Render("✗"), r.Failed, styles.warn.Render("-"), r.Skipped))
	}
	if len(results) > 0 {
		b.WriteString(styles.box.Render(strings.Join(results, "\n")))
		b.WriteString("\n")
	}

	if m.last.Message != "" {
		fmt.Fprintf(&b, "\n%s\n", m.last.Message)
	}

	if n := len(job.Errors); n > 0 {
		latest := job.Errors[n-1]
		fmt.Fprintf(&b, "\n%s %s\n", styles.warn.Render(fmt.Sprintf("%d errors, latest:", n)), latest.Message)
	}
	if m.err != nil {
		fmt.Fprintf(&b, "\n%s\n", styles.err.Render(fmt.Sprintf("Error: %v", m.err)))
	}

	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView(m.keys.ShortHelp()))
	return b.String()
}
