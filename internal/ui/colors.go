package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/ytsort/internal/models"
)

var styles = NewPalette("#FF0000", "#04B575", "#FF4F4F", "#FFA500", "#626262")

// struct Palette is a simple stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
	box   lipgloss.Style
}

func NewPalette(t, s, e, w, h string) *Palette {
	return &Palette{
		title: NewBold(t).MarginBottom(1),
		ok:    NewBold(s),
		err:   NewBold(e),
		warn:  NewStyle(w),
		help:  NewEm(h),
		box:   lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color(h)).Padding(0, 1),
	}
}

// Stage renders a stage name in the colour matching its state.
func (p *Palette) Stage(stage models.Stage) string {
	switch stage {
	case models.StageCompleted:
		return p.ok.Render(stage.String())
	case models.StageFailed:
		return p.err.Render(stage.String())
	case models.StagePaused:
		return p.warn.Render(stage.String())
	default:
		return p.title.UnsetMarginBottom().Render(stage.String())
	}
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}
