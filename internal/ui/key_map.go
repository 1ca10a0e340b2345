package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	run    key.Binding
	step   key.Binding
	pause  key.Binding
	resume key.Binding
	errors key.Binding
	back   key.Binding
	quit   key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		run:    key.NewBinding(key.WithKeys(" ", "space"), key.WithHelp("space", "run/hold")),
		step:   key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "one batch")),
		pause:  key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "pause")),
		resume: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "resume")),
		errors: key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "errors")),
		back:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.run, k.step, k.pause, k.resume, k.errors, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.run, k.step},
		{k.pause, k.resume},
		{k.errors, k.back, k.quit},
	}
}
