package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// Update handles all messages and updates the model state
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.years.SetHeight(max(3, msg.Height-12))
		return m, nil

	case ErrorMsg:
		m.loading = false
		m.err = msg.Err
		return m, nil

	case ConfigLoadedMsg:
		m.config = msg.Config
		return m, runCmd(msg.Config)

	case RunCompleteMsg:
		m.loading = false
		if msg.Err != nil {
			m.err = msg.Err
		}
		m.halt = msg.Halt
		if msg.Result != nil {
			m.result = msg.Result
			m.years.SetRows(yearRows(msg.Result))
			m.years.SetCursor(0)
		}
		return m, nil
	}

	return m, nil
}

// handleKeyPress processes keyboard input
func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Back):
		m.scene = SceneYears
		return m, nil

	case key.Matches(msg, m.keys.Enter):
		if m.scene == SceneYears && m.selectedYear() != nil {
			m.scene = SceneDetail
		}
		return m, nil
	}

	if m.scene == SceneYears {
		var cmd tea.Cmd
		m.years, cmd = m.years.Update(msg)
		return m, cmd
	}
	return m, nil
}
