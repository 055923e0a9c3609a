package tui

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const zzConfig = "../config/testdata/zz.yaml"

// loaded drives a model through the load and run commands.
func loaded(t *testing.T) Model {
	t.Helper()
	m := NewModel(zzConfig)

	msg := m.Init()()
	require.IsType(t, ConfigLoadedMsg{}, msg)

	next, cmd := m.Update(msg)
	require.NotNil(t, cmd)
	msg = cmd()
	require.IsType(t, RunCompleteMsg{}, msg)

	next, _ = next.Update(msg)
	return next.(Model)
}

func press(t *testing.T, m Model, k tea.KeyMsg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(k)
	return next.(Model), cmd
}

func TestModel_LoadAndRun(t *testing.T) {
	m := loaded(t)

	assert.False(t, m.loading)
	assert.NoError(t, m.err)
	require.NotNil(t, m.result)
	assert.Len(t, m.years.Rows(), 3)
	assert.Equal(t, "2020", m.years.Rows()[0][0])
	assert.Equal(t, "yes", m.years.Rows()[1][1])

	view := m.View()
	assert.Contains(t, view, "HAT - Harvest Allocation ZZ")
	assert.Contains(t, view, "Demand met in every year")
}

func TestModel_DetailNavigation(t *testing.T) {
	m := loaded(t)

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 1, m.years.Cursor())

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, SceneDetail, m.scene)
	view := m.View()
	assert.Contains(t, view, "2021 (timestep 2)")
	assert.Contains(t, view, "Clearcut")
	assert.Contains(t, view, "cc_even")

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, SceneYears, m.scene)
}

func TestModel_HistoricalDetail(t *testing.T) {
	m := loaded(t)
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	view := m.View()
	assert.Contains(t, view, "Historical year: no allocation")
	assert.Contains(t, view, "No dynamic disturbances")
}

func TestModel_Quit(t *testing.T) {
	m := loaded(t)
	_, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}

func TestModel_Errors(t *testing.T) {
	m := NewModel("does-not-exist.yaml")
	msg := m.Init()()
	require.IsType(t, ErrorMsg{}, msg)

	next, _ := m.Update(msg)
	view := next.(Model).View()
	assert.Contains(t, view, "Error:")

	next, _ = NewModel(zzConfig).Update(RunCompleteMsg{Err: errors.New("engine crashed")})
	assert.Contains(t, next.(Model).View(), "engine crashed")
}

func TestModel_WindowSize(t *testing.T) {
	next, _ := NewModel(zzConfig).Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m := next.(Model)
	assert.Equal(t, 120, m.width)
	assert.Equal(t, 40, m.height)
}

func TestSceneString(t *testing.T) {
	assert.Equal(t, "Years", SceneYears.String())
	assert.Equal(t, "Year detail", SceneDetail.String())
	assert.Equal(t, "Unknown", Scene(7).String())
}
