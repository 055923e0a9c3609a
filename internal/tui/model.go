package tui

import (
	"context"
	"errors"
	"strconv"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rgehrsitz/hatgo/internal/config"
	"github.com/rgehrsitz/hatgo/internal/domain"
	"github.com/rgehrsitz/hatgo/internal/engine/memory"
	"github.com/rgehrsitz/hatgo/internal/hat"
	"github.com/rgehrsitz/hatgo/internal/output"
)

// Model represents the entire application state
type Model struct {
	scene Scene

	width  int
	height int

	configPath string
	config     *domain.Configuration

	result *domain.RunResult
	halt   *domain.UnsatisfiedDemandError

	years table.Model
	keys  keyMap
	help  help.Model

	err     error
	loading bool
}

// NewModel creates a new application model
func NewModel(configPath string) Model {
	return Model{
		scene:      SceneYears,
		configPath: configPath,
		years:      newYearsTable(),
		keys:       defaultKeyMap(),
		help:       help.New(),
		width:      100,
		height:     30,
		loading:    true,
	}
}

// Init loads the configuration
func (m Model) Init() tea.Cmd {
	return loadConfigCmd(m.configPath)
}

// loadConfigCmd returns a command that loads the configuration file
func loadConfigCmd(path string) tea.Cmd {
	return func() tea.Msg {
		cfg, err := config.NewInputParser().LoadFromFile(path)
		if err != nil {
			return ErrorMsg{Err: err}
		}
		return ConfigLoadedMsg{Config: cfg}
	}
}

// runCmd runs the whole configuration on the in-memory engine
func runCmd(cfg *domain.Configuration) tea.Cmd {
	return func() tea.Msg {
		result, err := hat.NewRunner(cfg, memory.New(cfg)).Run(context.Background())
		var halt *domain.UnsatisfiedDemandError
		if errors.As(err, &halt) {
			return RunCompleteMsg{Result: result, Halt: halt}
		}
		return RunCompleteMsg{Result: result, Err: err}
	}
}

var yearColumns = []table.Column{
	{Title: "Year", Width: 6},
	{Title: "HAT", Width: 4},
	{Title: "Demand IRW", Width: 11},
	{Title: "Demand FW", Width: 11},
	{Title: "Alloc IRW", Width: 11},
	{Title: "Colat FW", Width: 10},
	{Title: "Alloc FW", Width: 10},
	{Title: "Short IRW", Width: 10},
	{Title: "Short FW", Width: 10},
	{Title: "Events", Width: 6},
}

func newYearsTable() table.Model {
	t := table.New(
		table.WithColumns(yearColumns),
		table.WithFocused(true),
		table.WithHeight(12),
	)
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(ColorBorder).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(ColorPrimary)
	t.SetStyles(s)
	return t
}

// yearRows converts the yearly summaries to table rows
func yearRows(result *domain.RunResult) []table.Row {
	rows := make([]table.Row, 0, len(result.Years))
	for _, y := range result.Years {
		s := y.Summary
		hat := "-"
		if s.HATApplied {
			hat = "yes"
		}
		rows = append(rows, table.Row{
			strconv.Itoa(s.Year),
			hat,
			output.FormatVolume(s.DemandIRW),
			output.FormatVolume(s.DemandFW),
			output.FormatVolume(s.AllocatedIRW),
			output.FormatVolume(s.CollateralFW),
			output.FormatVolume(s.AllocatedFW),
			output.FormatVolume(s.ShortfallIRW),
			output.FormatVolume(s.ShortfallFW),
			strconv.Itoa(s.DynamicDisturbances),
		})
	}
	return rows
}

// selectedYear returns the year under the table cursor
func (m Model) selectedYear() *domain.YearResult {
	if m.result == nil {
		return nil
	}
	i := m.years.Cursor()
	if i < 0 || i >= len(m.result.Years) {
		return nil
	}
	return &m.result.Years[i]
}
