package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rgehrsitz/hatgo/internal/domain"
	"github.com/rgehrsitz/hatgo/internal/output"
)

// View renders the current state of the application
func (m Model) View() string {
	if m.loading {
		return SubtitleStyle.Render("Running " + m.configPath + "...")
	}
	if m.err != nil {
		return ErrorStyle.Render("Error: "+m.err.Error()) + "\n\n" + m.help.View(m.keys)
	}

	var content string
	switch m.scene {
	case SceneDetail:
		content = m.renderDetail()
	default:
		content = m.years.View()
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.renderTitleBar(),
		content,
		m.renderStatus(),
		m.help.View(m.keys),
	)
}

func (m Model) renderTitleBar() string {
	country := ""
	if m.result != nil {
		country = m.result.Country
	}
	title := TitleStyle.Render("HAT - Harvest Allocation " + country)
	return lipgloss.JoinVertical(lipgloss.Left, title, SubtitleStyle.Render(m.scene.String()))
}

func (m Model) renderStatus() string {
	if m.halt != nil {
		return ShortfallStyle.Render(fmt.Sprintf("Halted: %v", m.halt))
	}
	if m.result != nil && len(m.result.NeverMatched) > 0 {
		return WarningStyle.Render("Templates never matched: " + strings.Join(m.result.NeverMatched, ", "))
	}
	return OKStyle.Render("Demand met in every year")
}

// renderDetail shows the summary and instructions of the selected year
func (m Model) renderDetail() string {
	y := m.selectedYear()
	if y == nil {
		return SubtitleStyle.Render("No year selected")
	}
	s := y.Summary

	line := func(label, value string) string {
		return LabelStyle.Render(label) + ValueStyle.Render(value)
	}
	shortfall := func(label string, v float64) string {
		if v > 0 {
			return LabelStyle.Render(label) + ShortfallStyle.Render(output.FormatVolume(v))
		}
		return line(label, output.FormatVolume(v))
	}

	summary := []string{
		TitleStyle.Render(fmt.Sprintf("%d (timestep %d)", s.Year, s.Timestep)),
		line("Demand irw / fw", output.FormatVolume(s.DemandIRW)+" / "+output.FormatVolume(s.DemandFW)),
		line("Predetermined irw / fw", output.FormatVolume(s.PredeterminedIRW)+" / "+output.FormatVolume(s.PredeterminedFW)),
		line("Available irw / fw", output.FormatVolume(s.AvailableIRW)+" / "+output.FormatVolume(s.AvailableFW)),
		line("Allocated irw", output.FormatVolume(s.AllocatedIRW)),
		line("Collateral fw", output.FormatVolume(s.CollateralFW)),
		line("Allocated fw", output.FormatVolume(s.AllocatedFW)),
		shortfall("Shortfall irw", s.ShortfallIRW),
		shortfall("Shortfall fw", s.ShortfallFW),
		line("Products irw / fw tC", output.FormatMass(y.Pool.ProductsIRWTC())+" / "+output.FormatMass(y.Pool.ProductsFWTC())),
	}
	if !s.HATApplied {
		summary = append(summary, SubtitleStyle.Render("Historical year: no allocation"))
	}

	left := PaneStyle.Render(strings.Join(summary, "\n"))
	right := PaneStyle.Render(renderInstructions(y.Instructions))
	return lipgloss.JoinHorizontal(lipgloss.Top, left, " ", right)
}

func renderInstructions(instructions []domain.DisturbanceInstruction) string {
	if len(instructions) == 0 {
		return SubtitleStyle.Render("No dynamic disturbances")
	}
	lines := []string{TitleStyle.Render("Disturbances")}
	for _, in := range instructions {
		name := in.DistTypeName
		if name == "" {
			name = "type " + in.DisturbanceType
		}
		lines = append(lines, fmt.Sprintf("%-12s %-4s %10s tC  %s",
			name,
			in.Provenance.Product.String(),
			output.FormatMass(in.Amount),
			SubtitleStyle.Render(in.Provenance.TemplateID)))
	}
	return strings.Join(lines, "\n")
}
