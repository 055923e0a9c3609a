package output

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/rgehrsitz/hatgo/internal/domain"
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	headerStyle    = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle      = lipgloss.NewStyle().Padding(0, 1).Align(lipgloss.Right)
	shortfallStyle = cellStyle.Foreground(lipgloss.Color("#FF5F87"))
	mutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#767676"))
	warnStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFAF00"))
)

// ConsoleFormatter renders a summary table for terminals.
type ConsoleFormatter struct{}

func (ConsoleFormatter) Name() string { return "console" }

func (ConsoleFormatter) Format(result *domain.RunResult) ([]byte, error) {
	var b strings.Builder

	fmt.Fprintln(&b, titleStyle.Render(fmt.Sprintf("HARVEST ALLOCATION: %s", result.Country)))
	fmt.Fprintln(&b, mutedStyle.Render("run "+result.RunID+" · volumes in m³, carbon in tC"))
	fmt.Fprintln(&b)

	headers := []string{"Year", "HAT", "Demand IRW", "Demand FW", "Avail IRW", "Avail FW", "Alloc IRW", "Colat FW", "Alloc FW", "Short IRW", "Short FW", "Events"}
	rows := make([][]string, 0, len(result.Years))
	short := make(map[int]bool)
	for i, y := range result.Years {
		s := y.Summary
		hat := "-"
		if s.HATApplied {
			hat = "yes"
		}
		if s.ShortfallIRW > 0 || s.ShortfallFW > 0 {
			short[i] = true
		}
		rows = append(rows, []string{
			strconv.Itoa(s.Year),
			hat,
			FormatVolume(s.DemandIRW),
			FormatVolume(s.DemandFW),
			FormatVolume(s.AvailableIRW),
			FormatVolume(s.AvailableFW),
			FormatVolume(s.AllocatedIRW),
			FormatVolume(s.CollateralFW),
			FormatVolume(s.AllocatedFW),
			FormatVolume(s.ShortfallIRW),
			FormatVolume(s.ShortfallFW),
			strconv.Itoa(s.DynamicDisturbances),
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(mutedStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case short[row] && col >= 9 && col <= 10:
				return shortfallStyle
			default:
				return cellStyle
			}
		})
	fmt.Fprintln(&b, t.Render())

	var irwTC, fwTC float64
	for _, y := range result.Years {
		irwTC += y.Pool.ProductsIRWTC()
		fwTC += y.Pool.ProductsFWTC()
	}
	fmt.Fprintf(&b, "Products: irw %s tC, fw %s tC\n", FormatMass(irwTC), FormatMass(fwTC))

	if len(result.NeverMatched) > 0 {
		fmt.Fprintln(&b, warnStyle.Render("Templates never matched: "+strings.Join(result.NeverMatched, ", ")))
	}
	return []byte(b.String()), nil
}
