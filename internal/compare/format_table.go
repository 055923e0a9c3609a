package compare

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// TableFormatter formats comparison results as a console table
type TableFormatter struct{}

// Format generates a formatted table comparing scenarios
func (tf *TableFormatter) Format(compSet *ComparisonSet) string {
	var sb strings.Builder

	sb.WriteString("HARVEST ALLOCATION COMPARISON\n")
	sb.WriteString(strings.Repeat("=", 92) + "\n")
	sb.WriteString(fmt.Sprintf("Base Scenario: %s\n", compSet.BaseScenarioName))
	if compSet.ConfigPath != "" {
		sb.WriteString(fmt.Sprintf("Configuration: %s\n", compSet.ConfigPath))
	}
	sb.WriteString("\n")

	nameWidth := 28
	numWidth := 12

	sb.WriteString(fmt.Sprintf("%-*s %*s %*s %*s %*s %*s\n",
		nameWidth, "Scenario",
		numWidth, "Demand m³",
		numWidth, "Allocated",
		numWidth, "Shortfall",
		numWidth, "Short Yrs",
		numWidth, "Events"))
	sb.WriteString(strings.Repeat("-", 92) + "\n")

	sb.WriteString(tf.formatRow(compSet.BaseResult, nameWidth, numWidth, true))
	if len(compSet.AlternativeResults) > 0 {
		sb.WriteString(strings.Repeat("-", 92) + "\n")
		for _, alt := range compSet.AlternativeResults {
			sb.WriteString(tf.formatRow(&alt, nameWidth, numWidth, false))
		}
	}
	sb.WriteString(strings.Repeat("=", 92) + "\n")

	if len(compSet.AlternativeResults) > 0 {
		sb.WriteString("\nCOMPARISON TO BASE\n")
		sb.WriteString(strings.Repeat("-", 92) + "\n")
		for _, alt := range compSet.AlternativeResults {
			sb.WriteString(fmt.Sprintf("\n%s:\n", alt.ScenarioName))
			if alt.Description != "" {
				sb.WriteString(fmt.Sprintf("  %s\n", alt.Description))
			}
			sb.WriteString(fmt.Sprintf("  Allocated:        %s%s m³ (%s%%)\n",
				tf.deltaSymbol(alt.AllocatedDiffFromBase),
				tf.formatDecimal(alt.AllocatedDiffFromBase),
				alt.AllocatedPctFromBase.StringFixed(1)))
			if !alt.ShortfallDiffFromBase.IsZero() {
				sb.WriteString(fmt.Sprintf("  Shortfall:        %s%s m³\n",
					tf.deltaSymbol(alt.ShortfallDiffFromBase),
					tf.formatDecimal(alt.ShortfallDiffFromBase)))
			}
			if alt.DisturbancesDiff != 0 {
				sb.WriteString(fmt.Sprintf("  Disturbances:     %+d\n", alt.DisturbancesDiff))
			}
		}
		sb.WriteString("\n")
	}

	if len(compSet.Recommendations) > 0 {
		sb.WriteString("\nRECOMMENDATIONS\n")
		sb.WriteString(strings.Repeat("-", 92) + "\n")
		for _, rec := range compSet.Recommendations {
			sb.WriteString(fmt.Sprintf("• %s\n", rec))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func (tf *TableFormatter) formatRow(result *ComparisonResult, nameWidth, numWidth int, isBase bool) string {
	name := result.ScenarioName
	if isBase {
		name += " (base)"
	}
	years := fmt.Sprintf("%d", result.ShortfallYears)
	if result.Halted {
		years += fmt.Sprintf(" @%d", result.HaltYear)
	}
	return fmt.Sprintf("%-*s %*s %*s %*s %*s %*d\n",
		nameWidth, tf.truncate(name, nameWidth),
		numWidth, tf.formatDecimal(result.TotalDemand),
		numWidth, tf.formatDecimal(result.TotalAllocated),
		numWidth, tf.formatDecimal(result.TotalShortfall),
		numWidth, years,
		numWidth, result.DynamicDisturbances)
}

// formatDecimal shortens large volumes to K and M
func (tf *TableFormatter) formatDecimal(d decimal.Decimal) string {
	if d.Abs().GreaterThanOrEqual(decimal.NewFromInt(1000000)) {
		return d.Div(decimal.NewFromInt(1000000)).StringFixed(2) + "M"
	} else if d.Abs().GreaterThanOrEqual(decimal.NewFromInt(1000)) {
		return d.Div(decimal.NewFromInt(1000)).StringFixed(1) + "K"
	}
	return d.StringFixed(1)
}

func (tf *TableFormatter) deltaSymbol(delta decimal.Decimal) string {
	if delta.IsPositive() {
		return "+"
	}
	return ""
}

func (tf *TableFormatter) truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

// FormatCompact creates a single-line summary of the allocation deltas
func (tf *TableFormatter) FormatCompact(compSet *ComparisonSet) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Base: %s | ", compSet.BaseScenarioName))
	for i, alt := range compSet.AlternativeResults {
		if i > 0 {
			sb.WriteString(" | ")
		}
		change := "="
		if !alt.AllocatedDiffFromBase.IsZero() {
			change = tf.deltaSymbol(alt.AllocatedDiffFromBase) + tf.formatDecimal(alt.AllocatedDiffFromBase) + " m³"
		}
		if alt.Halted {
			change += " (halts)"
		}
		sb.WriteString(fmt.Sprintf("%s: %s", alt.ScenarioName, change))
	}
	return sb.String()
}
