package breakeven

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// TableFormatter formats search results for the console
type TableFormatter struct{}

// Format renders one search result.
func (tf *TableFormatter) Format(result *Result) string {
	var sb strings.Builder

	sb.WriteString("SUSTAINABLE DEMAND SEARCH\n")
	sb.WriteString(strings.Repeat("=", 72) + "\n")
	sb.WriteString(fmt.Sprintf("Factor searched: %s\n", result.Request.Label()))
	if result.Request.FromYear > 0 {
		sb.WriteString(fmt.Sprintf("From year:       %d\n", result.Request.FromYear))
	}
	sb.WriteString(fmt.Sprintf("Status:          %s\n", tf.formatStatus(result.Success)))
	sb.WriteString(fmt.Sprintf("Iterations:      %d\n", result.Iterations))
	if result.ConvergenceInfo != "" {
		sb.WriteString(fmt.Sprintf("Convergence:     %s\n", result.ConvergenceInfo))
	}
	sb.WriteString("\n")

	sb.WriteString("RESULT\n")
	sb.WriteString(strings.Repeat("-", 72) + "\n")
	sb.WriteString(fmt.Sprintf("Largest feasible factor: %s\n", result.Factor.StringFixed(3)))
	sb.WriteString(fmt.Sprintf("Total demand:            %s m³\n", result.TotalDemand.StringFixed(1)))
	sb.WriteString(fmt.Sprintf("Total allocated:         %s m³\n", result.TotalAllocated.StringFixed(1)))
	if result.LimitingYear > 0 {
		sb.WriteString(fmt.Sprintf("First shortfall above:   %d, %s %s m³\n",
			result.LimitingYear, result.LimitingProduct, result.LimitingShortfall.StringFixed(1)))
	}
	return sb.String()
}

// FormatMulti renders the per-product searches as one table.
func (tf *TableFormatter) FormatMulti(multi *MultiResult) string {
	var sb strings.Builder

	sb.WriteString("SUSTAINABLE DEMAND BY PRODUCT\n")
	sb.WriteString(strings.Repeat("=", 72) + "\n")
	sb.WriteString(fmt.Sprintf("%-14s %10s %10s %8s %12s %12s\n", "Demand", "Factor", "Headroom", "Limit", "Shortfall", "Allocated"))
	sb.WriteString(strings.Repeat("-", 72) + "\n")
	for _, r := range multi.Results {
		limit := "-"
		if r.LimitingYear > 0 {
			limit = fmt.Sprintf("%d", r.LimitingYear)
		}
		sb.WriteString(fmt.Sprintf("%-14s %10s %9s%% %8s %12s %12s\n",
			r.Request.Label(),
			r.Factor.StringFixed(3),
			headroom(r.Factor),
			limit,
			tf.formatShort(r.LimitingShortfall),
			tf.formatShort(r.TotalAllocated)))
	}

	if len(multi.Recommendations) > 0 {
		sb.WriteString("\nRECOMMENDATIONS\n")
		sb.WriteString(strings.Repeat("-", 72) + "\n")
		for _, rec := range multi.Recommendations {
			sb.WriteString("• " + rec + "\n")
		}
	}
	return sb.String()
}

// FormatJSON renders any search output as indented JSON.
func FormatJSON(v interface{}) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (tf *TableFormatter) formatStatus(success bool) string {
	if success {
		return "✓ Feasible factor found"
	}
	return "✗ Infeasible within bounds"
}

func (tf *TableFormatter) formatShort(d decimal.Decimal) string {
	switch {
	case d.Abs().GreaterThanOrEqual(decimal.NewFromInt(1_000_000)):
		return d.Div(decimal.NewFromInt(1_000_000)).StringFixed(1) + "M"
	case d.Abs().GreaterThanOrEqual(decimal.NewFromInt(1_000)):
		return d.Div(decimal.NewFromInt(1_000)).StringFixed(1) + "K"
	default:
		return d.StringFixed(1)
	}
}
