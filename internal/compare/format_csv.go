package compare

import (
	"encoding/csv"
	"strconv"
	"strings"
)

// CSVFormatter formats comparison results as CSV
type CSVFormatter struct{}

// Format generates CSV output for comparison results
func (cf *CSVFormatter) Format(compSet *ComparisonSet) (string, error) {
	var sb strings.Builder
	writer := csv.NewWriter(&sb)

	header := []string{
		"Scenario",
		"Type",
		"Total Demand",
		"Total Allocated",
		"Collateral FW",
		"Total Shortfall",
		"Shortfall Years",
		"Dynamic Disturbances",
		"Products tC",
		"Halted",
		"Halt Year",
		"Allocated Diff from Base",
		"Allocated % Change",
		"Shortfall Diff from Base",
		"Shortfall Years Diff",
	}
	if err := writer.Write(header); err != nil {
		return "", err
	}
	if err := writer.Write(cf.formatRow(compSet.BaseResult, "base")); err != nil {
		return "", err
	}
	for _, alt := range compSet.AlternativeResults {
		if err := writer.Write(cf.formatRow(&alt, "alternative")); err != nil {
			return "", err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func (cf *CSVFormatter) formatRow(result *ComparisonResult, scenarioType string) []string {
	haltYear := ""
	if result.Halted {
		haltYear = strconv.Itoa(result.HaltYear)
	}
	return []string{
		result.ScenarioName,
		scenarioType,
		result.TotalDemand.StringFixed(2),
		result.TotalAllocated.StringFixed(2),
		result.TotalCollateralFW.StringFixed(2),
		result.TotalShortfall.StringFixed(2),
		strconv.Itoa(result.ShortfallYears),
		strconv.Itoa(result.DynamicDisturbances),
		result.TotalProductsTC.StringFixed(3),
		strconv.FormatBool(result.Halted),
		haltYear,
		result.AllocatedDiffFromBase.StringFixed(2),
		result.AllocatedPctFromBase.StringFixed(2),
		result.ShortfallDiffFromBase.StringFixed(2),
		strconv.Itoa(result.ShortfallYearsDiff),
	}
}
