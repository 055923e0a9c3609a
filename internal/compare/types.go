package compare

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rgehrsitz/hatgo/internal/domain"
)

// ComparisonResult holds the totals of one scenario run
type ComparisonResult struct {
	ScenarioName string            `json:"scenarioName"`
	Description  string            `json:"description"`
	Result       *domain.RunResult `json:"-"`

	// Totals over the run; volumes in m³, products in tC
	TotalDemand         decimal.Decimal `json:"totalDemand"`
	TotalAllocated      decimal.Decimal `json:"totalAllocated"`
	TotalCollateralFW   decimal.Decimal `json:"totalCollateralFw"`
	TotalShortfall      decimal.Decimal `json:"totalShortfall"`
	TotalProductsTC     decimal.Decimal `json:"totalProductsTc"`
	ShortfallYears      int             `json:"shortfallYears"`
	DynamicDisturbances int             `json:"dynamicDisturbances"`
	YearsSimulated      int             `json:"yearsSimulated"`
	Halted              bool            `json:"halted"`
	HaltYear            int             `json:"haltYear,omitempty"`

	// Comparison to base
	AllocatedDiffFromBase decimal.Decimal `json:"allocatedDiffFromBase"`
	AllocatedPctFromBase  decimal.Decimal `json:"allocatedPctFromBase"`
	ShortfallDiffFromBase decimal.Decimal `json:"shortfallDiffFromBase"`
	ShortfallYearsDiff    int             `json:"shortfallYearsDiff"`
	DisturbancesDiff      int             `json:"disturbancesDiff"`
}

// ComparisonSet represents a collection of scenario comparisons
type ComparisonSet struct {
	BaseScenarioName   string             `json:"baseScenarioName"`
	BaseResult         *ComparisonResult  `json:"baseResult"`
	AlternativeResults []ComparisonResult `json:"alternativeResults"`
	Recommendations    []string           `json:"recommendations"`
	ConfigPath         string             `json:"configPath"`
}

// MetricsCalculator extracts totals from run results
type MetricsCalculator struct{}

// NewMetricsCalculator creates a new metrics calculator
func NewMetricsCalculator() *MetricsCalculator {
	return &MetricsCalculator{}
}

// CalculateMetrics sums the yearly summaries of a run. halt is the error
// that stopped the run on a shortfall, if any.
func (mc *MetricsCalculator) CalculateMetrics(name string, result *domain.RunResult, halt *domain.UnsatisfiedDemandError) ComparisonResult {
	out := ComparisonResult{
		ScenarioName:      name,
		Result:            result,
		TotalDemand:       decimal.Zero,
		TotalAllocated:    decimal.Zero,
		TotalCollateralFW: decimal.Zero,
		TotalShortfall:    decimal.Zero,
		TotalProductsTC:   decimal.Zero,
	}
	if halt != nil {
		out.Halted = true
		out.HaltYear = halt.Year
	}
	if result == nil {
		return out
	}

	out.YearsSimulated = len(result.Years)
	for _, y := range result.Years {
		s := y.Summary
		out.TotalDemand = out.TotalDemand.Add(volume(s.DemandIRW + s.DemandFW))
		out.TotalAllocated = out.TotalAllocated.Add(volume(s.AllocatedIRW + s.AllocatedFW))
		out.TotalCollateralFW = out.TotalCollateralFW.Add(volume(s.CollateralFW))
		shortfall := s.ShortfallIRW + s.ShortfallFW
		out.TotalShortfall = out.TotalShortfall.Add(volume(shortfall))
		if shortfall > 0 {
			out.ShortfallYears++
		}
		out.TotalProductsTC = out.TotalProductsTC.Add(volume(y.Pool.ProductsIRWTC() + y.Pool.ProductsFWTC()))
		out.DynamicDisturbances += s.DynamicDisturbances
	}
	return out
}

// CalculateComparison computes the differences between a scenario and a base
func (mc *MetricsCalculator) CalculateComparison(scenario, base ComparisonResult) ComparisonResult {
	scenario.AllocatedDiffFromBase = scenario.TotalAllocated.Sub(base.TotalAllocated)
	if !base.TotalAllocated.IsZero() {
		scenario.AllocatedPctFromBase = scenario.AllocatedDiffFromBase.
			Div(base.TotalAllocated).
			Mul(decimal.NewFromInt(100))
	}
	scenario.ShortfallDiffFromBase = scenario.TotalShortfall.Sub(base.TotalShortfall)
	scenario.ShortfallYearsDiff = scenario.ShortfallYears - base.ShortfallYears
	scenario.DisturbancesDiff = scenario.DynamicDisturbances - base.DynamicDisturbances
	return scenario
}

// volume rounds away float noise below a millilitre.
func volume(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(6)
}

// GenerateRecommendations summarises which alternatives are worth a look
func GenerateRecommendations(compSet *ComparisonSet) []string {
	recommendations := []string{}
	base := compSet.BaseResult
	if base == nil {
		return recommendations
	}

	if base.Halted {
		recommendations = append(recommendations,
			fmt.Sprintf("Base scenario halts in %d: demand exceeds the available harvest by %s m³",
				base.HaltYear, base.TotalShortfall.StringFixed(1)))
	}

	// Most harvest among alternatives that meet demand every year
	var bestHarvest *ComparisonResult
	for i := range compSet.AlternativeResults {
		alt := &compSet.AlternativeResults[i]
		if alt.ShortfallYears > 0 {
			continue
		}
		if bestHarvest == nil || alt.TotalAllocated.GreaterThan(bestHarvest.TotalAllocated) {
			bestHarvest = alt
		}
	}
	if bestHarvest != nil && bestHarvest.TotalAllocated.GreaterThan(base.TotalAllocated) {
		recommendations = append(recommendations,
			"Most Harvest: "+bestHarvest.ScenarioName+" allocates "+
				bestHarvest.AllocatedDiffFromBase.StringFixed(1)+" m³ more than base without shortfall")
	}

	// Lowest shortfall, only relevant when the base falls short
	if base.TotalShortfall.IsPositive() {
		lowest := base
		for i := range compSet.AlternativeResults {
			alt := &compSet.AlternativeResults[i]
			if alt.TotalShortfall.LessThan(lowest.TotalShortfall) {
				lowest = alt
			}
		}
		if lowest != base {
			recommendations = append(recommendations,
				"Lowest Shortfall: "+lowest.ScenarioName+" reduces unsatisfied demand by "+
					base.TotalShortfall.Sub(lowest.TotalShortfall).StringFixed(1)+" m³")
		}
	}

	for _, alt := range compSet.AlternativeResults {
		if alt.Halted {
			recommendations = append(recommendations,
				fmt.Sprintf("Infeasible: %s halts in %d with %s m³ unsatisfied",
					alt.ScenarioName, alt.HaltYear, alt.TotalShortfall.StringFixed(1)))
		}
	}

	return recommendations
}
