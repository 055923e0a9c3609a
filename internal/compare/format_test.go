package compare

import (
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSet() *ComparisonSet {
	return &ComparisonSet{
		BaseScenarioName: "ZZ",
		ConfigPath:       "/path/to/zz.yaml",
		BaseResult: &ComparisonResult{
			ScenarioName:        "ZZ",
			TotalDemand:         decimal.NewFromInt(1600),
			TotalAllocated:      decimal.NewFromInt(1300),
			TotalShortfall:      decimal.Zero,
			DynamicDisturbances: 3,
		},
		AlternativeResults: []ComparisonResult{
			{
				ScenarioName:          "ZZ_high_demand",
				Description:           "Raise irw and fw demand by 20%",
				TotalDemand:           decimal.NewFromInt(1920),
				TotalAllocated:        decimal.NewFromInt(1520),
				TotalShortfall:        decimal.NewFromInt(48),
				ShortfallYears:        1,
				DynamicDisturbances:   3,
				Halted:                true,
				HaltYear:              2022,
				AllocatedDiffFromBase: decimal.NewFromInt(220),
				AllocatedPctFromBase:  decimal.NewFromFloat(16.92),
				ShortfallDiffFromBase: decimal.NewFromInt(48),
				ShortfallYearsDiff:    1,
			},
			{
				ScenarioName:          "ZZ_low_demand",
				TotalDemand:           decimal.NewFromInt(1280),
				TotalAllocated:        decimal.NewFromInt(1040),
				TotalShortfall:        decimal.Zero,
				DynamicDisturbances:   4,
				AllocatedDiffFromBase: decimal.NewFromInt(-260),
				AllocatedPctFromBase:  decimal.NewFromInt(-20),
				DisturbancesDiff:      1,
			},
		},
		Recommendations: []string{"Infeasible: ZZ_high_demand halts in 2022 with 48.0 m³ unsatisfied"},
	}
}

func TestTableFormatter_Format(t *testing.T) {
	out := (&TableFormatter{}).Format(sampleSet())

	for _, want := range []string{
		"HARVEST ALLOCATION COMPARISON",
		"Base Scenario: ZZ",
		"Configuration: /path/to/zz.yaml",
		"ZZ (base)",
		"1.6K",
		"1 @2022",
		"COMPARISON TO BASE",
		"Raise irw and fw demand by 20%",
		"Allocated:        +220.0 m³ (16.9%)",
		"Allocated:        -260.0 m³ (-20.0%)",
		"Shortfall:        +48.0 m³",
		"Disturbances:     +1",
		"RECOMMENDATIONS",
		"• Infeasible: ZZ_high_demand",
	} {
		assert.Contains(t, out, want)
	}
}

func TestTableFormatter_NoAlternatives(t *testing.T) {
	set := sampleSet()
	set.AlternativeResults = nil
	set.Recommendations = nil
	set.ConfigPath = ""

	out := (&TableFormatter{}).Format(set)
	assert.NotContains(t, out, "COMPARISON TO BASE")
	assert.NotContains(t, out, "RECOMMENDATIONS")
	assert.NotContains(t, out, "Configuration:")
}

func TestTableFormatter_Helpers(t *testing.T) {
	tf := &TableFormatter{}
	assert.Equal(t, "2.50M", tf.formatDecimal(decimal.NewFromInt(2500000)))
	assert.Equal(t, "-1.5K", tf.formatDecimal(decimal.NewFromInt(-1500)))
	assert.Equal(t, "999.0", tf.formatDecimal(decimal.NewFromInt(999)))
	assert.Equal(t, "abcd...", tf.truncate("abcdefghij", 7))
	assert.Equal(t, "short", tf.truncate("short", 7))
}

func TestTableFormatter_FormatCompact(t *testing.T) {
	out := (&TableFormatter{}).FormatCompact(sampleSet())
	assert.Equal(t, "Base: ZZ | ZZ_high_demand: +220.0 m³ (halts) | ZZ_low_demand: -260.0 m³", out)
}

func TestCSVFormatter_Format(t *testing.T) {
	out, err := (&CSVFormatter{}).Format(sampleSet())
	require.NoError(t, err)

	records, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, "Scenario", records[0][0])
	assert.Equal(t, []string{"ZZ", "base", "1600.00", "1300.00"}, records[1][:4])
	assert.Equal(t, "alternative", records[2][1])
	assert.Equal(t, "true", records[2][9])
	assert.Equal(t, "2022", records[2][10])
	assert.Equal(t, "", records[3][10])
	assert.Equal(t, "-20.00", records[3][12])
}

func TestJSONFormatter_Format(t *testing.T) {
	for _, pretty := range []bool{false, true} {
		out, err := (&JSONFormatter{Pretty: pretty}).Format(sampleSet())
		require.NoError(t, err)
		assert.False(t, strings.HasSuffix(out, "\n"))
		assert.Equal(t, pretty, strings.Contains(out, "\n  "))
		assert.Contains(t, out, "m³")

		var decoded map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(out), &decoded))
		assert.Equal(t, "ZZ", decoded["baseScenarioName"])
		alts := decoded["alternativeResults"].([]interface{})
		require.Len(t, alts, 2)
		assert.Equal(t, true, alts[0].(map[string]interface{})["halted"])
	}
}
