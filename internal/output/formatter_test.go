package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/rgehrsitz/hatgo/internal/domain"
)

func sampleResult() *domain.RunResult {
	cls := domain.Classifiers{"forest_type": "FS", "mgmt_type": "even"}
	return &domain.RunResult{
		RunID:        "run-1",
		Country:      "ZZ",
		NeverMatched: []string{"cc_ob"},
		Years: []domain.YearResult{
			{
				Summary: domain.YearSummary{Year: 2020, Timestep: 1},
				Pool:    domain.VirtualPool{Year: 2020},
			},
			{
				Summary: domain.YearSummary{
					Year: 2021, Timestep: 2, HATApplied: true,
					DemandIRW: 600, DemandFW: 500,
					RemainingIRW: 600, RemainingFW: 500,
					AvailableIRW: 1200, AvailableFW: 800,
					AllocatedIRW: 600, CollateralFW: 200, StillRemainingFW: 300, AllocatedFW: 300,
					DynamicDisturbances: 1,
				},
				Instructions: []domain.DisturbanceInstruction{{
					Year: 2021, Timestep: 2,
					Classifiers:     cls,
					DisturbanceType: "10",
					DistTypeName:    "Clearcut",
					MeasurementType: domain.MeasurementMass,
					Amount:          200,
					Eligibility:     domain.Eligibility{MinAge: 50, MaxAge: 200, MinSinceLast: -1},
					Provenance:      domain.Provenance{RunID: "run-1", TemplateID: "cc_even", Product: domain.ProductIRW, Origin: domain.OriginDynamic},
				}},
				Groups: []domain.GroupReport{{
					Year: 2021, GroupID: "cc_even|FS|even", TemplateID: "cc_even", Bucket: "irw",
					Classifiers: cls, Available: 1200, PreBiasFrac: 1, PreBiasVolume: 600,
					AdjustedFrac: 1, HarvestVolume: 600, AllocatedMass: 200,
				}},
				Pool: domain.VirtualPool{Year: 2021, DynamicIRWTC: 150, DynamicFWTC: 50},
			},
		},
	}
}

func readCSV(t *testing.T, data []byte) [][]string {
	t.Helper()
	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	return records
}

func column(t *testing.T, records [][]string, name string) int {
	t.Helper()
	for i, h := range records[0] {
		if h == name {
			return i
		}
	}
	t.Fatalf("column %s not found", name)
	return -1
}

func TestGetFormatterByName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"console", "console"},
		{"table", "console"},
		{"CSV", "csv"},
		{"events", "events-csv"},
		{"groups-csv", "groups-csv"},
		{" json ", "json"},
		{"yml", "yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := GetFormatterByName(tt.name)
			require.NotNil(t, f)
			assert.Equal(t, tt.want, f.Name())
		})
	}
	assert.Nil(t, GetFormatterByName("html"))
}

func TestAvailableNames(t *testing.T) {
	assert.Equal(t, []string{"console", "csv", "events-csv", "groups-csv", "json", "yaml"}, AvailableFormatterNames())
	assert.Equal(t, []string{"events", "groups", "table", "yml"}, AvailableFormatAliases())
	for _, alias := range AvailableFormatAliases() {
		assert.NotNil(t, GetFormatterByName(alias), alias)
	}
}

func TestFormatterFunc(t *testing.T) {
	f := FormatterFunc{ID: "count", F: func(r *domain.RunResult) ([]byte, error) {
		return []byte(strings.Repeat("y", len(r.Years))), nil
	}}
	assert.Equal(t, "count", f.Name())
	data, err := f.Format(sampleResult())
	require.NoError(t, err)
	assert.Equal(t, "yy", string(data))
}

func TestSummaryCSV(t *testing.T) {
	data, err := SummaryCSVFormatter{}.Format(sampleResult())
	require.NoError(t, err)

	records := readCSV(t, data)
	require.Len(t, records, 3)
	row := records[2]
	assert.Equal(t, "2021", row[column(t, records, "year")])
	assert.Equal(t, "true", row[column(t, records, "hat_applied")])
	assert.Equal(t, "1200.0", row[column(t, records, "tot_irw_vol_avail")])
	assert.Equal(t, "200.0", row[column(t, records, "fw_colat")])
	assert.Equal(t, "0.0", row[column(t, records, "shortfall_irw_vol")])
	assert.Equal(t, "150.000", row[column(t, records, "irw_dynamic_tc")])
	assert.Equal(t, "false", records[1][column(t, records, "hat_applied")])
}

func TestEventsCSV(t *testing.T) {
	data, err := EventsCSVFormatter{}.Format(sampleResult())
	require.NoError(t, err)

	records := readCSV(t, data)
	require.Len(t, records, 2)
	row := records[1]
	assert.Equal(t, "forest_type=FS;mgmt_type=even", row[column(t, records, "classifiers")])
	assert.Equal(t, "M", row[column(t, records, "measurement_type")])
	assert.Equal(t, "200.000", row[column(t, records, "amount")])
	assert.Equal(t, "-1", row[column(t, records, "min_since_last")])
	assert.Equal(t, "irw", row[column(t, records, "product")])
	assert.Equal(t, "dynamic", row[column(t, records, "origin")])
	assert.Equal(t, "run-1", row[column(t, records, "run_id")])
	assert.Equal(t, "", row[column(t, records, "realized")], "the year was not stepped")
}

// committedResult adds the engine's report of year 2021 to sampleResult: a
// predetermined storm and the dynamic clearcut, placed only in part.
func committedResult() *domain.RunResult {
	res := sampleResult()
	y := &res.Years[1]
	storm := domain.DisturbanceInstruction{
		Year: 2021, Timestep: 2,
		Classifiers:     domain.Classifiers{"forest_type": "FS", "mgmt_type": "even"},
		DisturbanceType: "50",
		MeasurementType: domain.MeasurementArea,
		Amount:          5,
		Eligibility:     domain.AnyStand,
		Provenance:      domain.Provenance{Origin: domain.OriginPredetermined},
	}
	y.Events = []domain.AppliedEvent{
		{Instruction: storm, Realized: 5, Area: 5},
		{Instruction: y.Instructions[0], Realized: 180, Area: 9},
	}
	return res
}

func TestEventsCSV_CommittedEvents(t *testing.T) {
	data, err := EventsCSVFormatter{}.Format(committedResult())
	require.NoError(t, err)

	records := readCSV(t, data)
	require.Len(t, records, 3)

	storm := records[1]
	assert.Equal(t, "predetermined", storm[column(t, records, "origin")])
	assert.Equal(t, "", storm[column(t, records, "product")])
	assert.Equal(t, "A", storm[column(t, records, "measurement_type")])
	assert.Equal(t, "5.000", storm[column(t, records, "realized")])
	assert.Equal(t, "0.000", storm[column(t, records, "unrealized")])

	clearcut := records[2]
	assert.Equal(t, "dynamic", clearcut[column(t, records, "origin")])
	assert.Equal(t, "200.000", clearcut[column(t, records, "amount")])
	assert.Equal(t, "180.000", clearcut[column(t, records, "realized")])
	assert.Equal(t, "20.000", clearcut[column(t, records, "unrealized")])
}

func TestJSONFormatter_CommittedEventsRoundTrip(t *testing.T) {
	data, err := JSONFormatter{}.Format(committedResult())
	require.NoError(t, err)

	var decoded domain.RunResult
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded.Years, 2)
	events := decoded.Years[1].Events
	require.Len(t, events, 2)
	assert.Equal(t, domain.OriginPredetermined, events[0].Instruction.Provenance.Origin)
	assert.Equal(t, domain.ProductUnknown, events[0].Instruction.Provenance.Product)
	assert.InDelta(t, 20, events[1].Unrealized(), 1e-9)
}

func TestGroupsCSV(t *testing.T) {
	data, err := GroupsCSVFormatter{}.Format(sampleResult())
	require.NoError(t, err)

	records := readCSV(t, data)
	require.Len(t, records, 2)
	row := records[1]
	assert.Equal(t, "cc_even|FS|even", row[column(t, records, "group_id")])
	assert.Equal(t, "1.000000", row[column(t, records, "pre_bias_frac")])
	assert.Equal(t, "600.0", row[column(t, records, "pre_bias_volume")])
}

func TestConsoleFormatter(t *testing.T) {
	data, err := ConsoleFormatter{}.Format(sampleResult())
	require.NoError(t, err)

	out := string(data)
	assert.Contains(t, out, "HARVEST ALLOCATION: ZZ")
	assert.Contains(t, out, "2021")
	assert.Contains(t, out, "1200.0")
	assert.Contains(t, out, "Products: irw 150.000 tC, fw 50.000 tC")
	assert.Contains(t, out, "cc_ob")
}

func TestJSONFormatter(t *testing.T) {
	data, err := JSONFormatter{}.Format(sampleResult())
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "run-1", decoded["runId"])
	years := decoded["years"].([]interface{})
	require.Len(t, years, 2)
	summary := years[1].(map[string]interface{})["summary"].(map[string]interface{})
	assert.Equal(t, 600.0, summary["allocatedIrwVol"])
}

func TestYAMLFormatter(t *testing.T) {
	data, err := YAMLFormatter{}.Format(sampleResult())
	require.NoError(t, err)

	var decoded yamlReport
	require.NoError(t, yaml.Unmarshal(data, &decoded))
	assert.Equal(t, "ZZ", decoded.Country)
	require.Len(t, decoded.Years, 2)
	assert.Equal(t, 300.0, decoded.Years[1].AllocatedFW)
	require.Len(t, decoded.Events, 1)
	assert.Equal(t, domain.ProductIRW, decoded.Events[0].Provenance.Product)
	assert.Equal(t, []string{"cc_ob"}, decoded.NeverMatched)
}

func TestWriteTo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.csv")
	require.NoError(t, WriteTo(SummaryCSVFormatter{}, sampleResult(), path, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "year,timestep,hat_applied"))

	var buf bytes.Buffer
	require.NoError(t, WriteTo(SummaryCSVFormatter{}, sampleResult(), "-", &buf))
	assert.Equal(t, string(data), buf.String())
}

func TestWriteFormatted(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer func() { _ = os.Chdir(wd) }()

	name, err := WriteFormatted(JSONFormatter{}, sampleResult(), "json")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(name, "hat_report_ZZ_"))
	assert.True(t, strings.HasSuffix(name, ".json"))
	_, err = os.Stat(filepath.Join(dir, name))
	assert.NoError(t, err)
}

func TestNumberFormatting(t *testing.T) {
	assert.Equal(t, "1234.6", FormatVolume(1234.56))
	assert.Equal(t, "0.333", FormatMass(1.0/3))
	assert.Equal(t, "-50.0", FormatVolume(-50))
	assert.Equal(t, "0.250000", FormatFraction(0.25))
}
