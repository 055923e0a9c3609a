package output

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"strings"

	"github.com/rgehrsitz/hatgo/internal/domain"
)

// SummaryCSVFormatter writes one row per simulated year.
type SummaryCSVFormatter struct{}

func (SummaryCSVFormatter) Name() string { return "csv" }

func (SummaryCSVFormatter) Format(result *domain.RunResult) ([]byte, error) {
	header := []string{
		"year", "timestep", "hat_applied",
		"demand_irw_vol", "demand_fw_vol",
		"irw_predetermined", "fw_predetermined",
		"remain_irw_vol", "remain_fw_vol",
		"irw_salv_avail", "fw_salv_avail",
		"tot_irw_vol_avail", "tot_fw_vol_avail",
		"allocated_irw_vol", "fw_colat", "still_remain_fw_vol", "allocated_fw_vol",
		"shortfall_irw_vol", "shortfall_fw_vol",
		"dynamic_disturbances",
		"irw_predetermined_tc", "fw_predetermined_tc", "irw_dynamic_tc", "fw_dynamic_tc",
	}
	rows := make([][]string, 0, len(result.Years))
	for _, y := range result.Years {
		s := y.Summary
		rows = append(rows, []string{
			strconv.Itoa(s.Year),
			strconv.Itoa(s.Timestep),
			strconv.FormatBool(s.HATApplied),
			FormatVolume(s.DemandIRW),
			FormatVolume(s.DemandFW),
			FormatVolume(s.PredeterminedIRW),
			FormatVolume(s.PredeterminedFW),
			FormatVolume(s.RemainingIRW),
			FormatVolume(s.RemainingFW),
			FormatVolume(s.SalvageAvailableIRW),
			FormatVolume(s.SalvageAvailableFW),
			FormatVolume(s.AvailableIRW),
			FormatVolume(s.AvailableFW),
			FormatVolume(s.AllocatedIRW),
			FormatVolume(s.CollateralFW),
			FormatVolume(s.StillRemainingFW),
			FormatVolume(s.AllocatedFW),
			FormatVolume(s.ShortfallIRW),
			FormatVolume(s.ShortfallFW),
			strconv.Itoa(s.DynamicDisturbances),
			FormatMass(y.Pool.PredeterminedIRWTC),
			FormatMass(y.Pool.PredeterminedFWTC),
			FormatMass(y.Pool.DynamicIRWTC),
			FormatMass(y.Pool.DynamicFWTC),
		})
	}
	return writeCSV(header, rows)
}

// EventsCSVFormatter writes every disturbance the engine committed,
// predetermined ones included, with the amount it realized. A year that was
// not stepped contributes its pending instructions with blank realized
// amounts.
type EventsCSVFormatter struct{}

func (EventsCSVFormatter) Name() string { return "events-csv" }

func (EventsCSVFormatter) Format(result *domain.RunResult) ([]byte, error) {
	header := []string{
		"year", "timestep", "classifiers", "disturbance_type", "dist_type_name",
		"measurement_type", "amount", "sort_type",
		"min_age", "max_age", "min_since_last", "last_dist_id",
		"template_id", "product", "origin", "run_id",
		"realized", "unrealized",
	}
	var rows [][]string
	for _, y := range result.Years {
		if len(y.Events) > 0 {
			for _, e := range y.Events {
				rows = append(rows, append(instructionRow(e.Instruction),
					FormatMass(e.Realized), FormatMass(e.Unrealized())))
			}
			continue
		}
		for _, in := range y.Instructions {
			rows = append(rows, append(instructionRow(in), "", ""))
		}
	}
	return writeCSV(header, rows)
}

func instructionRow(in domain.DisturbanceInstruction) []string {
	product := ""
	if in.Provenance.Product != domain.ProductUnknown {
		product = in.Provenance.Product.String()
	}
	return []string{
		strconv.Itoa(in.Year),
		strconv.Itoa(in.Timestep),
		classifierString(in.Classifiers),
		in.DisturbanceType,
		in.DistTypeName,
		string(in.MeasurementType),
		FormatMass(in.Amount),
		in.SortType,
		strconv.Itoa(in.Eligibility.MinAge),
		strconv.Itoa(in.Eligibility.MaxAge),
		strconv.Itoa(in.Eligibility.MinSinceLast),
		in.Eligibility.LastDistID,
		in.Provenance.TemplateID,
		product,
		string(in.Provenance.Origin),
		in.Provenance.RunID,
	}
}

// GroupsCSVFormatter writes the per-group distribution before and after the
// market bias.
type GroupsCSVFormatter struct{}

func (GroupsCSVFormatter) Name() string { return "groups-csv" }

func (GroupsCSVFormatter) Format(result *domain.RunResult) ([]byte, error) {
	header := []string{
		"year", "group_id", "template_id", "bucket", "classifiers",
		"available", "pre_bias_frac", "pre_bias_volume", "adjusted_frac",
		"harvest_volume", "allocated_mass",
	}
	var rows [][]string
	for _, y := range result.Years {
		for _, g := range y.Groups {
			rows = append(rows, []string{
				strconv.Itoa(g.Year),
				g.GroupID,
				g.TemplateID,
				g.Bucket,
				classifierString(g.Classifiers),
				FormatVolume(g.Available),
				FormatFraction(g.PreBiasFrac),
				FormatVolume(g.PreBiasVolume),
				FormatFraction(g.AdjustedFrac),
				FormatVolume(g.HarvestVolume),
				FormatMass(g.AllocatedMass),
			})
		}
	}
	return writeCSV(header, rows)
}

func writeCSV(header []string, rows [][]string) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	if err := w.Write(header); err != nil {
		return nil, err
	}
	if err := w.WriteAll(rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// classifierString renders classifiers as name=value pairs in name order.
func classifierString(c domain.Classifiers) string {
	names := c.SortedNames()
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = n + "=" + c[n]
	}
	return strings.Join(parts, ";")
}
