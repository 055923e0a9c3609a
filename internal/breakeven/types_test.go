package breakeven

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rgehrsitz/hatgo/internal/domain"
)

func TestParseTarget(t *testing.T) {
	got, err := ParseTarget("interval_bias")
	require.NoError(t, err)
	assert.Equal(t, TargetIntervalBias, got)

	_, err = ParseTarget("age")
	assert.Error(t, err)
}

func TestDefaultBounds(t *testing.T) {
	assert.Equal(t, "0", DefaultBounds(TargetDemand).Min.String())
	assert.Equal(t, "10", DefaultBounds(TargetDemand).Max.String())
	assert.Equal(t, "1", DefaultBounds(TargetIntervalBias).Min.String())
}

func TestRequest_Label(t *testing.T) {
	tests := []struct {
		req  Request
		want string
	}{
		{Request{Target: TargetDemand, Product: domain.ProductIRW}, "irw demand"},
		{Request{Target: TargetDemand}, "all demand"},
		{Request{Target: TargetIntervalBias}, "interval bias"},
		{Request{Target: TargetIntervalBias, Template: "cc_even"}, "cc_even interval bias"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.req.Label())
	}
}

func TestRequest_Transform(t *testing.T) {
	v := decimal.NewFromFloat(1.5)
	assert.Equal(t, "scale_demand", Request{Target: TargetDemand}.transform(v).Name())
	assert.Equal(t, "scale_interval_bias", Request{Target: TargetIntervalBias}.transform(v).Name())
}

func TestBreakEvenError(t *testing.T) {
	cause := errors.New("boom")
	err := &BreakEvenError{Operation: "solve", Message: "run failed", Cause: cause}
	assert.Equal(t, "solve: run failed: boom", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "solve: bad", (&BreakEvenError{Operation: "solve", Message: "bad"}).Error())
}

func sampleMulti() *MultiResult {
	irw := Result{
		Request:           Request{Target: TargetDemand, Product: domain.ProductIRW},
		Success:           true,
		Factor:            decimal.NewFromFloat(1.25),
		LimitingYear:      2022,
		LimitingProduct:   domain.ProductIRW,
		LimitingShortfall: decimal.NewFromFloat(12.5),
		TotalAllocated:    decimal.NewFromInt(2500),
	}
	fw := Result{
		Request:      Request{Target: TargetDemand, Product: domain.ProductFW},
		Success:      true,
		AtUpperBound: true,
		Factor:       decimal.NewFromInt(10),
	}
	shrink := Result{
		Request:      Request{Target: TargetDemand},
		Success:      true,
		Factor:       decimal.NewFromFloat(0.8),
		LimitingYear: 2021,
	}
	multi := &MultiResult{Results: []Result{irw, fw, shrink}}
	multi.Binding = &multi.Results[0]
	multi.Recommendations = recommendations(multi)
	return multi
}

func TestRecommendations(t *testing.T) {
	recs := sampleMulti().Recommendations
	require.Len(t, recs, 4)
	assert.Equal(t, "Irw demand can grow by 25.0% before 2022 runs short of irw", recs[0])
	assert.Equal(t, "Fw demand can grow at least 900.0% without a shortfall", recs[1])
	assert.Equal(t, "All demand must fall by 20.0% to avoid a shortfall in 2021", recs[2])
	assert.Equal(t, "Binding product: irw", recs[3])
}

func TestTableFormatter(t *testing.T) {
	tf := &TableFormatter{}
	multi := sampleMulti()

	out := tf.Format(&multi.Results[0])
	assert.Contains(t, out, "SUSTAINABLE DEMAND SEARCH")
	assert.Contains(t, out, "Factor searched: irw demand")
	assert.Contains(t, out, "Largest feasible factor: 1.250")
	assert.Contains(t, out, "First shortfall above:   2022, irw 12.5 m³")
	assert.NotContains(t, tf.Format(&multi.Results[1]), "First shortfall")

	table := tf.FormatMulti(multi)
	assert.Contains(t, table, "SUSTAINABLE DEMAND BY PRODUCT")
	assert.Contains(t, table, "2.5K")
	assert.Contains(t, table, "• Binding product: irw")
	assert.Equal(t, 1, strings.Count(table, "RECOMMENDATIONS"))

	assert.Equal(t, "1.5M", tf.formatShort(decimal.NewFromInt(1_500_000)))
	assert.Equal(t, "999.0", tf.formatShort(decimal.NewFromInt(999)))
}

func TestFormatJSON(t *testing.T) {
	out, err := FormatJSON(sampleMulti())
	require.NoError(t, err)
	assert.Contains(t, out, `"factor": "1.25"`)
	assert.Contains(t, out, `"product": "irw"`)
	assert.Contains(t, out, `"binding"`)
}
