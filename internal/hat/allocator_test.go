package hat

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rgehrsitz/hatgo/internal/domain"
)

func harvestByGroup(a *Allocation) map[string]float64 {
	out := map[string]float64{}
	for _, r := range a.Results {
		out[r.StandGroupID] += r.HarvestVolume
	}
	return out
}

func TestAllocate_ExactDistribution(t *testing.T) {
	groups := []*domain.StandGroup{
		group("a", domain.IRWAndFW, 140, 70),
		group("b", domain.IRWAndFW, 0, 0),
		group("c", domain.IRWAndFW, 60, 30),
	}
	b := BuildBuckets(groups)
	require.Len(t, b.IRW, 2, "groups without availability are not candidates")

	a, err := NewDemandAllocator("ZZ", 2030, 0).Allocate(Demand{IRW: 200}, b)
	require.NoError(t, err)

	got := harvestByGroup(a)
	assert.InDelta(t, 140, got["a"], 1e-9)
	assert.InDelta(t, 60, got["c"], 1e-9)
	assert.NotContains(t, got, "b")
	assert.InDelta(t, 200, a.AllocatedIRW, 1e-9)
	assert.InDelta(t, 100, a.CollateralFW, 1e-9)

	for _, r := range a.Results {
		if r.StandGroupID == "a" {
			assert.InDelta(t, 70, r.CollateralFW, 1e-9)
			assert.InDelta(t, 52.5, r.AllocatedMass, 1e-9)
			assert.InDelta(t, 35, r.IRWMass, 1e-9)
			assert.InDelta(t, 17.5, r.FWMass, 1e-9)
		}
	}
}

func TestAllocate_NoDynamicHarvest(t *testing.T) {
	b := BuildBuckets([]*domain.StandGroup{
		group("a", domain.IRWAndFW, 500, 100),
		group("f", domain.FWOnly, 0, 500),
	})
	demand := Demand{IRW: 10, PredeterminedIRW: 60, FW: 5, PredeterminedFW: 15}

	a, err := NewDemandAllocator("ZZ", 2030, 0).Allocate(demand, b)
	require.NoError(t, err)

	assert.Empty(t, a.Results)
	assert.Equal(t, -50.0, a.RemainingIRW)
	assert.Equal(t, -10.0, a.RemainingFW)
	assert.Equal(t, StateDone, a.State)
	require.Len(t, a.Transitions, 2)
	assert.Equal(t, StatePendingIRW, a.Transitions[0].From)
	assert.Equal(t, StatePendingFW, a.Transitions[1].From)
}

func TestAllocate_ShortfallStillRunsFuelwood(t *testing.T) {
	b := BuildBuckets([]*domain.StandGroup{
		group("a", domain.IRWAndFW, 200, 100),
		group("b", domain.IRWAndFW, 100, 50),
		group("f", domain.FWOnly, 0, 1000),
	})

	a, err := NewDemandAllocator("ZZ", 2030, 0).Allocate(Demand{IRW: 500, FW: 400}, b)
	require.Error(t, err)

	var unsatisfied *domain.UnsatisfiedDemandError
	require.True(t, errors.As(err, &unsatisfied))
	assert.Equal(t, 2030, unsatisfied.Year)
	assert.Equal(t, "ZZ", unsatisfied.Country)
	assert.InDelta(t, 200, unsatisfied.For(domain.ProductIRW), 1e-9)
	assert.Zero(t, unsatisfied.For(domain.ProductFW))

	assert.InDelta(t, 300, a.AllocatedIRW, 1e-9)
	assert.InDelta(t, 200, a.ShortfallIRW, 1e-9)
	assert.InDelta(t, 150, a.CollateralFW, 1e-9)
	assert.InDelta(t, 250, a.StillRemainingFW, 1e-9)
	assert.InDelta(t, 250, a.AllocatedFW, 1e-9)
	assert.Equal(t, StateDone, a.State)
}

func TestAllocate_SalvageFirst(t *testing.T) {
	salvage := group("s", domain.IRWAndFW, 50, 10)
	salvage.Template.LastDistID = "50"
	b := BuildBuckets([]*domain.StandGroup{
		group("a", domain.IRWAndFW, 100, 20),
		salvage,
	})
	require.Len(t, b.Salvage, 1)

	a, err := NewDemandAllocator("ZZ", 2030, 0).Allocate(Demand{IRW: 80}, b)
	require.NoError(t, err)
	require.Len(t, a.Results, 2)

	assert.Equal(t, "s", a.Results[0].StandGroupID)
	assert.True(t, a.Results[0].Salvage)
	assert.InDelta(t, 50, a.Results[0].HarvestVolume, 1e-9)
	assert.Equal(t, "a", a.Results[1].StandGroupID)
	assert.False(t, a.Results[1].Salvage)
	assert.InDelta(t, 30, a.Results[1].HarvestVolume, 1e-9)
}

func TestGroupReports_IRWBucketGetsDemandLeftAfterSalvage(t *testing.T) {
	salvage := group("s", domain.IRWAndFW, 50, 10)
	salvage.Template.LastDistID = "50"
	b := BuildBuckets([]*domain.StandGroup{
		group("a", domain.IRWAndFW, 100, 20),
		salvage,
	})
	preBias := map[*Candidate]float64{}
	b.Each(func(_ Bucket, c *Candidate) { preBias[c] = c.Frac })

	a, err := NewDemandAllocator("ZZ", 2030, 0).Allocate(Demand{IRW: 80}, b)
	require.NoError(t, err)
	assert.InDelta(t, 50, a.SalvageIRW, 1e-9)

	reports := map[string]domain.GroupReport{}
	for _, r := range groupReports(2030, b, a, preBias) {
		reports[r.GroupID] = r
	}
	require.Len(t, reports, 2)
	assert.Equal(t, string(BucketIRWSalvage), reports["s"].Bucket)
	assert.InDelta(t, 80, reports["s"].PreBiasVolume, 1e-9)
	assert.Equal(t, string(BucketIRW), reports["a"].Bucket)
	assert.InDelta(t, 30, reports["a"].PreBiasVolume, 1e-9)
	assert.InDelta(t, reports["a"].HarvestVolume, reports["a"].PreBiasVolume, 1e-9)
}

func TestAllocate_ToleranceAbsorbsRounding(t *testing.T) {
	b := BuildBuckets([]*domain.StandGroup{group("a", domain.IRWAndFW, 100-1e-5, 10)})

	a, err := NewDemandAllocator("ZZ", 2030, 1e-6).Allocate(Demand{IRW: 100}, b)
	require.NoError(t, err)
	assert.Zero(t, a.ShortfallIRW)
}

func TestAllocate_PhasesInOrder(t *testing.T) {
	b := BuildBuckets([]*domain.StandGroup{
		group("a", domain.IRWAndFW, 100, 20),
		group("f", domain.FWOnly, 0, 100),
	})

	a, err := NewDemandAllocator("ZZ", 2030, 0).Allocate(Demand{IRW: 50, FW: 30}, b)
	require.NoError(t, err)

	states := []State{StatePendingIRW}
	for _, tr := range a.Transitions {
		assert.Equal(t, states[len(states)-1], tr.From)
		states = append(states, tr.To)
	}
	assert.Equal(t, []State{StatePendingIRW, StatePendingFW, StateDone}, states)

	require.Len(t, a.Results, 2)
	assert.Equal(t, domain.ProductIRW, a.Results[0].Product)
	assert.Equal(t, domain.ProductFW, a.Results[1].Product)
	// 50 m3 irw brings 10 m3 collateral fuelwood.
	assert.InDelta(t, 20, a.Results[1].HarvestVolume, 1e-9)
}

func TestWaterFill(t *testing.T) {
	tests := []struct {
		name    string
		amount  float64
		weights []float64
		caps    []float64
		want    []float64
	}{
		{"proportional", 50, []float64{0.5, 0.25, 0.25}, []float64{100, 100, 100}, []float64{25, 12.5, 12.5}},
		{"one saturates", 100, []float64{1, 1}, []float64{10, 200}, []float64{10, 90}},
		{"cascade", 90, []float64{1, 1, 1}, []float64{10, 25, 100}, []float64{10, 25, 55}},
		{"all saturate", 100, []float64{1, 1, 0}, []float64{10, 20, 500}, []float64{10, 20, 0}},
		{"nothing to place", 0, []float64{1, 1}, []float64{10, 10}, []float64{0, 0}},
		{"empty", 10, nil, nil, []float64{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WaterFill(tt.amount, tt.weights, tt.caps)
			require.Len(t, got, len(tt.want))
			for i := range got {
				assert.InDelta(t, tt.want[i], got[i], 1e-9, "entry %d", i)
				if len(tt.caps) > 0 {
					assert.LessOrEqual(t, got[i], tt.caps[i]+1e-9)
				}
			}
		})
	}
}

func TestWaterFill_SumsToMinOfAmountAndCapacity(t *testing.T) {
	weights := []float64{0.1, 0.4, 0.2, 0.3}
	caps := []float64{5, 80, 13, 40}
	for _, amount := range []float64{1, 37, 100, 138, 500} {
		got := WaterFill(amount, weights, caps)
		want := amount
		if want > 138 {
			want = 138
		}
		assert.InDelta(t, want, sum(got), 1e-9, "amount %v", amount)
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "PENDING_IRW", StatePendingIRW.String())
	assert.Equal(t, "PENDING_FW", StatePendingFW.String())
	assert.Equal(t, "DONE", StateDone.String())
	assert.Equal(t, "State(9)", State(9).String())
}
