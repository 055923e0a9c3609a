package hat

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rgehrsitz/hatgo/internal/domain"
	"github.com/rgehrsitz/hatgo/internal/engine"
)

func zzGroup(cfg *domain.Configuration, templateID, mgmt string) *domain.StandGroup {
	for i := range cfg.Templates {
		if cfg.Templates[i].ID == templateID {
			return &domain.StandGroup{
				ID:          templateID + "|FS|" + mgmt,
				TemplateID:  templateID,
				Template:    &cfg.Templates[i],
				Classifiers: domain.Classifiers{"forest_type": "FS", "mgmt_type": mgmt},
			}
		}
	}
	panic("unknown template " + templateID)
}

func TestEstimate_ConvertsFluxToVolumes(t *testing.T) {
	cfg := zzConfig()
	cfg.Templates[0].DistIntervalBias = 2
	tables, err := newYearTables(cfg, 2021)
	require.NoError(t, err)

	cc := zzGroup(cfg, "cc_even", "even")
	fw := zzGroup(cfg, "fw_uneven", "uneven")
	sb := &scriptedSandbox{flux: map[string]domain.FluxVector{
		"cc_even":   {domain.SoftwoodMerch: 300, domain.SoftwoodOther: 100},
		"fw_uneven": {domain.SoftwoodOther: 200},
	}}

	require.NoError(t, newPotentialYieldEstimator(tables).Estimate(context.Background(), sb, []*domain.StandGroup{cc, fw}))

	assert.InDelta(t, 1200, cc.PotentialIRW, 1e-9)
	assert.InDelta(t, 400, cc.PotentialFW, 1e-9)
	assert.InDelta(t, 600, cc.AvailableIRW, 1e-9)
	assert.InDelta(t, 200, cc.AvailableFW, 1e-9)
	assert.Equal(t, fourToOne, cc.Coefficient)
	assert.Equal(t, 400.0, cc.Flux.Total())

	assert.Zero(t, fw.PotentialIRW)
	assert.InDelta(t, 800, fw.PotentialFW, 1e-9)
	assert.InDelta(t, 800, fw.AvailableFW, 1e-9)
}

func TestEstimate_ProductConsistency(t *testing.T) {
	t.Run("fw_only producing irw", func(t *testing.T) {
		cfg := zzConfig()
		cfg.IRWFractions[1].Fraction = ptr(0.5)
		tables, err := newYearTables(cfg, 2021)
		require.NoError(t, err)

		sb := &scriptedSandbox{flux: map[string]domain.FluxVector{"fw_uneven": {domain.SoftwoodOther: 200}}}
		err = newPotentialYieldEstimator(tables).Estimate(context.Background(), sb, []*domain.StandGroup{zzGroup(cfg, "fw_uneven", "uneven")})

		var inconsistent *domain.ConfigInconsistencyError
		require.True(t, errors.As(err, &inconsistent), "got %v", err)
		assert.Contains(t, inconsistent.Reason, "fw_only")
	})

	t.Run("irw_and_fw without fuelwood", func(t *testing.T) {
		cfg := zzConfig()
		tables, err := newYearTables(cfg, 2021)
		require.NoError(t, err)

		sb := &scriptedSandbox{flux: map[string]domain.FluxVector{"cc_even": {domain.SoftwoodMerch: 300}}}
		err = newPotentialYieldEstimator(tables).Estimate(context.Background(), sb, []*domain.StandGroup{zzGroup(cfg, "cc_even", "even")})

		var inconsistent *domain.ConfigInconsistencyError
		require.True(t, errors.As(err, &inconsistent), "got %v", err)
		assert.Contains(t, inconsistent.Reason, "produces no fuelwood")
	})
}

func TestEstimate_MissingTables(t *testing.T) {
	t.Run("no coefficients", func(t *testing.T) {
		cfg := zzConfig()
		cfg.WoodCoefficients = nil
		tables, err := newYearTables(cfg, 2021)
		require.NoError(t, err)

		sb := &scriptedSandbox{flux: map[string]domain.FluxVector{"cc_even": {domain.SoftwoodMerch: 1, domain.SoftwoodOther: 1}}}
		err = newPotentialYieldEstimator(tables).Estimate(context.Background(), sb, []*domain.StandGroup{zzGroup(cfg, "cc_even", "even")})

		var inconsistent *domain.ConfigInconsistencyError
		require.True(t, errors.As(err, &inconsistent), "got %v", err)
		assert.Equal(t, "vol_to_mass_coefs", inconsistent.Table)
	})

	t.Run("no irw fraction", func(t *testing.T) {
		cfg := zzConfig()
		cfg.IRWFractions = cfg.IRWFractions[1:]
		tables, err := newYearTables(cfg, 2021)
		require.NoError(t, err)

		sb := &scriptedSandbox{flux: map[string]domain.FluxVector{"cc_even": {domain.SoftwoodMerch: 1, domain.SoftwoodOther: 1}}}
		err = newPotentialYieldEstimator(tables).Estimate(context.Background(), sb, []*domain.StandGroup{zzGroup(cfg, "cc_even", "even")})

		var inconsistent *domain.ConfigInconsistencyError
		require.True(t, errors.As(err, &inconsistent), "got %v", err)
		assert.Equal(t, "irw_fractions", inconsistent.Table)
	})
}

func TestEstimate_EngineFailures(t *testing.T) {
	cfg := zzConfig()
	tables, err := newYearTables(cfg, 2021)
	require.NoError(t, err)
	groups := []*domain.StandGroup{zzGroup(cfg, "cc_even", "even")}

	t.Run("evaluate error", func(t *testing.T) {
		boom := errors.New("boom")
		err := newPotentialYieldEstimator(tables).Estimate(context.Background(), &scriptedSandbox{evalErr: boom}, groups)

		var evalErr *engine.EvaluationError
		require.True(t, errors.As(err, &evalErr))
		assert.Equal(t, "evaluate", evalErr.Op)
		assert.Equal(t, "cc_even|FS|even", evalErr.Group)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("NaN flux", func(t *testing.T) {
		sb := &scriptedSandbox{flux: map[string]domain.FluxVector{"cc_even": {domain.SoftwoodMerch: math.NaN()}}}
		err := newPotentialYieldEstimator(tables).Estimate(context.Background(), sb, groups)

		var evalErr *engine.EvaluationError
		require.True(t, errors.As(err, &evalErr))
	})
}

func TestEmit(t *testing.T) {
	cc := group("cc", domain.IRWAndFW, 100, 20)
	cc.Template.MinAge = 50
	cc.Template.MaxAge = 200
	cc.Template.MinSinceLast = -1
	cc.Template.SortType = "oldest_first"
	fw := group("fw", domain.FWOnly, 0, 100)

	results := []domain.AllocationResult{
		{StandGroupID: "cc", Product: domain.ProductIRW, AllocatedMass: 15, IRWMass: 12.5, FWMass: 2.5, Group: cc},
		{StandGroupID: "idle", Product: domain.ProductIRW, AllocatedMass: 0},
		{StandGroupID: "fw", Product: domain.ProductFW, AllocatedMass: 5, FWMass: 5, Group: fw},
	}
	pool := domain.NewVirtualPool(2030)

	out, err := NewDisturbanceEmitter("run-1", 2030, 11, domain.RecencyStrict).Emit(results, pool)
	require.NoError(t, err)
	require.Len(t, out, 2)

	in := out[0]
	assert.Equal(t, 2030, in.Year)
	assert.Equal(t, 11, in.Timestep)
	assert.Equal(t, domain.MeasurementMass, in.MeasurementType)
	assert.Equal(t, 15.0, in.Amount)
	assert.Equal(t, "10", in.DisturbanceType)
	assert.Equal(t, "oldest_first", in.SortType)
	assert.Equal(t, domain.Eligibility{MinAge: 50, MaxAge: 200, MinSinceLast: -1, Boundary: domain.RecencyStrict}, in.Eligibility)
	assert.Equal(t, domain.Provenance{RunID: "run-1", TemplateID: "cc", Product: domain.ProductIRW, Origin: domain.OriginDynamic}, in.Provenance)
	assert.Equal(t, cc.Classifiers, in.Classifiers)

	assert.Equal(t, domain.ProductFW, out[1].Provenance.Product)
	assert.Equal(t, 12.5, pool.DynamicIRWTC)
	assert.Equal(t, 7.5, pool.DynamicFWTC)
}

func TestEmit_RejectsInvalidMass(t *testing.T) {
	for _, mass := range []float64{-1, math.NaN(), math.Inf(1)} {
		results := []domain.AllocationResult{{StandGroupID: "bad", AllocatedMass: mass, Group: group("bad", domain.IRWAndFW, 1, 1)}}
		_, err := NewDisturbanceEmitter("run-1", 2030, 1, domain.RecencyInclusive).Emit(results, domain.NewVirtualPool(2030))
		assert.Error(t, err, "mass %v", mass)
	}
}
