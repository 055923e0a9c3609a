package hat

import (
	"context"
	"fmt"
	"math"

	"github.com/rgehrsitz/hatgo/internal/domain"
	"github.com/rgehrsitz/hatgo/internal/engine"
)

// PotentialYieldEstimator asks the sandbox what each group would yield if
// fully disturbed and converts the carbon into irw and fw volumes.
type PotentialYieldEstimator struct {
	tables *yearTables
}

func newPotentialYieldEstimator(tables *yearTables) *PotentialYieldEstimator {
	return &PotentialYieldEstimator{tables: tables}
}

// Estimate fills the flux, potential and available volumes of every group.
func (e *PotentialYieldEstimator) Estimate(ctx context.Context, sb engine.Sandbox, groups []*domain.StandGroup) error {
	for _, g := range groups {
		flux, err := sb.Evaluate(ctx, g)
		if err != nil {
			return &engine.EvaluationError{Op: "evaluate", Group: g.ID, Err: err}
		}
		if err := engine.ValidateFlux(g.ID, flux); err != nil {
			return err
		}
		if err := e.fill(g, flux); err != nil {
			return err
		}
	}
	return nil
}

func (e *PotentialYieldEstimator) fill(g *domain.StandGroup, flux domain.FluxVector) error {
	t := g.Template
	frac, err := e.tables.irwFraction(g.Classifiers, t.DisturbanceType)
	if err != nil {
		return err
	}
	coef, err := e.tables.coefficient(g.Classifiers)
	if err != nil {
		return err
	}

	irwTC, fwTC := splitFlux(flux, frac)
	g.Flux = flux
	g.Coefficient = coef
	g.PotentialIRW = coef.MassToVolume(irwTC)
	g.PotentialFW = coef.MassToVolume(fwTC)
	// A bias below one must not raise capacity above what the stands yield.
	bias := math.Max(1, t.DistIntervalBias)
	g.AvailableIRW = g.PotentialIRW / bias
	g.AvailableFW = g.PotentialFW / bias

	switch t.ProductCreated {
	case domain.FWOnly:
		if g.PotentialIRW > 0 {
			return domain.Inconsistent("events_templates",
				"template %s is fw_only but group %s would produce %.3f m3 of irw", t.ID, g.ID, g.PotentialIRW)
		}
	case domain.IRWAndFW:
		if g.PotentialIRW > 0 && g.PotentialFW == 0 {
			return domain.Inconsistent("events_templates",
				"template %s is irw_and_fw but group %s produces no fuelwood", t.ID, g.ID)
		}
	default:
		return fmt.Errorf("template %s: unexpected product_created %v", t.ID, t.ProductCreated)
	}
	return nil
}
