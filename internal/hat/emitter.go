package hat

import (
	"fmt"
	"math"

	"github.com/rgehrsitz/hatgo/internal/domain"
)

// DisturbanceEmitter turns allocation results into mass based disturbance
// instructions and books their products in the virtual pool.
type DisturbanceEmitter struct {
	runID    string
	year     int
	timestep int
	boundary domain.RecencyBoundary
}

// NewDisturbanceEmitter creates an emitter for one timestep.
func NewDisturbanceEmitter(runID string, year, timestep int, boundary domain.RecencyBoundary) *DisturbanceEmitter {
	return &DisturbanceEmitter{runID: runID, year: year, timestep: timestep, boundary: boundary}
}

// Emit returns one instruction per result with a positive mass. A negative
// or NaN mass is an error.
func (e *DisturbanceEmitter) Emit(results []domain.AllocationResult, pool *domain.VirtualPool) ([]domain.DisturbanceInstruction, error) {
	var out []domain.DisturbanceInstruction
	for _, r := range results {
		if math.IsNaN(r.AllocatedMass) || math.IsInf(r.AllocatedMass, 0) || r.AllocatedMass < 0 {
			return nil, fmt.Errorf("group %s: invalid allocated mass %g", r.StandGroupID, r.AllocatedMass)
		}
		if r.AllocatedMass == 0 {
			continue
		}
		if r.Group == nil || r.Group.Template == nil {
			return nil, fmt.Errorf("group %s: result carries no template", r.StandGroupID)
		}
		t := r.Group.Template
		out = append(out, domain.DisturbanceInstruction{
			Year:            e.year,
			Timestep:        e.timestep,
			Classifiers:     r.Group.Classifiers.Clone(),
			DisturbanceType: t.DisturbanceType,
			DistTypeName:    t.DistTypeName,
			MeasurementType: domain.MeasurementMass,
			Amount:          r.AllocatedMass,
			SortType:        t.SortType,
			Eligibility:     t.Eligibility(e.boundary),
			Provenance: domain.Provenance{
				RunID:      e.runID,
				TemplateID: t.ID,
				Product:    r.Product,
				Origin:     domain.OriginDynamic,
			},
		})
		pool.DynamicIRWTC += r.IRWMass
		pool.DynamicFWTC += r.FWMass
	}
	return out, nil
}
