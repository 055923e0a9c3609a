package transform

import (
	"fmt"

	"github.com/rgehrsitz/hatgo/internal/domain"
)

// ScaleDemand multiplies the demand of one product, or of both when Product
// is ProductUnknown, from FromYear onward. A zero FromYear scales every year.
type ScaleDemand struct {
	Product  domain.Product
	Factor   float64
	FromYear int
}

func (sd *ScaleDemand) Name() string { return "scale_demand" }

func (sd *ScaleDemand) Description() string {
	what := "all demand"
	if sd.Product != domain.ProductUnknown {
		what = sd.Product.String() + " demand"
	}
	if sd.FromYear > 0 {
		return fmt.Sprintf("Scale %s by %g from %d", what, sd.Factor, sd.FromYear)
	}
	return fmt.Sprintf("Scale %s by %g", what, sd.Factor)
}

func (sd *ScaleDemand) Validate(base *domain.Configuration) error {
	if base == nil {
		return NewTransformError(sd.Name(), "validate", "base configuration cannot be nil", nil)
	}
	if sd.Factor < 0 {
		return NewTransformError(sd.Name(), "validate", fmt.Sprintf("factor must be non-negative, got %g", sd.Factor), nil)
	}
	if len(base.Demand) == 0 {
		return NewTransformError(sd.Name(), "validate", "configuration has no demand records", nil)
	}
	return nil
}

func (sd *ScaleDemand) Apply(base *domain.Configuration) (*domain.Configuration, error) {
	modified := base.DeepCopy()
	for i := range modified.Demand {
		d := &modified.Demand[i]
		if d.Year < sd.FromYear {
			continue
		}
		if sd.Product != domain.ProductUnknown && d.Product != sd.Product {
			continue
		}
		d.Volume *= sd.Factor
		d.Value *= sd.Factor
	}
	return modified, nil
}
