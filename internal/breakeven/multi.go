package breakeven

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rgehrsitz/hatgo/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// SolveProducts runs a demand search for irw, fw and both products together
// and reports which product binds first.
func (s *Solver) SolveProducts(ctx context.Context, config *domain.Configuration, fromYear int) (*MultiResult, error) {
	products := []domain.Product{domain.ProductIRW, domain.ProductFW, domain.ProductUnknown}

	multi := &MultiResult{}
	for _, product := range products {
		res, err := s.Solve(ctx, Request{
			Config:   config,
			Target:   TargetDemand,
			Product:  product,
			FromYear: fromYear,
		})
		if err != nil {
			return nil, err
		}
		multi.Results = append(multi.Results, *res)
	}

	for i := range multi.Results[:2] {
		r := &multi.Results[i]
		if !r.Success {
			continue
		}
		if multi.Binding == nil || r.Factor.LessThan(multi.Binding.Factor) {
			multi.Binding = r
		}
	}
	multi.Recommendations = recommendations(multi)
	return multi, nil
}

func recommendations(multi *MultiResult) []string {
	var recs []string
	for _, r := range multi.Results {
		label := r.Request.Label()
		switch {
		case !r.Success:
			recs = append(recs, fmt.Sprintf("Current %s cannot be met: first shortfall in %d", label, r.LimitingYear))
		case r.Factor.LessThan(decimal.NewFromInt(1)):
			recs = append(recs, fmt.Sprintf("%s must fall by %s%% to avoid a shortfall in %d",
				capitalize(label), hundred.Sub(r.Factor.Mul(hundred)).StringFixed(1), r.LimitingYear))
		case r.AtUpperBound:
			recs = append(recs, fmt.Sprintf("%s can grow at least %s%% without a shortfall", capitalize(label), headroom(r.Factor)))
		default:
			recs = append(recs, fmt.Sprintf("%s can grow by %s%% before %d runs short of %s",
				capitalize(label), headroom(r.Factor), r.LimitingYear, r.LimitingProduct))
		}
	}
	if multi.Binding != nil && !multi.Binding.AtUpperBound {
		recs = append(recs, fmt.Sprintf("Binding product: %s", multi.Binding.Request.Product))
	}
	return recs
}

// headroom converts a factor to the percentage above current demand.
func headroom(factor decimal.Decimal) string {
	return factor.Sub(decimal.NewFromInt(1)).Mul(hundred).StringFixed(1)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
