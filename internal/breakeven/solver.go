package breakeven

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rgehrsitz/hatgo/internal/compare"
	"github.com/rgehrsitz/hatgo/internal/domain"
	"github.com/rgehrsitz/hatgo/internal/hat"
	"github.com/rgehrsitz/hatgo/internal/transform"
)

var two = decimal.NewFromInt(2)

// Solver bisects a configuration factor between a feasible and an
// infeasible run.
type Solver struct {
	NewSimulator compare.SimulatorFactory
	Options      SolverOptions
	Logger       hat.Logger
}

// NewSolver creates a solver. A nil factory uses the in-memory engine.
func NewSolver(factory compare.SimulatorFactory, options SolverOptions) *Solver {
	if factory == nil {
		factory = compare.MemorySimulators
	}
	return &Solver{
		NewSimulator: factory,
		Options:      options,
		Logger:       hat.NopLogger{},
	}
}

// NewDefaultSolver creates an in-memory solver with default options.
func NewDefaultSolver() *Solver {
	return NewSolver(nil, DefaultSolverOptions())
}

// trial is one run at a trial factor.
type trial struct {
	factor decimal.Decimal
	result *domain.RunResult
	halt   *domain.UnsatisfiedDemandError
}

func (p trial) feasible() bool { return p.halt == nil }

// Solve finds the largest factor within the bounds for which every year's
// demand is met. Runs always halt on the first shortfall, whatever the
// configured policy.
func (s *Solver) Solve(ctx context.Context, req Request) (*Result, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	if req.MaxIterations == 0 {
		req.MaxIterations = s.Options.MaxIterations
	}
	if !req.Tolerance.IsPositive() {
		req.Tolerance = s.Options.Tolerance
	}
	bounds := DefaultBounds(req.Target)
	if req.Bounds != nil {
		bounds = *req.Bounds
	}

	result := &Result{Request: req}

	lo, err := s.evaluate(ctx, req, bounds.Min)
	if err != nil {
		return nil, err
	}
	result.Iterations++
	if !lo.feasible() {
		result.Factor = bounds.Min
		result.ConvergenceInfo = fmt.Sprintf("Infeasible at the lower bound %s", bounds.Min.String())
		s.fill(result, lo, &lo)
		return result, nil
	}

	hi, err := s.evaluate(ctx, req, bounds.Max)
	if err != nil {
		return nil, err
	}
	result.Iterations++
	if hi.feasible() {
		result.Success = true
		result.AtUpperBound = true
		result.ConvergenceInfo = fmt.Sprintf("Feasible up to the upper bound %s", bounds.Max.String())
		s.fill(result, hi, nil)
		return result, nil
	}

	for result.Iterations < req.MaxIterations {
		if hi.factor.Sub(lo.factor).LessThanOrEqual(req.Tolerance) {
			result.Success = true
			result.ConvergenceInfo = fmt.Sprintf("Bisection converged within %s", req.Tolerance.String())
			s.fill(result, lo, &hi)
			return result, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		mid, err := s.evaluate(ctx, req, lo.factor.Add(hi.factor).Div(two))
		if err != nil {
			return nil, err
		}
		result.Iterations++
		if mid.feasible() {
			lo = mid
		} else {
			hi = mid
		}
	}

	result.Success = true
	result.ConvergenceInfo = fmt.Sprintf("Max iterations (%d) reached", req.MaxIterations)
	s.fill(result, lo, &hi)
	return result, nil
}

// evaluate runs the configuration with factor v applied.
func (s *Solver) evaluate(ctx context.Context, req Request, v decimal.Decimal) (trial, error) {
	cfg, err := transform.ApplyTransforms(req.Config, []transform.ConfigTransform{
		&transform.SetShortfallPolicy{Policy: domain.ShortfallHalt},
		req.transform(v),
	})
	if err != nil {
		return trial{}, &BreakEvenError{Operation: "solve", Message: "failed to apply " + req.Label() + " factor", Cause: err}
	}

	runner := hat.NewRunner(cfg, s.NewSimulator(cfg))
	runner.SetLogger(s.Logger)
	res, err := runner.Run(ctx)

	p := trial{factor: v, result: res}
	if err != nil && !errors.As(err, &p.halt) {
		return trial{}, &BreakEvenError{Operation: "solve", Message: fmt.Sprintf("run at factor %s failed", v.String()), Cause: err}
	}
	s.Logger.Debugf("%s factor %s feasible=%t", req.Label(), v.String(), p.feasible())
	return p, nil
}

// fill records the totals of best and the shortfall of the first infeasible
// trial above it.
func (s *Solver) fill(result *Result, best trial, above *trial) {
	result.Factor = best.factor
	if best.result != nil {
		for _, sum := range best.result.Summaries() {
			if !sum.HATApplied {
				continue
			}
			result.TotalDemand = result.TotalDemand.Add(decimal.NewFromFloat(sum.DemandIRW + sum.DemandFW))
			result.TotalAllocated = result.TotalAllocated.Add(decimal.NewFromFloat(sum.AllocatedIRW + sum.AllocatedFW))
		}
	}
	if above == nil || above.halt == nil {
		return
	}
	result.LimitingYear = above.halt.Year
	for _, sf := range above.halt.Shortfalls {
		v := decimal.NewFromFloat(sf.Volume)
		if v.GreaterThan(result.LimitingShortfall) {
			result.LimitingShortfall = v
			result.LimitingProduct = sf.Product
		}
	}
}
