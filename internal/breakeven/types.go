// Package breakeven searches for the largest demand a forest can supply
// over the whole run without a shortfall.
package breakeven

import (
	"github.com/shopspring/decimal"

	"github.com/rgehrsitz/hatgo/internal/domain"
	"github.com/rgehrsitz/hatgo/internal/transform"
)

// Target is the configuration factor being searched.
type Target string

const (
	// TargetDemand scales the demand of one product or of both.
	TargetDemand Target = "demand"
	// TargetIntervalBias scales dist_interval_bias, shrinking what a stand
	// group offers in one year.
	TargetIntervalBias Target = "interval_bias"
)

// ParseTarget accepts the command line spelling of a target.
func ParseTarget(s string) (Target, error) {
	switch t := Target(s); t {
	case TargetDemand, TargetIntervalBias:
		return t, nil
	default:
		return "", &BreakEvenError{Operation: "parse_target", Message: "target must be 'demand' or 'interval_bias', got " + s}
	}
}

// Bounds limits the searched factor. Min must be feasible for the search to
// succeed.
type Bounds struct {
	Min decimal.Decimal `json:"min"`
	Max decimal.Decimal `json:"max"`
}

// DefaultBounds returns the search range of target.
func DefaultBounds(target Target) Bounds {
	if target == TargetIntervalBias {
		return Bounds{Min: decimal.NewFromInt(1), Max: decimal.NewFromInt(20)}
	}
	return Bounds{Min: decimal.Zero, Max: decimal.NewFromInt(10)}
}

// Request describes one search.
type Request struct {
	Config *domain.Configuration `json:"-"`
	Target Target                `json:"target"`
	// Product restricts a demand search; ProductUnknown scales both.
	Product domain.Product `json:"product"`
	// Template restricts an interval bias search; empty means every template.
	Template string `json:"template,omitempty"`
	// FromYear leaves earlier demand untouched.
	FromYear      int             `json:"fromYear,omitempty"`
	Bounds        *Bounds         `json:"bounds,omitempty"`
	MaxIterations int             `json:"-"`
	Tolerance     decimal.Decimal `json:"-"`
}

func (r Request) validate() error {
	if r.Config == nil {
		return &BreakEvenError{Operation: "validate_request", Message: "configuration is required"}
	}
	if _, err := ParseTarget(string(r.Target)); err != nil {
		return err
	}
	if r.Bounds != nil && r.Bounds.Min.GreaterThan(r.Bounds.Max) {
		return &BreakEvenError{Operation: "validate_request", Message: "bounds min cannot be greater than max"}
	}
	if r.Target == TargetIntervalBias && r.Bounds != nil && !r.Bounds.Min.IsPositive() {
		return &BreakEvenError{Operation: "validate_request", Message: "interval bias bounds must be positive"}
	}
	if r.Target == TargetDemand && r.Bounds != nil && r.Bounds.Min.IsNegative() {
		return &BreakEvenError{Operation: "validate_request", Message: "demand bounds cannot be negative"}
	}
	return nil
}

// transform builds the edit applying factor v.
func (r Request) transform(v decimal.Decimal) transform.ConfigTransform {
	if r.Target == TargetIntervalBias {
		return &transform.ScaleIntervalBias{Template: r.Template, Factor: v.InexactFloat64()}
	}
	return &transform.ScaleDemand{Product: r.Product, Factor: v.InexactFloat64(), FromYear: r.FromYear}
}

// Label names what was searched, e.g. "irw demand".
func (r Request) Label() string {
	if r.Target == TargetIntervalBias {
		if r.Template != "" {
			return r.Template + " interval bias"
		}
		return "interval bias"
	}
	if r.Product == domain.ProductUnknown {
		return "all demand"
	}
	return r.Product.String() + " demand"
}

// Result is the outcome of one search.
type Result struct {
	Request         Request `json:"request"`
	Success         bool    `json:"success"`
	Iterations      int     `json:"iterations"`
	ConvergenceInfo string  `json:"convergenceInfo"`

	// Factor is the largest value found to complete the run without a
	// shortfall.
	Factor decimal.Decimal `json:"factor"`
	// AtUpperBound is set when even the upper bound was feasible.
	AtUpperBound bool `json:"atUpperBound"`

	// LimitingYear and LimitingShortfall describe the first shortfall just
	// above Factor. Both are zero when AtUpperBound.
	LimitingYear      int             `json:"limitingYear,omitempty"`
	LimitingProduct   domain.Product  `json:"limitingProduct,omitempty"`
	LimitingShortfall decimal.Decimal `json:"limitingShortfall"`

	// Totals of the run at Factor.
	TotalDemand    decimal.Decimal `json:"totalDemand"`
	TotalAllocated decimal.Decimal `json:"totalAllocated"`
}

// MultiResult holds one demand search per product.
type MultiResult struct {
	Results         []Result `json:"results"`
	Binding         *Result  `json:"binding,omitempty"`
	Recommendations []string `json:"recommendations"`
}

// SolverOptions configures the bisection.
type SolverOptions struct {
	Tolerance     decimal.Decimal
	MaxIterations int
}

// DefaultSolverOptions returns the default bisection settings.
func DefaultSolverOptions() SolverOptions {
	return SolverOptions{
		Tolerance:     decimal.NewFromFloat(0.001),
		MaxIterations: 50,
	}
}

// BreakEvenError represents errors from the solver.
type BreakEvenError struct {
	Operation string
	Message   string
	Cause     error
}

func (e *BreakEvenError) Error() string {
	if e.Cause != nil {
		return e.Operation + ": " + e.Message + ": " + e.Cause.Error()
	}
	return e.Operation + ": " + e.Message
}

func (e *BreakEvenError) Unwrap() error {
	return e.Cause
}
