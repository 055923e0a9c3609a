// Package engine defines the contract between the harvest allocation and
// the forest carbon simulation it drives.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/rgehrsitz/hatgo/internal/domain"
)

// Simulator is the authoritative simulation state of one country.
type Simulator interface {
	// Fork returns a disposable copy of the current state.
	Fork(ctx context.Context) (Sandbox, error)
	// Apply queues disturbances for the next Step.
	Apply(instructions []domain.DisturbanceInstruction) error
	// Step commits the current timestep and advances to the next one.
	Step(ctx context.Context) (*StepResult, error)
	Timestep() int
	Year() int
}

// Sandbox evaluates the current timestep without touching the simulator it
// was forked from.
type Sandbox interface {
	// EndStep applies the predetermined disturbances of the timestep and
	// returns the resulting stand rows and product fluxes.
	EndStep(ctx context.Context) (*domain.Snapshot, error)
	// Evaluate returns the flux to products, per source pool, that fully
	// disturbing the group with its template's disturbance type would
	// produce. EndStep must have been called first.
	Evaluate(ctx context.Context, group *domain.StandGroup) (domain.FluxVector, error)
	Close() error
}

// StepResult reports a committed timestep.
type StepResult struct {
	Year     int                 `json:"year"`
	Timestep int                 `json:"timestep"`
	Fluxes   []domain.FluxRecord `json:"fluxes"`
	// Events lists every disturbance applied, predetermined first.
	Events []AppliedEvent `json:"events"`
}

// AppliedEvent is a disturbance as the engine realized it.
type AppliedEvent = domain.AppliedEvent

// EvaluationError wraps a failure of hypothetical evaluation. It is never
// retried.
type EvaluationError struct {
	Op    string
	Group string
	Err   error
}

func (e *EvaluationError) Error() string {
	if e.Group == "" {
		return fmt.Sprintf("evaluation failed during %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("evaluation failed during %s of group %s: %v", e.Op, e.Group, e.Err)
}

func (e *EvaluationError) Unwrap() error { return e.Err }

// ErrClosed is returned by a sandbox used after Close.
var ErrClosed = errors.New("sandbox is closed")

// WithSandbox forks sim, runs fn on the sandbox and closes it whatever
// happens. A close error is reported only when fn succeeded.
func WithSandbox(ctx context.Context, sim Simulator, fn func(Sandbox) error) (err error) {
	sb, err := sim.Fork(ctx)
	if err != nil {
		return &EvaluationError{Op: "fork", Err: err}
	}
	defer func() {
		if cerr := sb.Close(); cerr != nil && err == nil {
			err = &EvaluationError{Op: "close", Err: cerr}
		}
	}()
	return fn(sb)
}

// ValidateFlux rejects negative, infinite or NaN flux values and unknown
// pools.
func ValidateFlux(group string, flux domain.FluxVector) error {
	for pool, v := range flux {
		if !pool.IsValid() {
			return &EvaluationError{Op: "evaluate", Group: group, Err: fmt.Errorf("unknown source pool %q", pool)}
		}
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return &EvaluationError{Op: "evaluate", Group: group, Err: fmt.Errorf("invalid flux %g from %s", v, pool)}
		}
	}
	return nil
}
