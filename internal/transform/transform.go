package transform

import (
	"fmt"

	"github.com/rgehrsitz/hatgo/internal/domain"
)

// ConfigTransform is a composable edit of a country configuration. Compare
// runs and the --with flag express what-if scenarios as lists of transforms.
type ConfigTransform interface {
	// Apply returns a modified copy of base. base is never mutated.
	Apply(base *domain.Configuration) (*domain.Configuration, error)

	// Name returns the registry identifier, e.g. "scale_demand".
	Name() string

	// Description returns a one line human summary.
	Description() string

	// Validate checks the parameters against base without applying them.
	Validate(base *domain.Configuration) error
}

// ApplyTransforms applies transforms in order, each one receiving the output
// of the previous one.
func ApplyTransforms(base *domain.Configuration, transforms []ConfigTransform) (*domain.Configuration, error) {
	if base == nil {
		return nil, fmt.Errorf("base configuration cannot be nil")
	}
	if len(transforms) == 0 {
		return base.DeepCopy(), nil
	}

	current := base
	for i, t := range transforms {
		if t == nil {
			return nil, fmt.Errorf("transform at index %d is nil", i)
		}
		if err := t.Validate(current); err != nil {
			return nil, fmt.Errorf("transform %s validation failed: %w", t.Name(), err)
		}
		next, err := t.Apply(current)
		if err != nil {
			return nil, fmt.Errorf("transform %s failed: %w", t.Name(), err)
		}
		current = next
	}
	return current, nil
}

// TransformError represents an error that occurred during transformation.
type TransformError struct {
	TransformName string
	Operation     string
	Reason        string
	Err           error
}

func (e *TransformError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transform %s (%s): %s: %v", e.TransformName, e.Operation, e.Reason, e.Err)
	}
	return fmt.Sprintf("transform %s (%s): %s", e.TransformName, e.Operation, e.Reason)
}

func (e *TransformError) Unwrap() error {
	return e.Err
}

// NewTransformError creates a new TransformError.
func NewTransformError(transformName, operation, reason string, err error) error {
	return &TransformError{
		TransformName: transformName,
		Operation:     operation,
		Reason:        reason,
		Err:           err,
	}
}
