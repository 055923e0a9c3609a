package transform

import (
	"fmt"

	"github.com/rgehrsitz/hatgo/internal/domain"
)

// SetBiasMode switches how harvest factors skew the allocation.
type SetBiasMode struct {
	Mode domain.BiasMode
}

func (s *SetBiasMode) Name() string { return "set_bias_mode" }

func (s *SetBiasMode) Description() string {
	return fmt.Sprintf("Use %s market bias", s.Mode)
}

func (s *SetBiasMode) Validate(base *domain.Configuration) error {
	return validateSettings(s.Name(), base, func(a *domain.AllocationSettings) { a.BiasMode = s.Mode })
}

func (s *SetBiasMode) Apply(base *domain.Configuration) (*domain.Configuration, error) {
	modified := base.DeepCopy()
	modified.Allocation.BiasMode = s.Mode
	return modified, nil
}

// SetRecency chooses whether a stand disturbed exactly min_since_last years
// ago is eligible.
type SetRecency struct {
	Boundary domain.RecencyBoundary
}

func (s *SetRecency) Name() string { return "set_recency" }

func (s *SetRecency) Description() string {
	return fmt.Sprintf("Use %s recency boundary", s.Boundary)
}

func (s *SetRecency) Validate(base *domain.Configuration) error {
	return validateSettings(s.Name(), base, func(a *domain.AllocationSettings) { a.RecencyBoundary = s.Boundary })
}

func (s *SetRecency) Apply(base *domain.Configuration) (*domain.Configuration, error) {
	modified := base.DeepCopy()
	modified.Allocation.RecencyBoundary = s.Boundary
	return modified, nil
}

// SetShortfallPolicy decides whether unsatisfied demand stops the run.
type SetShortfallPolicy struct {
	Policy domain.ShortfallPolicy
}

func (s *SetShortfallPolicy) Name() string { return "set_shortfall_policy" }

func (s *SetShortfallPolicy) Description() string {
	return fmt.Sprintf("On shortfall: %s", s.Policy)
}

func (s *SetShortfallPolicy) Validate(base *domain.Configuration) error {
	return validateSettings(s.Name(), base, func(a *domain.AllocationSettings) { a.OnShortfall = s.Policy })
}

func (s *SetShortfallPolicy) Apply(base *domain.Configuration) (*domain.Configuration, error) {
	modified := base.DeepCopy()
	modified.Allocation.OnShortfall = s.Policy
	return modified, nil
}

func validateSettings(name string, base *domain.Configuration, set func(*domain.AllocationSettings)) error {
	if base == nil {
		return NewTransformError(name, "validate", "base configuration cannot be nil", nil)
	}
	settings := base.Allocation
	set(&settings)
	if err := settings.Validate(); err != nil {
		return NewTransformError(name, "validate", "invalid setting", err)
	}
	return nil
}
