package transform

import (
	"fmt"

	"github.com/rgehrsitz/hatgo/internal/domain"
)

// ScaleIntervalBias multiplies the dist_interval_bias of a template, or of
// every template when Template is empty. A larger bias makes less of a
// group's potential volume available in one year.
type ScaleIntervalBias struct {
	Template string
	Factor   float64
}

func (s *ScaleIntervalBias) Name() string { return "scale_interval_bias" }

func (s *ScaleIntervalBias) Description() string {
	target := "all templates"
	if s.Template != "" {
		target = "template " + s.Template
	}
	return fmt.Sprintf("Scale the interval bias of %s by %g", target, s.Factor)
}

func (s *ScaleIntervalBias) Validate(base *domain.Configuration) error {
	if base == nil {
		return NewTransformError(s.Name(), "validate", "base configuration cannot be nil", nil)
	}
	if s.Factor <= 0 {
		return NewTransformError(s.Name(), "validate", fmt.Sprintf("factor must be positive, got %g", s.Factor), nil)
	}
	if s.Template == "" {
		return nil
	}
	for _, t := range base.Templates {
		if t.ID == s.Template {
			return nil
		}
	}
	return NewTransformError(s.Name(), "validate", fmt.Sprintf("template %s not found", s.Template), nil)
}

func (s *ScaleIntervalBias) Apply(base *domain.Configuration) (*domain.Configuration, error) {
	modified := base.DeepCopy()
	for i := range modified.Templates {
		t := &modified.Templates[i]
		if s.Template != "" && t.ID != s.Template {
			continue
		}
		t.DistIntervalBias *= s.Factor
	}
	return modified, nil
}
