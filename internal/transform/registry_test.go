package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rgehrsitz/hatgo/internal/domain"
)

func TestParseTransformSpec(t *testing.T) {
	registry := NewTransformRegistry()

	tests := []struct {
		spec string
		want ConfigTransform
	}{
		{"scale_demand:product=irw,factor=1.2,from_year=2025", &ScaleDemand{Product: domain.ProductIRW, Factor: 1.2, FromYear: 2025}},
		{"scale_demand: product = all , factor = 0.8", &ScaleDemand{Factor: 0.8}},
		{"set_bias_mode:mode=share", &SetBiasMode{Mode: domain.BiasShare}},
		{"set_recency:boundary=STRICT", &SetRecency{Boundary: domain.RecencyStrict}},
		{"set_shortfall_policy:policy=continue", &SetShortfallPolicy{Policy: domain.ShortfallContinue}},
		{"scale_interval_bias:template=cc,factor=2", &ScaleIntervalBias{Template: "cc", Factor: 2}},
		{"scale_interval_bias:factor=2.5e-1", &ScaleIntervalBias{Factor: 0.25}},
		{"scale_demand:factor=0.1", &ScaleDemand{Factor: 0.1}},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			got, err := registry.ParseTransformSpec(tt.spec)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseTransformSpec_Errors(t *testing.T) {
	registry := NewTransformRegistry()

	tests := []struct {
		spec string
		msg  string
	}{
		{"scale_demand", "expected 'name:params'"},
		{"unknown:x=1", "unknown transform: unknown"},
		{"scale_demand:factor", "expected 'key=value'"},
		{"scale_demand:product=irw", "requires 'factor'"},
		{"scale_demand:factor=abc", "invalid factor"},
		{"scale_demand:factor=NaN", "invalid factor"},
		{"scale_demand:factor=Inf", "invalid factor"},
		{"scale_demand:factor=1,product=wood", "unknown product"},
		{"scale_demand:factor=1,from_year=soon", "invalid from_year"},
		{"set_bias_mode:", "requires 'mode'"},
		{"set_bias_mode:mode=random", "bias_mode"},
		{"set_recency:boundary=loose", "recency_boundary"},
		{"set_shortfall_policy:policy=panic", "on_shortfall"},
		{"scale_interval_bias:template=cc", "requires 'factor'"},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			_, err := registry.ParseTransformSpec(tt.spec)
			assert.ErrorContains(t, err, tt.msg)
		})
	}
}

func TestRegistryList(t *testing.T) {
	assert.Equal(t, []string{
		"scale_demand",
		"scale_interval_bias",
		"set_bias_mode",
		"set_recency",
		"set_shortfall_policy",
	}, NewTransformRegistry().List())
}
