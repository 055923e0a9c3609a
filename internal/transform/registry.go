package transform

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rgehrsitz/hatgo/internal/domain"
)

// TransformRegistry creates transforms from string parameters, for the CLI.
type TransformRegistry struct {
	factories map[string]TransformFactory
}

// TransformFactory is a function that creates a transform from parameters.
type TransformFactory func(params map[string]string) (ConfigTransform, error)

// NewTransformRegistry creates a new registry with all built-in transforms registered.
func NewTransformRegistry() *TransformRegistry {
	registry := &TransformRegistry{
		factories: make(map[string]TransformFactory),
	}

	registry.Register("scale_demand", createScaleDemand)
	registry.Register("set_bias_mode", createSetBiasMode)
	registry.Register("set_recency", createSetRecency)
	registry.Register("set_shortfall_policy", createSetShortfallPolicy)
	registry.Register("scale_interval_bias", createScaleIntervalBias)

	return registry
}

// Register adds a transform factory to the registry.
func (r *TransformRegistry) Register(name string, factory TransformFactory) {
	r.factories[name] = factory
}

// Create creates a transform by name with the given parameters.
func (r *TransformRegistry) Create(name string, params map[string]string) (ConfigTransform, error) {
	factory, exists := r.factories[name]
	if !exists {
		return nil, fmt.Errorf("unknown transform: %s", name)
	}
	return factory(params)
}

// List returns the names of all registered transforms, sorted.
func (r *TransformRegistry) List() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParseTransformSpec parses a transform specification string.
// Format: "transform_name:param1=value1,param2=value2"
// Example: "scale_demand:product=irw,factor=1.2,from_year=2025"
func (r *TransformRegistry) ParseTransformSpec(spec string) (ConfigTransform, error) {
	name, paramsStr, found := strings.Cut(spec, ":")
	if !found {
		return nil, fmt.Errorf("invalid transform spec format, expected 'name:params', got: %s", spec)
	}
	name = strings.TrimSpace(name)
	paramsStr = strings.TrimSpace(paramsStr)

	params := make(map[string]string)
	if paramsStr != "" {
		for _, pair := range strings.Split(paramsStr, ",") {
			k, v, ok := strings.Cut(pair, "=")
			if !ok {
				return nil, fmt.Errorf("invalid parameter format, expected 'key=value', got: %s", pair)
			}
			params[strings.TrimSpace(k)] = strings.TrimSpace(v)
		}
	}

	return r.Create(name, params)
}

func createScaleDemand(params map[string]string) (ConfigTransform, error) {
	factor, err := requiredFloat("scale_demand", params, "factor")
	if err != nil {
		return nil, err
	}
	t := &ScaleDemand{Factor: factor}
	if p, ok := params["product"]; ok && p != "all" {
		if t.Product, err = domain.ParseProduct(p); err != nil {
			return nil, err
		}
	}
	if y, ok := params["from_year"]; ok {
		if t.FromYear, err = strconv.Atoi(y); err != nil {
			return nil, fmt.Errorf("invalid from_year value: %w", err)
		}
	}
	return t, nil
}

func createSetBiasMode(params map[string]string) (ConfigTransform, error) {
	v, ok := params["mode"]
	if !ok {
		return nil, fmt.Errorf("set_bias_mode requires 'mode' parameter")
	}
	mode, err := domain.ParseBiasMode(v)
	if err != nil {
		return nil, err
	}
	return &SetBiasMode{Mode: mode}, nil
}

func createSetRecency(params map[string]string) (ConfigTransform, error) {
	v, ok := params["boundary"]
	if !ok {
		return nil, fmt.Errorf("set_recency requires 'boundary' parameter")
	}
	boundary, err := domain.ParseRecencyBoundary(v)
	if err != nil {
		return nil, err
	}
	return &SetRecency{Boundary: boundary}, nil
}

func createSetShortfallPolicy(params map[string]string) (ConfigTransform, error) {
	v, ok := params["policy"]
	if !ok {
		return nil, fmt.Errorf("set_shortfall_policy requires 'policy' parameter")
	}
	policy, err := domain.ParseShortfallPolicy(v)
	if err != nil {
		return nil, err
	}
	return &SetShortfallPolicy{Policy: policy}, nil
}

func createScaleIntervalBias(params map[string]string) (ConfigTransform, error) {
	factor, err := requiredFloat("scale_interval_bias", params, "factor")
	if err != nil {
		return nil, err
	}
	return &ScaleIntervalBias{Template: params["template"], Factor: factor}, nil
}

// requiredFloat parses a decimal parameter; NaN and Inf are rejected.
func requiredFloat(transform string, params map[string]string, key string) (float64, error) {
	v, ok := params[key]
	if !ok {
		return 0, fmt.Errorf("%s requires '%s' parameter", transform, key)
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value: %w", key, err)
	}
	return d.InexactFloat64(), nil
}
