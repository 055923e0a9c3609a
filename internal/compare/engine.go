package compare

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rgehrsitz/hatgo/internal/domain"
	"github.com/rgehrsitz/hatgo/internal/engine"
	"github.com/rgehrsitz/hatgo/internal/engine/memory"
	"github.com/rgehrsitz/hatgo/internal/hat"
	"github.com/rgehrsitz/hatgo/internal/transform"
)

// SimulatorFactory builds a fresh engine for one scenario run.
type SimulatorFactory func(cfg *domain.Configuration) engine.Simulator

// MemorySimulators runs every scenario on the in-memory engine.
func MemorySimulators(cfg *domain.Configuration) engine.Simulator {
	return memory.New(cfg)
}

// CompareEngine orchestrates scenario comparison
type CompareEngine struct {
	NewSimulator      SimulatorFactory
	MetricsCalculator *MetricsCalculator
	TemplateRegistry  *transform.TemplateRegistry
	TransformRegistry *transform.TransformRegistry
	Logger            hat.Logger
}

// NewCompareEngine creates a new comparison engine. A nil factory uses the
// in-memory engine.
func NewCompareEngine(factory SimulatorFactory) *CompareEngine {
	if factory == nil {
		factory = MemorySimulators
	}
	return &CompareEngine{
		NewSimulator:      factory,
		MetricsCalculator: NewMetricsCalculator(),
		TemplateRegistry:  transform.CreateBuiltInTemplates(),
		TransformRegistry: transform.NewTransformRegistry(),
		Logger:            hat.NopLogger{},
	}
}

// CompareOptions configures comparison behavior
type CompareOptions struct {
	BaseScenarioName string
	// Alternatives holds template names or transform specs. Entries joined
	// with "+" are applied together as one alternative.
	Alternatives []string
	ConfigPath   string
}

// Compare runs the base configuration and every alternative.
func (ce *CompareEngine) Compare(ctx context.Context, config *domain.Configuration, options CompareOptions) (*ComparisonSet, error) {
	baseName := options.BaseScenarioName
	if baseName == "" {
		baseName = config.Country
	}

	baseResult, err := ce.runScenario(ctx, baseName, config)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate base scenario: %w", err)
	}

	alternatives := []ComparisonResult{}
	for _, alt := range options.Alternatives {
		transforms, description, err := ce.Resolve(alt)
		if err != nil {
			return nil, err
		}
		modified, err := transform.ApplyTransforms(config, transforms)
		if err != nil {
			return nil, fmt.Errorf("failed to apply %s: %w", alt, err)
		}

		altResult, err := ce.runScenario(ctx, baseName+"_"+alt, modified)
		if err != nil {
			return nil, fmt.Errorf("failed to calculate scenario %s: %w", alt, err)
		}
		altResult.Description = description
		alternatives = append(alternatives, ce.MetricsCalculator.CalculateComparison(altResult, baseResult))
	}

	compSet := &ComparisonSet{
		BaseScenarioName:   baseName,
		BaseResult:         &baseResult,
		AlternativeResults: alternatives,
		ConfigPath:         options.ConfigPath,
	}
	compSet.Recommendations = GenerateRecommendations(compSet)
	return compSet, nil
}

// Resolve turns one alternative into its transforms and a description.
func (ce *CompareEngine) Resolve(alt string) ([]transform.ConfigTransform, string, error) {
	var (
		transforms   []transform.ConfigTransform
		descriptions []string
	)
	for _, part := range strings.Split(alt, "+") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if tmpl, ok := ce.TemplateRegistry.Get(part); ok {
			transforms = append(transforms, tmpl.Transforms...)
			descriptions = append(descriptions, tmpl.Description)
			continue
		}
		if !strings.Contains(part, ":") {
			return nil, "", fmt.Errorf("template %s not found", part)
		}
		t, err := ce.TransformRegistry.ParseTransformSpec(part)
		if err != nil {
			return nil, "", err
		}
		transforms = append(transforms, t)
		descriptions = append(descriptions, t.Description())
	}
	if len(transforms) == 0 {
		return nil, "", fmt.Errorf("alternative %q has no transforms", alt)
	}
	return transforms, strings.Join(descriptions, "; "), nil
}

// runScenario runs cfg on a fresh engine. A run halted by a shortfall is a
// result, not a failure.
func (ce *CompareEngine) runScenario(ctx context.Context, name string, cfg *domain.Configuration) (ComparisonResult, error) {
	runner := hat.NewRunner(cfg, ce.NewSimulator(cfg))
	runner.SetLogger(ce.Logger)

	result, err := runner.Run(ctx)
	var halt *domain.UnsatisfiedDemandError
	if err != nil && !errors.As(err, &halt) {
		return ComparisonResult{}, err
	}
	if halt != nil {
		ce.Logger.Warnf("scenario %s halted: %v", name, halt)
	}
	return ce.MetricsCalculator.CalculateMetrics(name, result, halt), nil
}
