package transform

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rgehrsitz/hatgo/internal/domain"
)

// TemplateRegistry manages built-in scenario templates
type TemplateRegistry struct {
	templates map[string]Template
}

// Template represents a named collection of transforms
type Template struct {
	Name        string
	Description string
	Transforms  []ConfigTransform
}

// NewTemplateRegistry creates an empty template registry
func NewTemplateRegistry() *TemplateRegistry {
	return &TemplateRegistry{
		templates: make(map[string]Template),
	}
}

// Register adds a template to the registry
func (tr *TemplateRegistry) Register(t Template) {
	tr.templates[strings.ToLower(t.Name)] = t
}

// Get retrieves a template by name (case-insensitive)
func (tr *TemplateRegistry) Get(name string) (Template, bool) {
	t, ok := tr.templates[strings.ToLower(name)]
	return t, ok
}

// List returns all registered template names, sorted
func (tr *TemplateRegistry) List() []string {
	names := make([]string, 0, len(tr.templates))
	for name := range tr.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CreateBuiltInTemplates returns the common what-if scenarios of a country run.
func CreateBuiltInTemplates() *TemplateRegistry {
	registry := NewTemplateRegistry()

	registry.Register(Template{
		Name:        "high_demand",
		Description: "Raise irw and fw demand by 20%",
		Transforms:  []ConfigTransform{&ScaleDemand{Factor: 1.2}},
	})
	registry.Register(Template{
		Name:        "low_demand",
		Description: "Lower irw and fw demand by 20%",
		Transforms:  []ConfigTransform{&ScaleDemand{Factor: 0.8}},
	})
	registry.Register(Template{
		Name:        "no_bias",
		Description: "Ignore harvest factors and allocate by availability only",
		Transforms:  []ConfigTransform{&SetBiasMode{Mode: domain.BiasNone}},
	})
	registry.Register(Template{
		Name:        "strict_recency",
		Description: "Exclude stands disturbed exactly min_since_last years ago",
		Transforms:  []ConfigTransform{&SetRecency{Boundary: domain.RecencyStrict}},
	})
	registry.Register(Template{
		Name:        "tolerant",
		Description: "Record shortfalls and keep simulating",
		Transforms:  []ConfigTransform{&SetShortfallPolicy{Policy: domain.ShortfallContinue}},
	})

	return registry
}

// ApplyTemplate applies a template to a base configuration
func ApplyTemplate(base *domain.Configuration, template Template) (*domain.Configuration, error) {
	return ApplyTransforms(base, template.Transforms)
}

// ParseTemplateList parses a comma-separated list of template names and
// transform specs. A segment of the form k=v continues the parameters of
// the spec before it, so "scale_demand:product=irw,factor=2,no_bias" yields
// two entries.
func ParseTemplateList(templateList string) []string {
	if templateList == "" {
		return nil
	}

	parts := strings.Split(templateList, ",")
	templates := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		if n := len(templates); n > 0 && isParamSegment(trimmed) && strings.Contains(templates[n-1], ":") {
			templates[n-1] += "," + trimmed
			continue
		}
		templates = append(templates, trimmed)
	}
	return templates
}

func isParamSegment(s string) bool {
	return strings.Contains(s, "=") && !strings.Contains(s, ":")
}

// GetTemplateHelp returns formatted help text for all templates and transforms
func GetTemplateHelp(registry *TemplateRegistry, transforms *TransformRegistry) string {
	var sb strings.Builder

	if len(registry.templates) == 0 {
		sb.WriteString("No templates registered\n")
	} else {
		sb.WriteString("Available Templates:\n\n")
		for _, name := range registry.List() {
			t := registry.templates[name]
			sb.WriteString(fmt.Sprintf("  %-20s %s\n", t.Name, t.Description))
		}
		sb.WriteString("\n")
	}

	if transforms != nil {
		sb.WriteString("Available Transforms:\n\n")
		for _, name := range transforms.List() {
			sb.WriteString(fmt.Sprintf("  %-22s %s\n", name, transformUsage[name]))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("Usage:\n")
	sb.WriteString("  hat compare country.yaml --with high_demand,no_bias\n")
	sb.WriteString("  hat run country.yaml --with scale_demand:product=irw,factor=1.1\n")

	return sb.String()
}

var transformUsage = map[string]string{
	"scale_demand":         "product=irw|fw|all factor=<f> [from_year=<y>]",
	"set_bias_mode":        "mode=multiplicative|share|none",
	"set_recency":          "boundary=inclusive|strict",
	"set_shortfall_policy": "policy=halt|continue",
	"scale_interval_bias":  "factor=<f> [template=<id>]",
}
