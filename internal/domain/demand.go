package domain

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// DemandRecord is the wood volume an economic model expects to be harvested
// in one country and year for one product stream. Volume is in m³.
type DemandRecord struct {
	Year     int     `yaml:"year" json:"year"`
	Country  string  `yaml:"country" json:"country"`
	Scenario string  `yaml:"scenario" json:"scenario"`
	Product  Product `yaml:"product" json:"product"`
	Volume   float64 `yaml:"-" json:"volume"`
	// Value is the table value in thousand m³ as written in the input.
	Value float64 `yaml:"value" json:"-"`
}

// ThousandCubicMetres is the unit of the demand tables.
const ThousandCubicMetres = 1000.0

// ScenarioChoice selects which scenario of an input table is used in a
// given year. In YAML it is either a scalar scenario name used for every
// year, or a mapping of year to scenario where each entry applies from its
// year until the next entry.
type ScenarioChoice struct {
	Default string
	ByYear  map[int]string
}

// Fixed returns a choice using scenario for every year.
func Fixed(scenario string) ScenarioChoice {
	return ScenarioChoice{Default: scenario}
}

// For returns the scenario in effect for year.
func (c ScenarioChoice) For(year int) string {
	chosen := c.Default
	best := 0
	found := false
	for y, s := range c.ByYear {
		if y <= year && (!found || y > best) {
			best, chosen, found = y, s, true
		}
	}
	return chosen
}

// Scenarios lists every scenario name the choice can resolve to, sorted.
func (c ScenarioChoice) Scenarios() []string {
	seen := map[string]bool{}
	if c.Default != "" || len(c.ByYear) == 0 {
		seen[c.Default] = true
	}
	for _, s := range c.ByYear {
		seen[s] = true
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func (c *ScenarioChoice) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		return node.Decode(&c.Default)
	case yaml.MappingNode:
		var byYear map[int]string
		if err := node.Decode(&byYear); err != nil {
			return fmt.Errorf("scenario choice by year: %w", err)
		}
		c.ByYear = byYear
		return nil
	default:
		return fmt.Errorf("scenario choice must be a name or a year mapping (line %d)", node.Line)
	}
}

func (c ScenarioChoice) MarshalYAML() (interface{}, error) {
	if len(c.ByYear) == 0 {
		return c.Default, nil
	}
	return c.ByYear, nil
}

// Choices holds the scenario selection of each silviculture input table.
type Choices struct {
	EventsTemplates ScenarioChoice `yaml:"events_templates"`
	IRWFractions    ScenarioChoice `yaml:"irw_fractions"`
	HarvestFactors  ScenarioChoice `yaml:"harvest_factors"`
	Demand          ScenarioChoice `yaml:"demand"`
}
