package domain

import (
	"fmt"
	"strings"
)

// RecencyBoundary controls how min_since_last is compared to a stand's time
// since its last disturbance.
type RecencyBoundary string

const (
	RecencyInclusive RecencyBoundary = "inclusive" // time_since_last >= min_since_last
	RecencyStrict    RecencyBoundary = "strict"    // time_since_last > min_since_last
)

// Passes reports whether a stand last disturbed sinceLast years ago clears
// the minSinceLast threshold. A negative threshold disables the filter.
func (b RecencyBoundary) Passes(sinceLast, minSinceLast int) bool {
	if minSinceLast < 0 {
		return true
	}
	if b == RecencyStrict {
		return sinceLast > minSinceLast
	}
	return sinceLast >= minSinceLast
}

// BiasMode selects how harvest factors reweight the potential fractions.
type BiasMode string

const (
	BiasMultiplicative BiasMode = "multiplicative"
	BiasShare          BiasMode = "share"
	BiasNone           BiasMode = "none"
)

// ShortfallPolicy decides what a run does when demand cannot be met.
type ShortfallPolicy string

const (
	ShortfallHalt     ShortfallPolicy = "halt"
	ShortfallContinue ShortfallPolicy = "continue"
)

// UnmatchedPolicy decides what happens to templates that never match a
// stand during a run.
type UnmatchedPolicy string

const (
	UnmatchedWarn UnmatchedPolicy = "warn"
	UnmatchedFail UnmatchedPolicy = "fail"
)

// DefaultTolerance is used when the configuration leaves tolerance unset.
const DefaultTolerance = 1e-6

// AllocationSettings tunes the allocation algorithm.
type AllocationSettings struct {
	RecencyBoundary     RecencyBoundary `yaml:"recency_boundary,omitempty" json:"recencyBoundary,omitempty"`
	BiasMode            BiasMode        `yaml:"bias_mode,omitempty" json:"biasMode,omitempty"`
	OnShortfall         ShortfallPolicy `yaml:"on_shortfall,omitempty" json:"onShortfall,omitempty"`
	OnUnmatchedTemplate UnmatchedPolicy `yaml:"on_unmatched_template,omitempty" json:"onUnmatchedTemplate,omitempty"`
	Tolerance           float64         `yaml:"tolerance,omitempty" json:"tolerance,omitempty"`
}

// WithDefaults fills every unset field.
func (s AllocationSettings) WithDefaults() AllocationSettings {
	if s.RecencyBoundary == "" {
		s.RecencyBoundary = RecencyInclusive
	}
	if s.BiasMode == "" {
		s.BiasMode = BiasMultiplicative
	}
	if s.OnShortfall == "" {
		s.OnShortfall = ShortfallHalt
	}
	if s.OnUnmatchedTemplate == "" {
		s.OnUnmatchedTemplate = UnmatchedWarn
	}
	if s.Tolerance <= 0 {
		s.Tolerance = DefaultTolerance
	}
	return s
}

// Validate checks the enumerated settings.
func (s AllocationSettings) Validate() error {
	s = s.WithDefaults()
	switch s.RecencyBoundary {
	case RecencyInclusive, RecencyStrict:
	default:
		return fmt.Errorf("recency_boundary must be 'inclusive' or 'strict', got %q", s.RecencyBoundary)
	}
	switch s.BiasMode {
	case BiasMultiplicative, BiasShare, BiasNone:
	default:
		return fmt.Errorf("bias_mode must be 'multiplicative', 'share' or 'none', got %q", s.BiasMode)
	}
	switch s.OnShortfall {
	case ShortfallHalt, ShortfallContinue:
	default:
		return fmt.Errorf("on_shortfall must be 'halt' or 'continue', got %q", s.OnShortfall)
	}
	switch s.OnUnmatchedTemplate {
	case UnmatchedWarn, UnmatchedFail:
	default:
		return fmt.Errorf("on_unmatched_template must be 'warn' or 'fail', got %q", s.OnUnmatchedTemplate)
	}
	if s.Tolerance >= 1 {
		return fmt.Errorf("tolerance must be below 1, got %g", s.Tolerance)
	}
	return nil
}

// ParseRecencyBoundary, ParseBiasMode and ParseShortfallPolicy accept the
// command line spellings of the settings.
func ParseRecencyBoundary(s string) (RecencyBoundary, error) {
	b := RecencyBoundary(strings.ToLower(strings.TrimSpace(s)))
	if err := (AllocationSettings{RecencyBoundary: b}).Validate(); err != nil {
		return "", err
	}
	return b, nil
}

func ParseBiasMode(s string) (BiasMode, error) {
	m := BiasMode(strings.ToLower(strings.TrimSpace(s)))
	if err := (AllocationSettings{BiasMode: m}).Validate(); err != nil {
		return "", err
	}
	return m, nil
}

func ParseShortfallPolicy(s string) (ShortfallPolicy, error) {
	p := ShortfallPolicy(strings.ToLower(strings.TrimSpace(s)))
	if err := (AllocationSettings{OnShortfall: p}).Validate(); err != nil {
		return "", err
	}
	return p, nil
}

// DemandFiles points at optional wide-format demand CSVs.
type DemandFiles struct {
	IRW string `yaml:"irw,omitempty" json:"irw,omitempty"`
	FW  string `yaml:"fw,omitempty" json:"fw,omitempty"`
}

// SimulationInputs feeds the reference in-memory engine.
type SimulationInputs struct {
	Inventory     []Stand                    `yaml:"inventory" json:"inventory"`
	Predetermined []PredeterminedDisturbance `yaml:"predetermined_disturbances,omitempty" json:"predeterminedDisturbances,omitempty"`
}

// Configuration is a complete country scenario.
type Configuration struct {
	Country         string   `yaml:"country" json:"country"`
	StartYear       int      `yaml:"start_year" json:"startYear"`
	BaseYear        int      `yaml:"base_year" json:"baseYear"`
	EndYear         int      `yaml:"end_year" json:"endYear"`
	Classifiers     []string `yaml:"classifiers" json:"classifiers"`
	CoefsClassifier string   `yaml:"coefs_classifier,omitempty" json:"coefsClassifier,omitempty"`

	Choices    Choices            `yaml:"choices" json:"choices"`
	Allocation AllocationSettings `yaml:"allocation" json:"allocation"`

	DisturbanceTypes []DisturbanceType     `yaml:"disturbance_types" json:"disturbanceTypes"`
	Templates        []DisturbanceTemplate `yaml:"events_templates" json:"eventsTemplates"`
	IRWFractions     []IRWFraction         `yaml:"irw_fractions" json:"irwFractions"`
	WoodCoefficients []WoodCoefficient     `yaml:"vol_to_mass_coefs" json:"volToMassCoefs"`
	HarvestFactors   []HarvestFactor       `yaml:"harvest_factors,omitempty" json:"harvestFactors,omitempty"`
	Demand           []DemandRecord        `yaml:"demand,omitempty" json:"demand,omitempty"`
	DemandFiles      DemandFiles           `yaml:"demand_files,omitempty" json:"demandFiles,omitempty"`

	Simulation SimulationInputs `yaml:"simulation" json:"simulation"`
}

// DefaultCoefsClassifier is the classifier keying the vol-to-mass table.
const DefaultCoefsClassifier = "forest_type"

// CoefsKey returns the configured vol-to-mass classifier.
func (c *Configuration) CoefsKey() string {
	if c.CoefsClassifier == "" {
		return DefaultCoefsClassifier
	}
	return c.CoefsClassifier
}

// Years lists the simulated calendar years in order.
func (c *Configuration) Years() []int {
	if c.EndYear < c.StartYear {
		return nil
	}
	out := make([]int, 0, c.EndYear-c.StartYear+1)
	for y := c.StartYear; y <= c.EndYear; y++ {
		out = append(out, y)
	}
	return out
}

// DisturbanceTypeByID looks up a disturbance type.
func (c *Configuration) DisturbanceTypeByID(id string) (*DisturbanceType, bool) {
	for i := range c.DisturbanceTypes {
		if c.DisturbanceTypes[i].ID == id {
			return &c.DisturbanceTypes[i], true
		}
	}
	return nil, false
}

// DeepCopy returns a configuration sharing no mutable state with c.
func (c *Configuration) DeepCopy() *Configuration {
	out := *c
	out.Classifiers = append([]string(nil), c.Classifiers...)
	out.Choices = Choices{
		EventsTemplates: c.Choices.EventsTemplates.clone(),
		IRWFractions:    c.Choices.IRWFractions.clone(),
		HarvestFactors:  c.Choices.HarvestFactors.clone(),
		Demand:          c.Choices.Demand.clone(),
	}

	out.DisturbanceTypes = cloneEach(c.DisturbanceTypes, func(dt DisturbanceType) DisturbanceType {
		dt.ProductProportions = clonePools(dt.ProductProportions)
		return dt
	})
	out.Templates = cloneEach(c.Templates, func(t DisturbanceTemplate) DisturbanceTemplate {
		t.Classifiers = t.Classifiers.Clone()
		return t
	})
	out.IRWFractions = cloneEach(c.IRWFractions, func(f IRWFraction) IRWFraction {
		f.Classifiers = f.Classifiers.Clone()
		f.Fractions = clonePools(f.Fractions)
		if f.Fraction != nil {
			v := *f.Fraction
			f.Fraction = &v
		}
		return f
	})
	out.WoodCoefficients = append([]WoodCoefficient(nil), c.WoodCoefficients...)
	out.HarvestFactors = cloneEach(c.HarvestFactors, func(hf HarvestFactor) HarvestFactor {
		hf.Classifiers = hf.Classifiers.Clone()
		if hf.Values != nil {
			values := make(map[int]float64, len(hf.Values))
			for y, v := range hf.Values {
				values[y] = v
			}
			hf.Values = values
		}
		return hf
	})
	out.Demand = append([]DemandRecord(nil), c.Demand...)

	out.Simulation.Inventory = cloneEach(c.Simulation.Inventory, func(s Stand) Stand {
		s.Classifiers = s.Classifiers.Clone()
		s.Pools = clonePools(s.Pools)
		s.Increment = clonePools(s.Increment)
		return s
	})
	out.Simulation.Predetermined = cloneEach(c.Simulation.Predetermined, func(p PredeterminedDisturbance) PredeterminedDisturbance {
		p.Classifiers = p.Classifiers.Clone()
		return p
	})
	return &out
}

func (c ScenarioChoice) clone() ScenarioChoice {
	out := ScenarioChoice{Default: c.Default}
	if c.ByYear != nil {
		out.ByYear = make(map[int]string, len(c.ByYear))
		for y, s := range c.ByYear {
			out.ByYear[y] = s
		}
	}
	return out
}

// cloneEach keeps nil slices nil so copies compare equal to their source.
func cloneEach[T any](in []T, fn func(T) T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	for i, v := range in {
		out[i] = fn(v)
	}
	return out
}

func clonePools(in map[SourcePool]float64) map[SourcePool]float64 {
	if in == nil {
		return nil
	}
	out := make(map[SourcePool]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
