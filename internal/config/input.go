package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/rgehrsitz/hatgo/internal/domain"
	"gopkg.in/yaml.v3"
)

// InputParser handles parsing of scenario configuration files
type InputParser struct{}

// NewInputParser creates a new input parser
func NewInputParser() *InputParser {
	return &InputParser{}
}

// LoadFromFile loads a scenario from a YAML file, resolves demand files
// relative to it and validates the result.
func (ip *InputParser) LoadFromFile(filename string) (*domain.Configuration, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filename, err)
	}

	config, err := ip.Parse(data)
	if err != nil {
		return nil, err
	}

	if err := ip.loadDemandFiles(config, filepath.Dir(filename)); err != nil {
		return nil, err
	}

	if err := ip.ValidateConfiguration(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Parse decodes a YAML document and normalizes demand units. It does not
// validate.
func (ip *InputParser) Parse(data []byte) (*domain.Configuration, error) {
	var config domain.Configuration
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	for i := range config.Demand {
		d := &config.Demand[i]
		if d.Country == "" {
			d.Country = config.Country
		}
		d.Volume = d.Value * domain.ThousandCubicMetres
	}
	return &config, nil
}

func (ip *InputParser) loadDemandFiles(config *domain.Configuration, baseDir string) error {
	files := []struct {
		path    string
		product domain.Product
	}{
		{config.DemandFiles.IRW, domain.ProductIRW},
		{config.DemandFiles.FW, domain.ProductFW},
	}
	for _, f := range files {
		if f.path == "" {
			continue
		}
		path := f.path
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		records, err := LoadDemandCSV(path, f.product)
		if err != nil {
			return err
		}
		for _, r := range records {
			if r.Country == config.Country {
				config.Demand = append(config.Demand, r)
			}
		}
	}
	return nil
}

// ValidateConfiguration validates the loaded configuration. Every problem
// is reported as a *domain.ConfigInconsistencyError.
func (ip *InputParser) ValidateConfiguration(config *domain.Configuration) error {
	checks := []func(*domain.Configuration) error{
		ip.validateGeneral,
		ip.validateDisturbanceTypes,
		ip.validateTemplates,
		ip.validateIRWFractions,
		ip.validateWoodCoefficients,
		ip.validateHarvestFactors,
		ip.validateDemand,
		ip.validateChoices,
		ip.validateSimulation,
	}
	for _, check := range checks {
		if err := check(config); err != nil {
			return err
		}
	}
	return nil
}

// validateGeneral validates the run window, classifiers and settings
func (ip *InputParser) validateGeneral(config *domain.Configuration) error {
	if config.Country == "" {
		return domain.Inconsistent("", "country is required")
	}
	if config.EndYear < config.StartYear {
		return domain.Inconsistent("", "end_year %d is before start_year %d", config.EndYear, config.StartYear)
	}
	if config.BaseYear < config.StartYear {
		return domain.Inconsistent("", "base_year %d is before start_year %d", config.BaseYear, config.StartYear)
	}
	if len(config.Classifiers) == 0 {
		return domain.Inconsistent("", "at least one classifier is required")
	}
	seen := map[string]bool{}
	for _, c := range config.Classifiers {
		if c == "" {
			return domain.Inconsistent("", "classifier names cannot be empty")
		}
		if seen[c] {
			return domain.Inconsistent("", "classifier %s is declared twice", c)
		}
		seen[c] = true
	}
	if !seen[config.CoefsKey()] {
		return domain.Inconsistent("vol_to_mass_coefs", "coefs classifier %s is not a declared classifier", config.CoefsKey())
	}
	if err := config.Allocation.Validate(); err != nil {
		return domain.Inconsistent("allocation", "%v", err)
	}
	return nil
}

// validateDisturbanceTypes validates the disturbance type table
func (ip *InputParser) validateDisturbanceTypes(config *domain.Configuration) error {
	const table = "disturbance_types"
	if len(config.DisturbanceTypes) == 0 {
		return domain.Inconsistent(table, "no disturbance types provided")
	}
	seen := map[string]bool{}
	for _, dt := range config.DisturbanceTypes {
		if dt.ID == "" {
			return domain.Inconsistent(table, "disturbance type id is required")
		}
		if seen[dt.ID] {
			return domain.Inconsistent(table, "duplicate disturbance type %s", dt.ID)
		}
		seen[dt.ID] = true
		for pool, p := range dt.ProductProportions {
			if !pool.IsValid() {
				return domain.Inconsistent(table, "disturbance type %s: unknown source pool %s", dt.ID, pool)
			}
			if !inUnitInterval(p) {
				return domain.Inconsistent(table, "disturbance type %s: proportion for %s must be between 0 and 1", dt.ID, pool)
			}
		}
	}
	return nil
}

// validateTemplates validates the events templates
func (ip *InputParser) validateTemplates(config *domain.Configuration) error {
	const table = "events_templates"
	if len(config.Templates) == 0 {
		return domain.Inconsistent(table, "no events templates provided")
	}
	seen := map[string]bool{}
	for _, t := range config.Templates {
		if t.ID == "" {
			return domain.Inconsistent(table, "template id is required")
		}
		if seen[t.ID] {
			return domain.Inconsistent(table, "duplicate template id %s", t.ID)
		}
		seen[t.ID] = true
		if t.Scenario == "" {
			return domain.Inconsistent(table, "template %s: scenario is required", t.ID)
		}
		if err := ip.checkClassifierNames(table, t.ID, config, t.Classifiers); err != nil {
			return err
		}
		if err := ip.checkDisturbanceName(table, t.ID, config, t.DisturbanceType, t.DistTypeName); err != nil {
			return err
		}
		if t.LastDistID != "" {
			if _, ok := config.DisturbanceTypeByID(t.LastDistID); !ok {
				return domain.Inconsistent(table, "template %s: unknown last_dist_id %s", t.ID, t.LastDistID)
			}
		}
		if t.MinAge < 0 || t.MaxAge < t.MinAge {
			return domain.Inconsistent(table, "template %s: age range [%d, %d] is invalid", t.ID, t.MinAge, t.MaxAge)
		}
		if t.MinSinceLast < -1 {
			return domain.Inconsistent(table, "template %s: min_since_last must be -1 or more", t.ID)
		}
		switch t.ProductCreated {
		case domain.IRWAndFW, domain.FWOnly:
		default:
			return domain.Inconsistent(table, "template %s: product_created is required", t.ID)
		}
		if !(t.DistIntervalBias > 0) {
			return domain.Inconsistent(table, "template %s: dist_interval_bias must be positive", t.ID)
		}
	}
	return nil
}

// validateIRWFractions validates the irw fraction table, including the
// disturbance id/name consistency check
func (ip *InputParser) validateIRWFractions(config *domain.Configuration) error {
	const table = "irw_fractions"
	if len(config.IRWFractions) == 0 {
		return domain.Inconsistent(table, "no irw fractions provided")
	}
	byScenario := map[string][]domain.Classifiers{}
	seen := map[string]bool{}
	for i, f := range config.IRWFractions {
		row := fmt.Sprintf("row %d", i+1)
		if f.Scenario == "" {
			return domain.Inconsistent(table, "%s: scenario is required", row)
		}
		if err := ip.checkClassifierNames(table, row, config, f.Classifiers); err != nil {
			return err
		}
		if err := ip.checkDisturbanceName(table, row, config, f.DisturbanceType, f.DistTypeName); err != nil {
			return err
		}
		if f.Fraction == nil && len(f.Fractions) == 0 {
			return domain.Inconsistent(table, "%s: fraction or fractions is required", row)
		}
		if f.Fraction != nil && !inUnitInterval(*f.Fraction) {
			return domain.Inconsistent(table, "%s: fraction must be between 0 and 1", row)
		}
		for pool, v := range f.Fractions {
			if !pool.IsValid() {
				return domain.Inconsistent(table, "%s: unknown source pool %s", row, pool)
			}
			if !inUnitInterval(v) {
				return domain.Inconsistent(table, "%s: fraction for %s must be between 0 and 1", row, pool)
			}
		}
		key := f.Scenario + "|" + f.Classifiers.Key(config.Classifiers) + "|" + f.DisturbanceType
		if seen[key] {
			return domain.Inconsistent(table, "duplicate entry for scenario %s, classifiers %s, disturbance %s",
				f.Scenario, f.Classifiers.Key(config.Classifiers), f.DisturbanceType)
		}
		seen[key] = true
		byScenario[f.Scenario] = append(byScenario[f.Scenario], f.Classifiers)
	}
	for _, scenario := range sortedKeys(byScenario) {
		if _, err := WildcardJoinColumns(config.Classifiers, byScenario[scenario]); err != nil {
			return domain.Inconsistent(table, "scenario %s: %v", scenario, err)
		}
	}
	return nil
}

// validateWoodCoefficients validates the vol-to-mass table
func (ip *InputParser) validateWoodCoefficients(config *domain.Configuration) error {
	const table = "vol_to_mass_coefs"
	if len(config.WoodCoefficients) == 0 {
		return domain.Inconsistent(table, "no coefficients provided")
	}
	seen := map[string]bool{}
	for _, c := range config.WoodCoefficients {
		if c.ForestType == "" {
			return domain.Inconsistent(table, "forest_type is required")
		}
		if seen[c.ForestType] {
			return domain.Inconsistent(table, "duplicate coefficients for %s", c.ForestType)
		}
		seen[c.ForestType] = true
		if !(c.WoodDensity > 0) {
			return domain.Inconsistent(table, "%s: wood_density must be positive", c.ForestType)
		}
		if c.BarkFraction < 0 || c.BarkFraction >= 1 {
			return domain.Inconsistent(table, "%s: bark_frac must be in [0, 1)", c.ForestType)
		}
	}
	return nil
}

// validateHarvestFactors validates the harvest factor table. Within one
// scenario and product a join column is either filled in every row or
// empty in every row.
func (ip *InputParser) validateHarvestFactors(config *domain.Configuration) error {
	const table = "harvest_factors"
	type group struct{ scenario, product string }
	groups := map[group][]domain.HarvestFactor{}
	for i, hf := range config.HarvestFactors {
		row := fmt.Sprintf("row %d", i+1)
		if hf.Scenario == "" {
			return domain.Inconsistent(table, "%s: scenario is required", row)
		}
		switch hf.ProductCreated {
		case domain.IRWAndFW, domain.FWOnly:
		default:
			return domain.Inconsistent(table, "%s: product_created is required", row)
		}
		if err := ip.checkClassifierNames(table, row, config, hf.Classifiers); err != nil {
			return err
		}
		if hf.DisturbanceType != "" {
			if _, ok := config.DisturbanceTypeByID(hf.DisturbanceType); !ok {
				return domain.Inconsistent(table, "%s: unknown disturbance type %s", row, hf.DisturbanceType)
			}
		}
		for year, v := range hf.Values {
			if v < 0 || math.IsNaN(v) {
				return domain.Inconsistent(table, "%s: factor for %d cannot be negative", row, year)
			}
		}
		g := group{hf.Scenario, hf.ProductCreated.String()}
		groups[g] = append(groups[g], hf)
	}

	for g, rows := range groups {
		columns := append(append([]string(nil), config.Classifiers...), "disturbance_type")
		value := func(hf domain.HarvestFactor, col string) string {
			if col == "disturbance_type" {
				return hf.DisturbanceType
			}
			v := hf.Classifiers[col]
			if v == domain.Wildcard {
				return ""
			}
			return v
		}
		for _, col := range columns {
			filled := 0
			for _, hf := range rows {
				if value(hf, col) != "" {
					filled++
				}
			}
			if filled != 0 && filled != len(rows) {
				return domain.Inconsistent(table, "scenario %s, product %s: column %s is only partly filled",
					g.scenario, g.product, col)
			}
		}
		seen := map[string]bool{}
		for _, hf := range rows {
			key := hf.Classifiers.Key(config.Classifiers) + "|" + hf.DisturbanceType
			if seen[key] {
				return domain.Inconsistent(table, "scenario %s, product %s: duplicate row %s", g.scenario, g.product, key)
			}
			seen[key] = true
		}
	}
	return nil
}

// validateDemand validates the demand table
func (ip *InputParser) validateDemand(config *domain.Configuration) error {
	const table = "demand"
	if len(config.Demand) == 0 {
		return domain.Inconsistent(table, "no demand provided")
	}
	seen := map[string]bool{}
	for _, d := range config.Demand {
		switch d.Product {
		case domain.ProductIRW, domain.ProductFW:
		default:
			return domain.Inconsistent(table, "year %d: product is required", d.Year)
		}
		if d.Scenario == "" {
			return domain.Inconsistent(table, "year %d: scenario is required", d.Year)
		}
		if d.Volume < 0 || math.IsNaN(d.Volume) {
			return domain.Inconsistent(table, "year %d %s: volume cannot be negative", d.Year, d.Product)
		}
		key := fmt.Sprintf("%s|%s|%d|%s", d.Country, d.Scenario, d.Year, d.Product)
		if seen[key] {
			return domain.Inconsistent(table, "duplicate demand for %s", key)
		}
		seen[key] = true
	}
	return nil
}

// validateChoices checks that every scenario a choice can resolve to is
// present in its table
func (ip *InputParser) validateChoices(config *domain.Configuration) error {
	templates := map[string]bool{}
	for _, t := range config.Templates {
		templates[t.Scenario] = true
	}
	fractions := map[string]bool{}
	for _, f := range config.IRWFractions {
		fractions[f.Scenario] = true
	}
	factors := map[string]bool{}
	for _, hf := range config.HarvestFactors {
		factors[hf.Scenario] = true
	}
	demand := map[string]bool{}
	for _, d := range config.Demand {
		demand[d.Scenario] = true
	}

	checks := []struct {
		table    string
		choice   domain.ScenarioChoice
		known    map[string]bool
		optional bool
	}{
		{"events_templates", config.Choices.EventsTemplates, templates, false},
		{"irw_fractions", config.Choices.IRWFractions, fractions, false},
		{"harvest_factors", config.Choices.HarvestFactors, factors, len(config.HarvestFactors) == 0},
		{"demand", config.Choices.Demand, demand, false},
	}
	for _, c := range checks {
		scenarios := c.choice.Scenarios()
		if len(scenarios) == 1 && scenarios[0] == "" {
			if c.optional {
				continue
			}
			return domain.Inconsistent(c.table, "no scenario chosen")
		}
		for _, s := range scenarios {
			if s == "" {
				continue
			}
			if !c.known[s] {
				return domain.Inconsistent(c.table, "chosen scenario %s is not in the table", s)
			}
		}
		if c.choice.For(config.StartYear) == "" && !c.optional {
			return domain.Inconsistent(c.table, "no scenario chosen for %d", config.StartYear)
		}
	}
	return nil
}

// validateSimulation validates the reference engine inputs
func (ip *InputParser) validateSimulation(config *domain.Configuration) error {
	const table = "simulation"
	if len(config.Simulation.Inventory) == 0 {
		return domain.Inconsistent(table, "inventory is empty")
	}
	for i, s := range config.Simulation.Inventory {
		row := fmt.Sprintf("stand %d", i+1)
		for _, name := range config.Classifiers {
			if s.Classifiers[name] == "" || s.Classifiers[name] == domain.Wildcard {
				return domain.Inconsistent(table, "%s: classifier %s needs a concrete value", row, name)
			}
		}
		if s.Area < 0 || s.Age < 0 || s.TimeSinceLast < 0 {
			return domain.Inconsistent(table, "%s: area, age and time_since_last cannot be negative", row)
		}
		for pool, v := range s.Pools {
			if !pool.IsValid() || v < 0 {
				return domain.Inconsistent(table, "%s: invalid pool %s = %g", row, pool, v)
			}
		}
		for pool := range s.Increment {
			if !pool.IsValid() {
				return domain.Inconsistent(table, "%s: invalid increment pool %s", row, pool)
			}
		}
	}
	for i, p := range config.Simulation.Predetermined {
		row := fmt.Sprintf("predetermined disturbance %d", i+1)
		if _, ok := config.DisturbanceTypeByID(p.DisturbanceType); !ok {
			return domain.Inconsistent(table, "%s: unknown disturbance type %s", row, p.DisturbanceType)
		}
		switch p.MeasurementType {
		case domain.MeasurementArea, domain.MeasurementMass:
		default:
			return domain.Inconsistent(table, "%s: measurement_type must be A or M", row)
		}
		if p.Amount < 0 {
			return domain.Inconsistent(table, "%s: amount cannot be negative", row)
		}
	}
	return nil
}

func (ip *InputParser) checkClassifierNames(table, row string, config *domain.Configuration, c domain.Classifiers) error {
	declared := map[string]bool{}
	for _, name := range config.Classifiers {
		declared[name] = true
	}
	for _, name := range c.SortedNames() {
		if !declared[name] {
			return domain.Inconsistent(table, "%s: unknown classifier %s", row, name)
		}
	}
	return nil
}

func (ip *InputParser) checkDisturbanceName(table, row string, config *domain.Configuration, id, name string) error {
	dt, ok := config.DisturbanceTypeByID(id)
	if !ok {
		return domain.Inconsistent(table, "%s: unknown disturbance type %q", row, id)
	}
	if name != "" && name != dt.Name {
		return domain.Inconsistent(table, "%s: name %q does not match disturbance type %s (%q)", row, name, id, dt.Name)
	}
	return nil
}

// WildcardJoinColumns returns the classifier columns that hold concrete
// values in every row. A column mixing wildcards and concrete values is an
// error; a column of wildcards only is dropped.
func WildcardJoinColumns(classifiers []string, rows []domain.Classifiers) ([]string, error) {
	var out []string
	for _, name := range classifiers {
		wild := 0
		for _, r := range rows {
			if r.IsWildcard(name) {
				wild++
			}
		}
		switch {
		case wild == len(rows):
		case wild == 0:
			out = append(out, name)
		default:
			return nil, fmt.Errorf("column %s mixes wildcards and concrete values", name)
		}
	}
	return out, nil
}

func inUnitInterval(v float64) bool {
	return v >= 0 && v <= 1
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
