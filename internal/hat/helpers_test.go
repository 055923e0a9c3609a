package hat

import (
	"context"
	"fmt"
	"time"

	"github.com/rgehrsitz/hatgo/internal/domain"
	"github.com/rgehrsitz/hatgo/internal/engine"
)

// fourToOne converts 1 tC into 4 m³.
var fourToOne = domain.WoodCoefficient{ForestType: "FS", WoodDensity: 0.5, BarkFraction: 0.02}

func group(id string, pc domain.ProductCreated, potIRW, potFW float64) *domain.StandGroup {
	return &domain.StandGroup{
		ID:           id,
		TemplateID:   id,
		Template:     &domain.DisturbanceTemplate{ID: id, DisturbanceType: "10", ProductCreated: pc, DistIntervalBias: 1},
		Classifiers:  domain.Classifiers{"forest_type": "FS"},
		PotentialIRW: potIRW,
		PotentialFW:  potFW,
		AvailableIRW: potIRW,
		AvailableFW:  potFW,
		Coefficient:  fourToOne,
	}
}

func ptr(v float64) *float64 { return &v }

// zzConfig is a small two-classifier country: one clearcut template on
// even-aged spruce, one fuelwood template on uneven-aged spruce and one
// template for a forest type absent from the inventory.
func zzConfig() *domain.Configuration {
	return &domain.Configuration{
		Country:     "ZZ",
		StartYear:   2020,
		BaseYear:    2021,
		EndYear:     2022,
		Classifiers: []string{"forest_type", "mgmt_type"},
		Choices: domain.Choices{
			EventsTemplates: domain.Fixed("ref"),
			IRWFractions:    domain.Fixed("ref"),
			HarvestFactors:  domain.Fixed("ref"),
			Demand:          domain.Fixed("ref"),
		},
		DisturbanceTypes: []domain.DisturbanceType{
			{ID: "10", Name: "Clearcut", StandReplacing: true, ProductProportions: map[domain.SourcePool]float64{
				domain.SoftwoodMerch: 1, domain.SoftwoodOther: 1,
			}},
			{ID: "30", Name: "Fuelwood", ProductProportions: map[domain.SourcePool]float64{
				domain.SoftwoodOther: 1,
			}},
			{ID: "50", Name: "Storm", ProductProportions: map[domain.SourcePool]float64{
				domain.SoftwoodMerch: 0.1, domain.SoftwoodOther: 0.1,
			}},
		},
		Templates: []domain.DisturbanceTemplate{
			{ID: "cc_even", Scenario: "ref", Classifiers: domain.Classifiers{"forest_type": "FS", "mgmt_type": "even"},
				DisturbanceType: "10", MinAge: 50, MaxAge: 200, MinSinceLast: -1,
				ProductCreated: domain.IRWAndFW, DistIntervalBias: 1},
			{ID: "fw_uneven", Scenario: "ref", Classifiers: domain.Classifiers{"forest_type": "FS", "mgmt_type": "uneven"},
				DisturbanceType: "30", MinAge: 0, MaxAge: 200, MinSinceLast: 5,
				ProductCreated: domain.FWOnly, DistIntervalBias: 1},
			{ID: "cc_ob", Scenario: "ref", Classifiers: domain.Classifiers{"forest_type": "OB", "mgmt_type": "?"},
				DisturbanceType: "10", MinAge: 50, MaxAge: 200, MinSinceLast: -1,
				ProductCreated: domain.IRWAndFW, DistIntervalBias: 1},
		},
		IRWFractions: []domain.IRWFraction{
			{Scenario: "ref", Classifiers: domain.Classifiers{"forest_type": "?", "mgmt_type": "?"}, DisturbanceType: "10",
				Fraction: ptr(0), Fractions: map[domain.SourcePool]float64{domain.SoftwoodMerch: 1}},
			{Scenario: "ref", Classifiers: domain.Classifiers{"forest_type": "?", "mgmt_type": "?"}, DisturbanceType: "30",
				Fraction: ptr(0)},
			{Scenario: "ref", Classifiers: domain.Classifiers{"forest_type": "?", "mgmt_type": "?"}, DisturbanceType: "50",
				Fraction: ptr(0), Fractions: map[domain.SourcePool]float64{domain.SoftwoodMerch: 1}},
		},
		WoodCoefficients: []domain.WoodCoefficient{fourToOne},
		Demand: []domain.DemandRecord{
			{Year: 2021, Country: "ZZ", Scenario: "ref", Product: domain.ProductIRW, Volume: 600},
			{Year: 2021, Country: "ZZ", Scenario: "ref", Product: domain.ProductFW, Volume: 500},
			{Year: 2022, Country: "ZZ", Scenario: "ref", Product: domain.ProductIRW, Volume: 280},
			{Year: 2022, Country: "ZZ", Scenario: "ref", Product: domain.ProductFW, Volume: 100},
		},
		Simulation: domain.SimulationInputs{
			Inventory: []domain.Stand{
				{Classifiers: domain.Classifiers{"forest_type": "FS", "mgmt_type": "even"}, Area: 10, Age: 60, TimeSinceLast: 60,
					Pools: map[domain.SourcePool]float64{domain.SoftwoodMerch: 10, domain.SoftwoodOther: 5}},
				{Classifiers: domain.Classifiers{"forest_type": "FS", "mgmt_type": "even"}, Area: 10, Age: 80, TimeSinceLast: 80,
					Pools: map[domain.SourcePool]float64{domain.SoftwoodMerch: 20, domain.SoftwoodOther: 5}},
				{Classifiers: domain.Classifiers{"forest_type": "FS", "mgmt_type": "uneven"}, Area: 20, Age: 40, TimeSinceLast: 10,
					Pools: map[domain.SourcePool]float64{domain.SoftwoodOther: 10}},
			},
		},
	}
}

func setDemand(cfg *domain.Configuration, year int, product domain.Product, volume float64) {
	for i := range cfg.Demand {
		d := &cfg.Demand[i]
		if d.Year == year && d.Product == product {
			d.Volume = volume
		}
	}
}

type recordingLogger struct {
	infos    []string
	warnings []string
	errors   []string
}

func (l *recordingLogger) Debugf(string, ...interface{}) {}
func (l *recordingLogger) Infof(format string, args ...interface{}) {
	l.infos = append(l.infos, fmt.Sprintf(format, args...))
}
func (l *recordingLogger) Warnf(format string, args ...interface{}) {
	l.warnings = append(l.warnings, fmt.Sprintf(format, args...))
}
func (l *recordingLogger) Errorf(format string, args ...interface{}) {
	l.errors = append(l.errors, fmt.Sprintf(format, args...))
}

type recordingMetrics struct {
	years     []int
	unmatched []string
}

func (m *recordingMetrics) ObserveYear(_ string, r *domain.YearResult, _ time.Duration) {
	m.years = append(m.years, r.Summary.Year)
}

func (m *recordingMetrics) ObserveUnmatched(_ string, templates []string) {
	m.unmatched = templates
}

// scriptedSandbox returns fixed rows and fluxes.
type scriptedSandbox struct {
	snapshot *domain.Snapshot
	flux     map[string]domain.FluxVector
	evalErr  error
	closed   int
}

func (s *scriptedSandbox) EndStep(context.Context) (*domain.Snapshot, error) { return s.snapshot, nil }

func (s *scriptedSandbox) Evaluate(_ context.Context, g *domain.StandGroup) (domain.FluxVector, error) {
	if s.evalErr != nil {
		return nil, s.evalErr
	}
	return s.flux[g.TemplateID], nil
}

func (s *scriptedSandbox) Close() error {
	s.closed++
	return nil
}

type scriptedSimulator struct {
	sandbox *scriptedSandbox
	year    int
	steps   int
}

func (s *scriptedSimulator) Fork(context.Context) (engine.Sandbox, error) { return s.sandbox, nil }
func (s *scriptedSimulator) Apply([]domain.DisturbanceInstruction) error  { return nil }
func (s *scriptedSimulator) Step(context.Context) (*engine.StepResult, error) {
	s.steps++
	s.year++
	return &engine.StepResult{}, nil
}
func (s *scriptedSimulator) Timestep() int { return s.steps + 1 }
func (s *scriptedSimulator) Year() int     { return s.year }
