// Package memory is a deterministic in-memory forest simulation used to
// drive the harvest allocation end to end. Growth is a constant yearly
// increment per hectare; disturbances move a fixed proportion of each
// source pool to products.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/rgehrsitz/hatgo/internal/domain"
	"github.com/rgehrsitz/hatgo/internal/engine"
)

// placementEpsilon is the amount below which a disturbance counts as fully
// placed.
const placementEpsilon = 1e-9

type stand struct {
	id          int
	classifiers domain.Classifiers
	area        float64
	age         int
	sinceLast   int
	lastDist    string
	pools       map[domain.SourcePool]float64
	increment   map[domain.SourcePool]float64
	disturbed   bool
}

func (s *stand) clone() *stand {
	c := *s
	c.classifiers = s.classifiers.Clone()
	c.pools = copyPools(s.pools)
	c.increment = copyPools(s.increment)
	return &c
}

func (s *stand) row() domain.StandRow {
	return domain.StandRow{
		StandID:             s.id,
		Classifiers:         s.classifiers.Clone(),
		Area:                s.area,
		Age:                 s.age,
		TimeSinceLast:       s.sinceLast,
		LastDisturbanceType: s.lastDist,
		Pools:               copyPools(s.pools),
		Disturbed:           s.disturbed,
	}
}

// productsPerHectare is the carbon one hectare would send to products.
func (s *stand) productsPerHectare(dt *domain.DisturbanceType) float64 {
	var sum float64
	for _, p := range domain.SourcePools {
		sum += s.pools[p] * dt.ProductProportions[p]
	}
	return sum
}

type state struct {
	startYear     int
	timestep      int
	nextID        int
	stands        []*stand
	types         map[string]domain.DisturbanceType
	predetermined []domain.PredeterminedDisturbance
	pending       []domain.DisturbanceInstruction
}

func (st *state) year() int { return st.startYear + st.timestep - 1 }

func (st *state) clone() *state {
	c := &state{
		startYear:     st.startYear,
		timestep:      st.timestep,
		nextID:        st.nextID,
		stands:        make([]*stand, len(st.stands)),
		types:         st.types,
		predetermined: st.predetermined,
		pending:       append([]domain.DisturbanceInstruction(nil), st.pending...),
	}
	for i, s := range st.stands {
		c.stands[i] = s.clone()
	}
	return c
}

// predeterminedInstructions returns the fixed disturbances of the current
// year in input order.
func (st *state) predeterminedInstructions() []domain.DisturbanceInstruction {
	var out []domain.DisturbanceInstruction
	for _, p := range st.predetermined {
		if p.Year != st.year() {
			continue
		}
		elig := p.Eligibility
		if elig == (domain.Eligibility{}) {
			elig = domain.AnyStand
		}
		out = append(out, domain.DisturbanceInstruction{
			Year:            p.Year,
			Timestep:        st.timestep,
			Classifiers:     p.Classifiers.Clone(),
			DisturbanceType: p.DisturbanceType,
			MeasurementType: p.MeasurementType,
			Amount:          p.Amount,
			Eligibility:     elig,
			Provenance:      domain.Provenance{Origin: domain.OriginPredetermined},
		})
	}
	return out
}

// apply disturbs eligible stands oldest first until the instruction amount
// is placed, splitting the last stand when only part of it is needed.
func (st *state) apply(in domain.DisturbanceInstruction) (engine.AppliedEvent, []domain.FluxRecord, error) {
	dt, ok := st.types[in.DisturbanceType]
	if !ok {
		return engine.AppliedEvent{}, nil, fmt.Errorf("unknown disturbance type %q", in.DisturbanceType)
	}

	var eligible []*stand
	for _, s := range st.stands {
		if s.disturbed || s.area <= 0 {
			continue
		}
		if !s.classifiers.Matches(in.Classifiers) {
			continue
		}
		if !in.Eligibility.Admits(s.age, s.sinceLast, s.lastDist) {
			continue
		}
		eligible = append(eligible, s)
	}
	sort.SliceStable(eligible, func(i, j int) bool {
		if eligible[i].age != eligible[j].age {
			return eligible[i].age > eligible[j].age
		}
		return eligible[i].id < eligible[j].id
	})

	event := engine.AppliedEvent{Instruction: in}
	var fluxes []domain.FluxRecord
	remaining := in.Amount
	for _, s := range eligible {
		if remaining <= placementEpsilon*math.Max(1, in.Amount) {
			break
		}
		take := s.area
		switch in.MeasurementType {
		case domain.MeasurementArea:
			take = math.Min(remaining, s.area)
		case domain.MeasurementMass:
			perHa := s.productsPerHectare(&dt)
			if perHa <= 0 {
				continue
			}
			if remaining < s.area*perHa {
				take = remaining / perHa
			}
		default:
			return event, nil, fmt.Errorf("unknown measurement type %q", in.MeasurementType)
		}
		if take < s.area {
			rest := s.clone()
			rest.id = st.nextID
			st.nextID++
			rest.area = s.area - take
			st.stands = append(st.stands, rest)
			s.area = take
		}

		var moved float64
		for _, p := range domain.SourcePools {
			prop := dt.ProductProportions[p]
			mass := s.area * s.pools[p] * prop
			s.pools[p] -= s.pools[p] * prop
			if mass <= 0 {
				continue
			}
			moved += mass
			fluxes = append(fluxes, domain.FluxRecord{
				Year:            st.year(),
				StandID:         s.id,
				Classifiers:     s.classifiers.Clone(),
				DisturbanceType: dt.ID,
				Source:          p,
				Destination:     domain.ProductsPool,
				Mass:            mass,
			})
		}
		if dt.StandReplacing {
			s.age = 0
		}
		s.sinceLast = 0
		s.lastDist = dt.ID
		s.disturbed = true

		event.Area += s.area
		if in.MeasurementType == domain.MeasurementArea {
			remaining -= s.area
		} else {
			remaining -= moved
		}
	}
	event.Realized = in.Amount - math.Max(0, remaining)
	return event, fluxes, nil
}

func (st *state) applyAll(instructions []domain.DisturbanceInstruction) ([]engine.AppliedEvent, []domain.FluxRecord, error) {
	var events []engine.AppliedEvent
	var fluxes []domain.FluxRecord
	for _, in := range instructions {
		event, f, err := st.apply(in)
		if err != nil {
			return nil, nil, err
		}
		events = append(events, event)
		fluxes = append(fluxes, f...)
	}
	return events, fluxes, nil
}

func (st *state) grow() {
	for _, s := range st.stands {
		s.age++
		s.sinceLast++
		s.disturbed = false
		for p, inc := range s.increment {
			s.pools[p] += inc
		}
	}
}

// Simulator is the authoritative in-memory engine.
type Simulator struct {
	st *state
}

var _ engine.Simulator = (*Simulator)(nil)

// New builds a simulator from the simulation inputs of cfg, positioned on
// the first timestep (cfg.StartYear).
func New(cfg *domain.Configuration) *Simulator {
	types := make(map[string]domain.DisturbanceType, len(cfg.DisturbanceTypes))
	for _, dt := range cfg.DisturbanceTypes {
		types[dt.ID] = dt
	}
	st := &state{
		startYear:     cfg.StartYear,
		timestep:      1,
		types:         types,
		predetermined: append([]domain.PredeterminedDisturbance(nil), cfg.Simulation.Predetermined...),
	}
	for _, in := range cfg.Simulation.Inventory {
		st.stands = append(st.stands, &stand{
			id:          st.nextID,
			classifiers: in.Classifiers.Clone(),
			area:        in.Area,
			age:         in.Age,
			sinceLast:   in.TimeSinceLast,
			lastDist:    in.LastDisturbanceType,
			pools:       copyPools(in.Pools),
			increment:   copyPools(in.Increment),
		})
		st.nextID++
	}
	return &Simulator{st: st}
}

func (s *Simulator) Timestep() int { return s.st.timestep }

func (s *Simulator) Year() int { return s.st.year() }

// Fork deep-copies the current state into a sandbox.
func (s *Simulator) Fork(ctx context.Context) (engine.Sandbox, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Sandbox{st: s.st.clone()}, nil
}

// Apply queues instructions for the next Step.
func (s *Simulator) Apply(instructions []domain.DisturbanceInstruction) error {
	for i, in := range instructions {
		if _, ok := s.st.types[in.DisturbanceType]; !ok {
			return fmt.Errorf("instruction %d: unknown disturbance type %q", i, in.DisturbanceType)
		}
		if math.IsNaN(in.Amount) || in.Amount < 0 {
			return fmt.Errorf("instruction %d: invalid amount %g", i, in.Amount)
		}
	}
	s.st.pending = append(s.st.pending, instructions...)
	return nil
}

// Step applies the predetermined then the queued disturbances of the
// current year, grows every stand and advances the timestep.
func (s *Simulator) Step(ctx context.Context) (*engine.StepResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	st := s.st
	result := &engine.StepResult{Year: st.year(), Timestep: st.timestep}

	instructions := append(st.predeterminedInstructions(), st.pending...)
	events, fluxes, err := st.applyAll(instructions)
	if err != nil {
		return nil, fmt.Errorf("step %d: %w", st.timestep, err)
	}
	result.Events = events
	result.Fluxes = fluxes

	st.pending = nil
	st.grow()
	st.timestep++
	return result, nil
}

// Inventory returns the current stand rows.
func (s *Simulator) Inventory() []domain.StandRow {
	rows := make([]domain.StandRow, len(s.st.stands))
	for i, st := range s.st.stands {
		rows[i] = st.row()
	}
	return rows
}

// Sandbox is a disposable copy of a Simulator.
type Sandbox struct {
	st    *state
	ended bool
	byID  map[int]*stand
}

var _ engine.Sandbox = (*Sandbox)(nil)

func (sb *Sandbox) EndStep(ctx context.Context) (*domain.Snapshot, error) {
	if sb.st == nil {
		return nil, engine.ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if sb.ended {
		return nil, fmt.Errorf("timestep %d already ended", sb.st.timestep)
	}
	_, fluxes, err := sb.st.applyAll(sb.st.predeterminedInstructions())
	if err != nil {
		return nil, err
	}
	sb.ended = true

	snap := &domain.Snapshot{Year: sb.st.year(), Timestep: sb.st.timestep, Fluxes: fluxes}
	sb.byID = make(map[int]*stand, len(sb.st.stands))
	for _, s := range sb.st.stands {
		snap.Rows = append(snap.Rows, s.row())
		sb.byID[s.id] = s
	}
	return snap, nil
}

func (sb *Sandbox) Evaluate(ctx context.Context, group *domain.StandGroup) (domain.FluxVector, error) {
	if sb.st == nil {
		return nil, engine.ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !sb.ended {
		return nil, fmt.Errorf("evaluate before end of step")
	}
	if group.Template == nil {
		return nil, fmt.Errorf("group %s has no template", group.ID)
	}
	dt, ok := sb.st.types[group.Template.DisturbanceType]
	if !ok {
		return nil, fmt.Errorf("unknown disturbance type %q", group.Template.DisturbanceType)
	}
	flux := domain.FluxVector{}
	for _, id := range group.StandIDs {
		s, ok := sb.byID[id]
		if !ok {
			return nil, fmt.Errorf("stand %d is not in the snapshot", id)
		}
		for _, p := range domain.SourcePools {
			if v := s.area * s.pools[p] * dt.ProductProportions[p]; v > 0 {
				flux[p] += v
			}
		}
	}
	return flux, nil
}

// Close releases the copied state. It is safe to call more than once.
func (sb *Sandbox) Close() error {
	sb.st = nil
	sb.byID = nil
	return nil
}

func copyPools(in map[domain.SourcePool]float64) map[domain.SourcePool]float64 {
	out := make(map[domain.SourcePool]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
