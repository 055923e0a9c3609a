// Package hat implements the harvest allocation tool: it turns yearly
// industrial roundwood and fuelwood demand into mass based disturbances for
// a forest carbon simulation.
package hat

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rgehrsitz/hatgo/internal/domain"
	"github.com/rgehrsitz/hatgo/internal/engine"
)

// MetricsRecorder receives one observation per simulated year.
type MetricsRecorder interface {
	ObserveYear(country string, result *domain.YearResult, elapsed time.Duration)
	ObserveUnmatched(country string, templates []string)
}

// NopMetrics discards observations.
type NopMetrics struct{}

func (NopMetrics) ObserveYear(string, *domain.YearResult, time.Duration) {}
func (NopMetrics) ObserveUnmatched(string, []string)                     {}

// Runner drives one country through its simulation years, allocating
// demand before each step of the engine.
type Runner struct {
	config   *domain.Configuration
	settings domain.AllocationSettings
	sim      engine.Simulator

	Logger  Logger
	Metrics MetricsRecorder

	runID        string
	candidates   map[string]bool
	everMatched  map[string]bool
	templateSeen []string
}

// NewRunner creates a runner for cfg driving sim.
func NewRunner(cfg *domain.Configuration, sim engine.Simulator) *Runner {
	return &Runner{
		config:      cfg,
		settings:    cfg.Allocation.WithDefaults(),
		sim:         sim,
		Logger:      NopLogger{},
		Metrics:     NopMetrics{},
		candidates:  map[string]bool{},
		everMatched: map[string]bool{},
	}
}

// SetLogger sets the logger; nil restores the no-op logger.
func (r *Runner) SetLogger(l Logger) {
	if l == nil {
		r.Logger = NopLogger{}
		return
	}
	r.Logger = l
}

// SetMetrics sets the metrics recorder; nil disables metrics.
func (r *Runner) SetMetrics(m MetricsRecorder) {
	if m == nil {
		r.Metrics = NopMetrics{}
		return
	}
	r.Metrics = m
}

// SetRunID fixes the run id stamped on instructions. Run generates one
// when none is set.
func (r *Runner) SetRunID(id string) { r.runID = id }

// RunID returns the current run id.
func (r *Runner) RunID() string { return r.runID }

// Run evaluates every year from the simulator's current year to EndYear.
// The returned result holds every recorded year even when an error stops
// the run.
func (r *Runner) Run(ctx context.Context) (*domain.RunResult, error) {
	if r.runID == "" {
		r.runID = uuid.NewString()
	}
	result := &domain.RunResult{RunID: r.runID, Country: r.config.Country}
	r.Logger.Infof("run %s: %s from %d to %d", r.runID, r.config.Country, r.sim.Year(), r.config.EndYear)

	for r.sim.Year() <= r.config.EndYear {
		year, err := r.RunYear(ctx)
		if year != nil {
			result.Years = append(result.Years, *year)
		}
		if err != nil {
			return result, err
		}
	}

	result.NeverMatched = r.neverMatched()
	if len(result.NeverMatched) > 0 {
		r.Metrics.ObserveUnmatched(r.config.Country, result.NeverMatched)
		if r.settings.OnUnmatchedTemplate == domain.UnmatchedFail {
			return result, domain.Inconsistent("events_templates", "templates never matched a stand: %s",
				strings.Join(result.NeverMatched, ", "))
		}
		r.Logger.Warnf("templates never matched a stand: %s", strings.Join(result.NeverMatched, ", "))
	}
	return result, nil
}

// RunYear evaluates the simulator's current year, applies the resulting
// disturbances and steps the engine. Under the halt policy a shortfall
// returns the year's result with an *domain.UnsatisfiedDemandError and the
// engine is left on the same year.
func (r *Runner) RunYear(ctx context.Context) (*domain.YearResult, error) {
	start := time.Now()
	year, timestep := r.sim.Year(), r.sim.Timestep()
	if r.runID == "" {
		r.runID = uuid.NewString()
	}

	if year < r.config.BaseYear {
		return r.historicalYear(ctx, year, timestep, start)
	}

	result, instructions, allocErr, err := r.evaluate(ctx, year, timestep)
	if err != nil {
		return nil, fmt.Errorf("year %d: %w", year, err)
	}

	if allocErr != nil {
		if r.settings.OnShortfall == domain.ShortfallHalt {
			r.Logger.Errorf("%v", allocErr)
			r.Metrics.ObserveYear(r.config.Country, result, time.Since(start))
			return result, allocErr
		}
		r.Logger.Warnf("%v; continuing with partial allocation", allocErr)
	}

	if err := r.sim.Apply(instructions); err != nil {
		return result, fmt.Errorf("year %d: apply: %w", year, err)
	}
	step, err := r.sim.Step(ctx)
	if err != nil {
		return result, fmt.Errorf("year %d: step: %w", year, err)
	}
	result.Events = step.Events
	r.checkRealized(year, step.Events)

	r.Logger.Infof("%d: irw %.1f/%.1f m3, fw %.1f/%.1f m3, %d disturbances",
		year, result.Summary.AllocatedIRW, result.Summary.RemainingIRW,
		result.Summary.AllocatedFW, result.Summary.StillRemainingFW, len(instructions))
	r.Metrics.ObserveYear(r.config.Country, result, time.Since(start))
	return result, nil
}

// historicalYear steps the engine without allocating. Only the products of
// the predetermined disturbances are booked.
func (r *Runner) historicalYear(ctx context.Context, year, timestep int, start time.Time) (*domain.YearResult, error) {
	step, err := r.sim.Step(ctx)
	if err != nil {
		return nil, fmt.Errorf("year %d: step: %w", year, err)
	}
	result := &domain.YearResult{
		Summary: domain.YearSummary{Year: year, Timestep: timestep},
		Pool:    *domain.NewVirtualPool(year),
		Events:  step.Events,
	}

	tables, err := newYearTables(r.config, year)
	if err != nil {
		return result, fmt.Errorf("year %d: %w", year, err)
	}
	pred, err := tables.splitPredetermined(step.Fluxes)
	if err != nil {
		return result, fmt.Errorf("year %d: %w", year, err)
	}
	result.Pool.PredeterminedIRWTC = pred.irwTC
	result.Pool.PredeterminedFWTC = pred.fwTC
	result.Summary.PredeterminedIRW = pred.irwVol
	result.Summary.PredeterminedFW = pred.fwVol

	r.Logger.Debugf("%d: historical year, no allocation", year)
	r.Metrics.ObserveYear(r.config.Country, result, time.Since(start))
	return result, nil
}

// evaluate runs the allocation pipeline for one year. allocErr carries an
// unsatisfied demand; err any fatal failure.
func (r *Runner) evaluate(ctx context.Context, year, timestep int) (result *domain.YearResult, instructions []domain.DisturbanceInstruction, allocErr, err error) {
	tables, err := newYearTables(r.config, year)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := tables.requireDemand(); err != nil {
		return nil, nil, nil, err
	}

	pool := domain.NewVirtualPool(year)
	var groups []*domain.StandGroup
	var unmatched []string
	var pred predeterminedProducts

	matcher := NewEligibilityMatcher(r.config.Classifiers, r.settings.RecencyBoundary)
	estimator := newPotentialYieldEstimator(tables)
	err = engine.WithSandbox(ctx, r.sim, func(sb engine.Sandbox) error {
		snap, err := sb.EndStep(ctx)
		if err != nil {
			return &engine.EvaluationError{Op: "end step", Err: err}
		}
		if pred, err = tables.splitPredetermined(snap.Fluxes); err != nil {
			return err
		}
		if groups, unmatched, err = matcher.Match(snap.Rows, tables.templates); err != nil {
			return err
		}
		return estimator.Estimate(ctx, sb, groups)
	})
	if err != nil {
		return nil, nil, nil, err
	}
	pool.PredeterminedIRWTC = pred.irwTC
	pool.PredeterminedFWTC = pred.fwTC
	r.trackMatches(tables.templates, unmatched)
	if len(unmatched) > 0 {
		r.Logger.Debugf("%d: templates without eligible stands: %s", year, strings.Join(unmatched, ", "))
	}

	buckets := BuildBuckets(groups)
	preBias := map[*Candidate]float64{}
	buckets.Each(func(_ Bucket, c *Candidate) { preBias[c] = c.Frac })
	if err := NewMarketBiasAdjuster(r.settings.BiasMode, r.config.Classifiers).Adjust(year, buckets, tables); err != nil {
		return nil, nil, nil, err
	}

	demand := Demand{
		IRW:              tables.demandIRW,
		FW:               tables.demandFW,
		PredeterminedIRW: pred.irwVol,
		PredeterminedFW:  pred.fwVol,
	}
	alloc, allocErr := NewDemandAllocator(r.config.Country, year, r.settings.Tolerance).Allocate(demand, buckets)
	if allocErr != nil {
		var unsatisfied *domain.UnsatisfiedDemandError
		if !errors.As(allocErr, &unsatisfied) {
			return nil, nil, nil, allocErr
		}
	}
	for _, t := range alloc.Transitions {
		r.Logger.Debugf("%d: %s -> %s: %s", year, t.From, t.To, t.Reason)
	}

	emitter := NewDisturbanceEmitter(r.runID, year, timestep, r.settings.RecencyBoundary)
	instructions, err = emitter.Emit(alloc.Results, pool)
	if err != nil {
		return nil, nil, nil, err
	}

	result = &domain.YearResult{
		Summary:            summarize(year, timestep, demand, buckets, alloc, len(instructions)),
		Instructions:       instructions,
		Groups:             groupReports(year, buckets, alloc, preBias),
		Pool:               *pool,
		UnmatchedTemplates: unmatched,
	}
	r.logShares(result.Summary)
	return result, instructions, allocErr, nil
}

// logShares reports the demand against the annualized potential and the
// part of the fw demand met by collateral fuelwood.
func (r *Runner) logShares(s domain.YearSummary) {
	if s.RemainingIRW > 0 && s.AvailableIRW > 0 {
		r.Logger.Infof("%d: irw demand of %.0f m3 is %.0f%% of the annualized available potential of %.0f m3",
			s.Year, s.RemainingIRW, 100*s.RemainingIRW/s.AvailableIRW, s.AvailableIRW)
	}
	if s.RemainingFW > 0 {
		r.Logger.Infof("%d: collateral fw from irw disturbances is %.0f%% of the fw demand of %.0f m3",
			s.Year, 100*s.CollateralFW/s.RemainingFW, s.RemainingFW)
	}
	if s.StillRemainingFW > 0 && s.AvailableFW > 0 {
		r.Logger.Infof("%d: remaining fw demand of %.0f m3 is %.0f%% of the annualized potential of fw disturbances",
			s.Year, s.StillRemainingFW, 100*s.StillRemainingFW/s.AvailableFW)
	}
}

// checkRealized warns about dynamic disturbances the engine could not place
// in full. Their products stay booked in the virtual pool.
func (r *Runner) checkRealized(year int, events []domain.AppliedEvent) {
	for _, e := range events {
		in := e.Instruction
		if in.Provenance.Origin != domain.OriginDynamic {
			continue
		}
		if u := e.Unrealized(); u > r.settings.Tolerance*math.Max(1, in.Amount) {
			r.Logger.Warnf("%d: %s disturbance of template %s placed %.3f of %.3f tC",
				year, in.Provenance.Product, in.Provenance.TemplateID, e.Realized, in.Amount)
		}
	}
}

func (r *Runner) trackMatches(templates []*domain.DisturbanceTemplate, unmatched []string) {
	missing := map[string]bool{}
	for _, id := range unmatched {
		missing[id] = true
	}
	for _, t := range templates {
		if !r.candidates[t.ID] {
			r.candidates[t.ID] = true
			r.templateSeen = append(r.templateSeen, t.ID)
		}
		if !missing[t.ID] {
			r.everMatched[t.ID] = true
		}
	}
}

func (r *Runner) neverMatched() []string {
	var out []string
	for _, id := range r.templateSeen {
		if !r.everMatched[id] {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

func summarize(year, timestep int, demand Demand, b *Buckets, a *Allocation, disturbances int) domain.YearSummary {
	s := domain.YearSummary{
		Year:                year,
		Timestep:            timestep,
		DemandIRW:           demand.IRW,
		DemandFW:            demand.FW,
		PredeterminedIRW:    demand.PredeterminedIRW,
		PredeterminedFW:     demand.PredeterminedFW,
		RemainingIRW:        a.RemainingIRW,
		RemainingFW:         a.RemainingFW,
		CollateralFW:        a.CollateralFW,
		StillRemainingFW:    a.StillRemainingFW,
		AllocatedIRW:        a.AllocatedIRW,
		AllocatedFW:         a.AllocatedFW,
		ShortfallIRW:        a.ShortfallIRW,
		ShortfallFW:         a.ShortfallFW,
		DynamicDisturbances: disturbances,
		HATApplied:          true,
	}
	for _, c := range b.Salvage {
		s.SalvageAvailableIRW += c.Group.AvailableIRW
		s.SalvageAvailableFW += c.Group.AvailableFW
	}
	for _, c := range b.IRW {
		s.AvailableIRW += c.Group.AvailableIRW
	}
	for _, c := range b.FW {
		s.AvailableFW += c.Group.AvailableFW
	}
	s.AvailableIRW += s.SalvageAvailableIRW
	return s
}

// groupReports records each candidate's share before and after the bias.
// PreBiasVolume is the volume the group would get from an unbiased split
// of what its bucket has to supply; the irw bucket only supplies the irw
// demand left after salvage.
func groupReports(year int, b *Buckets, a *Allocation, preBias map[*Candidate]float64) []domain.GroupReport {
	harvest := map[string]domain.AllocationResult{}
	for _, res := range a.Results {
		harvest[res.StandGroupID] = res
	}
	var out []domain.GroupReport
	b.Each(func(bucket Bucket, c *Candidate) {
		var total float64
		switch bucket {
		case BucketIRWSalvage:
			total = math.Max(0, a.RemainingIRW)
		case BucketIRW:
			total = math.Max(0, a.RemainingIRW-a.SalvageIRW)
		case BucketFW:
			total = math.Max(0, a.StillRemainingFW)
		}
		res := harvest[c.Group.ID]
		out = append(out, domain.GroupReport{
			Year:          year,
			GroupID:       c.Group.ID,
			TemplateID:    c.Group.TemplateID,
			Bucket:        string(bucket),
			Classifiers:   c.Group.Classifiers,
			Available:     c.Available,
			PreBiasFrac:   preBias[c],
			PreBiasVolume: preBias[c] * total,
			AdjustedFrac:  c.Adjusted,
			HarvestVolume: res.HarvestVolume,
			AllocatedMass: res.AllocatedMass,
		})
	})
	return out
}
