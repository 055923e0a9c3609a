// Package observability exposes the allocation runs as Prometheus metrics.
package observability

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rgehrsitz/hatgo/internal/domain"
	"github.com/rgehrsitz/hatgo/internal/hat"
)

// AllocationCollector bundles the Prometheus metrics of allocation runs and
// records them from the runner's yearly results.
type AllocationCollector struct {
	gatherer prometheus.Gatherer

	Years               *prometheus.CounterVec
	DynamicDisturbances *prometheus.CounterVec
	AllocatedVolume     *prometheus.CounterVec
	UnsatisfiedDemand   *prometheus.GaugeVec
	UnmatchedTemplates  *prometheus.CounterVec
	NeverMatched        *prometheus.GaugeVec
	YearDuration        *prometheus.HistogramVec
}

var _ hat.MetricsRecorder = (*AllocationCollector)(nil)

// NewAllocationCollector registers the allocation metrics against reg,
// defaulting to the global registry when nil.
func NewAllocationCollector(reg prometheus.Registerer) (*AllocationCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	years, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hat_years_total",
		Help: "Number of simulated years, labeled by country.",
	}, []string{"country"}), "hat_years_total")
	if err != nil {
		return nil, err
	}
	disturbances, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hat_dynamic_disturbances_total",
		Help: "Number of disturbances generated from demand, labeled by country and product.",
	}, []string{"country", "product"}), "hat_dynamic_disturbances_total")
	if err != nil {
		return nil, err
	}
	allocated, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hat_allocated_volume_m3_total",
		Help: "Wood volume allocated to stand groups in m3, labeled by country and product.",
	}, []string{"country", "product"}), "hat_allocated_volume_m3_total")
	if err != nil {
		return nil, err
	}
	unsatisfied, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "hat_unsatisfied_demand_m3",
		Help: "Demand left unallocated in the last simulated year in m3, labeled by country and product.",
	}, []string{"country", "product"}), "hat_unsatisfied_demand_m3")
	if err != nil {
		return nil, err
	}
	unmatched, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hat_unmatched_templates_total",
		Help: "Template-years in which a template matched no stand, labeled by country.",
	}, []string{"country"}), "hat_unmatched_templates_total")
	if err != nil {
		return nil, err
	}
	never, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "hat_never_matched_templates",
		Help: "Templates that matched no stand during the whole run, labeled by country.",
	}, []string{"country"}), "hat_never_matched_templates")
	if err != nil {
		return nil, err
	}
	duration, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hat_year_duration_seconds",
		Help:    "Wall time spent allocating and stepping one year.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30, 120},
	}, []string{"country"}), "hat_year_duration_seconds")
	if err != nil {
		return nil, err
	}

	return &AllocationCollector{
		gatherer:            gatherer,
		Years:               years,
		DynamicDisturbances: disturbances,
		AllocatedVolume:     allocated,
		UnsatisfiedDemand:   unsatisfied,
		UnmatchedTemplates:  unmatched,
		NeverMatched:        never,
		YearDuration:        duration,
	}, nil
}

// ObserveYear records one year of a run.
func (c *AllocationCollector) ObserveYear(country string, result *domain.YearResult, elapsed time.Duration) {
	if c == nil || result == nil {
		return
	}
	s := result.Summary
	c.Years.WithLabelValues(country).Inc()
	c.YearDuration.WithLabelValues(country).Observe(elapsed.Seconds())

	for _, in := range result.Instructions {
		c.DynamicDisturbances.WithLabelValues(country, in.Provenance.Product.String()).Inc()
	}
	c.AllocatedVolume.WithLabelValues(country, domain.ProductIRW.String()).Add(s.AllocatedIRW)
	c.AllocatedVolume.WithLabelValues(country, domain.ProductFW.String()).Add(s.AllocatedFW)
	c.UnsatisfiedDemand.WithLabelValues(country, domain.ProductIRW.String()).Set(s.ShortfallIRW)
	c.UnsatisfiedDemand.WithLabelValues(country, domain.ProductFW.String()).Set(s.ShortfallFW)

	if n := len(result.UnmatchedTemplates); n > 0 {
		c.UnmatchedTemplates.WithLabelValues(country).Add(float64(n))
	}
}

// ObserveUnmatched records the templates that never matched during a run.
func (c *AllocationCollector) ObserveUnmatched(country string, templates []string) {
	if c == nil {
		return
	}
	c.NeverMatched.WithLabelValues(country).Set(float64(len(templates)))
}

// WriteTextfile writes every metric of the collector's registry in the
// node exporter textfile format.
func (c *AllocationCollector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.gatherer); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGaugeVec(reg prometheus.Registerer, vec *prometheus.GaugeVec, name string) (*prometheus.GaugeVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}
