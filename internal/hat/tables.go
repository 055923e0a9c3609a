package hat

import (
	"sort"

	"github.com/rgehrsitz/hatgo/internal/config"
	"github.com/rgehrsitz/hatgo/internal/domain"
)

// yearTables holds the input rows selected for one year by the scenario
// choices, indexed for the lookups of the pipeline.
type yearTables struct {
	year      int
	templates []*domain.DisturbanceTemplate

	fractions    []domain.IRWFraction
	fractionCols []string

	coefsKey string
	coefs    map[string]domain.WoodCoefficient

	factors []domain.HarvestFactor

	demandIRW float64
	demandFW  float64
	hasDemand map[domain.Product]bool
}

func newYearTables(cfg *domain.Configuration, year int) (*yearTables, error) {
	t := &yearTables{
		year:      year,
		coefsKey:  cfg.CoefsKey(),
		coefs:     make(map[string]domain.WoodCoefficient, len(cfg.WoodCoefficients)),
		hasDemand: map[domain.Product]bool{},
	}

	scenario := cfg.Choices.EventsTemplates.For(year)
	for i := range cfg.Templates {
		if cfg.Templates[i].Scenario == scenario {
			t.templates = append(t.templates, &cfg.Templates[i])
		}
	}

	scenario = cfg.Choices.IRWFractions.For(year)
	var fractionRows []domain.Classifiers
	for _, f := range cfg.IRWFractions {
		if f.Scenario == scenario {
			t.fractions = append(t.fractions, f)
			fractionRows = append(fractionRows, f.Classifiers)
		}
	}
	cols, err := config.WildcardJoinColumns(cfg.Classifiers, fractionRows)
	if err != nil {
		return nil, domain.Inconsistent("irw_fractions", "scenario %s: %v", scenario, err)
	}
	t.fractionCols = cols

	for _, c := range cfg.WoodCoefficients {
		t.coefs[c.ForestType] = c
	}

	scenario = cfg.Choices.HarvestFactors.For(year)
	for _, hf := range cfg.HarvestFactors {
		if hf.Scenario == scenario {
			t.factors = append(t.factors, hf)
		}
	}

	scenario = cfg.Choices.Demand.For(year)
	for _, d := range cfg.Demand {
		if d.Year != year || d.Scenario != scenario || d.Country != cfg.Country {
			continue
		}
		t.hasDemand[d.Product] = true
		switch d.Product {
		case domain.ProductIRW:
			t.demandIRW += d.Volume
		case domain.ProductFW:
			t.demandFW += d.Volume
		}
	}
	return t, nil
}

// requireDemand fails when the demand table has no row for a product in
// the year.
func (t *yearTables) requireDemand() error {
	for _, p := range []domain.Product{domain.ProductIRW, domain.ProductFW} {
		if !t.hasDemand[p] {
			return domain.Inconsistent("demand", "no %s demand for %d", p, t.year)
		}
	}
	return nil
}

// irwFraction finds the irw fraction row for concrete classifiers and a
// disturbance type.
func (t *yearTables) irwFraction(c domain.Classifiers, distType string) (*domain.IRWFraction, error) {
	for i := range t.fractions {
		f := &t.fractions[i]
		if f.DisturbanceType != distType {
			continue
		}
		match := true
		for _, col := range t.fractionCols {
			if f.Classifiers[col] != c[col] {
				match = false
				break
			}
		}
		if match {
			return f, nil
		}
	}
	return nil, domain.Inconsistent("irw_fractions", "no row for disturbance %s and classifiers %s in %d",
		distType, describe(c, t.fractionCols), t.year)
}

// coefficient finds the vol-to-mass coefficients of a stand.
func (t *yearTables) coefficient(c domain.Classifiers) (domain.WoodCoefficient, error) {
	coef, ok := t.coefs[c[t.coefsKey]]
	if !ok {
		return domain.WoodCoefficient{}, domain.Inconsistent("vol_to_mass_coefs", "no coefficients for %s=%s", t.coefsKey, c[t.coefsKey])
	}
	return coef, nil
}

// factorsFor returns the harvest factor rows of the year for a product.
func (t *yearTables) factorsFor(pc domain.ProductCreated) []domain.HarvestFactor {
	var out []domain.HarvestFactor
	for _, hf := range t.factors {
		if hf.ProductCreated == pc {
			out = append(out, hf)
		}
	}
	return out
}

// splitFlux divides a flux vector into irw and fw carbon with one irw
// fraction row.
func splitFlux(flux domain.FluxVector, frac *domain.IRWFraction) (irwTC, fwTC float64) {
	for _, p := range domain.SourcePools {
		v := flux[p]
		if v == 0 {
			continue
		}
		f := frac.For(p)
		irwTC += v * f
		fwTC += v * (1 - f)
	}
	return irwTC, fwTC
}

// predeterminedProducts is the carbon and volume the fixed disturbances of
// a year send to each product stream.
type predeterminedProducts struct {
	irwTC, fwTC   float64
	irwVol, fwVol float64
}

func (t *yearTables) splitPredetermined(fluxes []domain.FluxRecord) (predeterminedProducts, error) {
	var out predeterminedProducts
	for _, f := range fluxes {
		if f.Destination != domain.ProductsPool || f.Mass == 0 {
			continue
		}
		frac, err := t.irwFraction(f.Classifiers, f.DisturbanceType)
		if err != nil {
			return out, err
		}
		coef, err := t.coefficient(f.Classifiers)
		if err != nil {
			return out, err
		}
		irw, fw := splitFlux(domain.FluxVector{f.Source: f.Mass}, frac)
		out.irwTC += irw
		out.fwTC += fw
		out.irwVol += coef.MassToVolume(irw)
		out.fwVol += coef.MassToVolume(fw)
	}
	return out, nil
}

func describe(c domain.Classifiers, names []string) string {
	if len(names) == 0 {
		names = c.SortedNames()
	}
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	out := ""
	for i, n := range sorted {
		if i > 0 {
			out += ","
		}
		out += n + "=" + c[n]
	}
	return "{" + out + "}"
}
