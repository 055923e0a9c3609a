package hat

import (
	"strings"

	"github.com/rgehrsitz/hatgo/internal/domain"
)

// Bucket names a set of groups that share one normalization.
type Bucket string

const (
	BucketIRWSalvage Bucket = "irw_salvage"
	BucketIRW        Bucket = "irw"
	BucketFW         Bucket = "fw"
)

// Candidate is a stand group competing for a share of one bucket's demand.
type Candidate struct {
	Group     *domain.StandGroup
	Available float64 // m³ of the bucket's product
	Frac      float64 // Available / bucket total
	Adjusted  float64 // Frac after the market bias, renormalized
}

// Buckets splits the groups of a year by the product they can supply.
type Buckets struct {
	Salvage []*Candidate
	IRW     []*Candidate
	FW      []*Candidate
}

// BuildBuckets routes each group with positive availability to its bucket
// and computes the unbiased fractions.
func BuildBuckets(groups []*domain.StandGroup) *Buckets {
	b := &Buckets{}
	for _, g := range groups {
		switch g.Template.ProductCreated {
		case domain.IRWAndFW:
			if g.AvailableIRW <= 0 {
				continue
			}
			c := &Candidate{Group: g, Available: g.AvailableIRW}
			if g.Template.IsSalvage() {
				b.Salvage = append(b.Salvage, c)
			} else {
				b.IRW = append(b.IRW, c)
			}
		case domain.FWOnly:
			if g.AvailableFW <= 0 {
				continue
			}
			b.FW = append(b.FW, &Candidate{Group: g, Available: g.AvailableFW})
		}
	}
	for _, bucket := range [][]*Candidate{b.Salvage, b.IRW, b.FW} {
		normalizeAvailable(bucket)
	}
	return b
}

// Each calls fn for every candidate with its bucket name.
func (b *Buckets) Each(fn func(Bucket, *Candidate)) {
	for _, c := range b.Salvage {
		fn(BucketIRWSalvage, c)
	}
	for _, c := range b.IRW {
		fn(BucketIRW, c)
	}
	for _, c := range b.FW {
		fn(BucketFW, c)
	}
}

func normalizeAvailable(bucket []*Candidate) {
	var total float64
	for _, c := range bucket {
		total += c.Available
	}
	for _, c := range bucket {
		if total > 0 {
			c.Frac = c.Available / total
		}
		c.Adjusted = c.Frac
	}
}

// MarketBiasAdjuster reweights the irw and fw buckets with the harvest
// factors of the year. Salvage is never biased.
type MarketBiasAdjuster struct {
	mode        domain.BiasMode
	classifiers []string
}

// NewMarketBiasAdjuster creates an adjuster joining on classifiers.
func NewMarketBiasAdjuster(mode domain.BiasMode, classifiers []string) *MarketBiasAdjuster {
	return &MarketBiasAdjuster{mode: mode, classifiers: classifiers}
}

// Adjust sets Candidate.Adjusted in the irw and fw buckets.
func (a *MarketBiasAdjuster) Adjust(year int, b *Buckets, tables *yearTables) error {
	if err := a.adjust(year, b.IRW, tables.factorsFor(domain.IRWAndFW)); err != nil {
		return err
	}
	return a.adjust(year, b.FW, tables.factorsFor(domain.FWOnly))
}

func (a *MarketBiasAdjuster) adjust(year int, bucket []*Candidate, rows []domain.HarvestFactor) error {
	if a.mode == domain.BiasNone || len(rows) == 0 || len(bucket) == 0 {
		return nil
	}

	cols := a.joinColumns(rows)
	factors := make(map[string]float64, len(rows))
	var total float64
	for _, hf := range rows {
		v, ok := hf.Values[year]
		if !ok {
			return domain.Inconsistent("harvest_factors", "row %s for %s has no value for %d",
				factorKey(hf.Classifiers, hf.DisturbanceType, cols), hf.ProductCreated, year)
		}
		factors[factorKey(hf.Classifiers, hf.DisturbanceType, cols)] = v
		total += v
	}
	if total <= 0 {
		return domain.Inconsistent("harvest_factors", "%s factors for %d sum to zero", rows[0].ProductCreated, year)
	}

	keys := make([]string, len(bucket))
	joinFrac := map[string]float64{}
	for i, c := range bucket {
		keys[i] = factorKey(c.Group.Classifiers, c.Group.Template.DisturbanceType, cols)
		if _, ok := factors[keys[i]]; !ok {
			return domain.Inconsistent("harvest_factors", "no %s factor for group %s (%s) in %d",
				rows[0].ProductCreated, c.Group.ID, keys[i], year)
		}
		joinFrac[keys[i]] += c.Frac
	}

	var sum float64
	for i, c := range bucket {
		factor := factors[keys[i]] / total
		switch a.mode {
		case domain.BiasShare:
			c.Adjusted = c.Frac * factor / joinFrac[keys[i]]
		default:
			c.Adjusted = c.Frac * factor
		}
		sum += c.Adjusted
	}
	if sum > 0 {
		for _, c := range bucket {
			c.Adjusted /= sum
		}
	}
	return nil
}

// joinColumns returns the classifier columns, then disturbance_type, that
// are filled in every factor row.
func (a *MarketBiasAdjuster) joinColumns(rows []domain.HarvestFactor) []string {
	var cols []string
	for _, name := range a.classifiers {
		full := true
		for _, hf := range rows {
			if hf.Classifiers.IsWildcard(name) {
				full = false
				break
			}
		}
		if full {
			cols = append(cols, name)
		}
	}
	full := true
	for _, hf := range rows {
		if hf.DisturbanceType == "" {
			full = false
			break
		}
	}
	if full {
		cols = append(cols, disturbanceTypeColumn)
	}
	return cols
}

const disturbanceTypeColumn = "disturbance_type"

func factorKey(c domain.Classifiers, distType string, cols []string) string {
	parts := make([]string, len(cols))
	for i, col := range cols {
		if col == disturbanceTypeColumn {
			parts[i] = col + "=" + distType
			continue
		}
		parts[i] = col + "=" + c[col]
	}
	return strings.Join(parts, ",")
}
