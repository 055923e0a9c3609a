package domain

// DisturbanceType describes a disturbance known to the simulation engine.
// ProductProportions gives, per source pool, the share of the pool's carbon
// sent to products when a hectare is disturbed.
type DisturbanceType struct {
	ID                 string                 `yaml:"id" json:"id"`
	Name               string                 `yaml:"name" json:"name"`
	StandReplacing     bool                   `yaml:"stand_replacing" json:"standReplacing"`
	ProductProportions map[SourcePool]float64 `yaml:"product_proportions" json:"productProportions"`
}

// DisturbanceTemplate defines which stands are eligible for a dynamically
// generated disturbance and which product stream the disturbance creates.
type DisturbanceTemplate struct {
	ID               string         `yaml:"id" json:"id"`
	Scenario         string         `yaml:"scenario" json:"scenario"`
	Classifiers      Classifiers    `yaml:"classifiers" json:"classifiers"`
	DisturbanceType  string         `yaml:"disturbance_type" json:"disturbanceType"`
	DistTypeName     string         `yaml:"dist_type_name,omitempty" json:"distTypeName,omitempty"`
	MinAge           int            `yaml:"min_age" json:"minAge"`
	MaxAge           int            `yaml:"max_age" json:"maxAge"`
	MinSinceLast     int            `yaml:"min_since_last" json:"minSinceLast"` // -1 disables the filter
	LastDistID       string         `yaml:"last_dist_id,omitempty" json:"lastDistId,omitempty"`
	ProductCreated   ProductCreated `yaml:"product_created" json:"productCreated"`
	DistIntervalBias float64        `yaml:"dist_interval_bias" json:"distIntervalBias"`
	SortType         string         `yaml:"sort_type,omitempty" json:"sortType,omitempty"`
}

// IsSalvage reports whether the template only targets stands whose last
// disturbance was of a specific type (salvage logging after fire, storm...).
func (t *DisturbanceTemplate) IsSalvage() bool {
	return t.LastDistID != ""
}

// Eligibility returns the stand filters of the template under boundary.
func (t *DisturbanceTemplate) Eligibility(boundary RecencyBoundary) Eligibility {
	return Eligibility{
		MinAge:       t.MinAge,
		MaxAge:       t.MaxAge,
		MinSinceLast: t.MinSinceLast,
		LastDistID:   t.LastDistID,
		Boundary:     boundary,
	}
}

// IRWFraction gives the share of the flux to products that ends up as
// industrial roundwood for a classifier/disturbance combination. Fractions
// holds per-pool values; Fraction, when set, applies to pools not listed.
type IRWFraction struct {
	Scenario        string                 `yaml:"scenario" json:"scenario"`
	Classifiers     Classifiers            `yaml:"classifiers" json:"classifiers"`
	DisturbanceType string                 `yaml:"disturbance_type" json:"disturbanceType"`
	DistTypeName    string                 `yaml:"dist_type_name,omitempty" json:"distTypeName,omitempty"`
	Fraction        *float64               `yaml:"fraction,omitempty" json:"fraction,omitempty"`
	Fractions       map[SourcePool]float64 `yaml:"fractions,omitempty" json:"fractions,omitempty"`
}

// For returns the irw fraction applying to pool.
func (f *IRWFraction) For(pool SourcePool) float64 {
	if v, ok := f.Fractions[pool]; ok {
		return v
	}
	if f.Fraction != nil {
		return *f.Fraction
	}
	return 0
}

// WoodCoefficient converts between carbon mass and wood volume for one
// forest type: volume = mass * (1 - BarkFraction) / (CarbonFraction * WoodDensity).
type WoodCoefficient struct {
	ForestType   string  `yaml:"forest_type" json:"forestType"`
	WoodDensity  float64 `yaml:"wood_density" json:"woodDensity"`
	BarkFraction float64 `yaml:"bark_frac" json:"barkFrac"`
}

// CarbonFraction is the share of dry wood mass that is carbon.
const CarbonFraction = 0.49

// MassToVolume converts tonnes of carbon to cubic metres under bark.
func (c WoodCoefficient) MassToVolume(tc float64) float64 {
	return tc * (1 - c.BarkFraction) / (CarbonFraction * c.WoodDensity)
}

// VolumeToMass is the inverse of MassToVolume.
func (c WoodCoefficient) VolumeToMass(m3 float64) float64 {
	return m3 * (CarbonFraction * c.WoodDensity) / (1 - c.BarkFraction)
}

// HarvestFactor skews the harvest towards some classifier combinations.
// Classifier entries left empty are not used as join columns. Values are
// keyed by calendar year.
type HarvestFactor struct {
	Scenario        string          `yaml:"scenario" json:"scenario"`
	Classifiers     Classifiers     `yaml:"classifiers" json:"classifiers"`
	ProductCreated  ProductCreated  `yaml:"product_created" json:"productCreated"`
	DisturbanceType string          `yaml:"disturbance_type,omitempty" json:"disturbanceType,omitempty"`
	Values          map[int]float64 `yaml:"values" json:"values"`
}
