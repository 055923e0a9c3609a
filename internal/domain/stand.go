package domain

// Stand is one row of the initial forest inventory handed to the engine.
// Pools and Increment are per hectare (tC/ha and tC/ha/yr).
type Stand struct {
	Classifiers         Classifiers            `yaml:"classifiers" json:"classifiers"`
	Area                float64                `yaml:"area" json:"area"`
	Age                 int                    `yaml:"age" json:"age"`
	TimeSinceLast       int                    `yaml:"time_since_last" json:"timeSinceLast"`
	LastDisturbanceType string                 `yaml:"last_disturbance_type,omitempty" json:"lastDisturbanceType,omitempty"`
	Pools               map[SourcePool]float64 `yaml:"pools" json:"pools"`
	Increment           map[SourcePool]float64 `yaml:"increment,omitempty" json:"increment,omitempty"`
}

// MeasurementType says how a disturbance amount is expressed.
type MeasurementType string

const (
	MeasurementArea MeasurementType = "A" // hectares
	MeasurementMass MeasurementType = "M" // tonnes of carbon to products
)

// Eligibility restricts which stands a disturbance may touch. A negative
// MaxAge or MinSinceLast disables that bound.
type Eligibility struct {
	MinAge       int             `yaml:"min_age" json:"minAge"`
	MaxAge       int             `yaml:"max_age" json:"maxAge"`
	MinSinceLast int             `yaml:"min_since_last" json:"minSinceLast"`
	LastDistID   string          `yaml:"last_dist_id,omitempty" json:"lastDistId,omitempty"`
	Boundary     RecencyBoundary `yaml:"recency_boundary,omitempty" json:"recencyBoundary,omitempty"`
}

// AnyStand is an Eligibility without bounds.
var AnyStand = Eligibility{MinAge: 0, MaxAge: -1, MinSinceLast: -1}

// Admits reports whether a stand with the given age, time since last
// disturbance and last disturbance type passes the filters.
func (e Eligibility) Admits(age, sinceLast int, lastDist string) bool {
	if age < e.MinAge {
		return false
	}
	if e.MaxAge >= 0 && age > e.MaxAge {
		return false
	}
	if !e.Boundary.Passes(sinceLast, e.MinSinceLast) {
		return false
	}
	return e.LastDistID == "" || e.LastDistID == lastDist
}

// PredeterminedDisturbance is a disturbance fixed in advance by the
// scenario (historical harvest, natural disturbances). HAT never computes
// these; it only accounts for the products they generate.
type PredeterminedDisturbance struct {
	Year            int             `yaml:"year" json:"year"`
	Classifiers     Classifiers     `yaml:"classifiers" json:"classifiers"`
	DisturbanceType string          `yaml:"disturbance_type" json:"disturbanceType"`
	MeasurementType MeasurementType `yaml:"measurement_type" json:"measurementType"`
	Amount          float64         `yaml:"amount" json:"amount"`
	Eligibility     Eligibility     `yaml:"eligibility" json:"eligibility"`
}

// StandRow is one stand of a hypothetical end-of-year snapshot.
type StandRow struct {
	StandID             int                    `json:"standId"`
	Classifiers         Classifiers            `json:"classifiers"`
	Area                float64                `json:"area"`
	Age                 int                    `json:"age"`
	TimeSinceLast       int                    `json:"timeSinceLast"`
	LastDisturbanceType string                 `json:"lastDisturbanceType,omitempty"`
	Pools               map[SourcePool]float64 `json:"pools"`
	// Disturbed is set when a predetermined disturbance touched the stand
	// during the evaluated step; such rows are not eligible for HAT.
	Disturbed bool `json:"disturbed"`
}

// FluxRecord is a carbon movement from a source pool to products produced
// by the engine during one step.
type FluxRecord struct {
	Year            int         `json:"year"`
	StandID         int         `json:"standId"`
	Classifiers     Classifiers `json:"classifiers"`
	DisturbanceType string      `json:"disturbanceType"`
	Source          SourcePool  `json:"source"`
	Destination     string      `json:"destination"`
	Mass            float64     `json:"mass"`
}

// Snapshot is the outcome of hypothetically ending a timestep.
type Snapshot struct {
	Year     int          `json:"year"`
	Timestep int          `json:"timestep"`
	Rows     []StandRow   `json:"rows"`
	Fluxes   []FluxRecord `json:"fluxes"`
}

// StandGroup aggregates the snapshot rows one template matches for one
// concrete classifier combination. It only lives for one year.
type StandGroup struct {
	ID            string               `json:"id"`
	Template      *DisturbanceTemplate `json:"-"`
	TemplateID    string               `json:"templateId"`
	Classifiers   Classifiers          `json:"classifiers"`
	StandIDs      []int                `json:"standIds"`
	Area          float64              `json:"area"`
	Age           float64              `json:"age"` // area weighted
	TimeSinceLast int                  `json:"timeSinceLast"`

	// Filled by the yield estimator.
	Flux         FluxVector      `json:"flux,omitempty"`
	PotentialIRW float64         `json:"potentialIrw"`
	PotentialFW  float64         `json:"potentialFw"`
	AvailableIRW float64         `json:"availableIrw"`
	AvailableFW  float64         `json:"availableFw"`
	Coefficient  WoodCoefficient `json:"coefficient"`
}
