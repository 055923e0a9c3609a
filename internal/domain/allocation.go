package domain

import "math"

// AllocationResult is the share of a year's remaining demand assigned to
// one stand group.
type AllocationResult struct {
	StandGroupID  string  `json:"standGroupId"`
	TemplateID    string  `json:"templateId"`
	Product       Product `json:"product"`
	HarvestVolume float64 `json:"harvestVolume"` // m³ of Product
	CollateralFW  float64 `json:"collateralFw"`  // m³ of fw produced alongside irw
	AllocatedMass float64 `json:"allocatedMass"` // tC sent to products
	IRWMass       float64 `json:"irwMass"`
	FWMass        float64 `json:"fwMass"`
	Salvage       bool    `json:"salvage"`

	Group *StandGroup `json:"-"`
}

// Origin records which part of the system created a disturbance.
type Origin string

const (
	OriginDynamic       Origin = "dynamic"
	OriginPredetermined Origin = "predetermined"
)

// Provenance lets reports trace an instruction back to its source.
type Provenance struct {
	RunID      string  `yaml:"run_id" json:"runId"`
	TemplateID string  `yaml:"template_id,omitempty" json:"templateId,omitempty"`
	Product    Product `yaml:"product" json:"product"`
	Origin     Origin  `yaml:"origin" json:"origin"`
}

// DisturbanceInstruction is a concrete disturbance for the engine's next
// step.
type DisturbanceInstruction struct {
	Year            int             `yaml:"year" json:"year"`
	Timestep        int             `yaml:"timestep" json:"timestep"`
	Classifiers     Classifiers     `yaml:"classifiers" json:"classifiers"`
	DisturbanceType string          `yaml:"disturbance_type" json:"disturbanceType"`
	DistTypeName    string          `yaml:"dist_type_name,omitempty" json:"distTypeName,omitempty"`
	MeasurementType MeasurementType `yaml:"measurement_type" json:"measurementType"`
	Amount          float64         `yaml:"amount" json:"amount"`
	SortType        string          `yaml:"sort_type,omitempty" json:"sortType,omitempty"`
	Eligibility     Eligibility     `yaml:"eligibility" json:"eligibility"`
	Provenance      Provenance      `yaml:"provenance" json:"provenance"`
}

// AppliedEvent is a committed disturbance and the amount the engine
// actually placed.
type AppliedEvent struct {
	Instruction DisturbanceInstruction `yaml:"instruction" json:"instruction"`
	// Realized is the amount actually placed, in the instruction's unit.
	Realized float64 `yaml:"realized" json:"realized"`
	Area     float64 `yaml:"area" json:"area"`
}

// Unrealized is the part of the instruction the engine could not place.
func (e AppliedEvent) Unrealized() float64 {
	return math.Max(0, e.Instruction.Amount-e.Realized)
}

// VirtualPool tracks the irw and fw products of one year, in tC. These
// streams are not simulated by the engine.
type VirtualPool struct {
	Year               int     `json:"year"`
	PredeterminedIRWTC float64 `json:"predeterminedIrwTc"`
	PredeterminedFWTC  float64 `json:"predeterminedFwTc"`
	DynamicIRWTC       float64 `json:"dynamicIrwTc"`
	DynamicFWTC        float64 `json:"dynamicFwTc"`
}

// NewVirtualPool returns an empty pool for year.
func NewVirtualPool(year int) *VirtualPool {
	return &VirtualPool{Year: year}
}

// ProductsIRWTC is the total irw carbon of the year.
func (v *VirtualPool) ProductsIRWTC() float64 { return v.PredeterminedIRWTC + v.DynamicIRWTC }

// ProductsFWTC is the total fw carbon of the year.
func (v *VirtualPool) ProductsFWTC() float64 { return v.PredeterminedFWTC + v.DynamicFWTC }

// IsEmpty reports whether nothing has been accumulated yet.
func (v *VirtualPool) IsEmpty() bool {
	return v.ProductsIRWTC() == 0 && v.ProductsFWTC() == 0
}

// YearSummary holds the scalars of one year's allocation. Volumes in m³.
type YearSummary struct {
	Year                int     `yaml:"year" json:"year"`
	Timestep            int     `yaml:"timestep" json:"timestep"`
	DemandIRW           float64 `yaml:"demand_irw_vol" json:"demandIrwVol"`
	DemandFW            float64 `yaml:"demand_fw_vol" json:"demandFwVol"`
	PredeterminedIRW    float64 `yaml:"irw_predetermined" json:"irwPredetermined"`
	PredeterminedFW     float64 `yaml:"fw_predetermined" json:"fwPredetermined"`
	RemainingIRW        float64 `yaml:"remain_irw_vol" json:"remainIrwVol"`
	RemainingFW         float64 `yaml:"remain_fw_vol" json:"remainFwVol"`
	CollateralFW        float64 `yaml:"fw_colat" json:"fwColat"`
	StillRemainingFW    float64 `yaml:"still_remain_fw_vol" json:"stillRemainFwVol"`
	SalvageAvailableIRW float64 `yaml:"irw_salv_avail" json:"irwSalvAvail"`
	SalvageAvailableFW  float64 `yaml:"fw_salv_avail" json:"fwSalvAvail"`
	AvailableIRW        float64 `yaml:"tot_irw_vol_avail" json:"totIrwVolAvail"`
	AvailableFW         float64 `yaml:"tot_fw_vol_avail" json:"totFwVolAvail"`
	AllocatedIRW        float64 `yaml:"allocated_irw_vol" json:"allocatedIrwVol"`
	AllocatedFW         float64 `yaml:"allocated_fw_vol" json:"allocatedFwVol"`
	ShortfallIRW        float64 `yaml:"shortfall_irw_vol" json:"shortfallIrwVol"`
	ShortfallFW         float64 `yaml:"shortfall_fw_vol" json:"shortfallFwVol"`
	DynamicDisturbances int     `yaml:"dynamic_disturbances" json:"dynamicDisturbances"`
	HATApplied          bool    `yaml:"hat_applied" json:"hatApplied"`
}

// GroupReport keeps the per-group distribution of a year, before and after
// the market bias, for harvest factor calibration.
type GroupReport struct {
	Year          int         `json:"year"`
	GroupID       string      `json:"groupId"`
	TemplateID    string      `json:"templateId"`
	Bucket        string      `json:"bucket"`
	Classifiers   Classifiers `json:"classifiers"`
	Available     float64     `json:"available"`
	PreBiasFrac   float64     `json:"preBiasFrac"`
	PreBiasVolume float64     `json:"preBiasVolume"`
	AdjustedFrac  float64     `json:"adjustedFrac"`
	HarvestVolume float64     `json:"harvestVolume"`
	AllocatedMass float64     `json:"allocatedMass"`
}

// YearResult is everything one year's evaluation produced.
type YearResult struct {
	Summary            YearSummary              `json:"summary"`
	Instructions       []DisturbanceInstruction `json:"instructions"`
	Groups             []GroupReport            `json:"groups"`
	Pool               VirtualPool              `json:"pool"`
	UnmatchedTemplates []string                 `json:"unmatchedTemplates,omitempty"`
	// Events is what the engine committed for the year, predetermined
	// first. Empty when the year was not stepped.
	Events             []AppliedEvent           `json:"events,omitempty"`
}

// RunResult collects the years of one country run.
type RunResult struct {
	RunID        string       `json:"runId"`
	Country      string       `json:"country"`
	Years        []YearResult `json:"years"`
	NeverMatched []string     `json:"neverMatched,omitempty"`
}

// Summaries returns the yearly summaries in run order.
func (r *RunResult) Summaries() []YearSummary {
	out := make([]YearSummary, len(r.Years))
	for i, y := range r.Years {
		out[i] = y.Summary
	}
	return out
}
