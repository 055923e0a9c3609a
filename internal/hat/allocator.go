package hat

import (
	"fmt"
	"math"

	"github.com/rgehrsitz/hatgo/internal/domain"
)

// State is a phase of the demand allocation.
type State int

const (
	StatePendingIRW State = iota
	StatePendingFW
	StateDone
)

func (s State) String() string {
	switch s {
	case StatePendingIRW:
		return "PENDING_IRW"
	case StatePendingFW:
		return "PENDING_FW"
	case StateDone:
		return "DONE"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Transition is one recorded state change.
type Transition struct {
	From   State  `json:"from"`
	To     State  `json:"to"`
	Reason string `json:"reason"`
}

// Demand is the input of one year's allocation, in m³.
type Demand struct {
	IRW              float64
	FW               float64
	PredeterminedIRW float64
	PredeterminedFW  float64
}

// Allocation is the outcome of one year's allocation.
type Allocation struct {
	State       State
	Transitions []Transition
	Results     []domain.AllocationResult

	RemainingIRW     float64
	SalvageIRW       float64 // part of RemainingIRW met by salvage
	RemainingFW      float64
	CollateralFW     float64
	StillRemainingFW float64
	AllocatedIRW     float64
	AllocatedFW      float64
	ShortfallIRW     float64
	ShortfallFW      float64
}

func (a *Allocation) transition(to State, format string, args ...interface{}) {
	a.Transitions = append(a.Transitions, Transition{From: a.State, To: to, Reason: fmt.Sprintf(format, args...)})
	a.State = to
}

// DemandAllocator satisfies irw demand first, then the fuelwood demand
// left after the collateral fuelwood of the irw harvest.
type DemandAllocator struct {
	year      int
	country   string
	tolerance float64
}

// NewDemandAllocator creates an allocator for one country and year.
func NewDemandAllocator(country string, year int, tolerance float64) *DemandAllocator {
	if tolerance <= 0 {
		tolerance = domain.DefaultTolerance
	}
	return &DemandAllocator{year: year, country: country, tolerance: tolerance}
}

// Allocate runs both phases. The fw phase runs even after an irw
// shortfall. When demand cannot be met the full allocation is returned
// together with an *domain.UnsatisfiedDemandError.
func (d *DemandAllocator) Allocate(demand Demand, b *Buckets) (*Allocation, error) {
	a := &Allocation{State: StatePendingIRW}
	var shortfalls []domain.Shortfall

	// PENDING_IRW
	a.RemainingIRW = demand.IRW - demand.PredeterminedIRW
	if a.RemainingIRW <= 0 {
		a.transition(StatePendingFW, "predetermined irw %.3f m3 covers demand %.3f m3", demand.PredeterminedIRW, demand.IRW)
	} else {
		salvage := waterFillCandidates(a.RemainingIRW, b.Salvage, false)
		a.SalvageIRW = sum(salvage)
		rest := a.RemainingIRW - a.SalvageIRW
		regular := waterFillCandidates(math.Max(0, rest), b.IRW, true)

		d.addIRW(a, b.Salvage, salvage, true)
		d.addIRW(a, b.IRW, regular, false)

		a.ShortfallIRW = d.shortfall(a.RemainingIRW, a.AllocatedIRW)
		if a.ShortfallIRW > 0 {
			shortfalls = append(shortfalls, domain.Shortfall{Product: domain.ProductIRW, Volume: a.ShortfallIRW})
			a.transition(StatePendingFW, "irw short by %.3f m3", a.ShortfallIRW)
		} else {
			a.transition(StatePendingFW, "irw demand of %.3f m3 allocated", a.RemainingIRW)
		}
	}

	// PENDING_FW
	a.RemainingFW = demand.FW - demand.PredeterminedFW
	a.StillRemainingFW = a.RemainingFW - a.CollateralFW
	if a.StillRemainingFW <= 0 {
		a.transition(StateDone, "fw demand covered by predetermined and collateral fuelwood")
	} else {
		harvest := waterFillCandidates(a.StillRemainingFW, b.FW, true)
		for i, c := range b.FW {
			h := harvest[i]
			if h <= 0 {
				continue
			}
			mass := c.Group.Coefficient.VolumeToMass(h)
			a.Results = append(a.Results, domain.AllocationResult{
				StandGroupID:  c.Group.ID,
				TemplateID:    c.Group.TemplateID,
				Product:       domain.ProductFW,
				HarvestVolume: h,
				AllocatedMass: mass,
				FWMass:        mass,
				Group:         c.Group,
			})
			a.AllocatedFW += h
		}
		a.ShortfallFW = d.shortfall(a.StillRemainingFW, a.AllocatedFW)
		if a.ShortfallFW > 0 {
			shortfalls = append(shortfalls, domain.Shortfall{Product: domain.ProductFW, Volume: a.ShortfallFW})
			a.transition(StateDone, "fw short by %.3f m3", a.ShortfallFW)
		} else {
			a.transition(StateDone, "fw demand of %.3f m3 allocated", a.StillRemainingFW)
		}
	}

	if len(shortfalls) > 0 {
		return a, &domain.UnsatisfiedDemandError{Year: d.year, Country: d.country, Shortfalls: shortfalls}
	}
	return a, nil
}

func (d *DemandAllocator) addIRW(a *Allocation, bucket []*Candidate, harvest []float64, salvage bool) {
	for i, c := range bucket {
		h := harvest[i]
		if h <= 0 {
			continue
		}
		g := c.Group
		colat := h * g.PotentialFW / g.PotentialIRW
		irwMass := g.Coefficient.VolumeToMass(h)
		fwMass := g.Coefficient.VolumeToMass(colat)
		a.Results = append(a.Results, domain.AllocationResult{
			StandGroupID:  g.ID,
			TemplateID:    g.TemplateID,
			Product:       domain.ProductIRW,
			HarvestVolume: h,
			CollateralFW:  colat,
			AllocatedMass: irwMass + fwMass,
			IRWMass:       irwMass,
			FWMass:        fwMass,
			Salvage:       salvage,
			Group:         g,
		})
		a.AllocatedIRW += h
		a.CollateralFW += colat
	}
}

// shortfall ignores differences within the relative tolerance.
func (d *DemandAllocator) shortfall(remaining, allocated float64) float64 {
	gap := remaining - allocated
	if gap <= d.tolerance*math.Max(1, remaining) {
		return 0
	}
	return gap
}

func waterFillCandidates(amount float64, bucket []*Candidate, adjusted bool) []float64 {
	weights := make([]float64, len(bucket))
	caps := make([]float64, len(bucket))
	for i, c := range bucket {
		weights[i] = c.Frac
		if adjusted {
			weights[i] = c.Adjusted
		}
		caps[i] = c.Available
	}
	return WaterFill(amount, weights, caps)
}

// WaterFill distributes amount proportionally to weights without exceeding
// caps. Entries that would overflow are filled to their cap and the excess
// is shared among the others, until the amount is placed or every weighted
// entry is full. The result sums to min(amount, sum of weighted caps).
func WaterFill(amount float64, weights, caps []float64) []float64 {
	out := make([]float64, len(weights))
	active := make([]int, 0, len(weights))
	for i, w := range weights {
		if w > 0 && caps[i] > 0 {
			active = append(active, i)
		}
	}

	remaining := amount
	for remaining > 0 && len(active) > 0 {
		var total float64
		for _, i := range active {
			total += weights[i]
		}

		var full, next []int
		for _, i := range active {
			if remaining*weights[i]/total >= caps[i]-out[i] {
				full = append(full, i)
			} else {
				next = append(next, i)
			}
		}
		if len(full) == 0 {
			for _, i := range active {
				out[i] += remaining * weights[i] / total
			}
			break
		}
		for _, i := range full {
			remaining -= caps[i] - out[i]
			out[i] = caps[i]
		}
		active = next
	}
	return out
}

func sum(values []float64) float64 {
	var s float64
	for _, v := range values {
		s += v
	}
	return s
}
