package domain

import (
	"fmt"
	"strings"
)

// ProductCreated tags a disturbance template with the product streams its
// disturbances generate. Only two values are valid; the zero value is
// rejected by validation.
type ProductCreated int

const (
	ProductCreatedUnknown ProductCreated = iota
	// IRWAndFW disturbances yield industrial roundwood with fuelwood as a
	// collateral product.
	IRWAndFW
	// FWOnly disturbances yield fuelwood only.
	FWOnly
)

func (p ProductCreated) String() string {
	switch p {
	case IRWAndFW:
		return "irw_and_fw"
	case FWOnly:
		return "fw_only"
	default:
		return "unknown"
	}
}

// ParseProductCreated converts the table spelling into a ProductCreated.
func ParseProductCreated(s string) (ProductCreated, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "irw_and_fw":
		return IRWAndFW, nil
	case "fw_only":
		return FWOnly, nil
	default:
		return ProductCreatedUnknown, fmt.Errorf("unknown product_created %q (want irw_and_fw or fw_only)", s)
	}
}

func (p ProductCreated) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *ProductCreated) UnmarshalText(text []byte) error {
	v, err := ParseProductCreated(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Product is one of the two virtual wood product streams.
type Product int

const (
	ProductUnknown Product = iota
	// ProductIRW is industrial roundwood.
	ProductIRW
	// ProductFW is fuelwood.
	ProductFW
)

func (p Product) String() string {
	switch p {
	case ProductIRW:
		return "irw"
	case ProductFW:
		return "fw"
	default:
		return "unknown"
	}
}

// ParseProduct accepts "irw" or "fw".
func ParseProduct(s string) (Product, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "irw":
		return ProductIRW, nil
	case "fw":
		return ProductFW, nil
	default:
		return ProductUnknown, fmt.Errorf("unknown product %q (want irw or fw)", s)
	}
}

// MarshalText writes an unknown product, as carried by predetermined
// disturbances, as empty text.
func (p Product) MarshalText() ([]byte, error) {
	if p == ProductUnknown {
		return []byte{}, nil
	}
	return []byte(p.String()), nil
}

func (p *Product) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*p = ProductUnknown
		return nil
	}
	v, err := ParseProduct(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// SourcePool names a biomass pool whose carbon can flow to products.
type SourcePool string

const (
	SoftwoodMerch      SourcePool = "softwood_merch"
	HardwoodMerch      SourcePool = "hardwood_merch"
	SoftwoodOther      SourcePool = "softwood_other"
	HardwoodOther      SourcePool = "hardwood_other"
	SoftwoodStemSnag   SourcePool = "softwood_stem_snag"
	HardwoodStemSnag   SourcePool = "hardwood_stem_snag"
	SoftwoodBranchSnag SourcePool = "softwood_branch_snag"
	HardwoodBranchSnag SourcePool = "hardwood_branch_snag"
)

// SourcePools lists the tracked source pools in a fixed order. Every
// iteration over pools goes through this slice so float sums are
// reproducible.
var SourcePools = []SourcePool{
	SoftwoodMerch, HardwoodMerch,
	SoftwoodOther, HardwoodOther,
	SoftwoodStemSnag, HardwoodStemSnag,
	SoftwoodBranchSnag, HardwoodBranchSnag,
}

// IsValid reports whether p is one of SourcePools.
func (p SourcePool) IsValid() bool {
	for _, s := range SourcePools {
		if s == p {
			return true
		}
	}
	return false
}

// ProductsPool is the destination pool of every harvest flux.
const ProductsPool = "products"

// FluxVector holds tonnes of carbon per source pool.
type FluxVector map[SourcePool]float64

// Total sums the vector in SourcePools order.
func (f FluxVector) Total() float64 {
	var sum float64
	for _, p := range SourcePools {
		sum += f[p]
	}
	return sum
}

// Add accumulates other into f.
func (f FluxVector) Add(other FluxVector) {
	for p, v := range other {
		f[p] += v
	}
}
