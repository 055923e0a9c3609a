package output

import (
	"github.com/shopspring/decimal"
)

// FormatVolume renders a volume in m³ with one decimal.
func FormatVolume(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(1)
}

// FormatMass renders tonnes of carbon with three decimals.
func FormatMass(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(3)
}

// FormatFraction renders a share with six decimals.
func FormatFraction(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(6)
}
