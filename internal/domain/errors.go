package domain

import (
	"fmt"
	"strings"
)

// ConfigInconsistencyError reports input tables that contradict each other
// or the simulated state. It is always fatal.
type ConfigInconsistencyError struct {
	Table  string
	Reason string
}

func (e *ConfigInconsistencyError) Error() string {
	if e.Table == "" {
		return "configuration inconsistency: " + e.Reason
	}
	return fmt.Sprintf("configuration inconsistency in %s: %s", e.Table, e.Reason)
}

// Inconsistent builds a ConfigInconsistencyError with a formatted reason.
func Inconsistent(table, format string, args ...interface{}) *ConfigInconsistencyError {
	return &ConfigInconsistencyError{Table: table, Reason: fmt.Sprintf(format, args...)}
}

// Shortfall is the volume of one product that could not be allocated.
type Shortfall struct {
	Product Product `json:"product"`
	Volume  float64 `json:"volume"` // m³
}

// UnsatisfiedDemandError reports demand that the eligible stands could not
// supply in one year.
type UnsatisfiedDemandError struct {
	Year       int
	Country    string
	Shortfalls []Shortfall
}

func (e *UnsatisfiedDemandError) Error() string {
	parts := make([]string, len(e.Shortfalls))
	for i, s := range e.Shortfalls {
		parts[i] = fmt.Sprintf("%s %.3f m3", s.Product, s.Volume)
	}
	country := e.Country
	if country == "" {
		country = "?"
	}
	return fmt.Sprintf("unsatisfied demand in %s for %d: %s", country, e.Year, strings.Join(parts, ", "))
}

// For returns the shortfall volume of product, or zero.
func (e *UnsatisfiedDemandError) For(product Product) float64 {
	for _, s := range e.Shortfalls {
		if s.Product == product {
			return s.Volume
		}
	}
	return 0
}
