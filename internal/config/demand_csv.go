package config

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rgehrsitz/hatgo/internal/domain"
)

const valueColumnPrefix = "value_"

// LoadDemandCSV reads a wide demand table for one product. The file has a
// country and a scenario column followed by one value_<year> column per
// year, in thousand m³. Empty cells are skipped.
func LoadDemandCSV(path string, product domain.Product) ([]domain.DemandRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open demand file %s: %w", path, err)
	}
	defer f.Close()

	records, err := ParseDemandCSV(f, product)
	if err != nil {
		return nil, fmt.Errorf("demand file %s: %w", path, err)
	}
	return records, nil
}

// ParseDemandCSV is LoadDemandCSV on an open reader.
func ParseDemandCSV(r io.Reader, product domain.Product) ([]domain.DemandRecord, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	countryCol, scenarioCol := -1, -1
	years := map[int]int{}
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(name))
		switch {
		case name == "country":
			countryCol = i
		case name == "scenario":
			scenarioCol = i
		case strings.HasPrefix(name, valueColumnPrefix):
			year, err := strconv.Atoi(strings.TrimPrefix(name, valueColumnPrefix))
			if err != nil {
				return nil, fmt.Errorf("column %q: year is not a number", name)
			}
			years[i] = year
		}
	}
	if countryCol < 0 || scenarioCol < 0 {
		return nil, fmt.Errorf("header needs country and scenario columns")
	}
	if len(years) == 0 {
		return nil, fmt.Errorf("header has no %s<year> columns", valueColumnPrefix)
	}

	var out []domain.DemandRecord
	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		for col := range row {
			year, ok := years[col]
			if !ok {
				continue
			}
			cell := strings.TrimSpace(row[col])
			if cell == "" {
				continue
			}
			value, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d, %s%d: %w", line, valueColumnPrefix, year, err)
			}
			out = append(out, domain.DemandRecord{
				Year:     year,
				Country:  strings.TrimSpace(row[countryCol]),
				Scenario: strings.TrimSpace(row[scenarioCol]),
				Product:  product,
				Value:    value,
				Volume:   value * domain.ThousandCubicMetres,
			})
		}
	}
	return out, nil
}
