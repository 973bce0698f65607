// Package aqi converts pollutant concentrations to the US EPA Air Quality Index and
// accumulates PM2.5 statistics for readings and aggregates.
package aqi

import (
	"errors"
	"fmt"
	"math"
)

// Pollutant identifies a supported pollutant.
type Pollutant string

// Supported pollutants.
const (
	PM25 Pollutant = "PM2.5"
	PM10 Pollutant = "PM10"
	O3   Pollutant = "O3"
	SO2  Pollutant = "SO2"
	NO2  Pollutant = "NO2"
	CO   Pollutant = "CO"
)

// Errors returned by the conversion functions.
var (
	ErrUnsupportedPollutant = errors.New("aqi: unsupported pollutant")
	ErrOutOfRange           = errors.New("aqi: concentration outside breakpoint table")
)

type breakpoint struct {
	cLow, cHigh float64
	iLow, iHigh float64
}

type table struct {
	precision int
	maxValue  float64
	maxIndex  int
	rows      []breakpoint
}

// O3 uses the 8-hour table, SO2 and NO2 the 1-hour tables, CO the 8-hour table.
var tables = map[Pollutant]table{
	PM25: {precision: 1, maxValue: 500.5, maxIndex: 500, rows: []breakpoint{
		{0.0, 12.0, 0, 50},
		{12.1, 35.4, 51, 100},
		{35.5, 55.4, 101, 150},
		{55.5, 150.4, 151, 200},
		{150.5, 250.4, 201, 300},
		{250.5, 350.4, 301, 400},
		{350.5, 500.4, 401, 500},
	}},
	PM10: {precision: 0, maxValue: 605, maxIndex: 500, rows: []breakpoint{
		{0, 54, 0, 50},
		{55, 154, 51, 100},
		{155, 254, 101, 150},
		{255, 354, 151, 200},
		{355, 424, 201, 300},
		{425, 504, 301, 400},
		{505, 604, 401, 500},
	}},
	O3: {precision: 3, maxValue: 0.375, maxIndex: 300, rows: []breakpoint{
		{0.000, 0.059, 0, 50},
		{0.060, 0.075, 51, 100},
		{0.076, 0.095, 101, 150},
		{0.096, 0.115, 151, 200},
		{0.116, 0.374, 201, 300},
	}},
	SO2: {precision: 0, maxValue: 1005, maxIndex: 500, rows: []breakpoint{
		{0, 35, 0, 50},
		{36, 75, 51, 100},
		{76, 185, 101, 150},
		{186, 304, 151, 200},
		{305, 604, 201, 300},
		{605, 804, 301, 400},
		{805, 1004, 401, 500},
	}},
	NO2: {precision: 0, maxValue: 2050, maxIndex: 500, rows: []breakpoint{
		{0, 53, 0, 50},
		{54, 100, 51, 100},
		{101, 360, 101, 150},
		{361, 649, 151, 200},
		{650, 1249, 201, 300},
		{1250, 1649, 301, 400},
		{1650, 2049, 401, 500},
	}},
	CO: {precision: 1, maxValue: 50.5, maxIndex: 500, rows: []breakpoint{
		{0.0, 4.4, 0, 50},
		{4.5, 9.4, 51, 100},
		{9.5, 12.4, 101, 150},
		{12.5, 15.4, 151, 200},
		{15.5, 30.4, 201, 300},
		{30.5, 40.4, 301, 400},
		{40.5, 50.4, 401, 500},
	}},
}

// truncation slack absorbs binary representation error such as 0.29*100 = 28.999...
const truncEpsilon = 1e-9

// RoundPollutant truncates value to the reporting precision of the pollutant.
func RoundPollutant(p Pollutant, value float64) (float64, error) {
	t, ok := tables[p]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedPollutant, p)
	}
	return truncate(value, t.precision), nil
}

func truncate(value float64, precision int) float64 {
	scale := math.Pow10(precision)
	return math.Floor(value*scale+truncEpsilon) / scale
}

// Calculate returns the EPA index for the concentration. Values at or above the
// table maximum return the cap for that pollutant.
func Calculate(p Pollutant, value float64) (int, error) {
	t, ok := tables[p]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedPollutant, p)
	}
	c := truncate(value, t.precision)
	if c >= t.maxValue {
		return t.maxIndex, nil
	}
	for _, bp := range t.rows {
		if c < bp.cLow-truncEpsilon || c > bp.cHigh+truncEpsilon {
			continue
		}
		index := (bp.iHigh-bp.iLow)/(bp.cHigh-bp.cLow)*(c-bp.cLow) + bp.iLow
		return int(math.RoundToEven(index)), nil
	}
	return 0, fmt.Errorf("%w: %s %v", ErrOutOfRange, p, value)
}

// MustPM25 is Calculate for PM2.5 where out-of-table values collapse to zero.
// Negative concentrations are the only inputs that reach the zero fallback.
func MustPM25(value float64) int {
	index, err := Calculate(PM25, value)
	if err != nil {
		return 0
	}
	return index
}
