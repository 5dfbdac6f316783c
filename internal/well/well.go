// Package well handles API well-number parsing, validation, and derivation
// of Monte Carlo uncertainty parameters from offset type-curve data.
package well

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/shopspring/decimal"

	"github.com/basinflow/forecast-engine/internal/montecarlo"
)

// apiRegex matches: {state}-{county}-{unique}[-{sidetrack}]
// Example: 42-329-41258 (Texas, Midland county), 42-329-41258-01 for a
// sidetrack. US API well-number convention, dashes required.
var apiRegex = regexp.MustCompile(
	`^(\d{2})-(\d{3})-(\d{5})(?:-(\d{2}))?$`,
)

var (
	ErrInvalidAPINumber = errors.New("well: invalid API number format")
	ErrInvalidTypeCurve = errors.New("well: invalid type-curve percentiles")
)

// Well represents a parsed API well number.
type Well struct {
	APINumber string `json:"api_number"`
	State     string `json:"state"`
	County    string `json:"county"`
	Unique    string `json:"unique"`
	Sidetrack string `json:"sidetrack,omitempty"`
}

// ParseAPINumber parses and validates an API well-number string.
// Format: {SS}-{CCC}-{UUUUU}[-{TT}]
func ParseAPINumber(api string) (*Well, error) {
	matches := apiRegex.FindStringSubmatch(api)
	if matches == nil {
		return nil, fmt.Errorf("%w: %s (expected SS-CCC-UUUUU[-TT])",
			ErrInvalidAPINumber, api)
	}

	return &Well{
		APINumber: api,
		State:     matches[1],
		County:    matches[2],
		Unique:    matches[3],
		Sidetrack: matches[4],
	}, nil
}

// TypeCurvePercentiles holds initial-rate percentiles from offset wells in
// the same formation, ascending recovery convention: P90 is the
// conservative case, P10 the optimistic one.
type TypeCurvePercentiles struct {
	P90 decimal.Decimal `json:"p90"` // conservative initial rate
	P50 decimal.Decimal `json:"p50"` // median initial rate
	P10 decimal.Decimal `json:"p10"` // optimistic initial rate
}

// DeriveProductionSigma derives the production-multiplier standard
// deviation for the risk simulation from the type-curve spread. The
// P10−P90 band of a normal distribution spans about 2.56 sigma; dividing
// the relative spread by that width recovers sigma around a mean of 1.
//
// Offsets with a wide band (immature plays, sparse control) produce a
// wider sampled distribution than tightly clustered development wells.
func DeriveProductionSigma(tc TypeCurvePercentiles, clipMin, clipMax float64) (montecarlo.Distribution, error) {
	if tc.P50.LessThanOrEqual(decimal.Zero) {
		return montecarlo.Distribution{}, fmt.Errorf("%w: median rate must be positive, got %s",
			ErrInvalidTypeCurve, tc.P50)
	}
	if tc.P10.LessThan(tc.P50) || tc.P50.LessThan(tc.P90) {
		return montecarlo.Distribution{}, fmt.Errorf("%w: want p90 ≤ p50 ≤ p10, got p90=%s p50=%s p10=%s",
			ErrInvalidTypeCurve, tc.P90, tc.P50, tc.P10)
	}

	// Relative spread → sigma. 2.5631 is the z-distance between the 10th
	// and 90th percentiles of a standard normal.
	spread := tc.P10.Sub(tc.P90).Div(tc.P50)
	sigma := spread.InexactFloat64() / 2.5631

	if clipMin <= 0 {
		clipMin = 0.4
	}
	if clipMax <= clipMin {
		clipMax = 1.8
	}
	return montecarlo.Distribution{
		StdDev:  sigma,
		ClipMin: clipMin,
		ClipMax: clipMax,
	}, nil
}
