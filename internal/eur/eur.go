// Package eur computes estimated-ultimate-recovery figures for a well:
// the technical (closed-form) recovery, the economically truncated
// recovery, a volumetric reservoir bound, and probabilistic confidence
// bands.
//
// The economic EUR deliberately mirrors the forecaster's discrete monthly
// walk so the two agree exactly when driven by the same parameters.
package eur

import (
	"errors"
	"fmt"

	"github.com/basinflow/forecast-engine/internal/decline"
	"github.com/basinflow/forecast-engine/internal/model"
)

var (
	// ErrUnknownFormation is returned when no volumetric parameters exist
	// for the requested formation.
	ErrUnknownFormation = errors.New("eur: unknown formation")

	// ErrInvalidInput is returned for out-of-range calculator inputs.
	ErrInvalidInput = errors.New("eur: invalid input")
)

// Formation holds the volumetric parameters used for the reservoir EUR
// sanity bound: original oil in place per acre and the fraction of it a
// well can actually recover.
type Formation struct {
	OOIPPerAcre    float64 `json:"ooip_per_acre" koanf:"ooip_per_acre"`       // bbl/acre
	RecoveryFactor float64 `json:"recovery_factor" koanf:"recovery_factor"`   // (0,1)
}

// DefaultFormations covers the demo plays shipped with the engine. Values
// are representative Permian-basin figures, overridable via configuration.
var DefaultFormations = map[string]Formation{
	"wolfcamp_a":  {OOIPPerAcre: 48_000, RecoveryFactor: 0.07},
	"wolfcamp_b":  {OOIPPerAcre: 52_000, RecoveryFactor: 0.06},
	"spraberry":   {OOIPPerAcre: 38_000, RecoveryFactor: 0.08},
	"bone_spring": {OOIPPerAcre: 44_000, RecoveryFactor: 0.07},
}

// BandMultipliers scale the economic EUR into P10/P90 confidence bands.
// They are configuration, not constants; upside and downside factors
// differ by play maturity.
type BandMultipliers struct {
	P10 float64 `json:"p10" koanf:"p10"` // optimistic upside, > 1
	P90 float64 `json:"p90" koanf:"p90"` // conservative downside, < 1
}

// DefaultBands matches the engine's stock assumptions: +35% upside, −25%
// downside around the economic case.
var DefaultBands = BandMultipliers{P10: 1.35, P90: 0.75}

// Calculator computes EUR estimates. The zero value is not usable; build
// via NewCalculator.
type Calculator struct {
	formations map[string]Formation
	bands      BandMultipliers
}

// NewCalculator builds a calculator with the given formation table and
// band multipliers. Nil formations fall back to DefaultFormations; a zero
// BandMultipliers falls back to DefaultBands.
func NewCalculator(formations map[string]Formation, bands BandMultipliers) (*Calculator, error) {
	if formations == nil {
		formations = DefaultFormations
	}
	if bands == (BandMultipliers{}) {
		bands = DefaultBands
	}
	if bands.P10 < 1 {
		return nil, fmt.Errorf("%w: p10 multiplier must be >= 1, got %g", ErrInvalidInput, bands.P10)
	}
	if bands.P90 <= 0 || bands.P90 > 1 {
		return nil, fmt.Errorf("%w: p90 multiplier must be in (0,1], got %g", ErrInvalidInput, bands.P90)
	}
	return &Calculator{formations: formations, bands: bands}, nil
}

// TechnicalEUR is the infinite-time integral of the decline curve, an
// upper bound never reduced by economic truncation.
func (c *Calculator) TechnicalEUR(params decline.Parameters) float64 {
	return params.TechnicalEUR()
}

// EconomicEUR sums monthly rates until the rate falls to or below limit or
// maxMonths is reached. The walk matches the forecaster's unconstrained
// series month for month, which is what makes the terminal cumulative of a
// plain forecast equal this value.
//
// Because the sum takes the rate at the start of each month (a left
// Riemann sum of a decreasing curve), it slightly overstates the
// continuous-time integral; for very shallow declines cut off near zero
// the result can exceed TechnicalEUR by a fraction of a percent. No
// clamping is applied: consistency with the forecast series takes
// precedence over the closed-form bound.
func (c *Calculator) EconomicEUR(params decline.Parameters, limit float64, maxMonths int) (float64, error) {
	if limit < 0 {
		return 0, fmt.Errorf("%w: economic limit must be non-negative, got %g", ErrInvalidInput, limit)
	}
	if maxMonths <= 0 {
		return 0, fmt.Errorf("%w: max months must be positive, got %d", ErrInvalidInput, maxMonths)
	}

	total := 0.0
	for t := 1; t <= maxMonths; t++ {
		rate := params.RateAt(float64(t - 1))
		if rate <= limit && t > 24 {
			break
		}
		total += rate
	}
	return total, nil
}

// ReservoirEUR is the volumetric bound: drainage acres × OOIP/acre ×
// recovery factor for the named formation. Independent of the decline fit.
func (c *Calculator) ReservoirEUR(drainageAcres float64, formation string) (float64, error) {
	if drainageAcres <= 0 {
		return 0, fmt.Errorf("%w: drainage area must be positive, got %g", ErrInvalidInput, drainageAcres)
	}
	f, ok := c.formations[formation]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownFormation, formation)
	}
	return drainageAcres * f.OOIPPerAcre * f.RecoveryFactor, nil
}

// ProbabilisticEUR applies the configured band multipliers to the economic
// EUR: P50 is the economic case itself, P10 the upside, P90 the downside.
func (c *Calculator) ProbabilisticEUR(economicEUR float64) (p10, p50, p90 float64) {
	return economicEUR * c.bands.P10, economicEUR, economicEUR * c.bands.P90
}

// Estimate computes the full EUR bundle for a well.
func (c *Calculator) Estimate(params decline.Parameters, limit float64, maxMonths int, drainageAcres float64, formation string) (model.EUREstimate, error) {
	economic, err := c.EconomicEUR(params, limit, maxMonths)
	if err != nil {
		return model.EUREstimate{}, err
	}
	reservoir, err := c.ReservoirEUR(drainageAcres, formation)
	if err != nil {
		return model.EUREstimate{}, err
	}
	p10, p50, p90 := c.ProbabilisticEUR(economic)

	return model.EUREstimate{
		Technical: c.TechnicalEUR(params),
		Economic:  economic,
		Reservoir: reservoir,
		P10:       p10,
		P50:       p50,
		P90:       p90,
	}, nil
}
