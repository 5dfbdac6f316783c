// Package decline implements Arps decline-curve models for single-well
// production forecasting.
//
// Three classical forms are supported:
//   - exponential: rate(t) = qi * e^(-di*t)
//   - harmonic:    rate(t) = qi / (1 + di*t)
//   - hyperbolic:  rate(t) = qi / (1 + b*di*t)^(1/b)
//
// The hyperbolic form degenerates continuously to exponential at b=0 and to
// harmonic at b=1; RateAt handles both boundaries explicitly so callers may
// sweep b across [0,2] without discontinuities.
//
// Time is measured in months from first production; di is a nominal monthly
// decline fraction. Rates are float64 throughout: production volumes are
// engineering quantities, not money.
//
// Reference: Arps, J.J. (1945) "Analysis of Decline Curves"
package decline

import (
	"errors"
	"fmt"
	"math"
)

// CurveType identifies the decline-curve family.
type CurveType string

const (
	Exponential CurveType = "exponential"
	Harmonic    CurveType = "harmonic"
	Hyperbolic  CurveType = "hyperbolic"
)

var (
	// ErrInvalidParameter is returned when decline parameters fall outside
	// their physical ranges (qi<=0, di<=0, or b outside [0,2]).
	ErrInvalidParameter = errors.New("decline: invalid curve parameter")
)

// epsB is the threshold below which the hyperbolic exponent is treated as
// exponential. (1 + b*di*t)^(1/b) loses precision long before b reaches
// machine epsilon, so the switch happens at a coarser cutoff.
const epsB = 1e-9

// Parameters holds validated Arps decline parameters. Immutable once
// constructed; build via NewParameters.
type Parameters struct {
	qi    float64
	di    float64
	b     float64
	curve CurveType
}

// NewParameters validates and constructs decline-curve parameters.
//
//	qi: initial rate, must be > 0 (bbl/day or mcf/day, unit-agnostic)
//	di: nominal monthly decline, must be > 0
//	b:  Arps exponent, must be in [0,2]; ignored for exponential/harmonic
func NewParameters(qi, di, b float64, curve CurveType) (Parameters, error) {
	if qi <= 0 || math.IsNaN(qi) || math.IsInf(qi, 0) {
		return Parameters{}, fmt.Errorf("%w: qi must be positive, got %g", ErrInvalidParameter, qi)
	}
	if di <= 0 || math.IsNaN(di) || math.IsInf(di, 0) {
		return Parameters{}, fmt.Errorf("%w: di must be positive, got %g", ErrInvalidParameter, di)
	}
	if b < 0 || b > 2 || math.IsNaN(b) {
		return Parameters{}, fmt.Errorf("%w: b must be in [0,2], got %g", ErrInvalidParameter, b)
	}
	switch curve {
	case Exponential, Harmonic, Hyperbolic:
	default:
		return Parameters{}, fmt.Errorf("%w: unknown curve type %q", ErrInvalidParameter, curve)
	}
	return Parameters{qi: qi, di: di, b: b, curve: curve}, nil
}

// Qi returns the initial rate.
func (p Parameters) Qi() float64 { return p.qi }

// Di returns the nominal monthly decline fraction.
func (p Parameters) Di() float64 { return p.di }

// B returns the Arps exponent.
func (p Parameters) B() float64 { return p.b }

// Curve returns the decline-curve family.
func (p Parameters) Curve() CurveType { return p.curve }

// RateAt evaluates the decline curve at t months after first production.
// t=0 returns qi exactly for every curve family. Negative t is clamped to 0.
func (p Parameters) RateAt(t float64) float64 {
	if t <= 0 {
		return p.qi
	}

	switch p.curve {
	case Exponential:
		return p.qi * math.Exp(-p.di*t)
	case Harmonic:
		return p.qi / (1 + p.di*t)
	default:
		return p.hyperbolicRate(t)
	}
}

// hyperbolicRate evaluates qi / (1 + b*di*t)^(1/b) with explicit handling
// of the degenerate boundaries.
func (p Parameters) hyperbolicRate(t float64) float64 {
	if p.b < epsB {
		// lim b->0 of (1 + b*di*t)^(-1/b) = e^(-di*t)
		return p.qi * math.Exp(-p.di*t)
	}
	if p.b == 1 {
		return p.qi / (1 + p.di*t)
	}
	return p.qi / math.Pow(1+p.b*p.di*t, 1/p.b)
}

// CumulativeTo integrates the decline curve from 0 to t months (closed form).
// Used by the EUR calculator for technical recovery; the forecaster sums
// discrete monthly rates instead, so the two agree only in the limit.
func (p Parameters) CumulativeTo(t float64) float64 {
	if t <= 0 {
		return 0
	}

	switch p.curve {
	case Exponential:
		return p.qi / p.di * (1 - math.Exp(-p.di*t))
	case Harmonic:
		return p.qi / p.di * math.Log(1+p.di*t)
	default:
		return p.hyperbolicCumulative(t)
	}
}

func (p Parameters) hyperbolicCumulative(t float64) float64 {
	if p.b < epsB {
		return p.qi / p.di * (1 - math.Exp(-p.di*t))
	}
	if p.b == 1 {
		return p.qi / p.di * math.Log(1+p.di*t)
	}
	// ∫ qi (1+b·di·τ)^(-1/b) dτ = qi / (di(1-b)) · (1 - (1+b·di·t)^(1-1/b))
	return p.qi / (p.di * (1 - p.b)) * (1 - math.Pow(1+p.b*p.di*t, 1-1/p.b))
}

// TechnicalEUR returns the infinite-time integral of the decline curve:
// the technical estimated ultimate recovery, an upper bound never reduced
// by economic truncation.
//
// Harmonic and hyperbolic curves with b>=1 diverge as t→∞; for those the
// integral is evaluated at a far horizon (50 years) rather than reported
// as +Inf, matching reserve-booking practice of capping well life.
func (p Parameters) TechnicalEUR() float64 {
	const farHorizonMonths = 600 // 50 years

	switch p.curve {
	case Exponential:
		return p.qi / p.di
	case Harmonic:
		return p.CumulativeTo(farHorizonMonths)
	default:
		if p.b < epsB {
			return p.qi / p.di
		}
		if p.b >= 1 {
			return p.CumulativeTo(farHorizonMonths)
		}
		// Convergent for b in (0,1): qi / (di(1-b))
		return p.qi / (p.di * (1 - p.b))
	}
}
