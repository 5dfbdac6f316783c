// Package forecast turns a decline-curve model into a bounded monthly
// production series, applying the operational constraints a reserves
// engineer would: terminal-decline blending, a minimum-decline floor,
// surface efficiency, multi-well interference, and economic-limit
// truncation.
package forecast

import (
	"errors"
	"fmt"
	"math"

	"github.com/basinflow/forecast-engine/internal/decline"
	"github.com/basinflow/forecast-engine/internal/model"
)

var (
	// ErrUneconomic is returned when the well is below its economic limit
	// from the first month, so the forecast would be empty.
	ErrUneconomic = errors.New("forecast: initial rate at or below economic limit")

	// ErrInvalidConstraint is returned for constraint values outside their
	// allowed ranges.
	ErrInvalidConstraint = errors.New("forecast: invalid constraint")
)

// Truncation below the economic limit is suppressed for the first two
// years: early-time rates are noisy and operators do not abandon a well on
// a bad first winter.
const minMonthsBeforeTruncation = 24

// Interference between wells sharing a drainage area ramps in after the
// pressure transient reaches offset wells, roughly month 6.
const (
	interferenceStartMonth = 6
	interferencePerWell    = 0.03
	interferenceCap        = 0.15
)

// TerminalDecline blends the model onto an exponential tail once the
// hyperbolic flattens out, preventing unrealistically shallow long-term
// forecasts. After SwitchMonth the gross rate is the lesser of the model
// rate and an exponential anchored at the switch-point rate.
type TerminalDecline struct {
	SwitchMonth int     `json:"switch_month"`
	AnnualRate  float64 `json:"annual_rate"` // nominal annual decline of the tail, e.g. 0.06
}

// DeclineFloor clamps the rate to be no less than an exponential floor
// curve after ActivationMonth; operators in practice do not let decline
// flatten below a minimum annual rate.
type DeclineFloor struct {
	ActivationMonth int     `json:"activation_month"`
	AnnualRate      float64 `json:"annual_rate"` // nominal annual decline of the floor
}

// Constraints carries the optional operational adjustments for a forecast.
// The zero value applies none of them (efficiency defaults to 1.0, single
// well, no blending).
type Constraints struct {
	Terminal   *TerminalDecline `json:"terminal,omitempty"`
	Floor      *DeclineFloor    `json:"floor,omitempty"`
	Efficiency float64          `json:"efficiency,omitempty"` // (0,1], 0 means 1.0
	WellCount  int              `json:"well_count,omitempty"` // wells sharing the drainage area
}

func (c Constraints) validate() error {
	if c.Efficiency < 0 || c.Efficiency > 1 {
		return fmt.Errorf("%w: efficiency must be in (0,1], got %g", ErrInvalidConstraint, c.Efficiency)
	}
	if c.WellCount < 0 {
		return fmt.Errorf("%w: well count must be non-negative, got %d", ErrInvalidConstraint, c.WellCount)
	}
	if c.Terminal != nil && (c.Terminal.SwitchMonth < 0 || c.Terminal.AnnualRate <= 0) {
		return fmt.Errorf("%w: terminal decline requires switch month >= 0 and positive annual rate", ErrInvalidConstraint)
	}
	if c.Floor != nil && (c.Floor.ActivationMonth < 0 || c.Floor.AnnualRate <= 0) {
		return fmt.Errorf("%w: decline floor requires activation month >= 0 and positive annual rate", ErrInvalidConstraint)
	}
	return nil
}

// interferenceFactor returns the net-rate multiplier for wells sharing a
// drainage area: 1 − min(0.15, (wellCount−1)·0.03), active after month 6.
func (c Constraints) interferenceFactor(month int) float64 {
	if c.WellCount <= 1 || month <= interferenceStartMonth {
		return 1.0
	}
	loss := float64(c.WellCount-1) * interferencePerWell
	if loss > interferenceCap {
		loss = interferenceCap
	}
	return 1.0 - loss
}

// Forecast produces the monthly production series for the given model.
//
// The series runs t=1..horizonMonths; month t evaluates the model at
// offset t-1 so the first period carries the initial rate. Iteration
// truncates at the first month where the net rate falls to or below
// economicLimit, but only after 24 months have elapsed; it always stops at
// the horizon. The result is deterministic for the same inputs, so callers
// needing to re-walk the series simply call Forecast again.
func Forecast(params decline.Parameters, horizonMonths int, economicLimit float64, constraints Constraints) ([]model.ProductionPeriod, error) {
	if horizonMonths <= 0 {
		return nil, fmt.Errorf("%w: horizon must be positive, got %d", ErrInvalidConstraint, horizonMonths)
	}
	if economicLimit < 0 {
		return nil, fmt.Errorf("%w: economic limit must be non-negative, got %g", ErrInvalidConstraint, economicLimit)
	}
	if err := constraints.validate(); err != nil {
		return nil, err
	}
	if economicLimit >= params.Qi() {
		return nil, fmt.Errorf("%w: limit %g >= initial rate %g", ErrUneconomic, economicLimit, params.Qi())
	}

	efficiency := constraints.Efficiency
	if efficiency == 0 {
		efficiency = 1.0
	}

	// Anchor rates for the terminal tail and the floor curve, fixed at
	// their activation points.
	var terminalAnchor, floorAnchor float64
	if constraints.Terminal != nil {
		terminalAnchor = params.RateAt(float64(constraints.Terminal.SwitchMonth))
	}
	if constraints.Floor != nil {
		floorAnchor = params.RateAt(float64(constraints.Floor.ActivationMonth))
	}

	periods := make([]model.ProductionPeriod, 0, horizonMonths)
	cumulative := 0.0

	for t := 1; t <= horizonMonths; t++ {
		gross := params.RateAt(float64(t - 1))

		if term := constraints.Terminal; term != nil && t > term.SwitchMonth {
			tail := exponentialTail(terminalAnchor, term.AnnualRate, t-term.SwitchMonth)
			if tail < gross {
				gross = tail
			}
		}

		if fl := constraints.Floor; fl != nil && t > fl.ActivationMonth {
			floor := exponentialTail(floorAnchor, fl.AnnualRate, t-fl.ActivationMonth)
			if floor > gross {
				gross = floor
			}
		}

		net := gross * efficiency * constraints.interferenceFactor(t)

		if net <= economicLimit && t > minMonthsBeforeTruncation {
			break
		}

		cumulative += net
		periods = append(periods, model.ProductionPeriod{
			Index:      t,
			GrossRate:  gross,
			NetRate:    net,
			Cumulative: cumulative,
		})
	}

	if len(periods) == 0 {
		// Possible when constraints push every early rate under the limit.
		return nil, fmt.Errorf("%w: no economic production within horizon", ErrUneconomic)
	}
	return periods, nil
}

// exponentialTail evaluates anchor * e^(-annual/12 * monthsSince).
func exponentialTail(anchor, annualRate float64, monthsSince int) float64 {
	monthly := annualRate / 12
	return anchor * math.Exp(-monthly*float64(monthsSince))
}
