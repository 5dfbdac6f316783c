package portfolio

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrPerProspectLimitExceeded is returned when a single prospect's
	// capex exceeds the per-prospect maximum.
	ErrPerProspectLimitExceeded = errors.New("portfolio: per-prospect capex limit exceeded")

	// ErrBasinLimitExceeded is returned when accepting a prospect would
	// push aggregate capex in its basin beyond the concentration maximum.
	ErrBasinLimitExceeded = errors.New("portfolio: basin concentration limit exceeded")
)

// ConcentrationLimiter caps capital concentration. Prospects in the same
// basin share geological risk: a bad formation call hits all of them, so
// aggregate exposure per basin is limited alongside any single bet.
type ConcentrationLimiter struct {
	// MaxPerProspect is the maximum capex of any single accepted prospect.
	MaxPerProspect decimal.Decimal

	// MaxPerBasin is the maximum aggregate capex across accepted
	// prospects sharing a basin.
	MaxPerBasin decimal.Decimal
}

// NewConcentrationLimiter creates a limiter with the given per-prospect
// and per-basin caps.
func NewConcentrationLimiter(maxPerProspect, maxPerBasin decimal.Decimal) *ConcentrationLimiter {
	return &ConcentrationLimiter{
		MaxPerProspect: maxPerProspect,
		MaxPerBasin:    maxPerBasin,
	}
}

// Check validates whether accepting capex in the given basin respects the
// concentration caps, given the capex already accepted per basin. Returns
// nil when the acceptance is within limits.
func (l *ConcentrationLimiter) Check(basin string, capex decimal.Decimal, accepted map[string]decimal.Decimal) error {
	if l.MaxPerProspect.Sign() > 0 && capex.GreaterThan(l.MaxPerProspect) {
		return ErrPerProspectLimitExceeded
	}
	if l.MaxPerBasin.Sign() > 0 {
		if accepted[basin].Add(capex).GreaterThan(l.MaxPerBasin) {
			return ErrBasinLimitExceeded
		}
	}
	return nil
}
