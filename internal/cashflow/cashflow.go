// Package cashflow turns a production forecast into a monthly after-tax
// cash-flow series. Period 0 carries the capital outlay; every later
// period nets revenue against royalty, working interest, inflated
// operating cost and tax, then discounts to present value.
//
// Arithmetic runs in float64 and converts to decimal at the boundary.
// All monetary values in the output are decimal, rounded to cents.
package cashflow

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/basinflow/forecast-engine/internal/model"
)

var (
	// ErrInvalidInput is returned for out-of-range financial assumptions.
	ErrInvalidInput = errors.New("cashflow: invalid input")

	// ErrNoProduction is returned when the production series is empty.
	ErrNoProduction = errors.New("cashflow: empty production series")
)

// Prices is the commodity price deck applied to net production.
type Prices struct {
	OilPrice float64 `json:"oil_price" koanf:"oil_price"` // $/bbl
}

// Costs holds capital and operating cost assumptions.
type Costs struct {
	DrillingCost     float64 `json:"drilling_cost" koanf:"drilling_cost"`
	CompletionCost   float64 `json:"completion_cost" koanf:"completion_cost"`
	FixedMonthlyOpex float64 `json:"fixed_monthly_opex" koanf:"fixed_monthly_opex"`
	OpexPerBOE       float64 `json:"opex_per_boe" koanf:"opex_per_boe"`       // LOE, $/boe
	OpexInflation    float64 `json:"opex_inflation" koanf:"opex_inflation"`   // annual fraction
}

// Financial holds ownership and fiscal assumptions.
type Financial struct {
	RoyaltyRate     float64 `json:"royalty_rate" koanf:"royalty_rate"`
	WorkingInterest float64 `json:"working_interest" koanf:"working_interest"`
	TaxRate         float64 `json:"tax_rate" koanf:"tax_rate"`
	DiscountRate    float64 `json:"discount_rate" koanf:"discount_rate"` // annual
}

func (p Prices) validate() error {
	if p.OilPrice < 0 || !isFinite(p.OilPrice) {
		return fmt.Errorf("%w: oil price must be non-negative, got %g", ErrInvalidInput, p.OilPrice)
	}
	return nil
}

func (c Costs) validate() error {
	for _, v := range []struct {
		name string
		val  float64
	}{
		{"drilling cost", c.DrillingCost},
		{"completion cost", c.CompletionCost},
		{"fixed monthly opex", c.FixedMonthlyOpex},
		{"opex per boe", c.OpexPerBOE},
	} {
		if v.val < 0 || !isFinite(v.val) {
			return fmt.Errorf("%w: %s must be non-negative, got %g", ErrInvalidInput, v.name, v.val)
		}
	}
	if c.OpexInflation < 0 || c.OpexInflation > 1 {
		return fmt.Errorf("%w: opex inflation must be in [0,1], got %g", ErrInvalidInput, c.OpexInflation)
	}
	return nil
}

func (f Financial) validate() error {
	if f.RoyaltyRate < 0 || f.RoyaltyRate >= 1 {
		return fmt.Errorf("%w: royalty rate must be in [0,1), got %g", ErrInvalidInput, f.RoyaltyRate)
	}
	if f.WorkingInterest <= 0 || f.WorkingInterest > 1 {
		return fmt.Errorf("%w: working interest must be in (0,1], got %g", ErrInvalidInput, f.WorkingInterest)
	}
	if f.TaxRate < 0 || f.TaxRate >= 1 {
		return fmt.Errorf("%w: tax rate must be in [0,1), got %g", ErrInvalidInput, f.TaxRate)
	}
	if f.DiscountRate <= -1 || !isFinite(f.DiscountRate) {
		return fmt.Errorf("%w: discount rate must be > -1, got %g", ErrInvalidInput, f.DiscountRate)
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// BuildCashFlows converts a production series into cash-flow periods.
// Period 0 is the capital outlay with no revenue or tax; period indices
// then follow the production series. Discounting is monthly against the
// annual discount rate, (1+r)^(period/12).
func BuildCashFlows(production []model.ProductionPeriod, prices Prices, costs Costs, fin Financial) ([]model.CashFlowPeriod, error) {
	if len(production) == 0 {
		return nil, ErrNoProduction
	}
	if err := prices.validate(); err != nil {
		return nil, err
	}
	if err := costs.validate(); err != nil {
		return nil, err
	}
	if err := fin.validate(); err != nil {
		return nil, err
	}

	out := make([]model.CashFlowPeriod, 0, len(production)+1)

	capex := costs.DrillingCost + costs.CompletionCost
	outlay := money(-capex)
	out = append(out, model.CashFlowPeriod{
		Index:            0,
		GrossRevenue:     decimal.Zero,
		Royalty:          decimal.Zero,
		Opex:             decimal.Zero,
		PreTaxCashFlow:   outlay,
		Tax:              decimal.Zero,
		AfterTaxCashFlow: outlay,
		PresentValue:     outlay,
	})

	for _, p := range production {
		gross := p.NetRate * prices.OilPrice
		royalty := gross * fin.RoyaltyRate
		netRevenue := (gross - royalty) * fin.WorkingInterest

		elapsedYears := float64(p.Index-1) / 12
		inflation := math.Pow(1+costs.OpexInflation, elapsedYears)
		opex := (costs.FixedMonthlyOpex + costs.OpexPerBOE*p.NetRate) * inflation

		preTax := netRevenue - opex
		tax := 0.0
		if preTax > 0 {
			tax = preTax * fin.TaxRate
		}
		afterTax := preTax - tax
		pv := afterTax / math.Pow(1+fin.DiscountRate, float64(p.Index)/12)

		out = append(out, model.CashFlowPeriod{
			Index:            p.Index,
			GrossRevenue:     money(gross),
			Royalty:          money(royalty),
			Opex:             money(opex),
			PreTaxCashFlow:   money(preTax),
			Tax:              money(tax),
			AfterTaxCashFlow: money(afterTax),
			PresentValue:     money(pv),
		})
	}
	return out, nil
}

// AfterTaxSeries extracts the raw after-tax flows as float64, indexed by
// period, for root-finding callers.
func AfterTaxSeries(flows []model.CashFlowPeriod) []float64 {
	out := make([]float64, len(flows))
	for i, f := range flows {
		out[i] = f.AfterTaxCashFlow.InexactFloat64()
	}
	return out
}

func money(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(2)
}
