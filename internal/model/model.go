// Package model defines the domain types shared across the forecast engine.
// Monetary amounts use shopspring/decimal, never float64 for money; rates,
// fractions, and production volumes stay float64 because they feed
// transcendental math.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProductionPeriod is one month of a production forecast. Periods are
// ordered by Index starting at 1; Cumulative is monotonically
// non-decreasing and NetRate never exceeds GrossRate.
type ProductionPeriod struct {
	Index      int     `json:"index" db:"index"`
	GrossRate  float64 `json:"gross_rate" db:"gross_rate"` // bbl/month before deductions
	NetRate    float64 `json:"net_rate" db:"net_rate"`     // after efficiency and interference
	Cumulative float64 `json:"cumulative" db:"cumulative"` // running sum of NetRate
}

// EUREstimate bundles the recovery estimates for a well. P90 is the
// conservative (low) case and P10 the optimistic one, so P90 <= P50 <= P10.
type EUREstimate struct {
	Technical float64 `json:"technical"` // infinite-time integral, upper bound
	Economic  float64 `json:"economic"`  // truncated at the economic limit
	Reservoir float64 `json:"reservoir"` // volumetric sanity bound
	P10       float64 `json:"p10"`
	P50       float64 `json:"p50"`
	P90       float64 `json:"p90"`
}

// CashFlowPeriod is one period of the after-tax cash-flow series.
// Period 0 carries the initial capital outlay: negative AfterTaxCashFlow,
// no revenue, no tax.
type CashFlowPeriod struct {
	Index            int             `json:"index" db:"index"`
	GrossRevenue     decimal.Decimal `json:"gross_revenue" db:"gross_revenue"`
	Royalty          decimal.Decimal `json:"royalty" db:"royalty"`
	Opex             decimal.Decimal `json:"opex" db:"opex"`
	PreTaxCashFlow   decimal.Decimal `json:"pre_tax_cash_flow" db:"pre_tax_cash_flow"`
	Tax              decimal.Decimal `json:"tax" db:"tax"`
	AfterTaxCashFlow decimal.Decimal `json:"after_tax_cash_flow" db:"after_tax_cash_flow"`
	PresentValue     decimal.Decimal `json:"present_value" db:"present_value"`
}

// ValuationResult holds discounted-cash-flow metrics for one cash-flow
// series. IRR is nil when the series has no sign change (no root exists);
// PaybackPeriod is nil when cumulative cash flow never turns non-negative.
type ValuationResult struct {
	NPV            decimal.Decimal `json:"npv"`
	IRR            *float64        `json:"irr,omitempty"`
	PaybackPeriod  *int            `json:"payback_period,omitempty"`
	BreakevenPrice decimal.Decimal `json:"breakeven_price"`
	Converged      bool            `json:"converged"`
	Warnings       []string        `json:"warnings"`
}

// OutcomeClass labels a Monte Carlo scenario.
type OutcomeClass string

const (
	OutcomeDryHole OutcomeClass = "dry_hole"
	OutcomeSuccess OutcomeClass = "success"
)

// RiskScenario is a single Monte Carlo draw. Scenarios are independent and
// order-irrelevant once collected.
type RiskScenario struct {
	SampledInputs map[string]float64 `json:"sampled_inputs"`
	OutcomeNPV    float64            `json:"outcome_npv"`
	OutcomeIRR    float64            `json:"outcome_irr"`
	OutcomeClass  OutcomeClass       `json:"outcome_class"`
}

// RiskRating categorizes a prospect's geological risk.
type RiskRating string

const (
	RiskLow      RiskRating = "low"
	RiskModerate RiskRating = "moderate"
	RiskHigh     RiskRating = "high"
)

// RiskTolerance expresses an operator's appetite when ranking prospects.
type RiskTolerance string

const (
	ToleranceConservative RiskTolerance = "conservative"
	ToleranceModerate     RiskTolerance = "moderate"
	ToleranceAggressive   RiskTolerance = "aggressive"
)

// Prospect is a scored drilling opportunity considered for the portfolio.
// CompositeScore is derived by the optimizer, never supplied by callers.
type Prospect struct {
	Name           string          `json:"name" db:"name"`
	Basin          string          `json:"basin,omitempty" db:"basin"`
	NPV            decimal.Decimal `json:"npv" db:"npv"`
	Capex          decimal.Decimal `json:"capex" db:"capex"`
	IRR            float64         `json:"irr" db:"irr"`
	RiskRating     RiskRating      `json:"risk_rating" db:"risk_rating"`
	GeoConfidence  float64         `json:"geo_confidence" db:"geo_confidence"` // [0,1]
	CompositeScore float64         `json:"composite_score" db:"composite_score"`
}

// Evaluation is an immutable record of one engine run, persisted by the
// store for audit and report generation. Once written it is never modified.
type Evaluation struct {
	ID        string          `json:"id" db:"id"`
	WellID    string          `json:"well_id" db:"well_id"`
	Operation string          `json:"operation" db:"operation"` // forecast | valuation | simulation | portfolio
	NPV       decimal.Decimal `json:"npv" db:"npv"`
	IRR       *float64        `json:"irr,omitempty" db:"irr"`
	Summary   []byte          `json:"summary" db:"summary"` // full result JSON
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}
