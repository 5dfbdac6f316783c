// Package valuation prices a cash-flow series: NPV, IRR, payback period
// and breakeven price. The IRR and breakeven searches are bracketed
// bisections; when no sign change exists the field stays nil instead of
// reporting a fabricated root.
package valuation

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/basinflow/forecast-engine/internal/cashflow"
	"github.com/basinflow/forecast-engine/internal/model"
)

var (
	// ErrNoCashFlows is returned when the series is empty.
	ErrNoCashFlows = errors.New("valuation: empty cash-flow series")

	// ErrInvalidInput is returned for out-of-range engine settings.
	ErrInvalidInput = errors.New("valuation: invalid input")
)

// Root-search bracket for the annual IRR.
const (
	irrLow  = -0.99
	irrHigh = 5.0
)

// Engine holds the numerical tolerances for the root searches. Build via
// NewEngine; the zero value is not usable.
type Engine struct {
	epsilon  float64 // NPV tolerance in dollars
	maxIters int
}

// NewEngine builds a valuation engine. epsilon ≤ 0 defaults to $1,
// maxIters ≤ 0 defaults to 100.
func NewEngine(epsilon float64, maxIters int) (*Engine, error) {
	if math.IsNaN(epsilon) || math.IsInf(epsilon, 0) {
		return nil, fmt.Errorf("%w: epsilon must be finite, got %g", ErrInvalidInput, epsilon)
	}
	if epsilon <= 0 {
		epsilon = 1.0
	}
	if maxIters <= 0 {
		maxIters = 100
	}
	return &Engine{epsilon: epsilon, maxIters: maxIters}, nil
}

// NPV sums the already-discounted present values of the series.
func (e *Engine) NPV(flows []model.CashFlowPeriod) (decimal.Decimal, error) {
	if len(flows) == 0 {
		return decimal.Zero, ErrNoCashFlows
	}
	total := decimal.Zero
	for _, f := range flows {
		total = total.Add(f.PresentValue)
	}
	return total, nil
}

// NPVAtRate discounts raw period flows at the given annual rate, monthly
// exponent. Rate 0 returns the plain undiscounted sum.
func NPVAtRate(raw []float64, rate float64) float64 {
	total := 0.0
	for i, cf := range raw {
		total += cf / math.Pow(1+rate, float64(i)/12)
	}
	return total
}

// IRR finds the annual rate at which the raw after-tax series discounts
// to zero. Returns (nil, true) when the series has no sign change or no
// bracket exists in the search range: a series without a root has no
// internal rate, and that is a converged answer, not a failure. The
// second return is false only when the iteration cap was hit and the
// returned value is the best bracket midpoint found.
func (e *Engine) IRR(raw []float64) (*float64, bool) {
	if !hasSignChange(raw) {
		return nil, true
	}
	lo, hi, ok := bracketRoot(func(r float64) float64 { return NPVAtRate(raw, r) }, irrLow, irrHigh)
	if !ok {
		return nil, true
	}
	root, converged := e.bisect(func(r float64) float64 { return NPVAtRate(raw, r) }, lo, hi)
	return &root, converged
}

// PaybackPeriod returns the first period index at which cumulative
// after-tax cash flow turns non-negative, or nil if it never does.
func PaybackPeriod(raw []float64) *int {
	cum := 0.0
	for i, cf := range raw {
		cum += cf
		if cum >= 0 {
			idx := i
			return &idx
		}
	}
	return nil
}

// BreakevenPrice finds the oil price at which the NPV of the rebuilt
// cash-flow series is zero. Returns (nil, false, err) when no root exists
// in (0, maxPrice].
func (e *Engine) BreakevenPrice(production []model.ProductionPeriod, costs cashflow.Costs, fin cashflow.Financial, maxPrice float64) (*float64, bool, error) {
	if maxPrice <= 0 {
		maxPrice = 500
	}
	npvAt := func(price float64) (float64, error) {
		flows, err := cashflow.BuildCashFlows(production, cashflow.Prices{OilPrice: price}, costs, fin)
		if err != nil {
			return 0, err
		}
		npv, err := e.NPV(flows)
		if err != nil {
			return 0, err
		}
		return npv.InexactFloat64(), nil
	}

	low, err := npvAt(0.01)
	if err != nil {
		return nil, false, err
	}
	high, err := npvAt(maxPrice)
	if err != nil {
		return nil, false, err
	}
	if sameSign(low, high) {
		return nil, true, nil
	}

	f := func(price float64) float64 {
		v, ferr := npvAt(price)
		if ferr != nil {
			return math.NaN()
		}
		return v
	}
	root, converged := e.bisect(f, 0.01, maxPrice)
	return &root, converged, nil
}

// Evaluate bundles the full valuation of a production series under the
// given assumptions.
func (e *Engine) Evaluate(production []model.ProductionPeriod, prices cashflow.Prices, costs cashflow.Costs, fin cashflow.Financial) (model.ValuationResult, error) {
	flows, err := cashflow.BuildCashFlows(production, prices, costs, fin)
	if err != nil {
		return model.ValuationResult{}, err
	}

	npv, err := e.NPV(flows)
	if err != nil {
		return model.ValuationResult{}, err
	}

	raw := cashflow.AfterTaxSeries(flows)
	res := model.ValuationResult{
		NPV:       npv,
		Converged: true,
	}

	irr, converged := e.IRR(raw)
	res.IRR = irr
	if irr == nil {
		res.Warnings = append(res.Warnings, "irr undefined: cash-flow series has no sign change")
	} else if !converged {
		res.Converged = false
		res.Warnings = append(res.Warnings, "irr search hit iteration cap; value is the best estimate found")
	}

	res.PaybackPeriod = PaybackPeriod(raw)
	if res.PaybackPeriod == nil {
		res.Warnings = append(res.Warnings, "capital is never recovered within the forecast horizon")
	}

	breakeven, beConverged, err := e.BreakevenPrice(production, costs, fin, 0)
	if err != nil {
		return model.ValuationResult{}, err
	}
	if breakeven != nil {
		res.BreakevenPrice = decimal.NewFromFloat(*breakeven).Round(2)
		if !beConverged {
			res.Converged = false
			res.Warnings = append(res.Warnings, "breakeven search hit iteration cap; value is the best estimate found")
		}
	} else {
		res.Warnings = append(res.Warnings, "breakeven price undefined within the searched price range")
	}

	return res, nil
}

// bisect narrows [lo, hi] until |f(mid)| < epsilon or the iteration cap
// is reached. The bracket must straddle a sign change.
func (e *Engine) bisect(f func(float64) float64, lo, hi float64) (root float64, converged bool) {
	flo := f(lo)
	mid := lo
	for i := 0; i < e.maxIters; i++ {
		mid = (lo + hi) / 2
		fm := f(mid)
		if math.Abs(fm) < e.epsilon {
			return mid, true
		}
		if sameSign(flo, fm) {
			lo, flo = mid, fm
		} else {
			hi = mid
		}
	}
	return mid, false
}

// bracketRoot walks a coarse grid over [lo, hi] and returns the first
// subinterval whose endpoints straddle a sign change of f.
func bracketRoot(f func(float64) float64, lo, hi float64) (float64, float64, bool) {
	const steps = 50
	step := (hi - lo) / steps
	prevX, prevY := lo, f(lo)
	for i := 1; i <= steps; i++ {
		x := lo + float64(i)*step
		y := f(x)
		if !sameSign(prevY, y) {
			return prevX, x, true
		}
		prevX, prevY = x, y
	}
	return 0, 0, false
}

func hasSignChange(raw []float64) bool {
	seenNeg, seenPos := false, false
	for _, v := range raw {
		if v < 0 {
			seenNeg = true
		} else if v > 0 {
			seenPos = true
		}
		if seenNeg && seenPos {
			return true
		}
	}
	return false
}

func sameSign(a, b float64) bool {
	return (a >= 0) == (b >= 0)
}
