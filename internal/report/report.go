// Package report renders engine results into executive markdown summaries.
// The output is decision-ready: headline metrics first, detail tables after.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/basinflow/forecast-engine/internal/model"
	"github.com/basinflow/forecast-engine/internal/montecarlo"
	"github.com/basinflow/forecast-engine/internal/portfolio"
)

// Valuation renders a single-well valuation summary.
func Valuation(wellID string, v model.ValuationResult, generated time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Well Valuation — %s\n\n", wellID)
	fmt.Fprintf(&b, "Generated: %s\n\n", generated.UTC().Format(time.RFC3339))

	b.WriteString("## Summary\n\n")
	b.WriteString("| Metric | Value |\n|--------|-------|\n")
	fmt.Fprintf(&b, "| NPV | %s |\n", dollars(v.NPV))
	if v.IRR != nil {
		fmt.Fprintf(&b, "| IRR | %.1f%% |\n", *v.IRR*100)
	} else {
		b.WriteString("| IRR | undefined |\n")
	}
	if v.PaybackPeriod != nil {
		fmt.Fprintf(&b, "| Payback | %d months |\n", *v.PaybackPeriod)
	} else {
		b.WriteString("| Payback | never |\n")
	}
	if v.BreakevenPrice.IsZero() {
		b.WriteString("| Breakeven price | undefined |\n")
	} else {
		fmt.Fprintf(&b, "| Breakeven price | $%s/bbl |\n", v.BreakevenPrice.StringFixed(2))
	}

	if len(v.Warnings) > 0 {
		b.WriteString("\n## Warnings\n\n")
		for _, warning := range v.Warnings {
			fmt.Fprintf(&b, "- %s\n", warning)
		}
	}

	b.WriteString("\n" + recommendation(v) + "\n")
	return b.String()
}

// Simulation renders a Monte Carlo risk summary.
func Simulation(wellID string, res montecarlo.Result, generated time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Risk Simulation — %s\n\n", wellID)
	fmt.Fprintf(&b, "Generated: %s\n\n", generated.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "Iterations: %d", res.Iterations)
	if res.Partial {
		b.WriteString(" (partial run, cancelled before completion)")
	}
	b.WriteString("\n\n## NPV Distribution\n\n")
	b.WriteString("| Case | NPV |\n|------|-----|\n")
	fmt.Fprintf(&b, "| P10 (optimistic) | %s |\n", dollarsFloat(res.NPV.P10))
	fmt.Fprintf(&b, "| P50 (median) | %s |\n", dollarsFloat(res.NPV.P50))
	fmt.Fprintf(&b, "| P90 (conservative) | %s |\n", dollarsFloat(res.NPV.P90))
	fmt.Fprintf(&b, "| Mean | %s |\n", dollarsFloat(res.NPV.Mean))

	b.WriteString("\n## Outcomes\n\n")
	fmt.Fprintf(&b, "- Probability of positive NPV: %.1f%%\n", res.SuccessProbability*100)
	fmt.Fprintf(&b, "- Dry holes: %d of %d (%.1f%%)\n",
		res.DryHoleCount, res.Iterations,
		pct(res.DryHoleCount, res.Iterations))

	return b.String()
}

// Portfolio renders a capital-allocation summary.
func Portfolio(sel portfolio.Selection, budget decimal.Decimal, generated time.Time) string {
	var b strings.Builder

	b.WriteString("# Portfolio Selection\n\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", generated.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "Considered %d prospects, selected %d.\n\n", sel.Considered, len(sel.Selected))

	b.WriteString("## Selected Prospects\n\n")
	b.WriteString("| Rank | Prospect | Basin | Capex | NPV | IRR | Score |\n")
	b.WriteString("|------|----------|-------|-------|-----|-----|-------|\n")
	for i, p := range sel.Selected {
		fmt.Fprintf(&b, "| %d | %s | %s | %s | %s | %.1f%% | %.3f |\n",
			i+1, p.Name, p.Basin, dollars(p.Capex), dollars(p.NPV),
			p.IRR*100, p.CompositeScore)
	}

	b.WriteString("\n## Capital\n\n")
	fmt.Fprintf(&b, "- Budget: %s\n", dollars(budget))
	fmt.Fprintf(&b, "- Deployed: %s\n", dollars(sel.TotalCapex))
	fmt.Fprintf(&b, "- Remaining: %s\n", dollars(sel.RemainingBudget))

	return b.String()
}

func recommendation(v model.ValuationResult) string {
	if v.NPV.Sign() <= 0 {
		return "**Recommendation:** do not drill at current assumptions."
	}
	if v.IRR == nil {
		return "**Recommendation:** positive NPV but IRR is undefined; review the cash-flow profile before committing."
	}
	if *v.IRR >= 0.25 {
		return "**Recommendation:** proceed; returns clear a 25% hurdle rate."
	}
	return "**Recommendation:** marginal; proceed only if portfolio capacity allows."
}

// dollars formats a decimal dollar amount with thousands separators.
func dollars(d decimal.Decimal) string {
	neg := d.Sign() < 0
	s := d.Abs().Round(0).String()
	var parts []string
	for len(s) > 3 {
		parts = append([]string{s[len(s)-3:]}, parts...)
		s = s[:len(s)-3]
	}
	parts = append([]string{s}, parts...)
	out := "$" + strings.Join(parts, ",")
	if neg {
		return "-" + out
	}
	return out
}

func dollarsFloat(f float64) string {
	return dollars(decimal.NewFromFloat(f))
}

func pct(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}
