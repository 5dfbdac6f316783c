package portfolio

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/basinflow/forecast-engine/internal/model"
)

func prospect(name string, npv, capex float64, irr float64, rating model.RiskRating, conf float64) model.Prospect {
	return model.Prospect{
		Name:          name,
		Basin:         "permian",
		NPV:           d(npv),
		Capex:         d(capex),
		IRR:           irr,
		RiskRating:    rating,
		GeoConfidence: conf,
	}
}

func fiveProspects() []model.Prospect {
	return []model.Prospect{
		prospect("alpha", 8_000_000, 6_000_000, 0.35, model.RiskLow, 0.85),
		prospect("bravo", 5_000_000, 5_000_000, 0.28, model.RiskModerate, 0.70),
		prospect("charlie", 3_000_000, 4_000_000, 0.22, model.RiskModerate, 0.60),
		prospect("delta", 1_000_000, 7_000_000, 0.08, model.RiskHigh, 0.40), // below threshold
		prospect("echo", 500_000, 3_000_000, 0.05, model.RiskHigh, 0.30),    // below threshold
	}
}

func TestOptimize_BudgetScenario(t *testing.T) {
	sel, err := Optimize(fiveProspects(), d(20_000_000), 10, 0.15, model.ToleranceModerate, nil)
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}

	if sel.Considered != 3 {
		t.Fatalf("considered %d prospects, want 3 above the IRR threshold", sel.Considered)
	}
	if len(sel.Selected) == 0 {
		t.Fatal("nothing selected")
	}
	// Alpha dominates every score component, so it must come first.
	if sel.Selected[0].Name != "alpha" {
		t.Fatalf("first selection = %q, want alpha", sel.Selected[0].Name)
	}
	if sel.RemainingBudget.Sign() < 0 {
		t.Fatalf("remaining budget %s is negative", sel.RemainingBudget)
	}
	if !sel.TotalCapex.Add(sel.RemainingBudget).Equal(d(20_000_000)) {
		t.Fatalf("capex %s + remaining %s != budget", sel.TotalCapex, sel.RemainingBudget)
	}
}

func TestOptimize_Invariants(t *testing.T) {
	budget := d(12_000_000)
	const (
		maxWells = 2
		minIRR   = 0.15
	)
	sel, err := Optimize(fiveProspects(), budget, maxWells, minIRR, model.ToleranceConservative, nil)
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}

	if len(sel.Selected) > maxWells {
		t.Fatalf("selected %d wells, max %d", len(sel.Selected), maxWells)
	}
	total := decimal.Zero
	for _, p := range sel.Selected {
		if p.IRR < minIRR {
			t.Fatalf("selected %q with IRR %.2f below threshold", p.Name, p.IRR)
		}
		if p.CompositeScore <= 0 {
			t.Fatalf("selected %q without a composite score", p.Name)
		}
		total = total.Add(p.Capex)
	}
	if total.GreaterThan(budget) {
		t.Fatalf("total capex %s exceeds budget %s", total, budget)
	}
}

func TestOptimize_CapexTieBreak(t *testing.T) {
	// Identical prospects except capex and NPV scaled together, keeping
	// npv/capex and every other component equal.
	prospects := []model.Prospect{
		prospect("expensive", 10_000_000, 10_000_000, 0.30, model.RiskLow, 0.80),
		prospect("cheap", 4_000_000, 4_000_000, 0.30, model.RiskLow, 0.80),
	}
	sel, err := Optimize(prospects, d(20_000_000), 10, 0.10, model.ToleranceModerate, nil)
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if len(sel.Selected) != 2 {
		t.Fatalf("selected %d, want both", len(sel.Selected))
	}
	if sel.Selected[0].Name != "cheap" {
		t.Fatalf("tie broke toward %q, want the cheaper prospect", sel.Selected[0].Name)
	}
}

func TestOptimize_GreedySkipsOversized(t *testing.T) {
	prospects := []model.Prospect{
		prospect("huge", 30_000_000, 18_000_000, 0.50, model.RiskLow, 0.95),
		prospect("medium", 6_000_000, 6_000_000, 0.25, model.RiskModerate, 0.70),
		prospect("small", 2_000_000, 3_000_000, 0.20, model.RiskModerate, 0.60),
	}
	// Budget fits "huge" alone, or "medium"+"small". Greedy takes "huge"
	// first and still picks up whatever fits afterward.
	sel, err := Optimize(prospects, d(20_000_000), 10, 0.10, model.ToleranceModerate, nil)
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if sel.Selected[0].Name != "huge" {
		t.Fatalf("first selection = %q, want huge", sel.Selected[0].Name)
	}
	// 2M left after huge: medium (6M) is skipped, small (3M) does not fit
	// either. Single pass, never revisited.
	if len(sel.Selected) != 1 {
		names := make([]string, len(sel.Selected))
		for i, p := range sel.Selected {
			names[i] = p.Name
		}
		t.Fatalf("selected %v, want only huge", names)
	}
}

func TestOptimize_ToleranceChangesRanking(t *testing.T) {
	prospects := []model.Prospect{
		prospect("steady", 5_000_000, 5_000_000, 0.25, model.RiskLow, 0.80),
		prospect("wildcat", 5_000_000, 5_000_000, 0.25, model.RiskHigh, 0.80),
	}

	conservative, err := Optimize(prospects, d(5_000_000), 1, 0.10, model.ToleranceConservative, nil)
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if conservative.Selected[0].Name != "steady" {
		t.Fatalf("conservative pick = %q, want steady", conservative.Selected[0].Name)
	}

	// Aggressive appetite upweights the high-risk bet, but the low-risk
	// prospect's base risk score still dominates: 1.0×0.9 > 0.4×1.2.
	aggressive, err := Optimize(prospects, d(5_000_000), 1, 0.10, model.ToleranceAggressive, nil)
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if aggressive.Selected[0].Name != "steady" {
		t.Fatalf("aggressive pick = %q, want steady", aggressive.Selected[0].Name)
	}
	gap := func(s Selection) float64 { return s.Selected[0].CompositeScore }
	if gap(aggressive) >= gap(conservative) {
		t.Fatal("aggressive tolerance should not raise a low-risk prospect's score")
	}
}

func TestOptimize_BasinConcentration(t *testing.T) {
	prospects := []model.Prospect{
		prospect("p1", 8_000_000, 6_000_000, 0.35, model.RiskLow, 0.85),
		prospect("p2", 7_000_000, 6_000_000, 0.32, model.RiskLow, 0.80),
		prospect("p3", 6_000_000, 6_000_000, 0.30, model.RiskLow, 0.75),
	}
	prospects[2].Basin = "bakken"

	limiter := NewConcentrationLimiter(decimal.Zero, d(10_000_000))
	sel, err := Optimize(prospects, d(30_000_000), 10, 0.10, model.ToleranceModerate, limiter)
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}

	// Only one Permian prospect fits under the 10M basin cap; the Bakken
	// prospect is unaffected.
	names := make([]string, len(sel.Selected))
	for i, p := range sel.Selected {
		names[i] = p.Name
	}
	if len(sel.Selected) != 2 || sel.Selected[0].Name != "p1" || sel.Selected[1].Name != "p3" {
		t.Fatalf("selected %v, want [p1 p3]", names)
	}
}

func TestOptimize_Validation(t *testing.T) {
	valid := fiveProspects()
	cases := []struct {
		name      string
		prospects []model.Prospect
		budget    decimal.Decimal
		maxWells  int
		tolerance model.RiskTolerance
		want      error
	}{
		{"empty list", nil, d(1_000_000), 5, model.ToleranceModerate, ErrNoProspects},
		{"zero budget", valid, decimal.Zero, 5, model.ToleranceModerate, ErrInvalidInput},
		{"zero max wells", valid, d(1_000_000), 0, model.ToleranceModerate, ErrInvalidInput},
		{"unknown tolerance", valid, d(1_000_000), 5, model.RiskTolerance("reckless"), ErrInvalidInput},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Optimize(tc.prospects, tc.budget, tc.maxWells, 0.10, tc.tolerance, nil); !errors.Is(err, tc.want) {
				t.Fatalf("got err %v, want %v", err, tc.want)
			}
		})
	}

	bad := fiveProspects()
	bad[0].Capex = decimal.Zero
	if _, err := Optimize(bad, d(1_000_000), 5, 0.10, model.ToleranceModerate, nil); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("zero capex: got %v, want ErrInvalidInput", err)
	}

	bad = fiveProspects()
	bad[1].GeoConfidence = 1.5
	if _, err := Optimize(bad, d(1_000_000), 5, 0.10, model.ToleranceModerate, nil); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("confidence above 1: got %v, want ErrInvalidInput", err)
	}
}
