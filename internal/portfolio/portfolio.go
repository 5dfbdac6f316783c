// Package portfolio ranks drilling prospects by composite score and fills
// a capital budget with a single greedy pass. The pass is deliberately not
// knapsack-optimal: prospects that do not fit the remaining budget are
// skipped, never revisited.
package portfolio

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/basinflow/forecast-engine/internal/model"
)

var (
	// ErrNoProspects is returned when the candidate list is empty.
	ErrNoProspects = errors.New("portfolio: empty prospect list")

	// ErrInvalidInput is returned for out-of-range optimizer inputs.
	ErrInvalidInput = errors.New("portfolio: invalid input")
)

// riskScores maps a prospect's rating to its score contribution.
var riskScores = map[model.RiskRating]float64{
	model.RiskLow:      1.0,
	model.RiskModerate: 0.7,
	model.RiskHigh:     0.4,
}

// toleranceMultipliers weights the risk score by operator appetite:
// conservative selection punishes high-risk prospects, aggressive
// selection rewards them.
var toleranceMultipliers = map[model.RiskTolerance]map[model.RiskRating]float64{
	model.ToleranceConservative: {
		model.RiskLow:      1.2,
		model.RiskModerate: 0.8,
		model.RiskHigh:     0.4,
	},
	model.ToleranceModerate: {
		model.RiskLow:      1.0,
		model.RiskModerate: 1.0,
		model.RiskHigh:     0.8,
	},
	model.ToleranceAggressive: {
		model.RiskLow:      0.9,
		model.RiskModerate: 1.1,
		model.RiskHigh:     1.2,
	},
}

// Selection is the optimizer output. Selected prospects carry their
// computed composite scores, in acceptance order.
type Selection struct {
	Selected        []model.Prospect `json:"selected"`
	RemainingBudget decimal.Decimal  `json:"remaining_budget"`
	TotalCapex      decimal.Decimal  `json:"total_capex"`
	Considered      int              `json:"considered"` // prospects passing the IRR filter
}

// Optimize filters prospects below minIRR, scores and ranks the rest, and
// greedily accepts them while budget and well-count room remains. limiter
// may be nil to disable basin concentration checks.
func Optimize(prospects []model.Prospect, budget decimal.Decimal, maxWells int, minIRR float64, tolerance model.RiskTolerance, limiter *ConcentrationLimiter) (Selection, error) {
	if len(prospects) == 0 {
		return Selection{}, ErrNoProspects
	}
	if budget.Sign() <= 0 {
		return Selection{}, fmt.Errorf("%w: budget must be positive, got %s", ErrInvalidInput, budget)
	}
	if maxWells <= 0 {
		return Selection{}, fmt.Errorf("%w: max wells must be positive, got %d", ErrInvalidInput, maxWells)
	}
	tolTable, ok := toleranceMultipliers[tolerance]
	if !ok {
		return Selection{}, fmt.Errorf("%w: unknown risk tolerance %q", ErrInvalidInput, tolerance)
	}
	for _, p := range prospects {
		if p.Capex.Sign() <= 0 {
			return Selection{}, fmt.Errorf("%w: prospect %q capex must be positive, got %s", ErrInvalidInput, p.Name, p.Capex)
		}
		if _, ok := riskScores[p.RiskRating]; !ok {
			return Selection{}, fmt.Errorf("%w: prospect %q has unknown risk rating %q", ErrInvalidInput, p.Name, p.RiskRating)
		}
		if p.GeoConfidence < 0 || p.GeoConfidence > 1 {
			return Selection{}, fmt.Errorf("%w: prospect %q geo confidence must be in [0,1], got %g", ErrInvalidInput, p.Name, p.GeoConfidence)
		}
	}

	ranked := make([]model.Prospect, 0, len(prospects))
	for _, p := range prospects {
		if p.IRR < minIRR {
			continue
		}
		p.CompositeScore = compositeScore(p, tolTable)
		ranked = append(ranked, p)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].CompositeScore != ranked[j].CompositeScore {
			return ranked[i].CompositeScore > ranked[j].CompositeScore
		}
		// Equal quality: prefer the cheaper prospect.
		return ranked[i].Capex.LessThan(ranked[j].Capex)
	})

	sel := Selection{
		RemainingBudget: budget,
		TotalCapex:      decimal.Zero,
		Considered:      len(ranked),
	}
	basinExposure := map[string]decimal.Decimal{}
	for _, p := range ranked {
		if len(sel.Selected) >= maxWells {
			break
		}
		if p.Capex.GreaterThan(sel.RemainingBudget) {
			continue
		}
		if limiter != nil {
			if err := limiter.Check(p.Basin, p.Capex, basinExposure); err != nil {
				continue
			}
		}
		sel.Selected = append(sel.Selected, p)
		sel.RemainingBudget = sel.RemainingBudget.Sub(p.Capex)
		sel.TotalCapex = sel.TotalCapex.Add(p.Capex)
		basinExposure[p.Basin] = basinExposure[p.Basin].Add(p.Capex)
	}
	return sel, nil
}

// compositeScore blends return, capital efficiency, risk appetite and
// geological confidence into a single ranking value.
func compositeScore(p model.Prospect, tolTable map[model.RiskRating]float64) float64 {
	npvPerCapex := p.NPV.Div(p.Capex).InexactFloat64()
	risk := riskScores[p.RiskRating] * tolTable[p.RiskRating]
	return (p.IRR*2 + npvPerCapex + risk + p.GeoConfidence) / 5
}
