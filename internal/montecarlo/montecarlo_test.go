package montecarlo

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/basinflow/forecast-engine/internal/model"
)

func baseCase() BaseCase {
	return BaseCase{NPV: 2_500_000, IRR: 0.25, Capex: 5_000_000, DryHoleProbability: 0.15}
}

func TestSimulate_Deterministic(t *testing.T) {
	e := NewEngine(0)
	ctx := context.Background()

	a, err := e.Simulate(ctx, baseCase(), DefaultDistributions(), 2000, 42, nil)
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	b, err := e.Simulate(ctx, baseCase(), DefaultDistributions(), 2000, 42, nil)
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}

	if len(a.Scenarios) != len(b.Scenarios) {
		t.Fatalf("scenario counts differ: %d vs %d", len(a.Scenarios), len(b.Scenarios))
	}
	for i := range a.Scenarios {
		if a.Scenarios[i].OutcomeNPV != b.Scenarios[i].OutcomeNPV ||
			a.Scenarios[i].OutcomeIRR != b.Scenarios[i].OutcomeIRR ||
			a.Scenarios[i].OutcomeClass != b.Scenarios[i].OutcomeClass {
			t.Fatalf("scenario %d differs between identical-seed runs", i)
		}
	}

	c, err := e.Simulate(ctx, baseCase(), DefaultDistributions(), 2000, 43, nil)
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	same := true
	for i := range a.Scenarios {
		if a.Scenarios[i].OutcomeNPV != c.Scenarios[i].OutcomeNPV {
			same = false
			break
		}
	}
	if same {
		t.Fatal("different seeds produced identical scenario sets")
	}
}

func TestSimulate_PercentileOrdering(t *testing.T) {
	e := NewEngine(0)
	res, err := e.Simulate(context.Background(), baseCase(), DefaultDistributions(), 5000, 7, nil)
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	// P90 is the conservative case, P10 the optimistic one.
	if !(res.NPV.P90 <= res.NPV.P50 && res.NPV.P50 <= res.NPV.P10) {
		t.Fatalf("NPV band ordering violated: p90=%.0f p50=%.0f p10=%.0f", res.NPV.P90, res.NPV.P50, res.NPV.P10)
	}
	if !(res.IRR.P90 <= res.IRR.P50 && res.IRR.P50 <= res.IRR.P10) {
		t.Fatalf("IRR band ordering violated: %+v", res.IRR)
	}
	if res.SuccessProbability < 0 || res.SuccessProbability > 1 {
		t.Fatalf("success probability %.3f outside [0,1]", res.SuccessProbability)
	}
	if res.Partial {
		t.Fatal("uncancelled run marked partial")
	}
}

func TestSimulate_DryHoleFrequency(t *testing.T) {
	e := NewEngine(0)
	res, err := e.Simulate(context.Background(), baseCase(), DefaultDistributions(), 1000, 42, nil)
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	// Binomial(1000, 0.15): mean 150, sd ≈ 11.3. Five sigma keeps the
	// fixed-seed check far from flaking.
	if res.DryHoleCount < 94 || res.DryHoleCount > 206 {
		t.Fatalf("dry-hole count %d, want near 150", res.DryHoleCount)
	}
	for _, s := range res.Scenarios {
		if s.OutcomeClass != model.OutcomeDryHole {
			continue
		}
		if s.OutcomeNPV != -5_000_000 || s.OutcomeIRR != -1.0 {
			t.Fatalf("dry hole outcome = (%.0f, %.2f), want (-5000000, -1)", s.OutcomeNPV, s.OutcomeIRR)
		}
	}
}

func TestSimulate_MultipliersClipped(t *testing.T) {
	e := NewEngine(0)
	dists := DefaultDistributions()
	res, err := e.Simulate(context.Background(), baseCase(), dists, 3000, 11, nil)
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	for i, s := range res.Scenarios {
		if s.OutcomeClass == model.OutcomeDryHole {
			continue
		}
		checks := []struct {
			key  string
			dist Distribution
		}{
			{"production", dists.Production},
			{"price", dists.Price},
			{"cost", dists.Cost},
		}
		for _, c := range checks {
			v := s.SampledInputs[c.key]
			if v < c.dist.ClipMin || v > c.dist.ClipMax {
				t.Fatalf("scenario %d %s multiplier %.4f outside [%g, %g]", i, c.key, v, c.dist.ClipMin, c.dist.ClipMax)
			}
		}
	}
}

func TestSimulate_CancellationYieldsPartial(t *testing.T) {
	e := NewEngine(100)
	ctx, cancel := context.WithCancel(context.Background())

	res, err := e.Simulate(ctx, baseCase(), DefaultDistributions(), 10_000, 42, func(done, total int) {
		if done >= 300 {
			cancel()
		}
	})
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	if !res.Partial {
		t.Fatal("cancelled run not marked partial")
	}
	if res.Iterations == 0 || res.Iterations >= 10_000 {
		t.Fatalf("partial run completed %d iterations, want a strict subset", res.Iterations)
	}
	if res.Iterations%100 != 0 {
		t.Fatalf("cancellation interrupted a chunk: %d iterations", res.Iterations)
	}
	// Partial percentiles are still computed over what was collected.
	if !(res.NPV.P90 <= res.NPV.P50 && res.NPV.P50 <= res.NPV.P10) {
		t.Fatalf("partial NPV band ordering violated: %+v", res.NPV)
	}
}

func TestSimulateParallel_DeterministicAcrossWorkerCounts(t *testing.T) {
	e := NewEngine(250)
	ctx := context.Background()

	one, err := e.SimulateParallel(ctx, baseCase(), DefaultDistributions(), 2000, 42, 1)
	if err != nil {
		t.Fatalf("SimulateParallel: %v", err)
	}
	eight, err := e.SimulateParallel(ctx, baseCase(), DefaultDistributions(), 2000, 42, 8)
	if err != nil {
		t.Fatalf("SimulateParallel: %v", err)
	}

	if len(one.Scenarios) != len(eight.Scenarios) {
		t.Fatalf("scenario counts differ: %d vs %d", len(one.Scenarios), len(eight.Scenarios))
	}
	for i := range one.Scenarios {
		if one.Scenarios[i].OutcomeNPV != eight.Scenarios[i].OutcomeNPV {
			t.Fatalf("scenario %d differs between worker counts", i)
		}
	}
	if one.NPV != eight.NPV || one.IRR != eight.IRR {
		t.Fatalf("statistics differ between worker counts: %+v vs %+v", one.NPV, eight.NPV)
	}
}

func TestSimulate_Validation(t *testing.T) {
	e := NewEngine(0)
	ctx := context.Background()
	dists := DefaultDistributions()

	cases := []struct {
		name string
		base BaseCase
		dist Distributions
		n    int
	}{
		{"zero iterations", baseCase(), dists, 0},
		{"probability above one", BaseCase{NPV: 1, DryHoleProbability: 1.5}, dists, 100},
		{"negative capex", BaseCase{NPV: 1, Capex: -1}, dists, 100},
		{"inverted clip bounds", baseCase(), Distributions{Production: Distribution{StdDev: 0.1, ClipMin: 2, ClipMax: 1}}, 100},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := e.Simulate(ctx, tc.base, tc.dist, tc.n, 42, nil); !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("got err %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestPercentile(t *testing.T) {
	arr := []float64{10, 20, 30, 40, 50}
	cases := []struct {
		p    float64
		want float64
	}{
		{0, 10},
		{0.25, 20},
		{0.5, 30},
		{0.625, 35},
		{1, 50},
	}
	for _, tc := range cases {
		if got := Percentile(arr, tc.p); math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("Percentile(arr, %g) = %g, want %g", tc.p, got, tc.want)
		}
	}
	if got := Percentile([]float64{7}, 0.5); got != 7 {
		t.Errorf("single element percentile = %g, want 7", got)
	}
	if got := Percentile(nil, 0.5); got != 0 {
		t.Errorf("empty percentile = %g, want 0", got)
	}
}
