// Package montecarlo runs the probabilistic risk simulation: repeated
// dry-hole and multiplier draws against a base-case valuation, reduced to
// percentile bands and a success probability.
//
// Every random draw comes from an injected seeded generator, never an
// ambient source. Identical seed and inputs reproduce identical scenario
// sets, in sequential and parallel mode alike.
package montecarlo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/basinflow/forecast-engine/internal/model"
)

var (
	// ErrInvalidInput is returned for out-of-range simulation inputs.
	ErrInvalidInput = errors.New("montecarlo: invalid input")
)

// DefaultChunkSize is the iteration count between cancellation checks and
// progress callbacks.
const DefaultChunkSize = 500

// Distribution parameterizes one normal multiplier: mean 1.0, the given
// standard deviation, samples clipped into [ClipMin, ClipMax].
type Distribution struct {
	StdDev  float64 `json:"std_dev" koanf:"std_dev"`
	ClipMin float64 `json:"clip_min" koanf:"clip_min"`
	ClipMax float64 `json:"clip_max" koanf:"clip_max"`
}

// Distributions holds the three sampled input multipliers.
type Distributions struct {
	Production Distribution `json:"production" koanf:"production"`
	Price      Distribution `json:"price" koanf:"price"`
	Cost       Distribution `json:"cost" koanf:"cost"`
}

// DefaultDistributions mirrors the stock risk model: ±30% production,
// ±40% price, ±25% cost variance, one third of the band as one sigma.
func DefaultDistributions() Distributions {
	return Distributions{
		Production: Distribution{StdDev: 0.30 / 3, ClipMin: 0.4, ClipMax: 1.8},
		Price:      Distribution{StdDev: 0.40 / 3, ClipMin: 0.5, ClipMax: 1.8},
		Cost:       Distribution{StdDev: 0.25 / 3, ClipMin: 0.7, ClipMax: 1.5},
	}
}

// BaseCase is the deterministic valuation the simulation perturbs.
type BaseCase struct {
	NPV                float64 `json:"npv" koanf:"npv"`
	IRR                float64 `json:"irr" koanf:"irr"`
	Capex              float64 `json:"capex" koanf:"capex"`
	DryHoleProbability float64 `json:"dry_hole_probability" koanf:"dry_hole_probability"`
}

// Stats summarizes one outcome array. P10 is the optimistic case (90th
// percentile of the ascending sort) and P90 the conservative one,
// following reserve-reporting convention.
type Stats struct {
	P10  float64 `json:"p10"`
	P50  float64 `json:"p50"`
	P90  float64 `json:"p90"`
	Mean float64 `json:"mean"`
}

// Result is the full simulation output.
type Result struct {
	Scenarios          []model.RiskScenario `json:"scenarios"`
	NPV                Stats                `json:"npv"`
	IRR                Stats                `json:"irr"`
	SuccessProbability float64              `json:"success_probability"`
	DryHoleCount       int                  `json:"dry_hole_count"`
	Iterations         int                  `json:"iterations"` // completed, ≤ requested
	Partial            bool                 `json:"partial"`
}

// ProgressFunc receives the completed iteration count after each chunk.
type ProgressFunc func(done, total int)

// Engine runs simulations with a fixed chunk size.
type Engine struct {
	chunkSize int
}

// NewEngine builds a simulation engine. chunkSize ≤ 0 defaults to
// DefaultChunkSize.
func NewEngine(chunkSize int) *Engine {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Engine{chunkSize: chunkSize}
}

func validate(base BaseCase, dists Distributions, iterations int) error {
	if iterations <= 0 {
		return fmt.Errorf("%w: iterations must be positive, got %d", ErrInvalidInput, iterations)
	}
	if base.DryHoleProbability < 0 || base.DryHoleProbability > 1 {
		return fmt.Errorf("%w: dry-hole probability must be in [0,1], got %g", ErrInvalidInput, base.DryHoleProbability)
	}
	if base.Capex < 0 {
		return fmt.Errorf("%w: capex must be non-negative, got %g", ErrInvalidInput, base.Capex)
	}
	for _, d := range []struct {
		name string
		dist Distribution
	}{
		{"production", dists.Production},
		{"price", dists.Price},
		{"cost", dists.Cost},
	} {
		if d.dist.StdDev < 0 {
			return fmt.Errorf("%w: %s std dev must be non-negative, got %g", ErrInvalidInput, d.name, d.dist.StdDev)
		}
		if d.dist.ClipMin > d.dist.ClipMax {
			return fmt.Errorf("%w: %s clip bounds inverted: [%g, %g]", ErrInvalidInput, d.name, d.dist.ClipMin, d.dist.ClipMax)
		}
		if d.dist.ClipMax <= 0 {
			return fmt.Errorf("%w: %s clip max must be positive, got %g", ErrInvalidInput, d.name, d.dist.ClipMax)
		}
	}
	return nil
}

// Simulate runs iterations sequentially, checking ctx at chunk
// boundaries. On cancellation it returns the statistics over the
// scenarios collected so far with Partial set. progress may be nil.
func (e *Engine) Simulate(ctx context.Context, base BaseCase, dists Distributions, iterations int, seed int64, progress ProgressFunc) (Result, error) {
	if err := validate(base, dists, iterations); err != nil {
		return Result{}, err
	}

	rng := rand.New(rand.NewSource(seed))
	scenarios := make([]model.RiskScenario, 0, iterations)

	partial := false
loop:
	for start := 0; start < iterations; start += e.chunkSize {
		select {
		case <-ctx.Done():
			partial = true
			break loop
		default:
		}
		end := start + e.chunkSize
		if end > iterations {
			end = iterations
		}
		for i := start; i < end; i++ {
			scenarios = append(scenarios, drawScenario(rng, base, dists))
		}
		if progress != nil {
			progress(len(scenarios), iterations)
		}
	}

	return reduce(scenarios, partial), nil
}

// SimulateParallel distributes chunks across workers using seeds derived
// from the caller's seed and the chunk index, so the scenario set is
// identical regardless of worker count or scheduling. Cancellation keeps
// the longest completed prefix of chunks and sets Partial.
func (e *Engine) SimulateParallel(ctx context.Context, base BaseCase, dists Distributions, iterations int, seed int64, workers int) (Result, error) {
	if err := validate(base, dists, iterations); err != nil {
		return Result{}, err
	}
	if workers <= 0 {
		workers = 4
	}

	numChunks := (iterations + e.chunkSize - 1) / e.chunkSize
	chunks := make([][]model.RiskScenario, numChunks)
	done := make([]bool, numChunks)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for c := 0; c < numChunks; c++ {
		c := c
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return nil
			default:
			}
			start := c * e.chunkSize
			end := start + e.chunkSize
			if end > iterations {
				end = iterations
			}
			rng := rand.New(rand.NewSource(chunkSeed(seed, c)))
			out := make([]model.RiskScenario, 0, end-start)
			for i := start; i < end; i++ {
				out = append(out, drawScenario(rng, base, dists))
			}
			chunks[c] = out
			done[c] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	scenarios := make([]model.RiskScenario, 0, iterations)
	partial := false
	for c := 0; c < numChunks; c++ {
		if !done[c] {
			partial = true
			break
		}
		scenarios = append(scenarios, chunks[c]...)
	}
	return reduce(scenarios, partial), nil
}

// chunkSeed derives a per-chunk seed via splitmix-style mixing so chunk
// streams do not overlap.
func chunkSeed(seed int64, chunk int) int64 {
	z := uint64(seed) + uint64(chunk+1)*0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return int64(z ^ (z >> 31))
}

func drawScenario(rng *rand.Rand, base BaseCase, dists Distributions) model.RiskScenario {
	if rng.Float64() < base.DryHoleProbability {
		return model.RiskScenario{
			SampledInputs: map[string]float64{"dry_hole": 1},
			OutcomeNPV:    -base.Capex,
			OutcomeIRR:    -1.0,
			OutcomeClass:  model.OutcomeDryHole,
		}
	}

	prod := sampleMultiplier(rng, dists.Production)
	price := sampleMultiplier(rng, dists.Price)
	cost := sampleMultiplier(rng, dists.Cost)

	return model.RiskScenario{
		SampledInputs: map[string]float64{
			"production": prod,
			"price":      price,
			"cost":       cost,
		},
		OutcomeNPV:   base.NPV * prod * price / cost,
		OutcomeIRR:   base.IRR * prod * price / cost,
		OutcomeClass: model.OutcomeSuccess,
	}
}

// sampleMultiplier draws from N(1.0, σ) via the Box–Muller transform and
// clips into the distribution's bounds.
func sampleMultiplier(rng *rand.Rand, d Distribution) float64 {
	u1 := rng.Float64()
	for u1 == 0 {
		u1 = rng.Float64()
	}
	u2 := rng.Float64()
	z := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)

	v := 1.0 + d.StdDev*z
	if v < d.ClipMin {
		v = d.ClipMin
	}
	if v > d.ClipMax {
		v = d.ClipMax
	}
	return v
}

func reduce(scenarios []model.RiskScenario, partial bool) Result {
	n := len(scenarios)
	res := Result{
		Scenarios:  scenarios,
		Iterations: n,
		Partial:    partial,
	}
	if n == 0 {
		return res
	}

	npvs := make([]float64, n)
	irrs := make([]float64, n)
	positive := 0
	for i, s := range scenarios {
		npvs[i] = s.OutcomeNPV
		irrs[i] = s.OutcomeIRR
		if s.OutcomeNPV > 0 {
			positive++
		}
		if s.OutcomeClass == model.OutcomeDryHole {
			res.DryHoleCount++
		}
	}
	sort.Float64s(npvs)
	sort.Float64s(irrs)

	res.NPV = statsOf(npvs)
	res.IRR = statsOf(irrs)
	res.SuccessProbability = float64(positive) / float64(n)
	return res
}

func statsOf(sorted []float64) Stats {
	sum := 0.0
	for _, v := range sorted {
		sum += v
	}
	return Stats{
		P10:  Percentile(sorted, 0.90),
		P50:  Percentile(sorted, 0.50),
		P90:  Percentile(sorted, 0.10),
		Mean: sum / float64(len(sorted)),
	}
}

// Percentile returns the linearly interpolated value at rank p×(n−1) of
// an ascending-sorted array. p is clamped to [0, 1].
func Percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	rank := p * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}
