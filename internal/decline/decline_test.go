package decline

import (
	"errors"
	"math"
	"testing"
)

// --- Constructor tests ---

func TestNewParameters_Valid(t *testing.T) {
	p, err := NewParameters(1000, 0.08, 0.8, Hyperbolic)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Qi() != 1000 || p.Di() != 0.08 || p.B() != 0.8 {
		t.Errorf("parameters not stored: qi=%g di=%g b=%g", p.Qi(), p.Di(), p.B())
	}
}

func TestNewParameters_Invalid(t *testing.T) {
	tests := []struct {
		name       string
		qi, di, b  float64
		curve      CurveType
	}{
		{"zero qi", 0, 0.08, 0.8, Hyperbolic},
		{"negative qi", -100, 0.08, 0.8, Hyperbolic},
		{"zero di", 1000, 0, 0.8, Hyperbolic},
		{"negative di", 1000, -0.05, 0.8, Hyperbolic},
		{"b below range", 1000, 0.08, -0.1, Hyperbolic},
		{"b above range", 1000, 0.08, 2.1, Hyperbolic},
		{"NaN qi", math.NaN(), 0.08, 0.8, Hyperbolic},
		{"unknown curve", 1000, 0.08, 0.8, CurveType("parabolic")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewParameters(tt.qi, tt.di, tt.b, tt.curve)
			if !errors.Is(err, ErrInvalidParameter) {
				t.Errorf("expected ErrInvalidParameter, got %v", err)
			}
		})
	}
}

// --- Rate evaluation ---

func TestRateAt_ZeroIsQi(t *testing.T) {
	for _, curve := range []CurveType{Exponential, Harmonic, Hyperbolic} {
		p, _ := NewParameters(1000, 0.08, 0.8, curve)
		if got := p.RateAt(0); math.Abs(got-1000) > 1e-9 {
			t.Errorf("%s: RateAt(0) = %g, want 1000", curve, got)
		}
	}
}

func TestRateAt_NonIncreasing(t *testing.T) {
	for _, curve := range []CurveType{Exponential, Harmonic, Hyperbolic} {
		p, _ := NewParameters(1000, 0.08, 0.8, curve)
		prev := p.RateAt(0)
		for m := 1; m <= 360; m++ {
			r := p.RateAt(float64(m))
			if r > prev {
				t.Fatalf("%s: rate increased at month %d: %g > %g", curve, m, r, prev)
			}
			if r < 0 {
				t.Fatalf("%s: negative rate at month %d: %g", curve, m, r)
			}
			prev = r
		}
	}
}

func TestRateAt_ExponentialClosedForm(t *testing.T) {
	p, _ := NewParameters(800, 0.05, 0, Exponential)
	want := 800 * math.Exp(-0.05*24)
	if got := p.RateAt(24); math.Abs(got-want) > 1e-9 {
		t.Errorf("RateAt(24) = %g, want %g", got, want)
	}
}

func TestRateAt_HarmonicClosedForm(t *testing.T) {
	p, _ := NewParameters(800, 0.05, 0, Harmonic)
	want := 800 / (1 + 0.05*24)
	if got := p.RateAt(24); math.Abs(got-want) > 1e-9 {
		t.Errorf("RateAt(24) = %g, want %g", got, want)
	}
}

// Hyperbolic with b=0 must match exponential and b=1 must match harmonic
// at the family boundaries.
func TestRateAt_HyperbolicBoundaryContinuity(t *testing.T) {
	exp, _ := NewParameters(1000, 0.08, 0, Exponential)
	har, _ := NewParameters(1000, 0.08, 0, Harmonic)
	hypZero, _ := NewParameters(1000, 0.08, 0, Hyperbolic)
	hypOne, _ := NewParameters(1000, 0.08, 1, Hyperbolic)
	hypNearZero, _ := NewParameters(1000, 0.08, 1e-12, Hyperbolic)

	for _, m := range []float64{0, 1, 6, 12, 60, 240} {
		if a, b := hypZero.RateAt(m), exp.RateAt(m); math.Abs(a-b) > 1e-6 {
			t.Errorf("b=0 at t=%g: hyperbolic %g vs exponential %g", m, a, b)
		}
		if a, b := hypNearZero.RateAt(m), exp.RateAt(m); math.Abs(a-b) > 1e-6 {
			t.Errorf("b=1e-12 at t=%g: hyperbolic %g vs exponential %g", m, a, b)
		}
		if a, b := hypOne.RateAt(m), har.RateAt(m); math.Abs(a-b) > 1e-9 {
			t.Errorf("b=1 at t=%g: hyperbolic %g vs harmonic %g", m, a, b)
		}
	}
}

// --- Cumulative / technical EUR ---

func TestCumulativeTo_MonotoneAndBounded(t *testing.T) {
	p, _ := NewParameters(1000, 0.08, 0.8, Hyperbolic)
	prev := 0.0
	for m := 1; m <= 600; m++ {
		c := p.CumulativeTo(float64(m))
		if c < prev {
			t.Fatalf("cumulative decreased at month %d: %g < %g", m, c, prev)
		}
		prev = c
	}
}

func TestTechnicalEUR_ExponentialClosedForm(t *testing.T) {
	p, _ := NewParameters(1000, 0.05, 0, Exponential)
	if got, want := p.TechnicalEUR(), 1000/0.05; math.Abs(got-want) > 1e-9 {
		t.Errorf("TechnicalEUR = %g, want %g", got, want)
	}
}

func TestTechnicalEUR_BoundsCumulative(t *testing.T) {
	cases := []struct {
		b     float64
		curve CurveType
	}{
		{0, Exponential},
		{0, Harmonic},
		{0.5, Hyperbolic},
		{0.8, Hyperbolic},
		{1, Hyperbolic},
		{1.4, Hyperbolic},
	}
	for _, tt := range cases {
		p, _ := NewParameters(1000, 0.08, tt.b, tt.curve)
		eur := p.TechnicalEUR()
		// Any finite-horizon cumulative inside the booking cap must not
		// exceed the technical EUR.
		if cum := p.CumulativeTo(600); cum > eur+1e-6 {
			t.Errorf("%s b=%g: CumulativeTo(600)=%g exceeds TechnicalEUR=%g",
				tt.curve, tt.b, cum, eur)
		}
		if math.IsInf(eur, 0) || math.IsNaN(eur) {
			t.Errorf("%s b=%g: TechnicalEUR not finite: %g", tt.curve, tt.b, eur)
		}
	}
}
