package weibull

import (
	"encoding/json"
	"errors"
	"math"
	"math/rand/v2"
	"strings"
	"testing"

	"gonum.org/v1/gonum/stat/distuv"
)

// windSample is a small hand-made wind velocity sample (m/s).
var windSample = []float64{3.2, 4.5, 2.1, 5.6, 3.3, 4.0, 2.9, 6.1, 3.7, 4.4}

func weibullSample(k, c float64, n int, seed uint64) []float64 {
	dist := distuv.Weibull{K: k, Lambda: c}
	rng := rand.New(rand.NewPCG(seed, seed+1))
	out := make([]float64, n)
	for i := range out {
		out[i] = dist.Quantile(rng.Float64())
	}
	return out
}

func TestGamma_FactorialIdentity(t *testing.T) {
	tests := []struct {
		x, want float64
	}{
		{1, 1},
		{2, 1},
		{3, 2},
		{5, 24},
		{7, 720},
	}
	for _, tt := range tests {
		if got := Gamma(tt.x); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Gamma(%v) = %v, want %v", tt.x, got, tt.want)
		}
	}
}

func TestGamma_Half(t *testing.T) {
	if got, want := Gamma(0.5), math.Sqrt(math.Pi); math.Abs(got-want) > 1e-12 {
		t.Errorf("Gamma(0.5) = %v, want %v", got, want)
	}
}

// TestGamma_Reflection checks Γ(x)·Γ(1−x)·sin(πx) = π on (0, 1).
func TestGamma_Reflection(t *testing.T) {
	for _, x := range []float64{0.05, 0.1, 0.25, 0.3, 0.49, 0.51, 0.7, 0.9, 0.95} {
		got := Gamma(x) * Gamma(1-x) * math.Sin(math.Pi*x)
		if math.Abs(got-math.Pi) > 1e-9 {
			t.Errorf("reflection at x=%v: got %v, want π", x, got)
		}
	}
}

func TestGamma_MatchesStdlib(t *testing.T) {
	for _, x := range []float64{-3.5, -1.25, -0.5, 0.1, 0.75, 1.2693, 1.5, 2.5, 4.2, 10.1, 25.5} {
		got, want := Gamma(x), math.Gamma(x)
		if rel := math.Abs(got-want) / math.Abs(want); rel > 1e-10 {
			t.Errorf("Gamma(%v) = %v, math.Gamma = %v (rel err %g)", x, got, want, rel)
		}
	}
}

func TestGamma_PoleAtZero(t *testing.T) {
	if got := Gamma(0); !math.IsInf(got, 0) && !math.IsNaN(got) {
		t.Errorf("Gamma(0) = %v, want ±Inf or NaN", got)
	}
}

func TestEstimate_ReferenceSample(t *testing.T) {
	got, err := Estimate(windSample)
	if err != nil {
		t.Fatalf("Estimate() error = %v", err)
	}

	var sum, sumSq float64
	for _, v := range windSample {
		sum += v
		sumSq += v * v
	}
	n := float64(len(windSample))
	mean := sum / n
	std := math.Sqrt(sumSq/n - mean*mean)
	if math.Abs(mean-3.98) > 1e-9 {
		t.Fatalf("reference mean = %v, want 3.98", mean)
	}
	if math.Abs(std-1.1582745788) > 1e-9 {
		t.Fatalf("reference population std = %v, want ≈1.15827", std)
	}
	wantK := 1.086 / (std / mean)
	wantC := mean / math.Gamma(1+1/wantK)

	if math.Abs(got.K-wantK) > 1e-9 {
		t.Errorf("k = %v, want %v", got.K, wantK)
	}
	if math.Abs(got.C-wantC) > 1e-6 {
		t.Errorf("c = %v, want %v", got.C, wantC)
	}
	if math.Abs(got.K-3.731654030) > 1e-6 || math.Abs(got.C-4.408129855) > 1e-6 {
		t.Errorf("Estimate() = %+v, want k≈3.731654 c≈4.408130", got)
	}
}

func TestEstimate_RecoversKnownDistribution(t *testing.T) {
	sample := weibullSample(2, 10, 10000, 42)
	got, err := Estimate(sample)
	if err != nil {
		t.Fatalf("Estimate() error = %v", err)
	}
	if math.Abs(got.K-2)/2 > 0.15 {
		t.Errorf("k = %v, want within 15%% of 2", got.K)
	}
	if math.Abs(got.C-10)/10 > 0.15 {
		t.Errorf("c = %v, want within 15%% of 10", got.C)
	}
}

func TestEstimate_Degenerate(t *testing.T) {
	tests := []struct {
		name   string
		sample []float64
	}{
		{"empty", nil},
		{"single value", []float64{5}},
		{"zero variance", []float64{7, 7, 7, 7}},
		{"repeated fraction", []float64{0.1, 0.1, 0.1}},
		{"zero mean", []float64{-1, 1}},
		{"negative mean", []float64{-3, -1, -2}},
		{"all zero", []float64{0, 0, 0}},
		{"nan", []float64{1, math.NaN(), 3}},
		{"inf", []float64{1, math.Inf(1), 3}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p, err := Estimate(tc.sample)
			if err == nil {
				t.Fatalf("Estimate(%v) = %+v, want error", tc.sample, p)
			}
			if !errors.Is(err, ErrDegenerateSample) {
				t.Errorf("error = %v, want ErrDegenerateSample", err)
			}
		})
	}
}

func TestEstimate_Idempotent(t *testing.T) {
	sample := weibullSample(1.7, 6, 500, 7)
	first, err := Estimate(sample)
	if err != nil {
		t.Fatalf("Estimate() error = %v", err)
	}
	second, err := Estimate(sample)
	if err != nil {
		t.Fatalf("Estimate() error = %v", err)
	}
	if math.Float64bits(first.K) != math.Float64bits(second.K) || math.Float64bits(first.C) != math.Float64bits(second.C) {
		t.Errorf("Estimate() not bit-identical: %+v vs %+v", first, second)
	}
}

func TestParams_Validate(t *testing.T) {
	tests := []struct {
		name    string
		p       Params
		wantErr bool
	}{
		{"valid", Params{K: 2, C: 10}, false},
		{"zero k", Params{K: 0, C: 10}, true},
		{"negative c", Params{K: 2, C: -1}, true},
		{"nan k", Params{K: math.NaN(), C: 1}, true},
		{"inf c", Params{K: 1, C: math.Inf(1)}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.p.Validate()
			if (err != nil) != tc.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidParams) {
				t.Errorf("error = %v, want ErrInvalidParams", err)
			}
		})
	}
}

func TestDensity_MatchesReferenceDistribution(t *testing.T) {
	p := Params{K: 2.3, C: 7.5}
	ref := distuv.Weibull{K: p.K, Lambda: p.C}
	for _, x := range []float64{0.1, 1, 3.3, 7.5, 12, 20} {
		got, want := Density(p, x), ref.Prob(x)
		if math.Abs(got-want) > 1e-12 {
			t.Errorf("Density(%v) = %v, want %v", x, got, want)
		}
	}
	if got := Density(p, -1); got != 0 {
		t.Errorf("Density(-1) = %v, want 0", got)
	}
}

func TestDensity_AtZero(t *testing.T) {
	if got := Density(Params{K: 0.8, C: 3}, 0); !math.IsInf(got, 1) {
		t.Errorf("Density at 0 with k<1 = %v, want +Inf", got)
	}
	if got, want := Density(Params{K: 1, C: 4}, 0), 0.25; got != want {
		t.Errorf("Density at 0 with k=1 = %v, want %v", got, want)
	}
	if got := Density(Params{K: 2, C: 4}, 0); got != 0 {
		t.Errorf("Density at 0 with k>1 = %v, want 0", got)
	}
}

func TestDensityCurve_Shape(t *testing.T) {
	p, err := Estimate(windSample)
	if err != nil {
		t.Fatalf("Estimate() error = %v", err)
	}
	curve, err := DensityCurve(p, windSample, DefaultStep)
	if err != nil {
		t.Fatalf("DensityCurve() error = %v", err)
	}
	if len(curve.X) != len(curve.Y) {
		t.Fatalf("len(x) = %d, len(y) = %d", len(curve.X), len(curve.Y))
	}
	if curve.X[0] != 0 {
		t.Errorf("x[0] = %v, want 0", curve.X[0])
	}
	last := curve.X[len(curve.X)-1]
	if last > 6.1 {
		t.Errorf("x[last] = %v, want <= 6.1", last)
	}
	// 6.1 lands on a step, so 0.0 … 6.1 inclusive.
	if curve.Len() != 62 || last != 6.1 {
		t.Errorf("curve has %d points ending at %v, want 62 ending at 6.1", curve.Len(), last)
	}
	for i, y := range curve.Y {
		if y < 0 || math.IsNaN(y) {
			t.Errorf("y[%d] = %v, want non-negative", i, y)
		}
	}
}

func TestDensityCurve_HalfOpenUpperBound(t *testing.T) {
	curve, err := DensityCurve(Params{K: 2, C: 1}, []float64{0.5, 0.95}, 0.1)
	if err != nil {
		t.Fatalf("DensityCurve() error = %v", err)
	}
	if curve.Len() != 10 {
		t.Fatalf("Len() = %d, want 10", curve.Len())
	}
	if last := curve.X[curve.Len()-1]; math.Abs(last-0.9) > 1e-12 {
		t.Errorf("x[last] = %v, want 0.9", last)
	}
	for i := 1; i < curve.Len(); i++ {
		if curve.X[i] <= curve.X[i-1] {
			t.Fatalf("x not increasing at %d: %v <= %v", i, curve.X[i], curve.X[i-1])
		}
	}
}

func TestDensityCurve_Bounds(t *testing.T) {
	p := Params{K: 2, C: 1}
	curve, err := DensityCurve(p, []float64{0, 0}, 0.1)
	if err != nil {
		t.Fatalf("DensityCurve() error = %v", err)
	}
	if curve.Len() != 1 || curve.X[0] != 0 {
		t.Errorf("max=0 curve = %+v, want single point at 0", curve)
	}

	curve, err = DensityCurve(p, []float64{-4, -1}, 0.1)
	if err != nil {
		t.Fatalf("DensityCurve() error = %v", err)
	}
	if curve.Len() != 0 {
		t.Errorf("negative max curve has %d points, want 0", curve.Len())
	}
}

func TestDensityCurve_Errors(t *testing.T) {
	valid := Params{K: 2, C: 1}
	tests := []struct {
		name    string
		p       Params
		sample  []float64
		step    float64
		wantErr error
	}{
		{"empty sample", valid, nil, 0.1, ErrEmptySample},
		{"zero step", valid, []float64{1}, 0, ErrInvalidStep},
		{"negative step", valid, []float64{1}, -0.1, ErrInvalidStep},
		{"nan step", valid, []float64{1}, math.NaN(), ErrInvalidStep},
		{"invalid params", Params{K: math.NaN(), C: 1}, []float64{1}, 0.1, ErrInvalidParams},
		{"infinite max", valid, []float64{1, math.Inf(1)}, 0.1, ErrNonFiniteSample},
		{"huge finite max", valid, []float64{3, 1e300}, 0.1, ErrCurveTooLarge},
		{"too many points", valid, []float64{1e8}, 0.1, ErrCurveTooLarge},
		{"tiny step", valid, []float64{1}, 1e-6, ErrCurveTooLarge},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DensityCurve(tc.p, tc.sample, tc.step)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("DensityCurve() error = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestCurve_MarshalJSON_SingularDensity(t *testing.T) {
	curve, err := DensityCurve(Params{K: 0.7, C: 2}, []float64{0.3}, 0.1)
	if err != nil {
		t.Fatalf("DensityCurve() error = %v", err)
	}
	if !math.IsInf(curve.Y[0], 1) {
		t.Fatalf("y[0] = %v, want +Inf", curve.Y[0])
	}
	raw, err := json.Marshal(curve)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	var decoded struct {
		X []float64  `json:"x"`
		Y []*float64 `json:"y"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if len(decoded.X) != len(decoded.Y) || len(decoded.X) != curve.Len() {
		t.Fatalf("decoded lengths x=%d y=%d, want %d", len(decoded.X), len(decoded.Y), curve.Len())
	}
	if decoded.Y[0] != nil {
		t.Errorf("y[0] = %v, want null", *decoded.Y[0])
	}
	if decoded.Y[1] == nil || *decoded.Y[1] <= 0 {
		t.Errorf("y[1] should be a positive density")
	}
}

func TestDensityCurve_LargestAllowed(t *testing.T) {
	curve, err := DensityCurve(Params{K: 2, C: 1}, []float64{(MaxCurvePoints - 1) * 0.5}, 0.5)
	if err != nil {
		t.Fatalf("DensityCurve() error = %v", err)
	}
	if curve.Len() != MaxCurvePoints {
		t.Errorf("Len() = %d, want %d", curve.Len(), MaxCurvePoints)
	}
}

func TestCurve_JSONRoundTrip(t *testing.T) {
	curve, err := DensityCurve(Params{K: 0.8, C: 3}, []float64{0.3}, 0.1)
	if err != nil {
		t.Fatalf("DensityCurve() error = %v", err)
	}
	raw, err := json.Marshal(curve)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	var got Curve
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if got.Len() != curve.Len() || len(got.Y) != len(curve.Y) {
		t.Fatalf("decoded lengths x=%d y=%d, want %d", len(got.X), len(got.Y), curve.Len())
	}
	if !math.IsInf(got.Y[0], 1) {
		t.Errorf("y[0] = %v, want +Inf restored from null", got.Y[0])
	}
	for i := 1; i < curve.Len(); i++ {
		if got.X[i] != curve.X[i] || got.Y[i] != curve.Y[i] {
			t.Errorf("point %d = (%v, %v), want (%v, %v)", i, got.X[i], got.Y[i], curve.X[i], curve.Y[i])
		}
	}
}

func TestCurve_UnmarshalJSON_MismatchedLengths(t *testing.T) {
	var c Curve
	if err := json.Unmarshal([]byte(`{"x":[0,1],"y":[1]}`), &c); err == nil {
		t.Error("json.Unmarshal() error = nil, want length mismatch error")
	}
}

func TestParams_JSONFieldNames(t *testing.T) {
	raw, err := json.Marshal(Params{K: 2, C: 3})
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	if s := string(raw); !strings.Contains(s, `"k":2`) || !strings.Contains(s, `"c":3`) {
		t.Errorf("Params JSON = %s, want k and c fields", s)
	}
}
