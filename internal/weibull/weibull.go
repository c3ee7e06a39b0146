// Package weibull fits two-parameter Weibull distributions to wind-speed
// samples and samples the fitted probability density for plotting.
package weibull

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// shapeFactor relates the coefficient of variation to the shape parameter
// (k ≈ 1.086 / cv). It is an empirical approximation, not a likelihood fit.
const shapeFactor = 1.086

// DefaultStep is the x spacing used for density curves when none is configured.
const DefaultStep = 0.1

// MaxCurvePoints bounds the length of a density curve.
const MaxCurvePoints = 100000

// stepTolerance absorbs float error when deciding whether max(sample) lands on a step.
const stepTolerance = 1e-9

// ErrDegenerateSample is returned when a sample cannot produce finite,
// positive parameters: fewer than two values, non-positive mean, or zero variance.
var ErrDegenerateSample = errors.New("degenerate sample")

// ErrEmptySample is returned when a density curve is requested for an empty sample.
var ErrEmptySample = errors.New("empty sample")

// ErrInvalidStep is returned when the curve step is not a positive finite number.
var ErrInvalidStep = errors.New("step must be positive and finite")

// ErrNonFiniteSample is returned when the sample maximum is infinite.
var ErrNonFiniteSample = errors.New("sample contains non-finite values")

// ErrCurveTooLarge is returned when max(sample)/step would need MaxCurvePoints or more points.
var ErrCurveTooLarge = errors.New("density curve too large")

// ErrInvalidParams is returned when k or c is not a positive finite number.
var ErrInvalidParams = errors.New("weibull parameters must be positive and finite")

// Params holds the shape (k) and scale (c) of a Weibull distribution.
type Params struct {
	K float64 `json:"k"`
	C float64 `json:"c"`
}

// Validate reports ErrInvalidParams unless both parameters are positive and finite.
func (p Params) Validate() error {
	if !positiveFinite(p.K) || !positiveFinite(p.C) {
		return fmt.Errorf("%w: k=%v c=%v", ErrInvalidParams, p.K, p.C)
	}
	return nil
}

// Estimate fits Weibull parameters with the coefficient-of-variation
// approximation: k = 1.086/cv and c = mean/Γ(1+1/k).
// Mean and variance are population moments (variance = mean of squares
// minus squared mean), computed in sample order so repeated calls on the
// same slice return bit-identical results.
func Estimate(sample []float64) (Params, error) {
	n := len(sample)
	if n < 2 {
		return Params{}, fmt.Errorf("%w: need at least 2 values, got %d", ErrDegenerateSample, n)
	}

	var sum, sumOfSquares float64
	identical := true
	for _, v := range sample {
		sum += v
		sumOfSquares += v * v
		identical = identical && v == sample[0]
	}
	if identical {
		return Params{}, fmt.Errorf("%w: all %d values equal %v", ErrDegenerateSample, n, sample[0])
	}
	mean := sum / float64(n)
	if !(mean > 0) || math.IsInf(mean, 0) {
		return Params{}, fmt.Errorf("%w: mean %v is not positive", ErrDegenerateSample, mean)
	}
	variance := sumOfSquares/float64(n) - mean*mean
	if !(variance > 0) || math.IsInf(variance, 0) {
		return Params{}, fmt.Errorf("%w: variance %v is not positive", ErrDegenerateSample, variance)
	}

	cv := math.Sqrt(variance) / mean
	k := shapeFactor / cv
	if !positiveFinite(k) {
		return Params{}, fmt.Errorf("%w: shape %v out of range", ErrDegenerateSample, k)
	}
	c := mean / Gamma(1+1/k)
	if !positiveFinite(c) {
		return Params{}, fmt.Errorf("%w: scale %v out of range", ErrDegenerateSample, c)
	}
	return Params{K: k, C: c}, nil
}

// Density evaluates the Weibull probability density at x.
// Negative x has zero density. At x = 0 the result follows IEEE semantics:
// +Inf for k < 1, k/c for k == 1 and 0 for k > 1.
func Density(p Params, x float64) float64 {
	if x < 0 {
		return 0
	}
	z := x / p.C
	return (p.K / p.C) * math.Pow(z, p.K-1) * math.Exp(-math.Pow(z, p.K))
}

// Curve is a sampled density: X and Y always have the same length.
type Curve struct {
	X []float64 `json:"x"`
	Y []float64 `json:"y"`
}

// Len returns the number of sampled points.
func (c Curve) Len() int {
	return len(c.X)
}

// MarshalJSON encodes the curve as parallel arrays. Non-finite densities
// (the k < 1 singularity at x = 0) are written as null; UnmarshalJSON reads
// null back as +Inf.
func (c Curve) MarshalJSON() ([]byte, error) {
	ys := make([]*float64, len(c.Y))
	for i := range c.Y {
		if math.IsNaN(c.Y[i]) || math.IsInf(c.Y[i], 0) {
			continue
		}
		ys[i] = &c.Y[i]
	}
	xs := c.X
	if xs == nil {
		xs = []float64{}
	}
	return json.Marshal(struct {
		X []float64  `json:"x"`
		Y []*float64 `json:"y"`
	}{X: xs, Y: ys})
}

// UnmarshalJSON decodes the form written by MarshalJSON.
func (c *Curve) UnmarshalJSON(data []byte) error {
	var raw struct {
		X []float64  `json:"x"`
		Y []*float64 `json:"y"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw.X) != len(raw.Y) {
		return fmt.Errorf("curve: %d x values but %d y values", len(raw.X), len(raw.Y))
	}
	ys := make([]float64, len(raw.Y))
	for i, y := range raw.Y {
		if y == nil {
			ys[i] = math.Inf(1)
			continue
		}
		ys[i] = *y
	}
	xs := raw.X
	if xs == nil {
		xs = []float64{}
	}
	c.X, c.Y = xs, ys
	return nil
}

// CheckCurveSize reports ErrCurveTooLarge when sampling [0, upper] at step
// would need MaxCurvePoints or more points.
func CheckCurveSize(upper, step float64) error {
	if upper > 0 && upper/step >= MaxCurvePoints {
		return fmt.Errorf("%w: max %g at step %g exceeds %d points", ErrCurveTooLarge, upper, step, MaxCurvePoints)
	}
	return nil
}

// DensityCurve samples the density of p at x = 0, step, 2·step, … up to
// max(sample). max(sample) itself is included only when it lands on a step.
func DensityCurve(p Params, sample []float64, step float64) (Curve, error) {
	if len(sample) == 0 {
		return Curve{}, ErrEmptySample
	}
	if !positiveFinite(step) {
		return Curve{}, fmt.Errorf("%w: %v", ErrInvalidStep, step)
	}
	if err := p.Validate(); err != nil {
		return Curve{}, err
	}

	upper := sample[0]
	for _, v := range sample[1:] {
		if v > upper {
			upper = v
		}
	}
	if math.IsInf(upper, 1) {
		return Curve{}, ErrNonFiniteSample
	}
	if upper < 0 || math.IsNaN(upper) {
		return Curve{X: []float64{}, Y: []float64{}}, nil
	}

	if err := CheckCurveSize(upper, step); err != nil {
		return Curve{}, err
	}

	n := int(math.Floor(upper/step+stepTolerance)) + 1
	curve := Curve{X: make([]float64, n), Y: make([]float64, n)}
	for i := 0; i < n; i++ {
		x := math.Min(float64(i)*step, upper)
		curve.X[i] = x
		curve.Y[i] = Density(p, x)
	}
	return curve, nil
}

func positiveFinite(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}
