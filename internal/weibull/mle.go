package weibull

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

const (
	mleMaxIterations = 100
	mleTolerance     = 1e-10
	mleMaxHalvings   = 60
)

// ErrNoConvergence is returned when the likelihood iteration does not settle.
var ErrNoConvergence = errors.New("weibull mle did not converge")

// ErrUnknownMethod is returned by ParseMethod and Fit for unsupported estimators.
var ErrUnknownMethod = errors.New("unknown estimation method")

// Method selects how Fit derives parameters from a sample.
type Method string

const (
	// MethodMoments is the coefficient-of-variation approximation used by Estimate.
	MethodMoments Method = "moments"
	// MethodMLE is the numerical maximum-likelihood fit of EstimateMLE.
	MethodMLE Method = "mle"
)

// ParseMethod maps a config or request value to a Method. Empty selects MethodMoments.
func ParseMethod(s string) (Method, error) {
	switch Method(strings.ToLower(strings.TrimSpace(s))) {
	case "", MethodMoments:
		return MethodMoments, nil
	case MethodMLE:
		return MethodMLE, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMethod, s)
}

// Fit estimates parameters with the given method.
func Fit(sample []float64, method Method) (Params, error) {
	switch method {
	case MethodMoments, "":
		return Estimate(sample)
	case MethodMLE:
		return EstimateMLE(sample)
	}
	return Params{}, fmt.Errorf("%w: %q", ErrUnknownMethod, method)
}

// EstimateMLE fits Weibull parameters by maximum likelihood. The shape is the
// root of the profile score
//
//	g(k) = Σ xᵏ ln x / Σ xᵏ − 1/k − mean(ln x)
//
// found with Newton-Raphson from the Estimate starting point, and the scale
// follows as c = (Σ xᵏ / n)^(1/k). Every value must be strictly positive.
func EstimateMLE(sample []float64) (Params, error) {
	start, err := Estimate(sample)
	if err != nil {
		return Params{}, err
	}
	logs := make([]float64, len(sample))
	var meanLog float64
	for i, v := range sample {
		if !(v > 0) {
			return Params{}, fmt.Errorf("%w: value %v at index %d is not positive", ErrDegenerateSample, v, i)
		}
		logs[i] = math.Log(v)
		meanLog += logs[i]
	}
	meanLog /= float64(len(sample))

	k := start.K
	for iter := 0; iter < mleMaxIterations; iter++ {
		g, dg := profileScore(sample, logs, meanLog, k)
		if math.IsNaN(g) || math.IsNaN(dg) || dg == 0 {
			break
		}
		delta := g / dg
		next := k - delta
		for h := 0; !(next > 0) && h < mleMaxHalvings; h++ {
			delta /= 2
			next = k - delta
		}
		if !positiveFinite(next) {
			break
		}
		if math.Abs(next-k) <= mleTolerance*math.Max(1, k) {
			return mleScale(sample, next)
		}
		k = next
	}
	return Params{}, fmt.Errorf("%w after %d iterations (k=%v)", ErrNoConvergence, mleMaxIterations, k)
}

// profileScore returns g(k) and g'(k). Powers are taken relative to the
// sample maximum so large k does not overflow.
func profileScore(sample, logs []float64, meanLog, k float64) (float64, float64) {
	maxLog := logs[0]
	for _, l := range logs[1:] {
		if l > maxLog {
			maxLog = l
		}
	}
	var s0, s1, s2 float64
	for i := range sample {
		w := math.Exp(k * (logs[i] - maxLog))
		s0 += w
		s1 += w * logs[i]
		s2 += w * logs[i] * logs[i]
	}
	ratio := s1 / s0
	g := ratio - 1/k - meanLog
	dg := s2/s0 - ratio*ratio + 1/(k*k)
	return g, dg
}

func mleScale(sample []float64, k float64) (Params, error) {
	upper := sample[0]
	for _, v := range sample[1:] {
		upper = math.Max(upper, v)
	}
	var s float64
	for _, v := range sample {
		s += math.Pow(v/upper, k)
	}
	c := upper * math.Pow(s/float64(len(sample)), 1/k)
	p := Params{K: k, C: c}
	if err := p.Validate(); err != nil {
		return Params{}, fmt.Errorf("%w: %v", ErrDegenerateSample, err)
	}
	return p, nil
}
