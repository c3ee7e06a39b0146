package weibull

import "math"

// lanczosG is the g parameter paired with lanczosCoefficients.
const lanczosG = 7

// lanczosCoefficients is the published 9-term table for g = 7.
var lanczosCoefficients = [...]float64{
	0.99999999999980993,
	676.5203681218851,
	-1259.1392167224028,
	771.32342877765313,
	-176.61502916214059,
	12.507343278686905,
	-0.13857109526572012,
	9.9843695780195716e-6,
	1.5056327351493116e-7,
}

// Gamma evaluates the Gamma function with the Lanczos approximation (g = 7).
// Arguments below 0.5 go through the reflection formula once; 1-x is then
// at least 0.5 so the recursion never goes deeper.
// Non-positive integers are poles and yield NaN or ±Inf; callers must not
// rely on a particular value there.
func Gamma(x float64) float64 {
	if x < 0.5 {
		return math.Pi / (math.Sin(math.Pi*x) * Gamma(1-x))
	}
	x--
	a := lanczosCoefficients[0]
	for i := 1; i < len(lanczosCoefficients); i++ {
		a += lanczosCoefficients[i] / (x + float64(i))
	}
	t := x + lanczosG + 0.5
	return math.Sqrt(2*math.Pi) * math.Pow(t, x+0.5) * math.Exp(-t) * a
}
