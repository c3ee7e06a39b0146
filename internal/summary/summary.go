// Package summary computes the descriptive statistics and binned frequencies
// that accompany each fitted distribution.
package summary

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ErrEmpty is returned when statistics are requested for an empty sample.
var ErrEmpty = errors.New("summary: empty sample")

// ErrInvalidBins is returned when the histogram bin count is below one.
var ErrInvalidBins = errors.New("summary: bin count must be positive")

// Whisker is the five-number summary drawn as a box plot.
type Whisker struct {
	Min    float64 `json:"min"`
	Q1     float64 `json:"q1"`
	Median float64 `json:"median"`
	Q3     float64 `json:"q3"`
	Max    float64 `json:"max"`
}

// Stats holds the sample size and population moments.
type Stats struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
}

// Bin is one histogram bucket covering [Lower, Upper).
type Bin struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

// Histogram is an equal-width frequency table.
type Histogram struct {
	Bins []Bin `json:"bins"`
}

// Total returns the number of values counted across all bins.
func (h Histogram) Total() int {
	n := 0
	for _, b := range h.Bins {
		n += b.Count
	}
	return n
}

// sorted returns an ascending copy so callers' slices are never reordered.
func sorted(values []float64) []float64 {
	out := make([]float64, len(values))
	copy(out, values)
	sort.Float64s(out)
	return out
}

// FiveNumber returns min, quartiles, median and max using empirical quantiles.
func FiveNumber(values []float64) (Whisker, error) {
	if len(values) == 0 {
		return Whisker{}, ErrEmpty
	}
	s := sorted(values)
	return Whisker{
		Min:    s[0],
		Q1:     stat.Quantile(0.25, stat.Empirical, s, nil),
		Median: stat.Quantile(0.5, stat.Empirical, s, nil),
		Q3:     stat.Quantile(0.75, stat.Empirical, s, nil),
		Max:    s[len(s)-1],
	}, nil
}

// Describe returns count, mean and population standard deviation.
func Describe(values []float64) (Stats, error) {
	if len(values) == 0 {
		return Stats{}, ErrEmpty
	}
	mean, std := stat.PopMeanStdDev(values, nil)
	return Stats{Count: len(values), Mean: mean, StdDev: std}, nil
}

// NewHistogram groups values into bins equal-width buckets spanning [min, max].
// The last bucket is closed so the maximum is counted. A sample whose values
// are all equal produces a single bucket of zero width.
func NewHistogram(values []float64, bins int) (Histogram, error) {
	if len(values) == 0 {
		return Histogram{}, ErrEmpty
	}
	if bins < 1 {
		return Histogram{}, fmt.Errorf("%w: %d", ErrInvalidBins, bins)
	}
	s := sorted(values)
	lo, hi := s[0], s[len(s)-1]
	if lo == hi {
		return Histogram{Bins: []Bin{{Lower: lo, Upper: hi, Count: len(s)}}}, nil
	}

	dividers := make([]float64, bins+1)
	floats.Span(dividers, lo, hi)
	// stat.Histogram treats the last divider as exclusive.
	upper := dividers[bins]
	dividers[bins] = math.Nextafter(hi, math.Inf(1))
	counts := stat.Histogram(nil, dividers, s, nil)

	h := Histogram{Bins: make([]Bin, bins)}
	for i := range h.Bins {
		h.Bins[i] = Bin{Lower: dividers[i], Upper: dividers[i+1], Count: int(counts[i])}
	}
	h.Bins[bins-1].Upper = upper
	return h, nil
}
