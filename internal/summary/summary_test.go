package summary

import (
	"errors"
	"math"
	"testing"
)

func TestFiveNumber(t *testing.T) {
	values := []float64{7, 1, 5, 3, 9, 2, 8, 4, 6}
	got, err := FiveNumber(values)
	if err != nil {
		t.Fatalf("FiveNumber() error = %v", err)
	}
	want := Whisker{Min: 1, Q1: 3, Median: 5, Q3: 7, Max: 9}
	if got != want {
		t.Errorf("FiveNumber() = %+v, want %+v", got, want)
	}
	if values[0] != 7 || values[1] != 1 {
		t.Error("FiveNumber() must not reorder the caller's slice")
	}
}

func TestFiveNumber_SingleValue(t *testing.T) {
	got, err := FiveNumber([]float64{4.2})
	if err != nil {
		t.Fatalf("FiveNumber() error = %v", err)
	}
	if got.Min != 4.2 || got.Q1 != 4.2 || got.Median != 4.2 || got.Q3 != 4.2 || got.Max != 4.2 {
		t.Errorf("FiveNumber() = %+v, want all 4.2", got)
	}
}

func TestDescribe(t *testing.T) {
	got, err := Describe([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	if err != nil {
		t.Fatalf("Describe() error = %v", err)
	}
	if got.Count != 8 {
		t.Errorf("Count = %d, want 8", got.Count)
	}
	if math.Abs(got.Mean-5) > 1e-12 {
		t.Errorf("Mean = %v, want 5", got.Mean)
	}
	// Population standard deviation of this classic sample is exactly 2.
	if math.Abs(got.StdDev-2) > 1e-12 {
		t.Errorf("StdDev = %v, want 2", got.StdDev)
	}
}

func TestNewHistogram(t *testing.T) {
	values := []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	h, err := NewHistogram(values, 5)
	if err != nil {
		t.Fatalf("NewHistogram() error = %v", err)
	}
	if len(h.Bins) != 5 {
		t.Fatalf("len(Bins) = %d, want 5", len(h.Bins))
	}
	wantCounts := []int{2, 2, 2, 2, 3}
	for i, b := range h.Bins {
		if b.Count != wantCounts[i] {
			t.Errorf("bin %d [%v,%v) count = %d, want %d", i, b.Lower, b.Upper, b.Count, wantCounts[i])
		}
	}
	if h.Bins[0].Lower != 0 || h.Bins[4].Upper != 10 {
		t.Errorf("histogram spans [%v, %v], want [0, 10]", h.Bins[0].Lower, h.Bins[4].Upper)
	}
	if h.Total() != len(values) {
		t.Errorf("Total() = %d, want %d", h.Total(), len(values))
	}
}

func TestNewHistogram_IdenticalValues(t *testing.T) {
	h, err := NewHistogram([]float64{3, 3, 3}, 10)
	if err != nil {
		t.Fatalf("NewHistogram() error = %v", err)
	}
	if len(h.Bins) != 1 || h.Bins[0].Count != 3 {
		t.Errorf("NewHistogram() = %+v, want one bin with 3 values", h)
	}
}

func TestEmptyAndInvalidInput(t *testing.T) {
	if _, err := FiveNumber(nil); !errors.Is(err, ErrEmpty) {
		t.Errorf("FiveNumber(nil) error = %v, want ErrEmpty", err)
	}
	if _, err := Describe(nil); !errors.Is(err, ErrEmpty) {
		t.Errorf("Describe(nil) error = %v, want ErrEmpty", err)
	}
	if _, err := NewHistogram(nil, 3); !errors.Is(err, ErrEmpty) {
		t.Errorf("NewHistogram(nil) error = %v, want ErrEmpty", err)
	}
	if _, err := NewHistogram([]float64{1, 2}, 0); !errors.Is(err, ErrInvalidBins) {
		t.Errorf("NewHistogram(bins=0) error = %v, want ErrInvalidBins", err)
	}
}
