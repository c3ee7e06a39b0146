// Package dataset loads historical weather observations and serves
// per-municipality samples of a single variable.
package dataset

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"golang.org/x/text/unicode/norm"

	"github.com/kjstillabower/wind-weibull-service/internal/models"
)

// ErrUnknownCity is returned when no observation belongs to the requested municipality.
var ErrUnknownCity = errors.New("unknown city")

// Dataset holds observations grouped by municipality. It is read-only after
// construction and safe for concurrent use.
type Dataset struct {
	byCity map[string][]models.Observation
	total  int
}

// New indexes observations by their Municipality field, normalized to NFC so
// precomposed and decomposed accents name the same city.
func New(observations []models.Observation) *Dataset {
	d := &Dataset{byCity: make(map[string][]models.Observation), total: len(observations)}
	for _, o := range observations {
		city := norm.NFC.String(o.Municipality)
		d.byCity[city] = append(d.byCity[city], o)
	}
	return d
}

// Decode reads a JSON array of observation records.
func Decode(r io.Reader) (*Dataset, error) {
	var observations []models.Observation
	if err := json.NewDecoder(r).Decode(&observations); err != nil {
		return nil, fmt.Errorf("decode observations: %w", err)
	}
	return New(observations), nil
}

// Load opens path and decodes it with Decode.
func Load(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("data file not found: %s", path)
		}
		return nil, fmt.Errorf("open data file: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Len returns the total number of observations.
func (d *Dataset) Len() int {
	return d.total
}

// Cities returns the municipalities present, sorted.
func (d *Dataset) Cities() []string {
	out := make([]string, 0, len(d.byCity))
	for c := range d.byCity {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Values returns the readings of v for city in record order.
// The returned slice is freshly allocated on each call.
func (d *Dataset) Values(city string, v models.Variable) ([]float64, error) {
	rows, ok := d.byCity[norm.NFC.String(city)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCity, city)
	}
	out := make([]float64, len(rows))
	for i, o := range rows {
		val, err := o.Value(v)
		if err != nil {
			return nil, err
		}
		out[i] = val
	}
	return out, nil
}
