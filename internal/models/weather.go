package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnknownVariable is returned for a variable name that is not a numeric observation field.
var ErrUnknownVariable = errors.New("unknown variable")

// Variable names a numeric observation field, spelled as in the source records.
type Variable string

const (
	Temperature   Variable = "Temperature"
	WindVelocity  Variable = "Velocity_of_the_Wind"
	WindDirection Variable = "Direction_of_the_wind"
	Pressure      Variable = "Pressure"
	DewPoint      Variable = "Dew_Point"
	CloudCoverage Variable = "Cloudy_Full_Coverage"
	Precipitation Variable = "Precipitation"
	StormChance   Variable = "Storm_Chance"
)

// Variables lists every numeric field in record order.
var Variables = []Variable{
	Temperature, WindVelocity, WindDirection, Pressure,
	DewPoint, CloudCoverage, Precipitation, StormChance,
}

// ParseVariable matches s against the known variables, ignoring case and surrounding space.
func ParseVariable(s string) (Variable, error) {
	s = strings.TrimSpace(s)
	for _, v := range Variables {
		if strings.EqualFold(string(v), s) {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownVariable, s)
}

// Number is a float64 that also decodes from a numeric JSON string.
// Empty strings and null decode as zero.
type Number float64

func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*n = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*n = 0
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("number: %w", err)
		}
		*n = Number(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*n = Number(f)
	return nil
}

// Observation is one historical weather record for a municipality.
type Observation struct {
	Region        string `json:"Region"`
	Department    string `json:"Department"`
	Municipality  string `json:"Municipality"`
	Date          string `json:"Date"`
	Temperature   Number `json:"Temperature"`
	WindVelocity  Number `json:"Velocity_of_the_Wind"`
	WindDirection Number `json:"Direction_of_the_wind"`
	Pressure      Number `json:"Pressure"`
	DewPoint      Number `json:"Dew_Point"`
	CloudCoverage Number `json:"Cloudy_Full_Coverage"`
	Precipitation Number `json:"Precipitation"`
	StormChance   Number `json:"Storm_Chance"`
	Forecast      string `json:"Forecast"`
}

// Value returns the observation's reading for v.
func (o Observation) Value(v Variable) (float64, error) {
	switch v {
	case Temperature:
		return float64(o.Temperature), nil
	case WindVelocity:
		return float64(o.WindVelocity), nil
	case WindDirection:
		return float64(o.WindDirection), nil
	case Pressure:
		return float64(o.Pressure), nil
	case DewPoint:
		return float64(o.DewPoint), nil
	case CloudCoverage:
		return float64(o.CloudCoverage), nil
	case Precipitation:
		return float64(o.Precipitation), nil
	case StormChance:
		return float64(o.StormChance), nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownVariable, v)
}
