// Package validation checks request input before it reaches the service layer.
package validation

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	// ErrCityEmpty is returned when the city is empty or whitespace-only after trim.
	ErrCityEmpty = errors.New("city is required")

	// ErrCityTooShort is returned when the city length is below the minimum.
	ErrCityTooShort = errors.New("city too short")

	// ErrCityTooLong is returned when the city length exceeds the maximum.
	ErrCityTooLong = errors.New("city too long")

	// ErrCityInvalidChars is returned when the city contains disallowed characters.
	ErrCityInvalidChars = errors.New("city contains invalid characters")

	ErrSampleEmpty     = errors.New("values must not be empty")
	ErrSampleTooLarge  = errors.New("too many values")
	ErrSampleNonFinite = errors.New("values must be finite numbers")
)

// ValidateCity trims the input, normalizes it to NFC, enforces length bounds
// (minLen, maxLen in runes) and restricts it to letters, combining marks, digits,
// space, hyphen, period and apostrophe. Case is preserved: cities are matched
// exactly as recorded.
func ValidateCity(input string, minLen, maxLen int) (string, error) {
	s := norm.NFC.String(strings.TrimSpace(input))
	r := []rune(s)
	n := len(r)
	if n == 0 {
		return "", ErrCityEmpty
	}
	if minLen > 0 && n < minLen {
		return "", ErrCityTooShort
	}
	if maxLen > 0 && n > maxLen {
		return "", ErrCityTooLong
	}
	for _, c := range r {
		if !isAllowedCityRune(c) {
			return "", ErrCityInvalidChars
		}
	}
	return s, nil
}

func isAllowedCityRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.Is(unicode.Mn, r) {
		return true
	}
	switch r {
	case ' ', '-', '.', '\'':
		return true
	}
	return false
}

// ValidateSample checks a caller-supplied sample: at least one value, at most
// maxValues (when positive), all finite.
func ValidateSample(values []float64, maxValues int) error {
	if len(values) == 0 {
		return ErrSampleEmpty
	}
	if maxValues > 0 && len(values) > maxValues {
		return fmt.Errorf("%w: %d exceeds limit of %d", ErrSampleTooLarge, len(values), maxValues)
	}
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: index %d", ErrSampleNonFinite, i)
		}
	}
	return nil
}
