// Package validation holds the pure QSO domain rules: the amateur band
// catalog and mode/submode consistency checks.
package validation

import (
	"fmt"
	"strings"
)

// bands is the ADIF band catalog in canonical order.
var bands = []string{
	"160m", "80m", "60m", "40m", "30m", "20m", "17m", "15m", "12m", "10m",
	"6m", "4m", "2m", "1.25m",
	"70cm", "33cm", "23cm", "13cm", "9cm", "6cm", "3cm", "1.25cm",
	"6mm", "4mm", "2.5mm", "2mm", "1mm",
}

var bandIndex = func() map[string]string {
	m := make(map[string]string, len(bands))
	for _, b := range bands {
		m[strings.ToLower(b)] = b
	}
	return m
}()

// Bands returns a copy of the band catalog in canonical order.
func Bands() []string {
	out := make([]string, len(bands))
	copy(out, bands)
	return out
}

// IsValidBand reports whether token names a catalog band. Matching is
// case-insensitive and exact; blank input is invalid.
func IsValidBand(token string) bool {
	_, ok := CanonicalBand(token)
	return ok
}

// CanonicalBand returns the catalog spelling of token.
func CanonicalBand(token string) (string, bool) {
	if strings.TrimSpace(token) == "" {
		return "", false
	}
	b, ok := bandIndex[strings.ToLower(token)]
	return b, ok
}

// BandValidationError renders the message reported for an unknown band.
func BandValidationError(token string) string {
	return fmt.Sprintf("Invalid band '%s'. Must be a valid ADIF band (e.g., 160m, 80m, 40m, 20m, etc.)", token)
}
