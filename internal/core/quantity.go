// Package core provides quantity parsing and formatting utilities.
//
// This file contains the helpers used by forms and the CLI to turn user text
// into activity quantities and to render CO2 masses for display.
package core

import (
	"math"
	"strconv"
	"strings"
	"unicode"
)

// ParseQuantity converts a decimal string to a non-negative quantity.
//
// It accepts both dot (12.5) and comma (12,5) decimal separators. Signs,
// exponents, thousands separators and empty input are rejected with
// ErrInvalidQuantity (or ErrMissingQuantity for blank input).
//
// Examples:
//
//	ParseQuantity("15")    -> 15, nil
//	ParseQuantity("2,5")   -> 2.5, nil
//	ParseQuantity("-1")    -> 0, ErrInvalidQuantity
func ParseQuantity(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrMissingQuantity
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.Count(s, ".") > 1 {
		return 0, ErrInvalidQuantity
	}
	for _, r := range s {
		if r != '.' && !unicode.IsDigit(r) {
			return 0, ErrInvalidQuantity
		}
	}
	if s == "." {
		return 0, ErrInvalidQuantity
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) {
		return 0, ErrInvalidQuantity
	}
	return v, nil
}

// FormatKg renders a CO2 mass with one decimal, e.g. "3.5 kg".
func FormatKg(kg float64) string {
	return strconv.FormatFloat(kg, 'f', 1, 64) + " kg"
}

// Round1 rounds to one decimal place for display values.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func formatQuantity(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
