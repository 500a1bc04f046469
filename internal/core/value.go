// Package core holds the tracker domain model and the statistics rules.
//
// This file parses numeric entry values from user input. Counter and amount
// entries accept both dot (12.34) and comma (12,34) decimal separators, and
// may be negative (a decrement or a refund).
package core

import (
	"math"
	"strconv"
	"strings"
)

// ParseValue converts a decimal string to a float64 entry value.
// Returns ErrInvalidValue for empty input, malformed numbers, or
// non-finite results.
func ParseValue(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidValue
	}
	// Normalize decimal comma to dot.
	s = strings.ReplaceAll(s, ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, ErrInvalidValue
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ErrInvalidValue
	}
	return v, nil
}
