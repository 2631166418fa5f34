// Package util contains misc internal utilities.
package util

import (
	"strconv"
	"strings"
)

// Float64SliceToCSV converts a slice of float64s to CSV formatted data
// e.g. []float64{1,2,3} => "1,2,3".  fmt and prec have the same meaning
// as in strconv.FormatFloat.
func Float64SliceToCSV(fs []float64, fmt byte, prec int) string {
	s := make([]string, len(fs))
	for i, v := range fs {
		s[i] = strconv.FormatFloat(v, fmt, prec, 64)
	}
	return strings.Join(s, ",")
}

// IntSliceToCSV converts a slice of ints to CSV formatted data.
// e.g., []int{1,2,3,4,5} => "1,2,3,4,5"
func IntSliceToCSV(is []int) string {
	s := make([]string, len(is))
	for i, v := range is {
		s[i] = strconv.Itoa(v)
	}
	return strings.Join(s, ",")
}

// Clamp returns v bounded to [lo, hi]
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Limiter is a software limit on the position of an axis
type Limiter struct {
	// Min is the lower limit
	Min float64 `json:"min"`

	// Max is the upper limit
	Max float64 `json:"max"`
}

// Check returns true if v is within the limits
func (l Limiter) Check(v float64) bool {
	return v >= l.Min && v <= l.Max
}
