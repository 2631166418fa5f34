package util

import "testing"

func TestFloat64SliceToCSV(t *testing.T) {
	s := Float64SliceToCSV([]float64{1, 2.5, -3}, 'G', -1)
	if s != "1,2.5,-3" {
		t.Errorf("got %q", s)
	}
}

func TestClamp(t *testing.T) {
	cases := []struct {
		v, lo, hi, want float64
	}{
		{5, 0, 10, 5},
		{-1, 0, 10, 0},
		{11, 0, 10, 10},
	}
	for _, c := range cases {
		if got := Clamp(c.v, c.lo, c.hi); got != c.want {
			t.Errorf("Clamp(%v, %v, %v) = %v, want %v", c.v, c.lo, c.hi, got, c.want)
		}
	}
}

func TestLimiterCheck(t *testing.T) {
	l := Limiter{Min: -1, Max: 1}
	if !l.Check(0) {
		t.Error("0 should be within [-1, 1]")
	}
	if l.Check(2) {
		t.Error("2 should violate [-1, 1]")
	}
	if l.Check(-2) {
		t.Error("-2 should violate [-1, 1]")
	}
}
