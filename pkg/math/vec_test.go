package math

import (
	"math"
	"testing"
)

func TestDistance(t *testing.T) {
	a := Vec3{X: 0, Y: 0, Z: 0}
	b := Vec3{X: 3, Y: 4, Z: 0}
	if got := Distance(a, b); got != 5 {
		t.Errorf("Distance() = %v, want 5", got)
	}
}

func TestWithinCutoffSquared(t *testing.T) {
	tests := []struct {
		name   string
		a, b   Vec3
		cutoff float64
		want   bool
	}{
		{"identical", Vec3{}, Vec3{}, 0.01, true},
		{"close on z", Vec3{}, Vec3{Z: 0.003}, 0.01, true},
		{"exactly at cutoff", Vec3{}, Vec3{X: 0.5}, 0.5, true},
		{"far on x", Vec3{}, Vec3{X: 1}, 0.01, false},
		{"far on y", Vec3{}, Vec3{Y: 1}, 0.01, false},
		{"far on z", Vec3{}, Vec3{Z: 1}, 0.01, false},
		{"each axis close but diagonal far", Vec3{}, Vec3{X: 0.009, Y: 0.009, Z: 0.009}, 0.01, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WithinCutoffSquared(tt.a, tt.b, tt.cutoff*tt.cutoff); got != tt.want {
				t.Errorf("WithinCutoffSquared(%v, %v, %v) = %v, want %v", tt.a, tt.b, tt.cutoff, got, tt.want)
			}
		})
	}
}

func TestSameColor(t *testing.T) {
	red := Vec3{X: 1, Y: 0, Z: 0}

	if !SameColor(red, Vec3{X: 0.9995, Y: 0, Z: 0.0005}) {
		t.Error("colors within epsilon should match")
	}
	if SameColor(red, Vec3{X: 1, Y: 0.002, Z: 0}) {
		t.Error("colors differing by 0.002 should not match")
	}
	if SameColor(red, Vec3{X: 0, Y: 0, Z: 1}) {
		t.Error("red and blue should not match")
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   Vec3
		want Vec3
	}{
		{Vec3{X: 1.234, Y: 5.678, Z: -9.999}, Vec3{X: 1.23, Y: 5.68, Z: -10}},
		{Vec3{X: 0.001, Y: -0.004, Z: 0.005}, Vec3{X: 0, Y: 0, Z: 0.01}},
		{Vec3{X: 12, Y: 0.1, Z: 0.25}, Vec3{X: 12, Y: 0.1, Z: 0.25}},
	}

	for _, tt := range tests {
		got := Truncate(tt.in)
		if got != tt.want {
			t.Errorf("Truncate(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestTruncateNoNegativeZero(t *testing.T) {
	got := Truncate(Vec3{X: -0.001, Y: -0.0049, Z: 0})
	for i, c := range Array(got) {
		if math.Signbit(c) {
			t.Errorf("component %d is negative zero", i)
		}
	}
}

func TestTruncateIdempotent(t *testing.T) {
	v := Vec3{X: 3.14159, Y: -2.71828, Z: 1.41421}
	once := Truncate(v)
	twice := Truncate(once)
	if once != twice {
		t.Errorf("Truncate not idempotent: %v then %v", once, twice)
	}
}

func TestFromSliceFailSoft(t *testing.T) {
	tests := []struct {
		name string
		in   []float64
		want Vec3
	}{
		{"valid", []float64{1, 2, 3}, Vec3{X: 1, Y: 2, Z: 3}},
		{"too short", []float64{1, 2}, Vec3{}},
		{"too long", []float64{1, 2, 3, 4}, Vec3{}},
		{"nil", nil, Vec3{}},
		{"nan", []float64{math.NaN(), 0, 0}, Vec3{}},
		{"inf", []float64{0, math.Inf(1), 0}, Vec3{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FromSlice(tt.in); got != tt.want {
				t.Errorf("FromSlice(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestScaleFailSoft(t *testing.T) {
	v := Vec3{X: 1, Y: 2, Z: 3}
	if got := Scale(v, 2); got != (Vec3{X: 2, Y: 4, Z: 6}) {
		t.Errorf("Scale(v, 2) = %v", got)
	}
	if got := Scale(v, math.NaN()); got != (Vec3{}) {
		t.Errorf("Scale(v, NaN) = %v, want zero vector", got)
	}
}

func TestMidpoint(t *testing.T) {
	got := Midpoint(Vec3{X: 0, Y: 0, Z: 0}, Vec3{X: 2, Y: 4, Z: -6})
	if got != (Vec3{X: 1, Y: 2, Z: -3}) {
		t.Errorf("Midpoint() = %v, want (1, 2, -3)", got)
	}
}

func TestNormal(t *testing.T) {
	n, _, ok := Normal(Vec3{}, Vec3{X: 1}, Vec3{Y: 1}, 1e-10)
	if !ok {
		t.Fatal("expected non-degenerate triangle")
	}
	if n != (Vec3{Z: 1}) {
		t.Errorf("Normal() = %v, want (0, 0, 1)", n)
	}

	// Collinear points
	if _, _, ok := Normal(Vec3{}, Vec3{X: 1}, Vec3{X: 2}, 1e-10); ok {
		t.Error("expected collinear triangle to be degenerate")
	}
}
