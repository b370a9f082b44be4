package levels

import (
	"math"
	"testing"
)

func TestTickSize(t *testing.T) {
	tests := []struct {
		price float64
		want  float64
	}{
		{45000, 0.1},
		{1000, 0.1},
		{250, 0.01},
		{100, 0.01},
		{42, 0.001},
		{10, 0.001},
		{3.5, 0.0001},
		{1, 0.0001},
		{0.42, 0.00001},
		{0.00001, 0.00001},
	}
	for _, tt := range tests {
		if got := TickSize(tt.price); got != tt.want {
			t.Errorf("TickSize(%v) = %v, want %v", tt.price, got, tt.want)
		}
	}
}

func TestTolerance(t *testing.T) {
	// With no ATR, the 0.15% price floor dominates for a 100 price.
	if got := Tolerance(100, 0, 0.01); got != 0.15 {
		t.Errorf("Tolerance(100, 0, 0.01) = %v, want 0.15", got)
	}

	// Large ATR dominates both floors.
	if got := Tolerance(100, 10, 0.01); got != 2.5 {
		t.Errorf("Tolerance(100, 10, 0.01) = %v, want 2.5", got)
	}

	// Tiny price with coarse tick: the 5-tick floor dominates.
	if got := Tolerance(0.5, 0, 0.01); got != 0.05 {
		t.Errorf("Tolerance(0.5, 0, 0.01) = %v, want 0.05", got)
	}

	// Negative ATR behaves like an absent one.
	if got := Tolerance(100, -3, 0.01); got != 0.15 {
		t.Errorf("Tolerance(100, -3, 0.01) = %v, want 0.15", got)
	}
}

// TestToleranceMonotonicInATR verifies tolerance never shrinks as ATR grows.
func TestToleranceMonotonicInATR(t *testing.T) {
	prev := 0.0
	for atr := 0.0; atr <= 20; atr += 0.5 {
		tol := Tolerance(100, atr, 0.01)
		if tol < prev {
			t.Fatalf("tolerance decreased from %v to %v at atr=%v", prev, tol, atr)
		}
		prev = tol
	}
}

// TestToleranceMonotonicInPrice verifies tolerance never shrinks as price
// grows, for a fixed tick size.
func TestToleranceMonotonicInPrice(t *testing.T) {
	for _, atr := range []float64{0, 1} {
		prev := 0.0
		for price := 1.0; price <= 2000; price += 25 {
			tol := Tolerance(price, atr, 0.01)
			if tol < prev {
				t.Fatalf("tolerance decreased from %v to %v at price=%v atr=%v", prev, tol, price, atr)
			}
			prev = tol
		}
	}
}

func TestToleranceNeverZeroForPositivePrice(t *testing.T) {
	for _, price := range []float64{0.001, 0.9, 1, 99, 100, 999, 50000} {
		tol := Tolerance(price, 0, TickSize(price))
		if tol <= 0 || math.IsNaN(tol) {
			t.Errorf("Tolerance(%v) = %v, want positive", price, tol)
		}
	}
}
