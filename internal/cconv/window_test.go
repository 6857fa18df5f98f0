package cconv

import "testing"

func TestPoly6Range(t *testing.T) {
	if Poly6(0) != 1 {
		t.Errorf("Poly6(0) = %v, want 1", Poly6(0))
	}
	if Poly6(1) != 0 {
		t.Errorf("Poly6(1) = %v, want 0", Poly6(1))
	}

	prev := Poly6(0)
	for i := 1; i <= 1000; i++ {
		r := float64(i) / 1000
		v := Poly6(r)
		if v < 0 || v > 1 {
			t.Fatalf("Poly6(%v) = %v outside [0,1]", r, v)
		}
		if v > prev {
			t.Fatalf("Poly6 increased at %v: %v > %v", r, v, prev)
		}
		prev = v
	}
}

func TestPoly6Clamps(t *testing.T) {
	tests := []struct {
		r    float64
		want float64
	}{
		{-1, 1},
		{2, 0},
		{5, 0},
		{0.5, 0.125},
	}
	for _, tt := range tests {
		if got := Poly6(tt.r); got != tt.want {
			t.Errorf("Poly6(%v) = %v, want %v", tt.r, got, tt.want)
		}
	}
}
