package astro

import (
	"math"
	"testing"
)

func TestNormalizeDegrees(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 0},
		{360, 0},
		{361, 1},
		{720.5, 0.5},
		{-1, 359},
		{-360, 0},
		{-725, 355},
		{359.999, 359.999},
	}
	for _, tt := range tests {
		if got := NormalizeDegrees(tt.in); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("NormalizeDegrees(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeDegreesRange(t *testing.T) {
	for x := -1080.0; x < 1080; x += 7.3 {
		got := NormalizeDegrees(x)
		if got < 0 || got >= 360 {
			t.Fatalf("NormalizeDegrees(%v) = %v out of [0,360)", x, got)
		}
		// Congruence mod 360.
		diff := math.Mod(got-x, 360)
		if diff < 0 {
			diff += 360
		}
		if diff > 1e-9 && math.Abs(diff-360) > 1e-9 {
			t.Fatalf("NormalizeDegrees(%v) = %v not congruent mod 360", x, got)
		}
	}
}

func TestAngularDistance(t *testing.T) {
	tests := []struct {
		a, b, want float64
	}{
		{0, 0, 0},
		{0, 180, 180},
		{0, 90, 90},
		{10, 350, 20},
		{350, 10, 20},
		{359.8, 0.1, 0.3},
		{90, 270, 180},
	}
	for _, tt := range tests {
		got := AngularDistance(tt.a, tt.b)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("AngularDistance(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
		// Symmetry.
		if rev := AngularDistance(tt.b, tt.a); math.Abs(rev-got) > 1e-12 {
			t.Errorf("AngularDistance not symmetric for (%v, %v): %v vs %v", tt.a, tt.b, got, rev)
		}
		if got < 0 || got > 180 {
			t.Errorf("AngularDistance(%v, %v) = %v out of [0,180]", tt.a, tt.b, got)
		}
	}
}

func TestRoundHalfAwayFromZero(t *testing.T) {
	// Exact binary fractions so the half-way cases are not perturbed by
	// float64 representation.
	tests := []struct {
		in       float64
		decimals int
		want     float64
	}{
		{2.5, 0, 3},
		{-2.5, 0, -3},
		{1.25, 1, 1.3},
		{-1.25, 1, -1.3},
		{0, 0, 0},
	}
	for _, tt := range tests {
		if got := RoundTo(tt.in, tt.decimals); got != tt.want {
			t.Errorf("RoundTo(%v, %d) = %v, want %v", tt.in, tt.decimals, got, tt.want)
		}
	}
	if got := Round(123.45678949); got != 123.456789 {
		t.Errorf("Round(123.45678949) = %v, want 123.456789", got)
	}
}

func TestSignIndexAndName(t *testing.T) {
	tests := []struct {
		lon  float64
		idx  int
		name string
	}{
		{0, 0, "Aries"},
		{29.999999, 0, "Aries"},
		{30, 1, "Taurus"},
		{125.25, 4, "Leo"},
		{359.9, 11, "Pisces"},
		{360, 0, "Aries"},
		{-5, 11, "Pisces"},
	}
	for _, tt := range tests {
		if got := SignIndex(tt.lon); got != tt.idx {
			t.Errorf("SignIndex(%v) = %d, want %d", tt.lon, got, tt.idx)
		}
		if got := SignName(tt.lon); got != tt.name {
			t.Errorf("SignName(%v) = %q, want %q", tt.lon, got, tt.name)
		}
	}
}

func TestDegreeInSign(t *testing.T) {
	if got := DegreeInSign(125.25); math.Abs(got-5.25) > 1e-9 {
		t.Errorf("DegreeInSign(125.25) = %v, want 5.25", got)
	}
	if got := DegreeInSign(0); got != 0 {
		t.Errorf("DegreeInSign(0) = %v, want 0", got)
	}
}

func TestIsLuminary(t *testing.T) {
	if !IsLuminary(Sun) || !IsLuminary(Moon) {
		t.Fatal("sun and moon are luminaries")
	}
	if IsLuminary(Mercury) || IsLuminary(Asc) {
		t.Fatal("mercury/asc are not luminaries")
	}
}
