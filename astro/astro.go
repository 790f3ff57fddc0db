// Package astro provides the numeric primitives shared by the natal chart
// pipeline: degree normalization, shortest-arc angular distance, fixed-decimal
// rounding, and the zodiac sign / chart point vocabulary.
//
// Every longitude that crosses a package boundary in this repository is
// normalized to [0,360) and rounded to Decimals places, so two charts computed
// from the same input are byte-comparable after JSON encoding.
package astro

import "math"

// Decimals is the fixed rounding precision applied to every longitude.
const Decimals = 6

// Signs lists the twelve zodiac signs in ecliptic order, 30° each.
var Signs = [12]string{
	"Aries", "Taurus", "Gemini", "Cancer", "Leo", "Virgo",
	"Libra", "Scorpio", "Sagittarius", "Capricorn", "Aquarius", "Pisces",
}

// Chart point keys. PointOrder fixes the iteration order used everywhere a
// deterministic scan over points is required.
const (
	Sun     = "sun"
	Moon    = "moon"
	Mercury = "mercury"
	Venus   = "venus"
	Mars    = "mars"
	Jupiter = "jupiter"
	Saturn  = "saturn"
	Uranus  = "uranus"
	Neptune = "neptune"
	Pluto   = "pluto"
	Node    = "node"
	Chiron  = "chiron"
	Asc     = "asc"
	MC      = "mc"
)

// PointOrder is the canonical ordering of chart point keys.
var PointOrder = []string{
	Sun, Moon, Mercury, Venus, Mars, Jupiter, Saturn,
	Uranus, Neptune, Pluto, Node, Chiron, Asc, MC,
}

// RequiredBodies are the ephemeris bodies whose failure aborts chart
// construction. Chiron is optional; Asc/MC come from the house computation.
var RequiredBodies = []string{
	Sun, Moon, Mercury, Venus, Mars, Jupiter, Saturn,
	Uranus, Neptune, Pluto, Node,
}

// NormalizeDegrees maps x into [0,360), congruent to x mod 360.
func NormalizeDegrees(x float64) float64 {
	m := math.Mod(x, 360)
	if m < 0 {
		m += 360
	}
	return m
}

// AngularDistance returns the shortest-arc distance between two angles in
// degrees. Symmetric, wraps at 0/360, result in [0,180].
func AngularDistance(a, b float64) float64 {
	d := math.Abs(NormalizeDegrees(a) - NormalizeDegrees(b))
	if d > 180 {
		d = 360 - d
	}
	return d
}

// Round rounds x half-away-from-zero to Decimals places.
func Round(x float64) float64 {
	return RoundTo(x, Decimals)
}

// RoundTo rounds x half-away-from-zero to the given number of decimals.
func RoundTo(x float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(x*p) / p
}

// SignIndex returns the zodiac sign index (0 = Aries) for a longitude.
func SignIndex(lon float64) int {
	return int(NormalizeDegrees(lon)/30) % 12
}

// SignName returns the zodiac sign name for a longitude.
func SignName(lon float64) string {
	return Signs[SignIndex(lon)]
}

// DegreeInSign returns the position within the sign, [0,30).
func DegreeInSign(lon float64) float64 {
	return NormalizeDegrees(lon) - float64(SignIndex(lon))*30
}

// IsLuminary reports whether key is the Sun or the Moon.
func IsLuminary(key string) bool {
	return key == Sun || key == Moon
}
