// Package chart assembles immutable natal chart snapshots: planetary
// longitudes, house cusps, and detected aspects, plus the metadata needed to
// reproduce the computation.
package chart

import (
	"fmt"
	"math"

	"github.com/hazyhaar/natal/aspect"
	"github.com/hazyhaar/natal/astro"
)

// Meta records the input and provenance of a computed chart.
type Meta struct {
	DatetimeUTC string  `json:"datetimeUtc"`
	JDUT        float64 `json:"jdUt"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	Zodiac      string  `json:"zodiac"`
	HouseSystem string  `json:"houseSystem"`
	Ephemeris   string  `json:"ephemeris"`
	GeneratedAt string  `json:"generatedAt"`
}

// Houses holds the twelve house cusp longitudes in house order 1-12.
type Houses struct {
	Cusps []float64 `json:"cusps"`
}

// Chart is an immutable snapshot of a computed natal chart. It is owned by
// the request that created it and never mutated in place; Scrub returns a
// new copy.
type Chart struct {
	Meta    Meta               `json:"meta"`
	Points  map[string]float64 `json:"points"`
	Houses  *Houses            `json:"houses"`
	Aspects []aspect.Aspect    `json:"aspects"`
}

// Scrub returns a copy of c with house data and the time-dependent angle
// points (asc, mc) removed. All other fields are carried over unchanged.
// Used when the birth time is unknown: the scrubbed chart is what downstream
// reading generation is allowed to see.
func Scrub(c *Chart) *Chart {
	points := make(map[string]float64, len(c.Points))
	for k, v := range c.Points {
		if k == astro.Asc || k == astro.MC {
			continue
		}
		points[k] = v
	}
	aspects := make([]aspect.Aspect, len(c.Aspects))
	copy(aspects, c.Aspects)
	return &Chart{
		Meta:    c.Meta,
		Points:  points,
		Houses:  nil,
		Aspects: aspects,
	}
}

// ResolveCusps chooses the house cusp set for the requested system.
// "placidus" returns the ephemeris-computed cusps unchanged; "wholeSign"
// derives twelve 30° cusps starting at the sign boundary at or before the
// ascendant. Always returns exactly twelve normalized values.
func ResolveCusps(houseSystem string, placidusCusps []float64, ascendant float64) []float64 {
	if houseSystem == "placidus" {
		out := make([]float64, len(placidusCusps))
		copy(out, placidusCusps)
		return out
	}
	start := math.Floor(astro.NormalizeDegrees(ascendant)/30) * 30
	cusps := make([]float64, 12)
	for i := range cusps {
		cusps[i] = astro.Round(astro.NormalizeDegrees(start + float64(i)*30))
	}
	return cusps
}

// Validate checks a chart against the schema contract: every point finite
// and in [0,360), houses nil or exactly twelve normalized cusps, aspects
// well-formed with ordered pair keys. Used on charts received from the
// remote chart service, where a malformed payload is a hard failure.
func Validate(c *Chart) error {
	if c == nil {
		return fmt.Errorf("chart: nil chart")
	}
	if len(c.Points) == 0 {
		return fmt.Errorf("chart: no points")
	}
	for k, v := range c.Points {
		if !validKey(k) {
			return fmt.Errorf("chart: unknown point key %q", k)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || v >= 360 {
			return fmt.Errorf("chart: point %q longitude %v out of range", k, v)
		}
	}
	if c.Houses != nil && len(c.Houses.Cusps) != 12 {
		return fmt.Errorf("chart: houses have %d cusps, want 12", len(c.Houses.Cusps))
	}
	if c.Houses != nil {
		for i, cusp := range c.Houses.Cusps {
			if math.IsNaN(cusp) || math.IsInf(cusp, 0) || cusp < 0 || cusp >= 360 {
				return fmt.Errorf("chart: cusp %d longitude %v out of range", i+1, cusp)
			}
		}
	}
	for _, a := range c.Aspects {
		if !aspect.ValidType(a.Type) {
			return fmt.Errorf("chart: unknown aspect type %q", a.Type)
		}
		if a.BodyA >= a.BodyB {
			return fmt.Errorf("chart: aspect pair %q/%q not in lexical order", a.BodyA, a.BodyB)
		}
		if a.Orb < 0 || math.IsNaN(a.Orb) {
			return fmt.Errorf("chart: aspect %s-%s orb %v invalid", a.BodyA, a.BodyB, a.Orb)
		}
	}
	return nil
}

func validKey(k string) bool {
	for _, key := range astro.PointOrder {
		if k == key {
			return true
		}
	}
	return false
}
