// Package aspect implements classical aspect detection between chart points.
//
// Detection is fully deterministic: pairs are scanned in the fixed point
// order, the best-fit target is the one with minimum deviation (first listed
// wins an exact tie), and the output is sorted on (bodyA, bodyB, type, orb)
// so identical input always yields identical output.
package aspect

import (
	"sort"

	"github.com/hazyhaar/natal/astro"
)

// Aspect is one detected angular relationship between two chart points.
// BodyA < BodyB under lexical key ordering, so each unordered pair appears
// at most once.
type Aspect struct {
	BodyA string  `json:"bodyA"`
	BodyB string  `json:"bodyB"`
	Type  string  `json:"type"`
	Orb   float64 `json:"orb"`
}

// Tolerances are the admission orbs in degrees. Luminary applies when either
// point of a pair is the Sun or the Moon.
type Tolerances struct {
	Default  float64 `json:"orbDefault" yaml:"orb_default"`
	Luminary float64 `json:"orbLuminary" yaml:"orb_luminary"`
}

// target angles in tie-break priority order: on an exact tie the first
// listed target wins.
var targets = []struct {
	name  string
	angle float64
}{
	{"conjunction", 0},
	{"sextile", 60},
	{"square", 90},
	{"trine", 120},
	{"opposition", 180},
}

// Detect finds the best-fit aspect for every unordered pair of present points
// and keeps those within tolerance. The scan covers astro.PointOrder; keys
// absent from points are skipped.
func Detect(points map[string]float64, tol Tolerances) []Aspect {
	var out []Aspect

	for i := 0; i < len(astro.PointOrder); i++ {
		ka := astro.PointOrder[i]
		la, ok := points[ka]
		if !ok {
			continue
		}
		for j := i + 1; j < len(astro.PointOrder); j++ {
			kb := astro.PointOrder[j]
			lb, ok := points[kb]
			if !ok {
				continue
			}

			sep := astro.AngularDistance(la, lb)

			best := targets[0]
			bestOrb := sep // deviation from conjunction (0°)
			for _, tg := range targets[1:] {
				dev := absf(sep - tg.angle)
				if dev < bestOrb {
					best = tg
					bestOrb = dev
				}
			}

			limit := tol.Default
			if astro.IsLuminary(ka) || astro.IsLuminary(kb) {
				limit = tol.Luminary
			}
			if bestOrb > limit {
				continue
			}

			a, b := ka, kb
			if b < a {
				a, b = b, a
			}
			out = append(out, Aspect{
				BodyA: a,
				BodyB: b,
				Type:  best.name,
				Orb:   astro.Round(bestOrb),
			})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].BodyA != out[j].BodyA {
			return out[i].BodyA < out[j].BodyA
		}
		if out[i].BodyB != out[j].BodyB {
			return out[i].BodyB < out[j].BodyB
		}
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}
		return out[i].Orb < out[j].Orb
	})
	return out
}

// Types returns the recognized aspect type names in tie-break order.
func Types() []string {
	names := make([]string, len(targets))
	for i, tg := range targets {
		names[i] = tg.name
	}
	return names
}

// ValidType reports whether name is a recognized aspect type.
func ValidType(name string) bool {
	for _, tg := range targets {
		if tg.name == name {
			return true
		}
	}
	return false
}

func absf(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
