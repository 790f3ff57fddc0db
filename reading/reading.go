// Package reading defines the generated-reading schema and the generation
// provider strategies.
//
// Generation is treated as an untrusted structured-output call: the response
// must match the fixed schema exactly (Validate), and the caller re-derives
// and overwrites every canonical fact afterwards. Two interchangeable
// strategies exist — a remote HTTP generation service and the Gemini API —
// selected once at configuration time.
package reading

import (
	"context"
	"errors"
	"fmt"

	"github.com/hazyhaar/natal/canon"
	"github.com/hazyhaar/natal/chart"
)

// ErrSchema marks a generation response that does not match the Reading
// schema. Callers distinguish it from transport failures with errors.Is.
var ErrSchema = errors.New("reading: response does not match schema")

// Paradox is the tension/gift pair of a reading.
type Paradox struct {
	Tension string `json:"tension"`
	Gift    string `json:"gift"`
}

// Reading is the fixed output schema of the generation call.
type Reading struct {
	Title         string         `json:"title"`
	BigThree      canon.BigThree `json:"bigThree"`
	Snapshot      string         `json:"snapshot"`
	CoreThemes    []string       `json:"coreThemes"`
	Strengths     []string       `json:"strengths"`
	Shadows       []string       `json:"shadows"`
	Relationships string         `json:"relationships"`
	CareerCalling string         `json:"careerCalling"`
	GrowthKeys    []string       `json:"growthKeys"`
	Paradox       Paradox        `json:"paradox"`
	Mantra        string         `json:"mantra"`
	Disclaimer    string         `json:"disclaimer"`
}

// Context is the grounding context passed into generation.
type Context struct {
	TimeUnknown bool           `json:"timeUnknown"`
	HouseSystem string         `json:"houseSystem"`
	Zodiac      string         `json:"zodiac"`
	BigThree    canon.BigThree `json:"canonicalBigThree"`
}

// Request is one generation call.
type Request struct {
	Name       string            `json:"name,omitempty"`
	Context    Context           `json:"context"`
	Placements []canon.Placement `json:"placements"`
	Chart      *chart.Chart      `json:"chart"`
}

// Generator is one generation strategy.
type Generator interface {
	Name() string
	Generate(ctx context.Context, req *Request) (*Reading, error)
}

// Validate checks a decoded reading against the schema contract. A missing
// field or an out-of-range list length is a hard failure — the pipeline
// never repairs generation output beyond the canonical-mention rewrite.
func Validate(r *Reading) error {
	if r == nil {
		return fmt.Errorf("%w: nil reading", ErrSchema)
	}
	required := []struct{ name, v string }{
		{"title", r.Title},
		{"snapshot", r.Snapshot},
		{"relationships", r.Relationships},
		{"careerCalling", r.CareerCalling},
		{"paradox.tension", r.Paradox.Tension},
		{"paradox.gift", r.Paradox.Gift},
		{"mantra", r.Mantra},
		{"disclaimer", r.Disclaimer},
	}
	for _, f := range required {
		if f.v == "" {
			return fmt.Errorf("%w: missing %s", ErrSchema, f.name)
		}
	}
	lists := []struct {
		name     string
		items    []string
		min, max int
	}{
		{"coreThemes", r.CoreThemes, 3, 6},
		{"strengths", r.Strengths, 3, 6},
		{"shadows", r.Shadows, 3, 6},
		{"growthKeys", r.GrowthKeys, 3, 5},
	}
	for _, l := range lists {
		if len(l.items) < l.min || len(l.items) > l.max {
			return fmt.Errorf("%w: %s has %d items, want %d-%d", ErrSchema, l.name, len(l.items), l.min, l.max)
		}
		for i, item := range l.items {
			if item == "" {
				return fmt.Errorf("%w: %s[%d] is empty", ErrSchema, l.name, i)
			}
		}
	}
	return nil
}
