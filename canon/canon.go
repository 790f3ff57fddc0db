// CLAUDE:SUMMARY Canonical big-three/placement derivation and regex guardrail that rewrites wrong sign mentions in prose.
// Package canon derives the canonical chart facts that generated prose must
// never contradict, and rewrites prose that does.
//
// Facts are computed purely from chart longitudes — no model involvement —
// and flow in two directions: into the generation call as grounding context,
// and over the generated text afterwards as a correction pass. Generation
// output is advisory prose, never authoritative data.
package canon

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/hazyhaar/natal/astro"
	"github.com/hazyhaar/natal/chart"
)

// BigThree is the single source of truth for the sun/moon/rising signs.
// Rising is nil when the birth time is unknown.
type BigThree struct {
	Sun    string  `json:"sun"`
	Moon   string  `json:"moon"`
	Rising *string `json:"rising"`
}

// Placement is one body's derived sign position.
type Placement struct {
	Body   string  `json:"body"`
	Sign   string  `json:"sign"`
	Degree float64 `json:"degree"` // position within the sign, [0,30)
}

// DeriveBigThree computes the canonical sun/moon/rising signs from chart
// longitudes. Rising is omitted when the birth time is unknown or the
// ascendant is absent.
func DeriveBigThree(c *chart.Chart, timeUnknown bool) (*BigThree, error) {
	sun, ok := c.Points[astro.Sun]
	if !ok {
		return nil, fmt.Errorf("canon: chart has no sun")
	}
	moon, ok := c.Points[astro.Moon]
	if !ok {
		return nil, fmt.Errorf("canon: chart has no moon")
	}
	bt := &BigThree{
		Sun:  astro.SignName(sun),
		Moon: astro.SignName(moon),
	}
	if asc, ok := c.Points[astro.Asc]; ok && !timeUnknown {
		rising := astro.SignName(asc)
		bt.Rising = &rising
	}
	return bt, nil
}

// DerivePlacements computes sign placements for every present point, in the
// fixed point order.
func DerivePlacements(c *chart.Chart) []Placement {
	out := make([]Placement, 0, len(c.Points))
	for _, key := range astro.PointOrder {
		lon, ok := c.Points[key]
		if !ok {
			continue
		}
		out = append(out, Placement{
			Body:   key,
			Sign:   astro.SignName(lon),
			Degree: astro.Round(astro.DegreeInSign(lon)),
		})
	}
	return out
}

// signAlternation is "aries|taurus|..." for the mention regexes.
var signAlternation = func() string {
	names := make([]string, len(astro.Signs))
	for i, s := range astro.Signs {
		names[i] = strings.ToLower(s)
	}
	return strings.Join(names, "|")
}()

var (
	sunMoonMention = regexp.MustCompile(`(?i)\b(` + signAlternation + `)(\s+)(sun|moon)\b`)
	risingMention  = regexp.MustCompile(`(?i)\b(` + signAlternation + `)(\s+)(rising|ascendant)\b`)
)

// EnforceCanonicalMentions rewrites any zodiac-sign name immediately
// followed by "sun"/"moon" (and, when the birth time is known,
// "rising"/"ascendant") to the canonical sign. Idempotent: corrected text
// passes through unchanged.
func EnforceCanonicalMentions(text string, bt *BigThree, timeUnknown bool) string {
	if text == "" || bt == nil {
		return text
	}
	out := sunMoonMention.ReplaceAllStringFunc(text, func(m string) string {
		sub := sunMoonMention.FindStringSubmatch(m)
		canonical := bt.Sun
		if strings.EqualFold(sub[3], "moon") {
			canonical = bt.Moon
		}
		return canonical + sub[2] + sub[3]
	})
	if !timeUnknown && bt.Rising != nil {
		out = risingMention.ReplaceAllStringFunc(out, func(m string) string {
			sub := risingMention.FindStringSubmatch(m)
			return *bt.Rising + sub[2] + sub[3]
		})
	}
	return out
}

// EnforceAll applies EnforceCanonicalMentions to every string in texts,
// returning corrected copies in order.
func EnforceAll(texts []string, bt *BigThree, timeUnknown bool) []string {
	out := make([]string, len(texts))
	for i, s := range texts {
		out[i] = EnforceCanonicalMentions(s, bt, timeUnknown)
	}
	return out
}
