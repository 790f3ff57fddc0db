package geocode

import (
	"fmt"

	"github.com/ringsaturn/tzf"
)

// TZF is the embedded-data coordinate→timezone lookup. Construction parses
// the bundled polygon set once; share a single instance per process.
type TZF struct {
	finder tzf.F
}

// NewTZF builds the timezone finder from the embedded release data.
func NewTZF() (*TZF, error) {
	f, err := tzf.NewDefaultFinder()
	if err != nil {
		return nil, fmt.Errorf("geocode: timezone finder: %w", err)
	}
	return &TZF{finder: f}, nil
}

// TimezoneName returns the IANA zone for the coordinates, or "" when the
// point falls outside every known zone polygon.
func (t *TZF) TimezoneName(lat, lon float64) string {
	// tzf takes (lng, lat).
	return t.finder.GetTimezoneName(lon, lat)
}
