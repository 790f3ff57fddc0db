// CLAUDE:SUMMARY Chart orchestration: Julian Day, concurrent per-body longitude fan-out, houses, aspects.
package chart

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hazyhaar/natal/aspect"
	"github.com/hazyhaar/natal/astro"
	"github.com/hazyhaar/natal/ephem"
)

// ComputationError is the typed failure for chart construction. Any required
// body or house computation failing aborts the build; a partial chart is
// never returned.
type ComputationError struct {
	Cause error
}

func (e *ComputationError) Error() string { return fmt.Sprintf("chart: computation failed: %v", e.Cause) }
func (e *ComputationError) Unwrap() error { return e.Cause }

// Ephemeris is the adapter contract the builder consumes. *ephem.Client
// satisfies it; tests substitute fakes.
type Ephemeris interface {
	Name() string
	JulianDay(ctx context.Context, datetimeUTC string) (float64, error)
	PlanetLongitude(ctx context.Context, jd float64, body string) (float64, error)
	HousesPlacidus(ctx context.Context, jd, lat, lon float64) (*ephem.HousesResult, error)
}

// Input is one chart computation request.
type Input struct {
	DatetimeUTC string
	Lat         float64
	Lon         float64
	Zodiac      string
	HouseSystem string
	Tolerances  aspect.Tolerances
}

// BuilderConfig holds dependencies for creating a Builder.
type BuilderConfig struct {
	Ephemeris Ephemeris
	Logger    *slog.Logger
	// Now is the clock used for meta.generatedAt. Default: time.Now.
	Now func() time.Time
}

// Builder orchestrates a full chart computation: Julian Day conversion,
// concurrent per-body longitude fan-out, house resolution, aspect detection.
type Builder struct {
	eph    Ephemeris
	logger *slog.Logger
	now    func() time.Time
}

// NewBuilder creates a Builder with the given dependencies.
func NewBuilder(cfg BuilderConfig) *Builder {
	b := &Builder{
		eph:    cfg.Ephemeris,
		logger: cfg.Logger,
		now:    cfg.Now,
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	if b.now == nil {
		b.now = time.Now
	}
	return b
}

// Build computes a chart for the given input. Per-body longitude requests and
// the house computation run concurrently; the first required failure cancels
// the remaining branches and aborts with *ComputationError. The chiron branch
// is optional: its failure maps to absence, never to a chart-level failure.
func (b *Builder) Build(ctx context.Context, in Input) (*Chart, error) {
	jd, err := b.eph.JulianDay(ctx, in.DatetimeUTC)
	if err != nil {
		return nil, &ComputationError{Cause: err}
	}

	var (
		mu     sync.Mutex
		points = make(map[string]float64, len(astro.PointOrder))
		houses *ephem.HousesResult
	)

	g, gctx := errgroup.WithContext(ctx)

	for _, body := range astro.RequiredBodies {
		g.Go(func() error {
			lon, err := b.eph.PlanetLongitude(gctx, jd, body)
			if err != nil {
				return err
			}
			mu.Lock()
			points[body] = lon
			mu.Unlock()
			return nil
		})
	}

	g.Go(func() error {
		h, err := b.eph.HousesPlacidus(gctx, jd, in.Lat, in.Lon)
		if err != nil {
			return err
		}
		mu.Lock()
		houses = h
		mu.Unlock()
		return nil
	})

	// Optional branch: chiron failure becomes absence.
	g.Go(func() error {
		lon, err := b.eph.PlanetLongitude(gctx, jd, astro.Chiron)
		if err != nil {
			b.logger.Debug("chart: chiron unavailable", "error", err)
			return nil
		}
		mu.Lock()
		points[astro.Chiron] = lon
		mu.Unlock()
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, &ComputationError{Cause: err}
	}

	points[astro.Asc] = houses.Ascendant
	points[astro.MC] = houses.Midheaven

	cusps := ResolveCusps(in.HouseSystem, houses.Cusps, houses.Ascendant)
	aspects := aspect.Detect(points, in.Tolerances)

	c := &Chart{
		Meta: Meta{
			DatetimeUTC: in.DatetimeUTC,
			JDUT:        jd,
			Lat:         in.Lat,
			Lon:         in.Lon,
			Zodiac:      in.Zodiac,
			HouseSystem: in.HouseSystem,
			Ephemeris:   b.eph.Name(),
			GeneratedAt: b.now().UTC().Format(time.RFC3339),
		},
		Points:  points,
		Houses:  &Houses{Cusps: cusps},
		Aspects: aspects,
	}

	b.logger.Info("chart: built",
		"jd_ut", jd,
		"points", len(points),
		"aspects", len(aspects),
		"house_system", in.HouseSystem)

	return c, nil
}
