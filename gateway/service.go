// CLAUDE:SUMMARY Reading pipeline state machine: geocode → local-time → chart → scrub → generate → canonical guardrail.
// Package gateway is the public entry point of the natal pipeline. One
// request flows through a fixed state machine: validate → geocode → local
// time conversion → remote chart build → canonical fact derivation →
// guarded reading generation → respond. Any stage failure discards all work
// for the request and surfaces exactly one taxonomy code.
package gateway

import (
	"context"
	"log/slog"
	"time"

	"github.com/hazyhaar/natal/aspect"
	"github.com/hazyhaar/natal/audit"
	"github.com/hazyhaar/natal/canon"
	"github.com/hazyhaar/natal/chart"
	"github.com/hazyhaar/natal/chartsvc"
	"github.com/hazyhaar/natal/geocode"
	"github.com/hazyhaar/natal/kit"
	"github.com/hazyhaar/natal/localtime"
	"github.com/hazyhaar/natal/reading"
)

// Geocoder resolves a birth place. *geocode.Resolver satisfies it.
type Geocoder interface {
	Resolve(ctx context.Context, place string) (*geocode.Result, error)
}

// ChartComputer builds a chart remotely. *chartsvc.Client satisfies it.
type ChartComputer interface {
	Compute(ctx context.Context, req *chartsvc.Request) (*chart.Chart, error)
}

// Input is one validated reading request.
type Input struct {
	Name        string
	BirthDate   string // YYYY-MM-DD
	BirthTime   string // HH:MM, empty when TimeUnknown
	TimeUnknown bool
	BirthPlace  string
	HouseSystem string // "placidus" or "wholeSign"
	Zodiac      string // "tropical"
}

// Meta describes how the result was produced.
type Meta struct {
	TraceID     string  `json:"traceId,omitempty"`
	Place       string  `json:"place"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	Timezone    string  `json:"timezone"`
	DatetimeUTC string  `json:"datetimeUtc"`
	AssumedNoon bool    `json:"assumedNoon"`
	TimeUnknown bool    `json:"timeUnknown"`
	HouseSystem string  `json:"houseSystem"`
	Zodiac      string  `json:"zodiac"`
}

// Result is the success payload of the pipeline.
type Result struct {
	Chart   *chart.Chart     `json:"chart"`
	Reading *reading.Reading `json:"reading"`
	Meta    Meta             `json:"meta"`
}

// ServiceConfig holds dependencies for creating a Service.
type ServiceConfig struct {
	Geocoder  Geocoder
	Charts    ChartComputer
	Generator reading.Generator
	Orbs      aspect.Tolerances

	// Per-stage timeout budgets. Defaults: 7s / 12s / 16s.
	GeocodeTimeout    time.Duration
	ChartTimeout      time.Duration
	GenerationTimeout time.Duration

	Logger *slog.Logger
	// Audit receives best-effort per-stage operation records. Optional.
	Audit *audit.Logger
}

// Service runs the reading pipeline.
type Service struct {
	geocoder   Geocoder
	charts     ChartComputer
	generator  reading.Generator
	orbs       aspect.Tolerances
	geoTimeout time.Duration
	chtTimeout time.Duration
	genTimeout time.Duration
	logger     *slog.Logger
	audit      *audit.Logger
}

// NewService creates a Service with the given dependencies.
func NewService(cfg ServiceConfig) *Service {
	s := &Service{
		geocoder:   cfg.Geocoder,
		charts:     cfg.Charts,
		generator:  cfg.Generator,
		orbs:       cfg.Orbs,
		geoTimeout: cfg.GeocodeTimeout,
		chtTimeout: cfg.ChartTimeout,
		genTimeout: cfg.GenerationTimeout,
		logger:     cfg.Logger,
		audit:      cfg.Audit,
	}
	if s.geoTimeout <= 0 {
		s.geoTimeout = 7 * time.Second
	}
	if s.chtTimeout <= 0 {
		s.chtTimeout = 12 * time.Second
	}
	if s.genTimeout <= 0 {
		s.genTimeout = 16 * time.Second
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Audit exposes the audit trail for the ops query surface. Nil when auditing
// is not configured.
func (s *Service) Audit() *audit.Logger { return s.audit }

// ProcessReading runs the full pipeline for one request.
func (s *Service) ProcessReading(ctx context.Context, in *Input) (*Result, *Error) {
	if s.geocoder == nil || s.charts == nil || s.generator == nil {
		return nil, configError("pipeline dependencies are not configured")
	}

	// Geocode.
	geo, err := s.runGeocode(ctx, in.BirthPlace)
	if err != nil {
		return nil, classify(stageGeocode, err)
	}

	// Local time → UTC.
	conv, err := localtime.Convert(in.BirthDate, in.BirthTime, in.TimeUnknown, geo.Timezone)
	if err != nil {
		return nil, validationError(err.Error(), nil)
	}

	// Remote chart build.
	c, err := s.runChart(ctx, in, geo, conv)
	if err != nil {
		return nil, classify(stageChart, err)
	}

	// Unknown birth time: scrub houses and angles strictly after the build
	// and strictly before generation ever sees the chart.
	if in.TimeUnknown {
		c = chart.Scrub(c)
	}

	// Canonical facts, derived independently of generation.
	bt, err := canon.DeriveBigThree(c, in.TimeUnknown)
	if err != nil {
		return nil, classify(stageChart, err)
	}
	placements := canon.DerivePlacements(c)

	// Generation, treated as untrusted.
	rd, err := s.runGeneration(ctx, in, c, bt, placements)
	if err != nil {
		return nil, classify(stageGenerate, err)
	}

	s.enforceGuardrail(rd, bt, in.TimeUnknown)

	return &Result{
		Chart:   c,
		Reading: rd,
		Meta: Meta{
			TraceID:     kit.GetTraceID(ctx),
			Place:       geo.DisplayName,
			Lat:         geo.Lat,
			Lon:         geo.Lon,
			Timezone:    geo.Timezone,
			DatetimeUTC: conv.UTC,
			AssumedNoon: conv.AssumedNoon,
			TimeUnknown: in.TimeUnknown,
			HouseSystem: in.HouseSystem,
			Zodiac:      in.Zodiac,
		},
	}, nil
}

func (s *Service) runGeocode(ctx context.Context, place string) (*geocode.Result, error) {
	sctx, cancel := context.WithTimeout(ctx, s.geoTimeout)
	defer cancel()

	start := time.Now()
	geo, err := s.geocoder.Resolve(sctx, place)
	s.record(ctx, stageGeocode, "resolve", map[string]string{"place": place}, geo, err, time.Since(start))
	return geo, err
}

func (s *Service) runChart(ctx context.Context, in *Input, geo *geocode.Result, conv *localtime.Conversion) (*chart.Chart, error) {
	sctx, cancel := context.WithTimeout(ctx, s.chtTimeout)
	defer cancel()

	req := &chartsvc.Request{
		DatetimeUTC: conv.UTC,
		Lat:         geo.Lat,
		Lon:         geo.Lon,
		Zodiac:      in.Zodiac,
		HouseSystem: in.HouseSystem,
		Aspects:     &s.orbs,
	}

	start := time.Now()
	c, err := s.charts.Compute(sctx, req)
	s.record(ctx, stageChart, "build", req, nil, err, time.Since(start))
	return c, err
}

func (s *Service) runGeneration(ctx context.Context, in *Input, c *chart.Chart, bt *canon.BigThree, placements []canon.Placement) (*reading.Reading, error) {
	sctx, cancel := context.WithTimeout(ctx, s.genTimeout)
	defer cancel()

	req := &reading.Request{
		Name: in.Name,
		Context: reading.Context{
			TimeUnknown: in.TimeUnknown,
			HouseSystem: in.HouseSystem,
			Zodiac:      in.Zodiac,
			BigThree:    *bt,
		},
		Placements: placements,
		Chart:      c,
	}

	start := time.Now()
	rd, err := s.generator.Generate(sctx, req)
	s.record(ctx, stageGenerate, s.generator.Name(), req.Context, nil, err, time.Since(start))
	return rd, err
}

// enforceGuardrail rewrites non-canonical sign mentions in every free-text
// field and overwrites bigThree with the derived values. Generation output
// is advisory prose, never authoritative data.
func (s *Service) enforceGuardrail(rd *reading.Reading, bt *canon.BigThree, timeUnknown bool) {
	rd.Title = canon.EnforceCanonicalMentions(rd.Title, bt, timeUnknown)
	rd.Snapshot = canon.EnforceCanonicalMentions(rd.Snapshot, bt, timeUnknown)
	rd.Relationships = canon.EnforceCanonicalMentions(rd.Relationships, bt, timeUnknown)
	rd.CareerCalling = canon.EnforceCanonicalMentions(rd.CareerCalling, bt, timeUnknown)
	rd.Mantra = canon.EnforceCanonicalMentions(rd.Mantra, bt, timeUnknown)
	rd.Disclaimer = canon.EnforceCanonicalMentions(rd.Disclaimer, bt, timeUnknown)
	rd.Paradox.Tension = canon.EnforceCanonicalMentions(rd.Paradox.Tension, bt, timeUnknown)
	rd.Paradox.Gift = canon.EnforceCanonicalMentions(rd.Paradox.Gift, bt, timeUnknown)
	rd.CoreThemes = canon.EnforceAll(rd.CoreThemes, bt, timeUnknown)
	rd.Strengths = canon.EnforceAll(rd.Strengths, bt, timeUnknown)
	rd.Shadows = canon.EnforceAll(rd.Shadows, bt, timeUnknown)
	rd.GrowthKeys = canon.EnforceAll(rd.GrowthKeys, bt, timeUnknown)

	rd.BigThree = *bt
}

// record writes a best-effort audit row for one stage call.
func (s *Service) record(ctx context.Context, component, operation string, params, result any, err error, took time.Duration) {
	if s.audit == nil {
		return
	}
	entry := s.audit.NewEntry(component, operation, params, result, err, took)
	entry.TraceID = kit.GetTraceID(ctx)
	entry.Client = kit.GetClient(ctx)
	s.audit.LogAsync(entry)
}
