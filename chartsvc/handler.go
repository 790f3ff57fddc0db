// CLAUDE:SUMMARY HTTP surface of the chart service: request validation, build dispatch, error envelopes.
// Package chartsvc is the chart computation service: an HTTP and MCP surface
// over the chart builder. It validates inbound requests, runs the build, and
// returns the chart JSON unmodified (scrubbing for unknown birth times is the
// caller's concern).
package chartsvc

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/hazyhaar/natal/aspect"
	"github.com/hazyhaar/natal/chart"
)

// Request is the POST /v1/chart body.
type Request struct {
	DatetimeUTC string             `json:"datetimeUtc" validate:"required,datetime=2006-01-02T15:04:05Z"`
	Lat         float64            `json:"lat" validate:"min=-90,max=90"`
	Lon         float64            `json:"lon" validate:"min=-180,max=180"`
	Zodiac      string             `json:"zodiac" validate:"required,oneof=tropical"`
	HouseSystem string             `json:"houseSystem" validate:"required,oneof=placidus wholeSign"`
	Aspects     *aspect.Tolerances `json:"aspects,omitempty"`
}

// HandlerConfig holds dependencies for creating a Handler.
type HandlerConfig struct {
	Builder *chart.Builder
	// Orbs are the aspect tolerances used when a request does not carry its own.
	Orbs   aspect.Tolerances
	Logger *slog.Logger
}

// Handler serves the chart computation API.
type Handler struct {
	builder  *chart.Builder
	orbs     aspect.Tolerances
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler creates a Handler with the given dependencies.
func NewHandler(cfg HandlerConfig) *Handler {
	h := &Handler{
		builder:  cfg.Builder,
		orbs:     cfg.Orbs,
		validate: validator.New(),
		logger:   cfg.Logger,
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	return h
}

// Routes returns the chi router for the chart service.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", h.handleHealthz)
	r.Post("/v1/chart", h.handleChart)
	return r
}

func (h *Handler) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (h *Handler) handleChart(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	orbs := h.orbs
	if req.Aspects != nil {
		orbs = *req.Aspects
	}

	c, err := h.builder.Build(r.Context(), chart.Input{
		DatetimeUTC: req.DatetimeUTC,
		Lat:         req.Lat,
		Lon:         req.Lon,
		Zodiac:      req.Zodiac,
		HouseSystem: req.HouseSystem,
		Tolerances:  orbs,
	})
	if err != nil {
		var cerr *chart.ComputationError
		if errors.As(err, &cerr) {
			h.logger.Error("chartsvc: computation failed", "error", err)
			writeError(w, http.StatusBadGateway, "EPHEMERIS_ERROR", "chart computation failed")
			return
		}
		h.logger.Error("chartsvc: build failed", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(c)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"code": code, "error": msg})
}
