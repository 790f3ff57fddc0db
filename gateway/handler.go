package gateway

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/hazyhaar/natal/audit"
	"github.com/hazyhaar/natal/kit"
)

// Request is the POST /v1/reading body.
type Request struct {
	Name        string `json:"name" validate:"omitempty,max=120"`
	BirthDate   string `json:"birthDate" validate:"required,datetime=2006-01-02"`
	BirthTime   string `json:"birthTime" validate:"omitempty,datetime=15:04"`
	TimeUnknown bool   `json:"timeUnknown"`
	BirthPlace  string `json:"birthPlace" validate:"required,max=200"`
	HouseSystem string `json:"houseSystem" validate:"required,oneof=placidus wholeSign"`
	Zodiac      string `json:"zodiac" validate:"required,oneof=tropical"`
}

// Handler serves the gateway API.
type Handler struct {
	service  *Service
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler creates a Handler for the given pipeline service.
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		service:  service,
		validate: validator.New(),
		logger:   logger,
	}
}

// HandleHealthz is the liveness endpoint.
func (h *Handler) HandleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// HandleReading runs the full reading pipeline for one request.
func (h *Handler) HandleReading(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, validationError("malformed JSON body", nil))
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		h.writeError(w, validationError("invalid request", fieldErrors(err)))
		return
	}
	if !req.TimeUnknown && req.BirthTime == "" {
		h.writeError(w, validationError("invalid request",
			map[string]string{"birthTime": "required unless timeUnknown is true"}))
		return
	}

	result, perr := h.service.ProcessReading(r.Context(), &Input{
		Name:        req.Name,
		BirthDate:   req.BirthDate,
		BirthTime:   req.BirthTime,
		TimeUnknown: req.TimeUnknown,
		BirthPlace:  req.BirthPlace,
		HouseSystem: req.HouseSystem,
		Zodiac:      req.Zodiac,
	})
	if perr != nil {
		h.logger.Warn("gateway: pipeline failed",
			"code", perr.Code,
			"trace_id", kit.GetTraceID(r.Context()),
			"error", perr.Error())
		h.writeError(w, perr)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// HandleAudit serves the ops query surface over the audit trail. Filters:
// ?component=, ?operation=, ?status=, ?limit= (default 100, capped at 500).
func (h *Handler) HandleAudit(w http.ResponseWriter, r *http.Request) {
	log := h.service.Audit()
	if log == nil {
		h.writeError(w, &Error{Code: CodeConfig, Status: http.StatusNotFound, Message: "audit trail is not configured"})
		return
	}

	f := &audit.Filter{Limit: 100}
	q := r.URL.Query()
	if v := q.Get("component"); v != "" {
		f.Component = &v
	}
	if v := q.Get("operation"); v != "" {
		f.Operation = &v
	}
	if v := q.Get("status"); v != "" {
		f.Status = &v
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			h.writeError(w, validationError("limit must be an integer in [1,500]", nil))
			return
		}
		f.Limit = n
	}

	entries, err := log.Query(r.Context(), f)
	if err != nil {
		h.logger.Error("gateway: audit query failed", "error", err)
		h.writeError(w, &Error{Code: CodeInternal, Status: http.StatusInternalServerError, Message: "audit query failed"})
		return
	}
	if entries == nil {
		entries = []*audit.Entry{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"entries": entries})
}

func (h *Handler) writeError(w http.ResponseWriter, e *Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.Status)
	json.NewEncoder(w).Encode(e.Envelope())
}

// fieldErrors flattens validator violations into a field → constraint map.
func fieldErrors(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = fe.Tag()
	}
	return out
}
