package gateway

import (
	"context"
	"errors"
	"net/http"

	"github.com/hazyhaar/natal/chartsvc"
	"github.com/hazyhaar/natal/reading"
)

// Stable machine-readable error codes of the reading pipeline. Every failure
// is mapped to exactly one code at the orchestrator boundary.
const (
	CodeValidation      = "VALIDATION_ERROR"
	CodeRateLimited     = "RATE_LIMITED"
	CodeGeocodeFailed   = "GEOCODE_FAILED"
	CodeEphemeris       = "EPHEMERIS_ERROR"
	CodeUpstreamTimeout = "UPSTREAM_TIMEOUT"
	CodeUpstreamInvalid = "UPSTREAM_INVALID_RESPONSE"
	CodeConfig          = "CONFIG_ERROR"
	CodeInternal        = "INTERNAL_ERROR"
)

// Error is the typed pipeline failure: a taxonomy code, the HTTP status it
// surfaces as, and an optional field-level detail payload.
type Error struct {
	Code    string
	Status  int
	Message string
	Details any
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Code + ": " + e.cause.Error()
	}
	return e.Code + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// Envelope is the JSON error body.
type Envelope struct {
	Code    string `json:"code"`
	Message string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// Envelope returns the JSON representation of the error.
func (e *Error) Envelope() Envelope {
	return Envelope{Code: e.Code, Message: e.Message, Details: e.Details}
}

func validationError(msg string, details any) *Error {
	return &Error{Code: CodeValidation, Status: http.StatusBadRequest, Message: msg, Details: details}
}

func configError(msg string) *Error {
	return &Error{Code: CodeConfig, Status: http.StatusInternalServerError, Message: msg}
}

// stage names used in timeout messages and audit rows.
const (
	stageGeocode  = "geocode"
	stageChart    = "chart"
	stageGenerate = "generate"
)

// classify maps a stage failure to its taxonomy entry. Deadline expiry is
// surfaced as a timeout distinct from a provider error; schema mismatches
// from either downstream service are UPSTREAM_INVALID_RESPONSE.
func classify(stage string, err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{
			Code:    CodeUpstreamTimeout,
			Status:  http.StatusGatewayTimeout,
			Message: stage + " timed out",
			cause:   err,
		}
	}

	switch stage {
	case stageGeocode:
		return &Error{
			Code:    CodeGeocodeFailed,
			Status:  http.StatusUnprocessableEntity,
			Message: "could not resolve birth place",
			cause:   err,
		}
	case stageChart:
		if errors.Is(err, chartsvc.ErrInvalidResponse) {
			return &Error{
				Code:    CodeUpstreamInvalid,
				Status:  http.StatusBadGateway,
				Message: "chart service returned an invalid chart",
				cause:   err,
			}
		}
		return &Error{
			Code:    CodeEphemeris,
			Status:  http.StatusBadGateway,
			Message: "chart computation failed",
			cause:   err,
		}
	case stageGenerate:
		if errors.Is(err, reading.ErrSchema) {
			return &Error{
				Code:    CodeUpstreamInvalid,
				Status:  http.StatusBadGateway,
				Message: "generation service returned an invalid reading",
				cause:   err,
			}
		}
		return &Error{
			Code:    CodeInternal,
			Status:  http.StatusInternalServerError,
			Message: "reading generation failed",
			cause:   err,
		}
	}
	return &Error{Code: CodeInternal, Status: http.StatusInternalServerError, Message: "internal error", cause: err}
}
