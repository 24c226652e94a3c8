// Package apperror defines the structured error taxonomy shared by all
// services: a Kind classifying the failure, a human-readable message, and for
// validation failures a field-by-field breakdown. Handlers never map errors
// themselves; the echo HTTPErrorHandler in this package translates kinds to
// HTTP statuses at the boundary.
package apperror

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Kind classifies an application error.
type Kind string

const (
	KindValidation            Kind = "validation"
	KindNotFound              Kind = "not_found"
	KindUnauthenticated       Kind = "unauthenticated"
	KindForbidden             Kind = "forbidden"
	KindConflict              Kind = "conflict"
	KindPredictionUnavailable Kind = "prediction_unavailable"
	KindPartialFailure        Kind = "partial_failure"
	KindInternal              Kind = "internal"
)

// Error is the structured error produced by services. Fields carries
// per-field validation messages; Results carries per-element outcomes of a
// bulk operation that partially succeeded.
type Error struct {
	Kind    Kind              `json:"kind"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
	Results []BulkResult      `json:"results,omitempty"`
	cause   error
}

// BulkResult reports the outcome of one element of a bulk operation.
type BulkResult struct {
	Index  int               `json:"index"`
	ID     int64             `json:"id,omitempty"`
	Error  string            `json:"error,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an error of the given kind that preserves its cause for
// errors.Is/As and logging.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

func NotFound(what string) *Error {
	return &Error{Kind: KindNotFound, Message: what + " not found"}
}

func Unauthenticated(message string) *Error {
	return &Error{Kind: KindUnauthenticated, Message: message}
}

func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

func PredictionUnavailable(message string, cause error) *Error {
	return &Error{Kind: KindPredictionUnavailable, Message: message, cause: cause}
}

func PartialFailure(message string, results []BulkResult) *Error {
	return &Error{Kind: KindPartialFailure, Message: message, Results: results}
}

// Validation creates a validation error from a field map. The message lists
// every violated field, not just the first.
func Validation(fields map[string]string) *Error {
	return &Error{
		Kind:    KindValidation,
		Message: "validation failed",
		Fields:  fields,
	}
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Kind == kind
}

// FieldErrors accumulates per-field validation messages. The zero value is
// ready to use.
type FieldErrors map[string]string

func (f FieldErrors) Add(field, message string) {
	f[field] = message
}

// Err returns a Validation error when any field was recorded, nil otherwise.
func (f FieldErrors) Err() error {
	if len(f) == 0 {
		return nil
	}
	return Validation(f)
}

// statusFor maps an error kind to its HTTP status.
func statusFor(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	case KindPredictionUnavailable:
		return http.StatusBadGateway
	case KindPartialFailure:
		return http.StatusMultiStatus
	default:
		return http.StatusInternalServerError
	}
}

type errorBody struct {
	Error *Error `json:"error"`
}

// HTTPErrorHandler returns an echo error handler that renders *Error values
// as structured JSON and falls back to echo's defaults for everything else.
// Internal errors are logged with their cause but surfaced without it.
func HTTPErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var ae *Error
		if errors.As(err, &ae) {
			if ae.Kind == KindInternal {
				rid, _ := c.Get("request_id").(string)
				logger.Error().Err(err).Str("request_id", rid).Msg("internal error")
				ae = New(KindInternal, "internal server error")
			}
			_ = c.JSON(statusFor(ae.Kind), errorBody{Error: ae})
			return
		}

		var he *echo.HTTPError
		if errors.As(err, &he) {
			msg := fmt.Sprintf("%v", he.Message)
			_ = c.JSON(he.Code, errorBody{Error: &Error{Kind: kindForStatus(he.Code), Message: msg}})
			return
		}

		rid, _ := c.Get("request_id").(string)
		logger.Error().Err(err).Str("request_id", rid).Msg("unhandled error")
		_ = c.JSON(http.StatusInternalServerError,
			errorBody{Error: New(KindInternal, "internal server error")})
	}
}

func kindForStatus(status int) Kind {
	switch status {
	case http.StatusBadRequest:
		return KindValidation
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusUnauthorized:
		return KindUnauthenticated
	case http.StatusForbidden:
		return KindForbidden
	case http.StatusConflict:
		return KindConflict
	default:
		return KindInternal
	}
}
