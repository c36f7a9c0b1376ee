// Package respond writes JSON bodies and maps application errors to HTTP
// statuses.
package respond

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/standingcat/event-api/internal/apperr"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// JSON sends payload with the given status code.
func JSON(w http.ResponseWriter, code int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error","code":"INTERNAL_ERROR"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(body)
}

func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Status maps err onto an HTTP status code.
func Status(err error) int {
	switch {
	case errors.Is(err, apperr.ErrUserNotFound),
		errors.Is(err, apperr.ErrEventNotFound),
		errors.Is(err, apperr.ErrEnrollmentNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrUsernameTaken),
		errors.Is(err, apperr.ErrEmailTaken),
		errors.Is(err, apperr.ErrAlreadyEnrolled),
		errors.Is(err, apperr.ErrCapacityExceeded),
		errors.Is(err, apperr.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrUnauthenticated),
		errors.Is(err, apperr.ErrInvalidCredentials),
		errors.Is(err, apperr.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, apperr.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, apperr.ErrInfrastructure):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Error writes err with the status Status picks.
func Error(w http.ResponseWriter, logger *zap.Logger, err error) {
	ErrorWithStatus(w, logger, Status(err), err)
}

// ErrorWithStatus writes err with an explicit status. Domain errors are
// expected outcomes and are only logged at debug.
func ErrorWithStatus(w http.ResponseWriter, logger *zap.Logger, code int, err error) {
	msg := err.Error()
	if logger != nil {
		if apperr.IsDomain(err) {
			logger.Debug("request rejected", zap.Int("status", code), zap.Error(err))
		} else {
			logger.Error("request failed", zap.Int("status", code), zap.Error(err))
		}
	}
	if !apperr.IsDomain(err) {
		// Internal detail stays in the log.
		msg = http.StatusText(code)
	}
	JSON(w, code, ErrorResponse{Error: msg, Code: apperr.Code(err)})
}
