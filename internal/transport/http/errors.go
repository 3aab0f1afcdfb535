package http

import (
	"context"
	"errors"
	"net/http"

	"beer-quiz-service/internal/domain"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// classify maps a command error to an HTTP status and a stable client code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound, "session_not_found"
	case errors.Is(err, domain.ErrInvalidFormat):
		return http.StatusUnprocessableEntity, "invalid_format"
	case errors.Is(err, domain.ErrWrongDomain):
		return http.StatusUnprocessableEntity, "wrong_domain"
	case errors.Is(err, domain.ErrInvalidAnswer):
		return http.StatusUnprocessableEntity, "invalid_answer"
	case errors.Is(err, domain.ErrDuplicateEmail):
		return http.StatusConflict, "already_responded"
	case errors.Is(err, domain.ErrSessionBlocked):
		return http.StatusConflict, "session_blocked"
	case errors.Is(err, domain.ErrInvalidStep):
		return http.StatusConflict, "invalid_step"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// newErrorBody prefers the session's user-facing message for client errors
// and hides internal details otherwise.
func newErrorBody(err error, sessionMessage string) (int, errorBody) {
	status, code := classify(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		msg = "internal error"
	} else if sessionMessage != "" && status != http.StatusNotFound {
		msg = sessionMessage
	}
	return status, errorBody{Code: code, Message: msg}
}
