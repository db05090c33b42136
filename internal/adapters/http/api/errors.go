package api

import (
	"errors"
	"net/http"

	"github.com/okian/fantasycricket/internal/domain/model"
)

// Request-level failures raised by the handlers themselves.
var (
	ErrBadRequest    = model.NewReason(model.ErrInvalidInput, "bad_request", "request body is not valid JSON")
	ErrBadQuery      = model.NewReason(model.ErrInvalidInput, "bad_query", "query parameter is invalid")
	ErrUnauthorized  = errors.New("admin token missing or wrong")
	ErrAdminDisabled = errors.New("admin routes are disabled")
	ErrMissingUserID = model.NewReason(model.ErrInvalidInput, "missing_user_id", "user_id is required")
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// statusFor maps an error kind to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrPrecondition), errors.Is(err, model.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrAdminDisabled):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// codeFor returns the reason code, or a generic one per status.
func codeFor(err error, status int) string {
	if code := model.CodeOf(err); code != "" {
		return code
	}
	switch status {
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusBadRequest:
		return "invalid_input"
	case http.StatusConflict:
		return "conflict"
	case http.StatusGatewayTimeout:
		return "timeout"
	}
	return "internal_error"
}
