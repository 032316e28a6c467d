package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"zerobudget/internal/auth"
	"zerobudget/internal/core"
	applog "zerobudget/internal/log"
)

// Error codes returned in ErrorResponse.Code.
const (
	CodeNotFound       = "NOT FOUND"
	CodeInvalidInput   = "INVALID INPUT"
	CodeUnauthorized   = "UNAUTHORIZED"
	CodeRateLimited    = "RATE LIMITED"
	CodeNotImplemented = "NOT IMPLEMENTED"
	CodeUnavailable    = "UNAVAILABLE"
	CodeInternal       = "INTERNAL"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps a service error onto a status code. Internal errors are
// logged and their detail is never sent to the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrValidation):
		writeErrorCode(w, r, http.StatusBadRequest, CodeInvalidInput, err.Error())
	case errors.Is(err, core.ErrNotFound):
		writeErrorCode(w, r, http.StatusNotFound, CodeNotFound, err.Error())
	case errors.Is(err, core.ErrUnauthenticated),
		errors.Is(err, auth.ErrMissingCredentials),
		errors.Is(err, auth.ErrInvalidToken):
		writeErrorCode(w, r, http.StatusUnauthorized, CodeUnauthorized, "authentication required")
	default:
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			applog.FieldError, err,
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
		)
		writeErrorCode(w, r, http.StatusInternalServerError, CodeInternal, "internal error")
	}
}

func writeErrorCode(w http.ResponseWriter, _ *http.Request, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}
