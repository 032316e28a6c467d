package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"zerobudget/internal/auth"
	"zerobudget/internal/core"
)

// decodeJSON reads a single JSON document from the request body into dst.
// Unknown fields and trailing data are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return core.NewValidationError("body", "request body is empty")
		case errors.As(err, &maxErr):
			return core.NewValidationError("body", fmt.Sprintf("request body exceeds %d bytes", maxErr.Limit))
		default:
			return core.NewValidationError("body", "malformed JSON: "+err.Error())
		}
	}
	if dec.More() {
		return core.NewValidationError("body", "request body must contain a single JSON value")
	}
	return nil
}

// parseInt parses a required integer path or query value.
func parseInt(field, raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, core.NewValidationError(field, "must be an integer")
	}
	return n, nil
}

// periodFromPath reads {year} and {month} path values.
func periodFromPath(r *http.Request) (year, month int, err error) {
	if year, err = parseInt("year", r.PathValue("year")); err != nil {
		return 0, 0, err
	}
	if month, err = parseInt("month", r.PathValue("month")); err != nil {
		return 0, 0, err
	}
	return year, month, core.ValidateMonth(year, month)
}

// periodFromQuery reads optional ?year=&month=. Both or neither must be set;
// zero values mean no period.
func periodFromQuery(r *http.Request) (year, month int, err error) {
	q := r.URL.Query()
	rawYear, rawMonth := strings.TrimSpace(q.Get("year")), strings.TrimSpace(q.Get("month"))
	if rawYear == "" && rawMonth == "" {
		return 0, 0, nil
	}
	if rawYear == "" || rawMonth == "" {
		return 0, 0, core.NewValidationError("period", "year and month must be given together")
	}
	if year, err = parseInt("year", rawYear); err != nil {
		return 0, 0, err
	}
	if month, err = parseInt("month", rawMonth); err != nil {
		return 0, 0, err
	}
	return year, month, core.ValidateMonth(year, month)
}

// ownerID is the authenticated owner; handlers only run behind auth.Middleware.
func ownerID(r *http.Request) string {
	return auth.OwnerFromContext(r.Context())
}
