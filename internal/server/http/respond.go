package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/ivmalkov/deal-pipeline/internal/errs"
)

// apiError is the error body shape shared by all endpoints.
type apiError struct {
	Status    int       `json:"status"`
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Path      string    `json:"path"`
	Timestamp time.Time `json:"timestamp"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeErr(w http.ResponseWriter, r *http.Request, status int, label, msg string) {
	writeJSON(w, status, apiError{
		Status:    status,
		Error:     label,
		Message:   msg,
		Path:      r.URL.Path,
		Timestamp: time.Now().UTC(),
	})
}

func writeBadRequest(w http.ResponseWriter, r *http.Request, msg string) {
	writeErr(w, r, http.StatusBadRequest, "Bad Request", msg)
}

// mapError translates the service error taxonomy onto HTTP statuses. Refresh
// token lifecycle subtypes keep their distinct messages; login failures stay
// undifferentiated.
func mapError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, errs.ErrUnauthorized):
		writeErr(w, r, http.StatusUnauthorized, "Unauthorized", "invalid username or password")
	case errors.Is(err, errs.ErrRateLimited):
		writeErr(w, r, http.StatusTooManyRequests, "Too Many Requests", "too many failed logins, try again later")
	case errors.Is(err, errs.ErrTokenNotFound),
		errors.Is(err, errs.ErrTokenRevoked),
		errors.Is(err, errs.ErrTokenExpired),
		errors.Is(err, errs.ErrIdentityNotFound),
		errors.Is(err, errs.ErrTokenInvalid):
		writeErr(w, r, http.StatusUnauthorized, "Unauthorized", err.Error())
	case errors.Is(err, errs.ErrInvalidInput):
		writeErr(w, r, http.StatusBadRequest, "Bad Request", err.Error())
	case errors.Is(err, errs.ErrAccessDenied):
		writeErr(w, r, http.StatusForbidden, "Access Denied", "not allowed")
	case errors.Is(err, errs.ErrNotFound):
		writeErr(w, r, http.StatusNotFound, "Resource Not Found", "not found")
	case errors.Is(err, errs.ErrAlreadyExists):
		writeErr(w, r, http.StatusConflict, "Conflict", "already exists")
	default:
		writeErr(w, r, http.StatusInternalServerError, "Internal Server Error", "internal error")
	}
}
