package utils

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/KAsare1/Dentora-server/cmd/logging"
)

// Error kinds. Services wrap them with a user-facing message via NewError and
// handlers turn them into status codes with WriteError.
var (
	ErrValidation      = errors.New("validation failed")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
)

// Error is a domain error whose message is safe to show to callers.
type Error struct {
	Kind    error
	Message string
}

func NewError(kind error, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

// Status maps an error to its HTTP status code.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// WriteError writes {"error": msg}. Errors without a domain kind are logged
// and reported as a generic internal error.
func WriteError(w http.ResponseWriter, r *http.Request, log logging.Logger, err error) {
	status := Status(err)
	msg := "Internal server error"

	var de *Error
	if status != http.StatusInternalServerError && errors.As(err, &de) {
		msg = de.Message
	} else if status == http.StatusInternalServerError {
		log.Error(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	}

	WriteJSON(w, status, map[string]string{"error": msg})
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
