package httpapi

import (
	"errors"
	"net/http"

	"github.com/tinoosan/spendlog/internal/errs"
)

// errorResponse is the standard error payload for the API.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeErr(w http.ResponseWriter, status int, msg, code string) {
	toJSON(w, status, errorResponse{Error: msg, Code: code})
}

func badRequest(w http.ResponseWriter, msg, code string) { writeErr(w, http.StatusBadRequest, msg, code) }
func notFound(w http.ResponseWriter)                     { writeErr(w, http.StatusNotFound, "not_found", "not_found") }
func unprocessable(w http.ResponseWriter, msg string) {
	writeErr(w, http.StatusUnprocessableEntity, msg, "validation_error")
}

// internalError hides storage details from the client; the cause is logged.
func (s *Server) internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	s.log.ErrorContext(r.Context(), op+" failed", "req_id", reqID(r), "err", err)
	writeErr(w, http.StatusInternalServerError, "internal_error", "internal_error")
}

// writeServiceErr maps service errors onto HTTP statuses.
func (s *Server) writeServiceErr(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		notFound(w)
	case errors.Is(err, errs.ErrInvalid):
		unprocessable(w, err.Error())
	default:
		s.internalError(w, r, op, err)
	}
}
