package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/qsolog/internal/common"
	"github.com/dmitrijs2005/qsolog/internal/server/services"
)

// problem is an RFC 7807 style error body.
type problem struct {
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Status    int       `json:"status"`
	Detail    string    `json:"detail,omitempty"`
	Instance  string    `json:"instance"`
	Timestamp time.Time `json:"timestamp"`
	Errors    []string  `json:"errors,omitempty"`
}

// duplicateResponse is the 409 body of a create that hit existing records.
type duplicateResponse struct {
	Type        string   `json:"type"`
	Message     string   `json:"message"`
	ExistingIDs []string `json:"existingIds"`
}

var problemTypes = map[int]string{
	http.StatusBadRequest:          "validation_error",
	http.StatusUnauthorized:        "unauthorized",
	http.StatusNotFound:            "not_found",
	http.StatusInternalServerError: "internal_error",
	http.StatusGatewayTimeout:      "timeout",
}

func (s *HTTPServer) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error(r.Context(), "encode response", "error", err)
	}
}

func (s *HTTPServer) writeProblem(w http.ResponseWriter, r *http.Request, status int, detail string, errs []string) {
	body := problem{
		Type:      problemTypes[status],
		Title:     http.StatusText(status),
		Status:    status,
		Detail:    detail,
		Instance:  r.URL.Path,
		Timestamp: time.Now().UTC(),
		Errors:    errs,
	}
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error(r.Context(), "encode problem", "error", err)
	}
}

// respondError maps service errors to responses. Unknown errors are logged
// and hidden behind a 500.
func (s *HTTPServer) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		dup  *services.DuplicateError
		mode *services.ModeError
	)

	switch {
	case errors.As(err, &dup):
		s.writeJSON(w, r, http.StatusConflict, duplicateResponse{
			Type:        "duplicate_detected",
			Message:     dup.Error(),
			ExistingIDs: dup.ExistingIDs,
		})
	case errors.As(err, &mode):
		s.writeProblem(w, r, http.StatusBadRequest, err.Error(), mode.Violations)
	case errors.Is(err, common.ErrorValidation):
		s.writeProblem(w, r, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, common.ErrorNotFound):
		s.writeProblem(w, r, http.StatusNotFound, "resource not found", nil)
	case errors.Is(err, common.ErrorUnauthorized), errors.Is(err, common.ErrInvalidToken), errors.Is(err, common.ErrTokenExpired):
		s.writeProblem(w, r, http.StatusUnauthorized, "unauthorized", nil)
	case errors.Is(err, context.DeadlineExceeded):
		s.logger.Warn(r.Context(), "request timed out", "method", r.Method, "path", r.URL.Path)
		s.writeProblem(w, r, http.StatusGatewayTimeout, "request timed out", nil)
	default:
		s.logger.Error(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		s.writeProblem(w, r, http.StatusInternalServerError, "internal error", nil)
	}
}
