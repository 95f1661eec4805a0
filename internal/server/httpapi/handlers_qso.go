package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/qsolog/internal/common"
	"github.com/dmitrijs2005/qsolog/internal/server/repositories/qsos"
	"github.com/dmitrijs2005/qsolog/internal/server/validation"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const maxBodyBytes = 1 << 20

// pathID returns the {id} route parameter. Stored ids are UUIDs, so anything
// else names no record.
func pathID(r *http.Request) (string, error) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		return "", common.ErrorNotFound
	}
	return id, nil
}

func (s *HTTPServer) decodeQsoRequest(w http.ResponseWriter, r *http.Request) (*qsoRequest, bool) {
	var req qsoRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.writeProblem(w, r, http.StatusBadRequest, "malformed JSON body", nil)
		return nil, false
	}
	return &req, true
}

func (s *HTTPServer) handleCreateQso(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeQsoRequest(w, r)
	if !ok {
		return
	}

	f, errs := req.fields()
	if len(errs) > 0 {
		s.writeProblem(w, r, http.StatusBadRequest, "request validation failed", errs)
		return
	}

	ownerID := userIDFromContext(r.Context())
	q, err := s.svc.Qsos.Create(r.Context(), ownerID, f, req.ConfirmDuplicate)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	s.logger.Info(r.Context(), "qso created", "id", q.ID, "override", req.ConfirmDuplicate)
	w.Header().Set("Location", "/api/v1/qso/"+q.ID)
	s.writeJSON(w, r, http.StatusCreated, newQsoResponse(q))
}

func (s *HTTPServer) handleUpdateQso(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeQsoRequest(w, r)
	if !ok {
		return
	}

	f, errs := req.fields()
	patch, patchErrs := req.statusPatch()
	errs = append(errs, patchErrs...)
	if len(errs) > 0 {
		s.writeProblem(w, r, http.StatusBadRequest, "request validation failed", errs)
		return
	}

	id, err := pathID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	ownerID := userIDFromContext(r.Context())
	q, err := s.svc.Qsos.Update(r.Context(), id, ownerID, f, patch)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	s.writeJSON(w, r, http.StatusOK, newQsoResponse(q))
}

func (s *HTTPServer) handleGetQso(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	q, err := s.svc.Qsos.Get(r.Context(), id, userIDFromContext(r.Context()))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, newQsoResponse(q))
}

func (s *HTTPServer) handleDeleteQso(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if err := s.svc.Qsos.Delete(r.Context(), id, userIDFromContext(r.Context())); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) handleListQsos(w http.ResponseWriter, r *http.Request) {
	dates, errs := dateRange(r)

	page, msg := intParam(r, "page")
	if msg != "" {
		errs = append(errs, msg)
	}
	size, msg := intParam(r, "size")
	if msg != "" {
		errs = append(errs, msg)
	}

	band := strings.TrimSpace(r.URL.Query().Get("band"))
	if band != "" {
		canonical, ok := validation.CanonicalBand(band)
		if !ok {
			errs = append(errs, validation.BandValidationError(band))
		}
		band = canonical
	}

	if len(errs) > 0 {
		s.writeProblem(w, r, http.StatusBadRequest, "invalid query", errs)
		return
	}

	filter := qsos.ListFilter{
		Callsign: strings.TrimSpace(r.URL.Query().Get("callsign")),
		Band:     band,
		Dates:    dates,
		Page:     page,
		Size:     size,
	}

	list, err := s.svc.Qsos.List(r.Context(), userIDFromContext(r.Context()), filter)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	out := make([]qsoResponse, 0, len(list))
	for _, q := range list {
		out = append(out, newQsoResponse(q))
	}
	s.writeJSON(w, r, http.StatusOK, out)
}

func (s *HTTPServer) handleCountQsos(w http.ResponseWriter, r *http.Request) {
	n, err := s.svc.Qsos.Count(r.Context(), userIDFromContext(r.Context()))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, map[string]int64{"count": n})
}
