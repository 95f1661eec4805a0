package httpapi

import (
	"net/http"
	"strings"

	"github.com/dmitrijs2005/qsolog/internal/server/lookup"
	"github.com/go-chi/chi/v5"
)

func (s *HTTPServer) handlePing(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, map[string]string{"status": "OK"})
}

func (s *HTTPServer) handleStatsSummary(w http.ResponseWriter, r *http.Request) {
	dates, errs := dateRange(r)
	if len(errs) > 0 {
		s.writeProblem(w, r, http.StatusBadRequest, "invalid query", errs)
		return
	}

	sum, err := s.svc.Stats.Summary(r.Context(), userIDFromContext(r.Context()), dates)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, newStatsResponse(sum))
}

func (s *HTTPServer) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	callsign := strings.TrimSpace(chi.URLParam(r, "callsign"))
	if callsign == "" {
		s.writeProblem(w, r, http.StatusBadRequest, "callsign is required", nil)
		return
	}

	sug, err := s.svc.Suggestions.Suggest(r.Context(), userIDFromContext(r.Context()), callsign)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, newSuggestionResponse(sug))
}

// handleLookup answers from the external callsign directory. Unknown
// callsigns and directory outages are both a 404.
func (s *HTTPServer) handleLookup(w http.ResponseWriter, r *http.Request) {
	callsign := lookup.Normalize(chi.URLParam(r, "callsign"))
	if callsign == "" {
		s.writeProblem(w, r, http.StatusBadRequest, "callsign is required", nil)
		return
	}

	res, err := s.svc.Lookup.Lookup(r.Context(), callsign)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, newLookupResponse(res))
}
