package httpapi

import (
	"iter"
	"mime"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/qsolog/internal/server/export"
	"github.com/dmitrijs2005/qsolog/internal/server/services"
)

// handleExport streams the caller's log in format. Nothing is committed to
// the client until the first record (or the end of the stream) arrives, so
// query failures still produce a proper error response. Failures after that
// abort the connection.
func (s *HTTPServer) handleExport(format export.Format) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dates, errs := dateRange(r)
		if len(errs) > 0 {
			s.writeProblem(w, r, http.StatusBadRequest, "invalid query", errs)
			return
		}

		ctx := r.Context()
		ownerID := userIDFromContext(ctx)

		next, stop := iter.Pull2(s.svc.Exports.Stream(ctx, ownerID, format, dates))
		defer stop()

		var head []string
		for len(head) < 2 {
			chunk, err, ok := next()
			if !ok {
				break
			}
			if err != nil {
				s.respondError(w, r, err)
				return
			}
			head = append(head, chunk)
		}

		filename := services.Filename(services.FilePrefix, dates, format.Extension())
		w.Header().Set("Content-Type", format.ContentType())
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
		w.WriteHeader(http.StatusOK)

		if _, err := w.Write([]byte(strings.Join(head, ""))); err != nil {
			return
		}

		for {
			chunk, err, ok := next()
			if !ok {
				break
			}
			if err != nil {
				s.logger.Error(ctx, "export aborted", "format", format, "error", err)
				panic(http.ErrAbortHandler)
			}
			if _, err := w.Write([]byte(chunk)); err != nil {
				s.logger.Warn(ctx, "export client gone", "error", err)
				return
			}
		}
	}
}

func (s *HTTPServer) handleCreateArchive(w http.ResponseWriter, r *http.Request) {
	dates, errs := dateRange(r)

	format := export.FormatADIF
	if v := r.URL.Query().Get("format"); v != "" {
		f, err := export.ParseFormat(v)
		if err != nil {
			errs = append(errs, err.Error())
		}
		format = f
	}
	if len(errs) > 0 {
		s.writeProblem(w, r, http.StatusBadRequest, "invalid query", errs)
		return
	}

	res, err := s.svc.Exports.Archive(r.Context(), userIDFromContext(r.Context()), format, dates)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	s.writeJSON(w, r, http.StatusCreated, newArchiveResultResponse(res))
}

func (s *HTTPServer) handleListArchives(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.Exports.ListArchives(r.Context(), userIDFromContext(r.Context()))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	out := make([]archiveResponse, 0, len(list))
	for _, a := range list {
		out = append(out, newArchiveResponse(a))
	}
	s.writeJSON(w, r, http.StatusOK, out)
}

func (s *HTTPServer) handleGetArchive(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	res, err := s.svc.Exports.ArchiveURL(r.Context(), userIDFromContext(r.Context()), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, newArchiveResultResponse(res))
}
