// Package httpapi exposes the QSO log over HTTP/JSON with chi.
package httpapi

import (
	"context"
	"errors"
	"iter"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/qsolog/internal/logging"
	"github.com/dmitrijs2005/qsolog/internal/server/config"
	"github.com/dmitrijs2005/qsolog/internal/server/export"
	"github.com/dmitrijs2005/qsolog/internal/server/lookup"
	"github.com/dmitrijs2005/qsolog/internal/server/models"
	"github.com/dmitrijs2005/qsolog/internal/server/repositories/qsos"
	"github.com/dmitrijs2005/qsolog/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type QsoService interface {
	Create(ctx context.Context, ownerID string, f models.QsoFields, confirmDuplicate bool) (*models.Qso, error)
	Update(ctx context.Context, id, ownerID string, f models.QsoFields, patch models.StatusPatch) (*models.Qso, error)
	Delete(ctx context.Context, id, ownerID string) error
	Get(ctx context.Context, id, ownerID string) (*models.Qso, error)
	List(ctx context.Context, ownerID string, f qsos.ListFilter) ([]*models.Qso, error)
	Count(ctx context.Context, ownerID string) (int64, error)
}

type ExportService interface {
	Stream(ctx context.Context, ownerID string, format export.Format, r models.DateRange) iter.Seq2[string, error]
	Archive(ctx context.Context, ownerID string, format export.Format, r models.DateRange) (*services.ArchiveResult, error)
	ListArchives(ctx context.Context, ownerID string) ([]*models.ExportArchive, error)
	ArchiveURL(ctx context.Context, ownerID, id string) (*services.ArchiveResult, error)
}

type StatsService interface {
	Summary(ctx context.Context, ownerID string, r models.DateRange) (*services.StatsSummary, error)
}

type SuggestionsService interface {
	Suggest(ctx context.Context, ownerID, callsign string) (*services.Suggestion, error)
}

type LookupService interface {
	Lookup(ctx context.Context, callsign string) (*lookup.Result, error)
}

// Services bundles the handlers' collaborators.
type Services struct {
	Qsos        QsoService
	Exports     ExportService
	Stats       StatsService
	Suggestions SuggestionsService
	Lookup      LookupService
}

type HTTPServer struct {
	address         string
	logger          logging.Logger
	svc             Services
	jwtSecret       []byte
	requestTimeout  time.Duration
	shutdownTimeout time.Duration
	router          chi.Router
}

func NewHTTPServer(cfg *config.Config, l logging.Logger, svc Services) *HTTPServer {
	s := &HTTPServer{
		address:         cfg.EndpointAddrHTTP,
		logger:          l.With("module", "http_server"),
		svc:             svc,
		jwtSecret:       []byte(cfg.SecretKey),
		requestTimeout:  cfg.RequestTimeout,
		shutdownTimeout: cfg.ShutdownTimeout,
		router:          chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *HTTPServer) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
}

// bounded applies the request timeout. Streaming exports and archive builds
// run as long as the client stays connected, so they are mounted outside it.
func (s *HTTPServer) bounded(r chi.Router) {
	if s.requestTimeout > 0 {
		r.Use(middleware.Timeout(s.requestTimeout))
	}
}

func (s *HTTPServer) setupRoutes() {
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/ping", s.handlePing)

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)

			r.Route("/qso", func(r chi.Router) {
				s.bounded(r)
				r.Post("/", s.handleCreateQso)
				r.Get("/", s.handleListQsos)
				r.Get("/count", s.handleCountQsos)
				r.Get("/{id}", s.handleGetQso)
				r.Put("/{id}", s.handleUpdateQso)
				r.Delete("/{id}", s.handleDeleteQso)
			})

			r.Route("/export", func(r chi.Router) {
				r.Get("/adif", s.handleExport(export.FormatADIF))
				r.Get("/csv", s.handleExport(export.FormatCSV))
				r.Post("/archive", s.handleCreateArchive)

				r.Group(func(r chi.Router) {
					s.bounded(r)
					r.Get("/archives", s.handleListArchives)
					r.Get("/archives/{id}", s.handleGetArchive)
				})
			})

			r.Group(func(r chi.Router) {
				s.bounded(r)
				r.Get("/stats/summary", s.handleStatsSummary)
				r.Get("/suggestions/callsign/{callsign}", s.handleSuggestions)
				r.Get("/lookup/{callsign}", s.handleLookup)
			})
		})
	})
}

// Handler returns the routed handler, e.g. for httptest.
func (s *HTTPServer) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *HTTPServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP server shutdown", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
