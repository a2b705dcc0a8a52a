// Package api serves the tours and legs REST API.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fstours/internal/auth"
	"fstours/internal/events"
	"fstours/internal/logging"
	"fstours/internal/tours"
)

// Pinger reports whether the record store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HistoryReader returns recorded change events for one entity key.
type HistoryReader interface {
	History(ctx context.Context, entity, key string) ([]events.Event, error)
}

// Config holds configuration for the API server.
type Config struct {
	Port            int
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	RateLimit       int // mutating requests per IP per minute; 0 disables.
}

// Server provides REST API access to tours and legs.
type Server struct {
	svc     *tours.Service
	checker auth.Checker
	pinger  Pinger
	history HistoryReader
	cfg     Config
}

// Option configures a Server.
type Option func(*Server)

// WithPinger makes /health check the store.
func WithPinger(p Pinger) Option {
	return func(s *Server) { s.pinger = p }
}

// WithHistory enables the history endpoints.
func WithHistory(h HistoryReader) Option {
	return func(s *Server) { s.history = h }
}

// NewServer creates a new API server.
func NewServer(svc *tours.Service, checker auth.Checker, cfg Config, opts ...Option) *Server {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	s := &Server{svc: svc, checker: checker, cfg: cfg}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router returns the HTTP handler with all routes and middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	// Standard middleware.
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.cfg.RequestTimeout))
	r.Use(corsMiddleware)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Get("/", s.handleIndex)
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/tours", func(r chi.Router) {
		r.Get("/", s.handleListTours)
		r.Get("/{id}", s.handleGetTour)
		r.Get("/{id}/legs", s.handleListTourLegs)
		r.Get("/{id}/history", s.handleHistory(events.EntityTour))

		r.Group(func(r chi.Router) {
			r.Use(s.mutating()...)
			r.Post("/", s.handleCreateTour)
			r.Put("/{id}", s.handleUpdateTour)
			r.Delete("/{id}", s.handleDeleteTour)
		})
	})

	r.Route("/legs", func(r chi.Router) {
		r.Get("/", s.handleListLegs)
		r.Get("/{id:[0-9]+}", s.handleGetLeg)
		r.Get("/{id:[0-9]+}/history", s.handleHistory(events.EntityLeg))

		r.Group(func(r chi.Router) {
			r.Use(s.mutating()...)
			r.Post("/", s.handleCreateLeg)
			r.Put("/{id:[0-9]+}", s.handleUpdateLeg)
			r.Delete("/{id:[0-9]+}", s.handleDeleteLeg)
		})
	})

	return r
}

// Run starts the HTTP server and shuts it down gracefully when ctx ends.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(s.cfg.Port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", srv.Addr).Msg("fstours API starting")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logging.Info().Msg("shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
