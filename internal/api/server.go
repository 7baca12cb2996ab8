// Package api exposes the read-only status HTTP API for a running
// session. It never mutates session state; control stays with the
// process loop.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"tradedesk/internal/core"
	"tradedesk/internal/events"
	"tradedesk/internal/logging"
	"tradedesk/internal/orchestrator"
)

// SessionReader is the view of the orchestrator the API serves from.
type SessionReader interface {
	SessionSummary() (orchestrator.Summary, bool)
	Alerts() []core.Alert
	Outputs() map[core.StepID]core.AgentOutput
	IsActive() bool
}

// Server serves session status over HTTP.
type Server struct {
	router  chi.Router
	session SessionReader
	bus     *events.Bus
	log     *logging.Logger
}

// ServerOption configures the server.
type ServerOption func(*Server)

// WithLogger sets the server logger.
func WithLogger(log *logging.Logger) ServerOption {
	return func(s *Server) { s.log = log }
}

// WithBus attaches the session event bus, enabling the SSE endpoint.
func WithBus(bus *events.Bus) ServerOption {
	return func(s *Server) { s.bus = bus }
}

// NewServer creates the status API server.
func NewServer(session SessionReader, opts ...ServerOption) *Server {
	s := &Server{
		session: session,
		log:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.setupRouter()
	return s
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.loggingMiddleware)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	})
	r.Use(corsHandler.Handler)

	r.With(middleware.Timeout(30 * time.Second)).Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/session", func(r chi.Router) {
			// The event stream is long-lived; only the JSON endpoints
			// get the request timeout.
			r.Group(func(r chi.Router) {
				r.Use(middleware.Timeout(30 * time.Second))
				r.Get("/", s.handleSummary)
				r.Get("/alerts", s.handleAlerts)
				r.Get("/outputs", s.handleOutputs)
			})
			r.Get("/events", s.handleEvents)
		})
	})

	return r
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			s.log.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status": "healthy",
		"active": s.session.IsActive(),
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, _ *http.Request) {
	summary, ok := s.session.SessionSummary()
	if !ok {
		respondError(w, http.StatusNotFound, "no active session")
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

func (s *Server) handleAlerts(w http.ResponseWriter, _ *http.Request) {
	if _, ok := s.session.SessionSummary(); !ok {
		respondError(w, http.StatusNotFound, "no active session")
		return
	}
	alerts := s.session.Alerts()
	if alerts == nil {
		alerts = []core.Alert{}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"count":  len(alerts),
		"alerts": alerts,
	})
}

func (s *Server) handleOutputs(w http.ResponseWriter, _ *http.Request) {
	if _, ok := s.session.SessionSummary(); !ok {
		respondError(w, http.StatusNotFound, "no active session")
		return
	}

	outputs := s.session.Outputs()
	view := make(map[string]core.AgentOutput, len(outputs))
	for id, out := range outputs {
		view[id.String()] = out
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"count":   len(view),
		"outputs": view,
	})
}

// ListenAndServe starts the HTTP server and shuts it down gracefully
// when the context is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.log.Info("starting status API", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
