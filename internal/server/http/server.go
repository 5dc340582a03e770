// Package httpserver provides the HTTP REST API of the book content service.
package httpserver

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/helixir/book-content-service/internal/database"
	"github.com/helixir/book-content-service/internal/domain"
	"github.com/helixir/book-content-service/internal/temporal"
)

// ContentService resolves and searches books. *content.Service satisfies it.
type ContentService interface {
	GetBookContent(ctx context.Context, q domain.BookQuery, useCache bool) *domain.BookContent
	SearchEducationalBooks(ctx context.Context, query string, subjects []string, gradeLevel string, limit int) []domain.RankedResult
}

// PrewarmClient starts and inspects prewarm workflows. *temporal.PrewarmClient satisfies it.
type PrewarmClient interface {
	StartPrewarm(ctx context.Context, list domain.ReadingList) (string, error)
	PrewarmStatus(ctx context.Context, workflowID string) (*temporal.PrewarmStatus, error)
	CancelPrewarm(ctx context.Context, workflowID string) error
	Health(ctx context.Context) error
}

// DatabaseHealth reports database connectivity. *database.DB satisfies it.
type DatabaseHealth interface {
	Health(ctx context.Context) database.HealthStatus
}

// Server serves the book content REST API.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	content    ContentService
	prewarm    PrewarmClient
	db         DatabaseHealth
	timeout    time.Duration
	logger     zerolog.Logger
}

// Config carries listener and per-request timeouts. A zero RequestTimeout
// leaves API requests unbounded.
type Config struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

// NewServer wires the router. prewarm is nil when Temporal is disabled; db
// is nil when the cache is not backed by PostgreSQL.
func NewServer(cfg Config, content ContentService, prewarm PrewarmClient, db DatabaseHealth, logger zerolog.Logger) *Server {
	s := &Server{
		content: content,
		prewarm: prewarm,
		db:      db,
		timeout: cfg.RequestTimeout,
		logger:  logger.With().Str("component", "http-server").Logger(),
	}
	s.router = s.routes()
	s.httpServer = &http.Server{
		Addr:              cfg.Address,
		Handler:           s.router,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		requestIDMiddleware,
		requestLogger(s.logger),
		jsonContentTypeMiddleware,
	)

	r.Get("/healthz", s.healthHandler)
	r.Get("/readyz", s.readinessHandler)

	r.Route("/api/v1", func(r chi.Router) {
		if s.timeout > 0 {
			r.Use(middleware.Timeout(s.timeout))
		}

		r.Route("/books", func(r chi.Router) {
			r.Get("/content", s.getBookContentQuery)
			r.Post("/content", s.getBookContent)
			r.Get("/search", s.searchBooks)
		})

		r.Route("/reading-lists/prewarm", func(r chi.Router) {
			r.Post("/", s.startPrewarm)
			r.Get("/{workflowID}", s.getPrewarmStatus)
			r.Delete("/{workflowID}", s.cancelPrewarm)
		})
	})

	return r
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on the configured address and serves until Shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("http listen %s: %w", s.httpServer.Addr, err)
	}
	s.logger.Info().Str("address", ln.Addr().String()).Msg("serving API")
	return s.httpServer.Serve(ln)
}

// Shutdown drains in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// healthHandler returns basic liveness status.
func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readinessHandler reports readiness of the database and Temporal when configured.
func (s *Server) readinessHandler(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{"status": "ready"}
	status := http.StatusOK

	if s.db != nil {
		health := s.db.Health(r.Context())
		resp["database"] = health.Status
		if !health.Healthy() {
			resp["database_error"] = health.Error
			status = http.StatusServiceUnavailable
		}
	}

	if s.prewarm != nil {
		if err := s.prewarm.Health(r.Context()); err != nil {
			resp["temporal"] = "unhealthy"
			resp["temporal_error"] = err.Error()
			status = http.StatusServiceUnavailable
		} else {
			resp["temporal"] = "healthy"
		}
	}

	if status != http.StatusOK {
		resp["status"] = "not_ready"
	}
	writeJSON(w, status, resp)
}
