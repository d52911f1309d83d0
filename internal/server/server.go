// Package server provides the HTTP API for ragstore.
package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/ragstore/internal/config"
	"github.com/hyperjump/ragstore/internal/ingest"
	"github.com/hyperjump/ragstore/internal/rag"
	"go.uber.org/zap"
)

// WatchService manages watched directories at runtime.
type WatchService interface {
	Directories() []string
	AddDirectory(path string, syncExisting bool) error
	RemoveDirectory(path string) error
}

// Server is the HTTP server for the ragstore API.
//
// Reads go through the orchestrator under the server's locker; writes go through the
// ingester. Both must share one locker (see WithLocker).
type Server struct {
	orch       *rag.Orchestrator
	ingester   *ingest.Ingester
	mu         sync.Locker
	watch      WatchService
	config     *config.Config
	configPath string
	configMu   sync.Mutex
	logger     *zap.Logger
	server     *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithLocker sets the lock guarding the orchestrator. Pass the ingester's locker.
func WithLocker(l sync.Locker) Option {
	return func(s *Server) { s.mu = l }
}

// WithWatch enables the watch directory endpoints.
func WithWatch(w WatchService) Option {
	return func(s *Server) { s.watch = w }
}

// WithConfigPath persists watch directory changes to the config file at path.
func WithConfigPath(path string) Option {
	return func(s *Server) { s.configPath = path }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// NewServer creates a server with the given dependencies.
func NewServer(orch *rag.Orchestrator, ing *ingest.Ingester, cfg *config.Config, opts ...Option) *Server {
	s := &Server{
		orch:     orch,
		ingester: ing,
		config:   cfg,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.mu == nil {
		s.mu = &sync.Mutex{}
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/texts", s.handleAddText)
		r.Post("/search", s.handleSearch)
		r.Post("/context", s.handleContext)
		r.Get("/sources", s.handleSources)
		r.Delete("/store", s.handleClear)
		r.Post("/store/save", s.handleSave)
		r.Post("/store/load", s.handleLoad)
		r.Get("/status", s.handleStatus)
		r.Get("/watch/directories", s.handleWatchDirectoriesList)
		r.Post("/watch/directories", s.handleWatchDirectoriesAdd)
		r.Delete("/watch/directories", s.handleWatchDirectoriesRemove)
	})
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := s.config.Server.Addr()
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
