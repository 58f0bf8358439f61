package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"promptlab/internal/config"
	"promptlab/internal/logger"
	"promptlab/internal/services"
)

// Server exposes the template library and the prompt handlers over HTTP
type Server struct {
	cfg        *config.Config
	templates  services.TemplateService
	registry   *services.HandlerRegistry
	httpServer *http.Server
}

// New creates the HTTP server with all routes registered
func New(cfg *config.Config, templates services.TemplateService, registry *services.HandlerRegistry) *Server {
	s := &Server{
		cfg:       cfg,
		templates: templates,
		registry:  registry,
	}

	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api.HandleFunc("/templates", s.handleListTemplates).Methods(http.MethodGet)
	api.HandleFunc("/templates", s.handleCreateTemplate).Methods(http.MethodPost)
	api.HandleFunc("/templates/stats", s.handleTemplateStats).Methods(http.MethodGet)
	api.HandleFunc("/templates/{id:[0-9]+}", s.handleGetTemplate).Methods(http.MethodGet)
	api.HandleFunc("/templates/{id:[0-9]+}", s.handleUpdateTemplate).Methods(http.MethodPut)
	api.HandleFunc("/templates/{id:[0-9]+}", s.handleDeleteTemplate).Methods(http.MethodDelete)

	api.HandleFunc("/handlers", s.handleListHandlers).Methods(http.MethodGet)
	api.HandleFunc("/handlers/{id}/execute", s.handleExecute).Methods(http.MethodPost)

	var handler http.Handler = r
	handler = requestLogger(handler)
	if cfg.Server.CORSEnabled {
		handler = corsMiddleware(handler)
	}

	s.httpServer = &http.Server{
		Addr:        cfg.Server.Addr,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// Executions can run for minutes (runCount x provider latency),
		// so the write side gets a much longer budget than usual
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the root handler, used by tests
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start blocks serving HTTP until Shutdown is called
func (s *Server) Start() error {
	logger.Infof("HTTP server listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
