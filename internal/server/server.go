// Package server exposes the two HTTP endpoints that drive the redaction
// pipeline: document upload and report retrieval.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/pagemask/pagemask/internal/config"
	"github.com/pagemask/pagemask/internal/logger"
	"github.com/pagemask/pagemask/internal/pipeline"
	"github.com/pagemask/pagemask/internal/report"
)

// Ingestor runs the document pipeline over a stored upload.
type Ingestor interface {
	Ingest(path string) (*pipeline.DocumentResult, error)
}

// DocumentStore persists ingestion results and serves the retrieval query.
type DocumentStore interface {
	SaveDocument(ctx context.Context, filename string, doc *pipeline.DocumentResult) (int64, error)
	ReportEntries(ctx context.Context) ([]report.Entry, error)
}

// Server represents the main HTTP server
type Server struct {
	config   *config.Config
	logger   *logger.Logger
	ingestor Ingestor
	store    DocumentStore
	limiter  *clientLimiter
	router   *mux.Router
	server   *http.Server
}

// New creates a new server instance
func New(cfg *config.Config, log *logger.Logger, ingestor Ingestor, store DocumentStore) (*Server, error) {
	if err := os.MkdirAll(cfg.Server.UploadDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	server := &Server{
		config:   cfg,
		logger:   log.WithComponent("server"),
		ingestor: ingestor,
		store:    store,
		router:   mux.NewRouter(),
	}

	if cfg.RateLimit.Enabled {
		server.limiter = newClientLimiter(cfg.RateLimit.RequestsPerSec, cfg.RateLimit.Burst)
	}

	server.setupRoutes()

	server.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      server.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return server, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	// Health check endpoint
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	// Pipeline endpoints
	api := s.router.PathPrefix("/api").Subrouter()
	api.Use(s.loggingMiddleware)
	api.Handle("/upload", s.rateLimitMiddleware(http.HandlerFunc(s.handleUpload))).Methods("POST")
	api.HandleFunc("/report", s.handleReport).Methods("GET")

	// Redacted page images
	s.router.PathPrefix("/out/redacted_images/").Handler(
		http.StripPrefix("/out/redacted_images/",
			http.FileServer(http.Dir(s.config.Pipeline.OutputDir))),
	).Methods("GET")
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("Starting pagemask server",
		zap.Int("port", s.config.Server.Port),
		zap.String("upload_dir", s.config.Server.UploadDir),
		zap.String("output_dir", s.config.Pipeline.OutputDir),
	)

	return s.server.ListenAndServe()
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping pagemask server")
	return s.server.Shutdown(ctx)
}

// Router exposes the handler tree, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"healthy","timestamp":"%s"}`, time.Now().Format(time.RFC3339))
}
