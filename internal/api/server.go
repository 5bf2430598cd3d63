// Package api exposes the matcher over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/eshaffer321/invoice-matcher/internal/api/handlers"
	"github.com/eshaffer321/invoice-matcher/internal/api/middleware"
	"github.com/eshaffer321/invoice-matcher/internal/infrastructure/storage"
)

// Config holds API server configuration.
type Config struct {
	Port           int
	AllowedOrigins []string // Empty allows every origin
	UploadLimit    int64    // Bytes, 0 disables the check
	IndexPath      string
}

// DefaultConfig returns sensible defaults for the API server.
func DefaultConfig() Config {
	return Config{
		Port:        5000,
		UploadLimit: 10 << 20,
		IndexPath:   "index.html",
	}
}

// Server is the HTTP API server.
type Server struct {
	config     Config
	router     *gin.Engine
	httpServer *http.Server
	logger     *slog.Logger
	processor  handlers.Processor
	history    storage.RunRepository
}

// NewServer creates a new API server.
// If history is nil, run history endpoints will not be available.
func NewServer(cfg Config, processor handlers.Processor, history storage.RunRepository, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		config:    cfg,
		router:    gin.New(),
		logger:    logger,
		processor: processor,
		history:   history,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// setupMiddleware configures global middleware.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID())
	s.router.Use(middleware.Recovery(s.logger))

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowedOrigins = s.config.AllowedOrigins
	s.router.Use(middleware.CORS(corsConfig))

	// Request logging
	s.router.Use(middleware.Logging(s.logger))
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	// Health check (no /api prefix - for load balancers)
	healthHandler := handlers.NewHealthHandler()
	s.router.GET("/health", healthHandler.Get)

	indexHandler := handlers.NewIndexHandler(s.config.IndexPath)
	s.router.GET("/", indexHandler.Get)

	processHandler := handlers.NewProcessHandler(s.processor, s.config.UploadLimit)
	s.router.POST("/process", processHandler.Process)

	if s.history != nil {
		runsHandler := handlers.NewRunsHandler(s.history)
		api := s.router.Group("/api")
		{
			api.GET("/runs", runsHandler.List)
			api.GET("/runs/:id", runsHandler.Get)
		}
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)

	s.httpServer = &http.Server{
		Addr:        addr,
		Handler:     s.router,
		ReadTimeout: 60 * time.Second,
		// Large ledgers can take a while to match
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting API server", "addr", addr)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")

	if s.httpServer == nil {
		return nil
	}

	return s.httpServer.Shutdown(ctx)
}

// Router returns the gin engine for testing.
func (s *Server) Router() *gin.Engine {
	return s.router
}
