package http

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MediaChallengeInitiative/love-facts-stickers-sub000/internal/core/ports/driving"
)

// Pinger is a simple health check interface
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	version    string
	logger     *slog.Logger

	// Services
	imageService   driving.ImageService
	syncService    driving.SyncService
	webhookService driving.WebhookService

	// Infrastructure
	db       Pinger // PostgreSQL health check
	lock     Pinger // Redis lock health check (optional)
	gatherer prometheus.Gatherer
	admin    *AdminMiddleware
	cors     *CORSMiddleware
}

// Config holds server configuration
type Config struct {
	Host    string
	Port    int
	Version string

	// AdminTokenHash is the bcrypt hash of the admin token. Empty leaves
	// admin endpoints open.
	AdminTokenHash string

	// AllowedOrigins for CORS; empty disables CORS headers.
	AllowedOrigins []string

	// Gatherer backs /metrics (default: prometheus.DefaultGatherer).
	Gatherer prometheus.Gatherer

	Logger *slog.Logger
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:    "0.0.0.0",
		Port:    8080,
		Version: "dev",
	}
}

// NewServer creates a new HTTP server
func NewServer(
	cfg Config,
	imageService driving.ImageService,
	syncService driving.SyncService,
	webhookService driving.WebhookService,
	db Pinger,
	lock Pinger, // can be nil
) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		router:         http.NewServeMux(),
		version:        cfg.Version,
		logger:         logger,
		imageService:   imageService,
		syncService:    syncService,
		webhookService: webhookService,
		db:             db,
		lock:           lock,
		gatherer:       gatherer,
		admin:          NewAdminMiddleware(cfg.AdminTokenHash, logger),
		cors:           NewCORSMiddleware(cfg.AllowedOrigins),
	}

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the router wrapped in the global middleware chain.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.router
	h = s.cors.Handler(h)
	h = NewLoggingMiddleware(s.logger).Handler(h)
	h = NewRecoveryMiddleware(s.logger).Handler(h)
	return h
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	// Health endpoints (no auth)
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)
	s.router.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	s.router.HandleFunc("GET /swagger/doc.json", s.handleSwaggerDoc)

	// Image proxy (public). /{fileId} is the form stored in sticker URLs.
	s.router.HandleFunc("GET /{fileId}", s.handleImage)
	s.router.HandleFunc("GET /i/{fileId}", s.handleImage)
	s.router.HandleFunc("GET /api/images/{fileId}", s.handleImage)

	// Drive push notifications (public, verified by channel token)
	s.router.HandleFunc("POST /api/v1/webhooks/drive", s.handleDriveWebhook)
	s.router.HandleFunc("GET /api/v1/webhooks/drive", s.handleWebhookChallenge)

	// Sync endpoints
	s.router.HandleFunc("GET /api/v1/sync/status", s.handleSyncStatus)
	s.router.Handle("POST /api/v1/sync",
		s.admin.RequireAdmin(http.HandlerFunc(s.handleTriggerSync)))
	s.router.Handle("GET /api/v1/sync/runs",
		s.admin.RequireAdmin(http.HandlerFunc(s.handleListSyncRuns)))

	// Admin endpoints
	s.router.Handle("POST /api/v1/images/cache/clear",
		s.admin.RequireAdmin(http.HandlerFunc(s.handleClearImageCache)))
	s.router.Handle("POST /api/v1/webhooks/drive/register",
		s.admin.RequireAdmin(http.HandlerFunc(s.handleRegisterWebhook)))
}

// Start starts the HTTP server with graceful shutdown
func (s *Server) Start() error {
	// Channel to listen for OS signals
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting server on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-stop:
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Println("Server stopped")
	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
