// Package server exposes the triage pipeline over HTTP.
package server

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kapu/nyaay-triage-go/internal/constants"
	"github.com/kapu/nyaay-triage-go/internal/domain"
	"go.uber.org/zap"
)

// Triager is the pipeline as seen by the handlers.
type Triager interface {
	Triage(ctx context.Context, query domain.Query) (*domain.TriageResult, error)
}

// HealthFunc reports component status for GET /healthz.
type HealthFunc func() map[string]any

type Config struct {
	Addr               string
	RequestTimeout     time.Duration
	MaxAudioBytes      int64
	MaxQueryLength     int
	CORSAllowedOrigins []string
	RateLimitPerSecond float64
	RateLimitBurst     int
}

type Server struct {
	cfg        Config
	pipeline   Triager
	health     HealthFunc
	router     *gin.Engine
	httpServer *http.Server
	logger     *zap.Logger
}

func New(cfg Config, pipeline Triager, health HealthFunc, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxAudioBytes <= 0 {
		cfg.MaxAudioBytes = constants.HTTPLimits.MaxAudioBytes
	}
	if cfg.MaxQueryLength <= 0 {
		cfg.MaxQueryLength = constants.HTTPLimits.MaxQueryLength
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = []string{"*"}
	}

	s := &Server{
		cfg:      cfg,
		pipeline: pipeline,
		health:   health,
		logger:   logger,
	}
	s.router = s.routes()
	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() *gin.Engine {
	router := gin.New()
	router.Use(
		gin.Recovery(),
		requestIDMiddleware(),
		loggingMiddleware(s.logger),
		corsMiddleware(s.cfg.CORSAllowedOrigins),
	)
	if s.cfg.RateLimitPerSecond > 0 {
		router.Use(newIPRateLimiter(s.cfg.RateLimitPerSecond, s.cfg.RateLimitBurst).middleware())
	}

	router.GET("/", s.handleRoot)
	router.GET("/healthz", s.handleHealth)
	router.POST("/chat/", s.handleChat)
	router.POST("/chat", s.handleChat)

	return router
}

// Handler returns the routed engine, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start blocks until the listener fails or Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("HTTP server listening", zap.String("addr", s.cfg.Addr))

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server failed: %w", err)
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("HTTP server shutting down")
	return s.httpServer.Shutdown(ctx)
}
