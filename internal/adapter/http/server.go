package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/disaster-ingest/internal/domain"
	"github.com/couchcryptid/disaster-ingest/internal/pipeline"
)

// Runner triggers one ingestion run.
type Runner interface {
	Run(ctx context.Context) (domain.RunSummary, error)
}

// TextAnalyzer analyses a single free-standing text.
type TextAnalyzer interface {
	Analyze(ctx context.Context, text, locationText string) pipeline.AnalyzeResult
}

// Deps are the collaborators behind the API routes. Routes is optional; the
// route endpoint answers 503 without it.
type Deps struct {
	Ready    sharedobs.ReadinessChecker
	Runner   Runner
	Store    domain.Store
	Analyzer TextAnalyzer
	Routes   domain.RoutePlanner
}

// Server exposes the ingestion API plus health, readiness, and metrics
// endpoints.
type Server struct {
	httpServer *http.Server
	deps       Deps
	logger     *slog.Logger

	// runCtx outlives individual requests so a client disconnect does not
	// abort a run; Shutdown cancels it.
	runCtx   context.Context
	stopRuns context.CancelFunc
}

// NewServer creates the HTTP server and registers every route.
func NewServer(addr string, deps Deps, logger *slog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	runCtx, stopRuns := context.WithCancel(context.Background())
	s := &Server{
		httpServer: &http.Server{
			Addr:        addr,
			Handler:     router,
			ReadTimeout: 10 * time.Second,
			// Ingest runs answer synchronously and can take minutes.
			WriteTimeout: 30 * time.Minute,
			IdleTimeout:  60 * time.Second,
		},
		deps:     deps,
		logger:   logger,
		runCtx:   runCtx,
		stopRuns: stopRuns,
	}

	router.GET("/healthz", gin.WrapF(sharedobs.LivenessHandler()))
	router.GET("/readyz", gin.WrapF(sharedobs.ReadinessHandler(deps.Ready)))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		api.POST("/ingest/run", s.handleRun)
		api.GET("/posts", s.handlePosts)
		api.GET("/areas", s.handleAreas)
		api.POST("/analyze", s.handleAnalyze)
		api.GET("/routes", s.handleRoute)
		api.GET("/sources", s.handleListSources)
		api.POST("/sources", s.handleAddSource)
		api.DELETE("/sources", s.handleDeactivateSource)
	}

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown cancels any in-flight run triggered over HTTP, then drains
// connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.stopRuns()
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
