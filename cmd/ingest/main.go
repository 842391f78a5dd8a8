package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/couchcryptid/disaster-ingest/internal/adapter/http"
	"github.com/couchcryptid/disaster-ingest/internal/config"
	"github.com/couchcryptid/disaster-ingest/internal/domain"
	"github.com/couchcryptid/disaster-ingest/internal/observability"
	"github.com/couchcryptid/disaster-ingest/internal/pipeline"
	"github.com/couchcryptid/disaster-ingest/internal/scheduler"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		slog.Error("failed to load .env", "error", err)
		os.Exit(1)
	}
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	w, err := wire(ctx, cfg, logger, metrics)
	if err != nil {
		logger.Error("failed to initialise service", "error", err)
		os.Exit(1)
	}

	p := pipeline.New(pipeline.Deps{
		Store:      w.store,
		Crawler:    w.crawler,
		Classifier: domain.NewClassifier(w.model, logger),
		Locator:    pipeline.NewLocator(w.extractor, logger),
		Geocoder:   w.geocoder,
		Archiver:   w.archiver,
		Publisher:  w.publisher,
	}, pipeline.Config{
		CandidateLimit:   cfg.CandidateLimit,
		DetailTimeout:    cfg.DetailTimeout,
		MinDate:          cfg.MinPostDate,
		CandidateRetries: 2,
		RetryDelay:       2 * time.Second,
	}, logger, metrics)

	analyzer := pipeline.NewAnalyzer(
		domain.NewClassifier(w.model, logger),
		pipeline.NewLocator(w.extractor, logger),
		w.geocoder,
		domain.ModeModel,
		logger,
	)

	srv := httpadapter.NewServer(cfg.HTTPAddr, httpadapter.Deps{
		Ready:    p,
		Runner:   p,
		Store:    w.store,
		Analyzer: analyzer,
		Routes:   w.routes,
	}, logger)

	var sched *scheduler.Scheduler
	if cfg.IngestSchedule != "" {
		sched, err = scheduler.New(cfg.IngestSchedule, p, logger)
		if err != nil {
			logger.Error("invalid INGEST_SCHEDULE", "error", err)
			w.close(logger)
			os.Exit(1)
		}
		sched.Start()
	} else {
		logger.Info("scheduled ingestion disabled")
	}

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if sched != nil {
		if err := sched.Stop(shutdownCtx); err != nil {
			logger.Error("scheduler stop error", "error", err)
		}
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	w.close(logger)

	logger.Info("shutdown complete")
}
