package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/disaster-ingest/internal/adapter/firestore"
	"github.com/couchcryptid/disaster-ingest/internal/adapter/googlemaps"
	"github.com/couchcryptid/disaster-ingest/internal/adapter/instagram"
	kafkaadapter "github.com/couchcryptid/disaster-ingest/internal/adapter/kafka"
	"github.com/couchcryptid/disaster-ingest/internal/adapter/memstore"
	"github.com/couchcryptid/disaster-ingest/internal/adapter/openai"
	"github.com/couchcryptid/disaster-ingest/internal/adapter/r2"
	"github.com/couchcryptid/disaster-ingest/internal/config"
	"github.com/couchcryptid/disaster-ingest/internal/domain"
	"github.com/couchcryptid/disaster-ingest/internal/observability"
	"github.com/couchcryptid/disaster-ingest/internal/pipeline"
)

// wiring holds the optional backends. Disabled backends stay nil interfaces.
type wiring struct {
	store     domain.Store
	crawler   pipeline.Crawler
	extractor domain.LocationExtractor
	model     domain.ModelClassifier
	geocoder  domain.Geocoder
	routes    domain.RoutePlanner
	archiver  pipeline.Archiver
	publisher pipeline.Publisher

	closers []func() error
}

func wire(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (*wiring, error) {
	w := &wiring{}

	switch cfg.StoreBackend {
	case config.StoreFirestore:
		fs, err := firestore.New(ctx, cfg.FirebaseProjectID, cfg.FirebaseCredentials, logger)
		if err != nil {
			return nil, fmt.Errorf("firestore: %w", err)
		}
		w.store = fs
		w.closers = append(w.closers, fs.Close)
		logger.Info("firestore store enabled", "project", cfg.FirebaseProjectID)
	default:
		w.store = memstore.New()
		logger.Warn("in-memory store enabled, data is lost on restart")
	}

	if cfg.GeocodingEnabled() {
		client, err := googlemaps.NewClient(cfg.GoogleMapsAPIKey, "", cfg.GeocodeTimeout, metrics, logger)
		if err != nil {
			w.close(logger)
			return nil, fmt.Errorf("google maps: %w", err)
		}
		w.geocoder = domain.NewRegionGeocoder(googlemaps.NewCachedSearcher(client, cfg.GeocodeCacheTTL, metrics), logger)
		w.routes = client
		metrics.GeocodeEnabled.Set(1)
		logger.Info("google geocoding enabled", "cache_ttl", cfg.GeocodeCacheTTL, "timeout", cfg.GeocodeTimeout)
	} else {
		metrics.GeocodeEnabled.Set(0)
		logger.Warn("geocoding disabled, posts without stored coordinates will be skipped")
	}

	if cfg.ModelEnabled() {
		client := openai.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModels, metrics, logger)
		w.extractor = client
		w.model = client
		logger.Info("model extraction enabled", "models", cfg.OpenAIModels)
	} else {
		logger.Info("model extraction disabled, using rules and keywords")
	}

	var kafkaOpts []kafkaadapter.Option
	if cfg.ArchiveEnabled() {
		archiver, err := r2.New(ctx, r2.Config{
			Bucket:          cfg.R2Bucket,
			Endpoint:        cfg.R2Endpoint,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		}, metrics, logger)
		if err != nil {
			w.close(logger)
			return nil, fmt.Errorf("r2: %w", err)
		}
		w.archiver = archiver
		kafkaOpts = append(kafkaOpts, kafkaadapter.WithImageURL(archiver.PublicURL))
		logger.Info("image archiving enabled", "bucket", cfg.R2Bucket)
	}

	if cfg.PublishEnabled() {
		publisher := kafkaadapter.NewPublisher(cfg, metrics, logger, kafkaOpts...)
		w.publisher = publisher
		w.closers = append(w.closers, publisher.Close)
		logger.Info("kafka publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	if cfg.CrawlerEnabled {
		crawler, err := instagram.New(instagram.Options{
			Bin:      cfg.CrawlerBin,
			Username: cfg.CrawlerUsername,
			Password: cfg.CrawlerPassword,
			Rate:     cfg.CrawlerRate,
		}, w.store, logger)
		if err != nil {
			w.close(logger)
			return nil, fmt.Errorf("crawler: %w", err)
		}
		w.crawler = crawler
		w.closers = append(w.closers, crawler.Close)
		logger.Info("crawler enabled", "authenticated", cfg.CrawlerUsername != "", "rate", cfg.CrawlerRate)
	} else {
		logger.Warn("crawler disabled, ingestion runs will be rejected")
	}

	return w, nil
}

// close releases backends in reverse order of creation.
func (w *wiring) close(logger *slog.Logger) {
	for i := len(w.closers) - 1; i >= 0; i-- {
		if err := w.closers[i](); err != nil {
			logger.Error("close error", "error", err)
		}
	}
}
