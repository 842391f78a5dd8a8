package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
)

// Store backends.
const (
	StoreMemory    = "memory"
	StoreFirestore = "firestore"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string        `env:"HTTP_ADDR" envDefault:":8080"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat       string        `env:"LOG_FORMAT" envDefault:"json"`
	// Read through the shared parser in Load.
	ShutdownTimeout time.Duration

	StoreBackend        string `env:"STORE_BACKEND" envDefault:"memory"`
	FirebaseProjectID   string `env:"FIREBASE_PROJECT_ID"`
	FirebaseCredentials string `env:"FIREBASE_CREDENTIALS"`

	// Google geocoding configuration.
	GoogleMapsAPIKey string        `env:"GOOGLE_MAPS_API_KEY"`
	GeocodeCacheTTL  time.Duration `env:"GEOCODE_CACHE_TTL" envDefault:"24h"`
	GeocodeTimeout   time.Duration `env:"GEOCODE_TIMEOUT" envDefault:"5s"`

	// OpenAI-compatible model configuration. An empty key disables the model paths.
	OpenAIAPIKey  string   `env:"OPENAI_API_KEY"`
	OpenAIBaseURL string   `env:"OPENAI_BASE_URL"`
	OpenAIModels  []string `env:"OPENAI_MODELS" envDefault:"gpt-4o-mini" envSeparator:","`

	CrawlerEnabled  bool    `env:"CRAWLER_ENABLED" envDefault:"false"`
	CrawlerBin      string  `env:"CRAWLER_BIN"`
	CrawlerUsername string  `env:"CRAWLER_USERNAME"`
	CrawlerPassword string  `env:"CRAWLER_PASSWORD"`
	CrawlerRate     float64 `env:"CRAWLER_RATE" envDefault:"0.5"`

	CandidateLimit int           `env:"CANDIDATE_LIMIT" envDefault:"10"`
	DetailTimeout  time.Duration `env:"DETAIL_TIMEOUT" envDefault:"45s"`
	MinPostDate    time.Time     `env:"MIN_POST_DATE" envDefault:"2024-11-25T00:00:00Z"`
	IngestSchedule string        `env:"INGEST_SCHEDULE"`

	// KAFKA_BROKERS, read through the shared parser in Load. Empty disables publishing.
	KafkaBrokers []string
	KafkaTopic   string   `env:"KAFKA_TOPIC" envDefault:"disaster-posts"`

	// R2 image archive. An empty bucket disables archiving.
	R2Bucket          string `env:"R2_BUCKET"`
	R2Endpoint        string `env:"R2_ENDPOINT"`
	R2AccessKeyID     string `env:"R2_ACCESS_KEY_ID"`
	R2SecretAccessKey string `env:"R2_SECRET_ACCESS_KEY"`
	R2PublicBaseURL   string `env:"R2_PUBLIC_BASE_URL"`
}

// LoadDotEnv loads variables from .env into the process environment without
// overriding values that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	cfg.ShutdownTimeout, err = sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}
	cfg.KafkaBrokers = sharedcfg.ParseBrokers(os.Getenv("KAFKA_BROKERS"))
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.GeocodeTimeout <= 0 {
		return errors.New("GEOCODE_TIMEOUT must be positive")
	}
	if c.GeocodeCacheTTL <= 0 {
		return errors.New("GEOCODE_CACHE_TTL must be positive")
	}
	if c.DetailTimeout <= 0 {
		return errors.New("DETAIL_TIMEOUT must be positive")
	}
	if c.CandidateLimit < 1 || c.CandidateLimit > 50 {
		return fmt.Errorf("CANDIDATE_LIMIT must be between 1 and 50, got %d", c.CandidateLimit)
	}
	if c.CrawlerRate <= 0 {
		return errors.New("CRAWLER_RATE must be positive")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL %q is not one of debug, info, warn, error", c.LogLevel)
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("LOG_FORMAT %q is not one of json, text", c.LogFormat)
	}
	switch c.StoreBackend {
	case StoreMemory:
	case StoreFirestore:
		if c.FirebaseProjectID == "" {
			return errors.New("STORE_BACKEND is firestore but FIREBASE_PROJECT_ID is not set")
		}
	default:
		return fmt.Errorf("STORE_BACKEND %q is not one of memory, firestore", c.StoreBackend)
	}
	if len(c.OpenAIModels) == 0 {
		return errors.New("OPENAI_MODELS must name at least one model")
	}
	if c.R2Bucket != "" && c.R2Endpoint == "" {
		return errors.New("R2_BUCKET is set but R2_ENDPOINT is not")
	}
	return nil
}

// GeocodingEnabled reports whether a geocoding backend is configured.
func (c *Config) GeocodingEnabled() bool { return c.GoogleMapsAPIKey != "" }

// ModelEnabled reports whether the model-based extraction and classification paths are configured.
func (c *Config) ModelEnabled() bool { return c.OpenAIAPIKey != "" }

// ArchiveEnabled reports whether post images are copied to R2.
func (c *Config) ArchiveEnabled() bool { return c.R2Bucket != "" }

// PublishEnabled reports whether persisted posts are published to Kafka.
func (c *Config) PublishEnabled() bool { return len(c.KafkaBrokers) > 0 }
