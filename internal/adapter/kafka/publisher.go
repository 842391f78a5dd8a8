package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/disaster-ingest/internal/config"
	"github.com/couchcryptid/disaster-ingest/internal/domain"
	"github.com/couchcryptid/disaster-ingest/internal/observability"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher produces one message per persisted post to a Kafka topic.
// It implements pipeline.Publisher.
type Publisher struct {
	writer   messageWriter
	imageURL func(key string) string
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithImageURL resolves archived image keys to public URLs, sent in the
// image_url header.
func WithImageURL(resolve func(key string) string) Option {
	return func(p *Publisher) { p.imageURL = resolve }
}

// NewPublisher creates a Kafka producer for the configured topic.
func NewPublisher(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger, opts ...Option) *Publisher {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	p := &Publisher{writer: w, metrics: metrics, logger: logger}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PublishPost serializes a persisted post with its analysis. Messages are
// keyed by post URL so updates to one post stay in one partition.
func (p *Publisher) PublishPost(ctx context.Context, post domain.PostWithAnalysis) error {
	var imageURL string
	if p.imageURL != nil && post.ImageKey != "" {
		imageURL = p.imageURL(post.ImageKey)
	}
	msg, err := serializeToMessage(post, imageURL)
	if err != nil {
		p.metrics.PublishedEvents.WithLabelValues("error").Inc()
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.metrics.PublishedEvents.WithLabelValues("error").Inc()
		return fmt.Errorf("publish post %s: %w", post.URL, err)
	}
	p.metrics.PublishedEvents.WithLabelValues("success").Inc()
	p.logger.Debug("published post", "post_url", post.URL)
	return nil
}

// Close flushes pending writes and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals a post into a Kafka message. An empty imageURL
// omits the image_url header.
func serializeToMessage(post domain.PostWithAnalysis, imageURL string) (kafkago.Message, error) {
	data, err := json.Marshal(post)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize post: %w", err)
	}
	headers := []kafkago.Header{
		{Key: "processed_at", Value: []byte(post.ProcessedAt.Format(time.RFC3339))},
	}
	if post.Analysis != nil {
		headers = append(headers,
			kafkago.Header{Key: "severity", Value: []byte(post.Analysis.Severity)},
			kafkago.Header{Key: "disaster_type", Value: []byte(post.Analysis.DisasterType)},
		)
	}
	if imageURL != "" {
		headers = append(headers, kafkago.Header{Key: "image_url", Value: []byte(imageURL)})
	}
	return kafkago.Message{
		Key:     []byte(post.URL),
		Value:   data,
		Headers: headers,
	}, nil
}
