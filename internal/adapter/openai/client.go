// Package openai adapts an OpenAI-compatible chat completion API to the
// model paths of location extraction and disaster classification.
package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/couchcryptid/disaster-ingest/internal/domain"
	"github.com/couchcryptid/disaster-ingest/internal/observability"
)

// Call kinds used as the metrics label.
const (
	kindLocation = "location"
	kindClassify = "classify"
)

// ErrEmptyAnswer is returned when a model answers with no choices.
var ErrEmptyAnswer = errors.New("model returned no choices")

// Client implements domain.LocationExtractor and domain.ModelClassifier.
// Models are tried in order until one answers.
type Client struct {
	api     *goopenai.Client
	models  []string
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewClient creates a model client. baseURL overrides the API endpoint when
// non-empty, which also allows OpenAI-compatible gateways.
func NewClient(apiKey, baseURL string, models []string, metrics *observability.Metrics, logger *slog.Logger) *Client {
	cfg := goopenai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return &Client{
		api:     goopenai.NewClientWithConfig(cfg),
		models:  models,
		metrics: metrics,
		logger:  logger,
	}
}

// ExtractLocation asks the model for the most specific place in text. It
// returns "" with a nil error when the model finds none, and an error when no
// model could answer so the caller can fall back to the rule path.
func (c *Client) ExtractLocation(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	answer, err := c.complete(ctx, kindLocation, locationSystemPrompt, locationUserPrompt(text))
	if err != nil {
		return "", err
	}
	return domain.CleanModelLocation(answer), nil
}

// ClassifyText returns the model's raw JSON answer to the analysis prompt.
func (c *Client) ClassifyText(ctx context.Context, text string) (string, error) {
	return c.complete(ctx, kindClassify, analysisSystemPrompt, "Text to analyze:\n\n"+text)
}

func (c *Client) complete(ctx context.Context, kind, system, user string) (string, error) {
	var lastErr error
	for _, model := range c.models {
		resp, err := c.api.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
			Model: model,
			Messages: []goopenai.ChatCompletionMessage{
				{Role: goopenai.ChatMessageRoleSystem, Content: system},
				{Role: goopenai.ChatMessageRoleUser, Content: user},
			},
			Temperature: 0,
		})
		if err == nil && len(resp.Choices) == 0 {
			err = ErrEmptyAnswer
		}
		if err != nil {
			c.metrics.ModelCalls.WithLabelValues(kind, "error").Inc()
			c.logger.Warn("model call failed, trying next model", "kind", kind, "model", model, "error", err)
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			continue
		}
		c.metrics.ModelCalls.WithLabelValues(kind, "success").Inc()
		return strings.TrimSpace(resp.Choices[0].Message.Content), nil
	}
	if lastErr == nil {
		return "", errors.New("no models configured")
	}
	return "", fmt.Errorf("%s: all models failed: %w", kind, lastErr)
}
