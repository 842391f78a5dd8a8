package pipeline

import (
	"context"
	"log/slog"
	"strings"

	"github.com/couchcryptid/disaster-ingest/internal/domain"
)

// Location sources, in priority order.
const (
	LocationFromModel = "model"
	LocationFromPage  = "page"
	LocationFromRules = "rules"
)

type locateInput struct {
	text  string
	given string
}

// Locator picks one place name per post: the model extractor when
// configured, then the location text the page already carried, then the
// rule extractor.
type Locator struct {
	model  domain.LocationExtractor
	rules  domain.LocationExtractor
	logger *slog.Logger
}

// NewLocator creates a Locator. A nil model skips the model step.
func NewLocator(model domain.LocationExtractor, logger *slog.Logger) *Locator {
	return &Locator{model: model, rules: domain.RuleExtractor{}, logger: logger}
}

// Resolve returns the chosen location and which step produced it, or two
// empty strings when nothing matched.
func (l *Locator) Resolve(ctx context.Context, text, given string) (string, string) {
	strategies := make([]domain.Strategy[locateInput, string], 0, 3)
	if l.model != nil {
		strategies = append(strategies, domain.Strategy[locateInput, string]{
			Name: LocationFromModel,
			Try:  extractWith(l.model),
		})
	}
	strategies = append(strategies,
		domain.Strategy[locateInput, string]{
			Name: LocationFromPage,
			Try: func(_ context.Context, in locateInput) (string, bool, error) {
				given := strings.TrimSpace(in.given)
				return given, given != "", nil
			},
		},
		domain.Strategy[locateInput, string]{
			Name: LocationFromRules,
			Try:  extractWith(l.rules),
		},
	)

	location, source, ok := domain.FirstMatch(ctx, l.logger, locateInput{text: text, given: given}, strategies...)
	if !ok {
		return "", ""
	}
	return location, source
}

func extractWith(e domain.LocationExtractor) func(context.Context, locateInput) (string, bool, error) {
	return func(ctx context.Context, in locateInput) (string, bool, error) {
		if strings.TrimSpace(in.text) == "" {
			return "", false, nil
		}
		loc, err := e.ExtractLocation(ctx, in.text)
		if err != nil {
			return "", false, err
		}
		return loc, loc != "", nil
	}
}
