package pipeline

import (
	"context"
	"log/slog"
	"strings"

	"github.com/couchcryptid/disaster-ingest/internal/domain"
)

// LocationGiven marks a location supplied by the caller.
const LocationGiven = "given"

// AnalyzeResult is the outcome of analysing one free-standing text.
type AnalyzeResult struct {
	Classification domain.Classification `json:"analysis"`
	Location       string                `json:"location,omitempty"`
	LocationSource string                `json:"location_source,omitempty"`
	Coords         *domain.Coordinates   `json:"coordinates,omitempty"`
}

// Analyzer runs classification, location resolution and geocoding for a
// single text without touching the store.
type Analyzer struct {
	classifier *domain.Classifier
	locator    *Locator
	geocoder   domain.Geocoder
	mode       domain.ClassifyMode
	logger     *slog.Logger
}

// NewAnalyzer creates an Analyzer. A nil geocoder leaves Coords empty.
func NewAnalyzer(classifier *domain.Classifier, locator *Locator, geocoder domain.Geocoder, mode domain.ClassifyMode, logger *slog.Logger) *Analyzer {
	return &Analyzer{
		classifier: classifier,
		locator:    locator,
		geocoder:   geocoder,
		mode:       mode,
		logger:     logger,
	}
}

// Analyze never fails; each step degrades to an empty result.
func (a *Analyzer) Analyze(ctx context.Context, text, locationText string) AnalyzeResult {
	res := AnalyzeResult{
		Classification: a.classifier.Classify(ctx, text, a.mode),
	}
	if given := strings.TrimSpace(locationText); given != "" {
		res.Location, res.LocationSource = given, LocationGiven
	} else {
		res.Location, res.LocationSource = a.locator.Resolve(ctx, text, "")
	}
	if res.Location != "" {
		res.Classification.LocationExtracted = res.Location
	}

	if res.Location != "" && a.geocoder != nil {
		if coords, ok := a.geocoder.Geocode(ctx, res.Location); ok {
			res.Coords = &coords
		}
	}
	return res
}
