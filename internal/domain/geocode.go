package domain

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// RegionGeocoder resolves place names through a PlaceSearcher while rejecting
// every result outside its bounds. Same-named places elsewhere in Indonesia
// are therefore never returned.
type RegionGeocoder struct {
	searcher PlaceSearcher
	bounds   Bounds
	variants []string
	broad    string
	logger   *slog.Logger
}

// NewRegionGeocoder creates a geocoder for the Sumatra target region. A nil
// searcher disables geocoding: every lookup misses.
func NewRegionGeocoder(searcher PlaceSearcher, logger *slog.Logger) *RegionGeocoder {
	return &RegionGeocoder{
		searcher: searcher,
		bounds:   RegionBounds,
		variants: ProvinceVariants,
		broad:    BroadRegion,
		logger:   logger,
	}
}

// Queries lists the backend queries for place in priority order: each
// province variant, then the broad region, then the bare name.
func (g *RegionGeocoder) Queries(place string) []string {
	place = strings.TrimSpace(place)
	queries := make([]string, 0, len(g.variants)+2)
	for _, v := range g.variants {
		queries = append(queries, fmt.Sprintf("%s, %s, Indonesia", place, v))
	}
	queries = append(queries, fmt.Sprintf("%s, %s, Indonesia", place, g.broad), place)
	return queries
}

// Geocode returns the first in-region coordinates found for place. It never
// fails: backend errors are logged and the next query is tried.
func (g *RegionGeocoder) Geocode(ctx context.Context, place string) (Coordinates, bool) {
	place = strings.TrimSpace(place)
	if g.searcher == nil || place == "" || IsGenericPlace(place) {
		return Coordinates{}, false
	}

	queries := g.Queries(place)
	strategies := make([]Strategy[string, Coordinates], 0, len(queries))
	for _, q := range queries {
		strategies = append(strategies, Strategy[string, Coordinates]{
			Name: q,
			Try:  g.tryQuery(q),
		})
	}

	coords, query, ok := FirstMatch(ctx, g.logger, place, strategies...)
	if !ok {
		g.logger.Debug("no in-region geocoding result", "place", place)
		return Coordinates{}, false
	}
	g.logger.Debug("geocoded place", "place", place, "query", query, "lat", coords.Lat, "lng", coords.Lng)
	return coords, true
}

func (g *RegionGeocoder) tryQuery(query string) func(context.Context, string) (Coordinates, bool, error) {
	return func(ctx context.Context, _ string) (Coordinates, bool, error) {
		candidates, err := g.searcher.SearchPlace(ctx, query)
		if err != nil {
			return Coordinates{}, false, fmt.Errorf("geocode %q: %w", query, err)
		}
		for _, c := range candidates {
			if g.bounds.Contains(c.Coords) {
				return c.Coords, true, nil
			}
			g.logger.Debug("discarding out-of-region result",
				"query", query,
				"address", c.FormattedAddress,
				"lat", c.Coords.Lat,
				"lng", c.Coords.Lng,
			)
		}
		return Coordinates{}, false, nil
	}
}
