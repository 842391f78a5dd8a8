package googlemaps

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"googlemaps.github.io/maps"

	"github.com/couchcryptid/disaster-ingest/internal/domain"
	"github.com/couchcryptid/disaster-ingest/internal/observability"
)

// regionBias restricts result ranking to Indonesia.
const regionBias = "id"

// Client implements domain.PlaceSearcher using the Google Geocoding API.
type Client struct {
	maps    *maps.Client
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewClient creates a Google geocoding client. baseURL overrides the API host
// when non-empty.
func NewClient(apiKey, baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) (*Client, error) {
	opts := []maps.ClientOption{
		maps.WithAPIKey(apiKey),
		maps.WithHTTPClient(&http.Client{Timeout: timeout}),
	}
	if baseURL != "" {
		opts = append(opts, maps.WithBaseURL(baseURL))
	}
	mc, err := maps.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("create maps client: %w", err)
	}
	return &Client{maps: mc, metrics: metrics, logger: logger}, nil
}

// SearchPlace runs one forward-geocoding query. A ZERO_RESULTS answer is an
// empty slice; any other non-OK status is an error.
func (c *Client) SearchPlace(ctx context.Context, query string) ([]domain.GeocodeCandidate, error) {
	start := time.Now()
	results, err := c.maps.Geocode(ctx, &maps.GeocodingRequest{
		Address: query,
		Region:  regionBias,
	})
	c.metrics.GeocodeAPIDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.GeocodeRequests.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("geocode request: %w", err)
	}
	if len(results) == 0 {
		c.metrics.GeocodeRequests.WithLabelValues("empty").Inc()
		return []domain.GeocodeCandidate{}, nil
	}
	c.metrics.GeocodeRequests.WithLabelValues("success").Inc()

	candidates := make([]domain.GeocodeCandidate, 0, len(results))
	for _, r := range results {
		candidates = append(candidates, domain.GeocodeCandidate{
			Coords: domain.Coordinates{
				Lat: r.Geometry.Location.Lat,
				Lng: r.Geometry.Location.Lng,
			},
			FormattedAddress: r.FormattedAddress,
		})
	}
	c.logger.Debug("geocode results", "query", query, "count", len(candidates))
	return candidates, nil
}
