//go:build googlemaps

package googlemaps

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/disaster-ingest/internal/domain"
	"github.com/couchcryptid/disaster-ingest/internal/observability"
)

// These tests hit the real Google Maps APIs and require GOOGLE_MAPS_API_KEY.
// Run with: go test -tags=googlemaps ./internal/adapter/googlemaps/ -v -count=1

func smokeClient(t *testing.T) *Client {
	t.Helper()
	key := os.Getenv("GOOGLE_MAPS_API_KEY")
	if key == "" {
		t.Fatal("GOOGLE_MAPS_API_KEY must be set to run smoke tests")
	}
	c, err := NewClient(key, "", 10*time.Second, observability.NewMetricsForTesting(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return c
}

func TestSmoke_SearchPlace(t *testing.T) {
	c := smokeClient(t)

	got, err := c.SearchPlace(context.Background(), "Medan, Sumatra Utara, Indonesia")
	require.NoError(t, err)
	require.NotEmpty(t, got)

	assert.InDelta(t, 3.59, got[0].Coords.Lat, 0.2, "lat should be near Medan")
	assert.InDelta(t, 98.67, got[0].Coords.Lng, 0.2, "lng should be near Medan")
}

func TestSmoke_RegionGeocoder(t *testing.T) {
	c := smokeClient(t)
	g := domain.NewRegionGeocoder(NewCachedSearcher(c, time.Hour, observability.NewMetricsForTesting()), slog.New(slog.NewTextHandler(io.Discard, nil)))

	got, ok := g.Geocode(context.Background(), "Bireuen")
	require.True(t, ok)
	assert.True(t, domain.RegionBounds.Contains(got))
}

func TestSmoke_PlanRoute(t *testing.T) {
	c := smokeClient(t)

	// Medan to Binjai.
	got, err := c.PlanRoute(context.Background(),
		domain.Coordinates{Lat: 3.5952, Lng: 98.6722},
		domain.Coordinates{Lat: 3.6001, Lng: 98.4854})
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.NotEmpty(t, got.Distance)
	assert.NotEmpty(t, got.Steps)
	assert.NotEmpty(t, got.Path)
}
