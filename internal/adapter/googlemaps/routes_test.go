package googlemaps

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/disaster-ingest/internal/domain"
)

const directionsPath = "/maps/api/directions/json"

func TestClient_PlanRoute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, directionsPath, r.URL.Path)
		assert.Equal(t, "3.5952,98.6722", r.URL.Query().Get("origin"))
		assert.Equal(t, "3.75,98.68", r.URL.Query().Get("destination"))
		assert.Equal(t, "id", r.URL.Query().Get("language"))

		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = io.WriteString(w, `{
			"status": "OK",
			"routes": [{
				"overview_polyline": {"points": "_p~iF~ps|U_ulLnnqC_mqNvxq`+"`"+`@"},
				"warnings": ["Jalan ditutup sebagian"],
				"legs": [{
					"distance": {"text": "18,4 km", "value": 18400},
					"duration": {"text": "1 jam 5 menit", "value": 3900},
					"steps": [{
						"html_instructions": "Belok <b>kanan</b> ke Jl. Sudirman",
						"distance": {"text": "1,2 km", "value": 1200},
						"duration": {"text": "4 menit", "value": 240},
						"start_location": {"lat": 3.5952, "lng": 98.6722},
						"end_location": {"lat": 3.6, "lng": 98.68}
					}]
				}]
			}]
		}`)
	}))
	defer srv.Close()

	c, _ := testClient(t, srv.URL)
	got, err := c.PlanRoute(context.Background(),
		domain.Coordinates{Lat: 3.5952, Lng: 98.6722},
		domain.Coordinates{Lat: 3.75, Lng: 98.68})
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, "18,4 km", got.Distance)
	assert.Equal(t, "1 jam 5 menit", got.Duration)
	assert.Equal(t, []string{"Jalan ditutup sebagian"}, got.Warnings)
	require.Len(t, got.Steps, 1)
	assert.Equal(t, domain.RouteStep{
		Instruction: "Belok kanan ke Jl. Sudirman",
		Distance:    "1,2 km",
		Duration:    "4 menit",
		Location:    domain.Coordinates{Lat: 3.5952, Lng: 98.6722},
	}, got.Steps[0])
	require.Len(t, got.Path, 3)
	assert.InDelta(t, 38.5, got.Path[0].Lat, 1e-6)
	assert.InDelta(t, -120.2, got.Path[0].Lng, 1e-6)
}

func TestClient_PlanRoute_NoRoute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = io.WriteString(w, `{"status": "ZERO_RESULTS", "routes": []}`)
	}))
	defer srv.Close()

	c, _ := testClient(t, srv.URL)
	got, err := c.PlanRoute(context.Background(), domain.Coordinates{Lat: 3.5, Lng: 98.6}, domain.Coordinates{Lat: -6.2, Lng: 106.8})

	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestHumanDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{10 * time.Second, "1 menit"},
		{4 * time.Minute, "4 menit"},
		{2 * time.Hour, "2 jam"},
		{65 * time.Minute, "1 jam 5 menit"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, humanDuration(tt.in))
		})
	}
}
