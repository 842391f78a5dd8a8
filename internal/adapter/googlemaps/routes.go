package googlemaps

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"googlemaps.github.io/maps"

	"github.com/couchcryptid/disaster-ingest/internal/domain"
)

const routeLanguage = "id"

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// PlanRoute implements domain.RoutePlanner with the Directions API. Only the
// first leg of the first route is reported.
func (c *Client) PlanRoute(ctx context.Context, origin, destination domain.Coordinates) (*domain.Route, error) {
	routes, _, err := c.maps.Directions(ctx, &maps.DirectionsRequest{
		Origin:      latLng(origin),
		Destination: latLng(destination),
		Region:      regionBias,
		Language:    routeLanguage,
	})
	if err != nil {
		return nil, fmt.Errorf("directions request: %w", err)
	}
	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		return nil, nil
	}

	r := routes[0]
	leg := r.Legs[0]
	out := &domain.Route{
		Distance: leg.Distance.HumanReadable,
		Duration: humanDuration(leg.Duration),
		Polyline: r.OverviewPolyline.Points,
		Steps:    make([]domain.RouteStep, 0, len(leg.Steps)),
		Warnings: r.Warnings,
	}
	if out.Warnings == nil {
		out.Warnings = []string{}
	}
	for _, s := range leg.Steps {
		out.Steps = append(out.Steps, domain.RouteStep{
			Instruction: strings.TrimSpace(tagPattern.ReplaceAllString(s.HTMLInstructions, "")),
			Distance:    s.Distance.HumanReadable,
			Duration:    humanDuration(s.Duration),
			Location:    domain.Coordinates{Lat: s.StartLocation.Lat, Lng: s.StartLocation.Lng},
		})
	}

	path, err := r.OverviewPolyline.Decode()
	if err != nil {
		c.logger.Warn("route polyline undecodable", "error", err)
		return out, nil
	}
	out.Path = make([]domain.Coordinates, len(path))
	for i, p := range path {
		out.Path[i] = domain.Coordinates{Lat: p.Lat, Lng: p.Lng}
	}
	return out, nil
}

func latLng(c domain.Coordinates) string {
	return fmt.Sprintf("%g,%g", c.Lat, c.Lng)
}

// humanDuration renders d the way the Directions API does for Indonesian,
// e.g. "1 jam 5 menit".
func humanDuration(d time.Duration) string {
	minutes := int(d.Round(time.Minute) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	if h := minutes / 60; h > 0 {
		if m := minutes % 60; m > 0 {
			return fmt.Sprintf("%d jam %d menit", h, m)
		}
		return fmt.Sprintf("%d jam", h)
	}
	return fmt.Sprintf("%d menit", minutes)
}
