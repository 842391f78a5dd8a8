package domain

import "context"

// RouteStep is one turn-by-turn instruction of a planned route.
type RouteStep struct {
	Instruction string      `json:"instruction"`
	Distance    string      `json:"distance"`
	Duration    string      `json:"duration"`
	Location    Coordinates `json:"location"`
}

// Route is a driving route between two points. Path is the decoded overview
// polyline.
type Route struct {
	Distance string        `json:"distance"`
	Duration string        `json:"duration"`
	Polyline string        `json:"polyline"`
	Path     []Coordinates `json:"-"`
	Steps    []RouteStep   `json:"steps"`
	Warnings []string      `json:"warnings"`
}

// RoutePlanner finds a route between two points. It returns nil, nil when no
// route exists.
type RoutePlanner interface {
	PlanRoute(ctx context.Context, origin, destination Coordinates) (*Route, error)
}

// RouteAssessment summarizes the disaster areas a route passes through.
type RouteAssessment struct {
	Blocked       bool     `json:"blocked"`
	Severity      Severity `json:"severity"`
	AffectedAreas []string `json:"affected_areas"`
}

// AssessRoute checks every path vertex against the areas. A route crossing a
// severe area is blocked; otherwise Severity is the worst area crossed, or
// SeveritySafe when none is.
func AssessRoute(path []Coordinates, areas []ClusterArea) RouteAssessment {
	out := RouteAssessment{Severity: SeveritySafe, AffectedAreas: []string{}}
	for _, a := range areas {
		if !pathCrosses(path, a) {
			continue
		}
		out.AffectedAreas = append(out.AffectedAreas, a.ID)
		if a.Severity.Rank() > out.Severity.Rank() {
			out.Severity = a.Severity
		}
	}
	out.Blocked = out.Severity == SeveritySevere
	return out
}

func pathCrosses(path []Coordinates, a ClusterArea) bool {
	for _, p := range path {
		if planarDistance(p, a.Center)*KmPerDegree <= a.RadiusKm {
			return true
		}
	}
	return false
}
