package domain

import (
	"fmt"
	"math"
)

const (
	// ClusterThresholdDeg is the planar seed distance, in degrees, below which
	// a point joins the seed's cluster (roughly 5 km).
	ClusterThresholdDeg = 0.05
	// KmPerDegree converts planar degree distances to kilometres.
	KmPerDegree = 111.0
	// MinClusterRadiusKm keeps single-point clusters visible.
	MinClusterRadiusKm = 2.0
	// SeverePointRadiusKm is the radius of the highlight zone drawn around
	// every severe post.
	SeverePointRadiusKm = 1.5
)

// AreaKind distinguishes proximity clusters from per-post severe highlights.
type AreaKind string

const (
	AreaCluster     AreaKind = "cluster"
	AreaSeverePoint AreaKind = "severe_point"
)

// ClusterPoint is one geocoded report fed to the clustering engine.
type ClusterPoint struct {
	PostID   string
	Coords   Coordinates
	Severity Severity
}

// ClusterArea is a derived overlay region. It is recomputed from the current
// post set on every request and never stored.
type ClusterArea struct {
	ID        string      `json:"id"`
	Kind      AreaKind    `json:"type"`
	Center    Coordinates `json:"center"`
	Severity  Severity    `json:"severity"`
	PostCount int         `json:"post_count"`
	RadiusKm  float64     `json:"radius_km"`
}

// Polygon approximates the area's circle with n vertices. Longitude offsets
// are scaled by cos(latitude).
func (a ClusterArea) Polygon(n int) []Coordinates {
	if n < 3 {
		n = 3
	}
	ring := make([]Coordinates, n)
	cosLat := math.Cos(a.Center.Lat * math.Pi / 180)
	for i := range n {
		angle := float64(i) * 2 * math.Pi / float64(n)
		ring[i] = Coordinates{
			Lat: a.Center.Lat + a.RadiusKm*math.Cos(angle)/KmPerDegree,
			Lng: a.Center.Lng + a.RadiusKm*math.Sin(angle)/(KmPerDegree*cosLat),
		}
	}
	return ring
}

func planarDistance(a, b Coordinates) float64 {
	return math.Hypot(a.Lat-b.Lat, a.Lng-b.Lng)
}

// BuildClusterAreas groups points with a single greedy pass in input order.
// Each unassigned point seeds a cluster and absorbs every later unassigned
// point closer than ClusterThresholdDeg to the seed. Membership is measured
// against the seed only, so the grouping is order-dependent and not
// transitive. A cluster becomes an area when it has two or more members or
// any severe member. Every severe point additionally gets its own
// SeverePointRadiusKm highlight.
func BuildClusterAreas(points []ClusterPoint) []ClusterArea {
	assigned := make([]bool, len(points))
	var areas []ClusterArea

	for i, seed := range points {
		if assigned[i] {
			continue
		}
		assigned[i] = true
		members := []ClusterPoint{seed}
		for j := i + 1; j < len(points); j++ {
			if assigned[j] {
				continue
			}
			if planarDistance(seed.Coords, points[j].Coords) < ClusterThresholdDeg {
				members = append(members, points[j])
				assigned[j] = true
			}
		}

		if len(members) < 2 && !hasSevere(members) {
			continue
		}
		area := summarizeCluster(members)
		area.ID = fmt.Sprintf("cluster-%d", len(areas))
		areas = append(areas, area)
	}

	n := 0
	for _, p := range points {
		if p.Severity != SeveritySevere {
			continue
		}
		areas = append(areas, ClusterArea{
			ID:        fmt.Sprintf("severe-%d", n),
			Kind:      AreaSeverePoint,
			Center:    p.Coords,
			Severity:  SeveritySevere,
			PostCount: 1,
			RadiusKm:  SeverePointRadiusKm,
		})
		n++
	}
	return areas
}

func hasSevere(points []ClusterPoint) bool {
	for _, p := range points {
		if p.Severity == SeveritySevere {
			return true
		}
	}
	return false
}

func summarizeCluster(members []ClusterPoint) ClusterArea {
	var sumLat, sumLng float64
	severity := SeveritySafe
	for _, m := range members {
		sumLat += m.Coords.Lat
		sumLng += m.Coords.Lng
		if m.Severity.Rank() > severity.Rank() {
			severity = m.Severity
		}
	}
	center := Coordinates{
		Lat: sumLat / float64(len(members)),
		Lng: sumLng / float64(len(members)),
	}

	var maxDist float64
	for _, m := range members {
		maxDist = max(maxDist, planarDistance(m.Coords, center))
	}

	return ClusterArea{
		Kind:      AreaCluster,
		Center:    center,
		Severity:  severity,
		PostCount: len(members),
		RadiusKm:  max(maxDist*KmPerDegree, MinClusterRadiusKm),
	}
}
