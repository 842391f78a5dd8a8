package domain

import (
	"slices"
	"sort"
	"strings"
)

// PostFilter narrows the posts returned to the display layer. Empty fields
// match everything.
type PostFilter struct {
	Severities    []Severity
	DisasterTypes []DisasterType
	Area          string
}

// ParsePostFilter builds a filter from comma-separated query values.
func ParsePostFilter(severity, disasterType, area string) PostFilter {
	var f PostFilter
	for _, s := range splitList(severity) {
		f.Severities = append(f.Severities, Severity(s))
	}
	for _, d := range splitList(disasterType) {
		f.DisasterTypes = append(f.DisasterTypes, DisasterType(d))
	}
	f.Area = strings.TrimSpace(area)
	return f
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Match reports whether p passes the filter. Severity and disaster type
// filters require an analysis. Area is a case-insensitive substring match
// against the post's location text or the analysis's extracted location.
func (f PostFilter) Match(p PostWithAnalysis) bool {
	if len(f.Severities) > 0 && (p.Analysis == nil || !slices.Contains(f.Severities, p.Analysis.Severity)) {
		return false
	}
	if len(f.DisasterTypes) > 0 && (p.Analysis == nil || !slices.Contains(f.DisasterTypes, p.Analysis.DisasterType)) {
		return false
	}
	if f.Area != "" {
		area := strings.ToLower(f.Area)
		inPost := strings.Contains(strings.ToLower(p.LocationText), area)
		inAnalysis := p.Analysis != nil && strings.Contains(strings.ToLower(p.Analysis.LocationExtracted), area)
		if !inPost && !inAnalysis {
			return false
		}
	}
	return true
}

// FilterPosts returns the posts matching f, newest first. Posts without a
// parseable timestamp sort last.
func FilterPosts(posts []PostWithAnalysis, f PostFilter) []PostWithAnalysis {
	out := make([]PostWithAnalysis, 0, len(posts))
	for _, p := range posts {
		if f.Match(p) {
			out = append(out, p)
		}
	}
	SortNewestFirst(out)
	return out
}

// SortNewestFirst orders posts by timestamp, newest first, in place. Posts
// without a parseable timestamp keep their relative order at the end.
func SortNewestFirst(posts []PostWithAnalysis) {
	sort.SliceStable(posts, func(i, j int) bool {
		ti, okI := ParsePostTime(posts[i].Timestamp)
		tj, okJ := ParsePostTime(posts[j].Timestamp)
		switch {
		case okI && okJ:
			return ti.After(tj)
		case okI:
			return true
		default:
			return false
		}
	})
}

// ClusterPoints selects the geocoded posts as clustering input. Posts without
// an analysis count as safe.
func ClusterPoints(posts []PostWithAnalysis) []ClusterPoint {
	points := make([]ClusterPoint, 0, len(posts))
	for _, p := range posts {
		if p.Coords == nil {
			continue
		}
		severity := SeveritySafe
		if p.Analysis != nil {
			severity = p.Analysis.Severity
		}
		points = append(points, ClusterPoint{PostID: p.ID, Coords: *p.Coords, Severity: severity})
	}
	return points
}
