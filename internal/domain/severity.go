package domain

// Severity is the impact tier assigned to a report.
type Severity string

const (
	SeveritySevere   Severity = "Parah"
	SeverityModerate Severity = "Sedang"
	SeveritySafe     Severity = "Aman"
)

// Rank orders severities for max-severity aggregation: severe > moderate > safe.
// Unknown values rank below safe.
func (s Severity) Rank() int {
	switch s {
	case SeveritySevere:
		return 3
	case SeverityModerate:
		return 2
	case SeveritySafe:
		return 1
	default:
		return 0
	}
}

// Category returns the display category derived from the severity tier.
func (s Severity) Category() string {
	switch s {
	case SeveritySevere:
		return "Terdampak Parah"
	case SeverityModerate:
		return "Terdampak Sedang"
	default:
		return "Aman"
	}
}

// ParseSeverity validates s against the known tiers.
func ParseSeverity(s string) (Severity, bool) {
	switch Severity(s) {
	case SeveritySevere, SeverityModerate, SeveritySafe:
		return Severity(s), true
	}
	return "", false
}

// DisasterType is one of a fixed set of hazard labels.
type DisasterType string

const (
	DisasterFlood      DisasterType = "Banjir"
	DisasterLandslide  DisasterType = "Longsor"
	DisasterEarthquake DisasterType = "Gempa"
	DisasterFire       DisasterType = "Kebakaran"
	DisasterWind       DisasterType = "Angin Kencang"
	DisasterOther      DisasterType = "Lainnya"
)

// ParseDisasterType validates s against the known hazard labels.
func ParseDisasterType(s string) (DisasterType, bool) {
	switch DisasterType(s) {
	case DisasterFlood, DisasterLandslide, DisasterEarthquake, DisasterFire, DisasterWind, DisasterOther:
		return DisasterType(s), true
	}
	return "", false
}
