package domain

import "context"

// GeocodeCandidate is one result returned by a geocoding backend.
type GeocodeCandidate struct {
	Coords           Coordinates
	FormattedAddress string
}

// PlaceSearcher is a raw geocoding backend: one query, zero or more candidates.
// An empty slice with a nil error means the backend found nothing.
type PlaceSearcher interface {
	SearchPlace(ctx context.Context, query string) ([]GeocodeCandidate, error)
}

// Geocoder resolves a place name to coordinates inside the target region.
type Geocoder interface {
	Geocode(ctx context.Context, place string) (Coordinates, bool)
}

// Bounds is an inclusive latitude/longitude rectangle.
type Bounds struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

// Contains reports whether c lies inside the rectangle, edges included.
func (b Bounds) Contains(c Coordinates) bool {
	return c.Lat >= b.MinLat && c.Lat <= b.MaxLat && c.Lng >= b.MinLng && c.Lng <= b.MaxLng
}

// RegionBounds covers Aceh, North Sumatra and West Sumatra.
var RegionBounds = Bounds{MinLat: -2.5, MaxLat: 6.5, MinLng: 95, MaxLng: 102}

// ProvinceVariants are the province spellings appended to a place name, in
// the order they are tried.
var ProvinceVariants = []string{
	"Aceh",
	"Sumatra Utara",
	"Sumatera Utara",
	"Sumatra Barat",
	"Sumatera Barat",
	"North Sumatra",
	"West Sumatra",
}

// BroadRegion is the island-level qualifier tried after every province variant.
const BroadRegion = "Sumatra"
