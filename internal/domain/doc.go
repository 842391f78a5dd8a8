// Package domain models disaster reports crawled from social-media feeds in
// Aceh, North Sumatra and West Sumatra.
//
// # Extraction
//
// Posts are written in informal Indonesian. Place names are pulled out of the
// caption by pattern rules keyed on the phrasing people use:
//
//	"di <Place>"                  prepositional cue, place capitalised
//	"desa|kecamatan|kota <place>" administrative unit cue, any casing
//	"wilayah|daerah <Place>"      area cue
//	"<Place> yang terdampak"      "<Place> which is affected"
//	"<Place> Aceh"                place followed by a province name
//
// plus a fixed list of regional city names. Leading cue words are stripped,
// the phrase is cut at the first stop word ("dan", "butuh", "yang", ...),
// and the longest surviving candidate wins. A model-based extractor is
// preferred when configured; see [ExtractLocation] and [CleanModelLocation].
//
// # Classification
//
// Severity tiers are Parah (severe), Sedang (moderate) and Aman (safe).
// Keyword rules check severe cues before moderate ones. Disaster types are
// Banjir (flood), Longsor (landslide), Gempa (earthquake), Kebakaran (fire),
// Angin Kencang (strong wind) and Lainnya (other). Urgent needs are tagged
// from a fixed list: Pakaian, Makanan, Tenaga Medis, Selimut, Air, Tenda.
//
// # Geocoding
//
// Common Indonesian place names repeat across provinces, so every geocoding
// result must fall inside [RegionBounds] (lat -2.5..6.5, lng 95..102). Queries
// try each province spelling, then "Sumatra", then the bare name.
//
// # Clustering
//
// [BuildClusterAreas] is a single greedy pass with a 0.05 degree seed
// radius. It is order-dependent by construction.
package domain
