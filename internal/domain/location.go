package domain

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"
)

// LocationExtractor pulls a single place name out of free text. It returns ""
// with a nil error when the text names no place.
type LocationExtractor interface {
	ExtractLocation(ctx context.Context, text string) (string, error)
}

// RuleExtractor is the pattern-based LocationExtractor. It never fails.
type RuleExtractor struct{}

func (RuleExtractor) ExtractLocation(_ context.Context, text string) (string, error) {
	return ExtractLocation(text), nil
}

// knownCities are regional city and regency names matched verbatim.
var knownCities = []string{
	"Banda Aceh", "Deli Serdang", "Aceh Barat", "Aceh Utara", "Aceh Selatan", "Aceh Timur",
	"Medan", "Padang", "Binjai", "Langsa", "Lhokseumawe", "Tembung", "Brandan",
}

var (
	// "di Medan", "Di Kota Padang": place words after the preposition must be capitalised.
	prepositionCue = regexp.MustCompile(`\b[Dd]i\s+(\p{Lu}\p{L}*(?:\s+\p{Lu}\p{L}*){0,3})`)

	// "desa Sukamaju", "kecamatan besitang": any casing after an administrative unit.
	adminCue = regexp.MustCompile(`(?i)\b((?:kota|kabupaten|kab\.?|kecamatan|kec\.?|desa|kelurahan|dusun|gampong|nagari|jalan|jl\.?)\s+\p{L}+(?:\s+\p{L}+){0,2})`)

	// "wilayah Tapanuli Tengah", "daerah Pidie".
	areaCue = regexp.MustCompile(`\b(?:[Ww]ilayah|[Dd]aerah|[Aa]rea|[Kk]awasan)\s+(\p{Lu}\p{L}*(?:\s+\p{Lu}\p{L}*){0,2})`)

	// "Pidie Aceh", "Agam Sumatera Barat".
	provinceSuffixCue = regexp.MustCompile(`(\p{Lu}\p{L}*)\s+(?:Aceh|Sumatera Utara|Sumatra Utara|Sumatera Barat|Sumatra Barat)\b`)

	// "Langkat yang terdampak".
	affectedCue = regexp.MustCompile(`(\p{Lu}\p{L}*(?:\s+\p{Lu}\p{L}*){0,2})\s+yang\s+terdampak`)

	knownCityCue = regexp.MustCompile(`(?i)\b(` + strings.Join(knownCities, "|") + `)\b`)

	leadingCueWords = map[string]bool{
		"di": true, "kota": true, "kabupaten": true, "kab": true, "kab.": true,
		"kecamatan": true, "kec": true, "kec.": true, "desa": true, "kelurahan": true,
		"dusun": true, "gampong": true, "nagari": true, "jalan": true, "jl": true, "jl.": true,
		"wilayah": true, "daerah": true, "area": true, "kawasan": true,
	}

	// stopWords end a candidate phrase: conjunctions, common verbs and hazard
	// words that follow a place name in a sentence.
	stopWords = map[string]bool{
		"yang": true, "terdampak": true, "dan": true, "atau": true,
		"butuh": true, "membutuhkan": true, "perlu": true, "sudah": true, "masih": true,
		"sedang": true, "karena": true, "untuk": true, "akibat": true, "sejak": true,
		"tolong": true, "mohon": true, "ada": true, "saat": true, "pada": true,
		"ini": true, "itu": true, "hari": true, "kini": true, "juga": true,
		"banjir": true, "longsor": true, "gempa": true, "kebakaran": true, "bencana": true,
		"parah": true, "terendam": true, "warga": true,
	}

	genericPlaceWords = map[string]bool{
		"location": true, "locations": true, "area": true, "areas": true,
		"place": true, "places": true, "region": true, "regions": true,
	}
)

// IsGenericPlace reports whether s is a placeholder word rather than a place name.
func IsGenericPlace(s string) bool {
	return genericPlaceWords[strings.ToLower(strings.TrimSpace(s))]
}

// ExtractLocation returns the most specific place name found in text by the
// pattern rules, or "" when none survives cleaning. Among surviving
// candidates the longest wins; ties keep the earliest.
func ExtractLocation(text string) string {
	best := ""
	for _, c := range CleanLocationCandidates(locationCandidates(text)) {
		if utf8.RuneCountInString(c) > utf8.RuneCountInString(best) {
			best = c
		}
	}
	return best
}

// locationCandidates applies every pattern in order and collects raw matches.
func locationCandidates(text string) []string {
	var out []string
	for _, re := range []*regexp.Regexp{prepositionCue, adminCue, areaCue, provinceSuffixCue, affectedCue} {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			out = append(out, m[1])
		}
	}
	for _, m := range knownCityCue.FindAllString(text, -1) {
		out = append(out, canonicalCity(m))
	}
	return out
}

func canonicalCity(s string) string {
	for _, c := range knownCities {
		if strings.EqualFold(c, s) {
			return c
		}
	}
	return s
}

// CleanLocationCandidates normalises raw candidates and drops the ones that
// cannot be place names. The result is deduplicated case-insensitively and
// keeps first-seen order.
func CleanLocationCandidates(raw []string) []string {
	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		c := cleanCandidate(r)
		if utf8.RuneCountInString(c) <= 2 || stopWords[strings.ToLower(c)] || IsGenericPlace(c) {
			continue
		}
		key := strings.ToLower(c)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out
}

func cleanCandidate(s string) string {
	words := strings.Fields(s)
	for len(words) > 0 && leadingCueWords[strings.ToLower(words[0])] {
		words = words[1:]
	}
	for i, w := range words {
		if stopWords[strings.ToLower(strings.Trim(w, ".,;:!?"))] {
			words = words[:i]
			break
		}
	}
	return strings.TrimRight(strings.Join(words, " "), ".,;:!?\"')")
}

// CleanModelLocation normalises a model's free-text answer to a place name.
// It returns "" for null-like answers and generic placeholder words.
func CleanModelLocation(raw string) string {
	s := strings.TrimSpace(raw)
	switch strings.ToLower(s) {
	case "", "null", "none":
		return ""
	}
	s = strings.TrimSpace(strings.Trim(s, `"'`))
	if s == "" || IsGenericPlace(s) {
		return ""
	}
	switch strings.ToLower(s) {
	case "null", "none":
		return ""
	}
	return s
}
