package domain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

// KeywordConfidence is the fixed confidence reported by the keyword path.
const KeywordConfidence = 0.5

// Classification is the structured signal extracted from a post's text.
type Classification struct {
	Severity          Severity     `json:"severity"`
	Category          string       `json:"category"`
	DisasterType      DisasterType `json:"disaster_type"`
	UrgentNeeds       []string     `json:"urgent_needs"`
	LocationExtracted string       `json:"location_extracted,omitempty"`
	Confidence        float64      `json:"confidence"`
}

// Analysis converts the classification into its persisted form.
func (c Classification) Analysis(postID string) Analysis {
	needs := c.UrgentNeeds
	if needs == nil {
		needs = []string{}
	}
	return Analysis{
		PostID:            postID,
		Severity:          c.Severity,
		Category:          c.Category,
		UrgentNeeds:       needs,
		DisasterType:      c.DisasterType,
		LocationExtracted: c.LocationExtracted,
		Confidence:        c.Confidence,
		AnalyzedAt:        Now(),
	}
}

// ClassifyMode selects the classification path.
type ClassifyMode int

const (
	// ModeKeyword uses the keyword rules only.
	ModeKeyword ClassifyMode = iota
	// ModeModel asks the configured model and falls back to keywords on any failure.
	ModeModel
)

// ModelClassifier returns a model's raw answer to the classification prompt.
type ModelClassifier interface {
	ClassifyText(ctx context.Context, text string) (string, error)
}

type keywordGroup[T any] struct {
	label    T
	keywords []string
}

var (
	severeWords   = []string{"parah", "kritis", "darurat", "urgent", "mendesak"}
	moderateWords = []string{"sedang", "moderat", "waswas", "waspada"}

	disasterKeywords = []keywordGroup[DisasterType]{
		{DisasterFlood, []string{"banjir", "flood"}},
		{DisasterLandslide, []string{"longsor", "landslide"}},
		{DisasterEarthquake, []string{"gempa", "earthquake"}},
		{DisasterFire, []string{"kebakaran", "fire"}},
		{DisasterWind, []string{"angin", "wind"}},
	}

	needKeywords = []keywordGroup[string]{
		{"Pakaian", []string{"pakaian", "baju", "clothing"}},
		{"Makanan", []string{"makanan", "food", "pangan"}},
		{"Tenaga Medis", []string{"medis", "dokter", "rumah sakit", "hospital"}},
		{"Selimut", []string{"selimut", "blanket"}},
		{"Air", []string{"air", "water"}},
		{"Tenda", []string{"tenda", "shelter"}},
	}

	jsonObjectRe = regexp.MustCompile(`\{[\s\S]*\}`)
)

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

// ClassifyKeywords labels text with the keyword rules. Severe cues are
// checked before moderate ones, so text carrying both is severe.
func ClassifyKeywords(text string) Classification {
	lower := strings.ToLower(text)

	severity := SeveritySafe
	switch {
	case containsAny(lower, severeWords):
		severity = SeveritySevere
	case containsAny(lower, moderateWords):
		severity = SeverityModerate
	}

	disaster := DisasterOther
	for _, g := range disasterKeywords {
		if containsAny(lower, g.keywords) {
			disaster = g.label
			break
		}
	}

	needs := []string{}
	for _, g := range needKeywords {
		if containsAny(lower, g.keywords) {
			needs = append(needs, g.label)
		}
	}

	return Classification{
		Severity:     severity,
		Category:     severity.Category(),
		DisasterType: disaster,
		UrgentNeeds:  needs,
		Confidence:   KeywordConfidence,
	}
}

// modelAnswer is the loosely typed shape of the model's JSON answer. Fields
// are decoded as raw values so a wrong type only defaults that field.
type modelAnswer struct {
	Severity          json.RawMessage `json:"severity"`
	Category          json.RawMessage `json:"category"`
	UrgentNeeds       json.RawMessage `json:"urgent_needs"`
	DisasterType      json.RawMessage `json:"disaster_type"`
	LocationExtracted json.RawMessage `json:"location_extracted"`
	Confidence        json.RawMessage `json:"confidence"`
}

// ErrNoJSONObject is returned when a model answer contains no JSON object.
var ErrNoJSONObject = errors.New("no JSON object in model output")

// ParseModelClassification decodes the first JSON object in a model answer.
// Fields that fail validation fall back to safe defaults; only an answer with
// no decodable object at all is an error.
func ParseModelClassification(raw string) (Classification, error) {
	span := jsonObjectRe.FindString(raw)
	if span == "" {
		return Classification{}, ErrNoJSONObject
	}
	var ans modelAnswer
	if err := json.Unmarshal([]byte(span), &ans); err != nil {
		return Classification{}, fmt.Errorf("decode model output: %w", err)
	}

	severity, ok := ParseSeverity(rawString(ans.Severity))
	if !ok {
		severity = SeveritySafe
	}
	disaster, ok := ParseDisasterType(rawString(ans.DisasterType))
	if !ok {
		disaster = DisasterOther
	}
	category := rawString(ans.Category)
	if category == "" {
		category = severity.Category()
	}

	var needs []string
	if err := json.Unmarshal(ans.UrgentNeeds, &needs); err != nil || needs == nil {
		needs = []string{}
	}

	location := rawString(ans.LocationExtracted)
	if strings.EqualFold(location, "null") {
		location = ""
	}

	var confidence float64
	if err := json.Unmarshal(ans.Confidence, &confidence); err != nil || confidence == 0 {
		confidence = KeywordConfidence
	}
	confidence = min(max(confidence, 0), 1)

	return Classification{
		Severity:          severity,
		Category:          category,
		DisasterType:      disaster,
		UrgentNeeds:       needs,
		LocationExtracted: location,
		Confidence:        confidence,
	}, nil
}

func rawString(m json.RawMessage) string {
	var s string
	if err := json.Unmarshal(m, &s); err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

// Classifier selects between the keyword path and the model path.
type Classifier struct {
	model  ModelClassifier
	logger *slog.Logger
}

// NewClassifier creates a Classifier. A nil model makes ModeModel behave
// like ModeKeyword.
func NewClassifier(model ModelClassifier, logger *slog.Logger) *Classifier {
	return &Classifier{model: model, logger: logger}
}

// Classify labels text using the requested path. It never fails: any model
// problem falls back to the keyword rules.
func (c *Classifier) Classify(ctx context.Context, text string, mode ClassifyMode) Classification {
	if mode != ModeModel || c.model == nil {
		return ClassifyKeywords(text)
	}

	raw, err := c.model.ClassifyText(ctx, text)
	if err != nil {
		c.logger.Warn("model classification failed, using keywords", "error", err)
		return ClassifyKeywords(text)
	}
	result, err := ParseModelClassification(raw)
	if err != nil {
		c.logger.Warn("unparseable model classification, using keywords", "error", err)
		return ClassifyKeywords(text)
	}
	return result
}
