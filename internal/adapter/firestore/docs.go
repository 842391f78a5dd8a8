package firestore

import (
	"time"

	"github.com/couchcryptid/disaster-ingest/internal/domain"
)

// Collection names.
const (
	sourcesCollection  = "instagram_accounts"
	postsCollection    = "posts"
	analysisCollection = "ai_analysis"
	sessionCollection  = "instagram_credentials"
	sessionDocID       = "crawler"
)

// postDoc is the stored form of a post. Coordinates are two top-level
// fields so the documents stay queryable from the console; they are always
// written together.
type postDoc struct {
	SourceID     string    `firestore:"account_id"`
	URL          string    `firestore:"post_url"`
	ImageURL     string    `firestore:"image_url"`
	ImageKey     string    `firestore:"image_r2_key"`
	Text         string    `firestore:"text"`
	Caption      string    `firestore:"caption"`
	Hashtags     []string  `firestore:"hashtags"`
	LocationText string    `firestore:"location_text"`
	Latitude     *float64  `firestore:"latitude"`
	Longitude    *float64  `firestore:"longitude"`
	Timestamp    string    `firestore:"timestamp"`
	ProcessedAt  time.Time `firestore:"scraped_at"`
}

func toPostDoc(p domain.Post) postDoc {
	d := postDoc{
		SourceID:     p.SourceID,
		URL:          p.URL,
		ImageURL:     p.ImageURL,
		ImageKey:     p.ImageKey,
		Text:         p.Text,
		Caption:      p.Caption,
		Hashtags:     p.Hashtags,
		LocationText: p.LocationText,
		Timestamp:    p.Timestamp,
		ProcessedAt:  p.ProcessedAt,
	}
	if d.Hashtags == nil {
		d.Hashtags = []string{}
	}
	if p.Coords != nil {
		lat, lng := p.Coords.Lat, p.Coords.Lng
		d.Latitude, d.Longitude = &lat, &lng
	}
	return d
}

func (d postDoc) toDomain(id string) domain.Post {
	p := domain.Post{
		ID:           id,
		SourceID:     d.SourceID,
		URL:          d.URL,
		ImageURL:     d.ImageURL,
		ImageKey:     d.ImageKey,
		Text:         d.Text,
		Caption:      d.Caption,
		Hashtags:     d.Hashtags,
		LocationText: d.LocationText,
		Timestamp:    d.Timestamp,
		ProcessedAt:  d.ProcessedAt,
	}
	if d.Latitude != nil && d.Longitude != nil {
		p.Coords = &domain.Coordinates{Lat: *d.Latitude, Lng: *d.Longitude}
	}
	return p
}

// analysisDoc stores urgent needs as one comma-joined string.
type analysisDoc struct {
	PostID            string    `firestore:"post_id"`
	Severity          string    `firestore:"severity"`
	Category          string    `firestore:"category"`
	UrgentNeeds       string    `firestore:"urgent_needs"`
	DisasterType      string    `firestore:"disaster_type"`
	LocationExtracted string    `firestore:"location_extracted"`
	Confidence        float64   `firestore:"confidence"`
	AnalyzedAt        time.Time `firestore:"analyzed_at"`
}

func toAnalysisDoc(a domain.Analysis) analysisDoc {
	return analysisDoc{
		PostID:            a.PostID,
		Severity:          string(a.Severity),
		Category:          a.Category,
		UrgentNeeds:       domain.JoinNeeds(a.UrgentNeeds),
		DisasterType:      string(a.DisasterType),
		LocationExtracted: a.LocationExtracted,
		Confidence:        a.Confidence,
		AnalyzedAt:        a.AnalyzedAt,
	}
}

func (d analysisDoc) toDomain(id string) domain.Analysis {
	return domain.Analysis{
		ID:                id,
		PostID:            d.PostID,
		Severity:          domain.Severity(d.Severity),
		Category:          d.Category,
		UrgentNeeds:       domain.SplitNeeds(d.UrgentNeeds),
		DisasterType:      domain.DisasterType(d.DisasterType),
		LocationExtracted: d.LocationExtracted,
		Confidence:        d.Confidence,
		AnalyzedAt:        d.AnalyzedAt,
	}
}
