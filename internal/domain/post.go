package domain

import (
	"strings"
	"time"
)

// Source is a monitored feed (an account or hashtag page).
// Sources are deactivated, never deleted, so stored posts keep a valid reference.
type Source struct {
	ID        string     `json:"id" firestore:"-"`
	URL       string     `json:"account_url" firestore:"account_url"`
	Username  string     `json:"account_username,omitempty" firestore:"account_username"`
	Active    bool       `json:"is_active" firestore:"is_active"`
	CreatedAt time.Time  `json:"created_at" firestore:"created_at"`
	LastRunAt *time.Time `json:"last_scraped_at,omitempty" firestore:"last_scraped_at"`
}

// RawPost is what the crawler returns for a single post page. It is consumed
// immediately by the pipeline and never stored as-is.
type RawPost struct {
	URL          string   `json:"post_url"`
	ImageURL     string   `json:"image_url,omitempty"`
	Text         string   `json:"text,omitempty"`
	Caption      string   `json:"caption,omitempty"`
	Hashtags     []string `json:"hashtags,omitempty"`
	LocationText string   `json:"location_text,omitempty"`
	Timestamp    string   `json:"timestamp,omitempty"`
}

// Body returns the text used for analysis: the caption when present, else the text.
func (r RawPost) Body() string {
	if strings.TrimSpace(r.Caption) != "" {
		return r.Caption
	}
	return r.Text
}

// Coordinates is a WGS-84 latitude/longitude pair.
type Coordinates struct {
	Lat float64 `json:"lat" firestore:"lat"`
	Lng float64 `json:"lng" firestore:"lng"`
}

// Post is a persisted disaster report. URL is unique across all runs.
// Coords is nil until the post has been geocoded; latitude and longitude are
// always written together.
type Post struct {
	ID           string       `json:"id"`
	SourceID     string       `json:"account_id"`
	URL          string       `json:"post_url"`
	ImageURL     string       `json:"image_url,omitempty"`
	ImageKey     string       `json:"image_r2_key,omitempty"`
	Text         string       `json:"text,omitempty"`
	Caption      string       `json:"caption,omitempty"`
	Hashtags     []string     `json:"hashtags"`
	LocationText string       `json:"location_text,omitempty"`
	Coords       *Coordinates `json:"coordinates,omitempty"`
	Timestamp    string       `json:"timestamp,omitempty"`
	ProcessedAt  time.Time    `json:"scraped_at"`
}

// Analysis is the classification result owned 1:1 by a Post.
type Analysis struct {
	ID                string       `json:"id"`
	PostID            string       `json:"post_id"`
	Severity          Severity     `json:"severity"`
	Category          string       `json:"category"`
	UrgentNeeds       []string     `json:"urgent_needs"`
	DisasterType      DisasterType `json:"disaster_type"`
	LocationExtracted string       `json:"location_extracted,omitempty"`
	Confidence        float64      `json:"confidence"`
	AnalyzedAt        time.Time    `json:"analyzed_at"`
}

// PostWithAnalysis is the read model returned by the filter query.
type PostWithAnalysis struct {
	Post
	Analysis *Analysis `json:"analysis"`
	Source   *Source   `json:"account"`
}

// JoinNeeds renders urgent needs in their stored form, e.g. "Makanan, Selimut".
func JoinNeeds(needs []string) string {
	return strings.Join(needs, ", ")
}

// SplitNeeds parses the stored form back into a list.
func SplitNeeds(s string) []string {
	if strings.TrimSpace(s) == "" {
		return []string{}
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Cookie is a browser cookie kept in the crawler session.
type Cookie struct {
	Name     string  `json:"name" firestore:"name"`
	Value    string  `json:"value" firestore:"value"`
	Domain   string  `json:"domain,omitempty" firestore:"domain"`
	Path     string  `json:"path,omitempty" firestore:"path"`
	Expires  float64 `json:"expires,omitempty" firestore:"expires"`
	HTTPOnly bool    `json:"httpOnly,omitempty" firestore:"httpOnly"`
	Secure   bool    `json:"secure,omitempty" firestore:"secure"`
}

// CrawlerSession is the persisted login state of the crawler.
type CrawlerSession struct {
	Cookies   []Cookie  `json:"cookies" firestore:"cookies"`
	LoggedIn  bool      `json:"logged_in" firestore:"is_valid"`
	LastLogin time.Time `json:"last_login" firestore:"last_login"`
}

// ValidCookies drops cookies without a name or value.
func ValidCookies(cookies []Cookie) []Cookie {
	out := make([]Cookie, 0, len(cookies))
	for _, c := range cookies {
		if c.Name != "" && c.Value != "" {
			out = append(out, c)
		}
	}
	return out
}
