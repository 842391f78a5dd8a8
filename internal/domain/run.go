package domain

import "time"

// ItemStatus is the outcome of one ingested item.
type ItemStatus string

const (
	ItemCreated ItemStatus = "created"
	ItemUpdated ItemStatus = "updated"
	ItemFailed  ItemStatus = "failed"
)

// ItemResult records what happened to one candidate post, or to a whole
// source when its candidate listing failed.
type ItemResult struct {
	Source         string          `json:"account"`
	PostURL        string          `json:"post_url,omitempty"`
	PostTimestamp  string          `json:"post_timestamp,omitempty"`
	PostID         string          `json:"post_id,omitempty"`
	Status         ItemStatus      `json:"status"`
	Classification *Classification `json:"analysis,omitempty"`
	Location       string          `json:"location,omitempty"`
	Coords         *Coordinates    `json:"coordinates,omitempty"`
	Error          string          `json:"error,omitempty"`
}

// Success reports whether the item was persisted.
func (r ItemResult) Success() bool {
	return r.Status == ItemCreated || r.Status == ItemUpdated
}

// RunSummary is the report returned by one ingestion run. Processed always
// equals len(Results); skipped items only increment their counters.
type RunSummary struct {
	RunID                string       `json:"run_id"`
	StartedAt            time.Time    `json:"started_at"`
	FinishedAt           time.Time    `json:"finished_at"`
	MinDate              time.Time    `json:"min_date"`
	Processed            int          `json:"processed"`
	SkippedStale         int          `json:"skipped_stale"`
	SkippedNoContent     int          `json:"skipped_no_content"`
	SkippedNoCoordinates int          `json:"skipped_no_coordinates"`
	Results              []ItemResult `json:"results"`
}

// Add appends a result and keeps Processed in step.
func (s *RunSummary) Add(r ItemResult) {
	s.Results = append(s.Results, r)
	s.Processed = len(s.Results)
}
