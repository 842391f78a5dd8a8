package memstore

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/disaster-ingest/internal/domain"
)

func TestStore_Sources(t *testing.T) {
	clk := clockwork.NewFakeClockAt(time.Date(2024, 11, 20, 0, 0, 0, 0, time.UTC))
	domain.SetClock(clk)
	t.Cleanup(func() { domain.SetClock(nil) })

	ctx := context.Background()
	s := New()

	older, err := s.AddSource(ctx, "https://www.instagram.com/infobencana/", "infobencana")
	require.NoError(t, err)
	clk.Advance(time.Hour)
	newer, err := s.AddSource(ctx, "https://www.instagram.com/explore/tags/banjirmedan/", "")
	require.NoError(t, err)
	clk.Advance(time.Hour)
	gone, err := s.AddSource(ctx, "https://www.instagram.com/old/", "old")
	require.NoError(t, err)

	require.NoError(t, s.DeactivateSource(ctx, gone))

	sources, err := s.ListActiveSources(ctx)
	require.NoError(t, err)
	require.Len(t, sources, 2)
	assert.Equal(t, newer, sources[0].ID)
	assert.Equal(t, older, sources[1].ID)
	assert.True(t, sources[0].Active)

	at := time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.MarkSourceRun(ctx, older, at))
	sources, err = s.ListActiveSources(ctx)
	require.NoError(t, err)
	require.NotNil(t, sources[1].LastRunAt)
	assert.Equal(t, at, *sources[1].LastRunAt)

	assert.Error(t, s.DeactivateSource(ctx, "missing"))
	assert.Error(t, s.MarkSourceRun(ctx, "missing", at))
}

func TestStore_Posts(t *testing.T) {
	ctx := context.Background()
	s := New()
	url := "https://www.instagram.com/p/C1abc/"

	miss, err := s.FindPostByURL(ctx, url)
	require.NoError(t, err)
	assert.Nil(t, miss)

	id, err := s.CreatePost(ctx, domain.Post{URL: url, Hashtags: []string{"#banjir"}, Coords: &domain.Coordinates{Lat: 3.5, Lng: 98.6}})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	_, err = s.CreatePost(ctx, domain.Post{URL: url})
	assert.Error(t, err, "URL is unique")

	got, err := s.FindPostByURL(ctx, url)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, id, got.ID)

	got.Coords.Lat = 0
	got.Hashtags[0] = "mutated"
	again, err := s.FindPostByURL(ctx, url)
	require.NoError(t, err)
	assert.Equal(t, 3.5, again.Coords.Lat)
	assert.Equal(t, "#banjir", again.Hashtags[0])

	again.Caption = "updated"
	require.NoError(t, s.UpdatePost(ctx, *again))
	updated, err := s.FindPostByURL(ctx, url)
	require.NoError(t, err)
	assert.Equal(t, "updated", updated.Caption)

	assert.Error(t, s.UpdatePost(ctx, domain.Post{ID: "missing"}))
}

func TestStore_Analyses(t *testing.T) {
	ctx := context.Background()
	s := New()

	miss, err := s.FindAnalysisByPostID(ctx, "post-1")
	require.NoError(t, err)
	assert.Nil(t, miss)

	id, err := s.CreateAnalysis(ctx, domain.Analysis{PostID: "post-1", Severity: domain.SeveritySafe})
	require.NoError(t, err)

	_, err = s.CreateAnalysis(ctx, domain.Analysis{PostID: "post-1"})
	assert.Error(t, err, "one analysis per post")

	a, err := s.FindAnalysisByPostID(ctx, "post-1")
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, id, a.ID)

	a.Severity = domain.SeveritySevere
	require.NoError(t, s.UpdateAnalysis(ctx, *a))
	a, err = s.FindAnalysisByPostID(ctx, "post-1")
	require.NoError(t, err)
	assert.Equal(t, domain.SeveritySevere, a.Severity)

	assert.Error(t, s.UpdateAnalysis(ctx, domain.Analysis{ID: "missing"}))
}

func TestStore_ListPostsWithAnalysis(t *testing.T) {
	ctx := context.Background()
	s := New()

	srcID, err := s.AddSource(ctx, "https://www.instagram.com/infobencana/", "infobencana")
	require.NoError(t, err)
	withID, err := s.CreatePost(ctx, domain.Post{URL: "https://www.instagram.com/p/a/", SourceID: srcID})
	require.NoError(t, err)
	_, err = s.CreateAnalysis(ctx, domain.Analysis{PostID: withID, Severity: domain.SeveritySevere})
	require.NoError(t, err)
	_, err = s.CreatePost(ctx, domain.Post{URL: "https://www.instagram.com/p/b/"})
	require.NoError(t, err)

	all, err := s.ListPostsWithAnalysis(ctx, 1000)
	require.NoError(t, err)
	require.Len(t, all, 2)
	for _, p := range all {
		if p.ID == withID {
			require.NotNil(t, p.Analysis)
			require.NotNil(t, p.Source)
			assert.Equal(t, domain.SeveritySevere, p.Analysis.Severity)
			assert.Equal(t, "infobencana", p.Source.Username)
		} else {
			assert.Nil(t, p.Analysis)
			assert.Nil(t, p.Source)
		}
	}

	limited, err := s.ListPostsWithAnalysis(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	none, err := s.ListPostsWithAnalysis(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStore_ListPostsWithAnalysis_NewestWithinLimit(t *testing.T) {
	ctx := context.Background()
	s := New()

	timestamps := []string{
		"2024-12-01T08:00:00Z",
		"",
		"2024-12-03T08:00:00Z",
		"not a time",
		"2024-12-02T08:00:00Z",
	}
	for i, ts := range timestamps {
		_, err := s.CreatePost(ctx, domain.Post{URL: fmt.Sprintf("https://www.instagram.com/p/%d/", i), Timestamp: ts})
		require.NoError(t, err)
	}

	for range 5 {
		got, err := s.ListPostsWithAnalysis(ctx, 2)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "2024-12-03T08:00:00Z", got[0].Timestamp)
		assert.Equal(t, "2024-12-02T08:00:00Z", got[1].Timestamp)
	}

	all, err := s.ListPostsWithAnalysis(ctx, 10)
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, "2024-12-01T08:00:00Z", all[2].Timestamp)
	again, err := s.ListPostsWithAnalysis(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, all, again, "order is stable between calls")
}

func TestStore_Session(t *testing.T) {
	ctx := context.Background()
	s := New()

	miss, err := s.LoadSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, miss)

	cookies := []domain.Cookie{{Name: "sessionid", Value: "abc", Domain: ".instagram.com"}}
	require.NoError(t, s.SaveSession(ctx, domain.CrawlerSession{Cookies: cookies, LoggedIn: true}))
	cookies[0].Value = "mutated"

	got, err := s.LoadSession(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.LoggedIn)
	assert.Equal(t, "abc", got.Cookies[0].Value)
}
