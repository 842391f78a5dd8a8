package domain

import (
	"context"
	"time"
)

// SourceStore manages monitored feeds.
type SourceStore interface {
	// ListActiveSources returns active sources, newest first.
	ListActiveSources(ctx context.Context) ([]Source, error)
	AddSource(ctx context.Context, url, username string) (string, error)
	DeactivateSource(ctx context.Context, id string) error
	MarkSourceRun(ctx context.Context, id string, at time.Time) error
}

// PostStore persists posts and their analyses. Lookups return nil, nil when
// the record does not exist; errors are reserved for connectivity faults.
type PostStore interface {
	FindPostByURL(ctx context.Context, url string) (*Post, error)
	CreatePost(ctx context.Context, post Post) (string, error)
	UpdatePost(ctx context.Context, post Post) error
	FindAnalysisByPostID(ctx context.Context, postID string) (*Analysis, error)
	CreateAnalysis(ctx context.Context, analysis Analysis) (string, error)
	UpdateAnalysis(ctx context.Context, analysis Analysis) error
	// ListPostsWithAnalysis returns up to limit posts joined with their
	// analysis and source, unordered.
	ListPostsWithAnalysis(ctx context.Context, limit int) ([]PostWithAnalysis, error)
}

// SessionStore persists the crawler login session between process restarts.
type SessionStore interface {
	LoadSession(ctx context.Context) (*CrawlerSession, error)
	SaveSession(ctx context.Context, session CrawlerSession) error
}

// Store is the full persistence surface used by the service.
type Store interface {
	SourceStore
	PostStore
	SessionStore
}
