// Package memstore is an in-process domain.Store used for local runs and tests.
package memstore

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/couchcryptid/disaster-ingest/internal/domain"
)

// Store keeps every record in maps guarded by one mutex. Values are copied in
// and out so callers never share memory with the store.
type Store struct {
	mu       sync.RWMutex
	sources  map[string]domain.Source
	posts    map[string]domain.Post
	byURL    map[string]string
	analyses map[string]domain.Analysis
	byPost   map[string]string
	session  *domain.CrawlerSession
}

// New creates an empty store.
func New() *Store {
	return &Store{
		sources:  make(map[string]domain.Source),
		posts:    make(map[string]domain.Post),
		byURL:    make(map[string]string),
		analyses: make(map[string]domain.Analysis),
		byPost:   make(map[string]string),
	}
}

var _ domain.Store = (*Store)(nil)

// ListActiveSources returns active sources, newest first.
func (s *Store) ListActiveSources(_ context.Context) ([]domain.Source, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Source, 0, len(s.sources))
	for _, src := range s.sources {
		if src.Active {
			out = append(out, copySource(src))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// AddSource registers a new active source and returns its ID.
func (s *Store) AddSource(_ context.Context, url, username string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	s.sources[id] = domain.Source{
		ID:        id,
		URL:       url,
		Username:  username,
		Active:    true,
		CreatedAt: domain.Now(),
	}
	return id, nil
}

// DeactivateSource marks a source inactive. Unknown IDs are an error.
func (s *Store) DeactivateSource(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	src, ok := s.sources[id]
	if !ok {
		return fmt.Errorf("source %s not found", id)
	}
	src.Active = false
	s.sources[id] = src
	return nil
}

// MarkSourceRun records when a source was last crawled.
func (s *Store) MarkSourceRun(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	src, ok := s.sources[id]
	if !ok {
		return fmt.Errorf("source %s not found", id)
	}
	src.LastRunAt = &at
	s.sources[id] = src
	return nil
}

// FindPostByURL returns the post stored under url, or nil.
func (s *Store) FindPostByURL(_ context.Context, url string) (*domain.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byURL[url]
	if !ok {
		return nil, nil
	}
	p := copyPost(s.posts[id])
	return &p, nil
}

// CreatePost stores a new post and returns its generated ID.
func (s *Store) CreatePost(_ context.Context, post domain.Post) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byURL[post.URL]; exists {
		return "", fmt.Errorf("post %s already exists", post.URL)
	}
	post.ID = uuid.NewString()
	s.posts[post.ID] = copyPost(post)
	s.byURL[post.URL] = post.ID
	return post.ID, nil
}

// UpdatePost replaces an existing post by ID.
func (s *Store) UpdatePost(_ context.Context, post domain.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[post.ID]; !ok {
		return fmt.Errorf("post %s not found", post.ID)
	}
	s.posts[post.ID] = copyPost(post)
	s.byURL[post.URL] = post.ID
	return nil
}

// FindAnalysisByPostID returns the analysis of a post, or nil.
func (s *Store) FindAnalysisByPostID(_ context.Context, postID string) (*domain.Analysis, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byPost[postID]
	if !ok {
		return nil, nil
	}
	a := copyAnalysis(s.analyses[id])
	return &a, nil
}

// CreateAnalysis stores a post's analysis. A post has at most one.
func (s *Store) CreateAnalysis(_ context.Context, analysis domain.Analysis) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byPost[analysis.PostID]; exists {
		return "", fmt.Errorf("analysis for post %s already exists", analysis.PostID)
	}
	analysis.ID = uuid.NewString()
	s.analyses[analysis.ID] = copyAnalysis(analysis)
	s.byPost[analysis.PostID] = analysis.ID
	return analysis.ID, nil
}

// UpdateAnalysis replaces an existing analysis by ID.
func (s *Store) UpdateAnalysis(_ context.Context, analysis domain.Analysis) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.analyses[analysis.ID]; !ok {
		return fmt.Errorf("analysis %s not found", analysis.ID)
	}
	s.analyses[analysis.ID] = copyAnalysis(analysis)
	return nil
}

// ListPostsWithAnalysis returns the newest limit posts joined with their
// analysis and source. Ties and untimestamped posts fall back to ID order.
func (s *Store) ListPostsWithAnalysis(_ context.Context, limit int) ([]domain.PostWithAnalysis, error) {
	if limit <= 0 {
		return []domain.PostWithAnalysis{}, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.PostWithAnalysis, 0, len(s.posts))
	for _, p := range s.posts {
		item := domain.PostWithAnalysis{Post: copyPost(p)}
		if id, ok := s.byPost[p.ID]; ok {
			a := copyAnalysis(s.analyses[id])
			item.Analysis = &a
		}
		if src, ok := s.sources[p.SourceID]; ok {
			c := copySource(src)
			item.Source = &c
		}
		out = append(out, item)
	}
	slices.SortFunc(out, func(a, b domain.PostWithAnalysis) int { return strings.Compare(a.ID, b.ID) })
	domain.SortNewestFirst(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// LoadSession returns the saved crawler session, or nil.
func (s *Store) LoadSession(_ context.Context) (*domain.CrawlerSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.session == nil {
		return nil, nil
	}
	cp := *s.session
	cp.Cookies = slices.Clone(s.session.Cookies)
	return &cp, nil
}

// SaveSession replaces the saved crawler session.
func (s *Store) SaveSession(_ context.Context, session domain.CrawlerSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session.Cookies = slices.Clone(session.Cookies)
	s.session = &session
	return nil
}

func copySource(s domain.Source) domain.Source {
	if s.LastRunAt != nil {
		t := *s.LastRunAt
		s.LastRunAt = &t
	}
	return s
}

func copyPost(p domain.Post) domain.Post {
	p.Hashtags = slices.Clone(p.Hashtags)
	if p.Coords != nil {
		c := *p.Coords
		p.Coords = &c
	}
	return p
}

func copyAnalysis(a domain.Analysis) domain.Analysis {
	a.UrgentNeeds = slices.Clone(a.UrgentNeeds)
	return a
}
