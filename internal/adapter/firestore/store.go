// Package firestore implements domain.Store on Cloud Firestore.
package firestore

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/couchcryptid/disaster-ingest/internal/domain"
)

// Store is the Firestore-backed domain.Store.
type Store struct {
	client *firestore.Client
	logger *slog.Logger
}

var _ domain.Store = (*Store)(nil)

// New connects to Firestore. credentials is a base64-encoded service account
// JSON; when empty, application default credentials are used (or the
// emulator when FIRESTORE_EMULATOR_HOST is set).
func New(ctx context.Context, projectID, credentials string, logger *slog.Logger) (*Store, error) {
	var opts []option.ClientOption
	if credentials != "" {
		creds, err := base64.StdEncoding.DecodeString(credentials)
		if err != nil {
			return nil, fmt.Errorf("decode firebase credentials: %w", err)
		}
		opts = append(opts, option.WithCredentialsJSON(creds))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("initialize firebase app: %w", err)
	}
	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("create firestore client: %w", err)
	}
	return NewWithClient(client, logger), nil
}

// NewWithClient wraps an existing Firestore client.
func NewWithClient(client *firestore.Client, logger *slog.Logger) *Store {
	return &Store{client: client, logger: logger}
}

// Close releases the Firestore client.
func (s *Store) Close() error {
	return s.client.Close()
}

// Ping checks connectivity with a cheap single-document read.
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.client.Collection(sessionCollection).Doc(sessionDocID).Get(ctx)
	if err != nil && status.Code(err) != codes.NotFound {
		return fmt.Errorf("firestore ping: %w", err)
	}
	return nil
}

// --- sources ---

// ListActiveSources filters on is_active only and sorts in memory, which
// avoids a composite index.
func (s *Store) ListActiveSources(ctx context.Context) ([]domain.Source, error) {
	docs, err := s.client.Collection(sourcesCollection).Where("is_active", "==", true).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	sources := make([]domain.Source, 0, len(docs))
	for _, doc := range docs {
		var src domain.Source
		if err := doc.DataTo(&src); err != nil {
			return nil, fmt.Errorf("decode source %s: %w", doc.Ref.ID, err)
		}
		src.ID = doc.Ref.ID
		sources = append(sources, src)
	}
	sort.SliceStable(sources, func(i, j int) bool {
		return sources[i].CreatedAt.After(sources[j].CreatedAt)
	})
	return sources, nil
}

// AddSource registers a new active source and returns its ID.
func (s *Store) AddSource(ctx context.Context, url, username string) (string, error) {
	ref, _, err := s.client.Collection(sourcesCollection).Add(ctx, domain.Source{
		URL:       url,
		Username:  username,
		Active:    true,
		CreatedAt: domain.Now(),
	})
	if err != nil {
		return "", fmt.Errorf("add source: %w", err)
	}
	return ref.ID, nil
}

// DeactivateSource marks a source inactive. Unknown IDs are an error.
func (s *Store) DeactivateSource(ctx context.Context, id string) error {
	_, err := s.client.Collection(sourcesCollection).Doc(id).Update(ctx, []firestore.Update{
		{Path: "is_active", Value: false},
	})
	if err != nil {
		return fmt.Errorf("deactivate source %s: %w", id, err)
	}
	return nil
}

// MarkSourceRun records when a source was last crawled.
func (s *Store) MarkSourceRun(ctx context.Context, id string, at time.Time) error {
	_, err := s.client.Collection(sourcesCollection).Doc(id).Update(ctx, []firestore.Update{
		{Path: "last_scraped_at", Value: at},
	})
	if err != nil {
		return fmt.Errorf("mark source %s: %w", id, err)
	}
	return nil
}

// --- posts ---

// FindPostByURL returns the post stored under url, or nil.
func (s *Store) FindPostByURL(ctx context.Context, url string) (*domain.Post, error) {
	docs, err := s.client.Collection(postsCollection).Where("post_url", "==", url).Limit(1).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("find post %s: %w", url, err)
	}
	if len(docs) == 0 {
		return nil, nil
	}
	var d postDoc
	if err := docs[0].DataTo(&d); err != nil {
		return nil, fmt.Errorf("decode post %s: %w", docs[0].Ref.ID, err)
	}
	p := d.toDomain(docs[0].Ref.ID)
	return &p, nil
}

// CreatePost stores a new post and returns its generated ID.
func (s *Store) CreatePost(ctx context.Context, post domain.Post) (string, error) {
	ref, _, err := s.client.Collection(postsCollection).Add(ctx, toPostDoc(post))
	if err != nil {
		return "", fmt.Errorf("create post %s: %w", post.URL, err)
	}
	return ref.ID, nil
}

// UpdatePost replaces an existing post by ID.
func (s *Store) UpdatePost(ctx context.Context, post domain.Post) error {
	if post.ID == "" {
		return errors.New("update post: missing id")
	}
	if _, err := s.client.Collection(postsCollection).Doc(post.ID).Set(ctx, toPostDoc(post)); err != nil {
		return fmt.Errorf("update post %s: %w", post.ID, err)
	}
	return nil
}

// --- analyses ---

// FindAnalysisByPostID returns the analysis of a post, or nil.
func (s *Store) FindAnalysisByPostID(ctx context.Context, postID string) (*domain.Analysis, error) {
	docs, err := s.client.Collection(analysisCollection).Where("post_id", "==", postID).Limit(1).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("find analysis for post %s: %w", postID, err)
	}
	if len(docs) == 0 {
		return nil, nil
	}
	var d analysisDoc
	if err := docs[0].DataTo(&d); err != nil {
		return nil, fmt.Errorf("decode analysis %s: %w", docs[0].Ref.ID, err)
	}
	a := d.toDomain(docs[0].Ref.ID)
	return &a, nil
}

// CreateAnalysis stores a post's analysis. A post has at most one.
func (s *Store) CreateAnalysis(ctx context.Context, analysis domain.Analysis) (string, error) {
	ref, _, err := s.client.Collection(analysisCollection).Add(ctx, toAnalysisDoc(analysis))
	if err != nil {
		return "", fmt.Errorf("create analysis for post %s: %w", analysis.PostID, err)
	}
	return ref.ID, nil
}

// UpdateAnalysis replaces an existing analysis by ID.
func (s *Store) UpdateAnalysis(ctx context.Context, analysis domain.Analysis) error {
	if analysis.ID == "" {
		return errors.New("update analysis: missing id")
	}
	if _, err := s.client.Collection(analysisCollection).Doc(analysis.ID).Set(ctx, toAnalysisDoc(analysis)); err != nil {
		return fmt.Errorf("update analysis %s: %w", analysis.ID, err)
	}
	return nil
}

// ListPostsWithAnalysis reads the newest limit posts by timestamp and joins
// each with its analysis and source. Sources are fetched once per distinct ID.
func (s *Store) ListPostsWithAnalysis(ctx context.Context, limit int) ([]domain.PostWithAnalysis, error) {
	if limit <= 0 {
		return []domain.PostWithAnalysis{}, nil
	}
	iter := s.client.Collection(postsCollection).OrderBy("timestamp", firestore.Desc).Limit(limit).Documents(ctx)
	defer iter.Stop()

	sources := make(map[string]*domain.Source)
	var out []domain.PostWithAnalysis
	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterate posts: %w", err)
		}
		var d postDoc
		if err := doc.DataTo(&d); err != nil {
			s.logger.Warn("skipping undecodable post", "id", doc.Ref.ID, "error", err)
			continue
		}
		item := domain.PostWithAnalysis{Post: d.toDomain(doc.Ref.ID)}

		analysis, err := s.FindAnalysisByPostID(ctx, doc.Ref.ID)
		if err != nil {
			return nil, err
		}
		item.Analysis = analysis

		if d.SourceID != "" {
			src, seen := sources[d.SourceID]
			if !seen {
				src, err = s.getSource(ctx, d.SourceID)
				if err != nil {
					return nil, err
				}
				sources[d.SourceID] = src
			}
			item.Source = src
		}
		out = append(out, item)
	}
	return out, nil
}

func (s *Store) getSource(ctx context.Context, id string) (*domain.Source, error) {
	doc, err := s.client.Collection(sourcesCollection).Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get source %s: %w", id, err)
	}
	var src domain.Source
	if err := doc.DataTo(&src); err != nil {
		return nil, fmt.Errorf("decode source %s: %w", id, err)
	}
	src.ID = doc.Ref.ID
	return &src, nil
}

// --- crawler session ---

// LoadSession returns the saved crawler session, or nil.
func (s *Store) LoadSession(ctx context.Context) (*domain.CrawlerSession, error) {
	doc, err := s.client.Collection(sessionCollection).Doc(sessionDocID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load crawler session: %w", err)
	}
	var session domain.CrawlerSession
	if err := doc.DataTo(&session); err != nil {
		return nil, fmt.Errorf("decode crawler session: %w", err)
	}
	return &session, nil
}

// SaveSession replaces the saved crawler session.
func (s *Store) SaveSession(ctx context.Context, session domain.CrawlerSession) error {
	session.Cookies = domain.ValidCookies(session.Cookies)
	_, err := s.client.Collection(sessionCollection).Doc(sessionDocID).Set(ctx, map[string]any{
		"cookies":    session.Cookies,
		"is_valid":   session.LoggedIn,
		"last_login": session.LastLogin,
	}, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("save crawler session: %w", err)
	}
	return nil
}
