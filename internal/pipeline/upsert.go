package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/couchcryptid/disaster-ingest/internal/domain"
)

// ErrMissingCoordinates rejects a post that was never geocoded.
var ErrMissingCoordinates = errors.New("post has no coordinates")

// Upserter writes a post and its analysis, keyed by post URL. There is no
// transaction: a crash between the two writes leaves a post without analysis,
// which the next run for the same URL repairs.
type Upserter struct {
	store domain.PostStore
}

// NewUpserter creates an Upserter over the given store.
func NewUpserter(store domain.PostStore) *Upserter {
	return &Upserter{store: store}
}

// Upserted is the post and analysis as written, with IDs and timestamps set.
type Upserted struct {
	Post     domain.Post
	Analysis domain.Analysis
	Created  bool
}

// Upsert creates the post when existing is nil and updates it in place
// otherwise. On error the returned value carries whatever was written.
func (u *Upserter) Upsert(ctx context.Context, existing *domain.Post, candidate domain.Post, analysis domain.Analysis) (Upserted, error) {
	if candidate.Coords == nil {
		return Upserted{}, ErrMissingCoordinates
	}
	if candidate.Hashtags == nil {
		candidate.Hashtags = []string{}
	}
	candidate.ProcessedAt = domain.Now()
	analysis.AnalyzedAt = domain.Now()

	if existing == nil {
		postID, err := u.store.CreatePost(ctx, candidate)
		if err != nil {
			return Upserted{}, fmt.Errorf("create post: %w", err)
		}
		candidate.ID = postID
		analysis.PostID = postID
		out := Upserted{Post: candidate, Analysis: analysis, Created: true}

		out.Analysis.ID, err = u.store.CreateAnalysis(ctx, analysis)
		if err != nil {
			return out, fmt.Errorf("create analysis: %w", err)
		}
		return out, nil
	}

	candidate.ID = existing.ID
	if err := u.store.UpdatePost(ctx, candidate); err != nil {
		return Upserted{}, fmt.Errorf("update post %s: %w", existing.ID, err)
	}
	analysis.PostID = existing.ID
	out := Upserted{Post: candidate, Analysis: analysis}

	current, err := u.store.FindAnalysisByPostID(ctx, existing.ID)
	if err != nil {
		return out, fmt.Errorf("find analysis: %w", err)
	}
	if current == nil {
		out.Analysis.ID, err = u.store.CreateAnalysis(ctx, analysis)
		if err != nil {
			return out, fmt.Errorf("create analysis: %w", err)
		}
		return out, nil
	}
	out.Analysis.ID = current.ID
	if err := u.store.UpdateAnalysis(ctx, out.Analysis); err != nil {
		return out, fmt.Errorf("update analysis %s: %w", current.ID, err)
	}
	return out, nil
}
