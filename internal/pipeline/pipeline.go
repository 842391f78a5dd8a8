package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"github.com/google/uuid"

	"github.com/couchcryptid/disaster-ingest/internal/domain"
	"github.com/couchcryptid/disaster-ingest/internal/observability"
)

// ErrRunInProgress is returned when a run is triggered while another is active.
var ErrRunInProgress = errors.New("ingestion run already in progress")

// ErrNoCrawler is returned by Run when no crawler is configured.
var ErrNoCrawler = errors.New("crawler is not configured")

var errDetailTimeout = errors.New("detail fetch timed out")

// Crawler lists and fetches raw posts. Misses are empty slices or nil posts.
type Crawler interface {
	FetchCandidates(ctx context.Context, src domain.Source, limit int) ([]domain.RawPost, error)
	FetchDetail(ctx context.Context, url string) (*domain.RawPost, error)
}

// Archiver copies a post image to object storage and returns its key.
type Archiver interface {
	Archive(ctx context.Context, postURL, imageURL string) (string, error)
}

// Publisher emits a persisted post downstream.
type Publisher interface {
	PublishPost(ctx context.Context, post domain.PostWithAnalysis) error
}

// Config holds the per-run limits.
type Config struct {
	CandidateLimit   int
	DetailTimeout    time.Duration
	MinDate          time.Time
	CandidateRetries int
	RetryDelay       time.Duration
}

// Deps are the collaborators of a Pipeline. Geocoder, Archiver and Publisher
// may be nil to disable that step.
type Deps struct {
	Store      domain.Store
	Crawler    Crawler
	Classifier *domain.Classifier
	Locator    *Locator
	Geocoder   domain.Geocoder
	Archiver   Archiver
	Publisher  Publisher
}

// Pipeline runs one ingestion pass over every active source.
type Pipeline struct {
	deps     Deps
	upserter *Upserter
	cfg      Config
	logger   *slog.Logger
	metrics  *observability.Metrics
	running  sync.Mutex
	ready    atomic.Bool
}

// New creates a Pipeline with the given collaborators and observability.
func New(deps Deps, cfg Config, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	return &Pipeline{
		deps:     deps,
		upserter: NewUpserter(deps.Store),
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics,
	}
}

// Pinger is implemented by stores that can report whether their backend is
// reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CheckReadiness returns nil once a run has completed and, when the store
// supports it, the store answers a ping.
func (p *Pipeline) CheckReadiness(ctx context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not completed a run yet")
	}
	if pinger, ok := p.deps.Store.(Pinger); ok {
		if err := pinger.Ping(ctx); err != nil {
			return fmt.Errorf("store unreachable: %w", err)
		}
	}
	return nil
}

// Run processes every active source once. It returns an error only when the
// run could not start; per-item failures are reported in the summary.
// Cancelling ctx stops the run between items and returns the partial summary.
func (p *Pipeline) Run(ctx context.Context) (domain.RunSummary, error) {
	if p.deps.Crawler == nil {
		return domain.RunSummary{}, ErrNoCrawler
	}
	if !p.running.TryLock() {
		p.metrics.RunsTotal.WithLabelValues("busy").Inc()
		return domain.RunSummary{}, ErrRunInProgress
	}
	defer p.running.Unlock()

	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)
	start := time.Now()

	summary := domain.RunSummary{
		RunID:     uuid.NewString(),
		StartedAt: domain.Now(),
		MinDate:   p.cfg.MinDate,
		Results:   []domain.ItemResult{},
	}
	logger := p.logger.With("run_id", summary.RunID)

	sources, err := p.deps.Store.ListActiveSources(ctx)
	if err != nil {
		p.metrics.RunsTotal.WithLabelValues("failed").Inc()
		logger.Error("list active sources failed", "error", err)
		return summary, fmt.Errorf("list active sources: %w", err)
	}
	logger.Info("ingestion run started", "sources", len(sources), "min_date", p.cfg.MinDate)

	for _, src := range sources {
		if ctx.Err() != nil {
			break
		}
		p.processSource(ctx, logger, src, &summary)
	}

	summary.FinishedAt = domain.Now()
	p.metrics.RunDuration.Observe(time.Since(start).Seconds())

	if ctx.Err() != nil {
		p.metrics.RunsTotal.WithLabelValues("cancelled").Inc()
		logger.Warn("ingestion run cancelled", "processed", summary.Processed, "reason", ctx.Err())
		return summary, nil
	}

	p.metrics.RunsTotal.WithLabelValues("completed").Inc()
	p.ready.Store(true)
	logger.Info("ingestion run finished",
		"processed", summary.Processed,
		"skipped_stale", summary.SkippedStale,
		"skipped_no_content", summary.SkippedNoContent,
		"skipped_no_coordinates", summary.SkippedNoCoordinates,
		"duration", time.Since(start),
	)
	return summary, nil
}

func (p *Pipeline) processSource(ctx context.Context, logger *slog.Logger, src domain.Source, summary *domain.RunSummary) {
	logger = logger.With("source", src.URL)

	candidates, err := p.fetchCandidates(ctx, src)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		logger.Warn("fetch candidates failed", "error", err)
		p.record(summary, domain.ItemResult{Source: src.URL, Status: domain.ItemFailed, Error: err.Error()})
		return
	}
	logger.Info("processing source", "candidates", len(candidates))

	for _, cand := range candidates {
		if ctx.Err() != nil {
			return
		}
		p.processCandidate(ctx, logger, src, cand, summary)
	}

	if err := p.deps.Store.MarkSourceRun(ctx, src.ID, domain.Now()); err != nil {
		logger.Warn("record source run failed", "error", err)
	}
}

// fetchCandidates retries transport faults with backoff.
func (p *Pipeline) fetchCandidates(ctx context.Context, src domain.Source) ([]domain.RawPost, error) {
	retry := retrypolicy.NewBuilder[[]domain.RawPost]().
		WithMaxRetries(p.cfg.CandidateRetries).
		WithBackoff(p.cfg.RetryDelay, 10*p.cfg.RetryDelay).
		HandleIf(func(_ []domain.RawPost, err error) bool {
			return err != nil && ctx.Err() == nil
		}).
		ReturnLastFailure().
		Build()

	return failsafe.With(retry).WithContext(ctx).GetWithExecution(func(exec failsafe.Execution[[]domain.RawPost]) ([]domain.RawPost, error) {
		return p.deps.Crawler.FetchCandidates(exec.Context(), src, p.cfg.CandidateLimit)
	})
}

type detailResult struct {
	post *domain.RawPost
	err  error
}

// fetchDetail races one detail fetch against DetailTimeout. When the timer
// wins, the fetch's context is cancelled and the fetch is left to finish on
// its own.
func (p *Pipeline) fetchDetail(ctx context.Context, postURL string) (*domain.RawPost, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, p.cfg.DetailTimeout)
	defer cancel()

	done := make(chan detailResult, 1)
	go func() {
		post, err := p.deps.Crawler.FetchDetail(fetchCtx, postURL)
		done <- detailResult{post: post, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil && ctx.Err() == nil && errors.Is(fetchCtx.Err(), context.DeadlineExceeded) {
			return nil, errDetailTimeout
		}
		return r.post, r.err
	case <-fetchCtx.Done():
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, errDetailTimeout
	}
}

func (p *Pipeline) processCandidate(ctx context.Context, logger *slog.Logger, src domain.Source, cand domain.RawPost, summary *domain.RunSummary) {
	logger = logger.With("post_url", cand.URL)

	detail, err := p.fetchDetail(ctx, cand.URL)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		msg := err.Error()
		if errors.Is(err, errDetailTimeout) {
			p.metrics.DetailTimeouts.Inc()
			msg = "timeout fetching post details"
		}
		logger.Warn("fetch post detail failed", "error", err)
		p.record(summary, domain.ItemResult{Source: src.URL, PostURL: cand.URL, Status: domain.ItemFailed, Error: msg})
		return
	}
	if detail == nil || detail.Body() == "" {
		summary.SkippedNoContent++
		p.metrics.ItemsSkipped.WithLabelValues("no_content").Inc()
		logger.Debug("skipping post without text")
		return
	}
	if detail.URL == "" {
		detail.URL = cand.URL
	}
	if detail.ImageURL == "" {
		detail.ImageURL = cand.ImageURL
	}

	if !domain.IsRecent(detail.Timestamp, p.cfg.MinDate) {
		summary.SkippedStale++
		p.metrics.ItemsSkipped.WithLabelValues("stale").Inc()
		logger.Debug("skipping stale post", "timestamp", detail.Timestamp)
		return
	}

	existing, err := p.deps.Store.FindPostByURL(ctx, detail.URL)
	if err != nil {
		logger.Warn("look up existing post failed", "error", err)
		p.record(summary, domain.ItemResult{
			Source: src.URL, PostURL: detail.URL, PostTimestamp: detail.Timestamp,
			Status: domain.ItemFailed, Error: "failed to look up existing post",
		})
		return
	}

	text := detail.Body()
	classification := p.deps.Classifier.Classify(ctx, text, domain.ModeKeyword)
	location, how := p.deps.Locator.Resolve(ctx, text, detail.LocationText)
	if classification.LocationExtracted == "" {
		classification.LocationExtracted = location
	}

	coords := p.coordinates(ctx, logger, existing, location)
	if coords == nil {
		summary.SkippedNoCoordinates++
		p.metrics.ItemsSkipped.WithLabelValues("no_coordinates").Inc()
		logger.Debug("skipping post without coordinates", "location", location)
		return
	}

	locationText := location
	if locationText == "" && existing != nil {
		locationText = existing.LocationText
	}

	post := domain.Post{
		SourceID:     src.ID,
		URL:          detail.URL,
		ImageURL:     detail.ImageURL,
		Text:         detail.Text,
		Caption:      detail.Caption,
		Hashtags:     detail.Hashtags,
		LocationText: locationText,
		Coords:       coords,
		Timestamp:    detail.Timestamp,
	}
	if existing != nil {
		post.ImageKey = existing.ImageKey
	}
	p.archive(ctx, logger, &post)

	saved, err := p.upserter.Upsert(ctx, existing, post, classification.Analysis(""))
	if err != nil {
		logger.Error("save post failed", "error", err)
		p.record(summary, domain.ItemResult{
			Source: src.URL, PostURL: detail.URL, PostTimestamp: detail.Timestamp,
			Status: domain.ItemFailed, Error: "failed to save to store",
		})
		return
	}

	postID := saved.Post.ID
	status := domain.ItemUpdated
	if saved.Created {
		status = domain.ItemCreated
	}
	p.record(summary, domain.ItemResult{
		Source:         src.URL,
		PostURL:        detail.URL,
		PostTimestamp:  detail.Timestamp,
		PostID:         postID,
		Status:         status,
		Classification: &classification,
		Location:       locationText,
		Coords:         coords,
	})
	logger.Info("post saved", "post_id", postID, "status", status, "location", locationText, "location_source", how)

	p.publish(ctx, logger, saved, src)
}

// coordinates keeps the stored pair when present and geocodes otherwise.
func (p *Pipeline) coordinates(ctx context.Context, logger *slog.Logger, existing *domain.Post, location string) *domain.Coordinates {
	if existing != nil && existing.Coords != nil {
		c := *existing.Coords
		return &c
	}
	if location == "" || p.deps.Geocoder == nil {
		return nil
	}
	c, ok := p.deps.Geocoder.Geocode(ctx, location)
	if !ok {
		logger.Debug("location not geocoded", "location", location)
		return nil
	}
	return &c
}

func (p *Pipeline) archive(ctx context.Context, logger *slog.Logger, post *domain.Post) {
	if p.deps.Archiver == nil || post.ImageURL == "" || post.ImageKey != "" {
		return
	}
	key, err := p.deps.Archiver.Archive(ctx, post.URL, post.ImageURL)
	if err != nil {
		logger.Warn("archive image failed", "error", err)
		return
	}
	post.ImageKey = key
}

func (p *Pipeline) publish(ctx context.Context, logger *slog.Logger, saved Upserted, src domain.Source) {
	if p.deps.Publisher == nil {
		return
	}
	err := p.deps.Publisher.PublishPost(ctx, domain.PostWithAnalysis{Post: saved.Post, Analysis: &saved.Analysis, Source: &src})
	if err != nil {
		logger.Warn("publish post failed", "error", err)
	}
}

func (p *Pipeline) record(summary *domain.RunSummary, r domain.ItemResult) {
	summary.Add(r)
	p.metrics.ItemsTotal.WithLabelValues(string(r.Status)).Inc()
}
