// Package instagram crawls Instagram profile, hashtag and post pages with a
// headless Chromium driven by rod.
package instagram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/stealth"
	"golang.org/x/time/rate"

	"github.com/couchcryptid/disaster-ingest/internal/domain"
)

const (
	loginURL       = baseURL + "/accounts/login/"
	settleDuration = 2 * time.Second
)

// Options configures the crawler.
type Options struct {
	// Bin is the browser binary. Empty lets rod find or download one.
	Bin string
	// Empty credentials crawl unauthenticated.
	Username string
	Password string
	// Rate is page navigations per second.
	Rate float64
}

// Crawler fetches raw posts. One browser and one login session are shared by
// all callers.
type Crawler struct {
	browser *rod.Browser
	session *Session
	store   domain.SessionStore
	limiter *rate.Limiter
	opts    Options
	logger  *slog.Logger
}

// New launches a headless browser and connects to it.
func New(opts Options, store domain.SessionStore, logger *slog.Logger) (*Crawler, error) {
	l := launcher.New().
		Headless(true).
		Set("disable-gpu").
		Set("no-sandbox").
		Set("disable-dev-shm-usage")
	if opts.Bin != "" {
		l = l.Bin(opts.Bin)
	}
	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch headless browser: %w", err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect to headless browser: %w", err)
	}

	return &Crawler{
		browser: browser,
		session: &Session{},
		store:   store,
		limiter: rate.NewLimiter(rate.Limit(opts.Rate), 1),
		opts:    opts,
		logger:  logger,
	}, nil
}

// Close shuts down the browser process.
func (c *Crawler) Close() error {
	return c.browser.Close()
}

// FetchCandidates returns up to limit posts listed on the source's page.
func (c *Crawler) FetchCandidates(ctx context.Context, src domain.Source, limit int) ([]domain.RawPost, error) {
	t, err := c.newTab(ctx)
	if err != nil {
		return nil, err
	}
	defer t.close()

	pageURL := SourcePageURL(src)
	body, err := c.open(ctx, t, pageURL)
	if err != nil {
		return nil, err
	}
	posts, err := ParseProfileHTML(body, limit)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("listed candidates", "source", pageURL, "count", len(posts))
	return posts, nil
}

// FetchDetail renders a post page. It returns nil when the page carries
// neither text nor an image.
func (c *Crawler) FetchDetail(ctx context.Context, postURL string) (*domain.RawPost, error) {
	t, err := c.newTab(ctx)
	if err != nil {
		return nil, err
	}
	defer t.close()

	body, err := c.open(ctx, t, postURL)
	if err != nil {
		return nil, err
	}
	post, err := ParsePostHTML(body, postURL)
	if err != nil {
		return nil, err
	}
	if post.Body() == "" && post.ImageURL == "" {
		c.logger.Warn("post page had no content", "url", postURL)
		return nil, nil
	}
	return post, nil
}

func (c *Crawler) newTab(ctx context.Context) (*rodTab, error) {
	page, err := stealth.Page(c.browser)
	if err != nil {
		return nil, fmt.Errorf("create tab: %w", err)
	}
	return &rodTab{page: page.Context(ctx), browser: c.browser, limiter: c.limiter}, nil
}

// open renders pageURL under the current session. A login wall on a page
// rendered with an established session means the session has expired: it
// is cleared, re-established and the page rendered once more.
func (c *Crawler) open(ctx context.Context, t tab, pageURL string) ([]byte, error) {
	c.ensureSession(ctx, t)

	body, err := t.Render(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	if t.LoggedIn() || !c.expire(ctx) {
		return body, nil
	}

	if !c.ensureSession(ctx, t) {
		return body, nil
	}
	return t.Render(ctx, pageURL)
}

// expire drops an established session after a failed liveness check. It
// reports false when no session was established.
func (c *Crawler) expire(ctx context.Context) bool {
	c.session.Lock()
	defer c.session.Unlock()

	if !c.session.LoggedIn() {
		return false
	}
	c.logger.Info("crawler session expired, logging in again")
	c.session.Clear()
	if err := c.store.SaveSession(ctx, domain.CrawlerSession{Cookies: []domain.Cookie{}}); err != nil {
		c.logger.Warn("failed to persist cleared crawler session", "error", err)
	}
	return true
}

// ensureSession makes a best effort to be logged in and reports whether it
// is. Failures are logged and the crawl continues unauthenticated.
func (c *Crawler) ensureSession(ctx context.Context, t tab) bool {
	c.session.Lock()
	defer c.session.Unlock()

	if c.session.LoggedIn() {
		return true
	}

	if !c.session.restored {
		stored, err := c.store.LoadSession(ctx)
		if err != nil {
			c.logger.Warn("failed to load crawler session", "error", err)
		}
		var cookies []domain.Cookie
		if stored != nil {
			cookies = stored.Cookies
		}
		c.session.Restore(cookies)
	}

	if cookies := c.session.Cookies(); len(cookies) > 0 {
		if err := t.SetCookies(cookies); err != nil {
			c.logger.Warn("failed to apply saved cookies", "error", err)
		} else if c.checkLoggedIn(ctx, t, baseURL+"/") {
			c.logger.Info("reusing saved crawler session", "cookies", len(cookies))
			c.session.Establish(cookies)
			return true
		}
		c.logger.Info("saved crawler session expired")
		c.session.Clear()
	}

	if c.opts.Username == "" || c.opts.Password == "" {
		c.logger.Warn("crawler credentials not configured, crawling unauthenticated")
		return false
	}
	if err := c.login(ctx, t); err != nil {
		c.logger.Warn("crawler login failed, crawling unauthenticated", "error", err)
		return false
	}
	return true
}

func (c *Crawler) checkLoggedIn(ctx context.Context, t tab, pageURL string) bool {
	if _, err := t.Render(ctx, pageURL); err != nil {
		c.logger.Warn("login check failed", "error", err)
		return false
	}
	return t.LoggedIn()
}

func (c *Crawler) login(ctx context.Context, t tab) error {
	if c.checkLoggedIn(ctx, t, loginURL) {
		return c.saveSession(ctx, t)
	}
	if err := t.SubmitLogin(c.opts.Username, c.opts.Password); err != nil {
		return err
	}
	if !t.LoggedIn() {
		return errors.New("still on login page, credentials rejected or challenge required")
	}
	c.logger.Info("crawler logged in", "username", c.opts.Username)
	return c.saveSession(ctx, t)
}

// saveSession captures the browser cookies into the session and the store.
func (c *Crawler) saveSession(ctx context.Context, t tab) error {
	cookies, err := t.Cookies()
	if err != nil {
		return err
	}
	c.session.Establish(cookies)

	err = c.store.SaveSession(ctx, domain.CrawlerSession{
		Cookies:   c.session.Cookies(),
		LoggedIn:  true,
		LastLogin: domain.Now(),
	})
	if err != nil {
		c.logger.Warn("failed to persist crawler session", "error", err)
	}
	return nil
}
