package instagram

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"golang.org/x/time/rate"

	"github.com/couchcryptid/disaster-ingest/internal/domain"
)

// tab is the browser surface the session logic drives.
type tab interface {
	// Render navigates to pageURL and returns the settled DOM.
	Render(ctx context.Context, pageURL string) ([]byte, error)
	// LoggedIn inspects the page last rendered.
	LoggedIn() bool
	SetCookies(cookies []domain.Cookie) error
	Cookies() ([]domain.Cookie, error)
	// SubmitLogin fills and submits the login form on the current page.
	SubmitLogin(username, password string) error
}

// rodTab is a stealth browser tab paced by the crawler's rate limiter.
type rodTab struct {
	page    *rod.Page
	browser *rod.Browser
	limiter *rate.Limiter
}

func (t *rodTab) close() {
	_ = t.page.Close()
}

func (t *rodTab) Render(ctx context.Context, pageURL string) ([]byte, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	if err := t.page.Navigate(pageURL); err != nil {
		return nil, fmt.Errorf("navigate to %s: %w", pageURL, err)
	}
	_ = t.page.WaitStable(settleDuration)

	body, err := t.page.HTML()
	if err != nil {
		return nil, fmt.Errorf("get HTML from %s: %w", pageURL, err)
	}
	return []byte(body), nil
}

// LoggedIn reports false on the login URL or when the login form is shown.
func (t *rodTab) LoggedIn() bool {
	info, err := t.page.Info()
	if err != nil || strings.Contains(info.URL, "/accounts/login") {
		return false
	}
	if has, _, _ := t.page.Has(`input[name="username"]`); has {
		return false
	}
	return true
}

func (t *rodTab) SetCookies(cookies []domain.Cookie) error {
	return t.browser.SetCookies(toCookieParams(cookies))
}

func (t *rodTab) Cookies() ([]domain.Cookie, error) {
	raw, err := t.browser.GetCookies()
	if err != nil {
		return nil, fmt.Errorf("read browser cookies: %w", err)
	}
	return fromNetworkCookies(raw), nil
}

func (t *rodTab) SubmitLogin(username, password string) error {
	user, err := t.page.Element(`input[name="username"]`)
	if err != nil {
		return fmt.Errorf("login form not found: %w", err)
	}
	if err := user.Input(username); err != nil {
		return fmt.Errorf("type username: %w", err)
	}
	pass, err := t.page.Element(`input[name="password"]`)
	if err != nil {
		return fmt.Errorf("password field not found: %w", err)
	}
	if err := pass.Input(password); err != nil {
		return fmt.Errorf("type password: %w", err)
	}
	submit, err := t.page.Element(`button[type="submit"]`)
	if err != nil {
		return fmt.Errorf("submit button not found: %w", err)
	}
	if err := submit.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("submit login: %w", err)
	}
	_ = t.page.WaitStable(settleDuration)
	return nil
}
