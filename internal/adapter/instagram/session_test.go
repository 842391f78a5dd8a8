package instagram

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"testing"

	"github.com/go-rod/rod/lib/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/disaster-ingest/internal/domain"
)

func TestSession_Lifecycle(t *testing.T) {
	s := &Session{}
	s.Lock()
	defer s.Unlock()

	assert.False(t, s.LoggedIn())
	assert.False(t, s.restored)

	s.Restore([]domain.Cookie{{Name: "sessionid", Value: "abc"}, {Name: "blank"}})
	assert.True(t, s.restored)
	assert.False(t, s.LoggedIn())
	assert.Len(t, s.Cookies(), 1)

	s.Establish([]domain.Cookie{{Name: "sessionid", Value: "def"}})
	assert.True(t, s.LoggedIn())

	cookies := s.Cookies()
	cookies[0].Value = "mutated"
	assert.Equal(t, "def", s.Cookies()[0].Value)

	s.Clear()
	assert.False(t, s.LoggedIn())
	assert.Empty(t, s.Cookies())
	assert.True(t, s.restored)
}

func TestCookieConversion(t *testing.T) {
	stored := []domain.Cookie{
		{Name: "sessionid", Value: "abc", Domain: ".instagram.com", Path: "/", Expires: 1767225600, HTTPOnly: true, Secure: true},
		{Name: "", Value: "orphan"},
	}

	params := toCookieParams(stored)
	require.Len(t, params, 1)
	assert.Equal(t, "sessionid", params[0].Name)
	assert.Equal(t, proto.TimeSinceEpoch(1767225600), params[0].Expires)
	assert.True(t, params[0].HTTPOnly)

	back := fromNetworkCookies([]*proto.NetworkCookie{
		nil,
		{Name: "sessionid", Value: "abc", Domain: ".instagram.com", Path: "/", Expires: 1767225600, HTTPOnly: true, Secure: true},
		{Name: "csrftoken", Value: ""},
	})
	assert.Equal(t, stored[:1], back)
}

// --- mocks ---

type memSessionStore struct {
	saved []domain.CrawlerSession
}

func (m *memSessionStore) LoadSession(_ context.Context) (*domain.CrawlerSession, error) {
	if len(m.saved) == 0 {
		return nil, nil
	}
	last := m.saved[len(m.saved)-1]
	return &last, nil
}

func (m *memSessionStore) SaveSession(_ context.Context, s domain.CrawlerSession) error {
	m.saved = append(m.saved, s)
	return nil
}

// fakeTab shows a login wall on every page while its cookies are invalid.
// Submitting the login form makes them valid when acceptLogin is set.
type fakeTab struct {
	valid       bool
	acceptLogin bool

	wall    bool
	renders []string
	logins  int
}

func (f *fakeTab) Render(_ context.Context, pageURL string) ([]byte, error) {
	f.renders = append(f.renders, pageURL)
	f.wall = !f.valid
	return []byte("<html>" + pageURL + "</html>"), nil
}

func (f *fakeTab) LoggedIn() bool { return !f.wall }

func (f *fakeTab) SetCookies(_ []domain.Cookie) error { return nil }

func (f *fakeTab) Cookies() ([]domain.Cookie, error) {
	return []domain.Cookie{{Name: "sessionid", Value: "login-" + strconv.Itoa(f.logins)}}, nil
}

func (f *fakeTab) SubmitLogin(_, _ string) error {
	f.logins++
	if f.acceptLogin {
		f.valid = true
		f.wall = false
	}
	return nil
}

func (f *fakeTab) rendered(pageURL string) int {
	n := 0
	for _, r := range f.renders {
		if r == pageURL {
			n++
		}
	}
	return n
}

func newTestCrawler(store domain.SessionStore, username, password string) *Crawler {
	return &Crawler{
		session: &Session{},
		store:   store,
		opts:    Options{Username: username, Password: password},
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// --- tests ---

func TestCrawler_Open_ReloginAfterExpiry(t *testing.T) {
	ctx := context.Background()
	store := &memSessionStore{}
	c := newTestCrawler(store, "relawan", "secret")
	browser := &fakeTab{acceptLogin: true}

	const first = "https://www.instagram.com/p/Cfirst/"
	body, err := c.open(ctx, browser, first)
	require.NoError(t, err)
	assert.Contains(t, string(body), first)
	assert.Equal(t, 1, browser.logins)
	require.NotEmpty(t, store.saved)
	assert.True(t, store.saved[len(store.saved)-1].LoggedIn)

	// A live session skips the login flow entirely.
	const second = "https://www.instagram.com/p/Csecond/"
	_, err = c.open(ctx, browser, second)
	require.NoError(t, err)
	assert.Equal(t, 1, browser.logins)
	assert.Equal(t, 1, browser.rendered(second))

	// The cookies expire server-side: the next page shows a login wall.
	browser.valid = false
	const third = "https://www.instagram.com/p/Cthird/"
	body, err = c.open(ctx, browser, third)
	require.NoError(t, err)
	assert.Contains(t, string(body), third)
	assert.Equal(t, 2, browser.logins)
	assert.Equal(t, 2, browser.rendered(third), "page is rendered again after the re-login")
	assert.True(t, browser.LoggedIn())

	c.session.Lock()
	assert.True(t, c.session.LoggedIn())
	assert.Equal(t, "login-2", c.session.Cookies()[0].Value)
	c.session.Unlock()

	var cleared bool
	for _, s := range store.saved {
		if !s.LoggedIn && len(s.Cookies) == 0 {
			cleared = true
		}
	}
	assert.True(t, cleared, "expired session is cleared in the store")
	assert.True(t, store.saved[len(store.saved)-1].LoggedIn)
}

func TestCrawler_Open_Unauthenticated(t *testing.T) {
	tests := []struct {
		name        string
		username    string
		acceptLogin bool
		wantLogins  int
	}{
		{name: "no credentials", username: "", wantLogins: 0},
		{name: "login rejected", username: "relawan", acceptLogin: false, wantLogins: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestCrawler(&memSessionStore{}, tt.username, "secret")
			browser := &fakeTab{acceptLogin: tt.acceptLogin}

			const pageURL = "https://www.instagram.com/infobencana_aceh/"
			body, err := c.open(context.Background(), browser, pageURL)
			require.NoError(t, err)
			assert.Contains(t, string(body), pageURL)
			assert.Equal(t, tt.wantLogins, browser.logins)
			assert.Equal(t, 1, browser.rendered(pageURL), "login wall is returned as rendered")
		})
	}
}

func TestCrawler_Open_ReusesStoredCookies(t *testing.T) {
	store := &memSessionStore{saved: []domain.CrawlerSession{{
		Cookies:  []domain.Cookie{{Name: "sessionid", Value: "stored"}},
		LoggedIn: true,
	}}}
	c := newTestCrawler(store, "relawan", "secret")
	browser := &fakeTab{valid: true}

	_, err := c.open(context.Background(), browser, baseURL+"/p/Cabc/")
	require.NoError(t, err)
	assert.Zero(t, browser.logins)
	assert.True(t, strings.HasPrefix(browser.renders[0], baseURL), "liveness check renders the home page first")

	c.session.Lock()
	defer c.session.Unlock()
	assert.True(t, c.session.LoggedIn())
	assert.Equal(t, "stored", c.session.Cookies()[0].Value)
}
