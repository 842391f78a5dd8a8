package instagram

import (
	"sync"

	"github.com/go-rod/rod/lib/proto"

	"github.com/couchcryptid/disaster-ingest/internal/domain"
)

// Session is the crawler's login state. It is shared by every run in the
// process and guarded by its own mutex; callers hold the lock for the whole
// check-and-login sequence via Lock/Unlock.
type Session struct {
	mu       sync.Mutex
	loggedIn bool
	restored bool
	cookies  []domain.Cookie
}

func (s *Session) Lock()   { s.mu.Lock() }
func (s *Session) Unlock() { s.mu.Unlock() }

// The methods below assume the lock is held.

func (s *Session) LoggedIn() bool { return s.loggedIn }

func (s *Session) Cookies() []domain.Cookie {
	return append([]domain.Cookie(nil), s.cookies...)
}

// Restore seeds cookies loaded from the store. The session stays unverified
// until a liveness check passes.
func (s *Session) Restore(cookies []domain.Cookie) {
	s.restored = true
	s.cookies = domain.ValidCookies(cookies)
	s.loggedIn = false
}

// Establish records a verified login with its cookie set.
func (s *Session) Establish(cookies []domain.Cookie) {
	s.restored = true
	s.cookies = domain.ValidCookies(cookies)
	s.loggedIn = true
}

// Clear drops the cookies after a failed liveness check.
func (s *Session) Clear() {
	s.cookies = nil
	s.loggedIn = false
}

// toCookieParams converts stored cookies to the browser protocol form.
func toCookieParams(cookies []domain.Cookie) []*proto.NetworkCookieParam {
	params := make([]*proto.NetworkCookieParam, 0, len(cookies))
	for _, c := range domain.ValidCookies(cookies) {
		params = append(params, &proto.NetworkCookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  proto.TimeSinceEpoch(c.Expires),
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
		})
	}
	return params
}

func fromNetworkCookies(cookies []*proto.NetworkCookie) []domain.Cookie {
	out := make([]domain.Cookie, 0, len(cookies))
	for _, c := range cookies {
		if c == nil {
			continue
		}
		out = append(out, domain.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  float64(c.Expires),
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
		})
	}
	return domain.ValidCookies(out)
}
