// Package sessionstore provides the SessionStore adapters: browser cookies
// behind the BFF, an in-memory store for tests, and a context file for the
// CLI. The redis mirror lives in the redis subpackage.
package sessionstore

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/tradeflow-dev/tradeflow"
)

// CookieStore reads and writes the session as the three contract cookies on a
// single request/response pair. One instance is built per HTTP request.
//
// accessToken and refreshToken are HTTP-only; tokenExpiry is left readable so
// the frontend expiry poll can see it.
//
// Writes are buffered: once Set or Delete has run, Get returns the buffered
// session instead of the request cookies, so a token refreshed mid-request is
// what the rest of the pipeline reads. The request only carries the cookies
// the browser sent; the response headers alone cannot serve later reads.
type CookieStore struct {
	req    *http.Request
	w      http.ResponseWriter
	policy tradeflow.CookiePolicy

	mu      sync.Mutex
	session *tradeflow.Session
	written bool
}

// NewCookieStore wraps a request/response pair with the given write policy.
func NewCookieStore(req *http.Request, w http.ResponseWriter, policy tradeflow.CookiePolicy) *CookieStore {
	return &CookieStore{req: req, w: w, policy: policy}
}

func (c *CookieStore) Get(_ context.Context) (*tradeflow.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.written {
		if c.session == nil {
			return nil, nil
		}
		cp := *c.session
		return &cp, nil
	}

	s := &tradeflow.Session{}
	if ck, err := c.req.Cookie(tradeflow.CookieAccessToken); err == nil {
		s.AccessToken = ck.Value
	}
	if ck, err := c.req.Cookie(tradeflow.CookieRefreshToken); err == nil {
		s.RefreshToken = ck.Value
	}
	if ck, err := c.req.Cookie(tradeflow.CookieTokenExpiry); err == nil {
		if ms, err := strconv.ParseInt(ck.Value, 10, 64); err == nil {
			s.TokenExpiry = ms
		}
	}
	if s.AccessToken == "" && s.RefreshToken == "" {
		return nil, nil
	}
	return s, nil
}

func (c *CookieStore) Set(_ context.Context, s *tradeflow.Session) error {
	c.write(tradeflow.CookieAccessToken, s.AccessToken, c.policy.AccessTokenMaxAge, true)
	c.write(tradeflow.CookieRefreshToken, s.RefreshToken, c.policy.RefreshTokenMaxAge, true)
	// tokenExpiry is deliberately not HTTP-only.
	c.write(tradeflow.CookieTokenExpiry, strconv.FormatInt(s.TokenExpiry, 10), c.policy.AccessTokenMaxAge, false)

	c.mu.Lock()
	cp := *s
	c.session = &cp
	c.written = true
	c.mu.Unlock()
	return nil
}

func (c *CookieStore) Delete(_ context.Context) error {
	for _, name := range []string{
		tradeflow.CookieAccessToken,
		tradeflow.CookieRefreshToken,
		tradeflow.CookieTokenExpiry,
	} {
		http.SetCookie(c.w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			Domain:   c.policy.Domain,
			MaxAge:   -1,
			HttpOnly: name != tradeflow.CookieTokenExpiry,
			Secure:   c.policy.Secure,
			SameSite: http.SameSiteLaxMode,
		})
	}

	c.mu.Lock()
	c.session = nil
	c.written = true
	c.mu.Unlock()
	return nil
}

func (c *CookieStore) write(name, value string, maxAge time.Duration, httpOnly bool) {
	http.SetCookie(c.w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   c.policy.Domain,
		MaxAge:   int(maxAge / time.Second),
		HttpOnly: httpOnly,
		Secure:   c.policy.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

var _ tradeflow.SessionStore = (*CookieStore)(nil)
