package tradeflow

import (
	"context"
	"time"
)

// Cookie names are part of the browser contract. The expiry poll in the
// dashboard frontend reads CookieTokenExpiry directly from the document, so
// renaming any of these breaks deployed clients.
const (
	CookieAccessToken  = "accessToken"
	CookieRefreshToken = "refreshToken"
	CookieTokenExpiry  = "tokenExpiry"
)

// Session is the authenticated state for one browser session or CLI context.
// TokenExpiry is advisory only; the upstream API is the authority on whether
// the access token is still valid.
type Session struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	// TokenExpiry is the access-token expiry as epoch milliseconds.
	TokenExpiry int64 `json:"tokenExpiry"`
}

// ExpiresAt returns the access-token expiry as a time.Time.
func (s *Session) ExpiresAt() time.Time {
	return time.UnixMilli(s.TokenExpiry)
}

// Authenticated reports whether both credentials are present. It does not
// validate expiry or signatures.
func (s *Session) Authenticated() bool {
	return s != nil && s.AccessToken != "" && s.RefreshToken != ""
}

// SessionStore abstracts where a Session lives: browser cookies behind the
// BFF, a redis mirror, a CLI context file, or memory in tests. The hosting
// environment supplies the adapter; nothing else in the codebase branches on
// where it runs.
type SessionStore interface {
	// Get returns the current session, or nil when no session exists.
	Get(ctx context.Context) (*Session, error)

	// Set replaces the stored session. All three fields are written together;
	// adapters must never persist a partial session.
	Set(ctx context.Context, s *Session) error

	// Delete removes the stored session. Deleting an absent session is not an
	// error.
	Delete(ctx context.Context) error
}

// AuthStatus is a liveness hint derived from credential presence, not a
// security check.
type AuthStatus struct {
	IsAuthenticated bool `json:"isAuthenticated"`
	HasAccessToken  bool `json:"hasAccessToken"`
	HasRefreshToken bool `json:"hasRefreshToken"`
}

// StatusOf derives an AuthStatus from a possibly-nil session.
func StatusOf(s *Session) AuthStatus {
	if s == nil {
		return AuthStatus{}
	}
	return AuthStatus{
		IsAuthenticated: s.AccessToken != "" && s.RefreshToken != "",
		HasAccessToken:  s.AccessToken != "",
		HasRefreshToken: s.RefreshToken != "",
	}
}

// CookiePolicy controls how the cookie adapter writes the session. One policy
// is used for every login path, captcha-verified or not; the split policies in
// the legacy dashboard were an accident, not a feature.
type CookiePolicy struct {
	AccessTokenMaxAge  time.Duration
	RefreshTokenMaxAge time.Duration
	Secure             bool
	Domain             string
}

/// DefaultCookiePolicy matches what the upstream auth API issues: one-hour
// access tokens and seven-day refresh tokens.
func DefaultCookiePolicy() CookiePolicy {
	return CookiePolicy{
		AccessTokenMaxAge:  time.Hour,
		RefreshTokenMaxAge: 7 * 24 * time.Hour,
		Secure:             true,
	}
}
