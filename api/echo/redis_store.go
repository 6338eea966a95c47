package echo

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/tradeflow-dev/tradeflow"
	redisstore "github.com/tradeflow-dev/tradeflow/sessionstore/redis"
)

// CookieSessionID names the opaque session-id cookie used in redis mode. The
// browser never sees tokens in this mode, only this reference.
const CookieSessionID = "sessionId"

// redisSessionStore is the per-request SessionStore for redis mode: tokens
// live in the redis mirror, keyed by an opaque id carried in a single
// HTTP-only cookie. The id is minted on the first Set of a request (the login
// path) and revoked together with the mirror entry on Delete.
type redisSessionStore struct {
	api *SessionAPI
	w   http.ResponseWriter
	id  string
}

func (r *redisSessionStore) mirror() *redisstore.Store {
	return redisstore.NewStore(r.api.redis, r.api.redisPrefix, r.id, r.api.policy.RefreshTokenMaxAge)
}

func (r *redisSessionStore) Get(ctx context.Context) (*tradeflow.Session, error) {
	if r.id == "" {
		return nil, nil
	}
	return r.mirror().Get(ctx)
}

func (r *redisSessionStore) Set(ctx context.Context, s *tradeflow.Session) error {
	if r.id == "" {
		r.id = uuid.NewString()
	}
	if err := r.mirror().Set(ctx, s); err != nil {
		return err
	}
	http.SetCookie(r.w, &http.Cookie{
		Name:     CookieSessionID,
		Value:    r.id,
		Path:     "/",
		Domain:   r.api.policy.Domain,
		MaxAge:   int(r.api.policy.RefreshTokenMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   r.api.policy.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (r *redisSessionStore) Delete(ctx context.Context) error {
	http.SetCookie(r.w, &http.Cookie{
		Name:     CookieSessionID,
		Value:    "",
		Path:     "/",
		Domain:   r.api.policy.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   r.api.policy.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	if r.id == "" {
		return nil
	}
	return r.mirror().Delete(ctx)
}

var _ tradeflow.SessionStore = (*redisSessionStore)(nil)
