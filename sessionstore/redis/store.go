// Package redis implements a server-side SessionStore mirror backed by Redis.
// Deployments that must not place tokens in browser cookies keep only an
// opaque session id client-side and store the credential triple here.
package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tradeflow-dev/tradeflow"
)

// Store implements tradeflow.SessionStore on a Redis hash per session id.
type Store struct {
	client    *redis.Client
	prefix    string
	sessionID string
	ttl       time.Duration
}

// NewStore binds a Store to one session id. The key expires after ttl, which
// should track the refresh-token lifetime.
func NewStore(client *redis.Client, prefix, sessionID string, ttl time.Duration) *Store {
	return &Store{client: client, prefix: prefix, sessionID: sessionID, ttl: ttl}
}

func (s *Store) key() string {
	return fmt.Sprintf("%s:session:%s", s.prefix, s.sessionID)
}

func (s *Store) Get(ctx context.Context) (*tradeflow.Session, error) {
	res, err := s.client.HGetAll(ctx, s.key()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read session from redis: %w", err)
	}
	if len(res) == 0 {
		return nil, nil
	}

	sess := &tradeflow.Session{
		AccessToken:  res["access_token"],
		RefreshToken: res["refresh_token"],
	}
	if v, ok := res["token_expiry"]; ok {
		if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
			sess.TokenExpiry = ms
		}
	}
	return sess, nil
}

func (s *Store) Set(ctx context.Context, sess *tradeflow.Session) error {
	key := s.key()
	entry := map[string]any{
		"access_token":  sess.AccessToken,
		"refresh_token": sess.RefreshToken,
		"token_expiry":  strconv.FormatInt(sess.TokenExpiry, 10),
		"updated_at":    time.Now().Unix(),
	}
	if _, err := s.client.HSet(ctx, key, entry).Result(); err != nil {
		return fmt.Errorf("failed to write session to redis: %w", err)
	}
	if _, err := s.client.Expire(ctx, key, s.ttl).Result(); err != nil {
		return fmt.Errorf("failed to set session expiry in redis: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context) error {
	if _, err := s.client.Del(ctx, s.key()).Result(); err != nil {
		return fmt.Errorf("failed to delete session from redis: %w", err)
	}
	return nil
}

var _ tradeflow.SessionStore = (*Store)(nil)
