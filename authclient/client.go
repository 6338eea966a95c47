// Package authclient implements the token lifecycle against the upstream
// auth API: login, logout, refresh and proactive re-refresh. It owns the
// single-flight refresh guarantee and is the only writer of the session
// store.
package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/tradeflow-dev/tradeflow"
	"github.com/tradeflow-dev/tradeflow/dto"
	"github.com/tradeflow-dev/tradeflow/internal/async"
	"github.com/tradeflow-dev/tradeflow/log"
)

// refreshLeeway is how close to expiry ValidToken still trusts the cached
// access token. At or under this margin it refreshes first.
const refreshLeeway = 60 * time.Second

// defaultLogoutTimeout bounds the best-effort remote logout call.
const defaultLogoutTimeout = 3 * time.Second

// Options configures a TokenClient.
type Options struct {
	// BaseURL is the upstream auth API base, without a trailing slash.
	BaseURL string

	// Store holds the session. Required.
	Store tradeflow.SessionStore

	HTTPClient *http.Client
	Logger     log.Logger

	// AccessTokenTTL is the assumed access-token lifetime when the upstream
	// response omits expiresIn. Defaults to one hour.
	AccessTokenTTL time.Duration

	// LogoutTimeout bounds the remote logout call. Defaults to three seconds.
	LogoutTimeout time.Duration

	// OnSessionEnd runs on every Logout exit path, after local cleanup. The
	// BFF uses it to send the user back to the login screen.
	OnSessionEnd func(ctx context.Context)

	// Gate dedupes concurrent refreshes. Leave nil for a private gate; the
	// BFF injects one shared gate across its per-request clients so the
	// single-flight guarantee holds process-wide.
	Gate *RefreshGate
}

// TokenClient performs login, logout and refresh against the upstream auth
// API and keeps the session store consistent.
type TokenClient struct {
	baseURL       string
	http          *http.Client
	store         tradeflow.SessionStore
	logger        log.Logger
	accessTTL     time.Duration
	logoutTimeout time.Duration
	onSessionEnd  func(ctx context.Context)
	gate          *RefreshGate

	now func() time.Time
}

// New builds a TokenClient from opts.
func New(opts Options) *TokenClient {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NewZerologAdapter(zerolog.Disabled, false)
	}
	accessTTL := opts.AccessTokenTTL
	if accessTTL <= 0 {
		accessTTL = time.Hour
	}
	logoutTimeout := opts.LogoutTimeout
	if logoutTimeout <= 0 {
		logoutTimeout = defaultLogoutTimeout
	}
	gate := opts.Gate
	if gate == nil {
		gate = NewRefreshGate()
	}
	return &TokenClient{
		baseURL:       opts.BaseURL,
		http:          httpClient,
		store:         opts.Store,
		logger:        logger,
		accessTTL:     accessTTL,
		logoutTimeout: logoutTimeout,
		onSessionEnd:  opts.OnSessionEnd,
		gate:          gate,
		now:           time.Now,
	}
}

// LoginResult is the structured outcome of a login attempt. Login never
// returns an error; transport and upstream failures appear as Success=false
// with a user-facing message.
type LoginResult struct {
	Success bool      `json:"success"`
	User    *dto.User `json:"user,omitempty"`
	Error   string    `json:"error,omitempty"`
}

// LogoutResult reports a logout. Success refers to the local cleanup, which
// cannot fail from the caller's point of view; APICallSuccessful records
// whether the upstream revocation went through within the timeout.
type LogoutResult struct {
	Success           bool `json:"success"`
	APICallSuccessful bool `json:"apiCallSuccessful"`
}

// Login posts credentials (plus a captcha proof when present) and, on
// success, writes the full session to the store.
func (c *TokenClient) Login(ctx context.Context, creds dto.LoginRequest) LoginResult {
	var out dto.LoginResponse
	status, err := c.postJSON(ctx, "/auth/login", creds, &out)
	if err != nil {
		c.logger.Error(ctx, "login request failed", err)
		return LoginResult{Error: "Login failed"}
	}
	if status < 200 || status >= 300 || out.Tokens == nil || out.Tokens.AccessToken == "" {
		msg := out.Message
		if msg == "" {
			msg = "Login failed"
		}
		return LoginResult{Error: msg}
	}
	if err := c.storeTokens(ctx, out.Tokens); err != nil {
		c.logger.Error(ctx, "failed to persist session after login", err)
		return LoginResult{Error: "Login failed"}
	}
	return LoginResult{Success: true, User: out.User}
}

// Logout revokes the refresh token upstream on a best-effort basis, then
// clears the local session. The OnSessionEnd hook runs on every exit path,
// whatever happened before it.
func (c *TokenClient) Logout(ctx context.Context) LogoutResult {
	defer func() {
		if c.onSessionEnd != nil {
			c.onSessionEnd(ctx)
		}
	}()

	res := LogoutResult{Success: true}

	sess, err := c.store.Get(ctx)
	if err != nil {
		c.logger.Error(ctx, "failed to read session during logout", err)
	}
	if sess != nil && sess.RefreshToken != "" {
		_, err := async.WithTimeout(ctx, c.logoutTimeout, func(opCtx context.Context) (int, error) {
			status, err := c.postJSON(opCtx, "/auth/logout", dto.LogoutRequest{RefreshToken: sess.RefreshToken}, nil)
			if err != nil {
				return 0, err
			}
			if status < 200 || status >= 300 {
				return status, fmt.Errorf("logout returned status %d", status)
			}
			return status, nil
		})
		res.APICallSuccessful = err == nil
		if err != nil {
			// Non-fatal: the session is wiped locally either way.
			c.logger.Warn(ctx, "remote logout failed", map[string]any{"error": err.Error()})
		}
	}

	if err := c.store.Delete(ctx); err != nil {
		c.logger.Error(ctx, "failed to clear session", err)
	}
	return res
}

// Refresh exchanges the stored refresh token for a new token pair. Concurrent
// callers share one network round-trip and observe the same outcome. A failed
// exchange ends the session via Logout before the error is returned, so stale
// credentials never survive.
func (c *TokenClient) Refresh(ctx context.Context) (string, error) {
	return c.gate.do(ctx, func() (string, error) {
		return c.refreshOnce(ctx)
	})
}

func (c *TokenClient) refreshOnce(ctx context.Context) (string, error) {
	sess, err := c.store.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("reading session: %w", err)
	}
	if sess == nil || sess.RefreshToken == "" {
		return "", tradeflow.ErrNoRefreshToken
	}

	var out dto.RefreshResponse
	status, err := c.postJSON(ctx, "/auth/refresh", dto.RefreshRequest{RefreshToken: sess.RefreshToken}, &out)
	if err == nil && (status < 200 || status >= 300 || out.Tokens == nil || out.Tokens.AccessToken == "") {
		msg := out.Message
		if msg == "" {
			msg = fmt.Sprintf("refresh returned status %d", status)
		}
		err = errors.New(msg)
	}
	if err != nil {
		c.logger.Warn(ctx, "token refresh failed, ending session", map[string]any{"error": err.Error()})
		c.Logout(ctx)
		return "", fmt.Errorf("refresh token exchange failed: %w", err)
	}

	if err := c.storeTokens(ctx, out.Tokens); err != nil {
		return "", fmt.Errorf("persisting refreshed session: %w", err)
	}
	return out.Tokens.AccessToken, nil
}

// ValidToken returns the cached access token, refreshing it first when it is
// absent or expires within refreshLeeway.
func (c *TokenClient) ValidToken(ctx context.Context) (string, error) {
	sess, err := c.store.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("reading session: %w", err)
	}
	if sess != nil && sess.AccessToken != "" {
		if sess.ExpiresAt().Sub(c.now()) > refreshLeeway {
			return sess.AccessToken, nil
		}
	}

	token, err := c.Refresh(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", tradeflow.ErrTokenUnavailable, err)
	}
	return token, nil
}

// Status reports credential presence. It is a liveness hint only; actual
// token validity is decided by the upstream on each call.
func (c *TokenClient) Status(ctx context.Context) tradeflow.AuthStatus {
	sess, err := c.store.Get(ctx)
	if err != nil {
		return tradeflow.AuthStatus{}
	}
	return tradeflow.StatusOf(sess)
}

// storeTokens rewrites the whole session from a fresh token pair. All three
// fields are replaced together; there is no partial-write path.
func (c *TokenClient) storeTokens(ctx context.Context, tokens *dto.TokenPair) error {
	ttl := c.accessTTL
	if tokens.ExpiresIn > 0 {
		ttl = time.Duration(tokens.ExpiresIn) * time.Second
	}
	return c.store.Set(ctx, &tradeflow.Session{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		TokenExpiry:  c.now().Add(ttl).UnixMilli(),
	})
}

// postJSON posts body as JSON and decodes the response into out when
// provided. Empty bodies decode to the zero value rather than an error. The
// HTTP status is returned for the caller to judge.
func (c *TokenClient) postJSON(ctx context.Context, path string, body, out any) (int, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("reading response: %w", err)
	}
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return resp.StatusCode, fmt.Errorf("decoding response: %w", err)
		}
	}
	return resp.StatusCode, nil
}
