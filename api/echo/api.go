// Package echo exposes the BFF HTTP surface: session endpoints, the captcha
// relay, and the authenticated proxy to the upstream business API. Each
// request gets its own cookie-backed session store and token client; the
// refresh gates and the response cache are shared across requests.
package echo

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/tradeflow-dev/tradeflow"
	"github.com/tradeflow-dev/tradeflow/authclient"
	"github.com/tradeflow-dev/tradeflow/captcha"
	"github.com/tradeflow-dev/tradeflow/dto"
	"github.com/tradeflow-dev/tradeflow/gateway"
	"github.com/tradeflow-dev/tradeflow/log"
	"github.com/tradeflow-dev/tradeflow/sessionstore"
)

// loginPath is where the frontend sends the user when a session ends.
const loginPath = "/login"

// SessionAPI holds the shared dependencies of the BFF handlers.
type SessionAPI struct {
	upstreamURL   string
	policy        tradeflow.CookiePolicy
	httpClient    *http.Client
	logger        log.Logger
	gates         *authclient.GateRegistry
	captchaClient *captcha.Client
	cache         *gateway.ResponseCache
	accessTTL     time.Duration
	logoutTimeout time.Duration
	redis         *redis.Client
	redisPrefix   string
}

// Options configures a SessionAPI.
type Options struct {
	// UpstreamURL is the business API base, without a trailing slash.
	UpstreamURL string

	Policy     tradeflow.CookiePolicy
	HTTPClient *http.Client
	Logger     log.Logger

	// Gates dedupes concurrent refreshes per credential chain. Required.
	Gates *authclient.GateRegistry

	AccessTokenTTL time.Duration
	LogoutTimeout  time.Duration

	// CacheTTL enables the shared reference-data cache when positive.
	CacheTTL time.Duration

	// Redis switches the session to the server-side mirror: tokens are kept
	// in redis and the browser carries only an opaque session-id cookie.
	// Nil keeps the default cookie-borne sessions.
	Redis *redis.Client

	// RedisKeyPrefix namespaces the mirror's keys. Defaults to "tradeflow".
	RedisKeyPrefix string
}

// NewSessionAPI builds the BFF handler set.
func NewSessionAPI(opts Options) *SessionAPI {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	redisPrefix := opts.RedisKeyPrefix
	if redisPrefix == "" {
		redisPrefix = "tradeflow"
	}
	api := &SessionAPI{
		upstreamURL:   opts.UpstreamURL,
		policy:        opts.Policy,
		httpClient:    httpClient,
		logger:        opts.Logger,
		gates:         opts.Gates,
		captchaClient: captcha.NewClient(opts.UpstreamURL, httpClient),
		accessTTL:     opts.AccessTokenTTL,
		logoutTimeout: opts.LogoutTimeout,
		redis:         opts.Redis,
		redisPrefix:   redisPrefix,
	}
	if opts.CacheTTL > 0 {
		api.cache = gateway.NewResponseCache(opts.CacheTTL)
	}
	return api
}

// RegisterRoutes registers the BFF routes.
func (s *SessionAPI) RegisterRoutes(e *echo.Echo) {
	e.POST("/session/login", s.LoginHandler)
	e.POST("/session/logout", s.LogoutHandler)
	e.GET("/session/status", s.StatusHandler)

	e.GET("/captcha/challenge", s.CaptchaChallengeHandler)
	e.POST("/captcha/verify", s.CaptchaVerifyHandler)

	e.Any("/api/*", s.ProxyHandler)
}

// Close releases shared resources.
func (s *SessionAPI) Close() {
	if s.cache != nil {
		s.cache.Stop()
	}
}

// sessionStore picks this request's store: token cookies by default, or the
// redis mirror behind an opaque session-id cookie when redis is configured.
func (s *SessionAPI) sessionStore(c echo.Context) tradeflow.SessionStore {
	if s.redis == nil {
		return sessionstore.NewCookieStore(c.Request(), c.Response(), s.policy)
	}
	id := ""
	if ck, err := c.Request().Cookie(CookieSessionID); err == nil {
		id = ck.Value
	}
	return &redisSessionStore{api: s, w: c.Response(), id: id}
}

// tokenClient wires a TokenClient to this request's session. The gate is
// looked up by the current refresh token so concurrent requests of one
// browser session share a single refresh flight.
func (s *SessionAPI) tokenClient(c echo.Context) (*authclient.TokenClient, tradeflow.SessionStore) {
	store := s.sessionStore(c)

	var gate *authclient.RefreshGate
	if sess, err := store.Get(c.Request().Context()); err == nil && sess != nil && sess.RefreshToken != "" {
		gate = s.gates.For(sess.RefreshToken)
	}

	client := authclient.New(authclient.Options{
		BaseURL:        s.upstreamURL,
		Store:          store,
		HTTPClient:     s.httpClient,
		Logger:         s.logger,
		AccessTokenTTL: s.accessTTL,
		LogoutTimeout:  s.logoutTimeout,
		Gate:           gate,
		OnSessionEnd:   s.endSession,
	})
	return client, store
}

// newRefresher wraps tokens for the on-demand expiry check the proxy runs
// before each outbound call. The timer loop is never started here; per-request
// lifetimes are too short for it.
func (s *SessionAPI) newRefresher(tokens *authclient.TokenClient) *authclient.AutoRefresher {
	return authclient.NewAutoRefresher(tokens, s.logger)
}

// LoginHandler authenticates against the upstream and writes the session
// cookies. Expected failures come back as success=false with a message; the
// UI branches on the flag, not the status code.
func (s *SessionAPI) LoginHandler(c echo.Context) error {
	var creds dto.LoginRequest
	if err := c.Bind(&creds); err != nil {
		return c.JSON(http.StatusBadRequest, authclient.LoginResult{Error: "Invalid request body"})
	}

	tokens, _ := s.tokenClient(c)
	result := tokens.Login(c.Request().Context(), creds)
	if !result.Success {
		s.logger.Info(c.Request().Context(), "login rejected", map[string]any{"email": creds.Email})
	}
	return c.JSON(http.StatusOK, result)
}

// LogoutHandler revokes the session upstream (best effort, bounded) and
// always clears the cookies. The redirect target is part of the response on
// every path, including when every preceding step failed.
func (s *SessionAPI) LogoutHandler(c echo.Context) error {
	tokens, _ := s.tokenClient(c)
	result := tokens.Logout(c.Request().Context())
	return c.JSON(http.StatusOK, map[string]any{
		"success":           result.Success,
		"apiCallSuccessful": result.APICallSuccessful,
		"redirect":          loginPath,
	})
}

// StatusHandler reports credential presence for the frontend's expiry poll.
func (s *SessionAPI) StatusHandler(c echo.Context) error {
	_, store := s.tokenClient(c)
	sess, err := store.Get(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusOK, tradeflow.AuthStatus{})
	}
	return c.JSON(http.StatusOK, tradeflow.StatusOf(sess))
}

// CaptchaChallengeHandler relays a fresh slider challenge. No auth required.
func (s *SessionAPI) CaptchaChallengeHandler(c echo.Context) error {
	challenge, err := s.captchaClient.Generate(c.Request().Context())
	if err != nil {
		s.logger.Error(c.Request().Context(), "captcha challenge fetch failed", err)
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "Failed to load challenge"})
	}
	return c.JSON(http.StatusOK, challenge)
}

// CaptchaVerifyHandler relays a verification attempt. A mismatch is a normal
// 200 with valid=false and the server's precision hint.
func (s *SessionAPI) CaptchaVerifyHandler(c echo.Context) error {
	var req dto.CaptchaVerifyRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	result, err := s.captchaClient.Verify(c.Request().Context(), req.SessionID, req.SliderPosition)
	if err != nil {
		s.logger.Error(c.Request().Context(), "captcha verify relay failed", err)
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "Verification unavailable"})
	}
	return c.JSON(http.StatusOK, result)
}

// endSession is the OnSessionEnd hook used by proxy-path clients; the
// response already carries the cookie deletions, so only the redirect hint
// remains for the frontend.
func (s *SessionAPI) endSession(ctx context.Context) {
	s.logger.Debug(ctx, "session ended, frontend redirects to login")
}
