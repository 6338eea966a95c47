package tradeflow

import "errors"

var (
	// ErrNoRefreshToken is returned by a refresh attempt when the session
	// store holds no refresh token, so there is nothing to exchange.
	ErrNoRefreshToken = errors.New("no refresh token available")

	// ErrTokenUnavailable is returned when no valid access token could be
	// produced, including when a transparent refresh also failed.
	ErrTokenUnavailable = errors.New("no valid access token available")

	// ErrNoSession is returned by operations that require an authenticated
	// session when the store is empty.
	ErrNoSession = errors.New("no active session")

	// ErrUnauthorized is the terminal failure of the gateway retry policy: the
	// upstream rejected the request with 401 even after a forced refresh.
	ErrUnauthorized = errors.New("unauthorized after token refresh")

	// ErrChallengeInvalid is returned when a captcha challenge response is
	// missing required fields and cannot be rendered.
	ErrChallengeInvalid = errors.New("captcha challenge response is incomplete")
)
