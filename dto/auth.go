// Package dto defines the wire types exchanged with the upstream business
// API. Field names are camelCase because that is what the upstream emits;
// these tags are a contract, not a style choice.
package dto

// TokenPair is the credential set issued by the upstream on login and
// refresh. ExpiresIn is the access-token lifetime in seconds.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn,omitempty"`
}

// LoginRequest is the credentialed login payload. The captcha fields carry
// the proof of a completed slider verification when the deployment requires
// one.
type LoginRequest struct {
	Email            string `json:"email"`
	Password         string `json:"password"`
	CaptchaSessionID string `json:"captchaSessionId,omitempty"`
	SliderPosition   *int   `json:"sliderPosition,omitempty"`
}

// LoginResponse is the upstream login response body.
type LoginResponse struct {
	User    *User      `json:"user,omitempty"`
	Tokens  *TokenPair `json:"tokens,omitempty"`
	Message string     `json:"message,omitempty"`
}

// RefreshRequest carries the refresh token to the refresh endpoint.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// RefreshResponse is the upstream refresh response body.
type RefreshResponse struct {
	Tokens  *TokenPair `json:"tokens,omitempty"`
	Message string     `json:"message,omitempty"`
}

// LogoutRequest carries the refresh token to be revoked.
type LogoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// APIError is the error body shape the upstream uses for non-2xx responses.
// Either field may carry the human-readable message.
type APIError struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}
