package dto

// CaptchaChallenge is a server-issued slider puzzle. The geometry fields are
// expressed in the server's reference resolution; clients rendering at a
// different width must rescale (see the captcha package).
type CaptchaChallenge struct {
	SessionID       string `json:"sessionId"`
	BackgroundImage string `json:"backgroundImage"`
	PuzzlePiece     string `json:"puzzlePiece"`
	PuzzleY         int    `json:"puzzleY"`
	PuzzleSize      int    `json:"puzzleSize"`
	CanvasWidth     int    `json:"canvasWidth"`
	CanvasHeight    int    `json:"canvasHeight"`
	ExpiresIn       int    `json:"expiresIn"`
}

// CaptchaVerifyRequest submits the user's slider offset, in the server's
// reference coordinate space.
type CaptchaVerifyRequest struct {
	SessionID      string `json:"sessionId"`
	SliderPosition int    `json:"sliderPosition"`
}

// CaptchaVerifyResponse reports the verification outcome. Message may carry a
// precision hint such as "Off by 12px". Token, when present, is an extra
// proof value some deployments require on login.
type CaptchaVerifyResponse struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
	Token   string `json:"token,omitempty"`
}
