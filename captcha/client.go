// Package captcha drives the slider-puzzle verification protocol: fetching a
// challenge, rescaling its geometry for the render surface, and submitting
// the user's slider offset.
package captcha

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/tradeflow-dev/tradeflow"
	"github.com/tradeflow-dev/tradeflow/dto"
)

// Client talks to the captcha endpoints. Neither endpoint requires auth.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a Client for the upstream API base URL.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{baseURL: baseURL, http: httpClient}
}

// Generate fetches a fresh challenge. A response missing any of sessionId,
// backgroundImage or puzzlePiece is rejected as a whole; rendering a partial
// challenge would only produce an unverifiable attempt.
func (c *Client) Generate(ctx context.Context) (*dto.CaptchaChallenge, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/captcha/generate", nil)
	if err != nil {
		return nil, fmt.Errorf("building challenge request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching challenge: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("challenge request returned status %d", resp.StatusCode)
	}

	var challenge dto.CaptchaChallenge
	if err := json.NewDecoder(resp.Body).Decode(&challenge); err != nil {
		return nil, fmt.Errorf("decoding challenge: %w", err)
	}
	if challenge.SessionID == "" || challenge.BackgroundImage == "" || challenge.PuzzlePiece == "" {
		return nil, tradeflow.ErrChallengeInvalid
	}
	return &challenge, nil
}

// Verify submits a slider position in original (server reference) space. The
// outcome is a normal result either way; a mismatch is not an error.
func (c *Client) Verify(ctx context.Context, sessionID string, position int) (*dto.CaptchaVerifyResponse, error) {
	payload, err := json.Marshal(dto.CaptchaVerifyRequest{SessionID: sessionID, SliderPosition: position})
	if err != nil {
		return nil, fmt.Errorf("encoding verification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/captcha/verify", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building verification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("submitting verification: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading verification response: %w", err)
	}

	var out dto.CaptchaVerifyResponse
	if len(data) > 0 {
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, fmt.Errorf("decoding verification response: %w", err)
		}
	}
	return &out, nil
}
