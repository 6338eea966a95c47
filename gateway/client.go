// Package gateway wraps every business-entity call to the upstream API with
// one bearer-auth and retry policy: proactive refresh check, reactive token
// fetch, and at most one forced-refresh retry on 401.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tradeflow-dev/tradeflow"
	"github.com/tradeflow-dev/tradeflow/authclient"
	"github.com/tradeflow-dev/tradeflow/dto"
	"github.com/tradeflow-dev/tradeflow/log"
)

// cacheableResources are reference-data collections worth caching between
// screens. Everything else is always fetched live.
var cacheableResources = map[string]bool{
	"clients":  true,
	"products": true,
}

// Options configures a gateway Client.
type Options struct {
	// BaseURL is the upstream business API base, without a trailing slash.
	BaseURL string

	// Tokens supplies bearer tokens and the forced refresh on 401. Required.
	Tokens *authclient.TokenClient

	// Refresher, when set, runs the proactive expiry check before each call.
	Refresher *authclient.AutoRefresher

	HTTPClient *http.Client
	Logger     log.Logger

	// Cache, when set, serves reference-data GETs. It may be shared across
	// clients; see ResponseCache.
	Cache *ResponseCache

	// CacheTTL builds a private cache when positive and Cache is nil.
	CacheTTL time.Duration
}

// Client is the API gateway.
type Client struct {
	baseURL   string
	http      *http.Client
	tokens    *authclient.TokenClient
	refresher *authclient.AutoRefresher
	logger    log.Logger
	cache     *ResponseCache
	ownsCache bool
}

// New builds a Client from opts.
func New(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NewZerologAdapter(zerolog.Disabled, false)
	}
	c := &Client{
		baseURL:   opts.BaseURL,
		http:      httpClient,
		tokens:    opts.Tokens,
		refresher: opts.Refresher,
		logger:    logger,
	}
	switch {
	case opts.Cache != nil:
		c.cache = opts.Cache
	case opts.CacheTTL > 0:
		c.cache = NewResponseCache(opts.CacheTTL)
		c.ownsCache = true
	}
	return c
}

// Close releases the response cache when this client owns it. Shared caches
// are left to their owner.
func (c *Client) Close() {
	if c.cache != nil && c.ownsCache {
		c.cache.Stop()
	}
}

// Do performs one authenticated JSON call. endpoint is relative to the base
// URL ("/quotations", "/invoices/42"). body, when non-nil, is sent as JSON;
// out, when non-nil, receives the decoded response. An empty response body
// decodes as the zero value rather than an error.
func (c *Client) Do(ctx context.Context, method, endpoint string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
	}

	if method == http.MethodGet && c.cache != nil && cacheableEndpoint(endpoint) {
		if cached, ok := c.cache.get(endpoint); ok {
			return decodeBody(cached, out)
		}
	}

	data, err := c.do(ctx, method, endpoint, payload, "application/json")
	if err != nil {
		return err
	}

	if c.cache != nil {
		if method == http.MethodGet {
			if cacheableEndpoint(endpoint) {
				c.cache.set(endpoint, data)
			}
		} else {
			c.cache.flush()
		}
	}

	return decodeBody(data, out)
}

// Upload performs a multipart POST, used for signed delivery PDFs and
// signature images. The Content-Type header is left to the multipart writer
// so the boundary is set correctly.
func (c *Client) Upload(ctx context.Context, endpoint string, fields map[string]string, fileField, fileName string, file io.Reader, out any) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			return fmt.Errorf("writing multipart field %q: %w", k, err)
		}
	}
	part, err := writer.CreateFormFile(fileField, fileName)
	if err != nil {
		return fmt.Errorf("creating multipart file part: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("copying upload payload: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("finalizing multipart body: %w", err)
	}

	data, err := c.do(ctx, http.MethodPost, endpoint, buf.Bytes(), writer.FormDataContentType())
	if err != nil {
		return err
	}
	if c.cache != nil {
		c.cache.flush()
	}
	return decodeBody(data, out)
}

// Forward runs one pre-encoded request through the full pipeline and returns
// the raw response body. The BFF proxy uses it to pass browser payloads
// (including multipart uploads) through unchanged.
func (c *Client) Forward(ctx context.Context, method, endpoint, contentType string, body []byte) ([]byte, error) {
	data, err := c.do(ctx, method, endpoint, body, contentType)
	if err != nil {
		return nil, err
	}
	if c.cache != nil && method != http.MethodGet {
		c.cache.flush()
	}
	return data, nil
}

// do runs the request pipeline with the 401-retry policy. The body is held as
// bytes so the single permitted retry can resend it.
func (c *Client) do(ctx context.Context, method, endpoint string, body []byte, contentType string) ([]byte, error) {
	// Proactive: refresh early when the token is close to expiry. A failure
	// here is not terminal; ValidToken below gives the definitive answer.
	if c.refresher != nil {
		if _, err := c.refresher.CheckAndRefresh(ctx); err != nil {
			c.logger.Warn(ctx, "proactive refresh failed", map[string]any{"error": err.Error()})
		}
	}

	for attempt := 0; ; attempt++ {
		token, err := c.tokens.ValidToken(ctx)
		if err != nil {
			return nil, err
		}

		var reqBody io.Reader
		if body != nil {
			reqBody = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reqBody)
		if err != nil {
			return nil, fmt.Errorf("building request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		if body != nil && contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", method, endpoint, err)
		}
		data, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, fmt.Errorf("reading response: %w", readErr)
		}

		if resp.StatusCode == http.StatusUnauthorized {
			// Exactly one forced refresh and retry; a second 401 is final.
			if attempt < 1 {
				c.logger.Debug(ctx, "received 401, forcing token refresh", map[string]any{"endpoint": endpoint})
				if _, err := c.tokens.Refresh(ctx); err != nil {
					return nil, err
				}
				continue
			}
			return nil, fmt.Errorf("%w: %s %s", tradeflow.ErrUnauthorized, method, endpoint)
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("%s %s: %s", method, endpoint, errorMessage(data, resp.StatusCode))
		}
		return data, nil
	}
}

// errorMessage extracts a human-readable message from a JSON error body,
// falling back to the legacy status line.
func errorMessage(body []byte, status int) string {
	if len(body) > 0 {
		var apiErr dto.APIError
		if err := json.Unmarshal(body, &apiErr); err == nil {
			if apiErr.Message != "" {
				return apiErr.Message
			}
			if apiErr.Error != "" {
				return apiErr.Error
			}
		}
	}
	return fmt.Sprintf("HTTP error! status: %d", status)
}

// decodeBody unmarshals into out, treating empty bodies (204, empty 200) as
// the zero value.
func decodeBody(data []byte, out any) error {
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// cacheableEndpoint reports whether endpoint is a cacheable reference-data
// collection read. Only bare collection GETs are cached; item reads and
// filtered queries go through.
func cacheableEndpoint(endpoint string) bool {
	name := strings.TrimPrefix(endpoint, "/")
	return cacheableResources[name]
}
