package echo

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/tradeflow-dev/tradeflow"
	"github.com/tradeflow-dev/tradeflow/gateway"
)

// ProxyHandler forwards a browser call to the upstream business API through
// the gateway pipeline: proactive refresh check, bearer auth, and one forced
// retry on 401. The body passes through unchanged, so JSON and multipart
// uploads both work; for multipart the browser's content type (carrying the
// boundary) is forwarded as-is.
func (s *SessionAPI) ProxyHandler(c echo.Context) error {
	ctx := c.Request().Context()

	tokens, _ := s.tokenClient(c)
	refresher := s.newRefresher(tokens)
	gw := gateway.New(gateway.Options{
		BaseURL:    s.upstreamURL,
		Tokens:     tokens,
		Refresher:  refresher,
		HTTPClient: s.httpClient,
		Logger:     s.logger,
		Cache:      s.cache,
	})

	endpoint := "/" + strings.TrimPrefix(c.Param("*"), "/")
	if q := c.QueryString(); q != "" {
		endpoint += "?" + q
	}

	var body []byte
	if c.Request().Body != nil {
		var err error
		body, err = io.ReadAll(c.Request().Body)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Unreadable request body"})
		}
	}
	contentType := c.Request().Header.Get(echo.HeaderContentType)

	data, err := gw.Forward(ctx, c.Request().Method, endpoint, contentType, body)
	if err != nil {
		return s.proxyError(c, err)
	}
	if len(data) == 0 {
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSONBlob(http.StatusOK, data)
}

// proxyError maps gateway failures onto BFF responses. Credential failures
// carry the login redirect so the frontend can bail out immediately.
func (s *SessionAPI) proxyError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, tradeflow.ErrUnauthorized),
		errors.Is(err, tradeflow.ErrTokenUnavailable),
		errors.Is(err, tradeflow.ErrNoRefreshToken):
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error":    err.Error(),
			"redirect": loginPath,
		})
	default:
		s.logger.Error(c.Request().Context(), "proxied call failed", err, map[string]any{
			"method": c.Request().Method,
			"path":   c.Request().URL.Path,
		})
		return c.JSON(http.StatusBadGateway, map[string]string{"error": err.Error()})
	}
}
