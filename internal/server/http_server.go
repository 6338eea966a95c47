// Package server assembles the BFF's echo HTTP server.
package server

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	bffapi "github.com/tradeflow-dev/tradeflow/api/echo"
	"github.com/tradeflow-dev/tradeflow/config"
	"github.com/tradeflow-dev/tradeflow/log"
)

// NewHTTPServer builds the echo engine with the standard middleware chain and
// the BFF routes, wrapped in an http.Server with sane timeouts.
func NewHTTPServer(cfg *config.ServerConfig, logger log.Logger, api *bffapi.SessionAPI) *http.Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.Recover())
	e.Use(bffapi.RequestID())
	e.Use(bffapi.RequestLogger(logger))

	api.RegisterRoutes(e)

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	return &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: e,
		// Generous write timeout: the logout race alone may take 3s and
		// proxied uploads can be slow.
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}
