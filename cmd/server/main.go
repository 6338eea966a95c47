package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/tradeflow-dev/tradeflow"
	bffapi "github.com/tradeflow-dev/tradeflow/api/echo"
	"github.com/tradeflow-dev/tradeflow/authclient"
	"github.com/tradeflow-dev/tradeflow/config"
	"github.com/tradeflow-dev/tradeflow/internal/server"
	"github.com/tradeflow-dev/tradeflow/log"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		stdLog := zerolog.New(os.Stderr).With().Timestamp().Logger()
		stdLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logLevel, parseErr := zerolog.ParseLevel(cfg.LogLevel)
	if parseErr != nil {
		logLevel = zerolog.InfoLevel
	}
	logger := log.NewZerologAdapter(logLevel, cfg.LogPretty)

	ctx := context.Background()
	if parseErr != nil {
		logger.Warn(ctx, "invalid LOG_LEVEL, defaulting to info", map[string]any{
			"configured": cfg.LogLevel,
		})
	}
	logger.Info(ctx, "starting tradeflow BFF", map[string]any{
		"http_port":    cfg.HTTPPort,
		"upstream_api": cfg.UpstreamAPIURL,
		"log_level":    logLevel.String(),
	})

	// Redis is optional; when configured, sessions move server-side behind an
	// opaque session-id cookie. The ping makes a bad address fail at boot
	// instead of on the first session write.
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			logger.Fatal(ctx, "redis configured but unreachable", err, map[string]any{
				"addr": cfg.RedisAddr,
			})
		}
		logger.Info(ctx, "redis session mirror enabled", map[string]any{"addr": cfg.RedisAddr})
		defer rdb.Close()
	}

	policy := tradeflow.CookiePolicy{
		AccessTokenMaxAge:  cfg.AccessTokenTTL(),
		RefreshTokenMaxAge: cfg.RefreshTokenTTL(),
		Secure:             cfg.CookieSecure,
		Domain:             cfg.CookieDomain,
	}

	gates := authclient.NewGateRegistry(cfg.AccessTokenTTL())
	defer gates.Close()

	api := bffapi.NewSessionAPI(bffapi.Options{
		UpstreamURL:    cfg.UpstreamAPIURL,
		Policy:         policy,
		Logger:         logger,
		Gates:          gates,
		AccessTokenTTL: cfg.AccessTokenTTL(),
		LogoutTimeout:  cfg.LogoutTimeout(),
		CacheTTL:       time.Duration(cfg.ReferenceCacheTTLSec) * time.Second,
		Redis:          rdb,
	})
	defer api.Close()

	httpServer := server.NewHTTPServer(cfg, logger, api)

	go func() {
		logger.Info(ctx, "HTTP server listening", map[string]any{"addr": httpServer.Addr})
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal(ctx, "HTTP server failed", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.Info(ctx, "shutting down", map[string]any{"signal": sig.String()})

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "graceful shutdown failed", err)
	}
	logger.Info(ctx, "server stopped")
}
