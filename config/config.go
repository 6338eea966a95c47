package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig holds all configuration for the BFF server. Tags use
// mapstructure for viper unmarshalling; every key can also be supplied as an
// environment variable.
type ServerConfig struct {
	HTTPPort string `mapstructure:"HTTP_PORT"`

	// UpstreamAPIURL is the base URL of the business REST API that login,
	// refresh, captcha and every entity call are proxied to.
	UpstreamAPIURL string `mapstructure:"UPSTREAM_API_URL"`

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogPretty bool   `mapstructure:"LOG_PRETTY"`

	OtelServiceName string `mapstructure:"OTEL_SERVICE_NAME"`

	// Cookie policy. CookieSecure should only be disabled in local
	// development over plain HTTP.
	CookieSecure         bool   `mapstructure:"COOKIE_SECURE"`
	CookieDomain         string `mapstructure:"COOKIE_DOMAIN"`
	AccessTokenTTLMin    int    `mapstructure:"ACCESS_TOKEN_TTL_MIN"`
	RefreshTokenTTLHour  int    `mapstructure:"REFRESH_TOKEN_TTL_HOUR"`
	ReferenceCacheTTLSec int    `mapstructure:"REFERENCE_CACHE_TTL_SEC"`
	LogoutTimeoutMS      int    `mapstructure:"LOGOUT_TIMEOUT_MS"`

	// Optional redis session mirror. Empty RedisAddr keeps sessions in
	// cookies only.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`
}

// AccessTokenTTL returns the configured access-token lifetime.
func (c *ServerConfig) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenTTLMin) * time.Minute
}

// RefreshTokenTTL returns the configured refresh-token lifetime.
func (c *ServerConfig) RefreshTokenTTL() time.Duration {
	return time.Duration(c.RefreshTokenTTLHour) * time.Hour
}

// LogoutTimeout returns how long the best-effort remote logout call may run.
func (c *ServerConfig) LogoutTimeout() time.Duration {
	return time.Duration(c.LogoutTimeoutMS) * time.Millisecond
}

// LoadConfig reads configuration from file, environment variables, and
// defaults, in that order of increasing precedence for env vars.
func LoadConfig() (*ServerConfig, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/tradeflow/")
	v.AddConfigPath("$HOME/.tradeflow")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("UPSTREAM_API_URL", "http://localhost:3001/api")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", true)
	v.SetDefault("OTEL_SERVICE_NAME", "tradeflow-bff")
	v.SetDefault("COOKIE_SECURE", true)
	v.SetDefault("ACCESS_TOKEN_TTL_MIN", 60)
	v.SetDefault("REFRESH_TOKEN_TTL_HOUR", 168)
	v.SetDefault("REFERENCE_CACHE_TTL_SEC", 60)
	v.SetDefault("LOGOUT_TIMEOUT_MS", 3000)
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_DB", 0)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine, we run on env vars and defaults.
		// Anything else (unreadable, malformed) is a real error.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg ServerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	return &cfg, nil
}
