// Package config defines the top-level configuration for the prediction
// market engine and provides validation helpers.
package config

import (
	"fmt"
	"strings"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by IPREDICT_* environment
// variables.
type Config struct {
	Platform PlatformConfig `toml:"platform"`
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	Matching MatchingConfig `toml:"matching"`
	Server   ServerConfig   `toml:"server"`
	Notify   NotifyConfig   `toml:"notify"`
	LogLevel string         `toml:"log_level"`
}

// PlatformConfig identifies the resolution authority and the account that
// receives the platform's fee share.
type PlatformConfig struct {
	Authority    string `toml:"authority"`
	FeeRecipient string `toml:"fee_recipient"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// MatchingConfig bounds the cooperative matching loop.
type MatchingConfig struct {
	// MaxIterationsPerCall caps fills per matching invocation; callers
	// re-invoke until the book is quiescent.
	MaxIterationsPerCall int `toml:"max_iterations_per_call"`
	// LockTTLSeconds is the distributed lock TTL held per invocation.
	LockTTLSeconds int `toml:"lock_ttl_seconds"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
}

// NotifyConfig configures operator notifications. Senders with empty
// credentials are disabled; Events filters which lifecycle events are
// forwarded (empty means all).
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// Defaults returns the built-in configuration baseline.
func Defaults() Config {
	return Config{
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "ipredict",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
		},
		Matching: MatchingConfig{
			MaxIterationsPerCall: 25,
			LockTTLSeconds:       10,
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8080,
			CORSOrigins: []string{"*"},
		},
		LogLevel: "info",
	}
}

// Validate checks the configuration for fields that would prevent startup.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Platform.Authority) == "" {
		problems = append(problems, "platform.authority is required")
	}
	if strings.TrimSpace(c.Platform.FeeRecipient) == "" {
		problems = append(problems, "platform.fee_recipient is required")
	}
	if c.Matching.MaxIterationsPerCall <= 0 {
		problems = append(problems, "matching.max_iterations_per_call must be positive")
	}
	if c.Matching.LockTTLSeconds <= 0 {
		problems = append(problems, "matching.lock_ttl_seconds must be positive")
	}
	if c.Server.Enabled && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		problems = append(problems, "server.port must be in 1..65535")
	}
	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Sprintf("log_level %q is not one of debug, info, warn, error", c.LogLevel))
	}

	if len(problems) > 0 {
		return fmt.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}
