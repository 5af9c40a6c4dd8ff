package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies IPREDICT_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known IPREDICT_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.Platform.Authority, "IPREDICT_PLATFORM_AUTHORITY")
	setStr(&cfg.Platform.FeeRecipient, "IPREDICT_PLATFORM_FEE_RECIPIENT")

	setStr(&cfg.Postgres.DSN, "IPREDICT_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "IPREDICT_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "IPREDICT_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "IPREDICT_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "IPREDICT_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "IPREDICT_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "IPREDICT_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "IPREDICT_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "IPREDICT_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "IPREDICT_POSTGRES_RUN_MIGRATIONS")

	setStr(&cfg.Redis.Addr, "IPREDICT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "IPREDICT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "IPREDICT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "IPREDICT_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "IPREDICT_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "IPREDICT_REDIS_TLS_ENABLED")

	setInt(&cfg.Matching.MaxIterationsPerCall, "IPREDICT_MATCHING_MAX_ITERATIONS_PER_CALL")
	setInt(&cfg.Matching.LockTTLSeconds, "IPREDICT_MATCHING_LOCK_TTL_SECONDS")

	setBool(&cfg.Server.Enabled, "IPREDICT_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "IPREDICT_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "IPREDICT_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "IPREDICT_SERVER_API_KEY")

	setStr(&cfg.Notify.TelegramToken, "IPREDICT_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "IPREDICT_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "IPREDICT_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "IPREDICT_NOTIFY_EVENTS")

	setStr(&cfg.LogLevel, "IPREDICT_LOG_LEVEL")
}

// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				cleaned = append(cleaned, s)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
