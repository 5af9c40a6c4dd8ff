package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func validConfig() Config {
	cfg := Defaults()
	cfg.Platform.Authority = "authority-1"
	cfg.Platform.FeeRecipient = "fees-1"
	return cfg
}

func TestDefaultsValidate(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate on defaults = %v", err)
	}
}

func TestValidateCollectsProblems(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing authority", func(c *Config) { c.Platform.Authority = " " }, "platform.authority"},
		{"missing fee recipient", func(c *Config) { c.Platform.FeeRecipient = "" }, "platform.fee_recipient"},
		{"bad iterations", func(c *Config) { c.Matching.MaxIterationsPerCall = 0 }, "max_iterations_per_call"},
		{"bad lock ttl", func(c *Config) { c.Matching.LockTTLSeconds = -1 }, "lock_ttl_seconds"},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Errorf("Validate = %v, want mention of %q", err, tc.want)
			}
		})
	}
}

func TestValidateIgnoresPortWhenServerDisabled(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Enabled = false
	cfg.Server.Port = 0
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate = %v, want nil with server disabled", err)
	}
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
log_level = "debug"

[platform]
authority = "authority-1"
fee_recipient = "fees-1"

[postgres]
host = "db.internal"
port = 5433

[matching]
max_iterations_per_call = 100
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.Postgres.Host != "db.internal" || cfg.Postgres.Port != 5433 {
		t.Errorf("postgres = %s:%d, want db.internal:5433", cfg.Postgres.Host, cfg.Postgres.Port)
	}
	if cfg.Matching.MaxIterationsPerCall != 100 {
		t.Errorf("MaxIterationsPerCall = %d, want 100", cfg.Matching.MaxIterationsPerCall)
	}
	// Untouched sections keep their defaults.
	if cfg.Redis.Addr != "localhost:6379" {
		t.Errorf("Redis.Addr = %q, want default", cfg.Redis.Addr)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want default 8080", cfg.Server.Port)
	}
}

func TestEnvOverridesWin(t *testing.T) {
	t.Setenv("IPREDICT_POSTGRES_HOST", "env-host")
	t.Setenv("IPREDICT_REDIS_DB", "3")
	t.Setenv("IPREDICT_POSTGRES_RUN_MIGRATIONS", "false")
	t.Setenv("IPREDICT_SERVER_CORS_ORIGINS", "https://a.example, https://b.example")

	cfg := validConfig()
	applyEnvOverrides(&cfg)

	if cfg.Postgres.Host != "env-host" {
		t.Errorf("Postgres.Host = %q, want env-host", cfg.Postgres.Host)
	}
	if cfg.Redis.DB != 3 {
		t.Errorf("Redis.DB = %d, want 3", cfg.Redis.DB)
	}
	if cfg.Postgres.RunMigrations {
		t.Error("RunMigrations = true, want false from env")
	}
	want := []string{"https://a.example", "https://b.example"}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[0] != want[0] || cfg.Server.CORSOrigins[1] != want[1] {
		t.Errorf("CORSOrigins = %v, want %v", cfg.Server.CORSOrigins, want)
	}
}

func TestEnvOverrideIgnoresMalformedValues(t *testing.T) {
	t.Setenv("IPREDICT_REDIS_DB", "not-a-number")

	cfg := validConfig()
	applyEnvOverrides(&cfg)
	if cfg.Redis.DB != 0 {
		t.Errorf("Redis.DB = %d, want unchanged 0", cfg.Redis.DB)
	}
}
