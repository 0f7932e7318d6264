package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("ENV", "development")

	cfg := fromEnv()

	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.DatabaseDriver != "memory" {
		t.Errorf("DatabaseDriver = %q, want memory", cfg.DatabaseDriver)
	}
	if cfg.AuthTokenTTL != 30*time.Minute {
		t.Errorf("AuthTokenTTL = %v, want 30m", cfg.AuthTokenTTL)
	}
	if !cfg.RequireTokenVerification {
		t.Error("RequireTokenVerification should default to true")
	}
	if cfg.GatewayTimeout != 20*time.Second {
		t.Errorf("GatewayTimeout = %v, want 20s", cfg.GatewayTimeout)
	}
	if cfg.CaptureInterval != 2*time.Second {
		t.Errorf("CaptureInterval = %v, want 2s", cfg.CaptureInterval)
	}
	if cfg.ChatModel != "gpt-4o-mini" {
		t.Errorf("ChatModel = %q, want gpt-4o-mini", cfg.ChatModel)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() unexpected error: %v", err)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("SESSION_TTL", "1h")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("CHAT_PROVIDER", "gemini")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("REQUIRE_TOKEN_VERIFICATION", "false")

	cfg := fromEnv()

	if cfg.Port != "9090" {
		t.Errorf("Port = %q, want 9090", cfg.Port)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v, want debug", cfg.LogLevel)
	}
	if cfg.SessionTTL != time.Hour {
		t.Errorf("SessionTTL = %v, want 1h", cfg.SessionTTL)
	}
	if cfg.RedisDB != 3 {
		t.Errorf("RedisDB = %d, want 3", cfg.RedisDB)
	}
	if cfg.RateLimitRPS != 2.5 {
		t.Errorf("RateLimitRPS = %v, want 2.5", cfg.RateLimitRPS)
	}
	if cfg.ChatModel != "gemini-2.0-flash" {
		t.Errorf("ChatModel = %q, want gemini-2.0-flash", cfg.ChatModel)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example" {
		t.Errorf("CORSAllowedOrigins = %v", cfg.CORSAllowedOrigins)
	}
	if cfg.RequireTokenVerification {
		t.Error("RequireTokenVerification should honour false outside production")
	}
}

func TestProductionForcesTokenVerification(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("SESSION_SECRET", "a-real-secret")
	t.Setenv("REQUIRE_TOKEN_VERIFICATION", "false")

	cfg := fromEnv()

	if !cfg.RequireTokenVerification {
		t.Error("production must require token verification")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() unexpected error: %v", err)
	}
}

func TestValidate(t *testing.T) {
	t.Setenv("ENV", "development")

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"dev secret in production", func(c *Config) { c.Env = "production" }},
		{"unknown database driver", func(c *Config) { c.DatabaseDriver = "sqlite" }},
		{"unknown session store", func(c *Config) { c.SessionStore = "memcached" }},
		{"unknown chat provider", func(c *Config) { c.ChatProvider = "llama" }},
		{"s3 without bucket", func(c *Config) { c.AudioStore = "s3"; c.S3Bucket = "" }},
		{"unknown audio store", func(c *Config) { c.AudioStore = "disk" }},
		{"zero gateway timeout", func(c *Config) { c.GatewayTimeout = 0 }},
		{"zero capture interval", func(c *Config) { c.CaptureInterval = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := fromEnv()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() expected error")
			}
		})
	}
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("GATEWAY_TIMEOUT", "soon")
	t.Setenv("REDIS_DB", "x")
	t.Setenv("LOG_LEVEL", "loud")

	cfg := fromEnv()

	if cfg.GatewayTimeout != 20*time.Second {
		t.Errorf("GatewayTimeout = %v, want default", cfg.GatewayTimeout)
	}
	if cfg.RedisDB != 0 {
		t.Errorf("RedisDB = %d, want 0", cfg.RedisDB)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want info", cfg.LogLevel)
	}
}
