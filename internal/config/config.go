package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

const devSessionSecret = "dev-secret-change-in-production"

type Config struct {
	Port     string
	Env      string
	LogLevel slog.Level

	DatabaseDriver string
	DatabaseDSN    string

	SessionSecret string
	SessionTTL    time.Duration
	SessionStore  string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	AuthTokenTTL             time.Duration
	RequireTokenVerification bool
	AppBaseURL               string
	CORSAllowedOrigins       []string

	OpenAIAPIKey     string
	OpenAIBaseURL    string
	ChatProvider     string
	ChatModel        string
	GeminiAPIKey     string
	STTModel         string
	CartesiaAPIKey   string
	ElevenLabsAPIKey string
	GatewayTimeout   time.Duration

	AudioStore  string
	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string

	CaptureInterval    time.Duration
	CaptureMaxDuration time.Duration

	RateLimitRPS   float64
	RateLimitBurst int
}

// IsProduction reports whether the server runs with production settings.
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// Load reads the configuration from the environment. It exits the process
// when the configuration is unusable.
func Load() Config {
	cfg := fromEnv()

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	return cfg
}

func fromEnv() Config {
	cfg := Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: parseLevel(getEnv("LOG_LEVEL", "info")),

		DatabaseDriver: strings.ToLower(getEnv("DATABASE_DRIVER", "memory")),
		DatabaseDSN:    getEnv("DATABASE_DSN", "root:password@tcp(127.0.0.1:3306)/voxmate?parseTime=true"),

		SessionSecret: getEnv("SESSION_SECRET", devSessionSecret),
		SessionTTL:    getDuration("SESSION_TTL", 7*24*time.Hour),
		SessionStore:  strings.ToLower(getEnv("SESSION_STORE", "memory")),
		RedisAddr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getInt("REDIS_DB", 0),

		AuthTokenTTL:             getDuration("AUTH_TOKEN_TTL", 30*time.Minute),
		RequireTokenVerification: getBool("REQUIRE_TOKEN_VERIFICATION", true),
		AppBaseURL:               strings.TrimRight(getEnv("APP_BASE_URL", "http://localhost:5173"), "/"),
		CORSAllowedOrigins:       splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173")),

		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:    strings.TrimRight(getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"), "/"),
		ChatProvider:     strings.ToLower(getEnv("CHAT_PROVIDER", "openai")),
		ChatModel:        getEnv("CHAT_MODEL", ""),
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		STTModel:         getEnv("STT_MODEL", "whisper-1"),
		CartesiaAPIKey:   os.Getenv("CARTESIA_API_KEY"),
		ElevenLabsAPIKey: os.Getenv("ELEVENLABS_API_KEY"),
		GatewayTimeout:   getDuration("GATEWAY_TIMEOUT", 20*time.Second),

		AudioStore:  strings.ToLower(getEnv("AUDIO_STORE", "inline")),
		S3Bucket:    os.Getenv("S3_BUCKET"),
		S3Region:    getEnv("S3_REGION", "us-east-1"),
		S3Endpoint:  os.Getenv("S3_ENDPOINT"),
		S3AccessKey: os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey: os.Getenv("S3_SECRET_KEY"),

		CaptureInterval:    getDuration("CAPTURE_INTERVAL", 2*time.Second),
		CaptureMaxDuration: getDuration("CAPTURE_MAX_DURATION", 2*time.Minute),

		RateLimitRPS:   getFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst: getInt("RATE_LIMIT_BURST", 10),
	}

	if cfg.ChatModel == "" {
		if cfg.ChatProvider == "gemini" {
			cfg.ChatModel = "gemini-2.0-flash"
		} else {
			cfg.ChatModel = "gpt-4o-mini"
		}
	}

	// Sessions are never granted without a verified token in production.
	if cfg.IsProduction() {
		cfg.RequireTokenVerification = true
	}

	return cfg
}

// Validate checks the combinations Load cannot default its way out of.
func (c Config) Validate() error {
	var errs []error

	if c.IsProduction() && c.SessionSecret == devSessionSecret {
		errs = append(errs, errors.New("SESSION_SECRET must be set in production environment"))
	}

	switch c.DatabaseDriver {
	case "memory", "mysql", "postgres":
	default:
		errs = append(errs, fmt.Errorf("DATABASE_DRIVER %q is not one of memory, mysql, postgres", c.DatabaseDriver))
	}

	switch c.SessionStore {
	case "memory", "redis":
	default:
		errs = append(errs, fmt.Errorf("SESSION_STORE %q is not one of memory, redis", c.SessionStore))
	}

	switch c.ChatProvider {
	case "openai", "gemini":
	default:
		errs = append(errs, fmt.Errorf("CHAT_PROVIDER %q is not one of openai, gemini", c.ChatProvider))
	}

	switch c.AudioStore {
	case "inline":
	case "s3":
		if c.S3Bucket == "" {
			errs = append(errs, errors.New("S3_BUCKET is required when AUDIO_STORE=s3"))
		}
	default:
		errs = append(errs, fmt.Errorf("AUDIO_STORE %q is not one of inline, s3", c.AudioStore))
	}

	if c.GatewayTimeout <= 0 {
		errs = append(errs, errors.New("GATEWAY_TIMEOUT must be positive"))
	}
	if c.CaptureInterval <= 0 {
		errs = append(errs, errors.New("CAPTURE_INTERVAL must be positive"))
	}

	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("invalid duration, using default", "key", key, "value", v, "default", fallback)
		return fallback
	}
	return d
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("invalid integer, using default", "key", key, "value", v, "default", fallback)
		return fallback
	}
	return n
}

func getFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		slog.Warn("invalid number, using default", "key", key, "value", v, "default", fallback)
		return fallback
	}
	return f
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("invalid boolean, using default", "key", key, "value", v, "default", fallback)
		return fallback
	}
	return b
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
