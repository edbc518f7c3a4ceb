// Package config provides centralized configuration loaded from environment
// variables. Shared by both cmd/api and cmd/notify.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends.
const (
	StoreFile     = "file"
	StorePostgres = "postgres"
)

// --------------------------------------------------------------------------
// Config struct, populated from environment variables
// --------------------------------------------------------------------------

type Config struct {
	// Tennis data API
	TennisAPIURL      string
	TennisAPIKey      string
	TennisAPIRPM      int
	TennisAPITimeout  time.Duration
	TennisAPIRetries  int
	TennisCacheTTL    time.Duration // 0 = per-endpoint defaults
	CacheEnabled      bool
	UpcomingLookahead time.Duration
	ResultsLookback   time.Duration

	// Engine
	PollSchedule string
	PollEnabled  bool
	RunTimeout   time.Duration
	RuleWorkers  int

	// Store
	StoreBackend   string
	StorePath      string
	DatabaseURL    string
	DBPoolMinConns int
	DBPoolMaxConns int
	DBPoolMaxLife  time.Duration
	HistoryLimit   int

	// Run lock
	RedisURL   string
	RunLockKey string
	RunLockTTL time.Duration

	// API server
	APIHost     string
	APIPort     int
	Environment string // development, staging, production
	Debug       bool

	// CORS
	CORSAllowOrigins []string

	// Rate limiting
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Delivery
	SMTPHost         string
	SMTPPort         int
	SMTPUsername     string
	SMTPPassword     string
	SMTPFrom         string
	SMTPStartTLS     bool
	DiscordBotToken  string
	DiscordChannelID string
	TelegramBotToken string
	TelegramChatID   string
	VAPIDPublicKey   string
	VAPIDPrivateKey  string
	VAPIDSubscriber  string
	DeliveryTimeout  time.Duration

	// Maintenance
	FingerprintRetention time.Duration
	MaintenanceInterval  time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{
		TennisAPIURL:      strings.TrimRight(envOr("TENNIS_API_URL", "https://api.tennis-data.example/v1"), "/"),
		TennisAPIKey:      envOr("TENNIS_API_KEY", ""),
		TennisAPIRPM:      envInt("TENNIS_API_RPM", 60),
		TennisAPITimeout:  time.Duration(envInt("TENNIS_API_TIMEOUT_SECONDS", 15)) * time.Second,
		TennisAPIRetries:  envInt("TENNIS_API_RETRIES", 3),
		TennisCacheTTL:    time.Duration(envInt("TENNIS_API_CACHE_SECONDS", 0)) * time.Second,
		CacheEnabled:      envBool("CACHE_ENABLED", true),
		UpcomingLookahead: time.Duration(envInt("UPCOMING_LOOKAHEAD_HOURS", 72)) * time.Hour,
		ResultsLookback:   time.Duration(envInt("RESULTS_LOOKBACK_HOURS", 24)) * time.Hour,

		PollSchedule: envOr("POLL_SCHEDULE", "@every 5m"),
		PollEnabled:  envBool("POLL_ENABLED", true),
		RunTimeout:   time.Duration(envInt("RUN_TIMEOUT_SECONDS", 120)) * time.Second,
		RuleWorkers:  envInt("RULE_WORKERS", 4),

		StoreBackend:   strings.ToLower(envOr("STORE_BACKEND", StoreFile)),
		StorePath:      envOr("STORE_PATH", "data/courtwatch.json"),
		DatabaseURL:    envOr("DATABASE_URL", ""),
		DBPoolMinConns: envInt("DB_POOL_MIN_CONNS", 1),
		DBPoolMaxConns: envInt("DB_POOL_MAX_CONNS", 5),
		DBPoolMaxLife:  time.Duration(envInt("DB_POOL_MAX_LIFE_MINUTES", 30)) * time.Minute,
		HistoryLimit:   envInt("HISTORY_LIMIT", 100),

		RedisURL:   envOr("REDIS_URL", ""),
		RunLockKey: envOr("RUN_LOCK_KEY", "courtwatch:run-lock"),
		RunLockTTL: envDuration("RUN_LOCK_TTL", 5*time.Minute),

		APIHost:     envOr("API_HOST", "0.0.0.0"),
		APIPort:     envInt("API_PORT", envInt("PORT", 8000)),
		Environment: envOr("ENVIRONMENT", "development"),
		Debug:       envBool("DEBUG", false),

		CORSAllowOrigins: envList("CORS_ALLOW_ORIGINS", []string{
			"http://localhost:3000",
			"http://localhost:5173",
		}),

		RateLimitEnabled:  envBool("RATE_LIMIT_ENABLED", true),
		RateLimitRequests: envInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   time.Duration(envInt("RATE_LIMIT_WINDOW", 60)) * time.Second,

		SMTPHost:         envOr("SMTP_HOST", ""),
		SMTPPort:         envInt("SMTP_PORT", 587),
		SMTPUsername:     envOr("SMTP_USERNAME", ""),
		SMTPPassword:     envOr("SMTP_PASSWORD", ""),
		SMTPFrom:         envOr("SMTP_FROM", ""),
		SMTPStartTLS:     envBool("SMTP_STARTTLS", true),
		DiscordBotToken:  envOr("DISCORD_BOT_TOKEN", ""),
		DiscordChannelID: envOr("DISCORD_CHANNEL_ID", ""),
		TelegramBotToken: envOr("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   envOr("TELEGRAM_CHAT_ID", ""),
		VAPIDPublicKey:   envOr("VAPID_PUBLIC_KEY", ""),
		VAPIDPrivateKey:  envOr("VAPID_PRIVATE_KEY", ""),
		VAPIDSubscriber:  envOr("VAPID_SUBSCRIBER", ""),
		DeliveryTimeout:  time.Duration(envInt("DELIVERY_TIMEOUT_SECONDS", 10)) * time.Second,

		FingerprintRetention: time.Duration(envInt("FINGERPRINT_RETENTION_DAYS", 60)) * 24 * time.Hour,
		MaintenanceInterval:  time.Duration(envInt("MAINTENANCE_INTERVAL_MINUTES", 60)) * time.Minute,
	}

	switch cfg.StoreBackend {
	case StoreFile:
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL must be set when STORE_BACKEND=postgres")
		}
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q (want file or postgres)", cfg.StoreBackend)
	}
	if cfg.HistoryLimit <= 0 {
		return nil, fmt.Errorf("HISTORY_LIMIT must be positive")
	}

	return cfg, nil
}

// IsProduction returns true if running in production environment.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// --------------------------------------------------------------------------
// Env helpers
// --------------------------------------------------------------------------

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}
