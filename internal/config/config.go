package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config keeps runtime settings for the API server and the chat front end.
type Config struct {
	DatabaseURL          string
	HTTPAddr             string
	JWTSecret            string
	TokenTTL             time.Duration
	TokenCleanupInterval time.Duration
	TokenCleanupAt       string
	RequestTimeout       time.Duration
	RedisAddr            string
	CacheTTL             time.Duration
	TelegramToken        string
	APIBaseURL           string
	TokenFile            string
}

// Load reads configuration from environment variables with sane defaults.
// A .env file in the working directory is applied first when present;
// variables already set in the environment win.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Config{
		DatabaseURL:          env("DATABASE_URL"),
		HTTPAddr:             env("HTTP_ADDR"),
		JWTSecret:            env("JWT_SECRET"),
		TokenTTL:             parseHours(env("TOKEN_TTL_HOURS")),
		TokenCleanupInterval: parseHours(env("TOKEN_CLEANUP_INTERVAL_HOURS")),
		TokenCleanupAt:       env("TOKEN_CLEANUP_AT"),
		RequestTimeout:       parseUnits(env("REQUEST_TIMEOUT_SECONDS"), time.Second),
		RedisAddr:            env("REDIS_ADDR"),
		CacheTTL:             parseUnits(env("CACHE_TTL_MINUTES"), time.Minute),
		TelegramToken:        env("TELEGRAM_TOKEN"),
		APIBaseURL:           env("API_BASE_URL"),
		TokenFile:            env("TOKEN_FILE"),
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "task_manager.db"
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}
	if cfg.TokenCleanupInterval == 0 {
		cfg.TokenCleanupInterval = 24 * time.Hour
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 5 * time.Second
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = "http://localhost:8080/api"
	}
	if cfg.TokenFile == "" {
		cfg.TokenFile = "tokens.json"
	}

	return cfg, nil
}

// ValidateServer checks settings required by the HTTP server.
func (c Config) ValidateServer() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	return nil
}

// ValidateBot checks settings required by the Telegram front end.
func (c Config) ValidateBot() error {
	if c.TelegramToken == "" {
		return fmt.Errorf("TELEGRAM_TOKEN is required")
	}
	return nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func parseHours(raw string) time.Duration {
	return parseUnits(raw, time.Hour)
}

func parseUnits(raw string, unit time.Duration) time.Duration {
	if raw == "" {
		return 0
	}
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil || n <= 0 {
		return 0
	}
	return time.Duration(n * float64(unit))
}
