package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration values for the application
type Config struct {
	Port             string
	AllowedOrigins   []string
	LogLevel         string
	DatabaseURL      string
	RedisURL         string
	JWTSecret        string
	Environment      string
	DefaultLanguage  string
	VoteRetryLimit   int // Bounded retries for optimistic-concurrency conflicts
	OutboxPollPeriod int // Seconds between notification outbox polls
	DBMaxConns       int
	DBMinConns       int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	return &Config{
		Port:             getEnv("PORT", "8080"),
		AllowedOrigins:   parseOrigins(getEnv("ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:3001")),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		RedisURL:         getEnv("REDIS_URL", ""),
		JWTSecret:        getEnv("JWT_SECRET", ""),
		Environment:      getEnv("ENVIRONMENT", "production"),
		DefaultLanguage:  getEnv("DEFAULT_LANGUAGE", "tr"),
		VoteRetryLimit:   getIntEnv("VOTE_RETRY_LIMIT", 3),
		OutboxPollPeriod: getIntEnv("OUTBOX_POLL_PERIOD", 15),
		DBMaxConns:       getIntEnv("DB_MAX_CONNS", 10),
		DBMinConns:       getIntEnv("DB_MIN_CONNS", 2),
	}, nil
}

// getEnv gets an environment variable with a fallback value
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getIntEnv gets an integer environment variable with a fallback value
func getIntEnv(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

// parseOrigins parses comma-separated origins into a slice
func parseOrigins(origins string) []string {
	if origins == "" {
		return []string{}
	}

	parts := strings.Split(origins, ",")
	result := make([]string, 0, len(parts))

	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
