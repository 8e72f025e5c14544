package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// RateLimitConfig holds IP rate limiting settings per endpoint group.
type RateLimitConfig struct {
	Enabled               bool
	AuthRequestsPerWindow int
	AuthWindow            time.Duration
	ChatRequestsPerWindow int
	ChatWindow            time.Duration
}

// Config holds application configuration.
type Config struct {
	// Server
	ServerAddr string
	ServerPort int

	// Database
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// JWT
	JWTSecret string
	JWTIssuer string
	TokenTTL  time.Duration

	// Login lockout
	MaxFailedAttempts int
	LockoutDuration   time.Duration

	// Model provider
	ModelAPIKey  string
	ModelBaseURL string
	ModelName    string

	// Chat
	TurnTimeout   time.Duration
	HistoryBudget int

	// IP rate limiting
	RateLimit RateLimitConfig
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		ServerAddr: getEnv("SERVER_ADDR", "0.0.0.0"),
		ServerPort: getEnvInt("SERVER_PORT", 8080),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnvInt("DB_PORT", 5432),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "taskdeck"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTIssuer: getEnv("JWT_ISSUER", "taskdeck"),
		TokenTTL:  getEnvDuration("TOKEN_TTL", 24*time.Hour),

		MaxFailedAttempts: getEnvInt("MAX_FAILED_ATTEMPTS", 5),
		LockoutDuration:   getEnvDuration("LOCKOUT_DURATION", 15*time.Minute),

		ModelAPIKey:  getEnv("MODEL_API_KEY", ""),
		ModelBaseURL: getEnv("MODEL_BASE_URL", ""),
		ModelName:    getEnv("MODEL_NAME", ""),

		TurnTimeout:   getEnvDuration("TURN_TIMEOUT", 30*time.Second),
		HistoryBudget: getEnvInt("HISTORY_TOKEN_BUDGET", 2000),

		RateLimit: RateLimitConfig{
			Enabled:               getEnvBool("RATE_LIMIT_ENABLED", true),
			AuthRequestsPerWindow: getEnvInt("RATE_LIMIT_AUTH_REQUESTS", 20),
			AuthWindow:            getEnvDuration("RATE_LIMIT_AUTH_WINDOW", time.Minute),
			ChatRequestsPerWindow: getEnvInt("RATE_LIMIT_CHAT_REQUESTS", 30),
			ChatWindow:            getEnvDuration("RATE_LIMIT_CHAT_WINDOW", time.Minute),
		},
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.ModelAPIKey == "" {
		return nil, fmt.Errorf("MODEL_API_KEY is required")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
