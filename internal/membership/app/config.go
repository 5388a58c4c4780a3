package app

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	DatabaseDriver string // Optional: storage backend (sqlite, postgres) (default: sqlite)
	DatabaseFile   string // Optional: path to SQLite database file (default: ./membership.db)
	DatabaseURL    string // Required for postgres: connection string

	JWTSecret string // Required: shared secret for verifying bearer tokens
	JWTIssuer string // Optional: expected issuer claim (skipped when empty)

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
	InviteTTL            time.Duration // Pending invite time-to-live, 0 disables purge (default: 30 days)
}

func LoadConfig() Config {
	return Config{
		DatabaseDriver: getEnvOrDefault("MEMBERSHIP_DATABASE_DRIVER", "sqlite"),
		DatabaseFile:   getEnvOrDefault("MEMBERSHIP_DATABASE_FILE", "membership.db"),
		DatabaseURL:    os.Getenv("MEMBERSHIP_DATABASE_URL"),

		JWTSecret: os.Getenv("MEMBERSHIP_JWT_SECRET"),
		JWTIssuer: os.Getenv("MEMBERSHIP_JWT_ISSUER"),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
		InviteTTL:            getEnvDurationOrDefault("MEMBERSHIP_INVITE_TTL", 30*24*time.Hour),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	return defaultValue
}
