package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int
	LogLevel string

	// Storage
	StoreBackend string // memory | file | sqlite
	DataFile     string
	SQLitePath   string

	// Events
	KafkaBrokers []string
	KafkaTopic   string

	// Resilience
	MaxRetries     int
	InitialBackoff time.Duration

	// Observability
	OTLPEndpoint string

	// CORS
	CORSAllowedOrigins []string

	// JWT / Auth
	JWTSecret    string
	JWTAccessTTL time.Duration

	// Login lockout
	LoginMaxAttempts int
	LoginLockWindow  time.Duration

	// Cards
	CardDefaultReelection bool // promote another card when the default is removed

	// Dev mode
	DevSeed bool // DEV_SEED=true loads demo data into an empty store
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		StoreBackend: getEnv("STORE_BACKEND", "file"),
		DataFile:     getEnv("DATA_FILE", "data.json"),
		SQLitePath:   getEnv("SQLITE_PATH", "cardpay.db"),

		KafkaBrokers: getEnvList("KAFKA_BROKERS", nil),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "cardpay.transactions"),

		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		InitialBackoff: getEnvDuration("INITIAL_BACKOFF", 100*time.Millisecond),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),

		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),

		JWTSecret:    getEnv("JWT_SECRET", "cardpay-default-dev-secret-change-me"),
		JWTAccessTTL: getEnvDuration("JWT_ACCESS_TTL", 15*time.Minute),

		LoginMaxAttempts: getEnvInt("LOGIN_MAX_ATTEMPTS", 5),
		LoginLockWindow:  getEnvDuration("LOGIN_LOCK_WINDOW", 15*time.Minute),

		CardDefaultReelection: getEnv("CARD_DEFAULT_REELECTION", "false") == "true",

		DevSeed: getEnv("DEV_SEED", "false") == "true",
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return fallback
}
