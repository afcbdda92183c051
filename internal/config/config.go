package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreSQLite = "sqlite"
	StoreDisk   = "disk"
	StoreMemory = "memory"

	BackendActor      = "actor"
	BackendForeground = "foreground"
)

type Config struct {
	Port        string
	DBPath      string
	JWTSecret   string
	TokenTTL    time.Duration
	CORSOrigins []string

	LogLevel  string
	LogFormat string

	StoreDriver string
	StorePath   string

	TimerBackend    string
	TickInterval    time.Duration
	PersistEvery    int
	AutoAdvance     bool
	RecorderRetries int

	ShutdownTimeout time.Duration
}

// Load reads the configuration from the environment. A .env file in the
// working directory is applied first without overriding variables already set.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Port:        getEnv("PORT", "8080"),
		DBPath:      getEnv("DB_PATH", "./data/studycycle.db"),
		JWTSecret:   getEnv("JWT_SECRET", "change-this-secret"),
		TokenTTL:    time.Duration(getEnvInt("TOKEN_TTL_HOURS", 72)) * time.Hour,
		CORSOrigins: getEnvList("CORS_ORIGINS", []string{"http://localhost:5173", "http://127.0.0.1:5173"}),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		StoreDriver: getEnvChoice("STORE_DRIVER", StoreSQLite, StoreSQLite, StoreDisk, StoreMemory),
		StorePath:   getEnv("STORE_PATH", "./data/snapshots"),

		TimerBackend:    getEnvChoice("TIMER_BACKEND", BackendActor, BackendActor, BackendForeground),
		TickInterval:    time.Duration(getEnvInt("TICK_INTERVAL_MS", 1000)) * time.Millisecond,
		PersistEvery:    getEnvInt("PERSIST_EVERY_TICKS", 5),
		AutoAdvance:     getEnvBool("AUTO_ADVANCE", true),
		RecorderRetries: getEnvInt("RECORDER_RETRIES", 2),

		ShutdownTimeout: time.Duration(getEnvInt("SHUTDOWN_TIMEOUT_SECONDS", 10)) * time.Second,
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvChoice(key, fallback string, allowed ...string) string {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	for _, choice := range allowed {
		if value == choice {
			return value
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	if len(items) == 0 {
		return fallback
	}
	return items
}
