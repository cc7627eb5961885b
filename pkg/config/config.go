package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	// Application
	AppEnv   string
	LogLevel string
	HTTPAddr string

	// Database
	DatabaseURL string
	SQLitePath  string

	// Redis
	RedisURL string

	// RabbitMQ
	RabbitMQURL string

	// AI backend
	AIProvider    string
	AIBaseURL     string
	AIAPIKey      string
	AIModel       string
	AITimeout     time.Duration
	AIMaxAttempts int

	// Workers
	WorkerCount int
	QueueSize   int
	JobTimeout  time.Duration

	// Subscription
	MonthlyScoreAllowance int

	// Directory
	AutoRegisterOwners bool
	AdminEmails        string
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:   getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		HTTPAddr: getEnv("HTTP_ADDR", "0.0.0.0:8080"),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		SQLitePath:  getEnv("SQLITE_PATH", "hirespark.db"),

		RedisURL:    getEnv("REDIS_URL", ""),
		RabbitMQURL: getEnv("RABBITMQ_URL", ""),

		AIProvider:    getEnv("AI_PROVIDER", "openai"),
		AIBaseURL:     getEnv("AI_BASE_URL", "http://localhost:11434/v1"),
		AIAPIKey:      getEnv("AI_API_KEY", ""),
		AIModel:       getEnv("AI_MODEL", "llama3.1"),
		AITimeout:     getDurationEnv("AI_TIMEOUT", 12*time.Second),
		AIMaxAttempts: getIntEnv("AI_MAX_ATTEMPTS", 2),

		WorkerCount: getIntEnv("WORKER_COUNT", 3),
		QueueSize:   getIntEnv("QUEUE_SIZE", 64),
		JobTimeout:  getDurationEnv("JOB_TIMEOUT", 2*time.Minute),

		MonthlyScoreAllowance: getIntEnv("MONTHLY_SCORE_ALLOWANCE", 0),

		AutoRegisterOwners: getBoolEnv("AUTO_REGISTER_OWNERS", true),
		AdminEmails:        getEnv("ADMIN_EMAILS", ""),
	}

	return cfg, nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// UsePostgres reports whether a PostgreSQL connection string is configured.
// Without one the service runs on embedded SQLite.
func (c *Config) UsePostgres() bool {
	return c.DatabaseURL != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
