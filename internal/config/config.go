// Package config handles application configuration from environment variables
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port     string
	Env      string // "development", "staging", "production"
	LogLevel string

	// Storage
	DatabaseURL  string // PostgreSQL connection string (optional)
	LedgerDBPath string // SQLite ledger file (optional; in-memory store if unset and no DatabaseURL)

	// Model settings
	ModelPath       string // Persisted model location; retrained from scratch if unset or missing
	TrainingSamples int    // Synthetic corpus size (must be even)
	TrainingSeed    int64
	TrainOnStart    bool // Warm up the model before serving instead of lazily on first request

	// Reporting
	ReportSender string // "log" or "ses"
	ReportFrom   string // From address for outbound reports
	AWSRegion    string

	// Security
	RateLimitRPM int

	// Tracing
	OTLPEndpoint string
}

// Defaults
const (
	DefaultPort            = "8080"
	DefaultEnv             = "development"
	DefaultLogLevel        = "info"
	DefaultTrainingSamples = 1000
	DefaultTrainingSeed    = 42
	DefaultReportSender    = "log"
	DefaultRateLimit       = 60
)

// Load reads configuration from environment variables.
// It loads .env file if present (for local development).
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:            getEnv("PORT", DefaultPort),
		Env:             getEnv("ENV", DefaultEnv),
		LogLevel:        getEnv("LOG_LEVEL", DefaultLogLevel),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		LedgerDBPath:    os.Getenv("LEDGER_DB_PATH"),
		ModelPath:       os.Getenv("MODEL_PATH"),
		TrainingSamples: int(getEnvInt64("TRAINING_SAMPLES", DefaultTrainingSamples)),
		TrainingSeed:    getEnvInt64("TRAINING_SEED", DefaultTrainingSeed),
		TrainOnStart:    getEnvBool("TRAIN_ON_START", true),
		ReportSender:    getEnv("REPORT_SENDER", DefaultReportSender),
		ReportFrom:      os.Getenv("REPORT_FROM"),
		AWSRegion:       getEnv("AWS_REGION", "us-east-1"),
		RateLimitRPM:    int(getEnvInt64("RATE_LIMIT_RPM", DefaultRateLimit)),
		OTLPEndpoint:    os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if c.TrainingSamples <= 0 || c.TrainingSamples%2 != 0 {
		return fmt.Errorf("TRAINING_SAMPLES must be a positive even number, got %d", c.TrainingSamples)
	}

	switch c.ReportSender {
	case "log", "ses":
	default:
		return fmt.Errorf("REPORT_SENDER must be \"log\" or \"ses\", got %q", c.ReportSender)
	}

	if c.ReportSender == "ses" && c.ReportFrom == "" {
		return fmt.Errorf("REPORT_FROM is required when REPORT_SENDER=ses")
	}

	if c.DatabaseURL != "" && c.LedgerDBPath != "" {
		return fmt.Errorf("DATABASE_URL and LEDGER_DB_PATH are mutually exclusive")
	}

	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
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
