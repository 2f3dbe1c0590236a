package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port  string
	Debug bool

	// Injury report source
	SourceURL    string
	FetchTimeout time.Duration
	MaxRetries   int

	// Polling
	PollInterval   time.Duration
	TopPlayersOnly bool

	// Scheduled checks instead of continuous polling. When set, the poller is
	// not started and the cron expression drives single pipeline runs.
	CronSchedule string

	// One-shot mode: wait until this wall-clock "HH:MM", then poll until the
	// report updates, process it, and exit.
	CheckAt string

	// Database
	DatabasePath string

	// Delivery fan-out
	SendConcurrency int
	SendRatePerSec  float64

	// Email channel
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	EmailFrom    string

	// Push channel
	PushGatewayURL string
	PushAPIKey     string

	// Webhook channel
	WebhookTimeout time.Duration

	// Optional raw snapshot archive (Azure Blob)
	ArchiveAccount   string
	ArchiveContainer string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:  getEnv("PORT", "8080"),
		Debug: getBoolEnv("DEBUG", false),

		SourceURL:    getEnv("SOURCE_URL", "https://stats.nba.com/stats/injuryreport"),
		FetchTimeout: getDurationEnv("FETCH_TIMEOUT", 10*time.Second),
		MaxRetries:   getIntEnv("MAX_RETRIES", 3),

		PollInterval:   getDurationEnv("POLL_INTERVAL", 60*time.Second),
		TopPlayersOnly: getBoolEnv("TOP_PLAYERS_ONLY", true),
		CronSchedule:   getEnv("CRON_SCHEDULE", ""),
		CheckAt:        getEnv("CHECK_AT", ""),

		DatabasePath: getEnv("DATABASE_PATH", "data/injury-alert.db"),

		SendConcurrency: getIntEnv("SEND_CONCURRENCY", 4),
		SendRatePerSec:  getFloatEnv("SEND_RATE_PER_SEC", 10),

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getIntEnv("SMTP_PORT", 587),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		EmailFrom:    getEnv("EMAIL_FROM", "alerts@nba-injury-alert.example.com"),

		PushGatewayURL: getEnv("PUSH_GATEWAY_URL", ""),
		PushAPIKey:     getEnv("PUSH_API_KEY", ""),

		WebhookTimeout: getDurationEnv("WEBHOOK_TIMEOUT", 30*time.Second),

		ArchiveAccount:   getEnv("ARCHIVE_STORAGE_ACCOUNT", ""),
		ArchiveContainer: getEnv("ARCHIVE_STORAGE_CONTAINER", "snapshots"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.SourceURL == "" {
		return fmt.Errorf("SOURCE_URL must not be empty")
	}

	if c.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL must be positive")
	}

	if c.MaxRetries < 0 {
		return fmt.Errorf("MAX_RETRIES must not be negative")
	}

	if c.SendConcurrency < 1 {
		return fmt.Errorf("SEND_CONCURRENCY must be at least 1")
	}

	if c.SMTPHost != "" {
		if c.SMTPUsername == "" || c.SMTPPassword == "" {
			return fmt.Errorf("SMTP credentials are required when SMTP_HOST is set")
		}
	}

	return nil
}

// EmailConfigured reports whether the email channel can be used.
func (c *Config) EmailConfigured() bool {
	return c.SMTPHost != ""
}

// PushConfigured reports whether the push channel can be used.
func (c *Config) PushConfigured() bool {
	return c.PushGatewayURL != ""
}

// ArchiveConfigured reports whether raw snapshots should be archived.
func (c *Config) ArchiveConfigured() bool {
	return c.ArchiveAccount != ""
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
