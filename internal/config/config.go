package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port  string
	Debug bool

	// Datastore
	DatabaseDSN    string
	ServiceRoleKey string
	JWTSecret      string

	// LLM gateway
	LLMAPIKey        string
	LLMBaseURL       string
	LLMModel         string
	LLMRatePerSecond float64

	// Scrape providers
	ScrapeAPIKey           string
	ScrapeBaseURL          string
	EnableSyntheticSources bool
	RedditClientID         string
	RedditClientSecret     string

	// OAuth account sync collaborator
	SyncFunctionURL string

	// Alert delivery
	TeamsWebhookURL string

	// Raw payload archive
	StorageAccount   string
	StorageContainer string
	ArchiveDir       string

	// Schedules (cron with seconds)
	EnableScheduler bool
	IngestSchedule  string
	EnrichSchedule  string
	AlertSchedule   string

	// Enrichment defaults
	DefaultTargetLanguage string
	HTTPTimeout           time.Duration
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:  getEnv("PORT", "8080"),
		Debug: getBoolEnv("DEBUG", false),

		DatabaseDSN:    getEnv("DATABASE_DSN", "media-monitor.db"),
		ServiceRoleKey: getEnv("SERVICE_ROLE_KEY", ""),
		JWTSecret:      getEnv("JWT_SECRET", ""),

		LLMAPIKey:        getEnv("LLM_API_KEY", ""),
		LLMBaseURL:       getEnv("LLM_BASE_URL", "https://ai.gateway.lovable.dev/v1"),
		LLMModel:         getEnv("LLM_MODEL", "google/gemini-2.5-flash"),
		LLMRatePerSecond: getFloatEnv("LLM_RATE_PER_SECOND", 5),

		ScrapeAPIKey:           getEnv("SCRAPE_API_KEY", ""),
		ScrapeBaseURL:          getEnv("SCRAPE_BASE_URL", "https://api.firecrawl.dev"),
		EnableSyntheticSources: getBoolEnv("ENABLE_SYNTHETIC_SOURCES", false),
		RedditClientID:         getEnv("REDDIT_CLIENT_ID", ""),
		RedditClientSecret:     getEnv("REDDIT_CLIENT_SECRET", ""),

		SyncFunctionURL: getEnv("SYNC_FUNCTION_URL", ""),
		TeamsWebhookURL: getEnv("TEAMS_WEBHOOK_URL", ""),

		StorageAccount:   getEnv("AZURE_STORAGE_ACCOUNT", ""),
		StorageContainer: getEnv("AZURE_STORAGE_CONTAINER", "mentions"),
		ArchiveDir:       getEnv("ARCHIVE_DIR", ""),

		EnableScheduler: getBoolEnv("ENABLE_SCHEDULER", true),
		IngestSchedule:  getEnv("INGEST_SCHEDULE", "0 */15 * * * *"),
		EnrichSchedule:  getEnv("ENRICH_SCHEDULE", "0 */5 * * * *"),
		AlertSchedule:   getEnv("ALERT_SCHEDULE", "30 */5 * * * *"),

		DefaultTargetLanguage: getEnv("DEFAULT_TARGET_LANGUAGE", "en"),
		HTTPTimeout:           getDurationEnv("HTTP_TIMEOUT", 30*time.Second),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.ServiceRoleKey == "" && c.JWTSecret == "" {
		return fmt.Errorf("at least one credential must be configured (SERVICE_ROLE_KEY or JWT_SECRET)")
	}

	if c.DatabaseDSN == "" {
		return fmt.Errorf("DATABASE_DSN must not be empty")
	}

	if c.LLMRatePerSecond <= 0 {
		return fmt.Errorf("LLM_RATE_PER_SECOND must be positive")
	}

	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	for name, expr := range map[string]string{
		"INGEST_SCHEDULE": c.IngestSchedule,
		"ENRICH_SCHEDULE": c.EnrichSchedule,
		"ALERT_SCHEDULE":  c.AlertSchedule,
	} {
		if _, err := parser.Parse(expr); err != nil {
			return fmt.Errorf("%s is not a valid cron expression: %w", name, err)
		}
	}

	return nil
}

// LLMEnabled reports whether enrichment can call the LLM gateway
func (c *Config) LLMEnabled() bool {
	return c.LLMAPIKey != ""
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
