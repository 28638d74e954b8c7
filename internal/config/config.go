package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int
	LogLevel string

	// LLM classifier. An empty key disables the LLM branch.
	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string

	// MinAIConfidence is kept raw; the categorizer validates it and falls back
	// to its default when it is not a number in (0,1].
	MinAIConfidence string

	// HTTP client
	HTTPTimeout time.Duration

	// Resilience
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int

	// Cache
	CacheTTL        time.Duration
	CacheMaxEntries int

	// Learned memory
	MemoryDBPath string

	// Batch
	BatchMaxConcurrency int
	BatchPacing         time.Duration
	BatchMaxItems       int

	// Analytics
	AnomalyThreshold float64

	// Observability. Empty disables the trace exporter.
	OTLPEndpoint string
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),

		MinAIConfidence: getEnv("MIN_AI_CONFIDENCE", "0.6"),

		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 20*time.Second),

		MaxRetries:     getEnvInt("MAX_RETRIES", 2),
		InitialBackoff: getEnvDuration("INITIAL_BACKOFF", 200*time.Millisecond),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 8),

		CacheTTL:        getEnvDuration("CACHE_TTL", 24*time.Hour),
		CacheMaxEntries: getEnvInt("CACHE_MAX_ENTRIES", 10000),

		MemoryDBPath: getEnv("MEMORY_DB_PATH", "data/memory.db"),

		BatchMaxConcurrency: getEnvInt("BATCH_MAX_CONCURRENCY", 3),
		BatchPacing:         getEnvDuration("BATCH_PACING", 150*time.Millisecond),
		BatchMaxItems:       getEnvInt("BATCH_MAX_ITEMS", 100),

		AnomalyThreshold: getEnvFloat("ANOMALY_THRESHOLD", 3.5),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
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

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
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
