package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	// Server
	Env            string
	Port           string
	MaxUploadBytes int64

	// Auth provider token verification
	AuthJWTSecret string
	AuthJWTIssuer string

	// Shared key for scheduled statement sync jobs; empty disables the sync routes
	SyncAPIKey string

	// AI suggestion service
	GeminiAPIKey     string
	GeminiModel      string
	ReviewBatchSize  int
	ReviewBatchDelay time.Duration

	// Raw statement archive; empty disables it
	ArchiveBucket string
}

var appConfig *Config

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if not already loaded
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	config := &Config{
		Env:  getEnv("ENV", "development"),
		Port: getEnv("PORT", "8080"),

		AuthJWTSecret: getEnv("AUTH_JWT_SECRET", "fallback-secret-key-for-dev-only"),
		AuthJWTIssuer: getEnv("AUTH_JWT_ISSUER", ""),
		SyncAPIKey:    getEnv("SYNC_API_KEY", ""),

		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.0-flash"),

		ArchiveBucket: getEnv("ARCHIVE_BUCKET", ""),
	}

	config.MaxUploadBytes = int64(getEnvInt("MAX_UPLOAD_BYTES", 5<<20))
	config.ReviewBatchSize = getEnvInt("REVIEW_BATCH_SIZE", 25)

	delayStr := getEnv("REVIEW_BATCH_DELAY", "1s")
	delay, err := time.ParseDuration(delayStr)
	if err != nil {
		log.Printf("Warning: invalid REVIEW_BATCH_DELAY value '%s', falling back to 1s\n", delayStr)
		delay = time.Second
	}
	config.ReviewBatchDelay = delay

	appConfig = config
	return config, nil
}

// Get returns the application configuration
func Get() *Config {
	if appConfig == nil {
		var err error
		appConfig, err = Load()
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
	}
	return appConfig
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves a positive integer environment variable or returns a default value
func getEnvInt(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		log.Printf("Warning: invalid %s value '%s', falling back to %d\n", key, raw, defaultValue)
		return defaultValue
	}
	return n
}
