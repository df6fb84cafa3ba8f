package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration values loaded from environment variables.
type Config struct {
	HTTPPort        string
	DatabaseURL     string
	JWTSecret       string
	TokenExpiration time.Duration

	OpenAIAPIKey   string
	ChatModel      string
	TitleModel     string
	EmbeddingModel string

	// StreamTimeout bounds the generation stream for one reply so a
	// stalled provider cannot hold the connection open indefinitely.
	StreamTimeout time.Duration

	// DocumentCacheTTL controls how long the in-memory knowledge
	// corpus is served before being refreshed from the store.
	DocumentCacheTTL time.Duration

	// EmbeddingCacheTTL controls how long query embeddings are reused
	// before a fresh embedding call is made for the same text.
	EmbeddingCacheTTL time.Duration

	// Slack ops alerting; disabled when the token is empty.
	SlackBotToken     string
	SlackAlertChannel string
}

// LoadConfig loads configuration from environment variables.
// It looks for a .env file first, then checks actual environment variables.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file (useful for development). Not failing
	// when absent, production supplies real environment variables.
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable is not set")
	}

	tokenExpHours, err := strconv.Atoi(getEnv("JWT_EXPIRATION_HOURS", "24"))
	if err != nil || tokenExpHours <= 0 {
		tokenExpHours = 24
	}

	cfg := &Config{
		HTTPPort:          getEnv("HTTP_PORT", "8080"),
		DatabaseURL:       dbURL,
		JWTSecret:         getEnv("JWT_SECRET", "dev-only-insecure-secret"),
		TokenExpiration:   time.Hour * time.Duration(tokenExpHours),
		OpenAIAPIKey:      apiKey,
		ChatModel:         getEnv("CHAT_MODEL", "gpt-4o-mini"),
		TitleModel:        getEnv("TITLE_MODEL", "gpt-4o-mini"),
		EmbeddingModel:    getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
		StreamTimeout:     getDurationEnv("STREAM_TIMEOUT", 2*time.Minute),
		DocumentCacheTTL:  getDurationEnv("DOCUMENT_CACHE_TTL", 30*time.Minute),
		EmbeddingCacheTTL: getDurationEnv("EMBEDDING_CACHE_TTL", 5*time.Minute),
		SlackBotToken:     os.Getenv("SLACK_BOT_TOKEN"),
		SlackAlertChannel: os.Getenv("SLACK_ALERT_CHANNEL"),
	}

	return cfg, nil
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getDurationEnv parses a duration environment variable (e.g. "90s",
// "10m") or returns the fallback on absence or parse failure.
func getDurationEnv(key string, fallback time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}
