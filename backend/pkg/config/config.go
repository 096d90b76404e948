package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// App
	Port string
	Env  string

	// Supabase
	SupabaseURL string
	SupabaseKey string

	// LLM inference (OpenAI-compatible endpoint, e.g. Groq)
	LLMBaseURL      string
	LLMAPIKey       string
	WingmanModel    string // fast tier, low-latency advice + extraction
	ConsultantModel string // detailed tier, on-demand answers

	// Embeddings
	EmbeddingBaseURL string
	EmbeddingAPIKey  string
	EmbeddingModel   string
	EmbeddingDim     int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	cfg := &Config{
		Port:             getEnv("PORT", "8000"),
		Env:              getEnv("ENV", "development"),
		SupabaseURL:      getEnv("SUPABASE_URL", ""),
		SupabaseKey:      getEnv("SUPABASE_KEY", ""),
		LLMBaseURL:       getEnv("LLM_BASE_URL", "https://api.groq.com/openai/v1"),
		LLMAPIKey:        getEnv("GROQ_API_KEY", ""),
		WingmanModel:     getEnv("WINGMAN_MODEL", "llama-3.1-8b-instant"),
		ConsultantModel:  getEnv("CONSULTANT_MODEL", "llama-3.3-70b-versatile"),
		EmbeddingBaseURL: getEnv("EMBEDDING_BASE_URL", "http://localhost:8001/v1"),
		EmbeddingAPIKey:  getEnv("EMBEDDING_API_KEY", ""),
		EmbeddingModel:   getEnv("EMBEDDING_MODEL", "all-MiniLM-L6-v2"),
		EmbeddingDim:     getEnvInt("EMBEDDING_DIM", 384),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set
func (c *Config) Validate() error {
	if c.LLMBaseURL == "" {
		return fmt.Errorf("LLM_BASE_URL is required")
	}
	if c.WingmanModel == "" {
		return fmt.Errorf("WINGMAN_MODEL is required")
	}
	if c.ConsultantModel == "" {
		return fmt.Errorf("CONSULTANT_MODEL is required")
	}
	if c.EmbeddingDim <= 0 {
		return fmt.Errorf("EMBEDDING_DIM must be positive")
	}
	// Supabase credentials are optional: without them the server runs in
	// degraded mode with in-memory state only.
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

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}
