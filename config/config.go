package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port              string
	DatabaseURL       string
	OpenAIAPIKey      string
	AnthropicAPIKey   string
	PineconeAPIKey    string
	PineconeIndexName string
	PineconeNamespace string
	EmbeddingProvider string
	GeminiAPIKey      string
	LLMTimeout        time.Duration
	RecommendLimit    int
	FitSearchLimit    int
	AgentMaxSteps     int
	// UniversitySeedFile seeds the in-memory store when DB_URL is empty.
	UniversitySeedFile string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("[INFO] No .env file loaded, using process environment: %v", err)
	}

	return &Config{
		Port:              getEnv("PORT", "8080"),
		DatabaseURL:       os.Getenv("DB_URL"),
		OpenAIAPIKey:      os.Getenv("OPENAI_API_KEY"),
		AnthropicAPIKey:   os.Getenv("ANTHROPIC_API_KEY"),
		PineconeAPIKey:    os.Getenv("PINECONE_API_KEY"),
		PineconeIndexName: getEnv("PINECONE_INDEX_NAME", "universities-index"),
		PineconeNamespace: getEnv("PINECONE_NAMESPACE", "universities"),
		EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "openai"),
		GeminiAPIKey:      os.Getenv("GEMINI_API_KEY"),
		LLMTimeout:        getDuration("LLM_TIMEOUT", 15*time.Second),
		RecommendLimit:    getInt("RECOMMEND_LIMIT", 12),
		FitSearchLimit:    getInt("FIT_SEARCH_LIMIT", 50),
		AgentMaxSteps:     getInt("AGENT_MAX_STEPS", 5),

		UniversitySeedFile: os.Getenv("UNIVERSITY_SEED_FILE"),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		log.Printf("[WARN] Invalid %s=%q, using default %d", key, raw, fallback)
		return fallback
	}
	return value
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil || value <= 0 {
		log.Printf("[WARN] Invalid %s=%q, using default %s", key, raw, fallback)
		return fallback
	}
	return value
}
