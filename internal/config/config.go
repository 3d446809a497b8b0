// Package config loads configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Collaborator providers.
const (
	ProviderGemini     = "gemini"
	ProviderGrok       = "grok"
	ProviderOpenAI     = "openai"
	ProviderOpenRouter = "openrouter"
	ProviderNone       = "none"
)

// Config holds runtime settings.
type Config struct {
	DatabaseURL      string
	GoogleAPIKey     string
	XAIAPIKey        string
	OpenAIAPIKey     string
	OpenRouterAPIKey string
	RedisURL         string
	LLMProvider      string
	LLMModel         string
	EmbeddingModel   string

	CollaboratorTimeout time.Duration
	FallbackLatency     time.Duration

	DialogueCacheSize       int
	DialogueCacheEvictBatch int
	GeneralCacheSize        int
	GeneralCacheTTL         time.Duration
	StateCacheTTL           time.Duration
	TaskQueueSize           int

	ConsolidationInterval time.Duration
	PredictiveThreshold   float64
	TopK                  int
	SimilarityThreshold   float64
	HistoryLimit          int
}

// Load reads env vars and applies defaults. It never fails; use Validate before
// connecting to remote services.
func Load() Config {
	cfg := Config{
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		GoogleAPIKey:     os.Getenv("GOOGLE_API_KEY"),
		XAIAPIKey:        os.Getenv("XAI_API_KEY"),
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenRouterAPIKey: os.Getenv("OPENROUTER_API_KEY"),
		RedisURL:         os.Getenv("REDIS_URL"),
		LLMProvider:      strings.ToLower(os.Getenv("LLM_PROVIDER")),
		LLMModel:         os.Getenv("LLM_MODEL"),
		EmbeddingModel:   os.Getenv("EMBEDDING_MODEL"),
	}

	cfg.CollaboratorTimeout = getEnvDuration("COLLABORATOR_TIMEOUT", 5*time.Second)
	cfg.FallbackLatency = getEnvDuration("FALLBACK_LATENCY", 0)
	cfg.DialogueCacheSize = getEnvInt("DIALOGUE_CACHE_SIZE", 1000)
	cfg.DialogueCacheEvictBatch = getEnvInt("DIALOGUE_CACHE_EVICT_BATCH", 100)
	cfg.GeneralCacheSize = getEnvInt("GENERAL_CACHE_SIZE", 500)
	cfg.GeneralCacheTTL = getEnvDuration("GENERAL_CACHE_TTL", 30*time.Minute)
	cfg.StateCacheTTL = getEnvDuration("STATE_CACHE_TTL", 10*time.Minute)
	cfg.TaskQueueSize = getEnvInt("TASK_QUEUE_SIZE", 256)
	cfg.ConsolidationInterval = getEnvDuration("CONSOLIDATION_INTERVAL", 5*time.Minute)
	cfg.PredictiveThreshold = getEnvFloat("PREDICTIVE_THRESHOLD", 0.2)
	cfg.TopK = getEnvInt("TOP_K", 5)
	cfg.SimilarityThreshold = getEnvFloat("SIMILARITY_THRESHOLD", 0.7)
	cfg.HistoryLimit = getEnvInt("HISTORY_LIMIT", 10)

	if cfg.LLMProvider == "" {
		cfg.LLMProvider = defaultProvider(cfg)
	}
	if cfg.LLMModel == "" {
		cfg.LLMModel = defaultModel(cfg.LLMProvider)
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = "text-embedding-004"
	}
	return cfg
}

// Validate reports the keys the selected provider and features are missing.
func (c Config) Validate() error {
	var missing []string
	switch c.LLMProvider {
	case ProviderGemini:
		if c.GoogleAPIKey == "" {
			missing = append(missing, "GOOGLE_API_KEY")
		}
	case ProviderGrok:
		if c.XAIAPIKey == "" {
			missing = append(missing, "XAI_API_KEY")
		}
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			missing = append(missing, "OPENAI_API_KEY")
		}
	case ProviderOpenRouter:
		if c.OpenRouterAPIKey == "" {
			missing = append(missing, "OPENROUTER_API_KEY")
		}
	case ProviderNone:
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q", c.LLMProvider)
	}
	if c.DatabaseURL != "" && c.GoogleAPIKey == "" && !containsKey(missing, "GOOGLE_API_KEY") {
		missing = append(missing, "GOOGLE_API_KEY (embeddings for archived memories)")
	}
	if c.CollaboratorTimeout <= 0 {
		return fmt.Errorf("COLLABORATOR_TIMEOUT must be positive")
	}
	if c.DialogueCacheSize <= 0 || c.TaskQueueSize <= 0 {
		return fmt.Errorf("DIALOGUE_CACHE_SIZE and TASK_QUEUE_SIZE must be positive")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return nil
}

func defaultProvider(cfg Config) string {
	switch {
	case cfg.XAIAPIKey != "":
		return ProviderGrok
	case cfg.GoogleAPIKey != "":
		return ProviderGemini
	case cfg.OpenAIAPIKey != "":
		return ProviderOpenAI
	case cfg.OpenRouterAPIKey != "":
		return ProviderOpenRouter
	default:
		return ProviderNone
	}
}

func defaultModel(provider string) string {
	switch provider {
	case ProviderGrok:
		return "grok-4-fast"
	case ProviderGemini:
		return "gemini-2.5-flash"
	case ProviderOpenAI:
		return "gpt-4o-mini"
	case ProviderOpenRouter:
		return "x-ai/grok-4-fast"
	default:
		return ""
	}
}

func containsKey(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}
