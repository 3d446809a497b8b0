package models

import (
	"context"
	"fmt"

	"google.golang.org/adk/model"
	"google.golang.org/adk/model/gemini"
	"google.golang.org/genai"

	"github.com/easeaico/npc-heart/internal/config"
)

// FromConfig builds the collaborator model selected by cfg.LLMProvider. It returns a nil
// model for the "none" provider.
func FromConfig(ctx context.Context, cfg config.Config) (model.LLM, error) {
	switch cfg.LLMProvider {
	case config.ProviderNone, "":
		return nil, nil
	case config.ProviderGemini:
		return gemini.NewModel(ctx, cfg.LLMModel, &genai.ClientConfig{APIKey: cfg.GoogleAPIKey})
	case config.ProviderGrok:
		return NewGrokModel(ctx, cfg.LLMModel, &genai.ClientConfig{APIKey: cfg.XAIAPIKey})
	case config.ProviderOpenAI:
		return NewOpenAIModel(ctx, cfg.LLMModel, &genai.ClientConfig{APIKey: cfg.OpenAIAPIKey})
	case config.ProviderOpenRouter:
		return NewOpenRouterModel(ctx, cfg.LLMModel, &genai.ClientConfig{APIKey: cfg.OpenRouterAPIKey})
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.LLMProvider)
	}
}
