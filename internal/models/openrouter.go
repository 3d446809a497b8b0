package models

import (
	"context"

	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

// NewOpenRouterModel routes requests through OpenRouter. modelName is the provider-qualified
// name, e.g. "anthropic/claude-sonnet-4".
func NewOpenRouterModel(ctx context.Context, modelName string, cfg *genai.ClientConfig) (model.LLM, error) {
	return newCompatibleModel(modelName, cfg, "https://openrouter.ai/api/v1", "openrouter-go")
}
