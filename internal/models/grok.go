package models

import (
	"context"

	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

// NewGrokModel creates a Grok model instance on the x.ai OpenAI-compatible endpoint
// (e.g., "grok-4-fast").
func NewGrokModel(ctx context.Context, modelName string, cfg *genai.ClientConfig) (model.LLM, error) {
	return newCompatibleModel(modelName, cfg, "https://api.x.ai/v1", "grok-go")
}
