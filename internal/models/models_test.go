package models

import (
	"context"
	"testing"

	"google.golang.org/adk/model"
	"google.golang.org/genai"

	"github.com/easeaico/npc-heart/internal/config"
)

func TestFromConfigNoneReturnsNilModel(t *testing.T) {
	m, err := FromConfig(context.Background(), config.Config{LLMProvider: config.ProviderNone})
	if err != nil || m != nil {
		t.Fatalf("expected nil model without error, got %v, %v", m, err)
	}
}

func TestFromConfigRequiresKey(t *testing.T) {
	for _, provider := range []string{config.ProviderGrok, config.ProviderOpenAI, config.ProviderOpenRouter} {
		if _, err := FromConfig(context.Background(), config.Config{LLMProvider: provider, LLMModel: "m"}); err == nil {
			t.Errorf("%s: expected missing key error", provider)
		}
	}
	if _, err := FromConfig(context.Background(), config.Config{LLMProvider: "carrier-pigeon"}); err == nil {
		t.Fatalf("expected unknown provider error")
	}
}

func TestFromConfigBuildsCompatibleModel(t *testing.T) {
	m, err := FromConfig(context.Background(), config.Config{
		LLMProvider:      config.ProviderOpenRouter,
		LLMModel:         "x-ai/grok-4-fast",
		OpenRouterAPIKey: "key",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if m.Name() != "x-ai/grok-4-fast" {
		t.Fatalf("unexpected model name %q", m.Name())
	}
}

func TestBuildOpenAIParamsMapsRoles(t *testing.T) {
	req := &model.LLMRequest{
		Contents: []*genai.Content{
			genai.NewContentFromText("hello", "user"),
			genai.NewContentFromText("well met", "model"),
			genai.NewContentFromText("rules", "system"),
		},
		Config: &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText("stay in character", "system"),
		},
	}

	params := buildOpenAIParams(req, "grok-4-fast")
	if params.Model != "grok-4-fast" {
		t.Fatalf("expected fallback model name, got %q", params.Model)
	}
	if len(params.Messages) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(params.Messages))
	}
	if params.Messages[0].OfSystem == nil || params.Messages[1].OfUser == nil ||
		params.Messages[2].OfAssistant == nil || params.Messages[3].OfSystem == nil {
		t.Fatalf("unexpected message roles: %+v", params.Messages)
	}
}

func TestConvertContentsSkipsNil(t *testing.T) {
	messages := convertContentsToMessages([]*genai.Content{nil, genai.NewContentFromText("hi", "tool")})
	if len(messages) != 1 || messages[0].OfUser == nil {
		t.Fatalf("expected a single user message, got %+v", messages)
	}
}
