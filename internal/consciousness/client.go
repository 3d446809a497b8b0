package consciousness

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"google.golang.org/adk/model"
	"google.golang.org/genai"

	"github.com/easeaico/npc-heart/internal/prompt"
	"github.com/easeaico/npc-heart/internal/utils"
)

// LLMClient is a Client backed by any ADK model.
type LLMClient struct {
	model   model.LLM
	schema  *jsonschema.Resolved
	prompts *prompt.Builder
}

// NewLLMClient returns a client for m.
func NewLLMClient(m model.LLM) (*LLMClient, error) {
	if m == nil {
		return nil, fmt.Errorf("model cannot be nil")
	}
	resolved, err := responseSchema().Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve response schema: %w", err)
	}
	return &LLMClient{model: m, schema: resolved, prompts: prompt.NewBuilder(10)}, nil
}

// Synthesize implements Client.
func (c *LLMClient) Synthesize(ctx context.Context, req Request) (*Response, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode collaborator request: %w", err)
	}

	system, err := c.prompts.Build(promptContext(req))
	if err != nil {
		return nil, err
	}

	llmReq := &model.LLMRequest{
		Contents: []*genai.Content{
			genai.NewContentFromText(system, "system"),
			genai.NewContentFromText(string(payload), "user"),
		},
		Config: &genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
		},
	}

	var text strings.Builder
	for resp, err := range c.model.GenerateContent(ctx, llmReq, false) {
		if err != nil {
			return nil, fmt.Errorf("failed to generate response: %w", err)
		}
		if resp == nil || resp.Content == nil {
			continue
		}
		text.WriteString(utils.ExtractContentText(resp.Content))
	}
	return c.parse(text.String())
}

func promptContext(req Request) prompt.BuildContext {
	name := req.NPCName
	if name == "" {
		name = req.NPCID
	}
	if name == "" {
		name = "the character"
	}
	return prompt.BuildContext{
		Name:         name,
		Personality:  req.Personality,
		Mood:         req.EmotionalProfile,
		Relationship: req.ContextualData.RelationshipLevel,
		QuestState:   req.ContextualData.QuestState,
		Memories:     req.ContextualData.Memories,
		History:      req.ContextualData.RecentInteractions,
	}
}

func (c *LLMClient) parse(raw string) (*Response, error) {
	clean := utils.ExtractJSONObject(raw)
	if clean == "" {
		return nil, fmt.Errorf("empty collaborator response")
	}

	var instance map[string]any
	if err := json.Unmarshal([]byte(clean), &instance); err != nil {
		return nil, fmt.Errorf("failed to parse collaborator response: %w", err)
	}
	if err := c.schema.Validate(instance); err != nil {
		return nil, fmt.Errorf("collaborator response does not match schema: %w", err)
	}

	var resp Response
	if err := json.Unmarshal([]byte(clean), &resp); err != nil {
		return nil, fmt.Errorf("failed to decode collaborator response: %w", err)
	}
	resp.SynthesizedResponse.Content = strings.TrimSpace(resp.SynthesizedResponse.Content)
	if resp.SynthesizedResponse.Content == "" {
		return nil, fmt.Errorf("missing response content")
	}
	return &resp, nil
}

func unitRange() *jsonschema.Schema {
	lo, hi := 0.0, 1.0
	return &jsonschema.Schema{Type: "number", Minimum: &lo, Maximum: &hi}
}

func responseSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"synthesizedResponse": {
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"content":      {Type: "string"},
					"authenticity": unitRange(),
				},
				Required: []string{"content"},
			},
			"consciousnessUpdate": {
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"awarenessLevel":     unitRange(),
					"cognitiveLoad":      unitRange(),
					"metacognitionLevel": unitRange(),
				},
			},
			"emergentBehavior": {
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"traits": {Type: "array", Items: &jsonschema.Schema{Type: "string"}},
				},
			},
			"consciousnessCommentary": {Type: "string"},
		},
		Required: []string{"synthesizedResponse"},
	}
}
