package models

import (
	"github.com/openai/openai-go/v3"
	"google.golang.org/adk/model"
	"google.golang.org/genai"

	"github.com/easeaico/npc-heart/internal/utils"
)

// buildOpenAIParams converts an ADK request to OpenAI chat parameters.
func buildOpenAIParams(req *model.LLMRequest, modelName string) *openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Model: req.Model,
	}
	if req.Model == "" {
		params.Model = modelName
	}

	params.Messages = convertContentsToMessages(req.Contents)

	if req.Config != nil {
		if req.Config.Temperature != nil {
			params.Temperature = openai.Float(float64(*req.Config.Temperature))
		}
		if req.Config.MaxOutputTokens > 0 {
			params.MaxTokens = openai.Int(int64(req.Config.MaxOutputTokens))
		}
		if req.Config.TopP != nil {
			params.TopP = openai.Float(float64(*req.Config.TopP))
		}
		if req.Config.SystemInstruction != nil {
			if text := utils.ExtractContentText(req.Config.SystemInstruction); text != "" {
				params.Messages = append([]openai.ChatCompletionMessageParamUnion{openai.SystemMessage(text)}, params.Messages...)
			}
		}
	}

	return &params
}

// convertContentsToMessages maps genai roles onto chat roles; unknown roles become user turns.
func convertContentsToMessages(contents []*genai.Content) []openai.ChatCompletionMessageParamUnion {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(contents))
	for _, content := range contents {
		if content == nil {
			continue
		}
		text := utils.ExtractContentText(content)
		switch content.Role {
		case "system":
			messages = append(messages, openai.SystemMessage(text))
		case "model", "assistant":
			messages = append(messages, openai.AssistantMessage(text))
		default:
			messages = append(messages, openai.UserMessage(text))
		}
	}
	return messages
}
