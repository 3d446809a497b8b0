// Package models provides ADK model adapters for OpenAI-compatible providers.
package models

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"runtime"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

// openaiModel wraps an OpenAI-compatible chat client as a model.LLM.
type openaiModel struct {
	client             *openai.Client
	name               string
	versionHeaderValue string
}

// NewOpenAIModel returns a model talking to the OpenAI API.
func NewOpenAIModel(ctx context.Context, modelName string, cfg *genai.ClientConfig) (model.LLM, error) {
	return newCompatibleModel(modelName, cfg, "", "openai-go")
}

func newCompatibleModel(modelName string, cfg *genai.ClientConfig, baseURL, agent string) (model.LLM, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if modelName == "" {
		return nil, fmt.Errorf("model name cannot be empty")
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)

	// Create header value once, when the model is created
	headerValue := fmt.Sprintf("%s/%s go/%s",
		agent, "1.0.0", strings.TrimPrefix(runtime.Version(), "go"))

	return &openaiModel{
		name:               modelName,
		client:             &client,
		versionHeaderValue: headerValue,
	}, nil
}

func (m *openaiModel) Name() string {
	return m.name
}

func (m *openaiModel) GenerateContent(ctx context.Context, req *model.LLMRequest, stream bool) iter.Seq2[*model.LLMResponse, error] {
	m.maybeAppendUserContent(req)

	if stream {
		return m.generateStream(ctx, req)
	}

	return func(yield func(*model.LLMResponse, error) bool) {
		resp, err := m.generate(ctx, req)
		yield(resp, err)
	}
}

func (m *openaiModel) requestOptions() []option.RequestOption {
	return []option.RequestOption{option.WithHeader("user-agent", m.versionHeaderValue)}
}

func (m *openaiModel) generate(ctx context.Context, req *model.LLMRequest) (*model.LLMResponse, error) {
	params := buildOpenAIParams(req, m.name)

	resp, err := m.client.Chat.Completions.New(ctx, *params, m.requestOptions()...)
	if err != nil {
		slog.Error("failed to call llm API", "model", m.name, "error", err.Error())
		return nil, fmt.Errorf("failed to call %s: %w", m.name, err)
	}

	if resp == nil || len(resp.Choices) == 0 {
		return &model.LLMResponse{}, nil
	}

	message := resp.Choices[0].Message
	content := &genai.Content{Role: "model"}
	if message.Content != "" {
		content.Parts = append(content.Parts, &genai.Part{Text: message.Content})
	}
	return &model.LLMResponse{Content: content, TurnComplete: true}, nil
}

func (m *openaiModel) generateStream(ctx context.Context, req *model.LLMRequest) iter.Seq2[*model.LLMResponse, error] {
	return func(yield func(*model.LLMResponse, error) bool) {
		params := buildOpenAIParams(req, m.name)

		stream := m.client.Chat.Completions.NewStreaming(ctx, *params, m.requestOptions()...)
		defer func() {
			if err := stream.Close(); err != nil {
				slog.Error("failed to close stream", "error", err.Error())
			}
		}()

		var fullText strings.Builder
		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 {
				continue
			}
			choice := chunk.Choices[0]

			if choice.Delta.Content != "" {
				fullText.WriteString(choice.Delta.Content)
				partial := &model.LLMResponse{
					Content: genai.NewContentFromText(choice.Delta.Content, "model"),
					Partial: true,
				}
				if !yield(partial, nil) {
					return
				}
			}

			if choice.FinishReason != "" {
				final := &model.LLMResponse{
					Content:      genai.NewContentFromText(strings.TrimSpace(fullText.String()), "model"),
					TurnComplete: true,
				}
				if !yield(final, nil) {
					return
				}
			}
		}

		if err := stream.Err(); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				yield(nil, fmt.Errorf("context cancelled: %w", err))
				return
			}
			slog.Error("failed to stream call llm API", "model", m.name, "error", err.Error())
			yield(nil, fmt.Errorf("stream error: %w", err))
		}
	}
}

// maybeAppendUserContent keeps the conversation ending on a user turn, which
// OpenAI-compatible providers require.
func (m *openaiModel) maybeAppendUserContent(req *model.LLMRequest) {
	if len(req.Contents) == 0 {
		req.Contents = append(req.Contents, genai.NewContentFromText("Handle the requests as specified in the System Instruction.", "user"))
	}

	if last := req.Contents[len(req.Contents)-1]; last != nil && last.Role != "user" {
		req.Contents = append(req.Contents, genai.NewContentFromText("Continue processing previous requests as instructed.", "user"))
	}
}
