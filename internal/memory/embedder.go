// Package memory archives an NPC's significant emotional events for long-term recall.
package memory

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/genai"
)

// Embedder turns memory text into vectors.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	EmbedDocument(ctx context.Context, text string) ([]float32, error)
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbeddingDimensions is the vector width stored in the archive.
const EmbeddingDimensions = 768

// embedBatchSize caps the contents sent in one EmbedContent call.
const embedBatchSize = 32

// GenAIEmbedder embeds archived memories with a Gemini embedding model.
type GenAIEmbedder struct {
	client *genai.Client
	model  string
}

// NewEmbedder creates a GenAI embedder.
func NewEmbedder(ctx context.Context, apiKey, modelName string) (*GenAIEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("google api key is required for embeddings")
	}
	if modelName == "" {
		modelName = "text-embedding-004"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &GenAIEmbedder{client: client, model: modelName}, nil
}

// EmbedQuery embeds what the player said, for recall.
func (e *GenAIEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.embed(ctx, []string{text}, "RETRIEVAL_QUERY")
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedDocument embeds one memory.
func (e *GenAIEmbedder) EmbedDocument(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.embed(ctx, []string{text}, "RETRIEVAL_DOCUMENT")
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedDocuments embeds memories in batches. Empty texts get a nil vector.
func (e *GenAIEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += embedBatchSize {
		end := min(start+embedBatchSize, len(texts))
		vectors, err := e.embed(ctx, texts[start:end], "RETRIEVAL_DOCUMENT")
		if err != nil {
			return nil, err
		}
		out = append(out, vectors...)
	}
	return out, nil
}

// embed returns one vector per text, in order.
func (e *GenAIEmbedder) embed(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var (
		contents []*genai.Content
		index    []int
	)
	for i, text := range texts {
		if text == "" {
			continue
		}
		contents = append(contents, genai.NewContentFromText(text, "user"))
		index = append(index, i)
	}
	if len(contents) == 0 {
		return out, nil
	}

	dims := int32(EmbeddingDimensions)
	resp, err := e.client.Models.EmbedContent(ctx, e.model, contents, &genai.EmbedContentConfig{
		TaskType:             taskType,
		OutputDimensionality: &dims,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to embed memories: %w", err)
	}
	if resp == nil || len(resp.Embeddings) != len(contents) {
		return nil, fmt.Errorf("embedding response has %d vectors for %d memories", embeddingCount(resp), len(contents))
	}
	for j, emb := range resp.Embeddings {
		if emb == nil {
			return nil, fmt.Errorf("empty embedding for memory %d", index[j])
		}
		vec, err := fitDimensions(emb.Values, e.model)
		if err != nil {
			return nil, err
		}
		out[index[j]] = vec
	}
	return out, nil
}

func embeddingCount(resp *genai.EmbedContentResponse) int {
	if resp == nil {
		return 0
	}
	return len(resp.Embeddings)
}

// fitDimensions truncates oversized vectors to the archive column width.
func fitDimensions(values []float32, model string) ([]float32, error) {
	switch {
	case len(values) == EmbeddingDimensions:
		return values, nil
	case len(values) > EmbeddingDimensions:
		slog.Warn("embedding dimensions exceed archive width, truncating", "actual", len(values), "target", EmbeddingDimensions, "model", model)
		return values[:EmbeddingDimensions], nil
	default:
		return nil, fmt.Errorf("embedding dimensions mismatch: got %d want %d", len(values), EmbeddingDimensions)
	}
}
