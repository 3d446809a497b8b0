package memory

import (
	"context"
	"testing"
)

func TestFitDimensions(t *testing.T) {
	exact := make([]float32, EmbeddingDimensions)
	if got, err := fitDimensions(exact, "m"); err != nil || len(got) != EmbeddingDimensions {
		t.Fatalf("expected exact vector to pass, got %d, %v", len(got), err)
	}
	wide := make([]float32, 3072)
	if got, err := fitDimensions(wide, "m"); err != nil || len(got) != EmbeddingDimensions {
		t.Fatalf("expected truncation, got %d, %v", len(got), err)
	}
	if _, err := fitDimensions(make([]float32, 256), "m"); err == nil {
		t.Fatalf("expected error for narrow vector")
	}
}

func TestNewEmbedderRequiresKey(t *testing.T) {
	if _, err := NewEmbedder(context.Background(), "", ""); err == nil {
		t.Fatalf("expected error without api key")
	}
}
