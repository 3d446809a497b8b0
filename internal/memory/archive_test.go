package memory

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/easeaico/npc-heart/internal/emotion"
)

type mockEmbedder struct {
	documentVec []float32
	queryVec    []float32
	docInputs   []string
	queryInputs []string
	err         error
}

func (m *mockEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	m.queryInputs = append(m.queryInputs, text)
	return m.queryVec, m.err
}

func (m *mockEmbedder) EmbedDocument(_ context.Context, text string) ([]float32, error) {
	m.docInputs = append(m.docInputs, text)
	return m.documentVec, m.err
}

func (m *mockEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := m.EmbedDocument(ctx, text)
		if err != nil {
			return nil, err
		}
		results[i] = vec
	}
	return results, nil
}

type mockArchiveRepo struct {
	stored      map[string]ArchivedEvent
	searchCalls int
	result      []RecalledEvent
}

func newMockArchiveRepo() *mockArchiveRepo {
	return &mockArchiveRepo{stored: make(map[string]ArchivedEvent)}
}

func (m *mockArchiveRepo) ArchivedEventIDs(_ context.Context, _ string, ids []string) (map[string]bool, error) {
	out := make(map[string]bool)
	for _, id := range ids {
		if _, ok := m.stored[id]; ok {
			out[id] = true
		}
	}
	return out, nil
}

func (m *mockArchiveRepo) AddArchivedEvents(_ context.Context, events []ArchivedEvent) error {
	for _, e := range events {
		m.stored[e.EventID] = e
	}
	return nil
}

func (m *mockArchiveRepo) SearchSimilar(_ context.Context, _ string, _ []float32, _ int, _ float64) ([]RecalledEvent, error) {
	m.searchCalls++
	return m.result, nil
}

func significantMemory(descriptions ...string) *emotion.EmotionalMemory {
	mem := emotion.NewEmotionalMemory()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, d := range descriptions {
		mem.AddEvent(emotion.EmotionalEvent{
			ID:          d,
			Type:        emotion.EventTransition,
			Description: d,
			Timestamp:   base.Add(time.Duration(i) * time.Minute),
			Impact:      map[string]float64{"Bitter": 0.7},
		})
	}
	return mem
}

func TestConsolidateIsIdempotent(t *testing.T) {
	repo := newMockArchiveRepo()
	embedder := &mockEmbedder{documentVec: []float32{0.1, 0.2}}
	archiver := NewArchiver(embedder, repo, nil, 3, 0.5)
	mem := significantMemory("betrayed at the gate", "helped with the wagon")

	n, err := archiver.Consolidate(context.Background(), "n1", mem)
	if err != nil || n != 2 {
		t.Fatalf("expected 2 archived, got %d err=%v", n, err)
	}
	n, err = archiver.Consolidate(context.Background(), "n1", mem)
	if err != nil || n != 0 {
		t.Fatalf("expected nothing new on second run, got %d err=%v", n, err)
	}

	stored := repo.stored["betrayed at the gate"]
	if stored.Kind != KindEvent || len(stored.Embedding) != 2 || stored.Salience <= 0 {
		t.Fatalf("unexpected archived record: %+v", stored)
	}
	if !strings.Contains(embedder.docInputs[0], "feelings: Bitter 0.70") {
		t.Fatalf("expected impacts in embedding text, got %q", embedder.docInputs[0])
	}
}

func TestConsolidateWithoutSignificantEvents(t *testing.T) {
	repo := newMockArchiveRepo()
	archiver := NewArchiver(nil, repo, nil, 0, 0)
	n, err := archiver.Consolidate(context.Background(), "n1", emotion.NewEmotionalMemory())
	if err != nil || n != 0 {
		t.Fatalf("expected no-op, got %d err=%v", n, err)
	}
}

func TestConsolidatePropagatesEmbeddingErrors(t *testing.T) {
	repo := newMockArchiveRepo()
	archiver := NewArchiver(&mockEmbedder{err: errors.New("quota")}, repo, nil, 0, 0)
	if _, err := archiver.Consolidate(context.Background(), "n1", significantMemory("x")); err == nil {
		t.Fatalf("expected embedding error")
	}
	if len(repo.stored) != 0 {
		t.Fatalf("nothing must be stored when embedding fails")
	}
}

func TestRecallSearchesArchive(t *testing.T) {
	repo := newMockArchiveRepo()
	repo.result = []RecalledEvent{{EventID: "e1", Description: "betrayed at the gate", Similarity: 0.9}}
	embedder := &mockEmbedder{queryVec: []float32{0.3}}
	archiver := NewArchiver(embedder, repo, nil, 3, 0.5)

	got, err := archiver.Recall(context.Background(), "n1", "the gate")
	if err != nil || len(got) != 1 {
		t.Fatalf("expected one recalled event, got %v err=%v", got, err)
	}
	if len(embedder.queryInputs) != 1 || embedder.queryInputs[0] != "the gate" {
		t.Fatalf("expected query to be embedded, got %v", embedder.queryInputs)
	}

	if got, err := archiver.Recall(context.Background(), "n1", ""); err != nil || got != nil {
		t.Fatalf("expected empty query to return nothing")
	}
}
