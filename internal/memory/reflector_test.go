package memory

import (
	"context"
	"iter"
	"strings"
	"testing"
	"time"

	"google.golang.org/adk/agent"
	"google.golang.org/adk/session"
	"google.golang.org/genai"

	"github.com/easeaico/npc-heart/internal/emotion"
)

type fakeRunner struct {
	sessionService session.Service
	response       string
	inputs         []string
}

func (r *fakeRunner) Run(ctx context.Context, userID, sessionID string, msg *genai.Content, cfg agent.RunConfig) iter.Seq2[*session.Event, error] {
	return func(yield func(*session.Event, error) bool) {
		if _, err := r.sessionService.Get(ctx, &session.GetRequest{
			AppName:   reflectorAppName,
			UserID:    userID,
			SessionID: sessionID,
		}); err != nil {
			yield(nil, err)
			return
		}
		r.inputs = append(r.inputs, msg.Parts[0].Text)

		event := session.NewEvent("reflector-test")
		event.Author = "assistant"
		event.LLMResponse.Content = genai.NewContentFromText(r.response, "assistant")
		_ = yield(event, nil)
	}
}

func newTestReflector(response string) (*Reflector, *fakeRunner) {
	svc := session.InMemoryService()
	fake := &fakeRunner{sessionService: svc, response: response}
	return &Reflector{
		runner:         fake,
		sessionService: svc,
		nowFunc:        func() time.Time { return time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC) },
	}, fake
}

func TestReflectBuildsArchiveRecord(t *testing.T) {
	reflector, fake := newTestReflector("```json\n{\"summary\":\"They left me at the gate.\",\"grudges\":[\"the gate\"]}\n```")
	events := []emotion.EmotionalEvent{
		{ID: "e1", Type: emotion.EventTransition, Description: "betrayed at the gate", Impact: map[string]float64{"Betrayed": 0.8}},
		{ID: "e2", Type: emotion.EventTransition, Description: "disappointed again", Impact: map[string]float64{"Bitter": 0.6}},
	}

	record, err := reflector.Reflect(context.Background(), "n1", events)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if record.Kind != KindReflection || !strings.HasPrefix(record.EventID, "reflection-") {
		t.Fatalf("unexpected record: %+v", record)
	}
	if record.Description != "They left me at the gate.\ngrudges: the gate" {
		t.Fatalf("unexpected description %q", record.Description)
	}
	if record.Impact["Betrayed"] != 0.8 || record.Impact["Bitter"] != 0.6 {
		t.Fatalf("expected merged impacts, got %v", record.Impact)
	}
	if len(fake.inputs) != 1 || !strings.Contains(fake.inputs[0], "betrayed at the gate") {
		t.Fatalf("expected events in the agent input, got %v", fake.inputs)
	}
}

func TestReflectDeletesItsSession(t *testing.T) {
	reflector, _ := newTestReflector(`{"summary":"The miller kept his word."}`)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := reflector.Reflect(ctx, "n1", []emotion.EmotionalEvent{{ID: "e1", Description: "helped at the mill"}}); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	}

	resp, err := reflector.sessionService.List(ctx, &session.ListRequest{AppName: reflectorAppName, UserID: reflectorUserID})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(resp.Sessions) != 0 {
		t.Fatalf("expected reflection sessions to be deleted, got %d", len(resp.Sessions))
	}
}

func TestReflectRejectsEmptySummary(t *testing.T) {
	reflector, _ := newTestReflector(`{"summary":"  "}`)
	if _, err := reflector.Reflect(context.Background(), "n1", []emotion.EmotionalEvent{{ID: "e1"}}); err == nil {
		t.Fatalf("expected error for empty summary")
	}
}

func TestConsolidateStoresReflection(t *testing.T) {
	reflector, _ := newTestReflector(`{"summary":"I will not forget."}`)
	repo := newMockArchiveRepo()
	archiver := NewArchiver(&mockEmbedder{documentVec: []float32{1}}, repo, reflector, 3, 0.5)

	n, err := archiver.Consolidate(context.Background(), "n1", significantMemory("betrayed at the gate"))
	if err != nil || n != 2 {
		t.Fatalf("expected event and reflection to be archived, got %d err=%v", n, err)
	}
	reflections := 0
	for _, r := range repo.stored {
		if r.Kind == KindReflection {
			reflections++
		}
	}
	if reflections != 1 {
		t.Fatalf("expected one reflection, got %d", reflections)
	}
}

func TestNewReflectorRequiresModel(t *testing.T) {
	if _, err := NewReflector(nil); err == nil {
		t.Fatalf("expected error for nil model")
	}
}
