package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	"google.golang.org/adk/model"
	"google.golang.org/adk/runner"
	"google.golang.org/adk/session"
	"google.golang.org/genai"

	"github.com/easeaico/npc-heart/internal/emotion"
	"github.com/easeaico/npc-heart/internal/utils"
)

const (
	reflectorAppName = "npc_heart_reflection"
	reflectorUserID  = "memory_reflector"
)

// reflectionInstruction asks the model for the reflection JSON only.
const reflectionInstruction = `You help a non-player character in a role-playing game remember.
You receive the character's most significant recent experiences, oldest first.

Write a short reflection in the character's own inner voice that keeps:
1. Who helped, hurt, betrayed or stood by the character
2. How the character's feelings about them changed
3. Any promise or grudge the character now carries

Output requirements:
- At most three sentences
- Return a valid JSON object that matches the output schema
- Do not include any extra keys or text outside the JSON object`

// Reflection is the structured reflector output.
type Reflection struct {
	Summary  string   `json:"summary"`
	Feelings []string `json:"feelings"`
	Grudges  []string `json:"grudges"`
}

type reflectorRunner interface {
	Run(ctx context.Context, userID, sessionID string, msg *genai.Content, cfg agent.RunConfig) iter.Seq2[*session.Event, error]
}

// Reflector condenses a batch of significant events into one reflection using an ADK agent.
type Reflector struct {
	runner         reflectorRunner
	sessionService session.Service
	counter        uint64
	nowFunc        func() time.Time
}

// NewReflector builds a Reflector on m.
func NewReflector(m model.LLM) (*Reflector, error) {
	if m == nil {
		return nil, fmt.Errorf("model cannot be nil")
	}
	llmAgent, err := llmagent.New(llmagent.Config{
		Name:            "memory_reflector",
		Description:     "Condenses an NPC's significant memories into a reflection",
		Model:           m,
		Instruction:     reflectionInstruction,
		OutputSchema:    reflectionOutputSchema(),
		IncludeContents: llmagent.IncludeContentsNone,
	})
	if err != nil {
		slog.Error("failed to create memory reflector agent", "error", err)
		return nil, fmt.Errorf("failed to create memory reflector agent: %w", err)
	}

	sessionService := session.InMemoryService()
	r, err := runner.New(runner.Config{
		AppName:        reflectorAppName,
		Agent:          llmAgent,
		SessionService: sessionService,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create memory reflector runner: %w", err)
	}

	return &Reflector{runner: r, sessionService: sessionService, nowFunc: time.Now}, nil
}

// deleteSession drops a finished reflection session.
func (r *Reflector) deleteSession(ctx context.Context, sessID string) {
	if err := r.sessionService.Delete(ctx, &session.DeleteRequest{
		AppName:   reflectorAppName,
		UserID:    reflectorUserID,
		SessionID: sessID,
	}); err != nil {
		slog.Warn("failed to delete reflector session", "session_id", sessID, "error", err.Error())
	}
}

// Reflect asks the agent to reflect on events and returns the result as an archive record.
func (r *Reflector) Reflect(ctx context.Context, npcID string, events []emotion.EmotionalEvent) (ArchivedEvent, error) {
	if len(events) == 0 {
		return ArchivedEvent{}, fmt.Errorf("no events to reflect on")
	}

	sessID := fmt.Sprintf("reflection-%d", atomic.AddUint64(&r.counter, 1))
	if _, err := r.sessionService.Create(ctx, &session.CreateRequest{
		AppName:   reflectorAppName,
		UserID:    reflectorUserID,
		SessionID: sessID,
	}); err != nil {
		if _, getErr := r.sessionService.Get(ctx, &session.GetRequest{
			AppName:   reflectorAppName,
			UserID:    reflectorUserID,
			SessionID: sessID,
		}); getErr != nil {
			return ArchivedEvent{}, fmt.Errorf("failed to create reflector session: %w", err)
		}
	}
	defer r.deleteSession(context.WithoutCancel(ctx), sessID)

	msg := genai.NewContentFromText(formatEvents(events), "user")
	stream := r.runner.Run(ctx, reflectorUserID, sessID, msg, agent.RunConfig{
		StreamingMode: agent.StreamingModeNone,
	})

	var last string
	for event, err := range stream {
		if err != nil {
			return ArchivedEvent{}, err
		}
		if event == nil || event.Content == nil {
			continue
		}
		if event.Author == "user" {
			continue
		}
		text := strings.TrimSpace(utils.ExtractContentText(event.Content))
		if text == "" {
			continue
		}
		last = text
		if event.IsFinalResponse() {
			break
		}
	}
	if last == "" {
		return ArchivedEvent{}, fmt.Errorf("empty reflection response")
	}

	reflection, err := parseReflectionJSON(last)
	if err != nil {
		return ArchivedEvent{}, err
	}

	impact := make(map[string]float64)
	salience := 0.0
	for _, e := range events {
		for name, v := range e.Impact {
			if v > impact[name] {
				impact[name] = v
			}
		}
		if s := EventSalience(e); s > salience {
			salience = s
		}
	}

	return ArchivedEvent{
		NPCID:       npcID,
		EventID:     "reflection-" + uuid.NewString(),
		Kind:        KindReflection,
		Description: buildReflectionText(reflection),
		Impact:      impact,
		Salience:    salience,
		OccurredAt:  r.nowFunc(),
	}, nil
}

func formatEvents(events []emotion.EmotionalEvent) string {
	var sb strings.Builder
	for _, e := range events {
		fmt.Fprintf(&sb, "[%s] (%s) %s\n", e.Timestamp.Format(time.RFC3339), e.Type, e.Description)
	}
	return sb.String()
}

func reflectionOutputSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"summary": {
				Type: genai.TypeString,
			},
			"feelings": {
				Type:  genai.TypeArray,
				Items: &genai.Schema{Type: genai.TypeString},
			},
			"grudges": {
				Type:  genai.TypeArray,
				Items: &genai.Schema{Type: genai.TypeString},
			},
		},
		Required: []string{"summary"},
	}
}

// parseReflectionJSON extracts the JSON object from the model output and decodes it.
func parseReflectionJSON(raw string) (Reflection, error) {
	clean := utils.ExtractJSONObject(raw)
	if clean == "" {
		return Reflection{}, fmt.Errorf("reflection response has no json object")
	}
	var reflection Reflection
	if err := json.Unmarshal([]byte(clean), &reflection); err != nil {
		return Reflection{}, fmt.Errorf("failed to parse reflection json: %w", err)
	}
	reflection.Summary = strings.TrimSpace(reflection.Summary)
	if reflection.Summary == "" {
		return Reflection{}, fmt.Errorf("missing reflection summary")
	}
	return reflection, nil
}

// buildReflectionText joins the high-value fields for recall.
func buildReflectionText(r Reflection) string {
	var sb strings.Builder
	sb.WriteString(r.Summary)
	appendList := func(title string, items []string) {
		if len(items) == 0 {
			return
		}
		sb.WriteString("\n")
		sb.WriteString(title)
		sb.WriteString(": ")
		sb.WriteString(strings.Join(items, " ; "))
	}
	appendList("feelings", r.Feelings)
	appendList("grudges", r.Grudges)
	return sb.String()
}
