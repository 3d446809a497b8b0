// Package prompt renders the system instruction sent to the dialogue collaborator.
package prompt

import (
	"bytes"
	"fmt"
	"time"

	"github.com/easeaico/npc-heart/internal/emotion"
	"github.com/easeaico/npc-heart/internal/utils"
)

// BuildContext contains all inputs for prompt assembly.
type BuildContext struct {
	Name         string
	Personality  string
	Mood         emotion.Snapshot
	Relationship float64
	QuestState   string
	Memories     []string
	History      []string
}

// Builder assembles the collaborator system instruction.
type Builder struct {
	historyLimit int
	nowFunc      func() time.Time
}

// NewBuilder creates a prompt Builder.
func NewBuilder(historyLimit int) *Builder {
	if historyLimit <= 0 {
		historyLimit = 10
	}
	return &Builder{
		historyLimit: historyLimit,
		nowFunc:      time.Now,
	}
}

// Build renders the system instruction.
func (b *Builder) Build(ctx BuildContext) (string, error) {
	if ctx.Name == "" {
		return "", fmt.Errorf("character name is required")
	}

	history := ctx.History
	if len(history) > b.historyLimit {
		history = history[len(history)-b.historyLimit:]
	}

	mood := ctx.Mood.DisplayName
	if mood == "" {
		mood = string(ctx.Mood.State)
	}
	if mood == "" {
		mood = string(emotion.StateNeutral)
	}

	data := struct {
		Name            string
		Personality     string
		Mood            string
		Intensity       float64
		ToneInstruction string
		Relationship    float64
		QuestState      string
		Memories        []string
		History         []string
		Now             string
	}{
		Name:            ctx.Name,
		Personality:     utils.NormalizePromptText(ctx.Personality, ctx.Name, "the player"),
		Mood:            mood,
		Intensity:       ctx.Mood.Intensity,
		ToneInstruction: emotion.ToneInstruction(ctx.Mood.State),
		Relationship:    ctx.Relationship,
		QuestState:      ctx.QuestState,
		Memories:        ctx.Memories,
		History:         history,
		Now:             b.nowFunc().Format(time.RFC3339),
	}

	var buf bytes.Buffer
	if err := promptTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to build prompt: %w", err)
	}
	return buf.String(), nil
}
