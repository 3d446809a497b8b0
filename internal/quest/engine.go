package quest

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/easeaico/npc-heart/internal/emotion"
	"github.com/easeaico/npc-heart/internal/memory"
	"github.com/easeaico/npc-heart/internal/types"
)

// AdaptationRepo persists adaptations. storage.AdaptationRepo implements it.
type AdaptationRepo interface {
	SaveAdaptation(ctx context.Context, a Adaptation, consequences []Consequence) error
	DeleteQuest(ctx context.Context, questID string) error
}

// Engine turns emotional transitions into quest adaptations.
type Engine struct {
	log     *Log
	repo    AdaptationRepo
	nowFunc func() time.Time
}

// NewEngine returns an engine. repo may be nil.
func NewEngine(repo AdaptationRepo) *Engine {
	return &Engine{log: NewLog(), repo: repo, nowFunc: time.Now}
}

// Log exposes the in-memory adaptation log.
func (e *Engine) Log() *Log {
	return e.log
}

// Plan computes the adaptation a transition warrants without recording it. It returns nil
// when the quest is inconsistent, when the NPC has no stake in it, or when nothing changes.
func Plan(q *types.Quest, npcID string, t Transition, choice types.PlayerChoice, mem *emotion.EmotionalMemory, now time.Time) *Adaptation {
	if !consistent(q, npcID) {
		return nil
	}
	trend := MemoryTrend(mem)
	if !t.Changed() && trend == TrendStable {
		return nil
	}
	if !t.To.Valid() {
		t.To = emotion.StateNeutral
	}

	ec := EmotionalContext{
		Transition:   t,
		Trend:        trend,
		Significance: memory.SignificanceScore(mem.SignificantEvents()),
	}
	kind := SelectType(t.To, trend)
	mods := Generate(kind, q, npcID, ec)
	if len(mods) == 0 {
		return nil
	}

	return &Adaptation{
		ID:            uuid.NewString(),
		QuestID:       q.ID,
		NPCID:         npcID,
		Type:          kind,
		Trigger:       t.Trigger,
		ChoiceID:      choice.ID,
		Context:       ec,
		Modifications: mods,
		Priority:      CalculatePriority(t.Intensity, t.Changed(), trend, ec.Significance),
		CreatedAt:     now,
	}
}

// Adapt plans an adaptation and, if there is one, records it with its consequences.
// Persistence is best effort.
func (e *Engine) Adapt(ctx context.Context, q *types.Quest, npcID string, t Transition, choice types.PlayerChoice, mem *emotion.EmotionalMemory) *Adaptation {
	a := Plan(q, npcID, t, choice, mem, e.nowFunc())
	if a == nil {
		return nil
	}
	consequences := Consequences(q, *a)
	e.log.Record(*a, consequences)

	if e.repo != nil {
		if err := e.repo.SaveAdaptation(ctx, *a, consequences); err != nil {
			slog.Warn("failed to persist quest adaptation", "quest_id", a.QuestID, "npc_id", npcID, "error", err.Error())
		}
	}
	slog.Debug("quest adapted", "quest_id", a.QuestID, "npc_id", npcID, "type", a.Type, "priority", a.Priority)
	return a
}

// Resolve discards a finished quest's adaptations.
func (e *Engine) Resolve(ctx context.Context, questID string) {
	e.log.Resolve(questID)
	if e.repo != nil {
		if err := e.repo.DeleteQuest(ctx, questID); err != nil {
			slog.Warn("failed to delete quest adaptations", "quest_id", questID, "error", err.Error())
		}
	}
}

// Consequences derives consequences from a's high-impact modifications.
func Consequences(q *types.Quest, a Adaptation) []Consequence {
	var out []Consequence
	for _, m := range a.Modifications {
		var kind ConsequenceType
		switch m.Impact {
		case ImpactCritical:
			kind = StoryBranch
		case ImpactMajor:
			kind = RelationshipChange
		default:
			continue
		}
		c := Consequence{
			ID:           uuid.NewString(),
			QuestID:      a.QuestID,
			AdaptationID: a.ID,
			Type:         kind,
			Description:  m.Description,
			Impact:       m.Impact,
			AffectedNPCs: affectedNPCs(q, a.NPCID),
			CreatedAt:    a.CreatedAt,
		}
		if kind == StoryBranch && m.Ref != "" {
			c.QuestChainEffects = []string{m.Ref}
		}
		out = append(out, c)
	}
	return out
}

func consistent(q *types.Quest, npcID string) bool {
	if q == nil || q.ID == "" || q.GiverNPC == "" || npcID == "" {
		return false
	}
	return q.GiverNPC == npcID || slices.Contains(q.InvolvedNPCs, npcID)
}

func affectedNPCs(q *types.Quest, npcID string) []string {
	out := []string{npcID}
	if q.GiverNPC != npcID {
		out = append(out, q.GiverNPC)
	}
	return out
}
