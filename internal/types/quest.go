package types

import (
	"fmt"
	"hash/fnv"

	"github.com/easeaico/npc-heart/internal/emotion"
)

// QuestType drives which dialogue choices and modifications apply.
type QuestType string

const (
	QuestCombat        QuestType = "combat"
	QuestDiplomacy     QuestType = "diplomacy"
	QuestExploration   QuestType = "exploration"
	QuestRescue        QuestType = "rescue"
	QuestInvestigation QuestType = "investigation"
)

// Objective is a single quest goal.
type Objective struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	Required bool   `json:"required"`
	Done     bool   `json:"done"`
}

// Reward is granted when a quest resolves.
type Reward struct {
	Kind   string  `json:"kind"`
	Amount float64 `json:"amount"`
}

// Quest is a live quest as seen by the adaptation layer.
type Quest struct {
	ID         string        `json:"id"`
	Title      string        `json:"title"`
	Type       QuestType     `json:"type"`
	GiverNPC   string        `json:"giver_npc"`
	Phase      emotion.Phase `json:"phase"`
	Difficulty float64       `json:"difficulty"`
	Objectives []Objective   `json:"objectives"`
	Rewards    []Reward      `json:"rewards"`
	Branches   []string      `json:"branches"`
	// InvolvedNPCs lists every NPC other than the giver with a stake in the quest.
	InvolvedNPCs []string `json:"involved_npcs"`
}

// Progress returns the fraction of completed objectives.
func (q *Quest) Progress() float64 {
	if q == nil || len(q.Objectives) == 0 {
		return 0
	}
	done := 0
	for _, o := range q.Objectives {
		if o.Done {
			done++
		}
	}
	return float64(done) / float64(len(q.Objectives))
}

// Context returns the hashable quest context used as part of dialogue cache keys.
func (q *Quest) Context() QuestContext {
	if q == nil {
		return QuestContext{}
	}
	return QuestContext{
		QuestID:  q.ID,
		Type:     q.Type,
		Phase:    q.Phase,
		Progress: q.Progress(),
	}
}

// QuestContext is the slice of quest state that changes dialogue.
type QuestContext struct {
	QuestID  string        `json:"quest_id"`
	Type     QuestType     `json:"type"`
	Phase    emotion.Phase `json:"phase"`
	Progress float64       `json:"progress"`
}

// Hash returns a stable 64-bit hash of the context.
func (c QuestContext) Hash() uint64 {
	h := fnv.New64a()
	_, _ = fmt.Fprintf(h, "%s|%s|%s|%.3f", c.QuestID, c.Type, c.Phase, c.Progress)
	return h.Sum64()
}
