// Package quest adapts live quests to NPC emotional transitions.
package quest

import (
	"time"

	"github.com/easeaico/npc-heart/internal/emotion"
)

// AdaptationType names the kind of change applied to a quest.
type AdaptationType string

const (
	RelationshipConsequence AdaptationType = "relationship_consequence"
	NarrativeBranch         AdaptationType = "narrative_branch"
	RewardAdjustment        AdaptationType = "reward_adjustment"
	DifficultyScaling       AdaptationType = "difficulty_scaling"
	ObjectiveModification   AdaptationType = "objective_modification"
	EnvironmentalChange     AdaptationType = "environmental_change"
	NpcBehaviorChange       AdaptationType = "npc_behavior_change"
)

// ImpactLevel grades a single modification.
type ImpactLevel string

const (
	ImpactMinor    ImpactLevel = "Minor"
	ImpactModerate ImpactLevel = "Moderate"
	ImpactMajor    ImpactLevel = "Major"
	ImpactCritical ImpactLevel = "Critical"
)

// Trend is the direction of an NPC's recent relationship with the player.
type Trend string

const (
	TrendImproving Trend = "Improving"
	TrendDeclining Trend = "Declining"
	TrendStable    Trend = "Stable"
	TrendVolatile  Trend = "Volatile"
)

// Target is the part of the quest a modification touches.
type Target string

const (
	TargetObjective    Target = "objective"
	TargetReward       Target = "reward"
	TargetDifficulty   Target = "difficulty"
	TargetNarrative    Target = "narrative"
	TargetEnvironment  Target = "environment"
	TargetNPCBehavior  Target = "npc_behavior"
	TargetRelationship Target = "relationship"
)

// Modification is one concrete change to a quest.
type Modification struct {
	Target      Target      `json:"target"`
	Description string      `json:"description"`
	Impact      ImpactLevel `json:"impact"`
	// Value is a signed magnitude whose unit depends on Target, e.g. a reward multiplier delta.
	Value float64 `json:"value,omitempty"`
	// Ref names the objective or branch affected, if any.
	Ref string `json:"ref,omitempty"`
}

// Transition is the emotional change that may adapt a quest.
type Transition struct {
	From    emotion.State   `json:"from"`
	To      emotion.State   `json:"to"`
	Trigger emotion.Trigger `json:"trigger"`
	// Intensity is the NPC's emotional intensity after the change, in [0,1].
	Intensity float64 `json:"intensity"`
}

// TransitionFrom converts an engine decision into a Transition.
func TransitionFrom(r emotion.TransitionResult, intensity float64) Transition {
	return Transition{From: r.From, To: r.To, Trigger: r.Trigger, Intensity: intensity}
}

// Changed reports whether the state moved.
func (t Transition) Changed() bool {
	return t.From != t.To
}

// EmotionalContext is what the generators see of the NPC.
type EmotionalContext struct {
	Transition   Transition `json:"transition"`
	Trend        Trend      `json:"trend"`
	Significance float64    `json:"significance"`
	PlayerID     string     `json:"player_id,omitempty"`
}

// Adaptation is an append-only record of a quest change.
type Adaptation struct {
	ID            string           `json:"id"`
	QuestID       string           `json:"quest_id"`
	NPCID         string           `json:"npc_id"`
	Type          AdaptationType   `json:"type"`
	Trigger       emotion.Trigger  `json:"trigger"`
	ChoiceID      string           `json:"choice_id,omitempty"`
	Context       EmotionalContext `json:"emotional_context"`
	Modifications []Modification   `json:"modifications"`
	Priority      int              `json:"priority"`
	CreatedAt     time.Time        `json:"created_at"`
}

// ConsequenceType classifies a consequence.
type ConsequenceType string

const (
	StoryBranch        ConsequenceType = "story_branch"
	RelationshipChange ConsequenceType = "relationship_change"
)

// Consequence is derived from a high-impact modification and kept for narrative reconciliation.
type Consequence struct {
	ID                string          `json:"id"`
	QuestID           string          `json:"quest_id"`
	AdaptationID      string          `json:"adaptation_id"`
	Type              ConsequenceType `json:"type"`
	Description       string          `json:"description"`
	Impact            ImpactLevel     `json:"impact"`
	AffectedNPCs      []string        `json:"affected_npcs"`
	QuestChainEffects []string        `json:"quest_chain_effects,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}

// Prediction is a possible future adaptation, for foreshadowing only.
type Prediction struct {
	QuestID    string          `json:"quest_id"`
	NPCID      string          `json:"npc_id"`
	Trigger    emotion.Trigger `json:"trigger"`
	State      emotion.State   `json:"state"`
	Type       AdaptationType  `json:"type"`
	Likelihood float64         `json:"likelihood"`
	Priority   int             `json:"priority"`
}
