package quest

import (
	"fmt"

	"github.com/easeaico/npc-heart/internal/emotion"
	"github.com/easeaico/npc-heart/internal/types"
)

// SelectType picks the adaptation type for a state reached under a trend.
func SelectType(state emotion.State, trend Trend) AdaptationType {
	switch state {
	case emotion.StateBetrayed:
		if trend == TrendDeclining {
			return RelationshipConsequence
		}
		return NarrativeBranch
	case emotion.StateLoyal:
		return RewardAdjustment
	case emotion.StateWrathful:
		return DifficultyScaling
	case emotion.StateJoyful, emotion.StateHopeful:
		return ObjectiveModification
	case emotion.StateFearful:
		return EnvironmentalChange
	case emotion.StateResigned:
		return NarrativeBranch
	default:
		return NpcBehaviorChange
	}
}

type generator func(q *types.Quest, npcID string, ec EmotionalContext) []Modification

var generators = map[AdaptationType]generator{
	RelationshipConsequence: relationshipConsequence,
	NarrativeBranch:         narrativeBranch,
	RewardAdjustment:        rewardAdjustment,
	DifficultyScaling:       difficultyScaling,
	ObjectiveModification:   objectiveModification,
	EnvironmentalChange:     environmentalChange,
	NpcBehaviorChange:       npcBehaviorChange,
}

// Generate returns the modifications for t. It has no side effects.
func Generate(t AdaptationType, q *types.Quest, npcID string, ec EmotionalContext) []Modification {
	gen, ok := generators[t]
	if !ok || q == nil {
		return nil
	}
	return gen(q, npcID, ec)
}

func relationshipConsequence(q *types.Quest, npcID string, ec EmotionalContext) []Modification {
	impact := ImpactModerate
	if ec.Trend == TrendDeclining {
		impact = ImpactMajor
	}
	mods := []Modification{{
		Target:      TargetRelationship,
		Description: fmt.Sprintf("%s no longer trusts the player", npcID),
		Impact:      impact,
		Value:       -0.3,
	}}
	if q.GiverNPC == npcID && ec.Transition.To == emotion.StateBetrayed {
		mods = append(mods, Modification{
			Target:      TargetNarrative,
			Description: "quest giver withdraws support; the quest continues without them",
			Impact:      ImpactCritical,
			Ref:         firstBranch(q),
		})
	}
	return mods
}

func narrativeBranch(q *types.Quest, npcID string, ec EmotionalContext) []Modification {
	impact := ImpactMajor
	desc := fmt.Sprintf("%s gives up on the original plan", npcID)
	if ec.Transition.To == emotion.StateBetrayed {
		impact = ImpactCritical
		desc = fmt.Sprintf("%s turns against the player's cause", npcID)
	}
	mods := []Modification{{
		Target:      TargetNarrative,
		Description: desc,
		Impact:      impact,
		Ref:         firstBranch(q),
	}}
	if ec.Trend == TrendVolatile {
		mods = append(mods, Modification{
			Target:      TargetNarrative,
			Description: "the original path stays open for reconciliation",
			Impact:      ImpactModerate,
		})
	}
	return mods
}

func rewardAdjustment(q *types.Quest, npcID string, ec EmotionalContext) []Modification {
	if len(q.Rewards) == 0 {
		return nil
	}
	mods := []Modification{{
		Target:      TargetReward,
		Description: fmt.Sprintf("%s adds a personal reward", npcID),
		Impact:      ImpactModerate,
		Value:       0.25,
		Ref:         q.Rewards[0].Kind,
	}}
	if ec.Transition.Trigger == emotion.TriggerMajorSuccess {
		mods = append(mods, Modification{
			Target:      TargetObjective,
			Description: "a bonus objective is unlocked",
			Impact:      ImpactMinor,
		})
	}
	return mods
}

func difficultyScaling(q *types.Quest, npcID string, ec EmotionalContext) []Modification {
	impact := ImpactModerate
	if ec.Transition.Intensity > 0.7 {
		impact = ImpactMajor
	}
	mods := []Modification{{
		Target:      TargetDifficulty,
		Description: fmt.Sprintf("%s makes the task harder", npcID),
		Impact:      impact,
		Value:       0.2 * unit(ec.Transition.Intensity),
	}}
	if q.Type == types.QuestCombat {
		mods = append(mods, Modification{
			Target:      TargetEnvironment,
			Description: "hostile reinforcements join the fight",
			Impact:      ImpactModerate,
		})
	}
	return mods
}

func objectiveModification(q *types.Quest, npcID string, ec EmotionalContext) []Modification {
	var mods []Modification
	if next := firstOpenOptional(q); next != "" {
		mods = append(mods, Modification{
			Target:      TargetObjective,
			Description: fmt.Sprintf("%s offers a shortcut", npcID),
			Impact:      ImpactMinor,
			Ref:         next,
		})
	}
	if ec.Transition.To == emotion.StateJoyful {
		mods = append(mods, Modification{
			Target:      TargetObjective,
			Description: fmt.Sprintf("%s volunteers to help with the next step", npcID),
			Impact:      ImpactModerate,
		})
	}
	return mods
}

func environmentalChange(q *types.Quest, npcID string, ec EmotionalContext) []Modification {
	mods := []Modification{{
		Target:      TargetEnvironment,
		Description: fmt.Sprintf("%s has doubled the guards", npcID),
		Impact:      ImpactModerate,
	}}
	if ec.Transition.Intensity > 0.8 {
		mods = append(mods, Modification{
			Target:      TargetEnvironment,
			Description: "the usual routes are sealed",
			Impact:      ImpactMajor,
		})
	}
	return mods
}

func npcBehaviorChange(q *types.Quest, npcID string, ec EmotionalContext) []Modification {
	if ec.Transition.To == emotion.StateNeutral {
		if !ec.Transition.Changed() {
			return nil
		}
		return []Modification{{
			Target:      TargetNPCBehavior,
			Description: fmt.Sprintf("%s returns to their routine", npcID),
			Impact:      ImpactMinor,
		}}
	}
	return []Modification{{
		Target:      TargetNPCBehavior,
		Description: fmt.Sprintf("%s withholds information", npcID),
		Impact:      ImpactModerate,
	}}
}

func firstBranch(q *types.Quest) string {
	if len(q.Branches) == 0 {
		return ""
	}
	return q.Branches[0]
}

func firstOpenOptional(q *types.Quest) string {
	for _, o := range q.Objectives {
		if !o.Required && !o.Done {
			return o.ID
		}
	}
	return ""
}
