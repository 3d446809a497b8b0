package dialogue

import (
	"github.com/easeaico/npc-heart/internal/emotion"
	"github.com/easeaico/npc-heart/internal/types"
)

var baseDeltas = map[types.ChoiceCategory]float64{
	types.ChoiceCompassionate: 0.2,
	types.ChoiceFriendly:      0.15,
	types.ChoiceDiplomatic:    0.1,
	types.ChoiceNeutral:       0,
	types.ChoiceAggressive:    -0.2,
	types.ChoiceHostile:       -0.3,
	types.ChoiceHeroic:        0.25,
	types.ChoiceInvestigative: 0.05,
	types.ChoiceQuestAction:   0.1,
}

var stateMultipliers = map[emotion.State]float64{
	emotion.StateLoyal:    1.2,
	emotion.StateBitter:   0.7,
	emotion.StateBetrayed: 0.5,
	emotion.StateFearful:  1.1,
}

// BaseDelta returns the unscaled relationship change for a choice category.
func BaseDelta(category types.ChoiceCategory) float64 {
	return baseDeltas[category]
}

// RelationshipDelta scales the category delta by how the NPC currently feels, clamped to [-1,1].
func RelationshipDelta(category types.ChoiceCategory, state emotion.State) float64 {
	multiplier, ok := stateMultipliers[state]
	if !ok {
		multiplier = 1.0
	}
	return emotion.ClampUnit(BaseDelta(category) * multiplier)
}

// categoryImpacts nudge the NPC's mood toward a state without forcing a switch.
var categoryImpacts = map[types.ChoiceCategory]map[string]float64{
	types.ChoiceCompassionate: {string(emotion.StateHopeful): 0.25},
	types.ChoiceFriendly:      {string(emotion.StateHopeful): 0.2, string(emotion.StateJoyful): 0.1},
	types.ChoiceDiplomatic:    {string(emotion.StateNeutral): 0.15},
	types.ChoiceAggressive:    {string(emotion.StateFearful): 0.2, string(emotion.StateBitter): 0.15},
	types.ChoiceHostile:       {string(emotion.StateWrathful): 0.25, string(emotion.StateBitter): 0.2},
	types.ChoiceHeroic:        {string(emotion.StateLoyal): 0.25, string(emotion.StateJoyful): 0.2},
	types.ChoiceInvestigative: {string(emotion.StateNeutral): 0.1},
	types.ChoiceQuestAction:   {string(emotion.StateHopeful): 0.15},
}

// categoryVerbs feed event descriptions, which later drive relationship trend detection.
var categoryVerbs = map[types.ChoiceCategory]string{
	types.ChoiceCompassionate: "comforted",
	types.ChoiceFriendly:      "chatted with",
	types.ChoiceDiplomatic:    "negotiated with",
	types.ChoiceNeutral:       "spoke to",
	types.ChoiceAggressive:    "pressured",
	types.ChoiceHostile:       "threatened",
	types.ChoiceHeroic:        "helped",
	types.ChoiceInvestigative: "questioned",
	types.ChoiceQuestAction:   "helped",
}
