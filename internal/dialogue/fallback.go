package dialogue

import (
	"fmt"
	"hash/fnv"

	"github.com/easeaico/npc-heart/internal/emotion"
	"github.com/easeaico/npc-heart/internal/types"
)

var fallbackPhrases = map[emotion.State][]string{
	emotion.StateHopeful: {
		"Maybe this time things will go our way.",
		"I have a good feeling about this.",
		"If we keep at it, I think we can pull this off.",
	},
	emotion.StateBitter: {
		"Forgive me if I don't celebrate.",
		"I've heard promises like that before.",
		"Say what you came to say.",
	},
	emotion.StateWrathful: {
		"Choose your next words carefully.",
		"I have had enough of this.",
		"Get out of my sight before I lose my temper.",
	},
	emotion.StateFearful: {
		"Please, keep your voice down.",
		"I don't know if we should be doing this.",
		"Are you sure it's safe here?",
	},
	emotion.StateResigned: {
		"Does it even matter anymore?",
		"Do what you want. It always ends the same.",
		"Fine. I suppose it makes no difference.",
	},
	emotion.StateJoyful: {
		"What a day this has turned out to be!",
		"I can't stop smiling.",
		"You always know how to lift my spirits.",
	},
	emotion.StateBetrayed: {
		"I trusted you.",
		"You'll have to earn every word back.",
		"I won't make the same mistake twice.",
	},
	emotion.StateLoyal: {
		"Whatever you need, I'm with you.",
		"I'd follow you anywhere.",
		"You've never let me down. I won't let you down either.",
	},
	emotion.StateNeutral: {
		"I see.",
		"Go on.",
		"What can I do for you?",
	},
}

var categoryOpeners = map[types.ChoiceCategory]map[emotion.State]string{
	types.ChoiceHeroic: {
		emotion.StateLoyal:   "That's the spirit.",
		emotion.StateHopeful: "You mean it?",
		emotion.StateBitter:  "Big words.",
	},
	types.ChoiceHostile: {
		emotion.StateFearful: "Please, there's no need for that.",
		emotion.StateLoyal:   "I didn't expect that from you.",
	},
	types.ChoiceCompassionate: {
		emotion.StateBetrayed: "Kindness won't undo it.",
		emotion.StateResigned: "That's kind of you.",
	},
	types.ChoiceInvestigative: {
		emotion.StateNeutral: "Questions, questions.",
	},
}

// FallbackText is the local response used when the collaborator cannot answer. The phrase
// depends only on its inputs, so the same npc, choice, quest and state always read the same.
func FallbackText(npcID string, state emotion.State, choice types.PlayerChoice, questID string) string {
	phrases, ok := fallbackPhrases[state]
	if !ok || len(phrases) == 0 {
		state = emotion.StateNeutral
		phrases = fallbackPhrases[emotion.StateNeutral]
	}

	h := fnv.New32a()
	_, _ = fmt.Fprintf(h, "%s|%s|%s|%s", npcID, choice.ID, questID, state)
	phrase := phrases[h.Sum32()%uint32(len(phrases))]

	if opener := categoryOpeners[choice.Category][state]; opener != "" {
		return opener + " " + phrase
	}
	return phrase
}
