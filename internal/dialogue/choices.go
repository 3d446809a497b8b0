package dialogue

import (
	"github.com/easeaico/npc-heart/internal/emotion"
	"github.com/easeaico/npc-heart/internal/types"
)

// MaxChoices is the most choices offered in one response, the continue choice included.
const MaxChoices = 4

var emotionChoices = map[emotion.State][]types.PlayerChoice{
	emotion.StateHopeful: {
		{ID: "share_plan", Text: "Here is how we will do it.", Category: types.ChoiceFriendly},
		{ID: "promise_help", Text: "I will see this through with you.", Category: types.ChoiceHeroic},
		{ID: "temper_hope", Text: "Let's not get ahead of ourselves.", Category: types.ChoiceDiplomatic},
	},
	emotion.StateBitter: {
		{ID: "apologize", Text: "I'm sorry for what happened.", Category: types.ChoiceCompassionate},
		{ID: "explain", Text: "Let me explain my side.", Category: types.ChoiceDiplomatic},
		{ID: "dismiss", Text: "Get over it.", Category: types.ChoiceAggressive},
	},
	emotion.StateWrathful: {
		{ID: "calm_down", Text: "Breathe. We can fix this.", Category: types.ChoiceDiplomatic},
		{ID: "stand_ground", Text: "Raise your voice again and see what happens.", Category: types.ChoiceHostile},
		{ID: "back_off", Text: "I'll give you some space.", Category: types.ChoiceNeutral},
	},
	emotion.StateFearful: {
		{ID: "reassure", Text: "You're safe with me.", Category: types.ChoiceCompassionate},
		{ID: "ask_threat", Text: "What exactly are you afraid of?", Category: types.ChoiceInvestigative},
		{ID: "mock_fear", Text: "Pull yourself together.", Category: types.ChoiceAggressive},
	},
	emotion.StateResigned: {
		{ID: "encourage", Text: "It isn't over yet.", Category: types.ChoiceCompassionate},
		{ID: "offer_task", Text: "I could use your help with something.", Category: types.ChoiceQuestAction},
		{ID: "agree_hopeless", Text: "You're probably right.", Category: types.ChoiceNeutral},
	},
	emotion.StateJoyful: {
		{ID: "celebrate", Text: "We earned this!", Category: types.ChoiceFriendly},
		{ID: "next_step", Text: "Let's keep the momentum.", Category: types.ChoiceQuestAction},
		{ID: "share_credit", Text: "I couldn't have done it without you.", Category: types.ChoiceCompassionate},
	},
	emotion.StateBetrayed: {
		{ID: "make_amends", Text: "Let me make this right.", Category: types.ChoiceCompassionate},
		{ID: "deny", Text: "That's not what happened.", Category: types.ChoiceDiplomatic},
		{ID: "shrug", Text: "You'll survive.", Category: types.ChoiceHostile},
	},
	emotion.StateLoyal: {
		{ID: "lead_charge", Text: "Follow me.", Category: types.ChoiceHeroic},
		{ID: "confide", Text: "There is something you should know.", Category: types.ChoiceFriendly},
		{ID: "ask_favor", Text: "I need you to do something for me.", Category: types.ChoiceQuestAction},
	},
	emotion.StateNeutral: {
		{ID: "greet", Text: "Good to meet you.", Category: types.ChoiceFriendly},
		{ID: "ask_news", Text: "Heard anything interesting?", Category: types.ChoiceInvestigative},
		{ID: "offer_help", Text: "Need a hand?", Category: types.ChoiceHeroic},
	},
}

var questChoices = map[types.QuestType][]types.PlayerChoice{
	types.QuestCombat: {
		{ID: "plan_attack", Text: "Where do we strike first?", Category: types.ChoiceQuestAction},
		{ID: "intimidate", Text: "Tell me what you know or else.", Category: types.ChoiceAggressive},
	},
	types.QuestDiplomacy: {
		{ID: "propose_terms", Text: "I have terms both sides can accept.", Category: types.ChoiceDiplomatic},
		{ID: "broker_meeting", Text: "Let me arrange a meeting.", Category: types.ChoiceQuestAction},
	},
	types.QuestExploration: {
		{ID: "ask_directions", Text: "Which way did they go?", Category: types.ChoiceInvestigative},
		{ID: "scout_ahead", Text: "I'll scout ahead.", Category: types.ChoiceHeroic},
	},
	types.QuestRescue: {
		{ID: "vow_rescue", Text: "I'll bring them back.", Category: types.ChoiceHeroic},
		{ID: "ask_captors", Text: "Who took them?", Category: types.ChoiceInvestigative},
	},
	types.QuestInvestigation: {
		{ID: "examine_clue", Text: "Show me what you found.", Category: types.ChoiceInvestigative},
		{ID: "accuse", Text: "You were there that night.", Category: types.ChoiceAggressive},
	},
}

// AssembleChoices builds the offered choices: continue first, then emotion and quest choices
// alternating, without duplicates, capped at MaxChoices.
func AssembleChoices(state emotion.State, questType types.QuestType) []types.PlayerChoice {
	byEmotion, ok := emotionChoices[state]
	if !ok {
		byEmotion = emotionChoices[emotion.StateNeutral]
	}
	byQuest := questChoices[questType]

	choices := make([]types.PlayerChoice, 0, MaxChoices)
	choices = append(choices, types.ContinueChoice)
	seen := map[string]bool{types.ContinueChoice.ID: true}

	add := func(c types.PlayerChoice) {
		if len(choices) < MaxChoices && !seen[c.ID] {
			seen[c.ID] = true
			choices = append(choices, c)
		}
	}
	for i := 0; len(choices) < MaxChoices && (i < len(byEmotion) || i < len(byQuest)); i++ {
		if i < len(byEmotion) {
			add(byEmotion[i])
		}
		if i < len(byQuest) {
			add(byQuest[i])
		}
	}
	return choices
}
