package types

// ChoiceCategory classifies a player dialogue choice.
type ChoiceCategory string

const (
	ChoiceCompassionate ChoiceCategory = "Compassionate"
	ChoiceFriendly      ChoiceCategory = "Friendly"
	ChoiceDiplomatic    ChoiceCategory = "Diplomatic"
	ChoiceNeutral       ChoiceCategory = "Neutral"
	ChoiceAggressive    ChoiceCategory = "Aggressive"
	ChoiceHostile       ChoiceCategory = "Hostile"
	ChoiceHeroic        ChoiceCategory = "Heroic"
	ChoiceInvestigative ChoiceCategory = "Investigative"
	ChoiceQuestAction   ChoiceCategory = "QuestAction"
)

// PlayerChoice is one selectable dialogue option.
type PlayerChoice struct {
	ID       string         `json:"id"`
	Text     string         `json:"text"`
	Category ChoiceCategory `json:"category"`
}

// ContinueChoice is always offered so a conversation can move on.
var ContinueChoice = PlayerChoice{ID: "continue", Text: "Continue.", Category: ChoiceNeutral}
