// Package emotion models NPC emotional states, their memory and the probabilistic
// transitions between them.
package emotion

import "strings"

// State is one of the fixed emotional variants an NPC can be in.
type State string

const (
	StateHopeful  State = "Hopeful"
	StateBitter   State = "Bitter"
	StateWrathful State = "Wrathful"
	StateFearful  State = "Fearful"
	StateResigned State = "Resigned"
	StateJoyful   State = "Joyful"
	StateBetrayed State = "Betrayed"
	StateLoyal    State = "Loyal"
	StateNeutral  State = "Neutral"
)

// AllStates lists every variant in a stable order.
var AllStates = []State{
	StateHopeful,
	StateBitter,
	StateWrathful,
	StateFearful,
	StateResigned,
	StateJoyful,
	StateBetrayed,
	StateLoyal,
	StateNeutral,
}

// Trigger is a classified label derived from a player action.
type Trigger string

const (
	TriggerBetrayal           Trigger = "betrayal"
	TriggerEncouragement      Trigger = "encouragement"
	TriggerThreat             Trigger = "threat"
	TriggerGenuineApology     Trigger = "genuine_apology"
	TriggerSuccess            Trigger = "success"
	TriggerMajorSuccess       Trigger = "major_success"
	TriggerFailure            Trigger = "failure"
	TriggerContinuedSupport   Trigger = "continued_support"
	TriggerContinuedBetrayal  Trigger = "continued_betrayal"
	TriggerNeutralInteraction Trigger = "neutral_interaction"
)

// StateInfo is the static metadata carried by each State.
type StateInfo struct {
	DisplayName   string
	Description   string
	BaseIntensity float64
	Compatible    []State
	Triggers      []Trigger
	// Color is a hex theme color consumed by presentation.
	Color string
}

var stateInfo = map[State]StateInfo{
	StateHopeful: {
		DisplayName:   "Hopeful",
		Description:   "Believes things may turn out well",
		BaseIntensity: 0.6,
		Compatible:    []State{StateJoyful, StateLoyal, StateNeutral},
		Triggers:      []Trigger{TriggerEncouragement, TriggerSuccess, TriggerGenuineApology},
		Color:         "#7BC67E",
	},
	StateBitter: {
		DisplayName:   "Bitter",
		Description:   "Resentful after being let down",
		BaseIntensity: 0.5,
		Compatible:    []State{StateResigned, StateWrathful, StateBetrayed},
		Triggers:      []Trigger{TriggerBetrayal, TriggerFailure, TriggerContinuedBetrayal},
		Color:         "#8C6A3F",
	},
	StateWrathful: {
		DisplayName:   "Wrathful",
		Description:   "Consumed by anger",
		BaseIntensity: 0.9,
		Compatible:    []State{StateBitter, StateBetrayed},
		Triggers:      []Trigger{TriggerBetrayal, TriggerThreat, TriggerContinuedBetrayal},
		Color:         "#C0392B",
	},
	StateFearful: {
		DisplayName:   "Fearful",
		Description:   "Afraid of what comes next",
		BaseIntensity: 0.7,
		Compatible:    []State{StateResigned, StateHopeful, StateNeutral},
		Triggers:      []Trigger{TriggerThreat, TriggerFailure},
		Color:         "#6C5B7B",
	},
	StateResigned: {
		DisplayName:   "Resigned",
		Description:   "Has stopped expecting better",
		BaseIntensity: 0.3,
		Compatible:    []State{StateBitter, StateFearful, StateNeutral},
		Triggers:      []Trigger{TriggerFailure, TriggerContinuedBetrayal},
		Color:         "#7F8C8D",
	},
	StateJoyful: {
		DisplayName:   "Joyful",
		Description:   "Openly happy",
		BaseIntensity: 0.8,
		Compatible:    []State{StateHopeful, StateLoyal},
		Triggers:      []Trigger{TriggerSuccess, TriggerMajorSuccess, TriggerEncouragement},
		Color:         "#F4D03F",
	},
	StateBetrayed: {
		DisplayName:   "Betrayed",
		Description:   "Trust has been broken",
		BaseIntensity: 0.85,
		Compatible:    []State{StateBitter, StateWrathful},
		Triggers:      []Trigger{TriggerBetrayal, TriggerContinuedBetrayal},
		Color:         "#5B2C6F",
	},
	StateLoyal: {
		DisplayName:   "Loyal",
		Description:   "Devoted to the player",
		BaseIntensity: 0.7,
		Compatible:    []State{StateHopeful, StateJoyful},
		Triggers:      []Trigger{TriggerContinuedSupport, TriggerMajorSuccess},
		Color:         "#2E86C1",
	},
	StateNeutral: {
		DisplayName:   "Neutral",
		Description:   "Calm and undecided",
		BaseIntensity: 0.2,
		Compatible:    []State{StateHopeful, StateFearful, StateResigned},
		Triggers:      []Trigger{TriggerNeutralInteraction},
		Color:         "#BDC3C7",
	},
}

// Info returns the metadata for s. Unknown states resolve to Neutral metadata.
func (s State) Info() StateInfo {
	if info, ok := stateInfo[s]; ok {
		return info
	}
	return stateInfo[StateNeutral]
}

// Valid reports whether s is one of the defined variants.
func (s State) Valid() bool {
	_, ok := stateInfo[s]
	return ok
}

// CompatibleWith reports whether other can coexist with s as a secondary state.
func (s State) CompatibleWith(other State) bool {
	for _, c := range s.Info().Compatible {
		if c == other {
			return true
		}
	}
	return false
}

// ParseState resolves a state name case-insensitively.
func ParseState(name string) (State, bool) {
	name = strings.TrimSpace(name)
	for _, s := range AllStates {
		if strings.EqualFold(string(s), name) {
			return s, true
		}
	}
	return StateNeutral, false
}

// Phase is the narrative phase of the quest an interaction happens in.
type Phase string

const (
	PhaseIntro      Phase = "intro"
	PhaseInProgress Phase = "in_progress"
	PhaseCompletion Phase = "completion"
	PhaseFailure    Phase = "failure"
)

var phaseFactors = map[Phase]float64{
	PhaseIntro:      0.8,
	PhaseInProgress: 1.0,
	PhaseCompletion: 1.3,
	PhaseFailure:    1.4,
}

// Factor returns the probability multiplier for the phase. Unknown phases scale by 1.
func (p Phase) Factor() float64 {
	if f, ok := phaseFactors[p]; ok {
		return f
	}
	return 1.0
}

// Clamp01 bounds v to [0,1].
func Clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// ClampUnit bounds v to [-1,1].
func ClampUnit(v float64) float64 {
	switch {
	case v < -1:
		return -1
	case v > 1:
		return 1
	default:
		return v
	}
}
