package emotion

// Tone is the speaking register an NPC uses in its current mood.
type Tone struct {
	Label     string  `json:"label"`
	Intensity float64 `json:"intensity"`
	// Warmth is in [-1,1]; negative values push word choice toward distance.
	Warmth float64 `json:"warmth"`
}

var toneLabels = map[State]struct {
	label  string
	warmth float64
}{
	StateHopeful:  {"warm", 0.5},
	StateBitter:   {"curt", -0.4},
	StateWrathful: {"hostile", -0.9},
	StateFearful:  {"hesitant", -0.1},
	StateResigned: {"flat", -0.2},
	StateJoyful:   {"cheerful", 0.8},
	StateBetrayed: {"cold", -0.7},
	StateLoyal:    {"devoted", 0.9},
	StateNeutral:  {"even", 0},
}

// ToneFor derives the tone from a profile snapshot.
func ToneFor(snap Snapshot) Tone {
	t, ok := toneLabels[snap.State]
	if !ok {
		t = toneLabels[StateNeutral]
	}
	return Tone{
		Label:     t.label,
		Intensity: Clamp01(snap.Intensity),
		Warmth:    t.warmth * (0.5 + Clamp01(snap.Intensity)/2),
	}
}

// ToneInstruction returns a short behavior guideline for the given mood.
func ToneInstruction(s State) string {
	switch s {
	case StateHopeful:
		return "Speak warmly and look toward what could go right."
	case StateBitter:
		return "Keep replies short and pointed; let old grievances show."
	case StateWrathful:
		return "Speak in clipped, angry sentences and avoid any familiarity."
	case StateFearful:
		return "Hesitate, hedge and ask for reassurance."
	case StateResigned:
		return "Sound tired and flat, expecting little."
	case StateJoyful:
		return "Be openly glad and generous with praise."
	case StateBetrayed:
		return "Be cold and guarded; do not accept promises at face value."
	case StateLoyal:
		return "Speak as a devoted ally who trusts the player."
	default:
		return ""
	}
}
