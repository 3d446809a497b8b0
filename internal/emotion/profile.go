package emotion

import (
	"math"
	"sort"
	"time"
)

const (
	maxSecondaryStates  = 3
	primarySwitchImpact = 0.3
	secondaryMinImpact  = 0.1
	secondaryDropCutoff = 0.05
	transitioningWindow = 2 * time.Second
	defaultStability    = 0.5
)

// StateIntensity pairs a secondary state with how strongly it is felt.
type StateIntensity struct {
	State     State   `json:"state"`
	Intensity float64 `json:"intensity"`
}

// EmotionalProfile is an NPC's composite emotional snapshot. Values are never mutated
// after publication; ProcessEvent returns a new profile.
type EmotionalProfile struct {
	Primary     State            `json:"primary_state"`
	Previous    State            `json:"previous_state"`
	Secondary   []StateIntensity `json:"secondary_states"`
	Stability   float64          `json:"stability"`
	Intensity   float64          `json:"intensity"`
	Memory      *EmotionalMemory `json:"memory"`
	LastUpdated time.Time        `json:"last_updated"`
}

// NewProfile returns the spawn profile: Neutral, empty memory.
func NewProfile(now time.Time) EmotionalProfile {
	return EmotionalProfile{
		Primary:     StateNeutral,
		Previous:    StateNeutral,
		Stability:   defaultStability,
		Intensity:   StateNeutral.Info().BaseIntensity,
		Memory:      NewEmotionalMemory(),
		LastUpdated: now,
	}
}

// DecayFactor returns exp(-hours * (1 - stability)).
func DecayFactor(elapsed time.Duration, stability float64) float64 {
	hours := elapsed.Hours()
	if hours < 0 {
		hours = 0
	}
	return math.Exp(-hours * (1 - Clamp01(stability)))
}

// Decay applies time decay to secondary states without ingesting an event.
func (p EmotionalProfile) Decay(elapsed time.Duration) EmotionalProfile {
	factor := DecayFactor(elapsed, p.Stability)
	next := p
	next.Secondary = mergeSecondary(p.Primary, nil, p.Secondary, factor)
	next.Intensity = decayToward(p.Intensity, p.Primary.Info().BaseIntensity, factor)
	next.LastUpdated = p.LastUpdated.Add(max(elapsed, 0))
	return next
}

// ProcessEvent is the only write path for a profile. It decays existing secondary states,
// selects the new primary from the event's impacts, merges secondaries and records the
// event in a cloned memory. The receiver is left untouched.
func (p EmotionalProfile) ProcessEvent(event EmotionalEvent, elapsed time.Duration) EmotionalProfile {
	event = event.sanitized()
	factor := DecayFactor(elapsed, p.Stability)

	valid := validImpacts(event.Impact)
	primary := p.Primary
	intensity := decayToward(p.Intensity, p.Primary.Info().BaseIntensity, factor)

	if top, value, ok := strongest(valid); ok && value > primarySwitchImpact {
		primary = top
		intensity = Clamp01(value)
	}

	next := EmotionalProfile{
		Primary:     primary,
		Previous:    p.Primary,
		Secondary:   mergeSecondary(primary, valid, p.Secondary, factor),
		Stability:   p.Stability,
		Intensity:   intensity,
		Memory:      p.Memory.Clone(),
		LastUpdated: event.Timestamp,
	}
	if next.LastUpdated.IsZero() || next.LastUpdated.Before(p.LastUpdated) {
		next.LastUpdated = p.LastUpdated.Add(max(elapsed, 0))
	}

	next.Memory.AddEvent(event)
	for entity, delta := range event.RelationshipDeltas {
		next.Memory.UpdateRelationship(entity, delta)
	}
	return next
}

// Snapshot is the read-only view handed to presentation.
type Snapshot struct {
	State         State            `json:"state"`
	DisplayName   string           `json:"display_name"`
	Intensity     float64          `json:"intensity"`
	Color         string           `json:"color"`
	Secondary     []StateIntensity `json:"secondary"`
	Transitioning bool             `json:"transitioning"`
}

// Snapshot returns the presentation view of the profile as of now.
func (p EmotionalProfile) Snapshot(now time.Time) Snapshot {
	info := p.Primary.Info()
	return Snapshot{
		State:         p.Primary,
		DisplayName:   info.DisplayName,
		Intensity:     p.Intensity,
		Color:         info.Color,
		Secondary:     append([]StateIntensity(nil), p.Secondary...),
		Transitioning: p.Previous != p.Primary && now.Sub(p.LastUpdated) < transitioningWindow,
	}
}

// validImpacts drops unknown state names; malformed keys never abort an update.
func validImpacts(impact map[string]float64) map[State]float64 {
	out := make(map[State]float64, len(impact))
	for name, value := range impact {
		state, ok := ParseState(name)
		if !ok || !finite(value) {
			continue
		}
		if value > out[state] {
			out[state] = value
		}
	}
	return out
}

func strongest(impacts map[State]float64) (State, float64, bool) {
	var (
		best  State
		value float64
		found bool
	)
	// iterate in a fixed order so ties resolve deterministically
	for _, s := range AllStates {
		v, ok := impacts[s]
		if !ok {
			continue
		}
		if !found || v > value {
			best, value, found = s, v, true
		}
	}
	return best, value, found
}

func mergeSecondary(primary State, impacts map[State]float64, previous []StateIntensity, factor float64) []StateIntensity {
	merged := make(map[State]float64)
	for s, v := range impacts {
		if s == primary || v <= secondaryMinImpact {
			continue
		}
		merged[s] = Clamp01(v)
	}
	for _, si := range previous {
		if si.State == primary {
			continue
		}
		decayed := si.Intensity * factor
		if decayed < secondaryDropCutoff {
			continue
		}
		if decayed > merged[si.State] {
			merged[si.State] = decayed
		}
	}

	out := make([]StateIntensity, 0, len(merged))
	for s, v := range merged {
		out = append(out, StateIntensity{State: s, Intensity: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Intensity == out[j].Intensity {
			return out[i].State < out[j].State
		}
		return out[i].Intensity > out[j].Intensity
	})
	if len(out) > maxSecondaryStates {
		out = out[:maxSecondaryStates]
	}
	return out
}

func decayToward(value, base, factor float64) float64 {
	return Clamp01(base + (value-base)*factor)
}
