package engine

import (
	"fmt"

	"github.com/easeaico/npc-heart/internal/emotion"
	"github.com/easeaico/npc-heart/internal/quest"
)

// triggerPersistence is how long each trigger tends to stay with an NPC.
var triggerPersistence = map[emotion.Trigger]float64{
	emotion.TriggerBetrayal:           0.9,
	emotion.TriggerContinuedBetrayal:  0.85,
	emotion.TriggerMajorSuccess:       0.85,
	emotion.TriggerThreat:             0.7,
	emotion.TriggerContinuedSupport:   0.7,
	emotion.TriggerEncouragement:      0.6,
	emotion.TriggerSuccess:            0.6,
	emotion.TriggerFailure:            0.6,
	emotion.TriggerGenuineApology:     0.5,
	emotion.TriggerNeutralInteraction: 0.2,
}

// describeTransition phrases what happened so relationship trends can be read back from memory.
func describeTransition(r emotion.TransitionResult, playerID, action string) string {
	switch {
	case r.Trigger == emotion.TriggerBetrayal || r.Trigger == emotion.TriggerContinuedBetrayal:
		return fmt.Sprintf("felt betrayed by %s: %s", playerID, action)
	case r.To == emotion.StateLoyal && r.Changed():
		return fmt.Sprintf("grew loyal to %s: %s", playerID, action)
	case r.Trigger == emotion.TriggerEncouragement || r.Trigger == emotion.TriggerContinuedSupport:
		return fmt.Sprintf("was helped by %s: %s", playerID, action)
	case r.Trigger == emotion.TriggerFailure:
		return fmt.Sprintf("was disappointed by %s: %s", playerID, action)
	default:
		return fmt.Sprintf("reacted to %s (%s): %s", playerID, r.Trigger, action)
	}
}

// transitionEvent builds the event that commits r. It returns false when nothing worth
// remembering happened.
func transitionEvent(r emotion.TransitionResult, playerID, action string, actionIntensity float64) (emotion.EmotionalEvent, bool) {
	if !r.Changed() && r.Trigger == emotion.TriggerNeutralInteraction {
		return emotion.EmotionalEvent{}, false
	}

	peak := max(r.To.Info().BaseIntensity, emotion.Clamp01(actionIntensity))
	var value float64
	if r.Changed() {
		// Strong enough to become the new primary state.
		value = 0.6 + 0.4*peak
	} else {
		value = 0.3 + 0.3*peak
	}

	description := describeTransition(r, playerID, action)
	event := emotion.NewEvent(emotion.EventTransition, playerID, description,
		map[string]float64{string(r.To): emotion.Clamp01(value)},
		triggerPersistence[r.Trigger])
	if delta := quest.MemoryDelta(description); delta != 0 && playerID != "" {
		event.RelationshipDeltas = map[string]float64{playerID: delta}
	}
	return event, true
}
