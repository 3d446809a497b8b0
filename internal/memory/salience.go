package memory

import (
	"math"

	"github.com/easeaico/npc-heart/internal/emotion"
)

// EventSalience scores how much a single event should weigh in long-term memory, in [0,1].
func EventSalience(event emotion.EmotionalEvent) float64 {
	score := 0.0

	score += event.MaxImpact() * 0.45
	score += event.Persistence * 0.25

	deltas := len(event.RelationshipDeltas)
	if deltas > 2 {
		deltas = 2
	}
	score += float64(deltas) * 0.05

	switch event.Type {
	case emotion.EventTransition, emotion.EventCombat:
		score += 0.10
	case emotion.EventQuest:
		score += 0.05
	}

	if event.Description != "" {
		score += 0.05
	}
	return normalizeSalience(score)
}

// SignificanceScore rates an NPC's significant memories as a whole, in [0,1]. Recent,
// strong events count most; an empty history scores 0.
func SignificanceScore(events []emotion.EmotionalEvent) float64 {
	if len(events) == 0 {
		return 0
	}
	newest := events[0].Timestamp
	for _, e := range events {
		if e.Timestamp.After(newest) {
			newest = e.Timestamp
		}
	}

	var weighted, weights float64
	for _, e := range events {
		age := newest.Sub(e.Timestamp)
		w := math.Exp(-age.Hours() / 24)
		weighted += w * EventSalience(e)
		weights += w
	}
	mean := weighted / weights

	// Volume adds up to 0.2 once half of long-term memory is filled.
	volume := float64(len(events)) / float64(emotion.SignificantCapacity/2)
	if volume > 1 {
		volume = 1
	}
	return normalizeSalience(0.8*mean + 0.2*volume)
}

func normalizeSalience(score float64) float64 {
	if score != score || score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
