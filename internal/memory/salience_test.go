package memory

import (
	"math/rand"
	"testing"
	"time"

	"github.com/easeaico/npc-heart/internal/emotion"
)

func TestEventSalienceOrdersByStrength(t *testing.T) {
	weak := emotion.EmotionalEvent{Type: emotion.EventDialogue, Impact: map[string]float64{"Neutral": 0.1}}
	strong := emotion.EmotionalEvent{
		Type:               emotion.EventTransition,
		Description:        "betrayed at the gate",
		Impact:             map[string]float64{"Betrayed": 0.9},
		Persistence:        0.9,
		RelationshipDeltas: map[string]float64{"p1": -0.4},
	}
	if EventSalience(strong) <= EventSalience(weak) {
		t.Fatalf("expected strong event to score higher")
	}
}

func TestSignificanceScoreBounds(t *testing.T) {
	if got := SignificanceScore(nil); got != 0 {
		t.Fatalf("expected 0 for empty history, got %f", got)
	}

	rng := rand.New(rand.NewSource(4))
	base := time.Now()
	for trial := 0; trial < 200; trial++ {
		events := make([]emotion.EmotionalEvent, rng.Intn(60)+1)
		for i := range events {
			events[i] = emotion.EmotionalEvent{
				Timestamp:   base.Add(-time.Duration(rng.Intn(500)) * time.Hour),
				Impact:      map[string]float64{"Wrathful": rng.Float64() * 2},
				Persistence: rng.Float64(),
			}
		}
		if got := SignificanceScore(events); got < 0 || got > 1 {
			t.Fatalf("score out of range: %f", got)
		}
	}
}

func TestSignificanceScoreFavorsRecentStrongEvents(t *testing.T) {
	now := time.Now()
	strong := emotion.EmotionalEvent{Timestamp: now, Impact: map[string]float64{"Betrayed": 0.95}, Persistence: 0.9}
	faded := emotion.EmotionalEvent{Timestamp: now.Add(-72 * time.Hour), Impact: map[string]float64{"Betrayed": 0.95}, Persistence: 0.9}
	mild := emotion.EmotionalEvent{Timestamp: now, Impact: map[string]float64{"Hopeful": 0.2}}

	recentStrong := SignificanceScore([]emotion.EmotionalEvent{faded, strong})
	recentMild := SignificanceScore([]emotion.EmotionalEvent{faded, mild})
	if recentStrong <= recentMild {
		t.Fatalf("expected recent strong memory to dominate: %f vs %f", recentStrong, recentMild)
	}
}
