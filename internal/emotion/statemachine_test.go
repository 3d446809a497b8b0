package emotion

import (
	"context"
	"math"
	"math/rand"
	"testing"
)

func TestTransitionBetrayalProbabilityLaw(t *testing.T) {
	engine := NewTransitionEngine(rand.New(rand.NewSource(42)))
	const trials = 10000

	bitter := 0
	for i := 0; i < trials; i++ {
		next := engine.Step(TransitionContext{
			Current: StateNeutral,
			Trigger: TriggerBetrayal,
			Trust:   0.5,
			Phase:   PhaseInProgress,
		}).To
		if next == StateBitter {
			bitter++
		}
	}

	ratio := float64(bitter) / trials
	if math.Abs(ratio-0.7) > 0.05 {
		t.Fatalf("expected ~70%% Bitter, got %.3f", ratio)
	}
}

func TestModifiedProbabilityAppliesTrustAndPhase(t *testing.T) {
	tp := transitionTable[StateNeutral][TriggerBetrayal]
	cases := []struct {
		trust float64
		phase Phase
		want  float64
	}{
		{0.5, PhaseInProgress, 0.7},
		{0.9, PhaseInProgress, 0.84},
		{0.1, PhaseInProgress, 0.56},
		{0.5, PhaseIntro, 0.56},
		{0.9, PhaseFailure, 1.0},
		{0.5, Phase("unknown"), 0.7},
	}
	for _, tc := range cases {
		got := ModifiedProbability(tp, tc.trust, tc.phase)
		if math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("trust %.1f phase %s: expected %.3f, got %.3f", tc.trust, tc.phase, tc.want, got)
		}
	}
}

func TestTransitionUnknownTriggerOnlyDrifts(t *testing.T) {
	engine := NewTransitionEngine(rand.New(rand.NewSource(1)))
	for i := 0; i < 1000; i++ {
		result := engine.Step(TransitionContext{Current: StateJoyful, Trigger: TriggerNeutralInteraction, Trust: 0})
		if result.Changed() {
			t.Fatalf("Joyful must be stable under drift, moved to %s", result.To)
		}
	}
}

func TestDriftMovesTowardCalmerStates(t *testing.T) {
	engine := NewTransitionEngine(rand.New(rand.NewSource(5)))
	const trials = 20000

	drifted := 0
	for i := 0; i < trials; i++ {
		result := engine.Step(TransitionContext{Current: StateFearful, Trigger: TriggerNeutralInteraction, Trust: 0})
		if result.Drifted {
			if result.To != StateNeutral {
				t.Fatalf("Fearful must drift to Neutral, got %s", result.To)
			}
			drifted++
		}
	}
	// gate 0.1 * path 0.4
	ratio := float64(drifted) / trials
	if math.Abs(ratio-0.04) > 0.01 {
		t.Fatalf("expected ~4%% drift, got %.4f", ratio)
	}
}

func TestDriftDisabledAtFullTrust(t *testing.T) {
	engine := NewTransitionEngine(rand.New(rand.NewSource(9)))
	for i := 0; i < 1000; i++ {
		if engine.Step(TransitionContext{Current: StateWrathful, Trigger: TriggerThreat, Trust: 1}).Drifted {
			t.Fatalf("drift must not fire at trust 1")
		}
	}
}

func TestTransitionUsesMemoryTrust(t *testing.T) {
	memory := NewEmotionalMemory()
	memory.UpdateRelationship("player", 0.8)
	engine := NewTransitionEngine(rand.New(rand.NewSource(2)))

	hits := 0
	for i := 0; i < 5000; i++ {
		if engine.Transition(StateNeutral, TriggerBetrayal, memory, "player", PhaseInProgress) == StateBitter {
			hits++
		}
	}
	ratio := float64(hits) / 5000
	if math.Abs(ratio-0.84) > 0.03 {
		t.Fatalf("expected ~84%% with high trust, got %.3f", ratio)
	}
}

func TestBetrayalSpiralFromHighTrust(t *testing.T) {
	engine := NewTransitionEngine(rand.New(rand.NewSource(13)))
	trigger := ClassifyTrigger("I betray you to the guards", 0.9, PhaseInProgress)
	if trigger != TriggerBetrayal {
		t.Fatalf("expected betrayal trigger, got %s", trigger)
	}

	worse := 0
	for i := 0; i < 1000; i++ {
		switch engine.Step(TransitionContext{Current: StateNeutral, Trigger: trigger, Trust: 0.9, Phase: PhaseInProgress}).To {
		case StateBitter, StateWrathful, StateBetrayed:
			worse++
		}
	}
	if worse < 780 {
		t.Fatalf("expected high probability of Bitter or worse, got %d/1000", worse)
	}
}

func TestRepeatedBetrayalLeadsToBetrayed(t *testing.T) {
	for _, state := range []State{StateBitter, StateWrathful, StateResigned} {
		edge, ok := Outgoing(state)[TriggerBetrayal]
		if !ok {
			t.Fatalf("%s: expected a betrayal edge", state)
		}
		if state != StateResigned && edge.Target != StateBetrayed {
			t.Fatalf("%s: expected betrayal to lead to Betrayed, got %s", state, edge.Target)
		}
	}
	if _, ok := Outgoing(StateBetrayed)[TriggerBetrayal]; ok {
		t.Fatalf("Betrayed must not move on another betrayal")
	}

	engine := NewTransitionEngine(rand.New(rand.NewSource(3)))
	for i := 0; i < 1000; i++ {
		if got := engine.Step(TransitionContext{Current: StateBetrayed, Trigger: TriggerBetrayal, Trust: 0.1}).To; got != StateBetrayed {
			t.Fatalf("expected Betrayed to hold, got %s", got)
		}
	}
}

func TestInvalidCurrentStateTreatedAsNeutral(t *testing.T) {
	engine := NewTransitionEngine(rand.New(rand.NewSource(1)))
	result := engine.Step(TransitionContext{Current: State("Confused"), Trigger: TriggerThreat})
	if result.From != StateNeutral {
		t.Fatalf("expected Neutral source, got %s", result.From)
	}
}

func TestClassifyTrigger(t *testing.T) {
	cases := []struct {
		action string
		trust  float64
		phase  Phase
		want   Trigger
	}{
		{"I BETRAY the village", 0.5, PhaseInProgress, TriggerBetrayal},
		{"Let me help you", 0.5, PhaseInProgress, TriggerEncouragement},
		{"I threaten the merchant", 0.5, PhaseInProgress, TriggerThreat},
		{"I apologize for earlier", 0.5, PhaseInProgress, TriggerGenuineApology},
		{"we succeed", 0.5, PhaseInProgress, TriggerSuccess},
		{"we succeed", 0.5, PhaseCompletion, TriggerMajorSuccess},
		{"we fail", 0.5, PhaseInProgress, TriggerFailure},
		{"talk", 0.85, PhaseInProgress, TriggerContinuedSupport},
		{"talk", 0.2, PhaseInProgress, TriggerContinuedBetrayal},
		{"talk", 0.5, PhaseInProgress, TriggerNeutralInteraction},
	}
	for _, tc := range cases {
		if got := ClassifyTrigger(tc.action, tc.trust, tc.phase); got != tc.want {
			t.Errorf("%q: expected %s, got %s", tc.action, tc.want, got)
		}
	}
}

func TestAnalyzerWithoutModelUsesKeywords(t *testing.T) {
	var analyzer *Analyzer
	if got := analyzer.Classify(context.Background(), "I betray you", 0.5, PhaseIntro); got != TriggerBetrayal {
		t.Fatalf("expected betrayal, got %s", got)
	}
}
