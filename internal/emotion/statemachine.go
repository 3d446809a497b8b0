package emotion

import (
	"math/rand"
	"sync"
	"time"
)

const (
	modHighTrust = "high_trust"
	modLowTrust  = "low_trust"

	highTrustThreshold = 0.7
	lowTrustThreshold  = 0.3
	driftGateScale     = 0.1
)

// TransitionProbability is one outgoing edge of a state's transition table.
type TransitionProbability struct {
	Target           State
	Probability      float64
	ContextModifiers map[string]float64
}

func edge(target State, probability float64) TransitionProbability {
	return TransitionProbability{
		Target:      target,
		Probability: probability,
		ContextModifiers: map[string]float64{
			modHighTrust: 1.2,
			modLowTrust:  0.8,
		},
	}
}

// transitionTable maps current state and trigger to the candidate next state.
// If a trigger isn't listed for a state, only drift can move the NPC.
var transitionTable = map[State]map[Trigger]TransitionProbability{
	StateNeutral: {
		TriggerBetrayal:          edge(StateBitter, 0.7),
		TriggerEncouragement:     edge(StateHopeful, 0.6),
		TriggerThreat:            edge(StateFearful, 0.5),
		TriggerGenuineApology:    edge(StateHopeful, 0.3),
		TriggerSuccess:           edge(StateJoyful, 0.5),
		TriggerMajorSuccess:      edge(StateJoyful, 0.8),
		TriggerFailure:           edge(StateResigned, 0.4),
		TriggerContinuedSupport:  edge(StateLoyal, 0.3),
		TriggerContinuedBetrayal: edge(StateBitter, 0.5),
	},
	StateHopeful: {
		TriggerBetrayal:          edge(StateBetrayed, 0.8),
		TriggerEncouragement:     edge(StateJoyful, 0.5),
		TriggerThreat:            edge(StateFearful, 0.4),
		TriggerSuccess:           edge(StateJoyful, 0.6),
		TriggerMajorSuccess:      edge(StateJoyful, 0.9),
		TriggerFailure:           edge(StateBitter, 0.4),
		TriggerContinuedSupport:  edge(StateLoyal, 0.5),
		TriggerContinuedBetrayal: edge(StateBitter, 0.6),
	},
	StateBitter: {
		TriggerBetrayal:          edge(StateBetrayed, 0.6),
		TriggerGenuineApology:    edge(StateNeutral, 0.4),
		TriggerEncouragement:     edge(StateNeutral, 0.3),
		TriggerThreat:            edge(StateWrathful, 0.5),
		TriggerSuccess:           edge(StateNeutral, 0.3),
		TriggerFailure:           edge(StateResigned, 0.5),
		TriggerContinuedSupport:  edge(StateNeutral, 0.3),
		TriggerContinuedBetrayal: edge(StateWrathful, 0.5),
	},
	StateWrathful: {
		TriggerBetrayal:         edge(StateBetrayed, 0.6),
		TriggerGenuineApology:   edge(StateBitter, 0.5),
		TriggerEncouragement:    edge(StateBitter, 0.3),
		TriggerSuccess:          edge(StateBitter, 0.2),
		TriggerFailure:          edge(StateResigned, 0.3),
		TriggerContinuedSupport: edge(StateBitter, 0.3),
	},
	StateFearful: {
		TriggerBetrayal:         edge(StateBetrayed, 0.6),
		TriggerEncouragement:    edge(StateHopeful, 0.5),
		TriggerThreat:           edge(StateResigned, 0.4),
		TriggerSuccess:          edge(StateHopeful, 0.5),
		TriggerMajorSuccess:     edge(StateJoyful, 0.6),
		TriggerFailure:          edge(StateResigned, 0.5),
		TriggerContinuedSupport: edge(StateNeutral, 0.4),
	},
	StateResigned: {
		TriggerBetrayal:         edge(StateBitter, 0.6),
		TriggerEncouragement:    edge(StateHopeful, 0.4),
		TriggerThreat:           edge(StateFearful, 0.4),
		TriggerGenuineApology:   edge(StateNeutral, 0.3),
		TriggerSuccess:          edge(StateHopeful, 0.5),
		TriggerMajorSuccess:     edge(StateJoyful, 0.6),
		TriggerContinuedSupport: edge(StateNeutral, 0.3),
	},
	StateJoyful: {
		TriggerBetrayal:          edge(StateBetrayed, 0.9),
		TriggerThreat:            edge(StateFearful, 0.4),
		TriggerFailure:           edge(StateResigned, 0.3),
		TriggerContinuedSupport:  edge(StateLoyal, 0.6),
		TriggerContinuedBetrayal: edge(StateBitter, 0.5),
	},
	// Repeated betrayal settles here.
	StateBetrayed: {
		TriggerGenuineApology:    edge(StateBitter, 0.4),
		TriggerEncouragement:     edge(StateResigned, 0.2),
		TriggerThreat:            edge(StateWrathful, 0.5),
		TriggerSuccess:           edge(StateBitter, 0.2),
		TriggerContinuedSupport:  edge(StateResigned, 0.3),
		TriggerContinuedBetrayal: edge(StateWrathful, 0.6),
	},
	StateLoyal: {
		TriggerBetrayal:          edge(StateBetrayed, 0.9),
		TriggerEncouragement:     edge(StateJoyful, 0.4),
		TriggerThreat:            edge(StateFearful, 0.3),
		TriggerSuccess:           edge(StateJoyful, 0.5),
		TriggerMajorSuccess:      edge(StateJoyful, 0.7),
		TriggerFailure:           edge(StateHopeful, 0.3),
		TriggerContinuedBetrayal: edge(StateBitter, 0.4),
	},
}

// driftPath is the calmer state a mood may decay to when no transition fires.
type driftPath struct {
	target      State
	probability float64
}

var driftPaths = map[State]driftPath{
	StateBitter:   {StateResigned, 0.3},
	StateWrathful: {StateBitter, 0.2},
	StateFearful:  {StateNeutral, 0.4},
}

// TransitionContext carries everything the engine needs for one step.
type TransitionContext struct {
	Current State
	Trigger Trigger
	// Trust is the NPC's trust in the acting entity, in [0,1].
	Trust float64
	Phase Phase
}

// TransitionResult describes what the engine decided.
type TransitionResult struct {
	From        State   `json:"from"`
	To          State   `json:"to"`
	Trigger     Trigger `json:"trigger"`
	Probability float64 `json:"probability"`
	Fired       bool    `json:"fired"`
	Drifted     bool    `json:"drifted"`
}

// Changed reports whether the state moved.
func (r TransitionResult) Changed() bool {
	return r.From != r.To
}

// TransitionEngine is the probabilistic state machine. It is safe for concurrent use.
type TransitionEngine struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewTransitionEngine returns an engine drawing from rng. A nil rng is seeded from the clock.
func NewTransitionEngine(rng *rand.Rand) *TransitionEngine {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &TransitionEngine{rng: rng}
}

func (e *TransitionEngine) draw() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rng.Float64()
}

// Transition computes the next state for the given current state and trigger, using
// trust derived from memory for entityID.
func (e *TransitionEngine) Transition(current State, trigger Trigger, memory *EmotionalMemory, entityID string, phase Phase) State {
	return e.Step(TransitionContext{
		Current: current,
		Trigger: trigger,
		Trust:   memory.Trust(entityID),
		Phase:   phase,
	}).To
}

// Step runs one transition and reports the full decision.
func (e *TransitionEngine) Step(tc TransitionContext) TransitionResult {
	current := tc.Current
	if !current.Valid() {
		current = StateNeutral
	}
	result := TransitionResult{From: current, To: current, Trigger: tc.Trigger}

	if tp, ok := transitionTable[current][tc.Trigger]; ok {
		p := ModifiedProbability(tp, tc.Trust, tc.Phase)
		result.Probability = p
		if e.draw() < p {
			result.To = tp.Target
			result.Fired = true
			return result
		}
	}

	if drift, ok := driftPaths[current]; ok {
		gate := (1 - Clamp01(tc.Trust)) * driftGateScale
		if e.draw() < gate && e.draw() < drift.probability {
			result.To = drift.target
			result.Drifted = true
		}
	}
	return result
}

// ModifiedProbability applies trust and phase modifiers to an edge, clamped to [0,1].
func ModifiedProbability(tp TransitionProbability, trust float64, phase Phase) float64 {
	p := tp.Probability
	switch {
	case trust > highTrustThreshold:
		p *= modifier(tp, modHighTrust)
	case trust < lowTrustThreshold:
		p *= modifier(tp, modLowTrust)
	}
	p *= phase.Factor()
	return Clamp01(p)
}

func modifier(tp TransitionProbability, key string) float64 {
	if v, ok := tp.ContextModifiers[key]; ok {
		return v
	}
	return 1.0
}

// Outgoing returns the base transition edges leaving state, keyed by trigger.
func Outgoing(state State) map[Trigger]TransitionProbability {
	edges := transitionTable[state]
	out := make(map[Trigger]TransitionProbability, len(edges))
	for k, v := range edges {
		out[k] = v
	}
	return out
}
