package quest

import (
	"sort"

	"github.com/easeaico/npc-heart/internal/emotion"
	"github.com/easeaico/npc-heart/internal/memory"
	"github.com/easeaico/npc-heart/internal/types"
)

// PredictionContext is the read-only NPC state predictions are projected from.
type PredictionContext struct {
	Current emotion.State
	Memory  *emotion.EmotionalMemory
}

// trendTriggers lists the triggers a trend makes likely next.
var trendTriggers = map[Trend][]emotion.Trigger{
	TrendDeclining: {emotion.TriggerBetrayal, emotion.TriggerContinuedBetrayal, emotion.TriggerFailure},
	TrendImproving: {emotion.TriggerEncouragement, emotion.TriggerContinuedSupport, emotion.TriggerSuccess},
	TrendVolatile:  {emotion.TriggerThreat, emotion.TriggerBetrayal, emotion.TriggerGenuineApology},
}

// PredictFutureAdaptations projects which adaptations the NPC's current trend is heading
// toward, most likely first. It never mutates anything.
func PredictFutureAdaptations(q *types.Quest, npcID string, pc PredictionContext) []Prediction {
	if !consistent(q, npcID) {
		return nil
	}
	current := pc.Current
	if !current.Valid() {
		current = emotion.StateNeutral
	}
	trend := MemoryTrend(pc.Memory)
	significance := memory.SignificanceScore(pc.Memory.SignificantEvents())
	edges := emotion.Outgoing(current)

	var out []Prediction
	for _, trigger := range trendTriggers[trend] {
		edge, ok := edges[trigger]
		if !ok {
			continue
		}
		out = append(out, Prediction{
			QuestID:    q.ID,
			NPCID:      npcID,
			Trigger:    trigger,
			State:      edge.Target,
			Type:       SelectType(edge.Target, trend),
			Likelihood: edge.Probability,
			Priority:   CalculatePriority(edge.Target.Info().BaseIntensity, edge.Target != current, trend, significance),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Likelihood > out[j].Likelihood
	})
	return out
}
