package cache

import (
	"context"
	"log/slog"
	"sort"

	"github.com/easeaico/npc-heart/internal/emotion"
)

// DefaultPredictiveThreshold is the minimum transition probability worth warming.
const DefaultPredictiveThreshold = 0.2

// Warmer precomputes and caches dialogue for npcID as if it were in state.
type Warmer func(ctx context.Context, npcID string, state emotion.State) error

// Predictor schedules dialogue warm-up for the states an NPC is likely to move to next.
type Predictor struct {
	queue     *TaskQueue
	warm      Warmer
	threshold float64
}

// NewPredictor creates a predictor submitting to queue.
func NewPredictor(queue *TaskQueue, warm Warmer, threshold float64) *Predictor {
	if threshold <= 0 {
		threshold = DefaultPredictiveThreshold
	}
	return &Predictor{queue: queue, warm: warm, threshold: threshold}
}

// LikelyTargets returns the states reachable from state with a base probability above
// threshold, most likely first.
func LikelyTargets(state emotion.State, threshold float64) []emotion.State {
	best := make(map[emotion.State]float64)
	for _, tp := range emotion.Outgoing(state) {
		if tp.Target == state || tp.Probability <= threshold {
			continue
		}
		if tp.Probability > best[tp.Target] {
			best[tp.Target] = tp.Probability
		}
	}

	targets := make([]emotion.State, 0, len(best))
	for s := range best {
		targets = append(targets, s)
	}
	sort.Slice(targets, func(i, j int) bool {
		if best[targets[i]] != best[targets[j]] {
			return best[targets[i]] > best[targets[j]]
		}
		return targets[i] < targets[j]
	})
	return targets
}

// Precompute queues a low-priority warm-up for each likely next state and returns how many
// were accepted. Rejected or failing warm-ups are dropped.
func (p *Predictor) Precompute(npcID string, state emotion.State) int {
	if p == nil || p.queue == nil || p.warm == nil {
		return 0
	}
	queued := 0
	for _, target := range LikelyTargets(state, p.threshold) {
		target := target
		err := p.queue.Submit(Task{
			Kind:     TaskDialogueWarmup,
			NPCID:    npcID,
			Priority: PriorityLow,
			Run: func(ctx context.Context) error {
				if err := p.warm(ctx, npcID, target); err != nil {
					slog.Debug("dialogue warm-up failed", "npc_id", npcID, "state", target, "error", err.Error())
				}
				return nil
			},
		})
		if err == nil {
			queued++
		}
	}
	return queued
}
