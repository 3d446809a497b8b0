package quest

import (
	"math"
	"strings"

	"github.com/easeaico/npc-heart/internal/emotion"
)

// TrendWindow is how many of the latest significant memories the trend looks at.
const TrendWindow = 3

var trendKeywords = []struct {
	keyword string
	delta   float64
}{
	{"betrayed", -0.3},
	{"helped", 0.2},
	{"loyal", 0.25},
	{"disappointed", -0.15},
}

// MemoryDelta returns the trust delta a memory description implies.
func MemoryDelta(description string) float64 {
	lower := strings.ToLower(description)
	for _, kw := range trendKeywords {
		if strings.Contains(lower, kw.keyword) {
			return kw.delta
		}
	}
	return 0
}

// ClassifyTrend classifies the last TrendWindow events. A clear direction wins over
// volatility, so a run of betrayals reads as Declining rather than Volatile.
func ClassifyTrend(events []emotion.EmotionalEvent) Trend {
	if len(events) > TrendWindow {
		events = events[len(events)-TrendWindow:]
	}
	if len(events) == 0 {
		return TrendStable
	}

	var sum, abs float64
	for _, e := range events {
		d := MemoryDelta(e.Description)
		sum += d
		abs += math.Abs(d)
	}
	switch {
	case sum > 0.1:
		return TrendImproving
	case sum < -0.1:
		return TrendDeclining
	case abs/float64(len(events)) > 0.2:
		return TrendVolatile
	default:
		return TrendStable
	}
}

// MemoryTrend classifies the trend of mem.
func MemoryTrend(mem *emotion.EmotionalMemory) Trend {
	return ClassifyTrend(mem.LastSignificant(TrendWindow))
}
