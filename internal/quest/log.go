package quest

import (
	"sort"
	"sync"
)

// Log holds adaptations and consequences per active quest.
type Log struct {
	mu           sync.RWMutex
	adaptations  map[string][]Adaptation
	consequences map[string][]Consequence
}

// NewLog returns an empty log.
func NewLog() *Log {
	return &Log{
		adaptations:  make(map[string][]Adaptation),
		consequences: make(map[string][]Consequence),
	}
}

// Record appends an adaptation and its consequences.
func (l *Log) Record(a Adaptation, consequences []Consequence) {
	l.mu.Lock()
	defer l.mu.Unlock()
	list := append(l.adaptations[a.QuestID], a)
	SortByPriority(list)
	l.adaptations[a.QuestID] = list
	l.consequences[a.QuestID] = append(l.consequences[a.QuestID], consequences...)
}

// Adaptations returns the quest's adaptations, highest priority first.
func (l *Log) Adaptations(questID string) []Adaptation {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Adaptation(nil), l.adaptations[questID]...)
}

// Consequences returns the quest's consequences in the order they were produced.
func (l *Log) Consequences(questID string) []Consequence {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Consequence(nil), l.consequences[questID]...)
}

// Resolve discards everything recorded for a finished quest.
func (l *Log) Resolve(questID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.adaptations, questID)
	delete(l.consequences, questID)
}

// SortByPriority orders adaptations by priority, then oldest first.
func SortByPriority(list []Adaptation) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Priority != list[j].Priority {
			return list[i].Priority > list[j].Priority
		}
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
}
