package emotion

import (
	"encoding/json"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
)

const (
	RecentCapacity      = 10
	SignificantCapacity = 50
)

// EventType tags which subsystem produced an EmotionalEvent.
type EventType string

const (
	EventDialogue   EventType = "dialogue"
	EventCombat     EventType = "combat"
	EventQuest      EventType = "quest"
	EventTransition EventType = "transition"
)

// EmotionalEvent is an immutable record of an interaction that should influence emotion.
type EmotionalEvent struct {
	ID          string    `json:"id"`
	Type        EventType `json:"type"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
	// Impact is keyed by state name; unknown names are ignored on ingestion.
	Impact      map[string]float64 `json:"emotional_impact"`
	Persistence float64            `json:"persistence_level"`
	Source      string             `json:"source"`
	// RelationshipDeltas are applied to the owning memory when the event is processed.
	RelationshipDeltas map[string]float64 `json:"relationship_deltas,omitempty"`
}

// NewEvent returns an event with a fresh id and the current timestamp.
func NewEvent(eventType EventType, source, description string, impact map[string]float64, persistence float64) EmotionalEvent {
	return EmotionalEvent{
		ID:          uuid.NewString(),
		Type:        eventType,
		Description: description,
		Timestamp:   time.Now(),
		Impact:      impact,
		Persistence: Clamp01(persistence),
		Source:      source,
	}
}

// MaxImpact returns the largest impact value carried by the event.
func (e EmotionalEvent) MaxImpact() float64 {
	peak := 0.0
	for _, v := range e.Impact {
		if v > peak {
			peak = v
		}
	}
	return peak
}

// Significant reports whether the event belongs in long-term memory.
func (e EmotionalEvent) Significant() bool {
	return e.MaxImpact() > 0.5 || e.Persistence > 0.8
}

// sanitized returns a copy of e without non-finite impacts, deltas or persistence, so a
// stored event always encodes.
func (e EmotionalEvent) sanitized() EmotionalEvent {
	e.Impact = finiteValues(e.Impact)
	e.RelationshipDeltas = finiteValues(e.RelationshipDeltas)
	if !finite(e.Persistence) {
		e.Persistence = 0
	}
	return e
}

func finiteValues(in map[string]float64) map[string]float64 {
	if in == nil {
		return nil
	}
	out := make(map[string]float64, len(in))
	for k, v := range in {
		if finite(v) {
			out[k] = v
		}
	}
	return out
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// EmotionalMemory is the bounded event history owned by a single NPC.
// Methods that mutate it are only called on a private clone inside ProcessEvent.
type EmotionalMemory struct {
	recent        []EmotionalEvent
	significant   []EmotionalEvent
	relationships map[string]float64
}

// NewEmotionalMemory returns an empty memory.
func NewEmotionalMemory() *EmotionalMemory {
	return &EmotionalMemory{relationships: make(map[string]float64)}
}

// AddEvent ingests an event into the recent ring and, when significant, long-term memory.
func (m *EmotionalMemory) AddEvent(event EmotionalEvent) {
	m.recent = insertBounded(m.recent, event, RecentCapacity)
	if event.Significant() {
		m.significant = insertBounded(m.significant, event, SignificantCapacity)
	}
}

// insertBounded keeps events ordered by timestamp and drops the oldest past capacity.
func insertBounded(events []EmotionalEvent, event EmotionalEvent, capacity int) []EmotionalEvent {
	idx := sort.Search(len(events), func(i int) bool {
		return events[i].Timestamp.After(event.Timestamp)
	})
	events = append(events, EmotionalEvent{})
	copy(events[idx+1:], events[idx:])
	events[idx] = event
	if len(events) > capacity {
		events = append(events[:0:0], events[len(events)-capacity:]...)
	}
	return events
}

// UpdateRelationship shifts the stored relationship with entityID, clamped to [-1,1].
// Non-finite deltas are ignored.
func (m *EmotionalMemory) UpdateRelationship(entityID string, delta float64) float64 {
	if m.relationships == nil {
		m.relationships = make(map[string]float64)
	}
	if !finite(delta) {
		return m.relationships[entityID]
	}
	next := ClampUnit(m.relationships[entityID] + delta)
	m.relationships[entityID] = next
	return next
}

// Relationship returns the relationship value with entityID, 0 when unknown.
func (m *EmotionalMemory) Relationship(entityID string) float64 {
	if m == nil {
		return 0
	}
	return m.relationships[entityID]
}

// Trust maps the relationship with entityID from [-1,1] onto a [0,1] trust level.
func (m *EmotionalMemory) Trust(entityID string) float64 {
	return Clamp01((m.Relationship(entityID) + 1) / 2)
}

// Relationships returns a copy of all relationship values.
func (m *EmotionalMemory) Relationships() map[string]float64 {
	if m == nil {
		return map[string]float64{}
	}
	out := make(map[string]float64, len(m.relationships))
	for k, v := range m.relationships {
		out[k] = v
	}
	return out
}

// RecentEvents returns a copy of the recent events, oldest first.
func (m *EmotionalMemory) RecentEvents() []EmotionalEvent {
	if m == nil {
		return nil
	}
	return append([]EmotionalEvent(nil), m.recent...)
}

// SignificantEvents returns a copy of long-term memory, oldest first.
func (m *EmotionalMemory) SignificantEvents() []EmotionalEvent {
	if m == nil {
		return nil
	}
	return append([]EmotionalEvent(nil), m.significant...)
}

// LastSignificant returns up to n most recent significant events, oldest first.
func (m *EmotionalMemory) LastSignificant(n int) []EmotionalEvent {
	if m == nil || n <= 0 {
		return nil
	}
	events := m.significant
	if len(events) > n {
		events = events[len(events)-n:]
	}
	return append([]EmotionalEvent(nil), events...)
}

// Clone returns a deep copy so the original can keep serving readers.
func (m *EmotionalMemory) Clone() *EmotionalMemory {
	if m == nil {
		return NewEmotionalMemory()
	}
	return &EmotionalMemory{
		recent:        append([]EmotionalEvent(nil), m.recent...),
		significant:   append([]EmotionalEvent(nil), m.significant...),
		relationships: m.Relationships(),
	}
}

type memoryRecord struct {
	RecentEvents      []EmotionalEvent   `json:"recent_events"`
	SignificantEvents []EmotionalEvent   `json:"significant_events"`
	Relationships     map[string]float64 `json:"relationship_memories"`
}

// MarshalJSON encodes the memory as a plain value record.
func (m *EmotionalMemory) MarshalJSON() ([]byte, error) {
	return json.Marshal(memoryRecord{
		RecentEvents:      m.recent,
		SignificantEvents: m.significant,
		Relationships:     m.relationships,
	})
}

// UnmarshalJSON decodes a record and re-applies the capacity and range invariants.
func (m *EmotionalMemory) UnmarshalJSON(data []byte) error {
	var rec memoryRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	restored := NewEmotionalMemory()
	for _, e := range rec.RecentEvents {
		restored.recent = insertBounded(restored.recent, e, RecentCapacity)
	}
	for _, e := range rec.SignificantEvents {
		restored.significant = insertBounded(restored.significant, e, SignificantCapacity)
	}
	for k, v := range rec.Relationships {
		restored.relationships[k] = ClampUnit(v)
	}
	*m = *restored
	return nil
}
