package emotion

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// ProfileRepo persists profiles. Implementations live in the storage layer.
type ProfileRepo interface {
	LoadProfile(ctx context.Context, npcID string) (*EmotionalProfile, error)
	SaveProfile(ctx context.Context, npcID string, profile EmotionalProfile) error
}

// npcSlot serializes writers for one NPC and publishes snapshots atomically.
type npcSlot struct {
	mu      sync.Mutex
	current atomic.Pointer[EmotionalProfile]
}

// Service owns every NPC's profile. Writes for one NPC are serialized; different NPCs
// update in parallel and readers never block on writers.
type Service struct {
	mu       sync.RWMutex
	slots    map[string]*npcSlot
	profiles ProfileRepo
	nowFunc  func() time.Time
}

// NewService returns a Service. profiles may be nil.
func NewService(profiles ProfileRepo) *Service {
	return &Service{
		slots:    make(map[string]*npcSlot),
		profiles: profiles,
		nowFunc:  time.Now,
	}
}

// SetClock overrides the time source, used by simulations and tests.
func (s *Service) SetClock(now func() time.Time) {
	s.nowFunc = now
}

func (s *Service) slot(ctx context.Context, npcID string) *npcSlot {
	s.mu.RLock()
	sl, ok := s.slots[npcID]
	s.mu.RUnlock()
	if ok {
		return sl
	}

	// Load without the lock; if another caller published first, its slot wins.
	initial := s.loadOrSpawn(ctx, npcID)
	fresh := &npcSlot{}
	fresh.current.Store(&initial)

	s.mu.Lock()
	defer s.mu.Unlock()
	if sl, ok := s.slots[npcID]; ok {
		return sl
	}
	s.slots[npcID] = fresh
	return fresh
}

func (s *Service) loadOrSpawn(ctx context.Context, npcID string) EmotionalProfile {
	if s.profiles != nil {
		stored, err := s.profiles.LoadProfile(ctx, npcID)
		if err != nil {
			slog.Warn("failed to load emotional profile, spawning neutral", "npc_id", npcID, "error", err.Error())
		} else if stored != nil {
			if stored.Memory == nil {
				stored.Memory = NewEmotionalMemory()
			}
			return *stored
		}
	}
	return NewProfile(s.nowFunc())
}

// Spawn registers an NPC and returns its current profile.
func (s *Service) Spawn(ctx context.Context, npcID string) EmotionalProfile {
	return *s.slot(ctx, npcID).current.Load()
}

// Profile returns the last committed profile for npcID.
func (s *Service) Profile(ctx context.Context, npcID string) EmotionalProfile {
	return *s.slot(ctx, npcID).current.Load()
}

// Apply runs ProcessEvent for npcID and publishes the result. Events for the same NPC
// are applied in call order.
func (s *Service) Apply(ctx context.Context, npcID string, event EmotionalEvent) (EmotionalProfile, error) {
	if npcID == "" {
		return EmotionalProfile{}, fmt.Errorf("npc id is required")
	}
	sl := s.slot(ctx, npcID)
	sl.mu.Lock()
	defer sl.mu.Unlock()

	prev := sl.current.Load()
	if event.Timestamp.IsZero() {
		event.Timestamp = s.nowFunc()
	}
	elapsed := event.Timestamp.Sub(prev.LastUpdated)
	next := prev.ProcessEvent(event, elapsed)
	sl.current.Store(&next)

	if s.profiles != nil {
		if err := s.profiles.SaveProfile(ctx, npcID, next); err != nil {
			slog.Warn("failed to persist emotional profile", "npc_id", npcID, "error", err.Error())
		}
	}
	return next, nil
}

// Snapshot returns the presentation view for npcID.
func (s *Service) Snapshot(ctx context.Context, npcID string) Snapshot {
	return s.Profile(ctx, npcID).Snapshot(s.nowFunc())
}

// NPCs returns the ids of all registered NPCs.
func (s *Service) NPCs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.slots))
	for id := range s.slots {
		ids = append(ids, id)
	}
	return ids
}
