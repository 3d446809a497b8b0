package emotion

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

type fakeProfileRepo struct {
	mu      sync.Mutex
	stored  map[string]EmotionalProfile
	saves   int
	loadErr error
}

func (r *fakeProfileRepo) LoadProfile(_ context.Context, npcID string) (*EmotionalProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loadErr != nil {
		return nil, r.loadErr
	}
	p, ok := r.stored[npcID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *fakeProfileRepo) SaveProfile(_ context.Context, npcID string, profile EmotionalProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stored == nil {
		r.stored = make(map[string]EmotionalProfile)
	}
	r.stored[npcID] = profile
	r.saves++
	return nil
}

func TestServiceSpawnStartsNeutral(t *testing.T) {
	service := NewService(nil)

	profile := service.Spawn(context.Background(), "npc-1")
	if profile.Primary != StateNeutral {
		t.Fatalf("expected Neutral, got %s", profile.Primary)
	}
	if profile.Memory == nil {
		t.Fatalf("expected memory to be initialized")
	}
}

func TestServiceApplyPublishesNewProfileAndPersists(t *testing.T) {
	repo := &fakeProfileRepo{}
	service := NewService(repo)
	ctx := context.Background()

	before := service.Spawn(ctx, "npc-1")
	event := NewEvent(EventDialogue, "player", "player helped", map[string]float64{"Hopeful": 0.7}, 0.5)

	after, err := service.Apply(ctx, "npc-1", event)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if after.Primary != StateHopeful {
		t.Fatalf("expected Hopeful, got %s", after.Primary)
	}
	if before.Primary != StateNeutral || len(before.Memory.RecentEvents()) != 0 {
		t.Fatalf("old snapshot was modified: %+v", before)
	}
	if got := service.Profile(ctx, "npc-1").Primary; got != StateHopeful {
		t.Fatalf("expected committed Hopeful, got %s", got)
	}
	if repo.saves != 1 || repo.stored["npc-1"].Primary != StateHopeful {
		t.Fatalf("expected profile to be persisted, got %d saves", repo.saves)
	}
}

func TestServiceLoadsStoredProfile(t *testing.T) {
	stored := NewProfile(time.Now())
	stored.Primary = StateLoyal
	repo := &fakeProfileRepo{stored: map[string]EmotionalProfile{"npc-1": stored}}
	service := NewService(repo)

	if got := service.Profile(context.Background(), "npc-1").Primary; got != StateLoyal {
		t.Fatalf("expected Loyal from storage, got %s", got)
	}
}

func TestServiceLoadErrorSpawnsNeutral(t *testing.T) {
	repo := &fakeProfileRepo{loadErr: errors.New("db down")}
	service := NewService(repo)

	if got := service.Profile(context.Background(), "npc-1").Primary; got != StateNeutral {
		t.Fatalf("expected Neutral fallback, got %s", got)
	}
}

func TestServiceApplyRequiresNPCID(t *testing.T) {
	service := NewService(nil)
	if _, err := service.Apply(context.Background(), "", EmotionalEvent{}); err == nil {
		t.Fatalf("expected error for empty npc id")
	}
}

func TestServiceConcurrentAppliesKeepInvariants(t *testing.T) {
	service := NewService(nil)
	ctx := context.Background()
	base := time.Now()
	service.SetClock(func() time.Time { return base })

	var wg sync.WaitGroup
	for n := 0; n < 4; n++ {
		npcID := fmt.Sprintf("npc-%d", n)
		for i := 0; i < 25; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				event := NewEvent(EventCombat, "player", "hit", map[string]float64{"Fearful": 0.6, "Bitter": 0.2}, 0.9)
				event.Timestamp = base.Add(time.Duration(i) * time.Second)
				event.RelationshipDeltas = map[string]float64{"player": -0.1}
				if _, err := service.Apply(ctx, npcID, event); err != nil {
					t.Errorf("apply failed: %v", err)
				}
			}(i)
		}
	}
	wg.Wait()

	if got := len(service.NPCs()); got != 4 {
		t.Fatalf("expected 4 npcs, got %d", got)
	}
	for _, id := range service.NPCs() {
		p := service.Profile(ctx, id)
		if got := len(p.Memory.RecentEvents()); got != RecentCapacity {
			t.Fatalf("expected %d recent events, got %d", RecentCapacity, got)
		}
		if got := len(p.Memory.SignificantEvents()); got != 25 {
			t.Fatalf("expected 25 significant events, got %d", got)
		}
		if rel := p.Memory.Relationship("player"); rel != -1 {
			t.Fatalf("expected relationship clamped to -1, got %f", rel)
		}
	}
}

type slowProfileRepo struct {
	fakeProfileRepo
	slowID  string
	entered chan struct{}
	release chan struct{}
}

func (r *slowProfileRepo) LoadProfile(ctx context.Context, npcID string) (*EmotionalProfile, error) {
	if npcID == r.slowID {
		close(r.entered)
		<-r.release
	}
	return r.fakeProfileRepo.LoadProfile(ctx, npcID)
}

func TestServiceSlowLoadDoesNotBlockOtherNPCs(t *testing.T) {
	repo := &slowProfileRepo{slowID: "slow", entered: make(chan struct{}), release: make(chan struct{})}
	service := NewService(repo)
	ctx := context.Background()

	loaded := make(chan EmotionalProfile)
	go func() {
		loaded <- service.Spawn(ctx, "slow")
	}()
	<-repo.entered

	done := make(chan struct{})
	go func() {
		if _, err := service.Apply(ctx, "other", EmotionalEvent{Impact: map[string]float64{"Joyful": 0.8}}); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("apply for another npc blocked on a slow load")
	}

	close(repo.release)
	if profile := <-loaded; profile.Primary != StateNeutral {
		t.Fatalf("expected Neutral, got %s", profile.Primary)
	}
	if got := service.Profile(ctx, "other").Primary; got != StateJoyful {
		t.Fatalf("expected Joyful, got %s", got)
	}
}
