package engine

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/easeaico/npc-heart/internal/cache"
	"github.com/easeaico/npc-heart/internal/dialogue"
	"github.com/easeaico/npc-heart/internal/emotion"
	"github.com/easeaico/npc-heart/internal/quest"
	"github.com/easeaico/npc-heart/internal/types"
)

type fakeConsolidator struct {
	calls atomic.Int32
}

func (f *fakeConsolidator) Consolidate(_ context.Context, _ string, _ *emotion.EmotionalMemory) (int, error) {
	f.calls.Add(1)
	return 0, nil
}

type fakeHistory struct {
	mu    sync.Mutex
	turns []types.ConversationTurn
}

func (f *fakeHistory) AddTurn(_ context.Context, _, _ string, turn types.ConversationTurn) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.turns = append(f.turns, turn)
	return nil
}

func (f *fakeHistory) RecentTurns(_ context.Context, _, _ string, _ int) ([]types.ConversationTurn, error) {
	return []types.ConversationTurn{{Speaker: "p1", Text: "We met before."}}, nil
}

func (f *fakeHistory) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.turns)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met in time")
}

var miller = types.NPC{ID: "n1", Name: "Aldric", Personality: "proud miller"}

func millerQuest() *types.Quest {
	return &types.Quest{
		ID:       "q1",
		Type:     types.QuestDiplomacy,
		GiverNPC: "n1",
		Phase:    emotion.PhaseInProgress,
		Rewards:  []types.Reward{{Kind: "gold", Amount: 20}},
		Branches: []string{"miller_flees"},
	}
}

func newTestEngine(t *testing.T, opts Options) (*Engine, *emotion.Service) {
	t.Helper()
	svc := emotion.NewService(nil)
	opts.Emotions = svc
	if opts.Dialogue == nil {
		opts.Dialogue = dialogue.NewEngine(svc, dialogue.Options{})
	}
	if opts.Transitions == nil {
		opts.Transitions = emotion.NewTransitionEngine(rand.New(rand.NewSource(17)))
	}
	e, err := New(opts)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	t.Cleanup(e.Close)
	return e, svc
}

func TestBetrayalSpiralDrivesTrendAndQuest(t *testing.T) {
	quests := quest.NewEngine(nil)
	e, svc := newTestEngine(t, Options{Quests: quests})
	ctx := context.Background()

	s, err := e.Open(ctx, miller, "p1", millerQuest())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, err := s.Record(ctx, emotion.EmotionalEvent{
		ID:                 "trust",
		Type:               emotion.EventQuest,
		RelationshipDeltas: map[string]float64{"p1": 0.8},
	}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	changed := false
	for i := 0; i < 3; i++ {
		out, err := s.Interact(ctx, types.PlayerAction{PlayerID: "p1", Content: "I betray you to the guards", Intensity: 0.8})
		if err != nil {
			t.Fatalf("interaction %d: %v", i, err)
		}
		if out.Trigger != emotion.TriggerBetrayal {
			t.Fatalf("expected betrayal trigger, got %s", out.Trigger)
		}
		if out.Reply.Text == "" {
			t.Fatalf("expected a reply")
		}
		changed = changed || out.Transition.Changed()
	}

	profile := svc.Profile(ctx, "n1")
	if got := quest.MemoryTrend(profile.Memory); got != quest.TrendDeclining {
		t.Fatalf("expected Declining trend, got %s", got)
	}
	if profile.Memory.Relationship("p1") >= 0.8 {
		t.Fatalf("expected relationship to fall, got %f", profile.Memory.Relationship("p1"))
	}
	if changed && len(quests.Log().Adaptations("q1")) == 0 {
		t.Fatalf("expected the quest to adapt once the mood changed")
	}
	if len(s.History()) != 6 {
		t.Fatalf("expected six turns, got %d", len(s.History()))
	}
}

func TestRepeatedBetrayalSettlesInRelationshipConsequence(t *testing.T) {
	ctx := context.Background()
	for seed := int64(1); seed <= 10; seed++ {
		quests := quest.NewEngine(nil)
		e, svc := newTestEngine(t, Options{
			Quests:      quests,
			Transitions: emotion.NewTransitionEngine(rand.New(rand.NewSource(seed))),
		})

		s, err := e.Open(ctx, miller, "p1", millerQuest())
		if err != nil {
			t.Fatalf("seed %d: expected no error, got %v", seed, err)
		}
		if _, err := s.Record(ctx, emotion.EmotionalEvent{
			ID:                 "trust",
			Type:               emotion.EventQuest,
			RelationshipDeltas: map[string]float64{"p1": 0.8},
		}); err != nil {
			t.Fatalf("seed %d: expected no error, got %v", seed, err)
		}

		var last Outcome
		for i := 0; i < 20; i++ {
			last, err = s.Interact(ctx, types.PlayerAction{PlayerID: "p1", Content: "I betray you to the guards", Intensity: 0.8})
			if err != nil {
				t.Fatalf("seed %d interaction %d: %v", seed, i, err)
			}
		}

		profile := svc.Profile(ctx, "n1")
		if profile.Primary != emotion.StateBetrayed {
			t.Fatalf("seed %d: expected Betrayed, got %s", seed, profile.Primary)
		}
		if got := quest.MemoryTrend(profile.Memory); got != quest.TrendDeclining {
			t.Fatalf("seed %d: expected Declining trend, got %s", seed, got)
		}
		if last.Adaptation == nil || last.Adaptation.Type != quest.RelationshipConsequence {
			t.Fatalf("seed %d: expected relationship consequence, got %+v", seed, last.Adaptation)
		}
		s.Close()
	}
}

func TestInteractAfterCloseFails(t *testing.T) {
	e, _ := newTestEngine(t, Options{})
	ctx := context.Background()

	s, err := e.Open(ctx, miller, "p1", nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, err := e.Open(ctx, miller, "p2", nil); !errors.Is(err, ErrSessionOpen) {
		t.Fatalf("expected ErrSessionOpen, got %v", err)
	}

	s.Close()
	s.Close()
	if _, err := s.Interact(ctx, types.PlayerAction{Content: "hello"}); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed, got %v", err)
	}
	if _, err := s.Record(ctx, emotion.EmotionalEvent{}); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed from Record, got %v", err)
	}
	if _, err := e.Open(ctx, miller, "p1", nil); err != nil {
		t.Fatalf("expected reopen after close, got %v", err)
	}
}

func TestConsolidationLoopStopsWithSession(t *testing.T) {
	consolidator := &fakeConsolidator{}
	e, _ := newTestEngine(t, Options{Consolidator: consolidator, ConsolidationInterval: 5 * time.Millisecond})

	s, err := e.Open(context.Background(), miller, "p1", nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	waitFor(t, func() bool { return consolidator.calls.Load() >= 2 })

	s.Close()
	stopped := consolidator.calls.Load()
	time.Sleep(30 * time.Millisecond)
	if consolidator.calls.Load() != stopped {
		t.Fatalf("consolidation kept running after close")
	}
}

func TestConsolidationRunsOnQueue(t *testing.T) {
	consolidator := &fakeConsolidator{}
	queue := cache.NewTaskQueue(8)
	e, _ := newTestEngine(t, Options{Queue: queue, Consolidator: consolidator, ConsolidationInterval: 5 * time.Millisecond})

	if _, err := e.Open(context.Background(), miller, "p1", nil); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	waitFor(t, func() bool { return consolidator.calls.Load() >= 1 })
	waitFor(t, func() bool { return queue.Stats().Completed >= 1 })
}

func TestStateChangeWarmsDialogue(t *testing.T) {
	svc := emotion.NewService(nil)
	dialogueCache := cache.NewDialogueCache(100, 10, nil)
	queue := cache.NewTaskQueue(32)
	e, err := New(Options{
		Emotions:    svc,
		Transitions: emotion.NewTransitionEngine(rand.New(rand.NewSource(3))),
		Dialogue:    dialogue.NewEngine(svc, dialogue.Options{Cache: dialogueCache}),
		Queue:       queue,
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	defer e.Close()

	s, err := e.Open(context.Background(), miller, "p1", millerQuest())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	changed := false
	for i := 0; i < 30 && !changed; i++ {
		out, err := s.Interact(context.Background(), types.PlayerAction{PlayerID: "p1", Content: "let me help you"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if out.Transition.Changed() {
			changed = true
			if out.Warmed == 0 {
				t.Fatalf("expected warm-up tasks after %s -> %s", out.Transition.From, out.Transition.To)
			}
		}
	}
	if !changed {
		t.Fatalf("expected a state change within 30 interactions")
	}
	waitFor(t, func() bool { return dialogueCache.Stats().Size > 0 })
}

func TestSnapshotUsesStateCache(t *testing.T) {
	states := cache.NewStateCache(10, time.Minute)
	e, _ := newTestEngine(t, Options{States: states})

	s, err := e.Open(context.Background(), miller, "p1", nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	snap, err := s.Record(context.Background(), emotion.EmotionalEvent{
		Type:   emotion.EventCombat,
		Impact: map[string]float64{"Fearful": 0.9},
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if snap.State != emotion.StateFearful {
		t.Fatalf("expected Fearful after combat, got %s", snap.State)
	}
	if cached, ok := states.Get("n1"); !ok || cached.State != emotion.StateFearful {
		t.Fatalf("expected cached Fearful snapshot, got %+v", cached)
	}
	if got := s.Snapshot(context.Background()); got.State != emotion.StateFearful {
		t.Fatalf("expected Fearful, got %s", got.State)
	}
}

func TestHistoryIsLoadedAndPersisted(t *testing.T) {
	history := &fakeHistory{}
	e, _ := newTestEngine(t, Options{History: history})

	s, err := e.Open(context.Background(), miller, "p1", nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(s.History()) != 1 {
		t.Fatalf("expected stored history to be loaded")
	}
	if _, err := s.Interact(context.Background(), types.PlayerAction{
		PlayerID: "p1",
		Choice:   &types.PlayerChoice{ID: "c1", Text: "How is the mill?", Category: types.ChoiceFriendly},
	}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if history.count() != 2 {
		t.Fatalf("expected player and npc turns to be persisted, got %d", history.count())
	}
}

func TestResolveQuestClearsLog(t *testing.T) {
	quests := quest.NewEngine(nil)
	e, _ := newTestEngine(t, Options{Quests: quests})
	s, err := e.Open(context.Background(), miller, "p1", millerQuest())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	quests.Log().Record(quest.Adaptation{ID: "a1", QuestID: "q1", Priority: 60}, nil)

	s.ResolveQuest(context.Background())
	if s.Quest() != nil || len(quests.Log().Adaptations("q1")) != 0 {
		t.Fatalf("expected quest to be resolved")
	}
}
