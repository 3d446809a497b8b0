package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/easeaico/npc-heart/internal/cache"
	"github.com/easeaico/npc-heart/internal/dialogue"
	"github.com/easeaico/npc-heart/internal/emotion"
	"github.com/easeaico/npc-heart/internal/quest"
	"github.com/easeaico/npc-heart/internal/types"
)

// Outcome is everything one interaction produced.
type Outcome struct {
	Trigger     emotion.Trigger          `json:"trigger"`
	Transition  emotion.TransitionResult `json:"transition"`
	Mood        emotion.Snapshot         `json:"mood"`
	Reply       dialogue.Response        `json:"reply"`
	Adaptation  *quest.Adaptation        `json:"adaptation,omitempty"`
	Predictions []quest.Prediction       `json:"predictions,omitempty"`
	Warmed      int                      `json:"warmed"`
}

// Session is the single owner of one NPC's conversation with a player. Interactions are
// applied one at a time in call order.
type Session struct {
	engine   *Engine
	npc      types.NPC
	playerID string
	quest    atomic.Pointer[types.Quest]

	mu      sync.Mutex
	closed  bool
	history []types.ConversationTurn

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func newSession(e *Engine, npc types.NPC, playerID string, q *types.Quest) *Session {
	ctx, cancel := context.WithCancel(e.ctx)
	s := &Session{
		engine:   e,
		npc:      npc,
		playerID: playerID,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	s.quest.Store(q)
	return s
}

func (s *Session) start() {
	if s.engine.consolidator == nil || s.engine.interval <= 0 {
		close(s.done)
		return
	}
	go s.consolidationLoop()
}

func (s *Session) loadHistory(ctx context.Context) {
	if s.engine.history == nil {
		return
	}
	turns, err := s.engine.history.RecentTurns(ctx, s.npc.ID, s.playerID, s.engine.historyLimit)
	if err != nil {
		slog.Warn("failed to load conversation history", "npc_id", s.npc.ID, "error", err.Error())
		return
	}
	s.mu.Lock()
	s.history = turns
	s.mu.Unlock()
}

// NPC returns the session's NPC.
func (s *Session) NPC() types.NPC {
	return s.npc
}

// Quest returns the active quest, or nil.
func (s *Session) Quest() *types.Quest {
	return s.quest.Load()
}

// SetQuest replaces the active quest.
func (s *Session) SetQuest(q *types.Quest) {
	s.quest.Store(q)
}

// ResolveQuest discards the active quest's adaptations and clears it.
func (s *Session) ResolveQuest(ctx context.Context) {
	q := s.quest.Swap(nil)
	if q == nil {
		return
	}
	s.engine.quests.Resolve(ctx, q.ID)
}

// History returns a copy of the conversation so far.
func (s *Session) History() []types.ConversationTurn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.ConversationTurn(nil), s.history...)
}

// Snapshot returns the NPC's current presentation view.
func (s *Session) Snapshot(ctx context.Context) emotion.Snapshot {
	return s.engine.Snapshot(ctx, s.npc.ID)
}

// Interact runs one player action through the full pipeline: classify, transition,
// commit, then dialogue and quest adaptation in parallel.
func (s *Session) Interact(ctx context.Context, action types.PlayerAction) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Outcome{}, ErrSessionClosed
	}
	e := s.engine
	npcID := s.npc.ID
	playerID := action.PlayerID
	if playerID == "" {
		playerID = s.playerID
	}
	text := action.Content
	var choice types.PlayerChoice
	if action.Choice != nil {
		choice = *action.Choice
		if text == "" {
			text = choice.Text
		}
	}
	q := s.quest.Load()
	phase := emotion.PhaseInProgress
	if q != nil && q.Phase != "" {
		phase = q.Phase
	}

	current := e.emotions.Profile(ctx, npcID)
	trust := current.Memory.Trust(playerID)
	trigger := e.classifier.Classify(ctx, text, trust, phase)
	result := e.transitions.Step(emotion.TransitionContext{
		Current: current.Primary,
		Trigger: trigger,
		Trust:   trust,
		Phase:   phase,
	})

	committed := current
	if event, ok := transitionEvent(result, playerID, text, action.Intensity); ok {
		next, err := e.emotions.Apply(ctx, npcID, event)
		if err != nil {
			return Outcome{}, fmt.Errorf("failed to apply transition: %w", err)
		}
		committed = next
	}
	e.states.Put(npcID, committed.Snapshot(time.Now()))

	req := dialogue.GenerateRequest{
		NPC:      s.npc,
		PlayerID: playerID,
		Choice:   choice,
		Quest:    q,
		History:  append([]types.ConversationTurn(nil), s.history...),
	}
	if action.Choice == nil {
		req.Action = &action
	}

	var (
		reply      dialogue.Response
		adaptation *quest.Adaptation
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		resp, err := e.dialogue.Generate(gctx, req)
		if err != nil {
			return fmt.Errorf("failed to generate dialogue: %w", err)
		}
		reply = resp
		return nil
	})
	g.Go(func() error {
		adaptation = e.quests.Adapt(gctx, q, npcID, quest.TransitionFrom(result, committed.Intensity), choice, committed.Memory)
		return nil
	})
	if err := g.Wait(); err != nil {
		return Outcome{}, err
	}
	e.states.Put(npcID, reply.Mood)

	out := Outcome{
		Trigger:     trigger,
		Transition:  result,
		Mood:        reply.Mood,
		Reply:       reply,
		Adaptation:  adaptation,
		Predictions: e.predictions(q, npcID, committed),
	}
	if result.Changed() {
		out.Warmed = e.predictor.Precompute(npcID, result.To)
	}

	now := time.Now()
	s.record(ctx, playerID, types.ConversationTurn{Speaker: playerID, Text: text, Timestamp: now})
	s.record(ctx, playerID, types.ConversationTurn{Speaker: npcID, Text: reply.Text, Timestamp: now})
	return out, nil
}

// Record commits an event produced outside dialogue, such as combat, in order with
// the session's interactions.
func (s *Session) Record(ctx context.Context, event emotion.EmotionalEvent) (emotion.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return emotion.Snapshot{}, ErrSessionClosed
	}
	next, err := s.engine.emotions.Apply(ctx, s.npc.ID, event)
	if err != nil {
		return emotion.Snapshot{}, err
	}
	snap := next.Snapshot(time.Now())
	s.engine.states.Put(s.npc.ID, snap)
	return snap, nil
}

// record appends a turn and keeps the in-memory history bounded. Caller holds s.mu.
func (s *Session) record(ctx context.Context, playerID string, turn types.ConversationTurn) {
	if turn.Text == "" {
		return
	}
	s.history = append(s.history, turn)
	if limit := s.engine.historyLimit; len(s.history) > limit {
		s.history = s.history[len(s.history)-limit:]
	}
	if s.engine.history != nil {
		if err := s.engine.history.AddTurn(ctx, s.npc.ID, playerID, turn); err != nil {
			slog.Warn("failed to persist conversation turn", "npc_id", s.npc.ID, "error", err.Error())
		}
	}
}

// Close stops the session's background work. It is safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	<-s.done
	s.engine.remove(s)
	slog.Info("npc session closed", "npc_id", s.npc.ID)
}

func (s *Session) consolidationLoop() {
	defer close(s.done)
	ticker := time.NewTicker(s.engine.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.scheduleConsolidation()
		case <-s.ctx.Done():
			return
		}
	}
}

// scheduleConsolidation archives the NPC's significant memories on the task queue, or
// inline when there is no queue.
func (s *Session) scheduleConsolidation() {
	e := s.engine
	if e.queue == nil {
		s.consolidate(s.ctx)
		return
	}
	err := e.queue.Submit(cache.Task{
		Kind:     cache.TaskConsolidation,
		NPCID:    s.npc.ID,
		Priority: cache.PriorityNormal,
		Run: func(qctx context.Context) error {
			ctx, stop := context.WithCancel(qctx)
			defer stop()
			unregister := context.AfterFunc(s.ctx, stop)
			defer unregister()
			return s.consolidate(ctx)
		},
	})
	if err != nil {
		slog.Warn("memory consolidation skipped", "npc_id", s.npc.ID, "error", err.Error())
	}
}

func (s *Session) consolidate(ctx context.Context) error {
	if ctx.Err() != nil {
		return nil
	}
	profile := s.engine.emotions.Profile(ctx, s.npc.ID)
	n, err := s.engine.consolidator.Consolidate(ctx, s.npc.ID, profile.Memory)
	if err != nil {
		slog.Warn("failed to consolidate memories", "npc_id", s.npc.ID, "error", err.Error())
		return err
	}
	if n > 0 {
		slog.Debug("memories consolidated", "npc_id", s.npc.ID, "archived", n)
	}
	return nil
}
