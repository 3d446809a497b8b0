// Package engine runs NPC conversation sessions: it turns player actions into emotional
// transitions, dialogue and quest adaptations, and keeps background work scoped to the
// session that started it.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/easeaico/npc-heart/internal/cache"
	"github.com/easeaico/npc-heart/internal/dialogue"
	"github.com/easeaico/npc-heart/internal/emotion"
	"github.com/easeaico/npc-heart/internal/quest"
	"github.com/easeaico/npc-heart/internal/types"
)

var (
	// ErrSessionClosed is returned by a session after Close.
	ErrSessionClosed = errors.New("session closed")
	// ErrSessionOpen is returned when an NPC already has an open session.
	ErrSessionOpen = errors.New("npc already has an open session")
)

const defaultSweepInterval = time.Minute

// Consolidator moves significant memories to long-term storage. memory.Archiver implements it.
type Consolidator interface {
	Consolidate(ctx context.Context, npcID string, mem *emotion.EmotionalMemory) (int, error)
}

// HistoryStore persists dialogue turns. storage.ConversationRepo implements it.
type HistoryStore interface {
	AddTurn(ctx context.Context, npcID, playerID string, turn types.ConversationTurn) error
	RecentTurns(ctx context.Context, npcID, playerID string, limit int) ([]types.ConversationTurn, error)
}

// Options configures an Engine. Emotions and Dialogue are required.
type Options struct {
	Emotions    *emotion.Service
	Transitions *emotion.TransitionEngine
	Classifier  emotion.Classifier
	Dialogue    *dialogue.Engine
	Quests      *quest.Engine
	States      *cache.StateCache
	General     *cache.GeneralCache
	Queue       *cache.TaskQueue

	PredictiveThreshold   float64
	Consolidator          Consolidator
	ConsolidationInterval time.Duration
	History               HistoryStore
	HistoryLimit          int
}

// Engine owns the shared collaborators and the set of open sessions.
type Engine struct {
	emotions     *emotion.Service
	transitions  *emotion.TransitionEngine
	classifier   emotion.Classifier
	dialogue     *dialogue.Engine
	quests       *quest.Engine
	states       *cache.StateCache
	general      *cache.GeneralCache
	queue        *cache.TaskQueue
	predictor    *cache.Predictor
	consolidator Consolidator
	interval     time.Duration
	history      HistoryStore
	historyLimit int

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	sessions map[string]*Session
}

// New builds an Engine and starts its background queue and cache sweeper.
func New(opts Options) (*Engine, error) {
	if opts.Emotions == nil {
		return nil, fmt.Errorf("emotion service is required")
	}
	if opts.Dialogue == nil {
		return nil, fmt.Errorf("dialogue engine is required")
	}
	if opts.Transitions == nil {
		opts.Transitions = emotion.NewTransitionEngine(nil)
	}
	if opts.Classifier == nil {
		opts.Classifier = emotion.KeywordClassifier{}
	}
	if opts.Quests == nil {
		opts.Quests = quest.NewEngine(nil)
	}
	if opts.States == nil {
		opts.States = cache.NewStateCache(0, cache.DefaultStateTTL)
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 10
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		emotions:     opts.Emotions,
		transitions:  opts.Transitions,
		classifier:   opts.Classifier,
		dialogue:     opts.Dialogue,
		quests:       opts.Quests,
		states:       opts.States,
		general:      opts.General,
		queue:        opts.Queue,
		consolidator: opts.Consolidator,
		interval:     opts.ConsolidationInterval,
		history:      opts.History,
		historyLimit: opts.HistoryLimit,
		ctx:          ctx,
		cancel:       cancel,
		sessions:     make(map[string]*Session),
	}
	if e.queue != nil {
		e.queue.Start()
		e.predictor = cache.NewPredictor(e.queue, e.warm, opts.PredictiveThreshold)
	}
	if e.general != nil {
		go e.general.RunSweeper(ctx, defaultSweepInterval)
	}
	return e, nil
}

// Open starts a session between npc and playerID. q may be nil.
func (e *Engine) Open(ctx context.Context, npc types.NPC, playerID string, q *types.Quest) (*Session, error) {
	if npc.ID == "" {
		return nil, fmt.Errorf("npc id is required")
	}
	if e.ctx.Err() != nil {
		return nil, ErrSessionClosed
	}

	e.mu.Lock()
	if _, ok := e.sessions[npc.ID]; ok {
		e.mu.Unlock()
		return nil, ErrSessionOpen
	}
	s := newSession(e, npc, playerID, q)
	e.sessions[npc.ID] = s
	e.mu.Unlock()

	profile := e.emotions.Spawn(ctx, npc.ID)
	e.states.Put(npc.ID, profile.Snapshot(time.Now()))
	s.loadHistory(ctx)
	s.start()

	slog.Info("npc session opened", "npc_id", npc.ID, "player_id", playerID, "state", profile.Primary)
	return s, nil
}

// Session returns the open session for npcID, if any.
func (e *Engine) Session(npcID string) (*Session, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.sessions[npcID]
	return s, ok
}

// Snapshot returns the presentation view of npcID, from the state cache when fresh.
func (e *Engine) Snapshot(ctx context.Context, npcID string) emotion.Snapshot {
	if snap, ok := e.states.Get(npcID); ok {
		return snap
	}
	snap := e.emotions.Snapshot(ctx, npcID)
	e.states.Put(npcID, snap)
	return snap
}

// Close ends every session and stops background work.
func (e *Engine) Close() {
	e.mu.Lock()
	open := make([]*Session, 0, len(e.sessions))
	for _, s := range e.sessions {
		open = append(open, s)
	}
	e.mu.Unlock()

	for _, s := range open {
		s.Close()
	}
	e.cancel()
	if e.queue != nil {
		e.queue.Close()
	}
}

func (e *Engine) remove(s *Session) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sessions[s.npc.ID] == s {
		delete(e.sessions, s.npc.ID)
	}
}

// warm is the predictor's warm-up hook; it renders dialogue for the NPC's open session.
func (e *Engine) warm(ctx context.Context, npcID string, state emotion.State) error {
	s, ok := e.Session(npcID)
	if !ok {
		return nil
	}
	return e.dialogue.Warm(ctx, s.npc, state, s.Quest())
}

// predictions returns quest foreshadowing for the NPC, memoized by state and trend.
func (e *Engine) predictions(q *types.Quest, npcID string, profile emotion.EmotionalProfile) []quest.Prediction {
	if q == nil {
		return nil
	}
	pc := quest.PredictionContext{Current: profile.Primary, Memory: profile.Memory}
	if e.general == nil {
		return quest.PredictFutureAdaptations(q, npcID, pc)
	}

	key := fmt.Sprintf("predict:%s:%s:%s:%s", q.ID, npcID, profile.Primary, quest.MemoryTrend(profile.Memory))
	if cached, ok := cache.Get[[]quest.Prediction](e.general, key); ok {
		return cached
	}
	predictions := quest.PredictFutureAdaptations(q, npcID, pc)
	e.general.Set(key, predictions)
	return predictions
}
