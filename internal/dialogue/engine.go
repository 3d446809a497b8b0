// Package dialogue adapts NPC dialogue to the NPC's emotional state, the player's choice
// and the quest, with a deterministic local fallback when the collaborator is unavailable.
package dialogue

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/easeaico/npc-heart/internal/cache"
	"github.com/easeaico/npc-heart/internal/consciousness"
	"github.com/easeaico/npc-heart/internal/emotion"
	"github.com/easeaico/npc-heart/internal/memory"
	"github.com/easeaico/npc-heart/internal/types"
)

// Source tells where a response text came from.
type Source string

const (
	SourceRemote   Source = "remote"
	SourceFallback Source = "fallback"
	SourceCache    Source = "cache"
)

const (
	defaultTimeout      = 5 * time.Second
	defaultHistoryLimit = 10
	significantRecall   = 3
	archiveRecall       = 3
	// dialoguePersistence keeps plain conversation out of significant memory.
	dialoguePersistence = 0.3
)

// ProfileStore is the emotional state owner; emotion.Service implements it.
type ProfileStore interface {
	Profile(ctx context.Context, npcID string) emotion.EmotionalProfile
	Apply(ctx context.Context, npcID string, event emotion.EmotionalEvent) (emotion.EmotionalProfile, error)
}

// Recaller searches long-term memory; memory.Archiver implements it.
type Recaller interface {
	Recall(ctx context.Context, npcID, query string) ([]memory.RecalledEvent, error)
}

// QuestImpact records a choice that moves a quest forward or back.
type QuestImpact struct {
	QuestID   string               `json:"quest_id"`
	NPCID     string               `json:"npc_id"`
	PlayerID  string               `json:"player_id"`
	Category  types.ChoiceCategory `json:"category"`
	Progress  float64              `json:"progress"`
	Timestamp time.Time            `json:"timestamp"`
}

// QuestImpactSink receives quest impact records.
type QuestImpactSink interface {
	RecordImpact(ctx context.Context, impact QuestImpact)
}

var questProgress = map[types.ChoiceCategory]float64{
	types.ChoiceQuestAction: 0.1,
	types.ChoiceHeroic:      0.15,
	types.ChoiceAggressive:  -0.1,
}

// GenerateRequest is the input of Generate.
type GenerateRequest struct {
	NPC      types.NPC
	PlayerID string
	Choice   types.PlayerChoice
	// Action carries the raw input when the player typed instead of picking a choice.
	Action  *types.PlayerAction
	Quest   *types.Quest
	History []types.ConversationTurn
}

// Response is what the NPC says back and how the exchange changed things.
type Response struct {
	Text              string                             `json:"text"`
	Tone              emotion.Tone                       `json:"tone"`
	Choices           []types.PlayerChoice               `json:"choices"`
	RelationshipDelta float64                            `json:"relationship_delta"`
	Source            Source                             `json:"source"`
	Awareness         *consciousness.ConsciousnessUpdate `json:"awareness,omitempty"`
	Traits            []string                           `json:"traits,omitempty"`
	Commentary        string                             `json:"commentary,omitempty"`
	FallbackReason    string                             `json:"fallback_reason,omitempty"`
	QuestImpact       *QuestImpact                       `json:"quest_impact,omitempty"`
	Mood              emotion.Snapshot                   `json:"mood"`
}

// Options configures an Engine. Every field is optional.
type Options struct {
	Client consciousness.Client
	// Timeout bounds each collaborator call.
	Timeout time.Duration
	// FallbackLatency simulates local generation time on the fallback path.
	FallbackLatency time.Duration
	Cache           *cache.DialogueCache
	Sink            QuestImpactSink
	HistoryLimit    int
	// Recall feeds archived memories similar to the player's words to the collaborator.
	Recall Recaller
}

// Engine is the dialogue adaptation layer.
type Engine struct {
	profiles        ProfileStore
	client          consciousness.Client
	timeout         time.Duration
	fallbackLatency time.Duration
	cache           *cache.DialogueCache
	sink            QuestImpactSink
	historyLimit    int
	recall          Recaller
	nowFunc         func() time.Time
}

// NewEngine creates an Engine.
func NewEngine(profiles ProfileStore, opts Options) *Engine {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = defaultHistoryLimit
	}
	return &Engine{
		profiles:        profiles,
		client:          opts.Client,
		timeout:         opts.Timeout,
		fallbackLatency: opts.FallbackLatency,
		cache:           opts.Cache,
		sink:            opts.Sink,
		historyLimit:    opts.HistoryLimit,
		recall:          opts.Recall,
		nowFunc:         time.Now,
	}
}

// Generate produces the NPC's reply. It fails only on a request without an NPC id; an
// unreachable collaborator yields a fallback reply.
func (e *Engine) Generate(ctx context.Context, req GenerateRequest) (Response, error) {
	if req.NPC.ID == "" {
		return Response{}, fmt.Errorf("npc id is required")
	}

	profile := e.profiles.Profile(ctx, req.NPC.ID)
	now := e.nowFunc()
	snap := profile.Snapshot(now)

	resp := e.render(ctx, req, profile, snap)
	resp.Tone = emotion.ToneFor(snap)
	resp.RelationshipDelta = RelationshipDelta(req.Choice.Category, snap.State)
	resp.Choices = AssembleChoices(snap.State, questType(req.Quest))

	updated, err := e.profiles.Apply(ctx, req.NPC.ID, e.memoryEvent(req, resp.RelationshipDelta, now))
	if err != nil {
		slog.Warn("failed to record dialogue in memory", "npc_id", req.NPC.ID, "error", err.Error())
		updated = profile
	}
	resp.Mood = updated.Snapshot(now)

	if impact := e.questImpact(req, now); impact != nil {
		resp.QuestImpact = impact
		if e.sink != nil {
			e.sink.RecordImpact(ctx, *impact)
		}
	}
	return resp, nil
}

// Warm caches replies for npc as if it were in state, for every choice it would be offered.
func (e *Engine) Warm(ctx context.Context, npc types.NPC, state emotion.State, quest *types.Quest) error {
	if e.cache == nil {
		return nil
	}
	if !state.Valid() {
		return fmt.Errorf("unknown emotional state %q", state)
	}
	profile := e.profiles.Profile(ctx, npc.ID)
	info := state.Info()
	snap := emotion.Snapshot{
		State:       state,
		DisplayName: info.DisplayName,
		Intensity:   info.BaseIntensity,
		Color:       info.Color,
	}
	for _, choice := range AssembleChoices(state, questType(quest)) {
		if err := ctx.Err(); err != nil {
			return err
		}
		key := cacheKey(npc.ID, state, choice.ID, quest)
		if e.cache.Contains(key) {
			continue
		}
		e.render(ctx, GenerateRequest{NPC: npc, Choice: choice, Quest: quest}, profile, snap)
	}
	return nil
}

// render produces the reply text through the cache, the collaborator or the fallback table.
func (e *Engine) render(ctx context.Context, req GenerateRequest, profile emotion.EmotionalProfile, snap emotion.Snapshot) Response {
	cacheable := e.cache != nil && req.Choice.ID != "" && req.Action == nil
	key := cacheKey(req.NPC.ID, snap.State, req.Choice.ID, req.Quest)
	if cacheable {
		if entry, ok := e.cache.Get(ctx, key); ok {
			return Response{Text: entry.Text, Source: SourceCache}
		}
	}

	var resp Response
	collabReq := e.collaboratorRequest(req, profile, snap)
	if e.client != nil {
		collabReq.ContextualData.Memories = append(collabReq.ContextualData.Memories, e.recalled(ctx, req, collabReq.PlayerAction.Content)...)
	}
	result := consciousness.Call(ctx, e.client, collabReq, e.timeout)
	if result.Remote() {
		update := result.Response.ConsciousnessUpdate
		resp = Response{
			Text:       result.Response.SynthesizedResponse.Content,
			Source:     SourceRemote,
			Awareness:  &update,
			Traits:     result.Response.EmergentBehavior.Traits,
			Commentary: result.Response.ConsciousnessCommentary,
		}
	} else {
		if result.Reason != nil && e.client != nil {
			slog.Warn("consciousness collaborator failed, using fallback", "npc_id", req.NPC.ID, "error", result.Reason.Error())
		}
		e.simulateLatency(ctx)
		resp = Response{
			Text:   FallbackText(req.NPC.ID, snap.State, req.Choice, questID(req.Quest)),
			Source: SourceFallback,
		}
		if result.Reason != nil {
			resp.FallbackReason = result.Reason.Error()
		}
	}

	// A fallback caused by a failing collaborator is not cached, so the remote reply
	// takes over once it recovers.
	if cacheable && (resp.Source == SourceRemote || e.client == nil) {
		e.cache.Put(ctx, key, cache.DialogueEntry{
			Text:   resp.Text,
			Tone:   emotion.ToneFor(snap),
			Source: string(resp.Source),
		})
	}
	return resp
}

// recalled returns archived memories related to what the player said, oldest first.
func (e *Engine) recalled(ctx context.Context, req GenerateRequest, query string) []string {
	if e.recall == nil || query == "" {
		return nil
	}
	events, err := e.recall.Recall(ctx, req.NPC.ID, query)
	if err != nil {
		slog.Warn("failed to recall archived memories", "npc_id", req.NPC.ID, "error", err.Error())
		return nil
	}
	if len(events) > archiveRecall {
		events = events[:archiveRecall]
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].OccurredAt.Before(events[j].OccurredAt)
	})
	out := make([]string, 0, len(events))
	for _, ev := range events {
		if ev.Description == "" {
			continue
		}
		out = append(out, "(long ago) "+ev.Description)
	}
	return out
}

func (e *Engine) simulateLatency(ctx context.Context) {
	if e.fallbackLatency <= 0 {
		return
	}
	timer := time.NewTimer(e.fallbackLatency)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

func (e *Engine) collaboratorRequest(req GenerateRequest, profile emotion.EmotionalProfile, snap emotion.Snapshot) consciousness.Request {
	action := consciousness.PlayerAction{
		Type:    string(req.Choice.Category),
		Content: req.Choice.Text,
	}
	if req.Action != nil {
		if req.Action.Content != "" {
			action.Content = req.Action.Content
		}
		action.EmotionalIntensity = req.Action.Intensity
		action.Novelty = req.Action.Novelty
		action.Complexity = req.Action.Complexity
	}
	if action.Type == "" {
		action.Type = "free_text"
	}

	history := req.History
	if len(history) > e.historyLimit {
		history = history[len(history)-e.historyLimit:]
	}
	recent := make([]string, 0, len(history))
	for _, turn := range history {
		recent = append(recent, turn.Speaker+": "+turn.Text)
	}

	var memories []string
	for _, ev := range profile.Memory.LastSignificant(significantRecall) {
		if ev.Description != "" {
			memories = append(memories, ev.Description)
		}
	}

	var environment []string
	questState := ""
	if req.Quest != nil {
		questState = fmt.Sprintf("%s (%s, %s, %.0f%% complete)", req.Quest.Title, req.Quest.Type, req.Quest.Phase, req.Quest.Progress()*100)
		environment = append(environment, "quest:"+string(req.Quest.Type), "phase:"+string(req.Quest.Phase))
	}

	return consciousness.Request{
		NPCID:            req.NPC.ID,
		NPCName:          req.NPC.Name,
		Personality:      req.NPC.Personality,
		EmotionalProfile: snap,
		PlayerAction:     action,
		ContextualData: consciousness.ContextualData{
			QuestState:           questState,
			RelationshipLevel:    profile.Memory.Relationship(req.PlayerID),
			RecentInteractions:   recent,
			EnvironmentalFactors: environment,
			Memories:             memories,
		},
	}
}

func (e *Engine) memoryEvent(req GenerateRequest, delta float64, now time.Time) emotion.EmotionalEvent {
	verb, ok := categoryVerbs[req.Choice.Category]
	if !ok {
		verb = "spoke to"
	}
	subject := req.PlayerID
	if subject == "" {
		subject = "the player"
	}
	event := emotion.NewEvent(emotion.EventDialogue, subject,
		fmt.Sprintf("%s %s %s", subject, verb, npcName(req.NPC)),
		copyImpact(categoryImpacts[req.Choice.Category]), dialoguePersistence)
	event.Timestamp = now
	if req.PlayerID != "" && delta != 0 {
		event.RelationshipDeltas = map[string]float64{req.PlayerID: delta}
	}
	return event
}

func (e *Engine) questImpact(req GenerateRequest, now time.Time) *QuestImpact {
	progress, ok := questProgress[req.Choice.Category]
	if !ok || req.Quest == nil || req.Quest.ID == "" {
		return nil
	}
	return &QuestImpact{
		QuestID:   req.Quest.ID,
		NPCID:     req.NPC.ID,
		PlayerID:  req.PlayerID,
		Category:  req.Choice.Category,
		Progress:  progress,
		Timestamp: now,
	}
}

func cacheKey(npcID string, state emotion.State, choiceID string, quest *types.Quest) cache.DialogueKey {
	return cache.DialogueKey{
		NPCID:     npcID,
		State:     state,
		ChoiceID:  choiceID,
		QuestHash: quest.Context().Hash(),
	}
}

func questType(q *types.Quest) types.QuestType {
	if q == nil {
		return ""
	}
	return q.Type
}

func questID(q *types.Quest) string {
	if q == nil {
		return ""
	}
	return q.ID
}

func npcName(npc types.NPC) string {
	if npc.Name != "" {
		return npc.Name
	}
	return npc.ID
}

func copyImpact(src map[string]float64) map[string]float64 {
	dst := make(map[string]float64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
