// Package main runs an interactive NPC conversation in the terminal.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"google.golang.org/adk/model"

	"github.com/easeaico/npc-heart/internal/cache"
	"github.com/easeaico/npc-heart/internal/config"
	"github.com/easeaico/npc-heart/internal/consciousness"
	"github.com/easeaico/npc-heart/internal/dialogue"
	"github.com/easeaico/npc-heart/internal/emotion"
	"github.com/easeaico/npc-heart/internal/engine"
	"github.com/easeaico/npc-heart/internal/memory"
	"github.com/easeaico/npc-heart/internal/models"
	"github.com/easeaico/npc-heart/internal/quest"
	"github.com/easeaico/npc-heart/internal/storage"
	"github.com/easeaico/npc-heart/internal/types"
)

var demoNPC = types.NPC{
	ID:          "miller",
	Name:        "Oswin the Miller",
	Description: "Runs the mill at the edge of Harrow village.",
	Personality: "Proud, slow to trust, fiercely loyal once won over.",
	Role:        "quest_giver",
}

var demoQuest = types.Quest{
	ID:         "stolen_grain",
	Title:      "The Stolen Grain",
	Type:       types.QuestInvestigation,
	GiverNPC:   "miller",
	Phase:      emotion.PhaseInProgress,
	Difficulty: 0.4,
	Objectives: []types.Objective{
		{ID: "find_tracks", Text: "Find the thieves' tracks", Required: true},
		{ID: "question_guard", Text: "Question the night guard"},
	},
	Rewards:      []types.Reward{{Kind: "gold", Amount: 50}},
	Branches:     []string{"miller_flees", "guard_arrested"},
	InvolvedNPCs: []string{"night_guard"},
}

func main() {
	npcID := flag.String("npc", demoNPC.ID, "NPC to talk to")
	playerID := flag.String("player", "player", "player id")
	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	slog.Info("configuration loaded", "provider", cfg.LLMProvider, "model", cfg.LLMModel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var store *storage.Store
	if cfg.DatabaseURL != "" {
		s, err := storage.NewStore(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("failed to connect to database: %v", err)
		}
		defer s.Close()
		store = s
	}

	llm, err := models.FromConfig(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to create model: %v", err)
	}

	eng, closeDeps, err := buildEngine(ctx, cfg, store, llm)
	if err != nil {
		log.Fatalf("failed to build engine: %v", err)
	}
	defer closeDeps()
	defer eng.Close()

	npc, err := loadNPC(ctx, store, *npcID)
	if err != nil {
		log.Fatalf("failed to load npc: %v", err)
	}
	q := demoQuest
	if npc.ID != demoQuest.GiverNPC {
		q.GiverNPC = npc.ID
	}

	session, err := eng.Open(ctx, npc, *playerID, &q)
	if err != nil {
		log.Fatalf("failed to open session: %v", err)
	}
	defer session.Close()

	if err := repl(ctx, session, *playerID); err != nil && err != context.Canceled {
		log.Fatalf("session ended: %v", err)
	}
}

func buildEngine(ctx context.Context, cfg config.Config, store *storage.Store, llm model.LLM) (*engine.Engine, func(), error) {
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var profiles emotion.ProfileRepo
	if store != nil {
		profiles = store.Profiles
	}
	emotions := emotion.NewService(profiles)

	var shared cache.SharedTier
	if cfg.RedisURL != "" {
		tier, err := cache.NewRedisTierFromURL(cfg.RedisURL, "npc", cfg.GeneralCacheTTL)
		if err != nil {
			return nil, nil, err
		}
		if err := tier.Ping(ctx); err != nil {
			slog.Warn("redis unavailable, using local dialogue cache only", "error", err.Error())
			_ = tier.Close()
		} else {
			shared = tier
			closers = append(closers, func() { _ = tier.Close() })
		}
	}

	dialogueOpts := dialogue.Options{
		Timeout:         cfg.CollaboratorTimeout,
		FallbackLatency: cfg.FallbackLatency,
		Cache:           cache.NewDialogueCache(cfg.DialogueCacheSize, cfg.DialogueCacheEvictBatch, shared),
		Sink:            logImpactSink{},
		HistoryLimit:    cfg.HistoryLimit,
	}
	opts := engine.Options{
		Emotions:              emotions,
		States:                cache.NewStateCache(0, cfg.StateCacheTTL),
		General:               cache.NewGeneralCache(cfg.GeneralCacheSize, cfg.GeneralCacheTTL),
		Queue:                 cache.NewTaskQueue(cfg.TaskQueueSize),
		PredictiveThreshold:   cfg.PredictiveThreshold,
		ConsolidationInterval: cfg.ConsolidationInterval,
		HistoryLimit:          cfg.HistoryLimit,
	}

	if llm != nil {
		client, err := consciousness.NewLLMClient(llm)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		dialogueOpts.Client = client
		opts.Classifier = emotion.NewAnalyzer(llm)
	}

	var quests quest.AdaptationRepo
	if store != nil {
		quests = store.Adaptations
		opts.History = store.Conversations

		var embedder memory.Embedder
		if cfg.GoogleAPIKey != "" {
			e, err := memory.NewEmbedder(ctx, cfg.GoogleAPIKey, cfg.EmbeddingModel)
			if err != nil {
				closeAll()
				return nil, nil, err
			}
			embedder = e
		}
		var reflector *memory.Reflector
		if llm != nil {
			r, err := memory.NewReflector(llm)
			if err != nil {
				closeAll()
				return nil, nil, err
			}
			reflector = r
		}
		archiver := memory.NewArchiver(embedder, store.Archive, reflector, cfg.TopK, cfg.SimilarityThreshold)
		opts.Consolidator = archiver
		if embedder != nil {
			dialogueOpts.Recall = archiver
		}
	}
	opts.Quests = quest.NewEngine(quests)
	opts.Dialogue = dialogue.NewEngine(emotions, dialogueOpts)

	eng, err := engine.New(opts)
	if err != nil {
		closeAll()
		return nil, nil, err
	}
	return eng, closeAll, nil
}

func loadNPC(ctx context.Context, store *storage.Store, id string) (types.NPC, error) {
	if store == nil {
		if id != demoNPC.ID {
			return types.NPC{ID: id, Name: id}, nil
		}
		return demoNPC, nil
	}
	npc, err := store.NPCs.GetByID(ctx, id)
	if err != nil {
		return types.NPC{}, err
	}
	if npc != nil {
		return *npc, nil
	}
	seed := demoNPC
	if id != demoNPC.ID {
		seed = types.NPC{ID: id, Name: id}
	}
	seed.CreatedAt = time.Now()
	if err := store.NPCs.Upsert(ctx, seed); err != nil {
		return types.NPC{}, err
	}
	return seed, nil
}

func repl(ctx context.Context, session *engine.Session, playerID string) error {
	npc := session.NPC()
	mood := session.Snapshot(ctx)
	fmt.Printf("You approach %s. They seem %s.\n", npc.Name, strings.ToLower(mood.DisplayName))
	fmt.Println("Type to talk, a number to pick a choice, /mood to look closer, /quit to leave.")

	var choices []types.PlayerChoice
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/mood":
			printMood(session.Snapshot(ctx))
			continue
		}

		action := types.PlayerAction{PlayerID: playerID, Content: line, Intensity: 0.5}
		if n, err := strconv.Atoi(line); err == nil && n >= 1 && n <= len(choices) {
			choice := choices[n-1]
			action = types.PlayerAction{PlayerID: playerID, Choice: &choice, Intensity: 0.5}
		}

		out, err := session.Interact(ctx, action)
		if err != nil {
			return err
		}
		choices = out.Reply.Choices
		printOutcome(npc, out, choices)
	}
}

func printMood(snap emotion.Snapshot) {
	fmt.Printf("  [%s %.2f]", snap.DisplayName, snap.Intensity)
	for _, s := range snap.Secondary {
		fmt.Printf(" %s %.2f", s.State, s.Intensity)
	}
	fmt.Println()
}

func printOutcome(npc types.NPC, out engine.Outcome, choices []types.PlayerChoice) {
	fmt.Printf("%s: %s\n", npc.Name, out.Reply.Text)
	if out.Transition.Changed() {
		fmt.Printf("  (%s -> %s on %s)\n", out.Transition.From, out.Transition.To, out.Trigger)
	}
	printMood(out.Mood)
	if out.Adaptation != nil {
		fmt.Printf("  quest adapts: %s, priority %d\n", out.Adaptation.Type, out.Adaptation.Priority)
		for _, m := range out.Adaptation.Modifications {
			fmt.Printf("    - %s (%s)\n", m.Description, m.Impact)
		}
	}
	if len(out.Predictions) > 0 {
		p := out.Predictions[0]
		fmt.Printf("  foreshadow: %s may lead to %s (%.0f%%)\n", p.Trigger, p.Type, p.Likelihood*100)
	}
	for i, c := range choices {
		fmt.Printf("  %d. %s\n", i+1, c.Text)
	}
}

type logImpactSink struct{}

func (logImpactSink) RecordImpact(_ context.Context, impact dialogue.QuestImpact) {
	slog.Debug("quest impact recorded", "impact", fmt.Sprintf("%+v", impact))
}
