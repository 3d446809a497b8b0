package quest

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/easeaico/npc-heart/internal/emotion"
	"github.com/easeaico/npc-heart/internal/types"
)

type fakeRepo struct {
	saved   []Adaptation
	deleted []string
	err     error
}

func (f *fakeRepo) SaveAdaptation(_ context.Context, a Adaptation, _ []Consequence) error {
	f.saved = append(f.saved, a)
	return f.err
}

func (f *fakeRepo) DeleteQuest(_ context.Context, questID string) error {
	f.deleted = append(f.deleted, questID)
	return f.err
}

func testQuest() *types.Quest {
	return &types.Quest{
		ID:       "q1",
		Title:    "The Miller's Debt",
		Type:     types.QuestDiplomacy,
		GiverNPC: "n1",
		Phase:    emotion.PhaseInProgress,
		Objectives: []types.Objective{
			{ID: "o1", Text: "Talk to the miller", Required: true},
			{ID: "o2", Text: "Find the ledger"},
		},
		Rewards:      []types.Reward{{Kind: "gold", Amount: 50}},
		Branches:     []string{"miller_flees"},
		InvolvedNPCs: []string{"n2"},
	}
}

func memoryOf(descriptions ...string) *emotion.EmotionalMemory {
	mem := emotion.NewEmotionalMemory()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, d := range descriptions {
		mem.AddEvent(emotion.EmotionalEvent{
			ID:          d,
			Type:        emotion.EventTransition,
			Description: d,
			Timestamp:   base.Add(time.Duration(i) * time.Minute),
			Impact:      map[string]float64{"Bitter": 0.7},
		})
	}
	return mem
}

func TestClassifyTrend(t *testing.T) {
	cases := []struct {
		name  string
		descs []string
		want  Trend
	}{
		{"empty", nil, TrendStable},
		{"betrayals", []string{"felt betrayed by p1", "felt betrayed by p1", "felt betrayed by p1"}, TrendDeclining},
		{"support", []string{"was helped by p1", "grew loyal to p1"}, TrendImproving},
		{"swings", []string{"felt betrayed by p1", "grew loyal to p1"}, TrendVolatile},
		{"small", []string{"was disappointed by p1", "was helped by p1"}, TrendStable},
		{"window", []string{"was helped by p1", "was helped by p1", "was helped by p1", "talked", "talked", "talked"}, TrendStable},
	}
	for _, tc := range cases {
		if got := MemoryTrend(memoryOf(tc.descs...)); got != tc.want {
			t.Errorf("%s: expected %s, got %s", tc.name, tc.want, got)
		}
	}
}

func TestSelectType(t *testing.T) {
	cases := []struct {
		state emotion.State
		trend Trend
		want  AdaptationType
	}{
		{emotion.StateBetrayed, TrendDeclining, RelationshipConsequence},
		{emotion.StateBetrayed, TrendVolatile, NarrativeBranch},
		{emotion.StateBitter, TrendDeclining, NpcBehaviorChange},
		{emotion.StateBitter, TrendStable, NpcBehaviorChange},
		{emotion.StateLoyal, TrendImproving, RewardAdjustment},
		{emotion.StateWrathful, TrendDeclining, DifficultyScaling},
		{emotion.StateJoyful, TrendStable, ObjectiveModification},
		{emotion.StateHopeful, TrendStable, ObjectiveModification},
		{emotion.StateFearful, TrendStable, EnvironmentalChange},
		{emotion.StateNeutral, TrendStable, NpcBehaviorChange},
		{emotion.StateResigned, TrendStable, NarrativeBranch},
	}
	for _, tc := range cases {
		if got := SelectType(tc.state, tc.trend); got != tc.want {
			t.Errorf("%s/%s: expected %s, got %s", tc.state, tc.trend, tc.want, got)
		}
	}
}

func TestCalculatePriorityBounds(t *testing.T) {
	if got := CalculatePriority(1, true, TrendVolatile, 1); got != 100 {
		t.Fatalf("expected clamp to 100, got %d", got)
	}
	if got := CalculatePriority(0, false, TrendStable, 0); got != 50 {
		t.Fatalf("expected base 50, got %d", got)
	}
	if got := CalculatePriority(0.5, true, TrendStable, 0.5); got != 95 {
		t.Fatalf("expected 95, got %d", got)
	}

	rng := rand.New(rand.NewSource(21))
	trends := []Trend{TrendImproving, TrendDeclining, TrendStable, TrendVolatile, Trend("")}
	for i := 0; i < 2000; i++ {
		p := CalculatePriority((rng.Float64()-0.25)*3, rng.Intn(2) == 0, trends[rng.Intn(len(trends))], (rng.Float64()-0.25)*3)
		if p < 1 || p > 100 {
			t.Fatalf("priority out of range: %d", p)
		}
	}
}

func TestBetrayalSpiralResolvesToRelationshipConsequence(t *testing.T) {
	engine := NewEngine(nil)
	mem := memoryOf("felt betrayed by p1", "felt betrayed by p1", "felt betrayed by p1")

	a := engine.Adapt(context.Background(), testQuest(), "n1", Transition{
		From:      emotion.StateHopeful,
		To:        emotion.StateBetrayed,
		Trigger:   emotion.TriggerBetrayal,
		Intensity: 0.85,
	}, types.PlayerChoice{ID: "c1"}, mem)

	if a == nil {
		t.Fatalf("expected an adaptation")
	}
	if a.Context.Trend != TrendDeclining || a.Type != RelationshipConsequence {
		t.Fatalf("expected declining relationship consequence, got %s/%s", a.Context.Trend, a.Type)
	}
	if a.Priority < 1 || a.Priority > 100 {
		t.Fatalf("priority out of range: %d", a.Priority)
	}

	consequences := engine.Log().Consequences("q1")
	var branch, relationship int
	for _, c := range consequences {
		switch c.Type {
		case StoryBranch:
			branch++
			if len(c.QuestChainEffects) != 1 || c.QuestChainEffects[0] != "miller_flees" {
				t.Fatalf("expected branch effect, got %+v", c)
			}
		case RelationshipChange:
			relationship++
		}
	}
	if branch != 1 || relationship != 1 {
		t.Fatalf("expected one story branch and one relationship change, got %+v", consequences)
	}
}

func TestAdaptReturnsNilForInconsistentQuest(t *testing.T) {
	engine := NewEngine(nil)
	transition := Transition{From: emotion.StateNeutral, To: emotion.StateWrathful, Intensity: 0.9}

	noGiver := testQuest()
	noGiver.GiverNPC = ""
	cases := map[string]*types.Quest{
		"nil quest": nil,
		"no id":     {GiverNPC: "n1"},
		"no giver":  noGiver,
	}
	for name, q := range cases {
		if a := engine.Adapt(context.Background(), q, "n1", transition, types.PlayerChoice{}, nil); a != nil {
			t.Errorf("%s: expected nil, got %+v", name, a)
		}
	}
	if a := engine.Adapt(context.Background(), testQuest(), "stranger", transition, types.PlayerChoice{}, nil); a != nil {
		t.Fatalf("expected nil for uninvolved npc")
	}
}

func TestAdaptReturnsNilWhenNothingWarrantsChange(t *testing.T) {
	engine := NewEngine(nil)
	a := engine.Adapt(context.Background(), testQuest(), "n1", Transition{
		From: emotion.StateNeutral,
		To:   emotion.StateNeutral,
	}, types.PlayerChoice{}, emotion.NewEmotionalMemory())
	if a != nil {
		t.Fatalf("expected no adaptation, got %+v", a)
	}
}

func TestAdaptPersistsBestEffort(t *testing.T) {
	repo := &fakeRepo{err: errors.New("db down")}
	engine := NewEngine(repo)

	a := engine.Adapt(context.Background(), testQuest(), "n2", Transition{
		From:      emotion.StateNeutral,
		To:        emotion.StateWrathful,
		Trigger:   emotion.TriggerThreat,
		Intensity: 0.9,
	}, types.PlayerChoice{}, nil)
	if a == nil || a.Type != DifficultyScaling {
		t.Fatalf("expected difficulty scaling despite repo error, got %+v", a)
	}
	if len(repo.saved) != 1 || len(engine.Log().Adaptations("q1")) != 1 {
		t.Fatalf("expected adaptation to be logged and saved")
	}

	engine.Resolve(context.Background(), "q1")
	if len(engine.Log().Adaptations("q1")) != 0 || len(repo.deleted) != 1 {
		t.Fatalf("expected quest to be resolved")
	}
}

func TestLogOrdersByPriority(t *testing.T) {
	log := NewLog()
	base := time.Now()
	log.Record(Adaptation{ID: "low", QuestID: "q1", Priority: 40, CreatedAt: base}, nil)
	log.Record(Adaptation{ID: "high", QuestID: "q1", Priority: 90, CreatedAt: base.Add(time.Second)}, nil)
	log.Record(Adaptation{ID: "tie", QuestID: "q1", Priority: 90, CreatedAt: base.Add(2 * time.Second)}, nil)

	got := log.Adaptations("q1")
	if got[0].ID != "high" || got[1].ID != "tie" || got[2].ID != "low" {
		t.Fatalf("unexpected order: %s %s %s", got[0].ID, got[1].ID, got[2].ID)
	}
}

func TestGeneratorsStayWithinTwoModifications(t *testing.T) {
	q := testQuest()
	q.Type = types.QuestCombat
	for _, state := range emotion.AllStates {
		for _, trend := range []Trend{TrendImproving, TrendDeclining, TrendStable, TrendVolatile} {
			ec := EmotionalContext{
				Transition: Transition{From: emotion.StateNeutral, To: state, Trigger: emotion.TriggerMajorSuccess, Intensity: 1},
				Trend:      trend,
			}
			mods := Generate(SelectType(state, trend), q, "n1", ec)
			if len(mods) > 2 {
				t.Fatalf("%s/%s produced %d modifications", state, trend, len(mods))
			}
		}
	}
}

func TestConsequencesSkipLowImpact(t *testing.T) {
	a := Adaptation{ID: "a1", QuestID: "q1", NPCID: "n2", Modifications: []Modification{
		{Impact: ImpactMinor},
		{Impact: ImpactModerate},
		{Impact: ImpactMajor, Description: "grudge"},
	}}
	got := Consequences(testQuest(), a)
	if len(got) != 1 || got[0].Type != RelationshipChange {
		t.Fatalf("expected one relationship change, got %+v", got)
	}
	if len(got[0].AffectedNPCs) != 2 {
		t.Fatalf("expected npc and giver to be affected, got %v", got[0].AffectedNPCs)
	}
}

func TestPredictFutureAdaptationsIsReadOnly(t *testing.T) {
	mem := memoryOf("felt betrayed by p1", "felt betrayed by p1", "was disappointed by p1")
	before := len(mem.SignificantEvents())

	got := PredictFutureAdaptations(testQuest(), "n1", PredictionContext{Current: emotion.StateHopeful, Memory: mem})
	if len(got) == 0 {
		t.Fatalf("expected predictions for a declining trend")
	}
	if got[0].Trigger != emotion.TriggerBetrayal || got[0].State != emotion.StateBetrayed || got[0].Type != RelationshipConsequence {
		t.Fatalf("unexpected top prediction: %+v", got[0])
	}
	for i := 1; i < len(got); i++ {
		if got[i-1].Likelihood < got[i].Likelihood {
			t.Fatalf("predictions not sorted by likelihood")
		}
	}
	if len(mem.SignificantEvents()) != before {
		t.Fatalf("prediction must not change memory")
	}

	if got := PredictFutureAdaptations(testQuest(), "n1", PredictionContext{Current: emotion.StateNeutral}); got != nil {
		t.Fatalf("expected no predictions for a stable trend, got %+v", got)
	}
}
