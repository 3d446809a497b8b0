package emotion

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/adk/model"
	"google.golang.org/genai"

	"github.com/easeaico/npc-heart/internal/utils"
)

// Classifier maps a free-text player action to a trigger tag.
type Classifier interface {
	Classify(ctx context.Context, action string, trust float64, phase Phase) Trigger
}

// keywordRule is checked in order; the first matching keyword wins.
type keywordRule struct {
	keyword string
	trigger Trigger
}

var keywordRules = []keywordRule{
	{"betray", TriggerBetrayal},
	{"help", TriggerEncouragement},
	{"threaten", TriggerThreat},
	{"apologize", TriggerGenuineApology},
	{"succeed", TriggerSuccess},
	{"fail", TriggerFailure},
}

// ClassifyTrigger is the keyword heuristic: case-insensitive substring match on canonical
// keywords, falling back to the trust level when nothing matches.
func ClassifyTrigger(action string, trust float64, phase Phase) Trigger {
	lowered := strings.ToLower(action)
	for _, rule := range keywordRules {
		if !strings.Contains(lowered, rule.keyword) {
			continue
		}
		if rule.trigger == TriggerSuccess && phase == PhaseCompletion {
			return TriggerMajorSuccess
		}
		return rule.trigger
	}
	switch {
	case trust > 0.8:
		return TriggerContinuedSupport
	case trust < 0.3:
		return TriggerContinuedBetrayal
	default:
		return TriggerNeutralInteraction
	}
}

// KeywordClassifier wraps ClassifyTrigger as a Classifier.
type KeywordClassifier struct{}

// Classify implements Classifier.
func (KeywordClassifier) Classify(_ context.Context, action string, trust float64, phase Phase) Trigger {
	return ClassifyTrigger(action, trust, phase)
}

// Analyzer classifies actions with an LLM and falls back to the keyword heuristic
// whenever the model is missing, errors, or answers with an unknown label.
type Analyzer struct {
	model model.LLM
}

// NewAnalyzer returns an Analyzer.
func NewAnalyzer(m model.LLM) *Analyzer {
	return &Analyzer{model: m}
}

var knownTriggers = []Trigger{
	TriggerBetrayal,
	TriggerEncouragement,
	TriggerThreat,
	TriggerGenuineApology,
	TriggerSuccess,
	TriggerMajorSuccess,
	TriggerFailure,
	TriggerContinuedSupport,
	TriggerContinuedBetrayal,
	TriggerNeutralInteraction,
}

// Classify implements Classifier.
func (a *Analyzer) Classify(ctx context.Context, action string, trust float64, phase Phase) Trigger {
	if a == nil || a.model == nil || strings.TrimSpace(action) == "" {
		return ClassifyTrigger(action, trust, phase)
	}
	label, err := a.analyze(ctx, action, phase)
	if err != nil {
		slog.Warn("trigger classification failed, using keywords", "error", err.Error())
		return ClassifyTrigger(action, trust, phase)
	}
	for _, t := range knownTriggers {
		if string(t) == label {
			return t
		}
	}
	return ClassifyTrigger(action, trust, phase)
}

func (a *Analyzer) analyze(ctx context.Context, action string, phase Phase) (string, error) {
	labels := make([]string, 0, len(knownTriggers))
	for _, t := range knownTriggers {
		labels = append(labels, string(t))
	}
	system := fmt.Sprintf("You classify a player's action toward an NPC in a role-playing game. "+
		"The quest phase is %s. Reply with exactly one of: %s. No other text.", phase, strings.Join(labels, ", "))

	req := &model.LLMRequest{
		Contents: []*genai.Content{
			genai.NewContentFromText(system, "system"),
			genai.NewContentFromText(action, "user"),
		},
	}

	seq := a.model.GenerateContent(ctx, req, false)
	var resp *model.LLMResponse
	var err error
	seq(func(r *model.LLMResponse, e error) bool {
		resp = r
		err = e
		return false
	})
	if err != nil {
		return "", err
	}
	if resp == nil {
		return "", nil
	}
	return utils.NormalizeLabel(utils.ExtractContentText(resp.Content)), nil
}
