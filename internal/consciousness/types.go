// Package consciousness talks to the external dialogue collaborator that produces
// context-rich NPC responses.
package consciousness

import (
	"context"
	"errors"
	"time"

	"github.com/easeaico/npc-heart/internal/emotion"
)

// ErrUnavailable is returned when no collaborator is configured.
var ErrUnavailable = errors.New("consciousness collaborator unavailable")

// Client is the collaborator contract.
type Client interface {
	Synthesize(ctx context.Context, req Request) (*Response, error)
}

// Request is the collaborator request record.
type Request struct {
	NPCID            string           `json:"npcId"`
	NPCName          string           `json:"npcName,omitempty"`
	Personality      string           `json:"personality"`
	EmotionalProfile emotion.Snapshot `json:"emotionalProfile"`
	PlayerAction     PlayerAction     `json:"playerAction"`
	ContextualData   ContextualData   `json:"contextualData"`
}

// PlayerAction describes what the player did.
type PlayerAction struct {
	Type               string  `json:"type"`
	Content            string  `json:"content"`
	EmotionalIntensity float64 `json:"emotionalIntensity"`
	Novelty            float64 `json:"novelty"`
	Complexity         float64 `json:"complexity"`
}

// ContextualData is the surrounding game state.
type ContextualData struct {
	QuestState           string   `json:"questState"`
	RelationshipLevel    float64  `json:"relationshipLevel"`
	RecentInteractions   []string `json:"recentInteractions"`
	EnvironmentalFactors []string `json:"environmentalFactors"`
	// Memories are descriptions of the NPC's significant memories, newest last.
	Memories []string `json:"memories,omitempty"`
}

// Response is the collaborator response record.
type Response struct {
	SynthesizedResponse     SynthesizedResponse `json:"synthesizedResponse"`
	ConsciousnessUpdate     ConsciousnessUpdate `json:"consciousnessUpdate"`
	EmergentBehavior        EmergentBehavior    `json:"emergentBehavior"`
	ConsciousnessCommentary string              `json:"consciousnessCommentary"`
}

type SynthesizedResponse struct {
	Content      string  `json:"content"`
	Authenticity float64 `json:"authenticity"`
}

type ConsciousnessUpdate struct {
	AwarenessLevel     float64 `json:"awarenessLevel"`
	CognitiveLoad      float64 `json:"cognitiveLoad"`
	MetacognitionLevel float64 `json:"metacognitionLevel"`
}

type EmergentBehavior struct {
	Traits []string `json:"traits"`
}

// Result carries either a remote response or a fallback marker with the reason.
type Result struct {
	Response *Response
	Fallback bool
	Reason   error
	Latency  time.Duration
}

// Remote reports whether the collaborator produced the response.
func (r Result) Remote() bool {
	return !r.Fallback && r.Response != nil
}

// Call invokes client under a hard timeout. It never fails: an unreachable, slow or
// malformed collaborator yields a fallback Result.
func Call(ctx context.Context, client Client, req Request, timeout time.Duration) Result {
	start := time.Now()
	if client == nil {
		return Result{Fallback: true, Reason: ErrUnavailable}
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type outcome struct {
		resp *Response
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		resp, err := client.Synthesize(ctx, req)
		done <- outcome{resp, err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			return Result{Fallback: true, Reason: out.err, Latency: time.Since(start)}
		}
		if out.resp == nil || out.resp.SynthesizedResponse.Content == "" {
			return Result{Fallback: true, Reason: errors.New("empty collaborator response"), Latency: time.Since(start)}
		}
		return Result{Response: out.resp, Latency: time.Since(start)}
	case <-ctx.Done():
		return Result{Fallback: true, Reason: ctx.Err(), Latency: time.Since(start)}
	}
}
