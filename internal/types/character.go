// Package types holds value records shared by the dialogue, quest and engine layers.
package types

import "time"

// NPC is the persisted identity of a non-player character.
type NPC struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Personality string    `json:"personality"`
	Role        string    `json:"role"`
	CreatedAt   time.Time `json:"created_at"`
}

// ConversationTurn is one line of dialogue history.
type ConversationTurn struct {
	Speaker   string    `json:"speaker"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// PlayerAction is a raw player input before classification.
type PlayerAction struct {
	PlayerID string `json:"player_id"`
	Content  string `json:"content"`
	// Choice is set when the action was picked from offered choices.
	Choice *PlayerChoice `json:"choice,omitempty"`
	// Intensity, Novelty and Complexity are in [0,1].
	Intensity  float64 `json:"emotional_intensity"`
	Novelty    float64 `json:"novelty"`
	Complexity float64 `json:"complexity"`
}
