package storage

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/easeaico/npc-heart/internal/types"
)

// conversationTurnModel maps to the conversation_turns table.
type conversationTurnModel struct {
	ID        int
	NPCID     string `gorm:"column:npc_id;index:idx_turns_npc_player"`
	PlayerID  string `gorm:"index:idx_turns_npc_player"`
	Speaker   string
	Text      string
	CreatedAt time.Time
}

func (conversationTurnModel) TableName() string {
	return "conversation_turns"
}

// ConversationRepo stores dialogue history between an NPC and a player.
type ConversationRepo struct {
	db *gorm.DB
}

// NewConversationRepo returns a ConversationRepo.
func NewConversationRepo(db *gorm.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

// AddTurn appends one line of dialogue.
func (r *ConversationRepo) AddTurn(ctx context.Context, npcID, playerID string, turn types.ConversationTurn) error {
	record := conversationTurnModel{
		NPCID:     npcID,
		PlayerID:  playerID,
		Speaker:   turn.Speaker,
		Text:      turn.Text,
		CreatedAt: turn.Timestamp,
	}
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("failed to insert conversation turn: %w", err)
	}
	return nil
}

// RecentTurns returns up to limit turns, oldest first.
func (r *ConversationRepo) RecentTurns(ctx context.Context, npcID, playerID string, limit int) ([]types.ConversationTurn, error) {
	var records []conversationTurnModel
	if err := r.db.WithContext(ctx).
		Where("npc_id = ? AND player_id = ?", npcID, playerID).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to query conversation turns: %w", err)
	}

	results := make([]types.ConversationTurn, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		results = append(results, types.ConversationTurn{
			Speaker:   records[i].Speaker,
			Text:      records[i].Text,
			Timestamp: records[i].CreatedAt,
		})
	}
	return results, nil
}
