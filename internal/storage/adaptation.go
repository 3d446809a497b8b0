package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/easeaico/npc-heart/internal/emotion"
	"github.com/easeaico/npc-heart/internal/quest"
)

type adaptationModel struct {
	ID            string `gorm:"primaryKey"`
	QuestID       string `gorm:"index"`
	NPCID         string `gorm:"column:npc_id"`
	Type          string
	Trigger       string
	ChoiceID      string
	Priority      int
	Context       json.RawMessage `gorm:"type:jsonb"`
	Modifications json.RawMessage `gorm:"type:jsonb"`
	CreatedAt     time.Time
}

func (adaptationModel) TableName() string {
	return "quest_adaptations"
}

type consequenceModel struct {
	ID                string `gorm:"primaryKey"`
	QuestID           string `gorm:"index"`
	AdaptationID      string
	Type              string
	Description       string
	Impact            string
	AffectedNPCs      json.RawMessage `gorm:"type:jsonb;column:affected_npcs"`
	QuestChainEffects json.RawMessage `gorm:"type:jsonb"`
	CreatedAt         time.Time
}

func (consequenceModel) TableName() string {
	return "quest_consequences"
}

// AdaptationRepo implements quest.AdaptationRepo.
type AdaptationRepo struct {
	db *gorm.DB
}

// NewAdaptationRepo returns an AdaptationRepo.
func NewAdaptationRepo(db *gorm.DB) *AdaptationRepo {
	return &AdaptationRepo{db: db}
}

// SaveAdaptation stores an adaptation and its consequences in one transaction.
func (r *AdaptationRepo) SaveAdaptation(ctx context.Context, a quest.Adaptation, consequences []quest.Consequence) error {
	record, err := adaptationToModel(a)
	if err != nil {
		return err
	}
	records := make([]consequenceModel, 0, len(consequences))
	for _, c := range consequences {
		rec, err := consequenceToModel(c)
		if err != nil {
			return err
		}
		records = append(records, rec)
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&record).Error; err != nil {
			return fmt.Errorf("failed to insert quest adaptation: %w", err)
		}
		if len(records) == 0 {
			return nil
		}
		if err := tx.Create(&records).Error; err != nil {
			return fmt.Errorf("failed to insert quest consequences: %w", err)
		}
		return nil
	})
}

// ListAdaptations returns a quest's adaptations, highest priority first.
func (r *AdaptationRepo) ListAdaptations(ctx context.Context, questID string) ([]quest.Adaptation, error) {
	var records []adaptationModel
	if err := r.db.WithContext(ctx).
		Where("quest_id = ?", questID).
		Order("priority DESC, created_at ASC").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to query quest adaptations: %w", err)
	}
	out := make([]quest.Adaptation, 0, len(records))
	for _, rec := range records {
		out = append(out, adaptationFromModel(rec))
	}
	return out, nil
}

// ListConsequences returns a quest's consequences, oldest first.
func (r *AdaptationRepo) ListConsequences(ctx context.Context, questID string) ([]quest.Consequence, error) {
	var records []consequenceModel
	if err := r.db.WithContext(ctx).
		Where("quest_id = ?", questID).
		Order("created_at ASC").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to query quest consequences: %w", err)
	}
	out := make([]quest.Consequence, 0, len(records))
	for _, rec := range records {
		out = append(out, consequenceFromModel(rec))
	}
	return out, nil
}

// DeleteQuest removes everything recorded for a resolved quest.
func (r *AdaptationRepo) DeleteQuest(ctx context.Context, questID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("quest_id = ?", questID).Delete(&consequenceModel{}).Error; err != nil {
			return fmt.Errorf("failed to delete quest consequences: %w", err)
		}
		if err := tx.Where("quest_id = ?", questID).Delete(&adaptationModel{}).Error; err != nil {
			return fmt.Errorf("failed to delete quest adaptations: %w", err)
		}
		return nil
	})
}

func adaptationToModel(a quest.Adaptation) (adaptationModel, error) {
	ctxRaw, err := marshalJSON(a.Context)
	if err != nil {
		return adaptationModel{}, fmt.Errorf("failed to encode adaptation context: %w", err)
	}
	mods, err := marshalJSON(a.Modifications)
	if err != nil {
		return adaptationModel{}, fmt.Errorf("failed to encode adaptation modifications: %w", err)
	}
	return adaptationModel{
		ID:            a.ID,
		QuestID:       a.QuestID,
		NPCID:         a.NPCID,
		Type:          string(a.Type),
		Trigger:       string(a.Trigger),
		ChoiceID:      a.ChoiceID,
		Priority:      a.Priority,
		Context:       ctxRaw,
		Modifications: mods,
		CreatedAt:     a.CreatedAt,
	}, nil
}

func adaptationFromModel(model adaptationModel) quest.Adaptation {
	var ec quest.EmotionalContext
	var mods []quest.Modification
	_ = unmarshalJSON(model.Context, &ec)
	_ = unmarshalJSON(model.Modifications, &mods)
	return quest.Adaptation{
		ID:            model.ID,
		QuestID:       model.QuestID,
		NPCID:         model.NPCID,
		Type:          quest.AdaptationType(model.Type),
		Trigger:       emotion.Trigger(model.Trigger),
		ChoiceID:      model.ChoiceID,
		Context:       ec,
		Modifications: mods,
		Priority:      model.Priority,
		CreatedAt:     model.CreatedAt,
	}
}

func consequenceToModel(c quest.Consequence) (consequenceModel, error) {
	affected, err := marshalJSON(c.AffectedNPCs)
	if err != nil {
		return consequenceModel{}, fmt.Errorf("failed to encode affected npcs: %w", err)
	}
	effects, err := marshalJSON(c.QuestChainEffects)
	if err != nil {
		return consequenceModel{}, fmt.Errorf("failed to encode quest chain effects: %w", err)
	}
	return consequenceModel{
		ID:                c.ID,
		QuestID:           c.QuestID,
		AdaptationID:      c.AdaptationID,
		Type:              string(c.Type),
		Description:       c.Description,
		Impact:            string(c.Impact),
		AffectedNPCs:      affected,
		QuestChainEffects: effects,
		CreatedAt:         c.CreatedAt,
	}, nil
}

func consequenceFromModel(model consequenceModel) quest.Consequence {
	var affected, effects []string
	_ = unmarshalJSON(model.AffectedNPCs, &affected)
	_ = unmarshalJSON(model.QuestChainEffects, &effects)
	return quest.Consequence{
		ID:                model.ID,
		QuestID:           model.QuestID,
		AdaptationID:      model.AdaptationID,
		Type:              quest.ConsequenceType(model.Type),
		Description:       model.Description,
		Impact:            quest.ImpactLevel(model.Impact),
		AffectedNPCs:      affected,
		QuestChainEffects: effects,
		CreatedAt:         model.CreatedAt,
	}
}
