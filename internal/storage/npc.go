package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/easeaico/npc-heart/internal/types"
)

type npcModel struct {
	ID          string `gorm:"primaryKey"`
	Name        string
	Description string
	Personality string
	Role        string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (npcModel) TableName() string {
	return "npcs"
}

// NPCRepo accesses NPC definitions.
type NPCRepo struct {
	db *gorm.DB
}

// NewNPCRepo returns an NPCRepo.
func NewNPCRepo(db *gorm.DB) *NPCRepo {
	return &NPCRepo{db: db}
}

// GetByID returns the NPC, or nil when it does not exist.
func (r *NPCRepo) GetByID(ctx context.Context, id string) (*types.NPC, error) {
	var model npcModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get npc by id: %w", err)
	}
	npc := npcFromModel(model)
	return &npc, nil
}

// List returns every NPC ordered by id.
func (r *NPCRepo) List(ctx context.Context) ([]types.NPC, error) {
	var records []npcModel
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list npcs: %w", err)
	}
	out := make([]types.NPC, 0, len(records))
	for _, rec := range records {
		out = append(out, npcFromModel(rec))
	}
	return out, nil
}

// Upsert creates or replaces an NPC definition.
func (r *NPCRepo) Upsert(ctx context.Context, npc types.NPC) error {
	model := npcModel{
		ID:          npc.ID,
		Name:        npc.Name,
		Description: npc.Description,
		Personality: npc.Personality,
		Role:        npc.Role,
		CreatedAt:   npc.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "description", "personality", "role", "updated_at"}),
	}).Create(&model).Error; err != nil {
		return fmt.Errorf("failed to upsert npc: %w", err)
	}
	return nil
}

func npcFromModel(model npcModel) types.NPC {
	return types.NPC{
		ID:          model.ID,
		Name:        model.Name,
		Description: model.Description,
		Personality: model.Personality,
		Role:        model.Role,
		CreatedAt:   model.CreatedAt,
	}
}
