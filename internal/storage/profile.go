package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/easeaico/npc-heart/internal/emotion"
)

// profileModel keeps the queryable fields in columns and the full profile as JSONB.
type profileModel struct {
	NPCID     string `gorm:"primaryKey;column:npc_id"`
	Primary   string `gorm:"column:primary_state"`
	Intensity float64
	Stability float64
	Payload   json.RawMessage `gorm:"type:jsonb"`
	UpdatedAt time.Time
}

func (profileModel) TableName() string {
	return "emotional_profiles"
}

// ProfileRepo implements emotion.ProfileRepo.
type ProfileRepo struct {
	db *gorm.DB
}

// NewProfileRepo returns a ProfileRepo.
func NewProfileRepo(db *gorm.DB) *ProfileRepo {
	return &ProfileRepo{db: db}
}

// LoadProfile returns the stored profile, or nil when the NPC has none yet.
func (r *ProfileRepo) LoadProfile(ctx context.Context, npcID string) (*emotion.EmotionalProfile, error) {
	var model profileModel
	if err := r.db.WithContext(ctx).First(&model, "npc_id = ?", npcID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load emotional profile: %w", err)
	}
	return profileFromModel(model)
}

// SaveProfile upserts the profile.
func (r *ProfileRepo) SaveProfile(ctx context.Context, npcID string, profile emotion.EmotionalProfile) error {
	model, err := profileToModel(npcID, profile)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "npc_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"primary_state", "intensity", "stability", "payload", "updated_at"}),
	}).Create(&model).Error; err != nil {
		return fmt.Errorf("failed to save emotional profile: %w", err)
	}
	return nil
}

func profileToModel(npcID string, profile emotion.EmotionalProfile) (profileModel, error) {
	payload, err := marshalJSON(profile)
	if err != nil {
		return profileModel{}, fmt.Errorf("failed to encode emotional profile: %w", err)
	}
	return profileModel{
		NPCID:     npcID,
		Primary:   string(profile.Primary),
		Intensity: profile.Intensity,
		Stability: profile.Stability,
		Payload:   payload,
		UpdatedAt: profile.LastUpdated,
	}, nil
}

func profileFromModel(model profileModel) (*emotion.EmotionalProfile, error) {
	var profile emotion.EmotionalProfile
	if err := unmarshalJSON(model.Payload, &profile); err != nil {
		return nil, fmt.Errorf("failed to decode emotional profile: %w", err)
	}
	if !profile.Primary.Valid() {
		if state, ok := emotion.ParseState(model.Primary); ok {
			profile.Primary = state
		} else {
			profile.Primary = emotion.StateNeutral
		}
	}
	if profile.Memory == nil {
		profile.Memory = emotion.NewEmotionalMemory()
	}
	if profile.LastUpdated.IsZero() {
		profile.LastUpdated = model.UpdatedAt
	}
	return &profile, nil
}
