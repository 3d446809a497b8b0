package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/easeaico/npc-heart/internal/emotion"
	"github.com/easeaico/npc-heart/internal/memory"
)

// archivedEventModel maps to the archived_events table.
type archivedEventModel struct {
	ID          int
	NPCID       string `gorm:"column:npc_id;uniqueIndex:idx_archive_npc_event"`
	EventID     string `gorm:"uniqueIndex:idx_archive_npc_event"`
	Kind        string
	EventType   string
	Description string
	Impact      json.RawMessage `gorm:"type:jsonb"`
	// Salience is a 0-1 importance score, used in ranking.
	Salience   float64 `gorm:"column:salience_score"`
	Embedding  *pgvector.Vector `gorm:"type:vector(768)"`
	OccurredAt time.Time
	CreatedAt  time.Time
}

func (archivedEventModel) TableName() string {
	return "archived_events"
}

// ArchiveRepo implements memory.ArchiveRepo.
type ArchiveRepo struct {
	db *gorm.DB
}

// NewArchiveRepo returns an ArchiveRepo.
func NewArchiveRepo(db *gorm.DB) *ArchiveRepo {
	return &ArchiveRepo{db: db}
}

// ArchivedEventIDs reports which of eventIDs are already archived for npcID.
func (r *ArchiveRepo) ArchivedEventIDs(ctx context.Context, npcID string, eventIDs []string) (map[string]bool, error) {
	out := make(map[string]bool)
	if len(eventIDs) == 0 {
		return out, nil
	}
	var ids []string
	if err := r.db.WithContext(ctx).
		Model(&archivedEventModel{}).
		Where("npc_id = ? AND event_id IN ?", npcID, eventIDs).
		Pluck("event_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to query archived event ids: %w", err)
	}
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

// AddArchivedEvents inserts events, skipping ones already archived.
func (r *ArchiveRepo) AddArchivedEvents(ctx context.Context, events []memory.ArchivedEvent) error {
	if len(events) == 0 {
		return nil
	}
	records := make([]archivedEventModel, 0, len(events))
	for _, e := range events {
		rec, err := archivedEventToModel(e)
		if err != nil {
			return err
		}
		records = append(records, rec)
	}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(&records, 100).Error; err != nil {
		return fmt.Errorf("failed to insert archived events: %w", err)
	}
	return nil
}

// SearchSimilar filters by cosine similarity and then re-ranks by salience.
func (r *ArchiveRepo) SearchSimilar(ctx context.Context, npcID string, embedding []float32, topK int, threshold float64) ([]memory.RecalledEvent, error) {
	if len(embedding) == 0 {
		return nil, nil
	}

	query := `
		SELECT event_id, kind, description, occurred_at,
		       1 - (embedding <=> $1) AS similarity,
		       COALESCE(salience_score, 0) AS salience
		FROM archived_events
		WHERE npc_id = $2
		  AND embedding IS NOT NULL
		  AND 1 - (embedding <=> $1) > $3
		ORDER BY (0.85 * (1 - (embedding <=> $1)) + 0.15 * COALESCE(salience_score, 0)) DESC
		LIMIT $4`

	var rows []recalledRow
	if err := r.db.WithContext(ctx).
		Raw(query, pgvector.NewVector(embedding), npcID, threshold, topK).
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to search archived events: %w", err)
	}

	results := make([]memory.RecalledEvent, 0, len(rows))
	for _, row := range rows {
		results = append(results, memory.RecalledEvent{
			EventID:     row.EventID,
			Kind:        memory.ArchiveKind(row.Kind),
			Description: row.Description,
			Salience:    row.Salience,
			Similarity:  row.Similarity,
			OccurredAt:  row.OccurredAt,
		})
	}
	return results, nil
}

type recalledRow struct {
	EventID     string
	Kind        string
	Description string
	OccurredAt  time.Time
	Similarity  float64
	Salience    float64
}

func archivedEventToModel(e memory.ArchivedEvent) (archivedEventModel, error) {
	impact, err := marshalJSON(e.Impact)
	if err != nil {
		return archivedEventModel{}, fmt.Errorf("failed to encode archived impact: %w", err)
	}
	var vector *pgvector.Vector
	if len(e.Embedding) > 0 {
		v := pgvector.NewVector(e.Embedding)
		vector = &v
	}
	return archivedEventModel{
		NPCID:       e.NPCID,
		EventID:     e.EventID,
		Kind:        string(e.Kind),
		EventType:   string(e.EventType),
		Description: e.Description,
		Impact:      impact,
		Salience:    e.Salience,
		Embedding:   vector,
		OccurredAt:  e.OccurredAt,
	}, nil
}

func archivedEventFromModel(model archivedEventModel) memory.ArchivedEvent {
	var impact map[string]float64
	_ = unmarshalJSON(model.Impact, &impact)
	var embedding []float32
	if model.Embedding != nil {
		embedding = model.Embedding.Slice()
	}
	return memory.ArchivedEvent{
		NPCID:       model.NPCID,
		EventID:     model.EventID,
		Kind:        memory.ArchiveKind(model.Kind),
		EventType:   emotion.EventType(model.EventType),
		Description: model.Description,
		Impact:      impact,
		Salience:    model.Salience,
		OccurredAt:  model.OccurredAt,
		Embedding:   embedding,
	}
}

// RecentArchived returns the newest archived records for npcID, newest first.
func (r *ArchiveRepo) RecentArchived(ctx context.Context, npcID string, limit int) ([]memory.ArchivedEvent, error) {
	var records []archivedEventModel
	if err := r.db.WithContext(ctx).
		Where("npc_id = ?", npcID).
		Order("occurred_at DESC").
		Limit(limit).
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to query archived events: %w", err)
	}
	out := make([]memory.ArchivedEvent, 0, len(records))
	for _, rec := range records {
		out = append(out, archivedEventFromModel(rec))
	}
	return out, nil
}
