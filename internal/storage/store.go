// Package storage persists profiles, quest adaptations, conversation turns and archived
// memories in PostgreSQL through gorm.
package storage

import (
	"context"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Store holds the DB handle and repositories.
type Store struct {
	db            *gorm.DB
	NPCs          *NPCRepo
	Profiles      *ProfileRepo
	Adaptations   *AdaptationRepo
	Conversations *ConversationRepo
	Archive       *ArchiveRepo
}

// NewStore opens the database and builds the repositories.
func NewStore(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{
		db:            db,
		NPCs:          NewNPCRepo(db),
		Profiles:      NewProfileRepo(db),
		Adaptations:   NewAdaptationRepo(db),
		Conversations: NewConversationRepo(db),
		Archive:       NewArchiveRepo(db),
	}, nil
}

// Migrate creates the vector extension and every table.
func (s *Store) Migrate(ctx context.Context) error {
	db := s.db.WithContext(ctx)
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return fmt.Errorf("failed to enable pgvector: %w", err)
	}
	if err := db.AutoMigrate(
		&npcModel{},
		&profileModel{},
		&adaptationModel{},
		&consequenceModel{},
		&conversationTurnModel{},
		&archivedEventModel{},
	); err != nil {
		return fmt.Errorf("failed to migrate tables: %w", err)
	}
	return nil
}

func (s *Store) DB() *gorm.DB {
	return s.db
}

func (s *Store) Close() {
	if s.db == nil {
		return
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return
	}
	_ = sqlDB.Close()
}
