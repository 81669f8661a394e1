// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for entities,
// their sections and the per-field translations stored for them.
//
// Entity lookups are scoped by owner; a foreign ID reads as ErrNotFound.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-translate-backend/internal/domain"
)

// CreateEntity inserts e together with its sections. IDs and positions are
// assigned when missing.
func CreateEntity(ctx context.Context, db *gorm.DB, e *domain.Entity) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	e.CreatedAt = now
	for i := range e.Sections {
		s := &e.Sections[i]
		if s.ID == "" {
			s.ID = uuid.NewString()
		}
		s.EntityID = e.ID
		s.Position = i
		s.CreatedAt = now
	}
	return db.WithContext(ctx).Create(e).Error
}

// GetEntity loads an entity owned by ownerID with its sections in order.
// An empty ownerID skips the ownership check.
func GetEntity(ctx context.Context, db *gorm.DB, id, ownerID string) (*domain.Entity, error) {
	q := db.WithContext(ctx).
		Preload("Sections", func(tx *gorm.DB) *gorm.DB { return tx.Order("position asc") }).
		Where("id = ?", id)
	if ownerID != "" {
		q = q.Where("owner_id = ?", ownerID)
	}
	var e domain.Entity
	err := q.First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// UpsertFieldTranslation stores the latest translation of one field,
// replacing any previous one for the same (entity, field, language).
func UpsertFieldTranslation(ctx context.Context, db *gorm.DB, ft *domain.FieldTranslation) error {
	if ft.ID == "" {
		ft.ID = uuid.NewString()
	}
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "entity_id"}, {Name: "field_key"}, {Name: "target_lang"}},
		DoUpdates: clause.AssignmentColumns([]string{"category", "content", "status", "history_id", "updated_at"}),
	}).Create(ft).Error
}

// ListFieldTranslations returns the stored translations of an entity,
// optionally restricted to one language.
func ListFieldTranslations(ctx context.Context, db *gorm.DB, entityID, targetLang string) ([]domain.FieldTranslation, error) {
	q := db.WithContext(ctx).Where("entity_id = ?", entityID)
	if targetLang != "" {
		q = q.Where("target_lang = ?", targetLang)
	}
	var out []domain.FieldTranslation
	err := q.Order("target_lang asc").Order("field_key asc").Find(&out).Error
	return out, err
}
