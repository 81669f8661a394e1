// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the language
// catalog.
package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-translate-backend/internal/domain"
)

// UpsertLanguages inserts or refreshes catalog rows keyed by code.
func UpsertLanguages(ctx context.Context, db *gorm.DB, langs []domain.Language) error {
	if len(langs) == 0 {
		return nil
	}
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "native_name", "rtl", "active", "sort_order", "updated_at"}),
	}).Create(&langs).Error
}

// ListLanguages returns the catalog ordered for display. With activeOnly,
// inactive languages are skipped.
func ListLanguages(ctx context.Context, db *gorm.DB, activeOnly bool) ([]domain.Language, error) {
	q := db.WithContext(ctx)
	if activeOnly {
		q = q.Where("active = ?", true)
	}
	var out []domain.Language
	err := q.Order("sort_order asc").Order("code asc").Find(&out).Error
	return out, err
}

// GetLanguage returns the catalog entry for code or ErrNotFound.
func GetLanguage(ctx context.Context, db *gorm.DB, code string) (*domain.Language, error) {
	var l domain.Language
	err := db.WithContext(ctx).Where("code = ?", code).First(&l).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}
