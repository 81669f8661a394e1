// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// translation history journal.
//
// Rows are append-only except for the review columns, which
// UpdateHistoryReview writes explicitly.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-translate-backend/internal/domain"
)

// CreateHistory appends h to the journal, assigning an ID and creation time
// when missing.
func CreateHistory(ctx context.Context, db *gorm.DB, h *domain.TranslationHistory) error {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now().UTC()
	}
	if h.Status == "" {
		h.Status = domain.VerificationPending
	}
	return db.WithContext(ctx).Create(h).Error
}

// GetHistory fetches a journal row by ID or returns ErrNotFound.
func GetHistory(ctx context.Context, db *gorm.DB, id string) (*domain.TranslationHistory, error) {
	var h domain.TranslationHistory
	err := db.WithContext(ctx).Where("id = ?", id).First(&h).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// HistoryFilter narrows ListHistoryPage. Empty fields match everything.
type HistoryFilter struct {
	UserID     string
	EntityID   string
	TargetLang string
	Status     domain.VerificationStatus
}

func (f HistoryFilter) apply(q *gorm.DB) *gorm.DB {
	if f.UserID != "" {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.EntityID != "" {
		q = q.Where("entity_id = ?", f.EntityID)
	}
	if f.TargetLang != "" {
		q = q.Where("target_lang = ?", f.TargetLang)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	return q
}

// CountHistory returns how many rows match f.
func CountHistory(ctx context.Context, db *gorm.DB, f HistoryFilter) (int64, error) {
	var total int64
	err := f.apply(db.WithContext(ctx).Model(&domain.TranslationHistory{})).Count(&total).Error
	return total, err
}

// ListHistoryPage returns rows matching f, newest first.
func ListHistoryPage(ctx context.Context, db *gorm.DB, f HistoryFilter, offset, limit int) ([]domain.TranslationHistory, error) {
	var out []domain.TranslationHistory
	err := f.apply(db.WithContext(ctx)).
		Order("created_at desc").
		Order("id desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// UpdateHistoryReview persists the mutable review columns of h. The text
// columns are never part of the update.
func UpdateHistoryReview(ctx context.Context, db *gorm.DB, h *domain.TranslationHistory) error {
	res := db.WithContext(ctx).
		Model(&domain.TranslationHistory{}).
		Where("id = ?", h.ID).
		Updates(map[string]any{
			"quality_score": h.QualityScore,
			"status":        h.Status,
			"verified_by":   h.VerifiedBy,
			"verified_at":   h.VerifiedAt,
			"feedback":      h.Feedback,
			"updated_at":    time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// HistoryStats returns the number of rows matching f and the greatest
// UpdatedAt among them (nil when there are none). Together they version a
// history listing for conditional GETs.
func HistoryStats(ctx context.Context, db *gorm.DB, f HistoryFilter) (int64, *time.Time, error) {
	n, err := CountHistory(ctx, db, f)
	if err != nil || n == 0 {
		return 0, nil, err
	}
	// MAX(updated_at) comes back as TEXT from SQLite, so read the newest row.
	var latest domain.TranslationHistory
	err = f.apply(db.WithContext(ctx)).
		Select("updated_at").
		Order("updated_at desc").
		Take(&latest).Error
	if err != nil {
		return 0, nil, err
	}
	return n, &latest.UpdatedAt, nil
}
