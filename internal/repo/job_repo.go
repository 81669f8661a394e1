// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for background
// translation jobs.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-translate-backend/internal/domain"
)

// CreateJob inserts a queued job.
func CreateJob(ctx context.Context, db *gorm.DB, userID, entityID, targetLang string, total int) (*domain.TranslationJob, error) {
	j := &domain.TranslationJob{
		ID:         uuid.NewString(),
		UserID:     userID,
		EntityID:   entityID,
		TargetLang: targetLang,
		Status:     domain.JobQueued,
		Total:      total,
		CreatedAt:  time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(j).Error; err != nil {
		return nil, err
	}
	return j, nil
}

// GetJob fetches a job owned by userID (any owner when userID is empty).
func GetJob(ctx context.Context, db *gorm.DB, id, userID string) (*domain.TranslationJob, error) {
	q := db.WithContext(ctx).Where("id = ?", id)
	if userID != "" {
		q = q.Where("user_id = ?", userID)
	}
	var j domain.TranslationJob
	err := q.First(&j).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &j, nil
}

// SaveJob persists every column of j.
func SaveJob(ctx context.Context, db *gorm.DB, j *domain.TranslationJob) error {
	j.UpdatedAt = time.Now().UTC()
	return db.WithContext(ctx).Save(j).Error
}
