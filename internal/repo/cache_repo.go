// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// translation cache: TTL-aware reads, upserts, hit counting and purging.
package repo

import (
	"context"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-translate-backend/internal/domain"
)

// GetCacheEntry returns the live entry stored under key or ErrNotFound.
// Expired entries are treated as missing.
func GetCacheEntry(ctx context.Context, db *gorm.DB, key string, now time.Time) (*domain.CacheEntry, error) {
	var e domain.CacheEntry
	err := db.WithContext(ctx).
		Where("key = ? AND expires_at > ?", key, now.UTC()).
		First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// PutCacheEntry inserts e or replaces the entry with the same key,
// resetting its hit counter.
func PutCacheEntry(ctx context.Context, db *gorm.DB, e *domain.CacheEntry) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"source_lang", "target_lang", "category", "data", "status",
			"provider", "model", "hits", "updated_at", "expires_at",
		}),
	}).Create(e).Error
}

// TouchCacheEntry increments the hit counter of key.
func TouchCacheEntry(ctx context.Context, db *gorm.DB, key string) error {
	return db.WithContext(ctx).
		Model(&domain.CacheEntry{}).
		Where("key = ?", key).
		UpdateColumn("hits", gorm.Expr("hits + 1")).Error
}

// PurgeExpiredCache deletes entries that expired at or before now and
// returns how many were removed.
func PurgeExpiredCache(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	sqlStr, args, err := sq.Delete(domain.CacheEntry{}.TableName()).
		Where(sq.LtOrEq{"expires_at": now.UTC()}).
		ToSql()
	if err != nil {
		return 0, err
	}
	res := db.WithContext(ctx).Exec(sqlStr, args...)
	return res.RowsAffected, res.Error
}
