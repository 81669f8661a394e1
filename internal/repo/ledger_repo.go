// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for credit
// ledgers.
//
// Mutations that must be atomic are single UPDATE statements built with
// squirrel and executed through the GORM handle, so they also work inside a
// caller's transaction.
package repo

import (
	"context"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-translate-backend/internal/domain"
)

// GetLedger returns the ledger of userID or ErrNotFound.
func GetLedger(ctx context.Context, db *gorm.DB, userID string) (*domain.CreditLedger, error) {
	var l domain.CreditLedger
	err := db.WithContext(ctx).Where("user_id = ?", userID).First(&l).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// ResetLedger starts a new period for userID, creating the ledger on first
// use. The lifetime translation counter survives the reset.
func ResetLedger(ctx context.Context, db *gorm.DB, userID string, credits int, start, end time.Time) (*domain.CreditLedger, error) {
	var out *domain.CreditLedger
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		l, err := GetLedger(ctx, tx, userID)
		switch {
		case errors.Is(err, ErrNotFound):
			l = &domain.CreditLedger{ID: uuid.NewString(), UserID: userID}
			l.ResetForPeriod(credits, start, end)
			if err := tx.Create(l).Error; err != nil {
				if isDuplicate(err) {
					return ErrDuplicate
				}
				return err
			}
		case err != nil:
			return err
		default:
			l.ResetForPeriod(credits, start, end)
			if err := tx.Save(l).Error; err != nil {
				return err
			}
		}
		out = l
		return nil
	})
	return out, err
}

// DeductCredits atomically spends n credits of userID's active, unexpired
// ledger and counts one translation. The quota check and the increment are a
// single conditional UPDATE, so concurrent callers cannot overdraw. It
// reports false when the ledger is missing, inactive, expired or short.
func DeductCredits(ctx context.Context, db *gorm.DB, userID string, n int, now time.Time) (bool, error) {
	if n <= 0 {
		return false, nil
	}
	sqlStr, args, err := sq.Update(domain.CreditLedger{}.TableName()).
		Set("credits_used", sq.Expr("credits_used + ?", n)).
		Set("total_translations", sq.Expr("total_translations + 1")).
		Set("updated_at", now.UTC()).
		Where(sq.Eq{"user_id": userID, "active": true}).
		Where(sq.Gt{"period_end": now.UTC()}).
		Where("credits_used + ? <= credits_available", n).
		ToSql()
	if err != nil {
		return false, err
	}
	res := db.WithContext(ctx).Exec(sqlStr, args...)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ExpireLedgers deactivates every active ledger whose period ended before
// now and returns how many were touched.
func ExpireLedgers(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	sqlStr, args, err := sq.Update(domain.CreditLedger{}.TableName()).
		Set("active", false).
		Set("updated_at", now.UTC()).
		Where(sq.Eq{"active": true}).
		Where(sq.LtOrEq{"period_end": now.UTC()}).
		ToSql()
	if err != nil {
		return 0, err
	}
	res := db.WithContext(ctx).Exec(sqlStr, args...)
	return res.RowsAffected, res.Error
}
