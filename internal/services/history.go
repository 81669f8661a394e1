// Package services – HistoryService
//
// This file implements the translation journal: paginated listing with
// filters, the stats used for ETags, and the verification state machine
// (pending, auto_verified and needs_review may move to approved or rejected;
// those two are final).
package services

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-translate-backend/internal/domain"
	"github.com/tbourn/go-translate-backend/internal/repo"
)

// HistoryService reads the translation journal and drives the verification
// state machine.
type HistoryService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Now overrides the clock used for verification timestamps (tests).
	Now func() time.Time
}

func (s *HistoryService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Get returns a journal row.
func (s *HistoryService) Get(ctx context.Context, id string) (*domain.TranslationHistory, error) {
	h, err := repo.GetHistory(ctx, s.DB, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrHistoryNotFound
	}
	return h, err
}

// ListPage returns a page of rows matching f, newest first, plus the total.
func (s *HistoryService) ListPage(ctx context.Context, f repo.HistoryFilter, page, pageSize int) ([]domain.TranslationHistory, int64, error) {
	tr := otel.Tracer("services/HistoryService")
	ctx, span := tr.Start(ctx, "ListPage", trace.WithAttributes(
		attribute.String("user.id", f.UserID),
		attribute.Int("page", page),
		attribute.Int("page_size", pageSize),
	))
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	total, err := repo.CountHistory(ctx, s.DB, f)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.TranslationHistory{}, 0, nil
	}
	items, err := repo.ListHistoryPage(ctx, s.DB, f, (page-1)*pageSize, pageSize)
	return items, total, err
}

// Stats returns the row count and latest update among rows matching f.
func (s *HistoryService) Stats(ctx context.Context, f repo.HistoryFilter) (int64, *time.Time, error) {
	return repo.HistoryStats(ctx, s.DB, f)
}

// Verify applies a manual verdict (approved or rejected) from any
// non-terminal state.
func (s *HistoryService) Verify(ctx context.Context, id, verifierID string, status domain.VerificationStatus, feedback string) (*domain.TranslationHistory, error) {
	tr := otel.Tracer("services/HistoryService")
	ctx, span := tr.Start(ctx, "Verify", trace.WithAttributes(
		attribute.String("history.id", id),
		attribute.String("status", string(status)),
	))
	defer span.End()

	if !status.Terminal() {
		return nil, ErrInvalidVerification
	}
	var out *domain.TranslationHistory
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		h, err := repo.GetHistory(ctx, tx, id)
		if errors.Is(err, repo.ErrNotFound) {
			return ErrHistoryNotFound
		}
		if err != nil {
			return err
		}
		if err := h.MarkVerified(verifierID, status, feedback, s.now()); err != nil {
			return err
		}
		if err := repo.UpdateHistoryReview(ctx, tx, h); err != nil {
			return err
		}
		out = h
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ApplyScore stores a quality score and re-buckets the row. Re-applying the
// same score leaves the row as it was.
func (s *HistoryService) ApplyScore(ctx context.Context, id string, score int) (*domain.TranslationHistory, error) {
	var out *domain.TranslationHistory
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		h, err := repo.GetHistory(ctx, tx, id)
		if errors.Is(err, repo.ErrNotFound) {
			return ErrHistoryNotFound
		}
		if err != nil {
			return err
		}
		h.ApplyScore(score)
		if err := repo.UpdateHistoryReview(ctx, tx, h); err != nil {
			return err
		}
		out = h
		return nil
	})
	return out, err
}
