// Package services – CreditService
//
// This file implements per-user credit accounting on top of the ledger
// repository. Check is advisory; Deduct is the authoritative step and runs
// as a single conditional UPDATE, so concurrent requests cannot overdraw a
// ledger. Grant starts a new period and ExpireDue deactivates ended ones.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-translate-backend/internal/domain"
	"github.com/tbourn/go-translate-backend/internal/repo"
)

var creditsDeducted = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "translator_credits_deducted_total",
	Help: "Credits spent on translations.",
})

func init() {
	prometheus.MustRegister(creditsDeducted)
}

// CreditsSummary is the user-facing view of a ledger.
type CreditsSummary struct {
	UserID            string     `json:"user_id"`
	CreditsAvailable  int        `json:"credits_available"`
	CreditsUsed       int        `json:"credits_used"`
	Remaining         int        `json:"remaining"`
	TotalTranslations int        `json:"total_translations"`
	UsagePercentage   float64    `json:"usage_percentage"`
	Active            bool       `json:"active"`
	PeriodStart       *time.Time `json:"period_start,omitempty"`
	PeriodEnd         *time.Time `json:"period_end,omitempty"`
}

// CreditService owns per-user quota accounting.
type CreditService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Now overrides the clock (tests).
	Now func() time.Time
}

func (s *CreditService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Summary reports the user's ledger. A user without a ledger gets an empty,
// inactive summary. A ledger whose period has ended is deactivated first.
func (s *CreditService) Summary(ctx context.Context, userID string) (*CreditsSummary, error) {
	tr := otel.Tracer("services/CreditService")
	ctx, span := tr.Start(ctx, "Summary", trace.WithAttributes(attribute.String("user.id", userID)))
	defer span.End()

	l, err := s.load(ctx, s.DB, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return &CreditsSummary{UserID: userID}, nil
	}
	if err != nil {
		return nil, err
	}
	start, end := l.PeriodStart, l.PeriodEnd
	return &CreditsSummary{
		UserID:            userID,
		CreditsAvailable:  l.CreditsAvailable,
		CreditsUsed:       l.CreditsUsed,
		Remaining:         l.Remaining(),
		TotalTranslations: l.TotalTranslations,
		UsagePercentage:   l.UsagePercentage(),
		Active:            l.Active,
		PeriodStart:       &start,
		PeriodEnd:         &end,
	}, nil
}

// Remaining returns the spendable credits of userID (0 without a ledger).
func (s *CreditService) Remaining(ctx context.Context, userID string) (int, error) {
	l, err := s.load(ctx, s.DB, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return l.Remaining(), nil
}

// Check returns ErrQuotaExceeded unless n credits are available now. It does
// not reserve anything; Deduct remains the authoritative, atomic step.
func (s *CreditService) Check(ctx context.Context, userID string, n int) error {
	l, err := s.load(ctx, s.DB, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrQuotaExceeded
	}
	if err != nil {
		return err
	}
	if !l.HasCredits(n) {
		return ErrQuotaExceeded
	}
	return nil
}

// Deduct spends n credits within db (which may be a transaction). It returns
// ErrQuotaExceeded when the conditional update matched no ledger.
func (s *CreditService) Deduct(ctx context.Context, db *gorm.DB, userID string, n int) error {
	ok, err := repo.DeductCredits(ctx, db, userID, n, s.now())
	if err != nil {
		return err
	}
	if !ok {
		return ErrQuotaExceeded
	}
	creditsDeducted.Add(float64(n))
	return nil
}

// Grant starts a new period of the given length with a fresh allowance.
func (s *CreditService) Grant(ctx context.Context, userID string, credits int, period time.Duration) (*domain.CreditLedger, error) {
	tr := otel.Tracer("services/CreditService")
	ctx, span := tr.Start(ctx, "Grant", trace.WithAttributes(
		attribute.String("user.id", userID),
		attribute.Int("credits", credits),
	))
	defer span.End()

	start := s.now()
	return repo.ResetLedger(ctx, s.DB, userID, credits, start, start.Add(period))
}

// ExpireDue deactivates every ledger whose period has ended.
func (s *CreditService) ExpireDue(ctx context.Context) (int64, error) {
	return repo.ExpireLedgers(ctx, s.DB, s.now())
}

func (s *CreditService) load(ctx context.Context, db *gorm.DB, userID string) (*domain.CreditLedger, error) {
	l, err := repo.GetLedger(ctx, db, userID)
	if err != nil {
		return nil, err
	}
	if l.Active && l.IsExpired(s.now()) {
		l.MarkExpired()
		if err := db.WithContext(ctx).Model(&domain.CreditLedger{}).
			Where("id = ?", l.ID).Update("active", false).Error; err != nil {
			return nil, err
		}
	}
	return l, nil
}
