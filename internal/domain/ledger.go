// Package domain – credit ledger
package domain

import "time"

// CreditLedger is a user's translation quota for the current billing period.
// There is one row per user; ResetForPeriod rolls it into a new period.
//
// Invariant: while Active, CreditsUsed <= CreditsAvailable. Deduct either
// applies in full or not at all.
type CreditLedger struct {
	ID                string    `json:"id"                 gorm:"type:char(36);primaryKey"`
	UserID            string    `json:"user_id"            gorm:"type:varchar(64);not null;uniqueIndex"`
	PeriodStart       time.Time `json:"period_start"       gorm:"not null"`
	PeriodEnd         time.Time `json:"period_end"         gorm:"not null;index"`
	CreditsAvailable  int       `json:"credits_available"  gorm:"not null;check:credits_available >= 0"`
	CreditsUsed       int       `json:"credits_used"       gorm:"not null;check:credits_used >= 0"`
	TotalTranslations int       `json:"total_translations" gorm:"not null"`
	Active            bool      `json:"active"             gorm:"not null;index"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// TableName returns the database table name for CreditLedger.
func (CreditLedger) TableName() string { return "credit_ledgers" }

// Remaining returns the credits still spendable in the period (0 if inactive).
func (l *CreditLedger) Remaining() int {
	if !l.Active {
		return 0
	}
	if r := l.CreditsAvailable - l.CreditsUsed; r > 0 {
		return r
	}
	return 0
}

// HasCredits reports whether n credits can be spent.
func (l *CreditLedger) HasCredits(n int) bool {
	return n >= 0 && l.Active && l.Remaining() >= n
}

// Deduct spends n credits and counts one translation. It returns false and
// leaves the ledger untouched when n is not positive or exceeds Remaining.
func (l *CreditLedger) Deduct(n int) bool {
	if n <= 0 || !l.HasCredits(n) {
		return false
	}
	l.CreditsUsed += n
	l.TotalTranslations++
	return true
}

// ResetForPeriod starts a new period with a fresh allowance. The lifetime
// TotalTranslations counter is kept.
func (l *CreditLedger) ResetForPeriod(credits int, start, end time.Time) {
	if credits < 0 {
		credits = 0
	}
	l.CreditsAvailable = credits
	l.CreditsUsed = 0
	l.PeriodStart = start.UTC()
	l.PeriodEnd = end.UTC()
	l.Active = true
}

// UsagePercentage returns CreditsUsed as a percentage of CreditsAvailable,
// in [0, 100].
func (l *CreditLedger) UsagePercentage() float64 {
	if l.CreditsAvailable <= 0 {
		return 0
	}
	p := float64(l.CreditsUsed) / float64(l.CreditsAvailable) * 100
	if p > 100 {
		return 100
	}
	return p
}

// IsExpired reports whether the period has ended at now.
func (l *CreditLedger) IsExpired(now time.Time) bool {
	return !now.Before(l.PeriodEnd)
}

// MarkExpired deactivates the ledger.
func (l *CreditLedger) MarkExpired() { l.Active = false }
