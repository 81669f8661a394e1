// Package domain – translation history
//
// TranslationHistory is the journal row and VerificationStatus its review
// state. The text columns are write-once, enforced by a BeforeUpdate hook.
package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// VerificationStatus is the review state of a translation.
type VerificationStatus string

const (
	VerificationPending      VerificationStatus = "pending"
	VerificationAutoVerified VerificationStatus = "auto_verified"
	VerificationNeedsReview  VerificationStatus = "needs_review"
	VerificationApproved     VerificationStatus = "approved"
	VerificationRejected     VerificationStatus = "rejected"
)

// Terminal reports whether no further transition is allowed.
func (s VerificationStatus) Terminal() bool {
	return s == VerificationApproved || s == VerificationRejected
}

// Score thresholds for automatic bucketing.
const (
	AutoVerifyScore = 80
	ReviewScore     = 60
)

// BucketForScore maps a quality score to the automatic review state.
func BucketForScore(score int) VerificationStatus {
	switch {
	case score >= AutoVerifyScore:
		return VerificationAutoVerified
	case score < ReviewScore:
		return VerificationNeedsReview
	default:
		return VerificationPending
	}
}

// Translation methods recorded on history rows.
const (
	MethodAI     = "ai"
	MethodCached = "cached"
)

var (
	// ErrInvalidVerification is returned when a manual verdict is neither
	// approved nor rejected.
	ErrInvalidVerification = errors.New("verification status must be approved or rejected")
	// ErrAlreadyVerified is returned when a terminal record is verified again.
	ErrAlreadyVerified = errors.New("translation already verified")
	// ErrImmutableHistory guards the write-once text columns.
	ErrImmutableHistory = errors.New("history text is immutable")
)

// TranslationHistory is the journal row written for every charged
// translation, provider-backed or cached. SourceText, TranslatedText and
// CharacterCount are written once at creation.
type TranslationHistory struct {
	ID               string             `json:"id"                gorm:"type:char(36);primaryKey"`
	UserID           string             `json:"user_id"           gorm:"type:varchar(64);not null;index:idx_history_user,priority:1"`
	EntityID         string             `json:"entity_id,omitempty" gorm:"type:varchar(64);index"`
	FieldKey         string             `json:"field_key,omitempty" gorm:"type:varchar(128)"`
	Category         string             `json:"category"          gorm:"type:varchar(32);not null"`
	SourceLang       string             `json:"source_lang"       gorm:"type:varchar(16);not null"`
	TargetLang       string             `json:"target_lang"       gorm:"type:varchar(16);not null"`
	SourceText       string             `json:"source_text"       gorm:"type:text;not null"`
	TranslatedText   string             `json:"translated_text"   gorm:"type:text;not null"`
	Method           string             `json:"method"            gorm:"type:varchar(16);not null"`
	Provider         string             `json:"provider"          gorm:"type:varchar(32)"`
	Model            string             `json:"model"             gorm:"type:varchar(64)"`
	NormalizeStatus  string             `json:"normalize_status"  gorm:"type:varchar(16)"`
	QualityScore     *int               `json:"quality_score,omitempty"`
	Status           VerificationStatus `json:"status"            gorm:"type:varchar(16);not null;index"`
	CharacterCount   int                `json:"character_count"   gorm:"not null"`
	CreditsUsed      int                `json:"credits_used"      gorm:"not null"`
	PromptTokens     int                `json:"prompt_tokens"`
	CompletionTokens int                `json:"completion_tokens"`
	Cost             decimal.Decimal    `json:"cost"              gorm:"type:decimal(12,6);not null"`
	Metadata         datatypes.JSONMap  `json:"metadata,omitempty"`
	VerifiedBy       string             `json:"verified_by,omitempty" gorm:"type:varchar(64)"`
	VerifiedAt       *time.Time         `json:"verified_at,omitempty"`
	Feedback         string             `json:"feedback,omitempty" gorm:"type:text"`
	CreatedAt        time.Time          `json:"created_at"        gorm:"index:idx_history_user,priority:2"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

// TableName returns the database table name for TranslationHistory.
func (TranslationHistory) TableName() string { return "translation_history" }

// BeforeUpdate rejects updates touching the write-once columns.
func (h *TranslationHistory) BeforeUpdate(tx *gorm.DB) error {
	if tx.Statement.Changed("SourceText", "TranslatedText", "CharacterCount") {
		return ErrImmutableHistory
	}
	return nil
}

// ApplyScore records a quality score (clamped to 0..100) and, unless the
// record is terminal, re-buckets its status. Re-applying the same score is a
// no-op.
func (h *TranslationHistory) ApplyScore(score int) {
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	h.QualityScore = &score
	if !h.Status.Terminal() {
		h.Status = BucketForScore(score)
	}
}

// MarkVerified applies a manual verdict from any non-terminal state.
func (h *TranslationHistory) MarkVerified(verifierID string, status VerificationStatus, feedback string, now time.Time) error {
	if !status.Terminal() {
		return ErrInvalidVerification
	}
	if h.Status.Terminal() {
		return ErrAlreadyVerified
	}
	at := now.UTC()
	h.Status = status
	h.VerifiedBy = verifierID
	h.VerifiedAt = &at
	h.Feedback = feedback
	return nil
}
