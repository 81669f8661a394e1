// Package domain defines the persistence models of the translation service.
// These types are mapped with GORM and shared by the repository and service
// layers.
package domain

import (
	"time"

	"gorm.io/datatypes"

	"github.com/tbourn/go-translate-backend/internal/content"
)

// Entity is a translatable document owned by a user: a header (title and
// subtitle) plus ordered sections of categorized content.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - OwnerID: identifier of the owning user; indexed.
//   - Title / Subtitle: header text, translated together as one field.
//   - SourceLang: language the content is authored in.
//   - Sections: ordered content blocks, cascade-deleted with the entity.
type Entity struct {
	ID         string    `json:"id"          gorm:"type:char(36);primaryKey"`
	OwnerID    string    `json:"owner_id"    gorm:"type:varchar(64);not null;index"`
	Title      string    `json:"title"       gorm:"type:varchar(255);not null"`
	Subtitle   string    `json:"subtitle"    gorm:"type:varchar(255)"`
	SourceLang string    `json:"source_lang" gorm:"type:varchar(16);not null"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	Sections []Section `json:"sections,omitempty" gorm:"foreignKey:EntityID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Entity.
func (Entity) TableName() string { return "entities" }

// HeaderFieldKey is the field key of an entity's title/subtitle pair.
const HeaderFieldKey = "header"

// Header returns the title and subtitle as one structured value. A missing
// subtitle is omitted.
func (e Entity) Header() content.Value {
	m := map[string]any{"title": e.Title}
	if e.Subtitle != "" {
		m["subtitle"] = e.Subtitle
	}
	return content.Structured(m)
}

// Section is one categorized block of an Entity. Content holds the canonical
// JSON of a content.Value (a JSON string or object).
type Section struct {
	ID        string         `json:"id"         gorm:"type:char(36);primaryKey"`
	EntityID  string         `json:"entity_id"  gorm:"type:char(36);not null;index:idx_entity_sections,priority:1"`
	Position  int            `json:"position"   gorm:"not null;index:idx_entity_sections,priority:2"`
	Category  string         `json:"category"   gorm:"type:varchar(32);not null"`
	Content   datatypes.JSON `json:"content"    gorm:"not null"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// TableName returns the database table name for Section.
func (Section) TableName() string { return "sections" }

// FieldKey is the key under which the section is translated.
func (s Section) FieldKey() string { return "section:" + s.ID }

// Value decodes Content.
func (s Section) Value() (content.Value, error) { return content.FromJSON(s.Content) }

// FieldTranslation is the latest translated content of one field of an
// entity in one target language.
type FieldTranslation struct {
	ID         string         `json:"id"          gorm:"type:char(36);primaryKey"`
	EntityID   string         `json:"entity_id"   gorm:"type:char(36);not null;uniqueIndex:ux_field_lang,priority:1"`
	FieldKey   string         `json:"field_key"   gorm:"type:varchar(128);not null;uniqueIndex:ux_field_lang,priority:2"`
	TargetLang string         `json:"target_lang" gorm:"type:varchar(16);not null;uniqueIndex:ux_field_lang,priority:3"`
	Category   string         `json:"category"    gorm:"type:varchar(32);not null"`
	Content    datatypes.JSON `json:"content"     gorm:"not null"`
	Status     string         `json:"status"      gorm:"type:varchar(16);not null"`
	HistoryID  string         `json:"history_id"  gorm:"type:char(36)"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// TableName returns the database table name for FieldTranslation.
func (FieldTranslation) TableName() string { return "field_translations" }

// Language is a catalog entry. Inactive languages are rejected as targets.
type Language struct {
	Code       string    `json:"code"        gorm:"type:varchar(16);primaryKey"`
	Name       string    `json:"name"        gorm:"type:varchar(64);not null"`
	NativeName string    `json:"native_name" gorm:"type:varchar(64)"`
	RTL        bool      `json:"rtl"         gorm:"not null"`
	Active     bool      `json:"active"      gorm:"not null;index"`
	SortOrder  int       `json:"sort_order"  gorm:"not null"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName returns the database table name for Language.
func (Language) TableName() string { return "languages" }

// CacheEntry maps a content hash to a normalized translation.
type CacheEntry struct {
	Key        string         `gorm:"type:char(64);primaryKey"`
	SourceLang string         `gorm:"type:varchar(16);not null"`
	TargetLang string         `gorm:"type:varchar(16);not null"`
	Category   string         `gorm:"type:varchar(32);not null"`
	Data       datatypes.JSON `gorm:"not null"`
	Status     string         `gorm:"type:varchar(16);not null"`
	Provider   string         `gorm:"type:varchar(32)"`
	Model      string         `gorm:"type:varchar(64)"`
	Hits       int            `gorm:"not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
	ExpiresAt  time.Time `gorm:"not null;index"`
}

// TableName returns the database table name for CacheEntry.
func (CacheEntry) TableName() string { return "translation_cache" }

// Expired reports whether the entry is stale at now.
func (c CacheEntry) Expired(now time.Time) bool { return !now.Before(c.ExpiresAt) }

// JobStatus is the lifecycle state of an asynchronous bulk translation.
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// TranslationJob tracks an asynchronous whole-entity translation.
// Errors maps field keys to failure reasons; Error holds a batch-level
// failure such as an exceeded quota.
type TranslationJob struct {
	ID         string            `json:"id"          gorm:"type:char(36);primaryKey"`
	UserID     string            `json:"user_id"     gorm:"type:varchar(64);not null;index"`
	EntityID   string            `json:"entity_id"   gorm:"type:char(36);not null;index"`
	TargetLang string            `json:"target_lang" gorm:"type:varchar(16);not null"`
	Status     JobStatus         `json:"status"      gorm:"type:varchar(16);not null"`
	Total      int               `json:"total"       gorm:"not null"`
	Translated int               `json:"translated"  gorm:"not null"`
	Failed     int               `json:"failed"      gorm:"not null"`
	Skipped    int               `json:"skipped"     gorm:"not null;default:0"`
	Errors     datatypes.JSONMap `json:"errors,omitempty"`
	Error      string            `json:"error,omitempty" gorm:"type:text"`
	StartedAt  *time.Time        `json:"started_at,omitempty"`
	FinishedAt *time.Time        `json:"finished_at,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// TableName returns the database table name for TranslationJob.
func (TranslationJob) TableName() string { return "translation_jobs" }

// Processed counts the fields that reached an outcome so far.
func (j TranslationJob) Processed() int { return j.Translated + j.Failed + j.Skipped }

// Done reports whether the job reached a final state.
func (j TranslationJob) Done() bool { return j.Status == JobCompleted || j.Status == JobFailed }
