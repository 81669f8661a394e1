// Package services – EntityService
//
// This file implements creation and lookup of translatable entities and
// their sections, plus listing of the field translations stored for them.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/tbourn/go-translate-backend/internal/content"
	"github.com/tbourn/go-translate-backend/internal/domain"
	"github.com/tbourn/go-translate-backend/internal/repo"
)

// Limits on entity input.
const (
	MaxTitleLen    = 255
	MaxSubtitleLen = 255
	MaxSections    = 200
)

// ErrInvalidEntity wraps every validation failure of NewEntity.
var ErrInvalidEntity = errors.New("invalid entity")

// NewEntity is the input of EntityService.Create.
type NewEntity struct {
	Title      string
	Subtitle   string
	SourceLang string
	Sections   []NewSection
}

// NewSection is one content block of a NewEntity.
type NewSection struct {
	Category string
	Content  content.Value
}

// EntityService stores translatable entities and reads back their
// translations.
type EntityService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Languages canonicalizes the source language of new entities.
	Languages *LanguageService
}

// Create validates in and stores it owned by ownerID. An empty source
// language defaults to English.
func (s *EntityService) Create(ctx context.Context, ownerID string, in NewEntity) (*domain.Entity, error) {
	tr := otel.Tracer("services/EntityService")
	ctx, span := tr.Start(ctx, "Create", trace.WithAttributes(
		attribute.String("user.id", ownerID),
		attribute.Int("sections", len(in.Sections)),
	))
	defer span.End()

	title := strings.TrimSpace(in.Title)
	switch {
	case title == "":
		return nil, fmt.Errorf("%w: title is required", ErrInvalidEntity)
	case len(title) > MaxTitleLen:
		return nil, fmt.Errorf("%w: title longer than %d bytes", ErrInvalidEntity, MaxTitleLen)
	case len(in.Subtitle) > MaxSubtitleLen:
		return nil, fmt.Errorf("%w: subtitle longer than %d bytes", ErrInvalidEntity, MaxSubtitleLen)
	case len(in.Sections) > MaxSections:
		return nil, fmt.Errorf("%w: more than %d sections", ErrInvalidEntity, MaxSections)
	}

	src := in.SourceLang
	if src == "" {
		src = "en"
	}
	src, err := s.Languages.Source(src)
	if err != nil {
		return nil, err
	}

	e := &domain.Entity{
		OwnerID:    ownerID,
		Title:      title,
		Subtitle:   strings.TrimSpace(in.Subtitle),
		SourceLang: src,
	}
	for i, sec := range in.Sections {
		if sec.Content.IsZero() {
			return nil, fmt.Errorf("%w: section %d has no content", ErrInvalidEntity, i)
		}
		b, err := sec.Content.Canonical()
		if err != nil {
			return nil, fmt.Errorf("%w: section %d: %v", ErrInvalidEntity, i, err)
		}
		cat := strings.TrimSpace(sec.Category)
		if cat == "" {
			cat = "simple_text"
		}
		e.Sections = append(e.Sections, domain.Section{Category: cat, Content: datatypes.JSON(b)})
	}

	if err := repo.CreateEntity(ctx, s.DB, e); err != nil {
		return nil, err
	}
	return e, nil
}

// Get returns an entity owned by ownerID with its sections in order.
func (s *EntityService) Get(ctx context.Context, id, ownerID string) (*domain.Entity, error) {
	e, err := repo.GetEntity(ctx, s.DB, id, ownerID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrEntityNotFound
	}
	return e, err
}

// Translations lists the stored field translations of an entity, optionally
// limited to one target language.
func (s *EntityService) Translations(ctx context.Context, id, ownerID, targetLang string) ([]domain.FieldTranslation, error) {
	if _, err := s.Get(ctx, id, ownerID); err != nil {
		return nil, err
	}
	if targetLang != "" {
		l, err := s.Languages.Target(ctx, targetLang)
		if err != nil {
			return nil, err
		}
		targetLang = l.Code
	}
	return repo.ListFieldTranslations(ctx, s.DB, id, targetLang)
}
