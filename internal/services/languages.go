// Package services – LanguageService
//
// This file implements the language catalog: the built-in list or a YAML
// override, seeding it into the database, and validating source and target
// codes against it.
package services

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/tbourn/go-translate-backend/internal/domain"
	"github.com/tbourn/go-translate-backend/internal/lang"
	"github.com/tbourn/go-translate-backend/internal/repo"
)

// DefaultLanguageCodes is the catalog seeded on startup, in display order.
var DefaultLanguageCodes = []string{
	"en", "es", "fr", "de", "it", "pt", "nl", "pl", "sv", "da", "fi", "cs",
	"el", "ro", "hu", "ru", "uk", "tr", "ar", "he", "fa", "ur", "hi", "bn",
	"ja", "ko", "zh", "th", "vi", "id",
}

// LanguageFile is the YAML shape of LANGUAGES_FILE. Entries override the
// default catalog by code or add new languages.
//
//	languages:
//	  - code: fr
//	    native_name: Français
//	  - code: tlh
//	    name: Klingon
//	    active: false
type LanguageFile struct {
	Languages []LanguageEntry `yaml:"languages"`
}

// LanguageEntry overrides one catalog row. Omitted fields keep the derived
// defaults.
type LanguageEntry struct {
	Code       string `yaml:"code"`
	Name       string `yaml:"name"`
	NativeName string `yaml:"native_name"`
	RTL        *bool  `yaml:"rtl"`
	Active     *bool  `yaml:"active"`
}

// LanguageService manages the language catalog.
type LanguageService struct {
	DB *gorm.DB
}

// Catalog builds the catalog rows from the defaults plus the optional YAML
// file at path.
func Catalog(path string) ([]domain.Language, error) {
	var out []domain.Language
	index := map[string]int{}
	add := func(code string) (int, error) {
		c, err := lang.Canonicalize(code)
		if err != nil {
			return 0, err
		}
		if i, ok := index[c]; ok {
			return i, nil
		}
		out = append(out, domain.Language{
			Code:       c,
			Name:       lang.EnglishName(c),
			NativeName: lang.NativeName(c),
			RTL:        lang.IsRTL(c),
			Active:     true,
			SortOrder:  len(out),
		})
		index[c] = len(out) - 1
		return len(out) - 1, nil
	}
	for _, code := range DefaultLanguageCodes {
		if _, err := add(code); err != nil {
			return nil, err
		}
	}
	if path == "" {
		return out, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read languages file: %w", err)
	}
	var f LanguageFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse languages file: %w", err)
	}
	for _, e := range f.Languages {
		i, err := add(e.Code)
		if err != nil {
			return nil, fmt.Errorf("languages file: %w", err)
		}
		l := &out[i]
		if e.Name != "" {
			l.Name = e.Name
		}
		if e.NativeName != "" {
			l.NativeName = e.NativeName
		}
		if e.RTL != nil {
			l.RTL = *e.RTL
		}
		if e.Active != nil {
			l.Active = *e.Active
		}
	}
	return out, nil
}

// Seed writes the catalog into the database.
func (s *LanguageService) Seed(ctx context.Context, path string) (int, error) {
	tr := otel.Tracer("services/LanguageService")
	ctx, span := tr.Start(ctx, "Seed")
	defer span.End()

	langs, err := Catalog(path)
	if err != nil {
		return 0, err
	}
	if err := repo.UpsertLanguages(ctx, s.DB, langs); err != nil {
		return 0, err
	}
	return len(langs), nil
}

// List returns the catalog; activeOnly hides disabled languages.
func (s *LanguageService) List(ctx context.Context, activeOnly bool) ([]domain.Language, error) {
	return repo.ListLanguages(ctx, s.DB, activeOnly)
}

// Source canonicalizes a source-language code. Any well-formed tag is
// accepted as a source.
func (s *LanguageService) Source(code string) (string, error) {
	c, err := lang.Canonicalize(code)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSourceLanguage, err)
	}
	return c, nil
}

// Target canonicalizes code and checks it is an active catalog language.
func (s *LanguageService) Target(ctx context.Context, code string) (*domain.Language, error) {
	c, err := lang.Canonicalize(code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTargetLanguage, err)
	}
	l, err := repo.GetLanguage(ctx, s.DB, c)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s is not supported", ErrInvalidTargetLanguage, c)
	}
	if err != nil {
		return nil, err
	}
	if !l.Active {
		return nil, fmt.Errorf("%w: %s is disabled", ErrInvalidTargetLanguage, c)
	}
	return l, nil
}

// AvailableTargets returns the active languages a text in sourceLang can be
// translated into.
func (s *LanguageService) AvailableTargets(ctx context.Context, sourceLang string) ([]domain.Language, error) {
	tr := otel.Tracer("services/LanguageService")
	ctx, span := tr.Start(ctx, "AvailableTargets", trace.WithAttributes(attribute.String("source_lang", sourceLang)))
	defer span.End()

	src, err := s.Source(sourceLang)
	if err != nil {
		return nil, err
	}
	all, err := repo.ListLanguages(ctx, s.DB, true)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Language, 0, len(all))
	for _, l := range all {
		if !lang.Same(l.Code, src) {
			out = append(out, l)
		}
	}
	return out, nil
}
