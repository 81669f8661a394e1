// Package services – quality scoring
//
// HeuristicScorer rates a translation from 0 to 100 using cheap signals
// (untranslated text, lost URLs or prices, length ratio, missing keys).
// ScoringService applies the score to a journal row, which moves it to
// auto_verified or needs_review.
package services

import (
	"context"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-translate-backend/internal/content"
	"github.com/tbourn/go-translate-backend/internal/domain"
	"github.com/tbourn/go-translate-backend/internal/lang"
)

// Scorer rates a translation from 0 (unusable) to 100.
type Scorer interface {
	Score(source, translated content.Value, sourceLang, targetLang string) int
}

// HeuristicScorer scores without a second model call. It penalizes empty
// output, untranslated echoes, lost URLs/emails/phones/prices, implausible
// length ratios and missing keys.
type HeuristicScorer struct{}

var protectedRE = regexp.MustCompile(`(?i)https?://\S+|www\.\S+|[\w.+-]+@[\w-]+\.[\w.-]+|\+?\d[\d\s().-]{6,}\d|[$€£¥]\s?\d+(?:[.,]\d+)?|\d+(?:[.,]\d+)?\s?[$€£¥]`)

// Score implements Scorer.
func (HeuristicScorer) Score(source, translated content.Value, sourceLang, targetLang string) int {
	if translated.IsZero() || translated.IsEmpty() {
		return 0
	}
	src := strings.Join(source.Strings(), "\n")
	out := strings.Join(translated.Strings(), "\n")
	score := 100

	if !lang.Same(sourceLang, targetLang) && src == out && letters(src) >= 4 {
		score -= 40
	}

	lost := 0
	for _, tok := range protectedRE.FindAllString(src, -1) {
		if !strings.Contains(out, strings.TrimSpace(tok)) {
			lost++
		}
	}
	score -= min(lost*15, 45)

	if ls := utf8.RuneCountInString(src); ls >= 20 {
		ratio := float64(utf8.RuneCountInString(out)) / float64(ls)
		switch {
		case ratio < 0.3 || ratio > 3:
			score -= 30
		case ratio < 0.5 || ratio > 2:
			score -= 15
		}
	}

	if source.IsStructured() && translated.IsStructured() {
		missing := 0
		for k := range source.Fields() {
			if _, ok := translated.Fields()[k]; !ok {
				missing++
			}
		}
		score -= min(missing*10, 30)
	}
	return max(0, min(score, 100))
}

func letters(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			n++
		}
	}
	return n
}

// ScoringService scores journal rows after the fact.
type ScoringService struct {
	// History loads journal rows and applies the resulting score.
	History *HistoryService
	// Scorer rates a translation from 0 to 100.
	Scorer Scorer
}

// ScoreHistory rates the stored translation and re-buckets its status.
// Running it twice yields the same row.
func (s *ScoringService) ScoreHistory(ctx context.Context, id string) (*domain.TranslationHistory, error) {
	tr := otel.Tracer("services/ScoringService")
	ctx, span := tr.Start(ctx, "ScoreHistory", trace.WithAttributes(attribute.String("history.id", id)))
	defer span.End()

	h, err := s.History.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	kind, _ := h.Metadata[metaContentKind].(string)
	src := storedValue(h.SourceText, kind)
	out := storedValue(h.TranslatedText, kind)

	scorer := s.Scorer
	if scorer == nil {
		scorer = HeuristicScorer{}
	}
	score := scorer.Score(src, out, h.SourceLang, h.TargetLang)
	span.SetAttributes(attribute.Int("score", score))
	return s.History.ApplyScore(ctx, id, score)
}

// storedValue rebuilds a content value from its journal text.
func storedValue(s, kind string) content.Value {
	if kind == content.KindStructured.String() {
		if v, err := content.FromJSON([]byte(s)); err == nil && v.IsStructured() {
			return v
		}
	}
	return content.Text(s)
}
