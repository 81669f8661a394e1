// Package services – TranslationService
//
// This file implements the orchestrator. TranslateField runs one content
// field through validation, the cache, the credit check, the provider
// gateway and the normalizer, then commits the deduction, the journal row and
// the stored field translation in one transaction. TranslateEntity applies
// the same pipeline to every field of an entity after an up-front quota
// check, tolerating per-field failures and reporting progress as it goes.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/tbourn/go-translate-backend/internal/content"
	"github.com/tbourn/go-translate-backend/internal/domain"
	"github.com/tbourn/go-translate-backend/internal/lang"
	"github.com/tbourn/go-translate-backend/internal/normalize"
	"github.com/tbourn/go-translate-backend/internal/prompt"
	"github.com/tbourn/go-translate-backend/internal/provider"
	"github.com/tbourn/go-translate-backend/internal/repo"
	"github.com/tbourn/go-translate-backend/internal/schema"
	"github.com/tbourn/go-translate-backend/internal/tasks"
)

// Metadata keys written on history rows.
const (
	metaContentKind     = "content_kind"
	metaNormalizeStatus = "normalize_status"
	metaAttempts        = "attempts"
	metaCacheKey        = "cache_key"
)

// creditsPerField is what one translated field costs.
const creditsPerField = 1

// rawLogMax bounds how much of a provider reply reaches the logs.
const rawLogMax = 300

var normalizeOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "translator_normalize_total",
	Help: "Normalized provider replies by status.",
}, []string{"status"})

func init() {
	prometheus.MustRegister(normalizeOutcomes)
}

// ProviderCaller is the part of provider.Gateway the orchestrator needs.
type ProviderCaller interface {
	Call(ctx context.Context, req provider.Request) (provider.Payload, error)
}

// TaskScheduler runs deferred work; tasks.Dispatcher implements it.
type TaskScheduler interface {
	SubmitAfter(name string, delay time.Duration, fn tasks.Func) error
}

// TranslationService orchestrates single-field and whole-entity
// translations: quota, cache, provider, normalization, journal and the
// persisted translated content.
type TranslationService struct {
	// DB is the GORM handle; deduction, journal and field writes share a
	// transaction on it.
	DB *gorm.DB
	// Provider performs the retried completion call.
	Provider ProviderCaller
	// Credits checks and deducts the caller's quota.
	Credits *CreditService
	// Cache serves and stores ok-normalized results.
	Cache *CacheService
	// Languages validates the source and target codes.
	Languages *LanguageService
	// Scoring rates journal rows after ScoringDelay.
	Scoring *ScoringService
	// Tasks runs the delayed scoring. Nil disables scoring.
	Tasks TaskScheduler

	// ScoringDelay postpones quality scoring after a translation commits.
	ScoringDelay time.Duration
	// ChargeCacheHits makes a cache hit consume a credit like a provider call.
	ChargeCacheHits bool
	// CostPer1K prices provider usage per 1000 total tokens for the journal.
	CostPer1K decimal.Decimal
	// Now overrides the clock (tests).
	Now func() time.Time
}

func (s *TranslationService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// FieldRequest asks for one field to be translated. EntityID and FieldKey
// are optional; when both are set the result is also stored as the field's
// translated content.
type FieldRequest struct {
	UserID     string
	Content    content.Value
	SourceLang string
	TargetLang string
	Category   string
	Context    string
	EntityID   string
	FieldKey   string
}

// FieldResult is the outcome of a translated (or skipped) field.
type FieldResult struct {
	Status      normalize.Status `json:"status"`
	Data        content.Value    `json:"data"`
	Cached      bool             `json:"cached"`
	Skipped     bool             `json:"skipped,omitempty"`
	HistoryID   string           `json:"history_id,omitempty"`
	CreditsUsed int              `json:"credits_used"`
	Provider    string           `json:"provider,omitempty"`
	Model       string           `json:"model,omitempty"`
}

// TranslateField translates one piece of content.
//
// Same-language requests and content without any translatable text return
// the content unchanged, skipped and free. Unusable provider replies return
// an *UnprocessableError and consume nothing.
func (s *TranslationService) TranslateField(ctx context.Context, req FieldRequest) (*FieldResult, error) {
	tr := otel.Tracer("services/TranslationService")
	ctx, span := tr.Start(ctx, "TranslateField", trace.WithAttributes(
		attribute.String("user.id", req.UserID),
		attribute.String("source_lang", req.SourceLang),
		attribute.String("target_lang", req.TargetLang),
		attribute.String("category", req.Category),
	))
	defer span.End()

	if req.Content.IsZero() {
		return nil, ErrEmptyContent
	}
	src, err := s.Languages.Source(req.SourceLang)
	if err != nil {
		return nil, err
	}
	target, err := s.Languages.Target(ctx, req.TargetLang)
	if err != nil {
		return nil, err
	}
	req.SourceLang, req.TargetLang = src, target.Code

	res, err := s.translate(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "translate field")
		return nil, err
	}
	span.SetAttributes(attribute.Bool("cache.hit", res.Cached), attribute.Bool("skipped", res.Skipped))
	return res, nil
}

// translate runs the pipeline for a request whose languages are already
// validated and canonical.
func (s *TranslationService) translate(ctx context.Context, req FieldRequest) (*FieldResult, error) {
	if lang.Same(req.SourceLang, req.TargetLang) || req.Content.IsEmpty() {
		return &FieldResult{Status: normalize.StatusOK, Data: req.Content, Skipped: true}, nil
	}

	key, err := CacheKey(req.SourceLang, req.TargetLang, req.Category, req.Content)
	if err != nil {
		return nil, fmt.Errorf("cache key: %w", err)
	}

	if s.ChargeCacheHits {
		if err := s.Credits.Check(ctx, req.UserID, creditsPerField); err != nil {
			return nil, err
		}
	}
	hit, ok, err := s.Cache.Get(ctx, key)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache lookup failed, calling provider")
		ok = false
	}
	if ok {
		log.Debug().Str("key", key).Str("target_lang", req.TargetLang).Msg("translation cache hit")
		charge := 0
		if s.ChargeCacheHits {
			charge = creditsPerField
		}
		return s.commit(ctx, req, outcome{
			result:   normalize.Result{Status: hit.Status, Data: hit.Data},
			method:   domain.MethodCached,
			provider: hit.Provider,
			model:    hit.Model,
			cacheKey: key,
			charge:   charge,
		})
	}
	if !s.ChargeCacheHits {
		if err := s.Credits.Check(ctx, req.UserID, creditsPerField); err != nil {
			return nil, err
		}
	}

	text, err := prompt.Build(req.Content, req.SourceLang, req.TargetLang, prompt.Options{
		Category: req.Category,
		Context:  req.Context,
	})
	if err != nil {
		return nil, err
	}
	name, hint := schemaHint(req.Content, req.Category)
	payload, err := s.Provider.Call(ctx, provider.Request{Prompt: text, SchemaName: name, Schema: hint})
	if err != nil {
		return nil, err
	}

	result := normalize.Normalize(payload.Value, req.Content, normalize.Options{TargetLang: req.TargetLang})
	normalizeOutcomes.WithLabelValues(string(result.Status)).Inc()
	if !result.Status.Usable() {
		log.Warn().
			Str("status", string(result.Status)).
			Str("provider", payload.Provider).
			Str("category", req.Category).
			Str("field_key", req.FieldKey).
			Str("raw", truncate(payload.Raw, rawLogMax)).
			Msg("provider reply not usable")
		return nil, &UnprocessableError{Status: result.Status}
	}

	res, err := s.commit(ctx, req, outcome{
		result:   result,
		method:   domain.MethodAI,
		provider: payload.Provider,
		model:    payload.Model,
		usage:    payload.Usage,
		attempts: payload.Attempts,
		cacheKey: key,
		charge:   creditsPerField,
	})
	if err != nil {
		return nil, err
	}
	if result.Status.Cacheable() {
		if err := s.Cache.Put(ctx, CachePut{
			Key:        key,
			SourceLang: req.SourceLang,
			TargetLang: req.TargetLang,
			Category:   req.Category,
			Data:       result.Data,
			Status:     result.Status,
			Provider:   payload.Provider,
			Model:      payload.Model,
		}); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("translation not cached")
		}
	}
	return res, nil
}

type outcome struct {
	result   normalize.Result
	method   string
	provider string
	model    string
	usage    provider.Usage
	attempts int
	cacheKey string
	charge   int
}

// commit charges the user, journals the translation and stores the field's
// translated content in one transaction, then schedules quality scoring.
func (s *TranslationService) commit(ctx context.Context, req FieldRequest, o outcome) (*FieldResult, error) {
	h := &domain.TranslationHistory{
		ID:               uuid.NewString(),
		UserID:           req.UserID,
		EntityID:         req.EntityID,
		FieldKey:         req.FieldKey,
		Category:         req.Category,
		SourceLang:       req.SourceLang,
		TargetLang:       req.TargetLang,
		SourceText:       req.Content.String(),
		TranslatedText:   o.result.Data.String(),
		Method:           o.method,
		Provider:         o.provider,
		Model:            o.model,
		NormalizeStatus:  string(o.result.Status),
		Status:           domain.VerificationPending,
		CharacterCount:   characterCount(req.Content),
		CreditsUsed:      o.charge,
		PromptTokens:     o.usage.PromptTokens,
		CompletionTokens: o.usage.CompletionTokens,
		Cost:             s.cost(o.usage.TotalTokens),
		Metadata: datatypes.JSONMap{
			metaContentKind:     req.Content.Kind().String(),
			metaNormalizeStatus: string(o.result.Status),
			metaAttempts:        o.attempts,
			metaCacheKey:        o.cacheKey,
		},
		CreatedAt: s.now(),
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if o.charge > 0 {
			if err := s.Credits.Deduct(ctx, tx, req.UserID, o.charge); err != nil {
				return err
			}
		}
		if err := repo.CreateHistory(ctx, tx, h); err != nil {
			return err
		}
		if req.EntityID == "" || req.FieldKey == "" {
			return nil
		}
		b, err := o.result.Data.Canonical()
		if err != nil {
			return err
		}
		return repo.UpsertFieldTranslation(ctx, tx, &domain.FieldTranslation{
			EntityID:   req.EntityID,
			FieldKey:   req.FieldKey,
			TargetLang: req.TargetLang,
			Category:   req.Category,
			Content:    datatypes.JSON(b),
			Status:     string(o.result.Status),
			HistoryID:  h.ID,
		})
	})
	if err != nil {
		return nil, err
	}

	s.scheduleScoring(h.ID)
	return &FieldResult{
		Status:      o.result.Status,
		Data:        o.result.Data,
		Cached:      o.method == domain.MethodCached,
		HistoryID:   h.ID,
		CreditsUsed: o.charge,
		Provider:    o.provider,
		Model:       o.model,
	}, nil
}

func (s *TranslationService) scheduleScoring(historyID string) {
	if s.Tasks == nil || s.Scoring == nil {
		return
	}
	err := s.Tasks.SubmitAfter("score:"+historyID, s.ScoringDelay, func(ctx context.Context) error {
		_, err := s.Scoring.ScoreHistory(ctx, historyID)
		return err
	})
	if err != nil {
		log.Warn().Err(err).Str("history_id", historyID).Msg("quality scoring not scheduled")
	}
}

func (s *TranslationService) cost(totalTokens int) decimal.Decimal {
	if totalTokens <= 0 || s.CostPer1K.IsZero() {
		return decimal.Zero
	}
	return s.CostPer1K.Mul(decimal.NewFromInt(int64(totalTokens))).Div(decimal.NewFromInt(1000))
}

// schemaHint picks the structured-output schema sent to the provider. Text
// is always sent as {"text": ...}; structured content only gets its
// category schema when that schema names every key of the content.
func schemaHint(c content.Value, category string) (string, map[string]any) {
	if c.IsText() {
		sch := schema.For("simple_text")
		return sch.Category, sch.JSONSchema()
	}
	sch := schema.For(category)
	if sch.IsGeneric() || !sch.Covers(c.Fields()) {
		return "", nil
	}
	return sch.Category, sch.JSONSchema()
}

func characterCount(c content.Value) int {
	n := 0
	for _, s := range c.Strings() {
		n += utf8.RuneCountInString(s)
	}
	return n
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// EntityRequest asks for a whole entity to be translated.
type EntityRequest struct {
	UserID     string
	EntityID   string
	TargetLang string
}

// Field outcome states.
const (
	FieldTranslated = "translated"
	FieldFailed     = "failed"
	FieldSkipped    = "skipped"
)

// FieldOutcome reports what happened to one field of a bulk translation.
type FieldOutcome struct {
	FieldKey  string `json:"field_key"`
	Category  string `json:"category"`
	Status    string `json:"status"`
	Cached    bool   `json:"cached,omitempty"`
	HistoryID string `json:"history_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// BulkResult aggregates a whole-entity translation.
type BulkResult struct {
	EntityID    string            `json:"entity_id"`
	TargetLang  string            `json:"target_lang"`
	Total       int               `json:"total"`
	Translated  int               `json:"translated"`
	Failed      int               `json:"failed"`
	Skipped     int               `json:"skipped"`
	CreditsUsed int               `json:"credits_used"`
	Errors      map[string]string `json:"errors,omitempty"`
	Fields      []FieldOutcome    `json:"fields"`
}

// Done is the number of fields processed so far.
func (r *BulkResult) Done() int { return r.Translated + r.Failed + r.Skipped }

func (r *BulkResult) record(o FieldOutcome) {
	switch o.Status {
	case FieldTranslated:
		r.Translated++
	case FieldFailed:
		r.Failed++
		if r.Errors == nil {
			r.Errors = make(map[string]string)
		}
		r.Errors[o.FieldKey] = o.Error
	default:
		r.Skipped++
	}
	r.Fields = append(r.Fields, o)
}

// ProgressFunc is called after each field of a bulk translation with the
// field's outcome and the running totals.
type ProgressFunc func(o FieldOutcome, sofar BulkResult)

type entityField struct {
	key      string
	category string
	value    content.Value
	err      error
}

// entityFields lists the translatable fields of e: the header first, then
// each section in position order.
func entityFields(e *domain.Entity) []entityField {
	out := make([]entityField, 0, len(e.Sections)+1)
	out = append(out, entityField{key: domain.HeaderFieldKey, category: "simple_text", value: e.Header()})
	for _, sec := range e.Sections {
		v, err := sec.Value()
		out = append(out, entityField{key: sec.FieldKey(), category: sec.Category, value: v, err: err})
	}
	return out
}

// TranslateEntity translates every field of an entity into TargetLang.
//
// The credits for all translatable fields are checked up front and the
// batch fails with ErrQuotaExceeded before any provider call when they are
// missing. After that each field is committed on its own: a failing field
// is recorded in the result and not charged, and the rest continue. When
// ctx is cancelled the partial result is returned with ctx's error.
func (s *TranslationService) TranslateEntity(ctx context.Context, req EntityRequest, progress ProgressFunc) (*BulkResult, error) {
	tr := otel.Tracer("services/TranslationService")
	ctx, span := tr.Start(ctx, "TranslateEntity", trace.WithAttributes(
		attribute.String("user.id", req.UserID),
		attribute.String("entity.id", req.EntityID),
		attribute.String("target_lang", req.TargetLang),
	))
	defer span.End()

	e, err := repo.GetEntity(ctx, s.DB, req.EntityID, req.UserID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrEntityNotFound
	}
	if err != nil {
		return nil, err
	}
	target, err := s.Languages.Target(ctx, req.TargetLang)
	if err != nil {
		return nil, err
	}
	src, err := s.Languages.Source(e.SourceLang)
	if err != nil {
		return nil, err
	}

	fields := entityFields(e)
	res := &BulkResult{EntityID: e.ID, TargetLang: target.Code, Total: len(fields), Fields: make([]FieldOutcome, 0, len(fields))}
	same := lang.Same(src, target.Code)

	required := 0
	for _, f := range fields {
		if !same && f.err == nil && !f.value.IsEmpty() {
			required++
		}
	}
	if required > 0 {
		if err := s.Credits.Check(ctx, req.UserID, required*creditsPerField); err != nil {
			span.SetStatus(codes.Error, "preflight")
			return res, err
		}
	}

	for _, f := range fields {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		o := FieldOutcome{FieldKey: f.key, Category: f.category}
		switch {
		case f.err != nil:
			o.Status, o.Error = FieldFailed, f.err.Error()
		default:
			fr, err := s.translate(ctx, FieldRequest{
				UserID:     req.UserID,
				Content:    f.value,
				SourceLang: src,
				TargetLang: target.Code,
				Category:   f.category,
				EntityID:   e.ID,
				FieldKey:   f.key,
			})
			switch {
			case err != nil:
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return res, err
				}
				log.Warn().Err(err).Str("entity_id", e.ID).Str("field_key", f.key).Msg("field translation failed")
				o.Status, o.Error = FieldFailed, err.Error()
			case fr.Skipped:
				o.Status = FieldSkipped
			default:
				o.Status, o.Cached, o.HistoryID = FieldTranslated, fr.Cached, fr.HistoryID
				res.CreditsUsed += fr.CreditsUsed
			}
		}
		res.record(o)
		if progress != nil {
			progress(o, *res)
		}
	}

	span.SetAttributes(
		attribute.Int("fields.translated", res.Translated),
		attribute.Int("fields.failed", res.Failed),
	)
	return res, nil
}
