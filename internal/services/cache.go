// Package services – CacheService
//
// This file implements the translation cache. Entries are keyed by a SHA-256
// of the language pair, the category and the canonical content, live for
// TTL, and are only written for results that normalized cleanly. Unreadable
// entries are treated as misses.
package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/tbourn/go-translate-backend/internal/content"
	"github.com/tbourn/go-translate-backend/internal/domain"
	"github.com/tbourn/go-translate-backend/internal/normalize"
	"github.com/tbourn/go-translate-backend/internal/repo"
)

// DefaultCacheTTL is how long a cached translation stays valid.
const DefaultCacheTTL = 7 * 24 * time.Hour

var cacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "translator_cache_lookups_total",
	Help: "Translation cache lookups by result (hit|miss).",
}, []string{"result"})

func init() {
	prometheus.MustRegister(cacheLookups)
}

// CacheKey hashes the language pair, category and canonical content into the
// cache key. Map key order never changes the key.
func CacheKey(sourceLang, targetLang, category string, c content.Value) (string, error) {
	canon, err := c.Canonical()
	if err != nil {
		return "", err
	}
	h := sha256.New()
	for _, part := range []string{sourceLang, targetLang, strings.ToLower(strings.TrimSpace(category)), c.Kind().String()} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	h.Write(canon)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// CachedTranslation is a cache hit.
type CachedTranslation struct {
	Data     content.Value
	Status   normalize.Status
	Provider string
	Model    string
}

// CacheService stores normalized translations by content hash.
type CacheService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// TTL is how long a stored translation stays servable.
	TTL time.Duration
	// Now overrides the clock (tests).
	Now func() time.Time
}

func (s *CacheService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *CacheService) ttl() time.Duration {
	if s.TTL > 0 {
		return s.TTL
	}
	return DefaultCacheTTL
}

// Get returns the live entry under key. A corrupt entry counts as a miss.
func (s *CacheService) Get(ctx context.Context, key string) (*CachedTranslation, bool, error) {
	tr := otel.Tracer("services/CacheService")
	ctx, span := tr.Start(ctx, "Get", trace.WithAttributes(attribute.String("cache.key", key)))
	defer span.End()

	e, err := repo.GetCacheEntry(ctx, s.DB, key, s.now())
	if errors.Is(err, repo.ErrNotFound) {
		cacheLookups.WithLabelValues("miss").Inc()
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	v, err := content.FromJSON(e.Data)
	if err != nil || v.IsZero() {
		log.Warn().Str("key", key).Err(err).Msg("discarding unreadable cache entry")
		cacheLookups.WithLabelValues("miss").Inc()
		return nil, false, nil
	}
	if err := repo.TouchCacheEntry(ctx, s.DB, key); err != nil {
		log.Debug().Err(err).Str("key", key).Msg("cache hit counter not updated")
	}
	cacheLookups.WithLabelValues("hit").Inc()
	span.SetAttributes(attribute.Bool("cache.hit", true))
	return &CachedTranslation{Data: v, Status: normalize.Status(e.Status), Provider: e.Provider, Model: e.Model}, true, nil
}

// CachePut describes one entry to store.
type CachePut struct {
	Key        string
	SourceLang string
	TargetLang string
	Category   string
	Data       content.Value
	Status     normalize.Status
	Provider   string
	Model      string
}

// Put stores p for TTL, replacing any previous entry with the same key.
func (s *CacheService) Put(ctx context.Context, p CachePut) error {
	tr := otel.Tracer("services/CacheService")
	ctx, span := tr.Start(ctx, "Put", trace.WithAttributes(attribute.String("cache.key", p.Key)))
	defer span.End()

	b, err := p.Data.Canonical()
	if err != nil {
		return err
	}
	now := s.now()
	return repo.PutCacheEntry(ctx, s.DB, &domain.CacheEntry{
		Key:        p.Key,
		SourceLang: p.SourceLang,
		TargetLang: p.TargetLang,
		Category:   p.Category,
		Data:       datatypes.JSON(b),
		Status:     string(p.Status),
		Provider:   p.Provider,
		Model:      p.Model,
		CreatedAt:  now,
		UpdatedAt:  now,
		ExpiresAt:  now.Add(s.ttl()),
	})
}

// PurgeExpired deletes stale entries.
func (s *CacheService) PurgeExpired(ctx context.Context) (int64, error) {
	return repo.PurgeExpiredCache(ctx, s.DB, s.now())
}
