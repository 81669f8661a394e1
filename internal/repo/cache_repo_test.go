package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/datatypes"

	"github.com/tbourn/go-translate-backend/internal/domain"
)

func cacheEntry(key string, expires time.Time, data string) *domain.CacheEntry {
	return &domain.CacheEntry{
		Key: key, SourceLang: "en", TargetLang: "fr", Category: "simple_text",
		Data: datatypes.JSON(data), Status: "ok", ExpiresAt: expires.UTC(),
	}
}

func TestCacheEntry_PutGetTouch(t *testing.T) {
	db := newTestDB(t, &domain.CacheEntry{})
	ctx := context.Background()
	now := time.Now().UTC()

	if _, err := GetCacheEntry(ctx, db, "k", now); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err=%v want ErrNotFound", err)
	}
	if err := PutCacheEntry(ctx, db, cacheEntry("k", now.Add(time.Hour), `"Bonjour"`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := TouchCacheEntry(ctx, db, "k"); err != nil {
		t.Fatalf("touch: %v", err)
	}
	got, err := GetCacheEntry(ctx, db, "k", now)
	if err != nil || string(got.Data) != `"Bonjour"` || got.Hits != 1 {
		t.Fatalf("got=%+v err=%v", got, err)
	}

	if err := PutCacheEntry(ctx, db, cacheEntry("k", now.Add(time.Hour), `"Salut"`)); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, _ = GetCacheEntry(ctx, db, "k", now)
	if string(got.Data) != `"Salut"` || got.Hits != 0 {
		t.Fatalf("overwrite not applied: %+v", got)
	}

	if _, err := GetCacheEntry(ctx, db, "k", now.Add(2*time.Hour)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expired entry should miss, err=%v", err)
	}
}

func TestPurgeExpiredCache(t *testing.T) {
	db := newTestDB(t, &domain.CacheEntry{})
	ctx := context.Background()
	now := time.Now().UTC()

	for key, exp := range map[string]time.Time{
		"old1": now.Add(-time.Hour),
		"old2": now.Add(-time.Minute),
		"live": now.Add(time.Hour),
	} {
		if err := PutCacheEntry(ctx, db, cacheEntry(key, exp, `{}`)); err != nil {
			t.Fatalf("seed %s: %v", key, err)
		}
	}
	n, err := PurgeExpiredCache(ctx, db, now)
	if err != nil || n != 2 {
		t.Fatalf("purged=%d err=%v", n, err)
	}
	var left int64
	db.Model(&domain.CacheEntry{}).Count(&left)
	if left != 1 {
		t.Fatalf("left=%d want 1", left)
	}
}
