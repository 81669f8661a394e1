package services

import (
	"context"
	"testing"
	"time"

	"github.com/tbourn/go-translate-backend/internal/content"
	"github.com/tbourn/go-translate-backend/internal/normalize"
)

func TestCacheKey(t *testing.T) {
	a := content.Structured(map[string]any{"email": "j@x.com", "address": "Main St"})
	b := content.Structured(map[string]any{"address": "Main St", "email": "j@x.com"})

	ka, err := CacheKey("en", "fr", "contact", a)
	if err != nil {
		t.Fatalf("CacheKey: %v", err)
	}
	kb, _ := CacheKey("en", "fr", " Contact ", b)
	if ka != kb || len(ka) != 64 {
		t.Fatalf("key order or category case changed the key: %s vs %s", ka, kb)
	}

	others := []struct {
		name string
		src  string
		tgt  string
		cat  string
		v    content.Value
	}{
		{"target", "en", "de", "contact", a},
		{"source", "es", "fr", "contact", a},
		{"category", "en", "fr", "social", a},
		{"kind", "en", "fr", "contact", content.Text(a.String())},
	}
	for _, tc := range others {
		k, _ := CacheKey(tc.src, tc.tgt, tc.cat, tc.v)
		if k == ka {
			t.Fatalf("%s did not change the key", tc.name)
		}
	}
}

func TestCacheService_PutGetExpire(t *testing.T) {
	db := newServiceDB(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := &CacheService{DB: db, TTL: time.Hour, Now: func() time.Time { return now }}
	ctx := context.Background()

	if _, ok, err := svc.Get(ctx, "k1"); ok || err != nil {
		t.Fatalf("empty cache ok=%v err=%v", ok, err)
	}
	data := content.Structured(map[string]any{"text": "Bonjour"})
	if err := svc.Put(ctx, CachePut{Key: "k1", SourceLang: "en", TargetLang: "fr", Category: "simple_text", Data: data, Status: normalize.StatusOK, Provider: "scripted", Model: "m"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := svc.Get(ctx, "k1")
	if err != nil || !ok {
		t.Fatalf("Get ok=%v err=%v", ok, err)
	}
	if got.Data.String() != data.String() || got.Status != normalize.StatusOK || got.Provider != "scripted" {
		t.Fatalf("hit=%+v", got)
	}

	now = now.Add(2 * time.Hour)
	if _, ok, _ := svc.Get(ctx, "k1"); ok {
		t.Fatal("expired entry returned")
	}
	n, err := svc.PurgeExpired(ctx)
	if err != nil || n != 1 {
		t.Fatalf("PurgeExpired n=%d err=%v", n, err)
	}
}
