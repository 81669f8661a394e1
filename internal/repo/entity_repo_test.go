package repo

import (
	"context"
	"errors"
	"testing"

	"gorm.io/datatypes"

	"github.com/tbourn/go-translate-backend/internal/domain"
)

func TestEntity_CreateGetOrdered(t *testing.T) {
	db := newMigratedDB(t)
	ctx := context.Background()

	e := &domain.Entity{
		OwnerID: "u1", Title: "Cafe", SourceLang: "en",
		Sections: []domain.Section{
			{Category: "about", Content: datatypes.JSON(`"We bake"`)},
			{Category: "contact", Content: datatypes.JSON(`{"email":"a@b.c"}`)},
			{Category: "link", Content: datatypes.JSON(`{"text":"Menu","url":"https://x.y"}`)},
		},
	}
	if err := CreateEntity(ctx, db, e); err != nil {
		t.Fatalf("CreateEntity: %v", err)
	}
	if e.ID == "" || e.Sections[2].Position != 2 || e.Sections[0].EntityID != e.ID {
		t.Fatalf("ids/positions not assigned: %+v", e)
	}

	got, err := GetEntity(ctx, db, e.ID, "u1")
	if err != nil {
		t.Fatalf("GetEntity: %v", err)
	}
	if len(got.Sections) != 3 || got.Sections[0].Category != "about" || got.Sections[2].Category != "link" {
		t.Fatalf("sections=%+v", got.Sections)
	}
	if _, err := GetEntity(ctx, db, e.ID, "someone-else"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign owner err=%v", err)
	}
	if _, err := GetEntity(ctx, db, e.ID, ""); err != nil {
		t.Fatalf("ownerless lookup: %v", err)
	}
}

func TestFieldTranslation_Upsert(t *testing.T) {
	db := newMigratedDB(t)
	ctx := context.Background()

	ft := &domain.FieldTranslation{EntityID: "e1", FieldKey: "header", TargetLang: "fr", Category: "simple_text", Content: datatypes.JSON(`{"title":"Café"}`), Status: "ok", HistoryID: "h1"}
	if err := UpsertFieldTranslation(ctx, db, ft); err != nil {
		t.Fatalf("insert: %v", err)
	}
	again := &domain.FieldTranslation{EntityID: "e1", FieldKey: "header", TargetLang: "fr", Category: "simple_text", Content: datatypes.JSON(`{"title":"Le Café"}`), Status: "ok", HistoryID: "h2"}
	if err := UpsertFieldTranslation(ctx, db, again); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := UpsertFieldTranslation(ctx, db, &domain.FieldTranslation{EntityID: "e1", FieldKey: "header", TargetLang: "de", Category: "simple_text", Content: datatypes.JSON(`{}`), Status: "ok"}); err != nil {
		t.Fatalf("other lang: %v", err)
	}

	fr, err := ListFieldTranslations(ctx, db, "e1", "fr")
	if err != nil || len(fr) != 1 {
		t.Fatalf("fr=%d err=%v", len(fr), err)
	}
	if string(fr[0].Content) != `{"title":"Le Café"}` || fr[0].HistoryID != "h2" {
		t.Fatalf("row=%+v", fr[0])
	}
	all, _ := ListFieldTranslations(ctx, db, "e1", "")
	if len(all) != 2 {
		t.Fatalf("all=%d want 2", len(all))
	}
}

func TestLanguages_UpsertListGet(t *testing.T) {
	db := newMigratedDB(t)
	ctx := context.Background()

	langs := []domain.Language{
		{Code: "fr", Name: "French", Active: true, SortOrder: 2},
		{Code: "en", Name: "English", Active: true, SortOrder: 1},
		{Code: "xx", Name: "Hidden", Active: false, SortOrder: 3},
	}
	if err := UpsertLanguages(ctx, db, langs); err != nil {
		t.Fatalf("UpsertLanguages: %v", err)
	}
	if err := UpsertLanguages(ctx, db, []domain.Language{{Code: "fr", Name: "Français", Active: true, SortOrder: 2}}); err != nil {
		t.Fatalf("update: %v", err)
	}

	active, err := ListLanguages(ctx, db, true)
	if err != nil || len(active) != 2 || active[0].Code != "en" {
		t.Fatalf("active=%+v err=%v", active, err)
	}
	all, _ := ListLanguages(ctx, db, false)
	if len(all) != 3 {
		t.Fatalf("all=%d", len(all))
	}
	fr, err := GetLanguage(ctx, db, "fr")
	if err != nil || fr.Name != "Français" {
		t.Fatalf("fr=%+v err=%v", fr, err)
	}
	if _, err := GetLanguage(ctx, db, "zz"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err=%v", err)
	}
}

func TestJobs_CreateGetSave(t *testing.T) {
	db := newMigratedDB(t)
	ctx := context.Background()

	j, err := CreateJob(ctx, db, "u1", "e1", "fr", 5)
	if err != nil || j.Status != domain.JobQueued {
		t.Fatalf("job=%+v err=%v", j, err)
	}
	j.Status = domain.JobCompleted
	j.Translated, j.Failed = 4, 1
	j.Errors = map[string]any{"section:x": "provider unavailable"}
	if err := SaveJob(ctx, db, j); err != nil {
		t.Fatalf("SaveJob: %v", err)
	}

	got, err := GetJob(ctx, db, j.ID, "u1")
	if err != nil || got.Status != domain.JobCompleted || got.Translated != 4 || got.Errors["section:x"] != "provider unavailable" {
		t.Fatalf("got=%+v err=%v", got, err)
	}
	if _, err := GetJob(ctx, db, j.ID, "u2"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign owner err=%v", err)
	}
}
