package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-translate-backend/internal/domain"
	"github.com/tbourn/go-translate-backend/internal/provider"
	"github.com/tbourn/go-translate-backend/internal/repo"
	"github.com/tbourn/go-translate-backend/internal/tasks"
)

func newServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	return db
}

// manualTasks records scheduled work so tests can run it on demand.
type manualTasks struct {
	mu     sync.Mutex
	names  []string
	delays []time.Duration
	fns    []tasks.Func
}

func (m *manualTasks) SubmitAfter(name string, delay time.Duration, fn tasks.Func) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.names = append(m.names, name)
	m.delays = append(m.delays, delay)
	m.fns = append(m.fns, fn)
	return nil
}

func (m *manualTasks) Submit(name string, fn tasks.Func) error {
	return m.SubmitAfter(name, 0, fn)
}

func (m *manualTasks) runAll(t *testing.T) {
	t.Helper()
	m.mu.Lock()
	fns := m.fns
	m.fns, m.names, m.delays = nil, nil, nil
	m.mu.Unlock()
	for _, fn := range fns {
		if err := fn(context.Background()); err != nil {
			t.Fatalf("task: %v", err)
		}
	}
}

type fixture struct {
	db         *gorm.DB
	script     *provider.Scripted
	tasks      *manualTasks
	credits    *CreditService
	cache      *CacheService
	history    *HistoryService
	languages  *LanguageService
	translator *TranslationService
}

// newFixture wires the translation stack over a fresh database with the
// default language catalog and a scripted provider answering steps in order.
func newFixture(t *testing.T, steps ...provider.Step) *fixture {
	t.Helper()
	db := newServiceDB(t)
	f := &fixture{
		db:        db,
		script:    provider.NewScripted(steps...),
		tasks:     &manualTasks{},
		credits:   &CreditService{DB: db},
		cache:     &CacheService{DB: db},
		history:   &HistoryService{DB: db},
		languages: &LanguageService{DB: db},
	}
	if _, err := f.languages.Seed(context.Background(), ""); err != nil {
		t.Fatalf("seed languages: %v", err)
	}
	f.translator = &TranslationService{
		DB:              db,
		Provider:        provider.NewGateway(f.script, provider.RetryPolicy{MaxAttempts: 1}, 0, 0),
		Credits:         f.credits,
		Cache:           f.cache,
		Languages:       f.languages,
		Scoring:         &ScoringService{History: f.history, Scorer: HeuristicScorer{}},
		Tasks:           f.tasks,
		ScoringDelay:    2 * time.Second,
		ChargeCacheHits: true,
	}
	return f
}

func (f *fixture) grant(t *testing.T, userID string, credits int) {
	t.Helper()
	if _, err := f.credits.Grant(context.Background(), userID, credits, 30*24*time.Hour); err != nil {
		t.Fatalf("grant: %v", err)
	}
}

func (f *fixture) remaining(t *testing.T, userID string) int {
	t.Helper()
	n, err := f.credits.Remaining(context.Background(), userID)
	if err != nil {
		t.Fatalf("remaining: %v", err)
	}
	return n
}

func (f *fixture) historyCount(t *testing.T) int64 {
	t.Helper()
	var n int64
	if err := f.db.Model(&domain.TranslationHistory{}).Count(&n).Error; err != nil {
		t.Fatalf("count history: %v", err)
	}
	return n
}

// newEntity stores an entity owned by ownerID with one text section per
// body, in order.
func (f *fixture) newEntity(t *testing.T, ownerID, title, subtitle string, bodies ...string) *domain.Entity {
	t.Helper()
	e := &domain.Entity{OwnerID: ownerID, Title: title, Subtitle: subtitle, SourceLang: "en"}
	for _, b := range bodies {
		e.Sections = append(e.Sections, domain.Section{
			Category: "about",
			Content:  datatypes.JSON(fmt.Sprintf("%q", b)),
		})
	}
	if err := repo.CreateEntity(context.Background(), f.db, e); err != nil {
		t.Fatalf("create entity: %v", err)
	}
	return e
}
