// Package app assembles the translation services from configuration and
// owns their lifecycle: migrations and seeding on start, draining the task
// dispatcher on stop.
package app

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-translate-backend/internal/config"
	"github.com/tbourn/go-translate-backend/internal/progress"
	"github.com/tbourn/go-translate-backend/internal/provider"
	"github.com/tbourn/go-translate-backend/internal/repo"
	"github.com/tbourn/go-translate-backend/internal/services"
	"github.com/tbourn/go-translate-backend/internal/tasks"
)

// App holds the wired services.
type App struct {
	Config config.Config
	DB     *gorm.DB

	Provider provider.Provider
	Gateway  *provider.Gateway
	Tasks    *tasks.Dispatcher
	Hub      *progress.Hub

	Credits    *services.CreditService
	Cache      *services.CacheService
	History    *services.HistoryService
	Languages  *services.LanguageService
	Scoring    *services.ScoringService
	Translator *services.TranslationService
	Jobs       *services.JobService
	Entities   *services.EntityService
}

// New wires every service around db and p. It starts the task dispatcher;
// call Close to stop it.
func New(cfg config.Config, db *gorm.DB, p provider.Provider) *App {
	a := &App{
		Config:   cfg,
		DB:       db,
		Provider: p,
		Gateway:  provider.GatewayFromConfig(p, cfg.Provider),
		Tasks:    tasks.New(cfg.Translation.Workers, cfg.Translation.TaskQueue),
		Hub:      progress.NewHub(),
	}
	a.Credits = &services.CreditService{DB: db}
	a.Cache = &services.CacheService{DB: db, TTL: cfg.Translation.CacheTTL}
	a.History = &services.HistoryService{DB: db}
	a.Languages = &services.LanguageService{DB: db}
	a.Scoring = &services.ScoringService{History: a.History, Scorer: services.HeuristicScorer{}}
	a.Translator = &services.TranslationService{
		DB:              db,
		Provider:        a.Gateway,
		Credits:         a.Credits,
		Cache:           a.Cache,
		Languages:       a.Languages,
		Scoring:         a.Scoring,
		Tasks:           a.Tasks,
		ScoringDelay:    cfg.Translation.ScoringDelay,
		ChargeCacheHits: cfg.Translation.ChargeCacheHits,
		CostPer1K:       cfg.Provider.CostPer1K,
	}
	a.Jobs = &services.JobService{
		DB:             db,
		Translator:     a.Translator,
		Runner:         a.Tasks,
		Events:         a.Hub,
		IdempotencyTTL: cfg.IdempotencyTTL,
	}
	a.Entities = &services.EntityService{DB: db, Languages: a.Languages}
	return a
}

// Migrate creates the schema and seeds the language catalog.
func Migrate(ctx context.Context, db *gorm.DB, languagesFile string) (int, error) {
	if err := repo.AutoMigrate(db.WithContext(ctx)); err != nil {
		return 0, err
	}
	return (&services.LanguageService{DB: db}).Seed(ctx, languagesFile)
}

// Prepare migrates, seeds and runs the housekeeping that should happen
// before serving: purging expired cache entries and deactivating ledgers
// whose period has ended.
func (a *App) Prepare(ctx context.Context) error {
	n, err := Migrate(ctx, a.DB, a.Config.Translation.LanguagesFile)
	if err != nil {
		return err
	}
	purged, err := a.Cache.PurgeExpired(ctx)
	if err != nil {
		return err
	}
	expired, err := a.Credits.ExpireDue(ctx)
	if err != nil {
		return err
	}
	log.Info().
		Int("languages", n).
		Int64("cache_purged", purged).
		Int64("ledgers_expired", expired).
		Msg("database ready")
	return nil
}

// IdempotencyExists reports whether userID already used key on scope.
// Lookup failures read as "not seen" so the request proceeds normally.
func (a *App) IdempotencyExists(ctx context.Context, userID, scope, key string, now time.Time) (bool, error) {
	_, err := repo.GetIdempotency(ctx, a.DB, userID, scope, key, now)
	if errors.Is(err, repo.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		log.Warn().Err(err).Msg("idempotency lookup failed")
		return false, nil
	}
	return true, nil
}

// Close drains background work, waiting at most until ctx is done.
func (a *App) Close(ctx context.Context) error {
	return a.Tasks.Close(ctx)
}
