// Package handlers – dependencies
//
// Handlers reach the services through the small interfaces below so tests
// can substitute stubs.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-translate-backend/internal/domain"
	"github.com/tbourn/go-translate-backend/internal/http/middleware"
	"github.com/tbourn/go-translate-backend/internal/progress"
	"github.com/tbourn/go-translate-backend/internal/repo"
	"github.com/tbourn/go-translate-backend/internal/services"
)

// Translator runs single-field and whole-entity translations.
type Translator interface {
	TranslateField(ctx context.Context, req services.FieldRequest) (*services.FieldResult, error)
	TranslateEntity(ctx context.Context, req services.EntityRequest, progress services.ProgressFunc) (*services.BulkResult, error)
}

// JobQueue submits and reads background entity translations.
type JobQueue interface {
	Submit(ctx context.Context, userID, entityID, targetLang, idemKey string) (*domain.TranslationJob, bool, error)
	Get(ctx context.Context, id, userID string) (*domain.TranslationJob, error)
}

// Entities stores translatable entities.
type Entities interface {
	Create(ctx context.Context, ownerID string, in services.NewEntity) (*domain.Entity, error)
	Get(ctx context.Context, id, ownerID string) (*domain.Entity, error)
	Translations(ctx context.Context, id, ownerID, targetLang string) ([]domain.FieldTranslation, error)
}

// Catalog serves the language catalog.
type Catalog interface {
	List(ctx context.Context, activeOnly bool) ([]domain.Language, error)
	AvailableTargets(ctx context.Context, sourceLang string) ([]domain.Language, error)
}

// Credits reads a user's quota.
type Credits interface {
	Summary(ctx context.Context, userID string) (*services.CreditsSummary, error)
	Remaining(ctx context.Context, userID string) (int, error)
}

// Journal reads and reviews translation history.
type Journal interface {
	ListPage(ctx context.Context, f repo.HistoryFilter, page, pageSize int) ([]domain.TranslationHistory, int64, error)
	Stats(ctx context.Context, f repo.HistoryFilter) (int64, *time.Time, error)
	Verify(ctx context.Context, id, verifierID string, status domain.VerificationStatus, feedback string) (*domain.TranslationHistory, error)
}

// ProgressStream streams job events over a websocket.
type ProgressStream interface {
	Serve(w http.ResponseWriter, r *http.Request, jobID string, snapshot func() *progress.Event) error
}

// Deps bundles the services behind the handlers. A nil Jobs disables async
// entity translation; a nil Progress disables /ws.
type Deps struct {
	Translator Translator
	Jobs       JobQueue
	Entities   Entities
	Catalog    Catalog
	Credits    Credits
	Journal    Journal
	Progress   ProgressStream
}

// Handlers groups the HTTP endpoints.
type Handlers struct {
	d Deps
}

// New returns Handlers bound to d.
func New(d Deps) *Handlers { return &Handlers{d: d} }

func userID(c *gin.Context) string { return middleware.UserID(c) }
