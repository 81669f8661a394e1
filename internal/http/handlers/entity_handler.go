// Package handlers – entity endpoints
//
// Creating and reading entities, listing their stored translations and
// translating them. Translation runs inline by default; with async=true or an
// Idempotency-Key it is queued as a job and answered with 202.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-translate-backend/internal/content"
	"github.com/tbourn/go-translate-backend/internal/domain"
	"github.com/tbourn/go-translate-backend/internal/http/middleware"
	"github.com/tbourn/go-translate-backend/internal/services"
)

// CreateEntityRequest is the payload of POST /entities.
type CreateEntityRequest struct {
	Title      string                 `json:"title" binding:"required,max=255" example:"Welcome"`
	Subtitle   string                 `json:"subtitle" binding:"max=255" example:"Fresh bread every day"`
	SourceLang string                 `json:"source_lang" example:"en"`
	Sections   []CreateSectionRequest `json:"sections" binding:"max=200,dive"`
}

// CreateSectionRequest is one section of CreateEntityRequest.
type CreateSectionRequest struct {
	Category string        `json:"category" example:"about"`
	Content  content.Value `json:"content" swaggertype:"object"`
}

// TranslateEntityRequest is the payload of POST /entities/{id}/translate.
type TranslateEntityRequest struct {
	TargetLang string `json:"target_lang" binding:"required" example:"de"`
	// Run in the background and return a job ID
	Async bool `json:"async"`
}

// JobAccepted is returned for an async entity translation.
type JobAccepted struct {
	JobID  string           `json:"job_id"`
	Status domain.JobStatus `json:"status"`
}

// FieldTranslationsResponse lists stored translations of an entity.
type FieldTranslationsResponse struct {
	EntityID     string                    `json:"entity_id"`
	Translations []domain.FieldTranslation `json:"translations"`
}

// CreateEntity godoc
// @ID          createEntity
// @Summary     Create a translatable entity
// @Tags        Entities
// @Accept      json
// @Produce     json
// @Param       X-User-ID  header  string                        false  "Caller identity"
// @Param       body       body    handlers.CreateEntityRequest  true   "Entity"
// @Success     201  {object}  domain.Entity
// @Failure     400  {object}  handlers.ErrorResponse
// @Router      /entities [post]
func (h *Handlers) CreateEntity(c *gin.Context) {
	var req CreateEntityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid body: "+err.Error())
		return
	}
	in := services.NewEntity{Title: req.Title, Subtitle: req.Subtitle, SourceLang: req.SourceLang}
	for _, s := range req.Sections {
		in.Sections = append(in.Sections, services.NewSection{Category: s.Category, Content: s.Content})
	}
	e, err := h.d.Entities.Create(c.Request.Context(), userID(c), in)
	if err != nil {
		failErr(c, err)
		return
	}
	c.Header("Location", c.FullPath()+"/"+e.ID)
	ok(c, http.StatusCreated, e)
}

// GetEntity godoc
// @ID          getEntity
// @Summary     Get an entity with its sections
// @Tags        Entities
// @Produce     json
// @Param       X-User-ID  header  string  false  "Caller identity"
// @Param       id         path    string  true   "Entity ID"
// @Success     200  {object}  domain.Entity
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /entities/{id} [get]
func (h *Handlers) GetEntity(c *gin.Context) {
	e, err := h.d.Entities.Get(c.Request.Context(), c.Param("id"), userID(c))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, e)
}

// ListEntityTranslations godoc
// @ID          listEntityTranslations
// @Summary     List stored translations of an entity
// @Tags        Entities
// @Produce     json
// @Param       X-User-ID  header  string  false  "Caller identity"
// @Param       id         path    string  true   "Entity ID"
// @Param       lang       query   string  false  "Target language filter"
// @Success     200  {object}  handlers.FieldTranslationsResponse
// @Failure     400  {object}  handlers.ErrorResponse
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /entities/{id}/translations [get]
func (h *Handlers) ListEntityTranslations(c *gin.Context) {
	id := c.Param("id")
	items, err := h.d.Entities.Translations(c.Request.Context(), id, userID(c), c.Query("lang"))
	if err != nil {
		failErr(c, err)
		return
	}
	if items == nil {
		items = []domain.FieldTranslation{}
	}
	ok(c, http.StatusOK, FieldTranslationsResponse{EntityID: id, Translations: items})
}

// TranslateEntity godoc
// @ID          translateEntity
// @Summary     Translate every field of an entity
// @Description Synchronous by default. With async=true the work is queued and a job ID is returned; progress is streamed on /ws. An Idempotency-Key makes retries return the first job.
// @Tags        Entities
// @Accept      json
// @Produce     json
// @Param       X-User-ID        header  string                           false  "Caller identity"
// @Param       Idempotency-Key  header  string                           false  "Client retry key"
// @Param       id               path    string                           true   "Entity ID"
// @Param       body             body    handlers.TranslateEntityRequest  true   "Target language"
// @Success     200  {object}  services.BulkResult
// @Success     202  {object}  handlers.JobAccepted
// @Header      202  {string}  Idempotency-Replayed  "true when an earlier job is returned"
// @Failure     400  {object}  handlers.ErrorResponse
// @Failure     402  {object}  handlers.ErrorResponse  "Quota cannot cover every field"
// @Failure     404  {object}  handlers.ErrorResponse
// @Failure     503  {object}  handlers.ErrorResponse  "Job queue full"
// @Router      /entities/{id}/translate [post]
func (h *Handlers) TranslateEntity(c *gin.Context) {
	var req TranslateEntityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid body: "+err.Error())
		return
	}
	uid := userID(c)
	id := c.Param("id")
	ctx := c.Request.Context()

	key, hasKey := middleware.GetIdempotencyKey(c)
	if req.Async || hasKey {
		if h.d.Jobs == nil {
			fail(c, http.StatusServiceUnavailable, ErrCodeInternal, "background jobs are disabled")
			return
		}
		job, replayed, err := h.d.Jobs.Submit(ctx, uid, id, req.TargetLang, key)
		if err != nil {
			failErr(c, err)
			return
		}
		if replayed {
			c.Header(middleware.HeaderIdempotencyReplayed, "true")
		}
		ok(c, http.StatusAccepted, JobAccepted{JobID: job.ID, Status: job.Status})
		return
	}

	res, err := h.d.Translator.TranslateEntity(ctx, services.EntityRequest{
		UserID:     uid,
		EntityID:   id,
		TargetLang: req.TargetLang,
	}, nil)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, res)
}
