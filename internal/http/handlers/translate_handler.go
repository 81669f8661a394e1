// Package handlers – single-field translation
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-translate-backend/internal/content"
	"github.com/tbourn/go-translate-backend/internal/services"
)

// TranslateRequest is the payload of POST /translate.
type TranslateRequest struct {
	// A string or a JSON object
	Content    content.Value `json:"content" swaggertype:"object"`
	SourceLang string        `json:"source_lang" example:"en"`
	TargetLang string        `json:"target_lang" binding:"required" example:"fr"`
	Category   string        `json:"category" example:"about"`
	Context    string        `json:"context,omitempty" example:"Landing page of a bakery"`
	EntityID   string        `json:"entity_id,omitempty"`
	FieldKey   string        `json:"field_key,omitempty"`
}

// TranslateResponse is the result of POST /translate.
type TranslateResponse struct {
	*services.FieldResult
	CreditsRemaining int `json:"credits_remaining"`
}

// Translate godoc
// @ID          translateField
// @Summary     Translate one content field
// @Description Translates a string or structured object. Cache hits are served without a provider call. Same-language and blank content is returned unchanged and free.
// @Tags        Translation
// @Accept      json
// @Produce     json
// @Param       X-User-ID  header  string                    false  "Caller identity"
// @Param       body       body    handlers.TranslateRequest true   "Field to translate"
// @Success     200  {object}  handlers.TranslateResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid input or language"
// @Failure     402  {object}  handlers.ErrorResponse  "Quota exceeded"
// @Failure     422  {object}  handlers.ErrorResponse  "Provider reply unusable"
// @Failure     502  {object}  handlers.ErrorResponse  "Provider rejected the request"
// @Failure     503  {object}  handlers.ErrorResponse  "Provider unavailable"
// @Router      /translate [post]
func (h *Handlers) Translate(c *gin.Context) {
	var req TranslateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid body: "+err.Error())
		return
	}
	if req.SourceLang == "" {
		req.SourceLang = "en"
	}
	uid := userID(c)
	ctx := c.Request.Context()

	res, err := h.d.Translator.TranslateField(ctx, services.FieldRequest{
		UserID:     uid,
		Content:    req.Content,
		SourceLang: req.SourceLang,
		TargetLang: req.TargetLang,
		Category:   req.Category,
		Context:    req.Context,
		EntityID:   req.EntityID,
		FieldKey:   req.FieldKey,
	})
	if err != nil {
		failErr(c, err)
		return
	}
	remaining, err := h.d.Credits.Remaining(ctx, uid)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, TranslateResponse{FieldResult: res, CreditsRemaining: remaining})
}
