// Package handlers – account endpoints
//
// Credits summary, the caller's translation history (with a weak ETag for
// conditional GETs) and manual verification of history rows.
package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-translate-backend/internal/domain"
	"github.com/tbourn/go-translate-backend/internal/repo"
)

// HistoryResponse is one page of translation history.
type HistoryResponse struct {
	Items      []domain.TranslationHistory `json:"items"`
	Pagination Pagination                  `json:"pagination"`
}

// VerifyRequest is the payload of POST /history/{id}/verify.
type VerifyRequest struct {
	Status   domain.VerificationStatus `json:"status" binding:"required,oneof=approved rejected" example:"approved"`
	Feedback string                    `json:"feedback" binding:"max=2000"`
}

// GetCredits godoc
// @ID          creditsSummary
// @Summary     Get the caller's credit summary
// @Tags        Credits
// @Produce     json
// @Param       X-User-ID  header  string  false  "Caller identity"
// @Success     200  {object}  services.CreditsSummary
// @Router      /credits [get]
func (h *Handlers) GetCredits(c *gin.Context) {
	sum, err := h.d.Credits.Summary(c.Request.Context(), userID(c))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, sum)
}

// ListHistory godoc
// @ID          listHistory
// @Summary     List the caller's translation history (paginated)
// @Description Newest first. Supports a weak ETag through If-None-Match.
// @Tags        History
// @Produce     json
// @Param       X-User-ID      header  string  false  "Caller identity"
// @Param       If-None-Match  header  string  false  "Return 304 if the ETag matches"
// @Param       entity_id      query   string  false  "Entity filter"
// @Param       target_lang    query   string  false  "Language filter"
// @Param       status         query   string  false  "Verification status filter"
// @Param       page           query   int     false  "Page number"     minimum(1) default(1)
// @Param       page_size      query   int     false  "Items per page"  minimum(1) maximum(100) default(20)
// @Success     200  {object}  handlers.HistoryResponse
// @Header      200  {string}  ETag  "Weak ETag of the filtered result"
// @Success     304  {string}  string  "Not Modified"
// @Router      /history [get]
func (h *Handlers) ListHistory(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)
	page, pageSize := clampPagination(c)
	f := repo.HistoryFilter{
		UserID:     uid,
		EntityID:   c.Query("entity_id"),
		TargetLang: c.Query("target_lang"),
		Status:     domain.VerificationStatus(c.Query("status")),
	}

	if count, maxTS, err := h.d.Journal.Stats(ctx, f); err == nil {
		var ts int64
		if maxTS != nil {
			ts = maxTS.UnixNano()
		}
		etag := fmt.Sprintf(`W/"history:%s:%d:%d:%d:%d"`, uid, count, ts, page, pageSize)
		c.Header("ETag", etag)
		if matchETag(c.GetHeader("If-None-Match"), etag) {
			c.Status(http.StatusNotModified)
			return
		}
	}

	items, total, err := h.d.Journal.ListPage(ctx, f, page, pageSize)
	if err != nil {
		failErr(c, err)
		return
	}
	if items == nil {
		items = []domain.TranslationHistory{}
	}
	ok(c, http.StatusOK, HistoryResponse{Items: items, Pagination: newPagination(page, pageSize, total)})
}

func matchETag(header, etag string) bool {
	for _, t := range strings.Split(header, ",") {
		if t = strings.TrimSpace(t); t == etag || t == "*" {
			return true
		}
	}
	return false
}

// VerifyTranslation godoc
// @ID          verifyTranslation
// @Summary     Approve or reject a translation
// @Tags        History
// @Accept      json
// @Produce     json
// @Param       X-User-ID  header  string                  false  "Verifier identity"
// @Param       id         path    string                  true   "History ID"
// @Param       body       body    handlers.VerifyRequest  true   "Verdict"
// @Success     200  {object}  domain.TranslationHistory
// @Failure     400  {object}  handlers.ErrorResponse
// @Failure     404  {object}  handlers.ErrorResponse
// @Failure     409  {object}  handlers.ErrorResponse  "Already approved or rejected"
// @Router      /history/{id}/verify [post]
func (h *Handlers) VerifyTranslation(c *gin.Context) {
	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid body: "+err.Error())
		return
	}
	rec, err := h.d.Journal.Verify(c.Request.Context(), c.Param("id"), userID(c), req.Status, req.Feedback)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, rec)
}
