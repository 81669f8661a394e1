// Package handlers – job endpoints
//
// Polling a background job and streaming its progress over a websocket.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-translate-backend/internal/http/middleware"
	"github.com/tbourn/go-translate-backend/internal/progress"
	"github.com/tbourn/go-translate-backend/internal/services"
)

// GetJob godoc
// @ID          getJob
// @Summary     Get the state of a background translation job
// @Tags        Jobs
// @Produce     json
// @Param       X-User-ID  header  string  false  "Caller identity"
// @Param       id         path    string  true   "Job ID"
// @Success     200  {object}  domain.TranslationJob
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /jobs/{id} [get]
func (h *Handlers) GetJob(c *gin.Context) {
	if h.d.Jobs == nil {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "background jobs are disabled")
		return
	}
	job, err := h.d.Jobs.Get(c.Request.Context(), c.Param("id"), userID(c))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, job)
}

// StreamProgress godoc
// @ID          streamProgress
// @Summary     Stream job progress over a websocket
// @Description Upgrades to a websocket and pushes one JSON event per translated field, then a done event, then closes. Browsers cannot set X-User-ID on a websocket handshake, so user_id may be given as a query parameter instead.
// @Tags        Jobs
// @Param       job_id   query  string  true   "Job ID"
// @Param       user_id  query  string  false  "Caller identity when the header cannot be set"
// @Success     101  {object}  progress.Event
// @Failure     400  {object}  handlers.ErrorResponse
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /ws [get]
func (h *Handlers) StreamProgress(c *gin.Context) {
	if h.d.Progress == nil || h.d.Jobs == nil {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "progress streaming is disabled")
		return
	}
	jobID := c.Query("job_id")
	if jobID == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "job_id is required")
		return
	}
	uid := userID(c)
	if q := c.Query("user_id"); q != "" && uid == middleware.AnonymousUser {
		uid = q
	}
	ctx := c.Request.Context()
	if _, err := h.d.Jobs.Get(ctx, jobID, uid); err != nil {
		failErr(c, err)
		return
	}

	snapshot := func() *progress.Event {
		job, err := h.d.Jobs.Get(ctx, jobID, uid)
		if err != nil {
			return nil
		}
		ev := services.JobEvent(job)
		return &ev
	}
	if err := h.d.Progress.Serve(c.Writer, c.Request, jobID, snapshot); err != nil {
		// The upgrader has already answered the handshake.
		middleware.LoggerFrom(c).Debug().Err(err).Str("job_id", jobID).Msg("websocket upgrade failed")
	}
}
