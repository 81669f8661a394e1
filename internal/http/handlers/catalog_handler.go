// Package handlers – catalog endpoints
//
// Read-only views of the language catalog and the content schemas.
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-translate-backend/internal/domain"
	"github.com/tbourn/go-translate-backend/internal/schema"
	"github.com/tbourn/go-translate-backend/internal/utils"
)

// LanguagesResponse lists catalog languages.
type LanguagesResponse struct {
	Languages []domain.Language `json:"languages"`
}

// TargetsResponse lists the languages a source can be translated into.
type TargetsResponse struct {
	Source    string            `json:"source"`
	Languages []domain.Language `json:"languages"`
}

// SchemaResponse is one content schema with its JSON Schema rendering.
type SchemaResponse struct {
	schema.ContentSchema
	JSONSchema map[string]any `json:"json_schema"`
}

// ListLanguages godoc
// @ID          listLanguages
// @Summary     List the language catalog
// @Tags        Catalog
// @Produce     json
// @Param       active  query  bool  false  "Only active languages"  default(true)
// @Success     200  {object}  handlers.LanguagesResponse
// @Router      /languages [get]
func (h *Handlers) ListLanguages(c *gin.Context) {
	items, err := h.d.Catalog.List(c.Request.Context(), utils.BoolDefault(c.Query("active"), true))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, LanguagesResponse{Languages: items})
}

// AvailableTargets godoc
// @ID          availableTargetLanguages
// @Summary     List target languages for a source language
// @Tags        Catalog
// @Produce     json
// @Param       source  path  string  true  "Source language code"  example(en)
// @Success     200  {object}  handlers.TargetsResponse
// @Failure     400  {object}  handlers.ErrorResponse
// @Router      /languages/{source}/targets [get]
func (h *Handlers) AvailableTargets(c *gin.Context) {
	src := c.Param("source")
	items, err := h.d.Catalog.AvailableTargets(c.Request.Context(), src)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, TargetsResponse{Source: src, Languages: items})
}

// ListSchemas godoc
// @ID          listSchemas
// @Summary     List content schemas
// @Tags        Catalog
// @Produce     json
// @Success     200  {array}  handlers.SchemaResponse
// @Router      /schemas [get]
func (h *Handlers) ListSchemas(c *gin.Context) {
	all := schema.All()
	out := make([]SchemaResponse, 0, len(all))
	for _, s := range all {
		out = append(out, SchemaResponse{ContentSchema: s, JSONSchema: s.JSONSchema()})
	}
	ok(c, http.StatusOK, out)
}

// GetSchema godoc
// @ID          getSchema
// @Summary     Get the schema of one content category
// @Tags        Catalog
// @Produce     json
// @Param       category  path  string  true  "Category"  example(contact)
// @Success     200  {object}  handlers.SchemaResponse
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /schemas/{category} [get]
func (h *Handlers) GetSchema(c *gin.Context) {
	cat := strings.ToLower(c.Param("category"))
	if !schema.Known(cat) && cat != schema.Generic {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "unknown category "+cat)
		return
	}
	s := schema.For(cat)
	ok(c, http.StatusOK, SchemaResponse{ContentSchema: s, JSONSchema: s.JSONSchema()})
}
