package api

import (
	"net/http"
	"strconv"

	"commerce-service/internal/apperr"
	"commerce-service/internal/query"
	"commerce-service/internal/resource"

	"github.com/gin-gonic/gin"
)

// resourceHandlers binds the five canonical operations of one resource to
// gin routes. The same handler set serves every resource; anything
// type-specific lives behind the Operations interface.
type resourceHandlers struct {
	ops     resource.Operations
	devMode bool
}

// mount registers the flat CRUD routes for the resource.
func (h resourceHandlers) mount(rg *gin.RouterGroup) {
	base := rg.Group("/" + h.ops.Definition().Name())
	base.GET("", h.list)
	base.POST("", h.create)
	base.GET("/:id", h.getOne)
	base.PATCH("/:id", h.update)
	base.DELETE("/:id", h.delete)
}

// mountNested registers list and create under a parent path segment, e.g.
// /categories/:id/subcategories. The parent identifier scopes the list and
// is injected into created documents.
func (h resourceHandlers) mountNested(rg *gin.RouterGroup, parent, parentColumn string) {
	nested := rg.Group("/" + parent + "/:id/" + h.ops.Definition().Name())
	nested.GET("", func(c *gin.Context) {
		parentID, err := pathID(c)
		if err != nil {
			respondError(c, err, h.devMode)
			return
		}
		h.listScoped(c, query.Scope{Column: parentColumn, Value: parentID})
	})
	nested.POST("", func(c *gin.Context) {
		parentID, err := pathID(c)
		if err != nil {
			respondError(c, err, h.devMode)
			return
		}
		h.createScoped(c, query.Scope{Column: parentColumn, Value: parentID})
	})
}

func (h resourceHandlers) list(c *gin.Context) {
	h.listScoped(c)
}

func (h resourceHandlers) listScoped(c *gin.Context, scopes ...query.Scope) {
	result, err := h.ops.List(c.Request.Context(), c.Request.URL.Query(), scopes...)
	if err != nil {
		respondError(c, err, h.devMode)
		return
	}
	respondList(c, result)
}

func (h resourceHandlers) getOne(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		respondError(c, err, h.devMode)
		return
	}

	doc, err := h.ops.GetOne(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, h.devMode)
		return
	}
	respondData(c, http.StatusOK, doc)
}

func (h resourceHandlers) create(c *gin.Context) {
	h.createScoped(c)
}

func (h resourceHandlers) createScoped(c *gin.Context, scopes ...query.Scope) {
	fields, err := bindFields(c)
	if err != nil {
		respondError(c, err, h.devMode)
		return
	}

	doc, err := h.ops.Create(c.Request.Context(), fields, scopes...)
	if err != nil {
		respondError(c, err, h.devMode)
		return
	}
	respondData(c, http.StatusCreated, doc)
}

func (h resourceHandlers) update(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		respondError(c, err, h.devMode)
		return
	}

	fields, err := bindFields(c)
	if err != nil {
		respondError(c, err, h.devMode)
		return
	}

	doc, err := h.ops.Update(c.Request.Context(), id, fields)
	if err != nil {
		respondError(c, err, h.devMode)
		return
	}
	respondData(c, http.StatusOK, doc)
}

func (h resourceHandlers) delete(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		respondError(c, err, h.devMode)
		return
	}

	if err := h.ops.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err, h.devMode)
		return
	}
	c.Status(http.StatusNoContent)
}

func pathID(c *gin.Context) (int64, error) {
	return parseID(c.Param("id"))
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperr.Newf(apperr.InvalidIdentifier, "Invalid id: %s. Please use a valid identifier.", raw)
	}
	return id, nil
}

func bindFields(c *gin.Context) (map[string]interface{}, error) {
	fields := map[string]interface{}{}
	if err := c.ShouldBindJSON(&fields); err != nil {
		return nil, apperr.Wrap(apperr.ValidationFailed, "Invalid request body", err)
	}
	return fields, nil
}
