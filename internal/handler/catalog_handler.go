package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/timetable-api/pkg/response"
)

type catalogCache interface {
	Invalidate(ctx context.Context) error
}

// CatalogHandler lets the catalog owner drop cached catalog reads after edits.
type CatalogHandler struct {
	service catalogCache
}

// NewCatalogHandler constructs the handler.
func NewCatalogHandler(svc catalogCache) *CatalogHandler {
	return &CatalogHandler{service: svc}
}

// Invalidate godoc
// @Summary Invalidate cached catalog reads
// @Tags Catalog
// @Success 204
// @Router /catalog/cache/invalidate [post]
func (h *CatalogHandler) Invalidate(c *gin.Context) {
	if err := h.service.Invalidate(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
