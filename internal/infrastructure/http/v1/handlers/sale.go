package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"stockflow/internal/domain/sale"
	"stockflow/internal/infrastructure/http/v1/dto"
)

// SaleService is what SaleHandler needs from the sale workflow.
type SaleService interface {
	Create(ctx context.Context, in sale.CreateInput, actorID int64) (*sale.Sale, error)
	Update(ctx context.Context, id int64, in sale.UpdateInput, actorID int64) (*sale.Sale, error)
	Delete(ctx context.Context, id int64, actorID int64) error
	Get(ctx context.Context, id int64) (*sale.Sale, error)
	List(ctx context.Context, filter sale.ListFilter) ([]sale.Sale, error)
}

// SaleHandler handles /sales.
type SaleHandler struct {
	*BaseHandler
	service SaleService
}

// NewSaleHandler creates a new sale handler.
func NewSaleHandler(base *BaseHandler, service SaleService) *SaleHandler {
	return &SaleHandler{BaseHandler: base, service: service}
}

// Create handles POST /sales.
func (h *SaleHandler) Create(c *gin.Context) {
	var req dto.CreateSaleRequest
	if !h.BindJSON(c, &req) {
		return
	}

	sl, err := h.service.Create(c.Request.Context(), req.ToInput(), h.ActorID(c))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, sl)
}

// Get handles GET /sales/:id.
func (h *SaleHandler) Get(c *gin.Context) {
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	sl, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, sl)
}

// List handles GET /sales.
func (h *SaleHandler) List(c *gin.Context) {
	var q dto.PageQuery
	if !h.BindQuery(c, &q) {
		return
	}

	items, err := h.service.List(c.Request.Context(), sale.ListFilter{Limit: q.Limit, Offset: q.Offset})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(items, sale.PageLimit(q.Limit), q.Offset))
}

// Update handles PUT /sales/:id.
func (h *SaleHandler) Update(c *gin.Context) {
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateSaleRequest
	if !h.BindJSON(c, &req) {
		return
	}

	sl, err := h.service.Update(c.Request.Context(), id, req.ToInput(), h.ActorID(c))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, sl)
}

// Delete handles DELETE /sales/:id.
func (h *SaleHandler) Delete(c *gin.Context) {
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), id, h.ActorID(c)); err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, "sale deleted")
}
