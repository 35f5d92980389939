package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"stockflow/internal/domain/purchase"
	"stockflow/internal/infrastructure/http/v1/dto"
)

// PurchaseService is what PurchaseHandler needs from the purchase workflow.
type PurchaseService interface {
	Create(ctx context.Context, in purchase.CreateInput, actorID int64) (*purchase.Purchase, error)
	Update(ctx context.Context, id int64, in purchase.UpdateInput, actorID int64) (*purchase.Purchase, error)
	Delete(ctx context.Context, id int64, actorID int64) error
	Get(ctx context.Context, id int64) (*purchase.Purchase, error)
	List(ctx context.Context, filter purchase.ListFilter) ([]purchase.Purchase, error)
}

// PurchaseHandler handles /purchases.
type PurchaseHandler struct {
	*BaseHandler
	service PurchaseService
}

// NewPurchaseHandler creates a new purchase handler.
func NewPurchaseHandler(base *BaseHandler, service PurchaseService) *PurchaseHandler {
	return &PurchaseHandler{BaseHandler: base, service: service}
}

// Create handles POST /purchases.
func (h *PurchaseHandler) Create(c *gin.Context) {
	var req dto.CreatePurchaseRequest
	if !h.BindJSON(c, &req) {
		return
	}

	p, err := h.service.Create(c.Request.Context(), req.ToInput(), h.ActorID(c))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, p)
}

// Get handles GET /purchases/:id.
func (h *PurchaseHandler) Get(c *gin.Context) {
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	p, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, p)
}

type purchaseListQuery struct {
	dto.PageQuery
	SupplierID *int64 `form:"supplier_id"`
}

// List handles GET /purchases.
func (h *PurchaseHandler) List(c *gin.Context) {
	var q purchaseListQuery
	if !h.BindQuery(c, &q) {
		return
	}

	filter := purchase.ListFilter{SupplierID: q.SupplierID, Limit: q.Limit, Offset: q.Offset}
	items, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(items, purchase.PageLimit(q.Limit), q.Offset))
}

// Update handles PUT /purchases/:id.
func (h *PurchaseHandler) Update(c *gin.Context) {
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdatePurchaseRequest
	if !h.BindJSON(c, &req) {
		return
	}

	p, err := h.service.Update(c.Request.Context(), id, req.ToInput(), h.ActorID(c))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, p)
}

// Delete handles DELETE /purchases/:id.
func (h *PurchaseHandler) Delete(c *gin.Context) {
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), id, h.ActorID(c)); err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, "purchase deleted")
}
