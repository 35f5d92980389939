package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"stockflow/internal/domain/adjustment"
	"stockflow/internal/domain/ledger"
	"stockflow/internal/infrastructure/http/v1/dto"
)

// AdjustmentService is what StockMovementHandler needs for manual corrections.
type AdjustmentService interface {
	Create(ctx context.Context, in adjustment.CreateInput, actorID int64) (*ledger.Movement, error)
	Update(ctx context.Context, id int64, in adjustment.UpdateInput, actorID int64) (*ledger.Movement, error)
	Delete(ctx context.Context, id int64, actorID int64) error
}

// HistoryService reads the stock ledger.
type HistoryService interface {
	History(ctx context.Context, filter ledger.Filter) ([]ledger.Movement, error)
}

// StockMovementHandler handles /stock-movements.
type StockMovementHandler struct {
	*BaseHandler
	adjustments AdjustmentService
	history     HistoryService
}

// NewStockMovementHandler creates a new stock movement handler.
func NewStockMovementHandler(base *BaseHandler, adjustments AdjustmentService, history HistoryService) *StockMovementHandler {
	return &StockMovementHandler{BaseHandler: base, adjustments: adjustments, history: history}
}

// Create handles POST /stock-movements.
func (h *StockMovementHandler) Create(c *gin.Context) {
	var req dto.CreateStockMovementRequest
	if !h.BindJSON(c, &req) {
		return
	}

	m, err := h.adjustments.Create(c.Request.Context(), req.ToInput(), h.ActorID(c))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, m)
}

// List handles GET /stock-movements, newest first.
func (h *StockMovementHandler) List(c *gin.Context) {
	var q dto.MovementHistoryQuery
	if !h.BindQuery(c, &q) {
		return
	}

	movements, err := h.history.History(c.Request.Context(), q.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(movements, ledger.PageLimit(q.Limit), q.Offset))
}

// Update handles PUT /stock-movements/:id.
func (h *StockMovementHandler) Update(c *gin.Context) {
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateStockMovementRequest
	if !h.BindJSON(c, &req) {
		return
	}

	m, err := h.adjustments.Update(c.Request.Context(), id, req.ToInput(), h.ActorID(c))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, m)
}

// Delete handles DELETE /stock-movements/:id. The movement is reversed, not removed.
func (h *StockMovementHandler) Delete(c *gin.Context) {
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	if err := h.adjustments.Delete(c.Request.Context(), id, h.ActorID(c)); err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, "stock movement reversed")
}
