package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"stockflow/internal/domain/product"
	"stockflow/internal/domain/reconcile"
	"stockflow/internal/infrastructure/http/v1/dto"
)

// ProductReader loads products.
type ProductReader interface {
	Get(ctx context.Context, id int64) (*product.Product, error)
}

// StockChecker reconciles one product against its ledger.
type StockChecker interface {
	Check(ctx context.Context, productID int64) (reconcile.Report, error)
}

// ProductHandler handles /products.
type ProductHandler struct {
	*BaseHandler
	products ProductReader
	checker  StockChecker
}

// NewProductHandler creates a new product handler.
func NewProductHandler(base *BaseHandler, products ProductReader, checker StockChecker) *ProductHandler {
	return &ProductHandler{BaseHandler: base, products: products, checker: checker}
}

// Stock handles GET /products/:id/stock.
func (h *ProductHandler) Stock(c *gin.Context) {
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	p, err := h.products.Get(ctx, id)
	if err != nil {
		h.Error(c, err)
		return
	}
	report, err := h.checker.Check(ctx, id)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewProductStockResponse(p, report))
}
